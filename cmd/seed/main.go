// Command seed fills the board table with fake posts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"bulletin/internal/bootstrap"
	"bulletin/internal/config"
	"bulletin/internal/observability"
	"bulletin/internal/repository"
	"bulletin/internal/seed"

	"github.com/go-extras/cobraflags"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	countFlag    = "count"
	passwordFlag = "password"
	seedFlag     = "seed"
)

// seedFlags holds the flags of one seed command. Each command gets its own
// set because cobraflags binds a flag to viper once.
type seedFlags struct {
	count    *cobraflags.IntFlag
	password *cobraflags.StringFlag
	seed     *cobraflags.IntFlag
}

func newSeedFlags() *seedFlags {
	return &seedFlags{
		count: &cobraflags.IntFlag{
			Name:  countFlag,
			Value: 50,
			Usage: "Number of posts to create",
			ValidateFunc: func(v int) error {
				if v <= 0 {
					return fmt.Errorf("--%s must be a positive integer, got %d", countFlag, v)
				}
				return nil
			},
		},
		password: &cobraflags.StringFlag{
			Name:  passwordFlag,
			Value: seed.DefaultPassword,
			Usage: "Password assigned to every seeded post",
			ValidateFunc: func(v string) error {
				if v == "" {
					return fmt.Errorf("--%s must not be empty", passwordFlag)
				}
				return nil
			},
		},
		seed: &cobraflags.IntFlag{
			Name:  seedFlag,
			Value: 0,
			Usage: "Random seed for reproducible content (0 uses the current time)",
		},
	}
}

func newSeedCommand() *cobra.Command {
	flags := newSeedFlags()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the board with fake posts",
		Long: `Populate the board table with fake posts for local development.

Configuration is read the same way as the server (config.yml, .env and
environment variables), so DB_DRIVER and friends select the target database.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, flags)
		},
	}
	cobraflags.Register(cmd, flags.count, flags.password, flags.seed)
	return cmd
}

func runSeed(cmd *cobra.Command, flags *seedFlags) error {
	count, err := flags.count.GetIntE()
	if err != nil {
		return err
	}
	password, err := flags.password.GetStringE()
	if err != nil {
		return err
	}
	randSeed, err := flags.seed.GetIntE()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	closeLogs, err := observability.SetupLogger(observability.LogConfig{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeLogs() }()

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo := repository.NewBoardRepository(rt.DB, rt.Hasher)
	ids, err := seed.Boards(ctx, repo, seed.Options{
		Count:    count,
		Password: password,
		Seed:     int64(randSeed),
	})
	if err != nil {
		return err
	}

	slog.Info("seeding complete", slog.Int("posts", len(ids)), slog.String("driver", cfg.DBDriver))
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.String("error", err.Error()))
	}

	if err := newSeedCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
