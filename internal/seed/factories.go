// Package seed fills the board table with fake posts for local development
// and demos.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bulletin/internal/repository"
	"bulletin/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultPassword is the password given to seeded posts unless overridden.
const DefaultPassword = "1234"

// Options control how many posts are created and with which password.
type Options struct {
	Count    int
	Password string
	// Seed makes generated content reproducible when non-zero.
	Seed int64
}

// Factory builds fake board posts.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory returns a Factory. A zero seed uses the current time.
func NewFactory(seed int64) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{faker: gofakeit.New(seed)}
}

// Board builds the input for one post. Overrides run after the fake fields
// are filled in.
func (f *Factory) Board(password string, overrides ...func(*service.InsertBoardInput)) service.InsertBoardInput {
	in := service.InsertBoardInput{
		Title:    f.faker.Sentence(5),
		Content:  f.faker.Paragraph(2, 3, 8, "\n\n"),
		Writer:   f.faker.Username(),
		Password: password,
	}
	if len(in.Writer) > 50 {
		in.Writer = in.Writer[:50]
	}
	for _, override := range overrides {
		override(&in)
	}
	return in
}

// Boards inserts opts.Count fake posts through repo and returns their ids in
// insertion order.
func Boards(ctx context.Context, repo repository.BoardRepository, opts Options) ([]uint, error) {
	if opts.Count <= 0 {
		return nil, errors.New("seed: count must be positive")
	}
	password := opts.Password
	if password == "" {
		password = DefaultPassword
	}

	f := NewFactory(opts.Seed)
	ids := make([]uint, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		in := f.Board(password)
		id, err := repo.Create(ctx, in.Title, in.Content, in.Writer, in.Password)
		if err != nil {
			return ids, fmt.Errorf("seed post %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}

	slog.InfoContext(ctx, "seeded board posts", slog.Int("count", len(ids)))
	return ids, nil
}
