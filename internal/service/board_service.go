// Package service holds the board use cases that sit between HTTP handlers
// and the repository.
package service

import (
	"context"
	"errors"
	"log/slog"

	"bulletin/internal/models"
	"bulletin/internal/observability"
	"bulletin/internal/repository"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
)

// Error codes carried in Outcome.Error.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidPassword = "INVALID_PASSWORD"
)

// Outcome is a use-case result shaped for the HTTP response: the status code
// to send and a body of {result} or {error}.
type Outcome struct {
	StatusCode int    `json:"-"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PasswordVerifier checks a plaintext password against a stored hash.
type PasswordVerifier interface {
	Verify(stored, plaintext string) bool
	VerifyMissing(plaintext string) bool
}

type BoardService struct {
	repo     repository.BoardRepository
	verifier PasswordVerifier
}

type ListBoardsInput struct {
	PageNum     int
	RowsPerPage int
	Search      string
}

type InsertBoardInput struct {
	Title    string
	Content  string
	Writer   string
	Password string
}

type DeleteBoardInput struct {
	ID       uint
	Password string
}

type UpdateBoardInput struct {
	ID       uint
	Title    string
	Content  string
	Password string
}

func NewBoardService(repo repository.BoardRepository, verifier PasswordVerifier) *BoardService {
	return &BoardService{
		repo:     repo,
		verifier: verifier,
	}
}

// GetTotalCount returns the number of posts matching search.
func (s *BoardService) GetTotalCount(ctx context.Context, search string) (int64, error) {
	span, ctx := observability.NewSpan(ctx, "BoardService.GetTotalCount")
	defer span.End()

	total, err := s.repo.Count(ctx, search)
	span.SetError(err)
	return total, err
}

// GetList returns one page of post summaries, newest first.
func (s *BoardService) GetList(ctx context.Context, in ListBoardsInput) ([]models.BoardSummary, error) {
	span, ctx := observability.NewSpan(ctx, "BoardService.GetList",
		attribute.Int("board.page_num", in.PageNum),
		attribute.Int("board.rows_per_page", in.RowsPerPage),
	)
	defer span.End()

	rows, err := s.repo.List(ctx, in.PageNum, in.RowsPerPage, in.Search)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if rows == nil {
		rows = []models.BoardSummary{}
	}
	return rows, nil
}

func (s *BoardService) GetDetail(ctx context.Context, id uint) (Outcome, error) {
	span, ctx := observability.NewSpan(ctx, "BoardService.GetDetail", attribute.Int64("board.id", int64(id)))
	defer span.End()

	detail, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return Outcome{StatusCode: fiber.StatusUnprocessableEntity, Error: CodeNotFound}, nil
	}
	if err != nil {
		span.SetError(err)
		return Outcome{}, err
	}
	return Outcome{StatusCode: fiber.StatusOK, Result: detail}, nil
}

func (s *BoardService) InsertBoard(ctx context.Context, in InsertBoardInput) (Outcome, error) {
	span, ctx := observability.NewSpan(ctx, "BoardService.InsertBoard")
	defer span.End()

	id, err := s.repo.Create(ctx, in.Title, in.Content, in.Writer, in.Password)
	if err != nil {
		span.SetError(err)
		return Outcome{}, err
	}
	span.AddAttributes(attribute.Int64("board.id", int64(id)))
	return Outcome{StatusCode: fiber.StatusCreated, Result: id}, nil
}

// CheckBoardPassword reports whether password matches the post's stored
// hash. A missing post reports false.
func (s *BoardService) CheckBoardPassword(ctx context.Context, id uint, password string) (bool, error) {
	span, ctx := observability.NewSpan(ctx, "BoardService.CheckBoardPassword", attribute.Int64("board.id", int64(id)))
	defer span.End()

	hash, err := s.repo.GetPasswordHash(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.verifier.VerifyMissing(password)
		s.recordGate(ctx, "check", id, gateMissing)
		return false, nil
	}
	if err != nil {
		span.SetError(err)
		return false, err
	}

	if !s.verifier.Verify(hash, password) {
		s.recordGate(ctx, "check", id, gateRejected)
		return false, nil
	}
	s.recordGate(ctx, "check", id, gateAccepted)
	return true, nil
}

// DeleteBoard removes the post when password matches.
func (s *BoardService) DeleteBoard(ctx context.Context, in DeleteBoardInput) (Outcome, error) {
	span, ctx := observability.NewSpan(ctx, "BoardService.DeleteBoard", attribute.Int64("board.id", int64(in.ID)))
	defer span.End()

	out, err := s.withPassword(ctx, "delete", in.ID, in.Password, func(tx repository.BoardRepository) (int64, error) {
		return tx.Delete(ctx, in.ID)
	})
	span.SetError(err)
	return out, err
}

// UpdateBoard rewrites the post's title and content when password matches.
func (s *BoardService) UpdateBoard(ctx context.Context, in UpdateBoardInput) (Outcome, error) {
	span, ctx := observability.NewSpan(ctx, "BoardService.UpdateBoard", attribute.Int64("board.id", int64(in.ID)))
	defer span.End()

	out, err := s.withPassword(ctx, "update", in.ID, in.Password, func(tx repository.BoardRepository) (int64, error) {
		return tx.Update(ctx, in.ID, in.Title, in.Content)
	})
	span.SetError(err)
	return out, err
}

// withPassword verifies password against a row-locked hash and runs mutate
// in the same transaction, so no other writer can change or remove the post
// between the check and the mutation.
func (s *BoardService) withPassword(
	ctx context.Context,
	operation string,
	id uint,
	password string,
	mutate func(repository.BoardRepository) (int64, error),
) (Outcome, error) {
	result := gateRejected
	var affected int64

	err := s.repo.WithTx(ctx, func(tx repository.BoardRepository) error {
		hash, err := tx.LockPasswordHash(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			s.verifier.VerifyMissing(password)
			result = gateMissing
			return nil
		}
		if err != nil {
			return err
		}
		if !s.verifier.Verify(hash, password) {
			return nil
		}

		result = gateAccepted
		affected, err = mutate(tx)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	s.recordGate(ctx, operation, id, result)
	if result != gateAccepted {
		return Outcome{StatusCode: fiber.StatusUnprocessableEntity, Error: CodeInvalidPassword}, nil
	}
	return Outcome{StatusCode: fiber.StatusOK, Result: affected}, nil
}

type gateResult string

const (
	gateAccepted gateResult = "accepted"
	gateRejected gateResult = "rejected"
	gateMissing  gateResult = "missing"
)

func (s *BoardService) recordGate(ctx context.Context, operation string, id uint, result gateResult) {
	observability.PasswordChecks.WithLabelValues(operation, string(result)).Inc()
	if result == gateAccepted {
		return
	}
	observability.LogSecurity(ctx, "invalid_board_password",
		slog.String("operation", operation),
		slog.Uint64("board_id", uint64(id)),
		slog.String("reason", string(result)),
	)
}
