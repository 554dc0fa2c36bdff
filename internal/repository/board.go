// Package repository provides data access implementations for the application's models.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bulletin/internal/models"
	"bulletin/internal/observability"
	"bulletin/internal/passhash"

	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when no post has the requested id.
var ErrNotFound = errors.New("board not found")

var (
	summaryColumns = []string{"id", "title", "writer", "created_at", "updated_at"}
	detailColumns  = []string{"id", "title", "content", "writer", "created_at", "updated_at"}
)

// BoardRepository defines the interface for board data operations
type BoardRepository interface {
	Count(ctx context.Context, search string) (int64, error)
	List(ctx context.Context, pageNum, rowsPerPage int, search string) ([]models.BoardSummary, error)
	GetByID(ctx context.Context, id uint) (*models.BoardDetail, error)
	Create(ctx context.Context, title, content, writer, password string) (uint, error)
	GetPasswordHash(ctx context.Context, id uint) (string, error)
	LockPasswordHash(ctx context.Context, id uint) (string, error)
	Delete(ctx context.Context, id uint) (int64, error)
	Update(ctx context.Context, id uint, title, content string) (int64, error)
	WithTx(ctx context.Context, fn func(BoardRepository) error) error
}

// boardRepository implements BoardRepository
type boardRepository struct {
	db      *gorm.DB
	hasher  *passhash.Hasher
	logger  *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewBoardRepository creates a new board repository. hasher turns plaintext
// passwords into stored hashes on Create.
func NewBoardRepository(db *gorm.DB, hasher *passhash.Hasher) BoardRepository {
	table := models.Board{}.TableName()
	return &boardRepository{
		db:      db,
		hasher:  hasher,
		logger:  observability.NewRepoLogger(db.Dialector.Name(), table),
		metrics: observability.NewDatabaseMetrics(table),
	}
}

// observe starts a span and latency measurement for one operation. The
// returned func ends both and logs storage failures.
func (r *boardRepository) observe(ctx context.Context, operation string) (context.Context, func(error)) {
	ctx, span := observability.StartRepositorySpan(ctx, r.db.Dialector.Name(), operation, models.Board{}.TableName())
	done := r.metrics.TrackQuery(operation)
	return ctx, func(err error) {
		observability.LogPerformance(ctx, "board."+operation, done())
		if err != nil && !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.LogError(ctx, err, operation, errorCode(err))
		}
		span.End()
	}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// applySearch narrows q to posts whose title, content or writer contains
// search, ignoring case. A blank search leaves q unchanged.
func applySearch(q *gorm.DB, search string) *gorm.DB {
	term := strings.TrimSpace(search)
	if term == "" {
		return q
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
	return q.Where(
		"LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!' OR LOWER(writer) LIKE ? ESCAPE '!'",
		pattern, pattern, pattern,
	)
}

func (r *boardRepository) Count(ctx context.Context, search string) (total int64, err error) {
	ctx, finish := r.observe(ctx, "count")
	defer func() { finish(err) }()

	err = applySearch(r.db.WithContext(ctx).Model(&models.Board{}), search).Count(&total).Error
	return total, err
}

func (r *boardRepository) List(ctx context.Context, pageNum, rowsPerPage int, search string) (rows []models.BoardSummary, err error) {
	ctx, finish := r.observe(ctx, "list")
	defer func() { finish(err) }()

	if pageNum < 1 {
		pageNum = 1
	}
	err = applySearch(r.db.WithContext(ctx).Model(&models.Board{}), search).
		Select(summaryColumns).
		Order("id DESC").
		Limit(rowsPerPage).
		Offset((pageNum - 1) * rowsPerPage).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *boardRepository) GetByID(ctx context.Context, id uint) (detail *models.BoardDetail, err error) {
	ctx, finish := r.observe(ctx, "get")
	defer func() { finish(err) }()

	var row models.BoardDetail
	err = r.db.WithContext(ctx).Model(&models.Board{}).
		Select(detailColumns).
		Where("id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.logger.LogRead(ctx, map[string]any{"id": id})
	return &row, nil
}

func (r *boardRepository) Create(ctx context.Context, title, content, writer, password string) (id uint, err error) {
	ctx, finish := r.observe(ctx, "create")
	defer func() { finish(err) }()

	hash, err := r.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("hash board password: %w", err)
	}

	board := models.Board{
		Title:    title,
		Content:  content,
		Writer:   writer,
		Password: hash,
	}
	if err = r.db.WithContext(ctx).Create(&board).Error; err != nil {
		return 0, err
	}
	r.logger.LogCreate(ctx, map[string]any{"id": board.ID, "writer": writer})
	return board.ID, nil
}

type passwordRow struct {
	Password string
}

func (r *boardRepository) passwordHash(ctx context.Context, id uint, lock bool) (string, error) {
	q := r.db.WithContext(ctx).Model(&models.Board{}).Select("password").Where("id = ?", id)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row passwordRow
	err := q.Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Password, nil
}

func (r *boardRepository) GetPasswordHash(ctx context.Context, id uint) (hash string, err error) {
	ctx, finish := r.observe(ctx, "get_password")
	defer func() { finish(err) }()

	return r.passwordHash(ctx, id, false)
}

// LockPasswordHash reads the stored hash and holds a row lock until the
// surrounding transaction ends. Outside WithTx the lock is released at once.
func (r *boardRepository) LockPasswordHash(ctx context.Context, id uint) (hash string, err error) {
	ctx, finish := r.observe(ctx, "lock_password")
	defer func() { finish(err) }()

	return r.passwordHash(ctx, id, true)
}

func (r *boardRepository) Delete(ctx context.Context, id uint) (affected int64, err error) {
	ctx, finish := r.observe(ctx, "delete")
	defer func() { finish(err) }()

	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Board{})
	if err = result.Error; err != nil {
		return 0, err
	}
	r.logger.LogDelete(ctx, map[string]any{"id": id, "affected": result.RowsAffected})
	return result.RowsAffected, nil
}

// Update overwrites content and sets the title to models.MarkEdited(title).
func (r *boardRepository) Update(ctx context.Context, id uint, title, content string) (affected int64, err error) {
	ctx, finish := r.observe(ctx, "update")
	defer func() { finish(err) }()

	result := r.db.WithContext(ctx).Model(&models.Board{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"title":   models.MarkEdited(title),
			"content": content,
		})
	if err = result.Error; err != nil {
		return 0, err
	}
	r.logger.LogUpdate(ctx, map[string]any{"id": id, "affected": result.RowsAffected})
	return result.RowsAffected, nil
}

// WithTx runs fn against a repository bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (r *boardRepository) WithTx(ctx context.Context, fn func(BoardRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&boardRepository{
			db:      tx,
			hasher:  r.hasher,
			logger:  r.logger,
			metrics: r.metrics,
		})
	})
}
