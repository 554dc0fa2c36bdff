package models

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestMarkEdited(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain title", "Hello", "[edited] Hello"},
		{"already marked", "[edited] Hello", "[edited] Hello"},
		{"marker without space", "[edited]Hello", "[edited]Hello"},
		{"marker not at start", "Hello [edited]", "[edited] Hello [edited]"},
		{"empty title", "", "[edited] "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MarkEdited(tt.title)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, MarkEdited(got))
		})
	}
}

func TestBoard_TitleColumnFitsEditedTitle(t *testing.T) {
	s, err := schema.Parse(&Board{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)

	field := s.LookUpField("Title")
	require.NotNil(t, field)
	assert.Equal(t, TitleColumnSize, field.Size)

	edited := MarkEdited(strings.Repeat("가", TitleMaxLength))
	assert.LessOrEqual(t, utf8.RuneCountInString(edited), field.Size)
}

func TestBoard_PasswordNeverSerialized(t *testing.T) {
	b := Board{ID: 1, Title: "t", Content: "c", Writer: "w", Password: "$2a$10$secret", CreatedAt: time.Now()}

	raw, err := json.Marshal(b)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.NotContains(t, m, "password")
	assert.Contains(t, m, "createdAt")
	assert.Equal(t, "board", Board{}.TableName())
}

func TestAppError(t *testing.T) {
	cause := errors.New("decode failed")
	err := NewValidationError([]FieldError{{Field: "id", Rule: "required", Message: "id is required"}}, cause)

	assert.Equal(t, 400, err.Status)
	assert.Equal(t, "Bad Request", err.Code)
	assert.Equal(t, "Validation failed: decode failed", err.Error())
	assert.ErrorIs(t, err, cause)

	notFound := NewRouteNotFoundError("GET", "/nope")
	assert.Equal(t, "Route GET:/nope not found", notFound.Error())
	assert.Equal(t, 404, notFound.Status)

	internal := NewInternalError(503, cause)
	assert.Equal(t, 503, internal.Status)
	assert.Equal(t, "Service Unavailable", internal.Code)
	assert.Equal(t, "Something went wrong", internal.Message)
	assert.ErrorIs(t, internal, cause)
}
