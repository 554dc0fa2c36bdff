// Package models contains data structures for the board domain.
package models

import (
	"strings"
	"time"
)

// EditMarker prefixes the title of a post that has been edited.
const EditMarker = "[edited]"

// TitleMaxLength is the longest title, in characters, a client may submit.
const TitleMaxLength = 200

// TitleColumnSize is the width of the title column. It fits a title of
// TitleMaxLength after MarkEdited has prefixed it.
const TitleColumnSize = TitleMaxLength + len(EditMarker) + 1

// Board is a bulletin-board post. Password holds the stored hash and is
// never serialized.
type Board struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"size:209;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Writer    string    `gorm:"size:50;not null" json:"writer"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName keeps the singular table name used by existing deployments.
func (Board) TableName() string {
	return "board"
}

// BoardSummary is the list projection of a post.
type BoardSummary struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Writer    string    `json:"writer"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoardDetail is the detail projection of a post.
type BoardDetail struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Writer    string    `json:"writer"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MarkEdited returns title with the edit marker prepended, unless it already
// starts with the marker.
func MarkEdited(title string) string {
	if strings.HasPrefix(title, EditMarker) {
		return title
	}
	return EditMarker + " " + title
}
