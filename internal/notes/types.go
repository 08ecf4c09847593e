// Package notes implements note lifecycle operations: owner-scoped CRUD,
// share toggling, and public reads of shared notes.
package notes

import (
	"time"

	"github.com/vedgupta/prenotebook/internal/db"
)

// Validation limits for note content, in characters.
const (
	MinTitleLength       = 3
	MinDescriptionLength = 10
)

// DefaultTag is assigned when a note is created without a tag.
// Updates never coerce the tag; only creation applies the default.
const DefaultTag = "General"

// Note is a note owned by a single user.
type Note struct {
	ID          string
	Owner       string
	Title       string
	Description string
	Tag         string
	Share       bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateNoteParams holds the fields accepted when creating a note.
type CreateNoteParams struct {
	Title       string
	Description string
	Tag         string
}

// UpdateNotePatch describes a partial update. Nil fields are left unchanged;
// non-nil fields overwrite, including with zero values.
type UpdateNotePatch struct {
	Title       *string
	Description *string
	Tag         *string
	Share       *bool
}

// AuthorProfile is the minimal public projection of a note's owner,
// exposed only on shared reads.
type AuthorProfile struct {
	Name  string
	Email string
}

// SharedNoteView is a shared note together with its author's public profile.
type SharedNoteView struct {
	Note     Note
	Author   AuthorProfile
	ShareURL string
}

func noteFromRow(row db.NoteRow) Note {
	return Note{
		ID:          row.ID,
		Owner:       row.Owner,
		Title:       row.Title,
		Description: row.Description,
		Tag:         row.Tag,
		Share:       row.Share,
		CreatedAt:   time.Unix(row.CreatedAt, 0).UTC(),
		UpdatedAt:   time.Unix(row.UpdatedAt, 0).UTC(),
	}
}
