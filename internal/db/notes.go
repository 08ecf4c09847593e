package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// NoteRow is a row in the notes table.
type NoteRow struct {
	ID          string
	Owner       string
	Title       string
	Description string
	Tag         string
	Share       bool
	CreatedAt   int64
	UpdatedAt   int64
}

// NotePatch describes a partial update to a note. Invalid (NULL) fields
// keep the stored value; valid fields overwrite it, including with "".
type NotePatch struct {
	Title       sql.NullString
	Description sql.NullString
	Tag         sql.NullString
	Share       sql.NullBool
}

// SharedNoteRow is a shared note joined with its author's public profile.
type SharedNoteRow struct {
	Note        NoteRow
	AuthorName  string
	AuthorEmail string
}

// InsertNote inserts a new note row.
func (a *AppDB) InsertNote(ctx context.Context, row NoteRow) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO notes (id, owner, title, description, tag, share, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID, row.Owner, row.Title, row.Description, row.Tag, boolToInt(row.Share), row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// ListNotesByOwner returns all notes belonging to owner, newest first.
func (a *AppDB) ListNotesByOwner(ctx context.Context, owner string) ([]NoteRow, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, owner, title, description, tag, share, created_at, updated_at
		FROM notes
		WHERE owner = ?
		ORDER BY created_at DESC, id
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []NoteRow
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}
	return notes, nil
}

// GetNoteOwner returns the owner of the note with the given id.
// Returns sql.ErrNoRows if no such note exists.
func (a *AppDB) GetNoteOwner(ctx context.Context, id string) (string, error) {
	var owner string
	err := a.db.QueryRowContext(ctx, `SELECT owner FROM notes WHERE id = ?`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("failed to get note owner: %w", err)
	}
	return owner, nil
}

// UpdateNoteOwned applies patch to the note matching BOTH id and owner in a
// single statement and returns the post-update row. Returns sql.ErrNoRows if
// no row matched the compound filter, whether because the note does not exist
// or because it belongs to someone else.
func (a *AppDB) UpdateNoteOwned(ctx context.Context, id, owner string, patch NotePatch, updatedAt int64) (*NoteRow, error) {
	var share any
	if patch.Share.Valid {
		share = boolToInt(patch.Share.Bool)
	}

	row := a.db.QueryRowContext(ctx, `
		UPDATE notes
		SET title = COALESCE(?, title),
		    description = COALESCE(?, description),
		    tag = COALESCE(?, tag),
		    share = COALESCE(?, share),
		    updated_at = ?
		WHERE id = ? AND owner = ?
		RETURNING id, owner, title, description, tag, share, created_at, updated_at
	`, patch.Title, patch.Description, patch.Tag, share, updatedAt, id, owner)

	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, err
	}
	return &note, nil
}

// DeleteNoteOwned deletes the note matching BOTH id and owner in a single
// statement. Returns false if no row matched the compound filter.
func (a *AppDB) DeleteNoteOwned(ctx context.Context, id, owner string) (bool, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected > 0, nil
}

// GetSharedNote returns the note with the given id joined with its author's
// profile, but only when the note is currently shared. Returns sql.ErrNoRows
// both when the note does not exist and when it exists but is not shared.
func (a *AppDB) GetSharedNote(ctx context.Context, id string) (*SharedNoteRow, error) {
	var (
		shared SharedNoteRow
		share  int64
	)
	err := a.db.QueryRowContext(ctx, `
		SELECT n.id, n.owner, n.title, n.description, n.tag, n.share, n.created_at, n.updated_at,
		       u.name, u.email
		FROM notes n
		JOIN users u ON u.id = n.owner
		WHERE n.id = ? AND n.share = 1
	`, id).Scan(
		&shared.Note.ID, &shared.Note.Owner, &shared.Note.Title, &shared.Note.Description,
		&shared.Note.Tag, &share, &shared.Note.CreatedAt, &shared.Note.UpdatedAt,
		&shared.AuthorName, &shared.AuthorEmail,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get shared note: %w", err)
	}
	shared.Note.Share = share >= 1
	return &shared, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (NoteRow, error) {
	var (
		note  NoteRow
		share int64
	)
	err := row.Scan(&note.ID, &note.Owner, &note.Title, &note.Description, &note.Tag, &share, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NoteRow{}, err
		}
		return NoteRow{}, fmt.Errorf("failed to scan note: %w", err)
	}
	note.Share = share >= 1
	return note, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
