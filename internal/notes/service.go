package notes

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vedgupta/prenotebook/internal/db"
	"github.com/vedgupta/prenotebook/internal/errs"
	"github.com/vedgupta/prenotebook/internal/obs"
)

// Service implements note lifecycle operations over the database layer.
// All owner-scoped mutations go through compound id+owner filters in the
// store, so authorization cannot be bypassed by a stale ownership check.
type Service struct {
	db        *db.AppDB
	publisher *Publisher
}

// NewService creates a notes service. The publisher may be nil, in which
// case shared notes are served from the API only and no pages are mirrored
// to object storage.
func NewService(appDB *db.AppDB, publisher *Publisher) *Service {
	return &Service{db: appDB, publisher: publisher}
}

// Create validates and stores a new note owned by the caller.
// A missing tag defaults to DefaultTag. Notes are always created private;
// sharing is a separate update.
func (s *Service) Create(ctx context.Context, callerID string, params CreateNoteParams) (*Note, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if err := validateTitle(params.Title); err != nil {
		return nil, err
	}
	if err := validateDescription(params.Description); err != nil {
		return nil, err
	}

	tag := params.Tag
	if tag == "" {
		tag = DefaultTag
	}

	now := time.Now().UTC().Unix()
	row := db.NoteRow{
		ID:          uuid.NewString(),
		Owner:       callerID,
		Title:       params.Title,
		Description: params.Description,
		Tag:         tag,
		Share:       false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.InsertNote(ctx, row); err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to create note", err)
	}

	note := noteFromRow(row)
	return &note, nil
}

// ListOwned returns all of the caller's notes, most recently created first.
func (s *Service) ListOwned(ctx context.Context, callerID string) ([]Note, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	rows, err := s.db.ListNotesByOwner(ctx, callerID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "failed to list notes", err)
	}

	result := make([]Note, 0, len(rows))
	for _, row := range rows {
		result = append(result, noteFromRow(row))
	}
	return result, nil
}

// Update applies a partial update to a note the caller owns.
// Supplied title/description values must still satisfy the length
// invariants; omitted fields keep their stored values. The tag is never
// defaulted here, an explicitly empty tag stays empty.
func (s *Service) Update(ctx context.Context, callerID, noteID string, patch UpdateNotePatch) (*Note, error) {
	if err := s.authorizeOwner(ctx, callerID, noteID); err != nil {
		return nil, err
	}
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return nil, err
		}
	}

	row, err := s.db.UpdateNoteOwned(ctx, noteID, callerID, dbPatch(patch), time.Now().UTC().Unix())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Note vanished between the ownership check and the update
			return nil, errs.New(errs.NotFound, "Note not found")
		}
		return nil, errs.Wrap(errs.Internal, "failed to update note", err)
	}

	note := noteFromRow(*row)
	s.syncAfterUpdate(ctx, note, patch)
	return &note, nil
}

// Delete permanently removes a note the caller owns. There is no soft
// delete; a deleted note id is immediately free for public reads to report
// as missing.
func (s *Service) Delete(ctx context.Context, callerID, noteID string) error {
	if err := s.authorizeOwner(ctx, callerID, noteID); err != nil {
		return err
	}

	deleted, err := s.db.DeleteNoteOwned(ctx, noteID, callerID)
	if err != nil {
		return errs.Wrap(errs.Internal, "failed to delete note", err)
	}
	if !deleted {
		return errs.New(errs.NotFound, "Note not found")
	}

	// Remove any published page. Deleting a page that never existed is a
	// no-op in object storage.
	if s.publisher != nil {
		if err := s.publisher.Unpublish(ctx, callerID, noteID); err != nil {
			obs.From(ctx).Warn("shared_page_delete_failed", "note_id", noteID, "err", err)
		}
	}

	return nil
}

// ReadShared returns a shared note with its author's public profile.
// Requires no caller identity. Missing and unshared notes are
// indistinguishable to the caller, both report not_found, so the existence
// of private notes never leaks.
func (s *Service) ReadShared(ctx context.Context, noteID string) (*SharedNoteView, error) {
	if noteID == "" {
		return nil, errs.New(errs.NotFound, "Note not found")
	}

	row, err := s.db.GetSharedNote(ctx, noteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.New(errs.NotFound, "Note not found")
		}
		return nil, errs.Wrap(errs.Internal, "failed to read shared note", err)
	}

	view := &SharedNoteView{
		Note: noteFromRow(row.Note),
		Author: AuthorProfile{
			Name:  row.AuthorName,
			Email: row.AuthorEmail,
		},
	}
	if s.publisher != nil {
		view.ShareURL = s.publisher.ShareURL(row.Note.Owner, row.Note.ID)
	}
	return view, nil
}

// syncAfterUpdate keeps the published page in step with the stored note.
// A shared note is (re)published so content edits reach the page; a note
// whose share flag was just turned off gets its page removed.
func (s *Service) syncAfterUpdate(ctx context.Context, note Note, patch UpdateNotePatch) {
	if s.publisher == nil {
		return
	}
	if !note.Share && patch.Share == nil {
		return
	}

	author := AuthorProfile{}
	if note.Share {
		user, err := s.db.GetUserByID(ctx, note.Owner)
		if err != nil {
			obs.From(ctx).Warn("shared_page_author_lookup_failed", "note_id", note.ID, "err", err)
		} else {
			author = AuthorProfile{Name: user.Name, Email: user.Email}
		}
	}
	s.publisher.syncPublished(ctx, note, author)
}

func validateTitle(title string) error {
	if utf8.RuneCountInString(title) < MinTitleLength {
		return errs.New(errs.InvalidArgument, "Title must be at least 3 characters")
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		return errs.New(errs.InvalidArgument, "Description must be at least 10 characters")
	}
	return nil
}

func dbPatch(patch UpdateNotePatch) db.NotePatch {
	var p db.NotePatch
	if patch.Title != nil {
		p.Title = sql.NullString{String: *patch.Title, Valid: true}
	}
	if patch.Description != nil {
		p.Description = sql.NullString{String: *patch.Description, Valid: true}
	}
	if patch.Tag != nil {
		p.Tag = sql.NullString{String: *patch.Tag, Valid: true}
	}
	if patch.Share != nil {
		p.Share = sql.NullBool{Bool: *patch.Share, Valid: true}
	}
	return p
}
