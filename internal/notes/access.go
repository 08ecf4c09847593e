package notes

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vedgupta/prenotebook/internal/errs"
)

// authorizeOwner checks that the caller owns the note.
// The two failure modes stay distinct: a missing note is not_found while an
// existing note owned by someone else is permission_denied. Only the
// public-read path collapses the two.
func (s *Service) authorizeOwner(ctx context.Context, callerID, noteID string) error {
	if callerID == "" {
		return errs.New(errs.Unauthenticated, "Unauthorized")
	}
	if noteID == "" {
		return errs.New(errs.InvalidArgument, "Note ID is required")
	}

	owner, err := s.db.GetNoteOwner(ctx, noteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.New(errs.NotFound, "Note not found")
		}
		return errs.Wrap(errs.Internal, "failed to look up note", err)
	}

	if owner != callerID {
		return errs.New(errs.PermissionDenied, "You do not own this note")
	}
	return nil
}

// requireCaller checks that a caller identity was resolved.
func requireCaller(callerID string) error {
	if callerID == "" {
		return errs.New(errs.Unauthenticated, "Unauthorized")
	}
	return nil
}
