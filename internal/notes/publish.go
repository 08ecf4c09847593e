package notes

import (
	"context"
	"fmt"

	"github.com/vedgupta/prenotebook/internal/obs"
	"github.com/vedgupta/prenotebook/internal/s3client"
)

// Publisher mirrors shared notes to object storage as standalone HTML pages.
// Sharing a note uploads its rendered page; unsharing or deleting removes it.
type Publisher struct {
	s3 *s3client.Client
}

// NewPublisher creates a publisher over the given S3 client.
func NewPublisher(s3 *s3client.Client) *Publisher {
	return &Publisher{s3: s3}
}

// Publish renders the note and uploads the page to object storage.
func (p *Publisher) Publish(ctx context.Context, note Note, author AuthorProfile) error {
	key := sharedNoteKey(note.Owner, note.ID)
	page := RenderSharedNoteHTML(note, author, p.s3.GetPublicURL(key))

	if err := p.s3.PutObject(ctx, key, page, "text/html; charset=utf-8"); err != nil {
		return fmt.Errorf("failed to upload shared note page: %w", err)
	}
	return nil
}

// Unpublish removes the note's page from object storage.
// Removing a page that was never published is not an error.
func (p *Publisher) Unpublish(ctx context.Context, owner, noteID string) error {
	if err := p.s3.DeleteObject(ctx, sharedNoteKey(owner, noteID)); err != nil {
		return fmt.Errorf("failed to delete shared note page: %w", err)
	}
	return nil
}

// ShareURL returns the public URL of the note's published page.
func (p *Publisher) ShareURL(owner, noteID string) string {
	return p.s3.GetPublicURL(sharedNoteKey(owner, noteID))
}

// syncPublished reconciles object storage with the note's share flag.
// Failures are logged, never surfaced: the share flag in the database is the
// source of truth and the page can be re-synced by toggling again.
func (p *Publisher) syncPublished(ctx context.Context, note Note, author AuthorProfile) {
	var err error
	if note.Share {
		err = p.Publish(ctx, note, author)
	} else {
		err = p.Unpublish(ctx, note.Owner, note.ID)
	}
	if err != nil {
		obs.From(ctx).Warn("shared_page_sync_failed",
			"note_id", note.ID,
			"share", note.Share,
			"err", err)
	}
}
