// Package api exposes the notes HTTP API.
//
// Response envelopes are kept compatible with legacy clients: create
// wraps the note in {"saveNote": ...}, update in {"UpdateNote1": ...},
// delete returns {"success": true}, and the public shared read always
// answers 200 with a success flag instead of a 404.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/vedgupta/prenotebook/internal/auth"
	"github.com/vedgupta/prenotebook/internal/errs"
	"github.com/vedgupta/prenotebook/internal/notes"
	"github.com/vedgupta/prenotebook/internal/obs"
)

// Handler wraps the notes service and provides HTTP handlers
type Handler struct {
	notesService *notes.Service
}

// NewHandler creates a new API handler with the given notes service
func NewHandler(notesService *notes.Service) *Handler {
	return &Handler{notesService: notesService}
}

// RegisterRoutes registers all notes API routes on the given mux.
// The owner-scoped routes sit behind the auth middleware; the shared-note
// read is public and registered bare.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, mw *auth.Middleware) {
	mux.Handle("GET /notes", mw.RequireAuth(http.HandlerFunc(h.ListNotes)))
	mux.Handle("POST /notes", mw.RequireAuth(http.HandlerFunc(h.CreateNote)))
	mux.Handle("PUT /notes/{id}", mw.RequireAuth(http.HandlerFunc(h.UpdateNote)))
	mux.Handle("DELETE /notes/{id}", mw.RequireAuth(http.HandlerFunc(h.DeleteNote)))
	mux.HandleFunc("GET /notes/shared/{id}", h.GetSharedNote)
}

// noteJSON is the wire representation of a note.
type noteJSON struct {
	ID          string `json:"id"`
	User        string `json:"user"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tag         string `json:"tag"`
	Share       bool   `json:"share"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// sharedNoteJSON adds the author projection and page URL to a shared note.
type sharedNoteJSON struct {
	noteJSON
	Author   authorJSON `json:"author"`
	ShareURL string     `json:"share_url,omitempty"`
}

type authorJSON struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// createNoteRequest accepts both "description" and the legacy "body" key.
type createNoteRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Body        *string `json:"body"`
	Tag         string  `json:"tag"`
}

// updateNoteRequest distinguishes omitted fields from zero values.
type updateNoteRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Body        *string `json:"body"`
	Tag         *string `json:"tag"`
	Share       *bool   `json:"share"`
	Shared      *bool   `json:"shared"`
}

// ListNotes handles GET /notes - returns all of the caller's notes
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.GetIdentity(r.Context())

	result, err := h.notesService.ListOwned(r.Context(), identity.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	payload := make([]noteJSON, 0, len(result))
	for _, note := range result {
		payload = append(payload, toNoteJSON(note))
	}
	writeJSON(w, http.StatusOK, payload)
}

// CreateNote handles POST /notes - creates a new note
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.GetIdentity(r.Context())

	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	description := req.Description
	if description == "" && req.Body != nil {
		description = *req.Body
	}

	note, err := h.notesService.Create(r.Context(), identity.ID, notes.CreateNoteParams{
		Title:       req.Title,
		Description: description,
		Tag:         req.Tag,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]noteJSON{"saveNote": toNoteJSON(*note)})
}

// UpdateNote handles PUT /notes/{id} - partially updates an existing note
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.GetIdentity(r.Context())
	id := r.PathValue("id")

	var req updateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	patch := notes.UpdateNotePatch{
		Title:       req.Title,
		Description: req.Description,
		Tag:         req.Tag,
		Share:       req.Share,
	}
	if patch.Description == nil {
		patch.Description = req.Body
	}
	if patch.Share == nil {
		patch.Share = req.Shared
	}

	note, err := h.notesService.Update(r.Context(), identity.ID, id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]noteJSON{"UpdateNote1": toNoteJSON(*note)})
}

// DeleteNote handles DELETE /notes/{id} - permanently deletes a note
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.GetIdentity(r.Context())
	id := r.PathValue("id")

	if err := h.notesService.Delete(r.Context(), identity.ID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetSharedNote handles GET /notes/shared/{id} - public read of a shared note.
// Every response carries the success envelope: hits answer 200 with the note,
// misses answer 200 with success=false, and infrastructure failures keep the
// same envelope under their error status. A private note and a missing note
// produce the same miss, so this endpoint reveals nothing about private notes.
func (h *Handler) GetSharedNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	view, err := h.notesService.ReadShared(r.Context(), id)
	if err != nil {
		if errs.CodeOf(err) == errs.NotFound {
			writeJSON(w, http.StatusOK, map[string]any{
				"success": false,
				"error":   "Note not found",
			})
			return
		}
		code := errs.CodeOf(err)
		if code == errs.Internal || code == errs.Unavailable {
			obs.From(r.Context()).Error("request_failed", "err", err)
		}
		writeJSON(w, errs.HTTPStatus(code), map[string]any{
			"success": false,
			"error":   errs.MessageOf(err),
		})
		return
	}

	shared := sharedNoteJSON{
		noteJSON: toNoteJSON(view.Note),
		Author: authorJSON{
			Name:  view.Author.Name,
			Email: view.Author.Email,
		},
		ShareURL: view.ShareURL,
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"mynote":  shared,
	})
}

func toNoteJSON(note notes.Note) noteJSON {
	return noteJSON{
		ID:          note.ID,
		User:        note.Owner,
		Title:       note.Title,
		Description: note.Description,
		Tag:         note.Tag,
		Share:       note.Share,
		CreatedAt:   note.CreatedAt.Unix(),
		UpdatedAt:   note.UpdatedAt.Unix(),
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a coded service error to an HTTP response.
// Unauthenticated failures keep the exact body the auth middleware uses.
// Internal failures are logged with detail but surfaced generically.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	if code == errs.Unauthenticated {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if code == errs.Internal || code == errs.Unavailable {
		obs.From(r.Context()).Error("request_failed", "err", err)
	}
	writeError(w, errs.HTTPStatus(code), errs.MessageOf(err))
}
