package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Rrens/chatdesk/internal/api/response"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/go-chi/chi/v5"
)

type notesRequest struct {
	Notes string `json:"notes"`
}

// ListVisitors paints the lead table of the chatbot
func ListVisitors(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	if err := ws.Leads.Load(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"visitors": ws.Leads.Rows(),
		"version":  ws.Leads.Version(),
	})
}

// UpdateVisitor edits the contact fields or flags of a lead
func UpdateVisitor(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	var input domain.VisitorChanges
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	res, err := ws.LeadService.UpdateContact(r.Context(), chi.URLParam(r, "visitorID"), input)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, res)
}

// SaveNotes stores the internal notes of a lead
func SaveNotes(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	var input notesRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	res, err := ws.LeadService.SaveNotes(r.Context(), chi.URLParam(r, "visitorID"), input.Notes)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, res)
}

// VisitorThreads opens the paginated thread list of a lead
func VisitorThreads(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	visitorID := chi.URLParam(r, "visitorID")
	if err := ws.LeadService.OpenThreads(r.Context(), visitorID); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, ws.VisitorThreads.State(visitorID))
}

// MoreVisitorThreads loads the next page of a lead's threads
func MoreVisitorThreads(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	visitorID := chi.URLParam(r, "visitorID")
	loaded, err := ws.LeadService.LoadMoreThreads(r.Context(), visitorID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"loaded": loaded,
		"state":  ws.VisitorThreads.State(visitorID),
	})
}
