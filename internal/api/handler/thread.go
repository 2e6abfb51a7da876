package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Rrens/chatdesk/internal/api/response"
	"github.com/Rrens/chatdesk/internal/backend"
	"github.com/Rrens/chatdesk/internal/bulk"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/go-chi/chi/v5"
)

type tagRequest struct {
	Tag string `json:"tag" validate:"required"`
}

type reactionRequest struct {
	Reaction domain.Reaction `json:"reaction" validate:"required"`
}

type bulkRequest struct {
	Intent    domain.BulkIntent `json:"intent" validate:"required"`
	ThreadIDs []string          `json:"threadIds" validate:"omitempty,dive,required"`
}

// ListThreads paints the inbox of the chatbot
func ListThreads(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	if err := ws.ThreadList.Load(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"threads": ws.ThreadList.Rows(),
		"fresh":   ws.ThreadList.Fresh(),
		"version": ws.ThreadList.Version(),
	})
}

// GetThread opens a thread in the detail pane
func GetThread(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	if err := ws.ThreadDetail.Open(r.Context(), chi.URLParam(r, "threadID")); err != nil {
		writeError(w, err)
		return
	}

	thread, _ := ws.ThreadDetail.Thread()
	response.OK(w, map[string]any{
		"thread":   thread,
		"messages": ws.ThreadDetail.Messages(),
	})
}

// UpdateThread applies a partial change to one thread
func UpdateThread(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	var input domain.ThreadChanges
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	res, err := ws.Threads.Update(r.Context(), chi.URLParam(r, "threadID"), input)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, res)
}

// AddTag adds a tag to a thread
func AddTag(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	var input tagRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	res, err := ws.Threads.AddTag(r.Context(), chi.URLParam(r, "threadID"), input.Tag)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, res)
}

// RemoveTag removes a tag from a thread
func RemoveTag(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	res, err := ws.Threads.RemoveTag(r.Context(), chi.URLParam(r, "threadID"), chi.URLParam(r, "tag"))
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, res)
}

// ReactToMessage sets or clears the operator reaction on a message
func ReactToMessage(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	var input reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	res, err := ws.Threads.React(r.Context(), chi.URLParam(r, "threadID"), chi.URLParam(r, "messageID"), input.Reaction)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, res)
}

// BulkThreads runs a bulk action over the threads named in the request.
// A failed run reports the ids it kept selected.
func BulkThreads(w http.ResponseWriter, r *http.Request) {
	ws, ok := workspace(w, r)
	if !ok {
		return
	}

	var input bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	sel := bulk.NewSelection(input.ThreadIDs...)
	summary, err := ws.Threads.Bulk(r.Context(), sel, input.Intent)
	if errors.Is(err, domain.ErrUnknownIntent) {
		writeError(w, err)
		return
	}
	if err != nil {
		status := http.StatusBadGateway
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		response.Error(w, status, map[string]any{
			"message":   err.Error(),
			"selection": sel.IDs(),
		})
		return
	}

	response.OK(w, map[string]any{
		"summary":   summary,
		"selection": sel.IDs(),
	})
}
