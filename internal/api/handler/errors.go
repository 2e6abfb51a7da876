package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/chatdesk/internal/api/middleware"
	"github.com/Rrens/chatdesk/internal/api/response"
	"github.com/Rrens/chatdesk/internal/backend"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/Rrens/chatdesk/internal/service"
	"github.com/Rrens/chatdesk/internal/session"
	"github.com/Rrens/chatdesk/internal/view"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// writeError maps console errors onto HTTP statuses
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	var apiErr *backend.APIError

	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(w, verr.Fields)
	case errors.Is(err, domain.ErrDuplicateTag),
		errors.Is(err, domain.ErrTagTooLong),
		errors.Is(err, domain.ErrEmptyTag),
		errors.Is(err, domain.ErrUnknownIntent),
		errors.Is(err, service.ErrUnknownFlag):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrNotLoaded),
		errors.Is(err, view.ErrThreadNotFound),
		errors.Is(err, backend.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			response.Error(w, apiErr.Status, apiErr.Message)
			return
		}
		response.BadGateway(w, apiErr.Message)
	default:
		response.BadGateway(w, err.Error())
	}
}

func workspace(w http.ResponseWriter, r *http.Request) (*session.Workspace, bool) {
	ws, ok := middleware.GetWorkspace(r.Context())
	if !ok {
		response.BadRequest(w, "missing chatbot ID")
	}
	return ws, ok
}
