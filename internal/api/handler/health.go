package handler

import (
	"net/http"

	"github.com/Rrens/chatdesk/internal/api/middleware"
	"github.com/Rrens/chatdesk/internal/api/response"
	"github.com/Rrens/chatdesk/internal/notify"
	"github.com/Rrens/chatdesk/internal/session"
)

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including the session store
func ReadyCheck(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.Ready(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "cache store not ready")
			return
		}

		response.OK(w, map[string]string{
			"status":  "ready",
			"session": manager.SessionID(),
		})
	}
}

// Notifications returns the most recent console notifications
func Notifications(feed *notify.Feed) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"notifications": feed.Recent(),
		})
	}
}

// FlushCache clears every cached entry of the operator's account
func FlushCache(manager *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op, ok := middleware.GetOperator(r.Context())
		if !ok {
			response.Unauthorized(w, "unauthorized")
			return
		}

		deleted, err := manager.Flush(r.Context(), op)
		if err != nil {
			response.InternalError(w, "failed to flush cache: "+err.Error())
			return
		}

		response.OK(w, map[string]any{
			"message":      "cache flushed successfully",
			"keys_deleted": deleted,
		})
	}
}
