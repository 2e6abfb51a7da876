package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Rrens/chatdesk/internal/api/response"
	"github.com/Rrens/chatdesk/internal/session"
	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	OperatorKey  contextKey = "operator"
	WorkspaceKey contextKey = "workspace"
)

// AuthMiddleware authenticates operators by their backend token
type AuthMiddleware struct {
	parser *session.TokenParser
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(parser *session.TokenParser) *AuthMiddleware {
	return &AuthMiddleware{parser: parser}
}

// Authenticate validates the bearer token and stores the operator in the context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		op, err := m.parser.Parse(parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), OperatorKey, op)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOperator gets the authenticated operator from context
func GetOperator(ctx context.Context) (*session.Operator, bool) {
	op, ok := ctx.Value(OperatorKey).(*session.Operator)
	return op, ok
}

// GetWorkspace gets the console workspace from context
func GetWorkspace(ctx context.Context) (*session.Workspace, bool) {
	ws, ok := ctx.Value(WorkspaceKey).(*session.Workspace)
	return ws, ok
}

// WorkspaceContext resolves the chatbot from the URL into the operator's workspace
func WorkspaceContext(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op, ok := GetOperator(r.Context())
			if !ok {
				response.Unauthorized(w, "unauthorized")
				return
			}

			chatbotID := chi.URLParam(r, "chatbotID")
			if chatbotID == "" {
				response.BadRequest(w, "missing chatbot ID")
				return
			}

			ws, err := manager.Workspace(op, chatbotID)
			if err != nil {
				response.BadRequest(w, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), WorkspaceKey, ws)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
