package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/chatdesk/internal/config"
	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tenant = domain.Tenant{AccountID: "acc1", ChatbotID: "bot1"}

func writeEnvelope(w http.ResponseWriter, status int, success bool, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": success,
		"data":    data,
		"message": message,
	})
}

func newTestClient(t *testing.T, r chi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewClient(config.BackendConfig{BaseURL: srv.URL + "/", Token: "tok", Timeout: 5 * time.Second})
}

func TestClient_ListThreads_SendsTenantHeaders(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/threads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "acc1", r.Header.Get("X-Account-ID"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "bot1", r.URL.Query().Get("chatbotId"))
		writeEnvelope(w, http.StatusOK, true, map[string]any{
			"threads": []map[string]any{{"id": "T1", "title": "hello", "tags": []string{"a"}}},
		}, "")
	})
	c := newTestClient(t, r)

	threads, err := c.ListThreads(context.Background(), tenant)
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "T1", threads[0].ID)
	require.NotNil(t, threads[0].Title)
	assert.Equal(t, "hello", *threads[0].Title)
}

func TestClient_UpdateThreads_FlattensBody(t *testing.T) {
	r := chi.NewRouter()
	r.Patch("/thread/update-thread", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `[{"threadId":"T1","resolved":true},{"threadId":"T2","resolved":true}]`, string(body))
		writeEnvelope(w, http.StatusOK, true, map[string]any{
			"updatedThreads": [][]map[string]any{{{"id": "T1", "resolved": true}}, {}},
		}, "")
	})
	c := newTestClient(t, r)

	result, err := c.UpdateThreads(context.Background(), tenant, []domain.ThreadUpdate{
		{ThreadID: "T1", Changes: domain.Fields{"resolved": true}},
		{ThreadID: "T2", Changes: domain.Fields{"resolved": true}},
	})
	require.NoError(t, err)

	flat := result.Flatten()
	assert.Len(t, flat, 1)
	assert.Equal(t, true, flat["T1"]["resolved"])
}

func TestClient_UnsuccessfulEnvelope(t *testing.T) {
	r := chi.NewRouter()
	r.Patch("/thread/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnprocessableEntity, false, nil, "title too long")
	})
	c := newTestClient(t, r)

	_, err := c.UpdateThreadStatus(context.Background(), tenant, "T1", domain.Fields{"title": "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, "title too long", apiErr.Message)
}

func TestClient_SuccessFalseWithOKStatus(t *testing.T) {
	r := chi.NewRouter()
	r.Patch("/visitor/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, nil, "invalid email")
	})
	c := newTestClient(t, r)

	_, err := c.UpdateVisitor(context.Background(), tenant, "V1", domain.Fields{"email": "nope"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid email", apiErr.Message)
}

func TestClient_NotFound(t *testing.T) {
	r := chi.NewRouter()
	c := newTestClient(t, r)

	_, err := c.GetVisitorNotes(context.Background(), tenant, "V1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := NewClient(config.BackendConfig{BaseURL: url})

	_, err := c.ListThreads(context.Background(), tenant)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestClient_ListVisitorThreads_Pagination(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/visitor/{id}/threads", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "V1", chi.URLParam(r, "id"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		writeEnvelope(w, http.StatusOK, true, map[string]any{
			"threads":    []map[string]any{{"id": "T3"}},
			"pagination": map[string]int{"page": 2, "pages": 3},
		}, "")
	})
	c := newTestClient(t, r)

	page, err := c.ListVisitorThreads(context.Background(), tenant, "V1", 2, 10)
	require.NoError(t, err)
	assert.Len(t, page.Threads, 1)
	assert.True(t, page.Pagination.HasMore())
}

func TestClient_NotesCreateAndUpdate(t *testing.T) {
	var methods []string
	r := chi.NewRouter()
	handler := func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeEnvelope(w, http.StatusOK, true, map[string]any{"visitorId": "V1", "notes": body["notes"]}, "")
	}
	r.Post("/visitor/{id}/notes", handler)
	r.Patch("/visitor/{id}/notes", handler)
	c := newTestClient(t, r)

	notes, err := c.CreateVisitorNotes(context.Background(), tenant, "V1", "first")
	require.NoError(t, err)
	assert.Equal(t, "first", notes.Notes)

	notes, err = c.UpdateVisitorNotes(context.Background(), tenant, "V1", "second")
	require.NoError(t, err)
	assert.Equal(t, "second", notes.Notes)
	assert.Equal(t, []string{http.MethodPost, http.MethodPatch}, methods)
}

func TestClient_UpdateMessageReaction(t *testing.T) {
	r := chi.NewRouter()
	r.Patch("/thread/{threadID}/messages/{messageID}/reaction", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "M1", chi.URLParam(r, "messageID"))
		writeEnvelope(w, http.StatusOK, true, map[string]any{"id": "M1", "reaction": "POSITIVE"}, "")
	})
	c := newTestClient(t, r)

	rec, err := c.UpdateMessageReaction(context.Background(), tenant, "T1", "M1", domain.ReactionPositive)
	require.NoError(t, err)
	assert.Equal(t, "POSITIVE", rec["reaction"])
}

func TestClient_WithTokenAndSetToken(t *testing.T) {
	var seen []string
	r := chi.NewRouter()
	r.Get("/visitors", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, true, map[string]any{"visitors": []any{}}, "")
	})
	base := newTestClient(t, r)

	c := base.WithToken("operator-1")
	_, err := c.ListVisitors(context.Background(), tenant)
	require.NoError(t, err)

	c.SetToken("operator-2")
	_, err = c.ListVisitors(context.Background(), tenant)
	require.NoError(t, err)

	_, err = base.ListVisitors(context.Background(), tenant)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer operator-1", "Bearer operator-2", "Bearer tok"}, seen)
}
