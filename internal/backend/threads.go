package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Rrens/chatdesk/internal/domain"
)

// ListThreads returns the threads of the tenant's chatbot
func (c *Client) ListThreads(ctx context.Context, tenant domain.Tenant) ([]domain.Thread, error) {
	var data struct {
		Threads []domain.Thread `json:"threads"`
	}
	err := c.do(ctx, tenant, request{method: http.MethodGet, path: "/threads", chatbotScoped: true}, &data)
	if err != nil {
		return nil, err
	}
	return data.Threads, nil
}

// ListMessages returns the messages of a thread
func (c *Client) ListMessages(ctx context.Context, tenant domain.Tenant, threadID string) ([]domain.Message, error) {
	var data struct {
		Messages []domain.Message `json:"messages"`
	}
	path := "/thread/" + url.PathEscape(threadID) + "/messages"
	if err := c.do(ctx, tenant, request{method: http.MethodGet, path: path}, &data); err != nil {
		return nil, err
	}
	return data.Messages, nil
}

// UpdateThreads submits a batch of per-thread changes in one call
func (c *Client) UpdateThreads(ctx context.Context, tenant domain.Tenant, updates []domain.ThreadUpdate) (domain.BulkResult, error) {
	var data struct {
		UpdatedThreads domain.BulkResult `json:"updatedThreads"`
	}
	err := c.do(ctx, tenant, request{
		method:        http.MethodPatch,
		path:          "/thread/update-thread",
		body:          updates,
		chatbotScoped: true,
	}, &data)
	if err != nil {
		return nil, err
	}
	return data.UpdatedThreads, nil
}

// UpdateThreadStatus patches a field subset of one thread and returns the updated record
func (c *Client) UpdateThreadStatus(ctx context.Context, tenant domain.Tenant, threadID string, changes domain.Fields) (domain.Fields, error) {
	var rec domain.Fields
	err := c.do(ctx, tenant, request{
		method:        http.MethodPatch,
		path:          "/thread/" + url.PathEscape(threadID) + "/status",
		body:          changes,
		chatbotScoped: true,
	}, &rec)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// UpdateMessageReaction sets the operator reaction on a message and returns the updated record
func (c *Client) UpdateMessageReaction(ctx context.Context, tenant domain.Tenant, threadID, messageID string, reaction domain.Reaction) (domain.Fields, error) {
	var rec domain.Fields
	err := c.do(ctx, tenant, request{
		method: http.MethodPatch,
		path:   "/thread/" + url.PathEscape(threadID) + "/messages/" + url.PathEscape(messageID) + "/reaction",
		body:   map[string]string{"reaction": string(reaction)},
	}, &rec)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// VisitorThreadsPage is one page of a visitor's threads
type VisitorThreadsPage struct {
	Threads    []domain.Thread   `json:"threads"`
	Pagination domain.Pagination `json:"pagination"`
}

// ListVisitorThreads returns one page of the threads a visitor started
func (c *Client) ListVisitorThreads(ctx context.Context, tenant domain.Tenant, visitorID string, page, limit int) (VisitorThreadsPage, error) {
	var data VisitorThreadsPage
	err := c.do(ctx, tenant, request{
		method: http.MethodGet,
		path:   "/visitor/" + url.PathEscape(visitorID) + "/threads",
		query: url.Values{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(limit)},
		},
	}, &data)
	return data, err
}
