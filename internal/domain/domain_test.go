package domain_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkResult_Flatten(t *testing.T) {
	var result domain.BulkResult
	raw := `[[{"id":"a","resolved":true}],[{"id":"b","resolved":true}],[]]`
	require.NoError(t, json.Unmarshal([]byte(raw), &result))

	flat := result.Flatten()

	assert.Len(t, flat, 2)
	assert.Equal(t, domain.Fields{"id": "a", "resolved": true}, flat["a"])
	assert.Equal(t, domain.Fields{"id": "b", "resolved": true}, flat["b"])
	_, ok := flat["c"]
	assert.False(t, ok, "ids absent from every batch must not appear")
}

func TestBulkResult_FlattenSkipsRecordsWithoutID(t *testing.T) {
	result := domain.BulkResult{{{"resolved": true}}, {{"_id": "x", "resolved": false}}}

	flat := result.Flatten()

	assert.Len(t, flat, 1)
	assert.Contains(t, flat, "x")
}

func TestBulkIntent_Changes(t *testing.T) {
	tests := []struct {
		intent domain.BulkIntent
		want   domain.Fields
	}{
		{domain.BulkResolve, domain.Fields{"resolved": true}},
		{domain.BulkUnresolve, domain.Fields{"resolved": false}},
		{domain.BulkImportant, domain.Fields{"important": true}},
		{domain.BulkUnimportant, domain.Fields{"important": false}},
		{domain.BulkDelete, domain.Fields{"archived": true}},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			got, err := tt.intent.Changes()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := domain.BulkIntent("purge").Changes()
	assert.True(t, errors.Is(err, domain.ErrUnknownIntent))
}

func TestAddTag(t *testing.T) {
	tags := []string{"billing", "vip"}

	got, err := domain.AddTag(tags, "urgent")
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "vip", "urgent"}, got)
	assert.Equal(t, []string{"billing", "vip"}, tags, "input must not be mutated")

	_, err = domain.AddTag(tags, "vip")
	assert.ErrorIs(t, err, domain.ErrDuplicateTag)

	got, err = domain.AddTag(tags, "VIP")
	require.NoError(t, err, "uniqueness is case-sensitive")
	assert.Contains(t, got, "VIP")

	_, err = domain.AddTag(tags, strings.Repeat("x", domain.MaxTagLength+1))
	assert.ErrorIs(t, err, domain.ErrTagTooLong)

	_, err = domain.AddTag(tags, "   ")
	assert.ErrorIs(t, err, domain.ErrEmptyTag)
}

func TestRemoveTag(t *testing.T) {
	assert.Equal(t, []string{"a", "c"}, domain.RemoveTag([]string{"a", "b", "c"}, "b"))
	assert.Equal(t, []string{"a"}, domain.RemoveTag([]string{"a"}, "z"))
}

func TestValidate_ThreadChanges(t *testing.T) {
	long := strings.Repeat("t", 51)
	mode := domain.ThreadMode("ROBOT")

	tests := []struct {
		name    string
		changes domain.ThreadChanges
		field   string
	}{
		{"duplicate tags", domain.ThreadChanges{Tags: []string{"a", "a"}}, "tags"},
		{"long tag", domain.ThreadChanges{Tags: []string{long}}, "tags[0]"},
		{"bad mode", domain.ThreadChanges{Mode: &mode}, "mode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.Validate(tt.changes)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, tt.field)
		})
	}

	ok := domain.ThreadChanges{Tags: []string{"a", "b"}}
	assert.NoError(t, domain.Validate(ok))
}

func TestThreadUpdate_MarshalJSON(t *testing.T) {
	u := domain.ThreadUpdate{ThreadID: "T1", Changes: domain.Fields{"resolved": true}}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"threadId":"T1","resolved":true}`, string(data))
}

func TestFields_ApplyTo(t *testing.T) {
	title := "old"
	th := domain.Thread{ID: "T1", Title: &title, Tags: []string{"a"}}

	err := domain.Fields{"title": "new", "resolved": true, "tags": []any{"a", "b"}}.ApplyTo(&th)
	require.NoError(t, err)

	require.NotNil(t, th.Title)
	assert.Equal(t, "new", *th.Title)
	assert.True(t, th.Resolved)
	assert.Equal(t, []string{"a", "b"}, th.Tags)
	assert.Equal(t, "T1", th.ID)
}

func TestFields_Same(t *testing.T) {
	a := domain.Fields{"tags": []string{"x"}, "resolved": true}
	b := domain.Fields{"tags": []any{"x"}, "resolved": true}

	assert.True(t, a.Same(b, "tags"))
	assert.True(t, a.Same(b, "resolved"))
	assert.False(t, a.Same(domain.Fields{}, "resolved"))
}

func TestPagination_HasMore(t *testing.T) {
	assert.True(t, domain.Pagination{Page: 1, Pages: 3}.HasMore())
	assert.False(t, domain.Pagination{Page: 3, Pages: 3}.HasMore())
	assert.False(t, domain.Pagination{Page: 1, Pages: 0}.HasMore())
}
