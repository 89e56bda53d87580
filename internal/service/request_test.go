package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/channelvault/internal/models"
)

func strPtr(s string) *string { return &s }

func TestParseRequest_Valid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Request
	}{
		{
			name: "upsert",
			body: `{"action":"upsert","data":{"name":"A","url":"u","category":"News","logo":null,"position":7}}`,
			want: UpsertRequest{Data: models.Channel{Name: "A", URL: "u", Category: strPtr("News")}},
		},
		{
			name: "upsert with rename",
			body: `{"action":"upsert","oldName":"A","data":{"name":"B","url":"u"}}`,
			want: UpsertRequest{Data: models.Channel{Name: "B", URL: "u"}, OldName: "A"},
		},
		{
			name: "upsert with null oldName",
			body: `{"action":"upsert","oldName":null,"data":{"name":"B","url":"u"}}`,
			want: UpsertRequest{Data: models.Channel{Name: "B", URL: "u"}},
		},
		{
			name: "bulk skips invalid items",
			body: `{"action":"bulkUpsert","list":[{"name":"X","url":"1"},{"name":"","url":"2"},{"name":"Y"},3,null,{"name":"Z","url":"3"}]}`,
			want: BulkUpsertRequest{
				Items:   []models.Channel{{Name: "X", URL: "1"}, {Name: "Z", URL: "3"}},
				Skipped: 4,
			},
		},
		{
			name: "bulk skips mis-cased keys",
			body: `{"action":"bulkUpsert","list":[{"Name":"B","Url":"u"},{"name":"C","URL":"u"},{"name":"D","url":"u","Logo":"l"}]}`,
			want: BulkUpsertRequest{
				Items:   []models.Channel{{Name: "D", URL: "u"}},
				Skipped: 2,
			},
		},
		{
			name: "bulk skips non-string optional fields",
			body: `{"action":"bulkUpsert","list":[{"name":"A","url":"u","category":3},{"name":"B","url":"u","logo":"l"}]}`,
			want: BulkUpsertRequest{
				Items:   []models.Channel{{Name: "B", URL: "u", Logo: strPtr("l")}},
				Skipped: 1,
			},
		},
		{
			name: "empty bulk",
			body: `{"action":"bulkUpsert","list":[]}`,
			want: BulkUpsertRequest{Items: []models.Channel{}},
		},
		{
			name: "delete",
			body: `{"action":"delete","name":"A"}`,
			want: DeleteRequest{Name: "A"},
		},
		{
			name: "reorder",
			body: `{"action":"reorder","order":["B","A"]}`,
			want: ReorderRequest{Order: []string{"B", "A"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Action(), got.Action())
		})
	}
}

func TestParseRequest_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind Kind
		wantMsg  string
	}{
		{"empty body", ``, KindUnknownAction, "unknown action"},
		{"null body", `null`, KindUnknownAction, "unknown action"},
		{"no action", `{"data":{}}`, KindUnknownAction, "unknown action"},
		{"unknown action", `{"action":"truncate"}`, KindUnknownAction, "unknown action"},
		{"action not a string", `{"action":1}`, KindUnknownAction, "unknown action"},
		{"malformed json", `{"action":`, KindInvalidPayload, "invalid JSON"},
		{"trailing garbage", `{"action":"delete","name":"A"} x`, KindInvalidPayload, "invalid JSON"},
		{"array body", `[]`, KindUnknownAction, "unknown action"},
		{"string body", `"upsert"`, KindUnknownAction, "unknown action"},
		{"number body", `5`, KindUnknownAction, "unknown action"},
		{"upsert without data", `{"action":"upsert"}`, KindInvalidPayload, "invalid payload"},
		{"upsert null data", `{"action":"upsert","data":null}`, KindInvalidPayload, "invalid payload"},
		{"upsert data not object", `{"action":"upsert","data":"A"}`, KindInvalidPayload, "invalid payload"},
		{"upsert missing url", `{"action":"upsert","data":{"name":"A"}}`, KindInvalidPayload, "invalid payload"},
		{"upsert upper-case keys", `{"action":"upsert","data":{"NAME":"A","URL":"u"}}`, KindInvalidPayload, "invalid payload"},
		{"upsert title-case url", `{"action":"upsert","data":{"name":"A","Url":"u"}}`, KindInvalidPayload, "invalid payload"},
		{"upsert url not a string", `{"action":"upsert","data":{"name":"A","url":1}}`, KindInvalidPayload, "invalid payload"},
		{"upsert empty name", `{"action":"upsert","data":{"name":"","url":"u"}}`, KindInvalidPayload, "invalid payload"},
		{"upsert oldName not a string", `{"action":"upsert","oldName":5,"data":{"name":"A","url":"u"}}`, KindInvalidPayload, "invalid payload"},
		{"bulk without list", `{"action":"bulkUpsert"}`, KindInvalidPayload, "list required"},
		{"bulk list not array", `{"action":"bulkUpsert","list":{"name":"A"}}`, KindInvalidPayload, "list required"},
		{"delete without name", `{"action":"delete"}`, KindInvalidPayload, "name required"},
		{"delete empty name", `{"action":"delete","name":""}`, KindInvalidPayload, "name required"},
		{"delete name not string", `{"action":"delete","name":3}`, KindInvalidPayload, "name required"},
		{"reorder without order", `{"action":"reorder"}`, KindInvalidPayload, "order array required"},
		{"reorder order not array", `{"action":"reorder","order":"A"}`, KindInvalidPayload, "order array required"},
		{"reorder non-string element", `{"action":"reorder","order":["A",2]}`, KindInvalidPayload, "order array required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest([]byte(tt.body))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestNewBulkUpsert(t *testing.T) {
	pos := 3
	req := NewBulkUpsert([]models.Channel{
		{Name: "A", URL: "a", Position: &pos},
		{Name: "B"},
		{URL: "c"},
	})
	assert.Equal(t, []models.Channel{{Name: "A", URL: "a"}}, req.Items)
	assert.Equal(t, 2, req.Skipped)
}

func TestKind_Status(t *testing.T) {
	assert.Equal(t, 400, KindInvalidPayload.Status())
	assert.Equal(t, 400, KindUnknownAction.Status())
	assert.Equal(t, 405, KindMethodNotAllowed.Status())
	assert.Equal(t, 500, KindStorage.Status())
	assert.Equal(t, "method_not_allowed", KindMethodNotAllowed.String())
}
