package service

import (
	"bytes"
	"encoding/json"

	"github.com/voyagen/channelvault/internal/models"
)

// Action names a POST mutation.
type Action string

const (
	ActionUpsert     Action = "upsert"
	ActionBulkUpsert Action = "bulkUpsert"
	ActionDelete     Action = "delete"
	ActionReorder    Action = "reorder"
)

// Request is one validated mutation. The set of implementations is closed:
// UpsertRequest, BulkUpsertRequest, DeleteRequest and ReorderRequest.
type Request interface {
	Action() Action
	isRequest()
}

// UpsertRequest inserts or updates one channel. A non-empty OldName that
// differs from Data.Name renames that row instead.
type UpsertRequest struct {
	Data    models.Channel
	OldName string
}

// BulkUpsertRequest upserts Items in order. Skipped counts list entries
// dropped because they were not objects or lacked a name or url.
type BulkUpsertRequest struct {
	Items   []models.Channel
	Skipped int
}

// DeleteRequest removes the channel called Name.
type DeleteRequest struct {
	Name string
}

// ReorderRequest sets each named channel's position to its index in Order.
type ReorderRequest struct {
	Order []string
}

func (UpsertRequest) Action() Action     { return ActionUpsert }
func (BulkUpsertRequest) Action() Action { return ActionBulkUpsert }
func (DeleteRequest) Action() Action     { return ActionDelete }
func (ReorderRequest) Action() Action    { return ActionReorder }

func (UpsertRequest) isRequest()     {}
func (BulkUpsertRequest) isRequest() {}
func (DeleteRequest) isRequest()     {}
func (ReorderRequest) isRequest()    {}

func validChannel(ch models.Channel) bool {
	return ch.Name != "" && ch.URL != ""
}

// NewBulkUpsert builds a bulk request from already decoded channels,
// dropping entries without a name or url. Positions are ignored.
func NewBulkUpsert(channels []models.Channel) BulkUpsertRequest {
	req := BulkUpsertRequest{Items: make([]models.Channel, 0, len(channels))}
	for _, ch := range channels {
		if !validChannel(ch) {
			req.Skipped++
			continue
		}
		req.Items = append(req.Items, models.Channel{Name: ch.Name, Category: ch.Category, URL: ch.URL, Logo: ch.Logo})
	}
	return req
}

// ParseRequest decodes and validates a POST body. An empty body, or valid
// JSON that is not an object, is treated as an empty object. Failures are *Error values of kind
// KindInvalidPayload or KindUnknownAction.
func ParseRequest(body []byte) (Request, error) {
	var fields map[string]json.RawMessage
	if body = bytes.TrimSpace(body); len(body) > 0 {
		if !json.Valid(body) {
			return nil, invalidPayload("invalid JSON")
		}
		// Arrays and scalars carry no action.
		if err := json.Unmarshal(body, &fields); err != nil {
			fields = nil
		}
	}

	var action string
	if raw, ok := fields["action"]; ok {
		if err := json.Unmarshal(raw, &action); err != nil {
			action = ""
		}
	}

	switch Action(action) {
	case ActionUpsert:
		return parseUpsert(fields)
	case ActionBulkUpsert:
		return parseBulkUpsert(fields)
	case ActionDelete:
		return parseDelete(fields)
	case ActionReorder:
		return parseReorder(fields)
	}
	return nil, ErrUnknownAction
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeChannel reads the writable fields of one channel object by their exact
// keys. name and url must be non-empty strings; category and logo may be
// absent, null or a string. position is never taken from a payload.
func decodeChannel(raw json.RawMessage) (models.Channel, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return models.Channel{}, false
	}
	name, ok := requiredString(fields, "name")
	if !ok {
		return models.Channel{}, false
	}
	url, ok := requiredString(fields, "url")
	if !ok {
		return models.Channel{}, false
	}
	category, ok := optionalString(fields, "category")
	if !ok {
		return models.Channel{}, false
	}
	logo, ok := optionalString(fields, "logo")
	if !ok {
		return models.Channel{}, false
	}
	return models.Channel{Name: name, Category: category, URL: url, Logo: logo}, true
}

func requiredString(fields map[string]json.RawMessage, key string) (string, bool) {
	var s string
	raw, ok := fields[key]
	if !ok || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, s != ""
}

func optionalString(fields map[string]json.RawMessage, key string) (*string, bool) {
	raw, ok := fields[key]
	if !ok || isNull(raw) {
		return nil, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

func parseUpsert(fields map[string]json.RawMessage) (Request, error) {
	raw, ok := fields["data"]
	if !ok || isNull(raw) {
		return nil, invalidPayload("invalid payload")
	}
	ch, valid := decodeChannel(raw)
	if !valid {
		return nil, invalidPayload("invalid payload")
	}

	var oldName string
	if raw, ok := fields["oldName"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &oldName); err != nil {
			return nil, invalidPayload("invalid payload")
		}
	}
	return UpsertRequest{Data: ch, OldName: oldName}, nil
}

func parseBulkUpsert(fields map[string]json.RawMessage) (Request, error) {
	raw, ok := fields["list"]
	if !ok || isNull(raw) {
		return nil, invalidPayload("list required")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalidPayload("list required")
	}

	req := BulkUpsertRequest{Items: make([]models.Channel, 0, len(items))}
	for _, item := range items {
		ch, valid := decodeChannel(item)
		if !valid {
			req.Skipped++
			continue
		}
		req.Items = append(req.Items, ch)
	}
	return req, nil
}

func parseDelete(fields map[string]json.RawMessage) (Request, error) {
	var name string
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &name); err != nil {
			name = ""
		}
	}
	if name == "" {
		return nil, invalidPayload("name required")
	}
	return DeleteRequest{Name: name}, nil
}

func parseReorder(fields map[string]json.RawMessage) (Request, error) {
	raw, ok := fields["order"]
	if !ok || isNull(raw) {
		return nil, invalidPayload("order array required")
	}
	var order []string
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, invalidPayload("order array required")
	}
	return ReorderRequest{Order: order}, nil
}
