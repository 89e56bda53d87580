package models

import "encoding/json"

// Channel is one catalog entry (name, category, stream url, logo, display position).
// The surrogate id stays in the database and is never exposed.
type Channel struct {
	Name     string  `json:"name"`
	Category *string `json:"category"`
	URL      string  `json:"url"`
	Logo     *string `json:"logo"`
	Position *int    `json:"position"` // nil sorts last
}

// MarshalJSON renders an empty URL as null, the same as the other missing
// values. A NULL url column is read back as an empty URL.
func (c Channel) MarshalJSON() ([]byte, error) {
	type plain Channel
	out := struct {
		plain
		URL *string `json:"url"`
	}{plain: plain(c)}
	if c.URL != "" {
		out.URL = &c.URL
	}
	return json.Marshal(out)
}
