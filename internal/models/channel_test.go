package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_MarshalJSON(t *testing.T) {
	category := "News"
	pos := 2

	tests := []struct {
		name string
		ch   Channel
		want string
	}{
		{
			name: "all fields",
			ch:   Channel{Name: "A", Category: &category, URL: "http://a", Position: &pos},
			want: `{"name":"A","category":"News","url":"http://a","logo":null,"position":2}`,
		},
		{
			name: "null url column",
			ch:   Channel{Name: "B"},
			want: `{"name":"B","category":null,"url":null,"logo":null,"position":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.ch)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))

			// pointers and slices take the same path
			got, err = json.Marshal([]*Channel{&tt.ch})
			require.NoError(t, err)
			assert.JSONEq(t, "["+tt.want+"]", string(got))
		})
	}
}

func TestChannel_NullURLDecodesEmpty(t *testing.T) {
	var ch Channel
	require.NoError(t, json.Unmarshal([]byte(`{"name":"B","url":null}`), &ch))
	assert.Equal(t, Channel{Name: "B"}, ch)
}
