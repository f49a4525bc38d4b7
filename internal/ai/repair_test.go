package ai

import (
	"encoding/json"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestRepairParse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{
			name: "clean object",
			raw:  `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "markdown fences",
			raw:  "```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "prose before payload",
			raw:  `Here is the JSON you asked for: {"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "truncated object missing brace",
			raw:  `{"a":1`,
			want: `{"a":1}`,
		},
		{
			name: "truncated string value",
			raw:  `{"a":"unfinished`,
			want: `{"a":"unfinished"}`,
		},
		{
			name: "truncated mid array",
			raw:  `[{"a":1},{"a":2`,
			want: `[{"a":1},{"a":2}]`,
		},
		{
			name: "truncated after comma",
			raw:  `[{"a":1},{"a":2},`,
			want: `[{"a":1},{"a":2}]`,
		},
		{
			name: "nested object in array",
			raw:  `[{"a":{"b":"x"}},{"a":{"b":"y`,
			wantErr: false,
		},
		{
			name:    "hopeless",
			raw:     `certainly { not ] json`,
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
		{
			name:    "only fences",
			raw:     "```json\n```",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repairParse(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			// Whatever came back must be valid JSON.
			var v any
			require.NoError(t, json.Unmarshal(got, &v))
			if tt.want != "" {
				require.JSONEq(t, tt.want, string(got))
			}
		})
	}
}
