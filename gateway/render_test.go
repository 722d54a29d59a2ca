package gateway

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		params map[string]interface{}
		want   string
	}{
		{
			name:   "nil params leave query untouched",
			query:  "SELECT '{not_a_param}' FROM t",
			params: nil,
			want:   "SELECT '{not_a_param}' FROM t",
		},
		{
			name:   "string substitution",
			query:  "SELECT * FROM sales WHERE region = '{region}'",
			params: map[string]interface{}{"region": "north"},
			want:   "SELECT * FROM sales WHERE region = 'north'",
		},
		{
			name:   "repeated and mixed types",
			query:  "{a}-{b}-{a}-{c}",
			params: map[string]interface{}{"a": 1, "b": 2.5, "c": true},
			want:   "1-2.5-1-true",
		},
		{
			name:   "escaped braces",
			query:  "SELECT '{{literal}}', {n}",
			params: map[string]interface{}{"n": int64(7)},
			want:   "SELECT '{literal}', 7",
		},
		{
			name:   "timestamp",
			query:  "'{at}'",
			params: map[string]interface{}{"at": time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)},
			want:   "'2024-03-07 10:00:00'",
		},
		{
			name:   "unused params ignored",
			query:  "SELECT 1",
			params: map[string]interface{}{"x": 1},
			want:   "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.query, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantName string
	}{
		{"missing key", "WHERE day = '{day}'", "day"},
		{"unclosed", "WHERE day = '{day", ""},
		{"positional", "SELECT {}", ""},
		{"single closing brace", "SELECT }", ""},
		{"format spec", "SELECT {n:>4}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.query, map[string]interface{}{"n": 1})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrQueryParameter))

			var perr *ParameterError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.wantName, perr.Name)
		})
	}
}
