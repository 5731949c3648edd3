package store

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dollar(n int) string { return "$" + strconv.Itoa(n) }

func question(int) string { return "?" }

func TestFilterSQL(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		offset int
		where  string
		args   []any
	}{
		{
			name:   "nil matches all",
			filter: nil,
			where:  "1 = 1",
			args:   []any{},
		},
		{
			name:   "equality",
			filter: Eq("domain", "life"),
			offset: 1,
			where:  "domain = $2",
			args:   []any{"life"},
		},
		{
			name:   "and of comparisons",
			filter: And(Eq("domain", "lessons"), Gt("updated_at", "2024-01-01 00:00:00"), Ne("message_id", "7")),
			where:  "(domain = $1 AND updated_at > $2 AND message_id != $3)",
			args:   []any{"lessons", "2024-01-01 00:00:00", "7"},
		},
		{
			name:   "nested or",
			filter: And(Or(Eq("domain", "life"), Eq("domain", "lessons")), Lt("updated_at", "2025")),
			where:  "((domain = $1 OR domain = $2) AND updated_at < $3)",
			args:   []any{"life", "lessons", "2025"},
		},
		{
			name:   "empty and",
			filter: And(),
			where:  "1 = 1",
			args:   []any{},
		},
		{
			name:   "empty or",
			filter: Or(),
			where:  "1 = 0",
			args:   []any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args, err := tt.filter.SQL(dollar, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.where, where)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestFilterSQL_QuestionPlaceholders(t *testing.T) {
	where, args, err := And(Eq("domain", "life"), Eq("title", "walk")).SQL(question, 0)
	require.NoError(t, err)
	assert.Equal(t, "(domain = ? AND title = ?)", where)
	assert.Equal(t, []any{"life", "walk"}, args)
}

func TestFilterSQL_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
	}{
		{"unknown field", Eq("raw_text; DROP TABLE note", "x")},
		{"vector field", Eq("embedding", "x")},
		{"non scalar value", Eq("domain", []string{"a"})},
		{"unknown operator", &Filter{Op: "LIKE", Field: "domain", Value: "x"}},
		{"bad child", And(Eq("domain", "x"), Eq("nope", "y"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.filter.SQL(question, 0)
			assert.Error(t, err)
		})
	}
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 0.14, Dot([]float32{0.1, 0.2, 0.3}, []float32{0.1, 0.2, 0.3}), 1e-6)
	assert.Equal(t, float32(0), Dot(nil, []float32{1}))
	assert.Equal(t, float32(2), Dot([]float32{1, 1, 5}, []float32{1, 1}))
}
