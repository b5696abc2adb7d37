package quickreply

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AubakirovArman/tomoru-sub000/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "Hello World", "hello world"},
		{"trim", "  hello  ", "hello"},
		{"collapse whitespace", "hello   big\t\tworld", "hello big world"},
		{"keeps punctuation", "Как Вас  Зовут?", "как вас зовут?"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Hello  World", "  уже нормально  ", "MiXeD   CaSe!", ""}
	for _, s := range inputs {
		once := Normalize(s)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestMatchExact(t *testing.T) {
	replies := []*models.QuickReply{
		{Question: "how do I pay", Answer: "Use the payment page."},
		{Question: "Как вас зовут", Variations: []string{"твое имя", "как тебя зовут"}, Answer: "Я бот поддержки"},
	}

	answer, ok := Match(replies, "КАК ВАС ЗОВУТ")
	require.True(t, ok)
	assert.Equal(t, "Я бот поддержки", answer)

	answer, ok = Match(replies, "  твое   имя ")
	require.True(t, ok)
	assert.Equal(t, "Я бот поддержки", answer)
}

// An exact match anywhere in the set must beat an earlier partial match.
func TestMatchExactPrecedence(t *testing.T) {
	replies := []*models.QuickReply{
		{Question: "delivery status order help", Answer: "partial candidate"},
		{Question: "order help", Answer: "exact candidate"},
	}

	answer, ok := Match(replies, "Order Help")
	require.True(t, ok)
	assert.Equal(t, "exact candidate", answer)
}

func TestMatchPartialThreshold(t *testing.T) {
	replies := []*models.QuickReply{
		{Question: "something else entirely", Variations: []string{"help order"}, Answer: "the answer"},
	}

	// 2 of 3 user tokens overlap: 0.667 < 0.70
	_, ok := Match(replies, "help order status")
	assert.False(t, ok)

	// all 3 overlap: 1.0
	replies[0].Variations = []string{"help order status please"}
	answer, ok := Match(replies, "help order status")
	require.True(t, ok)
	assert.Equal(t, "the answer", answer)
}

func TestMatchDegenerateTokens(t *testing.T) {
	replies := []*models.QuickReply{
		{Question: "ok", Answer: "short question"},
	}

	// All tokens length <= 2 on both sides: nothing to score, no match
	// (and no divide-by-zero).
	_, ok := Match(replies, "a b c")
	assert.False(t, ok)

	_, ok = Match(replies, "")
	assert.False(t, ok)
}

// Regression: trailing punctuation survives normalization, so the exact
// pass misses "Как Вас  Зовут?" and the partial pass has to carry it
// with a 3/3 token overlap.
func TestMatchPunctuationFallsThroughToPartial(t *testing.T) {
	replies := []*models.QuickReply{
		{
			Question:   "как вас зовут",
			Variations: []string{"твое имя", "как тебя зовут"},
			Answer:     "Я бот поддержки",
		},
	}

	// Without punctuation this is an exact hit after normalization.
	answer, ok := Match(replies, "Как Вас  Зовут")
	require.True(t, ok)
	assert.Equal(t, "Я бот поддержки", answer)

	// With the question mark the normalized input is "как вас зовут?",
	// which no candidate equals. Scoring strips the token-edge
	// punctuation, so all three tokens overlap the canonical question.
	answer, ok = Match(replies, "Как Вас  Зовут?")
	require.True(t, ok)
	assert.Equal(t, "Я бот поддержки", answer)
}

func TestMatchNoCandidates(t *testing.T) {
	_, ok := Match(nil, "anything at all")
	assert.False(t, ok)
}
