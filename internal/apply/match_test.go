package apply

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-easyapply-automation/internal/models"
)

func TestNormalizeQuestionText(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "Trailing Required suffix",
			raw:      "What is your name? Required",
			expected: "What is your name?",
		},
		{
			name:     "Duplicated halves",
			raw:      "Are you authorized to work? Are you authorized to work?",
			expected: "Are you authorized to work?",
		},
		{
			name:     "Duplicated halves with Required",
			raw:      "Phone number Phone number Required",
			expected: "Phone number",
		},
		{
			name:     "Whitespace collapse",
			raw:      "  How many   years of\n experience?  ",
			expected: "How many years of experience?",
		},
		{
			name:     "Trailing required markers stripped",
			raw:      "First name*",
			expected: "First name",
		},
		{
			name:     "Sentence punctuation kept",
			raw:      "Do you require sponsorship?",
			expected: "Do you require sponsorship?",
		},
		{
			name:     "Empty input",
			raw:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeQuestionText(tt.raw)
			if got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMatchAnswer(t *testing.T) {
	answers := []models.Answer{
		{Question: "years of experience with Go", Answer: "3"},
		{Question: "Are you authorized to work in the United States?", Answer: "Yes"},
		{Question: "Phone", Answer: "555-0100"},
	}

	t.Run("Field question contains stored question", func(t *testing.T) {
		got := MatchAnswer(answers, "Mobile phone number")
		assert.NotNil(t, got)
		assert.Equal(t, "555-0100", got.Answer)
	})

	t.Run("Stored question contains field question", func(t *testing.T) {
		got := MatchAnswer(answers, "authorized to work")
		assert.NotNil(t, got)
		assert.Equal(t, "Yes", got.Answer)
	})

	t.Run("Case insensitive", func(t *testing.T) {
		got := MatchAnswer(answers, "YEARS OF EXPERIENCE WITH GO")
		assert.NotNil(t, got)
		assert.Equal(t, "3", got.Answer)
	})

	t.Run("No match", func(t *testing.T) {
		assert.Nil(t, MatchAnswer(answers, "Desired salary"))
	})

	t.Run("Empty question", func(t *testing.T) {
		assert.Nil(t, MatchAnswer(answers, "  "))
	})
}

func TestMatchOption(t *testing.T) {
	assert.True(t, MatchOption("Yes", "yes"))
	assert.True(t, MatchOption(" Male ", "Male"))
	assert.False(t, MatchOption("Yes", "No"))
}
