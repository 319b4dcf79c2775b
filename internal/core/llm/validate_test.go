package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanAnswer(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "repeated summary",
			in:   "**Summary:** Test answer.\n\nDetailed explanation.\n\n---\n**In brief:** Test answer.",
			want: "**Summary:** Test answer.\n\nDetailed explanation.",
		},
		{
			name: "extra blank lines",
			in:   "Line one.\n\n\n\nLine two.\n\n\nLine three.",
			want: "Line one.\n\nLine two.\n\nLine three.",
		},
		{
			name: "trailing rule",
			in:   "Answer body.\n\n---\n",
			want: "Answer body.",
		},
		{
			name: "rule inside answer kept",
			in:   "Part one.\n\n---\n\nPart two.",
			want: "Part one.\n\n---\n\nPart two.",
		},
		{
			name: "crlf",
			in:   "Answer.\r\n\r\n---\r\n**In Brief** short",
			want: "Answer.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanAnswer(tt.in)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "\n\n\n")
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence(`  {"a":1} `))
}

func TestParseFlashcardsFencedReply(t *testing.T) {
	cards, err := parseFlashcards("```json\n{\"flashcards\":[{\"front\":\"Q\",\"back\":\"A\",\"difficulty\":\"HARD\"}]}\n```", "")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "General", cards[0].Category)
	assert.Equal(t, "hard", cards[0].Difficulty)
}

func TestParseFlashcardsUnknownDifficultyDefaults(t *testing.T) {
	cards, err := parseFlashcards(`{"flashcards":[{"front":"Q","back":"A","difficulty":"extreme"}, 42]}`, "Bio")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "medium", cards[0].Difficulty)
	assert.Equal(t, "Bio", cards[0].Category)
}

func TestParseQuizRejectsNonIntegerAnswer(t *testing.T) {
	q := `{"question":"Q?","options":["a","b","c","d"],"correct_answer":1.5,"explanation":"e","difficulty":"easy"}`
	_, err := parseQuiz(`{"questions":[` + q + `,` + q + `,` + q + `,` + q + `,` + q + `]}`)
	assert.Error(t, err)
}

func TestParseQuizRejectsBlankOption(t *testing.T) {
	q := `{"question":"Q?","options":["a","b","  ","d"],"correct_answer":1,"explanation":"e","difficulty":"easy"}`
	_, err := parseQuiz(`{"questions":[` + q + `,` + q + `,` + q + `,` + q + `,` + q + `]}`)
	assert.Error(t, err)
}

func TestParseQuizMissingKey(t *testing.T) {
	_, err := parseQuiz(`{"quiz":[]}`)
	assert.ErrorContains(t, err, "questions")
}
