package ingestion_engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := Chunk("some text", size)
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
}

func TestChunkEmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n\t "} {
		chunks, err := Chunk(in, 100)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunkExactFitIsUnchanged(t *testing.T) {
	text := strings.Repeat("A", 100)
	chunks, err := Chunk(text, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{text}, chunks)

	padded := "  short text  "
	chunks, err = Chunk(padded, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{padded}, chunks)
}

func TestChunkHardCuts(t *testing.T) {
	chunks, err := Chunk(strings.Repeat("A", 500), 100)
	require.NoError(t, err)
	require.Len(t, chunks, 5)
	for _, c := range chunks {
		assert.Len(t, c, 100)
	}
}

func TestChunkPrefersParagraphBreak(t *testing.T) {
	first := strings.Repeat("a", 40) + ". " + strings.Repeat("b", 20)
	second := strings.Repeat("c", 50)
	text := first + "\n\n" + second

	chunks, err := Chunk(text, 80)
	require.NoError(t, err)
	assert.Equal(t, []string{first, second}, chunks)
}

func TestChunkFallsBackToSentenceThenLine(t *testing.T) {
	sentence := strings.Repeat("a", 30) + ". " + strings.Repeat("b", 60)
	chunks, err := Chunk(sentence, 50)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, strings.Repeat("a", 30)+".", chunks[0])

	lines := strings.Repeat("a", 30) + "\n" + strings.Repeat("b", 60)
	chunks, err = Chunk(lines, 50)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 30), chunks[0])
}

func TestChunkIgnoresBoundariesOutsideWindow(t *testing.T) {
	c := &Chunker{MaxSize: 100, Window: 10}
	text := strings.Repeat("a", 20) + "\n\n" + strings.Repeat("b", 200)

	chunks, err := c.Split(text)
	require.NoError(t, err)
	assert.Len(t, chunks[0], 100)
}

func TestChunkPreservesContent(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("This is sentence number ")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString(". ")
		if i%9 == 0 {
			b.WriteString("\n\n")
		}
		if i%13 == 0 {
			b.WriteString("\n")
		}
	}
	text := b.String()

	chunks, err := Chunk(text, 300)
	require.NoError(t, err)

	squash := func(s string) string { return strings.Join(strings.Fields(s), "") }
	var joined strings.Builder
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 300)
		assert.NotEmpty(t, c)
		joined.WriteString(c)
	}
	assert.Equal(t, squash(text), squash(joined.String()))
}

func TestChunkCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é", 250)
	chunks, err := Chunk(text, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0]))
	assert.True(t, utf8.ValidString(chunks[0]))
}

func TestNewChunkerDefaults(t *testing.T) {
	c := NewChunker(0)
	assert.Equal(t, OptimalChunkSize, c.MaxSize)
	assert.Equal(t, BoundaryWindow, c.Window)
}
