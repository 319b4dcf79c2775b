package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is an OpenAI-compatible chat completions endpoint.
type fakeProvider struct {
	status  int
	content string

	calls atomic.Int32
	mu    sync.Mutex
	body  map[string]any
	auth  string
}

func newFakeProvider(t *testing.T, status int, content string) (*httptest.Server, *fakeProvider) {
	t.Helper()
	fp := &fakeProvider{status: status, content: content}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp.calls.Add(1)

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fp.mu.Lock()
		fp.body = body
		fp.auth = r.Header.Get("Authorization")
		fp.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fp.status != http.StatusOK {
			w.WriteHeader(fp.status)
			fmt.Fprintf(w, `{"error":{"message":"upstream said no","code":%d}}`, fp.status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "gen-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "openai/gpt-4.1-nano",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": fp.content},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, fp
}

func (fp *fakeProvider) lastBody() map[string]any {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.body
}

func testConfig(baseURL string) Config {
	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	cfg.Timeout = 5 * time.Second
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg Config) *Orchestrator {
	t.Helper()
	backend, err := NewOpenRouterBackend(cfg)
	require.NoError(t, err)
	o, err := NewOrchestrator(backend, cfg, zerolog.Nop())
	require.NoError(t, err)
	return o
}

func quizJSON(questions ...map[string]any) string {
	b, _ := json.Marshal(map[string]any{"questions": questions})
	return string(b)
}

func validQuestion(i int) map[string]any {
	return map[string]any{
		"question":       fmt.Sprintf("Question %d?", i),
		"options":        []string{"A", "B", "C", "D"},
		"correct_answer": i % 4,
		"explanation":    "Because.",
		"difficulty":     "medium",
	}
}

func TestNewOpenRouterBackendRequiresKey(t *testing.T) {
	cfg := DefaultConfig()
	_, err := NewOpenRouterBackend(cfg)
	require.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(context.Background(), cfg, zerolog.Nop())
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerateNotes(t *testing.T) {
	srv, fp := newFakeProvider(t, http.StatusOK, "\n  ## Cells\n\nNotes body.  \n")
	o := newTestOrchestrator(t, testConfig(srv.URL))

	notes, err := o.GenerateNotes(context.Background(), "The cell is the basic unit of life.")
	require.NoError(t, err)
	assert.Equal(t, "## Cells\n\nNotes body.", notes)
	assert.EqualValues(t, 1, fp.calls.Load())
	assert.Equal(t, "Bearer test-key", fp.auth)

	body := fp.lastBody()
	assert.Equal(t, DefaultModel, body["model"])
	assert.EqualValues(t, 8000, body["max_tokens"])
	assert.InDelta(t, 0.3, body["temperature"], 1e-9)
	assert.InDelta(t, 0.9, body["top_p"], 1e-9)
	assert.NotContains(t, body, "response_format")

	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Contains(t, msg["content"], "The cell is the basic unit of life.")
	assert.NotContains(t, msg["content"], "{chunk}")
}

func TestGenerateNotesEmptyReplyIsMalformed(t *testing.T) {
	srv, _ := newFakeProvider(t, http.StatusOK, "   ")
	o := newTestOrchestrator(t, testConfig(srv.URL))

	_, err := o.GenerateNotes(context.Background(), "chunk")
	assert.Equal(t, KindMalformedResponse, KindOf(err))
}

func TestGenerateFlashcards(t *testing.T) {
	content := `{"flashcards":[
		{"front":"What is ATP?","back":"The energy currency of the cell.","category":"Biology","difficulty":"easy"},
		{"front":"What is a ribosome?","back":"Site of protein synthesis."},
		{"front":"Dropped card","back":"   ","category":"Biology","difficulty":"hard"},
		{"back":"No front"}
	]}`
	srv, fp := newFakeProvider(t, http.StatusOK, content)
	o := newTestOrchestrator(t, testConfig(srv.URL))

	cards, err := o.GenerateFlashcards(context.Background(), "Cell biology notes", "Cells")
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "Biology", cards[0].Category)
	assert.Equal(t, "easy", cards[0].Difficulty)
	assert.Equal(t, "Cells", cards[1].Category)
	assert.Equal(t, "medium", cards[1].Difficulty)

	body := fp.lastBody()
	assert.EqualValues(t, 3000, body["max_tokens"])
	assert.InDelta(t, 0.1, body["temperature"], 1e-9)

	rf, ok := body["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, "flashcards", js["name"])
	assert.Equal(t, true, js["strict"])
}

func TestGenerateFlashcardsFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "here are your flashcards"},
		{"missing array", `{"cards":[]}`},
		{"no valid cards", `{"flashcards":[{"front":"","back":"x"}]}`},
		{"empty array", `{"flashcards":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newFakeProvider(t, http.StatusOK, tt.content)
			o := newTestOrchestrator(t, testConfig(srv.URL))

			cards, err := o.GenerateFlashcards(context.Background(), "content", "")
			assert.Nil(t, cards)
			assert.Equal(t, KindMalformedResponse, KindOf(err))
		})
	}
}

func TestGenerateQuiz(t *testing.T) {
	qs := make([]map[string]any, 0, 5)
	for i := 1; i <= 5; i++ {
		qs = append(qs, validQuestion(i))
	}
	srv, fp := newFakeProvider(t, http.StatusOK, quizJSON(qs...))
	o := newTestOrchestrator(t, testConfig(srv.URL))

	questions, err := o.GenerateQuiz(context.Background(), "Notes about cells", "Biology", "Cell Structure")
	require.NoError(t, err)
	require.Len(t, questions, 5)
	for i, q := range questions {
		assert.Equal(t, fmt.Sprintf("q_%d", i+1), q.ID)
		assert.Len(t, q.Options, 4)
	}

	msg := fp.lastBody()["messages"].([]any)[0].(map[string]any)["content"].(string)
	assert.Contains(t, msg, "Biology")
	assert.Contains(t, msg, "Cell Structure")
	assert.Contains(t, msg, "Notes about cells")
	js := fp.lastBody()["response_format"].(map[string]any)["json_schema"].(map[string]any)
	assert.Equal(t, "quiz", js["name"])
}

func TestGenerateQuizAllOrNothing(t *testing.T) {
	valid := func() []map[string]any {
		var qs []map[string]any
		for i := 1; i <= 4; i++ {
			qs = append(qs, validQuestion(i))
		}
		return qs
	}
	badOptions := validQuestion(5)
	badOptions["options"] = []string{"A", "B", "C"}
	badIndex := validQuestion(5)
	badIndex["correct_answer"] = 4
	missingExplanation := validQuestion(5)
	delete(missingExplanation, "explanation")

	tests := []struct {
		name      string
		questions []map[string]any
	}{
		{"three options", append(valid(), badOptions)},
		{"answer out of range", append(valid(), badIndex)},
		{"missing explanation", append(valid(), missingExplanation)},
		{"only four", valid()},
		{"six", append(valid(), validQuestion(5), validQuestion(6))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newFakeProvider(t, http.StatusOK, quizJSON(tt.questions...))
			o := newTestOrchestrator(t, testConfig(srv.URL))

			questions, err := o.GenerateQuiz(context.Background(), "content", "Biology", "Cells")
			assert.Nil(t, questions)
			assert.Equal(t, KindMalformedResponse, KindOf(err))
		})
	}
}

func TestAnswerQuestionCleansReply(t *testing.T) {
	reply := "**Summary:** Test answer.\n\n\n\nDetailed explanation.\n\n---\n**In brief:** Test answer."
	srv, fp := newFakeProvider(t, http.StatusOK, reply)
	o := newTestOrchestrator(t, testConfig(srv.URL))

	answer, err := o.AnswerQuestion(context.Background(), "Cells have membranes.", "What surrounds a cell?")
	require.NoError(t, err)
	assert.Equal(t, "**Summary:** Test answer.\n\nDetailed explanation.", answer)

	msg := fp.lastBody()["messages"].([]any)[0].(map[string]any)["content"].(string)
	assert.Contains(t, msg, "Cells have membranes.")
	assert.Contains(t, msg, "What surrounds a cell?")
}

func TestRateLimitFailsEveryModeWithoutRetry(t *testing.T) {
	srv, fp := newFakeProvider(t, http.StatusTooManyRequests, "")
	o := newTestOrchestrator(t, testConfig(srv.URL))
	ctx := context.Background()

	_, err := o.GenerateNotes(ctx, "chunk")
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.EqualValues(t, 1, fp.calls.Load())

	_, err = o.GenerateFlashcards(ctx, "content", "General")
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.EqualValues(t, 2, fp.calls.Load())

	_, err = o.GenerateQuiz(ctx, "content", "Biology", "Cells")
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.EqualValues(t, 3, fp.calls.Load())

	_, err = o.AnswerQuestion(ctx, "notes", "question?")
	assert.Equal(t, KindRateLimited, KindOf(err))
	assert.EqualValues(t, 4, fp.calls.Load())

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, http.StatusTooManyRequests, ge.StatusCode)
	assert.Equal(t, ModeQA, ge.Mode)
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusPaymentRequired, KindPaymentRequired},
		{http.StatusBadRequest, KindBadRequest},
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusInternalServerError, KindProviderError},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, fp := newFakeProvider(t, tt.status, "")
			o := newTestOrchestrator(t, testConfig(srv.URL))

			_, err := o.GenerateNotes(context.Background(), "chunk")
			assert.Equal(t, tt.want, KindOf(err))
			assert.EqualValues(t, 1, fp.calls.Load())
		})
	}
}

func TestTokenGateBlocksOversizedContent(t *testing.T) {
	srv, fp := newFakeProvider(t, http.StatusOK, "unused")
	cfg := testConfig(srv.URL)
	cfg.Budget.MaxInputTokens = 1000
	o := newTestOrchestrator(t, cfg)
	ctx := context.Background()

	huge := strings.Repeat("x", 8000)

	_, err := o.GenerateNotes(ctx, huge)
	assert.Equal(t, KindContentTooLarge, KindOf(err))
	_, err = o.GenerateFlashcards(ctx, huge, "")
	assert.Equal(t, KindContentTooLarge, KindOf(err))
	_, err = o.GenerateQuiz(ctx, huge, "s", "t")
	assert.Equal(t, KindContentTooLarge, KindOf(err))
	_, err = o.AnswerQuestion(ctx, huge, "why?")
	assert.Equal(t, KindContentTooLarge, KindOf(err))

	assert.EqualValues(t, 0, fp.calls.Load())
}

func TestInvalidArgumentsSkipNetwork(t *testing.T) {
	srv, fp := newFakeProvider(t, http.StatusOK, "unused")
	o := newTestOrchestrator(t, testConfig(srv.URL))
	ctx := context.Background()

	_, err := o.GenerateNotes(ctx, "  ")
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	_, err = o.GenerateQuiz(ctx, "", "s", "t")
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	_, err = o.AnswerQuestion(ctx, "notes", "")
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	assert.EqualValues(t, 0, fp.calls.Load())
}

func TestTransportError(t *testing.T) {
	srv, _ := newFakeProvider(t, http.StatusOK, "unused")
	o := newTestOrchestrator(t, testConfig(srv.URL))
	srv.Close()

	_, err := o.GenerateNotes(context.Background(), "chunk")
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestTimeoutIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	o := newTestOrchestrator(t, cfg)

	_, err := o.AnswerQuestion(context.Background(), "notes", "question?")
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestTestConnection(t *testing.T) {
	ok, fp := newFakeProvider(t, http.StatusOK, "Hi")
	o := newTestOrchestrator(t, testConfig(ok.URL))
	assert.True(t, o.TestConnection(context.Background()))
	assert.EqualValues(t, 10, fp.lastBody()["max_tokens"])

	bad, _ := newFakeProvider(t, http.StatusUnauthorized, "")
	o = newTestOrchestrator(t, testConfig(bad.URL))
	assert.False(t, o.TestConnection(context.Background()))
}

func TestModeMaxTokensCappedByOutputBudget(t *testing.T) {
	srv, fp := newFakeProvider(t, http.StatusOK, "notes")
	cfg := testConfig(srv.URL)
	cfg.Budget.MaxOutputTokens = 500
	o := newTestOrchestrator(t, cfg)

	_, err := o.GenerateNotes(context.Background(), "chunk")
	require.NoError(t, err)
	assert.EqualValues(t, 500, fp.lastBody()["max_tokens"])
}
