package llm

import "unicode/utf8"

// CharsPerToken is the fixed characters-per-token heuristic used for all
// budgeting. It is not a tokenizer.
const CharsPerToken = 4

const (
	DefaultMaxInputTokens       = 1_000_000
	DefaultMaxOutputTokens      = 33_000
	DefaultInputCostPer1M       = 0.10
	DefaultOutputCostPer1M      = 0.40
	DefaultPromptOverheadTokens = 200
	DefaultExpectedOutputTokens = 8_000
	DefaultChunkTokenTarget     = 800_000
)

const (
	StrategySingleCall = "single_call"
	StrategyChunked    = "chunked"
)

// Budget holds the token ceilings and USD-per-million-token rates.
type Budget struct {
	MaxInputTokens       int
	MaxOutputTokens      int
	InputCostPer1M       float64
	OutputCostPer1M      float64
	PromptOverheadTokens int
	ExpectedOutputTokens int
	ChunkTokenTarget     int
}

func DefaultBudget() Budget {
	return Budget{
		MaxInputTokens:       DefaultMaxInputTokens,
		MaxOutputTokens:      DefaultMaxOutputTokens,
		InputCostPer1M:       DefaultInputCostPer1M,
		OutputCostPer1M:      DefaultOutputCostPer1M,
		PromptOverheadTokens: DefaultPromptOverheadTokens,
		ExpectedOutputTokens: DefaultExpectedOutputTokens,
		ChunkTokenTarget:     DefaultChunkTokenTarget,
	}
}

// withDefaults fills zero fields. Cost rates of zero are kept; a free model
// is a valid configuration.
func (b Budget) withDefaults() Budget {
	d := DefaultBudget()
	if b.MaxInputTokens <= 0 {
		b.MaxInputTokens = d.MaxInputTokens
	}
	if b.MaxOutputTokens <= 0 {
		b.MaxOutputTokens = d.MaxOutputTokens
	}
	if b.PromptOverheadTokens <= 0 {
		b.PromptOverheadTokens = d.PromptOverheadTokens
	}
	if b.ExpectedOutputTokens <= 0 {
		b.ExpectedOutputTokens = d.ExpectedOutputTokens
	}
	if b.ChunkTokenTarget <= 0 {
		b.ChunkTokenTarget = d.ChunkTokenTarget
	}
	return b
}

// MaxChunkChars is the longest text, in characters, that one request can
// carry while leaving room for prompt overhead and expected output.
func (b Budget) MaxChunkChars() int {
	b = b.withDefaults()
	return max(b.MaxInputTokens-b.PromptOverheadTokens-b.ExpectedOutputTokens, 1) * CharsPerToken
}

// ProcessingRecommendation says whether a document fits one call.
type ProcessingRecommendation struct {
	Strategy        string  `json:"strategy"`
	EstimatedTokens int     `json:"estimated_tokens"`
	EstimatedCost   float64 `json:"estimated_cost"`
	ChunksNeeded    int     `json:"chunks_needed"`
}

// Estimator approximates token counts and cost from character counts.
type Estimator struct {
	budget Budget
}

func NewEstimator(b Budget) *Estimator {
	return &Estimator{budget: b.withDefaults()}
}

func (e *Estimator) Budget() Budget { return e.budget }

// EstimateTokens returns floor(characters / 4).
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / CharsPerToken
}

func (e *Estimator) EstimateTokens(text string) int {
	return EstimateTokens(text)
}

// EstimateCost prices text as input plus outputTokens of completion.
func (e *Estimator) EstimateCost(text string, outputTokens int) float64 {
	return e.tokenCost(EstimateTokens(text), outputTokens)
}

func (e *Estimator) tokenCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*e.budget.InputCostPer1M +
		float64(outputTokens)/1e6*e.budget.OutputCostPer1M
}

// CanProcessWhole reports whether a document of the given size, plus prompt
// overhead and expected output, fits the input budget.
func (e *Estimator) CanProcessWhole(documentChars int) bool {
	tokens := documentChars / CharsPerToken
	return tokens+e.budget.PromptOverheadTokens+e.budget.ExpectedOutputTokens <= e.budget.MaxInputTokens
}

// Recommend picks single-call or chunked processing for text.
func (e *Estimator) Recommend(text string) ProcessingRecommendation {
	chars := utf8.RuneCountInString(text)
	tokens := chars / CharsPerToken

	if e.CanProcessWhole(chars) {
		return ProcessingRecommendation{
			Strategy:        StrategySingleCall,
			EstimatedTokens: tokens,
			EstimatedCost:   e.tokenCost(tokens, e.budget.ExpectedOutputTokens),
			ChunksNeeded:    1,
		}
	}

	per := e.budget.ChunkTokenTarget
	chunks := (tokens + per - 1) / per
	return ProcessingRecommendation{
		Strategy:        StrategyChunked,
		EstimatedTokens: tokens,
		EstimatedCost:   float64(chunks) * e.tokenCost(per, e.budget.ExpectedOutputTokens),
		ChunksNeeded:    chunks,
	}
}
