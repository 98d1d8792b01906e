package models

// ResultKind tags the outcome of one agent invocation.
type ResultKind int

const (
	// ResultSuccess carries a validated minimum price.
	ResultSuccess ResultKind = iota
	// ResultNotFound means the model explicitly reported no result.
	ResultNotFound
	// ResultParseFailure means the model output was not decodable.
	ResultParseFailure
	// ResultTransportFailure means the request itself failed.
	ResultTransportFailure
)

// SearchResult is the normalized outcome of a price search. It is built by
// the parser (or from a gateway error) and never mutated afterwards.
type SearchResult struct {
	Kind ResultKind

	// Success fields.
	MinPrice    float64
	Currency    string
	SourceCount int
	Raw         map[string]any

	// Failure context. RawText preserves the undecodable model output,
	// StatusCode the upstream HTTP status when one was seen.
	Reason     string
	RawText    string
	StatusCode int
}

// NewSuccess builds a successful search result.
func NewSuccess(minPrice float64, currency string, sourceCount int, raw map[string]any) SearchResult {
	return SearchResult{
		Kind:        ResultSuccess,
		MinPrice:    minPrice,
		Currency:    currency,
		SourceCount: sourceCount,
		Raw:         raw,
	}
}

// NewNotFound builds a structured "model found nothing" result.
func NewNotFound(reason string) SearchResult {
	return SearchResult{Kind: ResultNotFound, Reason: reason}
}

// NewParseFailure builds a result for undecodable model output.
func NewParseFailure(rawText, reason string) SearchResult {
	return SearchResult{Kind: ResultParseFailure, RawText: rawText, Reason: reason}
}

// NewTransportFailure builds a result for a failed request.
func NewTransportFailure(statusCode int, reason string) SearchResult {
	return SearchResult{Kind: ResultTransportFailure, StatusCode: statusCode, Reason: reason}
}

// IsSuccess reports whether the result carries a usable price.
func (r SearchResult) IsSuccess() bool {
	return r.Kind == ResultSuccess
}

// Label returns the metrics/history label for the outcome.
func (r SearchResult) Label() string {
	switch r.Kind {
	case ResultSuccess:
		return "success"
	case ResultNotFound:
		return "not_found"
	case ResultParseFailure:
		return "parse_failure"
	case ResultTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// RequestEnvelope is the fully-formed payload for one model call. Built
// fresh per call and never mutated after construction.
type RequestEnvelope struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float64
	MaxTokens    int
}

// Usage reports token consumption for one model call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// BatchKind selects which competitor price field a batch fills in.
type BatchKind int

const (
	// KindCompetitor searches retail competitors for new-item prices.
	KindCompetitor BatchKind = iota
	// KindUsed searches marketplace listings for used-item prices.
	KindUsed
)

func (k BatchKind) String() string {
	switch k {
	case KindCompetitor:
		return "competitor"
	case KindUsed:
		return "used"
	default:
		return "unknown"
	}
}

// BatchSummary is the final report of one batch run.
type BatchSummary struct {
	SuccessCount int
	FailureCount int
}
