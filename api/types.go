package api

// QAPair is one golden question/answer record. Pairs are produced by QA
// generation or loaded from a JSONL dataset and are treated as read-only by
// the evaluation pipeline.
type QAPair struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	Rationale   string `json:"rationale,omitempty"`
	SupportSpan string `json:"support_span,omitempty"`
	DocID       string `json:"doc_id,omitempty"`
	ChunkID     string `json:"chunk_id,omitempty"`
	SourcePath  string `json:"source_path,omitempty"`
	Difficulty  string `json:"difficulty,omitempty"`
}

// EndpointResponse is the outcome of a single RAG endpoint query. It is
// created once per query and never mutated afterwards.
//
// Answer is "" when no extractable answer was found or when the query failed;
// in the failure case Raw carries an "error" entry naming the failure kind.
type EndpointResponse struct {
	// Answer is the extracted answer text.
	Answer string
	// Raw is the decoded response body, or a synthetic payload describing
	// the failure when the query did not produce a usable body.
	Raw map[string]any
	// ElapsedMS is the wall-clock query duration in milliseconds.
	ElapsedMS float64
	// ErrorKind is one of the ErrorKind* constants, or "" on success.
	ErrorKind string
}

// Failure kinds reported by the endpoint client in EndpointResponse.ErrorKind
// and in the "error" entry of EndpointResponse.Raw.
const (
	ErrorKindTimeout    = "timeout"
	ErrorKindHTTP       = "http_error"
	ErrorKindJSONParse  = "json_parse_error"
	ErrorKindEmptyBody  = "empty_body"
	ErrorKindUnexpected = "unexpected_error"
)

// DetailedDimensions lists the dimension names scored by the detailed judge,
// in report order.
var DetailedDimensions = []string{
	"correctness",
	"completeness",
	"relevance",
	"conciseness",
	"faithfulness",
}

// JudgeScore is the validated result of one LLM-as-judge call.
type JudgeScore struct {
	// Score is the overall score clamped to [1,5].
	Score int `json:"score"`
	// Reason is the judge's free-text explanation. Never empty: judging
	// failures substitute a diagnostic reason.
	Reason string `json:"reason"`
	// IsCorrect reports whether Score reached the correctness threshold.
	IsCorrect bool `json:"is_correct"`
	// Dimensions holds per-dimension scores (each clamped to [1,5]) when the
	// detailed judge ran. Dimensions the judge omitted are absent, not
	// defaulted.
	Dimensions map[string]int `json:"dimensions,omitempty"`
}

// EvaluationRecord is one row of a batch run: the originating QA pair, the
// endpoint's answer, and the judge's verdict. Records are immutable and
// self-identifying via ID, so the order they were collected in carries no
// meaning.
type EvaluationRecord struct {
	ID           string         `json:"id"`
	Question     string         `json:"question"`
	GoldenAnswer string         `json:"golden_answer"`
	RAGAnswer    string         `json:"rag_answer"`
	Score        int            `json:"score"`
	Reason       string         `json:"reason"`
	IsCorrect    bool           `json:"is_correct"`
	Dimensions   map[string]int `json:"dimensions,omitempty"`
	ElapsedMS    float64        `json:"response_time_ms"`
	ErrorKind    string         `json:"error_kind,omitempty"`
}

// EvaluationSummary aggregates a completed batch. It is computed in one pass
// after every record has resolved; a zero-item batch reports zeros, never NaN.
type EvaluationSummary struct {
	Total     int                `json:"total"`
	Correct   int                `json:"correct"`
	Incorrect int                `json:"incorrect"`
	Accuracy  float64            `json:"accuracy"`
	AvgScore  float64            `json:"avg_score"`
	Results   []EvaluationRecord `json:"results"`
}

// Summarize builds an EvaluationSummary from resolved records.
func Summarize(records []EvaluationRecord) EvaluationSummary {
	s := EvaluationSummary{
		Total:   len(records),
		Results: records,
	}
	scoreSum := 0
	for _, r := range records {
		if r.IsCorrect {
			s.Correct++
		}
		scoreSum += r.Score
	}
	s.Incorrect = s.Total - s.Correct
	if s.Total > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Total)
		s.AvgScore = float64(scoreSum) / float64(s.Total)
	}
	return s
}
