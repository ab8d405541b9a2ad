package domain

// FlowAction is the terminal state chosen for one request.
type FlowAction string

const (
	FlowAskClarification FlowAction = "ask_clarification"
	FlowOffTopic         FlowAction = "off_topic"
	FlowListSources      FlowAction = "list_sources"
	FlowSynthesize       FlowAction = "synthesize"
)

// AskQuery is one question against a document collection.
type AskQuery struct {
	Question       string   `json:"question"`
	ConversationID string   `json:"conversation_id,omitempty"`
	Collection     string   `json:"collection,omitempty"`
	DocumentIDs    []string `json:"document_ids,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
	ModeHint       string   `json:"mode_hint,omitempty"`
}

// Citation points one numbered reference at the segment it came from.
type Citation struct {
	Number       int    `json:"number"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	SegmentID    string `json:"segment_id"`
	Excerpt      string `json:"excerpt"`
	Section      string `json:"section,omitempty"`
}

// AnswerFlags tell the caller which non-synthesis path was taken.
type AnswerFlags struct {
	AskedForClarification bool `json:"asked_for_clarification"`
	IsOffTopic            bool `json:"is_off_topic"`
}

// GenerateOptions tunes a single LLM generation call.
type GenerateOptions struct {
	Temperature float64
}

// TokenUsage counts the tokens one generation call consumed.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// Generation is the produced text together with the model that wrote
// it and the tokens it cost. A cache hit carries zero usage.
type Generation struct {
	Text  string
	Model string
	Usage TokenUsage
}

// CitedAnswer is the final response for one question.
type CitedAnswer struct {
	Answer         string      `json:"answer"`
	Sources        []Citation  `json:"sources"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Flags          AnswerFlags `json:"flags"`
	Action         FlowAction  `json:"-"`
	Mode           SearchMode  `json:"-"`
	Model          string      `json:"-"`
	Usage          TokenUsage  `json:"-"`
}
