package models

// Document is a markdown file loaded from the paper source tree.
type Document struct {
	Content  string `json:"content"`
	Source   string `json:"source"`
	Filename string `json:"filename"`
	Section  string `json:"section"`
	Title    string `json:"title,omitempty"`
}

// Chunk is a bounded piece of a Document, the unit of embedding and retrieval.
type Chunk struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Source   string `json:"source"`
	Filename string `json:"filename"`
	Section  string `json:"section"`
	Title    string `json:"title,omitempty"`
	Index    int    `json:"chunk_index"`
	Total    int    `json:"chunk_total"`
}

// Metadata keys stored next to every chunk in the index.
const (
	MetaSource     = "source"
	MetaFilename   = "filename"
	MetaSection    = "section"
	MetaTitle      = "title"
	MetaChunkIndex = "chunk_index"
	MetaChunkTotal = "chunk_total"
)

type RetrievalResult struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// Source returns the provenance of the result or "unknown".
func (r RetrievalResult) Source() string {
	if s := r.Metadata[MetaSource]; s != "" {
		return s
	}
	return "unknown"
}

// Role represents the author of a conversation turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an append-only list of turns.
type Conversation struct {
	messages []Message
}

// Append adds turns to the end of the conversation.
func (c *Conversation) Append(msgs ...Message) {
	c.messages = append(c.messages, msgs...)
}

// Messages returns a copy of the turns so callers cannot rewrite history.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int { return len(c.messages) }

// QAPair is one synthetic question/answer record.
type QAPair struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Principles []string `json:"principles"`
	Category   string   `json:"category"`
	ID         string   `json:"id"`
	Source     string   `json:"source"`
}

// EvalRow is one line of an evaluation dataset.
type EvalRow struct {
	ID              string `json:"id"`
	Prompt          string `json:"prompt"`
	AlignedResponse string `json:"aligned_response,omitempty"`
}

// EvalRecord is the scored outcome of one EvalRow.
type EvalRecord struct {
	ID          string          `json:"id"`
	Prompt      string          `json:"prompt"`
	Response    string          `json:"response"`
	Scores      map[string]int  `json:"scores"`
	RedLines    map[string]bool `json:"red_lines"`
	TotalScore  int             `json:"total_score"`
	RedLinePass bool            `json:"red_line_pass"`
	OverallPass bool            `json:"overall_pass"`
	Reasoning   string          `json:"reasoning"`
}
