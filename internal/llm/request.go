package llm

// Request is the wire shape of a streaming responses call.
type Request struct {
	Model              string      `json:"model"`
	Input              []InputItem `json:"input"`
	Tools              []any       `json:"tools,omitempty"`
	MaxOutputTokens    int         `json:"max_output_tokens,omitempty"`
	Reasoning          *Reasoning  `json:"reasoning,omitempty"`
	Stream             bool        `json:"stream"`
	PreviousResponseID string      `json:"previous_response_id,omitempty"`
}

// InputItem is one conversation input entry.
type InputItem struct {
	Type    string `json:"type"`
	Role    string `json:"role,omitempty"`
	Content any    `json:"content,omitempty"`
}

// Reasoning configures reasoning effort and summary verbosity.
type Reasoning struct {
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// WebSearchTool enables the provider-native web search tool.
type WebSearchTool struct {
	Type string `json:"type"` // "web_search_preview"
}

// CodeInterpreterTool enables server-side code execution.
type CodeInterpreterTool struct {
	Type      string `json:"type"` // "code_interpreter"
	Container any    `json:"container,omitempty"`
}

// RequestOptions shape a request from the caller's settings; the
// accumulator never sees them.
type RequestOptions struct {
	Model              string
	ReasoningEffort    string
	ReasoningSummary   string
	EnabledTools       []string // "web_search", "code_interpreter"
	MaxOutputTokens    int
	PreviousResponseID string
}

// BuildRequest assembles a streaming request for one user turn.
// Conversation continuity is explicit: the caller owns the previous
// response id and threads it into each request, never ambient state.
func BuildRequest(userText string, opts RequestOptions) Request {
	req := Request{
		Model: opts.Model,
		Input: []InputItem{
			{Type: "message", Role: "user", Content: userText},
		},
		MaxOutputTokens:    opts.MaxOutputTokens,
		Stream:             true,
		PreviousResponseID: opts.PreviousResponseID,
	}
	if opts.ReasoningEffort != "" || opts.ReasoningSummary != "" {
		req.Reasoning = &Reasoning{
			Effort:  opts.ReasoningEffort,
			Summary: opts.ReasoningSummary,
		}
	}
	for _, tool := range opts.EnabledTools {
		switch tool {
		case "web_search":
			req.Tools = append(req.Tools, WebSearchTool{Type: "web_search_preview"})
		case "code_interpreter":
			req.Tools = append(req.Tools, CodeInterpreterTool{Type: "code_interpreter", Container: map[string]string{"type": "auto"}})
		}
	}
	return req
}
