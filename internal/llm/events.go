package llm

import (
	"encoding/json"
	"strings"
)

// Canonical stream event types. Wire names vary (some providers prefix
// "response.", some use underscore spellings for the code-output events,
// some send singular "output" where others send plural "outputs"); all
// variants are normalized by ParseStreamEvent before reaching the reducer.
const (
	EventOutputTextDelta       = "response.output_text.delta"
	EventReasoningSummaryDelta = "response.reasoning_summary_text.delta"
	EventOutputItemAdded       = "response.output_item.added"
	EventOutputItemDone        = "response.output_item.done"
	EventFunctionCallArgsDelta = "response.function_call_arguments.delta"
	EventMCPCallArgsDelta      = "response.mcp_call_arguments.delta"
	EventMCPCallArgsDone       = "response.mcp_call_arguments.done"
	EventWebSearchInProgress   = "response.web_search_call.in_progress"
	EventWebSearchSearching    = "response.web_search_call.searching"
	EventWebSearchCompleted    = "response.web_search_call.completed"
	EventCodeInProgress        = "response.code_interpreter_call.in_progress"
	EventCodeInterpreting      = "response.code_interpreter_call.interpreting"
	EventCodeCompleted         = "response.code_interpreter_call.completed"
	EventCodeDelta             = "response.code_interpreter_call.code.delta"
	EventCodeDone              = "response.code_interpreter_call.code.done"
	EventMCPInProgress         = "response.mcp_call.in_progress"
	EventMCPCompleted          = "response.mcp_call.completed"
	EventCompleted             = "response.completed"
	EventIncomplete            = "response.incomplete"
)

// Output item types carried by output_item.added/done events.
const (
	ItemFunctionCall    = "function_call"
	ItemReasoning       = "reasoning"
	ItemMessage         = "message"
	ItemWebSearchCall   = "web_search_call"
	ItemCodeInterpreter = "code_interpreter_call"
	ItemMCPCall         = "mcp_call"
	ItemMCPApproval     = "mcp_approval_request"
)

// StreamEvent is the canonical internal form of one server-sent event.
// Fields are populated per event type; unused fields stay zero.
type StreamEvent struct {
	Type         string
	Delta        string
	ItemID       string
	SummaryIndex int
	Name         string
	Arguments    string
	Code         string
	Item         *OutputItem
	Response     json.RawMessage
	Raw          json.RawMessage // untouched wire payload, for replay capture
}

// OutputItem is the normalized item payload of output_item.added/done.
type OutputItem struct {
	ID          string
	Type        string
	Status      string
	Summary     []SummaryPart
	Action      *ItemAction
	Code        string
	ContainerID string
	Outputs     []ItemOutput
	OutputText  string
	Name        string
	ServerLabel string
	Arguments   string
	Error       string
}

// SummaryPart is one independently-streamed reasoning summary fragment.
type SummaryPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ItemAction describes a web search action.
type ItemAction struct {
	Type  string `json:"type"`
	Query string `json:"query,omitempty"`
}

// ItemOutput is one entry of a code execution output list.
type ItemOutput struct {
	Type string `json:"type"`
	Logs string `json:"logs,omitempty"`
}

// suffix -> canonical type. Both the bare form ("output_text.delta") and the
// "response."-prefixed form resolve to the same constant.
var canonicalTypes = map[string]string{
	"output_text.delta":                    EventOutputTextDelta,
	"reasoning_summary_text.delta":         EventReasoningSummaryDelta,
	"output_item.added":                    EventOutputItemAdded,
	"output_item.done":                     EventOutputItemDone,
	"function_call_arguments.delta":        EventFunctionCallArgsDelta,
	"mcp_call_arguments.delta":             EventMCPCallArgsDelta,
	"mcp_call_arguments.done":              EventMCPCallArgsDone,
	"web_search_call.in_progress":          EventWebSearchInProgress,
	"web_search_call.searching":            EventWebSearchSearching,
	"web_search_call.completed":            EventWebSearchCompleted,
	"code_interpreter_call.in_progress":    EventCodeInProgress,
	"code_interpreter_call.interpreting":   EventCodeInterpreting,
	"code_interpreter_call.completed":      EventCodeCompleted,
	"code_interpreter_call.code.delta":     EventCodeDelta,
	"code_interpreter_call.code.done":      EventCodeDone,
	"code_interpreter_call_code.delta":     EventCodeDelta,
	"code_interpreter_call_code.done":      EventCodeDone,
	"mcp_call.in_progress":                 EventMCPInProgress,
	"mcp_call.completed":                   EventMCPCompleted,
	"completed":                            EventCompleted,
	"incomplete":                           EventIncomplete,
}

// CanonicalEventType maps a wire event name to its canonical type.
// Unrecognized names are returned unchanged; the reducer treats them
// as no-ops, which is the forward compatibility contract.
func CanonicalEventType(name string) string {
	if canonical, ok := canonicalTypes[strings.TrimPrefix(name, "response.")]; ok {
		return canonical
	}
	return name
}

// wireEvent matches the raw JSON of a single SSE data payload.
type wireEvent struct {
	Type         string          `json:"type,omitempty"`
	Delta        json.RawMessage `json:"delta,omitempty"`
	ItemID       string          `json:"item_id,omitempty"`
	SummaryIndex int             `json:"summary_index,omitempty"`
	Name         string          `json:"name,omitempty"`
	Arguments    string          `json:"arguments,omitempty"`
	Code         string          `json:"code,omitempty"`
	Item         *wireItem       `json:"item,omitempty"`
	Response     json.RawMessage `json:"response,omitempty"`
}

type wireItem struct {
	ID          string          `json:"id,omitempty"`
	Type        string          `json:"type"`
	Status      string          `json:"status,omitempty"`
	Summary     []SummaryPart   `json:"summary,omitempty"`
	Action      *ItemAction     `json:"action,omitempty"`
	Code        string          `json:"code,omitempty"`
	ContainerID string          `json:"container_id,omitempty"`
	Outputs     []ItemOutput    `json:"outputs,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	Name        string          `json:"name,omitempty"`
	ServerLabel string          `json:"server_label,omitempty"`
	Arguments   string          `json:"arguments,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ParseStreamEvent normalizes one raw event into canonical form.
// eventName is the SSE "event:" field; when empty the payload's own
// "type" field is used. Parsing is lenient: a malformed payload yields
// an event carrying only its type, which the reducer ignores.
func ParseStreamEvent(eventName string, data []byte) StreamEvent {
	var raw wireEvent
	_ = json.Unmarshal(data, &raw)

	name := eventName
	if name == "" {
		name = raw.Type
	}

	ev := StreamEvent{
		Type:         CanonicalEventType(name),
		Delta:        decodeDelta(raw.Delta),
		ItemID:       raw.ItemID,
		SummaryIndex: raw.SummaryIndex,
		Name:         raw.Name,
		Arguments:    raw.Arguments,
		Code:         raw.Code,
		Response:     raw.Response,
		Raw:          append(json.RawMessage(nil), data...),
	}
	if raw.Item != nil {
		ev.Item = normalizeItem(raw.Item)
	}
	return ev
}

// decodeDelta accepts both the plain-string delta most providers send and
// the object form ({"text": "..."}) a few use.
func decodeDelta(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Text
	}
	return ""
}

// normalizeItem resolves the singular/plural output field variance: the
// code interpreter reports a list (under either name) while an MCP call
// reports its result as a plain string under "output".
func normalizeItem(raw *wireItem) *OutputItem {
	item := &OutputItem{
		ID:          raw.ID,
		Type:        raw.Type,
		Status:      raw.Status,
		Summary:     raw.Summary,
		Action:      raw.Action,
		Code:        raw.Code,
		ContainerID: raw.ContainerID,
		Outputs:     raw.Outputs,
		Name:        raw.Name,
		ServerLabel: raw.ServerLabel,
		Arguments:   raw.Arguments,
		Error:       raw.Error,
	}
	if len(raw.Output) > 0 {
		var asList []ItemOutput
		if err := json.Unmarshal(raw.Output, &asList); err == nil {
			if len(item.Outputs) == 0 {
				item.Outputs = asList
			}
		} else {
			var asText string
			if err := json.Unmarshal(raw.Output, &asText); err == nil {
				item.OutputText = asText
			}
		}
	}
	return item
}
