package llm

import (
	"encoding/json"
)

// ReasoningStep is one reasoning summary fragment accumulated during a turn.
// Content is append-only until a done event replaces it with the final text.
type ReasoningStep struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Citation is a URL reference extracted from a terminal response payload.
type Citation struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	StartIndex int    `json:"start_index,omitempty"`
	EndIndex   int    `json:"end_index,omitempty"`
}

// FileCitation is a file reference extracted from a terminal response payload.
type FileCitation struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename,omitempty"`
	Index    int    `json:"index,omitempty"`
}

// TurnState is the accumulated state of one streaming turn. It is a pure
// value updated by replacement: Reduce never mutates its input, and a
// no-op reduction returns the identical pointer so observers can detect
// "nothing changed" by comparing references.
type TurnState struct {
	Content          string          `json:"content"`
	ReasoningSteps   []ReasoningStep `json:"reasoning_steps,omitempty"`
	ToolCalls        []ToolCall      `json:"tool_calls,omitempty"`
	Citations        []Citation      `json:"citations,omitempty"`
	FileCitations    []FileCitation  `json:"file_citations,omitempty"`
	ResponseID       string          `json:"response_id,omitempty"`
	ResponseJSON     json.RawMessage `json:"response_json,omitempty"`
	IsTruncated      bool            `json:"is_truncated,omitempty"`
	TruncationReason string          `json:"truncation_reason,omitempty"`
}

// NewTurnState returns the empty state a turn starts from.
func NewTurnState() *TurnState {
	return &TurnState{}
}

func (s *TurnState) clone() *TurnState {
	c := *s
	return &c
}

func (s *TurnState) findStep(id string) int {
	for i := range s.ReasoningSteps {
		if s.ReasoningSteps[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TurnState) findToolCall(id string) int {
	for i := range s.ToolCalls {
		if s.ToolCalls[i].ID == id {
			return i
		}
	}
	return -1
}

// withStep returns a copy of s with the step at idx replaced.
func (s *TurnState) withStep(idx int, step ReasoningStep) *TurnState {
	next := s.clone()
	steps := make([]ReasoningStep, len(s.ReasoningSteps))
	copy(steps, s.ReasoningSteps)
	steps[idx] = step
	next.ReasoningSteps = steps
	return next
}

// withNewStep returns a copy of s with step appended.
func (s *TurnState) withNewStep(step ReasoningStep) *TurnState {
	next := s.clone()
	steps := make([]ReasoningStep, len(s.ReasoningSteps), len(s.ReasoningSteps)+1)
	copy(steps, s.ReasoningSteps)
	next.ReasoningSteps = append(steps, step)
	return next
}

// withToolCall returns a copy of s with the call at idx replaced.
func (s *TurnState) withToolCall(idx int, call ToolCall) *TurnState {
	next := s.clone()
	calls := make([]ToolCall, len(s.ToolCalls))
	copy(calls, s.ToolCalls)
	calls[idx] = call
	next.ToolCalls = calls
	return next
}

// withNewToolCall returns a copy of s with call appended.
func (s *TurnState) withNewToolCall(call ToolCall) *TurnState {
	next := s.clone()
	calls := make([]ToolCall, len(s.ToolCalls), len(s.ToolCalls)+1)
	copy(calls, s.ToolCalls)
	next.ToolCalls = append(calls, call)
	return next
}

// Reduce folds one stream event into the turn state. The input state is
// never mutated; the result is either a new state value or the same
// pointer when the event changed nothing. Unknown event types, status
// events for unknown ids and terminal events missing their payload are
// all silent no-ops: the upstream protocol grows over time and an event
// the client cannot place must never break the turn.
func Reduce(s *TurnState, ev StreamEvent, ids *IdentityPolicy) *TurnState {
	switch ev.Type {
	case EventOutputTextDelta:
		if ev.Delta == "" {
			return s
		}
		next := s.clone()
		next.Content += ev.Delta
		return next

	case EventReasoningSummaryDelta:
		return reduceReasoningDelta(s, ev, ids)

	case EventFunctionCallArgsDelta:
		return reduceFunctionArgsDelta(s, ev, ids)

	case EventMCPCallArgsDelta:
		return reduceMCPArgsDelta(s, ev, ids)

	case EventMCPCallArgsDone:
		return reduceMCPArgsDone(s, ev, ids)

	case EventOutputItemAdded, EventOutputItemDone:
		return reduceOutputItem(s, ev, ids)

	case EventCodeDelta:
		return reduceCodeDelta(s, ev, ids)

	case EventCodeDone:
		return reduceCodeDone(s, ev, ids)

	case EventWebSearchInProgress:
		return reduceStatus(s, ev.ItemID, WebSearchInProgress)
	case EventWebSearchSearching:
		return reduceStatus(s, ev.ItemID, WebSearchSearching)
	case EventWebSearchCompleted:
		return reduceStatus(s, ev.ItemID, WebSearchCompleted)

	case EventCodeInProgress:
		return reduceStatus(s, ev.ItemID, CodeInProgress)
	case EventCodeInterpreting:
		return reduceStatus(s, ev.ItemID, CodeInterpreting)
	case EventCodeCompleted:
		return reduceStatus(s, ev.ItemID, CodeCompleted)

	case EventMCPInProgress:
		return reduceStatus(s, ev.ItemID, MCPInProgress)
	case EventMCPCompleted:
		return reduceStatus(s, ev.ItemID, MCPCompleted)

	case EventCompleted:
		return reduceTerminal(s, ev, false)
	case EventIncomplete:
		return reduceTerminal(s, ev, true)
	}

	return s
}

func reduceReasoningDelta(s *TurnState, ev StreamEvent, ids *IdentityPolicy) *TurnState {
	id := ids.ReasoningStepID(ev.ItemID, ev.SummaryIndex)
	if idx := s.findStep(id); idx >= 0 {
		if ev.Delta == "" {
			return s
		}
		step := s.ReasoningSteps[idx]
		step.Content += ev.Delta
		return s.withStep(idx, step)
	}
	// First event for a step may legitimately carry no text yet; an empty
	// step is still created so later deltas have somewhere to land.
	return s.withNewStep(ReasoningStep{ID: id, Content: ev.Delta})
}

// reduceReasoningDone applies the finalized summary fragments from an
// output_item.done carrying a reasoning item. Finalized text is ground
// truth from the server and replaces accumulated content outright.
func reduceReasoningDone(s *TurnState, item *OutputItem, ids *IdentityPolicy) *TurnState {
	next := s
	for i, part := range item.Summary {
		id := ids.ReasoningStepID(item.ID, i)
		if idx := next.findStep(id); idx >= 0 {
			if next.ReasoningSteps[idx].Content == part.Text {
				continue
			}
			step := next.ReasoningSteps[idx]
			step.Content = part.Text
			next = next.withStep(idx, step)
		} else {
			next = next.withNewStep(ReasoningStep{ID: id, Content: part.Text})
		}
	}
	return next
}

// terminalResponse is the subset of a terminal payload the reducer reads.
// The id must be a JSON string; anything else is treated as absent.
type terminalResponse struct {
	ID                json.RawMessage `json:"id"`
	Status            string          `json:"status"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
}

func reduceTerminal(s *TurnState, ev StreamEvent, incomplete bool) *TurnState {
	if len(ev.Response) == 0 {
		return s
	}
	var resp terminalResponse
	_ = json.Unmarshal(ev.Response, &resp)

	next := s.clone()
	var id string
	if err := json.Unmarshal(resp.ID, &id); err == nil && id != "" {
		next.ResponseID = id
	}
	next.ResponseJSON = ev.Response

	citations, fileCitations := ExtractCitations(ev.Response)
	if len(citations) > 0 {
		next.Citations = mergeCitations(next.Citations, citations)
	}
	if len(fileCitations) > 0 {
		next.FileCitations = mergeFileCitations(next.FileCitations, fileCitations)
	}

	if incomplete {
		next.IsTruncated = true
		if resp.IncompleteDetails != nil {
			next.TruncationReason = resp.IncompleteDetails.Reason
		}
	}
	return next
}
