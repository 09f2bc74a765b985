package llm

// ToolCallKind identifies the flavor of a streamed tool invocation.
// The kind is fixed when the call is first seen and never changes;
// fields beyond the kind accrete over the call's lifetime.
type ToolCallKind string

const (
	ToolFunction    ToolCallKind = "function"
	ToolWebSearch   ToolCallKind = "web_search"
	ToolCodeExec    ToolCallKind = "code_execution"
	ToolMCPCall     ToolCallKind = "mcp_call"
	ToolMCPApproval ToolCallKind = "mcp_approval"
)

// Status vocabularies per tool call kind.
const (
	WebSearchInProgress = "in_progress"
	WebSearchSearching  = "searching"
	WebSearchCompleted  = "completed"

	CodeInProgress   = "in_progress"
	CodeInterpreting = "interpreting"
	CodeCompleted    = "completed"

	MCPInProgress = "in_progress"
	MCPCompleted  = "completed"

	ApprovalPending = "pending_approval"
	ApprovalGranted = "approved"
	ApprovalDenied  = "denied"
)

// mcpPlaceholderName is used for an MCP call until the server and tool
// identity is known.
const mcpPlaceholderName = "mcp_tool"

// ToolCall is one accumulated tool invocation. Which fields are
// populated depends on the kind.
type ToolCall struct {
	ID     string       `json:"id"`
	Kind   ToolCallKind `json:"kind"`
	Status string       `json:"status,omitempty"`

	// function and mcp_call
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// web_search
	Query      string `json:"query,omitempty"`
	ActionType string `json:"action_type,omitempty"`

	// code_execution
	Code        string `json:"code,omitempty"`
	ContainerID string `json:"container_id,omitempty"`
	Output      string `json:"output,omitempty"`

	// mcp_call and mcp_approval
	ServerLabel       string `json:"server_label,omitempty"`
	Result            string `json:"result,omitempty"`
	ApprovalRequestID string `json:"approval_request_id,omitempty"`
}

// reduceStatus applies a status-only event. An unknown or missing id is
// a defensive no-op: the event may be stale or refer to a call created
// by an ordering the client has not seen. An already-set status is a
// no-op so repeated notifications do not signal spurious change.
func reduceStatus(s *TurnState, itemID, status string) *TurnState {
	if itemID == "" {
		return s
	}
	idx := s.findToolCall(itemID)
	if idx < 0 {
		return s
	}
	if s.ToolCalls[idx].Status == status {
		return s
	}
	call := s.ToolCalls[idx]
	call.Status = status
	return s.withToolCall(idx, call)
}

func reduceFunctionArgsDelta(s *TurnState, ev StreamEvent, ids *IdentityPolicy) *TurnState {
	id := ids.ToolCallID(ToolFunction, ev.ItemID)
	if idx := s.findToolCall(id); idx >= 0 {
		call := s.ToolCalls[idx]
		changed := false
		if ev.Delta != "" {
			call.Arguments += ev.Delta
			changed = true
		}
		if ev.Name != "" && (call.Name == "" || call.Name == "unknown") && call.Name != ev.Name {
			call.Name = ev.Name
			changed = true
		}
		if !changed {
			return s
		}
		return s.withToolCall(idx, call)
	}
	// An empty first delta still creates a placeholder entry, matching the
	// reasoning rule, so later deltas land on an established id.
	name := ev.Name
	if name == "" {
		name = "unknown"
	}
	return s.withNewToolCall(ToolCall{
		ID:        id,
		Kind:      ToolFunction,
		Name:      name,
		Arguments: ev.Delta,
	})
}

func reduceMCPArgsDelta(s *TurnState, ev StreamEvent, ids *IdentityPolicy) *TurnState {
	id := ids.ToolCallID(ToolMCPCall, ev.ItemID)
	if idx := s.findToolCall(id); idx >= 0 {
		if ev.Delta == "" {
			return s
		}
		call := s.ToolCalls[idx]
		call.Arguments += ev.Delta
		return s.withToolCall(idx, call)
	}
	return s.withNewToolCall(ToolCall{
		ID:        id,
		Kind:      ToolMCPCall,
		Status:    MCPInProgress,
		Name:      mcpPlaceholderName,
		Arguments: ev.Delta,
	})
}

func reduceMCPArgsDone(s *TurnState, ev StreamEvent, ids *IdentityPolicy) *TurnState {
	id := ids.ToolCallID(ToolMCPCall, ev.ItemID)
	if idx := s.findToolCall(id); idx >= 0 {
		if ev.Arguments == "" || s.ToolCalls[idx].Arguments == ev.Arguments {
			return s
		}
		call := s.ToolCalls[idx]
		call.Arguments = ev.Arguments
		return s.withToolCall(idx, call)
	}
	return s.withNewToolCall(ToolCall{
		ID:        id,
		Kind:      ToolMCPCall,
		Status:    MCPInProgress,
		Name:      mcpPlaceholderName,
		Arguments: ev.Arguments,
	})
}

func reduceOutputItem(s *TurnState, ev StreamEvent, ids *IdentityPolicy) *TurnState {
	item := ev.Item
	if item == nil {
		return s
	}
	switch item.Type {
	case ItemReasoning:
		return reduceReasoningDone(s, item, ids)
	case ItemFunctionCall:
		return reduceFunctionItem(s, item, ids)
	case ItemWebSearchCall:
		return reduceWebSearchItem(s, item, ids)
	case ItemCodeInterpreter:
		return reduceCodeItem(s, item, ids)
	case ItemMCPCall:
		return reduceMCPItem(s, item, ids)
	case ItemMCPApproval:
		return reduceApprovalItem(s, item, ids)
	}
	// Message items carry their text through output_text deltas and the
	// terminal payload; everything else is a forward-compat no-op.
	return s
}

func reduceFunctionItem(s *TurnState, item *OutputItem, ids *IdentityPolicy) *TurnState {
	id := ids.ToolCallID(ToolFunction, item.ID)
	if idx := s.findToolCall(id); idx >= 0 {
		call := s.ToolCalls[idx]
		// A done event's full arguments are ground truth over streamed deltas.
		if item.Arguments != "" {
			call.Arguments = item.Arguments
		}
		if item.Name != "" && (call.Name == "" || call.Name == "unknown") {
			call.Name = item.Name
		}
		if call == s.ToolCalls[idx] {
			return s
		}
		return s.withToolCall(idx, call)
	}
	name := item.Name
	if name == "" {
		name = "unknown"
	}
	return s.withNewToolCall(ToolCall{
		ID:        id,
		Kind:      ToolFunction,
		Name:      name,
		Arguments: item.Arguments,
	})
}

func reduceWebSearchItem(s *TurnState, item *OutputItem, ids *IdentityPolicy) *TurnState {
	id := ids.ToolCallID(ToolWebSearch, item.ID)
	idx := s.findToolCall(id)
	var call ToolCall
	if idx >= 0 {
		call = s.ToolCalls[idx]
	} else {
		call = ToolCall{ID: id, Kind: ToolWebSearch, Status: WebSearchInProgress}
	}
	if item.Status != "" {
		call.Status = item.Status
	}
	if item.Action != nil {
		if item.Action.Query != "" {
			call.Query = item.Action.Query
		}
		if item.Action.Type != "" {
			call.ActionType = item.Action.Type
		}
	}
	if idx >= 0 {
		if call == s.ToolCalls[idx] {
			return s
		}
		return s.withToolCall(idx, call)
	}
	return s.withNewToolCall(call)
}

func reduceCodeItem(s *TurnState, item *OutputItem, ids *IdentityPolicy) *TurnState {
	id := ids.ToolCallID(ToolCodeExec, item.ID)
	idx := s.findToolCall(id)
	var call ToolCall
	if idx >= 0 {
		call = s.ToolCalls[idx]
	} else {
		call = ToolCall{ID: id, Kind: ToolCodeExec, Status: CodeInProgress}
	}
	if item.Status != "" {
		call.Status = item.Status
	}
	// A done event's full code replaces whatever deltas accumulated.
	if item.Code != "" {
		call.Code = item.Code
	}
	if item.ContainerID != "" {
		call.ContainerID = item.ContainerID
	}
	if logs, ok := joinLogOutputs(item.Outputs); ok {
		call.Output = logs
	}
	if idx >= 0 {
		if call == s.ToolCalls[idx] {
			return s
		}
		return s.withToolCall(idx, call)
	}
	return s.withNewToolCall(call)
}

// joinLogOutputs concatenates log-typed outputs with newlines. Other
// output kinds (generated files and the like) are not surfaced by this
// reducer. Returns false when the event carried no output list at all,
// so an absent list does not clear previously reported output.
func joinLogOutputs(outputs []ItemOutput) (string, bool) {
	if outputs == nil {
		return "", false
	}
	var logs string
	for _, out := range outputs {
		if out.Type != "logs" {
			continue
		}
		if logs != "" {
			logs += "\n"
		}
		logs += out.Logs
	}
	return logs, true
}

func reduceMCPItem(s *TurnState, item *OutputItem, ids *IdentityPolicy) *TurnState {
	id := ids.ToolCallID(ToolMCPCall, item.ID)
	idx := s.findToolCall(id)
	var call ToolCall
	if idx >= 0 {
		call = s.ToolCalls[idx]
	} else {
		call = ToolCall{ID: id, Kind: ToolMCPCall, Status: MCPInProgress, Name: mcpPlaceholderName}
	}
	if item.Status != "" {
		call.Status = item.Status
	}
	if item.ServerLabel != "" && item.Name != "" {
		call.Name = item.ServerLabel + "/" + item.Name
		call.ServerLabel = item.ServerLabel
	}
	if item.Arguments != "" {
		call.Arguments = item.Arguments
	}
	if item.Error != "" {
		call.Result = "Error: " + item.Error
	} else if item.OutputText != "" {
		call.Result = item.OutputText
	}
	if idx >= 0 {
		if call == s.ToolCalls[idx] {
			return s
		}
		return s.withToolCall(idx, call)
	}
	return s.withNewToolCall(call)
}

// reduceApprovalItem handles mcp_approval_request items. Servers send
// both an added and a done notification for the same request; the
// second must merge into the existing entry, and when it would set
// identical values the same state reference is returned so observers
// see no change and the request is never duplicated.
func reduceApprovalItem(s *TurnState, item *OutputItem, ids *IdentityPolicy) *TurnState {
	id := ids.ToolCallID(ToolMCPApproval, item.ID)
	idx := s.findToolCall(id)
	var call ToolCall
	if idx >= 0 {
		call = s.ToolCalls[idx]
	} else {
		call = ToolCall{
			ID:                id,
			Kind:              ToolMCPApproval,
			Status:            ApprovalPending,
			ApprovalRequestID: id,
		}
	}
	if item.Status != "" {
		call.Status = item.Status
	}
	if item.ServerLabel != "" {
		call.ServerLabel = item.ServerLabel
	}
	if item.Name != "" {
		if item.ServerLabel != "" {
			call.Name = item.ServerLabel + "/" + item.Name
		} else {
			call.Name = item.Name
		}
	}
	if item.Arguments != "" && call.Arguments == "" {
		call.Arguments = item.Arguments
	}
	if idx >= 0 {
		if call == s.ToolCalls[idx] {
			return s
		}
		return s.withToolCall(idx, call)
	}
	return s.withNewToolCall(call)
}

func reduceCodeDelta(s *TurnState, ev StreamEvent, ids *IdentityPolicy) *TurnState {
	id := ids.ToolCallID(ToolCodeExec, ev.ItemID)
	if idx := s.findToolCall(id); idx >= 0 {
		if ev.Delta == "" {
			return s
		}
		call := s.ToolCalls[idx]
		call.Code += ev.Delta
		return s.withToolCall(idx, call)
	}
	return s.withNewToolCall(ToolCall{
		ID:     id,
		Kind:   ToolCodeExec,
		Status: CodeInProgress,
		Code:   ev.Delta,
	})
}

func reduceCodeDone(s *TurnState, ev StreamEvent, ids *IdentityPolicy) *TurnState {
	id := ids.ToolCallID(ToolCodeExec, ev.ItemID)
	if idx := s.findToolCall(id); idx >= 0 {
		if ev.Code == "" || s.ToolCalls[idx].Code == ev.Code {
			return s
		}
		call := s.ToolCalls[idx]
		call.Code = ev.Code
		return s.withToolCall(idx, call)
	}
	return s.withNewToolCall(ToolCall{
		ID:     id,
		Kind:   ToolCodeExec,
		Status: CodeInProgress,
		Code:   ev.Code,
	})
}
