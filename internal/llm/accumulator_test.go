package llm

import (
	"encoding/json"
	"testing"
)

func testPolicy() *IdentityPolicy {
	return NewIdentityPolicy(SequentialIDs("syn"))
}

func reduceAll(t *testing.T, events []StreamEvent) *TurnState {
	t.Helper()
	state := NewTurnState()
	ids := testPolicy()
	for _, ev := range events {
		state = Reduce(state, ev, ids)
	}
	return state
}

func TestReduceTextDeltaAppendOrder(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventOutputTextDelta, Delta: "Hello "},
		{Type: EventOutputTextDelta, Delta: "world"},
		{Type: EventOutputTextDelta, Delta: "!"},
	})
	if state.Content != "Hello world!" {
		t.Errorf("content = %q, want %q", state.Content, "Hello world!")
	}
}

func TestReduceEmptyTextDeltaIsNoOp(t *testing.T) {
	ids := testPolicy()
	state := Reduce(NewTurnState(), StreamEvent{Type: EventOutputTextDelta, Delta: "Hi"}, ids)
	next := Reduce(state, StreamEvent{Type: EventOutputTextDelta, Delta: ""}, ids)
	if next != state {
		t.Error("empty text delta must return the same state reference")
	}
}

func TestReduceUnknownEventIsNoOp(t *testing.T) {
	ids := testPolicy()
	state := NewTurnState()
	next := Reduce(state, StreamEvent{Type: "something.new"}, ids)
	if next != state {
		t.Error("unknown event type must return the same state reference")
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	ids := testPolicy()
	state := Reduce(NewTurnState(), StreamEvent{Type: EventOutputTextDelta, Delta: "one"}, ids)
	before := *state
	_ = Reduce(state, StreamEvent{Type: EventOutputTextDelta, Delta: "two"}, ids)
	if state.Content != before.Content {
		t.Errorf("input state mutated: content = %q, want %q", state.Content, before.Content)
	}
}

func TestReasoningIDStability(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventReasoningSummaryDelta, ItemID: "rs_1", SummaryIndex: 0, Delta: "First "},
		{Type: EventReasoningSummaryDelta, ItemID: "rs_1", SummaryIndex: 0, Delta: "thought"},
		{Type: EventReasoningSummaryDelta, ItemID: "rs_1", SummaryIndex: 1, Delta: "Second"},
	})
	if len(state.ReasoningSteps) != 2 {
		t.Fatalf("expected 2 reasoning steps, got %d", len(state.ReasoningSteps))
	}
	if state.ReasoningSteps[0].ID != "rs_1_0" {
		t.Errorf("step 0 id = %q, want rs_1_0", state.ReasoningSteps[0].ID)
	}
	if state.ReasoningSteps[0].Content != "First thought" {
		t.Errorf("step 0 content = %q, want %q", state.ReasoningSteps[0].Content, "First thought")
	}
	if state.ReasoningSteps[1].ID != "rs_1_1" {
		t.Errorf("step 1 id = %q, want rs_1_1", state.ReasoningSteps[1].ID)
	}
	if state.ReasoningSteps[1].Content != "Second" {
		t.Errorf("step 1 content = %q, want %q", state.ReasoningSteps[1].Content, "Second")
	}
}

func TestReasoningSyntheticIDReused(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventReasoningSummaryDelta, Delta: "part one "},
		{Type: EventReasoningSummaryDelta, Delta: "part two"},
	})
	if len(state.ReasoningSteps) != 1 {
		t.Fatalf("expected 1 reasoning step, got %d", len(state.ReasoningSteps))
	}
	if state.ReasoningSteps[0].ID != "syn_0" {
		t.Errorf("step id = %q, want syn_0", state.ReasoningSteps[0].ID)
	}
	if state.ReasoningSteps[0].Content != "part one part two" {
		t.Errorf("step content = %q", state.ReasoningSteps[0].Content)
	}
}

func TestReasoningEmptyDeltaCreatesStep(t *testing.T) {
	ids := testPolicy()
	state := Reduce(NewTurnState(), StreamEvent{Type: EventReasoningSummaryDelta, ItemID: "rs_9", Delta: ""}, ids)
	if len(state.ReasoningSteps) != 1 {
		t.Fatalf("expected empty first delta to create a step, got %d steps", len(state.ReasoningSteps))
	}
	if state.ReasoningSteps[0].Content != "" {
		t.Errorf("step content = %q, want empty", state.ReasoningSteps[0].Content)
	}

	// The same empty delta on the now-existing step is a no-op.
	next := Reduce(state, StreamEvent{Type: EventReasoningSummaryDelta, ItemID: "rs_9", Delta: ""}, ids)
	if next != state {
		t.Error("empty delta on existing step must return the same state reference")
	}
}

func TestReasoningDoneReplacesContent(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventReasoningSummaryDelta, ItemID: "rs_1", SummaryIndex: 0, Delta: "partial tex"},
		{Type: EventOutputItemDone, Item: &OutputItem{
			ID:   "rs_1",
			Type: ItemReasoning,
			Summary: []SummaryPart{
				{Type: "summary_text", Text: "final text"},
				{Type: "summary_text", Text: "second fragment"},
			},
		}},
	})
	if len(state.ReasoningSteps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(state.ReasoningSteps))
	}
	if state.ReasoningSteps[0].Content != "final text" {
		t.Errorf("finalized content = %q, want %q (replace, not append)", state.ReasoningSteps[0].Content, "final text")
	}
	if state.ReasoningSteps[1].ID != "rs_1_1" || state.ReasoningSteps[1].Content != "second fragment" {
		t.Errorf("second fragment = %+v", state.ReasoningSteps[1])
	}
}

func TestFunctionCallArgsAccrete(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventFunctionCallArgsDelta, ItemID: "fc_1", Name: "get_weather", Delta: `{"loc`},
		{Type: EventFunctionCallArgsDelta, ItemID: "fc_1", Delta: `ation":"NYC"}`},
	})
	if len(state.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(state.ToolCalls))
	}
	call := state.ToolCalls[0]
	if call.Kind != ToolFunction {
		t.Errorf("kind = %q, want function", call.Kind)
	}
	if call.Name != "get_weather" {
		t.Errorf("name = %q, want get_weather", call.Name)
	}
	if call.Arguments != `{"location":"NYC"}` {
		t.Errorf("arguments = %q", call.Arguments)
	}
}

func TestFunctionCallDefaultsNameToUnknown(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventFunctionCallArgsDelta, ItemID: "fc_1", Delta: "{}"},
	})
	if got := state.ToolCalls[0].Name; got != "unknown" {
		t.Errorf("name = %q, want unknown", got)
	}
}

func TestFunctionCallEmptyDeltaOnExistingIsNoOp(t *testing.T) {
	ids := testPolicy()
	state := Reduce(NewTurnState(), StreamEvent{Type: EventFunctionCallArgsDelta, ItemID: "fc_1", Delta: "{"}, ids)
	next := Reduce(state, StreamEvent{Type: EventFunctionCallArgsDelta, ItemID: "fc_1", Delta: ""}, ids)
	if next != state {
		t.Error("empty args delta on existing call must return the same state reference")
	}
}

func TestFunctionCallDoneOverridesArguments(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventFunctionCallArgsDelta, ItemID: "fc_1", Delta: `{"a":`},
		{Type: EventOutputItemDone, Item: &OutputItem{
			ID:        "fc_1",
			Type:      ItemFunctionCall,
			Name:      "lookup",
			Arguments: `{"a":1}`,
		}},
	})
	call := state.ToolCalls[0]
	if call.Arguments != `{"a":1}` {
		t.Errorf("arguments = %q, want final value", call.Arguments)
	}
	if call.Name != "lookup" {
		t.Errorf("name = %q, want lookup", call.Name)
	}
}

func TestApprovalRequestNotDuplicated(t *testing.T) {
	item := &OutputItem{
		ID:          "mcpr_abc",
		Type:        ItemMCPApproval,
		ServerLabel: "files",
		Arguments:   `{"path":"/tmp"}`,
	}
	ids := testPolicy()
	state := Reduce(NewTurnState(), StreamEvent{Type: EventOutputItemAdded, Item: item}, ids)
	next := Reduce(state, StreamEvent{Type: EventOutputItemDone, Item: item}, ids)

	if next != state {
		t.Error("identical done after added must return the same state reference")
	}
	if len(next.ToolCalls) != 1 {
		t.Fatalf("expected exactly 1 approval entry, got %d", len(next.ToolCalls))
	}
	call := next.ToolCalls[0]
	if call.Kind != ToolMCPApproval {
		t.Errorf("kind = %q", call.Kind)
	}
	if call.Status != ApprovalPending {
		t.Errorf("status = %q, want pending_approval", call.Status)
	}
	if call.ApprovalRequestID != "mcpr_abc" {
		t.Errorf("approval request id = %q, want the entry's own id", call.ApprovalRequestID)
	}
}

func TestWebSearchLifecycle(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventOutputItemAdded, Item: &OutputItem{
			ID:     "ws_1",
			Type:   ItemWebSearchCall,
			Status: "in_progress",
		}},
		{Type: EventWebSearchSearching, ItemID: "ws_1"},
		{Type: EventOutputItemDone, Item: &OutputItem{
			ID:     "ws_1",
			Type:   ItemWebSearchCall,
			Status: "completed",
			Action: &ItemAction{Type: "search", Query: "go sqlite driver"},
		}},
	})
	call := state.ToolCalls[0]
	if call.Kind != ToolWebSearch {
		t.Errorf("kind = %q", call.Kind)
	}
	if call.Status != WebSearchCompleted {
		t.Errorf("status = %q, want completed", call.Status)
	}
	if call.Query != "go sqlite driver" || call.ActionType != "search" {
		t.Errorf("query/action = %q/%q", call.Query, call.ActionType)
	}
}

func TestStatusEventUnknownIDIsNoOp(t *testing.T) {
	ids := testPolicy()
	state := NewTurnState()
	next := Reduce(state, StreamEvent{Type: EventWebSearchCompleted, ItemID: "ws_nope"}, ids)
	if next != state {
		t.Error("status event for unknown id must return the same state reference")
	}
}

func TestRepeatedStatusIsNoOp(t *testing.T) {
	ids := testPolicy()
	state := Reduce(NewTurnState(), StreamEvent{Type: EventOutputItemAdded, Item: &OutputItem{
		ID:     "ws_1",
		Type:   ItemWebSearchCall,
		Status: "searching",
	}}, ids)
	next := Reduce(state, StreamEvent{Type: EventWebSearchSearching, ItemID: "ws_1"}, ids)
	if next != state {
		t.Error("already-set status must return the same state reference")
	}
}

func TestCodeExecutionScenario(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventOutputItemAdded, Item: &OutputItem{
			ID:     "ci_1",
			Type:   ItemCodeInterpreter,
			Status: "in_progress",
		}},
		{Type: EventCodeDelta, ItemID: "ci_1", Delta: "print("},
		{Type: EventCodeDelta, ItemID: "ci_1", Delta: "1)"},
		{Type: EventOutputItemDone, Item: &OutputItem{
			ID:      "ci_1",
			Type:    ItemCodeInterpreter,
			Outputs: []ItemOutput{{Type: "logs", Logs: "1"}},
		}},
		{Type: EventCodeCompleted, ItemID: "ci_1"},
	})
	if len(state.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(state.ToolCalls))
	}
	call := state.ToolCalls[0]
	if call.Code != "print(1)" {
		t.Errorf("code = %q, want print(1)", call.Code)
	}
	if call.Output != "1" {
		t.Errorf("output = %q, want 1", call.Output)
	}
	if call.Status != CodeCompleted {
		t.Errorf("status = %q, want completed", call.Status)
	}
}

func TestCodeOutputOnlyLogsJoined(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventOutputItemDone, Item: &OutputItem{
			ID:   "ci_1",
			Type: ItemCodeInterpreter,
			Outputs: []ItemOutput{
				{Type: "logs", Logs: "line1"},
				{Type: "image"},
				{Type: "logs", Logs: "line2"},
			},
		}},
	})
	if got := state.ToolCalls[0].Output; got != "line1\nline2" {
		t.Errorf("output = %q, want log lines joined with newline", got)
	}
}

func TestCodeDoneReplacesStreamedCode(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventCodeDelta, ItemID: "ci_1", Delta: "pri"},
		{Type: EventCodeDone, ItemID: "ci_1", Code: "print(42)"},
	})
	if got := state.ToolCalls[0].Code; got != "print(42)" {
		t.Errorf("code = %q, want done event's full value", got)
	}
}

func TestMCPCallLifecycle(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventMCPCallArgsDelta, ItemID: "mcp_1", Delta: `{"q":`},
		{Type: EventMCPCallArgsDelta, ItemID: "mcp_1", Delta: `"x"}`},
		{Type: EventOutputItemDone, Item: &OutputItem{
			ID:          "mcp_1",
			Type:        ItemMCPCall,
			Status:      "completed",
			Name:        "search",
			ServerLabel: "docs",
			Arguments:   `{"q":"x"}`,
			OutputText:  "3 results",
		}},
	})
	call := state.ToolCalls[0]
	if call.Kind != ToolMCPCall {
		t.Errorf("kind = %q", call.Kind)
	}
	if call.Name != "docs/search" {
		t.Errorf("name = %q, want docs/search (resolved from placeholder)", call.Name)
	}
	if call.Result != "3 results" {
		t.Errorf("result = %q", call.Result)
	}
	if call.Status != MCPCompleted {
		t.Errorf("status = %q, want completed", call.Status)
	}
}

func TestMCPCallPlaceholderName(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventMCPCallArgsDelta, ItemID: "mcp_1", Delta: "{"},
	})
	if got := state.ToolCalls[0].Name; got != "mcp_tool" {
		t.Errorf("name = %q, want mcp_tool placeholder", got)
	}
}

func TestMCPCallErrorResult(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventOutputItemDone, Item: &OutputItem{
			ID:    "mcp_1",
			Type:  ItemMCPCall,
			Error: "server unreachable",
		}},
	})
	if got := state.ToolCalls[0].Result; got != "Error: server unreachable" {
		t.Errorf("result = %q", got)
	}
}

func TestMCPArgsDoneOverwrites(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventMCPCallArgsDelta, ItemID: "mcp_1", Delta: `{"partial`},
		{Type: EventMCPCallArgsDone, ItemID: "mcp_1", Arguments: `{"full":true}`},
	})
	if got := state.ToolCalls[0].Arguments; got != `{"full":true}` {
		t.Errorf("arguments = %q, want done event's full value", got)
	}
}

func TestTerminalExtraction(t *testing.T) {
	payload := `{"id":"resp_1","status":"completed","output":[]}`
	state := reduceAll(t, []StreamEvent{
		{Type: EventOutputTextDelta, Delta: "Hi"},
		{Type: EventCompleted, Response: json.RawMessage(payload)},
	})
	if state.ResponseID != "resp_1" {
		t.Errorf("response id = %q, want resp_1", state.ResponseID)
	}
	var stored struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(state.ResponseJSON, &stored); err != nil {
		t.Fatalf("response json not retained: %v", err)
	}
	if stored.ID != "resp_1" {
		t.Errorf("stored payload id = %q, want resp_1", stored.ID)
	}
}

func TestTerminalNonStringIDTreatedAsAbsent(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		{Type: EventCompleted, Response: json.RawMessage(`{"id":42,"status":"completed"}`)},
	})
	if state.ResponseID != "" {
		t.Errorf("response id = %q, want empty for non-string id", state.ResponseID)
	}
	if len(state.ResponseJSON) == 0 {
		t.Error("payload should still be retained")
	}
}

func TestTerminalMissingPayloadIsNoOp(t *testing.T) {
	ids := testPolicy()
	state := NewTurnState()
	next := Reduce(state, StreamEvent{Type: EventCompleted}, ids)
	if next != state {
		t.Error("completed event without a response payload must return the same state reference")
	}
}

func TestIncompleteSetsTruncation(t *testing.T) {
	payload := `{"id":"resp_2","status":"incomplete","incomplete_details":{"reason":"max_output_tokens"}}`
	state := reduceAll(t, []StreamEvent{
		{Type: EventIncomplete, Response: json.RawMessage(payload)},
	})
	if !state.IsTruncated {
		t.Error("expected truncated state")
	}
	if state.TruncationReason != "max_output_tokens" {
		t.Errorf("truncation reason = %q", state.TruncationReason)
	}
}

func TestSimpleTurnScenario(t *testing.T) {
	state := reduceAll(t, []StreamEvent{
		ParseStreamEvent("", []byte(`{"type":"output_text.delta","delta":"Hi"}`)),
		ParseStreamEvent("", []byte(`{"type":"completed","response":{"id":"r1","status":"completed"}}`)),
	})
	if state.Content != "Hi" {
		t.Errorf("content = %q, want Hi", state.Content)
	}
	if state.ResponseID != "r1" {
		t.Errorf("response id = %q, want r1", state.ResponseID)
	}
}

func TestTerminalCitationMerge(t *testing.T) {
	payload := `{"id":"r1","status":"completed","output":[{"type":"message","content":[{"type":"output_text","annotations":[
		{"type":"url_citation","url":"https://a.example","title":"First"},
		{"type":"url_citation","url":"https://a.example","title":"Second"},
		{"type":"file_citation","file_id":"file_1","filename":"notes.txt"}
	]}]}]}`
	state := reduceAll(t, []StreamEvent{
		{Type: EventCompleted, Response: json.RawMessage(payload)},
	})
	if len(state.Citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(state.Citations))
	}
	if state.Citations[0].Title != "First" {
		t.Errorf("citation title = %q, want first-seen title", state.Citations[0].Title)
	}
	if len(state.FileCitations) != 1 || state.FileCitations[0].FileID != "file_1" {
		t.Errorf("file citations = %+v", state.FileCitations)
	}
}
