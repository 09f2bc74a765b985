package llm

import (
	"fmt"

	"github.com/google/uuid"
)

// IdentityPolicy assigns stable ids to streamed items when the server
// omits them, and remembers its assignments so every later event that
// continues the same conceptual item resolves to the same id. One policy
// instance lives for exactly one turn, alongside the turn state.
//
// The generator is injectable so tests can supply deterministic
// sequences instead of random ids.
type IdentityPolicy struct {
	gen func() string

	// Synthetic ids handed out for server-unlabeled items, keyed by the
	// slot that identifies the conceptual item across events.
	reasoningSlots map[int]string    // summary index -> id
	toolSlots      map[string]string // tool kind -> id
}

// NewIdentityPolicy returns a policy using the given id generator.
// A nil generator falls back to random UUIDs.
func NewIdentityPolicy(gen func() string) *IdentityPolicy {
	if gen == nil {
		gen = uuid.NewString
	}
	return &IdentityPolicy{
		gen:            gen,
		reasoningSlots: make(map[int]string),
		toolSlots:      make(map[string]string),
	}
}

// ReasoningStepID resolves the id for a reasoning summary fragment.
// A server-supplied item id is authoritative and gets the summary index
// appended, since one reasoning item streams multiple independent
// fragments. Without an item id a synthetic id is minted once per
// summary index and reused for every later unlabeled event on that index.
func (p *IdentityPolicy) ReasoningStepID(itemID string, summaryIndex int) string {
	if itemID != "" {
		return fmt.Sprintf("%s_%d", itemID, summaryIndex)
	}
	if id, ok := p.reasoningSlots[summaryIndex]; ok {
		return id
	}
	id := p.gen()
	p.reasoningSlots[summaryIndex] = id
	return id
}

// ToolCallID resolves the id for a tool invocation. A server item id is
// used verbatim. Without one, a synthetic id is minted at first sight
// and reused for every later unlabeled event of the same kind; the
// stream never interleaves two unlabeled calls of one kind, so the kind
// is a sufficient slot key.
func (p *IdentityPolicy) ToolCallID(kind ToolCallKind, itemID string) string {
	if itemID != "" {
		return itemID
	}
	if id, ok := p.toolSlots[string(kind)]; ok {
		return id
	}
	id := p.gen()
	p.toolSlots[string(kind)] = id
	return id
}

// SequentialIDs returns a generator producing "id_0", "id_1", ... with
// the given prefix. Used by tests and deterministic replay.
func SequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		id := fmt.Sprintf("%s_%d", prefix, n)
		n++
		return id
	}
}
