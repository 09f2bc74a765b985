package session

import "context"

// NoopStore discards everything. Used when persistence is disabled.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) CreateConversation(ctx context.Context, c *Conversation) error { return nil }
func (n *NoopStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	return nil, nil
}
func (n *NoopStore) ListConversations(ctx context.Context, limit, offset int) ([]Conversation, error) {
	return nil, nil
}
func (n *NoopStore) DeleteConversation(ctx context.Context, id string) error      { return nil }
func (n *NoopStore) SaveTurn(ctx context.Context, turn *Turn, status Status) error { return nil }
func (n *NoopStore) GetTurns(ctx context.Context, conversationID string) ([]Turn, error) {
	return nil, nil
}
func (n *NoopStore) Close() error { return nil }
