package session

import (
	"context"
	"os"
	"path/filepath"
)

// Store is the interface for conversation persistence.
type Store interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, limit, offset int) ([]Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	// SaveTurn is an idempotent upsert keyed by (conversation id, seq):
	// saving the same turn twice overwrites rather than duplicating. It
	// also advances the conversation's last response id and status.
	SaveTurn(ctx context.Context, turn *Turn, status Status) error
	GetTurns(ctx context.Context, conversationID string) ([]Turn, error)

	Close() error
}

// GetDataDir returns the XDG data directory for plume.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "plume"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "plume"), nil
}

// GetDBPath returns the path to the conversations database.
func GetDBPath() (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "conversations.db"), nil
}
