// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrKeyNotFound indicates no record exists under the requested key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrGuestNotFound indicates a guest was not found by the given identifier.
	ErrGuestNotFound = errors.New("guest not found")

	// ErrChatflowNotFound indicates a chatflow was not found by the given identifier.
	ErrChatflowNotFound = errors.New("chatflow not found")

	// ErrCampaignNotFound indicates a campaign was not found by the given identifier.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrSessionNotFound indicates no session exists for the given guest.
	ErrSessionNotFound = errors.New("guest session not found")

	// ErrTemplateNotFound indicates a message template was not found.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrMessageNotFound indicates a message log entry was not found.
	ErrMessageNotFound = errors.New("message not found")

	// ErrInvitationNotFound indicates a pending invitation was not found.
	ErrInvitationNotFound = errors.New("pending invitation not found")

	// ErrNodeExecutionNotFound indicates an update targeted a node-history
	// entry that was never appended.
	ErrNodeExecutionNotFound = errors.New("node execution not found")

	// ErrSessionConflict indicates a session write lost an optimistic
	// version check against a concurrent claim.
	ErrSessionConflict = errors.New("guest session version conflict")
)

// StoreError wraps storage errors with operation context.
type StoreError struct {
	Op  string // Operation being performed (e.g., "Get", "Set", "ScanByPrefix")
	Key string // Record key if applicable
	Err error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s failed for key %s: %v", e.Op, e.Key, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for store errors.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{Op: op, Key: key, Err: err}
}

// IsNotFound checks whether err indicates any absent entity.
func IsNotFound(err error) bool {
	for _, sentinel := range []error{
		ErrKeyNotFound,
		ErrGuestNotFound,
		ErrChatflowNotFound,
		ErrCampaignNotFound,
		ErrExecutionNotFound,
		ErrSessionNotFound,
		ErrTemplateNotFound,
		ErrMessageNotFound,
		ErrInvitationNotFound,
		ErrNodeExecutionNotFound,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}

	return false
}
