// Package threads saves and restores named chat histories.
//
// A thread is stored as a JSON array of records shaped like
// {"type": "human"|"ai"|"system", "content": ..., "additional_kwargs": {}},
// so threads written by earlier tools load unchanged.
package threads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/recall/pkg/types"
)

var (
	// ErrEmptyName is returned when no thread name was given.
	ErrEmptyName = errors.New("thread name is empty")
	// ErrInvalidName is returned for names that could escape the store.
	ErrInvalidName = errors.New("invalid thread name")
	// ErrThreadExists is returned by Save when the name is taken and
	// overwrite was not requested.
	ErrThreadExists = errors.New("thread already exists")
	// ErrNotFound is returned when a thread does not exist.
	ErrNotFound = errors.New("thread not found")
)

// Store persists named chat histories.
type Store interface {
	Save(ctx context.Context, name string, messages []*types.Message, overwrite bool) error
	Load(ctx context.Context, name string) ([]*types.Message, error)
	List(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, name string) (bool, error)
}

const (
	recordHuman  = "human"
	recordAI     = "ai"
	recordSystem = "system"
)

// record is the on-disk shape of one message.
type record struct {
	Content          string                 `json:"content"`
	AdditionalKwargs map[string]interface{} `json:"additional_kwargs"`
	ResponseMetadata map[string]interface{} `json:"response_metadata"`
	Type             string                 `json:"type"`
	Name             *string                `json:"name"`
	ID               *string                `json:"id"`
}

// Encode renders messages in the thread record format.
func Encode(messages []*types.Message) ([]byte, error) {
	records := make([]record, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		var kind string
		switch m.Role {
		case types.RoleUser:
			kind = recordHuman
		case types.RoleAssistant:
			kind = recordAI
		case types.RoleSystem:
			kind = recordSystem
		default:
			continue
		}
		records = append(records, record{
			Content:          m.Content,
			AdditionalKwargs: map[string]interface{}{},
			ResponseMetadata: map[string]interface{}{},
			Type:             kind,
		})
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode thread: %w", err)
	}
	return data, nil
}

// Decode parses a thread payload. Records of unknown type are skipped.
func Decode(data []byte) ([]*types.Message, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode thread: %w", err)
	}
	messages := make([]*types.Message, 0, len(records))
	for _, r := range records {
		switch r.Type {
		case recordHuman:
			messages = append(messages, types.NewUserMessage(r.Content))
		case recordAI:
			messages = append(messages, types.NewAssistantMessage(r.Content))
		case recordSystem:
			messages = append(messages, types.NewSystemMessage(r.Content))
		}
	}
	return messages, nil
}

// SanitizeName validates a user-supplied thread name and drops a trailing
// ".json". Names may only use [A-Za-z0-9._ -]; anything else, ".." and a
// leading dot are rejected, so two distinct names never share a file.
func SanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimSpace(strings.TrimSuffix(name, ".json"))
	if name == "" {
		return "", ErrEmptyName
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		if !validNameRune(r) {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidName, name, r)
		}
	}
	return name, nil
}

func validNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == ' ', r == '-':
		return true
	}
	return false
}
