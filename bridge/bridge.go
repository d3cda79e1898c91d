// Package bridge converts editor document state to and from the opaque
// string stored in a drawing's data field.
package bridge

import (
	"drawboard-server/core"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultName is used when a new drawing is created without a name.
const DefaultName = "Untitled Drawing"

// ErrInvalidSnapshot is returned by editors that refuse a snapshot.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

type (
	// Snapshot is the editor's document state as decoded JSON.
	Snapshot = map[string]any

	// Editor is the document-editing component whose state is persisted.
	Editor interface {
		GetSnapshot() Snapshot
		LoadSnapshot(snapshot Snapshot) error
	}
)

// Serialize returns the editor's current document as a JSON string.
func Serialize(e Editor) (string, error) {
	b, err := json.Marshal(e.GetSnapshot())
	if err != nil {
		return "", fmt.Errorf("serialize snapshot: %w", err)
	}
	return string(b), nil
}

// Load restores the editor from data produced by Serialize. Malformed or
// rejected input is logged and leaves the editor untouched; the result
// reports whether the document was replaced.
func Load(e Editor, data string) bool {
	log := logrus.WithField("data_length", len(data))

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		log.WithError(err).Warn("Failed to load drawing")
		return false
	}
	if snapshot == nil {
		log.Warn("Failed to load drawing: empty snapshot")
		return false
	}
	if err := e.LoadSnapshot(snapshot); err != nil {
		log.WithError(err).Warn("Failed to load drawing")
		return false
	}
	return true
}

// NewDrawing captures the editor's document as a drawing ready to be saved,
// stamped with now for both timestamps.
func NewDrawing(e Editor, name string, now time.Time) (*core.NewDrawing, error) {
	if name == "" {
		name = DefaultName
	}
	data, err := Serialize(e)
	if err != nil {
		return nil, err
	}
	stamp := core.FormatTimestamp(now)
	return &core.NewDrawing{
		Name:      name,
		Data:      data,
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}, nil
}
