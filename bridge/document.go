package bridge

import (
	"encoding/json"
	"fmt"
	"sync"
)

const schemaVersion = 2

// EmptySnapshot returns the state of a blank document.
func EmptySnapshot() Snapshot {
	return Snapshot{
		"store":  map[string]any{},
		"schema": map[string]any{"schemaVersion": float64(schemaVersion)},
	}
}

// Document is an in-memory Editor. Its snapshot has a "store" object
// mapping record ids to records, next to a "schema" description.
type Document struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

func NewDocument() *Document {
	return &Document{snapshot: EmptySnapshot()}
}

// GetSnapshot returns a deep copy of the current state.
func (d *Document) GetSnapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, _ := normalize(d.snapshot)
	return c
}

// LoadSnapshot replaces the document. Snapshots without a "store" object
// are refused.
func (d *Document) LoadSnapshot(snapshot Snapshot) error {
	if _, ok := snapshot["store"].(map[string]any); !ok {
		return fmt.Errorf("%w: missing store object", ErrInvalidSnapshot)
	}
	normalized, err := normalize(snapshot)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	d.mu.Lock()
	d.snapshot = normalized
	d.mu.Unlock()
	return nil
}

// Put adds or replaces the record stored under id.
func (d *Document) Put(id string, record map[string]any) error {
	normalized, err := normalize(record)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshot["store"].(map[string]any)[id] = normalized
	return nil
}

// Record returns a copy of the record stored under id.
func (d *Document) Record(id string) (map[string]any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.snapshot["store"].(map[string]any)[id].(map[string]any)
	if !ok {
		return nil, false
	}
	c, _ := normalize(rec)
	return c, true
}

func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.snapshot["store"].(map[string]any))
}

// normalize deep-copies v through JSON so that stored state only holds
// the types a decoded snapshot can contain.
func normalize(v map[string]any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
