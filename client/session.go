package client

import (
	"context"
	"drawboard-server/bridge"
	"drawboard-server/core"
	"errors"
	"sync"
	"time"
)

// ErrUnloadable is returned when a fetched drawing cannot be loaded into
// the editor.
var ErrUnloadable = errors.New("drawing data cannot be loaded")

// Session binds an editor to the API and remembers which drawing is open.
// Every operation leaves a short human-readable status behind.
type Session struct {
	client *Client
	editor bridge.Editor
	now    func() time.Time

	mu      sync.Mutex
	current *core.Drawing
	status  string
}

func NewSession(c *Client, e bridge.Editor) *Session {
	return &Session{
		client: c,
		editor: e,
		now:    time.Now,
		status: "Ready",
	}
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Current returns the open drawing as last seen by the server, or nil.
func (s *Session) Current() *core.Drawing {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.Clone()
}

func (s *Session) finish(current *core.Drawing, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current != nil {
		s.current = current
	}
	s.status = status
}

// New saves a blank document as a new drawing and clears the editor once
// the server has accepted it. On failure the editor is left untouched.
func (s *Session) New(ctx context.Context, name string) error {
	nd, err := bridge.NewDrawing(bridge.NewDocument(), name, s.now())
	if err != nil {
		s.finish(nil, "Failed to create drawing")
		return err
	}
	d, err := s.client.CreateDrawing(ctx, nd)
	if err != nil {
		s.finish(nil, "Failed to create drawing")
		return err
	}
	if err := s.editor.LoadSnapshot(bridge.EmptySnapshot()); err != nil {
		s.finish(d, "Failed to clear editor")
		return err
	}
	s.finish(d, "Created "+d.Name)
	return nil
}

// Save stores the editor's document, creating a drawing if none is open.
func (s *Session) Save(ctx context.Context) error {
	current := s.Current()

	var (
		d   *core.Drawing
		err error
	)
	if current == nil {
		var nd *core.NewDrawing
		if nd, err = bridge.NewDrawing(s.editor, "", s.now()); err == nil {
			d, err = s.client.CreateDrawing(ctx, nd)
		}
	} else {
		var data string
		if data, err = bridge.Serialize(s.editor); err == nil {
			d, err = s.client.UpdateDrawing(ctx, current.ID, data)
		}
	}
	if err != nil {
		s.finish(nil, "Failed to save drawing")
		return err
	}
	s.finish(d, "Saved")
	return nil
}

// Open fetches a drawing and loads it into the editor.
func (s *Session) Open(ctx context.Context, id int64) error {
	d, err := s.client.GetDrawing(ctx, id)
	if err != nil {
		s.finish(nil, "Failed to load drawing")
		return err
	}
	return s.load(d)
}

// OpenLatest opens the most recently updated drawing.
func (s *Session) OpenLatest(ctx context.Context) error {
	drawings, err := s.client.ListDrawings(ctx)
	if err != nil {
		s.finish(nil, "Failed to load drawing")
		return err
	}
	if len(drawings) == 0 {
		s.finish(nil, "No saved drawings")
		return nil
	}
	return s.load(drawings[0])
}

func (s *Session) load(d *core.Drawing) error {
	if !bridge.Load(s.editor, d.Data) {
		s.finish(nil, "Failed to load drawing")
		return ErrUnloadable
	}
	s.finish(d, "Loaded "+d.Name)
	return nil
}
