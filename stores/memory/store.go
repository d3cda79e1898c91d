package memory

import (
	"context"
	"drawboard-server/core"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// memStore keeps users and drawings in process memory. Ids come from
// per-table counters and are never reused.
type memStore struct {
	mu sync.RWMutex

	users       map[int64]core.User
	usernames   map[string]int64
	drawings    map[int64]*core.Drawing
	drawingIDs  []int64
	lastUserID  int64
	lastDrawing int64

	now func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *memStore {
	return &memStore{
		users:     make(map[int64]core.User),
		usernames: make(map[string]int64),
		drawings:  make(map[int64]*core.Drawing),
		now:       time.Now,
	}
}

func (s *memStore) CreateUser(ctx context.Context, user *core.NewUser) (*core.User, error) {
	log := logrus.WithField("username", user.Username)

	hash, err := core.HashPassword(user.Password)
	if err != nil {
		log.WithError(err).Error("Failed to hash password")
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[user.Username]; taken {
		log.Warn("Username already exists")
		return nil, fmt.Errorf("create user %q: %w", user.Username, core.ErrUsernameTaken)
	}

	s.lastUserID++
	created := core.User{ID: s.lastUserID, Username: user.Username, PasswordHash: hash}
	s.users[created.ID] = created
	s.usernames[created.Username] = created.ID

	log.WithField("user_id", created.ID).Info("User created successfully")
	return &created, nil
}

func (s *memStore) GetUser(ctx context.Context, id int64) (*core.User, error) {
	s.mu.RLock()
	user, ok := s.users[id]
	s.mu.RUnlock()

	if !ok {
		logrus.WithField("user_id", id).Warn("User with specified ID not found")
		return nil, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return &user, nil
}

func (s *memStore) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usernames[username]
	if !ok {
		logrus.WithField("username", username).Warn("User with specified username not found")
		return nil, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
	}
	user := s.users[id]
	return &user, nil
}

func (s *memStore) SaveDrawing(ctx context.Context, drawing *core.NewDrawing) (*core.Drawing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if drawing.UserID != nil {
		if _, ok := s.users[*drawing.UserID]; !ok {
			logrus.WithField("user_id", *drawing.UserID).Warn("Drawing owner does not exist")
			return nil, fmt.Errorf("save drawing for user %d: %w", *drawing.UserID, core.ErrUnknownUser)
		}
	}

	nd := *drawing
	core.FillTimestamps(&nd, s.now())

	s.lastDrawing++
	created := &core.Drawing{
		ID:        s.lastDrawing,
		UserID:    nd.UserID,
		Name:      nd.Name,
		Data:      nd.Data,
		CreatedAt: nd.CreatedAt,
		UpdatedAt: nd.UpdatedAt,
	}
	s.drawings[created.ID] = created.Clone()
	s.drawingIDs = append(s.drawingIDs, created.ID)

	logrus.WithFields(logrus.Fields{
		"drawing_id":  created.ID,
		"data_length": len(created.Data),
	}).Info("Drawing created successfully")

	return created, nil
}

func (s *memStore) GetDrawing(ctx context.Context, id int64) (*core.Drawing, error) {
	log := logrus.WithField("drawing_id", id)

	s.mu.RLock()
	drawing, ok := s.drawings[id]
	s.mu.RUnlock()

	if !ok {
		log.Warn("Drawing with specified ID not found")
		return nil, fmt.Errorf("drawing %d: %w", id, core.ErrNotFound)
	}

	log.Debug("Drawing retrieved successfully")
	return drawing.Clone(), nil
}

func (s *memStore) GetDrawingsByUserID(ctx context.Context, userID int64) ([]*core.Drawing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drawings := make([]*core.Drawing, 0)
	for _, id := range s.drawingIDs {
		d := s.drawings[id]
		if d.UserID != nil && *d.UserID == userID {
			drawings = append(drawings, d.Clone())
		}
	}

	logrus.WithField("user_id", userID).Debugf("Listed %d drawings", len(drawings))
	return drawings, nil
}

func (s *memStore) UpdateDrawing(ctx context.Context, id int64, data string) (*core.Drawing, error) {
	log := logrus.WithField("drawing_id", id)

	s.mu.Lock()
	defer s.mu.Unlock()

	drawing, ok := s.drawings[id]
	if !ok {
		log.Warn("Drawing with specified ID not found")
		return nil, fmt.Errorf("drawing %d: %w", id, core.ErrNotFound)
	}

	drawing.Data = data
	drawing.UpdatedAt = core.NextUpdatedAt(drawing, s.now())

	log.WithField("data_length", len(data)).Info("Drawing updated successfully")
	return drawing.Clone(), nil
}

func (s *memStore) GetAllDrawings(ctx context.Context) ([]*core.Drawing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drawings := make([]*core.Drawing, 0, len(s.drawingIDs))
	for _, id := range s.drawingIDs {
		drawings = append(drawings, s.drawings[id].Clone())
	}
	return drawings, nil
}

// Close is a no-op.
func (s *memStore) Close() error {
	return nil
}
