package core

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a drawing or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUsernameTaken is returned by CreateUser when the username is in use.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrUnknownUser is returned by SaveDrawing when userId references no user.
	ErrUnknownUser = errors.New("user does not exist")
)

type (
	// Drawing is a persisted editor document. Data is the editor's serialized
	// state and is stored verbatim.
	Drawing struct {
		ID        int64  `json:"id"`
		UserID    *int64 `json:"userId"`
		Name      string `json:"name"`
		Data      string `json:"data"`
		CreatedAt string `json:"createdAt"`
		UpdatedAt string `json:"updatedAt"`
	}

	// NewDrawing holds the fields a caller supplies when saving a drawing
	// for the first time. Empty timestamps are filled in by the store.
	NewDrawing struct {
		UserID    *int64
		Name      string
		Data      string
		CreatedAt string
		UpdatedAt string
	}

	User struct {
		ID           int64  `json:"id"`
		Username     string `json:"username"`
		PasswordHash string `json:"-"`
	}

	NewUser struct {
		Username string
		Password string
	}

	UserStore interface {
		CreateUser(ctx context.Context, user *NewUser) (*User, error)
		GetUser(ctx context.Context, id int64) (*User, error)
		GetUserByUsername(ctx context.Context, username string) (*User, error)
	}

	DrawingStore interface {
		SaveDrawing(ctx context.Context, drawing *NewDrawing) (*Drawing, error)
		GetDrawing(ctx context.Context, id int64) (*Drawing, error)
		GetDrawingsByUserID(ctx context.Context, userID int64) ([]*Drawing, error)
		UpdateDrawing(ctx context.Context, id int64, data string) (*Drawing, error)
		GetAllDrawings(ctx context.Context) ([]*Drawing, error)
	}
)

// Clone returns a copy of d that shares no memory with it.
func (d *Drawing) Clone() *Drawing {
	c := *d
	if d.UserID != nil {
		uid := *d.UserID
		c.UserID = &uid
	}
	return &c
}
