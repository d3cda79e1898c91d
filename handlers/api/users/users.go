package users

import (
	"drawboard-server/core"
	"drawboard-server/handlers/api/respond"
	"net/http"

	"github.com/go-chi/render"
)

// CreateRequest registers a user. bcrypt cannot hash passwords longer than
// 72 bytes.
type CreateRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,bcryptlen"`
}

func HandleCreate(store core.UserStore, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		if !respond.DecodeJSON(w, r, maxBytes, &req) {
			return
		}

		user, err := store.CreateUser(r.Context(), &core.NewUser{
			Username: req.Username,
			Password: req.Password,
		})
		if err != nil {
			respond.StoreError(w, r, err, "User not found", "Failed to create user")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, user)
	}
}

func HandleGet(store core.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.ParseID(r, "userId")
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "Invalid user ID")
			return
		}

		user, err := store.GetUser(r.Context(), id)
		if err != nil {
			respond.StoreError(w, r, err, "User not found", "Failed to retrieve user")
			return
		}

		render.JSON(w, r, user)
	}
}
