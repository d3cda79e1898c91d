package drawings

import (
	"drawboard-server/core"
	"drawboard-server/handlers/api/respond"
	"net/http"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	CreateRequest struct {
		UserID    *int64  `json:"userId" validate:"omitempty,gt=0"`
		Name      string  `json:"name" validate:"required"`
		Data      *string `json:"data" validate:"required"`
		CreatedAt string  `json:"createdAt" validate:"omitempty,timestamp"`
		UpdatedAt string  `json:"updatedAt" validate:"omitempty,timestamp"`
	}

	UpdateRequest struct {
		Data string `json:"data"`
	}
)

// checkOrder rejects an explicit updatedAt earlier than createdAt.
func (req *CreateRequest) checkOrder() bool {
	if req.CreatedAt == "" || req.UpdatedAt == "" {
		return true
	}
	created, err := core.ParseTimestamp(req.CreatedAt)
	if err != nil {
		return false
	}
	updated, err := core.ParseTimestamp(req.UpdatedAt)
	if err != nil {
		return false
	}
	return !updated.Before(created)
}

func HandleCreate(store core.DrawingStore, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		if !respond.DecodeJSON(w, r, maxBytes, &req) {
			return
		}
		if !req.checkOrder() {
			respond.Error(w, r, http.StatusBadRequest, "updatedAt must not be before createdAt")
			return
		}

		drawing, err := store.SaveDrawing(r.Context(), &core.NewDrawing{
			UserID:    req.UserID,
			Name:      req.Name,
			Data:      *req.Data,
			CreatedAt: req.CreatedAt,
			UpdatedAt: req.UpdatedAt,
		})
		if err != nil {
			respond.StoreError(w, r, err, "User not found", "Failed to save drawing")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, drawing)
	}
}

func HandleGet(store core.DrawingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.ParseID(r, "id")
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "Invalid drawing ID")
			return
		}

		drawing, err := store.GetDrawing(r.Context(), id)
		if err != nil {
			respond.StoreError(w, r, err, "Drawing not found", "Failed to retrieve drawing")
			return
		}

		render.JSON(w, r, drawing)
	}
}

// HandleList returns every drawing, most recently updated first.
func HandleList(store core.DrawingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		drawings, err := store.GetAllDrawings(r.Context())
		if err != nil {
			respond.StoreError(w, r, err, "Drawing not found", "Failed to retrieve drawings")
			return
		}
		if drawings == nil {
			drawings = []*core.Drawing{}
		}

		core.SortByRecency(drawings)
		render.JSON(w, r, drawings)
	}
}

func HandleListByUser(store core.DrawingStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := respond.ParseID(r, "userId")
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "Invalid user ID")
			return
		}

		drawings, err := store.GetDrawingsByUserID(r.Context(), userID)
		if err != nil {
			respond.StoreError(w, r, err, "User not found", "Failed to retrieve drawings")
			return
		}
		if drawings == nil {
			drawings = []*core.Drawing{}
		}

		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"count":   len(drawings),
		}).Debug("Listed drawings for user")
		render.JSON(w, r, drawings)
	}
}

func HandleUpdate(store core.DrawingStore, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.ParseID(r, "id")
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "Invalid drawing ID")
			return
		}

		var req UpdateRequest
		if !respond.DecodeJSON(w, r, maxBytes, &req) {
			return
		}
		if req.Data == "" {
			respond.Error(w, r, http.StatusBadRequest, "Drawing data is required")
			return
		}

		drawing, err := store.UpdateDrawing(r.Context(), id, req.Data)
		if err != nil {
			respond.StoreError(w, r, err, "Drawing not found", "Failed to update drawing")
			return
		}

		render.JSON(w, r, drawing)
	}
}
