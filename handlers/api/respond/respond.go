// Package respond holds the request decoding and error rendering shared by
// the API handlers.
package respond

import (
	"drawboard-server/core"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Message is the body of every error response.
type Message struct {
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, err := core.ParseTimestamp(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	// max counts runes; bcrypt limits bytes.
	if err := v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= core.MaxPasswordBytes
	}); err != nil {
		panic(err)
	}
	return v
}

func Error(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, Message{Message: message})
}

// ParseID reads the URL parameter as a base-10 int64.
func ParseID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}

// DecodeJSON reads a body of at most maxBytes into v and validates it.
// On failure it writes the error response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := render.DecodeJSON(r.Body, v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logrus.WithField("limit", tooLarge.Limit).Warn("Request body too large")
			Error(w, r, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		logrus.WithError(err).Warn("Failed to decode request body")
		Error(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := validate.Struct(v); err != nil {
		msg := ValidationMessage(err)
		logrus.WithField("validation", msg).Warn("Request body failed validation")
		Error(w, r, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// ValidationMessage turns validator errors into a readable sentence naming
// the JSON fields at fault.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "bcryptlen":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %d bytes", fe.Field(), core.MaxPasswordBytes))
		case "timestamp":
			msgs = append(msgs, fmt.Sprintf("%s must be an RFC 3339 timestamp", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}

// StoreError writes the response for an error returned by a store.
// notFound is the message for core.ErrNotFound, fallback the one for
// unexpected failures.
func StoreError(w http.ResponseWriter, r *http.Request, err error, notFound, fallback string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		Error(w, r, http.StatusNotFound, notFound)
	case errors.Is(err, core.ErrUsernameTaken):
		Error(w, r, http.StatusConflict, "Username already exists")
	case errors.Is(err, core.ErrUnknownUser):
		Error(w, r, http.StatusBadRequest, "userId does not reference an existing user")
	default:
		logrus.WithError(err).WithField("path", r.URL.Path).Error(fallback)
		Error(w, r, http.StatusInternalServerError, fallback)
	}
}
