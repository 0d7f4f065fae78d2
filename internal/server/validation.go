package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"soundshelf/internal/apperr"
	"soundshelf/pkg/models"

	"github.com/sirupsen/logrus"
)

// ValidationError describes one rejected input field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (v *ValidationError) Error() string {
	return v.Message
}

// asAppError converts a field error into the 400 the client sees
func (v *ValidationError) asAppError() error {
	return apperr.Validation(v.Message).WithDetails(v.Code)
}

// respondJSON writes data as a JSON body with the given status
func (ms *MusicServer) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		ms.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// respondMessage writes a {message} body
func (ms *MusicServer) respondMessage(w http.ResponseWriter, statusCode int, message string) {
	ms.respondJSON(w, statusCode, models.MessageResponse{Message: message})
}

// respondWithError maps err to its status and writes {message, details}
func (ms *MusicServer) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := apperr.Status(err)
	message, details := apperr.Message(err)

	logEntry := ms.logger.WithFields(logrus.Fields{
		"request_id":  requestIDFrom(r.Context()),
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"kind":        apperr.KindOf(err).String(),
	}).WithError(err)

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	ms.respondJSON(w, statusCode, models.MessageResponse{Message: message, Details: details})
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}

// validateID parses a positive integer identifier
func validateID(field, raw string) (int, *ValidationError) {
	label := idLabel(field)
	if raw == "" {
		return 0, &ValidationError{
			Field:   field,
			Message: label + " is required",
			Code:    "MISSING_" + strings.ToUpper(field),
		}
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Message: label + " must be a valid integer",
			Code:    "INVALID_" + strings.ToUpper(field) + "_FORMAT",
		}
	}

	if id <= 0 {
		return 0, &ValidationError{
			Field:   field,
			Message: label + " must be positive",
			Code:    "INVALID_" + strings.ToUpper(field) + "_VALUE",
		}
	}

	return id, nil
}

// validatePositive checks an identifier that arrived already decoded
func validatePositive(field string, id int) *ValidationError {
	if id <= 0 {
		return &ValidationError{
			Field:   field,
			Message: idLabel(field) + " must be positive",
			Code:    "INVALID_" + strings.ToUpper(field) + "_VALUE",
		}
	}
	return nil
}

func idLabel(field string) string {
	switch field {
	case "track_id":
		return "Track ID"
	case "playlist_id":
		return "Playlist ID"
	case "creator_id":
		return "Creator ID"
	default:
		return field
	}
}

// validatePlaylistName validates playlist name
func validatePlaylistName(name string) *ValidationError {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name is required",
			Code:    "MISSING_PLAYLIST_NAME",
		}
	}

	if len(name) > 255 {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name too long (max 255 characters)",
			Code:    "PLAYLIST_NAME_TOO_LONG",
		}
	}

	if strings.ContainsAny(name, "\x00\n\r") {
		return &ValidationError{
			Field:   "name",
			Message: "Playlist name contains invalid characters",
			Code:    "INVALID_PLAYLIST_NAME_CHARACTERS",
		}
	}

	return nil
}

// validateUsername validates usernames for new accounts
func validateUsername(username string) *ValidationError {
	if username == "" {
		return &ValidationError{
			Field:   "username",
			Message: "Username is required",
			Code:    "MISSING_USERNAME",
		}
	}

	if len(username) > 255 {
		return &ValidationError{
			Field:   "username",
			Message: "Username too long (max 255 characters)",
			Code:    "USERNAME_TOO_LONG",
		}
	}

	if strings.ContainsAny(username, "\x00\n\r") {
		return &ValidationError{
			Field:   "username",
			Message: "Username contains invalid characters",
			Code:    "INVALID_USERNAME_CHARACTERS",
		}
	}

	return nil
}

// validatePassword only rejects empty passwords
func validatePassword(password string) *ValidationError {
	if password == "" {
		return &ValidationError{
			Field:   "password",
			Message: "Password is required",
			Code:    "MISSING_PASSWORD",
		}
	}
	return nil
}
