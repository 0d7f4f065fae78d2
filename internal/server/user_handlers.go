package server

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleCreateUser registers an account
func (ms *MusicServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	if verr := validateUsername(req.Username); verr != nil {
		ms.respondWithError(w, r, verr.asAppError())
		return
	}
	if verr := validatePassword(req.Password); verr != nil {
		ms.respondWithError(w, r, verr.asAppError())
		return
	}

	user, err := ms.db.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}

	ms.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User created")
	ms.respondMessage(w, http.StatusOK, "User created successfully")
}

// handleAuthenticateUser checks credentials from the query string, or from
// a JSON body when the query carries none
func (ms *MusicServer) handleAuthenticateUser(w http.ResponseWriter, r *http.Request) {
	req := credentialsRequest{
		Username: r.URL.Query().Get("username"),
		Password: r.URL.Query().Get("password"),
	}
	if req.Username == "" && req.Password == "" && r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			ms.respondWithError(w, r, err)
			return
		}
	}

	user, err := ms.db.AuthenticateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		ms.respondWithError(w, r, err)
		return
	}
	ms.respondJSON(w, http.StatusOK, toUserRecord(user))
}
