package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/josh-kwaku/pix-relay/internal/auth"
)

func callerID(r *http.Request) (uuid.UUID, *AppError) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, ErrMissingToken
	}
	return id, nil
}

// userFromPath reads {id}. Unparseable ids read as not found.
func userFromPath(r *http.Request) (uuid.UUID, *AppError) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, ErrResourceNotFound
	}
	return userID, nil
}
