package app

import (
	"errors"
	"net/http"

	"cafelog/internal/apperr"
	"cafelog/internal/util"

	"github.com/gin-gonic/gin"
)

// domainError maps a service error to its HTTP status and stable error kind.
// Storage-level failures that were not translated into a domain kind surface
// as a generic 500 without leaking the raw error.
func domainError(c *gin.Context, err error) {
	var unconfirmed *apperr.UnconfirmedFriendsError
	if errors.As(err, &unconfirmed) {
		util.ErrorResponseWithKind(c, http.StatusBadRequest, "unconfirmed_friends", unconfirmed.Error(), gin.H{
			"missing": unconfirmed.Missing,
		})
		return
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		util.ErrorResponseWithKind(c, statusForKind(appErr.Kind), appErr.Kind, appErr.Message, nil)
		return
	}

	util.ErrorResponse(c, http.StatusInternalServerError, "Something went wrong", nil)
}

func statusForKind(kind string) int {
	switch kind {
	case "not_found", "not_invited":
		return http.StatusNotFound
	case "not_authorized", "not_owner", "not_participant":
		return http.StatusForbidden
	case "already_resolved", "already_responded", "duplicate_relation", "duplicate_review":
		return http.StatusConflict
	case "self_relation", "cannot_remove_creator":
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}
