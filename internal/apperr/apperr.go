// Package apperr defines the stable error kinds of the visit-sharing domain.
// Services return these instead of ad-hoc error strings so that handlers can
// map every failure to a fixed kind and HTTP status, and so that storage
// constraint violations can be translated instead of leaked.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a domain error with a stable machine-readable kind.
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrNotAuthorized: the caller has no rights over the target row.
	ErrNotAuthorized = &Error{Kind: "not_authorized", Message: "you are not allowed to act on this resource"}
	// ErrNotOwner: the caller is not the creator/author of the visit or review.
	ErrNotOwner = &Error{Kind: "not_owner", Message: "only the owner can modify this resource"}
	// ErrNotInvited: no participation row exists for the (visit, user) pair.
	ErrNotInvited = &Error{Kind: "not_invited", Message: "you were not invited to this visit"}
	// ErrNotParticipant: the caller has no accepted participation on the visit.
	ErrNotParticipant = &Error{Kind: "not_participant", Message: "you are not an accepted participant of this visit"}
	// ErrAlreadyResolved: the friendship request is no longer pending.
	ErrAlreadyResolved = &Error{Kind: "already_resolved", Message: "friend request has already been resolved"}
	// ErrAlreadyResponded: the invitation is no longer pending.
	ErrAlreadyResponded = &Error{Kind: "already_responded", Message: "invitation has already been responded to"}
	// ErrDuplicateRelation: a friendship record already exists for the pair.
	ErrDuplicateRelation = &Error{Kind: "duplicate_relation", Message: "a friendship record already exists between these users"}
	// ErrDuplicateReview: a review already exists for the (visit, user) pair.
	ErrDuplicateReview = &Error{Kind: "duplicate_review", Message: "a review already exists for this visit"}
	// ErrSelfRelation: a user tried to befriend or invite themselves.
	ErrSelfRelation = &Error{Kind: "self_relation", Message: "cannot create a relation with yourself"}
	// ErrCannotRemoveCreator: the creator's participation row is structural.
	ErrCannotRemoveCreator = &Error{Kind: "cannot_remove_creator", Message: "the visit creator cannot be removed from their own visit"}
	// ErrNotFound: the referenced entity does not exist.
	ErrNotFound = &Error{Kind: "not_found", Message: "resource not found"}
)

// UnconfirmedFriendsError is returned when the friendship gate fails. It
// carries the candidate ids that are not confirmed friends of the caller.
type UnconfirmedFriendsError struct {
	Missing []string
}

func (e *UnconfirmedFriendsError) Error() string {
	return fmt.Sprintf("users are not confirmed friends: %s", strings.Join(e.Missing, ", "))
}

// Kind returns the stable kind for err, or "" if err is not a domain error.
func Kind(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var unconfirmed *UnconfirmedFriendsError
	if errors.As(err, &unconfirmed) {
		return "unconfirmed_friends"
	}
	return ""
}
