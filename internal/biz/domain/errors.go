package domain

import "errors"

var (
	// ErrClassifierUnavailable means the classifier call failed or timed out
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrMalformedVerdict means the classifier answered with something other than SAFE or DELETE
	ErrMalformedVerdict = errors.New("malformed classifier verdict")

	// ErrPermissionDenied is returned by the platform when the bot lacks rights for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned by the platform for missing members, messages or roles
	ErrNotFound = errors.New("not found")

	// ErrAlreadyClosed is returned when resolving a review case that is no longer pending
	ErrAlreadyClosed = errors.New("review already closed")

	// ErrUnauthorized is returned when the acting user is not a reviewer
	ErrUnauthorized = errors.New("actor is not a reviewer")

	// ErrSanctionNotApplied means the jail role could not be applied, so the user was not marked jailed
	ErrSanctionNotApplied = errors.New("sanction not applied")

	// ErrReviewExists is returned by the review store when the user already has a pending case
	ErrReviewExists = errors.New("pending review already exists")
)
