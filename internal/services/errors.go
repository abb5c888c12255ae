package services

import (
	"errors"
	"net/http"

	apperrors "github.com/charlesng35/dbpanel/pkg/errors"
	"github.com/charlesng35/dbpanel/pkg/validator"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusBadRequest)
	// ErrEmailTaken rejects a registration for an address already in use.
	ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "Email address is already registered", http.StatusBadRequest)

	ErrGroupTitleTaken = apperrors.New("GROUP_TITLE_TAKEN", "A group with this title already exists on the connection", http.StatusBadRequest)
	ErrMemberExists    = apperrors.New("MEMBER_EXISTS", "User is already a member of this group", http.StatusBadRequest)
	ErrMemberNotFound  = apperrors.New("MEMBER_NOT_FOUND", "User is not a member of this group", http.StatusBadRequest)
	// ErrLastAdminMember keeps at least one member in the Admin group of every connection.
	ErrLastAdminMember = apperrors.New("LAST_ADMIN_MEMBER", "The last member of the Admin group cannot be removed", http.StatusForbidden)
	// ErrMainGroupDelete protects the Admin group from deletion.
	ErrMainGroupDelete = apperrors.New("IMMUTABLE_GROUP", "The Admin group cannot be deleted", http.StatusForbidden)
)

// invalidInput maps validator failures to a BAD_REQUEST carrying the field summary.
func invalidInput(err error) error {
	if err == nil {
		return nil
	}
	var failures validator.ValidationErrors
	if errors.As(err, &failures) {
		return apperrors.NewBadRequest(failures.Error())
	}
	return apperrors.ErrBadRequest.WithInternal(err)
}
