package permissions

import (
	"net/http"

	appErrors "github.com/charlesng35/dbpanel/pkg/errors"
)

var (
	ErrMissingIdentifier = appErrors.New("MISSING_IDENTIFIER", "Required identifier is missing", http.StatusBadRequest)
	ErrInvalidIdentifier = appErrors.New("INVALID_IDENTIFIER", "Identifier has invalid syntax", http.StatusBadRequest)

	ErrGroupNotFound      = appErrors.New("GROUP_NOT_FOUND", "Group not found", http.StatusBadRequest)
	ErrConnectionNotFound = appErrors.New("CONNECTION_NOT_FOUND", "Connection not found", http.StatusBadRequest)
	ErrCrossTenant        = appErrors.New("CROSS_TENANT_MISMATCH", "Group does not belong to this connection", http.StatusBadRequest)
	ErrImmutableGroup     = appErrors.New("IMMUTABLE_GROUP", "Permissions of the Admin group cannot be changed", http.StatusForbidden)

	ErrMasterPasswordInvalid = appErrors.New("MASTER_PASSWORD_INVALID", "Master password is missing or incorrect", http.StatusBadRequest)
	ErrTableNotFound         = appErrors.New("TABLE_NOT_FOUND", "Table not found", http.StatusBadRequest)

	// ErrAccessDenied is the uniform denial rendered by guards.
	ErrAccessDenied = appErrors.ErrForbidden
)
