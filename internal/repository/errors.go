package repository

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	appErrors "github.com/charlesng35/dbpanel/pkg/errors"
)

// ErrDuplicate is returned when a write collides with a unique index.
var ErrDuplicate = errors.New("repository: duplicate record")

// ErrDuplicatePermission rejects a second connection or group permission row for a group.
var ErrDuplicatePermission = appErrors.New(
	"DUPLICATE_PERMISSION",
	"Group already holds a permission of this type",
	http.StatusBadRequest,
)

// IsUniqueConstraintError detects database uniqueness constraint violations across vendors.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	// sqlite reports "UNIQUE constraint failed: <table>.<column>"
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}

func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if IsUniqueConstraintError(err) {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
