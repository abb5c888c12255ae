package vault

import (
	"errors"
	"strings"

	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/pkg/crypto"
)

// ErrMasterPasswordRequired is returned when master encryption is enabled without a password.
var ErrMasterPasswordRequired = errors.New("vault: master password is required")

// MasterPasswordDecryptor validates and seals the per-connection master password. Only a bcrypt
// hash is persisted; the password itself never reaches storage.
type MasterPasswordDecryptor struct {
	cost int
}

// NewMasterPassword constructs a validator using the given bcrypt cost. A zero cost
// selects the library default.
func NewMasterPasswordDecryptor(cost int) *MasterPasswordDecryptor {
	return &MasterPasswordDecryptor{cost: cost}
}

// ValidateMasterPassword reports whether candidate unlocks conn. Connections without
// master encryption always validate.
func (m *MasterPasswordDecryptor) ValidateMasterPassword(conn *models.Connection, candidate string) bool {
	if conn == nil {
		return false
	}
	if !conn.MasterEncryption {
		return true
	}
	if strings.TrimSpace(candidate) == "" {
		return false
	}
	return crypto.VerifyPassword(conn.MasterHash, candidate)
}

// Seal stores the hash of password on conn and enables master encryption.
func (m *MasterPasswordDecryptor) Seal(conn *models.Connection, password string) error {
	if conn == nil {
		return errors.New("vault: connection is required")
	}
	if strings.TrimSpace(password) == "" {
		return ErrMasterPasswordRequired
	}
	hash, err := crypto.HashPasswordWithCost(password, m.cost)
	if err != nil {
		return err
	}
	conn.MasterEncryption = true
	conn.MasterHash = hash
	return nil
}
