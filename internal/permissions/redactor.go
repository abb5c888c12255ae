package permissions

import "github.com/charlesng35/dbpanel/internal/models"

// ConnectionView is the client-facing representation of a connection.
type ConnectionView map[string]any

// redactedKeys survive redaction when the caller's access is none.
var redactedKeys = []string{"id", "title", "database", "type"}

// NewConnectionView projects a connection into a view. Secret material (password,
// cert, private SSH key, master hash) is never copied.
func NewConnectionView(conn *models.Connection) ConnectionView {
	if conn == nil {
		return nil
	}
	return ConnectionView{
		"id":               conn.ID,
		"title":            conn.Title,
		"type":             string(conn.Type),
		"host":             conn.Host,
		"port":             conn.Port,
		"username":         conn.Username,
		"database":         conn.Database,
		"schema":           conn.Schema,
		"sid":              conn.SID,
		"ssl":              conn.SSL,
		"ssh":              conn.SSH,
		"sshHost":          conn.SSHHost,
		"sshPort":          conn.SSHPort,
		"sshUsername":      conn.SSHUsername,
		"isTestConnection": conn.IsTestConnection,
		"isFrozen":         conn.IsFrozen,
		"masterEncryption": conn.MasterEncryption,
		"authorId":         conn.AuthorID,
		"settings":         conn.Settings,
		"createdAt":        conn.CreatedAt,
		"updatedAt":        conn.UpdatedAt,
	}
}

// Redact returns a new view holding only the identifying keys when level is none,
// and the view itself otherwise.
func Redact(view ConnectionView, level AccessLevel) ConnectionView {
	if level.AtLeast(AccessReadonly) {
		return view
	}
	out := make(ConnectionView, len(redactedKeys))
	for _, key := range redactedKeys {
		if value, ok := view[key]; ok {
			out[key] = value
		}
	}
	return out
}
