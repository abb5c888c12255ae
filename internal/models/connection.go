package models

import (
	"strings"

	"gorm.io/datatypes"
)

// ConnectionType identifies the engine of a managed data source.
type ConnectionType string

const (
	ConnectionTypePostgres      ConnectionType = "postgres"
	ConnectionTypeMySQL         ConnectionType = "mysql"
	ConnectionTypeMSSQL         ConnectionType = "mssql"
	ConnectionTypeOracle        ConnectionType = "oracledb"
	ConnectionTypeMongo         ConnectionType = "mongodb"
	ConnectionTypeDB2           ConnectionType = "ibmdb2"
	ConnectionTypeDynamo        ConnectionType = "dynamodb"
	ConnectionTypeElasticsearch ConnectionType = "elasticsearch"
	ConnectionTypeCassandra     ConnectionType = "cassandra"
	ConnectionTypeRedis         ConnectionType = "redis"
	ConnectionTypeClickHouse    ConnectionType = "clickhouse"
)

var knownConnectionTypes = map[ConnectionType]struct{}{
	ConnectionTypePostgres:      {},
	ConnectionTypeMySQL:         {},
	ConnectionTypeMSSQL:         {},
	ConnectionTypeOracle:        {},
	ConnectionTypeMongo:         {},
	ConnectionTypeDB2:           {},
	ConnectionTypeDynamo:        {},
	ConnectionTypeElasticsearch: {},
	ConnectionTypeCassandra:     {},
	ConnectionTypeRedis:         {},
	ConnectionTypeClickHouse:    {},
}

// ParseConnectionType normalises and validates a connection type string.
func ParseConnectionType(value string) (ConnectionType, bool) {
	t := ConnectionType(strings.ToLower(strings.TrimSpace(value)))
	_, ok := knownConnectionTypes[t]
	return t, ok
}

// Connection describes an external database registered by a user. Secret material is
// tagged json:"-" and must never leave the process.
type Connection struct {
	BaseModel

	Title    string         `gorm:"not null" json:"title"`
	Type     ConnectionType `gorm:"not null;index" json:"type"`
	Host     string         `json:"host"`
	Port     int            `json:"port"`
	Username string         `json:"username"`
	Password string         `json:"-"`
	Database string         `json:"database"`
	Schema   string         `json:"schema"`
	SID      string         `gorm:"column:sid" json:"sid"`
	SSL      bool           `gorm:"column:ssl" json:"ssl"`
	Cert     string         `json:"-"`

	SSH           bool   `gorm:"column:ssh" json:"ssh"`
	SSHHost       string `gorm:"column:ssh_host" json:"sshHost"`
	SSHPort       int    `gorm:"column:ssh_port" json:"sshPort"`
	SSHUsername   string `gorm:"column:ssh_username" json:"sshUsername"`
	PrivateSSHKey string `gorm:"column:private_ssh_key" json:"-"`

	IsTestConnection bool   `gorm:"default:false" json:"isTestConnection"`
	IsFrozen         bool   `gorm:"default:false" json:"isFrozen"`
	MasterEncryption bool   `gorm:"default:false" json:"masterEncryption"`
	MasterHash       string `json:"-"`

	AuthorID *string        `gorm:"type:uuid;index" json:"authorId"`
	Settings datatypes.JSON `json:"settings"`

	Groups []Group `gorm:"foreignKey:ConnectionID" json:"-"`
}
