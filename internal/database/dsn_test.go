package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "dbpanel", Name: "dbpanel"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=dbpanel dbname=dbpanel application_name=dbpanel sslmode=disable", dsn)
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "pass",
		Options: map[string]string{
			"sslmode":          "require",
			"search_path":      "public",
			"application_name": "dbpanel-worker",
		},
	})
	require.NoError(t, err)
	require.Equal(t,
		"host=db.example.com port=6543 user=user dbname=db password=pass application_name=dbpanel-worker search_path=public sslmode=require",
		dsn,
	)
}

func TestBuildPostgresDSNPassesExplicitDSNThrough(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://u@h/db"})
	require.NoError(t, err)
	require.Equal(t, "postgres://u@h/db", dsn)
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "dbpanel", Name: "dbpanel"})
	require.NoError(t, err)
	require.Equal(t, "dbpanel@tcp(127.0.0.1:3306)/dbpanel?charset=utf8mb4&loc=Local&parseTime=True", dsn)
}

func TestBuildMySQLDSNWithOptions(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify", "loc": "UTC"},
	})
	require.NoError(t, err)
	require.Equal(t, "user:secret@tcp(db.example.com:3307)/db?charset=utf8mb4&loc=UTC&parseTime=True&tls=skip-verify", dsn)
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}
