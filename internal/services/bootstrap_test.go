package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBootstrapperProvisionsOnlyUsersWithoutConnections(t *testing.T) {
	f := newServiceFixture(t)
	fresh := f.user("fresh@example.com")
	veteran := f.user("veteran@example.com")
	f.ownedConnection(veteran, "existing")

	boot, err := NewBootstrapper(f.store, []TestConnection{
		{Title: "Demo Postgres", Type: "postgres", Host: "demo", Port: 5432, Database: "demo"},
		{Title: "Demo MySQL", Type: "mysql", Host: "demo", Port: 3306, Database: "demo"},
	}, f.audit)
	require.NoError(t, err)

	created, err := boot.Provision(f.ctx, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, 2, created)

	// A second first-login attempt that lost the race sees the provisioned rows.
	created, err = boot.Provision(f.ctx, fresh.ID)
	require.NoError(t, err)
	require.Zero(t, created)

	count, err := f.store.Connections().CountForUser(f.ctx, fresh.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	created, err = boot.Provision(f.ctx, veteran.ID)
	require.NoError(t, err)
	require.Zero(t, created)

	_, err = boot.Provision(f.ctx, "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)
}
