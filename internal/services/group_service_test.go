package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/dbpanel/internal/models"
	"github.com/charlesng35/dbpanel/internal/permissions"
)

func TestGroupServiceCreateRejectsTitleCollision(t *testing.T) {
	f := newServiceFixture(t)
	owner := f.user("owner@example.com")
	conn := f.ownedConnection(owner, "crm")
	svc := f.groupService()

	group, err := svc.Create(f.ctx, conn.ID, CreateGroupInput{Title: " Analysts "})
	require.NoError(t, err)
	require.Equal(t, "Analysts", group.Title)
	require.False(t, group.IsMain)

	_, err = svc.Create(f.ctx, conn.ID, CreateGroupInput{Title: "Analysts"})
	require.ErrorIs(t, err, ErrGroupTitleTaken)

	_, err = svc.Create(f.ctx, conn.ID, CreateGroupInput{Title: "Admin"})
	require.ErrorIs(t, err, ErrGroupTitleTaken)

	// Titles differing only in case are distinct groups.
	lower, err := svc.Create(f.ctx, conn.ID, CreateGroupInput{Title: "analysts"})
	require.NoError(t, err)
	require.Equal(t, "analysts", lower.Title)

	_, err = svc.Create(f.ctx, conn.ID, CreateGroupInput{Title: "admin"})
	require.NoError(t, err)

	other := f.ownedConnection(owner, "billing")
	_, err = svc.Create(f.ctx, other.ID, CreateGroupInput{Title: "Analysts"})
	require.NoError(t, err)

	_, err = svc.Create(f.ctx, "00000000-0000-0000-0000-000000000000", CreateGroupInput{Title: "Ghosts"})
	require.ErrorIs(t, err, permissions.ErrConnectionNotFound)
}

func TestGroupServiceDeleteProtectsAdminGroup(t *testing.T) {
	f := newServiceFixture(t)
	owner := f.user("owner@example.com")
	conn := f.ownedConnection(owner, "crm")
	svc := f.groupService()

	main, err := f.store.Groups().FindMain(f.ctx, conn.ID)
	require.NoError(t, err)
	require.ErrorIs(t, svc.Delete(f.ctx, main.ID), ErrMainGroupDelete)

	group, err := svc.Create(f.ctx, conn.ID, CreateGroupInput{Title: "Temp"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(f.ctx, group.ID))
	require.Equal(t, []string{conn.ID}, f.cache.Calls())

	require.ErrorIs(t, svc.Delete(f.ctx, group.ID), permissions.ErrGroupNotFound)
}

func TestGroupServiceMembership(t *testing.T) {
	f := newServiceFixture(t)
	owner := f.user("owner@example.com")
	bob := f.user("bob@example.com")
	conn := f.ownedConnection(owner, "crm")
	svc := f.groupService()

	group, err := svc.Create(f.ctx, conn.ID, CreateGroupInput{Title: "Support"})
	require.NoError(t, err)

	added, err := svc.AddMember(f.ctx, group.ID, AddMemberInput{Email: " BOB@example.com"})
	require.NoError(t, err)
	require.Equal(t, bob.ID, added.ID)

	_, err = svc.AddMember(f.ctx, group.ID, AddMemberInput{Email: "bob@example.com"})
	require.ErrorIs(t, err, ErrMemberExists)

	_, err = svc.AddMember(f.ctx, group.ID, AddMemberInput{Email: "nobody@example.com"})
	require.ErrorIs(t, err, ErrUserNotFound)

	members, err := svc.Members(f.ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, "bob@example.com", members[0].Email)

	require.NoError(t, svc.RemoveMember(f.ctx, group.ID, bob.ID))
	require.ErrorIs(t, svc.RemoveMember(f.ctx, group.ID, bob.ID), ErrMemberNotFound)

	members, err = svc.Members(f.ctx, group.ID)
	require.NoError(t, err)
	require.Empty(t, members)

	require.Equal(t, []string{conn.ID, conn.ID}, f.cache.Calls())
	actions := f.auditActions()
	require.Contains(t, actions, "group.add_member")
	require.Contains(t, actions, "group.remove_member")
}

func TestGroupServiceKeepsLastAdminMember(t *testing.T) {
	f := newServiceFixture(t)
	owner := f.user("owner@example.com")
	second := f.user("second@example.com")
	conn := f.ownedConnection(owner, "crm")
	svc := f.groupService()

	main, err := f.store.Groups().FindMain(f.ctx, conn.ID)
	require.NoError(t, err)

	require.ErrorIs(t, svc.RemoveMember(f.ctx, main.ID, owner.ID), ErrLastAdminMember)

	_, err = svc.AddMember(f.ctx, main.ID, AddMemberInput{Email: second.Email})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveMember(f.ctx, main.ID, owner.ID))
	require.ErrorIs(t, svc.RemoveMember(f.ctx, main.ID, second.ID), ErrLastAdminMember)
}

func TestGroupServiceListReportsCallerAccess(t *testing.T) {
	f := newServiceFixture(t)
	owner := f.user("owner@example.com")
	viewer := f.user("viewer@example.com")
	conn := f.ownedConnection(owner, "crm")
	svc := f.groupService()

	readers, err := svc.Create(f.ctx, conn.ID, CreateGroupInput{Title: "Readers"})
	require.NoError(t, err)
	_, err = svc.AddMember(f.ctx, readers.ID, AddMemberInput{Email: viewer.Email})
	require.NoError(t, err)
	require.NoError(t, f.store.Permissions().SaveNewOrUpdated(f.ctx, &models.Permission{
		Type: models.PermissionTypeGroup, AccessLevel: "readonly", GroupID: readers.ID,
	}))

	listing, err := svc.ListForConnection(f.ctx, owner.ID, conn.ID)
	require.NoError(t, err)
	require.Len(t, listing.Groups, 2)
	require.True(t, listing.Groups[0].IsMain)
	require.Equal(t, permissions.AccessEdit, listing.AccessLevel)

	listing, err = svc.ListForConnection(f.ctx, viewer.ID, conn.ID)
	require.NoError(t, err)
	require.Equal(t, permissions.AccessReadonly, listing.AccessLevel)
}
