package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-classroom-auth"
	"github.com/goliatone/go-classroom-auth/social"
)

func setupManager(t *testing.T) (*Manager, *bun.DB) {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := NewManager(db)
	require.NoError(t, m.Validate())
	require.NoError(t, m.CreateSchema(ctx))

	return m, db
}

func githubDraft(id, email string) social.ProfileDraft {
	return social.ProfileDraft{
		Provider:       "github",
		ProviderUserID: id,
		Email:          email,
		DisplayName:    "Ada Lovelace",
		AvatarURL:      "https://avatars.example.com/ada.png",
	}
}

func TestFindOrCreate_CreatesUserWithoutRole(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	user, created, err := m.SocialAccounts().FindOrCreate(ctx, githubDraft("42", "ada@example.com"))
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.True(t, created)
	assert.True(t, user.Role.IsUnset())
	assert.Equal(t, auth.UserStatusActive, user.Status)
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "https://avatars.example.com/ada.png", user.ProfilePicture)

	account, err := m.SocialAccounts().FindByProviderID(ctx, "github", "42")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), account.UserID)
	assert.Equal(t, "ada@example.com", account.Email)
}

func TestFindOrCreate_ReturnsLinkedUser(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	first, created, err := m.SocialAccounts().FindOrCreate(ctx, githubDraft("42", "ada@example.com"))
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := m.SocialAccounts().FindOrCreate(ctx, githubDraft("42", "ada@example.com"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	accounts, err := m.SocialAccounts().FindByUserID(ctx, first.ID.String())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestFindOrCreate_LinksExistingUserByEmail(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	existing, err := m.Users().Register(ctx, &auth.User{
		ID:    uuid.New(),
		Name:  "Ada",
		Email: "ada@example.com",
		Role:  auth.RoleStudent,
	})
	require.NoError(t, err)

	user, created, err := m.SocialAccounts().FindOrCreate(ctx, githubDraft("42", "ada@example.com"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, existing.ID, user.ID)
	assert.Equal(t, auth.RoleStudent, user.Role)

	google := githubDraft("g-1", "ada@example.com")
	google.Provider = "google"
	_, created, err = m.SocialAccounts().FindOrCreate(ctx, google)
	require.NoError(t, err)
	assert.False(t, created)

	accounts, err := m.SocialAccounts().FindByUserID(ctx, existing.ID.String())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "github", accounts[0].Provider)
	assert.Equal(t, "google", accounts[1].Provider)
}

func TestFindOrCreate_WithoutEmailAlwaysCreates(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	a, created, err := m.SocialAccounts().FindOrCreate(ctx, githubDraft("1", ""))
	require.NoError(t, err)
	assert.True(t, created)

	b, created, err := m.SocialAccounts().FindOrCreate(ctx, githubDraft("2", ""))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Empty(t, b.Email)
}

func TestFindOrCreate_RejectsUnusableDraft(t *testing.T) {
	m, _ := setupManager(t)

	user, created, err := m.SocialAccounts().FindOrCreate(context.Background(), social.ProfileDraft{Provider: "github"})
	require.Error(t, err)
	assert.ErrorIs(t, err, social.ErrUnusableProfile)
	assert.Nil(t, user)
	assert.False(t, created)
}

func TestFindByProviderID_NotFound(t *testing.T) {
	m, _ := setupManager(t)

	account, err := m.SocialAccounts().FindByProviderID(context.Background(), "github", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	assert.Nil(t, account)
}

func TestFindByUserID_InvalidID(t *testing.T) {
	m, _ := setupManager(t)

	_, err := m.SocialAccounts().FindByUserID(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.Equal(t, auth.KindValidation, auth.KindOf(err))
}

func TestUsersRepository_SelectRoleOnlyOnce(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	user, _, err := m.SocialAccounts().FindOrCreate(ctx, githubDraft("7", "grace@example.com"))
	require.NoError(t, err)

	updated, err := m.Users().SelectRole(ctx, user.ID, auth.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleInstructor, updated.Role)

	_, err = m.Users().SelectRole(ctx, user.ID, auth.RoleStudent)
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrRoleAlreadySelected)

	stored, err := m.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleInstructor, stored.Role)
}

func TestUsersRepository_BlockAndLookup(t *testing.T) {
	m, _ := setupManager(t)
	ctx := context.Background()

	user, _, err := m.SocialAccounts().FindOrCreate(ctx, githubDraft("8", "Linus@Example.com"))
	require.NoError(t, err)

	blocked, err := m.Users().Block(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, blocked.IsBlocked())

	byEmail, err := m.Users().GetByIdentifier(ctx, "linus@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.True(t, byEmail.IsBlocked())

	byID, err := m.Users().GetByIdentifier(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, user.ID, byID.ID)
}
