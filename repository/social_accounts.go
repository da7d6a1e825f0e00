package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-classroom-auth"
	"github.com/goliatone/go-classroom-auth/social"
)

// SocialAccountRepository implements social.SocialAccountRepository and
// social.IdentityStore using Bun.
type SocialAccountRepository struct {
	db    *bun.DB
	users auth.Users
}

var (
	_ social.SocialAccountRepository = (*SocialAccountRepository)(nil)
	_ social.IdentityStore           = (*SocialAccountRepository)(nil)
)

// NewSocialAccountRepository creates a new repository.
func NewSocialAccountRepository(db *bun.DB, users auth.Users) *SocialAccountRepository {
	if users == nil {
		users = auth.NewUsersRepository(db)
	}
	return &SocialAccountRepository{db: db, users: users}
}

// FindByProviderID implements social.SocialAccountRepository.
func (r *SocialAccountRepository) FindByProviderID(ctx context.Context, provider, providerUserID string) (*social.SocialAccount, error) {
	model, err := r.findByProviderID(ctx, r.db, provider, providerUserID)
	if err != nil {
		return nil, err
	}
	return toSocialAccount(model), nil
}

// FindByUserID implements social.SocialAccountRepository.
func (r *SocialAccountRepository) FindByUserID(ctx context.Context, userID string) ([]*social.SocialAccount, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, auth.ErrValidation.Wrap(err)
	}

	var models []auth.SocialAccount
	err = r.db.NewSelect().
		Model(&models).
		Where("?TableAlias.user_id = ?", id).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "social accounts: select by user")
	}

	accounts := make([]*social.SocialAccount, 0, len(models))
	for i := range models {
		accounts = append(accounts, toSocialAccount(&models[i]))
	}
	return accounts, nil
}

// FindOrCreate resolves the local user for a provider profile. Known
// provider accounts win, then an existing user with the same email is
// linked, otherwise a new user with no role is created.
func (r *SocialAccountRepository) FindOrCreate(ctx context.Context, draft social.ProfileDraft) (*auth.User, bool, error) {
	if !draft.Usable() {
		return nil, false, social.ErrUnusableProfile
	}

	var (
		user    *auth.User
		created bool
	)

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := r.findByProviderID(ctx, tx, draft.Provider, draft.ProviderUserID)
		switch {
		case err == nil:
			user, err = r.users.GetByIDTx(ctx, tx, account.UserID)
			return err
		case !errors.Is(err, auth.ErrIdentityNotFound):
			return err
		}

		if draft.Email != "" {
			user, err = r.users.GetByIdentifierTx(ctx, tx, draft.Email)
			if err != nil && !errors.Is(err, auth.ErrIdentityNotFound) {
				return err
			}
		}

		if user == nil {
			user, err = r.users.RegisterTx(ctx, tx, &auth.User{
				ID:             uuid.New(),
				Role:           auth.RoleUnset,
				Status:         auth.UserStatusActive,
				Name:           draft.DisplayName,
				Email:          draft.Email,
				ProfilePicture: draft.AvatarURL,
			})
			if err != nil {
				return err
			}
			created = true
		}

		return r.link(ctx, tx, user.ID, draft)
	})
	if err != nil {
		return nil, false, err
	}

	return user, created, nil
}

func (r *SocialAccountRepository) link(ctx context.Context, tx bun.IDB, userID uuid.UUID, draft social.ProfileDraft) error {
	model := &auth.SocialAccount{
		ID:             uuid.New(),
		UserID:         userID,
		Provider:       draft.Provider,
		ProviderUserID: draft.ProviderUserID,
		Email:          draft.Email,
		CreatedAt:      time.Now(),
	}
	if _, err := tx.NewInsert().Model(model).Exec(ctx); err != nil {
		return errors.Wrapf(err, "social accounts: link %s", draft.Provider)
	}
	return nil
}

func (r *SocialAccountRepository) findByProviderID(ctx context.Context, tx bun.IDB, provider, providerUserID string) (*auth.SocialAccount, error) {
	model := &auth.SocialAccount{}
	err := tx.NewSelect().
		Model(model).
		Where("?TableAlias.provider = ? AND ?TableAlias.provider_user_id = ?", provider, providerUserID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrIdentityNotFound.WithMetadata(map[string]any{
				"provider":         provider,
				"provider_user_id": providerUserID,
			})
		}
		return nil, errors.Wrap(err, "social accounts: select by provider")
	}
	return model, nil
}

func toSocialAccount(m *auth.SocialAccount) *social.SocialAccount {
	return &social.SocialAccount{
		ID:             m.ID.String(),
		UserID:         m.UserID.String(),
		Provider:       m.Provider,
		ProviderUserID: m.ProviderUserID,
		Email:          m.Email,
		CreatedAt:      m.CreatedAt,
	}
}
