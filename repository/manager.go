package repository

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-classroom-auth"
)

// Manager extends the user repositories with social account storage.
type Manager struct {
	auth.RepositoryManager
	db             *bun.DB
	socialAccounts *SocialAccountRepository
}

// NewManager wires every repository on db.
func NewManager(db *bun.DB) *Manager {
	base := auth.NewRepositoryManager(db)
	return &Manager{
		RepositoryManager: base,
		db:                db,
		socialAccounts:    NewSocialAccountRepository(db, base.Users()),
	}
}

// SocialAccounts returns the social account repository.
func (m *Manager) SocialAccounts() *SocialAccountRepository {
	return m.socialAccounts
}

// Validate checks every repository was built.
func (m *Manager) Validate() error {
	if err := m.RepositoryManager.Validate(); err != nil {
		return err
	}
	if m.socialAccounts == nil {
		return errors.New("repository socialAccounts should be initialized")
	}
	return nil
}

// CreateSchema creates the users and social_accounts tables when missing.
func (m *Manager) CreateSchema(ctx context.Context) error {
	if err := m.RepositoryManager.CreateSchema(ctx); err != nil {
		return errors.Wrap(err, "create users table")
	}

	_, err := m.db.NewCreateTable().
		Model((*auth.SocialAccount)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "create social_accounts table")
	}
	return nil
}
