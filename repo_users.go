package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Users is the bun backed user repository
type Users interface {
	UserStore

	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus) (*User, error)
	Block(ctx context.Context, id uuid.UUID) (*User, error)
	Unblock(ctx context.Context, id uuid.UUID) (*User, error)
}

type users struct {
	db  *bun.DB
	now func() time.Time
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db, now: time.Now}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "id", id.String())
	}
	return record, nil
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if id, err := uuid.Parse(identifier); err == nil {
		return a.GetByIDTx(ctx, tx, id)
	}

	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", normalizeEmail(identifier)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "identifier", identifier)
	}
	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, ErrValidation
	}
	prepareUserDefaults(user, a.now())

	if user.Email != "" {
		exists, err := tx.NewSelect().
			Model((*User)(nil)).
			Where("?TableAlias.email = ?", user.Email).
			Exists(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "users: check email")
		}
		if exists {
			return nil, ErrEmailTaken
		}
	}

	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, "users: insert")
	}
	return user, nil
}

// SelectRole sets the role only while it is still unset.
func (a *users) SelectRole(ctx context.Context, id uuid.UUID, role UserRole) (*User, error) {
	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("user_role = ?", role).
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Where("user_role = ?", RoleUnset).
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "users: select role %s", role)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		user, err := a.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !user.Role.IsUnset() {
			return nil, ErrRoleAlreadySelected
		}
	}

	return a.GetByID(ctx, id)
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	if user == nil {
		return nil
	}
	loggedInAt := a.now()
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("loggedin_at = ?", loggedInAt).
		Where("id = ?", user.ID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "users: track login")
	}
	user.LoggedInAt = &loggedInAt
	return nil
}

func (a *users) UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status)
}

func (a *users) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus) (*User, error) {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "users: update status %s", status)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrIdentityNotFound.WithMetadata(map[string]any{"id": id.String()})
	}
	return a.GetByIDTx(ctx, tx, id)
}

// Block prevents the user from signing in or loading their profile
func (a *users) Block(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.UpdateStatus(ctx, id, UserStatusBlocked)
}

// Unblock restores a blocked account
func (a *users) Unblock(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.UpdateStatus(ctx, id, UserStatusActive)
}

func prepareUserDefaults(user *User, now time.Time) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Status == "" {
		user.Status = UserStatusActive
	}
	user.Email = normalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
}

func notFoundOr(err error, key, value string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrIdentityNotFound.WithMetadata(map[string]any{key: value})
	}
	return errors.Wrap(err, "users: select")
}
