package engine

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"rotaline/internal/domain"
	"rotaline/internal/repo"
)

// ErrInvalidCredentials is returned by Authenticate for unknown users, inactive users and
// wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserCreateOptions struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Roles     []string
	Teams     []string
}

// CreateUser stores an active user, hashing the password with bcrypt when given.
func (e Engine) CreateUser(ctx context.Context, opts UserCreateOptions) (domain.User, error) {
	username := strings.TrimSpace(opts.Username)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username required", ErrInvalidInput)
	}
	u := domain.User{
		Username:  username,
		FirstName: opts.FirstName,
		LastName:  opts.LastName,
		Email:     opts.Email,
		IsActive:  true,
		CreatedAt: e.stamp(),
	}
	if opts.Password != "" {
		hash, err := HashPassword(opts.Password)
		if err != nil {
			return domain.User{}, err
		}
		u.PasswordHash = hash
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	u.ID, err = e.Repo.InsertUser(ctx, tx, u)
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	for _, role := range opts.Roles {
		ok, err := e.Repo.RoleExists(ctx, tx, role)
		if err != nil {
			return domain.User{}, err
		}
		if !ok {
			return domain.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
		}
		if err := e.Repo.AssignRole(ctx, tx, u.ID, role); err != nil {
			return domain.User{}, err
		}
	}
	for _, team := range opts.Teams {
		teamID, err := e.ensureTeam(ctx, tx, team)
		if err != nil {
			return domain.User{}, err
		}
		if err := e.Repo.AddTeamMember(ctx, tx, teamID, u.ID); err != nil {
			return domain.User{}, err
		}
	}
	return u, tx.Commit()
}

func (e Engine) ensureTeam(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: team name required", ErrInvalidInput)
	}
	t, err := e.Repo.GetTeamByName(ctx, tx, name)
	if err == nil {
		return t.ID, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return 0, err
	}
	return e.Repo.InsertTeam(ctx, tx, name)
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate checks a username/password pair against the stored bcrypt hash.
func (e Engine) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	u, err := e.Repo.GetUserByUsername(ctx, nil, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if !u.IsActive || u.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (e Engine) SetPassword(ctx context.Context, username, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password required", ErrInvalidInput)
	}
	u, err := e.Repo.GetUserByUsername(ctx, nil, username)
	if err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return e.Repo.SetUserPassword(ctx, u.ID, hash)
}

// AddTeamMember puts username into team, creating the team on first use.
func (e Engine) AddTeamMember(ctx context.Context, team, username string) error {
	u, err := e.Repo.GetUserByUsername(ctx, nil, username)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	teamID, err := e.ensureTeam(ctx, tx, team)
	if err != nil {
		return err
	}
	if err := e.Repo.AddTeamMember(ctx, tx, teamID, u.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveTeamMember takes username out of team. The team itself is kept.
func (e Engine) RemoveTeamMember(ctx context.Context, team, username string) error {
	u, err := e.Repo.GetUserByUsername(ctx, nil, username)
	if err != nil {
		return err
	}
	t, err := e.Repo.GetTeamByName(ctx, nil, team)
	if err != nil {
		return fmt.Errorf("team %s: %w", team, err)
	}
	return e.Repo.RemoveTeamMember(ctx, nil, t.ID, u.ID)
}

func (e Engine) CreateCompany(ctx context.Context, name string) (domain.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Company{}, fmt.Errorf("%w: company name required", ErrInvalidInput)
	}
	c := domain.Company{Name: name, Active: true, CreatedAt: e.stamp()}
	id, err := e.Repo.InsertCompany(ctx, nil, c)
	if err != nil {
		return domain.Company{}, err
	}
	c.ID = id
	return c, nil
}

// GrantRole assigns or revokes a role for username.
func (e Engine) GrantRole(ctx context.Context, username, roleID string, grant bool) error {
	u, err := e.Repo.GetUserByUsername(ctx, nil, username)
	if err != nil {
		return err
	}
	if !grant {
		return e.Repo.RevokeRole(ctx, nil, u.ID, roleID)
	}
	ok, err := e.Repo.RoleExists(ctx, nil, roleID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, roleID)
	}
	return e.Repo.AssignRole(ctx, nil, u.ID, roleID)
}

// CreateAPIKey issues a new key for username. The plain key is only returned here.
func (e Engine) CreateAPIKey(ctx context.Context, username, name string) (domain.APIKey, string, error) {
	u, err := e.Repo.GetUserByUsername(ctx, nil, username)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return domain.APIKey{}, "", err
	}
	secret := "rl_" + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(secret),
		CreatedAt: e.stamp(),
	}
	if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, secret, nil
}

// UserByAPIKey resolves the active user owning a plain API key.
func (e Engine) UserByAPIKey(ctx context.Context, secret string) (domain.User, error) {
	key, err := e.Repo.GetAPIKeyByHash(ctx, repo.HashAPIKey(secret))
	if err != nil {
		return domain.User{}, err
	}
	u, err := e.Repo.GetUser(ctx, nil, key.UserID)
	if err != nil {
		return domain.User{}, err
	}
	if !u.IsActive {
		return domain.User{}, repo.ErrNotFound
	}
	return u, nil
}
