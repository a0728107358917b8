package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"rotaline/internal/domain"
)

const userColumns = `u.id,u.username,u.first_name,u.last_name,COALESCE(u.email,''),u.is_active,COALESCE(u.password_hash,''),u.created_at`

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	var active int
	if err := s.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &active, &u.PasswordHash, &u.CreatedAt); err != nil {
		return domain.User{}, notFound(err)
	}
	u.IsActive = active != 0
	return u, nil
}

func collectUsers(rows *sql.Rows) ([]domain.User, error) {
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// InsertUser stores a user and returns its id.
func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) (int64, error) {
	if strings.TrimSpace(u.Username) == "" {
		return 0, errors.New("username required")
	}
	res, err := r.conn(tx).ExecContext(ctx, `INSERT INTO users(username,first_name,last_name,email,is_active,password_hash,created_at) VALUES (?,?,?,?,?,?,?)`,
		u.Username, u.FirstName, u.LastName, nullable(u.Email), boolInt(u.IsActive), nullable(u.PasswordHash), u.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r Repo) GetUser(ctx context.Context, tx *sql.Tx, id int64) (domain.User, error) {
	return scanUser(r.conn(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id=?`, id))
}

func (r Repo) GetUserByUsername(ctx context.Context, tx *sql.Tx, username string) (domain.User, error) {
	return scanUser(r.conn(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.username=?`, username))
}

// ListUsers returns users ordered by first name. activeOnly drops deactivated accounts.
func (r Repo) ListUsers(ctx context.Context, activeOnly bool) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u`
	if activeOnly {
		query += ` WHERE u.is_active=1`
	}
	query += ` ORDER BY u.first_name, u.last_name, u.id`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

// ListTeammates returns the distinct active users sharing at least one team with userID,
// userID included when active.
func (r Repo) ListTeammates(ctx context.Context, userID int64) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT DISTINCT `+userColumns+`
FROM users u
JOIN team_members tm ON tm.user_id=u.id
WHERE u.is_active=1 AND tm.team_id IN (SELECT team_id FROM team_members WHERE user_id=?)
ORDER BY u.first_name, u.last_name, u.id`, userID)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r Repo) SetUserPassword(ctx context.Context, userID int64, hash string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, hash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetUserActive(ctx context.Context, userID int64, active bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET is_active=? WHERE id=?`, boolInt(active), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
