package repo

import (
	"context"
	"database/sql"
	"errors"
)

func (r Repo) InsertRole(ctx context.Context, tx *sql.Tx, id, desc string) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO roles(id, description) VALUES (?,?)
ON CONFLICT(id) DO UPDATE SET description=excluded.description`, id, nullable(desc))
	return err
}

func (r Repo) InsertPermission(ctx context.Context, tx *sql.Tx, id, desc string) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT OR IGNORE INTO permissions(id, description) VALUES (?,?)`, id, nullable(desc))
	return err
}

func (r Repo) AddRolePermission(ctx context.Context, tx *sql.Tx, roleID, permID string) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT OR IGNORE INTO role_permissions(role_id, permission_id) VALUES (?,?)`, roleID, permID)
	return err
}

// ClearRolePermissions drops every grant of roleID so a reseed reflects the config exactly.
func (r Repo) ClearRolePermissions(ctx context.Context, tx *sql.Tx, roleID string) error {
	_, err := r.conn(tx).ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id=?`, roleID)
	return err
}

func (r Repo) RoleExists(ctx context.Context, tx *sql.Tx, roleID string) (bool, error) {
	var n int
	err := r.conn(tx).QueryRowContext(ctx, `SELECT 1 FROM roles WHERE id=?`, roleID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r Repo) AssignRole(ctx context.Context, tx *sql.Tx, userID int64, roleID string) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT OR IGNORE INTO user_roles(user_id, role_id) VALUES (?,?)`, userID, roleID)
	return err
}

func (r Repo) RevokeRole(ctx context.Context, tx *sql.Tx, userID int64, roleID string) error {
	_, err := r.conn(tx).ExecContext(ctx, `DELETE FROM user_roles WHERE user_id=? AND role_id=?`, userID, roleID)
	return err
}

// SetProjectACL grants roleID read or write access to a project.
func (r Repo) SetProjectACL(ctx context.Context, tx *sql.Tx, projectNumber, roleID, access string) error {
	_, err := r.conn(tx).ExecContext(ctx, `INSERT OR IGNORE INTO project_acl(project_number, role_id, access) VALUES (?,?,?)`, projectNumber, roleID, access)
	return err
}

func (r Repo) RemoveProjectACL(ctx context.Context, tx *sql.Tx, projectNumber, roleID, access string) error {
	_, err := r.conn(tx).ExecContext(ctx, `DELETE FROM project_acl WHERE project_number=? AND role_id=? AND access=?`, projectNumber, roleID, access)
	return err
}

// ProjectACLRoles lists the roles holding access on a project, sorted.
func (r Repo) ProjectACLRoles(ctx context.Context, projectNumber, access string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT role_id FROM project_acl WHERE project_number=? AND access=? ORDER BY role_id`, projectNumber, access)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
