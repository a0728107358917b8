package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	PermRotaEdit       = "rota.edit"
	PermProjectCreate  = "project.create"
	PermProjectAdmin   = "project.admin"
	PermDirectoryAdmin = "directory.admin"

	PermProjectRead  = "project.read"
	PermProjectWrite = "project.write"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Querier is the read side of *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Service provides RBAC helpers backed by SQL.
type Service struct {
	DB *sql.DB
}

func (s Service) q(q Querier) Querier {
	if q != nil {
		return q
	}
	return s.DB
}

// UserHasPermission reports whether any role of userID grants perm.
func (s Service) UserHasPermission(ctx context.Context, q Querier, userID int64, perm string) (bool, error) {
	row := s.q(q).QueryRowContext(ctx, `
SELECT 1 FROM user_roles ur
JOIN role_permissions rp ON rp.role_id=ur.role_id
WHERE ur.user_id=? AND rp.permission_id=? LIMIT 1`, userID, perm)
	var n int
	err := row.Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Require returns ForbiddenError when userID lacks perm.
func (s Service) Require(ctx context.Context, q Querier, userID int64, perm string) error {
	ok, err := s.UserHasPermission(ctx, q, userID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError{Permission: perm}
	}
	return nil
}

func (s Service) UserRoles(ctx context.Context, q Querier, userID int64) ([]string, error) {
	return s.strings(ctx, q, `SELECT role_id FROM user_roles WHERE user_id=? ORDER BY role_id`, userID)
}

func (s Service) UserPermissions(ctx context.Context, q Querier, userID int64) ([]string, error) {
	return s.strings(ctx, q, `
SELECT DISTINCT rp.permission_id
FROM user_roles ur
JOIN role_permissions rp ON rp.role_id=ur.role_id
WHERE ur.user_id=?
ORDER BY rp.permission_id`, userID)
}

// ProjectAccess reports read and write access of userID on a project. Write access
// implies read access.
func (s Service) ProjectAccess(ctx context.Context, q Querier, userID int64, projectNumber string) (read, write bool, err error) {
	accesses, err := s.strings(ctx, q, `
SELECT DISTINCT pa.access
FROM project_acl pa
JOIN user_roles ur ON ur.role_id=pa.role_id
WHERE pa.project_number=? AND ur.user_id=?`, projectNumber, userID)
	if err != nil {
		return false, false, err
	}
	for _, a := range accesses {
		switch a {
		case "read":
			read = true
		case "write":
			read, write = true, true
		}
	}
	return read, write, nil
}

// RequireProject enforces read or write access on a project.
func (s Service) RequireProject(ctx context.Context, q Querier, userID int64, projectNumber string, write bool) error {
	canRead, canWrite, err := s.ProjectAccess(ctx, q, userID, projectNumber)
	if err != nil {
		return err
	}
	if write && !canWrite {
		return ForbiddenError{Permission: PermProjectWrite}
	}
	if !canRead {
		return ForbiddenError{Permission: PermProjectRead}
	}
	return nil
}

func (s Service) strings(ctx context.Context, q Querier, query string, args ...any) ([]string, error) {
	rows, err := s.q(q).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}
