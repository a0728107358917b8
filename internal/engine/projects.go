package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rotaline/internal/domain"
	"rotaline/internal/engine/auth"
	"rotaline/internal/events"
	"rotaline/internal/logging"
	"rotaline/internal/repo"
)

type ProjectCreateOptions struct {
	Project    domain.Project
	ReadRoles  []string
	WriteRoles []string
	ActorID    int64
}

// CreateProject stores a project with its ACLs. The actor needs project.create.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if err := e.Auth.Require(ctx, nil, opts.ActorID, auth.PermProjectCreate); err != nil {
		return domain.Project{}, err
	}
	p := opts.Project
	p.Number = strings.TrimSpace(p.Number)
	if p.Number == "" || strings.TrimSpace(p.Name) == "" {
		return domain.Project{}, fmt.Errorf("%w: project number and name required", ErrInvalidInput)
	}
	if p.Status == "" {
		p.Status = "proposed"
	}
	if e.Config != nil && !e.Config.HasProjectStatus(p.Status) {
		return domain.Project{}, fmt.Errorf("%w: unknown project status %q", ErrInvalidInput, p.Status)
	}
	actor, err := e.Repo.GetUser(ctx, nil, opts.ActorID)
	if err != nil {
		return domain.Project{}, err
	}
	now := e.stamp()
	p.CreatedAt, p.UpdatedAt = now, now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	grant := func(roles []string, access string) error {
		for _, role := range roles {
			ok, err := e.Repo.RoleExists(ctx, tx, role)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
			}
			if err := e.Repo.SetProjectACL(ctx, tx, p.Number, role, access); err != nil {
				return err
			}
		}
		return nil
	}
	if err := grant(opts.ReadRoles, "read"); err != nil {
		return domain.Project{}, err
	}
	if err := grant(opts.WriteRoles, "write"); err != nil {
		return domain.Project{}, err
	}
	if err := e.events().Append(ctx, tx, events.TypeProjectCreate, "project", p.Number, actor.Username, events.EventPayload{"name": p.Name}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return e.Repo.GetProject(ctx, nil, p.Number)
}

// SetProjectACL grants or revokes role access on a project. The actor needs project.admin.
func (e Engine) SetProjectACL(ctx context.Context, actorID int64, number, roleID, access string, grant bool) error {
	if err := e.Auth.Require(ctx, nil, actorID, auth.PermProjectAdmin); err != nil {
		return err
	}
	if access != "read" && access != "write" {
		return fmt.Errorf("%w: access must be read or write", ErrInvalidInput)
	}
	if _, err := e.Repo.GetProject(ctx, nil, number); err != nil {
		return err
	}
	if !grant {
		return e.Repo.RemoveProjectACL(ctx, nil, number, roleID, access)
	}
	ok, err := e.Repo.RoleExists(ctx, nil, roleID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, roleID)
	}
	return e.Repo.SetProjectACL(ctx, nil, number, roleID, access)
}

// ProjectUsers lists the users allowed to read a project.
func (e Engine) ProjectUsers(ctx context.Context, number string) ([]domain.User, error) {
	if _, err := e.Repo.GetProject(ctx, nil, number); err != nil {
		return nil, err
	}
	return e.Repo.ProjectReaders(ctx, number)
}

// GetPID returns the project initiation document when the user holds read access.
func (e Engine) GetPID(ctx context.Context, userID int64, number string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, nil, number)
	if err != nil {
		return domain.Project{}, err
	}
	if err := e.Auth.RequireProject(ctx, nil, userID, number, false); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// PIDUpdate carries the editable project initiation document fields; nil leaves a field as is.
type PIDUpdate struct {
	Name             *string
	Status           *string
	CompanyID        *int64
	ProjectManagerID *int64
	TeamManagerIDs   *[]int64
	Sponsor          *string
	Description      *string
	BusinessCase     *string
	BusinessBenefits *string
	Scope            *string
	Exclusions       *string
	Assumptions      *string
}

// UpdatePID applies changes to the project initiation document. Write access is required.
func (e Engine) UpdatePID(ctx context.Context, userID int64, number string, upd PIDUpdate) (domain.Project, error) {
	log := logging.Scoped(ctx, e.Logger, "projects", "update_pid", "project", number)
	if err := e.Auth.RequireProject(ctx, nil, userID, number, true); err != nil {
		log.Warn("pid update denied", "user_id", userID, "kind", ErrorKind(err))
		return domain.Project{}, err
	}
	user, err := e.Repo.GetUser(ctx, nil, userID)
	if err != nil {
		return domain.Project{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	p, err := e.Repo.GetProject(ctx, tx, number)
	if err != nil {
		return domain.Project{}, err
	}
	changed := []string{}
	setStr := func(field string, dst *string, v *string) {
		if v != nil && *v != *dst {
			*dst = *v
			changed = append(changed, field)
		}
	}
	setStr("project_name", &p.Name, upd.Name)
	setStr("project_status", &p.Status, upd.Status)
	setStr("project_sponsor", &p.Sponsor, upd.Sponsor)
	setStr("project_description", &p.Description, upd.Description)
	setStr("business_case", &p.BusinessCase, upd.BusinessCase)
	setStr("business_benefits", &p.BusinessBenefits, upd.BusinessBenefits)
	setStr("project_scope", &p.Scope, upd.Scope)
	setStr("exclusions", &p.Exclusions, upd.Exclusions)
	setStr("assumptions", &p.Assumptions, upd.Assumptions)
	if upd.CompanyID != nil {
		p.CompanyID = upd.CompanyID
		changed = append(changed, "company")
	}
	if upd.ProjectManagerID != nil {
		p.ProjectManagerID = upd.ProjectManagerID
		changed = append(changed, "project_manager")
	}
	if upd.TeamManagerIDs != nil {
		ids := make([]int64, 0, len(*upd.TeamManagerIDs))
		for _, id := range *upd.TeamManagerIDs {
			if _, err := e.Repo.GetUser(ctx, tx, id); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return domain.Project{}, fmt.Errorf("%w: unknown team manager %d", ErrInvalidInput, id)
				}
				return domain.Project{}, err
			}
			ids = append(ids, id)
		}
		p.TeamManagerIDs = ids
		changed = append(changed, "team_managers")
	}
	if strings.TrimSpace(p.Name) == "" {
		return domain.Project{}, fmt.Errorf("%w: project name required", ErrInvalidInput)
	}
	if e.Config != nil && !e.Config.HasProjectStatus(p.Status) {
		return domain.Project{}, fmt.Errorf("%w: unknown project status %q", ErrInvalidInput, p.Status)
	}
	p.UpdatedAt = e.stamp()
	if err := e.Repo.UpdatePID(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.events().Append(ctx, tx, events.TypePIDUpdate, "project", number, user.Username, events.EventPayload{"fields": changed}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	log.Info("pid updated", "fields", changed)
	return e.Repo.GetProject(ctx, nil, number)
}

// IsForbidden reports whether err is a permission failure.
func IsForbidden(err error) bool {
	var fe auth.ForbiddenError
	return errors.As(err, &fe)
}
