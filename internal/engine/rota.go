package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rotaline/internal/domain"
	"rotaline/internal/engine/auth"
	"rotaline/internal/events"
	"rotaline/internal/logging"
	"rotaline/internal/repo"
	"rotaline/internal/rota"
)

const (
	ScopeAll  = "all"
	ScopeTeam = "team"
	ScopeSelf = "self"
)

type ViewRotaOptions struct {
	RequesterID int64
	Scope       string
	Year        int
	Month       int
	Day         int
}

type RotaView struct {
	Week rota.Week
	Rows []rota.Row
}

// ViewRota assembles the weekly rota of the requested scope. A zero date selects the
// current week.
func (e Engine) ViewRota(ctx context.Context, opts ViewRotaOptions) (RotaView, error) {
	log := logging.Scoped(ctx, e.Logger, "rota", "view", "scope", opts.Scope)
	week, err := rota.ResolveWeek(opts.Year, opts.Month, opts.Day, rota.DayOf(e.now()))
	if err != nil {
		return RotaView{}, err
	}
	users, err := e.ScopeUsers(ctx, opts.RequesterID, opts.Scope)
	if err != nil {
		return RotaView{}, err
	}
	people := make([]rota.Person, 0, len(users))
	for _, u := range users {
		people = append(people, rota.Person{ID: u.ID, Name: u.FullName()})
	}
	rows, err := rota.Assemble(ctx, week, people, rotaLookup{repo: e.Repo})
	if err != nil {
		log.Error("assemble rota", "error", err, "kind", ErrorKind(err))
		return RotaView{}, err
	}
	log.Debug("rota assembled", "week", week.Monday().String(), "rows", len(rows))
	return RotaView{Week: week, Rows: rows}, nil
}

// ScopeUsers resolves the ordered set of people shown for a scope. Unknown scopes fall
// back to the requester alone.
func (e Engine) ScopeUsers(ctx context.Context, requesterID int64, scope string) ([]domain.User, error) {
	switch scope {
	case ScopeAll:
		return e.Repo.ListUsers(ctx, true)
	case ScopeTeam:
		return e.Repo.ListTeammates(ctx, requesterID)
	default:
		u, err := e.Repo.GetUser(ctx, nil, requesterID)
		if err != nil {
			return nil, err
		}
		return []domain.User{u}, nil
	}
}

type EditRotaOptions struct {
	Year       int
	Month      int
	Day        int
	ActivityID int64
	Username   string
	EditorID   int64
}

// EditRota sets the activity of a person on a date and returns a confirmation message.
func (e Engine) EditRota(ctx context.Context, opts EditRotaOptions) (string, error) {
	log := logging.Scoped(ctx, e.Logger, "rota", "edit", "username", opts.Username, "activity_id", opts.ActivityID)
	if err := e.Auth.Require(ctx, nil, opts.EditorID, auth.PermRotaEdit); err != nil {
		log.Warn("rota edit denied", "editor_id", opts.EditorID, "kind", ErrorKind(err))
		return "", err
	}
	day, err := rota.NewDay(opts.Year, time.Month(opts.Month), opts.Day)
	if err != nil {
		return "", err
	}
	editor, err := e.Repo.GetUser(ctx, nil, opts.EditorID)
	if err != nil {
		return "", fmt.Errorf("editor: %w", err)
	}
	person, err := e.Repo.GetUserByUsername(ctx, nil, opts.Username)
	if err != nil {
		return "", fmt.Errorf("user %s: %w", opts.Username, err)
	}
	activity, err := e.Repo.GetActivity(ctx, nil, opts.ActivityID)
	if err != nil {
		return "", fmt.Errorf("activity %d: %w", opts.ActivityID, err)
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	workDate := day.String()
	item, err := e.Repo.GetRotaItem(ctx, tx, person.ID, workDate)
	previous := int64(0)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		item = domain.RotaItem{ID: uuid.NewString(), WorkDate: workDate, PersonID: person.ID}
	case err != nil:
		return "", err
	default:
		previous = item.ActivityID
	}
	item.ActivityID = activity.ID
	item.AuthorID = &editor.ID
	item.UpdatedAt = e.stamp()
	if err := e.Repo.UpsertRotaItem(ctx, tx, item); err != nil {
		return "", fmt.Errorf("save rota item: %w", err)
	}
	payload := events.EventPayload{
		"work_date": workDate,
		"person":    person.Username,
		"activity":  activity.Name,
	}
	if previous != 0 {
		payload["previous_activity_id"] = previous
	}
	if err := e.events().Append(ctx, tx, events.TypeRotaEdit, "rota_item", item.ID, editor.Username, payload); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	log.Info("rota updated", "work_date", workDate, "editor", editor.Username)
	return fmt.Sprintf("Updated to %s", activity.Name), nil
}

type EngineeringDayOptions struct {
	Username  string
	Date      string
	DayType   string
	WIPItems  []string
	WorkItems []string
	Actor     string
}

// AddEngineeringDay books a person for WIP or project work on a date. It feeds the
// annotations rendered in rota cells.
func (e Engine) AddEngineeringDay(ctx context.Context, opts EngineeringDayOptions) (domain.EngineeringDay, error) {
	day, err := rota.ParseDay(opts.Date)
	if err != nil {
		return domain.EngineeringDay{}, err
	}
	if opts.DayType == "" {
		return domain.EngineeringDay{}, fmt.Errorf("%w: day type required", ErrInvalidInput)
	}
	if e.Config != nil && !e.Config.HasDayType(opts.DayType) {
		return domain.EngineeringDay{}, fmt.Errorf("%w: unknown day type %q", ErrInvalidInput, opts.DayType)
	}
	person, err := e.Repo.GetUserByUsername(ctx, nil, opts.Username)
	if err != nil {
		return domain.EngineeringDay{}, fmt.Errorf("user %s: %w", opts.Username, err)
	}
	d := domain.EngineeringDay{
		WorkDate:   day.String(),
		ResourceID: person.ID,
		DayType:    opts.DayType,
		WIPItems:   opts.WIPItems,
		WorkItems:  opts.WorkItems,
		CreatedAt:  e.stamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.EngineeringDay{}, err
	}
	defer tx.Rollback()
	d.ID, err = e.Repo.InsertEngineeringDay(ctx, tx, d)
	if err != nil {
		return domain.EngineeringDay{}, err
	}
	if err := e.events().Append(ctx, tx, events.TypeEngineeringDay, "engineering_day", fmt.Sprint(d.ID), opts.Actor, events.EventPayload{
		"work_date": d.WorkDate, "person": person.Username, "day_type": d.DayType,
	}); err != nil {
		return domain.EngineeringDay{}, err
	}
	return d, tx.Commit()
}

// AddActivity extends the activity catalog.
func (e Engine) AddActivity(ctx context.Context, name, description string) (domain.RotaActivity, error) {
	if name == "" {
		return domain.RotaActivity{}, fmt.Errorf("%w: activity name required", ErrInvalidInput)
	}
	id, err := e.Repo.EnsureActivity(ctx, nil, domain.RotaActivity{Name: name, Description: description})
	if err != nil {
		return domain.RotaActivity{}, err
	}
	return e.Repo.GetActivity(ctx, nil, id)
}

type rotaLookup struct {
	repo repo.Repo
}

func (l rotaLookup) ScheduledActivity(ctx context.Context, personID int64, day rota.Day) (string, error) {
	name, err := l.repo.ScheduledActivityName(ctx, personID, day.String())
	if errors.Is(err, repo.ErrNotFound) {
		return "", rota.ErrNotFound
	}
	return name, err
}

func (l rotaLookup) AuxiliaryEntries(ctx context.Context, personID int64, day rota.Day) ([]rota.AuxiliaryEntry, error) {
	days, err := l.repo.ListEngineeringDays(ctx, personID, day.String())
	if err != nil {
		return nil, err
	}
	entries := make([]rota.AuxiliaryEntry, 0, len(days))
	for _, d := range days {
		entries = append(entries, rota.AuxiliaryEntry{
			DayType:        d.DayType,
			HasWIP:         len(d.WIPItems) > 0,
			HasProjectWork: len(d.WorkItems) > 0,
		})
	}
	return entries, nil
}
