package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"rotaline/internal/app"
	"rotaline/internal/config"
	"rotaline/internal/db"
	"rotaline/internal/domain"
	"rotaline/internal/engine"
	"rotaline/internal/engine/auth"
	"rotaline/internal/migrate"
	"rotaline/internal/repo"
	"rotaline/internal/rota"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Users  map[string]domain.User
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	ctx := context.Background()
	if err := app.SeedFromConfig(ctx, repo.Repo{DB: conn}, cfg); err != nil {
		t.Fatalf("seed: %v", err)
	}
	eng := engine.New(conn, cfg, nil)
	eng.Now = func() time.Time { return time.Date(2009, 9, 16, 10, 0, 0, 0, time.UTC) }

	env := testEnv{Engine: eng, Ctx: ctx, Users: map[string]domain.User{}}
	for _, u := range []engine.UserCreateOptions{
		{Username: "zeditor", FirstName: "Zed", LastName: "Editor", Roles: []string{"rota-editor"}, Teams: []string{"infra"}},
		{Username: "alice", FirstName: "Alice", LastName: "Able", Roles: []string{"staff"}, Teams: []string{"infra"}},
		{Username: "bob", FirstName: "Bob", LastName: "Baker", Roles: []string{"staff"}, Teams: []string{"infra", "apps"}},
		{Username: "carl", FirstName: "Carl", LastName: "Cole", Roles: []string{"staff"}, Teams: []string{"apps"}},
		{Username: "admin", FirstName: "Ada", Roles: []string{"admin"}, Password: "s3cret"},
	} {
		created, err := eng.CreateUser(ctx, u)
		if err != nil {
			t.Fatalf("create user %s: %v", u.Username, err)
		}
		env.Users[u.Username] = created
	}
	return env
}

func (env testEnv) activityID(t *testing.T, name string) int64 {
	t.Helper()
	acts, err := env.Engine.Repo.ListActivities(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range acts {
		if a.Name == name {
			return a.ID
		}
	}
	t.Fatalf("activity %q not seeded", name)
	return 0
}

func TestEditRotaRequiresPermission(t *testing.T) {
	env := newTestEnv(t)
	oncall := env.activityID(t, "On Call")
	leave := env.activityID(t, "Leave")
	if _, err := env.Engine.EditRota(env.Ctx, engine.EditRotaOptions{
		Year: 2009, Month: 9, Day: 16, ActivityID: oncall, Username: "alice", EditorID: env.Users["zeditor"].ID,
	}); err != nil {
		t.Fatalf("seed edit: %v", err)
	}

	_, err := env.Engine.EditRota(env.Ctx, engine.EditRotaOptions{
		Year: 2009, Month: 9, Day: 16, ActivityID: leave, Username: "alice", EditorID: env.Users["bob"].ID,
	})
	var fe auth.ForbiddenError
	if !errors.As(err, &fe) || fe.Permission != auth.PermRotaEdit {
		t.Fatalf("expected forbidden, got %v", err)
	}
	name, err := env.Engine.Repo.ScheduledActivityName(env.Ctx, env.Users["alice"].ID, "2009-09-16")
	if err != nil || name != "On Call" {
		t.Fatalf("existing item changed: %q %v", name, err)
	}

	_, err = env.Engine.EditRota(env.Ctx, engine.EditRotaOptions{
		Year: 2009, Month: 2, Day: 31, ActivityID: leave, Username: "alice", EditorID: env.Users["bob"].ID,
	})
	if !engine.IsForbidden(err) {
		t.Fatalf("permission must be checked before the date, got %v", err)
	}
}

func TestEditRotaSequentialEditsKeepOneItem(t *testing.T) {
	env := newTestEnv(t)
	editor := env.Users["zeditor"].ID
	first := env.activityID(t, "Infrastructure Early")
	second := env.activityID(t, "Infrastructure Late")

	msg, err := env.Engine.EditRota(env.Ctx, engine.EditRotaOptions{Year: 2009, Month: 9, Day: 17, ActivityID: first, Username: "bob", EditorID: editor})
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Updated to Infrastructure Early" {
		t.Fatalf("message = %q", msg)
	}
	msg, err = env.Engine.EditRota(env.Ctx, engine.EditRotaOptions{Year: 2009, Month: 9, Day: 17, ActivityID: second, Username: "bob", EditorID: editor})
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Updated to Infrastructure Late" {
		t.Fatalf("message = %q", msg)
	}
	n, err := env.Engine.Repo.CountRotaItems(env.Ctx, env.Users["bob"].ID, "2009-09-17")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected one rota item, got %d", n)
	}
	item, err := env.Engine.Repo.GetRotaItem(env.Ctx, nil, env.Users["bob"].ID, "2009-09-17")
	if err != nil {
		t.Fatal(err)
	}
	if item.ActivityID != second || item.AuthorID == nil || *item.AuthorID != editor {
		t.Fatalf("unexpected item %+v", item)
	}

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, "rota.edit", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 2 {
		t.Fatalf("expected 2 rota.edit events, got %d", len(evts))
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(evts[0].Payload), &payload); err != nil {
		t.Fatal(err)
	}
	if payload["activity"] != "Infrastructure Late" || payload["previous_activity_id"] == nil || evts[0].Actor != "zeditor" {
		t.Fatalf("unexpected event %+v", evts[0])
	}
}

func TestEditRotaErrors(t *testing.T) {
	env := newTestEnv(t)
	editor := env.Users["zeditor"].ID
	oncall := env.activityID(t, "On Call")
	cases := []struct {
		name string
		opts engine.EditRotaOptions
		want error
	}{
		{"invalid date", engine.EditRotaOptions{Year: 2009, Month: 13, Day: 1, ActivityID: oncall, Username: "bob"}, rota.ErrInvalidDate},
		{"unknown person", engine.EditRotaOptions{Year: 2009, Month: 9, Day: 1, ActivityID: oncall, Username: "nobody"}, repo.ErrNotFound},
		{"unknown activity", engine.EditRotaOptions{Year: 2009, Month: 9, Day: 1, ActivityID: 9999, Username: "bob"}, repo.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.EditorID = editor
			if _, err := env.Engine.EditRota(env.Ctx, tc.opts); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestViewRotaScopes(t *testing.T) {
	env := newTestEnv(t)
	bob := env.Users["bob"].ID
	cases := []struct {
		scope string
		want  []string
	}{
		{engine.ScopeAll, []string{"Ada", "Alice Able", "Bob Baker", "Carl Cole", "Zed Editor"}},
		{engine.ScopeTeam, []string{"Alice Able", "Bob Baker", "Carl Cole", "Zed Editor"}},
		{"", []string{"Bob Baker"}},
		{"department", []string{"Bob Baker"}},
	}
	for _, tc := range cases {
		t.Run(tc.scope, func(t *testing.T) {
			view, err := env.Engine.ViewRota(env.Ctx, engine.ViewRotaOptions{RequesterID: bob, Scope: tc.scope})
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, row := range view.Rows {
				got = append(got, row.Person.Name)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("rows = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("rows = %v, want %v", got, tc.want)
				}
			}
		})
	}

	if err := env.Engine.Repo.SetUserActive(env.Ctx, env.Users["carl"].ID, false); err != nil {
		t.Fatal(err)
	}
	view, err := env.Engine.ViewRota(env.Ctx, engine.ViewRotaOptions{RequesterID: bob, Scope: engine.ScopeTeam})
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range view.Rows {
		if row.Person.Name == "Carl Cole" {
			t.Fatal("inactive users must not appear in team scope")
		}
	}
}

func TestViewRotaRendersCells(t *testing.T) {
	env := newTestEnv(t)
	editor := env.Users["zeditor"].ID
	oncall := env.activityID(t, "On Call")
	if _, err := env.Engine.EditRota(env.Ctx, engine.EditRotaOptions{Year: 2009, Month: 9, Day: 16, ActivityID: oncall, Username: "alice", EditorID: editor}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddEngineeringDay(env.Ctx, engine.EngineeringDayOptions{
		Username: "alice", Date: "2009-09-16", DayType: "Training", WIPItems: []string{"WIP-12"}, Actor: "zeditor",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.AddEngineeringDay(env.Ctx, engine.EngineeringDayOptions{
		Username: "alice", Date: "2009-09-18", DayType: "Full Day", WorkItems: []string{"P100/3"}, Actor: "zeditor",
	}); err != nil {
		t.Fatal(err)
	}

	view, err := env.Engine.ViewRota(env.Ctx, engine.ViewRotaOptions{RequesterID: env.Users["alice"].ID})
	if err != nil {
		t.Fatal(err)
	}
	if view.Week.Monday().String() != "2009-09-14" {
		t.Fatalf("default week should follow the clock, got %s", view.Week.Monday())
	}
	if len(view.Rows) != 1 {
		t.Fatalf("expected self scope, got %d rows", len(view.Rows))
	}
	row := view.Rows[0]
	if got := row.Cell(3); got != "On Call<br>(Training) WIP Item" {
		t.Fatalf("wednesday = %q", got)
	}
	if got := row.Cell(5); got != "<br>(Full Day) Project Work" {
		t.Fatalf("friday = %q", got)
	}
	if got := row.Cell(1); got != "" {
		t.Fatalf("monday = %q", got)
	}

	other, err := env.Engine.ViewRota(env.Ctx, engine.ViewRotaOptions{RequesterID: env.Users["alice"].ID, Year: 2009, Month: 9, Day: 21})
	if err != nil {
		t.Fatal(err)
	}
	if other.Rows[0].Cell(3) != "" {
		t.Fatalf("next week should be empty, got %q", other.Rows[0].Cells)
	}
	if _, err := env.Engine.ViewRota(env.Ctx, engine.ViewRotaOptions{RequesterID: env.Users["alice"].ID, Year: 2009, Month: 2, Day: 30}); !errors.Is(err, rota.ErrInvalidDate) {
		t.Fatalf("expected invalid date, got %v", err)
	}
}

func TestAddEngineeringDayValidation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.AddEngineeringDay(env.Ctx, engine.EngineeringDayOptions{Username: "alice", Date: "2009-09-16", DayType: "Siesta"}); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := env.Engine.AddEngineeringDay(env.Ctx, engine.EngineeringDayOptions{Username: "alice", Date: "2009-02-30", DayType: "AM"}); !errors.Is(err, rota.ErrInvalidDate) {
		t.Fatalf("expected invalid date, got %v", err)
	}
}

func TestAuthenticateAndAPIKeys(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Authenticate(env.Ctx, "admin", "s3cret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	for _, tc := range []struct{ user, pass string }{{"admin", "nope"}, {"ghost", "s3cret"}, {"bob", ""}} {
		if _, err := env.Engine.Authenticate(env.Ctx, tc.user, tc.pass); !errors.Is(err, engine.ErrInvalidCredentials) {
			t.Fatalf("%s: expected invalid credentials, got %v", tc.user, err)
		}
	}
	if err := env.Engine.SetPassword(env.Ctx, "bob", "hunter2"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.Authenticate(env.Ctx, "bob", "hunter2"); err != nil {
		t.Fatalf("bob login: %v", err)
	}

	key, secret, err := env.Engine.CreateAPIKey(env.Ctx, "bob", "ci")
	if err != nil {
		t.Fatal(err)
	}
	if key.KeyHash == secret || key.KeyHash != repo.HashAPIKey(secret) {
		t.Fatal("api key must be stored hashed")
	}
	u, err := env.Engine.UserByAPIKey(env.Ctx, secret)
	if err != nil || u.Username != "bob" {
		t.Fatalf("api key user = %v, %v", u.Username, err)
	}
	if _, err := env.Engine.UserByAPIKey(env.Ctx, "rl_bogus"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGrantRoleEnablesEditing(t *testing.T) {
	env := newTestEnv(t)
	leave := env.activityID(t, "Leave")
	opts := engine.EditRotaOptions{Year: 2009, Month: 9, Day: 18, ActivityID: leave, Username: "carl", EditorID: env.Users["alice"].ID}
	if _, err := env.Engine.EditRota(env.Ctx, opts); !engine.IsForbidden(err) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := env.Engine.GrantRole(env.Ctx, "alice", "rota-editor", true); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.EditRota(env.Ctx, opts); err != nil {
		t.Fatalf("edit after grant: %v", err)
	}
	if err := env.Engine.GrantRole(env.Ctx, "alice", "rota-editor", false); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.EditRota(env.Ctx, opts); !engine.IsForbidden(err) {
		t.Fatalf("expected forbidden after revoke, got %v", err)
	}
	if err := env.Engine.GrantRole(env.Ctx, "alice", "wizard", true); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}

func TestRemoveTeamMemberNarrowsTeamScope(t *testing.T) {
	env := newTestEnv(t)
	if err := env.Engine.RemoveTeamMember(env.Ctx, "infra", "bob"); err != nil {
		t.Fatal(err)
	}
	users, err := env.Engine.ScopeUsers(env.Ctx, env.Users["alice"].ID, engine.ScopeTeam)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 || users[0].Username != "alice" || users[1].Username != "zeditor" {
		t.Fatalf("team scope after removal = %+v", users)
	}
	if err := env.Engine.RemoveTeamMember(env.Ctx, "nope", "bob"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected unknown team, got %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	cases := map[string]error{
		"":             nil,
		"forbidden":    auth.ForbiddenError{Permission: "x"},
		"invalid_date": rota.ErrInvalidDate,
		"not_found":    repo.ErrNotFound,
		"not_unique":   repo.ErrNotUnique,
		"internal":     errors.New("boom"),
	}
	for want, err := range cases {
		if got := engine.ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
