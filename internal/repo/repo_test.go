package repo

import (
	"context"
	"errors"
	"testing"

	"rotaline/internal/db"
	"rotaline/internal/domain"
	"rotaline/internal/migrate"
)

func newTestRepo(t *testing.T) Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return Repo{DB: conn}
}

func mustUser(t *testing.T, r Repo, username, first string, active bool) int64 {
	t.Helper()
	id, err := r.InsertUser(context.Background(), nil, domain.User{
		Username: username, FirstName: first, IsActive: active, CreatedAt: "2009-09-16T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("insert user %s: %v", username, err)
	}
	return id
}

func TestRotaItemUpsertKeepsOneRowPerPersonAndDay(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	person := mustUser(t, r, "amy", "Amy", true)
	early, err := r.EnsureActivity(ctx, nil, domain.RotaActivity{Name: "Early"})
	if err != nil {
		t.Fatal(err)
	}
	late, err := r.EnsureActivity(ctx, nil, domain.RotaActivity{Name: "Late"})
	if err != nil {
		t.Fatal(err)
	}
	if again, _ := r.EnsureActivity(ctx, nil, domain.RotaActivity{Name: "Early"}); again != early {
		t.Fatalf("EnsureActivity not idempotent: %d vs %d", again, early)
	}

	if _, err := r.GetRotaItem(ctx, nil, person, "2009-09-16"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := r.ScheduledActivityName(ctx, person, "2009-09-16"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := r.UpsertRotaItem(ctx, nil, domain.RotaItem{ID: "a", WorkDate: "2009-09-16", PersonID: person, ActivityID: early, UpdatedAt: "t1"}); err != nil {
		t.Fatal(err)
	}
	if err := r.UpsertRotaItem(ctx, nil, domain.RotaItem{ID: "b", WorkDate: "2009-09-16", PersonID: person, ActivityID: late, AuthorID: &person, UpdatedAt: "t2"}); err != nil {
		t.Fatal(err)
	}
	n, err := r.CountRotaItems(ctx, person, "2009-09-16")
	if err != nil || n != 1 {
		t.Fatalf("count = %d, %v", n, err)
	}
	it, err := r.GetRotaItem(ctx, nil, person, "2009-09-16")
	if err != nil {
		t.Fatal(err)
	}
	if it.ID != "a" || it.ActivityID != late || it.AuthorID == nil || *it.AuthorID != person {
		t.Fatalf("unexpected item %+v", it)
	}
	name, err := r.ScheduledActivityName(ctx, person, "2009-09-16")
	if err != nil || name != "Late" {
		t.Fatalf("name = %q, %v", name, err)
	}
}

func TestEngineeringDaysGroupItemsInCreationOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	person := mustUser(t, r, "amy", "Amy", true)
	first, err := r.InsertEngineeringDay(ctx, nil, domain.EngineeringDay{
		WorkDate: "2009-09-16", ResourceID: person, DayType: "AM", WIPItems: []string{"W-2", "W-1"}, CreatedAt: "t1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.InsertEngineeringDay(ctx, nil, domain.EngineeringDay{
		WorkDate: "2009-09-16", ResourceID: person, DayType: "PM", WorkItems: []string{"P7"}, CreatedAt: "t2",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.InsertEngineeringDay(ctx, nil, domain.EngineeringDay{WorkDate: "2009-09-16", DayType: "PM"}); err == nil {
		t.Fatal("expected resource validation error")
	}
	days, err := r.ListEngineeringDays(ctx, person, "2009-09-16")
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || days[0].ID != first || days[0].DayType != "AM" || days[1].DayType != "PM" {
		t.Fatalf("unexpected days %+v", days)
	}
	if len(days[0].WIPItems) != 2 || days[0].WIPItems[0] != "W-1" || len(days[0].WorkItems) != 0 {
		t.Fatalf("wip items %+v", days[0])
	}
	if len(days[1].WorkItems) != 1 || days[1].WorkItems[0] != "P7" {
		t.Fatalf("work items %+v", days[1])
	}
	other, err := r.ListEngineeringDays(ctx, person, "2009-09-17")
	if err != nil || len(other) != 0 {
		t.Fatalf("other day = %+v, %v", other, err)
	}
}

func TestTeammatesAreDistinctAndActive(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	amy := mustUser(t, r, "amy", "Amy", true)
	bob := mustUser(t, r, "bob", "Bob", true)
	cat := mustUser(t, r, "cat", "Cat", false)
	dan := mustUser(t, r, "dan", "Dan", true)
	infra, err := r.InsertTeam(ctx, nil, "infra")
	if err != nil {
		t.Fatal(err)
	}
	apps, err := r.InsertTeam(ctx, nil, "apps")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range []struct{ team, user int64 }{{infra, amy}, {infra, bob}, {apps, amy}, {apps, bob}, {apps, cat}} {
		if err := r.AddTeamMember(ctx, nil, m.team, m.user); err != nil {
			t.Fatal(err)
		}
	}
	mates, err := r.ListTeammates(ctx, amy)
	if err != nil {
		t.Fatal(err)
	}
	if len(mates) != 2 || mates[0].Username != "amy" || mates[1].Username != "bob" {
		t.Fatalf("teammates = %+v", mates)
	}
	alone, err := r.ListTeammates(ctx, dan)
	if err != nil || len(alone) != 0 {
		t.Fatalf("dan has no team: %+v, %v", alone, err)
	}
	all, err := r.ListUsers(ctx, true)
	if err != nil || len(all) != 3 {
		t.Fatalf("active users = %d, %v", len(all), err)
	}
	if _, err := r.GetUser(ctx, nil, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRotaLookupsReportDuplicateRows(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	person := mustUser(t, r, "amy", "Amy", true)
	early, err := r.EnsureActivity(ctx, nil, domain.RotaActivity{Name: "Early"})
	if err != nil {
		t.Fatal(err)
	}
	// A temp table shadows rota_items on this connection without the (person, date)
	// uniqueness constraint, so duplicates can be stored.
	r.DB.SetMaxOpenConns(1)
	if _, err := r.DB.ExecContext(ctx, `CREATE TEMP TABLE rota_items (
  id TEXT, work_date TEXT, person_id INTEGER, activity_id INTEGER, author_id INTEGER, updated_at TEXT)`); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b"} {
		if _, err := r.DB.ExecContext(ctx, `INSERT INTO rota_items VALUES (?,?,?,?,NULL,'t')`, id, "2009-09-16", person, early); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := r.GetRotaItem(ctx, nil, person, "2009-09-16"); !errors.Is(err, ErrNotUnique) {
		t.Fatalf("GetRotaItem: expected not unique, got %v", err)
	}
	if _, err := r.ScheduledActivityName(ctx, person, "2009-09-16"); !errors.Is(err, ErrNotUnique) {
		t.Fatalf("ScheduledActivityName: expected not unique, got %v", err)
	}
	if name, err := r.ScheduledActivityName(ctx, person, "2009-09-17"); !errors.Is(err, ErrNotFound) || name != "" {
		t.Fatalf("other day = %q, %v", name, err)
	}
}
