package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"hourglass/internal/analytics"
	"hourglass/internal/config"
	"hourglass/internal/db"
	"hourglass/internal/engine"
	"hourglass/internal/migrate"
	"hourglass/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Owner  int64
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
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	u, err := eng.RegisterUser(ctx, "Test User", "test@example.com", "secret-password")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Owner: u.ID}
}

func (env testEnv) mustCategory(t *testing.T, name string) int64 {
	t.Helper()
	c, err := env.Engine.CreateCategory(env.Ctx, env.Owner, name)
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c.ID
}

func TestRegisterUserRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.RegisterUser(env.Ctx, "Again", "TEST@example.com", "another-password")
	if !errors.Is(err, engine.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.RegisterUser(env.Ctx, "", "a@b.c", "longenough"); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, err := env.Engine.RegisterUser(env.Ctx, "X", "not-an-email", "longenough"); err == nil {
		t.Fatalf("expected error for bad email")
	}
	if _, err := env.Engine.RegisterUser(env.Ctx, "X", "x@y.z", "short"); err == nil {
		t.Fatalf("expected error for short password")
	}
}

func TestAuthenticateUser(t *testing.T) {
	env := newTestEnv(t)
	u, err := env.Engine.AuthenticateUser(env.Ctx, "test@example.com", "secret-password")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.ID != env.Owner {
		t.Fatalf("wrong user: %d", u.ID)
	}
	if _, err := env.Engine.AuthenticateUser(env.Ctx, "test@example.com", "wrong"); !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.Engine.AuthenticateUser(env.Ctx, "nobody@example.com", "whatever"); !errors.Is(err, engine.ErrInvalidCredentials) {
		t.Fatalf("unknown email should look like bad credentials, got %v", err)
	}
}

func TestCreateCategoryRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.mustCategory(t, "coding")
	if _, err := env.Engine.CreateCategory(env.Ctx, env.Owner, "coding"); !errors.Is(err, engine.ErrDuplicateCategory) {
		t.Fatalf("expected ErrDuplicateCategory, got %v", err)
	}
}

func TestDeleteCategoryInUse(t *testing.T) {
	env := newTestEnv(t)
	catID := env.mustCategory(t, "coding")
	if _, err := env.Engine.LogActivity(env.Ctx, engine.ActivityOptions{
		OwnerID: env.Owner, CategoryID: catID, Date: "2024-03-15", DurationHours: 1,
	}); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := env.Engine.DeleteCategory(env.Ctx, env.Owner, catID); !errors.Is(err, engine.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}

	empty := env.mustCategory(t, "empty")
	if err := env.Engine.DeleteCategory(env.Ctx, env.Owner, empty); err != nil {
		t.Fatalf("delete unused: %v", err)
	}
}

func TestLogActivityValidation(t *testing.T) {
	env := newTestEnv(t)
	catID := env.mustCategory(t, "coding")

	if _, err := env.Engine.LogActivity(env.Ctx, engine.ActivityOptions{
		OwnerID: env.Owner, CategoryID: catID, Date: "2024-03-15", DurationHours: 0,
	}); err == nil {
		t.Fatalf("expected error for zero duration")
	}
	if _, err := env.Engine.LogActivity(env.Ctx, engine.ActivityOptions{
		OwnerID: env.Owner, CategoryID: catID, Date: "15/03/2024", DurationHours: 1,
	}); !errors.Is(err, analytics.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for bad date, got %v", err)
	}
	if _, err := env.Engine.LogActivity(env.Ctx, engine.ActivityOptions{
		OwnerID: env.Owner, CategoryID: 9999, Date: "2024-03-15", DurationHours: 1,
	}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing category, got %v", err)
	}
}

func TestActivityOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t)
	catID := env.mustCategory(t, "coding")

	other, err := env.Engine.RegisterUser(env.Ctx, "Other", "other@example.com", "other-password")
	if err != nil {
		t.Fatalf("register other: %v", err)
	}
	// another owner cannot log against this category
	if _, err := env.Engine.LogActivity(env.Ctx, engine.ActivityOptions{
		OwnerID: other.ID, CategoryID: catID, Date: "2024-03-15", DurationHours: 1,
	}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across owners, got %v", err)
	}

	a, err := env.Engine.LogActivity(env.Ctx, engine.ActivityOptions{
		OwnerID: env.Owner, CategoryID: catID, Date: "2024-03-15", DurationHours: 1,
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if _, err := env.Engine.Repo.GetActivity(env.Ctx, other.ID, a.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound reading another owner's activity, got %v", err)
	}
	if err := env.Engine.DeleteActivity(env.Ctx, other.ID, a.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting another owner's activity, got %v", err)
	}
}

func TestUpdateActivityKeepsUnsetFields(t *testing.T) {
	env := newTestEnv(t)
	catID := env.mustCategory(t, "coding")
	a, err := env.Engine.LogActivity(env.Ctx, engine.ActivityOptions{
		OwnerID: env.Owner, CategoryID: catID, Date: "2024-03-14", DurationHours: 2,
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	updated, err := env.Engine.UpdateActivity(env.Ctx, a.ID, engine.ActivityOptions{
		OwnerID: env.Owner, DurationHours: 3.5,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DurationHours != 3.5 {
		t.Fatalf("duration: got %v", updated.DurationHours)
	}
	if updated.Date != "2024-03-14" || updated.CategoryID != catID {
		t.Fatalf("unset fields changed: %+v", updated)
	}
}

func TestGoalWindowWeekly(t *testing.T) {
	env := newTestEnv(t)
	// 2024-03-15 is a Friday; the week runs Monday 03-11 through Sunday 03-17
	g, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{
		OwnerID: env.Owner, Title: "deep work", Type: "weekly", TargetHours: 10,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.StartDate != "2024-03-11" || g.EndDate != "2024-03-17" {
		t.Fatalf("weekly window: got %s..%s", g.StartDate, g.EndDate)
	}
}

func TestGoalWindowMonthly(t *testing.T) {
	env := newTestEnv(t)
	g, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{
		OwnerID: env.Owner, Title: "reading", Type: "monthly", TargetHours: 20,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.StartDate != "2024-03-01" || g.EndDate != "2024-03-31" {
		t.Fatalf("monthly window: got %s..%s", g.StartDate, g.EndDate)
	}
}

func TestGoalWindowCustomValidated(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{
		OwnerID: env.Owner, Title: "bad", Type: "custom", TargetHours: 5,
		StartDate: "2024-03-20", EndDate: "2024-03-10",
	}); !errors.Is(err, analytics.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for reversed window, got %v", err)
	}
	if _, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{
		OwnerID: env.Owner, Title: "bad", Type: "someday", TargetHours: 5,
	}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestUpdateGoalWindowOnlyForCustom(t *testing.T) {
	env := newTestEnv(t)
	weekly, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{
		OwnerID: env.Owner, Title: "weekly", Type: "weekly", TargetHours: 5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	newStart := "2024-01-01"
	if _, err := env.Engine.UpdateGoal(env.Ctx, env.Owner, weekly.ID, engine.GoalUpdateOptions{StartDate: &newStart}); !errors.Is(err, analytics.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange moving a weekly window, got %v", err)
	}

	custom, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{
		OwnerID: env.Owner, Title: "custom", Type: "custom", TargetHours: 5,
		StartDate: "2024-03-01", EndDate: "2024-03-31",
	})
	if err != nil {
		t.Fatalf("create custom: %v", err)
	}
	g, err := env.Engine.UpdateGoal(env.Ctx, env.Owner, custom.ID, engine.GoalUpdateOptions{StartDate: &newStart})
	if err != nil {
		t.Fatalf("update custom: %v", err)
	}
	if g.StartDate != newStart {
		t.Fatalf("start date: got %s", g.StartDate)
	}
}

func TestGoalProgressEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	catID := env.mustCategory(t, "coding")
	g, err := env.Engine.CreateGoal(env.Ctx, engine.GoalCreateOptions{
		OwnerID: env.Owner, CategoryID: &catID, Title: "sprint", Type: "custom",
		TargetHours: 4, StartDate: "2024-03-10", EndDate: "2024-03-20",
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	p, err := env.Engine.GoalProgress(env.Ctx, env.Owner, g.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Status != analytics.GoalActive || p.CurrentHours != 0 {
		t.Fatalf("fresh goal: %+v", p)
	}

	for _, day := range []string{"2024-03-12", "2024-03-13"} {
		if _, err := env.Engine.LogActivity(env.Ctx, engine.ActivityOptions{
			OwnerID: env.Owner, CategoryID: catID, Date: day, DurationHours: 2,
		}); err != nil {
			t.Fatalf("log %s: %v", day, err)
		}
	}
	p, err = env.Engine.GoalProgress(env.Ctx, env.Owner, g.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Status != analytics.GoalCompleted || p.CurrentHours != 4 {
		t.Fatalf("after logging: %+v", p)
	}
}

func TestMutationsWriteAuditEvents(t *testing.T) {
	env := newTestEnv(t)
	catID := env.mustCategory(t, "coding")
	a, err := env.Engine.LogActivity(env.Ctx, engine.ActivityOptions{
		OwnerID: env.Owner, CategoryID: catID, Date: "2024-03-15", DurationHours: 1,
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := env.Engine.DeleteActivity(env.Ctx, env.Owner, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, env.Owner, "", "")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	seen := make(map[string]bool)
	for _, e := range evts {
		seen[e.Type] = true
	}
	for _, want := range []string{"user.registered", "category.created", "activity.logged", "activity.deleted"} {
		if !seen[want] {
			t.Fatalf("missing event %s in %v", want, evts)
		}
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	env := newTestEnv(t)
	key, raw, err := env.Engine.CreateAPIKey(env.Ctx, env.Owner, "ci")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if raw == "" || raw == key.KeyHash {
		t.Fatalf("raw key must differ from the stored hash")
	}
	got, err := env.Engine.Repo.GetAPIKeyByHash(env.Ctx, repo.HashAPIKey(raw))
	if err != nil {
		t.Fatalf("lookup by hash: %v", err)
	}
	if got.OwnerID != env.Owner {
		t.Fatalf("owner: got %d", got.OwnerID)
	}
	if err := env.Engine.RevokeAPIKey(env.Ctx, env.Owner, key.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := env.Engine.Repo.GetAPIKeyByHash(env.Ctx, repo.HashAPIKey(raw)); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}
	if err := env.Engine.RevokeAPIKey(env.Ctx, env.Owner, key.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double revoke, got %v", err)
	}
}
