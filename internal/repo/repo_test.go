package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"hourglass/internal/db"
	"hourglass/internal/domain"
	"hourglass/internal/events"
	"hourglass/internal/migrate"
	"hourglass/internal/repo"
)

type fixture struct {
	DB    *sql.DB
	Repo  repo.Repo
	Ctx   context.Context
	Owner int64
	Cat   int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	f := fixture{DB: conn, Repo: repo.Repo{DB: conn}, Ctx: context.Background()}
	f.Owner = f.insertUser(t, "owner@example.com")
	f.Cat = f.insertCategory(t, f.Owner, "coding")
	return f
}

func (f fixture) inTx(t *testing.T, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := f.DB.BeginTx(f.Ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		t.Fatalf("tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func (f fixture) insertUser(t *testing.T, email string) int64 {
	t.Helper()
	var id int64
	f.inTx(t, func(tx *sql.Tx) error {
		var err error
		id, err = f.Repo.InsertUser(f.Ctx, tx, domain.User{
			Name: email, Email: email, PasswordHash: "x",
			CreatedAt: "2024-03-15T10:00:00Z",
		})
		return err
	})
	return id
}

func (f fixture) insertCategory(t *testing.T, owner int64, name string) int64 {
	t.Helper()
	var id int64
	f.inTx(t, func(tx *sql.Tx) error {
		var err error
		id, err = f.Repo.InsertCategory(f.Ctx, tx, domain.Category{
			OwnerID: owner, Name: name, CreatedAt: "2024-03-15T10:00:00Z",
		})
		return err
	})
	return id
}

func (f fixture) insertActivity(t *testing.T, owner, cat int64, date string, hours float64, createdAt string) int64 {
	t.Helper()
	var id int64
	f.inTx(t, func(tx *sql.Tx) error {
		var err error
		id, err = f.Repo.InsertActivity(f.Ctx, tx, domain.Activity{
			OwnerID: owner, CategoryID: cat, Date: date, DurationHours: hours,
			CreatedAt: createdAt, UpdatedAt: createdAt,
		})
		return err
	})
	return id
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestQueryActivitiesRangeInclusive(t *testing.T) {
	f := newFixture(t)
	f.insertActivity(t, f.Owner, f.Cat, "2024-03-09", 1, "2024-03-09T12:00:00Z")
	f.insertActivity(t, f.Owner, f.Cat, "2024-03-10", 2, "2024-03-10T12:00:00Z")
	f.insertActivity(t, f.Owner, f.Cat, "2024-03-12", 3, "2024-03-12T12:00:00Z")
	f.insertActivity(t, f.Owner, f.Cat, "2024-03-13", 4, "2024-03-13T12:00:00Z")

	acts, err := f.Repo.QueryActivities(f.Ctx, f.Owner, day("2024-03-10"), day("2024-03-12"), nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(acts) != 2 {
		t.Fatalf("expected both boundary days, got %d", len(acts))
	}
	if acts[0].Date != "2024-03-10" || acts[1].Date != "2024-03-12" {
		t.Fatalf("expected oldest first: %+v", acts)
	}
	if acts[0].CategoryName != "coding" {
		t.Fatalf("category name not joined: %+v", acts[0])
	}
}

func TestQueryActivitiesScopesToOwner(t *testing.T) {
	f := newFixture(t)
	other := f.insertUser(t, "other@example.com")
	otherCat := f.insertCategory(t, other, "coding")
	f.insertActivity(t, f.Owner, f.Cat, "2024-03-10", 1, "2024-03-10T12:00:00Z")
	f.insertActivity(t, other, otherCat, "2024-03-10", 9, "2024-03-10T12:00:00Z")

	acts, err := f.Repo.QueryActivities(f.Ctx, f.Owner, day("2024-03-01"), day("2024-03-31"), nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(acts) != 1 || acts[0].OwnerID != f.Owner {
		t.Fatalf("leaked across owners: %+v", acts)
	}
}

func TestQueryActivitiesByCategory(t *testing.T) {
	f := newFixture(t)
	reading := f.insertCategory(t, f.Owner, "reading")
	f.insertActivity(t, f.Owner, f.Cat, "2024-03-10", 1, "2024-03-10T12:00:00Z")
	f.insertActivity(t, f.Owner, reading, "2024-03-10", 2, "2024-03-10T12:00:00Z")

	acts, err := f.Repo.QueryActivities(f.Ctx, f.Owner, day("2024-03-01"), day("2024-03-31"), &reading)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(acts) != 1 || acts[0].CategoryID != reading {
		t.Fatalf("category filter: %+v", acts)
	}
}

func TestListActivitiesCursorPagination(t *testing.T) {
	f := newFixture(t)
	// identical created_at forces the id tiebreaker
	const created = "2024-03-10T12:00:00Z"
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, f.insertActivity(t, f.Owner, f.Cat, fmt.Sprintf("2024-03-%02d", 10+i), 1, created))
	}

	page1, err := f.Repo.ListActivities(f.Ctx, repo.ActivityFilters{OwnerID: f.Owner, Limit: 2})
	if err != nil {
		t.Fatalf("page1: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != ids[4] || page1[1].ID != ids[3] {
		t.Fatalf("page1 order: %+v", page1)
	}

	page2, err := f.Repo.ListActivities(f.Ctx, repo.ActivityFilters{
		OwnerID: f.Owner, Limit: 2,
		CursorCreatedAt: page1[1].CreatedAt, CursorID: page1[1].ID,
	})
	if err != nil {
		t.Fatalf("page2: %v", err)
	}
	if len(page2) != 2 || page2[0].ID != ids[2] || page2[1].ID != ids[1] {
		t.Fatalf("page2 order: %+v", page2)
	}

	page3, err := f.Repo.ListActivities(f.Ctx, repo.ActivityFilters{
		OwnerID: f.Owner, Limit: 2,
		CursorCreatedAt: page2[1].CreatedAt, CursorID: page2[1].ID,
	})
	if err != nil {
		t.Fatalf("page3: %v", err)
	}
	if len(page3) != 1 || page3[0].ID != ids[0] {
		t.Fatalf("page3: %+v", page3)
	}
}

func TestCategoryInUse(t *testing.T) {
	f := newFixture(t)
	inUse, err := f.Repo.CategoryInUse(f.Ctx, f.Cat)
	if err != nil {
		t.Fatalf("in use: %v", err)
	}
	if inUse {
		t.Fatalf("fresh category should be unused")
	}
	f.insertActivity(t, f.Owner, f.Cat, "2024-03-10", 1, "2024-03-10T12:00:00Z")
	if inUse, err = f.Repo.CategoryInUse(f.Ctx, f.Cat); err != nil || !inUse {
		t.Fatalf("expected in use after activity, got %v err=%v", inUse, err)
	}
}

func TestGetActivityNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.Repo.GetActivity(f.Ctx, f.Owner, 42); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEventsAfterSpansOwners(t *testing.T) {
	f := newFixture(t)
	other := f.insertUser(t, "other@example.com")
	w := events.Writer{DB: f.DB}
	f.inTx(t, func(tx *sql.Tx) error {
		if err := w.Append(f.Ctx, tx, "category.created", f.Owner, "category", "1", nil); err != nil {
			return err
		}
		return w.Append(f.Ctx, tx, "category.created", other, "category", "2", nil)
	})

	// ownerID 0 reads the whole stream, ascending from the cursor
	all, err := f.Repo.EventsAfter(f.Ctx, 10, 0, 0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both owners' events, got %d", len(all))
	}
	if all[0].ID >= all[1].ID {
		t.Fatalf("expected ascending ids: %+v", all)
	}

	tail, err := f.Repo.LatestEventID(f.Ctx, 0)
	if err != nil {
		t.Fatalf("latest id: %v", err)
	}
	if tail != all[1].ID {
		t.Fatalf("tail: got %d want %d", tail, all[1].ID)
	}

	after, err := f.Repo.EventsAfter(f.Ctx, 10, all[0].ID, 0)
	if err != nil {
		t.Fatalf("events after: %v", err)
	}
	if len(after) != 1 || after[0].ID != all[1].ID {
		t.Fatalf("cursor skip: %+v", after)
	}

	mine, err := f.Repo.LatestEvents(f.Ctx, 10, f.Owner, "", "")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(mine) != 1 || mine[0].OwnerID != f.Owner {
		t.Fatalf("owner scoping: %+v", mine)
	}
}
