package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"hourglass/internal/analytics"
	"hourglass/internal/config"
	"hourglass/internal/domain"
	"hourglass/internal/events"
	"hourglass/internal/repo"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateCategory  = errors.New("category already exists")
	ErrCategoryInUse      = errors.New("category is referenced by activities or goals")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Analytics returns a read-side service sharing the engine's store,
// clock and tuning.
func (e Engine) Analytics() analytics.Service {
	var cfg analytics.Config
	if e.Config != nil {
		cfg.LookbackDays = e.Config.Analytics.StreakLookbackDays
		cfg.CurrentStreakCapDays = e.Config.Analytics.CurrentStreakCapDays
	}
	svc := analytics.New(e.Repo, cfg)
	svc.Now = e.Now
	return svc
}

// users

func (e Engine) RegisterUser(ctx context.Context, name, email, password string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return domain.User{}, errors.New("name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, errors.New("valid email is required")
	}
	if len(password) < 8 {
		return domain.User{}, errors.New("password must be at least 8 characters")
	}
	if _, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrDuplicateEmail
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	u := domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    e.now().UTC().Format(time.RFC3339),
	}
	if u.ID, err = e.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "user.registered", u.ID, "user", fmt.Sprint(u.ID), events.EventPayload{"email": u.Email}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (e Engine) AuthenticateUser(ctx context.Context, email, password string) (domain.User, error) {
	u, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// categories

func (e Engine) CreateCategory(ctx context.Context, ownerID int64, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, errors.New("name is required")
	}
	if _, err := e.Repo.GetCategoryByName(ctx, ownerID, name); err == nil {
		return domain.Category{}, ErrDuplicateCategory
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Category{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Category{}, err
	}
	defer tx.Rollback()

	c := domain.Category{
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	if c.ID, err = e.Repo.InsertCategory(ctx, tx, c); err != nil {
		return domain.Category{}, fmt.Errorf("insert category: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "category.created", ownerID, "category", fmt.Sprint(c.ID), events.EventPayload{"name": c.Name}); err != nil {
		return domain.Category{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (e Engine) DeleteCategory(ctx context.Context, ownerID, id int64) error {
	c, err := e.Repo.GetCategory(ctx, ownerID, id)
	if err != nil {
		return err
	}
	inUse, err := e.Repo.CategoryInUse(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return ErrCategoryInUse
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteCategory(ctx, tx, ownerID, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "category.deleted", ownerID, "category", fmt.Sprint(id), events.EventPayload{"name": c.Name}); err != nil {
		return err
	}
	return tx.Commit()
}

// activities

// ActivityOptions are parameters for logging or updating an activity.
type ActivityOptions struct {
	OwnerID       int64
	CategoryID    int64
	Date          string
	DurationHours float64
}

func (e Engine) validateActivity(ctx context.Context, opts ActivityOptions) error {
	if opts.DurationHours <= 0 {
		return errors.New("duration_hours must be positive")
	}
	if _, err := analytics.ParseDay(opts.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", analytics.ErrInvalidRange)
	}
	// ownership check doubles as existence check
	if _, err := e.Repo.GetCategory(ctx, opts.OwnerID, opts.CategoryID); err != nil {
		return err
	}
	return nil
}

func (e Engine) LogActivity(ctx context.Context, opts ActivityOptions) (domain.Activity, error) {
	if err := e.validateActivity(ctx, opts); err != nil {
		return domain.Activity{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Activity{}, err
	}
	defer tx.Rollback()

	now := e.now().UTC().Format(time.RFC3339)
	a := domain.Activity{
		OwnerID:       opts.OwnerID,
		CategoryID:    opts.CategoryID,
		Date:          opts.Date,
		DurationHours: opts.DurationHours,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if a.ID, err = e.Repo.InsertActivity(ctx, tx, a); err != nil {
		return domain.Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "activity.logged", opts.OwnerID, "activity", fmt.Sprint(a.ID), events.EventPayload{
		"date":           a.Date,
		"duration_hours": a.DurationHours,
		"category_id":    a.CategoryID,
	}); err != nil {
		return domain.Activity{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Activity{}, err
	}
	return e.Repo.GetActivity(ctx, opts.OwnerID, a.ID)
}

func (e Engine) UpdateActivity(ctx context.Context, id int64, opts ActivityOptions) (domain.Activity, error) {
	existing, err := e.Repo.GetActivity(ctx, opts.OwnerID, id)
	if err != nil {
		return domain.Activity{}, err
	}
	if opts.CategoryID == 0 {
		opts.CategoryID = existing.CategoryID
	}
	if opts.Date == "" {
		opts.Date = existing.Date
	}
	if opts.DurationHours == 0 {
		opts.DurationHours = existing.DurationHours
	}
	if err := e.validateActivity(ctx, opts); err != nil {
		return domain.Activity{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Activity{}, err
	}
	defer tx.Rollback()

	existing.CategoryID = opts.CategoryID
	existing.Date = opts.Date
	existing.DurationHours = opts.DurationHours
	existing.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateActivity(ctx, tx, existing); err != nil {
		return domain.Activity{}, err
	}
	if err := e.Events.Append(ctx, tx, "activity.updated", opts.OwnerID, "activity", fmt.Sprint(id), events.EventPayload{
		"date":           existing.Date,
		"duration_hours": existing.DurationHours,
	}); err != nil {
		return domain.Activity{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Activity{}, err
	}
	return e.Repo.GetActivity(ctx, opts.OwnerID, id)
}

func (e Engine) DeleteActivity(ctx context.Context, ownerID, id int64) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteActivity(ctx, tx, ownerID, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "activity.deleted", ownerID, "activity", fmt.Sprint(id), nil); err != nil {
		return err
	}
	return tx.Commit()
}

// goals

// GoalCreateOptions are parameters for creating a goal. Start/end dates
// are only honored for custom goals; weekly and monthly windows are
// resolved from the current day.
type GoalCreateOptions struct {
	OwnerID     int64
	CategoryID  *int64
	Title       string
	Description string
	Type        string
	TargetHours float64
	StartDate   string
	EndDate     string
}

// resolveGoalWindow computes the [start,end] day window for a goal type.
func (e Engine) resolveGoalWindow(goalType, startDate, endDate string) (string, string, error) {
	t := e.now().UTC()
	today := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch goalType {
	case "weekly":
		// ISO week, Monday through Sunday
		start := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
		return start.Format(time.DateOnly), start.AddDate(0, 0, 6).Format(time.DateOnly), nil
	case "monthly":
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		return start.Format(time.DateOnly), end.Format(time.DateOnly), nil
	case "custom":
		start, err := analytics.ParseDay(startDate)
		if err != nil {
			return "", "", analytics.ErrInvalidRange
		}
		end, err := analytics.ParseDay(endDate)
		if err != nil {
			return "", "", analytics.ErrInvalidRange
		}
		if end.Before(start) {
			return "", "", analytics.ErrInvalidRange
		}
		return startDate, endDate, nil
	default:
		return "", "", fmt.Errorf("unknown goal type %q", goalType)
	}
}

func (e Engine) CreateGoal(ctx context.Context, opts GoalCreateOptions) (domain.Goal, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Goal{}, errors.New("title is required")
	}
	if opts.TargetHours <= 0 {
		return domain.Goal{}, errors.New("target_hours must be positive")
	}
	if opts.CategoryID != nil {
		if _, err := e.Repo.GetCategory(ctx, opts.OwnerID, *opts.CategoryID); err != nil {
			return domain.Goal{}, err
		}
	}
	start, end, err := e.resolveGoalWindow(opts.Type, opts.StartDate, opts.EndDate)
	if err != nil {
		return domain.Goal{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Goal{}, err
	}
	defer tx.Rollback()

	g := domain.Goal{
		OwnerID:     opts.OwnerID,
		CategoryID:  opts.CategoryID,
		Title:       strings.TrimSpace(opts.Title),
		Description: opts.Description,
		Type:        opts.Type,
		TargetHours: opts.TargetHours,
		StartDate:   start,
		EndDate:     end,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	if g.ID, err = e.Repo.InsertGoal(ctx, tx, g); err != nil {
		return domain.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "goal.created", opts.OwnerID, "goal", fmt.Sprint(g.ID), events.EventPayload{
		"title":        g.Title,
		"type":         g.Type,
		"target_hours": g.TargetHours,
	}); err != nil {
		return domain.Goal{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Goal{}, err
	}
	return e.Repo.GetGoal(ctx, opts.OwnerID, g.ID)
}

// GoalUpdateOptions carries the mutable goal fields. Nil means keep.
// Window dates may only change on custom goals.
type GoalUpdateOptions struct {
	Title       *string
	Description *string
	TargetHours *float64
	CategoryID  *int64
	StartDate   *string
	EndDate     *string
}

func (e Engine) UpdateGoal(ctx context.Context, ownerID, id int64, opts GoalUpdateOptions) (domain.Goal, error) {
	g, err := e.Repo.GetGoal(ctx, ownerID, id)
	if err != nil {
		return domain.Goal{}, err
	}
	if opts.Title != nil {
		if strings.TrimSpace(*opts.Title) == "" {
			return domain.Goal{}, errors.New("title is required")
		}
		g.Title = strings.TrimSpace(*opts.Title)
	}
	if opts.Description != nil {
		g.Description = *opts.Description
	}
	if opts.TargetHours != nil {
		if *opts.TargetHours <= 0 {
			return domain.Goal{}, errors.New("target_hours must be positive")
		}
		g.TargetHours = *opts.TargetHours
	}
	if opts.CategoryID != nil {
		if _, err := e.Repo.GetCategory(ctx, ownerID, *opts.CategoryID); err != nil {
			return domain.Goal{}, err
		}
		g.CategoryID = opts.CategoryID
	}
	if opts.StartDate != nil || opts.EndDate != nil {
		if g.Type != "custom" {
			return domain.Goal{}, fmt.Errorf("window dates can only change on custom goals: %w", analytics.ErrInvalidRange)
		}
		startDate, endDate := g.StartDate, g.EndDate
		if opts.StartDate != nil {
			startDate = *opts.StartDate
		}
		if opts.EndDate != nil {
			endDate = *opts.EndDate
		}
		if g.StartDate, g.EndDate, err = e.resolveGoalWindow("custom", startDate, endDate); err != nil {
			return domain.Goal{}, err
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Goal{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateGoal(ctx, tx, g); err != nil {
		return domain.Goal{}, err
	}
	if err := e.Events.Append(ctx, tx, "goal.updated", ownerID, "goal", fmt.Sprint(id), events.EventPayload{
		"title":        g.Title,
		"target_hours": g.TargetHours,
	}); err != nil {
		return domain.Goal{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Goal{}, err
	}
	return e.Repo.GetGoal(ctx, ownerID, id)
}

func (e Engine) DeleteGoal(ctx context.Context, ownerID, id int64) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteGoal(ctx, tx, ownerID, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "goal.deleted", ownerID, "goal", fmt.Sprint(id), nil); err != nil {
		return err
	}
	return tx.Commit()
}

// GoalProgress evaluates one owned goal.
func (e Engine) GoalProgress(ctx context.Context, ownerID, id int64) (analytics.GoalProgress, error) {
	g, err := e.Repo.GetGoal(ctx, ownerID, id)
	if err != nil {
		return analytics.GoalProgress{}, err
	}
	return e.Analytics().Progress(ctx, g)
}

// api keys

// CreateAPIKey mints a new key and returns it alongside the stored
// record. The raw key is shown once; only its hash is persisted.
func (e Engine) CreateAPIKey(ctx context.Context, ownerID int64, name string) (domain.APIKey, string, error) {
	raw := "hg_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	key := domain.APIKey{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.APIKey{}, "", err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := e.Events.Append(ctx, tx, "apikey.created", ownerID, "apikey", key.ID, events.EventPayload{"name": key.Name}); err != nil {
		return domain.APIKey{}, "", err
	}
	if err := tx.Commit(); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, raw, nil
}

func (e Engine) RevokeAPIKey(ctx context.Context, ownerID int64, id string) error {
	return e.Repo.DeleteAPIKey(ctx, ownerID, id)
}
