// Package analytics computes derived, read-only views over logged
// activities: totals, daily buckets, streaks, goal progress, dashboard
// and trend reports. Nothing in this package writes; every result is
// recomputed from the store on each call.
package analytics

import (
	"context"
	"errors"
	"time"

	"hourglass/internal/domain"
)

// ErrInvalidRange is returned when a caller-supplied range has end before
// start, or a custom trend is missing its dates.
var ErrInvalidRange = errors.New("invalid date range")

// ActivityStore is the narrow read surface the calculators need.
// repo.Repo satisfies it.
type ActivityStore interface {
	QueryActivities(ctx context.Context, ownerID int64, start, end time.Time, categoryID *int64) ([]domain.Activity, error)
}

// Config tunes the streak calculators.
type Config struct {
	// LookbackDays bounds the longest-streak window.
	LookbackDays int
	// CurrentStreakCapDays bounds the current-streak walk so a long
	// unbroken history cannot turn one read into unbounded queries.
	CurrentStreakCapDays int
}

const defaultLookbackDays = 365

type Service struct {
	Store  ActivityStore
	Now    func() time.Time
	Config Config
}

func New(store ActivityStore, cfg Config) Service {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaultLookbackDays
	}
	if cfg.CurrentStreakCapDays <= 0 {
		cfg.CurrentStreakCapDays = defaultLookbackDays
	}
	return Service{Store: store, Now: time.Now, Config: cfg}
}

// today returns the current calendar day at UTC midnight.
func (s Service) today() time.Time {
	now := s.Now
	if now == nil {
		now = time.Now
	}
	t := now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD day into UTC midnight.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

// TotalDuration sums the hours of all activities in [start,end],
// optionally restricted to a category.
func (s Service) TotalDuration(ctx context.Context, ownerID int64, start, end time.Time, categoryID *int64) (float64, error) {
	if end.Before(start) {
		return 0, ErrInvalidRange
	}
	acts, err := s.Store.QueryActivities(ctx, ownerID, start, end, categoryID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, a := range acts {
		total += a.DurationHours
	}
	return total, nil
}

// DailyDuration returns the total hours logged on a single day.
func (s Service) DailyDuration(ctx context.Context, ownerID int64, day time.Time) (float64, error) {
	return s.TotalDuration(ctx, ownerID, day, day, nil)
}

// DailyBucket is one calendar day's total.
type DailyBucket struct {
	Date  string  `json:"date" format:"date"`
	Hours float64 `json:"hours"`
}

// DailyBuckets returns one bucket per calendar day in [start,end],
// oldest first. Days with no activity carry zero; multiple records on
// the same day sum.
func (s Service) DailyBuckets(ctx context.Context, ownerID int64, start, end time.Time) ([]DailyBucket, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	acts, err := s.Store.QueryActivities(ctx, ownerID, start, end, nil)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64)
	for _, a := range acts {
		totals[a.Date] += a.DurationHours
	}
	var buckets []DailyBucket
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		buckets = append(buckets, DailyBucket{Date: key, Hours: totals[key]})
	}
	return buckets, nil
}

// CategoryBreakdown sums hours per category name over [start,end].
// Categories with no activity in the range do not appear.
func (s Service) CategoryBreakdown(ctx context.Context, ownerID int64, start, end time.Time) (map[string]float64, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	acts, err := s.Store.QueryActivities(ctx, ownerID, start, end, nil)
	if err != nil {
		return nil, err
	}
	breakdown := make(map[string]float64)
	for _, a := range acts {
		breakdown[a.CategoryName] += a.DurationHours
	}
	return breakdown, nil
}

// CurrentStreak counts consecutive active days ending today, walking
// back one day at a time and stopping at the first empty day. A day is
// active when it has at least one record, regardless of duration. The
// walk is capped at Config.CurrentStreakCapDays.
func (s Service) CurrentStreak(ctx context.Context, ownerID int64) (int, error) {
	day := s.today()
	streak := 0
	for i := 0; i < s.Config.CurrentStreakCapDays; i++ {
		acts, err := s.Store.QueryActivities(ctx, ownerID, day, day, nil)
		if err != nil {
			return 0, err
		}
		if len(acts) == 0 {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak, nil
}

// LongestStreak returns the longest run of consecutive active days in
// the window of Config.LookbackDays days ending today.
func (s Service) LongestStreak(ctx context.Context, ownerID int64) (int, error) {
	end := s.today()
	start := end.AddDate(0, 0, -s.Config.LookbackDays)
	acts, err := s.Store.QueryActivities(ctx, ownerID, start, end, nil)
	if err != nil {
		return 0, err
	}
	active := make(map[string]bool, len(acts))
	for _, a := range acts {
		active[a.Date] = true
	}
	longest, run := 0, 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if active[day.Format(time.DateOnly)] {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest, nil
}

// Goal progress

const (
	GoalActive    = "active"
	GoalCompleted = "completed"
	GoalFailed    = "failed"
)

type GoalProgress struct {
	GoalID       int64   `json:"goal_id"`
	CurrentHours float64 `json:"current_hours"`
	TargetHours  float64 `json:"target_hours"`
	Status       string  `json:"status" enum:"active,completed,failed"`
}

// Progress evaluates a goal against the activities in its window.
// A met target always wins, even when the window has already closed.
func (s Service) Progress(ctx context.Context, goal domain.Goal) (GoalProgress, error) {
	start, err := ParseDay(goal.StartDate)
	if err != nil {
		return GoalProgress{}, ErrInvalidRange
	}
	end, err := ParseDay(goal.EndDate)
	if err != nil {
		return GoalProgress{}, ErrInvalidRange
	}
	hours, err := s.TotalDuration(ctx, goal.OwnerID, start, end, goal.CategoryID)
	if err != nil {
		return GoalProgress{}, err
	}
	status := GoalActive
	switch {
	case hours >= goal.TargetHours:
		status = GoalCompleted
	case s.today().After(end):
		status = GoalFailed
	}
	return GoalProgress{
		GoalID:       goal.ID,
		CurrentHours: hours,
		TargetHours:  goal.TargetHours,
		Status:       status,
	}, nil
}

// Dashboard

type Dashboard struct {
	TodayHours        float64            `json:"today_hours"`
	WeekHours         float64            `json:"week_hours"`
	MonthHours        float64            `json:"month_hours"`
	CurrentStreak     int                `json:"current_streak"`
	LongestStreak     int                `json:"longest_streak"`
	AverageDailyHours float64            `json:"average_daily_hours"`
	MostActiveDay     string             `json:"most_active_day,omitempty"`
	MostActiveHours   float64            `json:"most_active_hours"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
	WeekBuckets       []DailyBucket      `json:"week_buckets"`
}

// DashboardSummary composes today's totals, trailing-window totals,
// streaks and the 30-day breakdown. Queries run sequentially; a failure
// in any aborts the whole summary.
func (s Service) DashboardSummary(ctx context.Context, ownerID int64) (Dashboard, error) {
	today := s.today()
	monthStart := today.AddDate(0, 0, -29)

	buckets, err := s.DailyBuckets(ctx, ownerID, monthStart, today)
	if err != nil {
		return Dashboard{}, err
	}
	var d Dashboard
	activeDays := 0
	for _, b := range buckets {
		d.MonthHours += b.Hours
		if b.Hours > 0 {
			activeDays++
		}
		if b.Hours > d.MostActiveHours {
			d.MostActiveHours = b.Hours
			d.MostActiveDay = b.Date
		}
	}
	// average over days that actually had activity, not the window size
	if activeDays > 0 {
		d.AverageDailyHours = d.MonthHours / float64(activeDays)
	}
	week := buckets[len(buckets)-7:]
	d.WeekBuckets = append([]DailyBucket(nil), week...)
	for _, b := range week {
		d.WeekHours += b.Hours
	}
	d.TodayHours = buckets[len(buckets)-1].Hours

	if d.CategoryBreakdown, err = s.CategoryBreakdown(ctx, ownerID, monthStart, today); err != nil {
		return Dashboard{}, err
	}
	if d.CurrentStreak, err = s.CurrentStreak(ctx, ownerID); err != nil {
		return Dashboard{}, err
	}
	if d.LongestStreak, err = s.LongestStreak(ctx, ownerID); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}

// Trends

const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodCustom  = "custom"
)

type TrendReport struct {
	Period         string        `json:"period" enum:"weekly,monthly,custom"`
	StartDate      string        `json:"start_date" format:"date"`
	EndDate        string        `json:"end_date" format:"date"`
	Buckets        []DailyBucket `json:"buckets"`
	TotalHours     float64       `json:"total_hours"`
	AverageHours   float64       `json:"average_hours"`
	PeakDay        string        `json:"peak_day,omitempty"`
	PeakHours      float64       `json:"peak_hours"`
	ActiveDays     int           `json:"active_days"`
	TotalDays      int           `json:"total_days"`
	CompletionRate float64       `json:"completion_rate"`
}

// Trend builds a report for a trailing weekly/monthly window or a
// caller-supplied custom range. Unlike the dashboard average, the trend
// average divides by the window size whether or not days were active.
func (s Service) Trend(ctx context.Context, ownerID int64, period string, start, end *time.Time) (TrendReport, error) {
	today := s.today()
	var from, to time.Time
	switch period {
	case PeriodWeekly:
		from, to = today.AddDate(0, 0, -6), today
	case PeriodMonthly:
		from, to = today.AddDate(0, 0, -29), today
	case PeriodCustom:
		if start == nil || end == nil {
			return TrendReport{}, ErrInvalidRange
		}
		from, to = *start, *end
		if to.Before(from) {
			return TrendReport{}, ErrInvalidRange
		}
	default:
		return TrendReport{}, ErrInvalidRange
	}
	buckets, err := s.DailyBuckets(ctx, ownerID, from, to)
	if err != nil {
		return TrendReport{}, err
	}
	report := TrendReport{
		Period:    period,
		StartDate: from.Format(time.DateOnly),
		EndDate:   to.Format(time.DateOnly),
		Buckets:   buckets,
		TotalDays: len(buckets),
	}
	for _, b := range buckets {
		report.TotalHours += b.Hours
		if b.Hours > 0 {
			report.ActiveDays++
		}
		if b.Hours > report.PeakHours {
			report.PeakHours = b.Hours
			report.PeakDay = b.Date
		}
	}
	if report.TotalDays > 0 {
		report.AverageHours = report.TotalHours / float64(report.TotalDays)
		report.CompletionRate = float64(report.ActiveDays) / float64(report.TotalDays)
	}
	return report, nil
}

// Monthly totals

type MonthTotal struct {
	Month string  `json:"month"`
	Hours float64 `json:"hours"`
}

type MonthlyTotals struct {
	Months     []MonthTotal `json:"months"`
	TotalHours float64      `json:"total_hours"`
}

// MonthlyTotalsLastSix returns per-month totals for the six calendar
// months ending with the current one, oldest first, zero-filled.
func (s Service) MonthlyTotalsLastSix(ctx context.Context, ownerID int64) (MonthlyTotals, error) {
	today := s.today()
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := firstOfMonth.AddDate(0, -5, 0)
	acts, err := s.Store.QueryActivities(ctx, ownerID, start, today, nil)
	if err != nil {
		return MonthlyTotals{}, err
	}
	totals := make(map[string]float64)
	for _, a := range acts {
		if len(a.Date) >= 7 {
			totals[a.Date[:7]] += a.DurationHours
		}
	}
	var out MonthlyTotals
	for m := start; !m.After(firstOfMonth); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		out.Months = append(out.Months, MonthTotal{Month: key, Hours: totals[key]})
		out.TotalHours += totals[key]
	}
	return out, nil
}
