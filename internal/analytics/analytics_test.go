package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"hourglass/internal/analytics"
	"hourglass/internal/domain"
)

// fakeStore serves activities from memory, filtering the way the SQL
// range query does: inclusive date bounds, optional category.
type fakeStore struct {
	activities []domain.Activity
	queries    int
	err        error
}

func (f *fakeStore) QueryActivities(ctx context.Context, ownerID int64, start, end time.Time, categoryID *int64) ([]domain.Activity, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	from := start.Format(time.DateOnly)
	to := end.Format(time.DateOnly)
	var out []domain.Activity
	for _, a := range f.activities {
		if a.OwnerID != ownerID {
			continue
		}
		if a.Date < from || a.Date > to {
			continue
		}
		if categoryID != nil && a.CategoryID != *categoryID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func act(owner int64, date string, hours float64, category string) domain.Activity {
	catID := int64(1)
	if category == "reading" {
		catID = 2
	}
	return domain.Activity{
		OwnerID:       owner,
		CategoryID:    catID,
		CategoryName:  category,
		Date:          date,
		DurationHours: hours,
	}
}

func newService(store *fakeStore, today string) analytics.Service {
	svc := analytics.New(store, analytics.Config{})
	day, err := time.Parse(time.DateOnly, today)
	if err != nil {
		panic(err)
	}
	svc.Now = func() time.Time { return day.Add(15 * time.Hour) }
	return svc
}

func TestTotalDurationSumsRange(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-10", 2, "coding"),
		act(1, "2024-03-10", 1.5, "reading"),
		act(1, "2024-03-12", 3, "coding"),
		act(1, "2024-03-20", 4, "coding"), // outside range
		act(2, "2024-03-10", 9, "coding"), // other owner
	}}
	svc := newService(store, "2024-03-15")
	start, _ := time.Parse(time.DateOnly, "2024-03-10")
	end, _ := time.Parse(time.DateOnly, "2024-03-15")

	total, err := svc.TotalDuration(context.Background(), 1, start, end, nil)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 6.5 {
		t.Fatalf("expected 6.5, got %v", total)
	}

	catID := int64(1)
	total, err = svc.TotalDuration(context.Background(), 1, start, end, &catID)
	if err != nil {
		t.Fatalf("total by category: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected 5 for coding, got %v", total)
	}
}

func TestTotalDurationRejectsReversedRange(t *testing.T) {
	svc := newService(&fakeStore{}, "2024-03-15")
	start, _ := time.Parse(time.DateOnly, "2024-03-15")
	end, _ := time.Parse(time.DateOnly, "2024-03-10")
	_, err := svc.TotalDuration(context.Background(), 1, start, end, nil)
	if !errors.Is(err, analytics.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestDailyBucketsZeroFillAndOrder(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-11", 1, "coding"),
		act(1, "2024-03-11", 2, "reading"), // same day sums
		act(1, "2024-03-13", 4, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	start, _ := time.Parse(time.DateOnly, "2024-03-10")
	end, _ := time.Parse(time.DateOnly, "2024-03-14")

	buckets, err := svc.DailyBuckets(context.Background(), 1, start, end)
	if err != nil {
		t.Fatalf("buckets: %v", err)
	}
	if len(buckets) != 5 {
		t.Fatalf("expected 5 buckets, got %d", len(buckets))
	}
	want := []analytics.DailyBucket{
		{Date: "2024-03-10", Hours: 0},
		{Date: "2024-03-11", Hours: 3},
		{Date: "2024-03-12", Hours: 0},
		{Date: "2024-03-13", Hours: 4},
		{Date: "2024-03-14", Hours: 0},
	}
	for i, b := range buckets {
		if b != want[i] {
			t.Fatalf("bucket %d: got %+v want %+v", i, b, want[i])
		}
	}

	// Sum of buckets must equal the range total.
	total, err := svc.TotalDuration(context.Background(), 1, start, end, nil)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	var sum float64
	for _, b := range buckets {
		sum += b.Hours
	}
	if sum != total {
		t.Fatalf("bucket sum %v != total %v", sum, total)
	}
}

func TestCategoryBreakdownOmitsInactive(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-10", 2, "coding"),
		act(1, "2024-03-11", 1, "coding"),
		act(1, "2024-03-11", 0.5, "reading"),
	}}
	svc := newService(store, "2024-03-15")
	start, _ := time.Parse(time.DateOnly, "2024-03-01")
	end, _ := time.Parse(time.DateOnly, "2024-03-31")

	breakdown, err := svc.CategoryBreakdown(context.Background(), 1, start, end)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(breakdown))
	}
	if breakdown["coding"] != 3 || breakdown["reading"] != 0.5 {
		t.Fatalf("unexpected breakdown: %+v", breakdown)
	}
}

func TestCurrentStreakZeroWhenTodayInactive(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-14", 2, "coding"), // yesterday only
	}}
	svc := newService(store, "2024-03-15")
	streak, err := svc.CurrentStreak(context.Background(), 1)
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if streak != 0 {
		t.Fatalf("expected 0, got %d", streak)
	}
}

func TestCurrentStreakWalksBackFromToday(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-12", 1, "coding"),
		act(1, "2024-03-13", 1, "coding"),
		act(1, "2024-03-14", 1, "coding"),
		act(1, "2024-03-15", 1, "coding"),
		// gap on 03-11 breaks the run
		act(1, "2024-03-09", 1, "coding"),
		act(1, "2024-03-10", 1, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	streak, err := svc.CurrentStreak(context.Background(), 1)
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if streak != 4 {
		t.Fatalf("expected 4, got %d", streak)
	}
}

func TestCurrentStreakHonorsCap(t *testing.T) {
	store := &fakeStore{}
	for d := 0; d < 30; d++ {
		day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -d)
		store.activities = append(store.activities, act(1, day.Format(time.DateOnly), 1, "coding"))
	}
	svc := analytics.New(store, analytics.Config{CurrentStreakCapDays: 10})
	svc.Now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	streak, err := svc.CurrentStreak(context.Background(), 1)
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if streak != 10 {
		t.Fatalf("expected cap of 10, got %d", streak)
	}
}

func TestLongestStreakFindsOldRun(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		// old run of 4
		act(1, "2024-02-01", 1, "coding"),
		act(1, "2024-02-02", 1, "coding"),
		act(1, "2024-02-03", 1, "coding"),
		act(1, "2024-02-04", 1, "coding"),
		// current run of 2
		act(1, "2024-03-14", 1, "coding"),
		act(1, "2024-03-15", 1, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	longest, err := svc.LongestStreak(context.Background(), 1)
	if err != nil {
		t.Fatalf("longest: %v", err)
	}
	if longest != 4 {
		t.Fatalf("expected 4, got %d", longest)
	}
	current, err := svc.CurrentStreak(context.Background(), 1)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current != 2 {
		t.Fatalf("expected 2, got %d", current)
	}
	if longest < current {
		t.Fatalf("longest %d < current %d", longest, current)
	}
}

func TestZeroDurationDayStillActive(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-15", 0, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	streak, err := svc.CurrentStreak(context.Background(), 1)
	if err != nil {
		t.Fatalf("streak: %v", err)
	}
	if streak != 1 {
		t.Fatalf("presence should count regardless of duration, got %d", streak)
	}
}

func goalFor(owner int64, target float64, start, end string) domain.Goal {
	return domain.Goal{
		ID:          7,
		OwnerID:     owner,
		Title:       "practice",
		Type:        "custom",
		TargetHours: target,
		StartDate:   start,
		EndDate:     end,
	}
}

func TestGoalProgressActive(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-12", 3, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	p, err := svc.Progress(context.Background(), goalFor(1, 10, "2024-03-11", "2024-03-17"))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Status != analytics.GoalActive || p.CurrentHours != 3 {
		t.Fatalf("unexpected progress: %+v", p)
	}
}

func TestGoalProgressCompletedBeatsExpiry(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-01", 12, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	// window closed days ago, but the target was met
	p, err := svc.Progress(context.Background(), goalFor(1, 10, "2024-03-01", "2024-03-07"))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Status != analytics.GoalCompleted {
		t.Fatalf("expected completed, got %s", p.Status)
	}
}

func TestGoalProgressFailedAfterWindow(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-01", 2, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	p, err := svc.Progress(context.Background(), goalFor(1, 10, "2024-03-01", "2024-03-07"))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Status != analytics.GoalFailed {
		t.Fatalf("expected failed, got %s", p.Status)
	}
}

func TestGoalProgressExactTargetCompletes(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-12", 10, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	p, err := svc.Progress(context.Background(), goalFor(1, 10, "2024-03-11", "2024-03-17"))
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Status != analytics.GoalCompleted {
		t.Fatalf("meeting the target exactly should complete, got %s", p.Status)
	}
}

func TestTrendThreeDayScenario(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-01", 2, "coding"),
		act(1, "2024-03-03", 1, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	start, _ := time.Parse(time.DateOnly, "2024-03-01")
	end, _ := time.Parse(time.DateOnly, "2024-03-03")
	report, err := svc.Trend(context.Background(), 1, analytics.PeriodCustom, &start, &end)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if report.TotalHours != 3 {
		t.Fatalf("total: got %v", report.TotalHours)
	}
	if report.TotalDays != 3 || report.ActiveDays != 2 {
		t.Fatalf("days: got total=%d active=%d", report.TotalDays, report.ActiveDays)
	}
	if report.AverageHours != 1 {
		t.Fatalf("average divides by total days: got %v", report.AverageHours)
	}
	if report.PeakDay != "2024-03-01" || report.PeakHours != 2 {
		t.Fatalf("peak: got %s %v", report.PeakDay, report.PeakHours)
	}
	if got := report.CompletionRate; got < 0.66 || got > 0.67 {
		t.Fatalf("completion rate: got %v", got)
	}
}

func TestTrendPeakTieGoesToEarliestDay(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-02", 3, "coding"),
		act(1, "2024-03-04", 3, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	start, _ := time.Parse(time.DateOnly, "2024-03-01")
	end, _ := time.Parse(time.DateOnly, "2024-03-05")
	report, err := svc.Trend(context.Background(), 1, analytics.PeriodCustom, &start, &end)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if report.PeakDay != "2024-03-02" {
		t.Fatalf("tie should keep the earliest day, got %s", report.PeakDay)
	}
}

func TestTrendWeeklyWindow(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-09", 5, "coding"), // day 7 back, outside the window
		act(1, "2024-03-10", 2, "coding"),
		act(1, "2024-03-15", 1, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	report, err := svc.Trend(context.Background(), 1, analytics.PeriodWeekly, nil, nil)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if report.StartDate != "2024-03-09" {
		// trailing 7 days means 03-09..03-15
		t.Fatalf("start: got %s", report.StartDate)
	}
	if report.TotalDays != 7 {
		t.Fatalf("total days: got %d", report.TotalDays)
	}
	if report.TotalHours != 8 {
		t.Fatalf("total: got %v", report.TotalHours)
	}
}

func TestTrendCustomRequiresDates(t *testing.T) {
	svc := newService(&fakeStore{}, "2024-03-15")
	if _, err := svc.Trend(context.Background(), 1, analytics.PeriodCustom, nil, nil); !errors.Is(err, analytics.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	start, _ := time.Parse(time.DateOnly, "2024-03-10")
	end, _ := time.Parse(time.DateOnly, "2024-03-01")
	if _, err := svc.Trend(context.Background(), 1, analytics.PeriodCustom, &start, &end); !errors.Is(err, analytics.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for reversed range, got %v", err)
	}
}

func TestDashboardAverageUsesActiveDays(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2024-03-13", 2, "coding"),
		act(1, "2024-03-14", 4, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	d, err := svc.DashboardSummary(context.Background(), 1)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.MonthHours != 6 {
		t.Fatalf("month total: got %v", d.MonthHours)
	}
	// 6 hours over 2 active days, not over the 30-day window
	if d.AverageDailyHours != 3 {
		t.Fatalf("average: got %v", d.AverageDailyHours)
	}
	if d.TodayHours != 0 {
		t.Fatalf("today: got %v", d.TodayHours)
	}
	if d.WeekHours != 6 {
		t.Fatalf("week: got %v", d.WeekHours)
	}
	if d.MostActiveDay != "2024-03-14" || d.MostActiveHours != 4 {
		t.Fatalf("most active: got %s %v", d.MostActiveDay, d.MostActiveHours)
	}
	if len(d.WeekBuckets) != 7 {
		t.Fatalf("week buckets: got %d", len(d.WeekBuckets))
	}
	if d.CurrentStreak != 0 {
		t.Fatalf("current streak: got %d", d.CurrentStreak)
	}
	if d.LongestStreak != 2 {
		t.Fatalf("longest streak: got %d", d.LongestStreak)
	}
}

func TestDashboardEmptyOwner(t *testing.T) {
	svc := newService(&fakeStore{}, "2024-03-15")
	d, err := svc.DashboardSummary(context.Background(), 1)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if d.MonthHours != 0 || d.AverageDailyHours != 0 || d.MostActiveDay != "" {
		t.Fatalf("expected zero dashboard, got %+v", d)
	}
}

func TestDashboardAbortsOnStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("disk gone")}
	svc := newService(store, "2024-03-15")
	if _, err := svc.DashboardSummary(context.Background(), 1); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}

func TestMonthlyTotalsOrderedAndZeroFilled(t *testing.T) {
	store := &fakeStore{activities: []domain.Activity{
		act(1, "2023-10-05", 2, "coding"),
		act(1, "2024-01-10", 3, "coding"),
		act(1, "2024-03-01", 1, "coding"),
	}}
	svc := newService(store, "2024-03-15")
	totals, err := svc.MonthlyTotalsLastSix(context.Background(), 1)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if len(totals.Months) != 6 {
		t.Fatalf("expected 6 months, got %d", len(totals.Months))
	}
	wantMonths := []string{"2023-10", "2023-11", "2023-12", "2024-01", "2024-02", "2024-03"}
	for i, m := range totals.Months {
		if m.Month != wantMonths[i] {
			t.Fatalf("month %d: got %s want %s", i, m.Month, wantMonths[i])
		}
	}
	if totals.Months[0].Hours != 2 || totals.Months[3].Hours != 3 || totals.Months[5].Hours != 1 {
		t.Fatalf("unexpected totals: %+v", totals.Months)
	}
	if totals.Months[1].Hours != 0 || totals.Months[2].Hours != 0 || totals.Months[4].Hours != 0 {
		t.Fatalf("expected zero-filled months: %+v", totals.Months)
	}
	if totals.TotalHours != 6 {
		t.Fatalf("grand total: got %v", totals.TotalHours)
	}
}
