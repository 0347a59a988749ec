package hourglasssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Hourglass HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type TokenResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Activity struct {
	ID            int64   `json:"id"`
	CategoryID    int64   `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	Date          string  `json:"date"`
	DurationHours float64 `json:"duration_hours"`
}

type Goal struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Type        string  `json:"type"`
	TargetHours float64 `json:"target_hours"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
}

type GoalProgress struct {
	GoalID       int64   `json:"goal_id"`
	CurrentHours float64 `json:"current_hours"`
	TargetHours  float64 `json:"target_hours"`
	Status       string  `json:"status"`
}

type DailyBucket struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

type Dashboard struct {
	TodayHours        float64            `json:"today_hours"`
	WeekHours         float64            `json:"week_hours"`
	MonthHours        float64            `json:"month_hours"`
	CurrentStreak     int                `json:"current_streak"`
	LongestStreak     int                `json:"longest_streak"`
	AverageDailyHours float64            `json:"average_daily_hours"`
	MostActiveDay     string             `json:"most_active_day"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
	WeekBuckets       []DailyBucket      `json:"week_buckets"`
}

type TrendReport struct {
	Period         string        `json:"period"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
	Buckets        []DailyBucket `json:"buckets"`
	TotalHours     float64       `json:"total_hours"`
	AverageHours   float64       `json:"average_hours"`
	PeakDay        string        `json:"peak_day"`
	PeakHours      float64       `json:"peak_hours"`
	ActiveDays     int           `json:"active_days"`
	TotalDays      int           `json:"total_days"`
	CompletionRate float64       `json:"completion_rate"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Register creates a user and stores the returned bearer token.
func (c *Client) Register(ctx context.Context, name, email, password string) (User, error) {
	var resp TokenResponse
	err := c.do(ctx, http.MethodPost, "v1/auth/register", map[string]any{
		"name": name, "email": email, "password": password,
	}, &resp)
	if err == nil {
		c.BearerToken = resp.Token
	}
	return resp.User, err
}

// Login exchanges credentials for a token and stores it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp TokenResponse
	err := c.do(ctx, http.MethodPost, "v1/auth/login", map[string]any{
		"email": email, "password": password,
	}, &resp)
	if err == nil {
		c.BearerToken = resp.Token
	}
	return resp.User, err
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, name string) (Category, error) {
	var resp Category
	err := c.do(ctx, http.MethodPost, "v1/categories", map[string]any{"name": name}, &resp)
	return resp, err
}

// LogActivity logs hours against a category on a day.
func (c *Client) LogActivity(ctx context.Context, categoryID int64, date string, hours float64) (Activity, error) {
	var resp Activity
	err := c.do(ctx, http.MethodPost, "v1/activities", map[string]any{
		"category_id":    categoryID,
		"date":           date,
		"duration_hours": hours,
	}, &resp)
	return resp, err
}

// CreateGoal creates a goal.
func (c *Client) CreateGoal(ctx context.Context, title, goalType string, targetHours float64) (Goal, error) {
	var resp Goal
	err := c.do(ctx, http.MethodPost, "v1/goals", map[string]any{
		"title":        title,
		"type":         goalType,
		"target_hours": targetHours,
	}, &resp)
	return resp, err
}

// GoalProgress fetches current progress for a goal.
func (c *Client) GoalProgress(ctx context.Context, goalID int64) (GoalProgress, error) {
	var resp GoalProgress
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v1/goals/%d/progress", goalID), nil, &resp)
	return resp, err
}

// Dashboard fetches the dashboard summary.
func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var resp Dashboard
	err := c.do(ctx, http.MethodGet, "v1/dashboard/summary", nil, &resp)
	return resp, err
}

// Trend fetches a weekly or monthly trend report.
func (c *Client) Trend(ctx context.Context, period string) (TrendReport, error) {
	var resp TrendReport
	err := c.do(ctx, http.MethodGet, "v1/dashboard/trends/"+url.PathEscape(period), nil, &resp)
	return resp, err
}

// TrendCustom fetches a trend report for an explicit range.
func (c *Client) TrendCustom(ctx context.Context, start, end string) (TrendReport, error) {
	var resp TrendReport
	endpoint := fmt.Sprintf("v1/dashboard/trends/custom?start=%s&end=%s", url.QueryEscape(start), url.QueryEscape(end))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
