package server

import (
	"encoding/json"

	"hourglass/internal/domain"
)

// Request payloads

type RegisterRequest struct {
	Name     string `json:"name" minLength:"1"`
	Email    string `json:"email" format:"email"`
	Password string `json:"password" minLength:"8"`
}

type LoginRequest struct {
	Email    string `json:"email" format:"email"`
	Password string `json:"password"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" minLength:"1"`
}

type LogActivityRequest struct {
	CategoryID    int64   `json:"category_id"`
	Date          string  `json:"date" format:"date"`
	DurationHours float64 `json:"duration_hours" minimum:"0" exclusiveMinimum:"0"`
}

type UpdateActivityRequest struct {
	CategoryID    *int64   `json:"category_id,omitempty"`
	Date          *string  `json:"date,omitempty" format:"date"`
	DurationHours *float64 `json:"duration_hours,omitempty"`
}

type CreateGoalRequest struct {
	Title       string  `json:"title" minLength:"1"`
	Description *string `json:"description,omitempty"`
	Type        string  `json:"type" enum:"weekly,monthly,custom"`
	TargetHours float64 `json:"target_hours"`
	CategoryID  *int64  `json:"category_id,omitempty"`
	StartDate   *string `json:"start_date,omitempty" format:"date"`
	EndDate     *string `json:"end_date,omitempty" format:"date"`
}

type UpdateGoalRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	TargetHours *float64 `json:"target_hours,omitempty"`
	CategoryID  *int64   `json:"category_id,omitempty"`
	StartDate   *string  `json:"start_date,omitempty" format:"date"`
	EndDate     *string  `json:"end_date,omitempty" format:"date"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

// Response payloads

type UserResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

func userResponse(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

type TokenResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type CategoryResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

func categoryResponse(c domain.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}

type ActivityResponse struct {
	ID            int64   `json:"id"`
	CategoryID    int64   `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	Date          string  `json:"date" format:"date"`
	DurationHours float64 `json:"duration_hours"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

func activityResponse(a domain.Activity) ActivityResponse {
	return ActivityResponse{
		ID:            a.ID,
		CategoryID:    a.CategoryID,
		CategoryName:  a.CategoryName,
		Date:          a.Date,
		DurationHours: a.DurationHours,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

type GoalResponse struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Type         string  `json:"type" enum:"weekly,monthly,custom"`
	TargetHours  float64 `json:"target_hours"`
	CategoryID   *int64  `json:"category_id,omitempty"`
	CategoryName string  `json:"category_name,omitempty"`
	StartDate    string  `json:"start_date" format:"date"`
	EndDate      string  `json:"end_date" format:"date"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

func goalResponse(g domain.Goal) GoalResponse {
	return GoalResponse{
		ID:           g.ID,
		Title:        g.Title,
		Description:  g.Description,
		Type:         g.Type,
		TargetHours:  g.TargetHours,
		CategoryID:   g.CategoryID,
		CategoryName: g.CategoryName,
		StartDate:    g.StartDate,
		EndDate:      g.EndDate,
		CreatedAt:    g.CreatedAt,
	}
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

func apiKeyResponse(k domain.APIKey) APIKeyResponse {
	return APIKeyResponse{ID: k.ID, Name: k.Name, CreatedAt: k.CreatedAt}
}

// CreatedAPIKeyResponse carries the raw key, returned exactly once.
type CreatedAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

type EventResponse struct {
	ID         int64           `json:"id"`
	TS         string          `json:"ts" format:"date-time"`
	Type       string          `json:"type"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func eventResponse(e domain.Event) EventResponse {
	resp := EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
	}
	if e.Payload != "" && json.Valid([]byte(e.Payload)) {
		resp.Payload = json.RawMessage(e.Payload)
	}
	return resp
}

type DailySummaryResponse struct {
	Date  string  `json:"date" format:"date"`
	Hours float64 `json:"hours"`
}

type StreaksResponse struct {
	CurrentStreak int `json:"current_streak"`
	LongestStreak int `json:"longest_streak"`
}

type paginatedActivities struct {
	Items      []ActivityResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func mapActivities(items []domain.Activity) []ActivityResponse {
	res := make([]ActivityResponse, 0, len(items))
	for _, a := range items {
		res = append(res, activityResponse(a))
	}
	return res
}

func mapGoals(items []domain.Goal) []GoalResponse {
	res := make([]GoalResponse, 0, len(items))
	for _, g := range items {
		res = append(res, goalResponse(g))
	}
	return res
}

func mapCategories(items []domain.Category) []CategoryResponse {
	res := make([]CategoryResponse, 0, len(items))
	for _, c := range items {
		res = append(res, categoryResponse(c))
	}
	return res
}

func mapAPIKeys(items []domain.APIKey) []APIKeyResponse {
	res := make([]APIKeyResponse, 0, len(items))
	for _, k := range items {
		res = append(res, apiKeyResponse(k))
	}
	return res
}

func mapEvents(items []domain.Event) []EventResponse {
	res := make([]EventResponse, 0, len(items))
	for _, e := range items {
		res = append(res, eventResponse(e))
	}
	return res
}
