package domain

type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

type Category struct {
	ID        int64  `json:"id"`
	OwnerID   int64  `json:"owner_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Activity is one logged block of time: hours spent on a category on a
// calendar day. Date is a plain YYYY-MM-DD day with no time of day.
type Activity struct {
	ID            int64   `json:"id"`
	OwnerID       int64   `json:"owner_id"`
	CategoryID    int64   `json:"category_id"`
	CategoryName  string  `json:"category_name,omitempty"`
	Date          string  `json:"date" format:"date"`
	DurationHours float64 `json:"duration_hours"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
}

type Goal struct {
	ID           int64   `json:"id"`
	OwnerID      int64   `json:"owner_id"`
	CategoryID   *int64  `json:"category_id,omitempty"`
	CategoryName string  `json:"category_name,omitempty"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	Type         string  `json:"type" enum:"weekly,monthly,custom"`
	TargetHours  float64 `json:"target_hours"`
	StartDate    string  `json:"start_date" format:"date"`
	EndDate      string  `json:"end_date" format:"date"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	OwnerID   int64  `json:"owner_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	OwnerID    int64  `json:"owner_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
