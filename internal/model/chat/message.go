package chat

import "time"

// Role identifies who authored a log entry.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Entry is one rendered message in the widget log. A pending entry is the
// placeholder shown while the Answer Service is working.
type Entry struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Pending   bool      `json:"pending"`
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
