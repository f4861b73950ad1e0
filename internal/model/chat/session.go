package chat

import "time"

// Session captures one transient widget page connection.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
