package model

import "time"

type Todo struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Text      string     `json:"text"`
	Done      bool       `json:"done"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	Reminded  bool       `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
