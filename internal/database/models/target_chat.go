package models

import "time"

// TargetChat stores the saved default destination chat for copied
// posts. A single document keyed by a fixed id; /setchat replaces it.
type TargetChat struct {
	ChatID    string    `bson:"chat_id"`
	SetBy     int64     `bson:"set_by"`
	SetByName string    `bson:"set_by_name,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}
