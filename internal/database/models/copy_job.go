package models

import "time"

// CopyJobLog records the final accounting of one finished copy job.
type CopyJobLog struct {
	GroupToken string    `bson:"group_token"`
	ChatID     string    `bson:"chat_id"`
	Requested  int       `bson:"requested"`
	Succeeded  int       `bson:"succeeded"`
	Total      int       `bson:"total"`
	RangeStart time.Time `bson:"range_start,omitempty"`
	RangeEnd   time.Time `bson:"range_end,omitempty"`
	StartedAt  time.Time `bson:"started_at"`
	FinishedAt time.Time `bson:"finished_at"`
}
