package database

import (
	"context"
	"vkcopy-bot/internal/database/models"
)

// TargetChatRepository persists the saved default destination chat.
type TargetChatRepository interface {
	// GetTargetChat returns the saved chat id, or ErrTargetChatNotSet.
	GetTargetChat(ctx context.Context) (string, error)
	// SetTargetChat saves or replaces the default destination chat.
	SetTargetChat(ctx context.Context, chat models.TargetChat) error
	// ClearTargetChat removes the saved destination chat.
	ClearTargetChat(ctx context.Context) error
}

// JobLogger records finished copy jobs.
type JobLogger interface {
	// LogCopyJob stores the accounting of one completed job.
	LogCopyJob(ctx context.Context, job models.CopyJobLog) error
}

// UserActionLogger defines the interface for logging user actions.
type UserActionLogger interface {
	// LogUserAction logs an action performed by a user.
	LogUserAction(userID int64, action string, details interface{}) error
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// UpdateUser updates or creates a user record in the database.
	UpdateUser(ctx context.Context, userID int64, username, firstName, lastName string, isAdmin bool, action string) error
}
