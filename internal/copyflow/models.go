package copyflow

import "time"

// UserState represents where a user currently is in a conversational
// flow. State is kept per user, never process-wide, so many sessions
// can run side by side.
type UserState string

const (
	StateIdle              UserState = ""                    // Default state
	StateAwaitingGroup     UserState = "awaiting_group"      // Waiting for a VK group token
	StateAwaitingStartDate UserState = "awaiting_start_date" // Waiting for the range start date
	StateAwaitingEndDate   UserState = "awaiting_end_date"   // Waiting for the range end date
	StateAwaitingCount     UserState = "awaiting_count"      // Waiting for the post count
	StateAwaitingChatID    UserState = "awaiting_chat_id"    // Waiting for a /setchat chat id
	StateCopying           UserState = "copying"             // A copy job is running for this user
)

// session accumulates one user's answers while the copy flow collects
// its parameters.
type session struct {
	state      UserState
	groupToken string
	start      time.Time
	end        time.Time
}

const (
	dateLayout   = "2006-01-02"
	defaultCount = 50
	maxCount     = 100
)
