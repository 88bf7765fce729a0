package dto

// ContextEntry is one recent channel message included with the event
type ContextEntry struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// MessageEventRequest is an inbound chat message event
type MessageEventRequest struct {
	MessageID      string         `json:"message_id" binding:"required"`
	GuildID        string         `json:"guild_id" binding:"required"`
	ChannelID      string         `json:"channel_id" binding:"required"`
	AuthorID       string         `json:"author_id" binding:"required"`
	Username       string         `json:"username"`
	GuildName      string         `json:"guild_name"`
	Content        string         `json:"content"`
	MentionsBot    bool           `json:"mentions_bot"`
	ChannelContext []ContextEntry `json:"channel_context"`
	ActiveUserIDs  []string       `json:"active_user_ids"`
}

// MessageEventResponse acknowledges an accepted event. Job ids are only
// present when the corresponding job was enqueued.
type MessageEventResponse struct {
	MessageID  string `json:"message_id"`
	Spam       bool   `json:"spam"`
	SpamCount  int    `json:"spam_count,omitempty"`
	Level      int    `json:"level"`
	LeveledUp  bool   `json:"leveled_up"`
	ScanJobID  string `json:"scan_job_id,omitempty"`
	ReplyJobID string `json:"reply_job_id,omitempty"`
}

// MessageDeleteRequest is an inbound message-deletion event. Fields other
// than the ids may be absent when the platform only delivers the bare
// event; the handler backfills them from the audit log where it can.
type MessageDeleteRequest struct {
	MessageID string `json:"message_id" binding:"required"`
	GuildID   string `json:"guild_id" binding:"required"`
	ChannelID string `json:"channel_id"`
	AuthorID  string `json:"author_id"`
	DeleterID string `json:"deleter_id"`
	Content   string `json:"content"`
}

// LeaderboardEntry is one row of the guild leaderboard
type LeaderboardEntry struct {
	UserID   string `json:"user_id"`
	Messages int    `json:"messages"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
}

// LeaderboardResponse lists a guild's most active users
type LeaderboardResponse struct {
	GuildID string             `json:"guild_id"`
	Users   []LeaderboardEntry `json:"users"`
}

// UserStatsResponse reports one user's activity totals
type UserStatsResponse struct {
	GuildID  string `json:"guild_id"`
	UserID   string `json:"user_id"`
	Messages int    `json:"messages"`
	XP       int    `json:"xp"`
	Level    int    `json:"level"`
}

// ErrorResponse is the error envelope for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}
