package model

import "time"

// UserLevel is one row of per-guild activity tracking
type UserLevel struct {
	GuildID  string `db:"guild_id" json:"guild_id"`
	UserID   string `db:"user_id" json:"user_id"`
	Messages int    `db:"messages" json:"messages"`
	XP       int    `db:"xp" json:"xp"`
	Level    int    `db:"level" json:"level"`
}

// Activity is the outcome of recording one message
type Activity struct {
	Messages  int  `json:"messages"`
	XP        int  `json:"xp"`
	Level     int  `json:"level"`
	LeveledUp bool `json:"leveled_up"`
}

// MessageRecord is one audited message
type MessageRecord struct {
	MessageID string    `db:"message_id" json:"message_id"`
	GuildID   string    `db:"guild_id" json:"guild_id"`
	ChannelID string    `db:"channel_id" json:"channel_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Deletion is one recorded message deletion. CreatedAt is the original
// message timestamp when the audit log still has it, zero otherwise.
type Deletion struct {
	MessageID string    `db:"message_id" json:"message_id"`
	GuildID   string    `db:"guild_id" json:"guild_id"`
	ChannelID string    `db:"channel_id" json:"channel_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	DeleterID string    `db:"deleter_id" json:"deleter_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	DeletedAt time.Time `db:"deleted_at" json:"deleted_at"`
}
