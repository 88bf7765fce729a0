package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guildest/guildest/internal/gateway/model"
	"github.com/guildest/guildest/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

// XP needed per level
const xpPerLevel = 100

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func calculateLevel(xp int) int {
	return xp / xpPerLevel
}

// IncrementActivity records one message for the user: bumps the message
// count and XP, recomputes the level, and reports whether the user crossed
// a level boundary. The read and upsert run in one transaction so
// concurrent messages don't lose counts.
func (s *Storage) IncrementActivity(ctx context.Context, guildID, userID string, xpGain int) (*model.Activity, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current model.UserLevel
	query := `
		SELECT guild_id, user_id, messages, xp, level
		FROM user_levels
		WHERE guild_id = $1 AND user_id = $2
		FOR UPDATE
	`

	err = tx.GetContext(ctx, &current, query, guildID, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get user level: %w", err)
	}

	messages := current.Messages + 1
	xp := current.XP + xpGain
	level := calculateLevel(xp)
	leveledUp := level > current.Level

	upsert := `
		INSERT INTO user_levels (guild_id, user_id, messages, xp, level)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			messages = EXCLUDED.messages,
			xp = EXCLUDED.xp,
			level = EXCLUDED.level
	`

	if _, err := tx.ExecContext(ctx, upsert, guildID, userID, messages, xp, level); err != nil {
		return nil, fmt.Errorf("failed to upsert user level: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit activity: %w", err)
	}

	return &model.Activity{
		Messages:  messages,
		XP:        xp,
		Level:     level,
		LeveledUp: leveledUp,
	}, nil
}

// GetUserStats returns the user's activity row, zero-valued when the user
// has never posted.
func (s *Storage) GetUserStats(ctx context.Context, guildID, userID string) (*model.UserLevel, error) {
	var stats model.UserLevel
	query := `
		SELECT guild_id, user_id, messages, xp, level
		FROM user_levels
		WHERE guild_id = $1 AND user_id = $2
	`

	err := s.db.GetContext(ctx, &stats, query, guildID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.UserLevel{GuildID: guildID, UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}

	return &stats, nil
}

// TopUsers returns the guild's most active users ordered by message count
func (s *Storage) TopUsers(ctx context.Context, guildID string, limit int) ([]model.UserLevel, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT guild_id, user_id, messages, xp, level
		FROM user_levels
		WHERE guild_id = $1
		ORDER BY messages DESC
		LIMIT $2
	`

	var users []model.UserLevel
	err := s.db.SelectContext(ctx, &users, query, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top users: %w", err)
	}

	return users, nil
}

// LogMessage records a message in the audit log. Re-logging the same
// message id updates the stored content (edits).
func (s *Storage) LogMessage(ctx context.Context, rec *model.MessageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO message_log (message_id, guild_id, channel_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO UPDATE SET
			content = EXCLUDED.content,
			guild_id = EXCLUDED.guild_id,
			channel_id = EXCLUDED.channel_id,
			author_id = EXCLUDED.author_id
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		rec.MessageID,
		rec.GuildID,
		rec.ChannelID,
		rec.AuthorID,
		rec.Content,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log message: %w", err)
	}

	return nil
}

// GetMessage returns the audited copy of a message, or nil when the
// message was never logged.
func (s *Storage) GetMessage(ctx context.Context, messageID string) (*model.MessageRecord, error) {
	var rec model.MessageRecord
	query := `
		SELECT message_id, guild_id, channel_id, author_id, content, created_at
		FROM message_log
		WHERE message_id = $1
	`

	err := s.db.GetContext(ctx, &rec, query, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return &rec, nil
}

// RecordDeletion stores a deletion event for moderation review.
func (s *Storage) RecordDeletion(ctx context.Context, del *model.Deletion) error {
	if del.DeletedAt.IsZero() {
		del.DeletedAt = time.Now().UTC()
	}

	var createdAt sql.NullTime
	if !del.CreatedAt.IsZero() {
		createdAt = sql.NullTime{Time: del.CreatedAt, Valid: true}
	}

	query := `
		INSERT INTO deleted_messages
			(message_id, guild_id, channel_id, author_id, deleter_id, content, created_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		del.MessageID,
		del.GuildID,
		del.ChannelID,
		del.AuthorID,
		del.DeleterID,
		del.Content,
		createdAt,
		del.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record deletion: %w", err)
	}

	return nil
}
