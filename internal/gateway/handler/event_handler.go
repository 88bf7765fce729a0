package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guildest/guildest/internal/gateway/dto"
	"github.com/guildest/guildest/internal/gateway/model"
	"github.com/guildest/guildest/internal/taskqueue"
)

const defaultMentionPrompt = "Say something helpful and friendly."

// HandleMessage ingests one chat message event. The request path only
// records activity and enqueues jobs; waiting for job results happens in
// the background, and a failure there never fails the event.
func (h *EventHandler) HandleMessage(c *gin.Context) {
	var req dto.MessageEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	h.metrics.CountMessage(ctx, req.GuildID)

	if err := h.storage.LogMessage(ctx, &model.MessageRecord{
		MessageID: req.MessageID,
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		AuthorID:  req.AuthorID,
		Content:   req.Content,
	}); err != nil {
		h.logger.Error("Failed to audit message",
			slog.String("message_id", req.MessageID),
			slog.Any("error", err),
		)
	}

	resp := dto.MessageEventResponse{MessageID: req.MessageID}

	isSpam, count := h.spam.CheckSpam(req.AuthorID, time.Now())
	if isSpam {
		resp.Spam = true
		resp.SpamCount = count
		h.metrics.CountSpam(ctx, req.GuildID)
		h.logger.Warn("Spam detected",
			slog.String("guild_id", req.GuildID),
			slog.String("author_id", req.AuthorID),
			slog.Int("count", count),
		)
	} else {
		activity, err := h.storage.IncrementActivity(ctx, req.GuildID, req.AuthorID, h.messageXP)
		if err != nil {
			h.logger.Error("Failed to record activity",
				slog.String("guild_id", req.GuildID),
				slog.String("author_id", req.AuthorID),
				slog.Any("error", err),
			)
		} else {
			resp.Level = activity.Level
			resp.LeveledUp = activity.LeveledUp
		}
	}

	resp.ScanJobID = h.queueSafetyScan(ctx, &req)

	if req.MentionsBot {
		resp.ReplyJobID = h.queueMentionReply(ctx, &req)
	}

	c.JSON(http.StatusAccepted, resp)
}

// queueSafetyScan enqueues a safety_scan job and supervises its result in
// the background. Returns the job id, or "" when nothing was enqueued.
func (h *EventHandler) queueSafetyScan(ctx context.Context, req *dto.MessageEventRequest) string {
	if req.Content == "" {
		return ""
	}

	task, err := h.queue.Enqueue(ctx, "safety_scan", map[string]any{
		"content":    req.Content,
		"guild_id":   req.GuildID,
		"channel_id": req.ChannelID,
		"author_id":  req.AuthorID,
	}, taskqueue.EnqueueOptions{
		RequestedBy: req.AuthorID,
		ResultTTL:   h.scanResultTTL,
	})
	if err != nil {
		h.logger.Error("Failed to enqueue safety scan",
			slog.String("message_id", req.MessageID),
			slog.Any("error", err),
		)
		return ""
	}

	guildID, channelID, authorID, content := req.GuildID, req.ChannelID, req.AuthorID, req.Content
	h.awaiter.Go("safety_scan", task.JobID, func(ctx context.Context) error {
		result, err := h.queue.WaitForResult(ctx, task.JobID, h.scanWaitTimeout)
		if err != nil {
			return err
		}
		if !result.IsOK() {
			return fmt.Errorf("safety scan failed: %s", result.Error)
		}

		verdict, categories := extractVerdict(result)
		if verdict == "" || strings.EqualFold(verdict, "safe") {
			return nil
		}

		return h.webhook.SendFlaggedReport(ctx, guildID, channelID, authorID, content, categories)
	})

	return task.JobID
}

// queueMentionReply enqueues an llm_reply job for a message that
// mentioned the bot and posts the reply via the webhook when it lands.
func (h *EventHandler) queueMentionReply(ctx context.Context, req *dto.MessageEventRequest) string {
	prompt := req.Content
	if prompt == "" {
		prompt = defaultMentionPrompt
	}

	channelContext := make([]map[string]any, 0, len(req.ChannelContext))
	for _, entry := range req.ChannelContext {
		channelContext = append(channelContext, map[string]any{
			"username": entry.Username,
			"content":  entry.Content,
		})
	}

	activeUserIDs := req.ActiveUserIDs
	if len(activeUserIDs) > 10 {
		activeUserIDs = activeUserIDs[:10]
	}

	task, err := h.queue.Enqueue(ctx, "llm_reply", map[string]any{
		"prompt":          prompt,
		"username":        req.Username,
		"guild_name":      req.GuildName,
		"guild_id":        req.GuildID,
		"user_id":         req.AuthorID,
		"channel_id":      req.ChannelID,
		"channel_context": channelContext,
		"active_user_ids": activeUserIDs,
	}, taskqueue.EnqueueOptions{
		RequestedBy: req.AuthorID,
		ResultTTL:   h.replyResultTTL,
	})
	if err != nil {
		h.logger.Error("Failed to enqueue reply job",
			slog.String("message_id", req.MessageID),
			slog.Any("error", err),
		)
		return ""
	}

	guildID, channelID := req.GuildID, req.ChannelID
	h.awaiter.Go("llm_reply", task.JobID, func(ctx context.Context) error {
		result, err := h.queue.WaitForResult(ctx, task.JobID, h.replyWaitTimeout)
		if err != nil {
			return err
		}
		if !result.IsOK() {
			return fmt.Errorf("reply generation failed: %s", result.Error)
		}

		reply := result.StringField("reply")
		if reply == "" {
			return nil
		}

		return h.webhook.SendReply(ctx, guildID, channelID, reply)
	})

	return task.JobID
}

// HandleMessageDelete records a deletion event. Details the event omits
// are backfilled from the audited copy of the message when one exists.
func (h *EventHandler) HandleMessageDelete(c *gin.Context) {
	var req dto.MessageDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()

	del := &model.Deletion{
		MessageID: req.MessageID,
		GuildID:   req.GuildID,
		ChannelID: req.ChannelID,
		AuthorID:  req.AuthorID,
		DeleterID: req.DeleterID,
		Content:   req.Content,
	}

	logged, err := h.storage.GetMessage(ctx, req.MessageID)
	if err != nil {
		h.logger.Error("Failed to look up audited message",
			slog.String("message_id", req.MessageID),
			slog.Any("error", err),
		)
	} else if logged != nil {
		if del.Content == "" {
			del.Content = logged.Content
		}
		if del.AuthorID == "" {
			del.AuthorID = logged.AuthorID
		}
		if del.ChannelID == "" {
			del.ChannelID = logged.ChannelID
		}
		del.CreatedAt = logged.CreatedAt
	}

	if err := h.storage.RecordDeletion(ctx, del); err != nil {
		h.logger.Error("Failed to record deletion",
			slog.String("message_id", req.MessageID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to record deletion"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message_id": req.MessageID})
}

// extractVerdict pulls the classifier verdict out of a safety_scan
// result. A missing or null verdict means nothing was classified.
func extractVerdict(result *taskqueue.Result) (string, []string) {
	raw, ok := result.Field("verdict")
	if !ok || raw == nil {
		return "", nil
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return "", nil
	}

	verdict, _ := obj["verdict"].(string)

	var categories []string
	if list, ok := obj["categories"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				categories = append(categories, s)
			}
		}
	}

	return verdict, categories
}

// GetLeaderboard returns the guild's most active users
func (h *EventHandler) GetLeaderboard(c *gin.Context) {
	guildID := c.Param("guild_id")

	users, err := h.storage.TopUsers(c.Request.Context(), guildID, 10)
	if err != nil {
		h.logger.Error("Failed to load leaderboard",
			slog.String("guild_id", guildID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to load leaderboard"})
		return
	}

	resp := dto.LeaderboardResponse{
		GuildID: guildID,
		Users:   make([]dto.LeaderboardEntry, 0, len(users)),
	}
	for _, u := range users {
		resp.Users = append(resp.Users, dto.LeaderboardEntry{
			UserID:   u.UserID,
			Messages: u.Messages,
			XP:       u.XP,
			Level:    u.Level,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// GetUserStats returns one user's activity totals
func (h *EventHandler) GetUserStats(c *gin.Context) {
	guildID := c.Param("guild_id")
	userID := c.Param("user_id")

	stats, err := h.storage.GetUserStats(c.Request.Context(), guildID, userID)
	if err != nil {
		h.logger.Error("Failed to load user stats",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to load user stats"})
		return
	}

	c.JSON(http.StatusOK, dto.UserStatsResponse{
		GuildID:  guildID,
		UserID:   userID,
		Messages: stats.Messages,
		XP:       stats.XP,
		Level:    stats.Level,
	})
}
