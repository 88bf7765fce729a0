package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/guildest/guildest/internal/gateway"
	"github.com/guildest/guildest/internal/gateway/model"
	"github.com/guildest/guildest/internal/moderation"
	"github.com/guildest/guildest/internal/notify"
	"github.com/guildest/guildest/internal/observability"
	"github.com/guildest/guildest/internal/taskqueue"
)

// Store is the persistence surface the handlers use. *storage.Storage
// implements it against Postgres.
type Store interface {
	LogMessage(ctx context.Context, rec *model.MessageRecord) error
	GetMessage(ctx context.Context, messageID string) (*model.MessageRecord, error)
	IncrementActivity(ctx context.Context, guildID, userID string, xpGain int) (*model.Activity, error)
	RecordDeletion(ctx context.Context, del *model.Deletion) error
	TopUsers(ctx context.Context, guildID string, limit int) ([]model.UserLevel, error)
	GetUserStats(ctx context.Context, guildID, userID string) (*model.UserLevel, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Queue   *taskqueue.Queue
	Storage Store
	Spam    *moderation.Tracker
	Webhook *notify.Webhook
	Awaiter *gateway.Awaiter

	MessageXP        int
	ScanWaitTimeout  time.Duration
	ScanResultTTL    int
	ReplyWaitTimeout time.Duration
	ReplyResultTTL   int
}

// EventHandler handles message-event HTTP requests
type EventHandler struct {
	logger  *slog.Logger
	queue   *taskqueue.Queue
	storage Store
	spam    *moderation.Tracker
	webhook *notify.Webhook
	awaiter *gateway.Awaiter
	metrics *observability.Metrics

	messageXP        int
	scanWaitTimeout  time.Duration
	scanResultTTL    int
	replyWaitTimeout time.Duration
	replyResultTTL   int
}

// NewEventHandler creates a new EventHandler instance
func NewEventHandler(deps *Dependencies) *EventHandler {
	messageXP := deps.MessageXP
	if messageXP <= 0 {
		messageXP = 5
	}
	scanWait := deps.ScanWaitTimeout
	if scanWait <= 0 {
		scanWait = 30 * time.Second
	}
	scanTTL := deps.ScanResultTTL
	if scanTTL <= 0 {
		scanTTL = 90
	}
	replyWait := deps.ReplyWaitTimeout
	if replyWait <= 0 {
		replyWait = 75 * time.Second
	}
	replyTTL := deps.ReplyResultTTL
	if replyTTL <= 0 {
		replyTTL = 180
	}

	return &EventHandler{
		logger:           deps.Logger,
		queue:            deps.Queue,
		storage:          deps.Storage,
		spam:             deps.Spam,
		webhook:          deps.Webhook,
		awaiter:          deps.Awaiter,
		metrics:          observability.Get(),
		messageXP:        messageXP,
		scanWaitTimeout:  scanWait,
		scanResultTTL:    scanTTL,
		replyWaitTimeout: replyWait,
		replyResultTTL:   replyTTL,
	}
}
