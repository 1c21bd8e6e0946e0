package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
)

// Notification channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelQueue = "queue"
)

// NotificationService turns domain events into outbound notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	queue      *redis.Client
	queueKey   string
}

// NewNotificationService creates the service. queue may be nil, in which case the
// queue channel reports every delivery as failed.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, queue *redis.Client, queueKey string) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		queue:      queue,
		queueKey:   queueKey,
	}
}

// DefaultChannel is used when a caller names no channel.
func (n *NotificationService) DefaultChannel() string {
	return n.cfg.DefaultChannel
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleLifecycle)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleLifecycle)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleLifecycle)
	n.dispatcher.Subscribe(events.EventTicketReversed, n.handleLifecycle)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleLifecycle)
	n.dispatcher.Subscribe(events.EventNotificationRequested, n.handleNotificationRequested)
}

// Notify publishes a notification request. Handler failures come back wrapped in
// domain.ErrNotificationFailure.
func (n *NotificationService) Notify(ctx context.Context, ticketID, senderID, recipientID, message, channel string) error {
	if n.dispatcher == nil {
		return nil
	}
	if channel == "" {
		channel = n.cfg.DefaultChannel
	}
	err := n.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventNotificationRequested,
		TicketID:  ticketID,
		Actor:     events.Actor{Type: domain.SubjectTypeStaff, StaffID: &senderID},
		Timestamp: time.Now(),
		Payload: events.NotificationPayload{
			SenderID:    senderID,
			RecipientID: recipientID,
			Message:     message,
			Channel:     channel,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNotificationFailure, err)
	}
	return nil
}

func (n *NotificationService) handleLifecycle(_ context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleNotificationRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NotificationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	switch payload.Channel {
	case ChannelEmail:
		return n.sendEmailStub(event, payload)
	case ChannelSMS:
		return n.sendSMSStub(event, payload)
	case ChannelQueue:
		return n.enqueue(ctx, event, payload)
	default:
		return fmt.Errorf("unknown notification channel %q", payload.Channel)
	}
}

func (n *NotificationService) sendEmailStub(event events.Event, payload events.NotificationPayload) error {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return errors.New("email sender not configured")
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("recipient_id", payload.RecipientID),
		zap.String("ticket_id", event.TicketID),
		zap.String("message", payload.Message))
	return nil
}

func (n *NotificationService) sendSMSStub(event events.Event, payload events.NotificationPayload) error {
	if strings.TrimSpace(n.cfg.SMSSender) == "" {
		return errors.New("sms sender not configured")
	}
	n.logger.Debug("sendSMSStub",
		zap.String("sender", n.cfg.SMSSender),
		zap.String("recipient_id", payload.RecipientID),
		zap.String("ticket_id", event.TicketID),
		zap.String("message", payload.Message))
	return nil
}

type queuedNotification struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Message     string    `json:"message"`
	QueuedAt    time.Time `json:"queued_at"`
}

func (n *NotificationService) enqueue(ctx context.Context, event events.Event, payload events.NotificationPayload) error {
	if n.queue == nil {
		return errors.New("notification queue not configured")
	}
	job, err := json.Marshal(queuedNotification{
		ID:          event.ID,
		TicketID:    event.TicketID,
		SenderID:    payload.SenderID,
		RecipientID: payload.RecipientID,
		Message:     payload.Message,
		QueuedAt:    event.Timestamp,
	})
	if err != nil {
		return err
	}
	return n.queue.RPush(ctx, n.queueKey, job).Err()
}
