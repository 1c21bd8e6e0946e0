package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/service"
)

func newNotificationService(cfg config.NotificationConfig) (*service.NotificationService, events.Dispatcher) {
	dispatcher := events.NewInMemoryDispatcher()
	svc := service.NewNotificationService(dispatcher, zap.NewNop(), cfg, nil, "")
	svc.RegisterHandlers()
	return svc, dispatcher
}

func TestNotifyDeliversOverConfiguredChannels(t *testing.T) {
	svc, dispatcher := newNotificationService(config.NotificationConfig{
		EmailFrom:      "desk@example.com",
		SMSSender:      "DESK",
		DefaultChannel: service.ChannelEmail,
	})

	var seen []events.NotificationPayload
	dispatcher.Subscribe(events.EventNotificationRequested, func(_ context.Context, event events.Event) error {
		seen = append(seen, event.Payload.(events.NotificationPayload))
		return nil
	})

	ctx := context.Background()
	require.NoError(t, svc.Notify(ctx, "t-1", "a", "b", "hello", ""))
	require.NoError(t, svc.Notify(ctx, "t-1", "a", "b", "hello", service.ChannelSMS))

	require.Len(t, seen, 2)
	assert.Equal(t, service.ChannelEmail, seen[0].Channel)
	assert.Equal(t, service.ChannelSMS, seen[1].Channel)
	assert.Equal(t, "b", seen[0].RecipientID)
}

func TestNotifyWrapsDeliveryFailures(t *testing.T) {
	svc, _ := newNotificationService(config.NotificationConfig{DefaultChannel: service.ChannelEmail})
	ctx := context.Background()

	err := svc.Notify(ctx, "t-1", "a", "b", "hello", "")
	assert.ErrorIs(t, err, domain.ErrNotificationFailure)
	assert.ErrorContains(t, err, "email sender not configured")

	err = svc.Notify(ctx, "t-1", "a", "b", "hello", "pigeon")
	assert.ErrorIs(t, err, domain.ErrNotificationFailure)
	assert.ErrorContains(t, err, "unknown notification channel")

	err = svc.Notify(ctx, "t-1", "a", "b", "hello", service.ChannelQueue)
	assert.ErrorIs(t, err, domain.ErrNotificationFailure)
}

func TestLifecycleHandlersObserveTransitions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	svc := service.NewNotificationService(e.dispatcher, zap.NewNop(), config.NotificationConfig{EmailFrom: "desk@example.com", DefaultChannel: service.ChannelEmail}, nil, "")
	svc.RegisterHandlers()

	coordinator := e.hire(t, domain.RoleCoordinator, nil)
	e.hire(t, domain.RoleAttendee, nil)
	ticket, err := e.workflow.CreateTicket(ctx, coordinator, service.CreateTicketInput{Category: domain.CategoryComplaint, Subject: "x"})
	require.NoError(t, err)

	// lifecycle handlers run on the shared dispatcher and must not fail the write
	updated, err := e.workflow.AssignToNext(ctx, coordinator, ticket.ID, service.AssignInput{})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAttendee, updated.CurrentRole)
	assert.Equal(t, 1, e.notifier.calls)
}
