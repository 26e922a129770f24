package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/smartmaint/maintenance-service/internal/config"
	"github.com/smartmaint/maintenance-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
// Delivery is best effort: failures are logged and never surfaced to the
// operation that raised the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserCreated, n.handleUserCreated)
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketEvent)
	n.dispatcher.Subscribe(events.EventEntityRestored, n.handleTicketEvent)
}

// handleUserCreated sends the welcome mail carrying initial credentials. The
// password never reaches the log output.
func (n *NotificationService) handleUserCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("UserCreated", zap.String("user_id", event.EntityID), zap.String("email", payload.Email))
	n.sendEmailStub(ctx, payload.Email, event)
	return nil
}

func (n *NotificationService) handleTicketEvent(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type), zap.String("entity_id", event.EntityID), zap.Any("payload", event.Payload))
	n.sendWebhookStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailStub(ctx context.Context, to string, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("entity_id", event.EntityID),
		zap.String("event_type", string(event.Type)))
}
