package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

// ActivityService writes a structured activity log entry for every ticket
// event. It is in-process only; nothing is delivered anywhere.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger) *ActivityService {
	return &ActivityService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to ticket events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.logEvent)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.logEvent)
	a.dispatcher.Subscribe(events.EventTicketAssigned, a.logEvent)
	a.dispatcher.Subscribe(events.EventTicketDeleted, a.logEvent)
	a.dispatcher.Subscribe(events.EventTicketCommented, a.logEvent)
}

func (a *ActivityService) logEvent(_ context.Context, event events.Event) error {
	a.logger.Info("ticket activity",
		zap.String("event", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	return nil
}
