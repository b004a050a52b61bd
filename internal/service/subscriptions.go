package service

import (
	"context"

	"flowershop/internal/events"
	"flowershop/internal/models"
)

// Subscribe wires the manager notifications and the channel feed to the event bus. Handlers run inline in
// the publishing request.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventOrderCreated, func(e *events.Event) error {
		var p events.OrderEventPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		id := p.OrderID
		n.NotifyManagers(context.Background(), models.NotifyOrderCreated, &id, newOrderMessage(p))
		return nil
	})

	bus.Subscribe(events.EventConsultationCreated, func(e *events.Event) error {
		var p events.ConsultationEventPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		n.NotifyManagers(context.Background(), models.NotifyConsultationCreated, nil, newConsultationMessage(p))
		return nil
	})

	bus.Subscribe(events.EventOrderStatusChanged, func(e *events.Event) error {
		var p events.OrderEventPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		if n.cfg.ChannelID == "" {
			return nil
		}
		n.SendToChannel(context.Background(), statusChangedMessage(p))
		return nil
	})
}
