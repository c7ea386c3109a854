package bus

import "context"

// Publisher abstracts publishing a notification-lifecycle event, mirroring
// the teacher's provider.Provider interface: a narrow seam the service
// layer depends on so unit tests can swap in a fake without a broker.
type Publisher interface {
	PublishNotificationEvent(ctx context.Context, evt NotificationEvent) error
	PublishConfirmation(ctx context.Context, c Confirmation) error
}

type clientPublisher struct {
	client *Client
}

// NewPublisher adapts a *Client to the Publisher interface.
func NewPublisher(client *Client) Publisher {
	return &clientPublisher{client: client}
}

func (p *clientPublisher) PublishNotificationEvent(ctx context.Context, evt NotificationEvent) error {
	body, err := marshalEvent(evt)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, ExchangeNotifications, string(evt.Status), body)
}

func (p *clientPublisher) PublishConfirmation(ctx context.Context, c Confirmation) error {
	body, err := marshalConfirmation(c)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, ExchangeConfirmations, "", body)
}

var _ Publisher = (*clientPublisher)(nil)
