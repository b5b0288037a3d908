package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/zoho-lead-sync/internal/entity"
)

// Publisher é o subconjunto de *amqp.Channel usado pelo producer.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ErrNotConnected é devolvido quando o canal ainda não foi aberto.
var ErrNotConnected = eris.New("rabbitmq channel not connected")

// RabbitMQProducer publica o RunReport de cada run em ExchangeName.
// Ch pode ser preenchido depois, quando a conexão só abre dentro do run.
type RabbitMQProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) Notify(ctx context.Context, report entity.RunReport) error {
	if p.Ch == nil {
		return ErrNotConnected
	}

	body, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "failed to encode run report")
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    report.RunID,
			Type:         entity.NotificationSubject,
			Timestamp:    report.FinishedAt,
		},
	)
	if err != nil {
		return eris.Wrap(err, "failed to publish to RabbitMQ")
	}
	return nil
}
