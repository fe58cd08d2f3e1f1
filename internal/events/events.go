// Package events publishes notifications about changed transcripts.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const QueueChanged = "transcripts.changed"

// Changed is published after a command modified the transcripts of a component.
type Changed struct {
	ComponentID string    `json:"component_id"`
	Command     string    `json:"command"`
	VideoIDs    []string  `json:"video_ids"`
	At          time.Time `json:"at"`
}

type Publisher interface {
	PublishChanged(ctx context.Context, c Changed) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishChanged(context.Context, Changed) error { return nil }

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type AMQPPublisher struct {
	conn *amqp.Connection
	ch   channel
}

func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	return newAMQPPublisher(conn, ch)
}

func newAMQPPublisher(conn *amqp.Connection, ch channel) (*AMQPPublisher, error) {
	if _, err := ch.QueueDeclare(QueueChanged, true, false, false, false, nil); err != nil {
		ch.Close()
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("declaring queue %q: %w", QueueChanged, err)
	}

	return &AMQPPublisher{conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) PublishChanged(ctx context.Context, c Changed) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	if err := p.ch.PublishWithContext(ctx, "", QueueChanged, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    c.At,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publishing to %q: %w", QueueChanged, err)
	}

	return nil
}

func (p *AMQPPublisher) Close() {
	if err := p.ch.Close(); err != nil {
		log.Printf("[WARN]: closing rabbitmq channel: %v", err)
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			log.Printf("[WARN]: closing rabbitmq connection: %v", err)
		}
	}
	log.Println("[INFO]: rabbitmq publisher closed")
}
