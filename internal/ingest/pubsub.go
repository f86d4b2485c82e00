package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Job types carried in ingest messages.
const (
	JobTypeIngest = "ingest"
	JobTypePurge  = "purge"
)

// Message is an on-demand job request published to the ingest topic.
type Message struct {
	JobType string `json:"job_type"`

	// Before is the purge cutoff, RFC3339. Only used by purge jobs.
	Before string `json:"before,omitempty"`
}

// PubSubConfig holds configuration for the Pub/Sub subscriber.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Job              *Job
	Logger           zerolog.Logger
}

// PubSubHandler consumes on-demand ingest jobs from a subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	job              *Job
	logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 5
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		job:              cfg.Job,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing messages. Blocks until the context is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting ingest subscriber")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	start := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Logger()

	var m Message
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		logger.Error().Err(err).Msg("failed to parse ingest message")
		msg.Nack()
		return
	}

	var err error
	switch m.JobType {
	case JobTypeIngest:
		_, err = h.job.Run(ctx)
	case JobTypePurge:
		err = h.handlePurge(ctx, m)
	default:
		logger.Warn().Str("job_type", m.JobType).Msg("unknown job type")
		// Ack so unknown messages are not redelivered forever.
		msg.Ack()
		return
	}

	if err != nil {
		logger.Error().Err(err).Str("job_type", m.JobType).Msg("ingest job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Str("job_type", m.JobType).
		Dur("duration", time.Since(start)).
		Msg("ingest job completed")
	msg.Ack()
}

func (h *PubSubHandler) handlePurge(ctx context.Context, m Message) error {
	cutoff, err := time.Parse(time.RFC3339, m.Before)
	if err != nil {
		return fmt.Errorf("invalid purge cutoff %q: %w", m.Before, err)
	}
	_, err = h.job.Purge(ctx, cutoff)
	return err
}

// Publisher publishes on-demand job requests to the ingest topic.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	logger    zerolog.Logger
}

// NewPublisher creates a new ingest job publisher.
func NewPublisher(ctx context.Context, projectID, topicName string, logger zerolog.Logger) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &Publisher{
		client:    client,
		publisher: client.Publisher(topicName),
		logger:    logger,
	}, nil
}

// Publish sends a job message and waits for the server acknowledgement.
func (p *Publisher) Publish(ctx context.Context, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal ingest message: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("publish ingest message: %w", err)
	}

	p.logger.Debug().Str("message_id", id).Str("job_type", m.JobType).Msg("ingest job published")
	return nil
}

// Close closes the underlying client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
