package nats

import (
	"errors"
	"fmt"
	"time"

	"github.com/smartcontractkit/chainlink-common/pkg/logger"
)

const (
	defaultStream         = "OCR2_AGGREGATOR_EVENTS"
	defaultSubjectPrefix  = "ocr2.aggregator"
	defaultQueueSize      = 1024
	defaultPublishTimeout = time.Second
	defaultDedupeWindow   = 24 * time.Hour
	defaultMaxAttempts    = 5
)

type PublisherOpts struct {
	Logger     logger.Logger
	ServerURLs []string
	// Client name announced to the server
	Name string

	// JetStream stream capturing every published subject; created if missing
	Stream        string
	SubjectPrefix string

	// Events buffered between the aggregator and the connection. Emit drops
	// events once the buffer is full.
	QueueSize      int
	PublishTimeout time.Duration
	DedupeWindow   time.Duration
	// Attempts per event before it is dropped
	MaxPublishAttempts int
}

func (o *PublisherOpts) setDefaults() {
	if o.Stream == "" {
		o.Stream = defaultStream
	}
	if o.SubjectPrefix == "" {
		o.SubjectPrefix = defaultSubjectPrefix
	}
	if o.QueueSize == 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.PublishTimeout == 0 {
		o.PublishTimeout = defaultPublishTimeout
	}
	if o.DedupeWindow == 0 {
		o.DedupeWindow = defaultDedupeWindow
	}
	if o.MaxPublishAttempts == 0 {
		o.MaxPublishAttempts = defaultMaxAttempts
	}
}

// verifyConfig validates all required fields are properly set
func (o *PublisherOpts) verifyConfig() error {
	var errs []error

	if o.Logger == nil {
		errs = append(errs, errors.New("logger is required for NATS publisher"))
	}
	if len(o.ServerURLs) == 0 {
		errs = append(errs, errors.New("at least one server URL is required for NATS publisher"))
	}
	if o.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("queue size must not be negative, got %d", o.QueueSize))
	}
	if o.MaxPublishAttempts < 0 {
		errs = append(errs, fmt.Errorf("max publish attempts must not be negative, got %d", o.MaxPublishAttempts))
	}
	if o.PublishTimeout < 0 {
		errs = append(errs, fmt.Errorf("publish timeout must not be negative, got %s", o.PublishTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid NATS publisher configuration: %w", errors.Join(errs...))
	}

	return nil
}
