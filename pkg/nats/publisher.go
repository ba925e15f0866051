// Package nats forwards committed aggregator events to a NATS JetStream
// stream.
package nats

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/jpillora/backoff"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smartcontractkit/chainlink-common/pkg/logger"
	"github.com/smartcontractkit/chainlink-common/pkg/services"

	"github.com/smartcontractkit/chainlink-ocr2-aggregator/aggregator"
)

// closeTimeout bounds how long Close waits for buffered messages to drain.
const closeTimeout = 10 * time.Second

var (
	promPublishCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ocr2",
		Subsystem: "events",
		Name:      "publish_count",
		Help:      "Number of aggregator events handed to NATS, labeled by outcome",
	},
		[]string{"event", "status"},
	)
)

// Publisher is an aggregator.EventSink that publishes every event to
// <SubjectPrefix>.<contract>.<event name>.
type Publisher interface {
	services.Service
	aggregator.EventSink
}

var _ Publisher = (*publisher)(nil)

type publisher struct {
	services.Service
	eng *services.Engine

	lggr logger.SugaredLogger
	opts PublisherOpts

	queue chan aggregator.EventRecord

	conn atomic.Pointer[nats.Conn]
	js   nats.JetStreamContext
	// closed once the connection handlers are done
	closed chan struct{}

	// Reusable hash instances
	hashPool sync.Pool
}

func NewPublisher(opts PublisherOpts) (Publisher, error) {
	opts.setDefaults()
	if err := opts.verifyConfig(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	p := &publisher{
		lggr:  logger.Sugared(opts.Logger).Named("NATSPublisher"),
		opts:  opts,
		queue:  make(chan aggregator.EventRecord, opts.QueueSize),
		closed: make(chan struct{}),
	}
	p.hashPool.New = func() interface{} {
		return xxhash.New()
	}

	p.Service, p.eng = services.Config{
		Name:  "NATSPublisher",
		Start: p.start,
		Close: p.close,
	}.NewServiceEngine(opts.Logger)

	return p, nil
}

func (p *publisher) start(context.Context) error {
	nc, js, err := connect(p.lggr, p.opts.Name, p.opts.ServerURLs, func() { close(p.closed) })
	if err != nil {
		return err
	}
	if err = ensureStream(js, p.opts.Stream, p.opts.SubjectPrefix+".>", p.opts.DedupeWindow); err != nil {
		nc.Close()
		return err
	}
	p.js = js
	p.conn.Store(nc)
	p.eng.Go(p.run)
	return nil
}

// close drains the connection and returns once the connection handlers have
// run, so nothing logs after the service stopped.
func (p *publisher) close() error {
	nc := p.conn.Load()
	if nc == nil {
		return nil
	}
	if err := nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	select {
	case <-p.closed:
		return nil
	case <-time.After(closeTimeout):
		nc.Close()
		return fmt.Errorf("NATS connection did not drain within %s", closeTimeout)
	}
}

// Emit queues records without blocking the caller. Records that do not fit
// into the queue are dropped.
func (p *publisher) Emit(records ...aggregator.EventRecord) {
	for _, rec := range records {
		select {
		case p.queue <- rec:
		default:
			promPublishCount.WithLabelValues(rec.Name, "dropped").Inc()
			p.lggr.Warnw("Event queue full, dropping event", "event", rec.Name, "seq", rec.Seq)
		}
	}
}

func (p *publisher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if n := len(p.queue); n > 0 {
				p.lggr.Warnw("Publisher stopped with unpublished events", "count", n)
			}
			return
		case rec := <-p.queue:
			p.publishWithRetry(ctx, rec)
		}
	}
}

func newRetryBackoff() backoff.Backoff {
	return backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    5 * time.Second,
		Jitter: true,
	}
}

// publishWithRetry blocks the queue until rec is stored, the attempts are
// exhausted or the publisher stops, so events reach the stream in order.
func (p *publisher) publishWithRetry(ctx context.Context, rec aggregator.EventRecord) {
	b := newRetryBackoff()
	for attempt := 1; ; attempt++ {
		err := p.publish(ctx, rec)
		if err == nil {
			return
		}
		if attempt >= p.opts.MaxPublishAttempts {
			p.lggr.Errorw("Failed to publish event, giving up", "err", err, "event", rec.Name, "seq", rec.Seq, "blockNumber", rec.BlockNumber, "attempts", attempt)
			return
		}
		wait := b.Duration()
		p.lggr.Warnw("Failed to publish event, retrying", "err", err, "event", rec.Name, "seq", rec.Seq, "attempt", attempt, "wait", wait)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (p *publisher) publish(ctx context.Context, rec aggregator.EventRecord) (err error) {
	status := "success"
	defer func() {
		if err != nil {
			status = "error"
		}
		promPublishCount.WithLabelValues(rec.Name, status).Inc()
	}()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.PublishTimeout)
	defer cancel()

	ack, err := p.js.Publish(p.subject(rec), payload, nats.MsgId(p.dedupeKey(payload)), nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}
	if ack.Duplicate {
		status = "duplicate"
	}
	p.lggr.Debugw("Published event", "event", rec.Name, "seq", rec.Seq, "stream", ack.Stream, "streamSeq", ack.Sequence)
	return nil
}

func (p *publisher) subject(rec aggregator.EventRecord) string {
	return fmt.Sprintf("%s.%s.%s", p.opts.SubjectPrefix, rec.Contract.Hex(), rec.Name)
}

// dedupeKey hashes the encoded record, which carries contract, block,
// sequence number and event body. Only a republished copy of the same event
// is discarded by the server; sequence numbers restart with every Aggregator.
func (p *publisher) dedupeKey(payload []byte) string {
	h := p.hashPool.Get().(*xxhash.Digest)
	defer p.hashPool.Put(h)

	h.Reset()
	_, _ = h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

func (p *publisher) Healthy() error {
	nc := p.conn.Load()
	switch {
	case nc == nil:
		return errors.New("NATS connection is nil")
	case !nc.IsConnected():
		return fmt.Errorf("NATS connection is %s", nc.Status())
	default:
		return nil
	}
}

func (p *publisher) HealthReport() map[string]error {
	return map[string]error{p.Name(): p.Healthy()}
}
