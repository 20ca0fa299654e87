package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/track-alarm-bridge/internal/delivery"
	"github.com/nerrad567/track-alarm-bridge/internal/detection"
)

const defaultShutdownGrace = 5 * time.Second

// Logger is the logging surface used by the processor.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Deliverer sends a serialised alarm. *delivery.Client satisfies it.
type Deliverer interface {
	Deliver(ctx context.Context, body []byte) delivery.Outcome
}

// Observer is notified of every Result. Errors are logged and ignored.
type Observer interface {
	Observe(ctx context.Context, res Result) error
}

// Options configures a Processor.
type Options struct {
	// CameraID is copied into every alarm.
	CameraID string

	// Topic and Source identify the subscription, for logging.
	Topic  string
	Source string

	Deliverer Deliverer
	Logger    Logger
	Observers []Observer

	// ShutdownGrace bounds how long a delivery in flight may continue once
	// the Process context is cancelled. Zero means defaultShutdownGrace.
	ShutdownGrace time.Duration

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// Processor runs the per-message pipeline. Process is safe to call from one
// goroutine at a time; Stats may be read concurrently.
type Processor struct {
	cameraID  string
	topic     string
	source    string
	filter    *detection.Filter
	deliverer Deliverer
	logger    Logger
	observers []Observer
	now       func() time.Time
	newID     func() string
	grace     time.Duration

	stats counters
}

type counters struct {
	received       atomic.Uint64
	decodeFailed   atomic.Uint64
	rejected       atomic.Uint64
	delivered      atomic.Uint64
	deliveryFailed atomic.Uint64
	lastDelivered  atomic.Int64
}

// Stats is a point-in-time snapshot of processor counters.
type Stats struct {
	Received        uint64    `json:"received"`
	DecodeFailed    uint64    `json:"decode_failed"`
	Rejected        uint64    `json:"rejected"`
	Delivered       uint64    `json:"delivered"`
	DeliveryFailed  uint64    `json:"delivery_failed"`
	LastDeliveredAt time.Time `json:"last_delivered_at,omitzero"`
}

// New creates a Processor.
func New(opts Options) (*Processor, error) {
	if opts.Deliverer == nil {
		return nil, fmt.Errorf("deliverer is required")
	}
	if opts.CameraID == "" {
		return nil, fmt.Errorf("camera id is required")
	}

	p := &Processor{
		cameraID:  opts.CameraID,
		topic:     opts.Topic,
		source:    opts.Source,
		filter:    detection.NewFilter(opts.Logger),
		deliverer: opts.Deliverer,
		logger:    opts.Logger,
		observers: opts.Observers,
		now:       opts.Now,
		newID:     opts.NewID,
		grace:     opts.ShutdownGrace,
	}
	if p.grace <= 0 {
		p.grace = defaultShutdownGrace
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p, nil
}

// Process decodes payload, filters it, and delivers an alarm for accepted
// detections. It never returns an error: every outcome is in the Result.
//
// Delivery is not cut off the moment ctx is cancelled: an alarm already
// being sent gets the shutdown grace to finish, then it is abandoned.
func (p *Processor) Process(ctx context.Context, payload []byte) Result {
	p.stats.received.Add(1)
	res := Result{
		EventID:    p.newID(),
		CameraID:   p.cameraID,
		ReceivedAt: p.now(),
	}

	rec, err := detection.Decode(payload)
	if err != nil {
		res.Stage = StageDecodeFailed
		res.Err = err
		p.stats.decodeFailed.Add(1)
		if errors.Is(err, detection.ErrNoClasses) {
			p.logInfo("no classes in track message", "event_id", res.EventID)
		} else {
			p.logError("failed to decode track message", "event_id", res.EventID, "error", err)
		}
		return p.finish(ctx, res)
	}
	res.Record = rec

	if !p.filter.Accept(rec) {
		res.Stage = StageRejected
		p.stats.rejected.Add(1)
		return p.finish(ctx, res)
	}

	p.logInfo("alarm detection",
		"event_id", res.EventID,
		"topic", p.topic,
		"source", p.source,
		"type", rec.Type,
		"score", fmt.Sprintf("%.4f", rec.Score),
		"image_present", rec.HasImage(),
		"camera_id", p.cameraID,
	)

	body, err := detection.NewAlarm(rec, p.cameraID).Marshal()
	if err != nil {
		res.Stage = StageDeliveryFailed
		res.Err = err
		p.stats.deliveryFailed.Add(1)
		p.logError("failed to encode alarm", "event_id", res.EventID, "error", err)
		return p.finish(ctx, res)
	}

	dctx, release := p.deliveryContext(ctx)
	out := p.deliverer.Deliver(dctx, body)
	release()
	res.StatusCode = out.StatusCode
	if out.Delivered {
		res.Stage = StageDelivered
		p.stats.delivered.Add(1)
		p.stats.lastDelivered.Store(res.ReceivedAt.UnixNano())
	} else {
		res.Stage = StageDeliveryFailed
		res.Err = out.Err
		p.stats.deliveryFailed.Add(1)
	}
	return p.finish(ctx, res)
}

// Handle adapts Process to the subscriber handler signature.
func (p *Processor) Handle(ctx context.Context, payload []byte) {
	p.Process(ctx, payload)
}

// Stats returns a snapshot of the counters.
func (p *Processor) Stats() Stats {
	s := Stats{
		Received:       p.stats.received.Load(),
		DecodeFailed:   p.stats.decodeFailed.Load(),
		Rejected:       p.stats.rejected.Load(),
		Delivered:      p.stats.delivered.Load(),
		DeliveryFailed: p.stats.deliveryFailed.Load(),
	}
	if ns := p.stats.lastDelivered.Load(); ns != 0 {
		s.LastDeliveredAt = time.Unix(0, ns).UTC()
	}
	return s
}

// deliveryContext outlives ctx by at most p.grace. The returned func must
// be called once the delivery is over.
func (p *Processor) deliveryContext(ctx context.Context) (context.Context, func()) {
	dctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		t := time.NewTimer(p.grace)
		defer t.Stop()
		select {
		case <-dctx.Done():
		case <-t.C:
			p.logInfo("abandoning alarm delivery after shutdown grace", "grace", p.grace.String())
			cancel()
		}
	})
	return dctx, func() {
		stop()
		cancel()
	}
}

func (p *Processor) finish(ctx context.Context, res Result) Result {
	obsCtx := context.WithoutCancel(ctx)
	for _, o := range p.observers {
		if err := o.Observe(obsCtx, res); err != nil {
			p.logError("observer failed", "event_id", res.EventID, "error", err)
		}
	}
	return res
}

func (p *Processor) logInfo(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Processor) logError(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
