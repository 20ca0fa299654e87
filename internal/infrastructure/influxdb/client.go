package influxdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/track-alarm-bridge/internal/infrastructure/config"
)

const (
	connectPingTimeout = 10 * time.Second
	pingTimeout        = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Recorder writes track pipeline outcomes to one InfluxDB bucket.
// Writes are batched and never block the pipeline.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	closed  atomic.Bool
	onError atomic.Pointer[func(error)]
}

// Connect pings the server and returns a Recorder writing to cfg.Bucket.
// It returns ErrDisabled when cfg.Enabled is false.
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, clientOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, connectPingTimeout)
	defer cancel()

	if healthy, err := client.Ping(pingCtx); err != nil || !healthy {
		client.Close()
		if err == nil {
			err = fmt.Errorf("ping reported unhealthy")
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, cfg.URL, err)
	}

	r := &Recorder{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go r.forwardErrors(r.writeAPI.Errors())

	return r, nil
}

// clientOptions applies batch defaults for unset or invalid values.
func clientOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	flush := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		flush = time.Duration(cfg.FlushInterval) * time.Second
	}

	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(flush.Milliseconds()))
}

// forwardErrors hands async write failures to the SetOnError callback.
func (r *Recorder) forwardErrors(errs <-chan error) {
	for err := range errs {
		if cb := r.onError.Load(); cb != nil {
			(*cb)(err)
		}
	}
}

// SetOnError registers the callback for failed batch writes. Without one,
// failures are dropped.
func (r *Recorder) SetOnError(callback func(err error)) {
	r.onError.Store(&callback)
}

// Ping checks that the server still answers.
func (r *Recorder) Ping(ctx context.Context) error {
	if r.closed.Load() {
		return ErrClosed
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := r.client.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("influxdb ping: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb ping: server not healthy")
	}
	return nil
}

// Flush sends buffered points now. No-op once closed.
func (r *Recorder) Flush() {
	if r.closed.Load() {
		return
	}
	r.writeAPI.Flush()
}

// Close flushes buffered points and releases the client. Safe to call twice
// and on a nil Recorder.
func (r *Recorder) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	if r.closed.Swap(true) {
		return nil
	}
	r.writeAPI.Flush()
	r.client.Close()
	return nil
}
