package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/track-alarm-bridge/internal/delivery"
	"github.com/nerrad567/track-alarm-bridge/internal/detection"
)

// ============================================================================
// Fakes
// ============================================================================

type fakeDeliverer struct {
	mu      sync.Mutex
	bodies  [][]byte
	ctxErrs []error
	outcome delivery.Outcome
}

func (d *fakeDeliverer) Deliver(ctx context.Context, body []byte) delivery.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bodies = append(d.bodies, body)
	d.ctxErrs = append(d.ctxErrs, ctx.Err())
	return d.outcome
}

func (d *fakeDeliverer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bodies)
}

// slowDeliverer succeeds after delay unless ctx ends first.
type slowDeliverer struct {
	delay time.Duration
}

func (d *slowDeliverer) Deliver(ctx context.Context, _ []byte) delivery.Outcome {
	select {
	case <-time.After(d.delay):
		return delivery.Outcome{Delivered: true, StatusCode: 200}
	case <-ctx.Done():
		return delivery.Outcome{Err: ctx.Err()}
	}
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type fakeLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *fakeLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *fakeLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *fakeLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *fakeLogger) find(msg string) (logEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.msg == msg {
			return e, true
		}
	}
	return logEntry{}, false
}

type fakeObserver struct {
	results []Result
	err     error
}

func (o *fakeObserver) Observe(_ context.Context, res Result) error {
	o.results = append(o.results, res)
	return o.err
}

func newTestProcessor(t *testing.T, d Deliverer, observers ...Observer) (*Processor, *fakeLogger) {
	t.Helper()
	logger := &fakeLogger{}
	seq := 0
	p, err := New(Options{
		CameraID:  "CAM123",
		Topic:     "com.axis.consolidated_track.v1.beta",
		Source:    "1",
		Deliverer: d,
		Logger:    logger,
		Observers: observers,
		Now:       func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("evt-%d", seq)
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, logger
}

func argValue(args []any, key string) (any, bool) {
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == key {
			return args[i+1], true
		}
	}
	return nil, false
}

// ============================================================================
// Tests
// ============================================================================

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{CameraID: "CAM"}); err == nil {
		t.Error("New() without deliverer succeeded, want error")
	}
	if _, err := New(Options{Deliverer: &fakeDeliverer{}}); err == nil {
		t.Error("New() without camera id succeeded, want error")
	}
}

func TestProcess_DeliversAcceptedDetection(t *testing.T) {
	d := &fakeDeliverer{outcome: delivery.Outcome{Delivered: true, StatusCode: 200}}
	p, logger := newTestProcessor(t, d)

	res := p.Process(context.Background(), []byte(`{"classes":[{"score":0.87,"type":"Human"}],"image":{"data":"abc"}}`))

	if res.Stage != StageDelivered {
		t.Fatalf("Stage = %s, want delivered (err=%v)", res.Stage, res.Err)
	}
	if res.EventID != "evt-1" || res.StatusCode != 200 {
		t.Errorf("Result = %+v", res)
	}
	if d.calls() != 1 {
		t.Fatalf("deliverer called %d times, want 1", d.calls())
	}

	var body map[string]any
	if err := json.Unmarshal(d.bodies[0], &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	want := map[string]any{"confidence_score": 0.87, "image_base64": "abc", "camera_id": "CAM123", "type": "Human"}
	if len(body) != len(want) {
		t.Errorf("body = %v, want %v", body, want)
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("body[%q] = %v, want %v", k, body[k], v)
		}
	}

	entry, ok := logger.find("alarm detection")
	if !ok {
		t.Fatal("detection was not logged")
	}
	if score, _ := argValue(entry.args, "score"); score != "0.8700" {
		t.Errorf("logged score = %v, want 0.8700", score)
	}
	if img, _ := argValue(entry.args, "image_present"); img != true {
		t.Errorf("logged image_present = %v, want true", img)
	}
}

func TestProcess_NoHTTPCallForFailures(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantStage Stage
		wantErr   error
	}{
		{
			name:      "rejected type",
			payload:   `{"classes":[{"score":0.4,"type":"Vehicle"}],"image":{"data":""}}`,
			wantStage: StageRejected,
		},
		{
			name:      "lowercase face rejected",
			payload:   `{"classes":[{"score":0.9,"type":"face"}],"image":{"data":"x"}}`,
			wantStage: StageRejected,
		},
		{
			name:      "empty classes",
			payload:   `{"classes":[],"image":{"data":""}}`,
			wantStage: StageDecodeFailed,
			wantErr:   detection.ErrNoClasses,
		},
		{
			name:      "missing classes",
			payload:   `{"image":{"data":""}}`,
			wantStage: StageDecodeFailed,
			wantErr:   detection.ErrNoClasses,
		},
		{
			name:      "string score",
			payload:   `{"classes":[{"score":"high","type":"Human"}],"image":{"data":""}}`,
			wantStage: StageDecodeFailed,
			wantErr:   detection.ErrInvalidClassData,
		},
		{
			name:      "numeric image data",
			payload:   `{"classes":[{"score":0.5,"type":"Human"}],"image":{"data":7}}`,
			wantStage: StageDecodeFailed,
			wantErr:   detection.ErrInvalidImageData,
		},
		{
			name:      "not json",
			payload:   `not json`,
			wantStage: StageDecodeFailed,
			wantErr:   detection.ErrMalformedPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDeliverer{outcome: delivery.Outcome{Delivered: true}}
			p, _ := newTestProcessor(t, d)

			res := p.Process(context.Background(), []byte(tt.payload))

			if res.Stage != tt.wantStage {
				t.Errorf("Stage = %s, want %s", res.Stage, tt.wantStage)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			if d.calls() != 0 {
				t.Errorf("deliverer called %d times, want 0", d.calls())
			}
		})
	}
}

func TestProcess_DecodeLogLevels(t *testing.T) {
	d := &fakeDeliverer{}
	p, logger := newTestProcessor(t, d)

	p.Process(context.Background(), []byte(`{"classes":[],"image":{"data":""}}`))
	p.Process(context.Background(), []byte(`{`))

	if e, ok := logger.find("no classes in track message"); !ok || e.level != "info" {
		t.Errorf("empty classes log = %+v, %v; want info entry", e, ok)
	}
	if e, ok := logger.find("failed to decode track message"); !ok || e.level != "error" {
		t.Errorf("malformed payload log = %+v, %v; want error entry", e, ok)
	}
}

func TestProcess_RejectionIsLogged(t *testing.T) {
	p, logger := newTestProcessor(t, &fakeDeliverer{})

	p.Process(context.Background(), []byte(`{"classes":[{"score":0.4,"type":"Vehicle"}],"image":{"data":""}}`))

	e, ok := logger.find("detected object will not raise an alarm")
	if !ok {
		t.Fatal("rejection was not logged")
	}
	if typ, _ := argValue(e.args, "type"); typ != "Vehicle" {
		t.Errorf("logged type = %v, want Vehicle", typ)
	}
}

func TestProcess_DeliveryFailure(t *testing.T) {
	sendErr := fmt.Errorf("%w: connection refused", delivery.ErrSendFailed)
	d := &fakeDeliverer{outcome: delivery.Outcome{Err: sendErr}}
	p, _ := newTestProcessor(t, d)

	res := p.Process(context.Background(), []byte(`{"classes":[{"score":0.9,"type":"Face"}],"image":{"data":""}}`))

	if res.Stage != StageDeliveryFailed {
		t.Errorf("Stage = %s, want delivery_failed", res.Stage)
	}
	if !errors.Is(res.Err, delivery.ErrSendFailed) {
		t.Errorf("Err = %v, want ErrSendFailed", res.Err)
	}

	// The next message is still processed.
	d.outcome = delivery.Outcome{Delivered: true}
	res = p.Process(context.Background(), []byte(`{"classes":[{"score":0.9,"type":"Face"}],"image":{"data":""}}`))
	if res.Stage != StageDelivered {
		t.Errorf("second Stage = %s, want delivered", res.Stage)
	}
}

func TestProcess_DeliveryNotCancelledByShutdown(t *testing.T) {
	d := &fakeDeliverer{outcome: delivery.Outcome{Delivered: true}}
	p, _ := newTestProcessor(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Process(ctx, []byte(`{"classes":[{"score":0.9,"type":"Human"}],"image":{"data":""}}`))

	if d.calls() != 1 {
		t.Fatalf("deliverer called %d times, want 1", d.calls())
	}
	if d.ctxErrs[0] != nil {
		t.Errorf("delivery context error = %v, want nil", d.ctxErrs[0])
	}
}

func TestProcess_HungDeliveryAbandonedAfterGrace(t *testing.T) {
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-unblock:
		}
	}))
	defer srv.Close()
	defer close(unblock)

	client, err := delivery.NewClient(delivery.Options{URL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	p, err := New(Options{CameraID: "CAM123", Deliverer: client, ShutdownGrace: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		done <- p.Process(ctx, []byte(`{"classes":[{"score":0.9,"type":"Face"}],"image":{"data":""}}`))
	}()
	time.AfterFunc(100*time.Millisecond, cancel)

	select {
	case res := <-done:
		if res.Stage != StageDeliveryFailed {
			t.Errorf("Stage = %s, want delivery_failed", res.Stage)
		}
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("Err = %v, want context.Canceled", res.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Process() still blocked after cancel and grace")
	}
}

func TestProcess_DeliveryFinishesWithinGrace(t *testing.T) {
	d := &slowDeliverer{delay: 50 * time.Millisecond}
	p, err := New(Options{CameraID: "CAM123", Deliverer: d, ShutdownGrace: 2 * time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := p.Process(ctx, []byte(`{"classes":[{"score":0.9,"type":"Human"}],"image":{"data":""}}`))

	if res.Stage != StageDelivered {
		t.Errorf("Stage = %s, want delivered (err %v)", res.Stage, res.Err)
	}
}

func TestProcess_Stats(t *testing.T) {
	d := &fakeDeliverer{outcome: delivery.Outcome{Delivered: true}}
	p, _ := newTestProcessor(t, d)
	ctx := context.Background()

	p.Process(ctx, []byte(`{"classes":[{"score":0.9,"type":"Human"}],"image":{"data":""}}`))
	p.Process(ctx, []byte(`{"classes":[{"score":0.4,"type":"Vehicle"}],"image":{"data":""}}`))
	p.Process(ctx, []byte(`{"classes":[]}`))
	d.outcome = delivery.Outcome{Err: delivery.ErrSendFailed}
	p.Process(ctx, []byte(`{"classes":[{"score":0.9,"type":"Face"}],"image":{"data":""}}`))

	got := p.Stats()
	want := Stats{Received: 4, DecodeFailed: 1, Rejected: 1, Delivered: 1, DeliveryFailed: 1}
	if got.Received != want.Received || got.DecodeFailed != want.DecodeFailed ||
		got.Rejected != want.Rejected || got.Delivered != want.Delivered ||
		got.DeliveryFailed != want.DeliveryFailed {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
	if got.LastDeliveredAt.IsZero() {
		t.Error("LastDeliveredAt is zero after a delivery")
	}
}

func TestProcess_ObserversSeeEveryResult(t *testing.T) {
	ok := &fakeObserver{}
	failing := &fakeObserver{err: errors.New("disk full")}
	d := &fakeDeliverer{outcome: delivery.Outcome{Delivered: true}}
	p, logger := newTestProcessor(t, d, failing, ok)

	res := p.Process(context.Background(), []byte(`{"classes":[{"score":0.9,"type":"Human"}],"image":{"data":""}}`))
	p.Process(context.Background(), []byte(`{"classes":[{"score":0.4,"type":"Vehicle"}],"image":{"data":""}}`))

	if res.Stage != StageDelivered {
		t.Errorf("observer failure changed Stage to %s", res.Stage)
	}
	if len(ok.results) != 2 || len(failing.results) != 2 {
		t.Fatalf("observers saw %d and %d results, want 2 each", len(ok.results), len(failing.results))
	}
	if ok.results[0].Stage != StageDelivered || ok.results[1].Stage != StageRejected {
		t.Errorf("observed stages = %s, %s", ok.results[0].Stage, ok.results[1].Stage)
	}
	if _, found := logger.find("observer failed"); !found {
		t.Error("observer failure was not logged")
	}
}

func TestResult_Attempted(t *testing.T) {
	tests := []struct {
		stage Stage
		want  bool
	}{
		{StageDecodeFailed, false},
		{StageRejected, false},
		{StageDelivered, true},
		{StageDeliveryFailed, true},
	}
	for _, tt := range tests {
		if got := (Result{Stage: tt.stage}).Attempted(); got != tt.want {
			t.Errorf("Result{Stage: %s}.Attempted() = %v, want %v", tt.stage, got, tt.want)
		}
	}
}
