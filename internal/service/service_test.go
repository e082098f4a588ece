package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpos-service/internal/config"
	"escpos-service/internal/magicencode"
	"escpos-service/internal/model"
	"escpos-service/internal/profile"
	"escpos-service/internal/protocol"
	"escpos-service/internal/raster"
	"escpos-service/internal/repository"
)

// fakeTransport records writes and answers reads from a script
type fakeTransport struct {
	mu      sync.Mutex
	open    bool
	openErr error
	written []byte
	replies [][]byte
}

func (f *fakeTransport) Open(ctx context.Context) error {
	if f.openErr != nil {
		return &protocol.TransportError{Type: model.ConnectionTypeTCP, Op: "open", Err: f.openErr}
	}
	f.open = true
	return nil
}

func (f *fakeTransport) Close() error { f.open = false; return nil }
func (f *fakeTransport) IsOpen() bool { return f.open }

func (f *fakeTransport) Write(ctx context.Context, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, data...)
	return nil
}

func (f *fakeTransport) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	if len(f.replies) == 0 {
		return nil, fmt.Errorf("no reply")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeTransport) Type() model.ConnectionType { return model.ConnectionTypeTCP }
func (f *fakeTransport) Stats() protocol.Stats      { return protocol.Stats{} }

func (f *fakeTransport) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.written...)
}

type fixture struct {
	transport *fakeTransport
	events    *EventBus
	printers  *PrinterService
	print     *PrintService
	jobs      repository.JobRepository
}

func testConfig() *config.Config {
	return &config.Config{
		Printer: config.PrinterConfig{
			DefaultModel:   "default",
			JobTimeout:     5 * time.Second,
			StatusTimeout:  time.Second,
			EncodingPolicy: "substitute",
			Placeholder:    "?",
			ImageDensity:   "high",
			ImageDither:    "floyd-steinberg",
			InitBeforeJob:  true,
			CutAfterJob:    true,
			CutFeedLines:   3,
			WorkerPoolSize: 2,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	f := &fixture{transport: &fakeTransport{}, jobs: repository.NewMemoryJobRepository()}
	factory := func(model.ConnectionType, map[string]interface{}, *zap.Logger) (protocol.Transport, error) {
		return f.transport, nil
	}

	cfg := testConfig()
	logger := zap.NewNop()
	f.events = NewEventBus(64, logger)
	go f.events.Run(ctx)

	profiles := NewProfileService(profile.Default(), "", f.events, logger)
	f.printers = NewPrinterService(repository.NewMemoryPrinterRepository(), profiles, factory, f.events, cfg, logger)

	var err error
	f.print, err = NewPrintService(f.jobs, f.printers, profiles, f.events, cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	f.print.Start(ctx)
	t.Cleanup(func() {
		cancel()
		f.print.Stop()
	})
	return f
}

func (f *fixture) addPrinter(t *testing.T, modelName string) *model.Printer {
	t.Helper()
	p, err := f.printers.CreatePrinter(context.Background(), &model.CreatePrinterRequest{
		Name:             "front-" + uuid.NewString()[:8],
		Model:            modelName,
		ConnectionType:   model.ConnectionTypeTCP,
		ConnectionConfig: model.JSONObject{"host": "10.0.0.20"},
	}, "127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSubmitDeliversJob(t *testing.T) {
	f := newFixture(t)
	printer := f.addPrinter(t, "simple")

	_, events := f.events.Subscribe(&model.EventFilter{
		EventTypes: []model.EventType{model.EventJobQueued, model.EventJobPrinting, model.EventJobCompleted},
	})

	res, err := f.print.Submit(context.Background(), printer.ID, []byte(`{"elements":[{"type":"textln","text":"hello"}]}`), true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Job.Status != model.JobStatusCompleted {
		t.Fatalf("status = %s", res.Job.Status)
	}

	want := []byte{0x1B, 0x40, 0x1B, 0x74, 0}
	want = append(want, "hello\n"...)
	want = append(want, 0x1B, 0x64, 3, 0x1D, 0x56, 0x00)
	if diff := cmp.Diff(want, f.transport.Written()); diff != "" {
		t.Errorf("written (-want +got):\n%s", diff)
	}
	if res.Job.Bytes != len(want) || res.Job.DurationMs == nil {
		t.Errorf("unexpected job %+v", res.Job)
	}

	var got []model.EventType
	for len(got) < 3 {
		select {
		case ev := <-events:
			got = append(got, ev.EventType)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after events %v", got)
		}
	}
	if diff := cmp.Diff([]model.EventType{model.EventJobQueued, model.EventJobPrinting, model.EventJobCompleted}, got); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestSubmitUnsupportedFeatureIsRecorded(t *testing.T) {
	f := newFixture(t)
	printer := f.addPrinter(t, "default")

	_, err := f.print.Submit(context.Background(), printer.ID, []byte(`{"cut":"full","elements":[{"type":"text","text":"x"}]}`), true)
	var unsupported *profile.UnsupportedFeatureError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFeatureError, got %v", err)
	}
	if HTTPStatus(err) != http.StatusConflict {
		t.Errorf("status = %d", HTTPStatus(err))
	}
	if len(f.transport.Written()) != 0 {
		t.Error("nothing should reach the printer")
	}

	status := model.JobStatusFailed
	jobs, total, err := f.jobs.List(context.Background(), &repository.JobFilter{Status: &status})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || jobs[0].ErrorMessage == nil {
		t.Errorf("expected one failed job with a message, got %d", total)
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	f := newFixture(t)
	f.transport.openErr = errors.New("connection refused")
	printer := f.addPrinter(t, "simple")

	res, err := f.print.Submit(context.Background(), printer.ID, []byte(`{"cut":"none","elements":[{"type":"text","text":"x"}]}`), true)
	if err != nil {
		t.Fatal(err)
	}
	if res.Job.Status != model.JobStatusFailed {
		t.Errorf("status = %s", res.Job.Status)
	}

	stored, err := f.printers.GetPrinter(context.Background(), printer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != model.PrinterStatusOffline {
		t.Errorf("printer status = %s", stored.Status)
	}
}

func TestSubmitUnknownPrinter(t *testing.T) {
	f := newFixture(t)
	_, err := f.print.Submit(context.Background(), uuid.New(), []byte(`{"elements":[{"type":"feed"}]}`), false)
	if HTTPStatus(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %d (%v)", HTTPStatus(err), err)
	}
}

func TestRenderRecordsJob(t *testing.T) {
	f := newFixture(t)
	res, err := f.print.Render(context.Background(), "TM-T88V", []byte(`{"cut":"none","elements":[{"type":"text","text":"cafě"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.Result.Model != "TM-T88V" || res.Result.Bytes == 0 {
		t.Errorf("unexpected result %+v", res.Result)
	}

	job, err := f.print.GetJob(context.Background(), res.JobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobStatusRendered || job.PrinterID != nil {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestRenderRejectsBadDocument(t *testing.T) {
	f := newFixture(t)
	_, err := f.print.Render(context.Background(), "", []byte(`{"elements":[{"type":"nope"}]}`))
	if HTTPStatus(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %d (%v)", HTTPStatus(err), err)
	}
}

func TestCreatePrinterValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		req  model.CreatePrinterRequest
	}{
		{"blank name", model.CreatePrinterRequest{Name: " ", ConnectionType: model.ConnectionTypeTCP, ConnectionConfig: model.JSONObject{"host": "a"}}},
		{"unknown model", model.CreatePrinterRequest{Name: "a", Model: "TM-9000", ConnectionType: model.ConnectionTypeTCP, ConnectionConfig: model.JSONObject{"host": "a"}}},
		{"bad type", model.CreatePrinterRequest{Name: "a", ConnectionType: "PIGEON", ConnectionConfig: model.JSONObject{}}},
		{"missing host", model.CreatePrinterRequest{Name: "a", ConnectionType: model.ConnectionTypeTCP, ConnectionConfig: model.JSONObject{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.printers.CreatePrinter(context.Background(), &tt.req, "")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestCreatePrinterDefaultsModel(t *testing.T) {
	f := newFixture(t)
	p := f.addPrinter(t, "")
	if p.Model != "default" || p.Status != model.PrinterStatusUnknown {
		t.Errorf("unexpected printer %+v", p)
	}
}

func TestQueryStatus(t *testing.T) {
	f := newFixture(t)
	printer := f.addPrinter(t, "TM-T88V")
	f.transport.replies = [][]byte{{0x16}, {0x12}, {0x12}, {0x12}}

	res, err := f.printers.QueryStatus(context.Background(), printer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != model.PrinterStatusOnline || !res.Detail.DrawerSignal {
		t.Errorf("unexpected status %+v", res.Detail)
	}
	if diff := cmp.Diff([]byte{0x10, 0x04, 1, 0x10, 0x04, 2, 0x10, 0x04, 3, 0x10, 0x04, 4}, f.transport.Written()); diff != "" {
		t.Errorf("queries (-want +got):\n%s", diff)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("wrapped: %w", &magicencode.EncodingError{Char: '日'}), http.StatusUnprocessableEntity},
		{&raster.ImageTooWideError{}, http.StatusUnprocessableEntity},
		{&profile.UnsupportedFeatureError{Feature: profile.Buzzer}, http.StatusConflict},
		{fmt.Errorf("x: %w", repository.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("x: %w", repository.ErrConflict), http.StatusConflict},
		{&protocol.TransportError{Op: "write", Err: errors.New("broken pipe")}, http.StatusBadGateway},
		{&protocol.TransportError{Op: "write", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{ErrQueueFull, http.StatusServiceUnavailable},
		{invalid("name", errors.New("empty")), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestEventBusFilters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewEventBus(8, nil)
	go bus.Run(ctx)

	printerID := uuid.New()
	_, mine := bus.Subscribe(&model.EventFilter{PrinterIDs: []uuid.UUID{printerID}})
	id, all := bus.Subscribe(nil)

	bus.Publish(model.NewPrinterEvent(model.EventPrinterStatus, uuid.New(), nil))
	bus.Publish(model.NewPrinterEvent(model.EventPrinterStatus, printerID, nil))

	select {
	case ev := <-mine:
		if *ev.PrinterID != printerID {
			t.Errorf("got event for %s", ev.PrinterID)
		}
	case <-time.After(time.Second):
		t.Fatal("filtered subscriber got nothing")
	}
	for i := 0; i < 2; i++ {
		select {
		case <-all:
		case <-time.After(time.Second):
			t.Fatal("unfiltered subscriber missed an event")
		}
	}

	bus.Unsubscribe(id)
	if _, ok := <-all; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	if bus.SubscriberCount() != 1 {
		t.Errorf("subscribers = %d", bus.SubscriberCount())
	}
}
