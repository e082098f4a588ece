package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"escpos-service/internal/config"
	"escpos-service/internal/database"
	"escpos-service/internal/discovery"
	"escpos-service/internal/model"
	"escpos-service/internal/profile"
	"escpos-service/internal/protocol"
	"escpos-service/internal/repository"
	"escpos-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fixedScanner reports the same network printer on every scan
type fixedScanner struct{}

func (fixedScanner) Scan(ctx context.Context) ([]*discovery.Candidate, error) {
	online := true
	return []*discovery.Candidate{{
		ConnectionType:   model.ConnectionTypeTCP,
		ConnectionConfig: model.JSONObject{"host": "192.168.1.50", "port": 9100},
		Confidence:       0.9,
		Online:           &online,
	}}, nil
}
func (fixedScanner) Type() model.ConnectionType { return model.ConnectionTypeTCP }
func (fixedScanner) Available() bool            { return true }

// recordingTransport keeps every byte written to it
type recordingTransport struct {
	mu      sync.Mutex
	written []byte
}

func (r *recordingTransport) Open(ctx context.Context) error { return nil }
func (r *recordingTransport) Close() error                   { return nil }
func (r *recordingTransport) IsOpen() bool                   { return true }

func (r *recordingTransport) Write(ctx context.Context, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written = append(r.written, data...)
	return nil
}

func (r *recordingTransport) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	return nil, errors.New("no status")
}

func (r *recordingTransport) Type() model.ConnectionType { return model.ConnectionTypeTCP }
func (r *recordingTransport) Stats() protocol.Stats      { return protocol.Stats{} }

type stubDatabase struct{ err error }

func (s stubDatabase) HealthCheck(ctx context.Context) error { return s.err }
func (s stubDatabase) GetStats() database.Stats              { return database.Stats{OpenConnections: 1} }

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type testServer struct {
	router    *gin.Engine
	transport *recordingTransport
	events    *service.EventBus
}

func newTestServer(t *testing.T, db DatabaseChecker) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	cfg := &config.Config{
		App:      config.AppConfig{Name: "escpos-service", Version: "test"},
		Security: config.SecurityConfig{AllowedOrigins: []string{"*"}, MaxJobBytes: 1 << 20},
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
			WorkerPoolSize: 1,
		},
	}
	logger := zap.NewNop()
	ts := &testServer{transport: &recordingTransport{}}
	factory := func(model.ConnectionType, map[string]interface{}, *zap.Logger) (protocol.Transport, error) {
		return ts.transport, nil
	}

	ts.events = service.NewEventBus(64, logger)
	go ts.events.Run(ctx)
	profiles := service.NewProfileService(profile.Default(), "", ts.events, logger)
	printerRepo := repository.NewMemoryPrinterRepository()
	printers := service.NewPrinterService(printerRepo, profiles, factory, ts.events, cfg, logger)
	prints, err := service.NewPrintService(repository.NewMemoryJobRepository(), printers, profiles, ts.events, cfg, logger)
	if err != nil {
		t.Fatal(err)
	}
	prints.Start(ctx)
	t.Cleanup(func() {
		cancel()
		prints.Stop()
	})

	router := gin.New()
	NewHealthHandler(db, cfg, profiles.Version, logger).RegisterRoutes(router)
	api := router.Group("/api/v1")
	NewProfileHandler(profiles, logger).RegisterRoutes(api)
	NewPrinterHandler(printers, logger).RegisterRoutes(api)
	NewJobHandler(prints, logger).RegisterRoutes(api)
	scanners := discovery.NewManager(logger)
	scanners.Register(fixedScanner{})
	NewDiscoveryHandler(service.NewDiscoveryService(scanners, profiles, printerRepo, cfg, logger), logger).RegisterRoutes(api)
	NewWebSocketHandler(ts.events, cfg.Security.AllowedOrigins, logger).RegisterRoutes(router.Group("/ws"))
	ts.router = router
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env apiEnvelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: invalid JSON response: %v", method, path, err)
		}
	}
	return w, env
}

func (ts *testServer) createPrinter(t *testing.T, name, printerModel string) *model.Printer {
	t.Helper()
	body := `{"name":"` + name + `","model":"` + printerModel + `","connection_type":"tcp","connection_config":{"host":"10.0.0.9"}}`
	w, env := ts.do(t, http.MethodPost, "/api/v1/printers", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create printer: status %d: %s", w.Code, w.Body.String())
	}
	var p model.Printer
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatal(err)
	}
	return &p
}

func TestProfileRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	w, env := ts.do(t, http.MethodGet, "/api/v1/profiles", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list profiles: %d", w.Code)
	}
	var list struct {
		Version  string                `json:"version"`
		Profiles []service.ProfileInfo `json:"profiles"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Profiles) < 2 || list.Version == "" {
		t.Fatalf("unexpected profile list: %+v", list)
	}

	w, env = ts.do(t, http.MethodGet, "/api/v1/profiles/TM-T88V", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get profile: %d", w.Code)
	}
	var info service.ProfileInfo
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatal(err)
	}
	if info.Model != "TM-T88V" || len(info.CodePages) == 0 {
		t.Errorf("unexpected profile: %+v", info)
	}

	if w, _ := ts.do(t, http.MethodGet, "/api/v1/profiles/NOPE-1", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown profile: got %d, want 404", w.Code)
	}
	if w, _ := ts.do(t, http.MethodPost, "/api/v1/profiles/reload", ""); w.Code != http.StatusBadRequest {
		t.Errorf("reload without a file: got %d, want 400", w.Code)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/v1/codepages", ""); w.Code != http.StatusOK {
		t.Errorf("codepages: got %d", w.Code)
	}
}

func TestPrinterCRUD(t *testing.T) {
	ts := newTestServer(t, nil)
	p := ts.createPrinter(t, "bar", "TM-T20II")
	if p.ConnectionType != model.ConnectionTypeTCP {
		t.Errorf("connection type not normalised: %s", p.ConnectionType)
	}

	w, _ := ts.do(t, http.MethodPost, "/api/v1/printers",
		`{"name":"bar","model":"TM-T20II","connection_type":"TCP","connection_config":{"host":"10.0.0.9"}}`)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate name: got %d, want 409", w.Code)
	}

	w, env := ts.do(t, http.MethodPost, "/api/v1/printers",
		`{"name":"x","model":"NOPE-1","connection_type":"TCP","connection_config":{"host":"10.0.0.9"}}`)
	if w.Code != http.StatusBadRequest || env.Success {
		t.Errorf("unknown model: got %d", w.Code)
	}

	w, _ = ts.do(t, http.MethodGet, "/api/v1/printers/"+p.ID.String(), "")
	if w.Code != http.StatusOK {
		t.Errorf("get printer: %d", w.Code)
	}

	w, env = ts.do(t, http.MethodPut, "/api/v1/printers/"+p.ID.String(), `{"name":"bar-2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update printer: %d: %s", w.Code, w.Body.String())
	}
	var updated model.Printer
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatal(err)
	}
	if updated.Name != "bar-2" {
		t.Errorf("name not updated: %s", updated.Name)
	}

	w, env = ts.do(t, http.MethodGet, "/api/v1/printers", "")
	if w.Code != http.StatusOK || !bytes.Contains(env.Data, []byte("bar-2")) {
		t.Errorf("list printers: %d %s", w.Code, env.Data)
	}

	if w, _ := ts.do(t, http.MethodGet, "/api/v1/printers/not-a-uuid", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: got %d, want 400", w.Code)
	}
	if w, _ := ts.do(t, http.MethodDelete, "/api/v1/printers/"+p.ID.String(), ""); w.Code != http.StatusOK {
		t.Errorf("delete: got %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/v1/printers/"+p.ID.String(), ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: got %d, want 404", w.Code)
	}
}

func TestRenderRoute(t *testing.T) {
	ts := newTestServer(t, nil)
	doc := `{"model":"simple","cut":"none","elements":[{"type":"text","text":"ok"}]}`

	w, env := ts.do(t, http.MethodPost, "/api/v1/render", doc)
	if w.Code != http.StatusOK {
		t.Fatalf("render: %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get(JobIDHeader) == "" {
		t.Error("render response is missing the job id header")
	}
	var res RenderResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	data, err := base64.StdEncoding.DecodeString(res.Data)
	if err != nil {
		t.Fatal(err)
	}
	if res.Model != "simple" || res.Bytes != len(data) || !bytes.HasPrefix(data, []byte{0x1B, 0x40}) {
		t.Errorf("unexpected render: %+v % X", res, data)
	}

	w, _ = ts.do(t, http.MethodPost, "/api/v1/render?format=binary", doc)
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), data) {
		t.Errorf("binary render differs: % X", w.Body.Bytes())
	}

	if w, _ := ts.do(t, http.MethodPost, "/api/v1/render?format=pdf", doc); w.Code != http.StatusBadRequest {
		t.Errorf("bad format: got %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodPost, "/api/v1/render", ""); w.Code != http.StatusBadRequest {
		t.Errorf("empty body: got %d", w.Code)
	}

	w, env = ts.do(t, http.MethodPost, "/api/v1/render",
		`{"model":"default","elements":[{"type":"buzzer"}]}`)
	if w.Code != http.StatusConflict || env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Errorf("unsupported feature: got %d %s", w.Code, w.Body.String())
	}
}

func TestSubmitJobRoute(t *testing.T) {
	ts := newTestServer(t, nil)
	p := ts.createPrinter(t, "kitchen", "simple")

	w, env := ts.do(t, http.MethodPost, "/api/v1/printers/"+p.ID.String()+"/jobs?wait=true",
		`{"elements":[{"type":"textln","text":"Order 42"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("submit: %d: %s", w.Code, w.Body.String())
	}
	var result struct {
		Job model.PrintJob `json:"job"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if result.Job.Status != model.JobStatusCompleted {
		t.Errorf("job status = %s", result.Job.Status)
	}

	ts.transport.mu.Lock()
	written := append([]byte(nil), ts.transport.written...)
	ts.transport.mu.Unlock()
	if !bytes.Contains(written, []byte("Order 42\n")) {
		t.Errorf("printer did not receive the text: % X", written)
	}

	w, _ = ts.do(t, http.MethodGet, "/api/v1/jobs/"+result.Job.ID.String(), "")
	if w.Code != http.StatusOK {
		t.Errorf("get job: %d", w.Code)
	}
	w, env = ts.do(t, http.MethodGet, "/api/v1/jobs?printer_id="+p.ID.String(), "")
	if w.Code != http.StatusOK || !bytes.Contains(env.Data, []byte(result.Job.ID.String())) {
		t.Errorf("list jobs: %d %s", w.Code, env.Data)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/v1/jobs?since=yesterday", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad since: got %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/v1/jobs/stats", ""); w.Code != http.StatusOK {
		t.Errorf("job stats: got %d", w.Code)
	}

	w, _ = ts.do(t, http.MethodPost, "/api/v1/printers/"+p.ID.String()+"/jobs", `{"elements":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty document: got %d", w.Code)
	}
}

func TestHealthRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	if w, _ := ts.do(t, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("health without database: %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodGet, "/live", ""); w.Code != http.StatusOK {
		t.Errorf("live: %d", w.Code)
	}

	down := newTestServer(t, stubDatabase{err: errors.New("connection refused")})
	if w, _ := down.do(t, http.MethodGet, "/health", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("health with failing database: %d", w.Code)
	}
	if w, _ := down.do(t, http.MethodGet, "/ready", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with failing database: %d", w.Code)
	}
}

func TestJobEventStream(t *testing.T) {
	ts := newTestServer(t, nil)
	p := ts.createPrinter(t, "stream", "simple")

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/jobs?printer_id=" + p.ID.String() + "&event_types=job_completed"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil || msg.Type != MessageConnected {
		t.Fatalf("first message: %v %+v", err, msg)
	}

	if w, _ := ts.do(t, http.MethodPost, "/api/v1/printers/"+p.ID.String()+"/jobs",
		`{"elements":[{"type":"text","text":"hi"}]}`); w.Code != http.StatusAccepted {
		t.Fatalf("submit: %d", w.Code)
	}

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if msg.Type != MessageJobEvent {
		t.Fatalf("message type = %s", msg.Type)
	}
	var ev model.JobEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.EventType != model.EventJobCompleted {
		t.Errorf("event type = %s, want only completed events", ev.EventType)
	}
}

func TestDiscoveryRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	w, env := ts.do(t, http.MethodGet, "/api/v1/discovery/types", "")
	if w.Code != http.StatusOK {
		t.Fatalf("types: status = %d", w.Code)
	}
	var types struct {
		Types []string `json:"types"`
	}
	if err := json.Unmarshal(env.Data, &types); err != nil {
		t.Fatal(err)
	}
	if len(types.Types) != 1 || types.Types[0] != "TCP" {
		t.Errorf("types = %v", types.Types)
	}

	w, env = ts.do(t, http.MethodGet, "/api/v1/discovery/scan?types=tcp", "")
	if w.Code != http.StatusOK {
		t.Fatalf("scan: status = %d body = %s", w.Code, w.Body.String())
	}
	var result struct {
		Printers []struct {
			ConnectionType string  `json:"connection_type"`
			Model          string  `json:"model"`
			Confidence     float64 `json:"confidence"`
		} `json:"printers"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Printers) != 1 {
		t.Fatalf("printers = %d, want 1", len(result.Printers))
	}
	if got := result.Printers[0]; got.ConnectionType != "TCP" || got.Model != "default" || got.Confidence != 0.9 {
		t.Errorf("printer = %+v", got)
	}

	if w, _ := ts.do(t, http.MethodGet, "/api/v1/discovery/scan?types=bluetooth", ""); w.Code != http.StatusBadRequest {
		t.Errorf("unknown type: status = %d, want 400", w.Code)
	}
}
