package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/mapping"
	"github.com/ayusman/mudra/internal/store"
)

type testEnv struct {
	app      *app.App
	detector *detector.MockDetector
	recorder *actuator.Recorder
	store    *store.Store
	server   *httptest.Server
}

// newTestEnv wires an app over cam to a running test server.
func newTestEnv(t *testing.T, cam *capture.MockCamera) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Camera.Mirror = false
	cfg.Actuator.ClickInterval = time.Hour

	table := mapping.NewTable(cfg.MappingsPath(), logging.Discard())
	if err := table.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cam == nil {
		cam = capture.NewBlankCamera()
	}
	t.Cleanup(cam.Release)
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}

	det := detector.NewMockDetector()
	rec := actuator.NewRecorder(1920, 1080)
	a, err := app.New(app.Options{
		Config:   cfg,
		Camera:   cam,
		Detector: det,
		Table:    table,
		Injector: rec,
		Logger:   logging.Discard(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })

	s, err := store.New(filepath.Join(cfg.DataDir, "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	srv := New(Config{App: a, Store: s, Logger: logging.Discard()})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{app: a, detector: det, recorder: rec, store: s, server: ts}
}

func (e *testEnv) step(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := e.app.Step(); err != nil {
			t.Fatalf("Step() error = %v", err)
		}
	}
}

func (e *testEnv) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/api/landmarks" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitClients blocks until the landmarks handler has registered n clients.
func waitClients(t *testing.T, srv *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for srv.landmarks.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d websocket clients, have %d", n, srv.landmarks.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAPI_MappingControlWorkflow(t *testing.T) {
	env := newTestEnv(t, nil)
	client := env.server.Client()

	// 1. Bind fist to a left click.
	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/mappings", bytes.NewBufferString(`{"fist":"left_click"}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/mappings error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// 2. Hold a fist until it is recognized.
	env.detector.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})
	env.step(t, 4)
	if n := env.recorder.Count(actuator.EventClick); n != 1 {
		t.Fatalf("expected 1 click, got %d", n)
	}

	// 3. Status reports the stable gesture.
	resp, err = client.Get(env.server.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status error = %v", err)
	}
	var status statusResponse
	json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()

	if status.State != "running" || !status.Enabled || status.Frame != 4 {
		t.Errorf("unexpected status: %+v", status)
	}
	if status.RunID != env.app.RunID() {
		t.Errorf("run id = %q, want %q", status.RunID, env.app.RunID())
	}
	if len(status.Hands) != detector.NumRoles || status.Hands[0].Gesture != "fist" || !status.Hands[0].Present {
		t.Errorf("unexpected hands: %+v", status.Hands)
	}

	// 4. Disable actuation; further fists do nothing.
	resp, err = client.Post(env.server.URL+"/api/control/disable", "", nil)
	if err != nil {
		t.Fatalf("POST /api/control/disable error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("disable status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if env.app.Gate().IsEnabled() {
		t.Fatal("gate should be disabled")
	}

	env.detector.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	env.step(t, 4)
	env.detector.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})
	env.step(t, 4)
	if n := env.recorder.Count(actuator.EventClick); n != 1 {
		t.Errorf("expected no clicks while disabled, got %d total", n)
	}
}

func TestAPI_SettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	client := env.server.Client()

	req, _ := http.NewRequest(http.MethodPut, env.server.URL+"/api/settings", bytes.NewBufferString(`{"gesture.window":"5","gesture.votes":"4"}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT /api/settings error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp, err = client.Get(env.server.URL + "/api/settings")
	if err != nil {
		t.Fatalf("GET /api/settings error = %v", err)
	}
	var got struct {
		Settings map[string]string `json:"settings"`
	}
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()

	if got.Settings["gesture.window"] != "5" || got.Settings["gesture.votes"] != "4" {
		t.Errorf("unexpected settings: %v", got.Settings)
	}
}

func TestLandmarks_JSONFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := env.server.Config.Handler.(*Server)

	conn := env.dial(t, "")
	waitClients(t, srv, 1)

	env.detector.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	env.step(t, 1)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if messageType != websocket.TextMessage {
		t.Errorf("message type = %d, want text", messageType)
	}

	var msg landmarksMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if msg.Frame != 1 || msg.State != "running" {
		t.Errorf("unexpected message header: frame=%d state=%s", msg.Frame, msg.State)
	}
	if len(msg.Hands) != 1 || msg.Hands[0].Role != "primary" || msg.Hands[0].Landmarks == nil {
		t.Errorf("unexpected hands: %+v", msg.Hands)
	}
}

func TestLandmarks_CBORFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := env.server.Config.Handler.(*Server)

	conn := env.dial(t, "?encoding=cbor")
	waitClients(t, srv, 1)

	env.detector.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})
	env.step(t, 2)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	messageType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if messageType != websocket.BinaryMessage {
		t.Errorf("message type = %d, want binary", messageType)
	}

	var msg landmarksMessage
	if err := cbor.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if msg.Frame == 0 || len(msg.Hands) != 1 {
		t.Errorf("unexpected message: %+v", msg)
	}
	want := detector.FistLandmarks().Points[detector.Wrist]
	if got := msg.Hands[0].Landmarks.Points[detector.Wrist]; got.X != want.X || got.Y != want.Y {
		t.Errorf("wrist = %+v, want %+v", got, want)
	}
}

func TestLandmarks_RejectsUnknownEncoding(t *testing.T) {
	env := newTestEnv(t, nil)

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/landmarks?encoding=xml"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d, got %v", http.StatusBadRequest, resp)
	}
}

func TestPreview_EndsWhenPipelineStops(t *testing.T) {
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	cam := capture.NewMockCamera([]*gocv.Mat{&frame}, false)
	env := newTestEnv(t, cam)
	srv := env.server.Config.Handler.(*Server)

	conn := env.dial(t, "")
	waitClients(t, srv, 1)

	env.step(t, 1)
	if err := env.app.Step(); err == nil {
		t.Fatal("expected the source to be exhausted")
	}

	// The landmarks feed delivers what it has, then closes.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				t.Errorf("expected going-away close, got %v", err)
			}
			break
		}
	}

	// The MJPEG stream renders the last frame and ends.
	resp, err := env.server.Client().Get(env.server.URL + "/api/stream")
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading stream: %v", err)
	}
	if n := strings.Count(string(body), "--frame"); n != 1 {
		t.Errorf("expected 1 frame, got %d", n)
	}
	if !strings.Contains(string(body), "Content-Type: image/jpeg") {
		t.Error("expected a JPEG part")
	}
}
