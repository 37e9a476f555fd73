package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10

	// broadcastInterval caps the feed at about 15 messages per second.
	broadcastInterval = 66 * time.Millisecond
)

// Feed encodings selected with ?encoding=.
const (
	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// LandmarkSource is the frame-free read side of the driver's slot.
type LandmarkSource interface {
	Peek() app.Snapshot
	Done() <-chan struct{}
}

type handFrame struct {
	Role       string                  `json:"role" cbor:"role"`
	Gesture    gesture.Label           `json:"gesture" cbor:"gesture"`
	Confidence float64                 `json:"confidence" cbor:"confidence"`
	Landmarks  *detector.HandLandmarks `json:"landmarks" cbor:"landmarks"`
}

type landmarksMessage struct {
	Frame     uint64      `json:"frame" cbor:"frame"`
	Timestamp int64       `json:"timestamp" cbor:"timestamp"`
	State     string      `json:"state" cbor:"state"`
	Hands     []handFrame `json:"hands" cbor:"hands"`
}

type wsClient struct {
	id       string
	conn     *websocket.Conn
	encoding string
	writeMu  sync.Mutex
}

func (c *wsClient) write(messageType int, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, payload)
}

// LandmarksHandler pushes the hands of each new frame to WebSocket clients,
// as JSON text messages or CBOR binary messages.
type LandmarksHandler struct {
	src      LandmarkSource
	logger   *slog.Logger
	upgrader websocket.Upgrader
	interval time.Duration

	mu      sync.Mutex
	clients map[string]*wsClient

	startOnce sync.Once
	closed    chan struct{}
	closeOnce sync.Once
}

// NewLandmarksHandler creates a LandmarksHandler reading from src.
func NewLandmarksHandler(src LandmarkSource, logger *slog.Logger) *LandmarksHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LandmarksHandler{
		src:    src,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow local connections
			},
		},
		interval: broadcastInterval,
		clients:  make(map[string]*wsClient),
		closed:   make(chan struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	encoding := r.URL.Query().Get("encoding")
	switch encoding {
	case "":
		encoding = EncodingJSON
	case EncodingJSON, EncodingCBOR:
	default:
		http.Error(w, "unsupported encoding", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c := &wsClient{id: uuid.NewString(), conn: conn, encoding: encoding}
	select {
	case <-h.closed:
		_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "pipeline stopped"))
		conn.Close()
		return
	default:
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Debug("landmarks client connected", "client", c.id, "encoding", encoding)

	h.startOnce.Do(func() { go h.broadcast() })

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.write(websocket.PingMessage, nil); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()
	defer close(done)
	defer h.removeClient(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcast sends each new frame's hands to all clients until the source
// is done or the handler is closed.
func (h *LandmarksHandler) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-h.closed:
			return
		case <-h.src.Done():
			h.send(h.src.Peek())
			h.CloseAll()
			return
		case <-ticker.C:
		}

		if h.ClientCount() == 0 {
			continue
		}
		snap := h.src.Peek()
		if snap.Index == last {
			continue
		}
		last = snap.Index
		h.send(snap)
	}
}

func (h *LandmarksHandler) send(snap app.Snapshot) {
	msg := newLandmarksMessage(snap)
	payloads := make(map[string][]byte, 2)

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		payload, ok := payloads[c.encoding]
		if !ok {
			var err error
			payload, err = encodeMessage(msg, c.encoding)
			if err != nil {
				h.logger.Error("failed to encode landmarks", "encoding", c.encoding, "err", err)
				return
			}
			payloads[c.encoding] = payload
		}

		messageType := websocket.TextMessage
		if c.encoding == EncodingCBOR {
			messageType = websocket.BinaryMessage
		}
		if err := c.write(messageType, payload); err != nil {
			h.removeClient(c)
		}
	}
}

func newLandmarksMessage(snap app.Snapshot) landmarksMessage {
	msg := landmarksMessage{
		Frame:     snap.Index,
		Timestamp: snap.At.UnixMilli(),
		State:     snap.State.String(),
		Hands:     []handFrame{},
	}
	for i, hand := range snap.Hands {
		if hand == nil {
			continue
		}
		msg.Hands = append(msg.Hands, handFrame{
			Role:       detector.Role(i).String(),
			Gesture:    snap.Gestures[i].Label,
			Confidence: snap.Gestures[i].Confidence,
			Landmarks:  hand,
		})
	}
	return msg
}

func encodeMessage(msg landmarksMessage, encoding string) ([]byte, error) {
	if encoding == EncodingCBOR {
		return cbor.Marshal(msg)
	}
	return json.Marshal(msg)
}

func (h *LandmarksHandler) removeClient(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	if ok {
		c.conn.Close()
		h.logger.Debug("landmarks client disconnected", "client", c.id)
	}
}

// ClientCount returns the number of connected clients.
func (h *LandmarksHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll sends a close frame to every client and stops the broadcast.
func (h *LandmarksHandler) CloseAll() {
	h.closeOnce.Do(func() { close(h.closed) })

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "pipeline stopped")
	for _, c := range clients {
		_ = c.write(websocket.CloseMessage, msg)
		h.removeClient(c)
	}
}
