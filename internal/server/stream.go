package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/preview"
)

// StreamHandler serves the driver's frames as an MJPEG stream. Each client
// gets its own renderer; nothing is rendered while nobody watches.
type StreamHandler struct {
	src    preview.Source
	opts   preview.Options
	logger *slog.Logger
}

// NewStreamHandler creates a new StreamHandler reading from src.
func NewStreamHandler(src preview.Source, opts preview.Options, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{src: src, opts: opts, logger: logger}
}

// ServeHTTP streams MJPEG frames until the client leaves or the driver stops.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := uuid.NewString()
	logger := h.logger.With("client", id)
	logger.Debug("stream client connected")

	renderer := preview.NewRenderer(h.src, h.opts)
	frames := 0
	for {
		data, err := renderer.Next(r.Context())
		if err != nil {
			if !errors.Is(err, io.EOF) && r.Context().Err() == nil {
				logger.Warn("stream render failed", "err", err)
			}
			break
		}

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
		if _, err := w.Write(data); err != nil {
			break
		}
		fmt.Fprintf(w, "\r\n")
		frames++

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}

	logger.Debug("stream client disconnected", "frames", frames)
}
