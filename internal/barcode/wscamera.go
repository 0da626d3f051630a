package barcode

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/internal/logger"
)

// Control message types exchanged with the browser. Frames travel as binary
// messages holding an encoded JPEG or PNG.
const (
	ControlReady            = "ready"
	ControlPermissionDenied = "permission_denied"
	ControlStop             = "stop"
	ControlRelease          = "release"
	ControlResult           = "result"
	ControlError            = "error"
)

// ControlMessage is a JSON text message on the scan socket.
type ControlMessage struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Result  *Result     `json:"result,omitempty"`
	Book    interface{} `json:"book,omitempty"`
}

// WebSocketCamera reads frames pushed by a browser over conn. The browser
// announces "ready" once it holds the camera, or "permission_denied".
type WebSocketCamera struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewWebSocketCamera(conn *websocket.Conn) *WebSocketCamera {
	return &WebSocketCamera{conn: conn}
}

func (c *WebSocketCamera) Open(ctx context.Context) (Stream, error) {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetReadDeadline(time.Now()) })
	defer stop()

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("camera handshake failed: %w", err)
		}
		if kind == websocket.BinaryMessage {
			return &wsStream{camera: c, pending: data}, nil
		}

		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case ControlReady:
			return &wsStream{camera: c}, nil
		case ControlPermissionDenied:
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, msg.Message)
		case ControlStop:
			return nil, io.EOF
		}
	}
}

// WriteJSON sends a control message to the browser.
func (c *WebSocketCamera) WriteJSON(msg ControlMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

type wsStream struct {
	camera  *WebSocketCamera
	pending []byte
	once    sync.Once
}

func (s *wsStream) Next(ctx context.Context) (image.Image, error) {
	conn := s.camera.conn
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var data []byte
		if s.pending != nil {
			data, s.pending = s.pending, nil
		} else {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil, io.EOF
				}
				return nil, err
			}
			if kind == websocket.TextMessage {
				var ctl ControlMessage
				if json.Unmarshal(msg, &ctl) == nil && ctl.Type == ControlStop {
					return nil, io.EOF
				}
				continue
			}
			data = msg
		}

		buf, _, err := imagebuf.Decode(data)
		if err != nil {
			logger.Component("barcode").WithError(err).Debug("Dropping undecodable websocket frame")
			continue
		}
		return buf.Image(), nil
	}
}

// Close tells the browser to release its camera.
func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.camera.WriteJSON(ControlMessage{Type: ControlRelease})
	})
	return err
}
