package barcode

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
)

func encodedFrame(t *testing.T, mime string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	img.Set(0, 0, color.White)
	data, _, err := imagebuf.Encode(imagebuf.FromImage(img), mime)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// scanServer runs one scan per websocket connection and reports the outcome
// back to the client.
func scanServer(t *testing.T, dec Decoder) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		cam := NewWebSocketCamera(conn)
		res, err := NewScanner(cam, dec, WithScanTimeout(2*time.Second)).Scan(r.Context())
		if err != nil {
			_ = cam.WriteJSON(ControlMessage{Type: ControlError, Error: string(apperrors.TypeOf(err))})
			return
		}
		_ = cam.WriteJSON(ControlMessage{Type: ControlResult, Result: &res})
	}))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWebSocketCamera_ScanOverSocket(t *testing.T) {
	dec := &fakeDecoder{}
	dec.succeed.Store(true)
	srv := scanServer(t, dec)
	defer srv.Close()

	conn := dial(t, srv)
	if err := conn.WriteJSON(ControlMessage{Type: ControlReady}); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, encodedFrame(t, imagebuf.MIMEPNG)); err != nil {
		t.Fatal(err)
	}

	var release, result ControlMessage
	if err := conn.ReadJSON(&release); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if release.Type != ControlRelease {
		t.Errorf("Expected release before result, got %q", release.Type)
	}
	if err := conn.ReadJSON(&result); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if result.Type != ControlResult || result.Result == nil || result.Result.Text != "9780306406157" {
		t.Errorf("Unexpected result message %+v", result)
	}
}

func TestWebSocketCamera_PermissionDenied(t *testing.T) {
	dec := &fakeDecoder{}
	srv := scanServer(t, dec)
	defer srv.Close()

	conn := dial(t, srv)
	if err := conn.WriteJSON(ControlMessage{Type: ControlPermissionDenied, Message: "NotAllowedError"}); err != nil {
		t.Fatal(err)
	}

	var msg ControlMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != ControlError || msg.Error != string(apperrors.ErrorTypeCameraPermissionDenied) {
		t.Errorf("Expected permission error, got %+v", msg)
	}
	if dec.calls.Load() != 0 {
		t.Error("Expected no decode attempts without a camera")
	}
}

func TestWebSocketCamera_StopMessageEndsScan(t *testing.T) {
	srv := scanServer(t, &fakeDecoder{})
	defer srv.Close()

	conn := dial(t, srv)
	_ = conn.WriteJSON(ControlMessage{Type: ControlReady})
	_ = conn.WriteMessage(websocket.BinaryMessage, encodedFrame(t, imagebuf.MIMEPNG))
	_ = conn.WriteJSON(ControlMessage{Type: ControlStop})

	for {
		var msg ControlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if msg.Type == ControlRelease {
			continue
		}
		if msg.Type != ControlError || msg.Error != string(apperrors.ErrorTypeNotFound) {
			t.Errorf("Expected not_found error, got %+v", msg)
		}
		return
	}
}

func TestUDPCamera_ReassemblesFrames(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := NewUDPCamera("127.0.0.1:0").Open(ctx)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer stream.Close()
	addr := stream.(interface{ LocalAddr() net.Addr }).LocalAddr()

	client, err := net.Dial("udp", addr.String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	frame := encodedFrame(t, imagebuf.MIMEJPEG)
	go func() {
		// A stray tail packet must not corrupt the next frame.
		_, _ = client.Write([]byte{0x01, 0x02})
		for off := 0; off < len(frame); off += 512 {
			end := min(off+512, len(frame))
			_, _ = client.Write(frame[off:end])
			time.Sleep(time.Millisecond)
		}
	}()

	img, err := stream.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Errorf("Expected 16x16 frame, got %v", img.Bounds())
	}
}

func TestUDPCamera_NextHonoursContext(t *testing.T) {
	stream, err := NewUDPCamera("127.0.0.1:0").Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := stream.Next(ctx); err == nil {
		t.Error("Expected Next to return when the context ends")
	}
}

func TestUDPStream_DropsOversizedFrames(t *testing.T) {
	frame := encodedFrame(t, imagebuf.MIMEJPEG)
	s := &udpStream{limit: int64(len(frame) + 64)}

	junk := append(append([]byte{}, jpegStart...), make([]byte, 510)...)
	filler := make([]byte, 512)
	if _, ok := s.push(junk); ok {
		t.Fatal("Did not expect a frame from an open-ended datagram")
	}
	for i := 0; i < 100; i++ {
		if _, ok := s.push(filler); ok {
			t.Fatal("Did not expect a frame without an EOI marker")
		}
		if int64(s.frame.Len()) > s.limit {
			t.Fatalf("Frame buffer grew to %d bytes, limit %d", s.frame.Len(), s.limit)
		}
	}

	var got []byte
	for off := 0; off < len(frame); off += 512 {
		end := min(off+512, len(frame))
		if f, ok := s.push(frame[off:end]); ok {
			got = append([]byte{}, f...)
		}
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("Expected the next complete frame after an oversized one, got %d bytes", len(got))
	}
}
