package barcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"time"

	"github.com/anime-shed/bookcapture-go/internal/imagebuf"
	"github.com/anime-shed/bookcapture-go/internal/logger"
)

var (
	jpegStart = []byte{0xFF, 0xD8}
	jpegEnd   = []byte{0xFF, 0xD9}
)

// udpPacketSize fits one camera datagram.
const udpPacketSize = 2048

// DefaultMaxFrameSize bounds a reassembled frame when MaxFrameSize is unset.
const DefaultMaxFrameSize = 10 * 1024 * 1024

// UDPCamera listens for JPEG frames split across UDP datagrams. A datagram
// starting with the JPEG SOI marker begins a frame and one ending with EOI
// completes it. A frame growing past MaxFrameSize is dropped.
type UDPCamera struct {
	Addr         string
	MaxFrameSize int64
}

func NewUDPCamera(addr string) *UDPCamera {
	return &UDPCamera{Addr: addr, MaxFrameSize: DefaultMaxFrameSize}
}

func (c *UDPCamera) Open(ctx context.Context) (Stream, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", c.Addr)
	if err != nil {
		return nil, permissionError(err)
	}
	logger.Component("barcode").WithField("addr", conn.LocalAddr().String()).Info("UDP camera listening")
	limit := c.MaxFrameSize
	if limit <= 0 {
		limit = DefaultMaxFrameSize
	}
	return &udpStream{conn: conn, packet: make([]byte, udpPacketSize), limit: limit}, nil
}

type udpStream struct {
	conn    net.PacketConn
	packet  []byte
	limit   int64
	frame   bytes.Buffer
	inFrame bool
}

// LocalAddr returns the bound address, useful when Addr used port 0.
func (s *udpStream) LocalAddr() net.Addr { return s.conn.LocalAddr() }

func (s *udpStream) Next(ctx context.Context) (image.Image, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.SetReadDeadline(time.Now()) })
	defer stop()

	for {
		n, _, err := s.conn.ReadFrom(s.packet)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil, fmt.Errorf("udp camera closed: %w", err)
			}
			return nil, err
		}

		frame, ok := s.push(s.packet[:n])
		if !ok {
			continue
		}
		buf, _, err := imagebuf.Decode(frame)
		if err != nil {
			logger.Component("barcode").WithError(err).Debug("Dropping corrupt UDP frame")
			continue
		}
		return buf.Image(), nil
	}
}

// push adds one datagram and returns the completed frame, if any. Datagrams
// outside a frame are ignored. The returned slice is valid until the next push.
func (s *udpStream) push(data []byte) ([]byte, bool) {
	if bytes.HasPrefix(data, jpegStart) {
		s.frame.Reset()
		s.inFrame = true
	}
	if !s.inFrame {
		return nil, false
	}
	if int64(s.frame.Len()+len(data)) > s.limit {
		logger.Component("barcode").WithField("limit", s.limit).Debug("Dropping oversized UDP frame")
		s.frame.Reset()
		s.inFrame = false
		return nil, false
	}
	s.frame.Write(data)
	if !bytes.HasSuffix(data, jpegEnd) {
		return nil, false
	}

	s.inFrame = false
	frame := s.frame.Bytes()
	s.frame.Reset()
	return frame, true
}

func (s *udpStream) Close() error {
	return s.conn.Close()
}
