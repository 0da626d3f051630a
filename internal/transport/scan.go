package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/anime-shed/bookcapture-go/internal/barcode"
	"github.com/anime-shed/bookcapture-go/internal/books"
	apperrors "github.com/anime-shed/bookcapture-go/internal/errors"
	"github.com/anime-shed/bookcapture-go/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// scan upgrades to a WebSocket, reads camera frames from the browser and
// answers with the first barcode found, plus the book when it is an ISBN.
func (h *handler) scan(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Component("transport").WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(h.cfg.MaxUploadSize)

	log := logger.Component("transport").WithField("ip", c.ClientIP())
	log.Info("Scan client connected")

	ctx := c.Request.Context()
	cam := barcode.NewWebSocketCamera(conn)
	scanner := barcode.NewScanner(cam, h.deps.NewDecoder(),
		barcode.WithScanTimeout(h.cfg.ScanTimeout),
		barcode.WithEvents(h.deps.Events),
	)

	res, err := scanner.Scan(ctx)
	if err != nil {
		_ = cam.WriteJSON(barcode.ControlMessage{
			Type:    barcode.ControlError,
			Error:   string(apperrors.TypeOf(err)),
			Message: apperrors.UserMessage(err),
		})
		closeNormally(conn)
		return
	}

	msg := barcode.ControlMessage{Type: barcode.ControlResult, Result: &res}
	if res.ISBN != "" && h.deps.Books != nil {
		if book, berr := h.lookup(ctx, res.ISBN); berr == nil {
			msg.Book = book
		} else {
			log.WithError(berr).WithField("isbn", res.ISBN).Warn("Book lookup after scan failed")
		}
	}
	if err := cam.WriteJSON(msg); err != nil {
		log.WithError(err).Warn("Failed to send scan result")
	}
	closeNormally(conn)
}

func (h *handler) lookup(ctx context.Context, isbn string) (*books.Book, error) {
	if h.cfg.BookLookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.BookLookupTimeout)
		defer cancel()
	}
	return h.deps.Books.LookupISBN(ctx, isbn)
}

func closeNormally(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (h *handler) lookupBook(c *gin.Context) {
	if h.deps.Books == nil {
		respondError(c, apperrors.NewNotFoundError("book lookup is not configured", nil))
		return
	}
	book, err := h.lookup(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}
