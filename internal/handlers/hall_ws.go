// internal/handlers/hall_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/bingo/internal/game"
	"github.com/jason-s-yu/bingo/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the optional WebSocket subprotocol of the hall.
const Subprotocol = "bingo"

// GatewayOptions tunes per-connection behaviour of the hall gateway.
type GatewayOptions struct {
	OriginPatterns []string
	OutboxSize     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	ReadLimit      int64
}

func (o *GatewayOptions) applyDefaults() {
	if len(o.OriginPatterns) == 0 {
		o.OriginPatterns = []string{"*"}
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
}

// HallWSHandler upgrades the HTTP connection to WebSocket and attaches it to the hall.
// The session lives exactly as long as the connection.
func HallWSHandler(logger *logrus.Logger, hall *game.Hall, opts GatewayOptions) http.HandlerFunc {
	opts.applyDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := resolveIdentity(r)
		if err != nil {
			logger.Warnf("Rejected hall connection from %s: %v", r.RemoteAddr, err)
			http.Error(w, "invalid auth token", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		// the subprotocol is optional, but a client that asks for others is talking to the wrong server
		if r.Header.Get("Sec-WebSocket-Protocol") != "" && c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the bingo subprotocol")
			return
		}
		c.SetReadLimit(opts.ReadLimit)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		outbox := make(chan []byte, opts.OutboxSize)
		sessionID, err := hall.Join(ctx, identity, outbox)
		if err != nil {
			logger.Warnf("Hall join failed for %s: %v", r.RemoteAddr, err)
			c.Close(HallUnavailableError, "hall unavailable")
			return
		}

		log := logger.WithFields(logrus.Fields{
			"session": sessionID,
			"remote":  r.RemoteAddr,
			"guest":   identity.IsGuest(),
		})
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		go writePump(ctx, cancel, c, outbox, opts, log)
		err = readPump(ctx, c, hall, sessionID, log)

		hall.Leave(sessionID)
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, err)
	}
}

// readPump forwards client frames to the hall until the connection ends.
// Malformed frames are logged and dropped; the connection stays open.
func readPump(ctx context.Context, c *websocket.Conn, hall *game.Hall, sessionID int64, log logrus.FieldLogger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			log.Debugf("Ignoring non-text frame of type %d", msgType)
			continue
		}

		msg, err := game.ParseClientMessage(data)
		if err != nil {
			log.Debugf("Dropping malformed message: %v", err)
			continue
		}
		if err := hall.Submit(ctx, sessionID, msg); err != nil {
			if errors.Is(err, game.ErrHallClosed) {
				c.Close(HallUnavailableError, "hall closed")
			}
			return err
		}
	}
}

// writePump drains the session's outbox onto the socket and keeps the
// connection alive with pings. The hall closes the outbox when the session ends.
func writePump(ctx context.Context, cancel context.CancelFunc, c *websocket.Conn, outbox <-chan []byte, opts GatewayOptions, log logrus.FieldLogger) {
	defer cancel()
	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case data, ok := <-outbox:
			if !ok {
				log.Info("Session ended by hall")
				c.Close(SessionEndedError, "session ended")
				return
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, opts.WriteTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			writeCancel()
			if err != nil {
				log.Warnf("Failed to write to websocket: %v", err)
				return
			}

		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			pingCancel()
			if err != nil {
				log.Warnf("Ping failed, assuming disconnect: %v", err)
				return
			}
		}
	}
}
