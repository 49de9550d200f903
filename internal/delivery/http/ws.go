package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	errs "github.com/vogiaan1904/ticketbottle-inventory/internal/errors"
	"github.com/vogiaan1904/ticketbottle-inventory/internal/realtime"
	"golang.org/x/sync/errgroup"
)

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	*websocket.Conn
	mu           sync.Mutex
	writeTimeout time.Duration
}

func (c *wsConn) send(msg wsMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.WriteJSON(msg)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if h.originAllowed(origin) {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// ServeWS upgrades to a websocket on which the client subscribes to live
// availability of events.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Warnf(r.Context(), "delivery.http.ServeWS: %v", err)
		return
	}
	conn := &wsConn{Conn: raw, writeTimeout: h.cfg.WriteTimeout}
	client := h.bc.Register()

	ctx := h.l.WithFields(r.Context(), "ws_client", client.ID)
	h.l.Debugf(ctx, "Websocket client connected remote=%s", r.RemoteAddr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer conn.Close()
		return h.wsWritePump(gctx, conn, client)
	})
	g.Go(func() error {
		return h.wsPing(gctx, conn)
	})
	g.Go(func() error {
		return h.wsReadLoop(gctx, conn, client)
	})

	err = g.Wait()
	h.bc.Disconnect(client)
	_ = conn.Close()

	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, realtime.ErrClientClosed) {
		h.l.Debugf(ctx, "Websocket client closed: %v", err)
		return
	}
	h.l.Debugf(ctx, "Websocket client disconnected")
}

func (h *Handler) wsWritePump(ctx context.Context, conn *wsConn, client *realtime.Client) error {
	for {
		u, err := client.Next(ctx)
		if err != nil {
			return err
		}
		if err := conn.send(newWSAvailability(u)); err != nil {
			return err
		}
	}
}

func (h *Handler) wsPing(ctx context.Context, conn *wsConn) error {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) wsReadLoop(ctx context.Context, conn *wsConn, client *realtime.Client) error {
	pongWait := 2 * h.cfg.PingInterval
	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := conn.send(wsMessage{Type: wsTypeError, Message: "invalid message"}); err != nil {
				return err
			}
			continue
		}
		if err := h.validator.Struct(&req); err != nil {
			if err := conn.send(wsMessage{Type: wsTypeError, EventID: req.EventID, Message: "expected action subscribe or unsubscribe with an event_id"}); err != nil {
				return err
			}
			continue
		}

		if err := h.wsHandle(ctx, conn, client, req); err != nil {
			return err
		}
	}
}

func (h *Handler) wsHandle(ctx context.Context, conn *wsConn, client *realtime.Client, req wsRequest) error {
	switch req.Action {
	case wsActionUnsubscribe:
		h.bc.Unsubscribe(client, req.EventID)
		return conn.send(wsMessage{Type: wsTypeUnsubscribed, EventID: req.EventID})

	case wsActionSubscribe:
		// Subscribe before reading the snapshot so no change falls in between;
		// the seq rule drops whichever of the two is older.
		if !h.bc.TrySubscribe(client, req.EventID, h.cfg.MaxSubscriptions) {
			return conn.send(wsMessage{Type: wsTypeError, EventID: req.EventID, Message: "too many subscriptions"})
		}

		snapshot, err := h.catalog.GetAvailability(ctx, req.EventID)
		if err != nil {
			h.bc.Unsubscribe(client, req.EventID)
			msg := "failed to load availability"
			if errors.Is(err, errs.ErrEventNotFound) {
				msg = errs.ErrEventNotFound.Error()
			} else {
				h.l.Errorf(ctx, "delivery.http.wsHandle: %v", err)
			}
			return conn.send(wsMessage{Type: wsTypeError, EventID: req.EventID, Message: msg})
		}

		if err := conn.send(wsMessage{Type: wsTypeSubscribed, EventID: req.EventID}); err != nil {
			return err
		}
		client.Deliver(snapshot)
		return nil
	}
	return nil
}
