// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"k8s.io/utils/ptr"

	"github.com/mchmarny/craftplan/pkg/catalog"
	"github.com/mchmarny/craftplan/pkg/defaults"
	cperrors "github.com/mchmarny/craftplan/pkg/errors"
	"github.com/mchmarny/craftplan/pkg/planner"
	"github.com/mchmarny/craftplan/pkg/server"
)

// Handler upgrades requests to WebSocket connections, each backed by its
// own planner.Session.
type Handler struct {
	// Catalog is the catalog sessions plan against. Nil means the process
	// default catalog.
	Catalog *catalog.Catalog

	// CheckOrigin overrides the upgrader origin check. Nil allows only
	// same-origin requests.
	CheckOrigin func(r *http.Request) bool
}

// NewHandler creates a Handler over cat.
func NewHandler(cat *catalog.Catalog) *Handler {
	return &Handler{Catalog: cat}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		server.WriteError(w, r, http.StatusMethodNotAllowed, cperrors.ErrCodeMethodNotAllowed,
			"Method not allowed", false, map[string]any{"method": r.Method})
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		server.WriteError(w, r, http.StatusBadRequest, cperrors.ErrCodeInvalidRequest,
			"WebSocket upgrade required", false, nil)
		return
	}

	cat := h.Catalog
	if cat == nil {
		var err error
		if cat, err = catalog.Default(r.Context()); err != nil {
			server.WriteErrorFromErr(w, r, err, "Failed to load catalog", nil)
			return
		}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.CheckOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, planner.NewSession(cat), server.RequestID(r.Context()))
	c.run(r.Context())
}

type client struct {
	conn      *websocket.Conn
	session   *planner.Session
	requestID string

	writeMu sync.Mutex
}

func newClient(conn *websocket.Conn, session *planner.Session, requestID string) *client {
	return &client{
		conn:      conn,
		session:   session,
		requestID: requestID,
	}
}

func (c *client) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.conn.Close()

	activeSessions.Inc()
	defer activeSessions.Dec()

	slog.Debug("live session opened", "requestID", c.requestID, "remote", c.conn.RemoteAddr().String())

	unsubscribe := c.session.Subscribe(func(s planner.Snapshot) {
		c.send(snapshotEvent(s))
	})
	defer unsubscribe()

	c.send(snapshotEvent(c.session.Snapshot()))

	go c.keepalive(ctx)
	go func() {
		<-ctx.Done()
		c.closeWith(websocket.CloseGoingAway, "session ended")
		c.conn.Close()
	}()

	c.conn.SetReadLimit(defaults.SessionMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(defaults.SessionPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(defaults.SessionPongTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("live session read failed", "requestID", c.requestID, "error", err)
			}
			slog.Debug("live session closed", "requestID", c.requestID)
			return
		}
		c.handle(data)
	}
}

func (c *client) handle(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		sessionMessages.WithLabelValues("malformed", "rejected").Inc()
		c.send(errorEvent(cperrors.Wrap(cperrors.ErrCodeInvalidRequest, "malformed message", err)))
		return
	}

	err := c.apply(msg)
	if err != nil {
		sessionMessages.WithLabelValues(msg.Type, "rejected").Inc()
		slog.Debug("live message rejected", "requestID", c.requestID, "type", msg.Type, "error", err)
		c.send(errorEvent(err))
		return
	}
	sessionMessages.WithLabelValues(msg.Type, "accepted").Inc()
}

func (c *client) apply(msg Message) error {
	switch msg.Type {
	case MessageObjective:
		return c.session.SetObjective(strings.TrimSpace(msg.Item), ptr.Deref(msg.Count, 1))
	case MessageTier:
		if strings.TrimSpace(msg.Machine) == "" || msg.Tier == nil {
			return cperrors.New(cperrors.ErrCodeInvalidRequest, "tier message requires machine and tier")
		}
		return c.session.SetTier(strings.TrimSpace(msg.Machine), *msg.Tier)
	case MessageReset:
		c.session.ResetSettings()
		return nil
	case MessageSnapshot:
		c.send(snapshotEvent(c.session.Snapshot()))
		return nil
	default:
		return cperrors.New(cperrors.ErrCodeInvalidRequest, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (c *client) send(e Event) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(defaults.SessionWriteTimeout))
	if err := c.conn.WriteJSON(e); err != nil {
		slog.Debug("live session write failed", "requestID", c.requestID, "error", err)
	}
}

func (c *client) keepalive(ctx context.Context) {
	ticker := time.NewTicker(defaults.SessionPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(defaults.SessionWriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				slog.Debug("live session ping failed", "requestID", c.requestID, "error", err)
				return
			}
		}
	}
}

func (c *client) closeWith(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
}
