// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	log "github.com/sirupsen/logrus"
)

// RouteNotifier is the optional SPA push channel spec.md §4.5's design
// note allows: a collaborator that tells the session manager a top-level
// route changed without a full navigation event, so the next Index call
// can force the incremental path even if the snapshot's dom_hash would
// otherwise look warm. Absent a connected notifier, the manager already
// falls back to comparing the snapshot's own top_url against the
// session's last-known URL (see Session.Index's urlChanged check), so a
// RouteNotifier is strictly an earlier, push-based signal of the same
// fact.
type RouteNotifier interface {
	// Routes returns a channel of newly observed top-level URLs. The
	// channel is closed when the notifier disconnects.
	Routes() <-chan string
}

// wsRouteNotifier reads {"url": "..."} text frames off a gorilla/websocket
// connection and republishes the url field on a buffered channel. Grounded
// on the teacher's internal/wsrelay session read-loop shape (read message,
// decode with goccy/go-json, dispatch), generalized from a bidirectional
// RPC relay down to an unexported one-way consumer.
type wsRouteNotifier struct {
	conn   *websocket.Conn
	routes chan string
	once   sync.Once
}

type routeMessage struct {
	URL string `json:"url"`
}

// NewWSRouteNotifier starts a read loop over conn and returns a
// RouteNotifier fed by it. The loop runs until conn errors or closes.
func NewWSRouteNotifier(conn *websocket.Conn) RouteNotifier {
	n := &wsRouteNotifier{conn: conn, routes: make(chan string, 8)}
	go n.readLoop()
	return n
}

func (n *wsRouteNotifier) readLoop() {
	defer n.close()
	for {
		_, data, err := n.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg routeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.WithError(err).Warn("session: discarding malformed route notification")
			continue
		}
		if msg.URL == "" {
			continue
		}
		select {
		case n.routes <- msg.URL:
		default:
			// Drop if the consumer is behind; this is a best-effort hint,
			// never a correctness dependency (spec.md §4.5).
		}
	}
}

func (n *wsRouteNotifier) close() {
	n.once.Do(func() { close(n.routes) })
}

func (n *wsRouteNotifier) Routes() <-chan string { return n.routes }

// AttachRouteNotifier drains notifier in the background and sets
// forceReindex whenever a pushed URL differs from the session's
// last-known one, so the next Index call takes the incremental path
// regardless of what dom_hash the following snapshot produces. This is a
// best-effort hint layered on top of Index's own snapshot-vs-last-URL
// comparison, never a replacement for it (spec.md §4.5: "the core treats
// it as a best-effort hint, never a correctness dependency").
func (s *Session) AttachRouteNotifier(notifier RouteNotifier) {
	go func() {
		for url := range notifier.Routes() {
			s.mu.Lock()
			if s.lastURL != "" && s.lastURL != url {
				s.forceReindex = true
			}
			s.mu.Unlock()
		}
	}()
}
