/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Seednode/aircontroller/relay"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const (
	maxFrameSize = 8 << 10
	writeWait    = 10 * time.Second

	typeReply = "reply"
)

// clientFrame is a frame as received from a screen or controller.
type clientFrame struct {
	Type string          `json:"type"`
	ID   int64           `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// serverFrame is a frame as sent to a screen or controller. Replies to
// create-room and join-room echo the request's ID.
type serverFrame struct {
	Type string `json:"type"`
	ID   int64  `json:"id,omitempty"`
	Data any    `json:"data,omitempty"`
}

type Client struct {
	id           string
	conn         *websocket.Conn
	send         chan serverFrame
	pingInterval time.Duration
}

type event struct {
	client *Client
	frame  clientFrame
	err    error
}

type roomQuery struct {
	code  string
	reply chan roomResult
}

type roomResult struct {
	info relay.RoomInfo
	ok   bool
}

// Hub owns the relay. Every connection event is funneled through run, so
// the relay only ever sees one event at a time.
type Hub struct {
	cfg     *Config
	relay   *relay.Relay
	clients map[string]*Client

	register chan *Client
	unreg    chan *Client
	events   chan event
	queries  chan roomQuery
	done     chan struct{}
}

func newHub(cfg *Config, dir *relay.Directory) *Hub {
	h := &Hub{
		cfg:      cfg,
		clients:  make(map[string]*Client),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		events:   make(chan event),
		queries:  make(chan roomQuery),
		done:     make(chan struct{}),
	}
	h.relay = relay.New(dir, h, func(format string, args ...any) {
		logf(cfg, format, args...)
	})

	return h
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.clients[c.id] = c
		case c := <-h.unreg:
			if h.clients[c.id] == c {
				delete(h.clients, c.id)
				close(c.send)
			}
			h.relay.Disconnect(c.id)
			logf(h.cfg, "SERVE: Connection %s closed", c.id)
		case ev := <-h.events:
			h.handle(ev)
		case q := <-h.queries:
			info, ok := h.relay.Room(q.code)
			q.reply <- roomResult{info: info, ok: ok}
		}
	}
}

func (h *Hub) handle(ev event) {
	c, f := ev.client, ev.frame

	if ev.err != nil {
		h.handleUnreadable(c, f, ev.err)
		return
	}

	switch f.Type {
	case relay.TypeCreateRoom:
		h.reply(c, f.ID, h.relay.CreateRoom(c.id))
	case relay.TypeJoinRoom:
		var req relay.JoinRequest
		if err := json.Unmarshal(f.Data, &req); err != nil {
			h.reply(c, f.ID, relay.JoinReply{Error: relay.ErrorMessage(relay.ErrMalformedRequest)})
			return
		}
		h.reply(c, f.ID, h.relay.Join(c.id, req))
	case relay.TypeControllerInput:
		var in relay.Input
		if err := json.Unmarshal(f.Data, &in); err != nil {
			logf(h.cfg, "SERVE: Dropped malformed input from %s: %v", c.id, err)
			return
		}
		h.relay.Input(c.id, in)
	case relay.TypeStartGame:
		var gameID string
		if err := json.Unmarshal(f.Data, &gameID); err != nil {
			logf(h.cfg, "SERVE: Dropped malformed start-game from %s: %v", c.id, err)
			return
		}
		h.relay.StartGame(c.id, gameID)
	case relay.TypeGameState:
		if !isObject(f.Data) {
			logf(h.cfg, "SERVE: Dropped malformed game-state from %s", c.id)
			return
		}
		h.relay.GameState(c.id, relay.GameState(f.Data))
	case relay.TypeEndGame:
		h.relay.EndGame(c.id)
	}
}

// handleUnreadable answers requests whose envelope could not be fully
// decoded, so every request still gets its reply. Anything else is dropped.
func (h *Hub) handleUnreadable(c *Client, f clientFrame, err error) {
	malformed := relay.ErrorMessage(relay.ErrMalformedRequest)

	switch f.Type {
	case relay.TypeCreateRoom:
		h.reply(c, f.ID, relay.CreateRoomReply{Error: malformed})
	case relay.TypeJoinRoom:
		h.reply(c, f.ID, relay.JoinReply{Error: malformed})
	default:
		logf(h.cfg, "SERVE: Dropped unreadable frame from %s: %v", c.id, err)
	}
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}

// Send implements relay.Sender. It must only be called from run.
func (h *Hub) Send(connID string, msg relay.Message) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	h.deliver(c, serverFrame{Type: msg.Type, Data: msg.Data})
}

func (h *Hub) reply(c *Client, id int64, data any) {
	h.deliver(c, serverFrame{Type: typeReply, ID: id, Data: data})
}

// deliver queues f for c, dropping c if its queue is full. Closing the
// socket stops both pumps, and the relay hears about the drop once the read
// pump exits.
func (h *Hub) deliver(c *Client, f serverFrame) {
	if h.clients[c.id] != c {
		return
	}

	select {
	case c.send <- f:
	default:
		logf(h.cfg, "SERVE: Dropping slow connection %s", c.id)
		delete(h.clients, c.id)
		close(c.send)
		_ = c.conn.Close()
	}
}

// closeAll disconnects every client (used on shutdown).
func (h *Hub) closeAll() {
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
}

func (h *Hub) submitClient(ch chan<- *Client, c *Client) bool {
	select {
	case ch <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) submitEvent(ev event) bool {
	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

// Room returns a snapshot of an open room, read from inside the hub loop.
func (h *Hub) Room(ctx context.Context, code string) (relay.RoomInfo, bool) {
	q := roomQuery{code: code, reply: make(chan roomResult, 1)}

	select {
	case h.queries <- q:
	case <-ctx.Done():
		return relay.RoomInfo{}, false
	case <-h.done:
		return relay.RoomInfo{}, false
	}

	select {
	case res := <-q.reply:
		return res.info, res.ok
	case <-ctx.Done():
		return relay.RoomInfo{}, false
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Websocket upgrade for %s failed: %v", realIP(r), err)
			return
		}

		client := &Client{
			id:           uuid.NewString(),
			conn:         conn,
			send:         make(chan serverFrame, cfg.sendBuffer),
			pingInterval: cfg.pingInterval,
		}

		if !h.submitClient(h.register, client) {
			_ = conn.Close()
			return
		}

		logf(cfg, "SERVE: Connection %s from %s", client.id, realIP(r))

		go client.writePump()
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.submitClient(h.unreg, c)
		_ = c.conn.Close()
	}()

	pongWait := 2 * c.pingInterval

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		// A mistyped field still leaves the rest of f decoded, which is
		// enough to answer a request.
		var f clientFrame
		err = json.Unmarshal(data, &f)

		if !h.submitEvent(event{client: c, frame: f, err: err}) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
