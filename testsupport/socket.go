package testsupport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// SocketServer is a push server speaking either Engine.IO v4 / Socket.IO v5
// or the {event,data} envelope. It records room joins.
type SocketServer struct {
	Server   *httptest.Server
	Protocol string

	mu     sync.Mutex
	conns  []*websocket.Conn
	joins  []json.RawMessage
	dials  int
	reject bool

	joined chan json.RawMessage
}

func NewSocketServer(protocol string) *SocketServer {
	s := &SocketServer{Protocol: protocol, joined: make(chan json.RawMessage, 16)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.dials++
		reject := s.reject
		s.mu.Unlock()
		if reject {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		s.serve(conn)
	}))
	return s
}

func (s *SocketServer) URL() string { return s.Server.URL }

func (s *SocketServer) Close() {
	s.DropAll()
	s.Server.Close()
}

// Reject makes every following dial fail.
func (s *SocketServer) Reject(v bool) {
	s.mu.Lock()
	s.reject = v
	s.mu.Unlock()
}

func (s *SocketServer) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func (s *SocketServer) Joins() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.joins...)
}

// WaitJoin returns the next join_room payload, or nil after timeout.
func (s *SocketServer) WaitJoin(timeout time.Duration) json.RawMessage {
	select {
	case j := <-s.joined:
		return j
	case <-time.After(timeout):
		return nil
	}
}

// Emit pushes an event to every connected client.
func (s *SocketServer) Emit(event string, data interface{}) {
	var frame []byte
	if s.Protocol == "json" {
		frame, _ = json.Marshal(map[string]interface{}{"event": event, "data": data})
	} else {
		args, _ := json.Marshal([]interface{}{event, data})
		frame = append([]byte("42"), args...)
	}
	s.writeAll(frame)
}

// EmitBare pushes an event without payload.
func (s *SocketServer) EmitBare(event string) {
	if s.Protocol == "json" {
		frame, _ := json.Marshal(map[string]string{"event": event})
		s.writeAll(frame)
		return
	}
	args, _ := json.Marshal([]string{event})
	s.writeAll(append([]byte("42"), args...))
}

// Disconnect ends the Socket.IO session of every client, as a server-side
// socket.disconnect() does.
func (s *SocketServer) Disconnect() {
	s.writeAll([]byte("41"))
}

// DropAll closes every connection from the server side.
func (s *SocketServer) DropAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func (s *SocketServer) writeAll(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		_ = c.WriteMessage(websocket.TextMessage, frame)
	}
}

func (s *SocketServer) write(c *websocket.Conn, frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = c.WriteMessage(websocket.TextMessage, []byte(frame))
}

func (s *SocketServer) serve(conn *websocket.Conn) {
	if s.Protocol != "json" {
		s.write(conn, `0{"sid":"eio-1","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`)
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if s.Protocol == "json" {
			var env struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if json.Unmarshal(msg, &env) == nil && env.Event == "join_room" {
				s.recordJoin(env.Data)
			}
			continue
		}

		switch {
		case bytes.Equal(msg, []byte("40")):
			s.write(conn, `40{"sid":"sio-1"}`)
		case bytes.HasPrefix(msg, []byte("42")):
			var args []json.RawMessage
			if json.Unmarshal(msg[2:], &args) == nil && len(args) == 2 && string(args[0]) == `"join_room"` {
				s.recordJoin(args[1])
			}
		}
	}
}

func (s *SocketServer) recordJoin(room json.RawMessage) {
	s.mu.Lock()
	s.joins = append(s.joins, room)
	s.mu.Unlock()
	select {
	case s.joined <- room:
	default:
	}
}
