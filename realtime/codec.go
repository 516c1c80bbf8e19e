package realtime

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Decoded is what a codec made of one inbound frame. Err alone means the frame
// was unreadable; Close means the connection must be dropped. Final means the
// server ended the session itself and the connection is not retried.
type Decoded struct {
	Replies   [][]byte
	Ready     bool
	Event     *Event
	Heartbeat time.Duration
	Close     bool
	Final     bool
	Err       error
}

// Codec frames events on the wire.
type Codec interface {
	Name() string
	// URL turns the configured socket origin into the websocket URL to dial.
	URL(base string) (string, error)
	// ReadyOnDial reports whether the room can be joined right after dialing,
	// without waiting for a handshake frame.
	ReadyOnDial() bool
	Decode(frame []byte) Decoded
	Encode(kind EventKind, data interface{}) ([]byte, error)
}

// NewCodec returns the codec for a REALTIME_PROTOCOL value.
func NewCodec(protocol string) (Codec, error) {
	switch protocol {
	case "", "socketio":
		return SocketIOCodec{}, nil
	case "json":
		return JSONCodec{}, nil
	}
	return nil, fmt.Errorf("unknown realtime protocol %q", protocol)
}

func websocketURL(base string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported socket url scheme %q", u.Scheme)
	}
	return u, nil
}

// SocketIOCodec speaks Engine.IO v4 / Socket.IO v5 over a plain websocket,
// default namespace only.
type SocketIOCodec struct{}

func (SocketIOCodec) Name() string { return "socketio" }

func (SocketIOCodec) URL(base string) (string, error) {
	u, err := websocketURL(base)
	if err != nil {
		return "", err
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/socket.io/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (SocketIOCodec) ReadyOnDial() bool { return false }

// Engine.IO packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioNoop    = '6'
)

// Socket.IO packet types, carried inside an Engine.IO message.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

func (SocketIOCodec) Decode(frame []byte) Decoded {
	if len(frame) == 0 {
		return Decoded{}
	}
	switch frame[0] {
	case eioOpen:
		var open struct {
			PingInterval int `json:"pingInterval"`
			PingTimeout  int `json:"pingTimeout"`
		}
		if err := json.Unmarshal(frame[1:], &open); err != nil {
			return Decoded{Err: fmt.Errorf("bad open packet: %w", err)}
		}
		return Decoded{
			Replies:   [][]byte{{eioMessage, sioConnect}},
			Heartbeat: time.Duration(open.PingInterval+open.PingTimeout) * time.Millisecond,
		}
	case eioPing:
		return Decoded{Replies: [][]byte{append([]byte{eioPong}, frame[1:]...)}}
	case eioClose:
		return Decoded{Close: true}
	case eioPong, eioNoop:
		return Decoded{}
	case eioMessage:
		return decodeSocketIO(frame[1:])
	}
	return Decoded{}
}

func decodeSocketIO(packet []byte) Decoded {
	if len(packet) == 0 {
		return Decoded{}
	}
	kind, body := packet[0], stripNamespace(packet[1:])
	switch kind {
	case sioConnect:
		return Decoded{Ready: true}
	case sioDisconnect:
		// Server-side socket.disconnect(); socket.io-client does not reconnect.
		return Decoded{Close: true, Final: true}
	case sioConnectError:
		var reason struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &reason)
		return Decoded{Err: fmt.Errorf("socket.io connect error: %s", reason.Message), Close: true}
	case sioEvent:
		body = bytes.TrimLeft(body, "0123456789")
		var args []json.RawMessage
		if err := json.Unmarshal(body, &args); err != nil || len(args) == 0 {
			return Decoded{Err: errors.New("bad socket.io event packet")}
		}
		var name string
		if err := json.Unmarshal(args[0], &name); err != nil {
			return Decoded{Err: errors.New("socket.io event without a name")}
		}
		ev := &Event{Kind: EventKind(name)}
		if len(args) > 1 {
			ev.Data = args[1]
		}
		return Decoded{Event: ev}
	}
	return Decoded{}
}

// stripNamespace drops a leading "/nsp," from a Socket.IO packet body.
func stripNamespace(body []byte) []byte {
	if len(body) == 0 || body[0] != '/' {
		return body
	}
	if i := bytes.IndexByte(body, ','); i >= 0 {
		return body[i+1:]
	}
	return nil
}

func (SocketIOCodec) Encode(kind EventKind, data interface{}) ([]byte, error) {
	args, err := json.Marshal([]interface{}{kind, data})
	if err != nil {
		return nil, err
	}
	return append([]byte{eioMessage, sioEvent}, args...), nil
}

// JSONCodec frames every message as {"event": ..., "data": ...}.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) URL(base string) (string, error) {
	u, err := websocketURL(base)
	if err != nil {
		return "", err
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

func (JSONCodec) ReadyOnDial() bool { return true }

func (JSONCodec) Decode(frame []byte) Decoded {
	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		return Decoded{Err: fmt.Errorf("bad json frame: %w", err)}
	}
	if ev.Kind == "" {
		return Decoded{}
	}
	return Decoded{Event: &ev}
}

func (JSONCodec) Encode(kind EventKind, data interface{}) ([]byte, error) {
	return json.Marshal(struct {
		Event EventKind   `json:"event"`
		Data  interface{} `json:"data"`
	}{kind, data})
}
