package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = time.Second

	writeWait   = 10 * time.Second
	eventBuffer = 64
)

var (
	ErrClosed             = errors.New("realtime channel closed")
	ErrIncompleteIdentity = errors.New("realtime channel needs both restaurant and table identity")
	ErrAlreadyStarted     = errors.New("realtime channel already started")
	ErrServerDisconnect   = errors.New("server ended the realtime session")

	errServerClosed = errors.New("server closed the connection")
)

type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusExhausted    Status = "exhausted"
	StatusClosed       Status = "closed"
)

type Handler func(Event)

type Options struct {
	// URL is the socket origin, e.g. https://api.example.com.
	URL   string
	Codec Codec
	Room  Room
	// MaxAttempts is the number of reconnects after the first try. Zero
	// means DefaultMaxAttempts.
	MaxAttempts int
	RetryDelay  time.Duration
	Dialer      *websocket.Dialer
	Header      http.Header
	OnStatus    func(Status)
}

type subscription struct {
	id      uint64
	handler Handler
}

// Channel is the one persistent connection to the backend push service. It
// joins the table room on every (re)connect and dispatches events in arrival
// order on a single goroutine. After MaxAttempts failed reconnects it stops
// and stays silent.
type Channel struct {
	opts Options
	url  string

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}

	mu       sync.Mutex
	conn     *websocket.Conn
	status   Status
	started  bool
	closed   bool
	nextID   uint64
	handlers map[EventKind][]subscription

	writeMu sync.Mutex
}

// New validates opts. It refuses a room without a table identity, so a
// connection is never attempted with a partial identity.
func New(opts Options) (*Channel, error) {
	if opts.Room.Type == "" || opts.Room.TableID.IsZero() {
		return nil, ErrIncompleteIdentity
	}
	if opts.Codec == nil {
		opts.Codec = SocketIOCodec{}
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		}
	}
	u, err := opts.Codec.URL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("realtime url: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Channel{
		opts:     opts,
		url:      u,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
		status:   StatusIdle,
		handlers: make(map[EventKind][]subscription),
	}, nil
}

// On registers h for kind and returns a function that removes it.
func (c *Channel) On(kind EventKind, h Handler) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers[kind] = append(c.handlers[kind], subscription{id: id, handler: h})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			subs := c.handlers[kind]
			for i, s := range subs {
				if s.id == id {
					c.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Start connects in the background. Cancelling parent has the same effect
// as Close.
func (c *Channel) Start(parent context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	stop := context.AfterFunc(parent, c.Close)
	go func() {
		<-c.done
		stop()
	}()
	go c.run()
	go c.dispatch()
	return nil
}

// Close disconnects and stops reconnecting. It does not wait for the
// goroutines to finish, so it may be called from an event handler; use Done
// to wait.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
	c.setStatus(StatusClosed)
	if !started {
		close(c.done)
	}
}

// Done is closed once the channel has stopped for good, after Close or when
// reconnects are exhausted.
func (c *Channel) Done() <-chan struct{} { return c.done }

func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Channel) setStatus(s Status) {
	c.mu.Lock()
	if c.status == s || (c.status == StatusClosed && s != StatusClosed) {
		c.mu.Unlock()
		return
	}
	c.status = s
	cb := c.opts.OnStatus
	c.mu.Unlock()

	if cb != nil {
		cb(s)
	}
}

func (c *Channel) run() {
	defer close(c.events)

	log := utils.InfoLogger.WithField("room", c.opts.Room.TableID.String())
	failures := 0
	for {
		if c.ctx.Err() != nil {
			return
		}
		if failures == 0 {
			c.setStatus(StatusConnecting)
		} else {
			c.setStatus(StatusReconnecting)
		}

		joined, err := c.connect()
		if c.ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrServerDisconnect) {
			log.Info("Realtime session ended by the server, not reconnecting")
			c.setStatus(StatusExhausted)
			return
		}
		if joined {
			failures = 0
		}
		failures++
		if failures > c.opts.MaxAttempts {
			utils.ErrorLogger.Printf("Realtime channel gave up after %d attempts: %v", failures, err)
			c.setStatus(StatusExhausted)
			return
		}
		log.Infof("Realtime connection lost (%v), retry %d/%d in %s", err, failures, c.opts.MaxAttempts, c.opts.RetryDelay)
		c.setStatus(StatusReconnecting)

		timer := time.NewTimer(c.opts.RetryDelay)
		select {
		case <-timer.C:
		case <-c.ctx.Done():
			timer.Stop()
			return
		}
	}
}

// connect runs one connection until it drops. joined reports whether the
// room was joined on it.
func (c *Channel) connect() (joined bool, err error) {
	conn, _, err := c.opts.Dialer.DialContext(c.ctx, c.url, c.opts.Header)
	if err != nil {
		return false, err
	}
	if !c.attach(conn) {
		conn.Close()
		return false, ErrClosed
	}
	defer c.detach(conn)

	stop := context.AfterFunc(c.ctx, func() { conn.Close() })
	defer stop()

	if c.opts.Codec.ReadyOnDial() {
		if err := c.join(conn); err != nil {
			return false, err
		}
		joined = true
	}

	var heartbeat time.Duration
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return joined, err
		}

		d := c.opts.Codec.Decode(frame)
		if d.Heartbeat > 0 {
			heartbeat = d.Heartbeat
		}
		if heartbeat > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(heartbeat))
		}
		for _, reply := range d.Replies {
			if err := c.write(conn, reply); err != nil {
				return joined, err
			}
		}
		if d.Err != nil {
			utils.ErrorLogger.Printf("Realtime frame error: %v", d.Err)
		}
		if d.Final {
			return joined, ErrServerDisconnect
		}
		if d.Close {
			if d.Err != nil {
				return joined, d.Err
			}
			return joined, errServerClosed
		}
		if d.Ready && !joined {
			if err := c.join(conn); err != nil {
				return joined, err
			}
			joined = true
		}
		if d.Event != nil {
			select {
			case c.events <- *d.Event:
			case <-c.ctx.Done():
				return joined, ErrClosed
			}
		}
	}
}

func (c *Channel) join(conn *websocket.Conn) error {
	frame, err := c.opts.Codec.Encode(EventJoinRoom, c.opts.Room)
	if err != nil {
		return err
	}
	if err := c.write(conn, frame); err != nil {
		return err
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"type":    c.opts.Room.Type,
		"tableId": c.opts.Room.TableID.String(),
	}).Info("Joined realtime room")
	c.setStatus(StatusConnected)
	return nil
}

func (c *Channel) write(conn *websocket.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *Channel) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	return true
}

func (c *Channel) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

func (c *Channel) dispatch() {
	defer close(c.done)
	for ev := range c.events {
		if c.ctx.Err() != nil {
			continue
		}
		for _, h := range c.subscribers(ev.Kind) {
			c.deliver(h, ev)
		}
	}
}

func (c *Channel) subscribers(kind EventKind) []Handler {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := c.handlers[kind]
	out := make([]Handler, len(subs))
	for i, s := range subs {
		out[i] = s.handler
	}
	return out
}

func (c *Channel) deliver(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			utils.ErrorLogger.Printf("Realtime handler for %s panicked: %v", ev.Kind, r)
		}
	}()
	h(ev)
}
