package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

const writeWait = 5 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds the websocket connections of the UI shells running on the device
// and pushes kiosk events to all of them.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> client name
	mutex   sync.Mutex
}

func New() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

// Register adds a connection under a descriptive name (user agent, "shell").
func (h *Hub) Register(conn *websocket.Conn, name string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = name
	utils.InfoLogger.Printf("UI client %q connected (%d total)", name, len(h.clients))
}

// Unregister removes and closes a connection.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast sends an event to every client. Clients that fail the write are
// dropped.
func (h *Hub) Broadcast(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling hub message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	utils.InfoLogger.Debugf("Broadcasting %s to %d clients", event, len(h.clients))
	for conn, name := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.Printf("Error sending %s to client %q: %v", event, name, err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
}
