package websocket

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin is enforced by CORS on the REST surface; the socket authenticates by token
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub    *Hub
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

type userMessage struct {
	userID  uuid.UUID
	payload []byte
}

// Hub maintains the active clients per user and routes messages to them
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	broadcast  chan []byte
	direct     chan userMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub initializes a new WS Hub instance
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		direct:     make(chan userMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID]map[*Client]bool),
	}
}

// Run starts the core dispatch loop for WebSocket events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected: user=%s", client.UserID)
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for _, set := range h.clients {
				for client := range set {
					h.deliver(client, message)
				}
			}
			h.mu.Unlock()
		case msg := <-h.direct:
			h.mu.Lock()
			for client := range h.clients[msg.userID] {
				h.deliver(client, msg.payload)
			}
			h.mu.Unlock()
		}
	}
}

// deliver drops slow clients; callers hold h.mu
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.UserID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	log.Printf("WebSocket client disconnected: user=%s", client.UserID)
}

// SendToUser queues payload for every connection of userID. It never blocks.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) {
	select {
	case h.direct <- userMessage{userID: userID, payload: payload}:
	default:
		log.Printf("WebSocket direct queue full, dropping message for user=%s", userID)
	}
}

// Broadcast queues payload for every connected client
func (h *Hub) Broadcast(payload []byte) {
	select {
	case h.broadcast <- payload:
	default:
		log.Println("WebSocket broadcast queue full, dropping message")
	}
}

// Connected reports the number of live connections for userID
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// Fast track writing queued messages
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		// Only reading to notice the peer going away
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}
	}
}

// TokenParser resolves a bearer token to the user it was issued for
type TokenParser func(token string) (uuid.UUID, error)

// ServeWs upgrades an authenticated request; the token comes from the
// "token" query parameter because browsers cannot set headers on upgrade.
func ServeWs(hub *Hub, c *gin.Context, parse TokenParser) {
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	userID, err := parse(tokenString)
	if err != nil {
		log.Println("WebSocket connection rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	client := &Client{Hub: hub, UserID: userID, Conn: conn, Send: make(chan []byte, 256)}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
