package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"learn-and-earn/internal/metrics"
	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

const (
	MessageBalanceUpdate = "BALANCE_UPDATE"
	MessagePing          = "PING"
	MessagePong          = "PONG"

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes wallet changes to every open connection of an
// account. It satisfies services.Broadcaster.
type WebSocketHandler struct {
	store   *services.RedisService
	hub     *WebSocketHub
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type WebSocketHub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	logger     *slog.Logger
}

type Client struct {
	Email string
	Conn  *websocket.Conn
	mu    sync.Mutex
}

func (cl *Client) write(msg *Message) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return cl.Conn.WriteJSON(msg)
}

type Message struct {
	Type  string      `json:"type"`
	Email string      `json:"email,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

func NewWebSocketHandler(store *services.RedisService, m *metrics.Metrics, logger *slog.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		done:       make(chan struct{}),
		logger:     logger,
	}

	go hub.run()

	return &WebSocketHandler{
		store:   store,
		hub:     hub,
		metrics: m,
		logger:  logger,
	}
}

// Close stops the hub loop.
func (h *WebSocketHandler) Close() {
	close(h.hub.done)
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	email := currentEmail(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket", slog.Any("error", err))
		return
	}

	client := &Client{Email: email, Conn: conn}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}
	h.metrics.ClientConnected()

	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		h.metrics.ClientDisconnected()
		conn.Close()
	}()

	if wallet, err := h.store.Wallet(c.Request.Context(), email); err == nil {
		client.write(&Message{Type: MessageBalanceUpdate, Email: email, Data: wallet})
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket closed", slog.String("email", email), slog.Any("error", err))
			}
			return
		}

		if msg.Type == MessagePing {
			client.write(&Message{Type: MessagePong, Data: gin.H{"timestamp": time.Now().Unix()}})
		}
	}
}

func (h *WebSocketHandler) BroadcastBalance(update models.BalanceUpdate) {
	msg := &Message{Type: MessageBalanceUpdate, Email: update.Email, Data: update}

	select {
	case h.hub.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full", slog.String("email", update.Email))
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			conns, ok := hub.clients[client.Email]
			if !ok {
				conns = make(map[*Client]struct{})
				hub.clients[client.Email] = conns
			}
			conns[client] = struct{}{}
			hub.logger.Debug("websocket client registered", slog.String("email", client.Email))

		case client := <-hub.unregister:
			if conns, ok := hub.clients[client.Email]; ok {
				delete(conns, client)
				if len(conns) == 0 {
					delete(hub.clients, client.Email)
				}
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)

		case <-hub.done:
			return
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	for client := range hub.clients[message.Email] {
		if err := client.write(message); err != nil {
			hub.logger.Debug("websocket write failed", slog.String("email", client.Email), slog.Any("error", err))
		}
	}
}
