package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mkravets/inventory-tracker/internal/gesture"
	"github.com/mkravets/inventory-tracker/internal/model"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// WebSocketHandler runs interactive sessions: inbound gesture events
// drive the press recognizer (short press = quick add, long press =
// edit open), and recipe requests stream chunk frames back as the
// model produces them.
type WebSocketHandler struct {
	upgrader       websocket.Upgrader
	inv            Inventory
	assistant      Assistant
	longPressDelay time.Duration
	logger         *zap.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// wsClient is one connected session. All outbound frames funnel through
// send so gesture callbacks, recipe chunks, and snapshot pushes never
// write the socket concurrently.
type wsClient struct {
	conn     *websocket.Conn
	send     chan model.WSMessage
	cancel   context.CancelFunc
	gestures *gesture.Recognizer
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(inv Inventory, assistant Assistant, longPressDelay time.Duration, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true // Browser clients connect from any origin.
			},
		},
		inv:            inv,
		assistant:      assistant,
		longPressDelay: longPressDelay,
		logger:         logger,
		clients:        make(map[*wsClient]struct{}),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
}

// HandleWebSocket handles WebSocket connection requests.
//
//nolint:contextcheck // intentional: WebSocket connections outlive the HTTP request context
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	// The session outlives the HTTP upgrade request, so it runs on a
	// background context canceled when either pump exits.
	ctx, cancel := context.WithCancel(context.Background())

	client := &wsClient{
		conn:   conn,
		send:   make(chan model.WSMessage, sendBuffer),
		cancel: cancel,
	}
	client.gestures = gesture.NewRecognizer(h.longPressDelay, func(target string) {
		h.longPressFired(client, target)
	})

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("websocket client connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	go h.writePump(ctx, client)
	go h.readPump(ctx, client)
}

// readPump consumes inbound frames and dispatches gesture and recipe
// events.
func (h *WebSocketHandler) readPump(ctx context.Context, client *wsClient) {
	defer func() {
		client.cancel()
		h.removeClient(client)
		if err := client.conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	client.conn.SetReadLimit(maxMessageSize)
	if err := client.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg model.WSMessage
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		h.dispatch(ctx, client, msg)
	}
}

// dispatch routes one inbound message.
func (h *WebSocketHandler) dispatch(ctx context.Context, client *wsClient, msg model.WSMessage) {
	switch msg.Type {
	case model.WSTypePressStart:
		client.gestures.PressStart(msg.Name)

	case model.WSTypePressEnd:
		// A release that beat the timer is a short interaction, bound
		// here to the quick-add action.
		if client.gestures.PressEnd(msg.Name) {
			h.quickAdd(ctx, client, msg.Name)
		}

	case model.WSTypePressLeave:
		client.gestures.Cancel(msg.Name)

	case model.WSTypeRecipes:
		go h.streamRecipes(ctx, client)

	default:
		h.logger.Debug("unknown websocket message type", zap.String("type", msg.Type))
	}
}

// quickAdd performs the short-press add and pushes the refreshed
// snapshot.
func (h *WebSocketHandler) quickAdd(ctx context.Context, client *wsClient, name string) {
	if err := h.inv.Add(ctx, name, nil); err != nil {
		h.logger.Error("quick add failed", zap.String("name", name), zap.Error(err))
		h.push(client, errorMessage("quick add failed"))
		return
	}

	ack := model.NewWSMessage(model.WSTypeQuickAdd)
	ack.Name = name
	h.push(client, ack)
	h.pushSnapshot(client)
}

// longPressFired runs when a press is held past the delay: the session
// is told to open the edit flow for the target item.
func (h *WebSocketHandler) longPressFired(client *wsClient, target string) {
	msg := model.NewWSMessage(model.WSTypeEditOpen)
	msg.Name = target
	h.push(client, msg)
}

// streamRecipes feeds the latest snapshot through the recipe pipeline,
// forwarding chunks as they arrive. On failure the client keeps its
// previous recipe text; superseded streams end silently.
func (h *WebSocketHandler) streamRecipes(ctx context.Context, client *wsClient) {
	if !h.assistant.Configured() {
		h.push(client, errorMessage("generative model not configured"))
		return
	}

	text, err := h.assistant.StreamRecipes(ctx, h.inv.ItemNames(), func(chunk string) {
		msg := model.NewWSMessage(model.WSTypeRecipeChunk)
		msg.Text = chunk
		h.push(client, msg)
	})
	if err != nil {
		h.logger.Warn("recipe stream failed", zap.Error(err))
		return
	}

	done := model.NewWSMessage(model.WSTypeRecipeDone)
	done.Text = text
	h.push(client, done)
}

// pushSnapshot sends the cached snapshot to one client.
func (h *WebSocketHandler) pushSnapshot(client *wsClient) {
	msg := model.NewWSMessage(model.WSTypeSnapshot)
	msg.Items = h.inv.Snapshot()
	h.push(client, msg)
}

// push queues an outbound frame, dropping it when the client cannot
// keep up.
func (h *WebSocketHandler) push(client *wsClient, msg model.WSMessage) {
	select {
	case client.send <- msg:
	default:
		h.logger.Warn("dropping frame for slow websocket client",
			zap.String("type", msg.Type),
		)
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings.
func (h *WebSocketHandler) writePump(ctx context.Context, client *wsClient) {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.sendCloseMessage(client.conn)
			return
		case msg := <-client.send:
			if err := client.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				h.logger.Debug("failed to write frame", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := client.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// sendCloseMessage sends a close message to the connection.
func (h *WebSocketHandler) sendCloseMessage(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

// removeClient removes a client from the clients map.
func (h *WebSocketHandler) removeClient(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.clients[client]; exists {
		client.cancel()
		delete(h.clients, client)
		h.logger.Info("websocket client disconnected",
			zap.String("remote_addr", client.conn.RemoteAddr().String()),
		)
	}
}

// CloseAllConnections closes all active WebSocket connections.
func (h *WebSocketHandler) CloseAllConnections() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	// Cancel first so each writePump sends its close frame.
	for _, client := range clients {
		client.cancel()
	}

	time.Sleep(100 * time.Millisecond)

	h.mu.Lock()
	for client := range h.clients {
		if err := client.conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		delete(h.clients, client)
	}
	h.mu.Unlock()

	h.logger.Info("all websocket connections closed")
}

// errorMessage builds an outbound error frame.
func errorMessage(text string) model.WSMessage {
	msg := model.NewWSMessage(model.WSTypeError)
	msg.Text = text
	return msg
}
