// Package websocket pushes slot changes to clients watching a doctor's
// calendar so they can refresh before the next poll.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"medbook/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 32
)

type Client struct {
	DoctorID int64
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *SlotHub
}

// SlotHub fans slot events out to the clients subscribed to the event's doctor.
type SlotHub struct {
	clients map[int64]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	events     chan domain.SlotEvent
	done       chan struct{}

	logger *zap.Logger
	mutex  sync.RWMutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func NewSlotHub(logger *zap.Logger) *SlotHub {
	return &SlotHub{
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan domain.SlotEvent, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run dispatches until ctx is done, then disconnects every client.
func (h *SlotHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.Send)
				}
			}
			h.clients = make(map[int64]map[*Client]struct{})
			h.mutex.Unlock()
			return

		case c := <-h.register:
			h.mutex.Lock()
			set, ok := h.clients[c.DoctorID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.DoctorID] = set
			}
			set[c] = struct{}{}
			h.mutex.Unlock()
			h.logger.Debug("slot watcher connected", zap.Int64("doctor_id", c.DoctorID))

		case c := <-h.unregister:
			h.mutex.Lock()
			if set, ok := h.clients[c.DoctorID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.Send)
				}
				if len(set) == 0 {
					delete(h.clients, c.DoctorID)
				}
			}
			h.mutex.Unlock()
			h.logger.Debug("slot watcher disconnected", zap.Int64("doctor_id", c.DoctorID))

		case ev := <-h.events:
			h.dispatch(ev)
		}
	}
}

func (h *SlotHub) dispatch(ev domain.SlotEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal slot event", zap.Error(err))
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients[ev.DoctorID] {
		select {
		case c.Send <- msg:
		default:
			// Slow consumer; it will catch up on its next poll.
			delete(h.clients[ev.DoctorID], c)
			close(c.Send)
		}
	}
}

// Publish queues ev without blocking. Events are dropped when the queue is full.
func (h *SlotHub) Publish(ev domain.SlotEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case h.events <- ev:
	default:
		h.logger.Warn("slot event dropped", zap.String("type", ev.Type), zap.Int64("doctor_id", ev.DoctorID))
	}
}

func (h *SlotHub) Watchers(doctorID int64) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[doctorID])
}

// HandleWebSocket upgrades GET /ws/slots?doctor_id=N.
func (h *SlotHub) HandleWebSocket(c *gin.Context) {
	doctorID, err := strconv.ParseInt(c.Query("doctor_id"), 10, 64)
	if err != nil || doctorID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid doctor_id", "code": http.StatusBadRequest})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		DoctorID: doctorID,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		Hub:      h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only keeps the connection alive; watchers never send payloads.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("slot watcher error", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
