package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/thulafunds/crowdfund/services"
	"github.com/thulafunds/crowdfund/utils"
)

const (
	feedWriteWait      = 5 * time.Second
	feedCleanupPeriod  = 30 * time.Second
	feedInitialItems   = 50
	feedBroadcastQueue = 64
)

// InitialFeedFunc loads the snapshot a new client receives
type InitialFeedFunc func(ctx context.Context, limit int) ([]services.FeedItem, error)

type feedClient struct {
	id   string
	conn *websocket.Conn
}

// Hub fans contributions out to every connected WebSocket client
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*feedClient]bool
	broadcast  chan []byte
	register   chan *feedClient
	unregister chan *feedClient
	done       chan struct{}
	mutex      sync.Mutex
	initial    InitialFeedFunc
}

// NewHub creates a hub; initial supplies the feed sent to new clients
func NewHub(initial InitialFeedFunc) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan []byte, feedBroadcastQueue),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		done:       make(chan struct{}),
		initial:    initial,
	}
}

// Run owns the client set until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	log.Info().Msg("live feed hub started")
	defer close(h.done)

	cleanupTicker := time.NewTicker(feedCleanupPeriod)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.conn.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			feedClients.Set(0)
			log.Info().Msg("live feed hub stopped")
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			feedClients.Set(float64(count))
			log.Debug().Str("client", client.id).Int("clients", count).Msg("feed client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.conn.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			feedClients.Set(float64(count))
			log.Debug().Str("client", client.id).Int("clients", count).Msg("feed client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			failed := 0
			for client := range h.clients {
				client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
				if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Debug().Err(err).Str("client", client.id).Msg("feed broadcast failed")
					client.conn.Close()
					delete(h.clients, client)
					failed++
				}
			}
			count := len(h.clients)
			h.mutex.Unlock()
			feedClients.Set(float64(count))
			if failed > 0 {
				log.Info().Int("failed", failed).Int("clients", count).Msg("dropped feed clients during broadcast")
			}

		case <-cleanupTicker.C:
			h.cleanupInvalidConnections()
		}
	}
}

// cleanupInvalidConnections pings every client and drops the dead ones
func (h *Hub) cleanupInvalidConnections() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	total := len(h.clients)
	invalid := 0
	for client := range h.clients {
		if err := client.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
			client.conn.Close()
			delete(h.clients, client)
			invalid++
		}
	}
	if invalid > 0 {
		log.Info().Int("invalid", invalid).Int("before", total).Int("after", len(h.clients)).
			Msg("cleaned up feed connections")
	}
	feedClients.Set(float64(len(h.clients)))
}

// ClientCount is the number of registered clients
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) sendInitialData(ctx context.Context, conn *websocket.Conn) error {
	items := []services.FeedItem{}
	if h.initial != nil {
		loaded, err := h.initial(ctx, feedInitialItems)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load initial feed")
		} else {
			items = loaded
		}
	}

	message, err := json.Marshal(map[string]interface{}{
		"type":          "initial_data",
		"contributions": items,
		"timestamp":     time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	return conn.WriteMessage(websocket.TextMessage, message)
}

// ServeWS upgrades the request and keeps reading until the client goes away
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
	err = h.sendInitialData(ctx, conn)
	cancel()
	if err != nil {
		log.Debug().Err(err).Msg("failed to send initial feed")
		conn.Close()
		return
	}

	client := &feedClient{id: utils.GenerateConnID(), conn: conn}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("websocket read error")
			}
			break
		}
	}

	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// PublishContribution queues a new_contribution message. It never blocks the caller.
func (h *Hub) PublishContribution(item services.FeedItem) {
	data, err := json.Marshal(map[string]interface{}{
		"type":         "new_contribution",
		"contribution": item,
		"timestamp":    time.Now().Unix(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to encode contribution for feed")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Warn().Str("contribution_id", item.ID).Msg("feed queue full, dropping message")
	}
}
