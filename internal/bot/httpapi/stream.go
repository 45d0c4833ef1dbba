package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ccheshirecat/rollerbot/internal/bot/events"
)

const streamBuffer = 32

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (api *apiServer) streamEvents(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()
	eventsCh := make(chan any, streamBuffer)
	unsubscribe, err := api.bus.Subscribe(events.TopicBotEvents, eventsCh)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to subscribe"})
		return
	}
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := c.Writer.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case payload := <-eventsCh:
			evt, ok := payload.(events.BotEvent)
			if !ok {
				continue
			}
			data, err := json.Marshal(evt)
			if err != nil {
				api.logger.Error("marshal bot event", "error", err)
				continue
			}
			if _, err := c.Writer.Write([]byte("event: " + evt.Type + "\n")); err != nil {
				return
			}
			if _, err := c.Writer.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (api *apiServer) eventsWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		api.logger.Error("events ws upgrade", "error", err)
		return
	}
	defer conn.Close()

	eventsCh := make(chan any, streamBuffer)
	unsubscribe, err := api.bus.Subscribe(events.TopicBotEvents, eventsCh)
	if err != nil {
		api.logger.Error("events ws subscribe", "error", err)
		return
	}
	defer unsubscribe()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		// Reading is required to notice the peer closing the socket.
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-eventsCh:
			evt, ok := payload.(events.BotEvent)
			if !ok {
				continue
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}
