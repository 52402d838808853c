package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 15 * time.Second

type activityEventPayload struct {
	TripID    string   `json:"tripId"`
	ItemIDs   []string `json:"itemIds"`
	ActorID   string   `json:"actorId"`
	Source    string   `json:"source"`
	Timestamp string   `json:"timestamp"`
}

// handleTripEvents streams itinerary activity for one trip over SSE.
// Presence of collaborators is derived client-side from these events; the
// server only fans out the change feed.
func (h *httpHandler) handleTripEvents(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming_unsupported"})
		return
	}

	tripID := c.Param("tripID")
	stream, cancel := h.realtime.Subscribe(c.Request.Context(), tripID)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			writeSSEComment(c, activityEventHeartbeat)
			flusher.Flush()
		case message, open := <-stream:
			if !open {
				return
			}
			payload := activityEventPayload{
				TripID:    message.TripID,
				ItemIDs:   message.ItemIDs,
				ActorID:   message.ActorID,
				Source:    activitySourceBackend,
				Timestamp: message.Timestamp.UTC().Format(time.RFC3339),
			}
			encoded, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			writeSSEEvent(c, message.EventType, encoded)
			flusher.Flush()
		}
	}
}

func writeSSEEvent(c *gin.Context, eventType string, data []byte) {
	_, _ = c.Writer.WriteString("event: " + eventType + "\n")
	_, _ = c.Writer.WriteString("data: " + string(data) + "\n\n")
}

func writeSSEComment(c *gin.Context, comment string) {
	_, _ = c.Writer.WriteString(": " + comment + "\n\n")
}
