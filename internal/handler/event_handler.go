package handler

import (
	"io"
	"net/http"
	"time"

	"hasker/backend/internal/hub"
	"hasker/backend/internal/service"

	"github.com/gin-gonic/gin"
)

const heartbeatInterval = 25 * time.Second

// EventHandler streams live question events.
type EventHandler struct {
	hub       *hub.Hub
	questions *service.QuestionService
}

func NewEventHandler(h *hub.Hub, questions *service.QuestionService) *EventHandler {
	return &EventHandler{hub: h, questions: questions}
}

// StreamQuestionEvents godoc
// @Summary      Watch a question
// @Description  Server-sent events for new answers, rating changes and accepted answers of a question. Each message is a JSON object with "type" and "payload".
// @Tags         questions
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id   path      int  true  "Question ID"
// @Success      200  {string}  string "Event stream"
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /questions/{id}/events [get]
func (h *EventHandler) StreamQuestionEvents(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if _, err := h.questions.Get(id); err != nil {
		respondError(c, err)
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	client := h.hub.Subscribe(id)
	defer h.hub.Unsubscribe(id, client)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-client:
			if !ok {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", "")
			return true
		}
	})
}
