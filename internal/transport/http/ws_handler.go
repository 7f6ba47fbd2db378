package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"bible-quiz-service/internal/app"
	apperrors "bible-quiz-service/internal/errors"
)

const (
	msgSnapshot         = "snapshot"
	msgNarration        = "narration"
	msgNarrationStopped = "narrationStopped"
	msgCooldown         = "cooldown"
	msgResult           = "result"
	msgError            = "error"
)

type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type narrationPayload struct {
	Version  int64  `json:"version"`
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Audio    []byte `json:"audio,omitempty"` // base64 in JSON
	MimeType string `json:"mimeType,omitempty"`
}

type cooldownPayload struct {
	Seconds int `json:"seconds"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades the request and streams session snapshots and narration.
// Clients may also send commands over the socket; each command is answered
// with a result or error message, and the state change arrives as a snapshot.
func (h *WSHandler) ServeWS(c *gin.Context) {
	session, err := h.service.Session(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "ws: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	snapshots, unsubscribe := session.Subscribe()
	defer unsubscribe()
	narration, leave := h.hub.join(session.ID())
	defer leave()

	send := make(chan message, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	forwardDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("ws: write failed", "session", session.ID(), "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(forwardDone)
		for {
			var msg message
			select {
			case snap, ok := <-snapshots:
				if !ok {
					// Session removed: ask the client to hang up.
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
						time.Now().Add(time.Second))
					return
				}
				msg = message{Type: msgSnapshot, Payload: snap}
			case n, ok := <-narration:
				if !ok {
					return
				}
				msg = n
			case <-closeSignals:
				return
			}
			select {
			case send <- msg:
			case <-closeSignals:
				return
			}
		}
	}()

	ctx := c.Request.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		result, err := dispatch(ctx, session, inbound)
		reply := message{Type: msgResult, Payload: result}
		if err != nil {
			e := apperrors.Convert(err)
			reply = message{Type: msgError, Payload: errorPayload{Code: e.Code.String(), Message: e.Message}}
		}
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-forwardDone
	close(send)
	<-writerDone
}

type commandPayload struct {
	Option *int   `json:"option"`
	Text   string `json:"text"`
	Query  string `json:"query"`
	Index  *int   `json:"index"`
}

// dispatch runs one socket command against session. Generation stays on the
// HTTP API because it needs the archive.
func dispatch(ctx context.Context, session *app.Session, in inboundMessage) (any, error) {
	var p commandPayload
	if len(in.Payload) > 0 {
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithMessagef("invalid payload: %v", err))
		}
	}

	switch in.Type {
	case "select":
		if p.Option == nil {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithMessagef("option is required"))
		}
		return nil, session.SelectOption(ctx, *p.Option)
	case "confirm":
		return nil, session.Confirm(ctx)
	case "answer":
		return session.SubmitText(ctx, p.Text)
	case "next":
		return nil, session.Next(ctx)
	case "nextRound":
		return nil, session.NextRound(ctx)
	case "hint":
		hint, err := session.RevealHint(ctx)
		return gin.H{"hint": hint}, err
	case "ask":
		answer, err := session.AskAI(ctx, p.Query)
		return gin.H{"answer": answer}, err
	case "skip":
		return nil, session.Skip(ctx)
	case "replace":
		if p.Index == nil {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithMessagef("index is required"))
		}
		return nil, session.Replace(ctx, *p.Index)
	case "review":
		return nil, session.EnterReview(ctx)
	case "reviewNext":
		return nil, session.ReviewNext(ctx)
	case "reviewPrev":
		return nil, session.ReviewPrev(ctx)
	case "reviewClose":
		return nil, session.CloseReview(ctx)
	case "cancelCooldown":
		session.CancelCooldown(ctx)
		return nil, nil
	case "dismissError":
		session.DismissError(ctx)
		return nil, nil
	}
	return nil, apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithMessagef("unsupported message type %q", in.Type))
}
