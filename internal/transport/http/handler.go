// Package http exposes quiz sessions over a JSON API and websockets.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bible-quiz-service/internal/app"
	"bible-quiz-service/internal/domain"
	apperrors "bible-quiz-service/internal/errors"
	"bible-quiz-service/internal/preferences"
	"bible-quiz-service/internal/telemetry"
)

// HeaderClientID names the preference owner of a request.
const HeaderClientID = "X-Client-ID"

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Handler struct {
	service *app.QuizService
	ws      *WSHandler
}

func NewHandler(service *app.QuizService, hub *Hub) *Handler {
	return &Handler{service: service, ws: NewWSHandler(service, hub)}
}

// RouterOptions toggles the operational endpoints.
type RouterOptions struct {
	Gatherer prometheus.Gatherer // nil disables /metrics
	Pprof    bool
}

func (h *Handler) Router(opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), telemetry.RequestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}
	if opts.Pprof {
		pprof.Register(r)
	}

	api := r.Group("/api/v1")
	api.GET("/preferences", h.getPreferences)
	api.PUT("/preferences", h.putPreferences)

	api.POST("/sessions", h.createSession)
	s := api.Group("/sessions/:id")
	s.GET("", h.getSession)
	s.DELETE("", h.deleteSession)
	s.GET("/ws", h.ws.ServeWS)
	s.POST("/generate", h.generate)
	s.POST("/restart", h.restart)
	s.POST("/reset", h.reset)
	s.POST("/select", h.selectOption)
	s.POST("/confirm", h.command((*app.Session).Confirm))
	s.POST("/answer", h.answer)
	s.POST("/next", h.command((*app.Session).Next))
	s.POST("/next-round", h.command((*app.Session).NextRound))
	s.POST("/hint", h.hint)
	s.POST("/ask", h.ask)
	s.POST("/skip", h.command((*app.Session).Skip))
	s.POST("/replace/:index", h.replace)
	s.POST("/review", h.command((*app.Session).EnterReview))
	s.POST("/review/next", h.command((*app.Session).ReviewNext))
	s.POST("/review/prev", h.command((*app.Session).ReviewPrev))
	s.POST("/review/close", h.command((*app.Session).CloseReview))
	s.POST("/cooldown/cancel", h.command(func(s *app.Session, ctx context.Context) error {
		s.CancelCooldown(ctx)
		return nil
	}))
	s.POST("/error/dismiss", h.command(func(s *app.Session, ctx context.Context) error {
		s.DismissError(ctx)
		return nil
	}))
	return r
}

func writeError(c *gin.Context, err error) {
	e := apperrors.Convert(err)
	status := e.HTTPStatusCode()
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "http: request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: e.Message, Code: e.Code.String()})
}

func badRequest(c *gin.Context, err error) {
	writeError(c, apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithCause(err), apperrors.WithMessagef("%s", err.Error())))
}

func (h *Handler) session(c *gin.Context) (*app.Session, bool) {
	session, err := h.service.Session(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return session, true
}

// command adapts a session mutation into a handler that answers with the new snapshot.
func (h *Handler) command(fn func(*app.Session, context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := h.session(c)
		if !ok {
			return
		}
		if err := fn(session, c.Request.Context()); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, session.Snapshot())
	}
}

func (h *Handler) createSession(c *gin.Context) {
	session := h.service.Create(c.Request.Context(), c.GetHeader(HeaderClientID))
	c.JSON(http.StatusCreated, session.Snapshot())
}

func (h *Handler) getSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (h *Handler) deleteSession(c *gin.Context) {
	if _, ok := h.session(c); !ok {
		return
	}
	h.service.Remove(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *Handler) generate(c *gin.Context) {
	var cfg domain.QuizConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.service.Generate(c.Request.Context(), c.Param("id"), cfg); err != nil {
		writeError(c, err)
		return
	}
	h.getSession(c)
}

func (h *Handler) restart(c *gin.Context) {
	if err := h.service.Restart(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	h.getSession(c)
}

func (h *Handler) reset(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Reset(c.Request.Context())
	c.JSON(http.StatusOK, session.Snapshot())
}

type selectRequest struct {
	Option *int `json:"option" binding:"required"`
}

func (h *Handler) selectOption(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.command(func(s *app.Session, ctx context.Context) error {
		return s.SelectOption(ctx, *req.Option)
	})(c)
}

type answerRequest struct {
	Text string `json:"text"`
}

type answerResponse struct {
	Evaluation domain.Evaluation `json:"evaluation"`
	Session    app.Snapshot      `json:"session"`
}

func (h *Handler) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	eval, err := session.SubmitText(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, answerResponse{Evaluation: eval, Session: session.Snapshot()})
}

func (h *Handler) hint(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	hint, err := session.RevealHint(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hint": hint})
}

type askRequest struct {
	Query string `json:"query" binding:"required"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	answer, err := session.AskAI(c.Request.Context(), req.Query)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}

func (h *Handler) replace(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, err)
		return
	}
	h.command(func(s *app.Session, ctx context.Context) error {
		return s.Replace(ctx, index)
	})(c)
}

func (h *Handler) getPreferences(c *gin.Context) {
	settings, err := h.service.Preferences(c.Request.Context(), c.GetHeader(HeaderClientID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) putPreferences(c *gin.Context) {
	clientID := c.GetHeader(HeaderClientID)
	if clientID == "" {
		writeError(c, apperrors.New(apperrors.CodeInvalidArgument, apperrors.WithMessagef("%s header is required", HeaderClientID)))
		return
	}
	var settings preferences.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		badRequest(c, err)
		return
	}
	if err := settings.Validate(); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.service.UpdatePreferences(c.Request.Context(), clientID, settings); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
