package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dkeye/Proctor/internal/app"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// InterviewHandler is the REST shim over the session lifecycle.
type InterviewHandler struct {
	Sessions  *app.SessionController
	Registry  *app.Registry
	// BodyLimit caps request bodies; the same bound as a real-time frame.
	BodyLimit int64
}

const defaultBodyLimit = 32768

func (h *InterviewHandler) Register(api *gin.RouterGroup) {
	iv := api.Group("/interviews", h.limitBody())
	iv.POST("", h.create)
	iv.GET("", h.list)
	iv.GET("/:id", h.get)
	iv.DELETE("/:id", h.delete)
	iv.POST("/:id/start", h.start)
	iv.POST("/:id/end", h.end)
	iv.POST("/:id/join", h.join)
	iv.POST("/:id/violation", h.logViolation)
	iv.GET("/:id/events", h.events)

	api.GET("/rooms", h.rooms)
	api.GET("/rooms/:id/members", h.roomMembers)
}

type createInterviewRequest struct {
	Title         string `json:"title" binding:"required"`
	CandidateName string `json:"candidateName" binding:"required"`
	HostID        string `json:"hostId" binding:"required"`
	MeetLink      string `json:"meetLink"`
}

type joinInterviewRequest struct {
	CandidateName  string `json:"candidateName" binding:"required"`
	CandidateEmail string `json:"candidateEmail" binding:"omitempty,email"`
}

type violationRequest struct {
	Type     string          `json:"type" binding:"required,max=64"`
	Severity string          `json:"severity" binding:"max=32"`
	Meta     json.RawMessage `json:"meta"`
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		notFound(c)
	case errors.Is(err, domain.ErrSessionCompleted):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, domain.ErrTitleEmpty), errors.Is(err, domain.ErrTitleTooLong),
		errors.Is(err, domain.ErrNameEmpty), errors.Is(err, domain.ErrNameTooLong),
		errors.Is(err, domain.ErrHostEmpty), errors.Is(err, domain.ErrEventTypeEmpty),
		errors.Is(err, domain.ErrEventTypeTooLong), errors.Is(err, domain.ErrSeverityTooLong):
		badRequest(c, err.Error())
	default:
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
	}
}

func (h *InterviewHandler) limitBody() gin.HandlerFunc {
	limit := h.BodyLimit
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// sessionID reads :id; an unusable id can only be "not found".
func sessionID(c *gin.Context) (domain.SessionID, bool) {
	sid, err := domain.ParseSessionID(c.Param("id"))
	if err != nil {
		notFound(c)
		return "", false
	}
	return sid, true
}

func (h *InterviewHandler) create(c *gin.Context) {
	var req createInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "title, candidateName and hostId are required")
		return
	}
	s, err := h.Sessions.Create(c.Request.Context(), domain.NewSession{
		Title:         req.Title,
		CandidateName: req.CandidateName,
		HostID:        req.HostID,
		MeetLink:      req.MeetLink,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *InterviewHandler) list(c *gin.Context) {
	list, err := h.Sessions.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *InterviewHandler) get(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	s, err := h.Sessions.Get(c.Request.Context(), sid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *InterviewHandler) delete(c *gin.Context) {
	sid, err := domain.ParseSessionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	ok, err := h.Sessions.Delete(c.Request.Context(), sid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

func (h *InterviewHandler) start(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	s, err := h.Sessions.Start(c.Request.Context(), sid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *InterviewHandler) end(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	s, err := h.Sessions.End(c.Request.Context(), sid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *InterviewHandler) join(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req joinInterviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "candidateName is required and candidateEmail must be an email")
		return
	}
	s, err := h.Sessions.Join(c.Request.Context(), sid, req.CandidateName, req.CandidateEmail)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *InterviewHandler) logViolation(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req violationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if tooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "body too large"})
			return
		}
		badRequest(c, "type is required (max 64 chars), severity max 32 chars")
		return
	}
	ev, err := h.Sessions.LogEvent(c.Request.Context(), sid, domain.EventInput{
		Type:     req.Type,
		Severity: req.Severity,
		Meta:     req.Meta,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (h *InterviewHandler) events(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	events, err := h.Sessions.Events(c.Request.Context(), sid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *InterviewHandler) rooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Registry.Rooms()})
}

func (h *InterviewHandler) roomMembers(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.Registry.MembersOfRoom(sid))
}
