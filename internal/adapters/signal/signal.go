package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Proctor/internal/app/orch"
	"github.com/dkeye/Proctor/internal/core"
	"github.com/dkeye/Proctor/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Options struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
	SendBuffer   int
	RateLimit    int
	RateInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.PongWait <= o.PingPeriod {
		o.PongWait = o.PingPeriod * 10 / 9
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 50
	}
	if o.RateInterval <= 0 {
		o.RateInterval = time.Second
	}
	return o
}

type SignalWSController struct {
	Orch    *orch.Orchestrator
	opts    Options
	limiter *RateLimiter
}

func NewSignalWSController(o *orch.Orchestrator, opts Options) *SignalWSController {
	opts = opts.withDefaults()
	return &SignalWSController{
		Orch:    o,
		opts:    opts,
		limiter: NewRateLimiter(opts.RateLimit, opts.RateInterval),
	}
}

// WsSignalConn implements core.SignalConnection over a WebSocket. Only the
// write pump writes to the socket.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request. The handshake may carry the room as
// ?sessionId= (or ?interviewId=) and &role=host|candidate.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	connID := domain.ConnID(uuid.NewString())
	hs := orch.Handshake{
		SessionID: c.Query("sessionId"),
		Role:      c.Query("role"),
	}
	if hs.SessionID == "" {
		hs.SessionID = c.Query("interviewId")
	}
	log.Info().Str("module", "signal").Str("conn", string(connID)).Str("sid", hs.SessionID).Str("role", hs.Role).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.opts.ReadLimit)

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}

	meta := domain.NewMember(connID, c.GetString("client_token"))
	sess := core.NewMemberSession(meta, conn)
	ctx, cancel := context.WithCancel(ctx)

	// Pumps start first so the join notification and the connected frame
	// queue behind nothing.
	go ctl.writePump(ctx, connID, conn)
	joined := ctl.Orch.Connect(connID, sess, cancel, hs)

	resp := connectedData{ConnectionID: connID, Joined: joined}
	if room, s, ok := ctl.Orch.Registry.RoomOf(connID); ok {
		resp.SessionID = room
		resp.Role = s.Meta().Role
	}
	ctl.sendJSON(conn, "connected", resp)

	go ctl.readPump(ctx, cancel, connID, conn)
}

type connectedData struct {
	ConnectionID domain.ConnID    `json:"connectionId"`
	SessionID    domain.SessionID `json:"sessionId,omitempty"`
	Role         domain.Role      `json:"role,omitempty"`
	Joined       bool             `json:"joined"`
}
