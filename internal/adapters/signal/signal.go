package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/lobby/internal/adapters/preview"
	"github.com/dkeye/lobby/internal/app/orch"
	"github.com/dkeye/lobby/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type Options struct {
	Preview        preview.Config
	ReadLimit      int64
	PingPeriod     time.Duration
	SendBuffer     int
	RenameDebounce time.Duration
	RetryLimit     int
	RetryWindow    time.Duration
}

// LobbyWSController serves one lobby session per websocket connection:
// the connection is the mount, its end is the unmount.
type LobbyWSController struct {
	Orch    *orch.Orchestrator
	opts    Options
	retries *RetryLimiter
}

func NewLobbyWSController(o *orch.Orchestrator, opts Options) *LobbyWSController {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.RetryLimit <= 0 {
		opts.RetryLimit = 3
	}
	if opts.RetryWindow <= 0 {
		opts.RetryWindow = 10 * time.Second
	}
	return &LobbyWSController{
		Orch:    o,
		opts:    opts,
		retries: NewRetryLimiter(opts.RetryLimit, opts.RetryWindow),
	}
}

type outbound struct {
	messageType int
	data        core.Frame
}

type wsSignalConn struct {
	conn *websocket.Conn
	send chan outbound

	mu     sync.RWMutex
	closed bool
}

func newWSSignalConn(ws *websocket.Conn, buffer int) *wsSignalConn {
	return &wsSignalConn{
		conn: ws,
		send: make(chan outbound, buffer),
	}
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	return c.enqueue(websocket.TextMessage, f)
}

func (c *wsSignalConn) TrySendBinary(f core.Frame) error {
	return c.enqueue(websocket.BinaryMessage, f)
}

func (c *wsSignalConn) enqueue(mt int, f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- outbound{messageType: mt, data: f}:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// lobbyClient is the per-connection state. sess and surface change when the
// user leaves a room and the lobby is mounted again.
type lobbyClient struct {
	sid    core.SessionID
	ctx    context.Context
	conn   core.SignalConnection
	logger zerolog.Logger
	push   func(func())

	mu      sync.Mutex
	sess    *core.MediaSession
	surface *preview.Surface
}

func (c *lobbyClient) session() *core.MediaSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

func (c *lobbyClient) remount(sess *core.MediaSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sess = sess
	c.surface = nil
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *LobbyWSController) HandleLobby(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	conn := newWSSignalConn(ws, ctl.opts.SendBuffer)

	ctx, cancel := context.WithCancel(ctx)
	client := ctl.mount(ctx, sid, conn)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, client, conn)
}

func (ctl *LobbyWSController) mount(ctx context.Context, sid core.SessionID, conn core.SignalConnection) *lobbyClient {
	client := &lobbyClient{
		sid:    sid,
		ctx:    ctx,
		conn:   conn,
		logger: log.With().Str("module", "signal").Str("sid", string(sid)).Logger(),
		push:   debounce.New(ctl.opts.RenameDebounce),
		sess:   ctl.Orch.Mount(ctx, sid),
	}
	ctl.pushState(client)
	return client
}

func (ctl *LobbyWSController) unmount(client *lobbyClient) {
	ctl.Orch.Unmount(client.sid, client.session())
	client.logger.Info().Msg("lobby unmounted")
}
