package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 5 * time.Second

func (ctl *LobbyWSController) writePump(ctx context.Context, c *wsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case m, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(m.messageType, m.data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				c.Close()
				return
			}
		}
	}
}

func (ctl *LobbyWSController) readPump(ctx context.Context, cancel context.CancelFunc, client *lobbyClient, c *wsSignalConn) {
	defer func() {
		client.logger.Info().Msg("readPump closing")
		cancel()
		ctl.unmount(client)
		ctl.retries.Forget(client.sid)
		c.Close()
	}()

	if ctl.opts.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.opts.ReadLimit)
	}
	pongWait := ctl.opts.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			client.logger.Info().Msg("readPump ctx done")
			return
		default:
			mt, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					client.logger.Error().Err(err).Msg("readPump read error")
				}
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			ctl.handleMessage(client, data)
		}
	}
}

func (ctl *LobbyWSController) handleMessage(client *lobbyClient, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		client.logger.Error().Err(err).Msg("bad json")
		ctl.sendError(client, ErrBadPayload)
		return
	}

	if env.Type == "ping" {
		ctl.handlePing(client)
		return
	}
	if !ctl.current(client) {
		ctl.sendError(client, ErrSessionReplaced)
		client.conn.Close()
		return
	}

	switch env.Type {
	case "ready":
		ctl.handleReady(client)
	case "rename":
		ctl.handleRename(client, data)
	case "retry":
		ctl.handleRetry(client)
	case "join":
		ctl.handleJoin(client, data)
	case "leave":
		ctl.handleLeave(client)
	case "state":
		ctl.pushState(client)
	default:
		client.logger.Warn().Str("type", env.Type).Msg("unknown message")
		ctl.sendError(client, ErrUnknownType)
	}
}

// current reports whether the client's session is still the one mounted
// for its token; a newer connection with the same token replaces it.
func (ctl *LobbyWSController) current(client *lobbyClient) bool {
	e, ok := ctl.Orch.Registry.Get(client.sid)
	return ok && e.Session == client.session()
}

func (ctl *LobbyWSController) sendJSON(client *lobbyClient, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		client.logger.Error().Err(err).Msg("sendJSON marshal")
		return
	}
	if err := client.conn.TrySend(b); err != nil {
		client.logger.Debug().Err(err).Msg("sendJSON dropped")
	}
}
