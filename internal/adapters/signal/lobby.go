package signal

import (
	"encoding/json"

	"github.com/dkeye/lobby/internal/adapters/preview"
	"github.com/dkeye/lobby/internal/app"
	"github.com/dkeye/lobby/internal/core"
	"github.com/dkeye/lobby/internal/domain"
)

type stateMessage struct {
	Type    string          `json:"type"`
	Session core.State      `json:"session"`
	Room    domain.RoomName `json:"room,omitempty"`
}

func (ctl *LobbyWSController) pushState(client *lobbyClient) {
	sess := client.session()
	msg := stateMessage{Type: "state", Session: sess.Snapshot()}
	if e, ok := ctl.Orch.Registry.Get(client.sid); ok && e.Session == sess {
		msg.Room = e.RoomName
	}
	ctl.sendJSON(client, msg)
}

// handleReady is sent by the client each time its preview element renders.
func (ctl *LobbyWSController) handleReady(client *lobbyClient) {
	client.mu.Lock()
	if client.surface == nil {
		client.surface = preview.NewSurface(ctl.opts.Preview, client.conn, string(client.sid))
	}
	surface := client.surface
	sess := client.sess
	client.mu.Unlock()

	if err := ctl.Orch.SurfaceReady(client.sid, surface); err != nil {
		ctl.sendError(client, err)
		return
	}
	ctl.pushState(client)
	go func() {
		sess.Wait()
		if client.session() == sess {
			ctl.pushState(client)
		}
	}()
}

func (ctl *LobbyWSController) handleRename(client *lobbyClient, data []byte) {
	var p struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		client.logger.Error().Err(err).Msg("bad rename payload")
		ctl.sendError(client, ErrBadPayload)
		return
	}
	if err := ctl.Orch.Rename(client.sid, p.Name); err != nil {
		ctl.sendError(client, err)
		return
	}
	// Typing sends a rename per keystroke; only the last one is echoed.
	client.push(func() { ctl.pushState(client) })
}

func (ctl *LobbyWSController) handleRetry(client *lobbyClient) {
	if !ctl.retries.Allow(client.sid) {
		ctl.sendError(client, ErrRateLimited)
		return
	}
	client.logger.Info().Msg("retry acquisition")
	go func() {
		if err := ctl.Orch.Retry(client.ctx, client.sid); err != nil {
			ctl.sendError(client, err)
		}
		ctl.pushState(client)
	}()
}

func (ctl *LobbyWSController) handleJoin(client *lobbyClient, data []byte) {
	var p struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		client.logger.Error().Err(err).Msg("bad join payload")
		ctl.sendError(client, ErrBadPayload)
		return
	}

	name, err := ctl.Orch.Join(client.ctx, client.sid, p.Room)
	if err != nil {
		ctl.sendError(client, err)
		ctl.pushState(client)
		return
	}

	resp := struct {
		Type    string          `json:"type"`
		Room    domain.RoomName `json:"room"`
		Members []app.MemberDTO `json:"members"`
	}{
		Type: "joined",
		Room: name,
	}
	if room, ok := ctl.Orch.Rooms.Get(name); ok {
		resp.Members = room.MembersSnapshot()
	}
	ctl.sendJSON(client, resp)
	ctl.pushState(client)
}

// handleLeave unmounts the current lobby (leaving the room if joined) and
// mounts a fresh one on the same connection.
func (ctl *LobbyWSController) handleLeave(client *lobbyClient) {
	ctl.unmount(client)
	client.remount(ctl.Orch.Mount(client.ctx, client.sid))
	ctl.sendJSON(client, struct {
		Type string `json:"type"`
	}{Type: "left"})
	ctl.pushState(client)
}
