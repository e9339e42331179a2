package signal

import (
	"errors"

	"github.com/dkeye/lobby/internal/app"
	"github.com/dkeye/lobby/internal/app/orch"
	"github.com/dkeye/lobby/internal/core"
	"github.com/dkeye/lobby/internal/domain"
)

var (
	ErrBadPayload      = errors.New("bad payload")
	ErrUnknownType     = errors.New("unknown message type")
	ErrRateLimited     = errors.New("too many retries")
	ErrSessionReplaced = errors.New("session replaced by another connection")
)

// errorCode maps an error to the code sent to the client.
func errorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, core.ErrDeviceBusy):
		return "device_busy"
	case errors.Is(err, core.ErrDeviceUnavailable):
		return "device_unavailable"
	case errors.Is(err, core.ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, core.ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, domain.ErrUsernameTooLong):
		return "name_too_long"
	case errors.Is(err, domain.ErrRoomNameTooLong):
		return "room_name_too_long"
	case errors.Is(err, app.ErrRoomFull):
		return "room_full"
	case errors.Is(err, orch.ErrNoSession):
		return "no_session"
	case errors.Is(err, ErrBadPayload):
		return "bad_payload"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrSessionReplaced):
		return "session_replaced"
	default:
		return "internal"
	}
}

func (ctl *LobbyWSController) sendError(client *lobbyClient, err error) {
	ctl.sendJSON(client, struct {
		Type   string `json:"type"`
		Error  string `json:"error"`
		Detail string `json:"detail,omitempty"`
	}{
		Type:   "error",
		Error:  errorCode(err),
		Detail: err.Error(),
	})
}

func (ctl *LobbyWSController) handlePing(client *lobbyClient) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(client, resp)
}
