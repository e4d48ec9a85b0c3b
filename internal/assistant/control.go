package assistant

import (
	"context"
	"strings"

	"opencode/internal/ipc"
)

// Control serves requests from the control socket.
func (a *Assistant) Control(ctx context.Context, req ipc.Request) ipc.Reply {
	switch req.Cmd {
	case ipc.CmdTrigger:
		if !a.listener.Trigger() {
			return ipc.Reply{OK: true, Message: "trigger already pending"}
		}
		return ipc.Reply{OK: true, Message: "triggered"}

	case ipc.CmdSay:
		text := strings.TrimSpace(req.Text)
		if text == "" {
			return ipc.Reply{Message: "nothing to say"}
		}
		a.Say(ctx, text)
		return ipc.Reply{OK: true, Message: "spoken"}

	case ipc.CmdStatus:
		return ipc.Reply{OK: true, Message: a.Status().String()}

	case ipc.CmdShutdown:
		a.Stop()
		return ipc.Reply{OK: true, Message: "shutting down"}
	}

	return ipc.Reply{Message: "unknown command " + req.Cmd}
}
