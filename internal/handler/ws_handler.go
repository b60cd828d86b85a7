package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"quicktalk/internal/app/chat"
	"quicktalk/internal/app/presence"
	"quicktalk/internal/pkg/auth/jwt"
	"quicktalk/internal/pkg/errs"
	"quicktalk/internal/pkg/limiter"
	"quicktalk/internal/pkg/logx"
	"quicktalk/internal/pkg/randx"
	"quicktalk/internal/pkg/resp"
)

// HandleWebSocket upgrades the request and runs the client until the connection ends. A
// token query parameter authenticates the connection right away; otherwise the client
// must send an authenticate event first.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	clientDeps := chat.ClientDeps{
		Router:  deps.Router,
		Sender:  deps.Sender,
		Limiter: deps.SendLimiter,
		Verify: func(token string) (string, error) {
			payload, err := jwt.ParseToken(token, deps.Config.JWTSecret)
			if err != nil {
				return "", err
			}
			return payload.UserID, nil
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		addr := limiter.ClientAddress(r)

		token := r.URL.Query().Get("token")
		if token == "" {
			token = jwt.BearerToken(r)
		}

		connID, err := randx.ConnectionID()
		if err != nil {
			logx.Error(err, "Failed to allocate connection id")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		pc := presence.NewConn(connID, presence.DefaultQueueSize)
		client := chat.NewClient(deps.baseContext(), clientDeps, wsConn, pc, addr)

		if token != "" {
			if err := client.Authenticate(token); err != nil {
				logx.Info("WebSocket handshake token rejected", "conn_id", connID, "error", err.Error())
				client.Reject(err)
				return
			}
		}

		logx.Info("WebSocket connection established", "conn_id", connID)
		client.Serve()
	}
}
