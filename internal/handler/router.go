package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"quicktalk/internal/pkg/auth/jwt"
	"quicktalk/internal/pkg/logx"
	"quicktalk/internal/pkg/resp"
)

// Router builds the HTTP routing table: CORS and request middleware, the public auth
// endpoints, the bearer-protected API and the websocket endpoint.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-PoW-Token"},
		ExposedHeaders:   []string{"RateLimit-Limit", "RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":  "ok",
			"service": "QuickTalk Server",
			"online":  deps.Router.Directory().Count(),
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Get("/challenge", HandleChallenge(deps))
			auth.Post("/challenge/verify", HandleVerifyChallenge(deps))
			auth.Post("/register", HandleRegister(deps))
			auth.Post("/login", HandleLogin(deps))
		})

		api.Group(func(private chi.Router) {
			private.Use(jwt.RequireIdentity(deps.Config.JWTSecret))

			private.Route("/user", func(user chi.Router) {
				user.Get("/profile", HandleGetUserProfile(deps))
				user.Put("/profile", HandleUpdateUserProfile(deps))
				user.Post("/avatar/presign", HandlePresignAvatarURL(deps))
			})

			private.Get("/search", HandleSearchUsers(deps))

			private.Route("/messages", func(messages chi.Router) {
				messages.With(deps.SendLimiter.Middleware).Post("/", HandleCreateMessage(deps))
				messages.Get("/{userId}", HandleListConversation(deps))
			})

			private.Get("/chats", HandleListChats(deps))

			private.Post("/files/presign", HandlePresignMessageFileURL(deps))
		})
	})

	r.Group(func(ws chi.Router) {
		if deps.ConnectLimiter != nil {
			ws.Use(deps.ConnectLimiter.Middleware)
		}
		ws.Get("/ws", HandleWebSocket(wsUpgrader, deps))
	})

	return r
}
