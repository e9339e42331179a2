package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/lobby/internal/adapters/capture"
	"github.com/dkeye/lobby/internal/adapters/preview"
	"github.com/dkeye/lobby/internal/adapters/signal"
	"github.com/dkeye/lobby/internal/app/orch"
	"github.com/dkeye/lobby/internal/config"
	"github.com/dkeye/lobby/internal/core"
	"github.com/dkeye/lobby/internal/domain"
)

// DeviceLister reports the capture devices available to the server.
type DeviceLister interface {
	Enumerate() []capture.DeviceInfo
}

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, devices DeviceLister) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LobbySessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := signal.NewLobbyWSController(o, signal.Options{
		Preview:        preview.Config{FPS: cfg.Preview.FPS, Quality: cfg.Preview.Quality},
		ReadLimit:      cfg.ReadLimit,
		PingPeriod:     cfg.PingPeriod,
		SendBuffer:     cfg.Limits.SendBuffer,
		RenameDebounce: cfg.Limits.RenameDebounce,
		RetryLimit:     cfg.Limits.RetryLimit,
		RetryWindow:    cfg.Limits.RetryWindow,
	})

	api := r.Group("/api")

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.List()})
	})

	api.GET("/rooms/:name", func(c *gin.Context) {
		room, ok := o.Rooms.Get(domain.RoomName(c.Param("name")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room_not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"name":    room.Room().Name,
			"members": room.MembersSnapshot(),
		})
	})

	api.GET("/devices", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"devices": devices.Enumerate()})
	})

	api.GET("/session", func(c *gin.Context) {
		sid := core.SessionID(c.GetString("client_token"))
		st, room, ok := o.State(sid)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no_session"})
			return
		}
		// The last room the client joined is remembered across reloads.
		sess := sessions.Default(c)
		if room != "" && sess.Get("room") != string(room) {
			sess.Set("room", string(room))
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save cookie session")
			}
		}
		c.JSON(http.StatusOK, gin.H{"session": st, "room": room, "last_room": sess.Get("room")})
	})

	api.GET("/ws/lobby", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws lobby endpoint hit")
		ctrl.HandleLobby(ctx, c)
	})

	return r
}
