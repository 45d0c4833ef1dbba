package httpapi

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ccheshirecat/rollerbot/internal/bot/config"
	"github.com/ccheshirecat/rollerbot/internal/bot/engine"
	"github.com/ccheshirecat/rollerbot/internal/bot/eventbus"
)

//go:embed templates/*.html static/app.js
var assets embed.FS

// APIKeyHeader carries the operator key when one is configured.
const APIKeyHeader = "X-Rollerbot-API-Key"

// Controller is the start/stop surface the routes drive.
type Controller interface {
	Start() (bool, error)
	Stop() bool
	Status() engine.Snapshot
}

// CredentialStore holds the account the bot signs in with.
type CredentialStore interface {
	Credentials() config.Credentials
	Set(email, password string) error
}

// Options wires the operator API.
type Options struct {
	Logger      *slog.Logger
	Controller  Controller
	Credentials CredentialStore
	Bus         eventbus.Bus
	LogFile     string
	APIKey      string
	Simulation  bool
}

// New constructs the operator router: HTML dashboard, JSON API and event
// streams.
func New(opts Options) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(opts.Logger))
	r.SetHTMLTemplate(template.Must(template.ParseFS(assets, "templates/*.html")))

	bus := opts.Bus
	if bus == nil {
		bus = eventbus.Nop{}
	}
	api := &apiServer{
		logger:      opts.Logger.With("component", "httpapi"),
		controller:  opts.Controller,
		credentials: opts.Credentials,
		bus:         bus,
		logFile:     opts.LogFile,
		simulation:  opts.Simulation,
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/", api.index)
	r.StaticFileFS("/static/app.js", "static/app.js", http.FS(assets))
	r.GET("/config", api.configForm)
	r.POST("/config", api.updateConfig)
	r.GET("/logs", api.logsPage)
	r.POST("/start", api.startForm)
	r.POST("/stop", api.stopForm)
	r.GET("/api/status", api.status)

	v1 := r.Group("/api/v1")
	ws := r.Group("/ws/v1")
	if opts.APIKey != "" {
		v1.Use(apiKeyMiddleware(opts.APIKey))
		ws.Use(apiKeyMiddleware(opts.APIKey))
	}
	{
		v1.GET("/status", api.status)

		bot := v1.Group("/bot")
		{
			bot.POST("/start", api.startBot)
			bot.POST("/stop", api.stopBot)
		}

		logs := v1.Group("/logs")
		{
			logs.GET("", api.tailLogs)
			logs.GET("/archive", api.archiveLogs)
		}

		v1.POST("/config", api.updateConfig)
		v1.GET("/events", api.streamEvents)
	}
	ws.GET("/events", api.eventsWebSocket)

	return r
}

// requestLogger adapts slog to Gin's middleware interface.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		args := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.String("latency", latency.String()),
			slog.String("client_ip", c.ClientIP()),
		}
		switch {
		case len(c.Errors) > 0:
			args = append(args, slog.String("error", c.Errors.String()))
			logger.Error("http request", args...)
		case c.Request.URL.Path == "/api/status" || c.Request.URL.Path == "/healthz":
			// The dashboard polls these every few seconds.
			logger.Debug("http request", args...)
		default:
			logger.Info("http request", args...)
		}
	}
}

func apiKeyMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(APIKeyHeader)
		if provided == "" {
			provided = c.Query("api_key")
		}
		if provided != expected {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}

type apiServer struct {
	logger      *slog.Logger
	controller  Controller
	credentials CredentialStore
	bus         eventbus.Bus
	logFile     string
	simulation  bool
}
