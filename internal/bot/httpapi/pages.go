package httpapi

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/ccheshirecat/rollerbot/internal/bot/config"
	"github.com/ccheshirecat/rollerbot/internal/shared/logging"
)

const noLogsYet = "No logs available yet."

// Flash levels carried in the dashboard query string.
const (
	levelSuccess = "success"
	levelWarning = "warning"
	levelDanger  = "danger"
)

func (api *apiServer) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Status":     api.controller.Status(),
		"Email":      api.credentials.Credentials().Email,
		"Flash":      c.Query("flash"),
		"Level":      flashLevel(c.Query("level")),
		"Simulation": api.simulation,
	})
}

func (api *apiServer) configForm(c *gin.Context) {
	c.HTML(http.StatusOK, "config.html", gin.H{"Email": api.credentials.Credentials().Email})
}

func (api *apiServer) logsPage(c *gin.Context) {
	content, err := logging.ReadAll(api.logFile)
	switch {
	case errors.Is(err, logging.ErrNoLogFile):
		content = noLogsYet
	case err != nil:
		_ = c.Error(err)
		content = "Error reading logs: " + err.Error()
	}
	c.HTML(http.StatusOK, "logs.html", gin.H{"Logs": content})
}

func (api *apiServer) startForm(c *gin.Context) {
	started, err := api.controller.Start()
	switch {
	case err != nil:
		_ = c.Error(err)
		redirectWithFlash(c, "Error starting bot: "+err.Error(), levelDanger)
	case !started:
		redirectWithFlash(c, "Bot is already running!", levelWarning)
	default:
		redirectWithFlash(c, "Bot started successfully!", levelSuccess)
	}
}

func (api *apiServer) stopForm(c *gin.Context) {
	if !api.controller.Stop() {
		redirectWithFlash(c, "Bot is not running!", levelWarning)
		return
	}
	redirectWithFlash(c, "Bot stopped successfully!", levelSuccess)
}

type credentialsRequest struct {
	Email    string `form:"email" json:"email" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// updateConfig accepts form posts from the dashboard and JSON from API
// clients.
func (api *apiServer) updateConfig(c *gin.Context) {
	wantsJSON := c.ContentType() == gin.MIMEJSON

	var req credentialsRequest
	err := c.ShouldBind(&req)
	if err == nil {
		err = api.credentials.Set(req.Email, req.Password)
	}
	if err != nil {
		api.logger.Warn("credentials update rejected", "error", err)
		if wantsJSON {
			c.JSON(http.StatusBadRequest, gin.H{"error": config.ErrIncompleteCredentials.Error()})
			return
		}
		redirectWithFlash(c, "Please provide both email and password!", levelDanger)
		return
	}

	api.logger.Info("credentials updated", "email", req.Email)
	if wantsJSON {
		c.JSON(http.StatusOK, gin.H{"status": "updated", "email": req.Email})
		return
	}
	redirectWithFlash(c, "Configuration updated successfully!", levelSuccess)
}

func redirectWithFlash(c *gin.Context, message, level string) {
	q := url.Values{}
	q.Set("flash", message)
	q.Set("level", level)
	c.Redirect(http.StatusSeeOther, "/?"+q.Encode())
}

func flashLevel(level string) string {
	switch level {
	case levelSuccess, levelWarning, levelDanger:
		return level
	default:
		return levelSuccess
	}
}
