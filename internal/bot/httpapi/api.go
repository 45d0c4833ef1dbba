package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ccheshirecat/rollerbot/internal/shared/logging"
)

const (
	defaultLogLines = 100
	maxLogLines     = 5000
)

// Bot control results.
const (
	StatusStarted        = "started"
	StatusAlreadyRunning = "already_running"
	StatusStopped        = "stopped"
	StatusNotRunning     = "not_running"
)

func (api *apiServer) status(c *gin.Context) {
	c.JSON(http.StatusOK, api.controller.Status())
}

func (api *apiServer) startBot(c *gin.Context) {
	started, err := api.controller.Start()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	if !started {
		c.JSON(http.StatusOK, gin.H{"status": StatusAlreadyRunning})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusStarted})
}

func (api *apiServer) stopBot(c *gin.Context) {
	if !api.controller.Stop() {
		c.JSON(http.StatusOK, gin.H{"status": StatusNotRunning})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": StatusStopped})
}

type logsResponse struct {
	File  string   `json:"file"`
	Lines []string `json:"lines"`
}

func (api *apiServer) tailLogs(c *gin.Context) {
	n := defaultLogLines
	if raw := strings.TrimSpace(c.Query("lines")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lines must be a positive integer"})
			return
		}
		n = min(parsed, maxLogLines)
	}

	lines, err := logging.Tail(api.logFile, n)
	if err != nil && !errors.Is(err, logging.ErrNoLogFile) {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	c.JSON(http.StatusOK, logsResponse{File: api.logFile, Lines: lines})
}

func (api *apiServer) archiveLogs(c *gin.Context) {
	var buf bytes.Buffer
	if err := logging.Archive(&buf, api.logFile); err != nil {
		if errors.Is(err, logging.ErrNoLogFile) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no logs available yet"})
			return
		}
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	name := strings.TrimSuffix(filepath.Base(api.logFile), filepath.Ext(api.logFile)) + ".zip"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func errorJSON(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}
