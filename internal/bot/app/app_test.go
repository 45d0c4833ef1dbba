package app

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccheshirecat/rollerbot/internal/bot/config"
	"github.com/ccheshirecat/rollerbot/internal/bot/control"
	"github.com/ccheshirecat/rollerbot/internal/bot/eventbus/memory"
)

type recordingController struct{ shutdowns atomic.Int32 }

func (r *recordingController) Shutdown(context.Context) error {
	r.shutdowns.Add(1)
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewValidates(t *testing.T) {
	_, err := New(config.Config{}, nil, &recordingController{}, http.NotFoundHandler(), nil)
	require.Error(t, err)
	_, err = New(config.Config{}, discard(), nil, http.NotFoundHandler(), nil)
	require.Error(t, err)
	_, err = New(config.Config{}, discard(), &recordingController{}, nil, nil)
	require.Error(t, err)
}

func TestRunStopsControllerOnCancel(t *testing.T) {
	ctrl := &recordingController{}
	cfg := config.Config{ListenAddr: "127.0.0.1:0", DebugListenAddr: "127.0.0.1:0"}
	a, err := New(cfg, discard(), ctrl, http.NotFoundHandler(), http.NotFoundHandler())
	require.NoError(t, err)
	require.Len(t, a.servers, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	assert.EqualValues(t, 1, ctrl.shutdowns.Load())
}

func TestRunEndsOpenStreamsOnShutdown(t *testing.T) {
	probeLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := probeLn.Addr().String()
	require.NoError(t, probeLn.Close())

	entered := make(chan struct{})
	streamEnded := make(chan struct{})
	stream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(entered)
		<-r.Context().Done()
		close(streamEnded)
	})

	a, err := New(config.Config{ListenAddr: addr}, discard(), &recordingController{}, stream, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	go func() {
		resp, err := http.Get("http://" + addr + "/api/v1/events")
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}
	}()
	<-entered

	begin := time.Now()
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run waited for the open stream")
	}
	assert.Less(t, time.Since(begin), 3*time.Second)
	<-streamEnded
}

func TestRunFailsWhenAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := config.Config{ListenAddr: ln.Addr().String()}
	a, err := New(cfg, discard(), &recordingController{}, http.NotFoundHandler(), nil)
	require.NoError(t, err)
	require.Len(t, a.servers, 1, "debug listener disabled")

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen api")
}

func TestSimulationComponentsDriveController(t *testing.T) {
	t.Setenv("CYCLE_INTERVAL", "3600")
	cfg := config.Config{Simulation: true}
	comps, err := BuildComponents(cfg, discard(), nil)
	require.NoError(t, err)
	assert.Nil(t, comps.Inspector)

	bus := memory.New()
	ctrl, err := control.New(BotFactory(cfg, comps, config.CredentialsFromEnv, bus, discard()), bus, discard())
	require.NoError(t, err)

	started, err := ctrl.Start()
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, ctrl.Status().Running)

	require.True(t, ctrl.Stop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ctrl.Shutdown(ctx))
	assert.False(t, ctrl.Status().Running)
}

func TestBrowserComponents(t *testing.T) {
	cfg := config.Config{Browser: config.BrowserConfig{ExecPath: "/nonexistent/chrome", DebugPort: 9222}}
	comps, err := BuildComponents(cfg, discard(), nil)
	require.NoError(t, err)
	require.NotNil(t, comps.Inspector)
	assert.Equal(t, []string{"exec-allocator", "spawned-process"}, comps.Inspector.StrategyNames())
}
