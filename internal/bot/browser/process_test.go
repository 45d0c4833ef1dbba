package browser

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeProcess struct {
	mu         sync.Mutex
	terminated int
}

func (p *fakeProcess) PID() int { return 4242 }

func (p *fakeProcess) Terminate(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminated++
	return nil
}

type fakeSpawner struct {
	proc *fakeProcess
	err  error
	args []string
}

func (s *fakeSpawner) Spawn(_ context.Context, _ string, args []string) (Process, error) {
	s.args = args
	if s.err != nil {
		return nil, s.err
	}
	return s.proc, nil
}

func (s *fakeSpawner) profileDir(t *testing.T) string {
	t.Helper()
	for _, arg := range s.args {
		if dir, ok := strings.CutPrefix(arg, "--user-data-dir="); ok {
			return dir
		}
	}
	t.Fatalf("no --user-data-dir in %q", s.args)
	return ""
}

// closedPort returns a local port nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func TestProcessStrategyReleasesOnDevToolsFailure(t *testing.T) {
	spawner := &fakeSpawner{proc: &fakeProcess{}}
	strategy := &ProcessStrategy{
		Options: LaunchOptions{DebugPort: closedPort(t)},
		Spawner: spawner,
		Probe:   Probe{Attempts: 2, Backoff: time.Millisecond},
		Timeout: 5 * time.Second,
		Logger:  testLogger(),
	}

	h, err := strategy.Attempt(context.Background(), "/opt/chrome/chrome")
	if err == nil {
		t.Fatalf("expected devtools failure, got handle %v", h)
	}
	if !strings.Contains(err.Error(), "devtools") {
		t.Fatalf("unexpected error: %v", err)
	}
	if spawner.proc.terminated != 1 {
		t.Fatalf("expected process terminated once, got %d", spawner.proc.terminated)
	}
	dir := spawner.profileDir(t)
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temporary profile %s not removed: %v", dir, err)
	}
}

func TestProcessStrategyKeepsConfiguredProfile(t *testing.T) {
	profile := t.TempDir()
	spawner := &fakeSpawner{proc: &fakeProcess{}}
	strategy := &ProcessStrategy{
		Options: LaunchOptions{DebugPort: closedPort(t), UserDataDir: profile},
		Spawner: spawner,
		Probe:   Probe{Attempts: 1},
		Logger:  testLogger(),
	}

	if _, err := strategy.Attempt(context.Background(), "/opt/chrome/chrome"); err == nil {
		t.Fatalf("expected devtools failure")
	}
	if _, err := os.Stat(profile); err != nil {
		t.Fatalf("configured profile must survive release: %v", err)
	}
}

func TestProcessStrategySpawnFailureRemovesProfile(t *testing.T) {
	spawner := &fakeSpawner{err: errLaunch}
	strategy := &ProcessStrategy{Spawner: spawner, Logger: testLogger()}

	_, err := strategy.Attempt(context.Background(), "/opt/chrome/chrome")
	if !errors.Is(err, errLaunch) {
		t.Fatalf("expected launch error, got %v", err)
	}
	dir := spawner.profileDir(t)
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temporary profile %s not removed: %v", dir, err)
	}
}
