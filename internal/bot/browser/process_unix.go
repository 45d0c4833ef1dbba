//go:build unix

package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ExecSpawner starts the binary in its own process group so the whole
// browser tree can be signalled at once.
type ExecSpawner struct {
	// Output receives the browser's stdout and stderr. Nil discards them.
	Output *os.File
	// Grace is how long Terminate waits after SIGTERM before SIGKILL.
	Grace time.Duration
}

const defaultTerminateGrace = 5 * time.Second

func (s ExecSpawner) Spawn(ctx context.Context, binary string, args []string) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if s.Output != nil {
		cmd.Stdout = s.Output
		cmd.Stderr = s.Output
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
		close(done)
	}()
	return &groupProcess{cmd: cmd, done: done, grace: timeoutOr(s.Grace, defaultTerminateGrace)}, nil
}

type groupProcess struct {
	cmd   *exec.Cmd
	done  <-chan error
	grace time.Duration
}

func (p *groupProcess) PID() int { return p.cmd.Process.Pid }

func (p *groupProcess) Terminate(ctx context.Context) error {
	pgid := p.cmd.Process.Pid
	if err := unix.Kill(-pgid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal term: %w", err)
	}

	grace := time.NewTimer(p.grace)
	defer grace.Stop()

	select {
	case <-p.done:
		return nil
	case <-grace.C:
	case <-ctx.Done():
	}

	if err := unix.Kill(-pgid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal kill: %w", err)
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser process %d did not exit: %w", pgid, ctx.Err())
	}
}
