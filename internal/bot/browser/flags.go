package browser

import (
	"fmt"
	"strconv"

	"github.com/chromedp/chromedp"
)

const (
	DefaultWindowWidth  = 1920
	DefaultWindowHeight = 1080
	DefaultDebugPort    = 9222
)

// LaunchOptions are the headless/sandboxing settings shared by every
// strategy that starts a browser process.
type LaunchOptions struct {
	UserAgent    string
	DebugPort    int
	WindowWidth  int
	WindowHeight int
	UserDataDir  string
}

func (o LaunchOptions) withDefaults() LaunchOptions {
	if o.DebugPort <= 0 {
		o.DebugPort = DefaultDebugPort
	}
	if o.WindowWidth <= 0 {
		o.WindowWidth = DefaultWindowWidth
	}
	if o.WindowHeight <= 0 {
		o.WindowHeight = DefaultWindowHeight
	}
	return o
}

// flagSet returns the command-line switches as name/value pairs. A value of
// true renders as a bare switch.
func (o LaunchOptions) flagSet() [][2]any {
	o = o.withDefaults()
	flags := [][2]any{
		{"headless", "new"},
		{"no-sandbox", true},
		{"disable-gpu", true},
		{"disable-dev-shm-usage", true},
		{"no-first-run", true},
		{"no-default-browser-check", true},
		{"window-size", fmt.Sprintf("%d,%d", o.WindowWidth, o.WindowHeight)},
		{"remote-debugging-address", "127.0.0.1"},
		{"remote-debugging-port", strconv.Itoa(o.DebugPort)},
	}
	if o.UserAgent != "" {
		flags = append(flags, [2]any{"user-agent", o.UserAgent})
	}
	if o.UserDataDir != "" {
		flags = append(flags, [2]any{"user-data-dir", o.UserDataDir})
	}
	return flags
}

// allocatorOptions renders the settings for chromedp's exec allocator.
func (o LaunchOptions) allocatorOptions(binary string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, flag := range o.flagSet() {
		opts = append(opts, chromedp.Flag(flag[0].(string), flag[1]))
	}
	return append(opts, chromedp.ExecPath(binary))
}

// Args renders the settings as process arguments.
func (o LaunchOptions) Args() []string {
	flags := o.flagSet()
	args := make([]string, 0, len(flags)+1)
	for _, flag := range flags {
		name := flag[0].(string)
		switch v := flag[1].(type) {
		case bool:
			if v {
				args = append(args, "--"+name)
			}
		default:
			args = append(args, fmt.Sprintf("--%s=%v", name, v))
		}
	}
	return append(args, "about:blank")
}
