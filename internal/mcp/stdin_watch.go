package mcp

import (
	"context"
	"os"
	"time"

	"fullbleed/internal/logging"
)

// parentPollInterval is how often the watchdog samples the parent PID.
var parentPollInterval = 2 * time.Second

// WatchParent cancels the server when the parent process dies (the editor or
// agent host that spawned us disconnected). Without it, stdio-transport
// servers linger as orphans.
//
// It must never read stdin: the SDK's StdioTransport owns stdin exclusively,
// and stealing bytes would corrupt the JSON-RPC stream. Parent death is
// detected by polling the parent PID instead.
func WatchParent(ctx context.Context, cancelFn context.CancelFunc) {
	ppid := os.Getppid()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(parentPollInterval):
				if os.Getppid() != ppid {
					logging.New("mcp").Warn("parent process died, shutting down", "was_pid", ppid)
					cancelFn()
					return
				}
			}
		}
	}()
}
