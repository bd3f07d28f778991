package miner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/specmint/specmint-cli/internal/log"
)

// Checkout is a scoped temporary clone of a remote repository. Cleanup
// must run on every exit path of the caller, success or failure.
type Checkout struct {
	Dir       string
	temporary bool
}

// Cleanup removes the temporary checkout directory. Safe to call more
// than once; a no-op for local directories that were never cloned.
func (c *Checkout) Cleanup() {
	if c == nil || !c.temporary {
		return
	}
	if err := os.RemoveAll(c.Dir); err != nil {
		log.Warn("Failed to remove temporary checkout", "dir", c.Dir, "error", err)
	}
}

// acquireCheckout materializes a local working tree for location. A
// location that is already a local directory is used in place. Anything
// else is cloned into a unique temp directory with a hard timeout, since
// an unresponsive remote would otherwise block indefinitely.
func acquireCheckout(ctx context.Context, location, branch string, timeout time.Duration) (*Checkout, error) {
	if info, err := os.Stat(location); err == nil && info.IsDir() {
		log.Debug("Mining local directory in place", "dir", location)
		return &Checkout{Dir: location}, nil
	}

	dir := filepath.Join(os.TempDir(), "specmint-mine-"+uuid.NewString())

	// A stale directory under the same name cannot normally exist, but a
	// partial removal must not break the clone.
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("failed to clear checkout path: %w", err)
	}

	cloneCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"clone", "--depth", "1"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, location, dir)

	log.Debug("Cloning repository", "location", location, "dir", dir)
	cmd := exec.CommandContext(cloneCtx, "git", args...) // #nosec G204
	output, err := cmd.CombinedOutput()
	if err != nil {
		// The clone may have left a partial tree behind.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn("Failed to remove partial checkout", "dir", dir, "error", rmErr)
		}
		if cloneCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("clone of %s timed out after %s", location, timeout)
		}
		return nil, fmt.Errorf("failed to clone %s: %w: %s", location, err, strings.TrimSpace(string(output)))
	}

	return &Checkout{Dir: dir, temporary: true}, nil
}
