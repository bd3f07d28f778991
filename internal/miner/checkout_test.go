package miner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireCheckoutLocalDirectory(t *testing.T) {
	dir := t.TempDir()

	checkout, err := acquireCheckout(context.Background(), dir, "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, dir, checkout.Dir)

	// Cleanup must never remove a local directory used in place.
	checkout.Cleanup()
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestAcquireCheckoutCloneFailureLeavesNothing(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	missing := filepath.Join(t.TempDir(), "no-such-repo")
	_, err := acquireCheckout(context.Background(), missing, "", 30*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to clone")
}

func TestCheckoutCleanupIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")
	require.NoError(t, os.MkdirAll(dir, 0o750))

	c := &Checkout{Dir: dir, temporary: true}
	c.Cleanup()
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// A second call is a no-op.
	c.Cleanup()
}

func TestCheckoutCleanupNilReceiver(t *testing.T) {
	var c *Checkout
	c.Cleanup()
}
