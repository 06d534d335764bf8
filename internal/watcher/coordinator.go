package watcher

import (
	"context"

	"go.uber.org/zap"
)

// RebuildCoordinator routes debounced file changes to a Rebuilder, one rebuild at a time.
type RebuildCoordinator struct {
	files     FileWatcher
	rebuilder Rebuilder
	logger    *zap.Logger
	ctx       context.Context
}

// NewRebuildCoordinator creates a new rebuild coordinator.
func NewRebuildCoordinator(files FileWatcher, rebuilder Rebuilder, logger *zap.Logger) *RebuildCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RebuildCoordinator{
		files:     files,
		rebuilder: rebuilder,
		logger:    logger,
	}
}

// Start begins watching and blocks until the context is cancelled.
func (c *RebuildCoordinator) Start(ctx context.Context) error {
	c.ctx = ctx

	if err := c.files.Start(ctx, c.handleFileChange); err != nil {
		c.cleanup()
		return err
	}

	<-ctx.Done()
	c.cleanup()
	return ctx.Err()
}

// cleanup stops the file watcher.
func (c *RebuildCoordinator) cleanup() {
	if err := c.files.Stop(); err != nil {
		c.logger.Warn("file watcher stop failed", zap.Error(err))
	}
}

// handleFileChange rebuilds with file events held back until it finishes.
func (c *RebuildCoordinator) handleFileChange(files []string) {
	if len(files) == 0 {
		return
	}

	c.files.Pause()
	defer c.files.Resume()

	c.logger.Info("inputs changed, rebuilding", zap.Strings("files", files))

	if err := c.rebuilder.Rebuild(c.ctx, files); err != nil {
		c.logger.Error("rebuild failed", zap.Error(err))
	}
}
