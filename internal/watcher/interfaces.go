package watcher

import "context"

// FileWatcher monitors input files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Rebuilder regenerates outputs after inputs change.
type Rebuilder interface {
	// Rebuild runs the pipeline again. changed lists the inputs that triggered it.
	Rebuild(ctx context.Context, changed []string) error
}

// RebuilderFunc adapts a function to the Rebuilder interface.
type RebuilderFunc func(ctx context.Context, changed []string) error

// Rebuild calls f(ctx, changed).
func (f RebuilderFunc) Rebuild(ctx context.Context, changed []string) error {
	return f(ctx, changed)
}
