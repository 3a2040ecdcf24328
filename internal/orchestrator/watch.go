package orchestrator

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/conductor-ai/conductor/internal/config"
)

// Watch reloads the provider registry whenever the provider file changes
// on disk. It blocks until the context is cancelled. The watch is placed
// on the parent directory because editors commonly replace the file rather
// than write it in place.
func (o *Orchestrator) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	o.log.Info().Str("path", abs).Msg("watching provider configuration")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfgs, errs := config.Load(abs)
			for _, err := range errs {
				o.log.Warn().Err(err).Msg("config reload")
			}
			o.Reload(ctx, cfgs)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			o.log.Error().Err(err).Msg("config watcher error")
		}
	}
}
