package symbols

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Invalidator is the cache side of the watcher: anything that can drop
// stale entries for a library name.
type Invalidator interface {
	Invalidate(libName string) error
}

// Watcher invalidates cached symbols when a .kicad_sym file changes on
// disk. It watches the library directory, not individual files, so
// editors that replace files via rename are still caught.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// Watch starts watching dir and invalidating cache (and the DirProvider's
// parsed state, when provider is non-nil) for every changed library.
func Watch(dir string, cache Invalidator, provider *DirProvider, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{})}
	go w.run(cache, provider, log)
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) run(cache Invalidator, provider *DirProvider, log zerolog.Logger) {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
				continue
			}
			base := filepath.Base(ev.Name)
			libName, found := strings.CutSuffix(base, ".kicad_sym")
			if !found {
				continue
			}
			log.Debug().Str("library", libName).Str("op", ev.Op.String()).Msg("library changed on disk")
			if provider != nil {
				provider.Forget(libName)
			}
			if cache != nil {
				if err := cache.Invalidate(libName); err != nil {
					log.Warn().Err(err).Str("library", libName).Msg("cache invalidation failed")
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("library watcher error")
		}
	}
}
