package preset

import (
	"log"
	"os"

	"github.com/fsnotify/fsnotify"
)

// presetWatcher wraps an fsnotify watcher over the backing source files of
// file-backed presets. A failed watcher construction degrades to a no-op so
// the store keeps working without hot reload.
type presetWatcher struct {
	watcher *fsnotify.Watcher
}

func newPresetWatcher() *presetWatcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("preset file watcher unavailable, hot reload disabled: %v", err)
		return &presetWatcher{}
	}
	return &presetWatcher{watcher: w}
}

func (w *presetWatcher) watch(path string) {
	if w.watcher == nil {
		return
	}
	if err := w.watcher.Add(path); err != nil {
		log.Printf("failed to watch %s: %v", path, err)
	}
}

func (w *presetWatcher) unwatch(path string) {
	if w.watcher == nil {
		return
	}
	_ = w.watcher.Remove(path)
}

func (w *presetWatcher) close() error {
	if w.watcher == nil {
		return nil
	}
	return w.watcher.Close()
}

// CheckForChanges drains every pending file event without blocking and
// reloads the presets whose files changed. Events are drained even while
// watching is disabled so stale edits do not replay on re-enable.
func (m *manager) CheckForChanges() {
	if m.watcher == nil || m.watcher.watcher == nil {
		return
	}
	for {
		select {
		case ev, ok := <-m.watcher.watcher.Events:
			if !ok {
				return
			}
			// Editors commonly save via rename-replace, which surfaces as
			// Create or Rename on the watched path rather than Write.
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				m.reloadFromDisk(ev.Name)
			}
		case err, ok := <-m.watcher.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("preset watcher error: %v", err)
		default:
			return
		}
	}
}

// reloadFromDisk replaces a file-backed preset's source with the file's
// current content and recompiles. A changed file is a new authored revision,
// so parameter values reset to the revision's declared defaults; the
// keyboard shortcut stays because it belongs to the preset, not the source.
// This is deliberately different from Recompile, which is an in-app tuning
// iteration and carries current values forward.
func (m *manager) reloadFromDisk(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.watchEnabled {
		return
	}

	index := -1
	for i := range m.entries {
		if m.entries[i].preset.Filepath == path {
			index = i
			break
		}
	}
	if index < 0 {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("failed to reload %s: %v", path, err)
		return
	}

	ent := &m.entries[index]
	ent.preset.Source = string(data)

	program := m.compileLocked(ent.preset, nil)
	if program == nil {
		// Keep the previous program bound; the author sees the diagnostic
		// and the output keeps rendering the last good revision.
		log.Printf("reload of %s failed to compile: %s", ent.preset.Name, ent.preset.Diagnostic)
		return
	}

	ent.program = program
	if m.active == index {
		m.backend.SetActiveEffect(program)
		m.pushRegionLocked()
	}

	// Rename-replace saves drop the watch on the old inode.
	m.watcher.watch(path)
}
