// Package rangemeta loads the static config-fallback metadata for ranges
// that exist only by external convention and are never stored canonically.
package rangemeta

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Declared range types in the metadata file.
const (
	TypeFieldworks = "fieldworks"
	TypeCustom     = "custom"
)

// Entry is the static metadata for one range id. Unknown Type values are
// preserved as declared.
type Entry struct {
	Label       string `yaml:"label"`
	Description string `yaml:"description,omitempty"`
	Type        string `yaml:"type"`
}

// File is a reloadable metadata file mapping range id to Entry. A missing
// file loads as empty rather than failing, so an uninitialized deployment
// still starts; a later Reload or watch event picks the file up.
type File struct {
	path string

	mu      sync.RWMutex
	entries map[string]Entry

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Load reads the metadata file at path. An empty path yields an empty,
// non-reloadable source.
func Load(path string) (*File, error) {
	f := &File{path: path, entries: map[string]Entry{}}
	if path == "" {
		return f, nil
	}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

// Reload re-reads the file on demand. A file that has gone missing clears
// the entries; a parse failure keeps the previous snapshot and returns the
// error.
func (f *File) Reload() error {
	if f.path == "" {
		return nil
	}
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		f.mu.Lock()
		f.entries = map[string]Entry{}
		f.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read range metadata: %w", err)
	}

	entries := map[string]Entry{}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse range metadata %s: %w", f.path, err)
	}

	f.mu.Lock()
	f.entries = entries
	f.mu.Unlock()
	return nil
}

// Lookup returns the metadata for one range id.
func (f *File) Lookup(rangeID string) (Entry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	entry, ok := f.entries[rangeID]
	return entry, ok
}

// All returns a copy of the current snapshot.
func (f *File) All() map[string]Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]Entry, len(f.entries))
	for id, entry := range f.entries {
		out[id] = entry
	}
	return out
}

// Watch reloads the file whenever it changes on disk. Call Close to stop
// the watcher.
func (f *File) Watch() error {
	if f.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch range metadata: %w", err)
	}
	if err := watcher.Add(f.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch range metadata %s: %w", f.path, err)
	}
	f.watcher = watcher
	f.done = make(chan struct{})

	go func() {
		for {
			select {
			case <-f.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := f.Reload(); err != nil {
					log.Printf("rangemeta: reload after change: %v", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("rangemeta: watch error: %v", err)
			}
		}
	}()
	return nil
}

// Close stops the watcher, if one was started.
func (f *File) Close() error {
	if f.watcher == nil {
		return nil
	}
	close(f.done)
	return f.watcher.Close()
}
