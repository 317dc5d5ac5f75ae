package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sweeney/deskcycle-kb/internal/logic"
)

// DefaultDebounce collapses the burst of events editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads path whenever it is written and delivers each valid rule set
// on the returned channel. Invalid edits are logged and skipped so a typo never
// replaces a working configuration. The channel is closed when ctx is done.
func Watch(ctx context.Context, path string, isValidKey func(string) bool, debounce time.Duration) (<-chan *logic.RuleSet, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors that save by rename replace the file's inode.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	out := make(chan *logic.RuleSet)
	go watchLoop(ctx, watcher, path, isValidKey, debounce, out)
	return out, nil
}

// resetTimer rearms t, dropping a fire that nobody received yet.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, isValidKey func(string) bool, debounce time.Duration, out chan<- *logic.RuleSet) {
	defer close(out)
	defer watcher.Close()

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	base := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			resetTimer(timer, debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch error: %v", err)

		case <-timer.C:
			rs, err := Load(path, isValidKey)
			if err != nil {
				log.Printf("config: ignoring change: %v", err)
				continue
			}
			log.Printf("config: reloaded %d rules from %s", rs.Len(), path)
			select {
			case out <- rs:
			case <-ctx.Done():
				return
			}
		}
	}
}
