package skills

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/logger"
)

// watchDebounce batches bursts of filesystem events (editors often write a
// file several times in quick succession) into one reload.
const watchDebounce = 250 * time.Millisecond

// Watch re-scans the given skill roots whenever their contents change,
// keeping filesystem-sourced skills current. Directly registered and
// entrypoint skills are never touched by a reload. The returned stop
// function closes the watcher; the watch also ends when ctx is cancelled.
func (r *Registry) Watch(ctx context.Context, paths []string) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filesystem watcher")
	}

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", path)
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "failed to read skill directory %s", path)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				// Best effort: a subdirectory may disappear between the
				// listing and the add.
				_ = watcher.Add(filepath.Join(path, entry.Name()))
			}
		}
	}

	go r.watchLoop(ctx, watcher, paths)

	return watcher.Close, nil
}

func (r *Registry) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, paths []string) {
	log := logger.G(ctx)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("skill watcher error")
		case <-timerC:
			timer = nil
			timerC = nil
			r.reloadFilesystem(ctx, paths)
		}
	}
}

// reloadFilesystem re-scans the roots and reconciles filesystem-sourced
// registry entries: changed skills are replaced, vanished ones removed, new
// ones added. Names owned by direct or entrypoint registrations keep their
// owners.
func (r *Registry) reloadFilesystem(ctx context.Context, paths []string) {
	log := logger.G(ctx)

	fresh := make(map[string]*Skill)
	for _, path := range paths {
		entries, err := os.ReadDir(path)
		if err != nil {
			log.WithField("dir", path).WithError(err).Warn("skill reload failed")
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			skillDir := filepath.Join(path, entry.Name())
			if _, err := os.Stat(filepath.Join(skillDir, SkillFileName)); err != nil {
				continue
			}
			skill, err := LoadFromDirectory(ctx, skillDir)
			if err != nil {
				log.WithField("dir", skillDir).WithError(err).Warn("skipping invalid skill")
				continue
			}
			if _, seen := fresh[skill.Metadata.Name]; !seen {
				fresh[skill.Metadata.Name] = skill
			}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Drop filesystem skills that no longer exist on disk.
	kept := r.order[:0]
	for _, name := range r.order {
		existing := r.skills[name]
		if existing.Source == SourceFilesystem {
			if _, ok := fresh[name]; !ok {
				delete(r.skills, name)
				continue
			}
		}
		kept = append(kept, name)
	}
	r.order = kept

	for name, skill := range fresh {
		existing, ok := r.skills[name]
		if ok && existing.Source != SourceFilesystem {
			continue
		}
		if !ok {
			r.order = append(r.order, name)
		}
		r.skills[name] = skill
	}

	log.WithField("skills", len(r.skills)).Debug("skill registry reloaded")
}
