package system

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

const LocaltimePath = "/etc/localtime"

// ZoneLoader resolves the display time zone. An explicit Name wins, then the
// TZ environment variable, then the tzdata file at Path.
type ZoneLoader struct {
	Fs   afero.Fs
	Path string
	Name string
}

func NewZoneLoader(name string) ZoneLoader {
	return ZoneLoader{Fs: afero.NewOsFs(), Path: LocaltimePath, Name: name}
}

func (z ZoneLoader) Load() (*time.Location, error) {
	name := strings.TrimSpace(z.Name)
	if name == "" {
		name = strings.TrimSpace(os.Getenv("TZ"))
	}
	if name != "" {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return nil, fmt.Errorf("load zone %q: %w", name, err)
		}
		return loc, nil
	}

	fsys := z.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fsys, z.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", z.Path, err)
	}
	loc, err := time.LoadLocationFromTZData(zoneName(z.Path), data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", z.Path, err)
	}
	return loc, nil
}

// zoneName recovers "Europe/Berlin" from a /etc/localtime symlink into a
// zoneinfo tree, or falls back to "Local".
func zoneName(path string) string {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "Local"
	}
	if i := strings.Index(target, "zoneinfo/"); i >= 0 {
		return target[i+len("zoneinfo/"):]
	}
	return "Local"
}

// WatchTimeZone calls onChange with a freshly loaded zone whenever the file at
// path is written, replaced or re-linked. It watches the parent directory so
// atomic replacements are seen. It returns when ctx is done.
func WatchTimeZone(ctx context.Context, path string, load func() (*time.Location, error), onChange func(*time.Location), l logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create zone watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	base := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base || !ev.Has(fsnotify.Create|fsnotify.Write|fsnotify.Rename) {
				continue
			}
			loc, err := load()
			if err != nil {
				if l != nil {
					l.Errorf("tz", "reload after %s: %v", ev.Op, err)
				}
				continue
			}
			if l != nil {
				l.Infof("tz", "time zone changed to %s", loc)
			}
			onChange(loc)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if l != nil {
				l.Errorf("tz", "watcher error: %v", err)
			}
		}
	}
}
