package tree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"stash/shared/utils"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// LocalTree is a Tree backed by a directory on the local filesystem.
type LocalTree struct {
	root   string
	logger *zap.Logger
}

func NewLocalTree(root string, logger *zap.Logger) (*LocalTree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("local root %s: %w", root, ErrNotExist)
		}
		return nil, fmt.Errorf("checking root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local root %s is not a directory", root)
	}

	return &LocalTree{root: abs, logger: logger}, nil
}

func (t *LocalTree) Root() string {
	return t.root
}

func (t *LocalTree) abs(path string) string {
	return filepath.Join(t.root, filepath.FromSlash(utils.NormalizePath(path)))
}

func (t *LocalTree) Stat(path string) (Info, error) {
	info, err := os.Stat(t.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, fmt.Errorf("%s: %w", path, ErrNotExist)
		}
		return Info{}, fmt.Errorf("stat %s: %w", path, err)
	}

	return Info{
		Path:    utils.NormalizePath(path),
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
	}, nil
}

func (t *LocalTree) Walk(fn func(Info) error) error {
	return filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == t.root {
			return nil
		}

		relPath, err := filepath.Rel(t.root, path)
		if err != nil {
			return fmt.Errorf("getting relative path for %s: %w", path, err)
		}

		info, err := d.Info()
		if err != nil {
			// Entry vanished between listing and stat; skip it.
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("getting info for %s: %w", relPath, err)
		}

		return fn(Info{
			Path:    filepath.ToSlash(relPath),
			Size:    info.Size(),
			IsDir:   d.IsDir(),
			ModTime: info.ModTime(),
		})
	})
}

func (t *LocalTree) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(t.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (t *LocalTree) WriteFile(path string, data []byte) error {
	abs := t.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("creating parent directories for %s: %w", path, err)
	}
	if err := os.WriteFile(abs, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (t *LocalTree) MkdirAll(path string) error {
	if err := os.MkdirAll(t.abs(path), 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

func (t *LocalTree) Remove(path string) error {
	if err := os.RemoveAll(t.abs(path)); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Watch subscribes to recursive filesystem notifications under the
// root. New directories created while watching are added to the
// watcher so events keep flowing from the whole subtree.
func (t *LocalTree) Watch(onChange func(path string)) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	err = filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("adding directory to watcher: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, err
	}

	go t.watchLoop(watcher, onChange)

	return watcher.Close, nil
}

func (t *LocalTree) watchLoop(watcher *fsnotify.Watcher, onChange func(path string)) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// Newly created directories need an explicit add.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watcher.Add(event.Name); err != nil {
						t.logger.Warn("adding new directory to watcher",
							zap.String("path", event.Name),
							zap.Error(err))
					}
				}
			}

			relPath, err := filepath.Rel(t.root, event.Name)
			if err != nil {
				t.logger.Warn("getting relative path for event",
					zap.String("path", event.Name),
					zap.Error(err))
				continue
			}
			onChange(filepath.ToSlash(relPath))

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			t.logger.Error("watcher error", zap.Error(err))
		}
	}
}
