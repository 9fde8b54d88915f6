package personas

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Store loads runner profiles from a YAML file and hot-reloads on change.
type Store struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	defaults *Profile
	profiles map[string]*Profile

	// Configuration hot-reloading
	watcher   *fsnotify.Watcher
	watcherMu sync.RWMutex

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStore creates a profile store. It fails only when the file exists and
// is unreadable; a missing file yields an empty store that will pick up the
// file if it appears later.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		path:     path,
		logger:   logger,
		profiles: make(map[string]*Profile),
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := s.reload(); err != nil {
		if !os.IsNotExist(err) {
			cancel()
			return nil, fmt.Errorf("failed to load profiles: %w", err)
		}
		logger.Warn("Profile file not found, starting empty", zap.String("path", path))
	}

	if err := s.initFileWatcher(); err != nil {
		logger.Warn("Failed to initialize file watcher", zap.Error(err))
		// Don't fail creation, just log the warning
	}
	if s.watcher != nil {
		s.wg.Add(1)
		go s.watchProfileFile()
	}

	logger.Info("Profile store created",
		zap.String("path", path),
		zap.Int("profile_count", s.Len()),
	)
	return s, nil
}

// ForUser returns the profile for a user, the default profile when the user
// is unknown, or nil when neither exists.
func (s *Store) ForUser(userID string) *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p
	}
	return s.defaults
}

// Len returns the number of per-user profiles loaded.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// Reload re-reads the profile file on demand.
func (s *Store) Reload() error {
	return s.reload()
}

func (s *Store) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse profiles: %w", err)
	}
	if file.Profiles == nil {
		file.Profiles = make(map[string]*Profile)
	}

	s.mu.Lock()
	s.defaults = file.Default
	s.profiles = file.Profiles
	s.mu.Unlock()

	s.logger.Info("Runner profiles loaded", zap.Int("count", len(file.Profiles)))
	return nil
}

func (s *Store) initFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory rather than the file so atomic replacements are
	// still observed.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch profile directory: %w", err)
	}
	// Watching the file itself is best-effort; it may not exist yet.
	_ = watcher.Add(s.path)

	s.watcherMu.Lock()
	s.watcher = watcher
	s.watcherMu.Unlock()
	return nil
}

func (s *Store) watchProfileFile() {
	defer s.wg.Done()

	s.watcherMu.RLock()
	watcher := s.watcher
	s.watcherMu.RUnlock()
	if watcher == nil {
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			s.logger.Info("Profile file changed, reloading", zap.String("file", event.Name))
			// Small delay so the write has finished before we read.
			time.Sleep(100 * time.Millisecond)
			if err := s.reload(); err != nil {
				s.logger.Error("Failed to reload profiles", zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("File watcher error", zap.Error(err))

		case <-s.ctx.Done():
			return
		}
	}
}

// Close stops the watcher and background goroutine.
func (s *Store) Close() error {
	s.cancel()

	s.watcherMu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.watcherMu.Unlock()

	var err error
	if watcher != nil {
		err = watcher.Close()
	}
	s.wg.Wait()
	return err
}
