package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// cacheEntry stores an entity with metadata about when it was cached.
type cacheEntry struct {
	entity   *Entity
	loadedAt time.Time
}

// Store provides access to the entities in a vault directory. Entities
// are cached by path and reloaded when the file on disk is newer.
type Store struct {
	baseDir string
	logger  *log.Logger

	mu    sync.RWMutex
	cache map[string]*cacheEntry
	// names maps display name to the vault paths carrying it, sorted.
	// Lazily built; invalidated whenever a new path is saved.
	names      map[string][]string
	namesStale bool
}

// NewStore creates a store rooted at baseDir.
func NewStore(baseDir string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		baseDir:    baseDir,
		logger:     logger,
		cache:      make(map[string]*cacheEntry),
		namesStale: true,
	}
}

// BaseDir returns the vault root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Load loads an entity by vault-relative path.
func (s *Store) Load(path string) (*Entity, error) {
	filePath := filepath.Join(s.baseDir, path)

	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat entity file %s: %w", path, err)
	}
	fileModTime := fileInfo.ModTime()

	s.mu.RLock()
	if cached, ok := s.cache[path]; ok {
		if !cached.loadedAt.Before(fileModTime) {
			s.mu.RUnlock()
			return cached.entity, nil
		}
	}
	s.mu.RUnlock()

	entity, err := LoadEntityFromFile(s.baseDir, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", path, err)
	}

	s.mu.Lock()
	s.cache[path] = &cacheEntry{entity: entity, loadedAt: time.Now()}
	s.mu.Unlock()

	return entity, nil
}

// Save persists an entity and stamps its updated timestamp. Saving a
// path the store has not seen before invalidates the name index.
func (s *Store) Save(entity *Entity) error {
	if err := entity.Validate(); err != nil {
		return fmt.Errorf("invalid entity: %w", err)
	}

	entity.Frontmatter.Updated = time.Now()

	if err := SaveEntityToFile(entity, s.baseDir); err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}

	s.mu.Lock()
	if _, known := s.cache[entity.Path]; !known {
		s.namesStale = true
	}
	s.cache[entity.Path] = &cacheEntry{entity: entity, loadedAt: time.Now()}
	s.mu.Unlock()

	return nil
}

// Create writes a new entity file, assigning a fresh uid. It refuses
// to overwrite an existing file.
func (s *Store) Create(entity *Entity) error {
	if s.Exists(entity.Path) {
		return fmt.Errorf("entity %s already exists", entity.Path)
	}

	uid, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate uid: %w", err)
	}
	entity.Frontmatter.UID = uid

	now := time.Now()
	entity.Frontmatter.Created = now

	s.mu.Lock()
	s.namesStale = true
	s.mu.Unlock()

	s.logger.Debug("creating entity", "path", entity.Path, "type", entity.Frontmatter.Type)
	return s.Save(entity)
}

// Exists checks whether an entity file is present at the given path.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(filepath.Join(s.baseDir, path))
	return err == nil
}

// FindByDisplayName resolves a display name to an entity. Returns
// (nil, nil) when no entity carries the name. When several files share
// the name, the one whose vault path sorts first wins; ties are broken
// the same way on every call.
func (s *Store) FindByDisplayName(name string) (*Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	if err := s.refreshNames(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	paths := s.names[name]
	s.mu.RUnlock()

	if len(paths) == 0 {
		return nil, nil
	}
	if len(paths) > 1 {
		s.logger.Debug("ambiguous display name", "name", name, "matches", len(paths), "using", paths[0])
	}
	return s.Load(paths[0])
}

// ListByType returns all entities of a given type, ordered by path.
func (s *Store) ListByType(entityType EntityType) ([]*Entity, error) {
	entities, err := s.ListAll()
	if err != nil {
		return nil, err
	}

	filtered := entities[:0]
	for _, entity := range entities {
		if entity.Frontmatter.Type == entityType {
			filtered = append(filtered, entity)
		}
	}
	return filtered, nil
}

// ListAll returns every entity in the vault, ordered by path.
func (s *Store) ListAll() ([]*Entity, error) {
	paths, err := s.walkPaths()
	if err != nil {
		return nil, err
	}

	entities := make([]*Entity, 0, len(paths))
	for _, path := range paths {
		entity, err := s.Load(path)
		if err != nil {
			// Skip files that don't parse; the vault may hold
			// non-tracker markdown.
			s.logger.Warn("skipping unreadable entity", "path", path, "err", err)
			continue
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// ClearCache drops the in-memory entity cache and name index.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string]*cacheEntry)
	s.namesStale = true
	s.mu.Unlock()
}

// walkPaths lists every markdown file in the vault, sorted.
func (s *Store) walkPaths() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk vault directory: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// refreshNames rebuilds the display-name index when stale.
func (s *Store) refreshNames() error {
	s.mu.RLock()
	stale := s.namesStale
	s.mu.RUnlock()
	if !stale {
		return nil
	}

	paths, err := s.walkPaths()
	if err != nil {
		return err
	}

	names := make(map[string][]string)
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".md")
		names[name] = append(names[name], path)
	}

	s.mu.Lock()
	s.names = names
	s.namesStale = false
	s.mu.Unlock()
	return nil
}
