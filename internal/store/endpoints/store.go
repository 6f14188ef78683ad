// Package endpoints persists the list of discovery targets polled by the
// registry.
package endpoints

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/switchyard/internal/domain"
	"github.com/MrSnakeDoc/switchyard/internal/logger"
	"github.com/MrSnakeDoc/switchyard/internal/utils"
)

// Op identifies the kind of mutation reported to observers.
type Op string

const (
	OpAdd    Op = "add"
	OpEdit   Op = "edit"
	OpDelete Op = "delete"
	OpReload Op = "reload"
)

// Change describes a successful mutation.
type Change struct {
	Op       Op
	Endpoint domain.Endpoint // zero for OpReload
	Count    int             // endpoints after the change
}

// Observer is called after every successful mutation, outside the store lock.
type Observer func(Change)

// document is the on-disk YAML shape.
type document struct {
	Endpoints []domain.Endpoint `yaml:"endpoints"`
}

// Store is a file-backed, ordered list of endpoints.
// Every mutation rewrites the whole file atomically before returning.
type Store struct {
	path   string
	logger logger.Logger
	newID  func() string

	mu    sync.RWMutex
	items []domain.Endpoint

	obsMu     sync.RWMutex
	observers []Observer
}

// Open loads the endpoint file at path, creating its directory if needed.
// When the file does not exist yet, the store is seeded with one endpoint
// per address in seed and persisted.
func Open(path string, seed []string, log logger.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create endpoint directory: %w", err)
	}

	s := &Store{
		path:   path,
		logger: log,
		newID:  func() string { return uuid.NewString() },
	}

	items, err := s.read()
	switch {
	case errors.Is(err, fs.ErrNotExist):
		items = s.seed(seed)
		if err := s.persist(items); err != nil {
			return nil, err
		}
		log.Info("endpoint file created",
			logger.String("path", path),
			logger.Int("seeded", len(items)))
	case err != nil:
		return nil, err
	default:
		normalized, changed := s.normalize(items)
		if changed {
			if err := s.persist(normalized); err != nil {
				return nil, err
			}
		}
		items = normalized
		log.Info("endpoint file loaded",
			logger.String("path", path),
			logger.Int("count", len(items)))
	}

	s.items = items
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// OnChange registers an observer for successful mutations.
func (s *Store) OnChange(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// List returns a copy of all endpoints in insertion order.
func (s *Store) List() []domain.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Get returns the endpoint with the given id.
func (s *Store) Get(id string) (domain.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.items[i], nil
	}
	return domain.Endpoint{}, fmt.Errorf("endpoint %s: %w", id, domain.ErrNotFound)
}

// Add creates an endpoint. An empty address fails with domain.ErrValidation.
func (s *Store) Add(address, label string) (domain.Endpoint, error) {
	address, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.Endpoint{}, err
	}

	ep := domain.Endpoint{
		ID:      s.newID(),
		Address: address,
		Label:   strings.TrimSpace(label),
	}

	s.mu.Lock()
	next := append(slices.Clone(s.items), ep)
	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return domain.Endpoint{}, err
	}
	s.items = next
	s.mu.Unlock()

	s.logger.Info("endpoint added",
		logger.String("id", ep.ID),
		logger.String("address", ep.Address))
	s.notify(Change{Op: OpAdd, Endpoint: ep, Count: len(next)})
	return ep, nil
}

// Edit replaces address and label of an existing endpoint. The id never
// changes. Unknown ids fail with domain.ErrNotFound and leave the store
// untouched.
func (s *Store) Edit(id, address, label string) (domain.Endpoint, error) {
	address, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.Endpoint{}, err
	}

	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Endpoint{}, fmt.Errorf("endpoint %s: %w", id, domain.ErrNotFound)
	}

	next := slices.Clone(s.items)
	next[i].Address = address
	next[i].Label = strings.TrimSpace(label)
	ep := next[i]

	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return domain.Endpoint{}, err
	}
	s.items = next
	s.mu.Unlock()

	s.logger.Info("endpoint edited",
		logger.String("id", ep.ID),
		logger.String("address", ep.Address))
	s.notify(Change{Op: OpEdit, Endpoint: ep, Count: len(next)})
	return ep, nil
}

// Delete removes an endpoint. Unknown ids are a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}

	ep := s.items[i]
	next := slices.Delete(slices.Clone(s.items), i, i+1)
	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.items = next
	s.mu.Unlock()

	s.logger.Info("endpoint deleted",
		logger.String("id", ep.ID),
		logger.String("address", ep.Address))
	s.notify(Change{Op: OpDelete, Endpoint: ep, Count: len(next)})
	return nil
}

// Reload re-reads the file after an external edit. Observers are notified
// only when the content differs from what is in memory. Our own writes
// come back through the watcher and are ignored here.
//
// The file is read under the write lock so a mutation cannot commit
// between the read and the swap.
func (s *Store) Reload() (bool, error) {
	s.mu.Lock()
	items, err := s.read()
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	items, changed := s.normalize(items)

	if slices.Equal(items, s.items) {
		s.mu.Unlock()
		return false, nil
	}
	if changed {
		if err := s.persist(items); err != nil {
			s.mu.Unlock()
			return false, err
		}
	}
	s.items = items
	s.mu.Unlock()

	s.logger.Info("endpoint file reloaded",
		logger.Int("count", len(items)))
	s.notify(Change{Op: OpReload, Count: len(items)})
	return true, nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(e domain.Endpoint) bool { return e.ID == id })
}

func (s *Store) notify(c Change) {
	s.obsMu.RLock()
	observers := slices.Clone(s.observers)
	s.obsMu.RUnlock()

	for _, o := range observers {
		o(c)
	}
}

func (s *Store) seed(addresses []string) []domain.Endpoint {
	items := make([]domain.Endpoint, 0, len(addresses))
	for _, addr := range addresses {
		addr, err := domain.NormalizeAddress(addr)
		if err != nil {
			continue
		}
		items = append(items, domain.Endpoint{ID: s.newID(), Address: addr})
	}
	return items
}

// normalize fixes hand-edited files: entries without an address are
// dropped, entries without an id (or with a duplicate id) get a new one.
func (s *Store) normalize(items []domain.Endpoint) ([]domain.Endpoint, bool) {
	out := make([]domain.Endpoint, 0, len(items))
	seen := make(map[string]bool, len(items))
	changed := false

	for _, ep := range items {
		addr, err := domain.NormalizeAddress(ep.Address)
		if err != nil {
			s.logger.Warn("dropping endpoint without address",
				logger.String("id", ep.ID))
			changed = true
			continue
		}
		if addr != ep.Address {
			ep.Address = addr
			changed = true
		}
		if ep.ID == "" || seen[ep.ID] {
			ep.ID = s.newID()
			changed = true
		}
		seen[ep.ID] = true
		out = append(out, ep)
	}
	return out, changed
}

func (s *Store) read() ([]domain.Endpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read endpoint file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse endpoint file: %w", err)
	}
	if doc.Endpoints == nil {
		doc.Endpoints = []domain.Endpoint{}
	}
	return doc.Endpoints, nil
}

func (s *Store) persist(items []domain.Endpoint) error {
	data, err := yaml.Marshal(document{Endpoints: items})
	if err != nil {
		return fmt.Errorf("failed to encode endpoints: %w", err)
	}
	if err := utils.WriteFileAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to persist endpoints: %w", err)
	}
	return nil
}
