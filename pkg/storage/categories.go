package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"workspace-client/pkg/models"
)

const (
	// CategoriesKey is the key the custom category list is stored under.
	CategoriesKey = "customCategories"
	// MaxCustomCategories caps the stored list; extra entries are cut from the tail on write.
	MaxCustomCategories = 100
)

var ErrInvalidCategory = errors.New("category id is required")

// CategoryStore is the user's ordered list of custom categories
type CategoryStore struct {
	store Store
	mu    sync.Mutex
}

func NewCategoryStore(store Store) *CategoryStore {
	return &CategoryStore{store: store}
}

// List returns the stored categories. Missing or unreadable data yields an empty list.
func (s *CategoryStore) List() ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Upsert updates the name of an existing id when a non-empty name is given, otherwise appends.
func (s *CategoryStore) Upsert(c models.Category) ([]models.Category, error) {
	id := strings.TrimSpace(c.ID)
	if id == "" {
		return nil, ErrInvalidCategory
	}
	name := strings.TrimSpace(c.Name)

	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read()
	if err != nil {
		return nil, err
	}
	found := false
	for i := range list {
		if list[i].ID == id {
			if name != "" {
				list[i].Name = name
			}
			found = true
			break
		}
	}
	if !found {
		list = append(list, models.Category{ID: id, Name: name})
	}
	return s.write(list)
}

// EnsureAll appends every category whose id is not stored yet, keeping existing names.
func (s *CategoryStore) EnsureAll(cs []models.Category) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(list))
	for _, c := range list {
		seen[c.ID] = true
	}
	for _, c := range cs {
		id := strings.TrimSpace(c.ID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		list = append(list, models.Category{ID: id, Name: strings.TrimSpace(c.Name)})
	}
	return s.write(list)
}

// Remove drops id from the list; unknown ids are ignored.
func (s *CategoryStore) Remove(id string) ([]models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, err := s.read()
	if err != nil {
		return nil, err
	}
	out := list[:0]
	for _, c := range list {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return s.write(out)
}

func (s *CategoryStore) read() ([]models.Category, error) {
	raw, err := s.store.Get(CategoriesKey)
	if errors.Is(err, ErrNotFound) {
		return []models.Category{}, nil
	}
	if err != nil {
		return nil, err
	}
	var list []models.Category
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return []models.Category{}, nil
	}
	return list, nil
}

func (s *CategoryStore) write(list []models.Category) ([]models.Category, error) {
	if len(list) > MaxCustomCategories {
		list = list[:MaxCustomCategories]
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	if err := s.store.Set(CategoriesKey, string(data)); err != nil {
		return nil, fmt.Errorf("save categories: %w", err)
	}
	return list, nil
}
