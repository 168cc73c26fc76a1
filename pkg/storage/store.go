// Package storage is the client's local key-value persistence: one Store capability
// with cookie, file, memory and Postgres backends, and a Chain that picks backends by availability.
package storage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no backend holds the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a string key-value capability
type Store interface {
	// Name identifies the backend in logs.
	Name() string
	// Available reports whether the backend can currently serve reads and writes.
	Available() bool
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// ChainStore mirrors writes to every available backend and serves reads from the first one holding the key.
type ChainStore struct {
	stores []Store
}

// Chain builds a ChainStore; nil stores are skipped. Order is read priority.
func Chain(stores ...Store) *ChainStore {
	c := &ChainStore{}
	for _, s := range stores {
		if s != nil {
			c.stores = append(c.stores, s)
		}
	}
	return c
}

func (c *ChainStore) Name() string {
	names := make([]string, 0, len(c.stores))
	for _, s := range c.stores {
		names = append(names, s.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c *ChainStore) Available() bool {
	for _, s := range c.stores {
		if s.Available() {
			return true
		}
	}
	return false
}

func (c *ChainStore) Get(key string) (string, error) {
	var errs []error
	for _, s := range c.stores {
		if !s.Available() {
			continue
		}
		v, err := s.Get(key)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(append([]error{ErrNotFound}, errs...)...)
	}
	return "", ErrNotFound
}

// Set succeeds when at least one available backend accepted the write.
func (c *ChainStore) Set(key, value string) error {
	return c.each(func(s Store) error { return s.Set(key, value) })
}

func (c *ChainStore) Delete(key string) error {
	return c.each(func(s Store) error { return s.Delete(key) })
}

func (c *ChainStore) each(fn func(Store) error) error {
	var errs []error
	wrote := false
	for _, s := range c.stores {
		if !s.Available() {
			continue
		}
		if err := fn(s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		wrote = true
	}
	if wrote {
		return nil
	}
	if len(errs) == 0 {
		return errors.New("storage: no available backend")
	}
	return errors.Join(errs...)
}
