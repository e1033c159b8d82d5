// Package autoreplytest provides an in-memory autoreply.Store for tests.
package autoreplytest

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/Par123456/selfcursor/internal/autoreply"
)

// ErrStoreDown is returned by every call while a MemStore is failing.
var ErrStoreDown = errors.New("store unavailable")

// MemStore is an in-memory autoreply.Store whose calls can be made to fail.
type MemStore struct {
	mu     sync.Mutex
	state  autoreply.State
	nextID int64
	fail   bool
	calls  int
}

// NewMemStore returns an empty store with default settings.
func NewMemStore() *MemStore {
	return &MemStore{state: autoreply.State{Settings: autoreply.DefaultSettings}}
}

// SetFailing makes subsequent calls return ErrStoreDown.
func (s *MemStore) SetFailing(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

// Calls counts every store call made so far.
func (s *MemStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Seed replaces the persisted state, as if a previous run had saved it.
func (s *MemStore) Seed(state autoreply.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	for _, r := range state.Rules {
		s.nextID = max(s.nextID, r.ID)
	}
}

// State returns a copy of what has been persisted.
func (s *MemStore) State() autoreply.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

func (s *MemStore) copyLocked() autoreply.State {
	st := s.state
	st.Ignored = slices.Clone(s.state.Ignored)
	st.Rules = slices.Clone(s.state.Rules)
	return st
}

func (s *MemStore) checkLocked() error {
	s.calls++
	if s.fail {
		return ErrStoreDown
	}
	return nil
}

func (s *MemStore) LoadState(context.Context) (autoreply.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return autoreply.State{}, err
	}
	return s.copyLocked(), nil
}

func (s *MemStore) SaveAfk(_ context.Context, state autoreply.AfkState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}
	s.state.Afk = state
	return nil
}

func (s *MemStore) SaveIgnoreList(_ context.Context, chatIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}
	s.state.Ignored = slices.Clone(chatIDs)
	return nil
}

func (s *MemStore) SaveRule(_ context.Context, rule *autoreply.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}
	for i, r := range s.state.Rules {
		if r.Trigger == rule.Trigger && r.Scope == rule.Scope {
			rule.ID = r.ID
			s.state.Rules[i] = *rule
			return nil
		}
	}
	s.nextID++
	rule.ID = s.nextID
	s.state.Rules = append(s.state.Rules, *rule)
	return nil
}

func (s *MemStore) DeleteRule(_ context.Context, trigger string, scope autoreply.Scope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return 0, err
	}
	before := len(s.state.Rules)
	s.state.Rules = slices.DeleteFunc(s.state.Rules, func(r autoreply.Rule) bool {
		return r.Trigger == trigger && r.Scope == scope
	})
	return before - len(s.state.Rules), nil
}

func (s *MemStore) ClearRules(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return 0, err
	}
	n := len(s.state.Rules)
	s.state.Rules = nil
	return n, nil
}

func (s *MemStore) SaveSettings(_ context.Context, settings autoreply.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkLocked(); err != nil {
		return err
	}
	s.state.Settings = settings
	return nil
}

var _ autoreply.Store = (*MemStore)(nil)
