// Package session holds the observable per-process session state.
//
// State is owned by a single gateway instance per process; callers must
// serialize writes through the gateway's own operations.
package session

import "sync"

// AccountInfo describes the signed-in account.
type AccountInfo struct {
	ID            int64
	UserName      string
	ProfileURL    string
	AvatarURL     string
	SheetmusicURL string
}

// Valid reports whether the account represents a signed-in user.
func (a AccountInfo) Valid() bool {
	return a.ID != 0 && a.UserName != ""
}

// Cell is an observable value. Set notifies subscribers only when the
// value actually changes (value equality, not reference equality).
// Safe for concurrent use; the credential watcher writes from its own
// goroutine. Subscribers run outside the lock, in subscription order.
type Cell[T comparable] struct {
	mu    sync.Mutex
	value T
	subs  []func(T)
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set updates the value and notifies subscribers. Setting an equal value
// is a no-op.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	if c.value == v {
		c.mu.Unlock()
		return
	}
	c.value = v
	fns := append([]func(T){}, c.subs...)
	c.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe registers fn to be called on every change.
func (c *Cell[T]) Subscribe(fn func(T)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// State is the published session state consumed by the rest of the
// application: whether a user is signed in, and who they are.
type State struct {
	account  Cell[AccountInfo]
	signedIn Cell[bool]
}

// NewState creates an empty, signed-out session state.
func NewState() *State {
	return &State{}
}

// Account returns the current account record.
func (s *State) Account() AccountInfo {
	return s.account.Get()
}

// SignedIn reports whether a valid account is present.
func (s *State) SignedIn() bool {
	return s.signedIn.Get()
}

// SetAccount replaces the account record wholesale. Signed-in state is
// derived from the record's validity, so clearing the account also
// deasserts signed-in.
func (s *State) SetAccount(info AccountInfo) {
	s.account.Set(info)
	s.signedIn.Set(info.Valid())
}

// OnAccountChange registers fn for account record changes.
func (s *State) OnAccountChange(fn func(AccountInfo)) {
	s.account.Subscribe(fn)
}

// OnSignedInChange registers fn for signed-in transitions.
func (s *State) OnSignedInChange(fn func(bool)) {
	s.signedIn.Subscribe(fn)
}
