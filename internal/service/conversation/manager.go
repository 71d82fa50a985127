package conversation

import (
	"context"
	"sync"
	"time"
)

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source for every conversation.
func WithClock(clock Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithExpireHook is called with the user ID of each conversation the janitor clears.
func WithExpireHook(hook func(userID string)) Option {
	return func(m *Manager) { m.onExpire = hook }
}

// WithSweepHook is called after every janitor pass with the active count.
func WithSweepHook(hook func(active int)) Option {
	return func(m *Manager) { m.onSweep = hook }
}

// Manager owns one Conversation per user.
type Manager struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	policy        ExpiryPolicy
	now           Clock
	onExpire      func(userID string)
	onSweep       func(active int)
}

func NewManager(policy ExpiryPolicy, opts ...Option) *Manager {
	m := &Manager{
		conversations: make(map[string]*Conversation),
		policy:        policy,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the user's conversation, creating it on first use.
func (m *Manager) Get(userID string) *Conversation {
	m.mu.RLock()
	c, ok := m.conversations[userID]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.conversations[userID]; ok {
		return c
	}
	c = New(m.policy, m.now)
	m.conversations[userID] = c
	return c
}

// Reset clears the user's context if one exists.
func (m *Manager) Reset(userID string) {
	m.mu.RLock()
	c, ok := m.conversations[userID]
	m.mu.RUnlock()
	if ok {
		c.Reset()
	}
}

// Dispose forgets the user's conversation entirely.
func (m *Manager) Dispose(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, userID)
}

// ActiveCount returns the number of conversations inside their expiry window.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, c := range m.conversations {
		if c.IsActive() {
			count++
		}
	}
	return count
}

// StartJanitor clears expired conversations every interval until ctx is done.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) expireInactive() {
	var expired []string

	m.mu.RLock()
	for userID, c := range m.conversations {
		if c.ExpireIfIdle() {
			expired = append(expired, userID)
		}
	}
	hook, sweep := m.onExpire, m.onSweep
	m.mu.RUnlock()

	if hook != nil {
		for _, userID := range expired {
			hook(userID)
		}
	}
	if sweep != nil {
		sweep(m.ActiveCount())
	}
}
