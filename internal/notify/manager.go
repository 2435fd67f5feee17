// Package notify - Notification manager for fan-out to multiple backends
package notify

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Manager manages multiple notification backends
type Manager struct {
	config    Config
	notifiers []Notifier
	mu        sync.RWMutex
	hostname  string
	wg        sync.WaitGroup
}

// NewManager creates a new notification manager with configured backends
func NewManager(config Config) *Manager {
	hostname, _ := os.Hostname()

	m := &Manager{
		config:    config,
		notifiers: make([]Notifier, 0),
		hostname:  hostname,
	}

	if config.WebhookEnabled {
		m.notifiers = append(m.notifiers, NewWebhookNotifier(config))
	}

	return m
}

// AddNotifier adds a custom notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
}

// Notify sends an event to all enabled backends without blocking the caller.
// Use Wait to flush pending deliveries before exiting.
func (m *Manager) Notify(event *Event) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		_ = m.NotifySync(context.Background(), event)
	}()
}

// Wait blocks until all events passed to Notify are delivered
func (m *Manager) Wait() {
	m.wg.Wait()
}

// NotifySync sends an event synchronously to all enabled backends
func (m *Manager) NotifySync(ctx context.Context, event *Event) error {
	if event.Hostname == "" && m.hostname != "" {
		event.Hostname = m.hostname
	}

	if !m.shouldSend(event) {
		return nil
	}

	m.mu.RLock()
	notifiers := make([]Notifier, len(m.notifiers))
	copy(notifiers, m.notifiers)
	m.mu.RUnlock()

	var result *multierror.Error
	var errMu sync.Mutex
	var wg sync.WaitGroup

	for _, n := range notifiers {
		if !n.IsEnabled() {
			continue
		}

		wg.Add(1)
		go func(notifier Notifier) {
			defer wg.Done()
			if err := notifier.Send(ctx, event); err != nil {
				errMu.Lock()
				result = multierror.Append(result, fmt.Errorf("%s: %w", notifier.Name(), err))
				errMu.Unlock()
			}
		}(n)
	}

	wg.Wait()
	return result.ErrorOrNil()
}

// shouldSend determines if an event should be sent based on configuration
func (m *Manager) shouldSend(event *Event) bool {
	if severityOrder(event.Severity) < severityOrder(m.config.MinSeverity) {
		return false
	}

	switch event.Type {
	case EventBackupCompleted, EventRestoreCompleted, EventBackupStarted, EventRestoreStarted, EventToolFound:
		return m.config.OnSuccess
	case EventBackupFailed, EventRestoreFailed, EventToolMissing:
		return m.config.OnFailure
	default:
		return true
	}
}

// EnabledNotifiers returns the names of all enabled notifiers
func (m *Manager) EnabledNotifiers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0)
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			names = append(names, n.Name())
		}
	}
	return names
}
