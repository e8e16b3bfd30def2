// Package notifier delivers alert messages over email, SMS and Telegram.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hivewatch/alerts/internal/models"
)

// ErrNotConfigured marks a channel whose provider credentials are missing.
var ErrNotConfigured = errors.New("not configured")

// Message is the provider-agnostic content of one alert notification.
// Subject and Details are only used by email.
type Message struct {
	Subject string
	Body    string
	Details []Detail
}

// Detail is a labelled value shown under the email body.
type Detail struct {
	Label string
	Value string
}

// Result is the outcome of a single send. Provider failures are reported
// here rather than as Go errors.
type Result struct {
	Success    bool
	ExternalID string
	Error      string
}

// Sent builds a successful Result.
func Sent(externalID string) Result {
	return Result{Success: true, ExternalID: externalID}
}

// Failed builds a failed Result from err.
func Failed(err error) Result {
	if err == nil {
		return Result{Error: "unknown error"}
	}
	return Result{Error: err.Error()}
}

// Sender is implemented by every channel provider.
type Sender interface {
	// Channel returns the channel this sender delivers on.
	Channel() models.ChannelKind
	// Send delivers msg to destination.
	Send(ctx context.Context, destination string, msg Message) Result
	// Close releases any resources.
	Close() error
}

// Registry holds one sender per channel.
type Registry struct {
	mu      sync.RWMutex
	senders map[models.ChannelKind]Sender
}

// NewRegistry creates a registry with the given senders.
func NewRegistry(senders ...Sender) *Registry {
	r := &Registry{senders: make(map[models.ChannelKind]Sender)}
	for _, s := range senders {
		r.Register(s)
	}
	return r
}

// Register adds s, replacing any sender for the same channel.
func (r *Registry) Register(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[s.Channel()] = s
}

// Lookup returns the sender for kind.
func (r *Registry) Lookup(kind models.ChannelKind) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[kind]
	return s, ok
}

// Channels returns the registered channel kinds in fan-out order.
func (r *Registry) Channels() []models.ChannelKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var kinds []models.ChannelKind
	for _, k := range models.ChannelKinds {
		if _, ok := r.senders[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Close closes all registered senders.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for kind, s := range r.senders {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kind, err))
		}
	}
	r.senders = make(map[models.ChannelKind]Sender)
	return errors.Join(errs...)
}

// disabledSender stands in for a provider without credentials.
type disabledSender struct {
	kind     models.ChannelKind
	provider string
}

// NewDisabledSender returns a sender whose every send fails with
// "<provider> not configured".
func NewDisabledSender(kind models.ChannelKind, provider string) Sender {
	return &disabledSender{kind: kind, provider: provider}
}

func (d *disabledSender) Channel() models.ChannelKind { return d.kind }

func (d *disabledSender) Send(context.Context, string, Message) Result {
	return Failed(fmt.Errorf("%s %w", d.provider, ErrNotConfigured))
}

func (d *disabledSender) Close() error { return nil }
