// Package notify provides the delivery channels for outbox events and a
// registry that builds them from configuration. The pipeline only sees
// core.Notifier; deployments pick a channel kind at startup.
package notify

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Elanstech/barberworld-fulfillment/core"
)

const (
	KindWebhook = "webhook"
	KindLog     = "log"
	KindNoop    = "noop"
)

type ChannelFactory func(settings map[string]any) (core.Notifier, error)

type Registry struct {
	mu        sync.RWMutex
	channels  map[string]core.Notifier
	factories map[string]ChannelFactory
}

func NewRegistry() *Registry {
	return &Registry{
		channels:  map[string]core.Notifier{},
		factories: map[string]ChannelFactory{},
	}
}

// NewDefaultRegistry wires the built-in channels. The log channel delivers
// through the given logger; webhook channels are built per deployment from
// their settings.
func NewDefaultRegistry(logger core.Logger) *Registry {
	registry := NewRegistry()
	_ = registry.Register(KindNoop, NoopChannel{})
	_ = registry.Register(KindLog, LogChannel{Logger: logger})
	_ = registry.RegisterFactory(KindWebhook, webhookChannelFactory)
	return registry
}

func (r *Registry) Register(kind string, channel core.Notifier) error {
	if r == nil {
		return fmt.Errorf("notify: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("notify: channel kind is required")
	}
	if channel == nil {
		return fmt.Errorf("notify: channel is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.channels[kind]; exists {
		return fmt.Errorf("notify: channel kind %q already registered", kind)
	}
	r.channels[kind] = channel
	return nil
}

func (r *Registry) RegisterFactory(kind string, factory ChannelFactory) error {
	if r == nil {
		return fmt.Errorf("notify: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("notify: channel kind is required")
	}
	if factory == nil {
		return fmt.Errorf("notify: channel factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("notify: channel factory kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// Build resolves a channel by kind. Pre-registered instances win; otherwise
// the factory for the kind is invoked with a copy of the settings.
func (r *Registry) Build(kind string, settings map[string]any) (core.Notifier, error) {
	if r == nil {
		return nil, fmt.Errorf("notify: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return nil, fmt.Errorf("notify: channel kind is required")
	}

	r.mu.RLock()
	channel, ok := r.channels[kind]
	factory := r.factories[kind]
	r.mu.RUnlock()
	if ok {
		return channel, nil
	}
	if factory == nil {
		return nil, fmt.Errorf("notify: channel kind %q not registered", kind)
	}
	built, err := factory(cloneSettings(settings))
	if err != nil {
		return nil, err
	}
	if built == nil {
		return nil, fmt.Errorf("notify: factory for %q returned nil channel", kind)
	}
	return built, nil
}

func (r *Registry) Get(kind string) (core.Notifier, bool) {
	if r == nil {
		return nil, false
	}
	kind = normalizeKind(kind)
	r.mu.RLock()
	defer r.mu.RUnlock()
	channel, ok := r.channels[kind]
	return channel, ok
}

func (r *Registry) Kinds() []string {
	if r == nil {
		return []string{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.channels)+len(r.factories))
	for kind := range r.channels {
		kinds = append(kinds, kind)
	}
	for kind := range r.factories {
		if _, exists := r.channels[kind]; !exists {
			kinds = append(kinds, kind)
		}
	}
	sort.Strings(kinds)
	return kinds
}

func webhookChannelFactory(settings map[string]any) (core.Notifier, error) {
	url := strings.TrimSpace(fmt.Sprint(settings["url"]))
	if url == "" || url == "<nil>" {
		return nil, fmt.Errorf("notify: webhook channel requires a url setting")
	}
	secret := ""
	if raw, ok := settings["signing_secret"]; ok {
		secret = strings.TrimSpace(fmt.Sprint(raw))
	}
	return NewWebhookChannel(url, secret, nil), nil
}

func normalizeKind(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}

func cloneSettings(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}
