package barberworld

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Elanstech/barberworld-fulfillment/notify"
)

// ChannelPack bundles notification channel factories an embedder contributes,
// keyed by channel kind.
type ChannelPack struct {
	Name     string
	Channels map[string]notify.ChannelFactory
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks collects embedder contributions before the runtime is
// assembled: extra notification channels and command/query bundles built on
// top of the pipeline.
type ExtensionHooks struct {
	mu sync.RWMutex

	channelPacks map[string]ChannelPack
	bundles      map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		channelPacks: map[string]ChannelPack{},
		bundles:      map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterChannelPack(pack ChannelPack) error {
	if h == nil {
		return fmt.Errorf("barberworld: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("barberworld: channel pack name is required")
	}
	if len(pack.Channels) == 0 {
		return fmt.Errorf("barberworld: channel pack %q has no channels", name)
	}

	normalized := ChannelPack{
		Name:     name,
		Channels: make(map[string]notify.ChannelFactory, len(pack.Channels)),
	}
	for kind, factory := range pack.Channels {
		kind = strings.TrimSpace(strings.ToLower(kind))
		if kind == "" {
			return fmt.Errorf("barberworld: channel pack %q has a channel without a kind", name)
		}
		if factory == nil {
			return fmt.Errorf("barberworld: channel pack %q has nil factory for kind %q", name, kind)
		}
		normalized.Channels[kind] = factory
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.channelPacks[name]; exists {
		return fmt.Errorf("barberworld: channel pack %q already registered", name)
	}
	h.channelPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("barberworld: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("barberworld: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("barberworld: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("barberworld: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyChannelPacks registers every contributed channel factory on the given
// registry. Packs are applied in name order so conflicts are deterministic.
func (h *ExtensionHooks) ApplyChannelPacks(registry *notify.Registry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("barberworld: channel registry is required")
	}

	for _, pack := range h.ChannelPacks() {
		kinds := make([]string, 0, len(pack.Channels))
		for kind := range pack.Channels {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			if err := registry.RegisterFactory(kind, pack.Channels[kind]); err != nil {
				return fmt.Errorf("barberworld: apply channel pack %q: %w", pack.Name, err)
			}
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("barberworld: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) ChannelPacks() []ChannelPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.channelPacks))
	for name := range h.channelPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ChannelPack, 0, len(names))
	for _, name := range names {
		pack := h.channelPacks[name]
		channels := make(map[string]notify.ChannelFactory, len(pack.Channels))
		for kind, factory := range pack.Channels {
			channels[kind] = factory
		}
		out = append(out, ChannelPack{Name: pack.Name, Channels: channels})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
