package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

func NewStaticRawConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	// No validation here: loaded config is one layer of the merge, and the
	// resolver validates the final resolved result.
	cfg, err := cfgx.Build[Config](raw, cfgx.WithDefaults(defaults))
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults, loaded file/env config and runtime
// overrides in ascending precedence.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value, cfgx.WithDefaults(defaults))
	if err != nil {
		return Config{}, err
	}
	// Credentials are checked by whoever builds a component from them, so an
	// assembly with injected collaborators never has to fake a secret.
	if err := resolved.ValidateSettings(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// configToLayerMap emits only explicitly set fields for non-default layers so
// a partial override never wipes values carried by a lower layer.
func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	setString(layer, "service_name", cfg.ServiceName, includeZero)
	setSection(layer, "origin", addressToLayerMap(cfg.Origin, includeZero))
	parcel := map[string]any{}
	setFloat(parcel, "length", cfg.Parcel.Length, includeZero)
	setFloat(parcel, "width", cfg.Parcel.Width, includeZero)
	setFloat(parcel, "height", cfg.Parcel.Height, includeZero)
	setString(parcel, "distance_unit", cfg.Parcel.DistanceUnit, includeZero)
	setFloat(parcel, "weight", cfg.Parcel.Weight, includeZero)
	setString(parcel, "mass_unit", cfg.Parcel.MassUnit, includeZero)
	setSection(layer, "parcel", parcel)

	webhook := map[string]any{}
	setString(webhook, "signing_secret", cfg.Webhook.SigningSecret, includeZero)
	setDuration(webhook, "tolerance", cfg.Webhook.Tolerance, includeZero)
	setSection(layer, "webhook", webhook)

	carrier := map[string]any{}
	setString(carrier, "base_url", cfg.Carrier.BaseURL, includeZero)
	setString(carrier, "api_token", cfg.Carrier.APIToken, includeZero)
	setDuration(carrier, "call_timeout", cfg.Carrier.CallTimeout, includeZero)
	setSection(layer, "carrier", carrier)

	ledger := map[string]any{}
	setDuration(ledger, "retention", cfg.Ledger.Retention, includeZero)
	setSection(layer, "ledger", ledger)
	return layer
}

func addressToLayerMap(addr Address, includeZero bool) map[string]any {
	out := map[string]any{}
	setString(out, "name", addr.Name, includeZero)
	setString(out, "street1", addr.Street1, includeZero)
	setString(out, "street2", addr.Street2, includeZero)
	setString(out, "city", addr.City, includeZero)
	setString(out, "state", addr.State, includeZero)
	setString(out, "postal_code", addr.PostalCode, includeZero)
	setString(out, "country", addr.Country, includeZero)
	setString(out, "phone", addr.Phone, includeZero)
	setString(out, "email", addr.Email, includeZero)
	return out
}

func setSection(layer map[string]any, key string, section map[string]any) {
	if len(section) == 0 {
		return
	}
	layer[key] = section
}

func setString(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = value
	}
}

func setFloat(layer map[string]any, key string, value float64, includeZero bool) {
	if includeZero || value != 0 {
		layer[key] = value
	}
}

func setDuration(layer map[string]any, key string, value time.Duration, includeZero bool) {
	if includeZero || value != 0 {
		layer[key] = value.String()
	}
}
