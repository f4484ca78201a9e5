package barberworld

import (
	"testing"

	"github.com/Elanstech/barberworld-fulfillment/core"
	"github.com/Elanstech/barberworld-fulfillment/notify"
)

func TestExtensionHooks_RegisterAndApplyChannelPacks(t *testing.T) {
	hooks := NewExtensionHooks()
	pack := ChannelPack{
		Name: "sms-pack",
		Channels: map[string]notify.ChannelFactory{
			"sms": func(map[string]any) (core.Notifier, error) {
				return notify.NoopChannel{}, nil
			},
		},
	}
	if err := hooks.RegisterChannelPack(pack); err != nil {
		t.Fatalf("register channel pack: %v", err)
	}
	if err := hooks.RegisterChannelPack(pack); err == nil {
		t.Fatalf("expected duplicate channel pack registration error")
	}

	registry := notify.NewRegistry()
	if err := hooks.ApplyChannelPacks(registry); err != nil {
		t.Fatalf("apply channel packs: %v", err)
	}
	if _, err := registry.Build("sms", nil); err != nil {
		t.Fatalf("expected contributed channel to be buildable: %v", err)
	}
}

func TestExtensionHooks_RejectsInvalidChannelPacks(t *testing.T) {
	hooks := NewExtensionHooks()
	if err := hooks.RegisterChannelPack(ChannelPack{Name: "empty"}); err == nil {
		t.Fatalf("expected pack without channels to be rejected")
	}
	if err := hooks.RegisterChannelPack(ChannelPack{
		Name:     "nil-factory",
		Channels: map[string]notify.ChannelFactory{"sms": nil},
	}); err == nil {
		t.Fatalf("expected pack with nil factory to be rejected")
	}
}

func TestExtensionHooks_CommandQueryBundles(t *testing.T) {
	hooks := NewExtensionHooks()
	if err := hooks.RegisterCommandQueryBundle("orders_bundle", func(service CommandQueryService) (any, error) {
		return map[string]any{
			"get_fulfillment_fn": service.GetFulfillment,
			"purge_ledger_fn":    service.PurgeLedger,
		}, nil
	}); err != nil {
		t.Fatalf("register bundle: %v", err)
	}
	if err := hooks.RegisterCommandQueryBundle("orders_bundle", func(CommandQueryService) (any, error) { return nil, nil }); err == nil {
		t.Fatalf("expected duplicate bundle registration error")
	}

	names := hooks.BundleNames()
	if len(names) != 1 || names[0] != "orders_bundle" {
		t.Fatalf("unexpected bundle names %v", names)
	}

	svc := &stubFacadeService{
		store:  core.NewMemoryFulfillmentStore(),
		ledger: core.NewMemoryDeliveryLedger(),
	}
	bundles, err := hooks.BuildCommandQueryBundles(svc)
	if err != nil {
		t.Fatalf("build bundles: %v", err)
	}
	if len(bundles) != 1 {
		t.Fatalf("expected one bundle, got %d", len(bundles))
	}
	if _, ok := bundles["orders_bundle"]; !ok {
		t.Fatalf("expected orders_bundle entry in built bundles")
	}

	if _, err := hooks.BuildCommandQueryBundles(nil); err == nil {
		t.Fatalf("expected nil service to be rejected")
	}
}
