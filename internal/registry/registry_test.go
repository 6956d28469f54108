package registry

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/sablalpz/GreenEnergy-Insights/pkg/plugin"
)

// fakeModule is a minimal plugin.Plugin for lifecycle tests.
type fakeModule struct {
	info    plugin.PluginInfo
	initErr error
	inits   *[]string
	stops   *[]string
	subs    []plugin.Subscription
}

func (f *fakeModule) Info() plugin.PluginInfo { return f.info }

func (f *fakeModule) Init(ctx context.Context, deps plugin.Dependencies) error {
	if f.inits != nil {
		*f.inits = append(*f.inits, f.info.Name)
	}
	return f.initErr
}

func (f *fakeModule) Start(ctx context.Context) error { return nil }

func (f *fakeModule) Stop(ctx context.Context) error {
	if f.stops != nil {
		*f.stops = append(*f.stops, f.info.Name)
	}
	return nil
}

func (f *fakeModule) Subscriptions() []plugin.Subscription { return f.subs }

func fake(name string, deps []string, required bool) *fakeModule {
	return &fakeModule{info: plugin.PluginInfo{
		Name:         name,
		Version:      "1.0.0",
		Dependencies: deps,
		Required:     required,
		APIVersion:   plugin.APIVersionCurrent,
	}}
}

func noDeps(name string) plugin.Dependencies {
	return plugin.Dependencies{}
}

func TestRegister_Duplicate(t *testing.T) {
	r := New(zap.NewNop())

	if err := r.Register(fake("ingest", nil, true)); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(fake("ingest", nil, true)); err == nil {
		t.Fatal("expected error on duplicate registration")
	}
}

func TestRegister_EmptyName(t *testing.T) {
	r := New(zap.NewNop())
	if err := r.Register(fake("", nil, true)); err == nil {
		t.Fatal("expected error for empty module name")
	}
}

func TestValidate_TopologicalOrder(t *testing.T) {
	r := New(zap.NewNop())

	// Register in reverse dependency order; Validate must still init
	// ingest before motor.
	if err := r.Register(fake("motor", []string{"ingest"}, true)); err != nil {
		t.Fatalf("register motor: %v", err)
	}
	if err := r.Register(fake("ingest", nil, true)); err != nil {
		t.Fatalf("register ingest: %v", err)
	}

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var inits []string
	for _, p := range r.All() {
		p.(*fakeModule).inits = &inits
	}
	if err := r.InitAll(context.Background(), noDeps); err != nil {
		t.Fatalf("InitAll: %v", err)
	}

	if len(inits) != 2 || inits[0] != "ingest" || inits[1] != "motor" {
		t.Errorf("init order = %v, want [ingest motor]", inits)
	}
}

func TestValidate_MissingDependencyRequired(t *testing.T) {
	r := New(zap.NewNop())

	if err := r.Register(fake("motor", []string{"ingest"}, true)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for missing dependency of a required module")
	}
}

func TestValidate_MissingDependencyOptionalDisables(t *testing.T) {
	r := New(zap.NewNop())

	if err := r.Register(fake("extras", []string{"nope"}, false)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !r.IsDisabled("extras") {
		t.Error("expected optional module with missing dependency to be disabled")
	}
}

func TestValidate_CascadeDisable(t *testing.T) {
	r := New(zap.NewNop())

	// base is missing its dep, so it gets disabled; child depends on base
	// and must be cascade disabled.
	if err := r.Register(fake("base", []string{"missing"}, false)); err != nil {
		t.Fatalf("register base: %v", err)
	}
	if err := r.Register(fake("child", []string{"base"}, false)); err != nil {
		t.Fatalf("register child: %v", err)
	}

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !r.IsDisabled("base") || !r.IsDisabled("child") {
		t.Errorf("expected both disabled: base=%v child=%v",
			r.IsDisabled("base"), r.IsDisabled("child"))
	}
}

func TestValidate_CycleDetected(t *testing.T) {
	r := New(zap.NewNop())

	if err := r.Register(fake("a", []string{"b"}, true)); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := r.Register(fake("b", []string{"a"}, true)); err != nil {
		t.Fatalf("register b: %v", err)
	}

	if err := r.Validate(); err == nil {
		t.Fatal("expected cycle detection error")
	}
}

func TestValidate_APIVersionIncompatible(t *testing.T) {
	r := New(zap.NewNop())

	m := fake("future", nil, true)
	m.info.APIVersion = plugin.APIVersionCurrent + 1
	if err := r.Register(m); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for incompatible API version on required module")
	}
}

func TestInitAll_RequiredFailureAborts(t *testing.T) {
	r := New(zap.NewNop())

	boom := errors.New("boom")
	m := fake("ingest", nil, true)
	m.initErr = boom
	if err := r.Register(m); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	err := r.InitAll(context.Background(), noDeps)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestInitAll_OptionalFailureDisables(t *testing.T) {
	r := New(zap.NewNop())

	m := fake("extras", nil, false)
	m.initErr = errors.New("boom")
	if err := r.Register(m); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if err := r.InitAll(context.Background(), noDeps); err != nil {
		t.Fatalf("InitAll: %v", err)
	}
	if !r.IsDisabled("extras") {
		t.Error("expected failing optional module to be disabled")
	}
}

func TestStopAll_ReverseOrder(t *testing.T) {
	r := New(zap.NewNop())

	var stops []string
	ingest := fake("ingest", nil, true)
	ingest.stops = &stops
	motor := fake("motor", []string{"ingest"}, true)
	motor.stops = &stops

	for _, m := range []*fakeModule{ingest, motor} {
		if err := r.Register(m); err != nil {
			t.Fatalf("register %s: %v", m.info.Name, err)
		}
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	r.StopAll(context.Background())

	if len(stops) != 2 || stops[0] != "motor" || stops[1] != "ingest" {
		t.Errorf("stop order = %v, want [motor ingest]", stops)
	}
}

func TestGet_DisabledModuleHidden(t *testing.T) {
	r := New(zap.NewNop())

	if err := r.Register(fake("extras", []string{"missing"}, false)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if _, ok := r.Get("extras"); ok {
		t.Error("expected disabled module to be hidden from Get")
	}
}

type recordingBus struct {
	topics []string
}

func (b *recordingBus) Publish(ctx context.Context, e plugin.Event) error { return nil }
func (b *recordingBus) PublishAsync(ctx context.Context, e plugin.Event)  {}
func (b *recordingBus) Subscribe(topic string, h plugin.EventHandler) func() {
	b.topics = append(b.topics, topic)
	return func() {}
}

func TestWireSubscriptions(t *testing.T) {
	r := New(zap.NewNop())

	m := fake("motor", nil, true)
	m.subs = []plugin.Subscription{
		{Topic: "ingest.batch.stored", Handler: func(ctx context.Context, e plugin.Event) {}},
	}
	if err := r.Register(m); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bus := &recordingBus{}
	r.WireSubscriptions(bus)

	if len(bus.topics) != 1 || bus.topics[0] != "ingest.batch.stored" {
		t.Errorf("wired topics = %v, want [ingest.batch.stored]", bus.topics)
	}
}
