package editor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"reactorcad/cad"
)

type stubModule struct {
	params    cad.Parameters
	calls     []string
	inputs    []cad.SideIO
	outputs   []cad.SideIO
	topInlets []cad.TopInlet

	attachOutputErr error
	inletErr        error
	placeErr        error
}

func newStubModule(p cad.Parameters) *stubModule {
	return &stubModule{
		params:  p,
		outputs: []cad.SideIO{{Name: cad.DefaultOutputName, Diameter: 3}},
	}
}

func (m *stubModule) Parameters() cad.Parameters { return m.params }
func (m *stubModule) Snapshot() string           { return fmt.Sprintf("%+v", m.params) }

func (m *stubModule) SetRadius(r float64) error {
	m.calls = append(m.calls, "SetRadius")
	m.params.Radius = r
	m.params.RadiusConstrained = true
	return nil
}

func (m *stubModule) SetRadiusConstrained(constrained bool) error {
	m.calls = append(m.calls, "SetRadiusConstrained")
	m.params.RadiusConstrained = constrained
	return nil
}

func (m *stubModule) Apply(p cad.Parameters) error {
	m.calls = append(m.calls, "Apply")
	radius, constrained := m.params.Radius, m.params.RadiusConstrained
	m.params = p
	m.params.Radius, m.params.RadiusConstrained = radius, constrained
	return nil
}

func (m *stubModule) AttachInput(io cad.SideIO) error {
	m.inputs = append(m.inputs, io)
	return nil
}

func (m *stubModule) AttachOutput(io cad.SideIO) error {
	if m.attachOutputErr != nil {
		return m.attachOutputErr
	}
	m.outputs = append(m.outputs, io)
	return nil
}

func (m *stubModule) AttachTopInlet(io cad.TopInlet) error {
	if m.inletErr != nil {
		return m.inletErr
	}
	m.topInlets = append(m.topInlets, io)
	return nil
}

func (m *stubModule) DetachInput(name string) error {
	for i, io := range m.inputs {
		if io.Name == name {
			m.inputs = append(m.inputs[:i], m.inputs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no input %q", name)
}

func (m *stubModule) DetachOutput(name string) error {
	for i, io := range m.outputs {
		if io.Name == name {
			m.outputs = append(m.outputs[:i], m.outputs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no output %q", name)
}

func (m *stubModule) DetachTopInlet(name string) error {
	for i, io := range m.topInlets {
		if io.Name == name {
			m.topInlets = append(m.topInlets[:i], m.topInlets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no top inlet %q", name)
}

func (m *stubModule) AutoPlaceTopInlets() error {
	m.calls = append(m.calls, "AutoPlaceTopInlets")
	return m.placeErr
}

func (m *stubModule) Inputs() []cad.SideIO      { return m.inputs }
func (m *stubModule) Outputs() []cad.SideIO     { return m.outputs }
func (m *stubModule) TopInlets() []cad.TopInlet { return m.topInlets }

func (m *stubModule) HeightFraction(kind cad.SidePortKind, io cad.SideIO) (float64, error) {
	ports := m.inputs
	if kind == cad.SidePortOutput {
		ports = m.outputs
	}
	for _, port := range ports {
		if port.Name == io.Name {
			return port.HeightFraction, nil
		}
	}
	return 0, fmt.Errorf("no side %s %q", kind, io.Name)
}

type stubConstructor struct {
	err     error
	prepare func(*stubModule)
	built   []*stubModule
}

func (c *stubConstructor) Construct(p cad.Parameters) (cad.Module, error) {
	if c.err != nil {
		return nil, c.err
	}
	m := newStubModule(p)
	if c.prepare != nil {
		c.prepare(m)
	}
	c.built = append(c.built, m)
	return m, nil
}

type stubValidatingConstructor struct {
	stubConstructor
	validateErr   error
	validateCalls int
}

func (c *stubValidatingConstructor) Validate(p cad.Parameters) error {
	c.validateCalls++
	return c.validateErr
}

type stubAssembly struct {
	built      []cad.Module
	deleted    []cad.Module
	refreshes  int
	refreshErr error
}

func (a *stubAssembly) BuildModule(m cad.Module) error {
	a.built = append(a.built, m)
	return nil
}

func (a *stubAssembly) DeleteModule(m cad.Module) error {
	a.deleted = append(a.deleted, m)
	return nil
}

func (a *stubAssembly) Refresh() error {
	a.refreshes++
	return a.refreshErr
}

func TestCreateRegistersModuleAndIO(t *testing.T) {
	ctor := &stubConstructor{}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	store := newTestStore(t)

	reg := NewRegistry(zerolog.Nop(), nil)
	if err := reg.AddInput(sideIO("feed", 0.8)); err != nil {
		t.Fatalf("add input: %v", err)
	}
	if err := reg.AddOutput(sideIO("drain", 0.1)); err != nil {
		t.Fatalf("add output: %v", err)
	}

	result, err := engine.Create(store, reg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(asm.built) != 1 || asm.built[0] != result.Module {
		t.Fatalf("module not registered, built %d", len(asm.built))
	}
	module := result.Module.(*stubModule)
	if len(module.inputs) != 1 || module.inputs[0].Name != "feed" {
		t.Fatalf("unexpected inputs %+v", module.inputs)
	}
	// The default output is created by the module, never attached twice.
	if len(module.outputs) != 2 {
		t.Fatalf("expected default plus drain, got %+v", module.outputs)
	}
}

func TestCreateFailureLeavesNothingBehind(t *testing.T) {
	ctor := &stubConstructor{err: &cad.ConstructionError{Reason: "volume must be positive"}}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	store := newTestStore(t)

	_, err := engine.Create(store, NewRegistry(zerolog.Nop(), nil))
	var commitErr *CommitError
	if !errors.As(err, &commitErr) || commitErr.Stage != StageConstruct {
		t.Fatalf("expected construct-stage error, got %v", err)
	}
	if !cad.IsConstruction(err) {
		t.Fatalf("cause must stay unwrappable, got %v", err)
	}
	if len(asm.built) != 0 {
		t.Fatal("failed create must not register a module")
	}
}

func TestCreateIOFailureDiscardsModule(t *testing.T) {
	ctor := &stubConstructor{prepare: func(m *stubModule) {
		m.attachOutputErr = fmt.Errorf("wall too thin")
	}}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	store := newTestStore(t)

	reg := NewRegistry(zerolog.Nop(), nil)
	if err := reg.AddOutput(sideIO("drain", 0.1)); err != nil {
		t.Fatalf("add output: %v", err)
	}
	_, err := engine.Create(store, reg)
	var commitErr *CommitError
	if !errors.As(err, &commitErr) || commitErr.Stage != StageIO {
		t.Fatalf("expected io-stage error, got %v", err)
	}
	if len(asm.built) != 0 {
		t.Fatal("failed create must not register a module")
	}
}

func TestUpdateValidationFailureLeavesModuleUntouched(t *testing.T) {
	ctor := &stubValidatingConstructor{validateErr: &cad.ConstructionError{Reason: "filter too large"}}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	store := newTestStore(t)
	live := newStubModule(store.Snapshot())

	_, err := engine.Update(live, store, NewRegistry(zerolog.Nop(), nil))
	var commitErr *CommitError
	if !errors.As(err, &commitErr) || commitErr.Stage != StageValidate {
		t.Fatalf("expected validate-stage error, got %v", err)
	}
	if ctor.validateCalls != 1 {
		t.Fatalf("expected one validation call, got %d", ctor.validateCalls)
	}
	if len(live.calls) != 0 {
		t.Fatalf("live module must stay untouched, saw %v", live.calls)
	}
	if asm.refreshes != 0 {
		t.Fatal("failed update must not refresh")
	}
}

func TestUpdateFallsBackToDisposableBuild(t *testing.T) {
	ctor := &stubConstructor{}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	store := newTestStore(t)
	live := newStubModule(store.Snapshot())

	if _, err := engine.Update(live, store, NewRegistry(zerolog.Nop(), nil)); err != nil {
		t.Fatalf("update: %v", err)
	}
	// One throw-away construction for validation, none registered.
	if len(ctor.built) != 1 {
		t.Fatalf("expected one disposable build, got %d", len(ctor.built))
	}
	if len(asm.built) != 0 {
		t.Fatal("disposable build must not be registered")
	}
	if asm.refreshes != 1 {
		t.Fatalf("expected one refresh, got %d", asm.refreshes)
	}
}

func TestUpdateAppliesRadiusBeforeScalars(t *testing.T) {
	ctor := &stubValidatingConstructor{}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)

	store := newTestStore(t)
	if err := store.SetRadiusConstrained(true); err != nil {
		t.Fatalf("enable constraint: %v", err)
	}
	if err := store.SetRadius(12); err != nil {
		t.Fatalf("set radius: %v", err)
	}
	live := newStubModule(store.Snapshot())

	if _, err := engine.Update(live, store, NewRegistry(zerolog.Nop(), nil)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(live.calls) < 2 || live.calls[0] != "SetRadius" || live.calls[1] != "Apply" {
		t.Fatalf("unexpected call order %v", live.calls)
	}
}

func TestUpdateReleasesConstraintWhenUnconstrained(t *testing.T) {
	ctor := &stubValidatingConstructor{}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	store := newTestStore(t)
	live := newStubModule(store.Snapshot())
	live.params.RadiusConstrained = true

	if _, err := engine.Update(live, store, NewRegistry(zerolog.Nop(), nil)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(live.calls) < 2 || live.calls[0] != "SetRadiusConstrained" || live.calls[1] != "Apply" {
		t.Fatalf("unexpected call order %v", live.calls)
	}
	if live.params.RadiusConstrained {
		t.Fatal("constraint must be released")
	}
}

func TestUpdateIOFailureKeepsScalars(t *testing.T) {
	ctor := &stubValidatingConstructor{}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)

	store := newTestStore(t)
	if err := store.SetVolume(42); err != nil {
		t.Fatalf("set volume: %v", err)
	}
	live := newStubModule(cad.Parameters{Volume: 20, TopType: "open", BottomType: "flat"})
	live.attachOutputErr = fmt.Errorf("wall too thin")

	reg := NewRegistry(zerolog.Nop(), nil)
	if err := reg.AddOutput(sideIO("drain", 0.1)); err != nil {
		t.Fatalf("add output: %v", err)
	}

	result, err := engine.Update(live, store, reg)
	var commitErr *CommitError
	if !errors.As(err, &commitErr) || commitErr.Stage != StageIO {
		t.Fatalf("expected io-stage error, got %v", err)
	}
	if result == nil || result.Module != live {
		t.Fatal("partial result must carry the live module")
	}
	if live.params.Volume != 42 {
		t.Fatalf("scalars must stay committed, got volume %v", live.params.Volume)
	}
	if asm.refreshes != 0 {
		t.Fatal("failed io stage must not refresh")
	}
}

func TestUpdateDetachesStalePortsButKeepsDefault(t *testing.T) {
	ctor := &stubValidatingConstructor{}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	store := newTestStore(t)

	live := newStubModule(store.Snapshot())
	live.inputs = []cad.SideIO{{Name: "old_feed", HeightFraction: 0.5, Diameter: 2}}
	live.outputs = append(live.outputs, cad.SideIO{Name: "old_drain", HeightFraction: 0.2, Diameter: 2})

	reg := NewRegistry(zerolog.Nop(), nil)
	if err := reg.AddInput(sideIO("feed", 0.8)); err != nil {
		t.Fatalf("add input: %v", err)
	}

	if _, err := engine.Update(live, store, reg); err != nil {
		t.Fatalf("update: %v", err)
	}
	for _, io := range live.inputs {
		if io.Name == "old_feed" {
			t.Fatal("stale input must be detached")
		}
	}
	if len(live.outputs) != 1 || live.outputs[0].Name != cad.DefaultOutputName {
		t.Fatalf("expected only the default output to survive, got %+v", live.outputs)
	}
}

func TestIncompatibleTopInletsSkipped(t *testing.T) {
	ctor := &stubConstructor{prepare: func(m *stubModule) {
		m.inletErr = &cad.IncompatibilityError{Reason: "top carries no custom inlets"}
	}}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	store := newTestStore(t)

	reg := NewRegistry(zerolog.Nop(), nil)
	if err := reg.AddTopInlet(cad.TopInlet{Name: "needle", Style: cad.TopInletLuer}); err != nil {
		t.Fatalf("add top inlet: %v", err)
	}

	result, err := engine.Create(store, reg)
	if err != nil {
		t.Fatalf("incompatible inlets must not fail the commit: %v", err)
	}
	module := result.Module.(*stubModule)
	for _, call := range module.calls {
		if call == "AutoPlaceTopInlets" {
			t.Fatal("placement must be skipped when inlets are incompatible")
		}
	}
	if len(asm.built) != 1 {
		t.Fatal("module must still be registered")
	}
}

func TestCollisionReportedAsWarning(t *testing.T) {
	ctor := &stubConstructor{prepare: func(m *stubModule) {
		m.placeErr = &cad.CollisionError{Reason: "inlets overlap"}
	}}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	store := newTestStore(t)

	reg := NewRegistry(zerolog.Nop(), nil)
	if err := reg.AddTopInlet(cad.TopInlet{Name: "needle", Style: cad.TopInletLuer}); err != nil {
		t.Fatalf("add top inlet: %v", err)
	}

	result, err := engine.Create(store, reg)
	if err != nil {
		t.Fatalf("collision must not fail the commit: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Stage != StageAutoPlace {
		t.Fatalf("expected one auto-place warning, got %+v", result.Warnings)
	}
	if len(asm.built) != 1 {
		t.Fatal("module must still be registered")
	}
}

func TestRefreshFailureReportedAsWarning(t *testing.T) {
	ctor := &stubValidatingConstructor{}
	asm := &stubAssembly{refreshErr: fmt.Errorf("export target gone")}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	store := newTestStore(t)
	live := newStubModule(store.Snapshot())

	result, err := engine.Update(live, store, NewRegistry(zerolog.Nop(), nil))
	if err != nil {
		t.Fatalf("refresh failure must not fail the commit: %v", err)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Stage != StageRefresh {
		t.Fatalf("expected one refresh warning, got %+v", result.Warnings)
	}
}

func TestDeleteForwardsToAssembly(t *testing.T) {
	ctor := &stubConstructor{}
	asm := &stubAssembly{}
	engine := NewEngine(ctor, asm, zerolog.Nop(), nil)
	live := newStubModule(cad.Parameters{})

	if err := engine.Delete(live); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(asm.deleted) != 1 || asm.deleted[0] != live {
		t.Fatalf("unexpected deletions %+v", asm.deleted)
	}
}
