package editor

import (
	"fmt"

	"github.com/rs/zerolog"

	"reactorcad/cad"
	"reactorcad/telemetry"
)

// CommitStage identifies the step of the commit protocol an error or
// warning originated from.
type CommitStage string

const (
	// StageConstruct is the fresh construction on the create path.
	StageConstruct CommitStage = "construct"
	// StageValidate is the pre-mutation validation on the update path.
	StageValidate CommitStage = "validate"
	// StageApply is the scalar field application on the update path.
	StageApply CommitStage = "apply"
	// StageIO is input/output/top-inlet reconciliation.
	StageIO CommitStage = "io"
	// StageAutoPlace is the top-inlet auto-placement call.
	StageAutoPlace CommitStage = "autoplace"
	// StageRegister hands a fresh module to the owning assembly.
	StageRegister CommitStage = "register"
	// StageRefresh asks the assembly to redraw after an update.
	StageRefresh CommitStage = "refresh"
)

// CommitError is the user-facing failure of one commit attempt.
type CommitError struct {
	Stage CommitStage
	Err   error
}

func (e *CommitError) Error() string {
	switch e.Stage {
	case StageConstruct:
		return fmt.Sprintf("impossible to create filter reactor: %v", e.Err)
	case StageValidate:
		return fmt.Sprintf("impossible to update reactor: %v", e.Err)
	case StageApply:
		return fmt.Sprintf("impossible to apply parameters: %v", e.Err)
	case StageIO:
		return fmt.Sprintf("impossible to create I/Os: %v", e.Err)
	case StageRegister:
		return fmt.Sprintf("impossible to register module: %v", e.Err)
	default:
		return fmt.Sprintf("commit failed at %s: %v", e.Stage, e.Err)
	}
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// Warning is a reported but non-fatal commit condition: an auto-placement
// collision or a refresh failure.
type Warning struct {
	Stage CommitStage
	Err   error
}

// CommitResult carries the committed module and any warnings collected
// along the way.
type CommitResult struct {
	Module   cad.Module
	Warnings []Warning
}

// Engine drives the two commit protocols: all-or-nothing creation of a new
// module, and validate-then-mutate updates of a live one.
type Engine struct {
	ctor      cad.Constructor
	assembly  cad.Assembly
	logger    zerolog.Logger
	collector telemetry.Collector
}

// NewEngine wires a commit engine to its collaborators.
func NewEngine(ctor cad.Constructor, assembly cad.Assembly, logger zerolog.Logger, collector telemetry.Collector) *Engine {
	if collector == nil {
		collector = telemetry.Noop()
	}
	return &Engine{ctor: ctor, assembly: assembly, logger: logger, collector: collector}
}

// Create builds a brand-new module from the store snapshot, attaches all
// staged I/O and registers the module with the assembly. Any failure
// discards the fresh module entirely; nothing partial survives.
func (e *Engine) Create(store *ParameterStore, reg *Registry) (*CommitResult, error) {
	snap := store.Snapshot()
	e.logger.Debug().Interface("params", snap).Msg("creating filter reactor")

	module, err := e.ctor.Construct(snap)
	if err != nil {
		e.collector.IncCommitFailure("create", string(StageConstruct))
		e.logger.Error().Err(err).Msg("creation error")
		return nil, &CommitError{Stage: StageConstruct, Err: err}
	}

	result := &CommitResult{Module: module}
	if err := e.applyIO(module, reg, result, false); err != nil {
		e.collector.IncCommitFailure("create", string(StageIO))
		e.logger.Error().Err(err).Msg("I/O error")
		return nil, &CommitError{Stage: StageIO, Err: err}
	}

	if err := e.assembly.BuildModule(module); err != nil {
		e.collector.IncCommitFailure("create", string(StageRegister))
		e.logger.Error().Err(err).Msg("registration error")
		return nil, &CommitError{Stage: StageRegister, Err: err}
	}

	e.collector.IncCommit("create")
	return result, nil
}

// Update commits the store snapshot onto a live module. The snapshot is
// validated first, against a throw-away construction when the constructor
// offers nothing better, so a rejected combination leaves the live module
// untouched. Radius and its constraint are applied before all other scalar
// fields so relaxing the constraint recalculates dependent geometry before
// the rest lands.
//
// I/O reconciliation failures after the scalars have been applied are
// reported but deliberately not rolled back; the live module keeps the new
// parameters and possibly incomplete I/O. Refresh failures are reported as
// warnings and do not undo the commit.
func (e *Engine) Update(live cad.Module, store *ParameterStore, reg *Registry) (*CommitResult, error) {
	snap := store.Snapshot()
	e.logger.Debug().Interface("params", snap).Msg("updating filter reactor")

	if err := e.validate(snap); err != nil {
		e.collector.IncCommitFailure("update", string(StageValidate))
		e.logger.Error().Err(err).Msg("update error")
		return nil, &CommitError{Stage: StageValidate, Err: err}
	}

	// Radius first. Only set it when the top is not threaded; otherwise
	// drop the constraint so the module recalculates before the new top
	// type forces its own radius.
	if snap.RadiusConstrained && !store.Catalog().IsThreadedTop(snap.TopType) {
		if err := live.SetRadius(snap.Radius); err != nil {
			e.collector.IncCommitFailure("update", string(StageApply))
			return nil, &CommitError{Stage: StageApply, Err: err}
		}
	} else {
		if err := live.SetRadiusConstrained(false); err != nil {
			e.collector.IncCommitFailure("update", string(StageApply))
			return nil, &CommitError{Stage: StageApply, Err: err}
		}
	}

	if err := live.Apply(snap); err != nil {
		e.collector.IncCommitFailure("update", string(StageApply))
		return nil, &CommitError{Stage: StageApply, Err: err}
	}

	result := &CommitResult{Module: live}
	if err := e.applyIO(live, reg, result, true); err != nil {
		// Scalars stay committed; this is the documented partial-failure
		// policy of the update path.
		e.collector.IncCommitFailure("update", string(StageIO))
		e.logger.Error().Err(err).Msg("I/O error")
		return result, &CommitError{Stage: StageIO, Err: err}
	}

	if err := e.assembly.Refresh(); err != nil {
		e.logger.Error().Err(err).Msg("refresh error")
		result.Warnings = append(result.Warnings, Warning{Stage: StageRefresh, Err: err})
	}

	e.collector.IncCommit("update")
	return result, nil
}

// Delete removes a live module from the owning assembly.
func (e *Engine) Delete(live cad.Module) error {
	e.logger.Debug().Msg("deleting filter reactor")
	return e.assembly.DeleteModule(live)
}

func (e *Engine) validate(snap cad.Parameters) error {
	if validator, ok := e.ctor.(cad.Validator); ok {
		return validator.Validate(snap)
	}
	// Disposable validation build: constructing is the only reliable way
	// to detect incompatible combinations with this collaborator.
	_, err := e.ctor.Construct(snap)
	return err
}

func (e *Engine) applyIO(module cad.Module, reg *Registry, result *CommitResult, reconcile bool) error {
	for _, io := range reg.Inputs() {
		if err := module.AttachInput(io); err != nil {
			return fmt.Errorf("input %s: %w", io.Name, err)
		}
	}
	for _, io := range reg.Outputs() {
		if io.Name == cad.DefaultOutputName {
			// The collaborator creates the default output implicitly.
			continue
		}
		if err := module.AttachOutput(io); err != nil {
			return fmt.Errorf("output %s: %w", io.Name, err)
		}
	}
	if reconcile {
		if err := e.detachStale(module, reg); err != nil {
			return err
		}
	}
	return e.applyTopInlets(module, reg, result)
}

func (e *Engine) applyTopInlets(module cad.Module, reg *Registry, result *CommitResult) error {
	for _, io := range reg.TopInlets() {
		if err := module.AttachTopInlet(io); err != nil {
			if cad.IsIncompatibility(err) {
				// The chosen top carries no custom inlets; treat as
				// "nothing to place" and skip placement entirely.
				e.logger.Debug().Str("name", io.Name).Msg("can't build top inlet: no custom top")
				return nil
			}
			return fmt.Errorf("top inlet %s: %w", io.Name, err)
		}
	}
	if reg.Count(KindTopInlet) == 0 {
		return nil
	}
	if err := module.AutoPlaceTopInlets(); err != nil {
		if cad.IsCollision(err) {
			e.logger.Error().Err(err).Msg("can't auto-place top inlets, collision?")
			result.Warnings = append(result.Warnings, Warning{Stage: StageAutoPlace, Err: err})
			return nil
		}
		return fmt.Errorf("auto-place top inlets: %w", err)
	}
	return nil
}

func (e *Engine) detachStale(module cad.Module, reg *Registry) error {
	for _, io := range module.Inputs() {
		if _, ok := reg.Input(io.Name); !ok {
			if err := module.DetachInput(io.Name); err != nil {
				return fmt.Errorf("detach input %s: %w", io.Name, err)
			}
		}
	}
	for _, io := range module.Outputs() {
		if io.Name == cad.DefaultOutputName {
			continue
		}
		if _, err := reg.Output(io.Name); err != nil {
			if detachErr := module.DetachOutput(io.Name); detachErr != nil {
				return fmt.Errorf("detach output %s: %w", io.Name, detachErr)
			}
		}
	}
	for _, io := range module.TopInlets() {
		if _, ok := reg.TopInlet(io.Name); !ok {
			if err := module.DetachTopInlet(io.Name); err != nil {
				return fmt.Errorf("detach top inlet %s: %w", io.Name, err)
			}
		}
	}
	return nil
}
