package cad

// Constructor builds a module from a full parameter set.
//
// Implementations must either return a fully usable module or an error; a
// failed construction must not leave partial state behind. Errors should be
// ConstructionError values so callers can present the underlying cause.
type Constructor interface {
	Construct(p Parameters) (Module, error)
}

// Validator is an optional capability of a Constructor. Implementations
// check a parameter combination without building a module, which lets the
// commit engine avoid the throw-away construction it otherwise performs
// before mutating a live module.
type Validator interface {
	Validate(p Parameters) error
}

// Module is the handle to one constructed filter reactor.
//
// Attach calls replace an existing port of the same name, mirroring the
// update-in-place semantics of the editor registry. Implementations are not
// required to be safe for concurrent use; the editor drives a module from a
// single logical operation at a time.
type Module interface {
	// Parameters returns a snapshot of the current scalar parameters.
	Parameters() Parameters
	// Snapshot returns a canonical textual rendering of the parameters,
	// stable across identical states.
	Snapshot() string

	// SetRadius constrains the body radius. Fails with an
	// IncompatibilityError when the top style is threaded.
	SetRadius(r float64) error
	// SetRadiusConstrained toggles the radius constraint. Releasing it
	// recalculates the derived radius immediately.
	SetRadiusConstrained(constrained bool) error
	// Apply copies all scalar parameters except radius and the radius
	// constraint onto the module, recalculating derived geometry.
	Apply(p Parameters) error

	AttachInput(io SideIO) error
	AttachOutput(io SideIO) error
	AttachTopInlet(io TopInlet) error
	DetachInput(name string) error
	DetachOutput(name string) error
	DetachTopInlet(name string) error

	// AutoPlaceTopInlets assigns collision-free angular positions to all
	// attached top inlets. Fails with a CollisionError when the inlets do
	// not fit.
	AutoPlaceTopInlets() error

	Inputs() []SideIO
	Outputs() []SideIO
	TopInlets() []TopInlet

	// HeightFraction converts a side port position back into the 0–1
	// fraction of the body height used by the editor. The kind selects
	// the collection to resolve the descriptor in; an input and an
	// output may share a name.
	HeightFraction(kind SidePortKind, io SideIO) (float64, error)
}

// Assembly is the owning collaborator that keeps track of built modules.
type Assembly interface {
	// BuildModule registers a freshly created module with the assembly.
	BuildModule(m Module) error
	// DeleteModule removes a module from the assembly.
	DeleteModule(m Module) error
	// Refresh redraws or re-exports the assembly after an in-place update.
	Refresh() error
}
