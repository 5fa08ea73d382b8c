package geometry

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"reactorcad/cad"
	"reactorcad/config"
)

// inletClearance is the minimum free arc, in millimetres, between the
// outer walls of two adjacent top inlets.
const inletClearance = 1.0

type sidePort struct {
	io cad.SideIO
	// height is the absolute port position measured from the base.
	height decimal.Decimal
}

// FilterReactor is the solid model of one reactor. It keeps side ports at
// absolute heights and recomputes them when the body is reshaped.
type FilterReactor struct {
	params    cad.Parameters
	dims      dimensions
	catalog   *config.Catalog
	logger    zerolog.Logger
	inputs    []sidePort
	outputs   []sidePort
	topInlets []cad.TopInlet
}

func newFilterReactor(p cad.Parameters, dims dimensions, catalog *config.Catalog, logger zerolog.Logger) *FilterReactor {
	f := &FilterReactor{params: p, dims: dims, catalog: catalog, logger: logger}
	// The mandatory primary output sits at the base of the body.
	diameter := p.PipeDiameter
	if diameter <= 0 {
		diameter = p.FilterDiameter
	}
	f.outputs = append(f.outputs, sidePort{
		io: cad.SideIO{Name: cad.DefaultOutputName, Diameter: diameter},
	})
	return f
}

// Parameters returns the current scalar parameters.
func (f *FilterReactor) Parameters() cad.Parameters {
	return f.params
}

// BodyRadius returns the derived body radius in millimetres.
func (f *FilterReactor) BodyRadius() float64 {
	radius, _ := f.dims.radius.Float64()
	return radius
}

// BodyHeight returns the derived body height in millimetres.
func (f *FilterReactor) BodyHeight() float64 {
	height, _ := f.dims.height.Float64()
	return height
}

// Snapshot renders the parameters and derived dimensions canonically.
// Identical states produce byte-identical snapshots.
func (f *FilterReactor) Snapshot() string {
	var b strings.Builder
	fmt.Fprintf(&b, "volume=%s;", roundMM(f.params.Volume))
	fmt.Fprintf(&b, "top=%s;bottom=%s;", f.params.TopType, f.params.BottomType)
	fmt.Fprintf(&b, "filter_d=%s;filter_h=%s;", roundMM(f.params.FilterDiameter), roundMM(f.params.FilterHeight))
	fmt.Fprintf(&b, "pipe_d=%s;", roundMM(f.params.PipeDiameter))
	fmt.Fprintf(&b, "radius=%s;constrained=%t;", roundMM(f.params.Radius), f.params.RadiusConstrained)
	fmt.Fprintf(&b, "align_top=%s;align_filter=%s;", f.params.AlignTop, f.params.AlignFilter)
	fmt.Fprintf(&b, "body_r=%s;body_h=%s", f.dims.radius, f.dims.height)
	return b.String()
}

func (f *FilterReactor) reshape(dims dimensions) {
	f.dims = dims
	for i := range f.inputs {
		f.inputs[i].height = portHeight(f.inputs[i].io.HeightFraction, dims)
	}
	for i := range f.outputs {
		f.outputs[i].height = portHeight(f.outputs[i].io.HeightFraction, dims)
	}
}

func portHeight(fraction float64, dims dimensions) decimal.Decimal {
	return dims.height.Mul(decimal.NewFromFloat(fraction)).Round(3)
}

// SetRadius constrains the body radius and reshapes the body. Threaded
// tops fix the radius through the fitting and reject the call.
func (f *FilterReactor) SetRadius(r float64) error {
	if f.catalog.IsThreadedTop(f.params.TopType) {
		return &cad.IncompatibilityError{Reason: "top type " + f.params.TopType + " fixes the radius"}
	}
	if r <= 0 {
		return &cad.ConstructionError{Reason: fmt.Sprintf("radius must be positive, got %v", r)}
	}
	next := f.params
	next.Radius = r
	next.RadiusConstrained = true
	dims, err := deriveDimensions(next, f.catalog)
	if err != nil {
		return err
	}
	f.params = next
	f.reshape(dims)
	return nil
}

// SetRadiusConstrained toggles the radius constraint. Releasing it
// recalculates the derived radius immediately.
func (f *FilterReactor) SetRadiusConstrained(constrained bool) error {
	next := f.params
	next.RadiusConstrained = constrained
	if constrained && next.Radius <= 0 {
		// Adopt the current derived radius as the constrained value.
		next.Radius, _ = f.dims.radius.Float64()
	}
	dims, err := deriveDimensions(next, f.catalog)
	if err != nil {
		return err
	}
	f.params = next
	f.reshape(dims)
	return nil
}

// Apply copies all scalar parameters except radius and the radius
// constraint onto the module and reshapes the body. Switching to a
// threaded top forces the constraint and the fitting radius.
func (f *FilterReactor) Apply(p cad.Parameters) error {
	next := p
	next.Radius = f.params.Radius
	next.RadiusConstrained = f.params.RadiusConstrained

	top, ok := f.catalog.Top(next.TopType)
	if !ok {
		return &cad.ConstructionError{Reason: "unknown top type " + next.TopType}
	}
	bottom, ok := f.catalog.Bottom(next.BottomType)
	if !ok {
		return &cad.ConstructionError{Reason: "unknown bottom type " + next.BottomType}
	}
	if bottom.Hidden {
		return &cad.ConstructionError{Reason: "bottom type " + next.BottomType + " is not selectable"}
	}
	if top.Threaded {
		next.RadiusConstrained = true
		next.Radius = top.ThreadRadius
	}

	dims, err := deriveDimensions(next, f.catalog)
	if err != nil {
		return err
	}
	f.params = next
	f.reshape(dims)
	f.logger.Debug().
		Str("body_radius", f.dims.radius.String()).
		Str("body_height", f.dims.height.String()).
		Msg("reshaped filter reactor body")
	return nil
}

func indexSidePort(ports []sidePort, name string) int {
	for i, port := range ports {
		if port.io.Name == name {
			return i
		}
	}
	return -1
}

// AttachInput adds or replaces a side input at the descriptor's height
// fraction.
func (f *FilterReactor) AttachInput(io cad.SideIO) error {
	if err := f.checkSidePort(io); err != nil {
		return err
	}
	port := sidePort{io: io, height: portHeight(io.HeightFraction, f.dims)}
	if idx := indexSidePort(f.inputs, io.Name); idx >= 0 {
		f.inputs[idx] = port
	} else {
		f.inputs = append(f.inputs, port)
	}
	return nil
}

// AttachOutput adds or replaces a side output. The default output is owned
// by the module and cannot be attached from outside.
func (f *FilterReactor) AttachOutput(io cad.SideIO) error {
	if io.Name == cad.DefaultOutputName {
		return cad.ErrReservedOutput
	}
	if err := f.checkSidePort(io); err != nil {
		return err
	}
	port := sidePort{io: io, height: portHeight(io.HeightFraction, f.dims)}
	if idx := indexSidePort(f.outputs, io.Name); idx >= 0 {
		f.outputs[idx] = port
	} else {
		f.outputs = append(f.outputs, port)
	}
	return nil
}

func (f *FilterReactor) checkSidePort(io cad.SideIO) error {
	if io.Name == "" {
		return &cad.ConstructionError{Reason: "side port name must not be empty"}
	}
	if io.HeightFraction < 0 || io.HeightFraction > 1 {
		return &cad.ConstructionError{Reason: fmt.Sprintf("side port %s height fraction %v outside [0,1]", io.Name, io.HeightFraction)}
	}
	if io.Diameter <= 0 {
		return &cad.ConstructionError{Reason: fmt.Sprintf("side port %s needs a positive diameter", io.Name)}
	}
	radius, _ := f.dims.radius.Float64()
	if io.Diameter >= 2*radius {
		return &cad.ConstructionError{Reason: fmt.Sprintf("side port %s diameter %v does not fit the body", io.Name, io.Diameter)}
	}
	return nil
}

// AttachTopInlet adds or replaces a top inlet. Only tops flagged for
// custom inlets in the catalog can carry them; luer inlets take their
// dimensions from the catalog defaults.
func (f *FilterReactor) AttachTopInlet(io cad.TopInlet) error {
	top, ok := f.catalog.Top(f.params.TopType)
	if !ok {
		return &cad.ConstructionError{Reason: "unknown top type " + f.params.TopType}
	}
	if !top.TopInlets {
		return &cad.IncompatibilityError{Reason: "top type " + f.params.TopType + " carries no custom inlets"}
	}
	if io.Style == cad.TopInletLuer {
		io.Diameter = f.catalog.Luer.Diameter
		io.Length = f.catalog.Luer.Length
		io.Wall = f.catalog.Luer.Wall
	}
	if io.Diameter <= 0 {
		return &cad.ConstructionError{Reason: fmt.Sprintf("top inlet %s needs a positive diameter", io.Name)}
	}
	for i, existing := range f.topInlets {
		if existing.Name == io.Name {
			f.topInlets[i] = io
			return nil
		}
	}
	f.topInlets = append(f.topInlets, io)
	return nil
}

// DetachInput removes a side input by name.
func (f *FilterReactor) DetachInput(name string) error {
	idx := indexSidePort(f.inputs, name)
	if idx < 0 {
		return fmt.Errorf("no side input %q", name)
	}
	f.inputs = append(f.inputs[:idx], f.inputs[idx+1:]...)
	return nil
}

// DetachOutput removes a side output by name. The default output cannot be
// removed.
func (f *FilterReactor) DetachOutput(name string) error {
	if name == cad.DefaultOutputName {
		return cad.ErrReservedOutput
	}
	idx := indexSidePort(f.outputs, name)
	if idx < 0 {
		return fmt.Errorf("no side output %q", name)
	}
	f.outputs = append(f.outputs[:idx], f.outputs[idx+1:]...)
	return nil
}

// DetachTopInlet removes a top inlet by name.
func (f *FilterReactor) DetachTopInlet(name string) error {
	for i, io := range f.topInlets {
		if io.Name == name {
			f.topInlets = append(f.topInlets[:i], f.topInlets[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no top inlet %q", name)
}

// AutoPlaceTopInlets spaces the attached inlets evenly on a ring at half
// the body radius. It fails with a CollisionError when the inlets do not
// fit the ring or overflow the body.
func (f *FilterReactor) AutoPlaceTopInlets() error {
	n := len(f.topInlets)
	if n == 0 {
		return nil
	}
	radius, _ := f.dims.radius.Float64()
	ringRadius := radius / 2

	for _, io := range f.topInlets {
		if outerRadius(io) > radius-ringRadius {
			return &cad.CollisionError{Reason: fmt.Sprintf("top inlet %s overflows the body", io.Name)}
		}
	}
	if n > 1 {
		arc := 2 * math.Pi * ringRadius / float64(n)
		for i, io := range f.topInlets {
			next := f.topInlets[(i+1)%n]
			if arc < outerRadius(io)+outerRadius(next)+inletClearance {
				return &cad.CollisionError{Reason: fmt.Sprintf("top inlets %s and %s overlap", io.Name, next.Name)}
			}
		}
	}

	step := 360.0 / float64(n)
	for i := range f.topInlets {
		f.topInlets[i].Angle = step * float64(i)
	}
	return nil
}

func outerRadius(io cad.TopInlet) float64 {
	return io.Diameter/2 + io.Wall
}

// Inputs returns the attached side inputs in attachment order.
func (f *FilterReactor) Inputs() []cad.SideIO {
	out := make([]cad.SideIO, 0, len(f.inputs))
	for _, port := range f.inputs {
		out = append(out, port.io)
	}
	return out
}

// Outputs returns the attached side outputs, the default output first.
func (f *FilterReactor) Outputs() []cad.SideIO {
	out := make([]cad.SideIO, 0, len(f.outputs))
	for _, port := range f.outputs {
		out = append(out, port.io)
	}
	return out
}

// TopInlets returns the attached top inlets in attachment order.
func (f *FilterReactor) TopInlets() []cad.TopInlet {
	out := make([]cad.TopInlet, 0, len(f.topInlets))
	out = append(out, f.topInlets...)
	return out
}

// HeightFraction converts the stored absolute port position back into the
// 0–1 fraction of the body height. The kind picks the collection; an input
// and an output may carry the same name.
func (f *FilterReactor) HeightFraction(kind cad.SidePortKind, io cad.SideIO) (float64, error) {
	var ports []sidePort
	switch kind {
	case cad.SidePortInput:
		ports = f.inputs
	case cad.SidePortOutput:
		ports = f.outputs
	default:
		return 0, fmt.Errorf("unknown side port kind %q", kind)
	}
	idx := indexSidePort(ports, io.Name)
	if idx < 0 {
		return 0, fmt.Errorf("unknown side %s %q", kind, io.Name)
	}
	if f.dims.height.IsZero() {
		return 0, &cad.ConstructionError{Reason: "body height is zero"}
	}
	fraction, _ := ports[idx].height.Div(f.dims.height).Float64()
	return fraction, nil
}
