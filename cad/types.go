package cad

import "fmt"

// AlignTopStrategy selects how the body is reconciled with the top fitting
// when their radii disagree.
type AlignTopStrategy string

const (
	// AlignTopExpand widens the body until it meets the top fitting.
	AlignTopExpand AlignTopStrategy = "expand"
	// AlignTopLift raises the reactor instead of widening it.
	AlignTopLift AlignTopStrategy = "lift"
)

// AlignFilterStrategy selects how the filter seat is reconciled with the
// body.
type AlignFilterStrategy string

const (
	// AlignFilterAdapt reshapes the seat around the filter.
	AlignFilterAdapt AlignFilterStrategy = "adapt"
	// AlignFilterLift raises the reactor above the filter seat.
	AlignFilterLift AlignFilterStrategy = "lift"
)

// ParseAlignTopStrategy accepts canonical identifiers as well as the
// display labels used by older front ends.
func ParseAlignTopStrategy(value string) (AlignTopStrategy, error) {
	switch value {
	case string(AlignTopExpand), "Expand body":
		return AlignTopExpand, nil
	case string(AlignTopLift), "Lift reactor":
		return AlignTopLift, nil
	default:
		return "", fmt.Errorf("unknown align top strategy %q", value)
	}
}

// ParseAlignFilterStrategy accepts canonical identifiers as well as display
// labels.
func ParseAlignFilterStrategy(value string) (AlignFilterStrategy, error) {
	switch value {
	case string(AlignFilterAdapt), "Adapt":
		return AlignFilterAdapt, nil
	case string(AlignFilterLift), "Lift reactor":
		return AlignFilterLift, nil
	default:
		return "", fmt.Errorf("unknown align filter strategy %q", value)
	}
}

// Label returns the display label for the strategy.
func (s AlignTopStrategy) Label() string {
	if s == AlignTopLift {
		return "Lift reactor"
	}
	return "Expand body"
}

// Label returns the display label for the strategy.
func (s AlignFilterStrategy) Label() string {
	if s == AlignFilterLift {
		return "Lift reactor"
	}
	return "Adapt"
}

// Parameters is the full scalar parameter set of a filter reactor. Volume is
// in millilitres, all lengths in millimetres. Radius is only meaningful when
// RadiusConstrained is set and the top style is not threaded; threaded tops
// derive their radius from the fitting.
type Parameters struct {
	Volume            float64
	TopType           string
	BottomType        string
	FilterDiameter    float64
	FilterHeight      float64
	PipeDiameter      float64
	Radius            float64
	RadiusConstrained bool
	AlignTop          AlignTopStrategy
	AlignFilter       AlignFilterStrategy
}

// TopInletStyle distinguishes the two supported top inlet variants.
type TopInletStyle string

const (
	// TopInletCustom is a user-dimensioned inlet.
	TopInletCustom TopInletStyle = "custom"
	// TopInletLuer is a standard luer fitting; dimensions come from the
	// catalog defaults, not from the descriptor.
	TopInletLuer TopInletStyle = "luer"
)

// ParseTopInletStyle validates a top inlet style identifier.
func ParseTopInletStyle(value string) (TopInletStyle, error) {
	switch value {
	case string(TopInletCustom), "Custom top inlet":
		return TopInletCustom, nil
	case string(TopInletLuer), "Luer top inlet":
		return TopInletLuer, nil
	default:
		return "", fmt.Errorf("unknown top inlet style %q", value)
	}
}

// Label returns the display label for the style.
func (s TopInletStyle) Label() string {
	if s == TopInletLuer {
		return "Luer top inlet"
	}
	return "Custom top inlet"
}

// SideIO describes a side input or output. HeightFraction locates the port
// along the body as a 0–1 fraction of the total height; the collaborator
// translates it into an absolute position. Connected is read-only state
// owned by the assembly.
type SideIO struct {
	Name           string
	HeightFraction float64
	Angle          float64
	Diameter       float64
	External       bool
	Connected      bool
}

// TopInlet describes a connector entering through the top of the body.
// Luer inlets ignore Diameter, Length and Wall. Angle is assigned by
// auto-placement, never by the caller.
type TopInlet struct {
	Name      string
	Style     TopInletStyle
	Diameter  float64
	Length    float64
	Wall      float64
	Angle     float64
	Connected bool
}

// SidePortKind distinguishes the two side port collections of a module.
// Port names are unique within a kind only; an input and an output may
// share a name.
type SidePortKind string

const (
	// SidePortInput selects the side input collection.
	SidePortInput SidePortKind = "input"
	// SidePortOutput selects the side output collection.
	SidePortOutput SidePortKind = "output"
)

// DefaultOutputName is the reserved name of the mandatory primary output
// every module has. The collaborator creates it implicitly; it can never be
// deleted or edited.
const DefaultOutputName = "default"
