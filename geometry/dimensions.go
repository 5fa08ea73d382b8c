package geometry

import (
	"math"

	"github.com/shopspring/decimal"

	"reactorcad/cad"
	"reactorcad/config"
)

// dimensions are the derived body measurements, rounded to micrometre
// precision so identical parameter sets always yield identical values.
type dimensions struct {
	radius decimal.Decimal
	height decimal.Decimal
}

func roundMM(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(3)
}

// deriveDimensions computes the body radius and height from a parameter
// set. Volume is given in millilitres; one millilitre is 1000 cubic
// millimetres. Threaded tops fix the radius through the fitting; a
// constrained radius is taken as given; otherwise the body is shaped so its
// height equals its diameter.
func deriveDimensions(p cad.Parameters, catalog *config.Catalog) (dimensions, error) {
	if p.Volume <= 0 {
		return dimensions{}, &cad.ConstructionError{Reason: "volume must be positive"}
	}
	volumeMM3 := p.Volume * 1000

	var radius float64
	top, ok := catalog.Top(p.TopType)
	if !ok {
		return dimensions{}, &cad.ConstructionError{Reason: "unknown top type " + p.TopType}
	}
	switch {
	case top.Threaded:
		radius = top.ThreadRadius
	case p.RadiusConstrained:
		if p.Radius <= 0 {
			return dimensions{}, &cad.ConstructionError{Reason: "constrained radius must be positive"}
		}
		radius = p.Radius
	default:
		radius = math.Cbrt(volumeMM3 / (2 * math.Pi))
	}

	height := volumeMM3 / (math.Pi * radius * radius)
	if p.AlignFilter == cad.AlignFilterLift {
		// The reactor sits above the filter seat instead of wrapping it.
		height += p.FilterHeight
	}

	return dimensions{radius: roundMM(radius), height: roundMM(height)}, nil
}
