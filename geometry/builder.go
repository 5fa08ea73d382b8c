// Package geometry derives the solid model of a filter reactor from its
// parameters and enforces the geometric compatibility rules.
package geometry

import (
	"github.com/rs/zerolog"

	"reactorcad/cad"
	"reactorcad/config"
	"reactorcad/rules"
)

// Builder constructs filter reactor modules. It implements both the
// constructor and the validator capability, so callers can reject a
// parameter combination without a throw-away build.
type Builder struct {
	catalog *config.Catalog
	rules   *rules.Engine
	logger  zerolog.Logger
}

// NewBuilder wires a builder to the style catalog and the compiled rule
// set.
func NewBuilder(catalog *config.Catalog, ruleEngine *rules.Engine, logger zerolog.Logger) *Builder {
	return &Builder{catalog: catalog, rules: ruleEngine, logger: logger}
}

// normalize resolves the styles and forces the radius fields of threaded
// tops, whose radius always comes from the fitting.
func (b *Builder) normalize(p cad.Parameters) (cad.Parameters, error) {
	top, ok := b.catalog.Top(p.TopType)
	if !ok {
		return p, &cad.ConstructionError{Reason: "unknown top type " + p.TopType}
	}
	bottom, ok := b.catalog.Bottom(p.BottomType)
	if !ok {
		return p, &cad.ConstructionError{Reason: "unknown bottom type " + p.BottomType}
	}
	if bottom.Hidden {
		return p, &cad.ConstructionError{Reason: "bottom type " + p.BottomType + " is not selectable"}
	}
	if top.Threaded {
		p.RadiusConstrained = true
		p.Radius = top.ThreadRadius
	}
	return p, nil
}

func (b *Builder) check(p cad.Parameters) (cad.Parameters, dimensions, error) {
	p, err := b.normalize(p)
	if err != nil {
		return p, dimensions{}, err
	}
	dims, err := deriveDimensions(p, b.catalog)
	if err != nil {
		return p, dimensions{}, err
	}
	radius, _ := dims.radius.Float64()
	height, _ := dims.height.Float64()
	env := rules.Environment(p, b.catalog, radius, height)
	if err := b.rules.Check(env); err != nil {
		return p, dimensions{}, err
	}
	return p, dims, nil
}

// Validate checks a parameter combination without building a module.
func (b *Builder) Validate(p cad.Parameters) error {
	_, _, err := b.check(p)
	return err
}

// Construct builds a module from the parameter set. The returned module
// carries the mandatory default output at the base of the body.
func (b *Builder) Construct(p cad.Parameters) (cad.Module, error) {
	p, dims, err := b.check(p)
	if err != nil {
		return nil, err
	}
	b.logger.Debug().
		Str("body_radius", dims.radius.String()).
		Str("body_height", dims.height.String()).
		Msg("constructed filter reactor body")
	return newFilterReactor(p, dims, b.catalog, b.logger), nil
}
