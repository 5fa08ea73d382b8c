package editor

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"reactorcad/cad"
	"reactorcad/config"
)

// FieldAvailability reports which parameter fields are currently editable
// given the top/bottom selection and the radius constraint.
type FieldAvailability struct {
	// Radius is editable only while the constraint is set and the top is
	// not threaded.
	Radius bool
	// RadiusConstraint is the checkbox itself; threaded tops force it on
	// and lock it.
	RadiusConstraint bool
	// PipeDiameter is editable only for bottoms with an internal pipe.
	PipeDiameter bool
}

// ResolveConstraints derives field availability from a parameter set.
func ResolveConstraints(p cad.Parameters, catalog *config.Catalog) FieldAvailability {
	threaded := catalog.IsThreadedTop(p.TopType)
	return FieldAvailability{
		Radius:           p.RadiusConstrained && !threaded,
		RadiusConstraint: !threaded,
		PipeDiameter:     catalog.BottomHasPipe(p.BottomType),
	}
}

// ParameterStore holds the candidate parameters of one module edit. All
// mutation goes through setters that keep field availability in sync; a
// Snapshot feeds the commit engine.
type ParameterStore struct {
	logger  zerolog.Logger
	catalog *config.Catalog
	limits  config.LimitsConfig
	params  cad.Parameters
	avail   FieldAvailability
}

// NewParameterStore seeds a store from the configured defaults.
func NewParameterStore(catalog *config.Catalog, defaults config.DefaultsConfig, limits config.LimitsConfig, logger zerolog.Logger) (*ParameterStore, error) {
	alignTop, err := cad.ParseAlignTopStrategy(defaults.AlignTop)
	if err != nil {
		return nil, err
	}
	alignFilter, err := cad.ParseAlignFilterStrategy(defaults.AlignFilter)
	if err != nil {
		return nil, err
	}
	store := &ParameterStore{
		logger:  logger,
		catalog: catalog,
		limits:  limits,
		params: cad.Parameters{
			Volume:         defaults.Volume,
			TopType:        defaults.TopType,
			BottomType:     defaults.BottomType,
			FilterHeight:   defaults.FilterHeight,
			FilterDiameter: defaults.FilterDiameter,
			PipeDiameter:   defaults.PipeDiameter,
			AlignTop:       alignTop,
			AlignFilter:    alignFilter,
		},
	}
	if _, ok := catalog.Top(defaults.TopType); !ok {
		return nil, fmt.Errorf("unknown default top type %q", defaults.TopType)
	}
	bottom, ok := catalog.Bottom(defaults.BottomType)
	if !ok {
		return nil, fmt.Errorf("unknown default bottom type %q", defaults.BottomType)
	}
	if bottom.Hidden {
		return nil, fmt.Errorf("default bottom type %q is not selectable", defaults.BottomType)
	}
	if catalog.IsThreadedTop(defaults.TopType) {
		store.params.RadiusConstrained = true
	}
	store.resolve()
	return store, nil
}

// NewParameterStoreFromModule restores the parameters of a live module into
// a fresh store, the starting point when re-opening the editor.
func NewParameterStoreFromModule(catalog *config.Catalog, limits config.LimitsConfig, m cad.Module, logger zerolog.Logger) *ParameterStore {
	store := &ParameterStore{
		logger:  logger,
		catalog: catalog,
		limits:  limits,
		params:  m.Parameters(),
	}
	store.resolve()
	store.logger.Debug().Interface("params", store.params).Msg("restored parameters from module")
	return store
}

func (s *ParameterStore) resolve() {
	s.avail = ResolveConstraints(s.params, s.catalog)
}

// Snapshot returns an immutable copy of the current parameters.
func (s *ParameterStore) Snapshot() cad.Parameters {
	return s.params
}

// Availability returns the current field availability.
func (s *ParameterStore) Availability() FieldAvailability {
	return s.avail
}

// Catalog returns the style catalog the store validates against.
func (s *ParameterStore) Catalog() *config.Catalog {
	return s.catalog
}

// SetVolume sets the reaction volume in millilitres.
func (s *ParameterStore) SetVolume(v float64) error {
	if v <= 0 {
		return fmt.Errorf("volume must be positive, got %v", v)
	}
	if s.limits.MaxVolume > 0 && v > s.limits.MaxVolume {
		return fmt.Errorf("volume %v exceeds limit %v", v, s.limits.MaxVolume)
	}
	s.params.Volume = v
	return nil
}

// SetTopType selects the top style. Switching to a threaded style forces
// the radius constraint on before availability is re-resolved, so the
// radius field can never stay editable for a threaded top.
func (s *ParameterStore) SetTopType(name string) error {
	if _, ok := s.catalog.Top(name); !ok {
		return fmt.Errorf("unknown top type %q", name)
	}
	s.params.TopType = name
	if s.catalog.IsThreadedTop(name) {
		// Forced constraint first; the second step below re-resolves and
		// withdraws the radius field.
		s.params.RadiusConstrained = true
		s.logger.Debug().Str("top", name).Msg("threaded top forces radius constraint")
	}
	s.resolve()
	return nil
}

// SetBottomType selects the bottom style. Hidden degenerate styles are
// rejected.
func (s *ParameterStore) SetBottomType(name string) error {
	bottom, ok := s.catalog.Bottom(name)
	if !ok {
		return fmt.Errorf("unknown bottom type %q", name)
	}
	if bottom.Hidden {
		return fmt.Errorf("bottom type %q is not selectable", name)
	}
	s.params.BottomType = name
	s.resolve()
	return nil
}

// SetFilterHeight sets the filter thickness in millimetres.
func (s *ParameterStore) SetFilterHeight(v float64) error {
	if v <= 0 {
		return fmt.Errorf("filter height must be positive, got %v", v)
	}
	if s.limits.MaxFilterHeight > 0 && v > s.limits.MaxFilterHeight {
		return fmt.Errorf("filter height %v exceeds limit %v", v, s.limits.MaxFilterHeight)
	}
	s.params.FilterHeight = v
	return nil
}

// SetFilterDiameter sets the filter diameter in millimetres.
func (s *ParameterStore) SetFilterDiameter(v float64) error {
	if v <= 0 {
		return fmt.Errorf("filter diameter must be positive, got %v", v)
	}
	if s.limits.MaxFilterDiameter > 0 && v > s.limits.MaxFilterDiameter {
		return fmt.Errorf("filter diameter %v exceeds limit %v", v, s.limits.MaxFilterDiameter)
	}
	s.params.FilterDiameter = v
	return nil
}

// SetPipeDiameter sets the internal pipe diameter. It is only meaningful
// for bottoms with a pipe but stays writable so the value survives a
// bottom-type round trip, matching the stored advanced settings.
func (s *ParameterStore) SetPipeDiameter(v float64) error {
	if v <= 0 {
		return fmt.Errorf("pipe diameter must be positive, got %v", v)
	}
	s.params.PipeDiameter = v
	return nil
}

// SetRadius constrains the body radius. It fails while the radius field is
// not editable.
func (s *ParameterStore) SetRadius(v float64) error {
	if !s.avail.Radius {
		return fmt.Errorf("radius is not editable in the current configuration")
	}
	if v <= 0 {
		return fmt.Errorf("radius must be positive, got %v", v)
	}
	s.params.Radius = v
	return nil
}

// SetRadiusConstrained toggles the radius constraint. While a threaded top
// forces the constraint on, writing the forced value is a no-op and only
// releasing it fails.
func (s *ParameterStore) SetRadiusConstrained(constrained bool) error {
	if !s.avail.RadiusConstraint {
		if constrained == s.params.RadiusConstrained {
			return nil
		}
		return fmt.Errorf("radius constraint is forced by top type %q", s.params.TopType)
	}
	s.params.RadiusConstrained = constrained
	s.resolve()
	return nil
}

// SetAlignTop selects the top alignment strategy.
func (s *ParameterStore) SetAlignTop(strategy cad.AlignTopStrategy) {
	s.params.AlignTop = strategy
}

// SetAlignFilter selects the filter alignment strategy.
func (s *ParameterStore) SetAlignFilter(strategy cad.AlignFilterStrategy) {
	s.params.AlignFilter = strategy
}

// Set mutates one parameter by field name. It backs generic front ends
// such as the assembly batch loader.
func (s *ParameterStore) Set(field string, value interface{}) error {
	switch field {
	case "volume":
		v, err := toFloat(value)
		if err != nil {
			return fmt.Errorf("volume: %w", err)
		}
		return s.SetVolume(v)
	case "top_type":
		v, err := toString(value)
		if err != nil {
			return fmt.Errorf("top_type: %w", err)
		}
		return s.SetTopType(v)
	case "bottom_type":
		v, err := toString(value)
		if err != nil {
			return fmt.Errorf("bottom_type: %w", err)
		}
		return s.SetBottomType(v)
	case "filter_height":
		v, err := toFloat(value)
		if err != nil {
			return fmt.Errorf("filter_height: %w", err)
		}
		return s.SetFilterHeight(v)
	case "filter_diameter":
		v, err := toFloat(value)
		if err != nil {
			return fmt.Errorf("filter_diameter: %w", err)
		}
		return s.SetFilterDiameter(v)
	case "pipe_diameter":
		v, err := toFloat(value)
		if err != nil {
			return fmt.Errorf("pipe_diameter: %w", err)
		}
		return s.SetPipeDiameter(v)
	case "radius_constrained":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("radius_constrained: expected bool, got %T", value)
		}
		return s.SetRadiusConstrained(v)
	case "radius":
		v, err := toFloat(value)
		if err != nil {
			return fmt.Errorf("radius: %w", err)
		}
		return s.SetRadius(v)
	case "align_top":
		v, err := toString(value)
		if err != nil {
			return fmt.Errorf("align_top: %w", err)
		}
		strategy, err := cad.ParseAlignTopStrategy(v)
		if err != nil {
			return err
		}
		s.SetAlignTop(strategy)
		return nil
	case "align_filter":
		v, err := toString(value)
		if err != nil {
			return fmt.Errorf("align_filter: %w", err)
		}
		strategy, err := cad.ParseAlignFilterStrategy(v)
		if err != nil {
			return err
		}
		s.SetAlignFilter(strategy)
		return nil
	default:
		return fmt.Errorf("unknown parameter field %q", field)
	}
}

// FieldOrder lists the generic field names in a safe application order:
// type selections and the constraint toggle come before the dependent
// radius field.
func FieldOrder() []string {
	return []string{
		"volume",
		"top_type",
		"bottom_type",
		"filter_height",
		"filter_diameter",
		"pipe_diameter",
		"radius_constrained",
		"radius",
		"align_top",
		"align_filter",
	}
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("parse float from string: %w", err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("expected number-compatible value, got %T", value)
	}
}

func toString(value interface{}) (string, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return "", fmt.Errorf("expected string value, got %T", value)
}
