package editor

import (
	"fmt"

	"github.com/rs/zerolog"

	"reactorcad/cad"
	"reactorcad/telemetry"
)

// IOKind identifies one of the three descriptor collections.
type IOKind string

const (
	// KindSideInput is a side input port.
	KindSideInput IOKind = "side-input"
	// KindSideOutput is a side output port.
	KindSideOutput IOKind = "side-output"
	// KindTopInlet is a connector entering through the top.
	KindTopInlet IOKind = "top-inlet"
)

// Label returns the display label for the kind.
func (k IOKind) Label() string {
	switch k {
	case KindSideInput:
		return "Side input"
	case KindSideOutput:
		return "Side output"
	case KindTopInlet:
		return "Top inlet"
	default:
		return string(k)
	}
}

// Row is one entry of the derived registry view, in insertion order.
type Row struct {
	Name      string
	Kind      IOKind
	Default   bool
	Connected bool
}

type rowKey struct {
	kind IOKind
	name string
}

// Registry stages the I/O descriptors of one module edit. It is the single
// source of truth for staged I/O; the row view is derived, never mutated
// independently. Descriptors are flushed into the domain object only at
// commit time.
type Registry struct {
	logger    zerolog.Logger
	collector telemetry.Collector
	inputs    map[string]cad.SideIO
	outputs   map[string]cad.SideIO
	topInlets map[string]cad.TopInlet
	order     []rowKey
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger, collector telemetry.Collector) *Registry {
	if collector == nil {
		collector = telemetry.Noop()
	}
	return &Registry{
		logger:    logger,
		collector: collector,
		inputs:    make(map[string]cad.SideIO),
		outputs:   make(map[string]cad.SideIO),
		topInlets: make(map[string]cad.TopInlet),
	}
}

func validateSideIO(io cad.SideIO) error {
	if io.Name == "" {
		return fmt.Errorf("I/O name must not be empty")
	}
	if io.HeightFraction < 0 || io.HeightFraction > 1 {
		return fmt.Errorf("height fraction %v outside [0,1]", io.HeightFraction)
	}
	if io.Diameter <= 0 {
		return fmt.Errorf("I/O diameter must be positive, got %v", io.Diameter)
	}
	return nil
}

// AddInput stages a side input. A new name appends a row; an existing name
// replaces the stored descriptor in place.
func (r *Registry) AddInput(io cad.SideIO) error {
	if err := validateSideIO(io); err != nil {
		return err
	}
	if _, exists := r.inputs[io.Name]; !exists {
		r.order = append(r.order, rowKey{kind: KindSideInput, name: io.Name})
		r.logger.Debug().Str("name", io.Name).Msg("adding input")
	} else {
		r.logger.Debug().Str("name", io.Name).Msg("updating input")
	}
	r.inputs[io.Name] = io
	r.collector.SetRegistryEntries(string(KindSideInput), len(r.inputs))
	return nil
}

// AddOutput stages a side output. The reserved default output cannot be
// staged or replaced through this path.
func (r *Registry) AddOutput(io cad.SideIO) error {
	if io.Name == cad.DefaultOutputName {
		return cad.ErrReservedOutput
	}
	if err := validateSideIO(io); err != nil {
		return err
	}
	if _, exists := r.outputs[io.Name]; !exists {
		r.order = append(r.order, rowKey{kind: KindSideOutput, name: io.Name})
		r.logger.Debug().Str("name", io.Name).Msg("adding output")
	} else {
		r.logger.Debug().Str("name", io.Name).Msg("updating output")
	}
	r.outputs[io.Name] = io
	r.collector.SetRegistryEntries(string(KindSideOutput), len(r.outputs))
	return nil
}

// AddTopInlet stages a top inlet. Luer inlets keep their descriptor
// dimensions zeroed; the collaborator applies the catalog defaults.
func (r *Registry) AddTopInlet(io cad.TopInlet) error {
	if io.Name == "" {
		return fmt.Errorf("top inlet name must not be empty")
	}
	style, err := cad.ParseTopInletStyle(string(io.Style))
	if err != nil {
		return err
	}
	io.Style = style
	if io.Style == cad.TopInletCustom && io.Diameter <= 0 {
		return fmt.Errorf("custom top inlet %q needs a positive diameter", io.Name)
	}
	if _, exists := r.topInlets[io.Name]; !exists {
		r.order = append(r.order, rowKey{kind: KindTopInlet, name: io.Name})
		r.logger.Debug().Str("name", io.Name).Msg("adding top inlet")
	} else {
		r.logger.Debug().Str("name", io.Name).Msg("updating top inlet")
	}
	r.topInlets[io.Name] = io
	r.collector.SetRegistryEntries(string(KindTopInlet), len(r.topInlets))
	return nil
}

// Delete removes a staged descriptor by kind and name. Deleting the
// reserved default output is rejected; deleting a name that is not staged
// reports ErrNothingSelected, which callers log and ignore.
func (r *Registry) Delete(kind IOKind, name string) error {
	if kind == KindSideOutput && name == cad.DefaultOutputName {
		return cad.ErrReservedOutput
	}
	var exists bool
	switch kind {
	case KindSideInput:
		_, exists = r.inputs[name]
		delete(r.inputs, name)
	case KindSideOutput:
		_, exists = r.outputs[name]
		delete(r.outputs, name)
	case KindTopInlet:
		_, exists = r.topInlets[name]
		delete(r.topInlets, name)
	default:
		return fmt.Errorf("unknown I/O kind %q", kind)
	}
	if !exists {
		r.logger.Debug().Str("name", name).Msg("no I/O selected, can't delete")
		return cad.ErrNothingSelected
	}
	r.dropRow(kind, name)
	r.logger.Debug().Str("name", name).Str("kind", string(kind)).Msg("deleting I/O")
	r.collector.SetRegistryEntries(string(kind), r.Count(kind))
	return nil
}

func (r *Registry) dropRow(kind IOKind, name string) {
	for i, key := range r.order {
		if key.kind == kind && key.name == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// Count returns the number of staged descriptors of one kind.
func (r *Registry) Count(kind IOKind) int {
	switch kind {
	case KindSideInput:
		return len(r.inputs)
	case KindSideOutput:
		return len(r.outputs)
	case KindTopInlet:
		return len(r.topInlets)
	default:
		return 0
	}
}

// Rows returns the derived view of all staged descriptors in insertion
// order.
func (r *Registry) Rows() []Row {
	rows := make([]Row, 0, len(r.order))
	for _, key := range r.order {
		row := Row{Name: key.name, Kind: key.kind}
		switch key.kind {
		case KindSideInput:
			row.Connected = r.inputs[key.name].Connected
		case KindSideOutput:
			row.Connected = r.outputs[key.name].Connected
			row.Default = key.name == cad.DefaultOutputName
		case KindTopInlet:
			row.Connected = r.topInlets[key.name].Connected
		}
		rows = append(rows, row)
	}
	return rows
}

// Input returns a staged side input by name.
func (r *Registry) Input(name string) (cad.SideIO, bool) {
	io, ok := r.inputs[name]
	return io, ok
}

// Output returns a staged side output by name. The reserved default output
// is not editable and cannot be fetched for editing.
func (r *Registry) Output(name string) (cad.SideIO, error) {
	if name == cad.DefaultOutputName {
		return cad.SideIO{}, cad.ErrReservedOutput
	}
	io, ok := r.outputs[name]
	if !ok {
		return cad.SideIO{}, cad.ErrNothingSelected
	}
	return io, nil
}

// TopInlet returns a staged top inlet by name.
func (r *Registry) TopInlet(name string) (cad.TopInlet, bool) {
	io, ok := r.topInlets[name]
	return io, ok
}

// Inputs returns the staged side inputs in insertion order.
func (r *Registry) Inputs() []cad.SideIO {
	out := make([]cad.SideIO, 0, len(r.inputs))
	for _, key := range r.order {
		if key.kind == KindSideInput {
			out = append(out, r.inputs[key.name])
		}
	}
	return out
}

// Outputs returns the staged side outputs in insertion order, including a
// restored default output when present.
func (r *Registry) Outputs() []cad.SideIO {
	out := make([]cad.SideIO, 0, len(r.outputs))
	for _, key := range r.order {
		if key.kind == KindSideOutput {
			out = append(out, r.outputs[key.name])
		}
	}
	return out
}

// TopInlets returns the staged top inlets in insertion order.
func (r *Registry) TopInlets() []cad.TopInlet {
	out := make([]cad.TopInlet, 0, len(r.topInlets))
	for _, key := range r.order {
		if key.kind == KindTopInlet {
			out = append(out, r.topInlets[key.name])
		}
	}
	return out
}

// RestoreFrom replaces the staged descriptors with the I/O of a live
// module, the starting point when re-opening the editor. The default
// output appears as a protected row.
func (r *Registry) RestoreFrom(m cad.Module) error {
	r.inputs = make(map[string]cad.SideIO)
	r.outputs = make(map[string]cad.SideIO)
	r.topInlets = make(map[string]cad.TopInlet)
	r.order = nil

	for _, io := range m.Inputs() {
		fraction, err := m.HeightFraction(cad.SidePortInput, io)
		if err != nil {
			return fmt.Errorf("restore input %s: %w", io.Name, err)
		}
		io.HeightFraction = fraction
		r.inputs[io.Name] = io
		r.order = append(r.order, rowKey{kind: KindSideInput, name: io.Name})
		r.logger.Debug().Str("name", io.Name).Msg("restoring input")
	}
	for _, io := range m.Outputs() {
		fraction, err := m.HeightFraction(cad.SidePortOutput, io)
		if err != nil {
			return fmt.Errorf("restore output %s: %w", io.Name, err)
		}
		io.HeightFraction = fraction
		r.outputs[io.Name] = io
		r.order = append(r.order, rowKey{kind: KindSideOutput, name: io.Name})
		r.logger.Debug().Str("name", io.Name).Msg("restoring output")
	}
	for _, io := range m.TopInlets() {
		io.Connected = false
		r.topInlets[io.Name] = io
		r.order = append(r.order, rowKey{kind: KindTopInlet, name: io.Name})
		r.logger.Debug().Str("name", io.Name).Msg("restoring top inlet")
	}

	r.collector.SetRegistryEntries(string(KindSideInput), len(r.inputs))
	r.collector.SetRegistryEntries(string(KindSideOutput), len(r.outputs))
	r.collector.SetRegistryEntries(string(KindTopInlet), len(r.topInlets))
	return nil
}
