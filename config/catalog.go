package config

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

const catalogSchema = `
#TopStyle: {
	name:          string & !=""
	label:         string & !=""
	threaded:      bool | *false
	thread_radius: number & >=0 | *0
	top_inlets:    bool | *false
}

#BottomStyle: {
	name:   string & !=""
	label:  string & !=""
	pipe:   bool | *false
	hidden: bool | *false
}

#LuerDefaults: {
	diameter: number & >0 | *1.6
	length:   number & >0 | *8.0
	wall:     number & >0 | *1.0
}

#Catalog: {
	tops: [...#TopStyle] | *[]
	bottoms: [...#BottomStyle] | *[]
	luer?: #LuerDefaults
}
`

const defaultCatalog = `
tops: [
	{name: "open", label: "Open", top_inlets: true},
	{name: "closed-round", label: "Closed round"},
	{name: "gl25", label: "GL25 threaded", threaded: true, thread_radius: 12.5},
	{name: "gl45", label: "GL45 threaded", threaded: true, thread_radius: 22.5},
]
bottoms: [
	{name: "round", label: "Simple round", hidden: true},
	{name: "flat", label: "Flat", pipe: true},
	{name: "cone", label: "Conical", pipe: true},
	{name: "domed", label: "Domed"},
]
luer: {}
`

// TopStyle describes one selectable top of the reactor body. Threaded
// styles fix the body radius through ThreadRadius; TopInlets marks styles
// that can carry custom top inlets.
type TopStyle struct {
	Name         string  `json:"name"`
	Label        string  `json:"label"`
	Threaded     bool    `json:"threaded"`
	ThreadRadius float64 `json:"thread_radius"`
	TopInlets    bool    `json:"top_inlets"`
}

// BottomStyle describes one selectable bottom. Pipe marks bottoms with an
// internal pipe; Hidden excludes degenerate styles from selection.
type BottomStyle struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Pipe   bool   `json:"pipe"`
	Hidden bool   `json:"hidden"`
}

// LuerDefaults carries the fixed dimensions applied to luer top inlets.
type LuerDefaults struct {
	Diameter float64 `json:"diameter"`
	Length   float64 `json:"length"`
	Wall     float64 `json:"wall"`
}

type catalogDocument struct {
	Tops    []TopStyle    `json:"tops"`
	Bottoms []BottomStyle `json:"bottoms"`
	Luer    *LuerDefaults `json:"luer,omitempty"`
}

// Catalog is the merged style catalog the editor and the geometry
// collaborator share.
type Catalog struct {
	Tops    []TopStyle
	Bottoms []BottomStyle
	Luer    LuerDefaults
}

// LoadCatalog builds the style catalog from the embedded defaults, all
// registered overlays and, when path is not empty, a user-supplied CUE
// file. Later sources override styles of the same name.
func LoadCatalog(path string) (*Catalog, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(catalogSchema, cue.Filename("catalog_schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Catalog"))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("resolve catalog definition: %w", err)
	}

	sources := [][2]string{{"default_catalog.cue", defaultCatalog}}
	sources = append(sources, registeredOverlays()...)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		sources = append(sources, [2]string{path, string(raw)})
	}

	catalog := &Catalog{}
	for _, source := range sources {
		doc, err := decodeCatalogSource(ctx, def, source[0], source[1])
		if err != nil {
			return nil, err
		}
		catalog.merge(doc)
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func decodeCatalogSource(ctx *cue.Context, def cue.Value, name, src string) (*catalogDocument, error) {
	value := ctx.CompileString(src, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog %s: %w", name, err)
	}
	unified := def.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate catalog %s: %w", name, err)
	}
	var doc catalogDocument
	if err := unified.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", name, err)
	}
	return &doc, nil
}

func (c *Catalog) merge(doc *catalogDocument) {
	for _, top := range doc.Tops {
		if idx := indexTop(c.Tops, top.Name); idx >= 0 {
			c.Tops[idx] = top
		} else {
			c.Tops = append(c.Tops, top)
		}
	}
	for _, bottom := range doc.Bottoms {
		if idx := indexBottom(c.Bottoms, bottom.Name); idx >= 0 {
			c.Bottoms[idx] = bottom
		} else {
			c.Bottoms = append(c.Bottoms, bottom)
		}
	}
	if doc.Luer != nil {
		c.Luer = *doc.Luer
	}
}

func (c *Catalog) validate() error {
	if len(c.Tops) == 0 {
		return fmt.Errorf("catalog declares no top styles")
	}
	for _, top := range c.Tops {
		if top.Threaded && top.ThreadRadius <= 0 {
			return fmt.Errorf("threaded top %q needs a positive thread_radius", top.Name)
		}
	}
	selectable := 0
	for _, bottom := range c.Bottoms {
		if !bottom.Hidden {
			selectable++
		}
	}
	if selectable == 0 {
		return fmt.Errorf("catalog declares no selectable bottom styles")
	}
	if c.Luer.Diameter <= 0 || c.Luer.Length <= 0 || c.Luer.Wall <= 0 {
		return fmt.Errorf("catalog luer defaults must be positive")
	}
	return nil
}

func indexTop(tops []TopStyle, name string) int {
	for i, top := range tops {
		if top.Name == name {
			return i
		}
	}
	return -1
}

func indexBottom(bottoms []BottomStyle, name string) int {
	for i, bottom := range bottoms {
		if bottom.Name == name {
			return i
		}
	}
	return -1
}

// Top returns the style with the given name.
func (c *Catalog) Top(name string) (TopStyle, bool) {
	if idx := indexTop(c.Tops, name); idx >= 0 {
		return c.Tops[idx], true
	}
	return TopStyle{}, false
}

// Bottom returns the style with the given name.
func (c *Catalog) Bottom(name string) (BottomStyle, bool) {
	if idx := indexBottom(c.Bottoms, name); idx >= 0 {
		return c.Bottoms[idx], true
	}
	return BottomStyle{}, false
}

// IsThreadedTop reports whether the named top belongs to the threaded
// subset.
func (c *Catalog) IsThreadedTop(name string) bool {
	top, ok := c.Top(name)
	return ok && top.Threaded
}

// BottomHasPipe reports whether the named bottom carries an internal pipe.
func (c *Catalog) BottomHasPipe(name string) bool {
	bottom, ok := c.Bottom(name)
	return ok && bottom.Pipe
}

// SelectableBottoms returns the bottoms offered for selection, excluding
// hidden degenerate styles.
func (c *Catalog) SelectableBottoms() []BottomStyle {
	out := make([]BottomStyle, 0, len(c.Bottoms))
	for _, bottom := range c.Bottoms {
		if !bottom.Hidden {
			out = append(out, bottom)
		}
	}
	return out
}
