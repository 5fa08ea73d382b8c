package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reactorcad/assembly"
	"reactorcad/cad"
	"reactorcad/config"
	"reactorcad/editor"
	"reactorcad/geometry"
	"reactorcad/internal/logging"
	"reactorcad/rules"
	"reactorcad/telemetry"
)

func main() {
	cfgPath := flag.String("config", "", "Path to configuration file (empty uses built-in defaults)")
	configCheck := flag.Bool("config-check", false, "Validate configuration and exit")
	assemblyPath := flag.String("assembly", "", "Path to an assembly definition to build")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if *configCheck {
		os.Exit(executeConfigCheck(cfg))
	}

	if *assemblyPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -assembly or -config-check")
		os.Exit(2)
	}

	logger, cleanup, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup logger")
	}
	defer cleanup()
	log.Logger = logger

	collector, err := newTelemetryCollector(cfg.Telemetry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		collector = telemetry.Noop()
	}

	if err := buildAssembly(cfg, *assemblyPath, logger, collector); err != nil {
		logger.Fatal().Err(err).Msg("assembly build failed")
	}
}

func executeConfigCheck(cfg *config.Config) int {
	catalog, err := config.LoadCatalog(cfg.Catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog invalid: %v\n", err)
		return 1
	}
	ruleEngine, err := rules.New(cfg.Rules, zerolog.Nop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "rules invalid: %v\n", err)
		return 1
	}
	if _, err := editor.NewParameterStore(catalog, cfg.Defaults, cfg.Limits, zerolog.Nop()); err != nil {
		fmt.Fprintf(os.Stderr, "defaults invalid: %v\n", err)
		return 1
	}

	fmt.Printf("Catalog: %d top styles, %d bottom styles\n", len(catalog.Tops), len(catalog.Bottoms))
	for _, top := range catalog.Tops {
		fmt.Printf("  top %s (%s)", top.Name, top.Label)
		if top.Threaded {
			fmt.Printf(" [threaded, radius %v]", top.ThreadRadius)
		}
		fmt.Println()
	}
	for _, bottom := range catalog.Bottoms {
		fmt.Printf("  bottom %s (%s)", bottom.Name, bottom.Label)
		if bottom.Pipe {
			fmt.Print(" [pipe]")
		}
		if bottom.Hidden {
			fmt.Print(" [hidden]")
		}
		fmt.Println()
	}
	fmt.Printf("Rules: %d compiled\n", ruleEngine.Len())
	fmt.Println("Configuration check completed successfully.")
	return 0
}

func buildAssembly(cfg *config.Config, path string, logger zerolog.Logger, collector telemetry.Collector) error {
	definition, err := config.LoadAssembly(path)
	if err != nil {
		return err
	}
	catalog, err := config.LoadCatalog(cfg.Catalog)
	if err != nil {
		return err
	}
	ruleEngine, err := rules.New(cfg.Rules, logger)
	if err != nil {
		return err
	}

	builder := geometry.NewBuilder(catalog, ruleEngine, logger)
	workspace := assembly.New(logger)
	engine := editor.NewEngine(builder, workspace, logger, collector)

	for _, def := range definition.Modules {
		moduleLogger := logger.With().Str("module", def.Name).Logger()
		result, err := buildModule(engine, catalog, cfg, def, moduleLogger, collector)
		if err != nil {
			return fmt.Errorf("module %s: %w", def.Name, err)
		}
		report(def.Name, result)
	}

	fmt.Printf("Assembly built: %d modules, revision %d\n", len(workspace.Modules()), workspace.Revision())
	return nil
}

func buildModule(engine *editor.Engine, catalog *config.Catalog, cfg *config.Config, def config.ModuleDefinition, logger zerolog.Logger, collector telemetry.Collector) (*editor.CommitResult, error) {
	store, err := editor.NewParameterStore(catalog, cfg.Defaults, cfg.Limits, logger)
	if err != nil {
		return nil, err
	}
	for _, field := range editor.FieldOrder() {
		value, ok := def.Params[field]
		if !ok {
			continue
		}
		if err := store.Set(field, value); err != nil {
			return nil, err
		}
	}
	for field := range def.Params {
		if !knownField(field) {
			return nil, fmt.Errorf("unknown parameter field %q", field)
		}
	}

	reg := editor.NewRegistry(logger, collector)
	for _, io := range def.Inputs {
		if err := reg.AddInput(sideIO(io)); err != nil {
			return nil, err
		}
	}
	for _, io := range def.Outputs {
		if err := reg.AddOutput(sideIO(io)); err != nil {
			return nil, err
		}
	}
	for _, io := range def.TopInlets {
		style, err := cad.ParseTopInletStyle(io.Style)
		if err != nil {
			return nil, err
		}
		inlet := cad.TopInlet{
			Name:     io.Name,
			Style:    style,
			Diameter: io.Diameter,
			Length:   io.Length,
			Wall:     io.Wall,
		}
		if err := reg.AddTopInlet(inlet); err != nil {
			return nil, err
		}
	}

	return engine.Create(store, reg)
}

func sideIO(io config.SideIOConfig) cad.SideIO {
	return cad.SideIO{
		Name:           io.Name,
		HeightFraction: io.HeightFraction,
		Angle:          io.Angle,
		Diameter:       io.Diameter,
		External:       io.External,
	}
}

func knownField(field string) bool {
	for _, known := range editor.FieldOrder() {
		if known == field {
			return true
		}
	}
	return false
}

func report(name string, result *editor.CommitResult) {
	fmt.Printf("Module %q\n", name)
	if reactor, ok := result.Module.(*geometry.FilterReactor); ok {
		fmt.Printf("  Body: radius %.3f mm, height %.3f mm\n", reactor.BodyRadius(), reactor.BodyHeight())
	}
	fmt.Printf("  I/O: %d inputs, %d outputs, %d top inlets\n",
		len(result.Module.Inputs()), len(result.Module.Outputs()), len(result.Module.TopInlets()))
	for _, warning := range result.Warnings {
		fmt.Printf("  Warning (%s): %v\n", warning.Stage, warning.Err)
	}
}

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "prometheus":
		collector, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			return nil, err
		}
		return collector, nil
	default:
		return telemetry.Noop(), fmt.Errorf("unsupported telemetry provider %q", cfg.Provider)
	}
}
