// Package rules evaluates configurable compatibility rules against a
// parameter combination before a module is built.
//
// Rule expressions run in an environment with the keys volume, top_type,
// bottom_type, top_threaded, bottom_pipe, filter_height, filter_diameter,
// pipe_diameter, radius, radius_constrained, body_radius and body_height.
package rules

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"reactorcad/cad"
	"reactorcad/config"
)

type rule struct {
	cfg     config.RuleConfig
	program *vm.Program
}

// Engine holds the compiled rule set.
type Engine struct {
	rules  []rule
	logger zerolog.Logger
}

// New compiles the configured rules into an engine.
func New(cfgs []config.RuleConfig, logger zerolog.Logger) (*Engine, error) {
	engine := &Engine{logger: logger}
	for _, cfg := range cfgs {
		if cfg.ID == "" {
			return nil, fmt.Errorf("rule id must not be empty")
		}
		program, err := compileExpression(cfg.Expression)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", cfg.ID, err)
		}
		engine.rules = append(engine.rules, rule{cfg: cfg, program: program})
	}
	return engine, nil
}

func compileExpression(exprStr string) (*vm.Program, error) {
	return expr.Compile(exprStr, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables())
}

// Environment builds the rule environment for a parameter set and the
// dimensions the collaborator derived from it.
func Environment(p cad.Parameters, catalog *config.Catalog, bodyRadius, bodyHeight float64) map[string]interface{} {
	return map[string]interface{}{
		"volume":             p.Volume,
		"top_type":           p.TopType,
		"bottom_type":        p.BottomType,
		"top_threaded":       catalog.IsThreadedTop(p.TopType),
		"bottom_pipe":        catalog.BottomHasPipe(p.BottomType),
		"filter_height":      p.FilterHeight,
		"filter_diameter":    p.FilterDiameter,
		"pipe_diameter":      p.PipeDiameter,
		"radius":             p.Radius,
		"radius_constrained": p.RadiusConstrained,
		"body_radius":        bodyRadius,
		"body_height":        bodyHeight,
	}
}

// Check evaluates every rule against the environment. The first violated
// rule fails the check with a ConstructionError carrying the rule message.
func (e *Engine) Check(env map[string]interface{}) error {
	for _, r := range e.rules {
		output, err := vm.Run(r.program, env)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.cfg.ID, err)
		}
		ok, isBool := output.(bool)
		if !isBool {
			return fmt.Errorf("rule %s: expression yielded %T, want bool", r.cfg.ID, output)
		}
		if !ok {
			message := r.cfg.Message
			if message == "" {
				message = fmt.Sprintf("rule %s violated", r.cfg.ID)
			}
			e.logger.Debug().Str("rule", r.cfg.ID).Msg("compatibility rule violated")
			return &cad.ConstructionError{Reason: message}
		}
	}
	return nil
}

// Len returns the number of compiled rules.
func (e *Engine) Len() int {
	return len(e.rules)
}
