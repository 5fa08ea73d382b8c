package rules

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"reactorcad/cad"
	"reactorcad/config"
)

func testCatalog(t *testing.T) *config.Catalog {
	t.Helper()
	catalog, err := config.LoadCatalog("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

func testParams() cad.Parameters {
	return cad.Parameters{
		Volume:         20,
		TopType:        "open",
		BottomType:     "flat",
		FilterDiameter: 20,
		FilterHeight:   3,
		PipeDiameter:   3,
	}
}

func TestDefaultRulesAcceptSaneParameters(t *testing.T) {
	engine, err := New(config.DefaultRules(), zerolog.Nop())
	if err != nil {
		t.Fatalf("compile rules: %v", err)
	}
	if engine.Len() != 4 {
		t.Fatalf("expected 4 built-in rules, got %d", engine.Len())
	}
	env := Environment(testParams(), testCatalog(t), 15, 30)
	if err := engine.Check(env); err != nil {
		t.Fatalf("expected rules to pass: %v", err)
	}
}

func TestViolationYieldsConstructionError(t *testing.T) {
	engine, err := New(config.DefaultRules(), zerolog.Nop())
	if err != nil {
		t.Fatalf("compile rules: %v", err)
	}
	params := testParams()
	params.FilterDiameter = 100
	env := Environment(params, testCatalog(t), 15, 30)
	err = engine.Check(env)
	if !cad.IsConstruction(err) {
		t.Fatalf("expected ConstructionError, got %v", err)
	}
	if !strings.Contains(err.Error(), "filter too large") {
		t.Fatalf("expected rule message, got %v", err)
	}
}

func TestPipeRuleOnlyAppliesToPipeBottoms(t *testing.T) {
	engine, err := New(config.DefaultRules(), zerolog.Nop())
	if err != nil {
		t.Fatalf("compile rules: %v", err)
	}
	catalog := testCatalog(t)

	params := testParams()
	params.PipeDiameter = 50
	if err := engine.Check(Environment(params, catalog, 15, 30)); !cad.IsConstruction(err) {
		t.Fatalf("expected pipe rule violation, got %v", err)
	}

	params.BottomType = "domed"
	if err := engine.Check(Environment(params, catalog, 15, 30)); err != nil {
		t.Fatalf("pipe rule must not apply without a pipe: %v", err)
	}
}

func TestNonBooleanExpressionFailsCheck(t *testing.T) {
	engine, err := New([]config.RuleConfig{{ID: "numeric", Expression: "volume + 1"}}, zerolog.Nop())
	if err != nil {
		t.Fatalf("compile rules: %v", err)
	}
	err = engine.Check(Environment(testParams(), testCatalog(t), 15, 30))
	if err == nil || !strings.Contains(err.Error(), "want bool") {
		t.Fatalf("expected type error, got %v", err)
	}
}

func TestCompileErrorSurfacesRuleID(t *testing.T) {
	_, err := New([]config.RuleConfig{{ID: "broken", Expression: "volume >"}}, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected compile error naming the rule, got %v", err)
	}
}

func TestMissingMessageFallsBackToRuleID(t *testing.T) {
	engine, err := New([]config.RuleConfig{{ID: "always_false", Expression: "false"}}, zerolog.Nop())
	if err != nil {
		t.Fatalf("compile rules: %v", err)
	}
	err = engine.Check(Environment(testParams(), testCatalog(t), 15, 30))
	if err == nil || !strings.Contains(err.Error(), "always_false") {
		t.Fatalf("expected fallback message, got %v", err)
	}
}
