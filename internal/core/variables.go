package core

import (
	"regexp"
	"sort"
)

// tokenPattern matches {{name}} template tokens, with optional inner spaces.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// ScanTokens returns the distinct template token names referenced by text,
// in order of first appearance.
func ScanTokens(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range tokenPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// ResolveVariables classifies every token referenced by the pre-substitution
// prompt text into exactly one of the four variable kinds:
//
//  1. declared with a literal value        -> static
//  2. declared as runtime-deferred         -> override
//  3. declared in dynamic_variables        -> dynamic
//  4. not declared anywhere                -> system
//
// A name declared in both variables and dynamic_variables is an ambiguous
// declaration and fails resolution, whether or not the prompt references it.
// pc may be nil (flat prompt); every token then classifies as system.
func ResolveVariables(pc *PromptConfig, text string) (*VariableSummary, error) {
	var (
		variables map[string]VariableValue
		dynamic   map[string]DynamicVariable
	)
	if pc != nil {
		variables = pc.Variables
		dynamic = pc.DynamicVariables
	}

	if name := firstAmbiguousName(variables, dynamic); name != "" {
		return nil, &AmbiguousVariableError{Name: name}
	}

	summary := &VariableSummary{}
	for _, name := range ScanTokens(text) {
		if val, ok := variables[name]; ok {
			if lit, isLiteral := val.Literal(); isLiteral {
				summary.Static = append(summary.Static, Variable{
					Kind:  VariableStatic,
					Name:  name,
					Value: lit,
				})
			} else {
				summary.Override = append(summary.Override, Variable{
					Kind: VariableOverride,
					Name: name,
				})
			}
			continue
		}
		if dv, ok := dynamic[name]; ok {
			summary.Dynamic = append(summary.Dynamic, Variable{
				Kind:        VariableDynamic,
				Name:        name,
				ValueType:   dv.Type,
				Description: dv.Description,
			})
			continue
		}
		summary.System = append(summary.System, Variable{
			Kind: VariableSystem,
			Name: name,
		})
	}
	return summary, nil
}

// firstAmbiguousName returns the lexicographically first name declared in both
// maps, or "" if none. Sorting keeps the reported error deterministic.
func firstAmbiguousName(variables map[string]VariableValue, dynamic map[string]DynamicVariable) string {
	var clashes []string
	for name := range variables {
		if _, ok := dynamic[name]; ok {
			clashes = append(clashes, name)
		}
	}
	if len(clashes) == 0 {
		return ""
	}
	sort.Strings(clashes)
	return clashes[0]
}
