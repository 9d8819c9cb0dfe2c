package core

import "strings"

// SectionResolver reads named prompt fragments from wherever they are stored.
// Resolve returns a SectionNotFoundError when no fragment exists for id.
type SectionResolver interface {
	Resolve(id string) (string, error)
}

// ComposePrompt assembles the ordered sections of a prompt config into one
// prompt string and substitutes static variables.
//
// Section text comes from the overrides map first, then the resolver. Sections
// are concatenated in declared order with a single newline separator; order is
// a correctness property, not cosmetic. Substitution is a single literal pass:
// a static value that itself contains template syntax is not re-expanded, and
// override/dynamic/system tokens stay verbatim for the remote runtime.
func ComposePrompt(pc *PromptConfig, resolver SectionResolver) (string, *VariableSummary, error) {
	text, err := composeTemplate(pc, resolver)
	if err != nil {
		return "", nil, err
	}
	summary, err := ResolveVariables(pc, text)
	if err != nil {
		return "", nil, err
	}
	return substituteStatic(text, summary), summary, nil
}

// composeTemplate concatenates resolved section texts without substituting
// anything. The result is the pre-substitution form the variable resolver and
// the reverse transform both work from.
func composeTemplate(pc *PromptConfig, resolver SectionResolver) (string, error) {
	parts := make([]string, 0, len(pc.Sections))
	for _, id := range pc.Sections {
		if text, ok := pc.Overrides[id]; ok {
			parts = append(parts, text)
			continue
		}
		text, err := resolver.Resolve(id)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

// substituteStatic replaces every occurrence of a static token with its
// literal value in one pass over the original text. Substituted output is
// never re-scanned, so values containing {{...}} cannot cascade or loop.
func substituteStatic(text string, summary *VariableSummary) string {
	if len(summary.Static) == 0 {
		return text
	}
	values := make(map[string]string, len(summary.Static))
	for _, v := range summary.Static {
		values[v.Name] = v.Value
	}
	return tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := tokenPattern.FindStringSubmatch(match)[1]
		if val, ok := values[name]; ok {
			return val
		}
		return match
	})
}

// BuildPrompt produces the final prompt string and variable summary for a
// config, handling both the flat-prompt and composable forms. A flat prompt
// has no local declarations, so every token it references classifies as
// system.
func BuildPrompt(cfg *AgentConfig, resolver SectionResolver) (string, *VariableSummary, error) {
	if pc := cfg.LLM.PromptConfig; pc != nil {
		return ComposePrompt(pc, resolver)
	}
	summary, err := ResolveVariables(nil, cfg.LLM.Prompt)
	if err != nil {
		return "", nil, err
	}
	return cfg.LLM.Prompt, summary, nil
}
