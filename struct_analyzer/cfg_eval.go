package struct_analyzer

import "strings"

// EvalCfg evaluates a conditional-compilation predicate against the set of
// enabled cargo features. Supported forms are feature = "name", all(...),
// any(...), and not(...). Predicates the evaluator does not understand
// (target_os, unix, ...) evaluate to included: for an advisory engine a
// spurious suggestion beats a hidden declaration. An empty predicate is
// always included.
func EvalCfg(predicate string, features map[string]bool) bool {
	predicate = strings.TrimSpace(predicate)
	if predicate == "" {
		return true
	}

	if inner, ok := cfgCall(predicate, "all"); ok {
		for _, arg := range splitTopLevel(inner, ',') {
			if !EvalCfg(arg, features) {
				return false
			}
		}
		return true
	}
	if inner, ok := cfgCall(predicate, "any"); ok {
		for _, arg := range splitTopLevel(inner, ',') {
			if EvalCfg(arg, features) {
				return true
			}
		}
		return false
	}
	if inner, ok := cfgCall(predicate, "not"); ok {
		return !EvalCfg(inner, features)
	}

	if key, val, ok := splitKeyValue(predicate); ok && key == "feature" {
		return features[val]
	}

	return true
}

// cfgCall matches name(inner) and returns the inner argument text.
func cfgCall(predicate, name string) (string, bool) {
	if !strings.HasPrefix(predicate, name) {
		return "", false
	}
	rest := strings.TrimSpace(predicate[len(name):])
	if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
		return "", false
	}
	return rest[1 : len(rest)-1], true
}
