package struct_analyzer

import (
	"strings"

	"github.com/ouywm/confrs/struct_analyzer/models"
)

// configRootDerive is the derive marker that makes a struct a configuration
// root, and configPrefixAttr the attribute carrying its section prefix.
const (
	configRootDerive = "Configurable"
	configPrefixAttr = "config_prefix"
)

// ParseAttributeText converts the raw text of one #[...] annotation into
// flat (name, argument) pairs. Nested argument lists like
// #[serde(rename = "x", default)] flatten to dotted names:
// {"serde.rename", "x"}, {"serde.default", ""}. Anything that does not
// match a recognized shape is kept verbatim so callers can still query it.
func ParseAttributeText(text string) models.AttributeList {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "#")
	text = strings.TrimPrefix(text, "[")
	text = strings.TrimSuffix(text, "]")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// name = "value" form, e.g. config_prefix = "web"
	if name, arg, ok := splitKeyValue(text); ok {
		return models.AttributeList{{Name: name, Arg: arg}}
	}

	// name(args) form, e.g. serde(...), derive(...), cfg(...)
	open := strings.Index(text, "(")
	if open < 0 || !strings.HasSuffix(text, ")") {
		// Bare marker, e.g. #[test]
		return models.AttributeList{{Name: text}}
	}

	name := strings.TrimSpace(text[:open])
	inner := text[open+1 : len(text)-1]

	switch name {
	case "derive":
		return models.AttributeList{{Name: "derive", Arg: strings.TrimSpace(inner)}}
	case "cfg":
		// The predicate is kept raw; evaluation happens elsewhere.
		return models.AttributeList{{Name: "cfg", Arg: strings.TrimSpace(inner)}}
	default:
		var attrs models.AttributeList
		for _, part := range splitTopLevel(inner, ',') {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if k, v, ok := splitKeyValue(part); ok {
				attrs = append(attrs, models.Attribute{Name: name + "." + k, Arg: v})
			} else {
				attrs = append(attrs, models.Attribute{Name: name + "." + part})
			}
		}
		if len(attrs) == 0 {
			attrs = append(attrs, models.Attribute{Name: name})
		}
		return attrs
	}
}

// splitKeyValue splits `key = "value"` into its parts, unquoting the value.
func splitKeyValue(s string) (string, string, bool) {
	eq := indexTopLevel(s, '=')
	if eq < 0 {
		return "", "", false
	}
	key := strings.TrimSpace(s[:eq])
	if key == "" || strings.ContainsAny(key, "(\" ") {
		return "", "", false
	}
	val := strings.TrimSpace(s[eq+1:])
	val = strings.Trim(val, `"`)
	return key, val, true
}

// splitTopLevel splits on sep, ignoring separators nested inside
// parentheses, angle brackets, or string literals.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inString := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if c == '"' && (i == 0 || s[i-1] != '\\') {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '(' || c == '<' || c == '[':
			depth++
		case c == ')' || c == '>' || c == ']':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// indexTopLevel returns the index of the first unnested, unquoted
// occurrence of c, or -1.
func indexTopLevel(s string, c byte) int {
	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		switch {
		case inString:
			if s[i] == '"' && s[i-1] != '\\' {
				inString = false
			}
		case s[i] == '"':
			inString = true
		case s[i] == '(' || s[i] == '<' || s[i] == '[':
			depth++
		case s[i] == ')' || s[i] == '>' || s[i] == ']':
			depth--
		case s[i] == c && depth == 0:
			return i
		}
	}
	return -1
}

// IsConfigRoot reports whether a declaration carries the Configurable
// derive marker.
func IsConfigRoot(d *models.Declaration) bool {
	derives, ok := d.Attributes.Get("derive")
	if !ok {
		return false
	}
	for _, item := range strings.Split(derives, ",") {
		if strings.TrimSpace(item) == configRootDerive {
			return true
		}
	}
	return false
}

// ConfigPrefix returns the declaration's configuration-section prefix.
func ConfigPrefix(d *models.Declaration) (string, bool) {
	prefix, ok := d.Attributes.Get(configPrefixAttr)
	if !ok || prefix == "" {
		return "", false
	}
	return prefix, true
}

// CfgPredicate returns the raw conditional-compilation predicate attached
// to the declaration, if any.
func CfgPredicate(attrs models.AttributeList) string {
	pred, _ := attrs.Get("cfg")
	return pred
}

// interpretFieldAttributes fills in the serde-derived metadata of a field
// from its raw attribute list: rename target, flatten marker, and cfg
// predicate. The default-value description is resolved in a later pass,
// once the literal-function table of the whole scan is known.
func interpretFieldAttributes(f *models.Field) {
	if target, ok := f.Attributes.Get("serde.rename"); ok && target != "" {
		f.Rename = target
	}
	f.Flatten = f.Attributes.Has("serde.flatten")
	f.CfgPredicate = CfgPredicate(f.Attributes)
}

// DefaultDescription derives a display description for a field's default
// value. A bare #[serde(default)] yields an example literal for the
// field's type. #[serde(default = "path::fn")] is resolved best-effort
// against the table of literal-returning functions discovered during the
// scan; a function that is not a simple literal return yields nothing.
func DefaultDescription(f *models.Field, defaultFns map[string]string) string {
	arg, ok := f.Attributes.Get("serde.default")
	if !ok {
		return ""
	}
	if arg == "" {
		return exampleDefaultForType(f.InnerType)
	}
	if lit, ok := defaultFns[arg]; ok {
		return lit
	}
	// Unqualified function names may have been recorded under their
	// module path; try a suffix match.
	for fn, lit := range defaultFns {
		if strings.HasSuffix(fn, "::"+arg) {
			return lit
		}
	}
	return ""
}

// exampleDefaultForType returns an example default literal for a scalar
// type, or "" when no sensible example exists.
func exampleDefaultForType(typeText string) string {
	t := strings.TrimSpace(typeText)
	switch {
	case isIntegerType(t):
		return "0"
	case t == "f32" || t == "f64":
		return "0.0"
	case t == "bool":
		return "false"
	case t == "String" || t == "&str" || t == "str" || t == "char" || t == "PathBuf":
		return `""`
	}
	switch classifyWrapper(t) {
	case models.WrapperCollection:
		return "[]"
	case models.WrapperMap:
		return "{}"
	}
	return ""
}
