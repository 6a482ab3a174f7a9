package struct_analyzer

import (
	"strings"

	"github.com/ouywm/confrs/struct_analyzer/models"
)

var integerTypes = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
}

// scalarTypes are field types that can never resolve to a nested
// configuration struct. Checking them first is a text-only fast path that
// avoids the resolver strategies entirely.
var scalarTypes = map[string]bool{
	"bool": true, "char": true, "f32": true, "f64": true,
	"String": true, "str": true, "&str": true,
	"PathBuf": true, "Duration": true, "IpAddr": true, "SocketAddr": true,
}

func isIntegerType(t string) bool { return integerTypes[t] }

// isScalarType reports whether the type text names a primitive or
// well-known scalar wrapper that is excluded from struct resolution.
func isScalarType(t string) bool {
	t = strings.TrimSpace(t)
	if integerTypes[t] || scalarTypes[t] {
		return true
	}
	return scalarTypes[simpleTypeName(t)]
}

var collectionWrappers = map[string]models.WrapperKind{
	"Option":   models.WrapperOption,
	"Vec":      models.WrapperCollection,
	"VecDeque": models.WrapperCollection,
	"HashSet":  models.WrapperCollection,
	"BTreeSet": models.WrapperCollection,
	"HashMap":  models.WrapperMap,
	"BTreeMap": models.WrapperMap,
	"Box":      models.WrapperSmartPointer,
	"Arc":      models.WrapperSmartPointer,
	"Rc":       models.WrapperSmartPointer,
}

// classifyWrapper identifies the outermost wrapper of a type text.
func classifyWrapper(typeText string) models.WrapperKind {
	kind, _ := unwrapType(typeText)
	return kind
}

// unwrapType strips one level of generic wrapper syntax from a field's
// declared type, returning the wrapper kind and the inner type text. For
// map types the inner type is the value type (configuration keys map to
// values, never to the key type). A type with no recognized wrapper
// returns WrapperNone and itself.
func unwrapType(typeText string) (models.WrapperKind, string) {
	t := strings.TrimSpace(typeText)
	t = strings.TrimPrefix(t, "&")

	open := strings.Index(t, "<")
	if open < 0 || !strings.HasSuffix(t, ">") {
		return models.WrapperNone, t
	}

	base := simpleTypeName(t[:open])
	kind, ok := collectionWrappers[base]
	if !ok {
		return models.WrapperNone, t
	}

	args := splitTopLevel(t[open+1:len(t)-1], ',')
	switch kind {
	case models.WrapperMap:
		if len(args) < 2 {
			return kind, ""
		}
		return kind, strings.TrimSpace(args[1])
	default:
		if len(args) == 0 {
			return kind, ""
		}
		return kind, strings.TrimSpace(args[0])
	}
}

// skipNestedExpansion reports whether a field's declared type is a raw
// collection or map of scalars — retained as a regular field but excluded
// from recursive nested-type discovery and from flatten expansion.
func skipNestedExpansion(typeText string) bool {
	kind, inner := unwrapType(typeText)
	switch kind {
	case models.WrapperCollection, models.WrapperMap:
		return true
	case models.WrapperOption, models.WrapperSmartPointer:
		return skipNestedExpansion(inner)
	}
	return false
}

// simpleTypeName strips any path qualification and generic arguments,
// returning the bare type name: pkg::module::Type<T> -> Type.
func simpleTypeName(typeText string) string {
	t := strings.TrimSpace(typeText)
	t = strings.TrimPrefix(t, "&")
	if open := strings.Index(t, "<"); open >= 0 {
		t = t[:open]
	}
	if sep := strings.LastIndex(t, "::"); sep >= 0 {
		t = t[sep+2:]
	}
	return strings.TrimSpace(t)
}

// pathPrefix returns the qualification preceding the simple name:
// pkg::module::Type -> pkg::module, "" when unqualified.
func pathPrefix(typeText string) string {
	t := strings.TrimSpace(typeText)
	t = strings.TrimPrefix(t, "&")
	if open := strings.Index(t, "<"); open >= 0 {
		t = t[:open]
	}
	if sep := strings.LastIndex(t, "::"); sep >= 0 {
		return t[:sep]
	}
	return ""
}

// crateOfPath returns the first segment of a qualified type path, which
// names the crate the type is expected to live in. crate/self/super
// qualifications refer to the current crate and return "".
func crateOfPath(typeText string) string {
	prefix := pathPrefix(typeText)
	if prefix == "" {
		return ""
	}
	first := prefix
	if sep := strings.Index(prefix, "::"); sep >= 0 {
		first = prefix[:sep]
	}
	switch first {
	case "crate", "self", "super", "std", "core", "alloc":
		return ""
	}
	return first
}

// stdlibCrates are never treated as nested configuration structs.
var stdlibCrates = map[string]bool{"std": true, "core": true, "alloc": true}

func isStdlibFQN(fqn string) bool {
	if sep := strings.Index(fqn, "::"); sep >= 0 {
		return stdlibCrates[fqn[:sep]]
	}
	return false
}
