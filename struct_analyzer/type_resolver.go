package struct_analyzer

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ouywm/confrs/struct_analyzer/models"
)

// SideLoader lazily scans the source files of a named crate into an index
// when textual resolution misses. Reports whether anything new was added.
type SideLoader interface {
	LoadCrate(ctx context.Context, crate string, into *models.TypeIndex) bool
}

// TypeResolver resolves a field's declared type to a known struct
// declaration. Resolution runs an ordered list of strategies of decreasing
// precision; the first success wins.
type TypeResolver struct {
	sideLoader SideLoader
}

// NewTypeResolver creates a resolver. The side loader may be nil, in which
// case textual resolution never side-loads dependency crates.
func NewTypeResolver(sideLoader SideLoader) *TypeResolver {
	return &TypeResolver{sideLoader: sideLoader}
}

type resolveStrategy func(r *TypeResolver, ctx context.Context, f *models.Field, from *models.Declaration, ix *models.TypeIndex) *models.Declaration

var resolveStrategies = []resolveStrategy{
	(*TypeResolver).resolveDirect,
	(*TypeResolver).resolveImports,
	(*TypeResolver).resolveByName,
}

// Resolve maps a field to the struct declaration its type names, or nil.
// Scalar field types short-circuit before any strategy runs. The context
// bounds any side-load scan a strategy triggers.
func (r *TypeResolver) Resolve(ctx context.Context, f *models.Field, from *models.Declaration, ix *models.TypeIndex) *models.Declaration {
	if f == nil || isScalarType(f.InnerType) {
		return nil
	}
	for _, strategy := range resolveStrategies {
		if d := strategy(r, ctx, f, from, ix); d != nil {
			if rejectResolved(d) {
				continue
			}
			return d
		}
	}
	return nil
}

// resolveDirect treats the unwrapped inner type as a fully-qualified name.
// crate:: qualifications are rewritten to the declaring crate's real name.
func (r *TypeResolver) resolveDirect(_ context.Context, f *models.Field, from *models.Declaration, ix *models.TypeIndex) *models.Declaration {
	inner := f.InnerType
	if strings.HasPrefix(inner, "crate::") && from != nil {
		inner = from.Crate + inner[len("crate"):]
	}
	return ix.Structs[inner]
}

// resolveImports resolves the inner type's simple name syntactically:
// first as a sibling of the declaring type's own module, then through the
// declaring file's use-import table.
func (r *TypeResolver) resolveImports(_ context.Context, f *models.Field, from *models.Declaration, ix *models.TypeIndex) *models.Declaration {
	if from == nil {
		return nil
	}
	name := simpleTypeName(f.InnerType)

	if parent := moduleOf(from.FQN); parent != "" {
		if d, ok := ix.Structs[parent+"::"+name]; ok {
			return d
		}
	} else if d, ok := ix.Structs[name]; ok {
		return d
	}

	if imports, ok := ix.Imports[from.File]; ok {
		if full, ok := imports[name]; ok {
			return ix.Structs[full]
		}
	}
	return nil
}

// resolveByName searches the known declaration set for a struct whose
// simple name matches and whose FQN contains the type text's path prefix.
// On a miss for a path-qualified type, the named crate is side-loaded into
// the index and the search runs once more.
func (r *TypeResolver) resolveByName(ctx context.Context, f *models.Field, from *models.Declaration, ix *models.TypeIndex) *models.Declaration {
	if d := searchByName(ix, f.InnerType); d != nil {
		return d
	}

	crate := crateOfPath(f.InnerType)
	if crate == "" || r.sideLoader == nil {
		return nil
	}
	if !r.sideLoader.LoadCrate(ctx, crate, ix) {
		return nil
	}
	return searchByName(ix, f.InnerType)
}

// searchByName scans structs in scan order for a simple-name match whose
// FQN contains the path prefix as a substring.
func searchByName(ix *models.TypeIndex, typeText string) *models.Declaration {
	name := simpleTypeName(typeText)
	prefix := pathPrefix(typeText)
	prefix = strings.TrimPrefix(prefix, "crate::")
	if prefix == "crate" {
		prefix = ""
	}

	for _, fqn := range ix.Order {
		d, ok := ix.Structs[fqn]
		if !ok || d.Name != name {
			continue
		}
		if prefix == "" || strings.Contains(d.FQN, prefix) {
			return d
		}
	}
	return nil
}

// rejectResolved filters declarations that must not be treated as nested
// configuration structs: macro-generated sources under target/, standard
// library types, and transparently-serialized wrappers.
func rejectResolved(d *models.Declaration) bool {
	if isStdlibFQN(d.FQN) {
		return true
	}
	if underTargetDir(d.File) {
		return true
	}
	if d.Attributes.Has("serde.transparent") {
		return true
	}
	return false
}

func underTargetDir(file string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(file), "/") {
		if segment == "target" {
			return true
		}
	}
	return false
}

// moduleOf strips the last path segment of an FQN: a::b::C -> a::b.
func moduleOf(fqn string) string {
	if sep := strings.LastIndex(fqn, "::"); sep >= 0 {
		return fqn[:sep]
	}
	return ""
}
