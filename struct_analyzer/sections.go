package struct_analyzer

import (
	"context"
	"sort"
	"strings"

	"github.com/ouywm/confrs/struct_analyzer/models"
)

// CrateInfo supplies the crate ownership and direct-dependency lookups the
// section resolver needs for scope narrowing.
type CrateInfo interface {
	CrateOf(file string) string
	DirectDependencies(crate string) []string
}

// SectionResolver maps dotted configuration key paths onto declarations
// and fields. It is a pure function over one immutable TypeIndex snapshot
// per call: failure is always a nil result, never an error.
type SectionResolver struct {
	resolver *TypeResolver
	crates   CrateInfo
}

// NewSectionResolver creates a section resolver. crates may be nil, in
// which case cross-crate prefix collisions fall back to scan order.
func NewSectionResolver(resolver *TypeResolver, crates CrateInfo) *SectionResolver {
	return &SectionResolver{resolver: resolver, crates: crates}
}

// ResolveSection walks a dotted section path to its terminal declaration.
// The first segment selects configuration roots through the prefix index;
// each further segment moves through the matching field's resolved type.
// fromFile narrows cross-crate prefix collisions toward the requesting
// file's own crate.
func (s *SectionResolver) ResolveSection(ctx context.Context, ix *models.TypeIndex, path, fromFile string) *models.Declaration {
	segments := strings.Split(path, ".")
	if len(segments) == 0 || segments[0] == "" {
		return nil
	}

	current := s.pickCandidate(ix.Prefixes[segments[0]], fromFile)
	if current == nil {
		return nil
	}

	for _, segment := range segments[1:] {
		field, owner := s.findField(ctx, ix, current, segment)
		if field == nil {
			return nil
		}
		current = s.resolver.Resolve(ctx, field, owner, ix)
		if current == nil {
			return nil
		}
	}
	return current
}

// pickCandidate applies the scope-narrowing policy when several
// declarations claim one prefix: prefer the requesting file's own crate,
// then its direct dependencies, ordered (requesting-crate-first, crate
// name, file path) for determinism. Without a requesting file the first
// discovered declaration wins.
func (s *SectionResolver) pickCandidate(candidates []*models.Declaration, fromFile string) *models.Declaration {
	if len(candidates) == 0 {
		return nil
	}
	if len(candidates) == 1 || fromFile == "" || s.crates == nil {
		return candidates[0]
	}

	fromCrate := s.crates.CrateOf(fromFile)
	if fromCrate == "" {
		return candidates[0]
	}

	ordered := make([]*models.Declaration, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := ordered[i], ordered[j]
		li, lj := di.Crate == fromCrate, dj.Crate == fromCrate
		if li != lj {
			return li
		}
		if di.Crate != dj.Crate {
			return di.Crate < dj.Crate
		}
		return di.File < dj.File
	})

	if ordered[0].Crate == fromCrate {
		return ordered[0]
	}

	deps := make(map[string]bool)
	for _, dep := range s.crates.DirectDependencies(fromCrate) {
		deps[dep] = true
	}
	for _, d := range ordered {
		if deps[d.Crate] {
			return d
		}
	}
	return candidates[0]
}

// FindFieldInStruct locates a field by its configuration key. A rename
// fully replaces the declared name as the lookup key: a renamed field
// matches its rename target only. Flatten-marked fields are searched one
// level deep; deeper flatten chains are only visible through ConfigFields
// expansion.
func (s *SectionResolver) FindFieldInStruct(ctx context.Context, ix *models.TypeIndex, d *models.Declaration, name string) *models.Field {
	field, _ := s.findField(ctx, ix, d, name)
	return field
}

// findField also reports which declaration owns the returned field, which
// matters for resolving the field's type relative to its declaring file.
func (s *SectionResolver) findField(ctx context.Context, ix *models.TypeIndex, d *models.Declaration, name string) (*models.Field, *models.Declaration) {
	if d == nil || d.Kind != models.DeclStruct {
		return nil, nil
	}

	if f := matchField(d.Fields, name); f != nil {
		return f, d
	}

	for _, f := range d.Fields {
		if !f.Flatten || skipNestedExpansion(f.TypeText) {
			continue
		}
		nested := s.resolver.Resolve(ctx, f, d, ix)
		if nested == nil {
			continue
		}
		if inner := matchField(nested.Fields, name); inner != nil {
			return inner, nested
		}
	}
	return nil, nil
}

// matchField applies the two lookup criteria in order: declared name for
// fields without a rename, then rename target.
func matchField(fields []*models.Field, name string) *models.Field {
	for _, f := range fields {
		if f.Rename == "" && f.Name == name {
			return f
		}
	}
	for _, f := range fields {
		if f.Rename == name {
			return f
		}
	}
	return nil
}

// ResolveFieldForKeyPath walks a dotted key path starting inside the given
// declaration and returns the terminal field. Any segment that fails to
// match or resolve fails the whole lookup.
func (s *SectionResolver) ResolveFieldForKeyPath(ctx context.Context, ix *models.TypeIndex, d *models.Declaration, dottedPath string) *models.Field {
	segments := strings.Split(dottedPath, ".")
	current := d

	for i, segment := range segments {
		field, owner := s.findField(ctx, ix, current, segment)
		if field == nil {
			return nil
		}
		if i == len(segments)-1 {
			return field
		}
		current = s.resolver.Resolve(ctx, field, owner, ix)
		if current == nil {
			return nil
		}
	}
	return nil
}

// ConfigFields produces the visible field list of a declaration: every
// flatten-marked field of struct type is replaced by its nested
// declaration's fields, expanded recursively. A flatten field of
// collection or map type has no inline representation and is kept as-is,
// as is any flatten field whose type does not resolve.
func (s *SectionResolver) ConfigFields(ctx context.Context, ix *models.TypeIndex, d *models.Declaration) []*models.Field {
	return s.configFields(ctx, ix, d, map[string]bool{d.FQN: true})
}

func (s *SectionResolver) configFields(ctx context.Context, ix *models.TypeIndex, d *models.Declaration, seen map[string]bool) []*models.Field {
	var fields []*models.Field
	for _, f := range d.Fields {
		if !f.Flatten || skipNestedExpansion(f.TypeText) {
			fields = append(fields, f)
			continue
		}
		nested := s.resolver.Resolve(ctx, f, d, ix)
		if nested == nil || seen[nested.FQN] {
			fields = append(fields, f)
			continue
		}
		seen[nested.FQN] = true
		fields = append(fields, s.configFields(ctx, ix, nested, seen)...)
	}
	return fields
}
