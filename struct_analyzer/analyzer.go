// Package struct_analyzer resolves which declared Rust struct or field
// backs a dotted configuration key path, across a project and its
// dependency crates, with per-scope snapshot caching.
package struct_analyzer

import (
	"context"
	"sort"
	"sync"

	"github.com/ouywm/confrs/cargo_workspace"
	"github.com/ouywm/confrs/struct_analyzer/contracts"
	"github.com/ouywm/confrs/struct_analyzer/models"
)

// StructAnalyzer wires the scanner, resolvers, and snapshot cache into
// the public query surface.
type StructAnalyzer struct {
	workspace *cargo_workspace.Workspace
	scanner   *Scanner
	resolver  *TypeResolver
	sections  *SectionResolver
	cache     *SnapshotCache
	features  map[string]bool

	sideLoadMutex sync.Mutex
	sideLoaded    map[string]bool
}

// NewStructAnalyzer initializes the engine for one workspace. features
// are the enabled cargo features used for cfg evaluation; a non-empty
// cacheDir enables snapshot persistence.
func NewStructAnalyzer(workspace *cargo_workspace.Workspace, features []string, cacheDir string) (contracts.IStructAnalyzer, error) {
	featureSet := make(map[string]bool, len(features))
	for _, f := range features {
		featureSet[f] = true
	}

	analyzer := &StructAnalyzer{
		workspace:  workspace,
		scanner:    NewScanner(workspace),
		features:   featureSet,
		sideLoaded: make(map[string]bool),
	}
	analyzer.resolver = NewTypeResolver(analyzer)
	analyzer.sections = NewSectionResolver(analyzer.resolver, workspace)

	cache, err := NewSnapshotCache(workspace, analyzer.rebuildScope, cacheDir)
	if err != nil {
		return nil, err
	}
	analyzer.cache = cache

	return analyzer, nil
}

// rebuildScope is the cache's rebuild hook. Project sources are indexed
// in full; dependency sources keep only configuration roots plus their
// nested-type closure, which keeps dependency snapshots proportional to
// what they actually contribute.
func (a *StructAnalyzer) rebuildScope(ctx context.Context, scope models.Scope) (*models.TypeIndex, error) {
	files, err := a.workspace.SourceFiles(scope)
	if err != nil {
		return nil, err
	}

	mode := ScanAll
	if scope == models.ScopeDependency {
		mode = ScanConfigRoots
		// A dependency rebuild drops side-loaded declarations with the old
		// snapshot; the per-crate attempt markers reset with it.
		a.sideLoadMutex.Lock()
		a.sideLoaded = make(map[string]bool)
		a.sideLoadMutex.Unlock()
	}

	index, err := a.scanner.ScanFiles(ctx, files, scope, mode)
	if err != nil {
		return nil, err
	}
	BuildPrefixIndex(index, a.features)
	return index, nil
}

// LoadCrate side-loads one dependency crate's declarations when textual
// type resolution misses. Each crate is attempted at most once per cached
// dependency snapshot; existing index entries are never replaced. The
// loaded declarations are folded into the cached dependency slot so every
// later query resolves them the same way, then into the current query's
// merged view.
func (a *StructAnalyzer) LoadCrate(ctx context.Context, crate string, into *models.TypeIndex) bool {
	a.sideLoadMutex.Lock()
	attempted := a.sideLoaded[crate]
	a.sideLoaded[crate] = true
	a.sideLoadMutex.Unlock()
	if attempted {
		return false
	}

	files := a.workspace.CrateFiles(crate)
	if len(files) == 0 {
		return false
	}

	loaded, err := a.scanner.ScanFiles(ctx, files, models.ScopeDependency, ScanAll)
	if err != nil {
		return false
	}

	a.cache.Augment(models.ScopeDependency, func(current *models.TypeIndex) *models.TypeIndex {
		next := models.Merge(current, nil)
		addSideLoaded(next, loaded)
		return next
	})
	return addSideLoaded(into, loaded)
}

// addSideLoaded copies declarations and imports from a side-load scan into
// dst without replacing anything already present.
func addSideLoaded(dst, loaded *models.TypeIndex) bool {
	added := false
	for _, fqn := range loaded.Order {
		if _, exists := dst.Structs[fqn]; exists {
			continue
		}
		dst.Insert(loaded.Structs[fqn])
		added = true
	}
	for fqn, d := range loaded.Enums {
		if _, exists := dst.Enums[fqn]; !exists {
			dst.Enums[fqn] = d
			added = true
		}
	}
	for file, imports := range loaded.Imports {
		if _, exists := dst.Imports[file]; !exists {
			dst.Imports[file] = imports
		}
	}
	return added
}

// FindConfigStructs lists every configuration root visible in the merged
// view, ordered by prefix for stable output.
func (a *StructAnalyzer) FindConfigStructs(ctx context.Context) ([]*models.Declaration, error) {
	index, err := a.cache.GetMerged(ctx)
	if err != nil {
		return nil, err
	}

	prefixes := make([]string, 0, len(index.Prefixes))
	for prefix := range index.Prefixes {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	var decls []*models.Declaration
	for _, prefix := range prefixes {
		decls = append(decls, index.Prefixes[prefix]...)
	}
	return decls, nil
}

// GetConfigFields resolves a section path and returns the terminal
// declaration's flatten-expanded field list. Nil for unresolved paths.
func (a *StructAnalyzer) GetConfigFields(ctx context.Context, sectionPath string) ([]*models.Field, error) {
	index, err := a.cache.GetMerged(ctx)
	if err != nil {
		return nil, err
	}
	d := a.sections.ResolveSection(ctx, index, sectionPath, "")
	if d == nil {
		return nil, nil
	}
	return a.sections.ConfigFields(ctx, index, d), nil
}

// ResolveStructForSection resolves a dotted section path to its terminal
// declaration. fromFile, when non-empty, narrows cross-crate prefix
// collisions toward the requesting file's crate.
func (a *StructAnalyzer) ResolveStructForSection(ctx context.Context, sectionPath, fromFile string) (*models.Declaration, error) {
	index, err := a.cache.GetMerged(ctx)
	if err != nil {
		return nil, err
	}
	return a.sections.ResolveSection(ctx, index, sectionPath, fromFile), nil
}

// FindFieldInStruct locates a field by configuration key, searching one
// flatten level deep.
func (a *StructAnalyzer) FindFieldInStruct(ctx context.Context, d *models.Declaration, name string) (*models.Field, error) {
	index, err := a.cache.GetMerged(ctx)
	if err != nil {
		return nil, err
	}
	return a.sections.FindFieldInStruct(ctx, index, d, name), nil
}

// ResolveFieldForKeyPath walks a dotted key path inside a declaration to
// its terminal field.
func (a *StructAnalyzer) ResolveFieldForKeyPath(ctx context.Context, d *models.Declaration, dottedPath string) (*models.Field, error) {
	index, err := a.cache.GetMerged(ctx)
	if err != nil {
		return nil, err
	}
	return a.sections.ResolveFieldForKeyPath(ctx, index, d, dottedPath), nil
}

// FindEnumByTypeName finds an enum declaration by fully-qualified or
// simple name. Simple-name matches are resolved in FQN order for
// determinism.
func (a *StructAnalyzer) FindEnumByTypeName(ctx context.Context, name string) (*models.Declaration, error) {
	index, err := a.cache.GetMerged(ctx)
	if err != nil {
		return nil, err
	}
	if d, ok := index.Enums[name]; ok {
		return d, nil
	}

	fqns := make([]string, 0, len(index.Enums))
	for fqn := range index.Enums {
		fqns = append(fqns, fqn)
	}
	sort.Strings(fqns)
	for _, fqn := range fqns {
		if index.Enums[fqn].Name == name {
			return index.Enums[fqn], nil
		}
	}
	return nil, nil
}

// CacheStats exposes snapshot cache counters.
func (a *StructAnalyzer) CacheStats() map[string]interface{} {
	return a.cache.Stats()
}

// ClearCache drops both cache slots and any persisted snapshots.
func (a *StructAnalyzer) ClearCache() error {
	return a.cache.Clear()
}
