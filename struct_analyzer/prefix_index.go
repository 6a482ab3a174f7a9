package struct_analyzer

import "github.com/ouywm/confrs/struct_analyzer/models"

// BuildPrefixIndex fills the index's reverse mapping from configuration
// prefix to the declarations that claim it. A declaration participates
// only when it carries the Configurable marker, names a prefix, and is not
// excluded by its cfg predicate under the enabled feature set. List order
// within a prefix is scan order; callers apply their own preference
// ordering when a prefix is contested.
func BuildPrefixIndex(ix *models.TypeIndex, features map[string]bool) {
	ix.Prefixes = make(map[string][]*models.Declaration)

	for _, d := range ix.StructsInOrder() {
		prefix, ok := ConfigPrefix(d)
		if !ok {
			continue
		}
		if !IsConfigRoot(d) {
			continue
		}
		if !EvalCfg(CfgPredicate(d.Attributes), features) {
			continue
		}
		ix.Prefixes[prefix] = append(ix.Prefixes[prefix], d)
	}
}
