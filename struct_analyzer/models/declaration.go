package models

import (
	"strings"
	"sync"
)

// Scope partitions source files by ownership. Project-owned and
// dependency-owned sources are indexed and invalidated independently.
type Scope int

const (
	ScopeProject Scope = iota
	ScopeDependency
)

func (s Scope) String() string {
	if s == ScopeProject {
		return "project"
	}
	return "dependency"
}

// DeclKind distinguishes struct-like from enum-like declarations.
type DeclKind int

const (
	DeclStruct DeclKind = iota
	DeclEnum
)

// WrapperKind classifies the outermost wrapper of a field's declared type.
type WrapperKind int

const (
	WrapperNone WrapperKind = iota
	WrapperOption
	WrapperCollection
	WrapperMap
	WrapperSmartPointer
)

// Attribute is one raw annotation entry as a (name, argument) pair.
// Nested attributes are flattened with a dotted name, e.g.
// #[serde(rename = "x")] becomes {"serde.rename", "x"}.
type Attribute struct {
	Name string
	Arg  string
}

// AttributeList is the opaque ordered annotation sequence attached to a
// declaration or field, queried by string key.
type AttributeList []Attribute

// Has reports whether an attribute with the given name is present.
func (l AttributeList) Has(name string) bool {
	for _, a := range l {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Get returns the argument of the first attribute with the given name.
func (l AttributeList) Get(name string) (string, bool) {
	for _, a := range l {
		if a.Name == name {
			return a.Arg, true
		}
	}
	return "", false
}

// Declaration is a named aggregate type discovered by scanning source.
// The fully-qualified name is the unique key within one scan pass;
// re-scanning overwrites by key.
type Declaration struct {
	FQN        string
	Name       string
	Kind       DeclKind
	Crate      string
	File       string
	Line       int
	Scope      Scope
	Attributes AttributeList
	Fields     []*Field
	Variants   []string
	DocLines   []string

	docOnce sync.Once
	doc     string
}

// Doc joins the captured doc-comment lines, computed on first use.
func (d *Declaration) Doc() string {
	d.docOnce.Do(func() {
		d.doc = joinDocLines(d.DocLines)
	})
	return d.doc
}

// Field is a named member of a struct declaration. It is owned by exactly
// one Declaration and lives as long as that declaration's snapshot.
type Field struct {
	Name         string
	TypeText     string
	Wrapper      WrapperKind
	InnerType    string
	Rename       string
	DefaultValue string
	Flatten      bool
	CfgPredicate string
	Public       bool
	EnumRef      string
	Attributes   AttributeList
	DocLines     []string

	docOnce sync.Once
	doc     string
}

// Doc joins the captured doc-comment lines, computed on first use.
func (f *Field) Doc() string {
	f.docOnce.Do(func() {
		f.doc = joinDocLines(f.DocLines)
	})
	return f.doc
}

func joinDocLines(docLines []string) string {
	var lines []string
	for _, l := range docLines {
		l = strings.TrimPrefix(l, "///")
		l = strings.TrimPrefix(l, "//!")
		lines = append(lines, strings.TrimSpace(l))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// LookupName is the key a configuration file uses for this field:
// the rename target when present, otherwise the declared name.
// A rename fully replaces the declared name as the lookup key.
func (f *Field) LookupName() string {
	if f.Rename != "" {
		return f.Rename
	}
	return f.Name
}

// TypeIndex is an immutable snapshot of all known declarations plus the
// configuration-prefix reverse index. The cache layer owns the current
// snapshot and replaces it wholesale on invalidation.
type TypeIndex struct {
	Structs    map[string]*Declaration
	Enums      map[string]*Declaration
	Prefixes   map[string][]*Declaration
	Order      []string
	Imports    map[string]map[string]string
	DefaultFns map[string]string
}

// NewTypeIndex returns an empty index with all maps allocated.
func NewTypeIndex() *TypeIndex {
	return &TypeIndex{
		Structs:    make(map[string]*Declaration),
		Enums:      make(map[string]*Declaration),
		Prefixes:   make(map[string][]*Declaration),
		Imports:    make(map[string]map[string]string),
		DefaultFns: make(map[string]string),
	}
}

// Insert adds a declaration keyed by FQN, overwriting any earlier entry
// with the same key. Scan order is preserved for first insertion only.
func (ix *TypeIndex) Insert(d *Declaration) {
	switch d.Kind {
	case DeclStruct:
		if _, seen := ix.Structs[d.FQN]; !seen {
			ix.Order = append(ix.Order, d.FQN)
		}
		ix.Structs[d.FQN] = d
	case DeclEnum:
		ix.Enums[d.FQN] = d
	}
}

// StructsInOrder returns the struct declarations in scan order.
func (ix *TypeIndex) StructsInOrder() []*Declaration {
	decls := make([]*Declaration, 0, len(ix.Order))
	for _, fqn := range ix.Order {
		if d, ok := ix.Structs[fqn]; ok {
			decls = append(decls, d)
		}
	}
	return decls
}

// Merge combines a project index with a dependency index. Project entries
// override dependency entries on FQN collision; prefix lists are
// concatenated project-first. The inputs are not mutated.
func Merge(project, dependency *TypeIndex) *TypeIndex {
	merged := NewTypeIndex()

	for _, src := range []*TypeIndex{dependency, project} {
		if src == nil {
			continue
		}
		for _, fqn := range src.Order {
			if d, ok := src.Structs[fqn]; ok {
				merged.Insert(d)
			}
		}
		for fqn, d := range src.Enums {
			merged.Enums[fqn] = d
		}
		for file, imports := range src.Imports {
			merged.Imports[file] = imports
		}
		for fn, lit := range src.DefaultFns {
			merged.DefaultFns[fn] = lit
		}
	}

	if project != nil {
		for prefix, decls := range project.Prefixes {
			merged.Prefixes[prefix] = append(merged.Prefixes[prefix], decls...)
		}
	}
	if dependency != nil {
		for prefix, decls := range dependency.Prefixes {
			merged.Prefixes[prefix] = append(merged.Prefixes[prefix], decls...)
		}
	}

	return merged
}
