package struct_analyzer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/ouywm/confrs/cargo_workspace"
	"github.com/ouywm/confrs/struct_analyzer/models"
)

// ScanMode selects what the direct scan keeps before the nested-type
// closure pass runs.
type ScanMode int

const (
	// ScanAll keeps every struct and enum declaration found.
	ScanAll ScanMode = iota
	// ScanConfigRoots keeps only Configurable-marked structs; nested
	// structs and referenced enums are pulled in by the closure pass.
	ScanConfigRoots
)

const parseCacheSize = 2048

// Scanner builds TypeIndex snapshots from Rust source files.
type Scanner struct {
	workspace  *cargo_workspace.Workspace
	parseCache *lru.Cache[string, *fileParse]
}

// fileParse is the per-file parse result, memoized by content hash so an
// unchanged file is never re-parsed across rebuilds.
type fileParse struct {
	hash       uint64
	decls      []*models.Declaration
	imports    map[string]string
	defaultFns map[string]string
}

// NewScanner creates a scanner backed by a per-file parse cache.
func NewScanner(workspace *cargo_workspace.Workspace) *Scanner {
	cache, _ := lru.New[string, *fileParse](parseCacheSize)
	return &Scanner{
		workspace:  workspace,
		parseCache: cache,
	}
}

// ScanFiles parses the given source files and assembles a TypeIndex
// snapshot. Files that cannot be read or parsed are skipped silently;
// partial indices are expected and acceptable. The scan aborts cleanly on
// context cancellation, returning the context error.
func (s *Scanner) ScanFiles(ctx context.Context, files []string, scope models.Scope, mode ScanMode) (*models.TypeIndex, error) {
	results := make([]*fileParse, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.parseFile(gctx, file, scope)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in file order so later files overwrite earlier ones on FQN
	// collision, deterministically.
	raw := models.NewTypeIndex()
	for i, fp := range results {
		if fp == nil {
			continue
		}
		for _, d := range fp.decls {
			raw.Insert(d)
		}
		if len(fp.imports) > 0 {
			raw.Imports[files[i]] = fp.imports
		}
		for fn, lit := range fp.defaultFns {
			raw.DefaultFns[fn] = lit
		}
	}

	index := s.assemble(raw, mode)
	index.Imports = raw.Imports
	index.DefaultFns = raw.DefaultFns

	for _, d := range index.StructsInOrder() {
		for _, f := range d.Fields {
			f.DefaultValue = DefaultDescription(f, raw.DefaultFns)
		}
	}

	return index, nil
}

// assemble applies the scan mode and the nested-type closure pass to the
// raw declaration pool.
func (s *Scanner) assemble(raw *models.TypeIndex, mode ScanMode) *models.TypeIndex {
	if mode == ScanAll {
		s.collectNested(raw, raw.StructsInOrder(), raw)
		return raw
	}

	index := models.NewTypeIndex()
	var roots []*models.Declaration
	for _, d := range raw.StructsInOrder() {
		if IsConfigRoot(d) {
			index.Insert(d)
			roots = append(roots, d)
		}
	}
	s.collectNested(raw, roots, index)
	return index
}

// collectNested walks the fields of the seed declarations breadth-first,
// adding every struct a field's inner type names and every enum any field
// references. The visited set is keyed by simple name: two distinct types
// sharing a simple name in different modules collapse into one visit.
// Fields whose type matches the raw-collection skip predicate are retained
// as fields but excluded from expansion.
func (s *Scanner) collectNested(raw *models.TypeIndex, seeds []*models.Declaration, index *models.TypeIndex) {
	visited := make(map[string]bool)
	queue := make([]*models.Declaration, 0, len(seeds))
	for _, d := range seeds {
		visited[d.Name] = true
		queue = append(queue, d)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, f := range current.Fields {
			if isScalarType(f.InnerType) || skipNestedExpansion(f.TypeText) {
				continue
			}

			if enum := findDeclByType(raw.Enums, f.InnerType, current, raw); enum != nil {
				f.EnumRef = enum.FQN
				index.Enums[enum.FQN] = enum
				continue
			}

			nested := findDeclByType(raw.Structs, f.InnerType, current, raw)
			if nested == nil || visited[nested.Name] {
				continue
			}
			visited[nested.Name] = true
			index.Insert(nested)
			queue = append(queue, nested)
		}
	}
}

// findDeclByType looks up a field's inner type in a declaration pool:
// exact FQN, then through the declaring file's use-imports, then by simple
// name.
func findDeclByType(pool map[string]*models.Declaration, typeText string, from *models.Declaration, raw *models.TypeIndex) *models.Declaration {
	if d, ok := pool[typeText]; ok {
		return d
	}
	if imports, ok := raw.Imports[from.File]; ok {
		if full, ok := imports[simpleTypeName(typeText)]; ok {
			if d, ok := pool[full]; ok {
				return d
			}
		}
	}
	name := simpleTypeName(typeText)
	// Prefer a match within the declaring crate.
	var fallback *models.Declaration
	for _, d := range pool {
		if d.Name != name {
			continue
		}
		if d.Crate == from.Crate {
			return d
		}
		if fallback == nil {
			fallback = d
		}
	}
	return fallback
}

// parseFile reads and parses one source file, consulting the parse cache
// first. Returns nil for unreadable or unparseable files.
func (s *Scanner) parseFile(ctx context.Context, file string, scope models.Scope) *fileParse {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil
	}
	hash := xxh3.Hash(content)

	if cached, ok := s.parseCache.Get(file); ok && cached.hash == hash {
		return cached
	}

	crate, crateRoot := s.workspace.CrateRootOf(file)
	if crate == "" {
		crate = "crate"
		crateRoot = filepath.Dir(file)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	fp := &fileParse{
		hash:       hash,
		imports:    make(map[string]string),
		defaultFns: make(map[string]string),
	}

	modPath := modulePathForFile(crateRoot, file)
	ext := &fileExtractor{
		source: content,
		file:   file,
		crate:  crate,
		scope:  scope,
		out:    fp,
	}
	ext.collectItems(tree.RootNode(), modPath)

	s.parseCache.Add(file, fp)
	return fp
}

// fileExtractor walks one parsed source tree and extracts declarations,
// use imports, and literal-returning functions.
type fileExtractor struct {
	source []byte
	file   string
	crate  string
	scope  models.Scope
	out    *fileParse
}

// collectItems iterates the named children of a container node in order,
// accumulating the attributes and doc comments that precede each item.
func (e *fileExtractor) collectItems(container *sitter.Node, modPath string) {
	var pendingAttrs models.AttributeList
	var pendingDocs []string

	for i := 0; i < int(container.NamedChildCount()); i++ {
		child := container.NamedChild(i)
		switch child.Type() {
		case "attribute_item":
			pendingAttrs = append(pendingAttrs, ParseAttributeText(child.Content(e.source))...)
		case "line_comment":
			text := child.Content(e.source)
			if strings.HasPrefix(text, "///") {
				pendingDocs = append(pendingDocs, text)
			}
		case "struct_item":
			e.extractStruct(child, modPath, pendingAttrs, pendingDocs)
			pendingAttrs, pendingDocs = nil, nil
		case "enum_item":
			e.extractEnum(child, modPath, pendingAttrs, pendingDocs)
			pendingAttrs, pendingDocs = nil, nil
		case "function_item":
			e.extractLiteralFn(child, modPath)
			pendingAttrs, pendingDocs = nil, nil
		case "use_declaration":
			e.extractUse(child)
			pendingAttrs, pendingDocs = nil, nil
		case "mod_item":
			e.extractMod(child, modPath)
			pendingAttrs, pendingDocs = nil, nil
		default:
			pendingAttrs, pendingDocs = nil, nil
		}
	}
}

func (e *fileExtractor) extractMod(node *sitter.Node, modPath string) {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return
	}
	e.collectItems(body, joinModPath(modPath, nameNode.Content(e.source)))
}

func (e *fileExtractor) extractStruct(node *sitter.Node, modPath string, attrs models.AttributeList, docs []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(e.source)

	decl := &models.Declaration{
		FQN:        e.fqn(modPath, name),
		Name:       name,
		Kind:       models.DeclStruct,
		Crate:      e.crate,
		File:       e.file,
		Line:       int(node.StartPoint().Row) + 1,
		Scope:      e.scope,
		Attributes: attrs,
		DocLines:   docs,
	}

	body := node.ChildByFieldName("body")
	if body != nil && body.Type() == "field_declaration_list" {
		decl.Fields = e.extractFields(body)
	}

	e.out.decls = append(e.out.decls, decl)
}

// extractFields walks a field_declaration_list, attaching preceding
// attribute and doc-comment nodes to the field that follows them.
func (e *fileExtractor) extractFields(body *sitter.Node) []*models.Field {
	var fields []*models.Field
	var pendingAttrs models.AttributeList
	var pendingDocs []string

	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "attribute_item":
			pendingAttrs = append(pendingAttrs, ParseAttributeText(child.Content(e.source))...)
		case "line_comment":
			text := child.Content(e.source)
			if strings.HasPrefix(text, "///") {
				pendingDocs = append(pendingDocs, text)
			}
		case "field_declaration":
			if f := e.extractField(child, pendingAttrs, pendingDocs); f != nil {
				fields = append(fields, f)
			}
			pendingAttrs, pendingDocs = nil, nil
		}
	}
	return fields
}

func (e *fileExtractor) extractField(node *sitter.Node, attrs models.AttributeList, docs []string) *models.Field {
	nameNode := node.ChildByFieldName("name")
	typeNode := node.ChildByFieldName("type")
	if nameNode == nil || typeNode == nil {
		return nil
	}

	typeText := strings.TrimSpace(typeNode.Content(e.source))
	wrapper, inner := unwrapType(typeText)

	public := false
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if node.NamedChild(i).Type() == "visibility_modifier" {
			public = true
			break
		}
	}

	f := &models.Field{
		Name:       nameNode.Content(e.source),
		TypeText:   typeText,
		Wrapper:    wrapper,
		InnerType:  inner,
		Public:     public,
		Attributes: attrs,
		DocLines:   docs,
	}
	interpretFieldAttributes(f)
	return f
}

func (e *fileExtractor) extractEnum(node *sitter.Node, modPath string, attrs models.AttributeList, docs []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Content(e.source)

	decl := &models.Declaration{
		FQN:        e.fqn(modPath, name),
		Name:       name,
		Kind:       models.DeclEnum,
		Crate:      e.crate,
		File:       e.file,
		Line:       int(node.StartPoint().Row) + 1,
		Scope:      e.scope,
		Attributes: attrs,
		DocLines:   docs,
	}

	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			variant := body.NamedChild(i)
			if variant.Type() != "enum_variant" {
				continue
			}
			if vn := variant.ChildByFieldName("name"); vn != nil {
				decl.Variants = append(decl.Variants, vn.Content(e.source))
			}
		}
	}

	e.out.decls = append(e.out.decls, decl)
}

// extractLiteralFn records a free function whose body is a single literal
// expression. These back #[serde(default = "path::fn")] resolution.
func (e *fileExtractor) extractLiteralFn(node *sitter.Node, modPath string) {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return
	}
	if body.NamedChildCount() != 1 {
		return
	}
	expr := body.NamedChild(0)
	switch expr.Type() {
	case "integer_literal", "float_literal", "string_literal", "boolean_literal", "char_literal":
	default:
		return
	}

	name := nameNode.Content(e.source)
	literal := expr.Content(e.source)
	e.out.defaultFns[name] = literal
	if modPath != "" {
		e.out.defaultFns[modPath+"::"+name] = literal
	}
}

// extractUse records simple-name -> full-path mappings from a use
// declaration, including one level of brace grouping and `as` aliases.
func (e *fileExtractor) extractUse(node *sitter.Node) {
	text := strings.TrimSpace(node.Content(e.source))
	text = strings.TrimPrefix(text, "pub ")
	text = strings.TrimPrefix(text, "use ")
	text = strings.TrimSuffix(text, ";")
	e.recordUsePath(strings.TrimSpace(text))
}

func (e *fileExtractor) recordUsePath(path string) {
	if open := strings.Index(path, "{"); open >= 0 && strings.HasSuffix(path, "}") {
		prefix := strings.TrimSuffix(path[:open], "::")
		for _, item := range splitTopLevel(path[open+1:len(path)-1], ',') {
			item = strings.TrimSpace(item)
			if item == "" || item == "*" {
				continue
			}
			if prefix != "" {
				e.recordUsePath(prefix + "::" + item)
			} else {
				e.recordUsePath(item)
			}
		}
		return
	}

	alias := ""
	if idx := strings.Index(path, " as "); idx >= 0 {
		alias = strings.TrimSpace(path[idx+4:])
		path = strings.TrimSpace(path[:idx])
	}
	if path == "" || strings.HasSuffix(path, "*") {
		return
	}

	// Rewrite crate-relative paths to the crate's real name so they match
	// index keys.
	if strings.HasPrefix(path, "crate::") {
		path = e.crate + path[len("crate"):]
	} else if path == "crate" {
		path = e.crate
	}

	name := alias
	if name == "" {
		name = path
		if sep := strings.LastIndex(name, "::"); sep >= 0 {
			name = name[sep+2:]
		}
	}
	e.out.imports[name] = path
}

func (e *fileExtractor) fqn(modPath, name string) string {
	return joinModPath(joinModPath(e.crate, modPath), name)
}

func joinModPath(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "::" + b
	}
}

// modulePathForFile derives the module path of a file from its location
// within the crate: src/config/web.rs -> config::web, src/lib.rs -> "".
func modulePathForFile(crateRoot, file string) string {
	rel, err := filepath.Rel(crateRoot, file)
	if err != nil {
		return ""
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, ".rs")

	segments := strings.Split(rel, "/")
	if len(segments) > 0 && segments[0] == "src" {
		segments = segments[1:]
	}
	if len(segments) == 0 {
		return ""
	}
	last := segments[len(segments)-1]
	if last == "lib" || last == "main" || last == "mod" {
		segments = segments[:len(segments)-1]
	}
	return strings.Join(segments, "::")
}
