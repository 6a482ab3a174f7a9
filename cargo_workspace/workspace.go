// Package cargo_workspace enumerates the Rust source files of a project and
// its dependency crates, resolves which crate owns a file, and derives the
// change tokens that govern cache invalidation.
package cargo_workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/viper"
	"github.com/zeebo/xxh3"

	"github.com/ouywm/confrs/struct_analyzer/models"
	"github.com/ouywm/confrs/utils"
)

// Skip files over 512 KB; generated Rust sources beyond that are not
// configuration declarations worth indexing.
const maxSourceFileSize = 512 * 1024

// Workspace describes one Rust project checkout: the project root plus the
// roots under which dependency crate sources live (vendor dirs, cargo
// registry checkouts).
type Workspace struct {
	Root            string
	DependencyRoots []string

	ignorer *gitignore.GitIgnore

	mutex        sync.RWMutex
	cratesByDir  map[string]*crateMeta
	cratesByName map[string]*crateMeta
}

// crateMeta is the cached result of reading one Cargo.toml.
type crateMeta struct {
	Name         string
	Root         string
	Dependencies []string
}

// NewWorkspace creates a workspace rooted at the given project directory.
// A .gitignore at the root is honored when enumerating project sources.
func NewWorkspace(root string, dependencyRoots []string) (*Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("workspace root is not a directory: %s", root)
	}

	ws := &Workspace{
		Root:            absRoot,
		DependencyRoots: dependencyRoots,
		cratesByDir:     make(map[string]*crateMeta),
		cratesByName:    make(map[string]*crateMeta),
	}

	ignorePath := filepath.Join(absRoot, ".gitignore")
	if _, err := os.Stat(ignorePath); err == nil {
		if ign, err := gitignore.CompileIgnoreFile(ignorePath); err == nil {
			ws.ignorer = ign
		}
	}

	return ws, nil
}

// SourceFiles returns the sorted .rs files belonging to the given scope.
func (ws *Workspace) SourceFiles(scope models.Scope) ([]string, error) {
	var files []string
	err := ws.walkScope(scope, func(path string, isManifest bool, _ fs.DirEntry) {
		if !isManifest {
			files = append(files, path)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ChangeToken derives the invalidation token for a scope: a hash over the
// sorted (path, size, mtime) tuples of the scope's source files and crate
// manifests. Any change to the source set advances the token.
func (ws *Workspace) ChangeToken(scope models.Scope) uint64 {
	type entry struct {
		path string
		info fs.FileInfo
	}
	var entries []entry
	_ = ws.walkScope(scope, func(path string, _ bool, d fs.DirEntry) {
		info, err := d.Info()
		if err != nil {
			return
		}
		entries = append(entries, entry{path: path, info: info})
	})

	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	hasher := xxh3.New()
	for _, e := range entries {
		fmt.Fprintf(hasher, "%s|%d|%d\n", e.path, e.info.Size(), e.info.ModTime().UnixNano())
	}
	return hasher.Sum64()
}

// walkScope visits every source file and Cargo.toml in the scope's roots.
func (ws *Workspace) walkScope(scope models.Scope, visit func(path string, isManifest bool, d fs.DirEntry)) error {
	roots := []string{ws.Root}
	if scope == models.ScopeDependency {
		roots = ws.DependencyRoots
	}

	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			// Missing dependency roots degrade to an empty scope.
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			rel = filepath.ToSlash(rel)

			if utils.IsDefaultIgnored(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if scope == models.ScopeProject && ws.ignorer != nil && ws.ignorer.MatchesPath(rel) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			switch {
			case d.Name() == "Cargo.toml":
				visit(path, true, d)
			case strings.HasSuffix(path, ".rs"):
				if info, err := d.Info(); err == nil && info.Size() <= maxSourceFileSize {
					visit(path, false, d)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// CrateOf returns the name of the crate owning the given file, resolved
// through the nearest enclosing Cargo.toml. Returns "" when no manifest is
// found.
func (ws *Workspace) CrateOf(file string) string {
	meta := ws.crateMetaOf(file)
	if meta == nil {
		return ""
	}
	return meta.Name
}

// CrateRootOf returns the crate name and crate root directory for a file.
func (ws *Workspace) CrateRootOf(file string) (string, string) {
	meta := ws.crateMetaOf(file)
	if meta == nil {
		return "", ""
	}
	return meta.Name, meta.Root
}

// DirectDependencies returns the [dependencies] entries of the named
// crate's manifest, in sorted order. Unknown crates yield nil.
func (ws *Workspace) DirectDependencies(crate string) []string {
	ws.mutex.RLock()
	meta := ws.cratesByName[crate]
	ws.mutex.RUnlock()
	if meta == nil {
		return nil
	}
	return meta.Dependencies
}

// CrateFiles enumerates the source files of the named dependency crate,
// matching directory segments against the crate's simple name (cargo
// registry checkouts are laid out as name-version). Used for side-loading
// during type resolution.
func (ws *Workspace) CrateFiles(crate string) []string {
	want := normalizeCrateName(crate)
	var files []string
	_ = ws.walkScope(models.ScopeDependency, func(path string, isManifest bool, _ fs.DirEntry) {
		if isManifest {
			return
		}
		for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
			seg := normalizeCrateName(segment)
			if seg == want || strings.HasPrefix(seg, want+"-") {
				files = append(files, path)
				return
			}
		}
	})
	sort.Strings(files)
	return files
}

// crateMetaOf walks upward from the file's directory looking for the
// nearest Cargo.toml, caching the parsed result per directory.
func (ws *Workspace) crateMetaOf(file string) *crateMeta {
	dir := filepath.Dir(file)
	for {
		ws.mutex.RLock()
		meta, cached := ws.cratesByDir[dir]
		ws.mutex.RUnlock()
		if cached {
			return meta
		}

		manifest := filepath.Join(dir, "Cargo.toml")
		if _, err := os.Stat(manifest); err == nil {
			meta := ws.readManifest(manifest, dir)
			ws.mutex.Lock()
			ws.cratesByDir[dir] = meta
			if meta != nil {
				ws.cratesByName[meta.Name] = meta
			}
			ws.mutex.Unlock()
			return meta
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		dir = parent
	}
}

// readManifest parses one Cargo.toml. A manifest that cannot be read or
// has no package name yields nil; the file is simply outside any crate.
func (ws *Workspace) readManifest(manifest, dir string) *crateMeta {
	v := viper.New()
	v.SetConfigFile(manifest)
	if err := v.ReadInConfig(); err != nil {
		return nil
	}

	name := v.GetString("package.name")
	if name == "" {
		return nil
	}

	var deps []string
	for dep := range v.GetStringMap("dependencies") {
		deps = append(deps, dep)
	}
	sort.Strings(deps)

	return &crateMeta{Name: name, Root: dir, Dependencies: deps}
}

// normalizeCrateName maps hyphenated cargo names onto the underscore form
// used in Rust paths so the two compare equal.
func normalizeCrateName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "_", "-")
}
