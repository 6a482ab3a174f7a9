package struct_analyzer

import (
	"context"
	"testing"

	"github.com/ouywm/confrs/cargo_workspace"
	"github.com/ouywm/confrs/struct_analyzer/contracts"
	"github.com/ouywm/confrs/struct_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAnalyzer builds a project crate plus one dependency crate and
// wires an analyzer over them.
func newTestAnalyzer(t *testing.T, features []string) contracts.IStructAnalyzer {
	t.Helper()
	projectRoot := writeProject(t)
	depRoot := t.TempDir()

	writeFile(t, depRoot, "webcrate-1.0.0/Cargo.toml", `[package]
name = "webcrate"
version = "1.0.0"
`)
	writeFile(t, depRoot, "webcrate-1.0.0/src/lib.rs", `/// Remote endpoint settings.
#[derive(Debug, Deserialize, Configurable)]
#[config_prefix = "remote"]
pub struct RemoteConfig {
    pub endpoint: String,
    pub retry: RetryProps,
}

#[derive(Debug, Deserialize)]
pub struct RetryProps {
    pub attempts: u32,
}

#[cfg(feature = "tls")]
#[derive(Debug, Deserialize, Configurable)]
#[config_prefix = "tls"]
pub struct TlsConfig {
    pub cert: String,
}
`)

	ws, err := cargo_workspace.NewWorkspace(projectRoot, []string{depRoot})
	require.NoError(t, err)

	analyzer, err := NewStructAnalyzer(ws, features, "")
	require.NoError(t, err)
	return analyzer
}

// Test configuration-root discovery across both scopes
func TestStructAnalyzer_FindConfigStructs(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	ctx := context.Background()

	decls, err := analyzer.FindConfigStructs(ctx)
	require.NoError(t, err)
	require.Len(t, decls, 2)

	// Ordered by prefix: remote, web
	assert.Equal(t, "webcrate::RemoteConfig", decls[0].FQN)
	assert.Equal(t, models.ScopeDependency, decls[0].Scope)
	assert.Equal(t, "myapp::config::WebConfig", decls[1].FQN)
	assert.Equal(t, models.ScopeProject, decls[1].Scope)
}

// Feature-gated roots appear only under their feature
func TestStructAnalyzer_FeatureGating(t *testing.T) {
	ctx := context.Background()

	without := newTestAnalyzer(t, nil)
	decls, err := without.FindConfigStructs(ctx)
	require.NoError(t, err)
	assert.Len(t, decls, 2)

	with := newTestAnalyzer(t, []string{"tls"})
	decls, err = with.FindConfigStructs(ctx)
	require.NoError(t, err)
	require.Len(t, decls, 3)
	assert.Equal(t, "webcrate::TlsConfig", decls[1].FQN)
}

func TestStructAnalyzer_ResolveStructForSection(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	ctx := context.Background()

	d, err := analyzer.ResolveStructForSection(ctx, "web.server", "")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "myapp::config::ServerProps", d.FQN)

	// Dependency-owned sections resolve through the same merged view
	d, err = analyzer.ResolveStructForSection(ctx, "remote.retry", "")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "webcrate::RetryProps", d.FQN)

	d, err = analyzer.ResolveStructForSection(ctx, "nope", "")
	require.NoError(t, err)
	assert.Nil(t, d)
}

// Test flatten-expanded field listings for a section
func TestStructAnalyzer_GetConfigFields(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	ctx := context.Background()

	fields, err := analyzer.GetConfigFields(ctx, "web")
	require.NoError(t, err)
	require.NotNil(t, fields)

	var keys []string
	for _, f := range fields {
		keys = append(keys, f.LookupName())
	}
	// logger is flatten-expanded into LoggerProps's fields
	assert.Equal(t, []string{"serverPort", "host", "server", "level", "labels"}, keys)

	fields, err = analyzer.GetConfigFields(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestStructAnalyzer_FieldLookups(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	ctx := context.Background()

	root, err := analyzer.ResolveStructForSection(ctx, "web", "")
	require.NoError(t, err)
	require.NotNil(t, root)

	f, err := analyzer.FindFieldInStruct(ctx, root, "serverPort")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "8080", f.DefaultValue)

	f, err = analyzer.ResolveFieldForKeyPath(ctx, root, "server.workers")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "workers", f.Name)
}

func TestStructAnalyzer_FindEnumByTypeName(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	ctx := context.Background()

	d, err := analyzer.FindEnumByTypeName(ctx, "myapp::config::ServerMode")
	require.NoError(t, err)
	require.NotNil(t, d)

	// Simple names resolve too
	d, err = analyzer.FindEnumByTypeName(ctx, "ServerMode")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, []string{"Development", "Production"}, d.Variants)

	d, err = analyzer.FindEnumByTypeName(ctx, "NoSuchEnum")
	require.NoError(t, err)
	assert.Nil(t, d)
}

// A crate side-loaded during resolution stays resolvable: the loaded
// declarations are folded into the cached dependency snapshot, so the
// same query gives the same answer every time
func TestStructAnalyzer_SideLoadedCratePersists(t *testing.T) {
	projectRoot := t.TempDir()
	writeFile(t, projectRoot, "Cargo.toml", `[package]
name = "myapp"
version = "0.1.0"

[dependencies]
extcrate = "1.0"
`)
	writeFile(t, projectRoot, "src/lib.rs", `#[derive(Configurable)]
#[config_prefix = "app"]
pub struct AppConfig {
    pub ext: extcrate::Props,
}
`)

	// extcrate has no configuration roots, so the dependency snapshot
	// starts empty and resolving "app.ext" must side-load it
	depRoot := t.TempDir()
	writeFile(t, depRoot, "extcrate-1.0.0/Cargo.toml", `[package]
name = "extcrate"
version = "1.0.0"
`)
	writeFile(t, depRoot, "extcrate-1.0.0/src/lib.rs", `pub struct Props {
    pub value: u16,
}
`)

	ws, err := cargo_workspace.NewWorkspace(projectRoot, []string{depRoot})
	require.NoError(t, err)
	analyzer, err := NewStructAnalyzer(ws, nil, "")
	require.NoError(t, err)

	ctx := context.Background()

	first, err := analyzer.ResolveStructForSection(ctx, "app.ext", "")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "extcrate::Props", first.FQN)

	second, err := analyzer.ResolveStructForSection(ctx, "app.ext", "")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "extcrate::Props", second.FQN)
}

// Repeated queries hit the snapshot cache instead of rescanning
func TestStructAnalyzer_CacheStats(t *testing.T) {
	analyzer := newTestAnalyzer(t, nil)
	ctx := context.Background()

	_, err := analyzer.FindConfigStructs(ctx)
	require.NoError(t, err)
	_, err = analyzer.FindConfigStructs(ctx)
	require.NoError(t, err)

	stats := analyzer.CacheStats()
	assert.Equal(t, int64(2), stats["cache_misses"])
	assert.Equal(t, int64(2), stats["cache_hits"])

	require.NoError(t, analyzer.ClearCache())
}
