package struct_analyzer

import (
	"context"
	"testing"

	"github.com/ouywm/confrs/struct_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func declOf(fqn, crate, file string, attrs models.AttributeList, fields ...*models.Field) *models.Declaration {
	name := fqn
	for i := len(fqn) - 2; i >= 0; i-- {
		if fqn[i] == ':' && fqn[i+1] == ':' {
			name = fqn[i+2:]
			break
		}
	}
	return &models.Declaration{
		FQN:        fqn,
		Name:       name,
		Kind:       models.DeclStruct,
		Crate:      crate,
		File:       file,
		Attributes: attrs,
		Fields:     fields,
	}
}

func fieldOf(name, typeText string) *models.Field {
	wrapper, inner := unwrapType(typeText)
	return &models.Field{Name: name, TypeText: typeText, Wrapper: wrapper, InnerType: inner}
}

// Test FQN resolution, including crate:: rewriting
func TestTypeResolver_Direct(t *testing.T) {
	ix := models.NewTypeIndex()
	server := declOf("myapp::config::ServerProps", "myapp", "/w/src/config.rs", nil)
	ix.Insert(server)

	resolver := NewTypeResolver(nil)
	ctx := context.Background()
	from := declOf("myapp::config::WebConfig", "myapp", "/w/src/config.rs", nil)

	// Fully-qualified type text
	f := fieldOf("server", "myapp::config::ServerProps")
	assert.Same(t, server, resolver.Resolve(ctx, f, from, ix))

	// crate:: rewrites to the declaring crate's real name
	f = fieldOf("server", "crate::config::ServerProps")
	assert.Same(t, server, resolver.Resolve(ctx, f, from, ix))
}

// Test syntactic resolution through sibling modules and use imports
func TestTypeResolver_Imports(t *testing.T) {
	ix := models.NewTypeIndex()
	sibling := declOf("myapp::config::ServerProps", "myapp", "/w/src/config.rs", nil)
	imported := declOf("myapp::net::TlsProps", "myapp", "/w/src/net.rs", nil)
	ix.Insert(sibling)
	ix.Insert(imported)
	ix.Imports["/w/src/config.rs"] = map[string]string{"TlsProps": "myapp::net::TlsProps"}

	resolver := NewTypeResolver(nil)
	ctx := context.Background()
	from := declOf("myapp::config::WebConfig", "myapp", "/w/src/config.rs", nil)

	// Unqualified name resolves as a sibling of the declaring module
	f := fieldOf("server", "ServerProps")
	assert.Same(t, sibling, resolver.Resolve(ctx, f, from, ix))

	// Otherwise through the declaring file's use imports
	f = fieldOf("tls", "TlsProps")
	assert.Same(t, imported, resolver.Resolve(ctx, f, from, ix))
}

// Test the textual fallback with a path-prefix containment check
func TestTypeResolver_ByName(t *testing.T) {
	ix := models.NewTypeIndex()
	remote := declOf("webcrate::props::ServerProps", "webcrate", "/deps/webcrate/src/props.rs", nil)
	decoy := declOf("other::ServerProps", "other", "/deps/other/src/lib.rs", nil)
	ix.Insert(decoy)
	ix.Insert(remote)

	resolver := NewTypeResolver(nil)
	ctx := context.Background()
	from := declOf("myapp::config::WebConfig", "myapp", "/w/src/config.rs", nil)

	f := fieldOf("server", "webcrate::props::ServerProps")
	assert.Same(t, remote, resolver.Resolve(ctx, f, from, ix))

	// Without a path prefix the first scan-order match wins
	f = fieldOf("server", "ServerProps")
	assert.Same(t, decoy, resolver.Resolve(ctx, f, from, ix))
}

func TestTypeResolver_ScalarShortCircuit(t *testing.T) {
	ix := models.NewTypeIndex()
	resolver := NewTypeResolver(nil)
	ctx := context.Background()
	from := declOf("myapp::config::WebConfig", "myapp", "/w/src/config.rs", nil)

	assert.Nil(t, resolver.Resolve(ctx, fieldOf("port", "u16"), from, ix))
	assert.Nil(t, resolver.Resolve(ctx, fieldOf("path", "std::path::PathBuf"), from, ix))
	assert.Nil(t, resolver.Resolve(ctx, nil, from, ix))
}

// Test that rejected resolutions fall through instead of returning
func TestTypeResolver_Rejection(t *testing.T) {
	resolver := NewTypeResolver(nil)
	ctx := context.Background()
	from := declOf("myapp::config::WebConfig", "myapp", "/w/src/config.rs", nil)

	// Standard library declarations are never nested configuration structs
	ix := models.NewTypeIndex()
	ix.Insert(declOf("std::marker::PhantomPinned", "std", "/toolchain/std/src/marker.rs", nil))
	assert.Nil(t, resolver.Resolve(ctx, fieldOf("x", "std::marker::PhantomPinned"), from, ix))

	// Declarations from macro-generated sources under target/ are rejected
	ix = models.NewTypeIndex()
	ix.Insert(declOf("myapp::gen::Generated", "myapp", "/w/target/debug/build/gen.rs", nil))
	assert.Nil(t, resolver.Resolve(ctx, fieldOf("x", "myapp::gen::Generated"), from, ix))

	// Transparently-serialized wrappers are rejected
	ix = models.NewTypeIndex()
	transparent := declOf("myapp::config::Port", "myapp", "/w/src/config.rs",
		ParseAttributeText(`#[serde(transparent)]`))
	ix.Insert(transparent)
	assert.Nil(t, resolver.Resolve(ctx, fieldOf("port", "myapp::config::Port"), from, ix))
}

type sideLoadCtxKey struct{}

type fakeSideLoader struct {
	calls []string
	ctxs  []context.Context
	decl  *models.Declaration
}

func (l *fakeSideLoader) LoadCrate(ctx context.Context, crate string, into *models.TypeIndex) bool {
	l.calls = append(l.calls, crate)
	l.ctxs = append(l.ctxs, ctx)
	if l.decl == nil {
		return false
	}
	into.Insert(l.decl)
	return true
}

// Test that a textual miss on a qualified type side-loads the named crate
func TestTypeResolver_SideLoading(t *testing.T) {
	remote := declOf("webcrate::props::RemoteProps", "webcrate", "/deps/webcrate/src/props.rs", nil)
	loader := &fakeSideLoader{decl: remote}
	resolver := NewTypeResolver(loader)
	ctx := context.WithValue(context.Background(), sideLoadCtxKey{}, "query")
	from := declOf("myapp::config::WebConfig", "myapp", "/w/src/config.rs", nil)

	ix := models.NewTypeIndex()
	resolved := resolver.Resolve(ctx, fieldOf("remote", "webcrate::props::RemoteProps"), from, ix)
	require.NotNil(t, resolved)
	assert.Same(t, remote, resolved)
	assert.Equal(t, []string{"webcrate"}, loader.calls)

	// The querying context reaches the loader, so cancellation bounds the
	// side-load scan too
	require.Len(t, loader.ctxs, 1)
	assert.Equal(t, "query", loader.ctxs[0].Value(sideLoadCtxKey{}))

	// Unqualified types never trigger side-loading
	loader.calls = nil
	assert.Nil(t, resolver.Resolve(ctx, fieldOf("x", "Unknown"), from, models.NewTypeIndex()))
	assert.Empty(t, loader.calls)
}
