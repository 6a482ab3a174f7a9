package struct_analyzer

import (
	"testing"

	"github.com/ouywm/confrs/struct_analyzer/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test flattening of nested serde attribute lists
func TestParseAttributeText_SerdeList(t *testing.T) {
	attrs := ParseAttributeText(`#[serde(rename = "serverPort", default)]`)
	require.Len(t, attrs, 2)

	rename, ok := attrs.Get("serde.rename")
	assert.True(t, ok)
	assert.Equal(t, "serverPort", rename)

	assert.True(t, attrs.Has("serde.default"))
}

func TestParseAttributeText_DefaultFunction(t *testing.T) {
	attrs := ParseAttributeText(`#[serde(default = "default_port")]`)
	arg, ok := attrs.Get("serde.default")
	require.True(t, ok)
	assert.Equal(t, "default_port", arg)
}

// Test that derive lists are kept whole rather than flattened
func TestParseAttributeText_Derive(t *testing.T) {
	attrs := ParseAttributeText(`#[derive(Debug, Clone, Configurable)]`)
	require.Len(t, attrs, 1)

	derives, ok := attrs.Get("derive")
	require.True(t, ok)
	assert.Equal(t, "Debug, Clone, Configurable", derives)
}

func TestParseAttributeText_KeyValue(t *testing.T) {
	attrs := ParseAttributeText(`#[config_prefix = "web"]`)
	require.Len(t, attrs, 1)

	prefix, ok := attrs.Get("config_prefix")
	require.True(t, ok)
	assert.Equal(t, "web", prefix)
}

func TestParseAttributeText_BareMarker(t *testing.T) {
	attrs := ParseAttributeText(`#[test]`)
	require.Len(t, attrs, 1)
	assert.True(t, attrs.Has("test"))
}

// Test that cfg predicates are kept raw for later evaluation
func TestParseAttributeText_Cfg(t *testing.T) {
	attrs := ParseAttributeText(`#[cfg(all(feature = "tls", not(feature = "insecure")))]`)
	require.Len(t, attrs, 1)

	pred, ok := attrs.Get("cfg")
	require.True(t, ok)
	assert.Equal(t, `all(feature = "tls", not(feature = "insecure"))`, pred)
}

func TestIsConfigRoot(t *testing.T) {
	root := &models.Declaration{
		Attributes: ParseAttributeText(`#[derive(Debug, Configurable)]`),
	}
	assert.True(t, IsConfigRoot(root))

	plain := &models.Declaration{
		Attributes: ParseAttributeText(`#[derive(Debug, Deserialize)]`),
	}
	assert.False(t, IsConfigRoot(plain))

	// A derive whose name merely contains the marker must not match
	lookalike := &models.Declaration{
		Attributes: ParseAttributeText(`#[derive(NotConfigurable)]`),
	}
	assert.False(t, IsConfigRoot(lookalike))
}

func TestConfigPrefix(t *testing.T) {
	d := &models.Declaration{
		Attributes: ParseAttributeText(`#[config_prefix = "web.server"]`),
	}
	prefix, ok := ConfigPrefix(d)
	require.True(t, ok)
	assert.Equal(t, "web.server", prefix)

	_, ok = ConfigPrefix(&models.Declaration{})
	assert.False(t, ok)
}

// Test default descriptions for bare #[serde(default)] attributes
func TestDefaultDescription_BareDefault(t *testing.T) {
	cases := map[string]string{
		"u16":                     "0",
		"f64":                     "0.0",
		"bool":                    "false",
		"String":                  `""`,
		"Vec<String>":             "[]",
		"HashMap<String, String>": "{}",
		"ServerProps":             "",
	}
	for typeText, want := range cases {
		f := &models.Field{
			InnerType:  typeText,
			Attributes: ParseAttributeText(`#[serde(default)]`),
		}
		assert.Equal(t, want, DefaultDescription(f, nil), "type %s", typeText)
	}
}

// Test default descriptions resolved through the literal-function table
func TestDefaultDescription_NamedFunction(t *testing.T) {
	defaultFns := map[string]string{
		"default_port":                 "8080",
		"config::server::default_host": `"127.0.0.1"`,
	}

	f := &models.Field{
		InnerType:  "u16",
		Attributes: ParseAttributeText(`#[serde(default = "default_port")]`),
	}
	assert.Equal(t, "8080", DefaultDescription(f, defaultFns))

	// Qualified references match the module-path entry
	f = &models.Field{
		InnerType:  "String",
		Attributes: ParseAttributeText(`#[serde(default = "config::server::default_host")]`),
	}
	assert.Equal(t, `"127.0.0.1"`, DefaultDescription(f, defaultFns))

	// Unqualified names fall back to a module-path suffix match
	f = &models.Field{
		InnerType:  "String",
		Attributes: ParseAttributeText(`#[serde(default = "default_host")]`),
	}
	assert.Equal(t, `"127.0.0.1"`, DefaultDescription(f, defaultFns))

	// Functions that are not simple literal returns yield nothing
	f = &models.Field{
		InnerType:  "u16",
		Attributes: ParseAttributeText(`#[serde(default = "computed_elsewhere")]`),
	}
	assert.Equal(t, "", DefaultDescription(f, defaultFns))
}

func TestDefaultDescription_NoDefaultAttr(t *testing.T) {
	f := &models.Field{InnerType: "u16"}
	assert.Equal(t, "", DefaultDescription(f, map[string]string{"default_port": "8080"}))
}

// Test separator splitting with nested generics and string literals
func TestSplitTopLevel(t *testing.T) {
	parts := splitTopLevel(`rename = "a,b", default`, ',')
	require.Len(t, parts, 2)
	assert.Equal(t, `rename = "a,b"`, parts[0])

	parts = splitTopLevel("HashMap<String, u16>, bool", ',')
	require.Len(t, parts, 2)
	assert.Equal(t, "HashMap<String, u16>", parts[0])
	assert.Equal(t, " bool", parts[1])
}
