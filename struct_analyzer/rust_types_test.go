package struct_analyzer

import (
	"testing"

	"github.com/ouywm/confrs/struct_analyzer/models"
	"github.com/stretchr/testify/assert"
)

func TestUnwrapType(t *testing.T) {
	kind, inner := unwrapType("Option<ServerProps>")
	assert.Equal(t, models.WrapperOption, kind)
	assert.Equal(t, "ServerProps", inner)

	kind, inner = unwrapType("Vec<String>")
	assert.Equal(t, models.WrapperCollection, kind)
	assert.Equal(t, "String", inner)

	// Map types unwrap to the value type
	kind, inner = unwrapType("HashMap<String, LoggerProps>")
	assert.Equal(t, models.WrapperMap, kind)
	assert.Equal(t, "LoggerProps", inner)

	kind, inner = unwrapType("Box<Middlewares>")
	assert.Equal(t, models.WrapperSmartPointer, kind)
	assert.Equal(t, "Middlewares", inner)

	// Path-qualified wrappers are recognized by simple name
	kind, inner = unwrapType("std::collections::HashMap<String, u16>")
	assert.Equal(t, models.WrapperMap, kind)
	assert.Equal(t, "u16", inner)

	kind, inner = unwrapType("ServerProps")
	assert.Equal(t, models.WrapperNone, kind)
	assert.Equal(t, "ServerProps", inner)

	// Unrecognized generics are not unwrapped
	kind, inner = unwrapType("Wrapper<T>")
	assert.Equal(t, models.WrapperNone, kind)
	assert.Equal(t, "Wrapper<T>", inner)
}

func TestSkipNestedExpansion(t *testing.T) {
	assert.True(t, skipNestedExpansion("Vec<String>"))
	assert.True(t, skipNestedExpansion("HashMap<String, LoggerProps>"))

	// Option and smart pointers look through to the inner type
	assert.True(t, skipNestedExpansion("Option<Vec<String>>"))
	assert.False(t, skipNestedExpansion("Option<ServerProps>"))
	assert.False(t, skipNestedExpansion("Arc<ServerProps>"))

	assert.False(t, skipNestedExpansion("ServerProps"))
	assert.False(t, skipNestedExpansion("u16"))
}

func TestSimpleTypeName(t *testing.T) {
	assert.Equal(t, "ServerProps", simpleTypeName("myapp::config::ServerProps"))
	assert.Equal(t, "HashMap", simpleTypeName("std::collections::HashMap<String, u16>"))
	assert.Equal(t, "str", simpleTypeName("&str"))
	assert.Equal(t, "ServerProps", simpleTypeName("ServerProps"))
}

func TestPathPrefix(t *testing.T) {
	assert.Equal(t, "myapp::config", pathPrefix("myapp::config::ServerProps"))
	assert.Equal(t, "", pathPrefix("ServerProps"))
}

func TestCrateOfPath(t *testing.T) {
	assert.Equal(t, "web_server", crateOfPath("web_server::config::ServerProps"))

	// Current-crate and stdlib qualifications never name a loadable crate
	assert.Equal(t, "", crateOfPath("crate::config::ServerProps"))
	assert.Equal(t, "", crateOfPath("self::ServerProps"))
	assert.Equal(t, "", crateOfPath("std::path::PathBuf"))
	assert.Equal(t, "", crateOfPath("ServerProps"))
}

func TestIsScalarType(t *testing.T) {
	assert.True(t, isScalarType("u16"))
	assert.True(t, isScalarType("bool"))
	assert.True(t, isScalarType("String"))
	assert.True(t, isScalarType("std::path::PathBuf"))
	assert.True(t, isScalarType("std::time::Duration"))

	assert.False(t, isScalarType("ServerProps"))
	assert.False(t, isScalarType("Option<ServerProps>"))
}
