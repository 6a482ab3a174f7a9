package struct_analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvalCfg_Feature(t *testing.T) {
	features := map[string]bool{"tls": true}

	assert.True(t, EvalCfg(`feature = "tls"`, features))
	assert.False(t, EvalCfg(`feature = "metrics"`, features))
}

func TestEvalCfg_Combinators(t *testing.T) {
	features := map[string]bool{"tls": true, "http2": true}

	assert.True(t, EvalCfg(`all(feature = "tls", feature = "http2")`, features))
	assert.False(t, EvalCfg(`all(feature = "tls", feature = "metrics")`, features))

	assert.True(t, EvalCfg(`any(feature = "metrics", feature = "tls")`, features))
	assert.False(t, EvalCfg(`any(feature = "metrics", feature = "tracing")`, features))

	assert.False(t, EvalCfg(`not(feature = "tls")`, features))
	assert.True(t, EvalCfg(`not(feature = "metrics")`, features))

	// Nested combinators
	assert.True(t, EvalCfg(`all(feature = "tls", not(any(feature = "a", feature = "b")))`, features))
}

// Predicates the evaluator does not understand are included rather than
// hidden.
func TestEvalCfg_UnknownForms(t *testing.T) {
	assert.True(t, EvalCfg(`target_os = "linux"`, nil))
	assert.True(t, EvalCfg("unix", nil))
	assert.True(t, EvalCfg("", nil))
	assert.True(t, EvalCfg(`all(unix, feature = "tls")`, map[string]bool{"tls": true}))
}
