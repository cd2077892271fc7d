package modgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClassifier_Validation(t *testing.T) {
	_, err := NewClassifier(nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no namespace templates")

	_, err = NewClassifier([]string{"internal/[bad"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile namespace template")
}

func TestClassifier_Classify_MostSpecificWins(t *testing.T) {
	c, err := NewClassifier([]string{
		"**",
		"internal/*/domain",
		"internal/user/domain",
	}, "")
	require.NoError(t, err)

	template, captures, ok := c.Classify("internal/user/domain")
	require.True(t, ok)
	assert.Equal(t, "internal/user/domain", template.String(), "three literals beat two")
	assert.Empty(t, captures)

	template, captures, ok = c.Classify("internal/order/domain/entity")
	require.True(t, ok)
	assert.Equal(t, "internal/*/domain", template.String())
	assert.Equal(t, []string{"order"}, captures)
}

func TestClassifier_Classify_FirstTemplateWinsOnTie(t *testing.T) {
	c, err := NewClassifier([]string{
		"internal/*/domain",
		"internal/*/*",
	}, "")
	require.NoError(t, err)

	template, _, ok := c.Classify("internal/user/domain")
	require.True(t, ok)
	assert.Equal(t, "internal/*/domain", template.String())
}

func TestClassifier_Classify_NoMatch(t *testing.T) {
	c, err := NewClassifier([]string{"internal/**"}, "")
	require.NoError(t, err)

	_, _, ok := c.Classify("scripts/tools")
	assert.False(t, ok)
}

func TestClassifier_StripPrefix(t *testing.T) {
	c, err := NewClassifier([]string{"**"}, "example.com/proj")
	require.NoError(t, err)

	assert.Equal(t, "internal/user", c.StripPrefix("example.com/proj/internal/user"))
	assert.Equal(t, ".", c.StripPrefix("example.com/proj"))
	assert.Equal(t, "fmt", c.StripPrefix("fmt"), "unrelated paths pass through")
	assert.Equal(t, "example.com/other/pkg", c.StripPrefix("example.com/other/pkg"))
}

func TestExternalModuleID(t *testing.T) {
	assert.Equal(t, "external:fmt", ExternalModuleID("fmt"))
	assert.Equal(t, "external:github.com", ExternalModuleID("github.com/spf13/cobra"))
}
