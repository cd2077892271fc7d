package python

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/archlens/scan"
)

const sample = `"""User domain entities."""
import os
import internal.user.infrastructure.db as db
from internal.order.domain import order
from . import helpers

MAX_USERS = 100
default_region = "eu"

class UserRepository:
    def get(self, user_id):
        return None

def new_repository():
    return UserRepository()
`

func TestAdapter_ParseFile(t *testing.T) {
	a := New()

	file, err := a.ParseFile("internal/user/domain/entity.py", []byte(sample))
	require.NoError(t, err)

	var targets []string
	for _, imp := range file.Imports {
		targets = append(targets, imp.Path)
	}
	assert.Equal(t, []string{"os", "internal.user.infrastructure.db", "internal.order.domain", "."}, targets)

	kinds := map[string]scan.SymbolKind{}
	for _, sym := range file.Symbols {
		kinds[sym.Name] = sym.Kind
	}
	assert.Equal(t, scan.KindStruct, kinds["UserRepository"])
	assert.Equal(t, scan.KindFunction, kinds["new_repository"])
	assert.Equal(t, scan.KindConst, kinds["MAX_USERS"])
	assert.Equal(t, scan.KindVar, kinds["default_region"])

	// Nested methods are not top-level symbols.
	_, found := kinds["get"]
	assert.False(t, found)
}

func TestAdapter_NormalizeImport(t *testing.T) {
	a := New()

	tests := []struct {
		fromDir string
		raw     string
		want    string
	}{
		{"internal/user/domain", "internal.user.infrastructure.db", "internal/user/infrastructure/db"},
		{"internal/user/domain", ".helpers", "internal/user/domain/helpers"},
		{"internal/user/domain", "..infrastructure.db", "internal/user/infrastructure/db"},
		{"internal/user/domain", ".", "internal/user/domain"},
		{"internal/user/domain", "os", "os"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, a.NormalizeImport(tc.fromDir, tc.raw), "%q from %q", tc.raw, tc.fromDir)
	}
}

func TestAdapter_ParseFile_SyntaxError(t *testing.T) {
	a := New()

	_, err := a.ParseFile("broken.py", []byte("def broken(:\n"))
	assert.Error(t, err)
}

func TestAdapter_Registered(t *testing.T) {
	adapter, ok := scan.DefaultRegistry.ForExtension(".py")
	require.True(t, ok)
	assert.Equal(t, "python", adapter.Language())
}
