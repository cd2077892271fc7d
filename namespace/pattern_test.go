package namespace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Malformed(t *testing.T) {
	tests := []string{
		"",
		"/",
		"a//b",
		"internal/[unclosed",
	}
	for _, pattern := range tests {
		_, err := Compile(pattern)
		assert.Error(t, err, "pattern %q should not compile", pattern)
	}
}

func TestPattern_Match_Prefix(t *testing.T) {
	tests := []struct {
		pattern  string
		id       string
		want     bool
		captures []string
	}{
		{"internal/*/domain", "internal/user/domain", true, []string{"user"}},
		{"internal/*/domain", "internal/user/domain/entity", true, []string{"user"}},
		{"internal/*/domain", "internal/user/infrastructure/db", false, nil},
		{"internal/user/", "internal/user/domain/entity", true, nil},
		{"internal/user", "internal/order/domain", false, nil},
		{"**", "anything/at/all", true, []string{""}},
		{"internal/**/db", "internal/user/infrastructure/db", true, []string{"user/infrastructure"}},
		{"internal/**/db", "internal/db", true, []string{""}},
		{"external:fmt", "external:fmt", true, nil},
		{"internal/infra*", "internal/infrastructure/db", true, []string{"infrastructure"}},
		{"internal/infra*", "internal/domain", false, nil},
	}

	for _, tc := range tests {
		p, err := Compile(tc.pattern)
		require.NoError(t, err, "pattern %q", tc.pattern)

		got, caps := p.Match(tc.id)
		assert.Equal(t, tc.want, got, "%q against %q", tc.pattern, tc.id)
		if tc.want && tc.captures != nil {
			assert.Equal(t, tc.captures, caps, "%q against %q", tc.pattern, tc.id)
		}
	}
}

func TestPattern_MatchExact(t *testing.T) {
	p := MustCompile("internal/*/domain")

	ok, caps := p.MatchExact("internal/user/domain")
	assert.True(t, ok)
	assert.Equal(t, []string{"user"}, caps)

	ok, _ = p.MatchExact("internal/user/domain/entity")
	assert.False(t, ok, "exact match must consume every segment")
}

func TestPattern_Match_EmptyID(t *testing.T) {
	p := MustCompile("**")
	ok, _ := p.Match("")
	assert.False(t, ok)
}

func TestMoreSpecific(t *testing.T) {
	byLiterals := MustCompile("internal/user/domain")
	generic := MustCompile("internal/*/domain")
	prefix := MustCompile("internal/user/*")

	assert.True(t, MoreSpecific(byLiterals, generic))
	assert.False(t, MoreSpecific(generic, byLiterals))

	// Same literal count: longer literal prefix wins.
	assert.True(t, MoreSpecific(prefix, generic))
	assert.False(t, MoreSpecific(generic, generic))
}

func TestPattern_String(t *testing.T) {
	p := MustCompile("internal/*/domain/")
	assert.Equal(t, "internal/*/domain/", p.String())
}
