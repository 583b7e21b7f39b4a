package builder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_MappedRoles(t *testing.T) {
	assert.Contains(t, Resolve(Architect), "Eco-Architect")
	assert.Contains(t, Resolve(Frontend), "Green-Frontend")
	assert.Contains(t, Resolve(Backend), "Efficient-Backend")
}

func TestResolve_FallsBackForUnmapped(t *testing.T) {
	for _, r := range []Role{Auditor, Energy, Orchestrator, Role("quantum"), Role("")} {
		assert.Equal(t, DefaultInstruction, Resolve(r), "role %q", r)
	}
}

func TestResolve_NeverEmpty(t *testing.T) {
	for _, r := range All() {
		assert.NotEmpty(t, Resolve(r))
		assert.NotEmpty(t, Describe(r))
	}
}

func TestInstruction_CombinesBase(t *testing.T) {
	got := Instruction(Backend)
	assert.True(t, strings.HasPrefix(got, SystemBase+"\n"))
	assert.True(t, strings.HasSuffix(got, Resolve(Backend)))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("  FrontEnd ")
	assert.True(t, ok)
	assert.Equal(t, Frontend, r)

	r, ok = ParseRole("designer")
	assert.False(t, ok)
	assert.Equal(t, Role("designer"), r)
	assert.Equal(t, DefaultInstruction, Resolve(r))
}

func TestAll_ReturnsCopy(t *testing.T) {
	roles := All()
	roles[0] = "mutated"
	assert.Equal(t, Orchestrator, All()[0])
}
