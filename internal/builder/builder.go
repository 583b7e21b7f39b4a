// Package builder maps builder roles to the system instructions sent with a prompt.
package builder

import "strings"

// Role selects which specialized instruction set accompanies the base instruction.
type Role string

const (
	Orchestrator Role = "orchestrator"
	Architect    Role = "architect"
	Frontend     Role = "frontend"
	Backend      Role = "backend"
	Auditor      Role = "auditor"
	Energy       Role = "energy"
	Carbon       Role = "carbon"
	Water        Role = "water"
)

// SystemBase is prepended to every role instruction.
const SystemBase = `You are the GreenStudio Intelligence Core.
Principle: Extreme Efficiency.
Response Format: Keep outputs under 300 tokens if possible. Only provide code requested.`

// DefaultInstruction is used for roles without a dedicated prompt.
const DefaultInstruction = "Role: Builder. Goal: Efficient code."

var instructions = map[Role]string{
	Architect: `Role: Eco-Architect.
Goal: Design structures with zero fluff.
Format: Use markdown trees and concise summaries.`,

	Frontend: `Role: Green-Frontend Engineer.
Goal: Write high-performance Tailwind/React code.
Constraint: No boilerplate, no comments, minimal DOM nesting.`,

	Backend: `Role: Efficient-Backend Developer.
Goal: TypeScript logic and API handling.
Constraint: Focus on performance and low memory footprint.`,
}

var descriptions = map[Role]string{
	Orchestrator: "Coordinates the builder and calculation lifecycle.",
	Architect:    "Designs folder structures and system logic.",
	Frontend:     "Generates minimalist React and Tailwind code.",
	Backend:      "Builds efficient APIs and data processing logic.",
	Auditor:      "Reviews files for token waste and redundancy.",
	Energy:       "Specialist in data center power metrics.",
	Carbon:       "Expert in carbon emission coefficients.",
	Water:        "Auditor for datacenter cooling water usage.",
}

var all = []Role{Orchestrator, Architect, Frontend, Backend, Auditor, Energy, Carbon, Water}

// All returns every known role in display order.
func All() []Role {
	out := make([]Role, len(all))
	copy(out, all)
	return out
}

// Resolve returns the role-specific instruction, or DefaultInstruction for
// any role without one. It never fails.
func Resolve(role Role) string {
	if s, ok := instructions[role]; ok {
		return s
	}
	return DefaultInstruction
}

// Instruction combines SystemBase with the role instruction.
func Instruction(role Role) string {
	return SystemBase + "\n" + Resolve(role)
}

// ParseRole matches s case-insensitively against the known roles.
// Unknown names are returned as-is with ok=false; they still resolve to the default.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := descriptions[r]
	return r, ok
}

// Describe returns a one-line summary of the role.
func Describe(role Role) string {
	if d, ok := descriptions[role]; ok {
		return d
	}
	return "Custom builder role."
}
