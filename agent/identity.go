// Package agent implements the reasoning-loop executor from spec.md §4.4
// (C4): agent identity, dispatch-mode selection (native function calling vs
// text-mode ReAct), the bounded per-iteration loop, delegation tools, and
// the executor state machine. Grounded on the teacher's agent/agent.go
// goroutine+channel execute() loop, generalized from its strategy-plugin
// shape to the spec's fixed ReAct/native dispatch.
package agent

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/kadirpekel/crewcore/config"
)

// Key returns the deterministic identity hash from spec.md §6:
// hash("role|goal|backstory"). MD5 is used purely as a stable 128-bit
// digest (the spec mandates no particular algorithm) — the stdlib
// provides exactly that without needing a third-party hash package.
func Key(role, goal, backstory string) string {
	sum := md5.Sum([]byte(role + "|" + goal + "|" + backstory))
	return hex.EncodeToString(sum[:])
}

// Identity is an agent's immutable (role, goal, backstory) triplet plus its
// derived key. Interpolating role/goal/backstory for a given task run must
// never change Key — it's computed once from the original, uninterpolated
// config fields, satisfying the invariant in spec.md §8.5.
type Identity struct {
	Name      string
	Role      string
	Goal      string
	Backstory string
	key       string
}

func NewIdentity(cfg config.AgentConfig) Identity {
	return Identity{
		Name:      cfg.Name,
		Role:      cfg.Role,
		Goal:      cfg.Goal,
		Backstory: cfg.Backstory,
		key:       Key(cfg.Role, cfg.Goal, cfg.Backstory),
	}
}

func (id Identity) Key() string { return id.key }
