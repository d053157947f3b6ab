package order

import "github.com/yuntianze/trading-platform/config"

// SessionTable maps accounts to the session key accepted for them. It is
// owned by the processor goroutine.
//
// Under the strict policy an account with no entry is rejected; sessions are
// preloaded out of band (Seed). The permissive policy accepts and records
// first-seen accounts, matching the historical open-login behavior.
type SessionTable struct {
	policy   config.LoginPolicy
	sessions map[uint32]string
}

func NewSessionTable(policy config.LoginPolicy) *SessionTable {
	return &SessionTable{
		policy:   policy,
		sessions: make(map[uint32]string),
	}
}

// Validate returns 0 when the supplied key is accepted for account, 1
// otherwise. Deterministic on (table snapshot, request): repeating a request
// against the same table yields the same result.
func (t *SessionTable) Validate(account uint32, key string) int32 {
	if account == 0 || key == "" {
		return 1
	}
	stored, ok := t.sessions[account]
	switch {
	case !ok && t.policy == config.LoginPolicyPermissive:
		t.sessions[account] = key
		return 0
	case !ok:
		return 1
	case stored == key:
		return 0
	default:
		return 1
	}
}

// Seed installs a session key without validation, for preloading accounts
// under the strict policy.
func (t *SessionTable) Seed(account uint32, key string) {
	t.sessions[account] = key
}

func (t *SessionTable) Len() int { return len(t.sessions) }

// SetPolicy applies a reloaded policy to future validations only.
func (t *SessionTable) SetPolicy(policy config.LoginPolicy) {
	t.policy = policy
}
