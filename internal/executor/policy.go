package executor

import (
	"path/filepath"
	"sync"

	"github.com/aegisline/corectl/internal/xerr"
)

// Action is the terminal or continuing disposition a matched rule applies.
// Grounded in security.rs's SecurityAction.
type Action int

const (
	Allow Action = iota
	Block
	Audit
	Quarantine
)

func (a Action) terminal() bool {
	return a == Block || a == Quarantine
}

// Rule matches a command by glob or equality and applies Action when it
// matches. Severity feeds the audit event, not the match itself.
type Rule struct {
	Pattern  string
	Action   Action
	Severity ThreatSeverity
}

func (r Rule) matches(command string) bool {
	if r.Pattern == "*" || r.Pattern == ".*" {
		return true
	}
	if r.Pattern == command {
		return true
	}
	if ok, err := filepath.Match(r.Pattern, command); err == nil && ok {
		return true
	}
	return false
}

// Policy is an ordered list of rules evaluated in order; the engine stops
// at the first terminal action (Block or Quarantine).
type Policy struct {
	Name  string
	Rules []Rule
}

// DefaultPolicy mirrors security.rs's BasicCommandValidation policy: audit
// everything, block rm/del outright regardless of the allow-list.
func DefaultPolicy() Policy {
	return Policy{
		Name: "BasicCommandValidation",
		Rules: []Rule{
			{Pattern: "rm*", Action: Block, Severity: ThreatCritical},
			{Pattern: "del*", Action: Block, Severity: ThreatCritical},
			{Pattern: "*", Action: Audit, Severity: ThreatInfo},
		},
	}
}

// PolicyTable holds the active policies plus a keyword risk table,
// guarded by a read-mostly lock since policy lookups happen on every
// invocation while updates are rare.
type PolicyTable struct {
	mu              sync.RWMutex
	policies        []Policy
	blockedKeywords map[string]int
	warnKeywords    map[string]int
	riskThreshold   int
	sensitivity     float64
}

// NewPolicyTable builds a table seeded with DefaultPolicy and the given
// risk threshold/sensitivity (from AGENT_SAFETY_RISK_THRESHOLD and
// AGENT_SAFETY_FILTER_SENSITIVITY).
func NewPolicyTable(riskThreshold int, sensitivity float64) *PolicyTable {
	return &PolicyTable{
		policies:        []Policy{DefaultPolicy()},
		blockedKeywords: map[string]int{"rm": 100, "format": 100, "shutdown": 80},
		warnKeywords:    map[string]int{"sudo": 30, "chmod": 20},
		riskThreshold:   riskThreshold,
		sensitivity:     sensitivity,
	}
}

// SetPolicies replaces the active policy set.
func (t *PolicyTable) SetPolicies(policies []Policy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.policies = policies
}

// Decision is the outcome of evaluating a command+args against the
// policy table: the terminal action (if any) and the rule/keyword that
// produced it, for the audit entry.
type Decision struct {
	Action   Action
	Severity ThreatSeverity
	Reason   string
	Score    int
}

// Evaluate walks the policy table in order, applying the first terminal
// rule encountered, then folds in additive keyword risk scoring; a score
// above the configured threshold is equivalent to Block.
func (t *PolicyTable) Evaluate(command string, args []string) Decision {
	t.mu.RLock()
	defer t.mu.RUnlock()

	decision := Decision{Action: Allow}
	for _, policy := range t.policies {
		for _, rule := range policy.Rules {
			if !rule.matches(command) {
				continue
			}
			switch rule.Action {
			case Block, Quarantine:
				return Decision{Action: rule.Action, Severity: rule.Severity, Reason: "blocked by policy " + policy.Name}
			case Audit:
				decision = Decision{Action: Audit, Severity: rule.Severity, Reason: "audited by policy " + policy.Name}
			case Allow:
				if decision.Action == Allow {
					decision.Reason = "allowed by policy " + policy.Name
				}
			}
		}
	}

	score := t.scoreKeywords(command, args)
	decision.Score = score
	if score > t.riskThreshold {
		decision.Action = Block
		decision.Severity = ThreatCritical
		decision.Reason = "risk score exceeded threshold"
	}
	return decision
}

func (t *PolicyTable) scoreKeywords(command string, args []string) int {
	score := 0
	if w, ok := t.blockedKeywords[command]; ok {
		score += w
	}
	if w, ok := t.warnKeywords[command]; ok {
		score += w
	}
	for _, a := range args {
		if w, ok := t.blockedKeywords[a]; ok {
			score += w
		}
		if w, ok := t.warnKeywords[a]; ok {
			score += w
		}
	}
	return int(float64(score) * t.sensitivity)
}

// ToError converts a terminal Decision into a taxonomy error.
func (d Decision) ToError() error {
	if !d.Action.terminal() {
		return nil
	}
	kind := xerr.PermissionDenied
	if d.Action == Quarantine {
		kind = xerr.FailedPrecondition
	}
	return xerr.New(kind, d.Reason).WithDetail("policy")
}
