package executor

import "regexp"

// ThreatSeverity mirrors the source's SecuritySeverity for pattern matches.
type ThreatSeverity int

const (
	ThreatInfo ThreatSeverity = iota
	ThreatWarning
	ThreatCritical
)

// ThreatPattern is a named, compiled detector contributing a risk score
// when it matches an argument. Go's regexp package is RE2-based
// (linear-time, no backtracking), so unlike the source's motivating
// concern about catastrophic backtracking, every pattern here is
// inherently safe against adversarial input; patterns are still kept
// simple and specific since they run on every argument of every call.
type ThreatPattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Severity    ThreatSeverity
	Description string
	Score       int
}

// DefaultThreatBank covers the nine categories the sandboxed executor is
// required to scan for: SQL-injection, cross-site-scripting,
// command-injection, path-traversal, LDAP/NoSQL-injection, prototype
// pollution, format-string abuse, template-injection, and
// data-exfiltration markers. Grounded in security.rs's
// create_default_threat_patterns, extended from its three patterns to
// the full nine categories required here.
func DefaultThreatBank() []ThreatPattern {
	return []ThreatPattern{
		{
			Name:        "SQLInjection",
			Pattern:     regexp.MustCompile(`(?i)(\bunion\s+select\b|\bor\s+1\s*=\s*1\b|;\s*drop\s+table\b|--\s*$|'\s*or\s*'1'\s*=\s*'1)`),
			Severity:    ThreatCritical,
			Description: "SQL injection pattern detected",
			Score:       50,
		},
		{
			Name:        "XSS",
			Pattern:     regexp.MustCompile(`(?i)(<script[^>]*>|javascript:|on(error|load|click)\s*=)`),
			Severity:    ThreatCritical,
			Description: "cross-site scripting pattern detected",
			Score:       40,
		},
		{
			Name:        "CommandInjection",
			Pattern:     regexp.MustCompile("[;&|`]|\\$\\("),
			Severity:    ThreatCritical,
			Description: "potential command injection detected",
			Score:       50,
		},
		{
			Name:        "PathTraversal",
			Pattern:     regexp.MustCompile(`\.\.[/\\]`),
			Severity:    ThreatCritical,
			Description: "path traversal attempt detected",
			Score:       45,
		},
		{
			Name:        "LDAPNoSQLInjection",
			Pattern:     regexp.MustCompile(`(\*\)|\(\||\$where\b|\$ne\b|\$gt\b)`),
			Severity:    ThreatWarning,
			Description: "LDAP or NoSQL injection pattern detected",
			Score:       30,
		},
		{
			Name:        "PrototypePollution",
			Pattern:     regexp.MustCompile(`__proto__|constructor\s*\[\s*["']prototype`),
			Severity:    ThreatWarning,
			Description: "prototype pollution marker detected",
			Score:       30,
		},
		{
			Name:        "FormatString",
			Pattern:     regexp.MustCompile(`%n|%x%x%x%x|%s%s%s%s`),
			Severity:    ThreatWarning,
			Description: "format string abuse pattern detected",
			Score:       25,
		},
		{
			Name:        "TemplateInjection",
			Pattern:     regexp.MustCompile(`\{\{.*\}\}|\$\{.*\}`),
			Severity:    ThreatWarning,
			Description: "template injection pattern detected",
			Score:       25,
		},
		{
			Name:        "DataExfiltration",
			Pattern:     regexp.MustCompile(`(?i)(curl|wget)\s+.*\|\s*(sh|bash)|base64\s+-d.*\|`),
			Severity:    ThreatCritical,
			Description: "data exfiltration marker detected",
			Score:       45,
		},
	}
}

// ScanResult is the outcome of running the threat bank over one argument.
type ScanResult struct {
	Matches []ThreatPattern
	Score   int
}

// Scan runs every pattern in bank against s, accumulating the score of
// every match scaled by sensitivity (a multiplier in (0, ~2], configured
// via AGENT_SAFETY_FILTER_SENSITIVITY).
func Scan(bank []ThreatPattern, s string, sensitivity float64) ScanResult {
	var res ScanResult
	for _, p := range bank {
		if p.Pattern.MatchString(s) {
			res.Matches = append(res.Matches, p)
			res.Score += int(float64(p.Score) * sensitivity)
		}
	}
	return res
}

// HasCritical reports whether res contains a critical-severity match.
func (r ScanResult) HasCritical() bool {
	for _, m := range r.Matches {
		if m.Severity == ThreatCritical {
			return true
		}
	}
	return false
}
