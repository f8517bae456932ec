package xerr

import "regexp"

// compileSafe compiles a pattern and panics at package init if it doesn't
// compile. Go's regexp package is RE2-based (linear time, no backtracking),
// so these are already immune to the catastrophic-backtracking ReDoS class;
// the patterns below are kept simple regardless since they run on every
// error string that crosses a service boundary.
func compileSafe(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}

var (
	userPathPattern = compileSafe(`(?:/home|/Users|\\Users)[\w/\\.-]+`)
	ipPattern       = compileSafe(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	tempPathPattern = compileSafe(`(?:/tmp|\\Temp|\\temp)[\w/\\.-]+`)
	permDeniedWords = compileSafe(`(?i)permission denied`)
)

// Sanitize replaces absolute user paths, IP addresses, and temp paths in msg
// with placeholders, and collapses permission-denied text into a generic
// message, so that no caller-visible error string can leak host details.
// Every component that surfaces a string across a service boundary routes
// it through this function first.
func Sanitize(msg string) string {
	if permDeniedWords.MatchString(msg) {
		return "operation not permitted due to security restrictions"
	}
	out := userPathPattern.ReplaceAllString(msg, "[USER_PATH]")
	out = ipPattern.ReplaceAllString(out, "[IP_ADDRESS]")
	out = tempPathPattern.ReplaceAllString(out, "[TEMP_PATH]")
	return out
}
