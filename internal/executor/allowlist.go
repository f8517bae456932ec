// Package executor runs external commands under a validated argument set,
// a threat-pattern scan, a policy engine, and platform-enforced resource
// caps, emitting an audit trail and sanitized errors on every path.
// Grounded in original_source/executor-rs/src/execution_logic.rs and
// security.rs, re-expressed with context.Context, os/exec.CommandContext in
// place of tokio::process::Command, and build-tag-gated platform caps in
// place of the source's cfg(windows)/cfg(unix) split.
package executor

import (
	"strings"

	"github.com/aegisline/corectl/internal/xerr"
)

// MaxArgs bounds the number of arguments accepted in a single invocation.
const MaxArgs = 32

// MaxArgLen bounds the byte length of any single argument.
const MaxArgLen = 1024

// shellChainChars is the set of characters that can chain or substitute
// shell commands; no argument may carry one unless the command explicitly
// admits them (DefaultAllowList commands do not).
const shellChainChars = ";|&`$()"

// DefaultAllowList covers basic read-only utilities, mirroring the
// source's ALLOWED_COMMANDS.
var DefaultAllowList = []string{
	"ls", "dir", "cat", "type", "echo", "pwd",
	"grep", "find", "findstr",
}

// DefaultDenyList covers shells, interpreters, network tools, and
// destructive operations. Deny wins over allow on conflict.
var DefaultDenyList = []string{
	"rm", "del", "format", "chmod", "chown",
	"sh", "bash", "zsh", "cmd", "powershell", "pwsh",
	"python", "python3", "pip", "pip3", "perl", "ruby", "node",
	"curl", "wget", "nc", "netcat", "ssh", "scp",
	"sudo", "su", "kill", "killall",
}

// CommandSet is the allow/deny-list consulted before anything else runs.
// NewCommandSet substitutes DefaultAllowList for a nil or empty allow-list
// and always adds DefaultDenyList to Deny rather than replacing it, since
// the source treats the deny-list as a hard floor. A CommandSet built
// directly with an empty Allow admits any command that Deny does not list.
type CommandSet struct {
	Allow map[string]bool
	Deny  map[string]bool
}

// NewCommandSet builds a CommandSet from explicit allow/deny slices,
// always including DefaultDenyList in the deny set.
func NewCommandSet(allow, deny []string) *CommandSet {
	if len(allow) == 0 {
		allow = DefaultAllowList
	}
	cs := &CommandSet{Allow: make(map[string]bool, len(allow)), Deny: make(map[string]bool, len(deny)+len(DefaultDenyList))}
	for _, c := range allow {
		cs.Allow[c] = true
	}
	for _, c := range DefaultDenyList {
		cs.Deny[c] = true
	}
	for _, c := range deny {
		cs.Deny[c] = true
	}
	return cs
}

// ValidateCommand rejects a command not on the allow-list or present on
// the deny-list.
func (cs *CommandSet) ValidateCommand(command string) error {
	if cs.Deny[command] {
		return xerr.Newf(xerr.PermissionDenied, "command %q is deny-listed", command).WithDetail("deny_listed")
	}
	if len(cs.Allow) > 0 && !cs.Allow[command] {
		return xerr.Newf(xerr.PermissionDenied, "command %q is not in the allow-list", command).WithDetail("not_allow_listed")
	}
	return nil
}

// ValidateArgs enforces MAX_ARGS, MAX_ARG_LEN, and the shell-chaining
// charset. admitsShellChars is true for commands explicitly allowed to
// carry shell metacharacters in their arguments (none of the defaults
// are); everything else rejects them outright.
func ValidateArgs(args []string, admitsShellChars bool) error {
	if len(args) > MaxArgs {
		return xerr.Newf(xerr.InvalidArgument, "argument count %d exceeds maximum of %d", len(args), MaxArgs)
	}
	for _, a := range args {
		if len(a) > MaxArgLen {
			return xerr.Newf(xerr.InvalidArgument, "argument exceeds maximum length of %d bytes", MaxArgLen)
		}
		if !admitsShellChars && strings.ContainsAny(a, shellChainChars) {
			return xerr.Newf(xerr.InvalidArgument, "argument contains a shell-chaining character").WithDetail("shell_chars")
		}
	}
	return nil
}
