package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/aegisline/corectl/internal/xerr"
)

// MaxOutputBytes bounds how much of each of stdout/stderr is retained;
// excess is truncated and the Result notes it.
const MaxOutputBytes = 1 << 20

// Result is what execute returns to the caller.
type Result struct {
	Stdout          string
	Stderr          string
	ExitCode        int
	StdoutTruncated bool
	StderrTruncated bool
}

// Option configures an Executor at construction.
type Option func(*Executor)

// WithLimits overrides the default resource caps applied to every
// invocation.
func WithLimits(l Limits) Option {
	return func(e *Executor) { e.limits = l }
}

// WithCommandSet overrides the default allow/deny-list.
func WithCommandSet(cs *CommandSet) Option {
	return func(e *Executor) { e.commands = cs }
}

// WithPolicyTable overrides the default policy engine.
func WithPolicyTable(t *PolicyTable) Option {
	return func(e *Executor) { e.policy = t }
}

// WithThreatSensitivity scales the threat-pattern risk score linearly;
// 1.0 is the bank's nominal scoring.
func WithThreatSensitivity(s float64) Option {
	return func(e *Executor) { e.sensitivity = s }
}

// WithResourceBreachHandler registers a callback invoked, out-of-band
// from the failed invocation's own error return, whenever a resource cap
// breach is judged severe enough to warrant it (currently: any breach).
// cmd/agentcore wires this to the Snapshot Manager's emergency rollback.
func WithResourceBreachHandler(fn func(ctx context.Context)) Option {
	return func(e *Executor) { e.onResourceBreach = fn }
}

// Executor runs external commands through allow/deny-listing, argument
// validation, threat scanning, policy evaluation, and platform-enforced
// resource caps, auditing every outcome. Grounded in
// original_source/executor-rs/src/execution_logic.rs and security.rs.
type Executor struct {
	commands    *CommandSet
	threatBank  []ThreatPattern
	sensitivity float64
	policy      *PolicyTable
	audit       *AuditLog
	limits      Limits
	sandbox     sandbox

	mu               sync.Mutex
	running          int
	onResourceBreach func(ctx context.Context)
}

// New builds an Executor with the default allow/deny-list, threat bank,
// policy table, and resource limits, as overridden by opts.
func New(opts ...Option) *Executor {
	e := &Executor{
		commands:    NewCommandSet(nil, nil),
		threatBank:  DefaultThreatBank(),
		sensitivity: 1.0,
		policy:      NewPolicyTable(100, 1.0),
		audit:       NewAuditLog(1000),
		limits:      DefaultLimits(),
		sandbox:     newSandbox(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates command+args against the allow/deny-list, argument
// rules, threat bank, and policy table, then spawns it under the
// platform sandbox with the configured resource caps.
func (e *Executor) Execute(ctx context.Context, command string, args []string, env map[string]string) (Result, error) {
	invocationID := uuid.NewString()

	if err := e.commands.ValidateCommand(command); err != nil {
		e.audit.Record(Event{Kind: EventBlocked, Severity: ThreatCritical, Command: command, Detail: err.Error()})
		return Result{}, sanitizeReturn(err)
	}

	if err := ValidateArgs(args, false); err != nil {
		e.audit.Record(Event{Kind: EventViolation, Severity: ThreatWarning, Command: command, Detail: err.Error()})
		return Result{}, sanitizeReturn(err)
	}

	for _, a := range append([]string{command}, args...) {
		scan := Scan(e.threatBank, a, e.sensitivity)
		if scan.HasCritical() {
			e.audit.Record(Event{Kind: EventThreat, Severity: ThreatCritical, Command: command, Detail: "critical threat pattern matched"})
			return Result{}, sanitizeReturn(xerr.New(xerr.PermissionDenied, "blocked by threat detection").WithDetail("threat"))
		}
		if len(scan.Matches) > 0 {
			e.audit.Record(Event{Kind: EventThreat, Severity: ThreatWarning, Command: command, Detail: "threat pattern matched below block threshold"})
		}
	}

	decision := e.policy.Evaluate(command, args)
	if decision.Action.terminal() {
		e.audit.Record(Event{Kind: EventBlocked, Severity: decision.Severity, Command: command, Detail: decision.Reason})
		return Result{}, sanitizeReturn(decision.ToError())
	}

	logx.WithContext(ctx).Infof("executor: running %s (invocation %s)", command, invocationID)
	res, breach, err := e.run(ctx, command, args, env)
	if err != nil {
		e.audit.Record(Event{Kind: EventViolation, Severity: ThreatCritical, Command: command, Detail: err.Error()})
		return Result{}, sanitizeReturn(err)
	}
	if breach != breachNone {
		e.audit.Record(Event{Kind: EventViolation, Severity: ThreatCritical, Command: command, Detail: "resource cap breached: " + string(breach)})
		if e.onResourceBreach != nil {
			e.onResourceBreach(ctx)
		}
		return res, sanitizeReturn(breach.err())
	}

	e.audit.Record(Event{Kind: EventExecuted, Severity: ThreatInfo, Command: command, Detail: "exit code " + strconv.Itoa(res.ExitCode)})
	return res, nil
}

func (e *Executor) run(ctx context.Context, command string, args []string, env map[string]string) (Result, breachKind, error) {
	e.mu.Lock()
	if e.running >= e.limits.MaxProcesses {
		e.mu.Unlock()
		return Result{}, breachNone, xerr.New(xerr.ResourceExhausted, "concurrent invocation limit reached").WithDetail("process_count")
	}
	e.running++
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running--
		e.mu.Unlock()
	}()

	runCtx, cancel := context.WithTimeout(ctx, e.limits.Wall+time.Second)
	defer cancel()

	cmd := exec.CommandContext(runCtx, command, args...)
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr limitedBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := e.sandbox.prepare(cmd, e.limits); err != nil {
		return Result{}, breachNone, err
	}

	if err := cmd.Start(); err != nil {
		return Result{}, breachNone, xerr.Wrap(xerr.Internal, err, "failed to start process")
	}

	done := make(chan struct{})
	breachCh := make(chan breachKind, 1)
	go func() {
		breachCh <- e.sandbox.watch(cmd, e.limits, done)
	}()

	waitErr := cmd.Wait()
	close(done)
	breach := <-breachCh

	result := Result{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else if breach == breachNone {
			return result, breachNone, xerr.Wrap(xerr.Internal, waitErr, "process wait failed")
		}
	}
	return result, breach, nil
}

// limitedBuffer caps how many bytes it retains, matching MaxOutputBytes,
// while still reporting how much was discarded.
type limitedBuffer struct {
	buf       bytes.Buffer
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := MaxOutputBytes - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string { return b.buf.String() }

func sanitizeReturn(err error) error {
	if err == nil {
		return nil
	}
	sanitized := xerr.Sanitize(err.Error())
	return xerr.Wrap(xerr.KindOf(err), err, sanitized).WithDetail(xerr.DetailOf(err))
}

