package adapter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sims1253/mcp-llm-bridge/internal/metrics"
	"github.com/sims1253/mcp-llm-bridge/types"
)

// defaultMessagePlaceholder is substituted with the prompt in arg-mode
// argument lists.
const defaultMessagePlaceholder = "{message}"

// Result is the outcome of one adapter invocation.
type Result struct {
	// Content is the trimmed standard output. Empty output is a valid
	// response, not an error.
	Content  string        `json:"content"`
	Stderr   string        `json:"stderr,omitempty"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Capability is the single abstraction the orchestrator dispatches
// against: turn one prompt into one result.
type Capability interface {
	Invoke(ctx context.Context, prompt string) (*Result, error)
}

// Invoker executes external adapter commands. Each invocation is a fresh
// process; no session is kept open between calls.
type Invoker struct {
	logger    *zap.Logger
	collector *metrics.Collector

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewInvoker creates an invoker. collector may be nil.
func NewInvoker(logger *zap.Logger, collector *metrics.Collector) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{
		logger:    logger.With(zap.String("component", "invoker")),
		collector: collector,
		limiters:  make(map[string]*rate.Limiter),
	}
}

// limiter returns the shared rate limiter for spec, creating it lazily.
// Returns nil when the adapter is unthrottled.
func (i *Invoker) limiter(spec types.AdapterSpec) *rate.Limiter {
	if spec.MaxCallsPerMinute <= 0 {
		return nil
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if lim, ok := i.limiters[spec.Name]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Every(time.Minute/time.Duration(spec.MaxCallsPerMinute)), 1)
	i.limiters[spec.Name] = lim
	return lim
}

// Invoke runs spec's command against prompt, enforcing the configured
// timeout. On timeout the process is killed and a TIMEOUT error is
// returned. A nonzero exit surfaces as ADAPTER_ERROR carrying the captured
// stderr.
func (i *Invoker) Invoke(ctx context.Context, spec types.AdapterSpec, prompt string) (*Result, error) {
	if lim := i.limiter(spec); lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, types.Errorf(types.ErrTimeout, "adapter %s rate limit wait interrupted", spec.Name).
				WithAdapter(spec.Name).WithCause(err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, spec.Timeout())
	defer cancel()

	args, stdin := renderCommand(spec, prompt)

	cmd := exec.CommandContext(ctx, spec.Command, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	if len(spec.Env) > 0 {
		env := os.Environ()
		for k, v := range spec.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}
	if spec.WorkingDir != "" {
		cmd.Dir = spec.WorkingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	i.logger.Debug("invoking adapter",
		zap.String("adapter", spec.Name),
		zap.String("command", spec.Command),
		zap.Int("prompt_length", len(prompt)))

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	result := &Result{
		Content:  strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: duration,
		ExitCode: exitCode,
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		i.record(spec.Name, "timeout", duration)
		return nil, types.Errorf(types.ErrTimeout, "adapter %s timed out after %s", spec.Name, spec.Timeout()).
			WithAdapter(spec.Name)

	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			i.record(spec.Name, "error", duration)
			return nil, types.Errorf(types.ErrAdapterError, "adapter %s exited with status %d: %s",
				spec.Name, exitErr.ExitCode(), result.Stderr).WithAdapter(spec.Name).WithCause(err)
		}
		// Startup failures: command missing, not executable, bad workdir.
		i.record(spec.Name, "error", duration)
		return nil, types.Errorf(types.ErrAdapterError, "adapter %s failed to start", spec.Name).
			WithAdapter(spec.Name).WithCause(err)
	}

	i.record(spec.Name, "completed", duration)
	i.logger.Debug("adapter completed",
		zap.String("adapter", spec.Name),
		zap.Duration("duration", duration),
		zap.Int("response_length", len(result.Content)))

	return result, nil
}

func (i *Invoker) record(adapter, status string, duration time.Duration) {
	if i.collector != nil {
		i.collector.ObserveInvocation(adapter, status, duration)
	}
}

// renderCommand builds the argument list and stdin payload for spec.
// Stdin mode pipes the prompt untouched; arg mode substitutes the message
// placeholder in the configured args, appending the prompt when no
// placeholder is present.
func renderCommand(spec types.AdapterSpec, prompt string) (args []string, stdin string) {
	if spec.InputMethod != types.InputArg {
		return append([]string(nil), spec.Args...), prompt
	}

	placeholder := spec.MessageArgTemplate
	if placeholder == "" {
		placeholder = defaultMessagePlaceholder
	}

	substituted := false
	args = make([]string, 0, len(spec.Args)+1)
	for _, a := range spec.Args {
		if strings.Contains(a, placeholder) {
			args = append(args, strings.ReplaceAll(a, placeholder, prompt))
			substituted = true
		} else {
			args = append(args, a)
		}
	}
	if !substituted && prompt != "" {
		args = append(args, prompt)
	}
	return args, ""
}

// Command binds an Invoker to one spec, satisfying Capability.
type Command struct {
	spec    types.AdapterSpec
	invoker *Invoker
}

// NewCommand wraps spec as a Capability.
func NewCommand(spec types.AdapterSpec, invoker *Invoker) *Command {
	return &Command{spec: spec, invoker: invoker}
}

// Invoke implements Capability.
func (c *Command) Invoke(ctx context.Context, prompt string) (*Result, error) {
	return c.invoker.Invoke(ctx, c.spec, prompt)
}

var _ Capability = (*Command)(nil)
