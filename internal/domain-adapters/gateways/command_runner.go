package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ochairo/piko/internal/domain/interfaces"
)

// CommandConfig describes one external program invocation
type CommandConfig struct {
	Name        string
	Args        []string
	WorkingDir  string
	Env         map[string]string
	Timeout     time.Duration
	Description string
}

// CommandResult contains the result of a command execution
type CommandResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Err returns nil on success, or an error carrying the exit code and stderr tail
func (r *CommandResult) Err(what string) error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("%s failed (exit %d): %w\nStderr: %s", what, r.ExitCode, r.Error, tail(r.Stderr, 20))
}

// CommandRunner runs external programs such as the JVM-based build tools
type CommandRunner interface {
	Run(ctx context.Context, config CommandConfig) *CommandResult
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	defaultTimeout time.Duration
	logger         interfaces.Logger
}

// NewExecRunner creates a new command runner
func NewExecRunner(logger interfaces.Logger) *ExecRunner {
	return &ExecRunner{
		defaultTimeout: 30 * time.Minute,
		logger:         interfaces.OrNoOp(logger),
	}
}

// Run executes the command and captures its output
func (r *ExecRunner) Run(ctx context.Context, config CommandConfig) *CommandResult {
	startTime := time.Now()
	result := &CommandResult{}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: Tool invocation is intentional and controlled by recipe configuration
	cmd := exec.CommandContext(execCtx, config.Name, config.Args...)
	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	env := os.Environ()
	for key, value := range config.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if config.Description != "" {
		r.logger.Info("Executing", interfaces.F("step", config.Description), interfaces.F("command", config.Name))
	}
	r.logger.Debug("Command line", interfaces.F("args", strings.Join(config.Args, " ")))

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			result.Error = fmt.Errorf("command timeout after %v", timeout)
			result.ExitCode = -1
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		default:
			result.ExitCode = -1
		}
		return result
	}

	r.logger.Debug("Command finished",
		interfaces.F("step", config.Description),
		interfaces.F("duration", result.Duration.Round(time.Millisecond)))

	result.Success = true
	return result
}

// tail returns the last n lines of s
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
