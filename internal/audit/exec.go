package audit

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// ExecResult captures a finished command's outcome.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	Signal   string `json:"signal,omitempty"`
	PID      int    `json:"pid,omitempty"`
}

// Executor runs a command. A non-nil error means the command never began
// (spawn failure); a command that ran and exited non-zero returns a result
// with the exit code and a nil error.
type Executor func(ctx context.Context, name string, args []string, dir string) (*ExecResult, error)

// OSExecutor runs commands via os/exec, recovering exit codes and signals
// from the wait status.
func OSExecutor(ctx context.Context, name string, args []string, dir string) (*ExecResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.Process != nil {
		res.PID = cmd.Process.Pid
	}
	if err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			// Spawn failure: the command never began.
			return nil, err
		}
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				res.Signal = status.Signal().String()
			}
			res.ExitCode = status.ExitStatus()
		} else {
			res.ExitCode = exitErr.ExitCode()
		}
	}
	return res, nil
}

// WrapExecutor composes the audit sequence around an executor:
// RecordStart is awaited before the executor runs, RecordEnd fires
// detached on success, and a spawn failure is recorded via
// RecordFailedStart before the original error is returned unchanged.
// The executor's result and error pass through untouched.
func (a *Auditor) WrapExecutor(executor Executor) Executor {
	return func(ctx context.Context, name string, args []string, dir string) (*ExecResult, error) {
		command := name
		if len(args) > 0 {
			command += " " + strings.Join(args, " ")
		}

		started := time.Now().UTC()
		id := a.RecordStart(ctx, ExecutionRecord{
			Command:    command,
			WorkingDir: dir,
			StartedAt:  started,
		})

		res, err := executor(ctx, name, args, dir)
		if err != nil {
			a.RecordFailedStart(ctx, id, err.Error())
			return res, err
		}

		end := ExecutionRecord{
			CorrelationID: id,
			CompletedAt:   time.Now().UTC(),
		}
		if res != nil {
			code := res.ExitCode
			end.ExitCode = &code
			end.Signal = res.Signal
			end.PID = res.PID
			end.OutputPreview = res.Stdout
		}
		a.RecordEnd(end)
		return res, nil
	}
}
