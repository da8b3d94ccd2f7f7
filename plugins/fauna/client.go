package fauna

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"faunasetup/model"
)

const (
	DefaultTool = "fauna"

	listDatabasesCmd  = "list-databases"
	createDatabaseCmd = "create-database"
	createKeyCmd      = "create-key"
)

// CommandRunner runs one external process to completion.
// A non-zero exit status is reported in the result, the error is reserved for
// processes that could not be run at all.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (model.CommandResult, error)
}

// ExecRunner runs commands on the local machine with os/exec.
type ExecRunner struct {
	// Dir is the working directory, empty means the current one.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (model.CommandResult, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := model.CommandResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if err == nil {
		return res, nil
	}
	res.ExitCode = -1
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}

// ListDatabasesArgs returns the arguments of `fauna list-databases`.
func ListDatabasesArgs() []string {
	return []string{listDatabasesCmd}
}

func CreateDatabaseArgs(name string) []string {
	return []string{createDatabaseCmd, name}
}

func CreateKeyArgs(name string) []string {
	return []string{createKeyCmd, name}
}

// CommandLine joins a command and its arguments the way it would be typed in a shell.
func CommandLine(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
