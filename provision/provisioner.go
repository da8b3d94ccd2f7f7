package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/retry"
	"go.uber.org/zap"

	"faunasetup/model"
	"faunasetup/plugins/fauna"
)

var (
	ErrRetryExhausted = errors.New("max trials reached")
	ErrSecretNotFound = errors.New("no secret in fauna create-key output")

	errCommandFailed = errors.New("command exited with non-zero status")
)

// Provisioner makes sure the configured fauna database exists and, when it has to
// create it, writes a freshly minted key for it into the local configuration file.
type Provisioner struct {
	Config Config
	Runner fauna.CommandRunner
	Clock  clock.Clock
	// Audit is optional; nil disables the audit trail.
	Audit  AuditStore
	Logger *zap.SugaredLogger
	// RunID identifies the current, or most recent, call to Run.
	RunID string
}

func New(cfg Config, runner fauna.CommandRunner, logger *zap.SugaredLogger) (*Provisioner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if runner == nil {
		return nil, fmt.Errorf("%w: command runner must be set", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Provisioner{
		Config: cfg,
		Runner: runner,
		Clock:  clock.WallClock,
		Logger: logger,
	}, nil
}

// ExecuteWithRetry runs name with args until it exits with status zero and returns its
// stdout. The command is run at most Config.MaxAttempts times in total, waiting
// Config.RetryDelay between attempts. A command that cannot be started is not retried.
func (p *Provisioner) ExecuteWithRetry(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmdLine := fauna.CommandLine(name, args...)

	var stdout []byte
	attempt := 0
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			attempt++
			started := p.Clock.Now()
			res, err := p.Runner.Run(ctx, name, args...)
			p.logCommand(ctx, cmdLine, attempt, started, res)
			if err != nil {
				return err
			}
			if !res.Succeeded() {
				p.logFailure(cmdLine, res)
				return fmt.Errorf("%w: %d", errCommandFailed, res.ExitCode)
			}
			p.Logger.Info(string(res.Stderr))
			p.Logger.Info(string(res.Stdout))
			stdout = res.Stdout
			return nil
		},
		IsFatalError: func(err error) bool {
			return !errors.Is(err, errCommandFailed)
		},
		NotifyFunc: func(err error, attempt int) {
			if attempt < p.Config.MaxAttempts {
				p.Logger.Debugf("attempt %d/%d of '%s' failed: %v; retrying in %s",
					attempt, p.Config.MaxAttempts, cmdLine, err, p.Config.RetryDelay)
			}
		},
		Attempts: p.Config.MaxAttempts,
		Delay:    p.Config.RetryDelay,
		Clock:    p.Clock,
		Stop:     ctx.Done(),
	})
	switch {
	case err == nil:
		return stdout, nil
	case retry.IsAttemptsExceeded(err):
		return nil, fmt.Errorf("%w running command '%s'", ErrRetryExhausted, cmdLine)
	case retry.IsRetryStopped(err):
		return nil, fmt.Errorf("running command '%s': %w", cmdLine, ctx.Err())
	default:
		return nil, fmt.Errorf("running command '%s': %w", cmdLine, err)
	}
}

// Run checks for the database and creates it, with a key, when it is missing.
// Every call is recorded as a run of its own.
func (p *Provisioner) Run(ctx context.Context) (model.RunOutcome, error) {
	p.RunID = uuid.NewString()
	run := model.ProvisionRun{
		RunID:        p.RunID,
		DatabaseName: p.Config.DatabaseName,
		OutputPath:   p.Config.OutputPath,
		StartedAt:    p.Clock.Now(),
	}

	outcome, err := p.run(ctx)
	run.Outcome = outcome
	if err != nil {
		run.Outcome = model.OutcomeFailed
		run.Error = err.Error()
	}
	run.FinishedAt = p.Clock.Now()
	if p.Audit != nil {
		p.Audit.RecordRun(context.WithoutCancel(ctx), p.Logger, run)
	}
	return run.Outcome, err
}

func (p *Provisioner) run(ctx context.Context) (model.RunOutcome, error) {
	tool, name := p.Config.Tool, p.Config.DatabaseName

	dbs, err := p.ExecuteWithRetry(ctx, tool, fauna.ListDatabasesArgs()...)
	if err != nil {
		return model.OutcomeFailed, err
	}
	if strings.Contains(string(dbs), name) {
		p.Logger.Infof("%s already exists", name)
		return model.OutcomeAlreadyExists, nil
	}

	if _, err := p.ExecuteWithRetry(ctx, tool, fauna.CreateDatabaseArgs(name)...); err != nil {
		return model.OutcomeFailed, err
	}
	out, err := p.ExecuteWithRetry(ctx, tool, fauna.CreateKeyArgs(name)...)
	if err != nil {
		return model.OutcomeFailed, err
	}
	secret, ok := fauna.ExtractSecret(string(out))
	if !ok {
		return model.OutcomeFailed, fmt.Errorf("%w: could not parse fauna create-key output:\n%s", ErrSecretNotFound, out)
	}

	if p.Config.Backup {
		_, err := BackupFile(p.Logger, p.Config.OutputPath, p.Clock.Now(), p.Config.MaxBackups)
		switch {
		case errors.Is(err, ErrPruneBackups):
			p.Logger.Warnf("%v", err)
		case err != nil:
			return model.OutcomeFailed, err
		}
	}
	if err := WriteLocalConfig(p.Config.OutputPath, secret); err != nil {
		return model.OutcomeFailed, err
	}
	p.Logger.Infof("wrote api key for database %s to %s", name, p.Config.OutputPath)
	return model.OutcomeCreated, nil
}

func (p *Provisioner) logFailure(cmdLine string, res model.CommandResult) {
	p.Logger.Warnf("Command '%s' failed with exit status %d", cmdLine, res.ExitCode)
	p.Logger.Infof("STDERR\n%s", res.Stderr)
	p.Logger.Infof("STDOUT\n%s", res.Stdout)
}

func (p *Provisioner) logCommand(ctx context.Context, cmdLine string, attempt int, started time.Time, res model.CommandResult) {
	if p.Audit == nil {
		return
	}
	p.Audit.LogCommand(context.WithoutCancel(ctx), p.Logger, model.CommandLog{
		RunID:     p.RunID,
		Command:   cmdLine,
		Attempt:   attempt,
		ExitCode:  res.ExitCode,
		Stdout:    fauna.RedactSecrets(string(res.Stdout)),
		Stderr:    fauna.RedactSecrets(string(res.Stderr)),
		Duration:  p.Clock.Now().Sub(started).Milliseconds(),
		StartedAt: started,
	})
}
