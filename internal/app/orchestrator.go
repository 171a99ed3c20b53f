package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kalitools/internal/domain"
	"kalitools/internal/infra/apt"
	"kalitools/internal/infra/pkgstate"
)

// Orchestrator drives install and uninstall operations: privilege check,
// current-state check, apt-get execution, failure classification and cache
// invalidation. Mutations are serialized process-wide because apt itself
// cannot run concurrently.
type Orchestrator struct {
	mu      sync.Mutex
	backend apt.Backend
	oracle  *pkgstate.Oracle
	emitter domain.ChangeEmitter
	logger  *zap.Logger
}

func NewOrchestrator(backend apt.Backend, oracle *pkgstate.Oracle, emitter domain.ChangeEmitter, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		backend: backend,
		oracle:  oracle,
		emitter: emitter,
		logger:  logger.Named("orchestrator"),
	}
}

// Install installs a single package.
func (o *Orchestrator) Install(ctx context.Context, name string) domain.OperationResult {
	return o.run(ctx, domain.ActionInstall, name)
}

// Uninstall removes a single package.
func (o *Orchestrator) Uninstall(ctx context.Context, name string) domain.OperationResult {
	return o.run(ctx, domain.ActionUninstall, name)
}

func (o *Orchestrator) run(ctx context.Context, action domain.OperationAction, name string) domain.OperationResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runLocked(ctx, action, name)
}

func (o *Orchestrator) runLocked(ctx context.Context, action domain.OperationAction, name string) domain.OperationResult {
	started := time.Now()
	result := domain.OperationResult{
		ID:      uuid.NewString(),
		Package: name,
		Action:  action,
	}
	fail := func(err error) domain.OperationResult {
		result.Outcome = domain.OutcomeFailed
		result.Classification = domain.CodeFrom(err)
		result.Err = err
		result.Duration = time.Since(started)
		return result
	}

	if err := o.backend.CheckPrivilege(ctx); err != nil {
		return fail(err)
	}

	installed, err := o.oracle.IsInstalled(ctx, name)
	if err != nil {
		return fail(err)
	}
	if action == domain.ActionInstall && installed {
		result.Outcome = domain.OutcomeSkipped
		result.Err = domain.ErrAlreadyInstalled
		result.Duration = time.Since(started)
		return result
	}
	if action == domain.ActionUninstall && !installed {
		result.Outcome = domain.OutcomeSkipped
		result.Err = domain.ErrNotInstalled
		result.Duration = time.Since(started)
		return result
	}

	var exec apt.ExecResult
	if action == domain.ActionInstall {
		exec, err = o.backend.Install(ctx, name)
	} else {
		exec, err = o.backend.Remove(ctx, name)
	}
	result.ExitCode = exec.ExitCode
	result.Output = exec.Output

	// The system may have changed regardless of the outcome.
	o.oracle.Invalidate(name)

	if err != nil {
		o.logger.Warn("operation failed",
			zap.String("action", string(action)),
			zap.String("package", name),
			zap.Int("exit", exec.ExitCode),
			zap.Error(err))
		return fail(err)
	}

	result.Outcome = domain.OutcomeSucceeded
	result.Duration = time.Since(started)
	o.logger.Info("operation succeeded",
		zap.String("action", string(action)),
		zap.String("package", name),
		zap.Duration("took", result.Duration))
	if o.emitter != nil {
		kind := domain.KindPackageInstalled
		if action == domain.ActionUninstall {
			kind = domain.KindPackageRemoved
		}
		o.emitter.Emit(domain.ChangeEvent{Kind: kind, Package: name, At: time.Now()})
	}
	return result
}

// InstallAll installs the tool's primary package and every sub-package,
// sequentially and in catalog order. Entries already installed are skipped;
// one entry's failure never aborts the rest. Cancellation stops between
// entries, never mid-invocation.
func (o *Orchestrator) InstallAll(ctx context.Context, tool domain.Tool) (domain.BulkSummary, error) {
	return o.bulk(ctx, domain.ActionInstall, tool)
}

// UninstallAll removes the tool's primary package and every sub-package.
func (o *Orchestrator) UninstallAll(ctx context.Context, tool domain.Tool) (domain.BulkSummary, error) {
	return o.bulk(ctx, domain.ActionUninstall, tool)
}

func (o *Orchestrator) bulk(ctx context.Context, action domain.OperationAction, tool domain.Tool) (domain.BulkSummary, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := append([]string{tool.Name}, tool.Subpackages...)
	var summary domain.BulkSummary
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, domain.Wrap(domain.CodeCanceled, "orchestrator.bulk", err)
		}
		summary.Add(o.runLocked(ctx, action, name))
	}
	return summary, nil
}
