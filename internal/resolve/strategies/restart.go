package strategies

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// ProcessManager is the action adapter for service restarts.
type ProcessManager interface {
	// Running reports whether the service is currently up.
	Running(ctx context.Context, service string) (bool, error)

	// Restart gracefully restarts the service.
	Restart(ctx context.Context, service string) error
}

// ExecProcessManager shells out to the host service manager
// (systemctl by default).
type ExecProcessManager struct {
	// Command is the service-manager binary, default "systemctl".
	Command string
}

func (m *ExecProcessManager) binary() string {
	if m.Command == "" {
		return "systemctl"
	}
	return m.Command
}

func (m *ExecProcessManager) Running(ctx context.Context, service string) (bool, error) {
	out, err := exec.CommandContext(ctx, m.binary(), "is-active", service).Output()
	if err != nil {
		// is-active exits non-zero for inactive units.
		return false, nil
	}
	return strings.TrimSpace(string(out)) == "active", nil
}

func (m *ExecProcessManager) Restart(ctx context.Context, service string) error {
	if out, err := exec.CommandContext(ctx, m.binary(), "restart", service).CombinedOutput(); err != nil {
		return fmt.Errorf("restart %s: %w: %s", service, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ServiceRestartStrategy restarts a crashed or wedged service. Restarting
// a healthy production service is the widest blast radius we automate, so
// the strategy is tagged unsafe and the engine will refuse it in
// production.
type ServiceRestartStrategy struct {
	meta
	procs ProcessManager
	// DefaultService is used when the event carries no service tag.
	DefaultService string
}

func NewServiceRestartStrategy(procs ProcessManager, defaultService string) *ServiceRestartStrategy {
	return &ServiceRestartStrategy{
		meta:           meta{name: "service_restart", confidence: 0.75, safety: domain.SafetyUnsafe, complexity: 3},
		procs:          procs,
		DefaultService: defaultService,
	}
}

func (s *ServiceRestartStrategy) serviceFor(event *domain.ErrorEvent) string {
	if svc := event.Tags["service"]; svc != "" {
		return svc
	}
	return s.DefaultService
}

func (s *ServiceRestartStrategy) Validate(event *domain.ErrorEvent, cl domain.Classification) bool {
	return cl.Category == domain.CategoryService && s.serviceFor(event) != ""
}

func (s *ServiceRestartStrategy) Execute(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, dryRun bool) (*domain.StrategyResult, error) {
	service := s.serviceFor(event)
	actions := []string{
		fmt.Sprintf("check status of service %s", service),
		fmt.Sprintf("gracefully restart service %s", service),
	}
	if dryRun {
		return &domain.StrategyResult{Success: true, Message: "planned service restart", ActionsTaken: actions}, nil
	}

	if err := s.procs.Restart(ctx, service); err != nil {
		return &domain.StrategyResult{
			Success:      false,
			Message:      err.Error(),
			ActionsTaken: actions,
		}, nil
	}

	running, err := s.procs.Running(ctx, service)
	if err != nil || !running {
		return &domain.StrategyResult{
			Success:      false,
			Message:      fmt.Sprintf("service %s did not come back up", service),
			ActionsTaken: actions,
		}, nil
	}

	return &domain.StrategyResult{
		Success:      true,
		Message:      fmt.Sprintf("service %s restarted", service),
		ActionsTaken: actions,
	}, nil
}

func (s *ServiceRestartStrategy) Rollback(ctx context.Context, info map[string]string) error {
	return fmt.Errorf("a restart cannot be rolled back")
}
