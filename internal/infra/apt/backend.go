// Package apt shells out to the Debian package toolchain: dpkg-query for
// installed state, apt-cache for metadata, and sudo apt-get for mutations.
package apt

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"kalitools/internal/domain"
)

// CommandRunner executes a command and returns its combined output and exit
// code. Injected in tests so no real package manager is touched.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, int, error)

// ExecResult captures what a package manager invocation produced.
type ExecResult struct {
	ExitCode int
	Output   string
}

// Backend is the surface the rest of the system talks to the package
// manager through.
type Backend interface {
	QueryInstalled(ctx context.Context, names []string) (map[string]bool, error)
	Install(ctx context.Context, name string) (ExecResult, error)
	Remove(ctx context.Context, name string) (ExecResult, error)
	CheckPrivilege(ctx context.Context) error
	Description(ctx context.Context, name string) (string, error)
	Dependencies(ctx context.Context, name string) ([]string, error)
	DirectDepends(ctx context.Context, name string) ([]string, error)
	ListUpgradable(ctx context.Context) ([]string, error)
}

type System struct {
	runner CommandRunner
	logger *zap.Logger
}

var _ Backend = (*System)(nil)

func NewSystem(runner CommandRunner, logger *zap.Logger) *System {
	if runner == nil {
		runner = execCommand
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{runner: runner, logger: logger.Named("apt")}
}

// QueryInstalled resolves installed state for every name in one dpkg-query
// invocation. dpkg-query exits nonzero when any requested package is
// unknown, so a nonzero exit with parsable output is not an error: unknown
// packages are simply reported as not installed.
func (s *System) QueryInstalled(ctx context.Context, names []string) (map[string]bool, error) {
	result := make(map[string]bool, len(names))
	if len(names) == 0 {
		return result, nil
	}
	for _, name := range names {
		result[name] = false
	}

	args := append([]string{"-W", "-f", "${Package} ${Status}\n"}, names...)
	output, exitCode, err := s.runner(ctx, "dpkg-query", args...)
	if err != nil && output == "" {
		if ctx.Err() != nil {
			return nil, domain.Wrap(domain.CodeCanceled, "apt.query", ctx.Err())
		}
		return nil, domain.E(domain.CodeQuery, "apt.query",
			fmt.Sprintf("dpkg-query failed (exit=%d)", exitCode), err)
	}

	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		pkg := strings.SplitN(fields[0], ":", 2)[0]
		if _, wanted := result[pkg]; !wanted {
			continue
		}
		// Status is three words, e.g. "install ok installed".
		result[pkg] = fields[len(fields)-1] == "installed"
	}
	return result, nil
}

func (s *System) Install(ctx context.Context, name string) (ExecResult, error) {
	return s.mutate(ctx, "install", name)
}

func (s *System) Remove(ctx context.Context, name string) (ExecResult, error) {
	return s.mutate(ctx, "remove", name)
}

func (s *System) mutate(ctx context.Context, verb, name string) (ExecResult, error) {
	if !domain.ValidPackageName(name) {
		return ExecResult{}, domain.E(domain.CodeInvalidArgument, "apt."+verb,
			fmt.Sprintf("invalid package name %q", name), nil)
	}
	s.logger.Info("running apt-get", zap.String("verb", verb), zap.String("package", name))
	output, exitCode, err := s.runner(ctx, "sudo", "apt-get", verb, "-y", name)
	res := ExecResult{ExitCode: exitCode, Output: output}
	if err != nil && ctx.Err() != nil {
		return res, domain.Wrap(domain.CodeCanceled, "apt."+verb, ctx.Err())
	}
	if exitCode != 0 {
		code := Classify(output, exitCode)
		return res, domain.E(code, "apt."+verb,
			fmt.Sprintf("apt-get %s %s failed (exit=%d)", verb, name, exitCode), err)
	}
	return res, nil
}

// CheckPrivilege verifies sudo can be used without prompting. A cached
// credential (sudo -n true) or a successful validation counts.
func (s *System) CheckPrivilege(ctx context.Context) error {
	_, exitCode, err := s.runner(ctx, "sudo", "-n", "true")
	if exitCode == 0 && err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return domain.Wrap(domain.CodeCanceled, "apt.privilege", ctx.Err())
	}
	return domain.E(domain.CodePermissionDenied, "apt.privilege",
		"root privileges required (sudo credentials unavailable)", err)
}

// Description returns the package short and long description from
// apt-cache show, keeping at most three continuation lines of the long
// form so catalog entries stay terse.
func (s *System) Description(ctx context.Context, name string) (string, error) {
	output, exitCode, err := s.runner(ctx, "apt-cache", "show", name)
	if err != nil || exitCode != 0 {
		if ctx.Err() != nil {
			return "", domain.Wrap(domain.CodeCanceled, "apt.describe", ctx.Err())
		}
		return "", domain.E(domain.CodeQuery, "apt.describe",
			fmt.Sprintf("apt-cache show %s failed (exit=%d)", name, exitCode), err)
	}
	return parseDescription(output), nil
}

// Dependencies lists the direct Depends entries of a package.
func (s *System) Dependencies(ctx context.Context, name string) ([]string, error) {
	return s.depends(ctx, "apt.depends", name)
}

// DirectDepends is Dependencies under the name the meta-package scanner
// uses; kept separate so the scanner can be given a narrower interface.
func (s *System) DirectDepends(ctx context.Context, name string) ([]string, error) {
	return s.depends(ctx, "apt.metascan", name)
}

func (s *System) depends(ctx context.Context, op, name string) ([]string, error) {
	output, exitCode, err := s.runner(ctx, "apt-cache", "depends", name)
	if err != nil || exitCode != 0 {
		if ctx.Err() != nil {
			return nil, domain.Wrap(domain.CodeCanceled, op, ctx.Err())
		}
		return nil, domain.E(domain.CodeQuery, op,
			fmt.Sprintf("apt-cache depends %s failed (exit=%d)", name, exitCode), err)
	}
	return parseDepends(output), nil
}

// ListUpgradable reports packages with a newer candidate version.
func (s *System) ListUpgradable(ctx context.Context) ([]string, error) {
	output, exitCode, err := s.runner(ctx, "apt", "list", "--upgradable")
	if err != nil || exitCode != 0 {
		if ctx.Err() != nil {
			return nil, domain.Wrap(domain.CodeCanceled, "apt.upgradable", ctx.Err())
		}
		return nil, domain.E(domain.CodeQuery, "apt.upgradable",
			fmt.Sprintf("apt list --upgradable failed (exit=%d)", exitCode), err)
	}

	var names []string
	for _, line := range strings.Split(output, "\n") {
		// Lines look like "nmap/kali-rolling 7.95 amd64 [upgradable from: 7.94]".
		if !strings.Contains(line, "upgradable") {
			continue
		}
		name, _, ok := strings.Cut(line, "/")
		if !ok || !domain.ValidPackageName(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func parseDescription(output string) string {
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, "Description-en:") && !strings.HasPrefix(line, "Description:") {
			continue
		}
		_, summary, _ := strings.Cut(line, ":")
		parts := []string{strings.TrimSpace(summary)}
		for _, cont := range lines[i+1:] {
			if !strings.HasPrefix(cont, " ") || len(parts) > 3 {
				break
			}
			text := strings.TrimSpace(cont)
			if text == "." {
				continue
			}
			parts = append(parts, text)
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func parseDepends(output string) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(trimmed, "Depends:")
		if !ok {
			continue
		}
		name := strings.Trim(strings.TrimSpace(rest), "<>")
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func execCommand(ctx context.Context, name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	return string(output), exitCode, err
}
