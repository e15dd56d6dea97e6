package yara

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/sigscan/internal/model"
)

var (
	// ErrInvocation is returned when the yara process cannot be run.
	ErrInvocation = errors.New("failed to invoke yara")

	// ErrNoManifest is returned when the rule set has no manifest.
	ErrNoManifest = errors.New("rule set has no manifest")
)

// waitDelay bounds how long a killed process may keep its output pipes open.
const waitDelay = 2 * time.Second

// Scanner invokes "<yara> <manifest> <artifact>" once per artifact.
// It is safe for concurrent use; every call starts its own process.
type Scanner struct {
	path    string
	workDir string
	logger  *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWorkDir sets the working directory of the yara process. By default
// the directory holding the rule manifest is used, so relative include
// paths resolve against the rules directory.
func WithWorkDir(dir string) Option {
	return func(s *Scanner) {
		s.workDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a Scanner for the executable at path.
func NewScanner(path string, opts ...Option) *Scanner {
	s := &Scanner{path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Scan runs yara with the rule set manifest against artifactPath.
//
// A non-zero exit status is not an error when yara wrote error lines: they
// are returned in ScanResult.Stderr. Failing to start the process returns
// ErrInvocation. When ctx is cancelled the process is killed and ctx.Err()
// is returned.
func (s *Scanner) Scan(ctx context.Context, rs model.RuleSet, artifactPath string) (model.ScanResult, error) {
	if rs.Manifest == "" {
		return model.ScanResult{}, ErrNoManifest
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.path, rs.Manifest, artifactPath) //nolint:gosec // executable path comes from configuration
	cmd.Dir = s.workDir
	if cmd.Dir == "" {
		cmd.Dir = filepath.Dir(rs.Manifest)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.ScanResult{}, ctxErr
	}

	result := model.ScanResult{
		Stdout: splitLines(stdout.Bytes()),
		Stderr: splitLines(stderr.Bytes()),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if len(result.Stderr) > 0 {
				s.logger.Debug("yara exited with errors",
					"artifact", artifactPath,
					"exit_code", exitErr.ExitCode(),
				)
				return result, nil
			}
			return result, fmt.Errorf("%w: exit status %d", ErrInvocation, exitErr.ExitCode())
		}
		return result, fmt.Errorf("%w: %w", ErrInvocation, err)
	}

	return result, nil
}

// Version returns the first line yara prints for "-v".
func (s *Scanner) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, s.path, "-v").Output() //nolint:gosec // executable path comes from configuration
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvocation, err)
	}
	lines := splitLines(out)
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], nil
}

// splitLines returns the non-empty lines of b with trailing whitespace
// removed.
func splitLines(b []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
