package apkbuild

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ralt/alpkit/internal/models"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	// DefaultShell evaluates descriptors unless configured otherwise.
	DefaultShell = "/bin/sh"
	// DefaultTimeout bounds a single evaluation.
	DefaultTimeout = 500 * time.Millisecond
	// DefaultMaxOutputBytes bounds the captured wrapper output.
	DefaultMaxOutputBytes = 16 << 20

	maxStderrBytes = 64 << 10
	defaultPath    = "/usr/local/bin:/usr/bin:/bin"
	waitDelay      = 2 * time.Second
)

// EvalConfig configures an Evaluator.
type EvalConfig struct {
	// Shell is the interpreter, as a path or a name looked up in PATH.
	Shell string
	// Timeout is the wall-clock limit of one evaluation. Zero disables it.
	Timeout time.Duration
	// Env is added to the evaluation environment.
	Env map[string]string
	// InheritEnv passes this process's environment through instead of
	// starting from an empty one.
	InheritEnv bool
	// ExtraVars are further variables to capture verbatim into Raw.
	ExtraVars []string
	// MaxOutputBytes caps the wrapper output. Zero means
	// DefaultMaxOutputBytes.
	MaxOutputBytes int64
}

// DefaultEvalConfig returns the evaluator defaults.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		Shell:          DefaultShell,
		Timeout:        DefaultTimeout,
		MaxOutputBytes: DefaultMaxOutputBytes,
	}
}

// Evaluator runs descriptors in a shell subprocess and captures their
// variables. It holds no per-call state and may be used concurrently.
type Evaluator struct {
	cfg    EvalConfig
	script []byte
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(cfg EvalConfig) *Evaluator {
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = DefaultMaxOutputBytes
	}
	for _, name := range cfg.ExtraVars {
		if !shellName.MatchString(name) {
			logrus.Warnf("ignoring extra variable %q: not a shell variable name", name)
		}
	}
	return &Evaluator{cfg: cfg, script: buildWrapper(cfg.ExtraVars, cfg.MaxOutputBytes+1)}
}

// Evaluate sources the descriptor at path and returns the framed output of
// the wrapper. The subprocess and its temporary directory are gone when
// Evaluate returns.
func (e *Evaluator) Evaluate(ctx context.Context, path string) (out []byte, err error) {
	shell, err := exec.LookPath(e.cfg.Shell)
	if err != nil {
		return nil, models.NewError(models.ErrInterpreterUnavailable, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, models.WithPath(models.NewError(models.ErrFileOp, err), path)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, models.WithPath(models.NewError(models.ErrFileOp, err), path)
	}

	tmpDir, err := os.MkdirTemp("", "alpkit-eval-")
	if err != nil {
		return nil, models.NewError(models.ErrFileOp, fmt.Errorf("failed to create temp dir: %w", err))
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			err = multierr.Append(err, models.NewError(models.ErrFileOp, rmErr))
		}
	}()

	wrapper := filepath.Join(tmpDir, "evaluate.sh")
	if err := os.WriteFile(wrapper, e.script, 0600); err != nil {
		return nil, models.NewError(models.ErrFileOp, fmt.Errorf("failed to write wrapper: %w", err))
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	// Output goes to files rather than pipes, so stray background jobs
	// cannot keep Wait from returning.
	stdoutFile, err := os.Create(filepath.Join(tmpDir, "stdout"))
	if err != nil {
		return nil, models.NewError(models.ErrFileOp, err)
	}
	defer stdoutFile.Close()
	stderrFile, err := os.Create(filepath.Join(tmpDir, "stderr"))
	if err != nil {
		return nil, models.NewError(models.ErrFileOp, err)
	}
	defer stderrFile.Close()

	cmd := exec.CommandContext(ctx, shell, wrapper)
	cmd.Dir = filepath.Dir(abs)
	cmd.Env = e.environ(tmpDir, filepath.Base(abs))
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile
	cmd.WaitDelay = waitDelay
	isolate(cmd)

	logrus.Debugf("evaluating %s with %s", abs, shell)
	start := time.Now()
	runErr := cmd.Run()
	// Background jobs left by the descriptor would otherwise outlive us.
	if killErr := killGroup(cmd); killErr != nil {
		logrus.Debugf("failed to kill process group of %s: %v", abs, killErr)
	}
	logrus.Debugf("evaluated %s in %s", abs, time.Since(start))

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, models.WithPath(models.NewError(models.ErrEvaluationTimeout,
				fmt.Errorf("evaluation did not finish within %s", e.cfg.Timeout)), path)
		}
		return nil, models.WithPath(models.NewError(models.ErrEvaluationFailed, ctxErr), path)
	}

	stderr := readCapped(stderrFile, maxStderrBytes)

	// Writes past the file size limit fail the wrapper, so overflow is
	// checked ahead of the exit status.
	stdout := readCapped(stdoutFile, e.cfg.MaxOutputBytes+1)
	if int64(len(stdout)) > e.cfg.MaxOutputBytes {
		return nil, models.WithPath(models.NewError(models.ErrEvaluationFailed,
			fmt.Errorf("output exceeds %d bytes", e.cfg.MaxOutputBytes)), path)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, models.NewError(models.ErrInterpreterUnavailable,
				fmt.Errorf("failed to run %s: %w", shell, runErr))
		}
		evalErr := models.NewError(models.ErrEvaluationFailed,
			fmt.Errorf("shell exited with status %d", exitErr.ExitCode()))
		evalErr.Detail = string(stderr)
		return nil, models.WithPath(evalErr, path)
	}

	if !bytes.HasSuffix(stdout, []byte("Z\n")) {
		evalErr := models.NewError(models.ErrEvaluationFailed,
			fmt.Errorf("descriptor exited before its variables were printed"))
		evalErr.Detail = string(stderr)
		return nil, models.WithPath(evalErr, path)
	}
	if len(stderr) > 0 {
		logrus.Debugf("%s wrote to stderr: %s", abs, strings.TrimSpace(string(stderr)))
	}
	return stdout, nil
}

// readCapped reads at most limit bytes from the start of f.
func readCapped(f *os.File, limit int64) []byte {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(f, limit))
	return data
}

// environ builds the subprocess environment.
func (e *Evaluator) environ(tmpDir, name string) []string {
	env := make(map[string]string)
	if e.cfg.InheritEnv {
		for _, kv := range os.Environ() {
			if k, v, ok := strings.Cut(kv, "="); ok {
				env[k] = v
			}
		}
	} else {
		path := os.Getenv("PATH")
		if path == "" {
			path = defaultPath
		}
		env["PATH"] = path
	}
	env["HOME"] = tmpDir
	env["TMPDIR"] = tmpDir
	for k, v := range e.cfg.Env {
		env[k] = v
	}
	env["LC_ALL"] = "C"
	env["APKBUILD"] = name

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
