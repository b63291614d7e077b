package scripts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/skillet-ai/skillet/pkg/logger"
)

// PathTraversalError is returned when a script or resource path escapes its
// root. It is raised before any subprocess is spawned.
type PathTraversalError struct {
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path %q escapes its root directory", e.Path)
}

// ExecutionError carries a failed script run: exit code plus the captured
// output most useful to the caller (stderr, falling back to stdout when
// stderr was empty, so usage messages printed to stdout stay visible).
type ExecutionError struct {
	Script   string
	ExitCode int
	Output   string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("script %s failed (exit %d): %s", e.Script, e.ExitCode, e.Output)
}

// DefaultTimeout bounds a single script run unless configured otherwise.
const DefaultTimeout = 60 * time.Second

// ResolvePath validates a relative path against its root directory and
// returns the absolute path. Absolute paths, parent-directory segments, and
// symlinks resolving outside the root are all rejected.
func ResolvePath(root, rel string) (string, error) {
	if rel == "" {
		return "", errors.New("path is required")
	}
	if filepath.IsAbs(rel) {
		return "", &PathTraversalError{Path: rel}
	}

	cleaned := filepath.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", &PathTraversalError{Path: rel}
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve root directory")
	}
	candidate := filepath.Join(rootAbs, cleaned)

	// Resolve symlinks so a link inside the root cannot point outside it.
	resolvedRoot, err := filepath.EvalSymlinks(rootAbs)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve root directory")
	}
	resolved, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Errorf("%q not found", rel)
		}
		return "", errors.Wrap(err, "failed to resolve path")
	}
	if resolved != resolvedRoot && !strings.HasPrefix(resolved, resolvedRoot+string(filepath.Separator)) {
		return "", &PathTraversalError{Path: rel}
	}

	return candidate, nil
}

// interpreterFor picks the interpreter family for a script. Unrecognized
// extensions execute the file directly.
func interpreterFor(path string) []string {
	switch filepath.Ext(path) {
	case ".py":
		return []string{"python3"}
	case ".sh":
		return []string{"bash"}
	case ".js":
		return []string{"node"}
	case ".rb":
		return []string{"ruby"}
	default:
		return nil
	}
}

// Runner executes scripts under one skill's scripts root.
type Runner struct {
	skillDir string
	timeout  time.Duration
}

// NewRunner creates a runner for a skill directory. A zero timeout falls
// back to DefaultTimeout.
func NewRunner(skillDir string, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{skillDir: skillDir, timeout: timeout}
}

// Run executes a script identified by its path relative to the scripts
// directory, passing positional string arguments verbatim. It returns
// combined output on success; a non-zero exit surfaces an ExecutionError.
func (r *Runner) Run(ctx context.Context, rel string, args []string) (string, error) {
	return r.exec(ctx, rel, args, nil)
}

// RunWithInput executes a script with a JSON document on stdin, the calling
// convention manifest-backed script tools use.
func (r *Runner) RunWithInput(ctx context.Context, rel string, input []byte) (string, error) {
	return r.exec(ctx, rel, nil, input)
}

func (r *Runner) exec(ctx context.Context, rel string, args []string, stdin []byte) (string, error) {
	scriptsRoot := filepath.Join(r.skillDir, ScriptsDirName)
	scriptPath, err := ResolvePath(scriptsRoot, rel)
	if err != nil {
		return "", err
	}

	argv := append(interpreterFor(scriptPath), scriptPath)
	argv = append(argv, args...)

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, argv[0], argv[1:]...)
	cmd.Env = injectModulePath(os.Environ(), r.skillDir)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.G(ctx).WithField("script", rel).WithField("args", args).Debug("running script")

	err = cmd.Run()
	if execCtx.Err() == context.DeadlineExceeded {
		return "", errors.Errorf("script %s timed out after %v", rel, r.timeout)
	}
	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		if output == "" {
			output = err.Error()
		}
		return "", &ExecutionError{Script: rel, ExitCode: exitCode, Output: output}
	}

	return stdout.String(), nil
}

// injectModulePath prepends the skill directory to PYTHONPATH so scripts can
// import modules shipped inside the skill.
func injectModulePath(env []string, skillDir string) []string {
	const key = "PYTHONPATH="
	for i, entry := range env {
		if strings.HasPrefix(entry, key) {
			env[i] = key + skillDir + string(os.PathListSeparator) + entry[len(key):]
			return env
		}
	}
	return append(env, key+skillDir)
}
