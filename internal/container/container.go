package container

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"

	"github.com/moorworks/moor/internal/paths"
)

// IDs are restricted to a filesystem- and hostname-safe charset.
var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Longest accepted container ID.
const maxIDLength = 128

// Accumulates construction parameters for a [Container].
//
// Defaults are resolved in Build: a missing executor becomes the
// [DefaultExecutor] and a missing PID file path is placed inside the root.
type Builder struct {
	id            string
	executor      Executor
	pidFile       string
	rootPath      string
	systemdCgroup bool
	detach        bool
}

// Starts construction of a container with the given ID.
func New(id string) *Builder {
	return &Builder{id: id}
}

// Sets the executor the container delegates validation and launch to.
func (b *Builder) WithExecutor(e Executor) *Builder {
	b.executor = e
	return b
}

// Sets the path the init PID is written to after start.
func (b *Builder) WithPIDFile(path string) *Builder {
	b.pidFile = path
	return b
}

// Sets the container root path: the directory owning this run's state.
func (b *Builder) WithRootPath(path string) *Builder {
	b.rootPath = path
	return b
}

// Sets whether cgroups are managed through systemd.
//
// Accepted for engine-boundary compatibility; the default executor has no
// cgroup integration.
func (b *Builder) WithSystemdCgroup(enabled bool) *Builder {
	b.systemdCgroup = enabled
	return b
}

// Sets whether the init process starts detached, in its own session with
// no inherited stdio.
func (b *Builder) WithDetach(detach bool) *Builder {
	b.detach = detach
	return b
}

// Validates the accumulated parameters and builds the container.
//
// The ID must be well-formed and the root path must be an existing
// directory; violations wrap [errdefs.ErrInvalidArgument]. The spec is
// bound as-is and treated as immutable from here on.
func (b *Builder) Build(s *specs.Spec) (*Container, error) {
	if !validID.MatchString(b.id) || len(b.id) > maxIDLength {
		return nil, fmt.Errorf("%w: invalid container id %q", errdefs.ErrInvalidArgument, b.id)
	}

	if b.rootPath == "" {
		return nil, fmt.Errorf("%w: root path is required", errdefs.ErrInvalidArgument)
	}
	info, err := os.Stat(b.rootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: unusable root path %q: %v", errdefs.ErrInvalidArgument, b.rootPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root path %q is not a directory", errdefs.ErrInvalidArgument, b.rootPath)
	}

	executor := b.executor
	if executor == nil {
		executor = &DefaultExecutor{Bundle: b.rootPath, Detach: b.detach}
	}

	pidFile := b.pidFile
	if pidFile == "" {
		pidFile = paths.PIDFile(b.rootPath)
	}

	return &Container{
		id:       b.id,
		root:     b.rootPath,
		pidFile:  pidFile,
		spec:     s,
		executor: executor,
	}, nil
}

// One container instance, exclusively owned by a single supervisor run.
type Container struct {
	id       string
	root     string
	pidFile  string
	spec     *specs.Spec
	executor Executor

	pid     int  // Init process PID, valid only after a successful Start.
	started bool // Whether Start has succeeded.
}

// Returns the container ID.
func (c *Container) ID() string {
	return c.id
}

// Returns the container root path.
func (c *Container) Root() string {
	return c.root
}

// Launches the container's init process.
//
// The executor validates the spec first and only then executes it. On
// success the init PID is recorded and written to the PID file; a PID file
// write failure is logged, not escalated, since the process is already
// running. Failures wrap [ErrStart].
func (c *Container) Start() error {
	if c.started {
		return fmt.Errorf("%w: container %s already started", ErrStart, c.id)
	}

	if err := c.executor.Validate(c.spec); err != nil {
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	pid, err := c.executor.Exec(c.spec)
	if err != nil {
		if errors.Is(err, ErrStart) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	c.pid = pid
	c.started = true

	if err := os.WriteFile(c.pidFile, []byte(strconv.Itoa(pid)), paths.DefaultFileMode); err != nil {
		slog.Warn("failed to write PID file", "path", c.pidFile, "error", err)
	}

	slog.Debug("container started", "id", c.id, "pid", pid)
	return nil
}

// Returns the init process PID.
//
// Only valid after a successful [Container.Start].
func (c *Container) PID() (int, error) {
	if !c.started {
		return 0, fmt.Errorf("%w: container %s not started", errdefs.ErrFailedPrecondition, c.id)
	}
	return c.pid, nil
}

// Releases the container's resources.
//
// The init process is killed if it is still alive, and the PID file is
// removed; the namespaces and mounts the kernel created for the process die
// with it. With force set, teardown sub-steps that fail are logged and the
// remaining steps still run; without force the first failure is returned,
// wrapping [ErrDelete]. The unpacked root filesystem is deliberately left
// in place.
func (c *Container) Delete(force bool) error {
	var firstErr error

	fail := func(step string, err error) {
		if force {
			slog.Warn("container delete step failed", "id", c.id, "step", step, "error", err)
			return
		}
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: %s: %w", ErrDelete, step, err)
		}
	}

	if c.started && c.pid > 0 {
		if err := unix.Kill(c.pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			fail("kill init", err)
		}
	}

	if err := os.Remove(c.pidFile); err != nil && !os.IsNotExist(err) {
		fail("remove pid file", err)
	}

	slog.Debug("container deleted", "id", c.id)
	return firstErr
}
