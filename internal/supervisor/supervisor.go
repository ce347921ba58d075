package supervisor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/moorworks/moor/internal"
	"github.com/moorworks/moor/internal/container"
	"github.com/moorworks/moor/internal/image"
	"github.com/moorworks/moor/internal/paths"
	"github.com/moorworks/moor/internal/rootfs"
	"github.com/moorworks/moor/internal/spec"
)

// Options configure a single supervised container run.
type Options struct {
	// ID names the container. Generated when empty.
	ID string

	// Image is the registry reference to fetch and unpack.
	Image string

	// Root is the container state directory. Defaults to the
	// per-container directory under the runtime base path.
	Root string

	// Rootless builds a user-namespace spec mapping the current
	// user to root instead of the default privileged spec.
	Rootless bool

	// SpecPath overrides where the runtime spec is serialized.
	SpecPath string

	// RunContainer launches and supervises the container after the
	// rootfs and spec are prepared. When false the run stops once
	// both are on disk.
	RunContainer bool

	// Detach starts the container in its own session and returns
	// without supervising it.
	Detach bool

	// SystemdCgroup selects the systemd cgroup driver.
	SystemdCgroup bool

	// Executor overrides how the init process is launched.
	Executor container.Executor
}

// Run drives the full container lifecycle: fetch the image, unpack its
// layers into a rootfs, build and serialize the runtime spec, then
// launch the container and supervise its init process until it exits.
// Returns the init process exit status. The container is deleted on the
// way out regardless of how supervision ended.
func Run(ctx context.Context, opts Options) (int, error) {
	if opts.ID == "" {
		opts.ID = internal.Name + "-" + uuid.NewString()[:8]
	}
	if opts.Root == "" {
		opts.Root = paths.ContainerRoot(opts.ID)
	}

	slog.Info("fetching image", "image", opts.Image)
	img, err := image.Pull(ctx, opts.Image)
	if err != nil {
		return 0, err
	}

	slog.Info("unpacking layers", "layers", len(img.Layers), "root", opts.Root)
	if err := rootfs.Unpack(ctx, img, paths.Rootfs(opts.Root)); err != nil {
		return 0, err
	}

	s := spec.Default()
	if opts.Rootless {
		if s, err = spec.Rootless(); err != nil {
			return 0, err
		}
	}

	specPath := opts.SpecPath
	if specPath == "" {
		specPath = paths.SpecFile(opts.Root)
	}
	if err := spec.Write(s, specPath); err != nil {
		return 0, err
	}

	if !opts.RunContainer {
		slog.Info("container prepared", "id", opts.ID, "spec", specPath)
		return 0, nil
	}
	return run(opts, s)
}

// Launches the container and supervises it to completion. The reaper is
// subscribed before init starts so no child exit can race the setup,
// and deletion is attempted no matter how supervision ends.
func run(opts Options, s *specs.Spec) (int, error) {
	builder := container.New(opts.ID).
		WithRootPath(opts.Root).
		WithPIDFile(paths.PIDFile(opts.Root)).
		WithSystemdCgroup(opts.SystemdCgroup).
		WithDetach(opts.Detach)
	if opts.Executor != nil {
		builder = builder.WithExecutor(opts.Executor)
	}
	ctr, err := builder.Build(s)
	if err != nil {
		return 0, err
	}

	r := newReaper()
	defer r.Close()

	if err := ctr.Start(); err != nil {
		if derr := ctr.Delete(true); derr != nil {
			slog.Warn("failed to delete container", "id", opts.ID, "error", derr)
		}
		return 0, err
	}

	pid, err := ctr.PID()
	if err != nil {
		return 0, err
	}

	if opts.Detach {
		slog.Info("container started", "id", opts.ID, "pid", pid)
		return 0, nil
	}

	status, supErr := r.Wait(pid)

	slog.Info("deleting container", "id", opts.ID)
	if derr := ctr.Delete(true); derr != nil {
		slog.Warn("failed to delete container", "id", opts.ID, "error", derr)
	}
	if supErr != nil {
		return 0, supErr
	}
	return status, nil
}
