package container

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"
)

// Validates and executes the process a runtime spec describes.
//
// Implementations must honor the contract order: Validate is called once
// before Exec, and Exec is only reached when Validate succeeded. Exec
// returns the PID of the launched init process.
type Executor interface {
	Validate(s *specs.Spec) error
	Exec(s *specs.Spec) (int, error)
}

// The default executor: launches the init process directly with the
// namespaces, ID mappings, and root the spec describes.
type DefaultExecutor struct {
	Bundle string // Directory the spec's relative root path resolves against.
	Detach bool   // Start the process in its own session with no stdio.
}

// Checks that the spec describes a launchable process.
func (e *DefaultExecutor) Validate(s *specs.Spec) error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: nil spec", errdefs.ErrInvalidArgument)
	case s.Process == nil || len(s.Process.Args) == 0:
		return fmt.Errorf("%w: spec has no process args", errdefs.ErrInvalidArgument)
	case !filepath.IsAbs(s.Process.Args[0]):
		return fmt.Errorf("%w: process path %q is not absolute", errdefs.ErrInvalidArgument, s.Process.Args[0])
	case s.Root == nil || s.Root.Path == "":
		return fmt.Errorf("%w: spec has no root path", errdefs.ErrInvalidArgument)
	case s.Linux == nil:
		return fmt.Errorf("%w: spec has no linux block", errdefs.ErrInvalidArgument)
	}

	if _, err := cloneFlags(s.Linux.Namespaces); err != nil {
		return err
	}

	return nil
}

// Launches the init process and returns its PID.
//
// The child is chrooted into the spec's root filesystem and cloned into the
// namespaces the spec lists. When the spec carries ID mappings, the kernel
// writes them for the new user namespace and the process becomes
// container-side root. The returned PID belongs to the caller: Exec never
// waits on the child, so the caller owns reaping.
func (e *DefaultExecutor) Exec(s *specs.Spec) (int, error) {
	flags, err := cloneFlags(s.Linux.Namespaces)
	if err != nil {
		return 0, err
	}

	rootfsPath := s.Root.Path
	if !filepath.IsAbs(rootfsPath) {
		rootfsPath = filepath.Join(e.Bundle, rootfsPath)
	}

	attr := &syscall.SysProcAttr{
		Chroot:     rootfsPath,
		Cloneflags: flags,
		Setsid:     e.Detach,
	}

	if len(s.Linux.UIDMappings) > 0 || len(s.Linux.GIDMappings) > 0 {
		attr.UidMappings = idMappings(s.Linux.UIDMappings)
		attr.GidMappings = idMappings(s.Linux.GIDMappings)
		attr.GidMappingsEnableSetgroups = false
		attr.Credential = &syscall.Credential{
			Uid: s.Process.User.UID,
			Gid: s.Process.User.GID,
		}
	}

	cmd := &exec.Cmd{
		Path:        s.Process.Args[0],
		Args:        s.Process.Args,
		Env:         s.Process.Env,
		Dir:         s.Process.Cwd,
		SysProcAttr: attr,
	}

	if !e.Detach {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStart, err)
	}

	pid := cmd.Process.Pid

	// The caller reaps through wait4, not through this handle.
	cmd.Process.Release()

	return pid, nil
}

// Translates the spec's namespace list into clone(2) flags.
func cloneFlags(namespaces []specs.LinuxNamespace) (uintptr, error) {
	var flags uintptr
	for _, ns := range namespaces {
		switch ns.Type {
		case specs.PIDNamespace:
			flags |= unix.CLONE_NEWPID
		case specs.NetworkNamespace:
			flags |= unix.CLONE_NEWNET
		case specs.MountNamespace:
			flags |= unix.CLONE_NEWNS
		case specs.IPCNamespace:
			flags |= unix.CLONE_NEWIPC
		case specs.UTSNamespace:
			flags |= unix.CLONE_NEWUTS
		case specs.UserNamespace:
			flags |= unix.CLONE_NEWUSER
		case specs.CgroupNamespace:
			flags |= unix.CLONE_NEWCGROUP
		default:
			return 0, fmt.Errorf("%w: unsupported namespace type %q", errdefs.ErrInvalidArgument, ns.Type)
		}
	}
	return flags, nil
}

// Converts spec ID mappings to the form the kernel interface expects.
func idMappings(mappings []specs.LinuxIDMapping) []syscall.SysProcIDMap {
	out := make([]syscall.SysProcIDMap, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, syscall.SysProcIDMap{
			ContainerID: int(m.ContainerID),
			HostID:      int(m.HostID),
			Size:        int(m.Size),
		})
	}
	return out
}
