package spec

import (
	"fmt"
	"os"
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Returns a spec specialized for unprivileged execution.
//
// Starting from [Default], every network and user namespace entry is removed
// and exactly one user namespace is appended. The invoking process's
// effective UID and GID are each mapped to container-side root with a
// single-identity mapping. The /sys mount is replaced by a read-only
// recursive bind of the host's /sys, and uid=/gid= options are stripped from
// every other mount.
func Rootless() (*specs.Spec, error) {
	s := Default()

	namespaces := s.Linux.Namespaces[:0]
	for _, ns := range s.Linux.Namespaces {
		if ns.Type == specs.NetworkNamespace || ns.Type == specs.UserNamespace {
			continue
		}
		namespaces = append(namespaces, ns)
	}
	s.Linux.Namespaces = append(namespaces, specs.LinuxNamespace{Type: specs.UserNamespace})

	uidMap, err := rootMapping(os.Geteuid())
	if err != nil {
		return nil, err
	}
	gidMap, err := rootMapping(os.Getegid())
	if err != nil {
		return nil, err
	}
	s.Linux.UIDMappings = []specs.LinuxIDMapping{uidMap}
	s.Linux.GIDMappings = []specs.LinuxIDMapping{gidMap}

	for i, m := range s.Mounts {
		if m.Destination == "/sys" {
			s.Mounts[i] = specs.Mount{
				Destination: "/sys",
				Type:        "none",
				Source:      "/sys",
				Options:     []string{"rbind", "nosuid", "noexec", "nodev", "ro"},
			}
			continue
		}
		s.Mounts[i].Options = stripIDOptions(m.Options)
	}

	return s, nil
}

// Builds a single-identity mapping from a host ID to container-side root.
func rootMapping(hostID int) (specs.LinuxIDMapping, error) {
	if hostID < 0 {
		return specs.LinuxIDMapping{}, fmt.Errorf("%w: invalid host id %d", ErrSpecBuild, hostID)
	}

	return specs.LinuxIDMapping{
		ContainerID: 0,
		HostID:      uint32(hostID),
		Size:        1,
	}, nil
}

// Removes uid= and gid= entries from a mount option list.
//
// These options reference host identities outside the container's single
// mapping and must not leak into an unprivileged spec.
func stripIDOptions(options []string) []string {
	if len(options) == 0 {
		return options
	}

	kept := make([]string, 0, len(options))
	for _, opt := range options {
		if strings.HasPrefix(opt, "uid=") || strings.HasPrefix(opt, "gid=") {
			continue
		}
		kept = append(kept, opt)
	}
	return kept
}
