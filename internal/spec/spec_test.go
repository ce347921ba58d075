package spec

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

func TestDefaultTemplate(t *testing.T) {
	s := Default()

	if s.Version != specs.Version {
		t.Fatalf("Version = %q, want %q", s.Version, specs.Version)
	}
	if s.Root == nil || s.Root.Path != "rootfs" {
		t.Fatalf("Root = %+v, want relative rootfs path", s.Root)
	}
	if s.Process == nil || len(s.Process.Args) == 0 {
		t.Fatal("template has no process args")
	}

	var hasNet, hasUser bool
	for _, ns := range s.Linux.Namespaces {
		switch ns.Type {
		case specs.NetworkNamespace:
			hasNet = true
		case specs.UserNamespace:
			hasUser = true
		}
	}
	if !hasNet {
		t.Fatal("default template missing network namespace")
	}
	if hasUser {
		t.Fatal("default template must not contain a user namespace")
	}
}

func TestRootlessNamespaces(t *testing.T) {
	s, err := Rootless()
	if err != nil {
		t.Fatalf("Rootless: %v", err)
	}

	var users, networks int
	for _, ns := range s.Linux.Namespaces {
		switch ns.Type {
		case specs.UserNamespace:
			users++
		case specs.NetworkNamespace:
			networks++
		}
	}

	if users != 1 {
		t.Fatalf("user namespaces = %d, want exactly 1", users)
	}
	if networks != 0 {
		t.Fatalf("network namespaces = %d, want 0", networks)
	}
}

func TestRootlessIDMappings(t *testing.T) {
	s, err := Rootless()
	if err != nil {
		t.Fatalf("Rootless: %v", err)
	}

	if len(s.Linux.UIDMappings) != 1 {
		t.Fatalf("UID mappings = %d, want exactly 1", len(s.Linux.UIDMappings))
	}
	if len(s.Linux.GIDMappings) != 1 {
		t.Fatalf("GID mappings = %d, want exactly 1", len(s.Linux.GIDMappings))
	}

	uidMap := s.Linux.UIDMappings[0]
	if uidMap.ContainerID != 0 || uidMap.Size != 1 {
		t.Fatalf("UID mapping = %+v, want container 0, size 1", uidMap)
	}
	if uidMap.HostID != uint32(os.Geteuid()) {
		t.Fatalf("UID mapping host = %d, want effective uid %d", uidMap.HostID, os.Geteuid())
	}

	gidMap := s.Linux.GIDMappings[0]
	if gidMap.ContainerID != 0 || gidMap.Size != 1 {
		t.Fatalf("GID mapping = %+v, want container 0, size 1", gidMap)
	}
	if gidMap.HostID != uint32(os.Getegid()) {
		t.Fatalf("GID mapping host = %d, want effective gid %d", gidMap.HostID, os.Getegid())
	}
}

func TestRootlessSysMount(t *testing.T) {
	s, err := Rootless()
	if err != nil {
		t.Fatalf("Rootless: %v", err)
	}

	var sys *specs.Mount
	for i, m := range s.Mounts {
		if m.Destination == "/sys" {
			sys = &s.Mounts[i]
			break
		}
	}
	if sys == nil {
		t.Fatal("rootless spec has no /sys mount")
	}

	if sys.Source != "/sys" {
		t.Fatalf("/sys source = %q, want host /sys bind", sys.Source)
	}
	for _, required := range []string{"rbind", "ro", "nosuid", "noexec", "nodev"} {
		if !slices.Contains(sys.Options, required) {
			t.Fatalf("/sys options %v missing %q", sys.Options, required)
		}
	}
	if slices.Contains(sys.Options, "rw") {
		t.Fatalf("/sys options %v must not contain rw", sys.Options)
	}
}

func TestRootlessStripsIDOptionsFromOtherMounts(t *testing.T) {
	s, err := Rootless()
	if err != nil {
		t.Fatalf("Rootless: %v", err)
	}

	for _, m := range s.Mounts {
		if m.Destination == "/sys" {
			continue
		}
		for _, opt := range m.Options {
			if len(opt) >= 4 && (opt[:4] == "uid=" || opt[:4] == "gid=") {
				t.Fatalf("mount %s retains identity option %q", m.Destination, opt)
			}
		}
	}
}

func TestStripIDOptions(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "uid dropped, rw kept",
			in:   []string{"uid=1000", "rw"},
			want: []string{"rw"},
		},
		{
			name: "gid dropped",
			in:   []string{"nosuid", "gid=5", "noexec"},
			want: []string{"nosuid", "noexec"},
		},
		{
			name: "nothing to drop",
			in:   []string{"nosuid", "nodev"},
			want: []string{"nosuid", "nodev"},
		},
		{
			name: "nil options",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripIDOptions(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Fatalf("stripIDOptions(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRootMappingRejectsNegativeID(t *testing.T) {
	if _, err := rootMapping(-1); err == nil {
		t.Fatal("rootMapping(-1) succeeded")
	}
}

func TestWriteProducesCanonicalConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if err := Write(Default(), path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}

	// Field names must match the OCI runtime configuration format.
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("config is not valid JSON: %v", err)
	}
	for _, key := range []string{"ociVersion", "process", "root", "mounts", "linux"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("config missing %q field", key)
		}
	}

	var roundTrip specs.Spec
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("config does not round-trip: %v", err)
	}
	if roundTrip.Version != specs.Version {
		t.Fatalf("round-trip version = %q, want %q", roundTrip.Version, specs.Version)
	}
}
