package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/moorworks/moor/internal"
)

const (

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Filename of the serialized runtime spec inside a container root.
	specFilename = "config.json"

	// Filename of the init process PID file inside a container root.
	pidFilename = "container.pid"

	// Directory name of the unpacked root filesystem inside a container root.
	rootfsDirname = "rootfs"
)

// Path to the base directory holding per-container state.
//
//	Linux:   $XDG_RUNTIME_DIR/moor or /run/user/<uid>/moor
//	macOS:   ~/Library/Caches/moor/run
func Base() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, internal.Name)
	}
	return filepath.Join(xdg.CacheHome, internal.Name, "run")
}

// Default root path for a container with the given ID.
//
// The root holds everything one run owns: the unpacked rootfs, the
// serialized runtime spec, and the init PID file.
func ContainerRoot(id string) string {
	return filepath.Join(Base(), id)
}

// Path to the root filesystem directory inside a container root.
func Rootfs(root string) string {
	return filepath.Join(root, rootfsDirname)
}

// Path to the runtime spec file inside a container root.
//
// This is the config.json consumed by the container engine at start time.
func SpecFile(root string) string {
	return filepath.Join(root, specFilename)
}

// Path to the init PID file inside a container root.
func PIDFile(root string) string {
	return filepath.Join(root, pidFilename)
}
