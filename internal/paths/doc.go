// Provides platform-appropriate paths for per-container state.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. Each container run owns one directory under the
// "moor" base path, holding the unpacked rootfs, the serialized runtime
// spec, and the init PID file.
package paths
