// Package rootfs materializes a container root filesystem from image layers.
//
// Layers are applied strictly in manifest order onto a destination root,
// preserving the archive's paths, modes, and symlinks, with standard
// layered-filesystem semantics: later layers overwrite earlier ones, and
// whiteout entries remove paths written by lower layers. Application is not
// atomic; a failure partway through a layer leaves a partially populated
// root that the caller is expected to treat as unusable.
package rootfs
