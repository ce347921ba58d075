// Package spec builds OCI runtime specifications.
//
// [Default] produces the template every container run starts from: a
// standard namespace set, the usual pseudo-filesystem mounts, and a plain
// shell process. [Rootless] specializes the template for unprivileged
// execution: the network namespace is dropped, exactly one user namespace
// is added, the invoking user is mapped to container-side root with a
// single-identity mapping, /sys is replaced with a read-only bind of the
// host's (an unprivileged process cannot mount a fresh sysfs), and uid=/gid=
// mount options are stripped since they are meaningless without the default
// ID range.
//
// [Write] serializes a spec to the canonical pretty-printed config.json
// consumed by the container engine at start time.
package spec
