// Package container is the engine boundary for one container instance.
//
// A [Container] is constructed builder-style: an ID, an [Executor], a PID
// file path, a root path, and the systemd-cgroup and detach flags are bound
// before Build validates the ID and root and produces the container. Start
// launches the init process inside the namespaces the spec describes and
// records its PID; Delete releases whatever the run left behind. The
// container holds no goroutines and no connections; supervision of the
// running init process belongs to the caller.
//
// The Executor is the capability seam: the default implementation launches
// the process with clone flags and ID mappings derived from the spec, and
// tests substitute a recording executor instead of creating real
// namespaces.
//
// Example usage:
//
//	ctr, err := container.New("build-1").
//	    WithRootPath("/run/user/1000/moor/build-1").
//	    WithDetach(false).
//	    Build(spec)
//	if err != nil {
//	    return err
//	}
//
//	if err := ctr.Start(); err != nil {
//	    ctr.Delete(true)
//	    return err
//	}
package container
