// Package supervisor sequences the container lifecycle end to end.
//
// [Run] is the single entry point: it fetches the image, unpacks the
// layers into a rootfs, builds and serializes the runtime spec, and
// when asked to, launches the container and supervises its init
// process. Supervision is signal-driven: before init starts, a reaper
// subscribes to every catchable signal, then loops forwarding signals
// to init, reaping exited children on SIGCHLD, and returning the init
// exit status once init itself has been collected. Deletion of the
// container is unconditional on the way out, so a failed supervision
// never leaks a running init process.
//
// Example usage:
//
//	status, err := supervisor.Run(ctx, supervisor.Options{
//	    Image:        "docker.io/library/alpine:latest",
//	    Rootless:     true,
//	    RunContainer: true,
//	})
//	if err != nil {
//	    return err
//	}
//	os.Exit(status)
package supervisor
