package cli

import (
	"context"

	"github.com/moorworks/moor/internal/supervisor"
)

// Represents the 'moor run' command.
type RunCmd struct {
	Image         string `arg:"" help:"Image reference to fetch and run."`
	ID            string `help:"Container ID. Generated when omitted." placeholder:"ID"`
	Root          string `help:"Container state directory." placeholder:"PATH" type:"path"`
	Rootless      bool   `help:"Map the current user to root inside a user namespace."`
	SpecOut       string `name:"spec-out" help:"Write the runtime spec to PATH instead of the state directory." placeholder:"PATH" type:"path"`
	Detach        bool   `help:"Start the container and return without supervising it."`
	SystemdCgroup bool   `name:"systemd-cgroup" help:"Use the systemd cgroup driver."`
}

// Executes the run command.
//
// Fetches the image, unpacks it, launches the container, and supervises
// its init process until it exits. The init exit status becomes the
// process exit status.
func (c *RunCmd) Run(ctx context.Context) error {
	status, err := supervisor.Run(ctx, supervisor.Options{
		ID:            c.ID,
		Image:         c.Image,
		Root:          c.Root,
		Rootless:      c.Rootless,
		SpecPath:      c.SpecOut,
		RunContainer:  true,
		Detach:        c.Detach,
		SystemdCgroup: c.SystemdCgroup,
	})
	if err != nil {
		return err
	}

	exitStatus = status
	return nil
}
