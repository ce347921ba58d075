package cli

import (
	"context"

	"github.com/moorworks/moor/internal/supervisor"
)

// Represents the 'moor fetch' command.
type FetchCmd struct {
	Image    string `arg:"" help:"Image reference to fetch."`
	ID       string `help:"Container ID. Generated when omitted." placeholder:"ID"`
	Root     string `help:"Container state directory." placeholder:"PATH" type:"path"`
	Rootless bool   `help:"Build a user-namespace spec for the current user."`
	SpecOut  string `name:"spec-out" help:"Write the runtime spec to PATH instead of the state directory." placeholder:"PATH" type:"path"`
}

// Executes the fetch command.
//
// Fetches the image, unpacks its layers into a rootfs, and serializes
// the runtime spec. No container is launched.
func (c *FetchCmd) Run(ctx context.Context) error {
	_, err := supervisor.Run(ctx, supervisor.Options{
		ID:       c.ID,
		Image:    c.Image,
		Root:     c.Root,
		Rootless: c.Rootless,
		SpecPath: c.SpecOut,
	})
	return err
}
