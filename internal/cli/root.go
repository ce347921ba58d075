package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/moorworks/moor/internal"
)

// Represents the root command for the moor supervisor.
var RootCmd struct {
	Quiet   bool       `short:"q" help:"Suppress informational output."`
	Verbose bool       `short:"v" help:"Enable verbose output."`
	Debug   bool       `short:"d" help:"Enable debug output."`
	Run     RunCmd     `cmd:"" help:"Fetch an image and run it as a supervised container."`
	Fetch   FetchCmd   `cmd:"" help:"Fetch an image and prepare its rootfs and runtime spec."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// The exit status of the supervised container, surfaced by Execute so
// the process can exit with the same status.
var exitStatus int

// Parses arguments, configures logging, and runs the selected
// subcommand. Returns the container exit status alongside any error.
func Execute() (int, error) {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("A single-container supervisor.\n\nFetches an OCI image, unpacks it, and supervises a container built from it."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	if err := kongCtx.Run(); err != nil {
		return 0, err
	}
	return exitStatus, nil
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	verbose := RootCmd.Verbose || internal.IsVerbose()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelWarn
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: verbose,
	})
	slog.SetDefault(slog.New(handler).WithGroup(internal.Name))
}
