// Parses flags and configures logging for the moor supervisor.
//
// The supervisor accepts the following global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level before the selected
// subcommand runs. The run command surfaces the container's exit status
// through Execute so the process can exit with the same status.
package cli
