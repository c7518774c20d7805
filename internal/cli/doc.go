// Parses flags and runs the sebuild commands.
//
// Global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output and stream engine output.
//	-d, --debug     Enable debug output.
//	-s, --socket    Unix socket path of the daemon.
//	    --store     Toolchain version store.
//	    --engine    Container engine executable.
//	    --probe     How to check the engine (cli, docker-api, containerd, none).
//
// Every flag can also be set through a SEBUILD_* environment variable or the
// JSON configuration file in the user's config directory. Flags override
// build-time defaults set via linker flags. After parsing, the global logger
// is reconfigured to reflect the final level and verbosity before the
// command runs.
package cli
