package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/scratcheverywhere/sebuild/internal"
	"github.com/scratcheverywhere/sebuild/internal/paths"
)

// Represents the root command for sebuild.
var RootCmd struct {
	Quiet   bool   `short:"q" env:"SEBUILD_QUIET" help:"Suppress informational output."`
	Verbose bool   `short:"v" env:"SEBUILD_VERBOSE" help:"Enable verbose output."`
	Debug   bool   `short:"d" env:"SEBUILD_DEBUG" help:"Enable debug output."`
	Socket  string `short:"s" env:"SEBUILD_SOCKET" help:"Override the default Unix socket path." placeholder:"PATH"`

	Store      string `env:"SEBUILD_STORE" help:"Toolchain version store." placeholder:"DIR"`
	Workspaces string `env:"SEBUILD_WORKSPACES" help:"Parent directory of build workspaces." placeholder:"DIR"`
	LockFile   string `env:"SEBUILD_LOCK" help:"Lock file that keeps builds serial." placeholder:"PATH"`

	Engine            string `env:"SEBUILD_ENGINE" default:"docker" help:"Container engine executable."`
	Target            string `env:"SEBUILD_TARGET" default:"exporter" help:"Recipe stage to build."`
	Probe             string `env:"SEBUILD_PROBE" enum:"cli,docker-api,containerd,none" default:"cli" help:"How to check that the engine is reachable (${enum})."`
	DockerHost        string `env:"DOCKER_HOST" help:"Docker daemon address for the docker-api probe." placeholder:"URL"`
	ContainerdAddress string `env:"SEBUILD_CONTAINERD_ADDRESS" default:"/run/containerd/containerd.sock" help:"containerd socket for the containerd probe." placeholder:"PATH"`

	Repo        string `env:"SEBUILD_REPO" default:"ScratchEverywhere/ScratchEverywhere" help:"GitHub repository publishing toolchain releases." placeholder:"OWNER/NAME"`
	Archive     string `env:"SEBUILD_ARCHIVE" enum:"zip,tar.gz" default:"zip" help:"Archive format to download from GitHub (${enum})."`
	GitHubToken string `env:"GITHUB_TOKEN" help:"GitHub token, raises API rate limits."`

	Mirror MirrorFlags `embed:"" prefix:"mirror-" envprefix:"SEBUILD_MIRROR_" group:"Mirror"`

	Build    BuildCmd    `cmd:"" help:"Build a project."`
	Versions VersionsCmd `cmd:"" help:"List toolchain versions."`
	Install  InstallCmd  `cmd:"" help:"Download and install a toolchain version."`
	Remove   RemoveCmd   `cmd:"" help:"Remove an installed toolchain version."`
	Serve    ServeCmd    `cmd:"" help:"Run the build daemon."`
	Status   StatusCmd   `cmd:"" help:"Show daemon status."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Selects an S3-compatible bucket (AWS, R2, MinIO) as the toolchain source
// instead of GitHub.
type MirrorFlags struct {
	Bucket          string `env:"BUCKET" help:"Bucket holding toolchain archives. Enables the mirror."`
	Prefix          string `env:"PREFIX" help:"Key prefix of the archives."`
	Format          string `env:"FORMAT" enum:"zip,tar.gz,tar.xz,tar.zst" default:"zip" help:"Archive format of the objects (${enum})."`
	Endpoint        string `env:"ENDPOINT" help:"Custom S3 endpoint." placeholder:"URL"`
	Region          string `env:"REGION" help:"Bucket region."`
	AccessKeyID     string `env:"ACCESS_KEY_ID" help:"Static access key."`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY" help:"Static secret key."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Builds Scratch projects into homebrew applications.\n\nStages a project onto a versioned toolchain and runs the toolchain's container build."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, paths.Config()),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	if RootCmd.Debug {
		internal.SetDebug(true)
	}
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}

	internal.SetLogLevel(internal.ModeLevel())

	// Source locations are fixed when the handler is created.
	slog.SetDefault(internal.NewLogger(os.Stderr))
}
