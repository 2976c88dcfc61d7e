package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/lima-cli/pkg/ui"
)

// Set with -ldflags "-X github.com/kamal-hamza/lima-cli/cmd.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show the lima build",
	RunE:    runVersion,
}

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Go        string `json:"go"`
	Platform  string `json:"platform"`
}

// currentBuild fills in what ldflags left unset from the module build
// info, which go install records
func currentBuild() buildInfo {
	b := buildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
		Go:        runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	if b.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch {
		case s.Key == "vcs.revision" && b.Commit == "unknown":
			b.Commit = s.Value
		case s.Key == "vcs.time" && b.BuildDate == "unknown":
			b.BuildDate = s.Value
		}
	}
	return b
}

func runVersion(cmd *cobra.Command, args []string) error {
	b := currentBuild()
	if flagJSON {
		return printJSON(b)
	}
	printLine(ui.FormatTitle("lima") + " " + b.Version)
	printLine(ui.RenderKeyValue("commit", b.Commit))
	printLine(ui.RenderKeyValue("built", b.BuildDate))
	printLine(ui.RenderKeyValue("go", b.Go+" "+b.Platform))
	return nil
}
