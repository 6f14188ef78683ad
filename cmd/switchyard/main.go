package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/switchyard/internal/app"
	"github.com/MrSnakeDoc/switchyard/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("❌ switchyard failed: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "switchyard",
		Short:         "Keep a reverse proxy's routes in sync with the containers running on a fleet of nodes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "registry",
			Short: "Poll node agents and publish the merged routing configuration",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return app.NewRegistry().Run()
			},
		},
		&cobra.Command{
			Use:   "agent",
			Short: "Serve the manifest of the containers running on this node",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return app.NewAgent().Run()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "switchyard %s (commit=%s, built=%s, go=%s)\n",
					version.Version, version.Commit, version.BuildDate, version.GoVersion)
			},
		},
	)
	return root
}
