package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webrtcbuild/internal/pipeline"
	"webrtcbuild/internal/target"
)

var fetchTargetOS []string

// fetchCmd runs the acquisition stages without building
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch depot_tools and the pinned WebRTC source without building",
	Long: `Clones or updates depot_tools, writes the gclient configuration,
syncs the WebRTC tree to the pinned revision, and checks the pin out.

The first sync downloads the full source tree and takes a while.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchTargetOS, "target-os", nil,
		"Target OS the checkout must support (repeatable; default: host)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	var oses []target.OS
	if len(fetchTargetOS) == 0 {
		host, err := target.Host()
		if err != nil {
			return err
		}
		oses = []target.OS{host.OS}
	} else {
		for _, name := range fetchTargetOS {
			o, err := target.ParseOS(name)
			if err != nil {
				return err
			}
			oses = append(oses, o)
		}
	}

	logger.Info("fetching pinned source",
		zap.String("commit", cfg.Checkout.ShortCommit()),
		zap.Any("target_os", oses))

	return pipeline.New(cfg, newRunner(true)).Fetch(context.Background(), oses...)
}
