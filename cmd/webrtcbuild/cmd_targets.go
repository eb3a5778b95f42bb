package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"webrtcbuild/internal/target"
)

var targetsOS string

// targetsCmd prints the cross-compilation matrix
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the supported cross-compilation matrix",
	RunE:  runTargets,
}

func init() {
	targetsCmd.Flags().StringVar(&targetsOS, "os", "", "Restrict the listing to one OS")
}

func runTargets(cmd *cobra.Command, args []string) error {
	var list []target.Target
	if targetsOS != "" {
		o, err := target.ParseOS(targetsOS)
		if err != nil {
			return err
		}
		list = target.Matrix(o)
	} else {
		list = target.All()
	}

	host, hostErr := target.Host()
	for _, t := range list {
		marker := ""
		if hostErr == nil && t == host {
			marker = "  (host)"
		}
		fmt.Printf("%-16s %s%s\n", t, t.LibraryName(), marker)
	}
	return nil
}
