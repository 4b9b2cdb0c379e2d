// Package cli wires telepipe's cobra command tree: one root command, one
// file per subcommand.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cli

import (
	"github.com/spf13/cobra"

	"github.com/signalpath/telepipe/cmn/nlog"
)

var configPath string

func Execute() error {
	root := &cobra.Command{
		Use:   "telepipe",
		Short: "Packet ingestion and dispatch pipeline",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a telepipe.yaml config file")

	root.AddCommand(runCmd(), configShowCmd(), benchCmd())

	nlog.SetTitle("telepipe")
	return root.Execute()
}
