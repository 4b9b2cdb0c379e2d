/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/signalpath/telepipe/config"
)

// configShowCmd returns the "config" parent command with its "show" child,
// so the full invocation is "telepipe config show".
func configShowCmd() *cobra.Command {
	parent := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	parent.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	})
	return parent
}
