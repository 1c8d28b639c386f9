/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"imagefusion/internal/config"
	"imagefusion/internal/ui"
	"imagefusion/internal/version"
)

func newUICmd(a *app) *cobra.Command {
	var img1, img2 string
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Launch the desktop editor (build with -tags fyne)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run(ui.Options{Config: a.cfg, Images: [2]string{img1, img2}})
		},
	}
	cmd.Flags().StringVar(&img1, "img1", "", "image for the first slot")
	cmd.Flags().StringVar(&img2, "img2", "", "image for the second slot")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or initialize the user configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if _, err := w.Write(out); err != nil {
				return err
			}
			for _, key := range config.EnvKeys() {
				if env, ok := config.EnvOverrideFor(key); ok {
					_, _ = fmt.Fprintf(w, "# %s overridden by %s\n", key, env)
				}
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.ConfigPath()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the current effective configuration to the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(a.cfg); err != nil {
				return err
			}
			p, _ := config.ConfigPath()
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Wrote", p)
			return err
		},
	})
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "imagefusion", version.String())
		},
	}
}
