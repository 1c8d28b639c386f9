/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"imagefusion/internal/config"
	applog "imagefusion/internal/log"
)

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	cfg config.AppConfig
}

func NewRootCmd() *cobra.Command {
	a := &app{cfg: config.Defaults()}
	cmd := &cobra.Command{
		Use:   "imagefusion",
		Short: "Compose two images onto one printable page",
		Long: `imagefusion places two images side by side or stacked on a single page
(A4, Letter or a custom size), lets you rotate, scale, offset and crop each one,
and exports the page as JPEG, PNG or a single-page PDF at the chosen DPI.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			applog.Init(applog.Options{
				Level:     cfg.Logging.Level,
				Format:    cfg.Logging.Format,
				AddSource: cfg.Logging.Source,
				File:      cfg.Logging.File,
				Writer:    cmd.ErrOrStderr(),
			})
			applog.WithComponent("cli").Debug("start", slog.String("cmd", cmd.Name()))
			return nil
		},
	}

	cmd.AddCommand(newRenderCmd(a))
	cmd.AddCommand(newUICmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
