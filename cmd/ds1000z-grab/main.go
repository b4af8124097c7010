// Copyright (c) 2026 The DS1054Z-screen-capture developers. All rights reserved.
// Project site: https://github.com/Kalofin/DS1054Z-screen-capture
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Command ds1000z-grab captures the screen or the displayed waveforms of a
// Rigol DS1000Z oscilloscope over LAN.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Kalofin/DS1054Z-screen-capture/lib/cmdlog"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/config"
	"github.com/Kalofin/DS1054Z-screen-capture/lib/connutil"
)

var version = "dev"

type options struct {
	configPath  string
	conn        connutil.Conn
	output      config.OutputConfig
	log         config.LogConfig
	metricsFile string
	showVersion bool
}

// newRootCmd builds the command. capture is called with the settings once the
// flags are parsed.
func newRootCmd(stdout io.Writer, capture func(*config.Config) error) *cobra.Command {
	def := config.Default()
	o := options{
		conn:   connutil.FromConfig(def.Scope),
		output: def.Output,
		log:    def.Log,
	}

	cmd := &cobra.Command{
		Use:   "ds1000z-grab",
		Short: "Capture waveform or screen from Rigol DS1000Z series oscilloscope using LXI protocol over LAN",
		Args:  cobra.NoArgs,

		SilenceUsage:  true,
		SilenceErrors: true,

		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.showVersion {
				fmt.Fprintln(stdout, "ds1000z-grab", version)
				return nil
			}
			cfg, err := o.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			return capture(cfg)
		},
	}

	fs := cmd.Flags()
	o.conn.AddFlags(fs)
	fs.StringVarP(&o.output.Format, "format", "f", o.output.Format,
		"file format to save capture: png|image, bmp|bitmap, csv or clip|clipboard-copy. 'clip' just copies the image data to the clipboard")
	fs.StringVarP(&o.output.Path, "path", "p", o.output.Path,
		"path to save captures, only relevant for PNG, BMP or CSV exports")
	fs.StringVar(&o.configPath, "config", "", "YAML settings file; flags given on the command line override it")
	fs.StringVar(&o.log.Level, "log-level", o.log.Level, "level of the diagnostic log (debug, info, warning, error)")
	fs.StringVar(&o.log.File, "log-file", o.log.File, "diagnostic log file, created on first entry; empty logs to stderr")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "write transfer metrics in Prometheus text format to this file at exit")
	fs.BoolVar(&o.showVersion, "version", false, "show version information")
	return cmd
}

// resolve loads the settings file, if any, and lays the flags that were set
// on top of it.
func (o *options) resolve(fs *pflag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}

	o.conn.Apply(fs, &cfg.Scope)
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "format":
			cfg.Output.Format = o.output.Format
		case "path":
			cfg.Output.Path = o.output.Path
		case "log-level":
			cfg.Log.Level = o.log.Level
		case "log-file":
			cfg.Log.File = o.log.File
		case "metrics-file":
			cfg.Metrics.Textfile = o.metricsFile
		}
	})
	return cfg, nil
}

func main() {
	capture := func(cfg *config.Config) error {
		return run(cfg, cmdlog.NewConsole(os.Stdout))
	}
	if err := newRootCmd(os.Stdout, capture).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}
