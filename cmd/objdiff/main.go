// Copyright 2021 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command objdiff emits a minimized relocatable object containing only the
// functions (and their transitive closure of references) that changed
// between a base and a patched compilation of the same source file.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-kpatch/objdiff/internal/diag"
	"github.com/go-kpatch/objdiff/internal/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "objdiff original.o patched.o output.o",
	Short: "Diff two relocatable ELF objects down to a minimized patch object",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		debug := viper.GetBool("debug")
		level := diag.Normal
		if debug {
			level = diag.Debug
		}
		log := diag.NewLogger(level)

		opts := pipeline.Options{
			OriginalPath: args[0],
			PatchedPath:  args[1],
			OutputPath:   args[2],
			Inventory:    viper.GetBool("inventory"),
		}
		return pipeline.Run(opts, log)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("inventory", "i", false, "write a <output>.inventory listing")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored diagnostics")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("inventory", rootCmd.PersistentFlags().Lookup("inventory"))
	viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
}

func initConfig() {
	viper.SetEnvPrefix("OBJDIFF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if viper.GetBool("no-color") || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var de *diag.Error
		if errors.As(err, &de) {
			fmt.Fprintln(os.Stderr, de.Error())
			os.Exit(de.Kind.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
