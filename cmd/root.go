package cmd

import (
	"fmt"
	"os"

	"github.com/christophercampbell/skunkr/cmd/kv"
	"github.com/christophercampbell/skunkr/cmd/serve"
	"github.com/christophercampbell/skunkr/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "skunkr",
		Short: "remote multi-table key-value store",
		Long: fmt.Sprintf(`skunkr (v%s)

A key-value store with named tables, served over tcp, unix sockets or http.
Tables are ordered and can be scanned from any start key, the scan results
are streamed to the client as they are read.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of skunkr",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("skunkr v%s\n", Version)
		},
	}
)

func init() {
	// read .env files and SKUNKR_* variables before any command runs
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
