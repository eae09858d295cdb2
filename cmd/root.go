package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/kvorm/cmd/demo"
	"github.com/ValentinKolb/kvorm/cmd/kv"
	"github.com/ValentinKolb/kvorm/cmd/lock"
	"github.com/ValentinKolb/kvorm/cmd/serve"
	"github.com/ValentinKolb/kvorm/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kvorm",
		Short: "object mapper and server for a key-value store",
		Long: fmt.Sprintf(`kvorm (v%s)

Stores Go structs as records in a key-value store. The serve command runs the
store as an rpc server, the kv and lock commands talk to it directly and demo
runs a small library catalog against it.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvorm",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kvorm v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(demo.DemoCmd)
	RootCmd.AddCommand(versionCmd)

	key := "serializer"
	RootCmd.PersistentFlags().String(key, "cbor", util.WrapString("serializer to use (cbor, json, gob)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http)"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("level at which logs will be output (debug, info, warn, error)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
