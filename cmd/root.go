package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dDoc/cmd/docs"
	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "ddoc",
		Short: "batched, cached and streamed reads for a document database",
		Long: fmt.Sprintf(`dDoc (v%s)

A client for document databases written in Go. Reads are deferred and
sent in one multi get request, answers are validated against a local
response cache and decoded while they are streamed.`, Version),
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if printMetrics, _ := cmd.Flags().GetBool("metrics"); printMetrics {
				fmt.Fprintln(os.Stderr)
				metrics.WritePrometheus(os.Stderr, false)
			}
		},
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dDoc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dDoc v%s\n", Version)
		},
	}
)

func init() {
	// run the post run hook of the root command after the ones of the subcommands
	cobra.EnableTraverseRunHooks = true

	// Add Commands
	RootCmd.AddCommand(docs.DocumentCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "metrics"
	RootCmd.PersistentFlags().Bool(key, false, util.WrapString("print the process metrics (prometheus format) to stderr when the command finished"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
