package docs

import (
	"github.com/ValentinKolb/dDoc/cmd/util"
	"github.com/ValentinKolb/dDoc/lib/cache"
	"github.com/ValentinKolb/dDoc/rpc/client"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/lazy"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"os"
)

var (
	clientConfig  *common.ClientConfig
	responseCache cache.ICache
	multiGet      *client.MultiGetCommand

	// DocumentCommands represents the document command group
	DocumentCommands = &cobra.Command{
		Use:                "docs",
		Short:              "Read documents from a document database",
		Long:               `Read documents lazily. All reads of one command are sent in a single multi get request. The configuration can be set via command line flags or environment variables. The format of the environment variables is DDOC_<flag> (e.g. DDOC_ENTITY_CASE=camel)`,
		PersistentPreRunE:  setupDocsClient,
		PersistentPostRunE: closeDocsClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags to the docs command
	util.SetupClientFlags(DocumentCommands)

	// Add subcommands
	DocumentCommands.AddCommand(loadCmd)
	DocumentCommands.AddCommand(startsWithCmd)
	DocumentCommands.AddCommand(queryCmd)
	DocumentCommands.AddCommand(lazyCmd)
	DocumentCommands.AddCommand(benchCmd)
}

// setupDocsClient initializes loggers, cache and batch command
func setupDocsClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	clientConfig = util.GetClientConfig()
	if err := common.InitLoggers(*clientConfig); err != nil {
		return err
	}

	var err error
	responseCache, err = util.GetCache(clientConfig)
	if err != nil {
		return err
	}

	// Create the batch command
	multiGet, err = client.NewMultiGetCommand(
		responseCache,
		util.GetTransport(),
		util.GetSerializer(),
		*clientConfig,
	)
	return err
}

func closeDocsClient(_ *cobra.Command, _ []string) error {
	if responseCache != nil {
		return responseCache.Close()
	}
	return nil
}

// newScheduler creates a scheduler for one command run
func newScheduler() *lazy.Scheduler {
	return lazy.NewScheduler(multiGet, lazy.Options{MaxRetries: clientConfig.MaxLazyRetries})
}

// printJSON writes v indented to stdout
func printJSON(v any) error {
	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
