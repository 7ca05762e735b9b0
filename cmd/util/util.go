package util

import (
	"fmt"
	"github.com/ValentinKolb/dDoc/lib/cache"
	"github.com/ValentinKolb/dDoc/lib/cache/mcache"
	"github.com/ValentinKolb/dDoc/lib/cache/scache"
	"github.com/ValentinKolb/dDoc/rpc/common"
	"github.com/ValentinKolb/dDoc/rpc/serializer"
	"github.com/ValentinKolb/dDoc/rpc/transport"
	"github.com/ValentinKolb/dDoc/rpc/transport/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the connection, cache and logging flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultClientConfig()

	key := "timeout"
	cmd.PersistentFlags().Int(key, defaults.TimeoutSecond, WrapString("The timeout in seconds of the client"))

	key = "endpoints"
	cmd.PersistentFlags().String(key, strings.Join(defaults.Endpoints, ","), WrapString("The url of the document database. Multiple endpoints can be specified as a comma-separated list, requests are distributed round robin"))

	key = "database"
	cmd.PersistentFlags().String(key, defaults.Database, WrapString("The name of the database"))

	key = "retries"
	cmd.PersistentFlags().Int(key, defaults.RetryCount, WrapString("How many times to try an outer request"))

	key = "lazy-retries"
	cmd.PersistentFlags().Int(key, defaults.MaxLazyRetries, WrapString("How many retry passes a lazy flush may do before it fails"))

	key = "entity-case"
	cmd.PersistentFlags().String(key, defaults.EntityFieldCase, WrapString("Case convention of document fields (verbatim, camel, pascal)"))

	key = "cache"
	cmd.PersistentFlags().String(key, string(defaults.Cache.Backend), WrapString("The response cache to use (memory, sqlite, none)"))

	key = "cache-path"
	cmd.PersistentFlags().String(key, "ddoc-cache.db", WrapString("Path of the sqlite cache (only for --cache=sqlite)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("The level at which logs will be output (debug, info, warn, error), optionally followed by per logger overrides like lazy=debug,batch=info"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("ddoc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	endpoints := make([]string, 0)
	for _, endpoint := range strings.Split(viper.GetString("endpoints"), ",") {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			endpoints = append(endpoints, endpoint)
		}
	}

	return &common.ClientConfig{
		Endpoints:       endpoints,
		Database:        viper.GetString("database"),
		TimeoutSecond:   viper.GetInt("timeout"),
		RetryCount:      viper.GetInt("retries"),
		MaxLazyRetries:  viper.GetInt("lazy-retries"),
		EntityFieldCase: viper.GetString("entity-case"),
		Cache: common.CacheConfig{
			Backend: common.CacheBackend(strings.ToLower(viper.GetString("cache"))),
			Path:    viper.GetString("cache-path"),
		},
		LogLevel: viper.GetString("log-level"),
	}
}

// GetSerializer creates the serializer of the outer requests
func GetSerializer() serializer.IRPCSerializer {
	return serializer.NewJSONSerializer()
}

// GetTransport creates the transport
func GetTransport() transport.IRPCClientTransport {
	return http.NewHttpClientTransport()
}

// GetCache creates the response cache based on configuration, nil for the none backend
func GetCache(config *common.ClientConfig) (cache.ICache, error) {
	switch config.Cache.Backend {
	case common.CacheBackendMemory, "":
		return mcache.NewMemoryCache(), nil
	case common.CacheBackendSQLite:
		return scache.NewSQLiteCache(config.Cache.Path)
	case common.CacheBackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid cache backend %s", config.Cache.Backend)
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
