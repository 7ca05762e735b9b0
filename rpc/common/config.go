package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

type CacheBackend string

const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendSQLite CacheBackend = "sqlite"
	CacheBackendNone   CacheBackend = "none"
)

type CacheConfig struct {
	// Backend selects the cache implementation
	Backend CacheBackend
	// Path of the sqlite database (only for the sqlite backend)
	Path string
}

// ClientConfig holds all configuration parameters of a client
type ClientConfig struct {
	// Server nodes, requests are distributed round robin
	Endpoints []string
	Database  string

	// transport parameters
	TimeoutSecond int
	RetryCount    int

	// MaxLazyRetries bounds the retry passes of a lazy flush
	MaxLazyRetries int

	// EntityFieldCase is the case convention of document fields (verbatim, camel, pascal)
	EntityFieldCase string

	Cache CacheConfig

	// Logging configuration
	LogLevel string
}

// DefaultClientConfig returns the configuration used when nothing is set
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoints:       []string{"http://localhost:8080"},
		Database:        "db",
		TimeoutSecond:   10,
		RetryCount:      3,
		MaxLazyRetries:  8,
		EntityFieldCase: "verbatim",
		Cache:           CacheConfig{Backend: CacheBackendMemory},
		LogLevel:        "info",
	}
}

// Nodes returns a ServerNode for every endpoint
func (c *ClientConfig) Nodes() []ServerNode {
	nodes := make([]ServerNode, len(c.Endpoints))
	for i, endpoint := range c.Endpoints {
		nodes[i] = ServerNode{URL: strings.TrimSpace(endpoint), Database: c.Database}
	}
	return nodes
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Database", c.Database)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Max Lazy Retries", strconv.Itoa(c.MaxLazyRetries))
	addField("Entity Field Case", c.EntityFieldCase)

	// Cache
	addSection("Cache")
	addField("Backend", string(c.Cache.Backend))
	if c.Cache.Backend == CacheBackendSQLite {
		addField("Path", c.Cache.Path)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
