package common

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds the socket settings shared by the tcp and unix transports
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds the settings only used by the tcp transport
type TCPConf struct {
	TCPNoDelay        bool
	TCPKeepAliveSec   int
	TCPLingerSec      int
	MaxMessageSizeMiB int
}

// ServerTransportConfig holds the settings of a server transport
type ServerTransportConfig struct {
	Endpoint       string
	WorkersPerConn int
	SocketConf
	TCPConf
}

// ClientTransportConfig holds the settings of a client transport
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

// MaxMessageSize returns the maximum frame payload size in bytes
func (c TCPConf) MaxMessageSize() int {
	if c.MaxMessageSizeMiB <= 0 {
		return 0
	}
	return c.MaxMessageSizeMiB * 1024 * 1024
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of a skunkr server.
type ServerConfig struct {
	// Storage
	Engine    string
	DataDir   string
	MaxTables int
	NoSync    bool

	// Scan pipeline
	ScanBufferSize int
	ScanTimeout    time.Duration

	// remote store parameters
	TimeoutSecond int64

	// RPC api settings
	Transport       ServerTransportConfig
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
	LogColor bool
}

// DataPath returns the directory the engine environment lives in: <data-dir>/<engine>
func (c *ServerConfig) DataPath() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, c.Engine)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Workers Per Conn", strconv.Itoa(c.Transport.WorkersPerConn))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	// Storage
	addSection("Storage")
	addField("Engine", c.Engine)
	if path := c.DataPath(); path != "" {
		addField("Data Path", path)
	} else {
		addField("Data Path", "none (in-memory)")
	}
	addField("Max Tables", strconv.Itoa(c.MaxTables))
	addField("No Sync", strconv.FormatBool(c.NoSync))

	// Scan pipeline
	addSection("Scan")
	addField("Buffer Size", strconv.Itoa(c.ScanBufferSize))
	addField("Send Timeout", c.ScanTimeout.String())

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Log Color", strconv.FormatBool(c.LogColor))

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
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
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Conns Per Endpoint", strconv.Itoa(max(1, c.Transport.ConnectionsPerEndpoint)))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
