package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// DeviceConfig describes one NVM device a ferrokv daemon instance serves;
// a daemon may serve several. Unlike a sharded RAFT cluster, ferrokv has
// no replication or multi-shard routing layer, so "deviceId" only
// distinguishes which local device a request targets, never a cluster
// member.
type DeviceConfig struct {
	DeviceID   uint64
	DevicePath string
	DeviceSize uint32
	SchemaPath string
}

// ServerConfig holds all configuration parameters for the ferrokv RPC
// daemon: which devices it serves, how it listens, and how it logs.
type ServerConfig struct {
	Devices []DeviceConfig

	// Transport settings
	Endpoint      string
	TimeoutSecond int64

	// MetricsEndpoint, if non-empty, serves the VictoriaMetrics gauge/
	// counter set of §4.12 in Prometheus text exposition format at
	// /metrics on this address. Empty disables the endpoint.
	MetricsEndpoint string

	// TCP socket tuning
	TCPNoDelay      bool
	WriteBufferSize int
	ReadBufferSize  int
	TCPKeepAliveSec int
	TCPLingerSec    int

	// Logging configuration
	LogLevel string
}

// DeviceByID looks up a configured device by its DeviceID.
func (c *ServerConfig) DeviceByID(id uint64) (DeviceConfig, bool) {
	for _, d := range c.Devices {
		if d.DeviceID == id {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

// String returns a formatted string representation of the configuration.
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	addSection("Devices")
	for _, d := range c.Devices {
		addField(strconv.FormatUint(d.DeviceID, 10), fmt.Sprintf("%s (%d bytes, schema=%s)", d.DevicePath, d.DeviceSize, d.SchemaPath))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints              []string
	TimeoutSecond          int
	RetryCount             int
	ConnectionsPerEndpoint int
}

// String returns a formatted string representation of the client configuration.
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	connPerEndpoint := c.ConnectionsPerEndpoint
	if connPerEndpoint < 1 {
		connPerEndpoint = 1
	}
	addField("Connections Per Endpoint", strconv.Itoa(connPerEndpoint))

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
