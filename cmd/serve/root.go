package serve

import (
	"fmt"
	cmdUtil "github.com/ferrokv/ferrokv/cmd/util"
	"github.com/ferrokv/ferrokv/rpc/common"
	"github.com/ferrokv/ferrokv/rpc/serializer"
	"github.com/ferrokv/ferrokv/rpc/server"
	"github.com/ferrokv/ferrokv/rpc/transport/tcp"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strconv"
	"strings"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the ferrokv RPC daemon",
		Long:    `Start the ferrokv RPC daemon with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is FERROKV_<flag> (e.g. FERROKV_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "devices"
	ServeCmd.PersistentFlags().String(key, "100=/dev/nvm0:1048576:schema.yaml", cmdUtil.WrapString("Comma-separated list of devices to serve. Format: ID=PATH:SIZE:SCHEMA"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The tcp address on which the daemon will listen (e.g. 0.0.0.0:8080)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:9100", cmdUtil.WrapString("The tcp address on which to serve Prometheus metrics at /metrics. Empty disables it"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY"))

	key = "tcp-write-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("Write buffer size in KB"))

	key = "tcp-read-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("Read buffer size in KB"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("TCP keepalive interval in seconds"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("TCP linger time in seconds"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse devices
	devicesConfig := viper.GetString("devices")
	serveCmdConfig.Devices = []common.DeviceConfig{}
	for _, deviceConfig := range strings.Split(devicesConfig, ",") {
		idAndRest := strings.SplitN(deviceConfig, "=", 2)
		if len(idAndRest) != 2 {
			return fmt.Errorf("invalid device format: %s (expected ID=PATH:SIZE:SCHEMA)", deviceConfig)
		}

		deviceID, err := strconv.ParseUint(strings.TrimSpace(idAndRest[0]), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid device ID %s: %v", idAndRest[0], err)
		}

		parts := strings.Split(idAndRest[1], ":")
		if len(parts) != 3 {
			return fmt.Errorf("invalid device spec %s (expected PATH:SIZE:SCHEMA)", idAndRest[1])
		}

		size, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid device size %s: %v", parts[1], err)
		}

		serveCmdConfig.Devices = append(serveCmdConfig.Devices, common.DeviceConfig{
			DeviceID:   deviceID,
			DevicePath: strings.TrimSpace(parts[0]),
			DeviceSize: uint32(size),
			SchemaPath: strings.TrimSpace(parts[2]),
		})
	}

	// read the rest of the configuration from the command line flags and environment variables
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.WriteBufferSize = viper.GetInt("tcp-write-buffer") * 1024
	serveCmdConfig.ReadBufferSize = viper.GetInt("tcp-read-buffer") * 1024
	serveCmdConfig.TCPKeepAliveSec = viper.GetInt("tcp-keepalive")
	serveCmdConfig.TCPLingerSec = viper.GetInt("tcp-linger")

	return nil
}

// run starts the ferrokv RPC daemon
func run(_ *cobra.Command, _ []string) error {
	serv := server.NewRPCServer(
		*serveCmdConfig,
		tcp.NewTCPServerTransport(64*1024),
		serializer.NewBinarySerializer(),
	)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("ferrokv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

}
