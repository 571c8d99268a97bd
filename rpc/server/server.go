package server

import (
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ferrokv/ferrokv/lib/ferrostore"
	"github.com/ferrokv/ferrokv/lib/ferrostore/engines/nvm"
	"github.com/ferrokv/ferrokv/lib/port"
	"github.com/ferrokv/ferrokv/lib/schema"
	"github.com/ferrokv/ferrokv/rpc/common"
	"github.com/ferrokv/ferrokv/rpc/serializer"
	"github.com/ferrokv/ferrokv/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = common.Component("rpc")

// deviceShard pairs an opened device with the adapter that dispatches
// requests against it. Every device exposes the same ferrostore.Store
// surface, so there is no store/lock-manager distinction to route on.
type deviceShard struct {
	Store   ferrostore.Store
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server that serves the devices in config.
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(64*1024),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	devices := xsync.NewMapOf[uint64, deviceShard]()

	Logger.Info().Msg("created RPC server")
	Logger.Info().Msg(config.String())

	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		devices:    devices,
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	devices    *xsync.MapOf[uint64, deviceShard]
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(deviceId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		device, ok := s.devices.Load(deviceId)

		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "device not found",
			}
		} else if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to deserialize request: %s", err),
			}
		} else {
			respMsg = *device.Adapter.Handle(&msg, device.Store)
		}

		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			val, _ = s.serializer.Serialize(common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			})
		}
		return val
	})
}

// openDevice opens the NVM port for cfg, loads its schema registry and
// runs the engine through Init, formatting fresh media on first boot.
func openDevice(cfg common.DeviceConfig) (ferrostore.Store, error) {
	p, err := port.NewFilePort(cfg.DevicePath, int(cfg.DeviceSize))
	if err != nil {
		return nil, fmt.Errorf("failed to open device %d at %s: %w", cfg.DeviceID, cfg.DevicePath, err)
	}

	reg, err := schema.LoadYAML(cfg.SchemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema for device %d: %w", cfg.DeviceID, err)
	}

	opts := nvm.DefaultOptions(cfg.DeviceSize)
	opts.MetricsLabel = fmt.Sprintf("%d", cfg.DeviceID)
	engine, err := nvm.NewEngine(opts, p, port.SystemClock{}, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine for device %d: %w", cfg.DeviceID, err)
	}

	state, err := engine.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to init device %d: %w", cfg.DeviceID, err)
	}

	if state == ferrostore.StateFirstBoot {
		if err := engine.Format(0); err != nil {
			return nil, fmt.Errorf("failed to format fresh device %d: %w", cfg.DeviceID, err)
		}
		Logger.Info().Msgf("formatted fresh device %d", cfg.DeviceID)
	} else if state == ferrostore.StateRecovered {
		Logger.Warn().Msgf("device %d recovered from backup on boot", cfg.DeviceID)
	}

	return engine, nil
}

func (s *rpcServer) init() error {
	common.InitLoggers(s.config)

	for _, deviceConfig := range s.config.Devices {
		store, err := openDevice(deviceConfig)
		if err != nil {
			return err
		}

		s.devices.Store(deviceConfig.DeviceID, deviceShard{
			Store:   store,
			Adapter: NewStoreServerAdapter(),
		})
		Logger.Info().Msgf("opened device %d (%s)", deviceConfig.DeviceID, deviceConfig.DevicePath)
	}

	Logger.Info().Msg("ferrokv server setup completed successfully")

	s.registerTransportHandler()

	return nil
}

// serveMetrics starts a background HTTP server exposing every device's
// VictoriaMetrics gauge/counter set (§4.12) at /metrics in Prometheus text
// exposition format. A listen failure is logged, not fatal: metrics are
// observational and never gate the RPC daemon's availability.
func (s *rpcServer) serveMetrics() {
	if s.config.MetricsEndpoint == "" {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.devices.Range(func(_ uint64, shard deviceShard) bool {
			shard.Store.WritePrometheus(w)
			return true
		})
	})

	Logger.Info().Msgf("serving metrics on %s/metrics", s.config.MetricsEndpoint)
	go func() {
		if err := http.ListenAndServe(s.config.MetricsEndpoint, mux); err != nil {
			Logger.Error().Msgf("metrics server stopped: %v", err)
		}
	}()
}

// Serve starts the RPC server. This opens every configured device, wires
// the transport handler, starts the metrics endpoint, then blocks serving
// requests.
func (s *rpcServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}
	s.serveMetrics()
	return s.transport.Listen(s.config)
}
