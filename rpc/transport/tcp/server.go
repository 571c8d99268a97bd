package tcp

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ferrokv/ferrokv/rpc/common"
	"github.com/ferrokv/ferrokv/rpc/transport"
)

const defaultMaxWorkersPerConn = 1

// serverTransport accepts TCP connections, reads length-prefixed frames off
// each, and dispatches them to the handler registered by rpc/server on a
// per-connection worker pool. maxWorkersPerConn bounds how many requests of
// one connection are handled at once; it is set to defaultMaxWorkersPerConn
// (1), so each connection handles one request at a time and requests only
// overlap across connections. Two calls against the same device never
// race, since the server adapter serializes those under its own mutex.
type serverTransport struct {
	handler           transport.ServerHandleFunc
	config            common.ServerConfig
	listener          net.Listener
	bufferPool        *sync.Pool
	maxWorkersPerConn int
}

// NewTCPServerTransport creates a TCP server transport whose per-connection
// read buffers start at bufferSize bytes, growing per-frame if a payload
// exceeds it.
func NewTCPServerTransport(bufferSize int) transport.IRPCServerTransport {
	return &serverTransport{
		maxWorkersPerConn: defaultMaxWorkersPerConn,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, bufferSize)
			},
		},
	}
}

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	t.config = config

	listener, err := net.Listen("tcp", config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to create tcp socket: %v", err)
	}
	t.listener = listener

	Logger.Info().Msgf("starting tcp server on %s with %d workers per connection",
		config.Endpoint, t.maxWorkersPerConn)

	for {
		conn, err := listener.Accept()
		if err != nil {
			Logger.Error().Msgf("accept error: %v", err)
			continue
		}

		if err := upgradeServerConnection(conn, config); err != nil {
			Logger.Error().Msgf("failed to upgrade connection: %v", err)
			conn.Close()
			continue
		}

		go t.handleConnection(conn)
	}
}

// upgradeServerConnection applies the socket tuning knobs from ServerConfig
// to an accepted connection.
func upgradeServerConnection(conn net.Conn, config common.ServerConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetNoDelay(config.TCPNoDelay); err != nil {
		return err
	}
	if config.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(config.WriteBufferSize); err != nil {
			return err
		}
	}
	if config.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(config.ReadBufferSize); err != nil {
			return err
		}
	}
	if config.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(config.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}
	if config.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(config.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}

func (t *serverTransport) handleConnection(conn net.Conn) {
	defer conn.Close()

	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	workerSemaphore := make(chan struct{}, t.maxWorkersPerConn)
	var wg sync.WaitGroup
	var connMutex sync.Mutex

	handleResponse := func(deviceID, requestID uint64, data []byte) {
		defer func() {
			<-workerSemaphore
			wg.Done()
		}()

		start := time.Now()
		resp := t.handler(deviceID, data)
		Logger.Debug().Msgf("processed request for device %d with requestID %d took %s", deviceID, requestID, time.Since(start))

		connMutex.Lock()
		defer connMutex.Unlock()

		if timeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Error().Msgf("failed to set write deadline: %v", err)
				return
			}
		}

		if err := writeFrame(conn, deviceID, requestID, resp); err != nil {
			Logger.Error().Msgf("failed to write response: %v", err)
		}
	}

	handleRequest := func() error {
		if timeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				return fmt.Errorf("failed to set read deadline: %v", err)
			}
		}

		buf := t.bufferPool.Get().([]byte)

		deviceID, requestID, data, err := readFrame(conn, buf)
		if err != nil {
			t.bufferPool.Put(buf)
			return err
		}

		workerSemaphore <- struct{}{}
		wg.Add(1)

		go func() {
			defer t.bufferPool.Put(buf)
			handleResponse(deviceID, requestID, data)
		}()

		return nil
	}

	for {
		err := handleRequest()

		if err == io.EOF {
			Logger.Info().Msg("connection closed by client")
			break
		}

		if err != nil {
			Logger.Error().Msgf("error handling request: %v", err)
			break
		}
	}

	wg.Wait()
}
