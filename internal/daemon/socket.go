package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

type SocketListener struct {
	path     string
	listener net.Listener
}

func NewSocketListener(socketPath string) *SocketListener {
	return &SocketListener{
		path: socketPath,
	}
}

// Start removes a stale socket file before listening. The socket is owner-only.
func (sl *SocketListener) Start() error {
	dir := filepath.Dir(sl.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	if err := os.Remove(sl.path); err != nil && !os.IsNotExist(err) {
		return err
	}

	listener, err := net.Listen("unix", sl.path)
	if err != nil {
		return err
	}

	sl.listener = listener
	return os.Chmod(sl.path, 0700)
}

func (sl *SocketListener) Accept() (net.Conn, error) {
	if sl.listener == nil {
		return nil, fmt.Errorf("listener not started")
	}
	return sl.listener.Accept()
}

func (sl *SocketListener) Close() error {
	if sl.listener == nil {
		return nil
	}
	err := sl.listener.Close()
	os.Remove(sl.path)
	return err
}

type SocketConnector struct {
	path    string
	timeout time.Duration
}

func NewSocketConnector(socketPath string, timeout time.Duration) *SocketConnector {
	return &SocketConnector{
		path:    socketPath,
		timeout: timeout,
	}
}

func (sc *SocketConnector) Connect(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: sc.timeout}
	return dialer.DialContext(ctx, "unix", sc.path)
}

// Responsive reports whether something accepts connections on the socket.
func (sc *SocketConnector) Responsive(ctx context.Context) bool {
	conn, err := sc.Connect(ctx)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
