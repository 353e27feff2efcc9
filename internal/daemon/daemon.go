// Package daemon serves the GhostNote tools over a unix socket.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/ghostnote/internal/config"
	"github.com/alucardeht/ghostnote/internal/entitlement"
	"github.com/alucardeht/ghostnote/internal/logger"
	"github.com/alucardeht/ghostnote/internal/mcp"
	"github.com/alucardeht/ghostnote/internal/store"
	"github.com/alucardeht/ghostnote/internal/tools"
	"github.com/alucardeht/ghostnote/internal/usage"
)

var log = logger.ForComponent("daemon")

type Daemon struct {
	cfg      *config.Config
	store    *store.Store
	gate     *usage.Gate
	registry *tools.Registry
	handler  *mcp.Handler
	server   *mcp.Server
	watcher  *entitlement.Watcher
	listener *SocketListener

	unsubscribe func()

	conns  map[*jsonrpc2.Conn]struct{}
	connMu sync.Mutex
	wg     sync.WaitGroup

	ctx          context.Context
	cancel       context.CancelFunc
	shutdown     chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error
	startTime    time.Time
}

// New opens the store and builds the tool registry. Nothing listens until Start.
func New(cfg *config.Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	d := &Daemon{
		cfg:       cfg,
		store:     st,
		gate:      usage.NewGate(st),
		conns:     make(map[*jsonrpc2.Conn]struct{}),
		shutdown:  make(chan struct{}),
		startTime: time.Now(),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())

	d.registry, err = NewRegistry(st, d.gate)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	d.handler = mcp.NewHandler(d.registry, cfg.Daemon.CallTimeout)
	d.server = mcp.NewServer(d.registry, d.handler)

	d.unsubscribe = d.gate.Subscribe(func(change usage.ProChange) {
		log.Info("pro status changed", "is_pro", change.IsPro)
	})

	if cfg.Entitlement.Enabled {
		w, err := entitlement.New(cfg.Entitlement, d.gate)
		if err != nil {
			d.unsubscribe()
			st.Close()
			return nil, fmt.Errorf("failed to create entitlement watcher: %w", err)
		}
		d.watcher = w
	}

	return d, nil
}

// Start listens on the configured socket and begins accepting connections.
func (d *Daemon) Start() error {
	if d.watcher != nil {
		if err := d.watcher.Start(d.ctx); err != nil {
			return err
		}
	}

	d.listener = NewSocketListener(d.cfg.Daemon.SocketPath)
	if err := d.listener.Start(); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	log.Info("daemon listening", "socket", d.cfg.Daemon.SocketPath, "tools", len(d.registry.Names()))

	d.wg.Add(1)
	go d.acceptConnections()

	return nil
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		d.Shutdown()
		return err
	}

	select {
	case <-ctx.Done():
	case <-d.shutdown:
	}

	return d.Shutdown()
}

// ServeStdio answers newline-delimited requests on r/w instead of a socket.
func (d *Daemon) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			return err
		}
	}
	return d.server.ProcessStream(ctx, r, w)
}

func (d *Daemon) acceptConnections() {
	defer d.wg.Done()

	for {
		netConn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.shutdown:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("accept failed", "error", err)
			continue
		}

		d.serve(netConn)
	}
}

func (d *Daemon) serve(netConn net.Conn) {
	stream := jsonrpc2.NewBufferedStream(netConn, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(d.ctx, stream, jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(d.handle)))

	d.connMu.Lock()
	d.conns[conn] = struct{}{}
	d.connMu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		<-conn.DisconnectNotify()

		d.connMu.Lock()
		delete(d.conns, conn)
		d.connMu.Unlock()
	}()
}

func (d *Daemon) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	mreq := &mcp.Request{
		JSONRPC: "2.0",
		Method:  req.Method,
	}
	if !req.Notif {
		mreq.ID = requestID(req.ID)
	}

	if req.Params != nil {
		if err := json.Unmarshal(*req.Params, &mreq.Params); err != nil {
			return nil, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeInvalidParams,
				Message: fmt.Sprintf("params must be an object: %v", err),
			}
		}
	}

	resp := d.handler.Handle(ctx, mreq)
	if resp.Error != nil {
		return nil, &jsonrpc2.Error{
			Code:    int64(resp.Error.Code),
			Message: resp.Error.Message,
		}
	}
	return resp.Result, nil
}

func requestID(id jsonrpc2.ID) interface{} {
	if id.IsString {
		return id.Str
	}
	return id.Num
}

// Shutdown stops the watcher, closes every connection and the store. Safe to call
// more than once.
func (d *Daemon) Shutdown() error {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)
		d.cancel()

		var errs []error

		if d.listener != nil {
			if err := d.listener.Close(); err != nil {
				errs = append(errs, err)
			}
		}

		d.connMu.Lock()
		for conn := range d.conns {
			conn.Close()
		}
		d.connMu.Unlock()

		d.wg.Wait()

		if d.watcher != nil {
			if err := d.watcher.Stop(); err != nil {
				errs = append(errs, err)
			}
		}

		d.unsubscribe()

		if err := d.store.Close(); err != nil {
			errs = append(errs, err)
		}

		d.shutdownErr = errors.Join(errs...)
		log.Info("daemon stopped", "uptime", d.Uptime())
	})

	return d.shutdownErr
}

func (d *Daemon) Gate() *usage.Gate {
	return d.gate
}

func (d *Daemon) Registry() *tools.Registry {
	return d.registry
}

func (d *Daemon) SocketPath() string {
	return d.cfg.Daemon.SocketPath
}

func (d *Daemon) Uptime() time.Duration {
	return time.Since(d.startTime)
}

func (d *Daemon) ToolCount() int {
	return len(d.registry.Names())
}
