// Package server contains the TFTP request dispatcher: it owns the one
// listening socket, demultiplexes incoming requests into independent
// per-peer transfer goroutines, and suppresses duplicate requests while a
// transfer is in flight.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/quietwire/tftpd/internal/bufpool"
	"github.com/quietwire/tftpd/internal/transfer"
	"github.com/quietwire/tftpd/internal/transport"
	"github.com/quietwire/tftpd/pkg/wire"
)

// Server dispatches TFTP requests to per-transfer goroutines.
type Server struct {
	cfg     transfer.Config
	handler Handler
	log     *slog.Logger

	conn     *net.UDPConn
	localIP  net.IP
	inflight *registry

	handlerMu sync.Mutex // guards Open calls into the handler
}

// New binds the listening socket and prepares the dispatcher. The config is
// validated here, before anything touches the network.
func New(addr string, cfg transfer.Config, h Handler, log *slog.Logger) (*Server, error) {
	if cfg.Timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}
	if cfg.Retries < 1 {
		return nil, errors.New("retries must be at least 1")
	}
	if cfg.BlockSizeLimit != 0 &&
		(cfg.BlockSizeLimit < transfer.MinBlockSize || cfg.BlockSizeLimit > transfer.MaxBlockSize) {
		return nil, fmt.Errorf("block size limit must be 0 or within %d..%d",
			transfer.MinBlockSize, transfer.MaxBlockSize)
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", addr, err)
	}

	if tune := transport.TuneUDPBuffers(conn, 4<<20, 4<<20); tune.Status != transport.StatusOK {
		log.Debug("udp buffer tuning not applied", "status", tune.Status, "error", tune.Err)
	}

	return &Server{
		cfg:      cfg,
		handler:  h,
		log:      log,
		conn:     conn,
		localIP:  conn.LocalAddr().(*net.UDPAddr).IP,
		inflight: newRegistry(),
	}, nil
}

// LocalAddr returns the bound listening address.
func (s *Server) LocalAddr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Close stops the dispatcher by closing the listening socket. Transfers
// already in flight run on their own sockets and are not interrupted.
func (s *Server) Close() error {
	return s.conn.Close()
}

// Serve reads requests off the listening socket until the socket fails,
// which is the one fatal error class. Datagrams that are not well-formed
// requests are dropped without a reply.
func (s *Server) Serve() error {
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	for {
		n, peer, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return fmt.Errorf("listen socket: %w", err)
		}
		pkt, err := wire.Decode(buf[:n])
		if err != nil {
			continue
		}
		req, ok := pkt.(wire.Request)
		if !ok {
			continue
		}
		if !s.inflight.tryAdd(peer.String()) {
			// Most likely a retransmitted initial request from a client
			// still waiting on our first reply.
			continue
		}
		s.log.Debug("request accepted",
			"peer", peer, "write", req.Write, "filename", req.Filename, "mode", req.Mode)
		go s.serveRequest(peer, req)
	}
}

func (s *Server) serveRequest(peer *net.UDPAddr, req wire.Request) {
	defer s.inflight.remove(peer.String())

	var err error
	if req.Write {
		err = s.runWrite(peer, req)
	} else {
		err = s.runRead(peer, req)
	}
	if err == nil {
		s.log.Info("transfer complete", "peer", peer, "write", req.Write, "filename", req.Filename)
		return
	}

	s.log.Warn("transfer failed",
		"peer", peer, "write", req.Write, "filename", req.Filename, "error", err)
	if errors.Is(err, transfer.ErrPeerAborted) {
		return
	}
	s.sendError(peer, classify(err))
}

func (s *Server) runRead(peer *net.UDPAddr, req wire.Request) error {
	s.handlerMu.Lock()
	src, size, err := s.handler.OpenRead(peer, req.Filename)
	s.handlerMu.Unlock()
	if err != nil {
		return fmt.Errorf("open %q for read: %w", req.Filename, err)
	}
	defer src.Close()

	params, err := transfer.Negotiate(req.Opts, s.cfg, size)
	if err != nil {
		return err
	}
	conn, err := transfer.Dial(s.localIP, peer, params.Timeout, s.cfg.Retries, s.log)
	if err != nil {
		return err
	}
	defer conn.Close()

	return transfer.Read(conn, params, src)
}

func (s *Server) runWrite(peer *net.UDPAddr, req wire.Request) error {
	declared := int64(-1)
	if req.Opts.TransferSize != nil {
		declared = int64(*req.Opts.TransferSize)
	}

	s.handlerMu.Lock()
	sink, err := s.handler.OpenWrite(peer, req.Filename, declared)
	s.handlerMu.Unlock()
	if err != nil {
		return fmt.Errorf("open %q for write: %w", req.Filename, err)
	}

	params, err := transfer.Negotiate(req.Opts, s.cfg, declared)
	if err != nil {
		sink.Close()
		return err
	}
	conn, err := transfer.Dial(s.localIP, peer, params.Timeout, s.cfg.Retries, s.log)
	if err != nil {
		sink.Close()
		return err
	}
	defer conn.Close()

	err = transfer.Write(conn, params, sink)
	if cerr := sink.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close sink: %w", cerr)
	}
	return err
}

// sendError is the best-effort failure notification of a finished transfer.
// It uses a fresh ephemeral socket: an open or negotiation failure dies
// before the transfer socket exists. Send failures are logged, never
// escalated.
func (s *Server) sendError(peer *net.UDPAddr, werr wire.Error) {
	sock, err := net.DialUDP("udp", &net.UDPAddr{IP: s.localIP}, peer)
	if err != nil {
		s.log.Warn("failed to bind error socket", "peer", peer, "error", err)
		return
	}
	defer sock.Close()
	if _, err := sock.Write(werr.Encode()); err != nil {
		s.log.Warn("failed to send error packet", "peer", peer, "error", err)
	}
}
