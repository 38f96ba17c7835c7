package main

import (
	"fmt"
	"os"

	"github.com/quietwire/tftpd/internal/config"
	"github.com/quietwire/tftpd/internal/fsstore"
	"github.com/quietwire/tftpd/internal/logging"
	"github.com/quietwire/tftpd/internal/server"
	"github.com/quietwire/tftpd/internal/transfer"
)

const serverVersion = "v0.1.0"

func main() {
	if hasHelpFlag(os.Args[1:]) {
		printUsage()
		return
	}
	if hasVersionFlag(os.Args[1:]) {
		fmt.Println(serverVersion)
		return
	}

	cfg := config.ParseServerConfig()
	logger := logging.New("tftpd", cfg.LogLevel)

	store, err := fsstore.New(cfg.Root, fsstore.Options{AllowOverwrite: cfg.AllowOverwrite})
	if err != nil {
		logger.Error("cannot serve root directory", "root", cfg.Root, "error", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg.Addr, transfer.Config{
		Timeout:               cfg.Timeout,
		BlockSizeLimit:        cfg.BlockSizeLimit,
		Retries:               cfg.Retries,
		IgnoreClientTimeout:   cfg.IgnoreClientTimeout,
		IgnoreClientBlockSize: cfg.IgnoreClientBlockSize,
	}, store, logger)
	if err != nil {
		logger.Error("server setup failed", "error", err)
		os.Exit(1)
	}

	logger.Info("listening", "addr", srv.LocalAddr().String(), "root", store.Root())
	if err := srv.Serve(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: tftpd [--addr HOST:PORT] [--root DIR]")
	fmt.Fprintln(os.Stderr, "  --addr HOST:PORT         UDP listen address (default :69)")
	fmt.Fprintln(os.Stderr, "  --root DIR               directory served to clients (default .)")
	fmt.Fprintln(os.Stderr, "  --log-level LEVEL        debug, info, warn or error (default info)")
	fmt.Fprintln(os.Stderr, "  --timeout DURATION       retransmission timeout (default 3s)")
	fmt.Fprintln(os.Stderr, "  --blksize-limit N        max negotiable block size, 0 = no cap (default 0)")
	fmt.Fprintln(os.Stderr, "  --retries N              max resends of one packet (default 10)")
	fmt.Fprintln(os.Stderr, "  --ignore-client-timeout  ignore the timeout option in requests")
	fmt.Fprintln(os.Stderr, "  --ignore-client-blksize  ignore the blksize option in requests")
	fmt.Fprintln(os.Stderr, "  --allow-overwrite        let write requests replace existing files")
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func hasVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}
