package config

import (
	"flag"
	"os"
	"time"
)

// ServerConfig holds configuration for the tftpd binary.
type ServerConfig struct {
	Addr     string
	Root     string
	LogLevel string

	Timeout               time.Duration // retransmission timeout
	BlockSizeLimit        int           // max negotiable block size, 0 = no cap
	Retries               int           // max resends of one packet before giving up
	IgnoreClientTimeout   bool          // force server timeout regardless of request
	IgnoreClientBlockSize bool          // force default block size regardless of request
	AllowOverwrite        bool          // let write requests replace existing files
}

// ParseServerConfig parses server configuration from flags and environment
// variables. Flags take precedence over environment variables.
func ParseServerConfig() ServerConfig {
	return parseServerConfigWithFlagSet(flag.CommandLine, os.Args[1:])
}

// parseServerConfigWithFlagSet is an internal helper for testing with isolated flag sets.
func parseServerConfigWithFlagSet(fs *flag.FlagSet, args []string) ServerConfig {
	cfg := ServerConfig{
		Addr:     ":69",
		Root:     ".",
		LogLevel: "info",
		Timeout:  3 * time.Second,
		Retries:  10,
	}

	// Read from environment first
	if addr := os.Getenv("TFTPD_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if root := os.Getenv("TFTPD_ROOT"); root != "" {
		cfg.Root = root
	}
	if logLevel := os.Getenv("TFTPD_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Flags override environment
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "UDP listen address")
	fs.StringVar(&cfg.Root, "root", cfg.Root, "directory served to clients")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "retransmission timeout")
	fs.IntVar(&cfg.BlockSizeLimit, "blksize-limit", cfg.BlockSizeLimit, "max negotiable block size (0 = no cap)")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "max resends of one packet before the transfer fails")
	fs.BoolVar(&cfg.IgnoreClientTimeout, "ignore-client-timeout", false, "ignore the timeout option in requests")
	fs.BoolVar(&cfg.IgnoreClientBlockSize, "ignore-client-blksize", false, "ignore the blksize option in requests")
	fs.BoolVar(&cfg.AllowOverwrite, "allow-overwrite", false, "let write requests replace existing files")
	fs.Parse(args)

	return cfg
}
