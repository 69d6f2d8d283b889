// Command server runs a standalone ember TCP server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iamNilotpal/ember/internal/server"
	"github.com/iamNilotpal/ember/pkg/ember"
	"github.com/iamNilotpal/ember/pkg/logger"
	"github.com/iamNilotpal/ember/pkg/options"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string
	var dataDir string
	var compactInterval string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run a standalone ember key-value server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, dataDir, compactInterval)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7777", "address to listen on")
	cmd.Flags().StringVar(&dataDir, "data-dir", options.DefaultDataDir, "directory for segment files and the write-ahead log")
	cmd.Flags().StringVar(&compactInterval, "compact-interval", "0s", "background compaction cadence (0 disables the scheduler)")

	return cmd
}

func run(addr, dataDir, compactInterval string) error {
	log := logger.New("server")

	interval, err := time.ParseDuration(compactInterval)
	if err != nil {
		return fmt.Errorf("invalid --compact-interval: %w", err)
	}

	db, err := ember.Open(dataDir, options.WithCompactInterval(interval))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	srv, err := server.New(addr, db, log)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infow("shutting down")
		srv.Close()
	}()

	log.Infow("listening", "addr", srv.Addr(), "dataDir", dataDir)
	return srv.Run()
}
