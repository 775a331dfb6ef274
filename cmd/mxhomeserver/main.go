// mxhomeserver runs the in-memory development homeserver. State lives only
// as long as the process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/adamwoolhether/mxclient/homeserver"
	"github.com/adamwoolhether/mxclient/homeserver/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		addr           string
		serverName     string
		maxSyncTimeout time.Duration
		tlsCert        string
		tlsKey         string
		logLevel       string
		corsOrigins    []string
	)

	flagSet := pflag.NewFlagSet("mxhomeserver", pflag.ContinueOnError)
	flagSet.StringVarP(&addr, "addr", "a", ":8008", "address to listen on")
	flagSet.StringVar(&serverName, "server-name", "localhost", "domain part of issued user IDs, room IDs and aliases")
	flagSet.DurationVar(&maxSyncTimeout, "max-sync-timeout", 30*time.Second, "upper bound on a sync long-poll")
	flagSet.StringVar(&tlsCert, "tls-cert", "", "TLS certificate file")
	flagSet.StringVar(&tlsKey, "tls-key", "", "TLS key file")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.StringSliceVar(&corsOrigins, "cors-origin", []string{"*"}, "allowed CORS origins")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if (tlsCert == "") != (tlsKey == "") {
		return errors.New("--tls-cert and --tls-key must be set together")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	hs := homeserver.New(serverName,
		homeserver.WithLogger(logger),
		homeserver.WithMaxSyncTimeout(maxSyncTimeout),
		homeserver.WithCORSOrigins(corsOrigins...),
	)

	opts := []server.Option{
		server.WithHost(addr),
		server.WithLogger(logger),
		server.WithWriteTimeout(maxSyncTimeout + 30*time.Second),
		server.WithShutdownFunc(hs.Shutdown),
	}
	if tlsCert != "" {
		opts = append(opts, server.WithTLS(tlsCert, tlsKey))
	}

	logger.Info("starting homeserver", "server_name", hs.ServerName(), "addr", addr)

	return server.New(hs, opts...).Run(context.Background())
}
