// Command dm is a terminal client for the direct-messaging service.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/rpc"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

type options struct {
	addr     string
	token    string
	insecure bool
	log      *slog.Logger
}

func main() {
	opts := &options{
		log: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}

	root := &cobra.Command{
		Use:           "dm",
		Short:         "Direct messages between two users",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.addr, "addr", "localhost:50051", "server address")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("DM_TOKEN"), "bearer token (default $DM_TOKEN)")
	root.PersistentFlags().BoolVar(&opts.insecure, "insecure", true, "connect without TLS")

	root.AddCommand(registerCmd(opts))
	root.AddCommand(loginCmd(opts))
	root.AddCommand(usersCmd(opts))
	root.AddCommand(chatCmd(opts))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

// dial connects to the server; the caller closes the connection.
func (o *options) dial() (*grpc.ClientConn, *rpc.Client, error) {
	creds := insecure.NewCredentials()
	if !o.insecure {
		creds = credentials.NewClientTLSFromCert(nil, "")
	}
	conn, err := grpc.NewClient(o.addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", o.addr, err)
	}
	return conn, rpc.NewClient(conn, o.token), nil
}
