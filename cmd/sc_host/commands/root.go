// Package commands implements the sc_host CLI, the host side of the
// secure channel.
package commands

import (
	"context"
	"os"
	"time"

	"github.com/kwonalbert/secure_channel"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

var (
	addr    string
	caFile  string
	timeout time.Duration
	verbose bool
)

func Execute() error {
	root := &cobra.Command{
		Use:           "sc_host",
		Short:         "Host side client of the enclave secure channel",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&addr, "addr", "localhost:50051", "address of the enclave server")
	root.PersistentFlags().StringVar(&caFile, "ca", "", "PEM certificate to verify the server with (default: plaintext)")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "deadline for the whole command")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(pubkeyCmd(), handshakeCmd(), wrapKeyCmd())
	return root.Execute()
}

// dial connects to the enclave server. The returned cancel func
// releases both the deadline and the connection.
func dial(parent context.Context) (context.Context, secure_channel.SecureChannelClient, func(), error) {
	ctx, cancel := context.WithTimeout(parent, timeout)

	opts := []grpc.DialOption{grpc.WithBlock()}
	if caFile != "" {
		creds, err := credentials.NewClientTLSFromFile(caFile, "")
		if err != nil {
			cancel()
			return nil, nil, nil, err
		}
		opts = append(opts, grpc.WithTransportCredentials(creds))
	} else {
		opts = append(opts, grpc.WithInsecure())
	}

	conn, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return ctx, secure_channel.NewSecureChannelClient(conn), func() {
		conn.Close()
		cancel()
	}, nil
}
