package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/kwonalbert/secure_channel"
	"github.com/mdlayher/vsock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

var (
	config = flag.String("config", "", "JSON or YAML configuration file")
	tlsKey = flag.String("tlsKey", "", "PEM encoded TLS private key of the server")
	tlsPub = flag.String("tlsPub", "", "PEM encoded TLS public key of the server")
	debug  = flag.Bool("debug", false, "Log at debug level")
)

func listen(conf *secure_channel.Configuration) (net.Listener, error) {
	if conf.VsockPort != 0 {
		log.Info().Uint32("port", conf.VsockPort).Msg("listening on vsock")
		return vsock.Listen(conf.VsockPort, nil)
	}
	log.Info().Str("addr", conf.Listen).Msg("listening on tcp")
	return net.Listen("tcp", conf.Listen)
}

func main() {
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	conf, err := secure_channel.ReadConfiguration(*config)
	if err != nil {
		log.Fatal().Err(err).Msg("could not read the configuration")
	}
	sm, err := secure_channel.NewSessionManager(conf)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the session manager")
	}

	opts := []grpc.ServerOption{grpc.UnaryInterceptor(secure_channel.LoggingInterceptor)}
	if *tlsKey != "" && *tlsPub != "" {
		creds, err := credentials.NewServerTLSFromFile(*tlsPub, *tlsKey)
		if err != nil {
			log.Fatal().Err(err).Msg("could not parse the TLS certificates")
		}
		opts = append(opts, grpc.Creds(creds))
	}
	srv := grpc.NewServer(opts...)

	lis, err := listen(conf)
	if err != nil {
		log.Fatal().Err(err).Msg("could not listen")
	}

	sm.Start()
	ctx, cancel := context.WithCancel(context.Background())
	go secure_channel.RunSweeper(ctx, sm, sm.SweepInterval())

	secure_channel.RegisterSecureChannelServer(srv, secure_channel.NewServer(sm))

	go func() {
		err := srv.Serve(lis)
		if err != nil && err != grpc.ErrServerStopped {
			log.Fatal().Err(err).Msg("serve err")
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	srv.GracefulStop()
	cancel()
	sm.Stop()
}
