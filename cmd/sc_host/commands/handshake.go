package commands

import (
	"bytes"
	"fmt"
	"os"

	proto "github.com/golang/protobuf/proto"
	"github.com/kwonalbert/secure_channel"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func handshakeCmd() *cobra.Command {
	var (
		message string
		wrapped string
		keep    bool
	)
	cmd := &cobra.Command{
		Use:   "handshake",
		Short: "Run the full handshake and send a message both ways",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, client, done, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			pk, err := client.GetEnclavePublicKey(ctx, &secure_channel.PublicKeyRequest{})
			if err != nil {
				return err
			}
			id := secure_channel.SessionID(pk.GetSessionId())
			log.Info().Uint64("session_id", uint64(id)).Uint32("pubkey_len", pk.Length).Msg("got enclave public key")
			if !keep {
				defer client.RemoveSession(ctx, &secure_channel.SessionRequest{SessionId: uint64(id)})
			}

			ep, err := client.GetExchangeParam(ctx, &secure_channel.ExchangeParamRequest{SessionId: uint64(id)})
			if err != nil {
				return err
			}
			var enclaveParam secure_channel.ExchangeParam
			if err := proto.Unmarshal(ep.GetParam(), &enclaveParam); err != nil {
				return fmt.Errorf("enclave sent bad exchange parameters: %w", err)
			}
			curve := secure_channel.CurveID(enclaveParam.GetCurve())

			host, err := secure_channel.NewExchangeContext(curve)
			if err != nil {
				return err
			}
			defer host.Destroy()
			if err := host.ComputeSessionKey(host.LocalParams(), ep.GetParam()); err != nil {
				return err
			}
			_, err = client.SetPeerExchangeParam(ctx, &secure_channel.PeerParamRequest{
				SessionId: uint64(id),
				Param:     host.LocalParams(),
			})
			if err != nil {
				return err
			}
			log.Info().Stringer("curve", curve).Msg("session key agreed")

			if wrapped != "" {
				blob, err := os.ReadFile(wrapped)
				if err != nil {
					return err
				}
				_, err = client.InstallWrappedKey(ctx, &secure_channel.WrappedKeyRequest{SessionId: uint64(id), Wrapped: blob})
				if err != nil {
					return err
				}
				log.Info().Msg("installed wrapped key")
			}

			// enclave -> host
			enc, err := client.Encrypt(ctx, &secure_channel.PayloadRequest{SessionId: uint64(id), Payload: []byte(message)})
			if err != nil {
				return err
			}
			plain, err := host.Open(id, enc.GetPayload())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enclave sealed %d bytes, opened: %s\n", len(enc.GetPayload()), plain)

			// host -> enclave
			frame, err := host.Seal(id, []byte(message))
			if err != nil {
				return err
			}
			dec, err := client.Decrypt(ctx, &secure_channel.PayloadRequest{SessionId: uint64(id), Payload: frame})
			if err != nil {
				return err
			}
			if !bytes.Equal(dec.GetPayload(), []byte(message)) {
				return fmt.Errorf("enclave decrypted %q, sent %q", dec.GetPayload(), message)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enclave opened: %s\n", dec.GetPayload())
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "hello", "message to send through the channel")
	cmd.Flags().StringVar(&wrapped, "wrapped", "", "file with a wrapped key to install (see wrap-key)")
	cmd.Flags().BoolVar(&keep, "keep", false, "leave the session open")
	return cmd
}
