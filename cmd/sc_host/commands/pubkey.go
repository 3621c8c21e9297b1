package commands

import (
	"fmt"

	"github.com/kwonalbert/secure_channel"
	"github.com/spf13/cobra"
)

func pubkeyCmd() *cobra.Command {
	var keep bool
	cmd := &cobra.Command{
		Use:   "pubkey",
		Short: "Open a session and print the enclave RSA public key",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, client, done, err := dial(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			resp, err := client.GetEnclavePublicKey(ctx, &secure_channel.PublicKeyRequest{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %d\n%s", resp.GetSessionId(), resp.GetPublicKey())

			if keep {
				return nil
			}
			_, err = client.RemoveSession(ctx, &secure_channel.SessionRequest{SessionId: resp.GetSessionId()})
			return err
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "leave the session open")
	return cmd
}
