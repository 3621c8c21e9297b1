package commands

import (
	"crypto/rand"
	"crypto/rsa"
	"os"

	"github.com/kwonalbert/secure_channel"
	"github.com/spf13/cobra"
)

func wrapKeyCmd() *cobra.Command {
	var (
		sealingKey string
		bits       int
		out        string
	)
	cmd := &cobra.Command{
		Use:   "wrap-key",
		Short: "Generate an RSA key and wrap it for InstallWrappedKey",
		RunE: func(cmd *cobra.Command, args []string) error {
			master, err := secure_channel.ReadSealingKey(sealingKey)
			if err != nil {
				return err
			}
			sealer, err := secure_channel.NewGCMSealer(master)
			if err != nil {
				return err
			}

			key, err := rsa.GenerateKey(rand.Reader, bits)
			if err != nil {
				return err
			}
			wrapped, err := secure_channel.WrapKey(sealer, key)
			if err != nil {
				return err
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(append(wrapped, '\n'))
				return err
			}
			return os.WriteFile(out, wrapped, 0o600)
		},
	}
	cmd.Flags().StringVar(&sealingKey, "sealing-key", "sealing_key", "file with the hex encoded sealing secret")
	cmd.Flags().IntVar(&bits, "bits", secure_channel.RSA_MODULUS_BITS, "RSA modulus size")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
