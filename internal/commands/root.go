package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idelchi/rotor/internal/config"
	"github.com/idelchi/rotor/internal/logic"
)

// EnvPrefix prefixes the environment variables overriding flags.
const EnvPrefix = "ROTOR"

// NewRootCommand creates the root command with common configuration.
// It sets up environment variable binding and flag handling.
func NewRootCommand(cfg *config.Config, version string) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "rotor [flags] command [flags]",
		Short: "Three-rotor text cipher",
		Long: `A text cipher built from three keyed rotors over ASCII and Cyrillic characters.
Files are split into chunks that are processed in parallel and reassembled in order.
Decryption needs the same key and the same number of workers that were used to encrypt.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()

	flags.BoolP("show", "s", false, "Show the configuration and exit")
	flags.IntP("workers", "j", 0, "Number of chunks and parallel workers, 0 derives it from CPU load")
	flags.BoolP("quiet", "q", false, "Suppress non-error output")
	flags.Bool("delete", false, "Delete the original file after successful encryption/decryption")
	flags.Bool("stats", false, "Print statistics after processing")
	flags.Bool("dry", false, "Show what would be processed without processing")
	flags.Bool("fail-fast", false, "Cancel the remaining chunks after the first failure")
	flags.Duration("timeout", 0, "Upper bound for processing a single file, 0 disables it")
	flags.Bool("manifest", false, "Write a manifest on encryption, require one on decryption")

	flags.StringP("key", "k", "", "Integer encryption key")
	flags.StringP("key-file", "f", "", "Path to the key file with the integer encryption key")

	flags.String("encrypt-ext", ".enc", "Suffix to append to encrypted files")
	flags.String("decrypt-ext", ".dec", "Suffix to append to decrypted files")

	flags.String("log-file", "rotor.log", "Path of the JSON log file, empty disables it")
	flags.String("log-level", "info", "Log level, one of debug, info, warn, error")

	root.AddCommand(
		NewEncryptCommand(cfg, v),
		NewDecryptCommand(cfg, v),
		NewVersionCommand(version),
	)

	return root
}

// preRun returns a PreRunE handler that binds flags and environment into cfg,
// stores the positional args in cfg.Files and validates the configuration.
func preRun(cfg *config.Config, v *viper.Viper) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()

		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return fmt.Errorf("binding flags: %w", err)
		}

		if err := v.Unmarshal(cfg); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}

		cfg.Files = args

		if cfg.Show {
			return nil
		}

		return cfg.Validate()
	}
}

// run executes the configured action, or prints the configuration if --show was given.
func run(cfg *config.Config) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if cfg.Show {
			out, err := cfg.Render()
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), out)

			return nil
		}

		return logic.Run(cmd.Context(), cfg)
	}
}
