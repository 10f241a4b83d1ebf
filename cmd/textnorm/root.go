package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/wippyai/glyphtext/canon"
	"github.com/wippyai/glyphtext/text"
)

// envPrefix namespaces environment overrides, e.g. TEXTNORM_NO_PAIRS=true.
const envPrefix = "TEXTNORM"

func newRootCommand() *cobra.Command {
	v := viper.New()
	var log *zap.Logger

	root := &cobra.Command{
		Use:   "textnorm",
		Short: "Normalize 16-bit code units or Latin-1 bytes into scalar values",
		Long: `textnorm decodes UTF-16 code units or Latin-1 bytes into a sequence of
scalar values and reports malformed input with the offending unit range.

Examples:
  textnorm decode --units D834,DD1E
  textnorm decode --bytes 48,E9
  textnorm decode --file in.txt --encoding utf16be
  textnorm interactive

Every flag can also be set through the environment, e.g. TEXTNORM_NO_PAIRS=true.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Flag errors still print usage; application errors do not.
			cmd.SilenceUsage = true

			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			l, err := newLogger(v.GetBool("verbose"))
			if err != nil {
				return err
			}
			log = l
			text.SetLogger(log)
			canon.SetLogger(log)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	root.PersistentFlags().Bool("verbose", false, "Log normalization failures at debug level")
	root.PersistentFlags().Int("max-scalars", text.DefaultMaxScalars, "Maximum scalar slots per decoded string, sentinel included")

	root.AddCommand(newDecodeCommand(v))
	root.AddCommand(newInteractiveCommand(v))
	return root
}

// bindFlags makes every flag in fs readable through v, with TEXTNORM_*
// environment variables as fallback.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v.BindPFlags(fs)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newNormalizer(v *viper.Viper) *text.Normalizer {
	return text.New().WithAllocator(text.HeapAllocator{MaxScalars: v.GetInt("max-scalars")})
}
