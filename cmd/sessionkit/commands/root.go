package commands

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sessionkit/internal/app"
	"sessionkit/internal/config"
	"sessionkit/internal/util/logger"
)

var (
	cfgFile    string
	passphrase string
	wire       *app.Wire
)

var errNoPassphrase = errors.New("passphrase required (-p)")

func Execute() error {
	v := viper.New()
	root := &cobra.Command{
		Use:          "sessionkit",
		Short:        "X3DH session setup from pre-key bundles",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			if cfg.LogLevel != "" {
				logger.GetLogger().Configure(cfg.LogLevel, cmd.ErrOrStderr())
			}
			wire, err = app.NewWire(cfg)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.String("home", "", "key store dir (default ~/.sessionkit)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&cfgFile, "config", "", "config file (default <home>/config.yaml)")
	pf.StringVarP(&passphrase, "passphrase", "p", os.Getenv(config.EnvPrefix+"_PASSPHRASE"), "passphrase to protect keys")
	_ = v.BindPFlag(config.KeyHome, pf.Lookup("home"))
	_ = v.BindPFlag(config.KeyLogLevel, pf.Lookup("log-level"))

	root.AddCommand(initCmd(), fingerprintCmd(), preKeysCmd(), initiateCmd(), respondCmd(), selfTestCmd())
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return errNoPassphrase
	}
	return nil
}
