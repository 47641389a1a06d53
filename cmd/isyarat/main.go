// Command isyarat runs the sign-language practice server and terminal
// practice sessions.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/isyarat/internal/config"
)

// Version is the application version.
const Version = "0.1.0"

var (
	// cfg is loaded once before any subcommand runs
	cfg        config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:     "isyarat",
	Short:   "Sign-language alphabet practice with live gesture recognition",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, used, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if used != "" {
			log.Printf("Loaded config from %s", used)
		}
		cfg = loaded
		return nil
	},
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: configs/isyarat.yaml or ~/.isyarat/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}
