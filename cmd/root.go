// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X firestige.xyz/ethermirror/cmd.version=..."
var version = "0.1.0"

var (
	// Global flags
	configFile string
)

// rootCmd runs the mirror when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ethermirror",
	Short: "Capture every frame on one interface, send it back out and log its layers",
	Long: `ethermirror opens a link-layer channel on a single network interface.
Every frame received is retransmitted unchanged on the same interface, then
decoded (Ethernet, VLAN, IP, TCP/UDP) and logged to the console and to a
JSON log file named after the process start time.

The interface is chosen by logical name (wifi, bluetooth-pan, thunderbolt1-4,
thunderbolt-bridge); without configuration the Wi-Fi port is used.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	Version:      version,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runMirror(ctx, configFile, systemDeps())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (optional, ETHERMIRROR_* env vars override it)")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
