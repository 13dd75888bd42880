// Command kudos serves the testimonial wizard in the browser and in the
// terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version set via ldflags during build
var version = "dev"

var rootFlags struct {
	config   string
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "kudos",
	Short: "Collect client testimonials with a four step wizard",
	Long: `kudos asks a client about their experience in four short steps and
hands the answers to one or more submitters: the log, an HTTP webhook or a
NATS subject.

The wizard runs as a live web page (kudos serve) or in the terminal
(kudos tui). Configuration comes from kudos.yml, KUDOS_* environment
variables and flags, in increasing order of precedence.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "kudos %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.config, "config", "c", "", "Config file (default: ./kudos.yml if present)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.Version = version
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
