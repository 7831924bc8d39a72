package main

import (
	"fmt"
	"os"

	"mplads-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "syncd",
	Short: "syncd ingests MPLADS public-works data and archives work images.",
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "config.json5",
		"path to the syncd configuration file",
	)
}

func main() {
	ctx := serviceutil.SignalContext()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
