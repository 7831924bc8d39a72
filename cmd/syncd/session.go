package main

import (
	"fmt"

	"mplads-backend/lib/scrapers/mplads"
	"mplads-backend/lib/util/serviceutil"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Debug the portal session without running a cycle.",
}

var sessionBootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Force a fresh session bootstrap and persist it.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		sessions := debugSessionManager()
		if err := sessions.Bootstrap(ctx); err != nil {
			serviceutil.Fatal("bootstrap failed", err)
		}
		session := sessions.Session()
		fmt.Printf("bootstrapped session with %d cookie(s), csrf token present: %v\n",
			len(session.Cookies), session.CSRFToken != "")
	},
}

var sessionValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check whether the persisted session still works.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		sessions := debugSessionManager()
		if sessions.Validate(ctx) {
			fmt.Println("session is valid")
			return
		}
		fmt.Println("session is missing, expired, or rejected by the portal")
	},
}

func debugSessionManager() *mplads.SessionManager {
	config, err := readConfig()
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	sessions, err := mplads.NewSessionManager(config.Portal.BaseUrl, config.Portal.SessionFile)
	if err != nil {
		serviceutil.Fatal("failed to create session manager", err)
	}
	return sessions
}

func init() {
	sessionCmd.AddCommand(sessionBootstrapCmd, sessionValidateCmd)
	rootCmd.AddCommand(sessionCmd)
}
