package main

import (
	"fmt"

	"mplads-backend/lib/util/serviceutil"
	"mplads-backend/services/sync"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var shouldSyncCmd = &cobra.Command{
	Use:   "should-sync",
	Short: "Report whether a sync cycle is currently due.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		config, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(config.Mongo.Uri))
		if err != nil {
			serviceutil.Fatal("failed to connect to database", err)
		}
		defer mongoClient.Disconnect(ctx)

		store := sync.NewStore(mongoClient.Database(config.Mongo.Database))

		due, err := store.ShouldSync(ctx)
		if err != nil {
			serviceutil.Fatal("failed to check sync schedule", err)
		}

		meta, ok, err := store.Metadata(ctx)
		if err != nil {
			serviceutil.Fatal("failed to read sync metadata", err)
		}

		if !ok {
			fmt.Println("no previous cycle recorded, sync is due")
			return
		}
		fmt.Printf("due: %v\n", due)
		fmt.Printf("last updated: %s\n", meta.LastUpdatedText)
		fmt.Printf("next update:  %s (%s)\n", meta.NextUpdate.Format("02-Jan-2006 15:04 MST"), meta.NextUpdateText)
	},
}

func init() {
	rootCmd.AddCommand(shouldSyncCmd)
}
