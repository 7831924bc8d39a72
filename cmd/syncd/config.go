package main

import (
	"context"

	"mplads-backend/lib/configutil"
	"mplads-backend/lib/objectstore"
	"mplads-backend/lib/scrapers/mplads"
	"mplads-backend/services/sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type PortalConfig struct {
	BaseUrl     string `json:"base_url"`
	SessionFile string `json:"session_file"`
}

type MongoConfig struct {
	Uri      string `json:"uri"`
	Database string `json:"database"`
}

type Config struct {
	Portal      PortalConfig       `json:"portal"`
	Mongo       MongoConfig        `json:"database"`
	ObjectStore objectstore.Config `json:"object_store"`
	Sync        sync.Config        `json:"sync"`
}

// components never read the environment themselves: everything is
// built here, once, from the config file and passed down.
func buildService(ctx context.Context, config Config) (sync.Service, sync.Store, func(), error) {
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(config.Mongo.Uri))
	if err != nil {
		return sync.Service{}, sync.Store{}, nil, err
	}
	cleanup := func() {
		mongoClient.Disconnect(context.Background())
	}

	store := sync.NewStore(mongoClient.Database(config.Mongo.Database))

	objects, err := objectstore.New(config.ObjectStore)
	if err != nil {
		cleanup()
		return sync.Service{}, sync.Store{}, nil, err
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		cleanup()
		return sync.Service{}, sync.Store{}, nil, err
	}

	sessions, err := mplads.NewSessionManager(config.Portal.BaseUrl, config.Portal.SessionFile)
	if err != nil {
		cleanup()
		return sync.Service{}, sync.Store{}, nil, err
	}
	client, err := mplads.NewClient(config.Portal.BaseUrl, sessions)
	if err != nil {
		cleanup()
		return sync.Service{}, sync.Store{}, nil, err
	}

	service := sync.NewService(sessions, client, store, objects, config.Sync)
	return service, store, cleanup, nil
}

func readConfig() (Config, error) {
	return configutil.ReadConfig[Config](configPath)
}
