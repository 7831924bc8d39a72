package sync

import (
	"context"
	"errors"

	"mplads-backend/lib/timezone"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	allocationsCollection      = "allocations"
	expendituresCollection     = "expenditures"
	completedWorksCollection   = "completed_works"
	recommendedWorksCollection = "recommended_works"
	metadataCollection         = "sync_metadata"
)

// Store writes canonical record batches and the sync metadata singleton
// into the document store. every write is an upsert by natural key so
// re-running a cycle converges instead of duplicating.
type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) Store {
	return Store{db: db}
}

func (s Store) upsertBatch(ctx context.Context, collection string, models []mongo.WriteModel) error {
	ctx, span := tracer.Start(ctx, "store:upsertBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("records", len(models)),
	)

	if len(models) == 0 {
		return nil
	}
	_, err := s.db.Collection(collection).BulkWrite(
		ctx, models,
		options.BulkWrite().SetOrdered(false),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk upsert failed")
		return err
	}
	return nil
}

func replaceModel(filter bson.D, record any) mongo.WriteModel {
	return mongo.NewReplaceOneModel().
		SetFilter(filter).
		SetReplacement(record).
		SetUpsert(true)
}

func (s Store) UpsertAllocations(ctx context.Context, records []AllocationRecord) error {
	models := make([]mongo.WriteModel, len(records))
	for i, r := range records {
		models[i] = replaceModel(bson.D{
			{Key: "mpName", Value: r.MPName},
			{Key: "chamber", Value: r.Chamber},
			{Key: "lsTerm", Value: r.Term},
		}, r)
	}
	return s.upsertBatch(ctx, allocationsCollection, models)
}

func (s Store) UpsertExpenditures(ctx context.Context, records []ExpenditureRecord) error {
	models := make([]mongo.WriteModel, len(records))
	for i, r := range records {
		// expenditure rows do not reliably carry a work id, fall back
		// to the row's position within its report
		models[i] = replaceModel(bson.D{
			{Key: "chamber", Value: r.Chamber},
			{Key: "lsTerm", Value: r.Term},
			{Key: "workId", Value: r.WorkID},
			{Key: "serialNo", Value: r.SerialNo},
		}, r)
	}
	return s.upsertBatch(ctx, expendituresCollection, models)
}

func (s Store) UpsertCompletedWorks(ctx context.Context, records []CompletedWorkRecord) error {
	models := make([]mongo.WriteModel, len(records))
	for i, r := range records {
		models[i] = replaceModel(bson.D{{Key: "workId", Value: r.WorkID}}, r)
	}
	return s.upsertBatch(ctx, completedWorksCollection, models)
}

func (s Store) UpsertRecommendedWorks(ctx context.Context, records []RecommendedWorkRecord) error {
	models := make([]mongo.WriteModel, len(records))
	for i, r := range records {
		models[i] = replaceModel(bson.D{{Key: "workId", Value: r.WorkID}}, r)
	}
	return s.upsertBatch(ctx, recommendedWorksCollection, models)
}

// RecordCycle upserts the metadata singleton for the source label.
// it only runs after a cycle completed, a failed cycle must never
// advance the schedule.
func (s Store) RecordCycle(ctx context.Context, meta Metadata) error {
	ctx, span := tracer.Start(ctx, "store:RecordCycle")
	defer span.End()

	_, err := s.db.Collection(metadataCollection).ReplaceOne(
		ctx,
		bson.D{{Key: "source", Value: meta.Source}},
		meta,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upsert sync metadata")
		return err
	}
	return nil
}

func (s Store) Metadata(ctx context.Context) (Metadata, bool, error) {
	var meta Metadata
	err := s.db.Collection(metadataCollection).
		FindOne(ctx, bson.D{{Key: "source", Value: SourceLabel}}).
		Decode(&meta)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, err
	}
	return meta, true, nil
}

// ShouldSync reports whether a cycle is due: always when no cycle ever
// ran, otherwise once the recorded next-update time has passed.
func (s Store) ShouldSync(ctx context.Context) (bool, error) {
	meta, found, err := s.Metadata(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}
	return !timezone.Now().Before(meta.NextUpdate.In(timezone.Location)), nil
}
