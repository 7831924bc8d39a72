// Package sync runs one full ingestion cycle against the portal:
// fetch the four report kinds per chamber/term, transform them into the
// canonical record set, archive attachment images for works that carry
// them, then advance the sync schedule.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"mplads-backend/lib/objectstore"
	"mplads-backend/lib/scrapers/mplads"
	"mplads-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/sync")

// ErrSessionUnavailable aborts a cycle before its first fetch: without
// a working session every report request would just burn the portal's
// patience.
var ErrSessionUnavailable = errors.New("portal session unavailable")

// TermPolicy selects which Lok Sabha terms a cycle covers. Rajya Sabha
// is always fetched, it has no terms to select.
type TermPolicy string

const (
	TermPolicy17   TermPolicy = "17"
	TermPolicy18   TermPolicy = "18"
	TermPolicyBoth TermPolicy = "both"
)

func (p TermPolicy) terms() []mplads.Term {
	switch p {
	case TermPolicy17:
		return []mplads.Term{mplads.Term17}
	case TermPolicyBoth:
		return []mplads.Term{mplads.Term18, mplads.Term17}
	default:
		return []mplads.Term{mplads.Term18}
	}
}

type Config struct {
	Terms     TermPolicy `json:"terms"`
	Frequency string     `json:"frequency"`
}

type Service struct {
	sessions *mplads.SessionManager
	client   *mplads.Client
	store    Store
	objects  *objectstore.Store
	config   Config
}

func NewService(
	sessions *mplads.SessionManager,
	client *mplads.Client,
	store Store,
	objects *objectstore.Store,
	config Config,
) Service {
	return Service{
		sessions: sessions,
		client:   client,
		store:    store,
		objects:  objects,
		config:   config,
	}
}

type CycleStats struct {
	StartedAt  time.Time
	FinishedAt time.Time

	RawRows  int
	Counts   RecordCounts
	Quality  int
	Uploaded int
	Skipped  int
}

type chamberBatch struct {
	chamber mplads.Chamber
	term    mplads.Term
}

// RunCycle executes one ingestion cycle to completion or first fatal
// error. report kinds that failed to fetch show up as zero counts;
// attachments that failed to download show up in Skipped. a cycle that
// returns an error has persisted no metadata, so the schedule does not
// advance past a failure.
func (s Service) RunCycle(ctx context.Context) (CycleStats, error) {
	ctx, span := tracer.Start(ctx, "RunCycle")
	defer span.End()

	stats := CycleStats{StartedAt: timezone.Now()}

	if err := s.sessions.EnsureValid(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no usable session")
		return stats, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}

	batches := make([]chamberBatch, 0, 3)
	for _, term := range s.config.Terms.terms() {
		batches = append(batches, chamberBatch{chamber: mplads.ChamberLokSabha, term: term})
	}
	batches = append(batches, chamberBatch{chamber: mplads.ChamberRajyaSabha, term: mplads.TermNone})

	var completed []CompletedWorkRecord
	var recommended []RecommendedWorkRecord

	for _, batch := range batches {
		byKind := s.client.FetchAllForChamber(ctx, batch.chamber, batch.term)
		for _, rows := range byKind {
			stats.RawRows += len(rows)
		}

		allocations := TransformAllocations(byKind[mplads.ReportAllocation], batch.chamber, batch.term)
		expenditures := TransformExpenditures(byKind[mplads.ReportExpenditure], batch.chamber, batch.term)
		batchCompleted := TransformCompletedWorks(byKind[mplads.ReportCompletedWorks], batch.chamber, batch.term)
		batchRecommended := TransformRecommendedWorks(
			byKind[mplads.ReportRecommendedWorks],
			batch.chamber, batch.term,
			CompletedIDSet(batchCompleted),
		)

		if err := s.store.UpsertAllocations(ctx, allocations); err != nil {
			return stats, err
		}
		if err := s.store.UpsertExpenditures(ctx, expenditures); err != nil {
			return stats, err
		}
		if err := s.store.UpsertCompletedWorks(ctx, batchCompleted); err != nil {
			return stats, err
		}
		if err := s.store.UpsertRecommendedWorks(ctx, batchRecommended); err != nil {
			return stats, err
		}

		stats.Counts.Allocations += len(allocations)
		stats.Counts.Expenditures += len(expenditures)
		stats.Counts.CompletedWorks += len(batchCompleted)
		stats.Counts.RecommendedWorks += len(batchRecommended)

		completed = append(completed, batchCompleted...)
		recommended = append(recommended, batchRecommended...)
	}

	s.archiveWorkImages(ctx, completed, recommended, &stats)

	stats.Quality = qualityScore(stats)
	stats.FinishedAt = timezone.Now()

	meta := s.buildMetadata(stats)
	if err := s.store.RecordCycle(ctx, meta); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to record cycle metadata")
		return stats, err
	}

	span.SetAttributes(
		attribute.Int("raw_rows", stats.RawRows),
		attribute.Int("uploaded", stats.Uploaded),
		attribute.Int("skipped", stats.Skipped),
		attribute.Int("quality", stats.Quality),
	)
	return stats, nil
}

// one work and one attachment at a time: the portal throttles
// aggressively and the evidence images are not worth a ban.
func (s Service) archiveWorkImages(
	ctx context.Context,
	completed []CompletedWorkRecord,
	recommended []RecommendedWorkRecord,
	stats *CycleStats,
) {
	ctx, span := tracer.Start(ctx, "archiveWorkImages")
	defer span.End()

	for _, w := range completed {
		if !w.HasImage {
			continue
		}
		s.archiveAttachments(ctx, w.WorkID, mplads.PhaseCompleted, stats)
	}
	for _, w := range recommended {
		if !w.HasImage {
			continue
		}
		s.archiveAttachments(ctx, w.WorkID, mplads.PhaseRecommended, stats)
	}
}

func (s Service) archiveAttachments(ctx context.Context, workID int64, phase mplads.Phase, stats *CycleStats) {
	attachments, err := s.client.ResolveAttachments(ctx, workID, phase)
	if err != nil {
		slog.WarnContext(ctx, "failed to resolve attachments, skipping work",
			"work_id", workID, "phase", phase, "err", err)
		stats.Skipped++
		return
	}

	for _, a := range attachments {
		exists, err := s.objects.Exists(ctx, workID, string(phase), a.AttachID, a.FileName)
		if err == nil && exists {
			continue
		}

		data, err := s.client.DownloadAttachment(ctx, a.AttachID)
		if err != nil {
			slog.ErrorContext(ctx, "attachment download failed, skipping",
				"work_id", workID, "phase", phase, "attach_id", a.AttachID, "err", err)
			stats.Skipped++
			continue
		}

		if _, err := s.objects.Upload(ctx, workID, string(phase), a.AttachID, data, a.FileName); err != nil {
			slog.ErrorContext(ctx, "attachment upload failed, skipping",
				"work_id", workID, "phase", phase, "attach_id", a.AttachID, "err", err)
			stats.Skipped++
			continue
		}
		stats.Uploaded++
	}
}

// qualityScore is the share of fetched rows that survived the transform
// filter. the portal always ships some aggregate/garbage rows, so a
// healthy cycle sits well below 100 but far above 0.
func qualityScore(stats CycleStats) int {
	if stats.RawRows == 0 {
		return 0
	}
	kept := stats.Counts.Allocations +
		stats.Counts.Expenditures +
		stats.Counts.CompletedWorks +
		stats.Counts.RecommendedWorks
	return int(math.Round(float64(kept) / float64(stats.RawRows) * 100))
}

func (s Service) buildMetadata(stats CycleStats) Metadata {
	now := stats.FinishedAt
	next := NextUpdateTime(now, s.config.Frequency)
	return Metadata{
		Source:          SourceLabel,
		LastUpdated:     now,
		LastUpdatedText: now.Format("02-Jan-2006 15:04 MST"),
		NextUpdate:      next,
		NextUpdateText:  relativeText(now, next),
		Frequency:       s.config.Frequency,
		DataQuality:     stats.Quality,
		Counts:          stats.Counts,
	}
}
