package sync

import (
	"strings"

	"mplads-backend/lib/normalize"
	"mplads-backend/lib/scrapers/mplads"
)

// the portal mixes aggregate and garbage rows into every report; a row
// is dropped when either its state or MP name is empty, a single
// character, or an aggregate marker. silently filtering these is by
// contract, they are not errors.
func dropRow(row mplads.RawRow) bool {
	return isInvalidName(fieldString(row, stateKeys)) ||
		isInvalidName(fieldString(row, mpNameKeys))
}

func isInvalidName(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) <= 1 {
		return true
	}
	return strings.Contains(strings.ToLower(s), "total")
}

// position is the row's 0-based index; it backfills the serial number
// when the portal omits one. the legislative term only attaches to Lok
// Sabha rows, Rajya Sabha rows keep the empty term marker.
func commonFields(row mplads.RawRow, position int, chamber mplads.Chamber, term mplads.Term) WorkCommon {
	serial := fieldInt(row, serialKeys)
	if serial <= 0 {
		serial = int64(position + 1)
	}
	if chamber != mplads.ChamberLokSabha {
		term = mplads.TermNone
	}
	return WorkCommon{
		SerialNo:     serial,
		State:        fieldString(row, stateKeys),
		MPName:       fieldString(row, mpNameKeys),
		Constituency: normalize.Constituency(fieldString(row, constituencyKeys)),
		Chamber:      chamber,
		Term:         term,
	}
}

func TransformAllocations(rows []mplads.RawRow, chamber mplads.Chamber, term mplads.Term) []AllocationRecord {
	out := make([]AllocationRecord, 0, len(rows))
	for i, row := range rows {
		if dropRow(row) {
			continue
		}
		out = append(out, AllocationRecord{
			WorkCommon:      commonFields(row, i, chamber, term),
			AllocatedAmount: normalize.Currency(fieldString(row, allocatedKeys)),
		})
	}
	return out
}

func TransformExpenditures(rows []mplads.RawRow, chamber mplads.Chamber, term mplads.Term) []ExpenditureRecord {
	out := make([]ExpenditureRecord, 0, len(rows))
	for i, row := range rows {
		if dropRow(row) {
			continue
		}
		record := ExpenditureRecord{
			WorkCommon:    commonFields(row, i, chamber, term),
			WorkID:        fieldInt(row, workIDKeys),
			Description:   fieldString(row, descriptionKeys),
			Vendor:        fieldString(row, vendorKeys),
			Agency:        fieldString(row, agencyKeys),
			PaymentStatus: fieldString(row, paymentStatusKeys),
			Amount:        normalize.Currency(fieldString(row, amountKeys)),
		}
		if d, ok := normalize.Date(fieldString(row, expenditureDateKey)); ok {
			record.ExpenditureDate = d
		}
		out = append(out, record)
	}
	return out
}

// TransformCompletedWorks keeps only rows that identify a finished
// work: positive work id, a completion date and a final amount.
func TransformCompletedWorks(rows []mplads.RawRow, chamber mplads.Chamber, term mplads.Term) []CompletedWorkRecord {
	out := make([]CompletedWorkRecord, 0, len(rows))
	for i, row := range rows {
		if dropRow(row) {
			continue
		}
		workID := fieldInt(row, workIDKeys)
		if workID <= 0 {
			continue
		}
		if fieldString(row, completionDateKeys) == "" || fieldString(row, finalAmountKeys) == "" {
			continue
		}

		record := CompletedWorkRecord{
			WorkCommon:  commonFields(row, i, chamber, term),
			WorkID:      workID,
			Category:    fieldString(row, categoryKeys),
			Agency:      fieldString(row, agencyKeys),
			Description: fieldString(row, descriptionKeys),
			HasImage:    fieldBool(row, hasImageKeys),
			Rating:      fieldFloat(row, ratingKeys),
			FinalAmount: normalize.Currency(fieldString(row, finalAmountKeys)),
		}
		if d, ok := normalize.Date(fieldString(row, completionDateKeys)); ok {
			record.CompletionDate = d
		}
		out = append(out, record)
	}
	return out
}

func CompletedIDSet(records []CompletedWorkRecord) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(records))
	for _, r := range records {
		ids[r.WorkID] = struct{}{}
	}
	return ids
}

// TransformRecommendedWorks requires the batch's completed-work id set
// up front: a work id that already shows up as completed is the same
// work further along its lifecycle, keeping it in both sets would
// double count it. this forces Completed to be transformed before
// Recommended in every batch.
func TransformRecommendedWorks(
	rows []mplads.RawRow,
	chamber mplads.Chamber,
	term mplads.Term,
	completedIDs map[int64]struct{},
) []RecommendedWorkRecord {
	out := make([]RecommendedWorkRecord, 0, len(rows))
	for i, row := range rows {
		if dropRow(row) {
			continue
		}
		workID := fieldInt(row, workIDKeys)
		if workID <= 0 {
			continue
		}
		if fieldString(row, recDateKeys) == "" || fieldString(row, recAmountKeys) == "" {
			continue
		}
		if _, done := completedIDs[workID]; done {
			continue
		}

		record := RecommendedWorkRecord{
			WorkCommon:        commonFields(row, i, chamber, term),
			WorkID:            workID,
			Category:          fieldString(row, categoryKeys),
			Agency:            fieldString(row, agencyKeys),
			Description:       fieldString(row, descriptionKeys),
			HasImage:          fieldBool(row, hasImageKeys),
			RecommendedAmount: normalize.Currency(fieldString(row, recAmountKeys)),
		}
		if d, ok := normalize.Date(fieldString(row, recDateKeys)); ok {
			record.RecommendationDate = d
		}
		out = append(out, record)
	}
	return out
}
