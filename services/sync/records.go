package sync

import (
	"strconv"
	"strings"
	"time"

	"mplads-backend/lib/scrapers/mplads"
)

// canonical record set produced from the portal's four report shapes.
// Term is empty for Rajya Sabha rows, which have no Lok Sabha term.

type WorkCommon struct {
	SerialNo     int64          `bson:"serialNo"`
	State        string         `bson:"state"`
	MPName       string         `bson:"mpName"`
	Constituency string         `bson:"constituency"`
	Chamber      mplads.Chamber `bson:"chamber"`
	Term         mplads.Term    `bson:"lsTerm"`
}

type AllocationRecord struct {
	WorkCommon `bson:",inline"`

	AllocatedAmount float64 `bson:"allocatedAmount"`
}

type ExpenditureRecord struct {
	WorkCommon `bson:",inline"`

	WorkID          int64     `bson:"workId,omitempty"`
	Description     string    `bson:"description"`
	Vendor          string    `bson:"vendor,omitempty"`
	Agency          string    `bson:"agency"`
	ExpenditureDate time.Time `bson:"expenditureDate,omitempty"`
	PaymentStatus   string    `bson:"paymentStatus"`
	Amount          float64   `bson:"amount"`
}

type CompletedWorkRecord struct {
	WorkCommon `bson:",inline"`

	WorkID         int64     `bson:"workId"`
	Category       string    `bson:"category"`
	Agency         string    `bson:"agency"`
	Description    string    `bson:"description"`
	CompletionDate time.Time `bson:"completionDate,omitempty"`
	HasImage       bool      `bson:"hasImage"`
	Rating         float64   `bson:"rating,omitempty"`
	FinalAmount    float64   `bson:"finalAmount"`
}

type RecommendedWorkRecord struct {
	WorkCommon `bson:",inline"`

	WorkID             int64     `bson:"workId"`
	Category           string    `bson:"category"`
	Agency             string    `bson:"agency"`
	Description        string    `bson:"description"`
	RecommendationDate time.Time `bson:"recommendationDate,omitempty"`
	HasImage           bool      `bson:"hasImage"`
	RecommendedAmount  float64   `bson:"recommendedAmount"`
}

// the portal is not consistent about field names between report kinds
// (or between deployments of itself), each accessor tries the spellings
// seen in the wild in order.
var (
	serialKeys         = []string{"SNO", "S_NO", "SL_NO"}
	stateKeys          = []string{"STATE_NAME", "STATE"}
	mpNameKeys         = []string{"MP_NAME", "MPNAME"}
	constituencyKeys   = []string{"CONSTITUENCY_NAME", "CONSTITUENCY"}
	workIDKeys         = []string{"WORK_ID", "WORKID"}
	descriptionKeys    = []string{"WORK_DESCRIPTION", "WORK_DESC"}
	categoryKeys       = []string{"WORK_CATEGORY", "CATEGORY"}
	agencyKeys         = []string{"IA_NAME", "IMPLEMENTING_AGENCY"}
	vendorKeys         = []string{"VENDOR_NAME", "VENDOR"}
	expenditureDateKey = []string{"EXPENDITURE_DATE", "PAYMENT_DATE"}
	paymentStatusKeys  = []string{"PAYMENT_STATUS", "STATUS"}
	amountKeys         = []string{"EXPENDITURE_AMOUNT", "AMOUNT"}
	allocatedKeys      = []string{"ALLOCATED_AMOUNT", "ALLOCATED_LIMIT"}
	completionDateKeys = []string{"COMPLETION_DATE", "WORK_COMPLETION_DATE"}
	finalAmountKeys    = []string{"FINAL_AMOUNT", "WORK_COST"}
	hasImageKeys       = []string{"HAS_IMAGE", "IMG_FLAG"}
	ratingKeys         = []string{"RATING", "AVG_RATING"}
	recDateKeys        = []string{"RECOMMENDATION_DATE", "RECOMMENDED_DATE"}
	recAmountKeys      = []string{"RECOMMENDED_AMOUNT", "RECOMMENDED_COST"}
)

func fieldString(row mplads.RawRow, keys []string) string {
	for _, key := range keys {
		value, ok := row[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func fieldInt(row mplads.RawRow, keys []string) int64 {
	for _, key := range keys {
		value, ok := row[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			return int64(v)
		case string:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err == nil {
				return n
			}
		}
	}
	return 0
}

func fieldBool(row mplads.RawRow, keys []string) bool {
	for _, key := range keys {
		value, ok := row[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case bool:
			return v
		case float64:
			return v != 0
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "y", "yes", "true", "1":
				return true
			}
		}
	}
	return false
}

func fieldFloat(row mplads.RawRow, keys []string) float64 {
	for _, key := range keys {
		value, ok := row[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			return v
		case string:
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err == nil {
				return n
			}
		}
	}
	return 0
}
