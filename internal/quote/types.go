package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-printquote/internal/money"
	"github.com/noah-isme/backend-printquote/internal/pricing"
)

// Status is the quote lifecycle state. Transitions are unrestricted; sales
// regularly reopen lost quotes or walk a sent quote back to draft.
type Status string

const (
	StatusDraft Status = "DRAFT"
	StatusSent  Status = "SENT"
	StatusWon   Status = "WON"
	StatusLost  Status = "LOST"
)

// ParseStatus validates a wire-format status value.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusDraft:
		return StatusDraft, nil
	case StatusSent:
		return StatusSent, nil
	case StatusWon:
		return StatusWon, nil
	case StatusLost:
		return StatusLost, nil
	}
	return "", fmt.Errorf("unknown quote status %q", s)
}

// LineSelection is one requested quote line: either a rate card reference or
// a bespoke manual item.
type LineSelection struct {
	RateCardID string
	// Quantity overrides the quote-level run quantity for this line when set.
	Quantity          *int
	ManualDescription string
	ManualSetupCharge money.Money
	ManualPrice       money.Money
	ManualUnit        pricing.ManualUnit
}

// IsManual reports whether the selection is a bespoke line.
func (s LineSelection) IsManual() bool {
	return s.RateCardID == "" || s.RateCardID == pricing.ManualRateCardID
}

// Input carries the client-editable fields of a quote.
type Input struct {
	ClientName         string
	ProjectName        string
	Quantity           int
	InsertsCount       int
	DiscountPercentage money.Money
	Lines              []LineSelection
}

// Quote is a stored quotation with its priced lines. Totals are derived
// from the lines on read, never persisted.
type Quote struct {
	ID                 uuid.UUID
	BaseReference      string
	RevisionNumber     int
	Reference          string
	ClientName         string
	ProjectName        string
	Quantity           int
	InsertsCount       int
	DiscountPercentage money.Money
	Status             Status
	Lines              []pricing.Line
	Totals             pricing.Totals
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
