package quote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-printquote/internal/money"
	"github.com/noah-isme/backend-printquote/internal/pricing"
)

// History actions recorded on the append-only quote audit trail.
const (
	ActionCreated       = "CREATED"
	ActionUpdated       = "UPDATED"
	ActionStatusChanged = "STATUS_CHANGED"
	ActionPdfGenerated  = "PDF_GENERATED"
	ActionEmailSent     = "EMAIL_SENT"
)

// HistoryEntry is one immutable audit record. Payload shape depends on the
// action; entries are never rewritten once stored.
type HistoryEntry struct {
	ID        uuid.UUID       `json:"id"`
	QuoteID   uuid.UUID       `json:"quoteId"`
	Action    string          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// LineSnapshot captures a priced line at the moment of a mutation.
type LineSnapshot struct {
	RateCardID  string      `json:"rateCardId"`
	Description string      `json:"description"`
	UnitPrice   money.Money `json:"unitPrice"`
	MakeReady   money.Money `json:"makeReady"`
	Units       money.Money `json:"units"`
	LineTotal   money.Money `json:"lineTotal"`
	Category    string      `json:"category"`
	Manual      bool        `json:"manual,omitempty"`
}

// TotalsSnapshot captures quote totals at the moment of a mutation.
type TotalsSnapshot struct {
	Subtotal         money.Money            `json:"subtotal"`
	Discount         money.Money            `json:"discount"`
	Total            money.Money            `json:"total"`
	PricePerThousand *money.Money           `json:"pricePerThousand,omitempty"`
	Categories       map[string]money.Money `json:"categories,omitempty"`
}

// CreatedPayload records the full initial state of a quote.
type CreatedPayload struct {
	Reference string         `json:"reference"`
	Quantity  int            `json:"quantity"`
	Lines     []LineSnapshot `json:"lines"`
	Totals    TotalsSnapshot `json:"totals"`
}

// FieldChange records one scalar field changing value.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// UpdatedPayload records what an update changed plus the resulting state.
type UpdatedPayload struct {
	Changes      map[string]FieldChange `json:"changes,omitempty"`
	LinesAdded   []string               `json:"linesAdded,omitempty"`
	LinesRemoved []string               `json:"linesRemoved,omitempty"`
	Lines        []LineSnapshot         `json:"lines"`
	Totals       TotalsSnapshot         `json:"totals"`
}

// StatusChangedPayload records a lifecycle transition.
type StatusChangedPayload struct {
	From Status `json:"from"`
	To   Status `json:"to"`
}

// PdfGeneratedPayload records a rendered document.
type PdfGeneratedPayload struct {
	FileName string `json:"fileName"`
}

// EmailSentPayload records an outbound quote email.
type EmailSentPayload struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
}

// EncodePayload marshals a typed history payload for storage.
func EncodePayload(payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode history payload: %w", err)
	}
	return data, nil
}

// SnapshotLines converts priced lines into history snapshots.
func SnapshotLines(lines []pricing.Line) []LineSnapshot {
	out := make([]LineSnapshot, len(lines))
	for i, l := range lines {
		out[i] = LineSnapshot{
			RateCardID:  l.RateCardID,
			Description: l.Description,
			UnitPrice:   l.UnitPricePerThousand,
			MakeReady:   l.MakeReadyFixed,
			Units:       l.UnitsInThousands,
			LineTotal:   l.LineTotal,
			Category:    string(l.Category),
			Manual:      l.IsManualItem,
		}
	}
	return out
}

// SnapshotTotals converts computed totals into a history snapshot.
func SnapshotTotals(t pricing.Totals) TotalsSnapshot {
	snap := TotalsSnapshot{
		Subtotal: t.Subtotal,
		Discount: t.Discount,
		Total:    t.Total,
	}
	if t.Categorised {
		ppt := t.PricePerThousand
		snap.PricePerThousand = &ppt
		snap.Categories = make(map[string]money.Money, len(t.Categories))
		for cat, amount := range t.Categories {
			snap.Categories[string(cat)] = amount
		}
	}
	return snap
}
