package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-printquote/internal/money"
	"github.com/noah-isme/backend-printquote/internal/pricing"
)

// Band is one quantity tier of a rate card as stored and served.
type Band struct {
	FromQty          int         `json:"fromQty"`
	ToQty            int         `json:"toQty"`
	PricePerThousand money.Money `json:"pricePerThousand"`
	MakeReadyFixed   money.Money `json:"makeReady"`
}

// RateCard is a priced catalog entry with its quantity bands.
type RateCard struct {
	ID        uuid.UUID        `json:"id"`
	Code      string           `json:"code"`
	Name      string           `json:"name"`
	Unit      pricing.Unit     `json:"unit"`
	Category  pricing.Category `json:"category"`
	Notes     *string          `json:"notes,omitempty"`
	Bands     []Band           `json:"bands"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// PricingCard converts the catalog record into the engine's read view.
func (rc RateCard) PricingCard() pricing.Card {
	bands := make([]pricing.Band, len(rc.Bands))
	for i, b := range rc.Bands {
		bands[i] = pricing.Band{
			FromQty:          b.FromQty,
			ToQty:            b.ToQty,
			PricePerThousand: b.PricePerThousand,
			MakeReadyFixed:   b.MakeReadyFixed,
		}
	}
	return pricing.Card{
		ID:       rc.ID.String(),
		Code:     rc.Code,
		Name:     rc.Name,
		Unit:     rc.Unit,
		Category: rc.Category,
		Bands:    bands,
	}
}

// BandInput is a band as submitted by catalog write requests.
type BandInput struct {
	FromQty          int    `json:"fromQty" validate:"required,min=1"`
	ToQty            int    `json:"toQty" validate:"required,min=1"`
	PricePerThousand string `json:"pricePerThousand" validate:"required"`
	MakeReadyFixed   string `json:"makeReady" validate:"required"`
}

// RateCardInput is the payload for creating or replacing a rate card.
type RateCardInput struct {
	Code     string      `json:"code" validate:"required,max=64"`
	Name     string      `json:"name" validate:"required,max=200"`
	Unit     string      `json:"unit" validate:"required"`
	Category string      `json:"category"`
	Notes    *string     `json:"notes" validate:"omitempty,max=2000"`
	Bands    []BandInput `json:"bands" validate:"required,min=1,max=50,dive"`
}
