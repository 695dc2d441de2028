package quote

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-printquote/internal/common"
	"github.com/noah-isme/backend-printquote/internal/money"
	"github.com/noah-isme/backend-printquote/internal/pricing"
)

// Handler exposes the quoting endpoints.
type Handler struct {
	service        *Service
	validate       *validator.Validate
	defaultPerPage int
	maxPerPage     int
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service        *Service
	Validate       *validator.Validate
	DefaultPerPage int
	MaxPerPage     int
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validate
	if v == nil {
		v = validator.New()
	}
	defaultPerPage := cfg.DefaultPerPage
	if defaultPerPage < 1 {
		defaultPerPage = 20
	}
	maxPerPage := cfg.MaxPerPage
	if maxPerPage < 1 {
		maxPerPage = 100
	}
	return &Handler{service: cfg.Service, validate: v, defaultPerPage: defaultPerPage, maxPerPage: maxPerPage}
}

type lineRequest struct {
	RateCardID  string `json:"rateCardId"`
	Quantity    *int   `json:"quantity"`
	Description string `json:"description"`
	SetupCharge string `json:"setupCharge"`
	Price       string `json:"price"`
	Unit        string `json:"unit"`
}

type quoteRequest struct {
	ClientName         string        `json:"clientName" validate:"required,max=200"`
	ProjectName        string        `json:"projectName" validate:"max=200"`
	Quantity           int           `json:"quantity" validate:"required,min=1"`
	InsertsCount       int           `json:"insertsCount" validate:"min=0"`
	DiscountPercentage string        `json:"discountPercentage"`
	Lines              []lineRequest `json:"lines" validate:"required,min=1"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type pdfRequest struct {
	FileName string `json:"fileName" validate:"required,max=255"`
}

type emailRequest struct {
	Recipient string `json:"recipient" validate:"required,email"`
	Subject   string `json:"subject" validate:"max=255"`
}

type lineView struct {
	RateCardID  string      `json:"rateCardId"`
	Description string      `json:"description"`
	UnitPrice   money.Money `json:"unitPrice"`
	MakeReady   money.Money `json:"makeReady"`
	Units       money.Money `json:"units"`
	LineTotal   money.Money `json:"lineTotal"`
	Category    string      `json:"category"`
	Manual      bool        `json:"manual"`
}

type totalsView struct {
	Subtotal           money.Money            `json:"subtotal"`
	DiscountPercentage money.Money            `json:"discountPercentage"`
	Discount           money.Money            `json:"discount"`
	Total              money.Money            `json:"total"`
	PricePerThousand   *money.Money           `json:"pricePerThousand,omitempty"`
	Categories         map[string]money.Money `json:"categories,omitempty"`
}

type quoteView struct {
	ID             string     `json:"id,omitempty"`
	Reference      string     `json:"reference,omitempty"`
	BaseReference  string     `json:"baseReference,omitempty"`
	RevisionNumber int        `json:"revisionNumber"`
	ClientName     string     `json:"clientName"`
	ProjectName    string     `json:"projectName,omitempty"`
	Quantity       int        `json:"quantity"`
	InsertsCount   int        `json:"insertsCount"`
	Status         Status     `json:"status"`
	Lines          []lineView `json:"lines,omitempty"`
	Totals         totalsView `json:"totals"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

// Preview handles POST /api/v1/quotes/preview.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeQuoteRequest(w, r)
	if !ok {
		return
	}
	q, err := h.service.Preview(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewOf(q, false)})
}

// Create handles POST /api/v1/quotes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeQuoteRequest(w, r)
	if !ok {
		return
	}
	q, err := h.service.Create(r.Context(), input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": viewOf(q, true)})
}

// List handles GET /api/v1/quotes.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.defaultPerPage, h.maxPerPage)
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	quotes, total, err := h.service.List(r.Context(), search, page, perPage)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	views := make([]quoteView, len(quotes))
	for i, q := range quotes {
		views[i] = viewOf(q, true)
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       views,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

// Get handles GET /api/v1/quotes/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewOf(q, true)})
}

// Update handles PUT /api/v1/quotes/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}
	input, ok := h.decodeQuoteRequest(w, r)
	if !ok {
		return
	}
	q, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewOf(q, true)})
}

// Revise handles POST /api/v1/quotes/{id}/revise.
func (h *Handler) Revise(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}
	q, err := h.service.Revise(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": viewOf(q, true)})
}

// SetStatus handles PATCH /api/v1/quotes/{id}/status.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		common.WriteError(w, common.Validation("status must be one of DRAFT, SENT, WON, LOST", map[string]any{"status": req.Status}))
		return
	}
	q, err := h.service.SetStatus(r.Context(), id, status)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": viewOf(q, true)})
}

// History handles GET /api/v1/quotes/{id}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.History(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entries})
}

// Pdf handles POST /api/v1/quotes/{id}/events/pdf.
func (h *Handler) Pdf(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}
	var req pdfRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RecordPdfGenerated(r.Context(), id, req.FileName); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Email handles POST /api/v1/quotes/{id}/events/email.
func (h *Handler) Email(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quoteID(w, r)
	if !ok {
		return
	}
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RecordEmailSent(r.Context(), id, req.Recipient, req.Subject); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) quoteID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, common.Validation("id must be a valid UUID", nil))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.WriteError(w, common.Validation("request body is not valid JSON", nil))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		details := map[string]any{}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		common.WriteError(w, common.Validation("invalid request payload", details))
		return false
	}
	return true
}

func (h *Handler) decodeQuoteRequest(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req quoteRequest
	if !h.decode(w, r, &req) {
		return Input{}, false
	}
	input, err := req.toInput()
	if err != nil {
		common.WriteError(w, err)
		return Input{}, false
	}
	return input, true
}

func (r quoteRequest) toInput() (Input, error) {
	discount := money.Zero()
	if strings.TrimSpace(r.DiscountPercentage) != "" {
		parsed, err := money.Parse(r.DiscountPercentage)
		if err != nil {
			return Input{}, common.Validation("discountPercentage is not a valid amount", nil)
		}
		discount = parsed
	}
	lines := make([]LineSelection, len(r.Lines))
	for i, l := range r.Lines {
		sel := LineSelection{RateCardID: l.RateCardID, Quantity: l.Quantity}
		if sel.IsManual() {
			sel.RateCardID = pricing.ManualRateCardID
			sel.ManualDescription = strings.TrimSpace(l.Description)
			unit, err := pricing.ParseManualUnit(l.Unit)
			if err != nil {
				return Input{}, common.Validation("manual unit must be PER_ITEM or PER_1K", map[string]any{"line": i})
			}
			sel.ManualUnit = unit
			sel.ManualSetupCharge = money.Zero()
			if strings.TrimSpace(l.SetupCharge) != "" {
				setup, err := money.Parse(l.SetupCharge)
				if err != nil {
					return Input{}, common.Validation("setupCharge is not a valid amount", map[string]any{"line": i})
				}
				sel.ManualSetupCharge = setup
			}
			sel.ManualPrice = money.Zero()
			if strings.TrimSpace(l.Price) != "" {
				price, err := money.Parse(l.Price)
				if err != nil {
					return Input{}, common.Validation("price is not a valid amount", map[string]any{"line": i})
				}
				sel.ManualPrice = price
			}
		}
		lines[i] = sel
	}
	return Input{
		ClientName:         strings.TrimSpace(r.ClientName),
		ProjectName:        strings.TrimSpace(r.ProjectName),
		Quantity:           r.Quantity,
		InsertsCount:       r.InsertsCount,
		DiscountPercentage: discount,
		Lines:              lines,
	}, nil
}

func viewOf(q Quote, persisted bool) quoteView {
	lines := make([]lineView, len(q.Lines))
	for i, l := range q.Lines {
		lines[i] = lineView{
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
	totals := totalsView{
		Subtotal:           q.Totals.Subtotal,
		DiscountPercentage: q.DiscountPercentage,
		Discount:           q.Totals.Discount,
		Total:              q.Totals.Total,
	}
	if q.Totals.Categorised {
		ppt := q.Totals.PricePerThousand
		totals.PricePerThousand = &ppt
		totals.Categories = make(map[string]money.Money, len(q.Totals.Categories))
		for cat, amount := range q.Totals.Categories {
			totals.Categories[string(cat)] = amount
		}
	}
	view := quoteView{
		RevisionNumber: q.RevisionNumber,
		ClientName:     q.ClientName,
		ProjectName:    q.ProjectName,
		Quantity:       q.Quantity,
		InsertsCount:   q.InsertsCount,
		Status:         q.Status,
		Lines:          lines,
		Totals:         totals,
	}
	if persisted {
		view.ID = q.ID.String()
		view.Reference = q.Reference
		view.BaseReference = q.BaseReference
		createdAt := q.CreatedAt
		updatedAt := q.UpdatedAt
		view.CreatedAt = &createdAt
		view.UpdatedAt = &updatedAt
	}
	return view
}
