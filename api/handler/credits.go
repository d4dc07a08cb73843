package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/api/transport"
	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/pkg/httpcontext"
	"github.com/dealerdesk/backend/usecase/credits"
	"github.com/dealerdesk/backend/usecase/identity"
)

type CreditHandler struct {
	baseHandler
	svc      *credits.Service
	resolver *identity.Resolver
}

func NewCreditHandler(svc *credits.Service, resolver *identity.Resolver, adapter *httpcontext.Adapter, logger *zap.Logger) *CreditHandler {
	return &CreditHandler{
		baseHandler: newBaseHandler(adapter, logger),
		svc:         svc,
		resolver:    resolver,
	}
}

// List synchronizes the credits list and returns schedule-decorated rows in
// urgency order.
func (h *CreditHandler) List(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	args := ctx.QueryArgs()
	filter := credits.Filter{Status: domain.CreditStatus(args.Peek("status"))}

	view, err := h.svc.View(reqCtx, filter, string(args.Peek("search")))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if args.GetBool("more") {
		if err := h.svc.LoadMore(reqCtx); err != nil {
			h.respondError(ctx, err)
			return
		}
		view = h.svc.Snapshot()
	}

	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"items":    h.svc.Rows(),
		"page":     view.Page,
		"has_more": view.HasMore,
	})
}

// Get returns a single credit.
func (h *CreditHandler) Get(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	credit, err := h.svc.Get(reqCtx, pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, credit)
}

// Create inserts a new credit.
func (h *CreditHandler) Create(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.CreditRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	credit, err := h.svc.Create(reqCtx, &domain.Credit{
		ClientName:       req.ClientName,
		ClientPhone:      req.ClientPhone,
		VehicleModel:     req.VehicleModel,
		VehicleVersion:   req.VehicleVersion,
		VehicleYear:      req.VehicleYear,
		VehicleKms:       req.VehicleKms,
		InstallmentAmt:   req.InstallmentAmt,
		InstallmentCount: req.InstallmentCount,
		StartDate:        req.StartDate,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, credit)
}

// Update replaces the editable fields of a credit.
func (h *CreditHandler) Update(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	credit, err := h.svc.Get(reqCtx, pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.CreditRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	credit.ClientName = req.ClientName
	credit.ClientPhone = req.ClientPhone
	credit.VehicleModel = req.VehicleModel
	credit.VehicleVersion = req.VehicleVersion
	credit.VehicleYear = req.VehicleYear
	credit.VehicleKms = req.VehicleKms
	credit.InstallmentAmt = req.InstallmentAmt
	credit.InstallmentCount = req.InstallmentCount
	credit.StartDate = req.StartDate

	if err := h.svc.Update(reqCtx, credit); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, credit)
}

// Close marks a plan closed.
func (h *CreditHandler) Close(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := h.svc.Close(reqCtx, pathValue(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// Reopen returns a closed plan to the active state.
func (h *CreditHandler) Reopen(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := h.svc.Reopen(reqCtx, pathValue(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// Reminder renders the WhatsApp payment reminder for a credit.
func (h *CreditHandler) Reminder(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	credit, err := h.svc.Get(reqCtx, pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	message, phone := h.svc.Reminder(credit)
	if message == "" {
		h.respondError(ctx, domain.NewError(domain.ErrCodeInvalid, "credit has no active schedule"))
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{
		"message": message,
		"phone":   phone,
	})
}
