package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/api/transport"
	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/pkg/httpcontext"
	"github.com/dealerdesk/backend/usecase/identity"
	"github.com/dealerdesk/backend/usecase/leads"
)

type LeadHandler struct {
	baseHandler
	svc      *leads.Service
	resolver *identity.Resolver
}

func NewLeadHandler(svc *leads.Service, resolver *identity.Resolver, adapter *httpcontext.Adapter, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		baseHandler: newBaseHandler(adapter, logger),
		svc:         svc,
		resolver:    resolver,
	}
}

// List synchronizes and returns the leads list for the caller's filters.
func (h *LeadHandler) List(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	args := ctx.QueryArgs()
	filter := leads.Filter{
		Stage:      domain.LeadStage(args.Peek("stage")),
		AssignedTo: string(args.Peek("assigned")),
		Mine:       args.GetBool("mine"),
		Overdue:    args.GetBool("overdue"),
	}

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
		"items":    view.Items,
		"page":     view.Page,
		"has_more": view.HasMore,
	})
}

// Get returns a single lead.
func (h *LeadHandler) Get(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	lead, err := h.svc.Get(reqCtx, pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, lead)
}

// Create inserts a new lead.
func (h *LeadHandler) Create(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.LeadRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	lead, err := h.svc.Create(reqCtx, &domain.Lead{
		Name:           req.Name,
		Phone:          req.Phone,
		Interest:       req.Interest,
		Stage:          domain.LeadStage(req.Stage),
		Notes:          req.Notes,
		AssignedTo:     req.AssignedTo,
		VehicleID:      req.VehicleID,
		NextFollowUpAt: req.NextFollowUpAt,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, lead)
}

// Update replaces the editable fields of a lead.
func (h *LeadHandler) Update(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	lead, err := h.svc.Get(reqCtx, pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.LeadRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	lead.Name = req.Name
	lead.Phone = req.Phone
	lead.Interest = req.Interest
	lead.Notes = req.Notes
	lead.VehicleID = req.VehicleID
	lead.NextFollowUpAt = req.NextFollowUpAt

	if err := h.svc.Update(reqCtx, lead); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, lead)
}

// UpdateStage moves a lead through the pipeline.
func (h *LeadHandler) UpdateStage(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.LeadStageRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil || req.Stage == "" {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	if err := h.svc.UpdateStage(reqCtx, pathValue(ctx, "id"), domain.LeadStage(req.Stage), req.LostReason); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// Assign hands a lead to a user; an empty user id unassigns it.
func (h *LeadHandler) Assign(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.AssignRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	if err := h.svc.Assign(reqCtx, pathValue(ctx, "id"), req.UserID); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// MarkContacted stamps the lead's last contact time.
func (h *LeadHandler) MarkContacted(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := h.svc.MarkContacted(reqCtx, pathValue(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

// SetFollowUp schedules or clears the next follow-up.
func (h *LeadHandler) SetFollowUp(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.FollowUpRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	if err := h.svc.SetFollowUp(reqCtx, pathValue(ctx, "id"), req.At); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}
