package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/internal/services"
	"github.com/dealerdesk/backend/pkg/httpcontext"
	"github.com/dealerdesk/backend/usecase/identity"
)

type AlertsHandler struct {
	baseHandler
	aggregator *services.AlertAggregator
	resolver   *identity.Resolver
}

func NewAlertsHandler(aggregator *services.AlertAggregator, resolver *identity.Resolver, adapter *httpcontext.Adapter, logger *zap.Logger) *AlertsHandler {
	return &AlertsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		aggregator:  aggregator,
		resolver:    resolver,
	}
}

// Counts returns the last computed alert counters.
func (h *AlertsHandler) Counts(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	counts, updatedAt := h.aggregator.Counts()
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"counts":     counts,
		"total":      counts.Total(),
		"updated_at": updatedAt,
	})
}

// Refresh forces an immediate recount.
func (h *AlertsHandler) Refresh(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.aggregator.Invalidate()
	h.respondSuccess(ctx, http.StatusAccepted, nil)
}
