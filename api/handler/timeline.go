package handler

import (
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/pkg/httpcontext"
	"github.com/dealerdesk/backend/repository"
	"github.com/dealerdesk/backend/usecase/identity"
)

type TimelineHandler struct {
	baseHandler
	events   repository.EventRepository
	resolver *identity.Resolver
}

func NewTimelineHandler(events repository.EventRepository, resolver *identity.Resolver, adapter *httpcontext.Adapter, logger *zap.Logger) *TimelineHandler {
	return &TimelineHandler{
		baseHandler: newBaseHandler(adapter, logger),
		events:      events,
		resolver:    resolver,
	}
}

// ListByEntity returns the recorded timeline events for one entity.
func (h *TimelineHandler) ListByEntity(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	limit, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
	events, err := h.events.ListByEntity(reqCtx,
		domain.EntityType(pathValue(ctx, "entityType")),
		pathValue(ctx, "entityID"),
		limit,
	)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, events)
}
