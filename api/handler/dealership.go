package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/api/transport"
	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/pkg/httpcontext"
	"github.com/dealerdesk/backend/usecase/dealership"
	"github.com/dealerdesk/backend/usecase/identity"
)

type DealershipHandler struct {
	baseHandler
	svc      *dealership.Service
	resolver *identity.Resolver
}

func NewDealershipHandler(svc *dealership.Service, resolver *identity.Resolver, adapter *httpcontext.Adapter, logger *zap.Logger) *DealershipHandler {
	return &DealershipHandler{
		baseHandler: newBaseHandler(adapter, logger),
		svc:         svc,
		resolver:    resolver,
	}
}

// Get returns the caller's dealership settings.
func (h *DealershipHandler) Get(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	d, err := h.svc.Current(reqCtx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, d)
}

// Update patches the caller's dealership settings.
func (h *DealershipHandler) Update(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.DealershipUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	d, err := h.svc.Update(reqCtx, domain.DealershipUpdate{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Logo:    req.Logo,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, d)
}
