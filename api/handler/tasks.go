package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/api/transport"
	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/pkg/httpcontext"
	"github.com/dealerdesk/backend/usecase/identity"
	"github.com/dealerdesk/backend/usecase/tasks"
)

type TaskHandler struct {
	baseHandler
	svc      *tasks.Service
	resolver *identity.Resolver
}

func NewTaskHandler(svc *tasks.Service, resolver *identity.Resolver, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		svc:         svc,
		resolver:    resolver,
	}
}

// List synchronizes and returns the tasks list for the caller's filters.
func (h *TaskHandler) List(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	args := ctx.QueryArgs()
	filter := tasks.Filter{
		Status:     domain.TaskStatus(args.Peek("status")),
		AssignedTo: string(args.Peek("assigned")),
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

// Agenda returns the synchronized tasks partitioned into agenda buckets.
func (h *TaskHandler) Agenda(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := h.svc.Sync(reqCtx); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, h.svc.Agenda())
}

// Create inserts a new task.
func (h *TaskHandler) Create(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.TaskRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	task, err := h.svc.Create(reqCtx, &domain.Task{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Audience:    domain.TaskAudience(req.Audience),
		AssignedTo:  req.AssignedTo,
		DueAt:       req.DueAt,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, task)
}

// Update replaces the editable fields of a task.
func (h *TaskHandler) Update(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}

	current, err := h.svc.Get(reqCtx, pathValue(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	var req transport.TaskRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.ErrInvalidPayload)
		return
	}

	current.Title = req.Title
	current.Description = req.Description
	current.Priority = req.Priority
	if req.Audience != "" {
		current.Audience = domain.TaskAudience(req.Audience)
	}
	current.AssignedTo = req.AssignedTo
	current.DueAt = req.DueAt

	if err := h.svc.Update(reqCtx, current); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, current)
}

// Complete marks a task done.
func (h *TaskHandler) Complete(ctx *fasthttp.RequestCtx) {
	h.setStatus(ctx, h.svc.Complete)
}

// Reopen returns a finished task to the open state.
func (h *TaskHandler) Reopen(ctx *fasthttp.RequestCtx) {
	h.setStatus(ctx, h.svc.Reopen)
}

// Cancel marks a task canceled.
func (h *TaskHandler) Cancel(ctx *fasthttp.RequestCtx) {
	h.setStatus(ctx, h.svc.Cancel)
}

// Delete removes a task.
func (h *TaskHandler) Delete(ctx *fasthttp.RequestCtx) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := h.svc.Delete(reqCtx, pathValue(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}

func (h *TaskHandler) setStatus(ctx *fasthttp.RequestCtx, op func(ctx context.Context, id string) error) {
	reqCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if _, err := h.resolver.Resolve(reqCtx, userID(ctx)); err != nil {
		h.respondError(ctx, err)
		return
	}
	if err := op(reqCtx, pathValue(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, nil)
}
