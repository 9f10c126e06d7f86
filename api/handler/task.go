package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/todolist/api/transport"
	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/pkg/httpcontext"
	taskUC "github.com/fastygo/todolist/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List an owner's tasks, optionally filtered by status
// @Tags tasks
// @Router /api/v1/owners/{id}/tasks [get]
func (h *TaskHandler) List(ctx *fasthttp.RequestCtx) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	status := taskUC.Status(ctx.QueryArgs().Peek("status"))
	tasks, stats, err := h.uc.Overview(stdCtx, ownerID, status)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(tasks, stats))
}

// @Summary Create a pending task
// @Tags tasks
// @Router /api/v1/owners/{id}/tasks [post]
func (h *TaskHandler) Create(ctx *fasthttp.RequestCtx) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}
	var req transport.TaskRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateTask(stdCtx, ownerID, req.Title)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Completion counters for an owner
// @Tags tasks
// @Router /api/v1/owners/{id}/tasks/stats [get]
func (h *TaskHandler) Stats(ctx *fasthttp.RequestCtx) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stats, err := h.uc.Stats(stdCtx, ownerID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, stats)
}

// @Summary Complete every pending task
// @Tags tasks
// @Router /api/v1/owners/{id}/tasks/complete-all [post]
func (h *TaskHandler) CompleteAll(ctx *fasthttp.RequestCtx) {
	h.bulk(ctx, h.uc.MarkAllCompleted)
}

// @Summary Reopen every completed task
// @Tags tasks
// @Router /api/v1/owners/{id}/tasks/pending-all [post]
func (h *TaskHandler) PendingAll(ctx *fasthttp.RequestCtx) {
	h.bulk(ctx, h.uc.MarkAllPending)
}

// @Summary Delete every completed task
// @Tags tasks
// @Router /api/v1/owners/{id}/tasks/delete-completed [post]
func (h *TaskHandler) DeleteCompleted(ctx *fasthttp.RequestCtx) {
	h.bulk(ctx, h.uc.DeleteCompleted)
}

// @Summary Get a task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) Get(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	taskID, ok := h.ownedTask(ctx, stdCtx)
	if !ok {
		return
	}
	task, err := h.uc.FindTask(stdCtx, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if task == nil {
		h.respondError(ctx, domain.ErrTaskNotFound)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// @Summary Rename a task
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTitle(ctx *fasthttp.RequestCtx) {
	var req transport.TaskRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	taskID, ok := h.ownedTask(ctx, stdCtx)
	if !ok {
		return
	}
	updated, err := h.uc.UpdateTitle(stdCtx, taskID, req.Title)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// @Summary Delete a task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) Delete(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	taskID, ok := h.ownedTask(ctx, stdCtx)
	if !ok {
		return
	}
	if err := h.uc.DeleteTask(stdCtx, taskID); err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.SetStatusCode(http.StatusNoContent)
}

// @Summary Flip completion
// @Tags tasks
// @Router /api/v1/tasks/{id}/toggle [put]
func (h *TaskHandler) Toggle(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, h.uc.ToggleCompletion)
}

// @Summary Mark completed
// @Tags tasks
// @Router /api/v1/tasks/{id}/complete [put]
func (h *TaskHandler) Complete(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, h.uc.MarkCompleted)
}

// @Summary Mark pending
// @Tags tasks
// @Router /api/v1/tasks/{id}/pending [put]
func (h *TaskHandler) Pending(ctx *fasthttp.RequestCtx) {
	h.transition(ctx, h.uc.MarkPending)
}

// @Summary Task activity log
// @Tags tasks
// @Router /api/v1/tasks/{id}/events [get]
func (h *TaskHandler) Events(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	callerID, ok := h.callerID(ctx)
	if !ok {
		return
	}
	taskID, ok := h.pathID(ctx, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(string(ctx.QueryArgs().Peek("limit")))
	events, err := h.uc.TaskEvents(stdCtx, callerID, taskID, limit)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, events)
}

func (h *TaskHandler) bulk(ctx *fasthttp.RequestCtx, op func(context.Context, int64) (int, error)) {
	ownerID, ok := h.owner(ctx)
	if !ok {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	count, err := op(stdCtx, ownerID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.CountResponse{Count: count})
}

func (h *TaskHandler) transition(ctx *fasthttp.RequestCtx, op func(context.Context, int64) (*domain.Task, error)) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	taskID, ok := h.ownedTask(ctx, stdCtx)
	if !ok {
		return
	}
	task, err := op(stdCtx, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, task)
}

// owner resolves the {id} owner path parameter; callers may only address their own list.
func (h *TaskHandler) owner(ctx *fasthttp.RequestCtx) (int64, bool) {
	callerID, ok := h.callerID(ctx)
	if !ok {
		return 0, false
	}
	ownerID, ok := h.pathID(ctx, "id")
	if !ok {
		return 0, false
	}
	if ownerID != callerID {
		h.respondError(ctx, domain.ErrOwnershipMismatch)
		return 0, false
	}
	return ownerID, true
}

// ownedTask resolves the {id} task path parameter and checks it belongs to the caller.
func (h *TaskHandler) ownedTask(ctx *fasthttp.RequestCtx, stdCtx context.Context) (int64, bool) {
	callerID, ok := h.callerID(ctx)
	if !ok {
		return 0, false
	}
	taskID, ok := h.pathID(ctx, "id")
	if !ok {
		return 0, false
	}
	owns, err := h.uc.OwnsTask(stdCtx, callerID, taskID)
	if err != nil {
		h.respondError(ctx, err)
		return 0, false
	}
	if !owns {
		h.respondError(ctx, domain.ErrOwnershipMismatch)
		return 0, false
	}
	return taskID, true
}
