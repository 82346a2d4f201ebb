package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/service"
)

// BookRouter serves books and the task rows of their pipelines.
type BookRouter struct {
	ps         *service.PipelineService
	dispatcher *service.Dispatcher
}

func NewBookRouter(ps *service.PipelineService, dispatcher *service.Dispatcher) *BookRouter {
	return &BookRouter{ps: ps, dispatcher: dispatcher}
}

// HandleListBooks handles GET /api/v1/books
// Optional Query Filters: status, penerbit_id, pic_id, deadline, offset, limit
func (r *BookRouter) HandleListBooks(c *gin.Context) {
	var filter model.BookFilter
	var err error

	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseBookStatus(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("deadline"); raw != "" {
		class, err := model.ParseDeadlineClass(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Deadline = &class
	}
	if filter.PublisherID, err = queryUUID(c, "penerbit_id"); err != nil {
		writeError(c, err)
		return
	}
	if filter.PICID, err = queryUUID(c, "pic_id"); err != nil {
		writeError(c, err)
		return
	}
	if filter.Offset, filter.Limit, err = pagination(c); err != nil {
		writeError(c, err)
		return
	}

	result, err := r.ps.ListBooks(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGetPipeline handles GET /api/v1/books/:id
// Response: PipelineView
func (r *BookRouter) HandleGetPipeline(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := r.ps.GetPipeline(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleRecordPrintDate handles POST /api/v1/books/:id/print-date
// Request body: RecordPrintDateDTO
func (r *BookRouter) HandleRecordPrintDate(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req model.RecordPrintDateDTO
	if !bindJSON(c, &req) {
		return
	}
	view, err := r.ps.RecordPrintDate(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleCancelBook handles POST /api/v1/books/:id/cancel
func (r *BookRouter) HandleCancelBook(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := r.ps.CancelBook(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleDeleteBook handles DELETE /api/v1/books/:id
func (r *BookRouter) HandleDeleteBook(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := r.ps.DeleteBook(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAdvanceTask handles POST /api/v1/tasks/:id/advance
// Request body: AdvanceCommand
// Response: PipelineView of the task's book
func (r *BookRouter) HandleAdvanceTask(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd model.AdvanceCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.TaskProgressID = id

	view, err := r.dispatcher.Execute(c.Request.Context(), auth.GetPrincipal(c), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// HandleAssignTask handles PUT /api/v1/tasks/:id
// Request body: AssignTaskDTO
func (r *BookRouter) HandleAssignTask(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req model.AssignTaskDTO
	if !bindJSON(c, &req) {
		return
	}
	task, err := r.ps.AssignTask(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
