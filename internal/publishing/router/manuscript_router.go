package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/service"
)

type ManuscriptRouter struct {
	ms         *service.ManuscriptService
	dispatcher *service.Dispatcher
}

func NewManuscriptRouter(ms *service.ManuscriptService, dispatcher *service.Dispatcher) *ManuscriptRouter {
	return &ManuscriptRouter{ms: ms, dispatcher: dispatcher}
}

// HandleCreateManuscript handles POST /api/v1/manuscripts
// Request body: CreateManuscriptDTO
// Response: Manuscript
func (r *ManuscriptRouter) HandleCreateManuscript(c *gin.Context) {
	var req model.CreateManuscriptDTO
	if !bindJSON(c, &req) {
		return
	}

	manuscript, err := r.ms.Create(c.Request.Context(), auth.GetPrincipal(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, manuscript)
}

// HandleListManuscripts handles GET /api/v1/manuscripts
// Optional Query Filters: status, penulis_id, offset, limit
func (r *ManuscriptRouter) HandleListManuscripts(c *gin.Context) {
	var filter model.ManuscriptFilter
	var err error

	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseManuscriptStatus(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Status = &status
	}
	if filter.AuthorID, err = queryUUID(c, "penulis_id"); err != nil {
		writeError(c, err)
		return
	}
	if filter.Offset, filter.Limit, err = pagination(c); err != nil {
		writeError(c, err)
		return
	}

	result, err := r.ms.ListManuscripts(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGetManuscript handles GET /api/v1/manuscripts/:id
func (r *ManuscriptRouter) HandleGetManuscript(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	manuscript, err := r.ms.GetManuscript(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, manuscript)
}

// HandleUpdateManuscript handles PUT /api/v1/manuscripts/:id
// Request body: UpdateManuscriptDTO
func (r *ManuscriptRouter) HandleUpdateManuscript(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateManuscriptDTO
	if !bindJSON(c, &req) {
		return
	}

	manuscript, err := r.ms.Update(c.Request.Context(), auth.GetPrincipal(c), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, manuscript)
}

// HandleSubmitManuscript handles POST /api/v1/manuscripts/:id/submit
func (r *ManuscriptRouter) HandleSubmitManuscript(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	r.execute(c, model.SubmitCommand{ManuscriptID: id})
}

// HandleApproveManuscript handles POST /api/v1/manuscripts/:id/approve
// Request body: ApproveCommand
// Response: ApprovalResult (manuscript, book and its pipeline)
func (r *ManuscriptRouter) HandleApproveManuscript(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd model.ApproveCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.ManuscriptID = id
	r.execute(c, cmd)
}

// HandleRejectManuscript handles POST /api/v1/manuscripts/:id/reject
// Request body: RejectCommand
func (r *ManuscriptRouter) HandleRejectManuscript(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var cmd model.RejectCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.ManuscriptID = id
	r.execute(c, cmd)
}

// HandleArchiveManuscript handles POST /api/v1/manuscripts/:id/archive
// Request body: ArchiveManuscriptDTO (optional)
func (r *ManuscriptRouter) HandleArchiveManuscript(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req model.ArchiveManuscriptDTO
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	manuscript, err := r.ms.Archive(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, manuscript)
}

func (r *ManuscriptRouter) execute(c *gin.Context, cmd model.Command) {
	result, err := r.dispatcher.Execute(c.Request.Context(), auth.GetPrincipal(c), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
