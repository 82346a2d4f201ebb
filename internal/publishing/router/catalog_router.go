package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/service"
)

type CatalogRouter struct {
	cs         *service.CatalogService
	dispatcher *service.Dispatcher
}

func NewCatalogRouter(cs *service.CatalogService, dispatcher *service.Dispatcher) *CatalogRouter {
	return &CatalogRouter{cs: cs, dispatcher: dispatcher}
}

// HandleGetCatalog handles GET /api/v1/catalog
// Response: {versi, tahap[]}
func (r *CatalogRouter) HandleGetCatalog(c *gin.Context) {
	catalog, err := r.cs.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, catalog.View())
}

// HandleAddStage handles POST /api/v1/catalog
// Request body: CreateMasterTaskDTO
func (r *CatalogRouter) HandleAddStage(c *gin.Context) {
	var req model.CreateMasterTaskDTO
	if !bindJSON(c, &req) {
		return
	}
	task, err := r.cs.Add(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// HandleUpdateStage handles PUT /api/v1/catalog/:id
// Request body: UpdateMasterTaskDTO
func (r *CatalogRouter) HandleUpdateStage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateMasterTaskDTO
	if !bindJSON(c, &req) {
		return
	}
	task, err := r.cs.Update(c.Request.Context(), id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// HandleDeleteStage handles DELETE /api/v1/catalog/:id
func (r *CatalogRouter) HandleDeleteStage(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := r.cs.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleReorderCatalog handles PUT /api/v1/catalog/order
// Request body: ReorderCommand
func (r *CatalogRouter) HandleReorderCatalog(c *gin.Context) {
	var cmd model.ReorderCommand
	if !bindJSON(c, &cmd) {
		return
	}
	result, err := r.dispatcher.Execute(c.Request.Context(), auth.GetPrincipal(c), cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	if catalog, ok := result.(*model.StageCatalog); ok {
		c.JSON(http.StatusOK, catalog.View())
		return
	}
	c.JSON(http.StatusOK, result)
}
