package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/service"
)

type ReportRouter struct {
	rs *service.ReportService
}

func NewReportRouter(rs *service.ReportService) *ReportRouter {
	return &ReportRouter{rs: rs}
}

// HandleGetReport handles GET /api/v1/reports
// Response: Report
func (r *ReportRouter) HandleGetReport(c *gin.Context) {
	report, err := r.rs.Build(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleExportReport handles POST /api/v1/reports/export
// Response: ExportResult
func (r *ReportRouter) HandleExportReport(c *gin.Context) {
	result, err := r.rs.Export(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
