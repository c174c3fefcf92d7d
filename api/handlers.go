package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gcbaptista/go-entity-linker/internal/disambiguation"
	"github.com/gcbaptista/go-entity-linker/internal/jobs"
	"github.com/gcbaptista/go-entity-linker/model"
	"github.com/gcbaptista/go-entity-linker/services"
)

// Options carries the optional collaborators of the API.
// Routes whose collaborator is nil answer 501.
type Options struct {
	Jobs            *jobs.Manager
	Analytics       services.AnalyticsTracker
	Importer        services.KnowledgeBaseImporter
	Logger          *zap.Logger
	MaxRequestBytes int64
}

// API holds dependencies for API handlers, primarily the disambiguation service.
type API struct {
	linker    *disambiguation.Service
	jobs      *jobs.Manager
	analytics services.AnalyticsTracker
	importer  services.KnowledgeBaseImporter
	logger    *zap.Logger
}

// NewAPI creates a new API handler structure.
func NewAPI(linker *disambiguation.Service, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		linker:    linker,
		jobs:      opts.Jobs,
		analytics: opts.Analytics,
		importer:  opts.Importer,
		logger:    logger,
	}
}

// SetupRoutes defines all the API routes for the entity linker.
func SetupRoutes(router *gin.Engine, linker *disambiguation.Service, opts Options) {
	apiHandler := NewAPI(linker, opts)

	router.Use(RequestIDMiddleware(), CORSMiddleware(), LoggerMiddleware(apiHandler.logger))
	if opts.MaxRequestBytes > 0 {
		router.Use(RequestSizeLimitMiddleware(opts.MaxRequestBytes))
	}

	// Health, metrics and analytics routes
	router.GET("/health", apiHandler.HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/analytics", apiHandler.GetAnalyticsHandler)
	router.GET("/settings", apiHandler.GetSettingsHandler)

	// Synchronous disambiguation
	router.POST("/disambiguate", apiHandler.DisambiguateHandler)

	// Job management routes
	jobRoutes := router.Group("/jobs")
	{
		jobRoutes.GET("", apiHandler.ListJobsHandler)                       // List jobs, optionally by status
		jobRoutes.GET("/metrics", apiHandler.GetJobMetricsHandler)          // Get job performance metrics
		jobRoutes.POST("/disambiguate", apiHandler.SubmitDisambiguationJob) // Disambiguate in the background
		jobRoutes.POST("/import", apiHandler.SubmitImportJob)               // Import knowledge-base data
		jobRoutes.GET("/:jobId", apiHandler.GetJobHandler)                  // Get job status by ID
		jobRoutes.POST("/:jobId/cancel", apiHandler.CancelJobHandler)       // Cancel a pending or running job
	}
}

// DisambiguateHandler runs one request and renders the result as JSON or XML.
// Request Body: model.DisambiguationRequest as JSON, XML or form fields.
// The result is rendered for failed runs too, with a status matching the failure.
func (api *API) DisambiguateHandler(c *gin.Context) {
	req, ok := api.bindRequest(c)
	if !ok {
		return
	}

	result, err := api.linker.Run(c.Request.Context(), req)
	status, code := runErrorStatus(err)
	if code != "" {
		c.Header("X-Error-Code", string(code))
	}
	renderResult(c, status, result)
}

// GetSettingsHandler returns the settings every run uses
func (api *API) GetSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.linker.Settings())
}

func (api *API) bindRequest(c *gin.Context) (model.DisambiguationRequest, bool) {
	var req model.DisambiguationRequest
	if err := c.ShouldBind(&req); err != nil {
		SendBindError(c, err)
		return req, false
	}
	if validation := ValidateDisambiguationRequest(&req); validation.HasErrors() {
		SendValidationError(c, validation)
		return req, false
	}
	return req, true
}

// renderResult writes result in the format the caller asked for.
// ?format=xml or ?format=json wins over the Accept header; JSON is the default.
func renderResult(c *gin.Context, status int, result *model.Result) {
	if wantsXML(c) {
		c.XML(status, result)
		return
	}
	c.JSON(status, result)
}

func wantsXML(c *gin.Context) bool {
	switch strings.ToLower(c.Query("format")) {
	case "xml":
		return true
	case "json":
		return false
	}
	format := c.NegotiateFormat(gin.MIMEJSON, gin.MIMEXML, gin.MIMEXML2)
	return format == gin.MIMEXML || format == gin.MIMEXML2
}
