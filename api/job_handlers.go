package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	linkerrors "github.com/gcbaptista/go-entity-linker/internal/errors"
	"github.com/gcbaptista/go-entity-linker/internal/kb"
	"github.com/gcbaptista/go-entity-linker/model"
)

// SubmitDisambiguationJob runs a disambiguation request in the background.
// The result is attached to the job once it finishes.
func (api *API) SubmitDisambiguationJob(c *gin.Context) {
	if api.jobs == nil {
		SendNotSupportedError(c, "Background disambiguation")
		return
	}
	req, ok := api.bindRequest(c)
	if !ok {
		return
	}

	jobID, err := api.jobs.SubmitDisambiguation(api.linker, req)
	if err != nil {
		SendJobExecutionError(c, "disambiguation", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Disambiguation started",
		"job_id":  jobID,
	})
}

// SubmitImportJob imports knowledge-base data in the background.
// Request Body: model.KnowledgeBaseData as JSON, or as YAML with a YAML content type.
func (api *API) SubmitImportJob(c *gin.Context) {
	if api.jobs == nil || api.importer == nil {
		SendNotSupportedError(c, "Knowledge base import")
		return
	}

	data, ok := bindKnowledgeBaseData(c)
	if !ok {
		return
	}

	source := c.DefaultQuery("source", "api")
	jobID, err := api.jobs.SubmitImport(api.importer, data, source)
	if err != nil {
		SendJobExecutionError(c, "import", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Import of " + source + " started",
		"job_id":  jobID,
		"rows":    data.Size(),
	})
}

func bindKnowledgeBaseData(c *gin.Context) (*model.KnowledgeBaseData, bool) {
	var data *model.KnowledgeBaseData
	if isYAML(c.ContentType()) {
		raw, err := c.GetRawData()
		if err != nil {
			SendBindError(c, err)
			return nil, false
		}
		data, err = kb.ParseFixture(raw)
		if err != nil {
			SendError(c, http.StatusBadRequest, ErrorCodeInvalidFixture, err.Error())
			return nil, false
		}
	} else {
		data = &model.KnowledgeBaseData{}
		if err := c.ShouldBindJSON(data); err != nil {
			SendBindError(c, err)
			return nil, false
		}
		if err := kb.ValidateData(data); err != nil {
			SendError(c, http.StatusBadRequest, ErrorCodeInvalidFixture, err.Error())
			return nil, false
		}
	}

	if data.Size() == 0 {
		SendError(c, http.StatusBadRequest, ErrorCodeInvalidFixture, "Knowledge base data is empty")
		return nil, false
	}
	return data, true
}

func isYAML(contentType string) bool {
	switch contentType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	if api.jobs == nil {
		SendNotSupportedError(c, "Job management")
		return
	}
	jobID := c.Param("jobId")
	if validation := ValidateJobID(jobID); validation.HasErrors() {
		SendValidationError(c, validation)
		return
	}

	job, err := api.jobs.GetJob(jobID)
	if err != nil {
		SendJobNotFoundError(c, jobID)
		return
	}

	c.JSON(http.StatusOK, job)
}

// CancelJobHandler asks a pending or running job to stop
func (api *API) CancelJobHandler(c *gin.Context) {
	if api.jobs == nil {
		SendNotSupportedError(c, "Job management")
		return
	}
	jobID := c.Param("jobId")

	if err := api.jobs.CancelJob(jobID); err != nil {
		if errors.Is(err, linkerrors.ErrJobNotFound) {
			SendJobNotFoundError(c, jobID)
			return
		}
		SendError(c, http.StatusConflict, ErrorCodeJobNotCancellable, err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "Cancellation of job '" + jobID + "' requested",
		"job_id":  jobID,
	})
}

// ListJobsHandler handles requests to list jobs
func (api *API) ListJobsHandler(c *gin.Context) {
	if api.jobs == nil {
		SendNotSupportedError(c, "Job management")
		return
	}
	statusFilter, validation := ValidateJobStatus(strings.ToLower(c.Query("status")))
	if validation.HasErrors() {
		SendValidationError(c, validation)
		return
	}

	jobs := api.jobs.ListJobs(statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": len(jobs),
	})
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	if api.jobs == nil {
		SendNotSupportedError(c, "Job metrics")
		return
	}
	metrics := api.jobs.GetMetrics()

	c.JSON(http.StatusOK, gin.H{
		"metrics":          metrics,
		"success_rate":     metrics.SuccessRate,
		"current_workload": metrics.CurrentWorkload,
	})
}
