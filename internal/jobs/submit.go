package jobs

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gcbaptista/go-entity-linker/model"
	"github.com/gcbaptista/go-entity-linker/services"
)

// SubmitDisambiguation runs req through d in the background and returns the job ID.
// The result is attached to the job whether the run succeeds or not.
func (m *Manager) SubmitDisambiguation(d services.Disambiguator, req model.DisambiguationRequest) (string, error) {
	metadata := map[string]string{"text_length": strconv.Itoa(len(req.Text))}
	if len(req.SurfaceForms) > 0 {
		metadata["surface_forms"] = strings.Join(req.SurfaceForms, ",")
	}
	jobID := m.CreateJob(model.JobTypeDisambiguate, "", metadata)

	err := m.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		m.UpdateJobProgress(jobID, 0, 1, "Disambiguating mentions")
		result := d.Disambiguate(ctx, req)
		m.SetJobResult(jobID, result)
		if err := ctx.Err(); err != nil {
			return err
		}
		m.UpdateJobProgress(jobID, 1, 1, "Disambiguation finished")
		if result.Failed() {
			return errors.New(strings.Join(result.Errors, "; "))
		}
		return nil
	})
	if err != nil {
		m.updateJobStatus(jobID, model.JobStatusCancelled, err.Error())
		return jobID, err
	}
	return jobID, nil
}

// SubmitImport loads data into importer in the background and returns the job ID.
// source names where the data came from.
func (m *Manager) SubmitImport(importer services.KnowledgeBaseImporter, data *model.KnowledgeBaseData, source string) (string, error) {
	jobID := m.CreateJob(model.JobTypeImport, source, map[string]string{
		"pages":      strconv.Itoa(len(data.Pages)),
		"dictionary": strconv.Itoa(len(data.Dictionary)),
		"links":      strconv.Itoa(len(data.Links)),
	})

	err := m.ExecuteJob(jobID, func(ctx context.Context, job *model.Job) error {
		return importer.Import(ctx, data, func(done, total int) {
			m.UpdateJobProgress(jobID, done, total, "Importing knowledge base")
		})
	})
	if err != nil {
		m.updateJobStatus(jobID, model.JobStatusCancelled, err.Error())
		return jobID, err
	}
	return jobID, nil
}
