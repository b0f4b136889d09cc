package handlers

import (
	"context"
	"time"

	"github.com/akolanti/DocVault/internal/adapter/utils"
	"github.com/akolanti/DocVault/internal/domain/jobModel"
)

// newJobData is what a request contributes to a job.
type newJobData struct {
	id         string
	traceId    string
	department string
	question   string
	files      []jobModel.StagedFile
}

func (h *Handler) createNewJob(ctx context.Context, newJob newJobData) (jobModel.Job, error) {
	_job := jobModel.Job{
		Id:          newJob.id,
		TraceId:     newJob.traceId,
		Department:  newJob.department,
		CreatedTime: time.Now(),
		Status:      jobModel.JobStatusQueued,
	}

	if len(newJob.files) > 0 {
		_job.JobType = jobModel.JobTypeIngest
		_job.CurrentStep = jobModel.IngestInit
		_job.JobPayload.IngestFiles = newJob.files
	} else {
		_job.JobType = jobModel.JobTypeQuery
		_job.CurrentStep = jobModel.UserQueryInit
		_job.JobPayload.Question = newJob.question
	}

	//blocks while the queue is full so the system is not overwhelmed
	if err := h.jobs.Submit(ctx, _job); err != nil {
		return _job, err
	}
	logRH.WithTrace(ctx).Info("Created new job", "jobId", _job.Id, "type", _job.JobType)
	return _job, nil
}

func jobDataFrom(ctx context.Context) newJobData {
	return newJobData{
		id:         utils.GetNewUUID(),
		traceId:    utils.TraceIdFromContext(ctx),
		department: utils.DepartmentFromContext(ctx),
	}
}
