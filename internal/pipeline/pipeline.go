// Package pipeline runs the three-stage vacancy computation behind a job:
// fetch positions, determine which are vacant, enrich with reportee counts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vacancy-report-service/internal/config"
	"vacancy-report-service/internal/export"
	"vacancy-report-service/internal/models"
	"vacancy-report-service/internal/pool"
	"vacancy-report-service/internal/registry"
	"vacancy-report-service/internal/sfclient"
	"vacancy-report-service/internal/telemetry"
)

// Employment status codes meaning the seat is occupied. Any other status,
// recognized or not, means vacant; that rule comes from the business, not
// from defensiveness.
var occupiedStatuses = map[string]struct{}{
	"6021": {},
	"6025": {},
}

// Pipeline executes vacancy jobs against the HR source and writes every
// state change into the job registry.
type Pipeline struct {
	source      *sfclient.Client
	jobs        *registry.Registry
	exporter    *export.Exporter // nil disables report export
	log         *slog.Logger
	pageSize    int
	concurrency int
}

// New wires a pipeline. exporter may be nil.
func New(cfg config.Config, source *sfclient.Client, jobs *registry.Registry, exporter *export.Exporter, log *slog.Logger) *Pipeline {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 2000
	}
	concurrency := cfg.StageConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Pipeline{
		source:      source,
		jobs:        jobs,
		exporter:    exporter,
		log:         log,
		pageSize:    pageSize,
		concurrency: concurrency,
	}
}

// Run executes the full computation for jobID. It is meant to be launched
// in its own goroutine, detached from any request; every exit path,
// including a panic, ends in a terminal job-state write so no job is left
// RUNNING forever.
func (p *Pipeline) Run(ctx context.Context, jobID string, filter models.Filter) {
	log := p.log.With("job_id", jobID)

	telemetry.JobsRunning.Inc()
	defer telemetry.JobsRunning.Dec()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("vacancy pipeline panicked", "panic", rec)
			p.fail(jobID, fmt.Sprintf("unexpected error during vacancy job: %v", rec))
			telemetry.JobsFailed.Inc()
		}
	}()

	log.Info("vacancy job started", "ic", filter.IC, "emp_group", filter.EmpGroup)
	if err := p.run(ctx, jobID, filter, log); err != nil {
		log.Error("vacancy job failed", "error", err)
		p.fail(jobID, err.Error())
		telemetry.JobsFailed.Inc()
		return
	}
	telemetry.JobsSucceeded.Inc()
}

func (p *Pipeline) run(ctx context.Context, jobID string, filter models.Filter, log *slog.Logger) error {
	// Stage 1: fetch positions.
	_ = p.jobs.Update(jobID, func(j *models.Job) {
		j.Message = "Fetching positions from the HR source"
	})
	positions, err := p.source.ActivePositions(ctx, filter.IC, filter.EmpGroup, p.pageSize)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}
	_ = p.jobs.Update(jobID, func(j *models.Job) {
		j.Total = len(positions)
		j.Message = "Determining vacancy status"
	})
	log.Info("positions fetched", "count", len(positions))

	// Stage 2: determine vacancies.
	vacancies := p.determineVacancies(ctx, jobID, positions, log)
	_ = p.jobs.Update(jobID, func(j *models.Job) {
		j.TotalVacancies = len(vacancies)
		j.Message = "Fetching reportee counts"
	})
	log.Info("vacancies determined", "count", len(vacancies))

	// Stage 3: enrich with reportee counts.
	results := p.fetchReportees(ctx, vacancies, log)

	// Results and terminal status land in one registry update, so a poller
	// can never see SUCCESS without the results that go with it.
	_ = p.jobs.Update(jobID, func(j *models.Job) {
		j.Results = results
		j.Status = models.StatusSuccess
		j.Message = fmt.Sprintf("Job completed successfully. Vacancies found: %d", len(results))
	})
	log.Info("vacancy job completed", "vacancies", len(results))

	p.exportReport(ctx, jobID, filter, log)
	return nil
}

// determineVacancies checks the latest employment record of every position.
// A failed lookup leaves the position out of the vacancy set without
// aborting the batch.
func (p *Pipeline) determineVacancies(ctx context.Context, jobID string, positions []models.PositionRecord, log *slog.Logger) []models.PositionRecord {
	outcomes := pool.RunWithHook(ctx, positions, p.concurrency,
		func(ctx context.Context, pos models.PositionRecord) (bool, error) {
			emp, err := p.source.LatestEmployment(ctx, pos.Code)
			if err != nil {
				return false, err
			}
			if emp == nil {
				return true, nil
			}
			_, occupied := occupiedStatuses[emp.EmplStatus]
			return !occupied, nil
		},
		func(int) {
			_ = p.jobs.Update(jobID, func(j *models.Job) {
				j.Progress++
			})
		})

	var vacancies []models.PositionRecord
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			log.Warn("employment lookup failed, treating position as occupied",
				"position", positions[i].Code, "error", outcome.Err)
			continue
		}
		if outcome.Value {
			vacancies = append(vacancies, positions[i])
		}
	}
	return vacancies
}

// fetchReportees counts active child positions for every vacancy. A failed
// count degrades to zero; no vacancy is dropped here.
func (p *Pipeline) fetchReportees(ctx context.Context, vacancies []models.PositionRecord, log *slog.Logger) []models.EnrichedVacancy {
	outcomes := pool.Run(ctx, vacancies, p.concurrency,
		func(ctx context.Context, pos models.PositionRecord) (int, error) {
			return p.source.ActiveReporteeCount(ctx, pos.Code)
		})

	results := make([]models.EnrichedVacancy, len(vacancies))
	for i, pos := range vacancies {
		count := 0
		if outcomes[i].Err != nil {
			log.Warn("reportee count failed, recording zero",
				"position", pos.Code, "error", outcomes[i].Err)
		} else {
			count = outcomes[i].Value
		}
		results[i] = models.EnrichedVacancy{
			PositionCode:       pos.Code,
			ExternalName:       pos.ExternalName,
			EffectiveStartDate: pos.EffectiveStartDate,
			ReporteeCount:      count,
		}
	}
	return results
}

// exportReport uploads the finished report when a bucket is configured.
// Best effort: an upload failure never changes job state.
func (p *Pipeline) exportReport(ctx context.Context, jobID string, filter models.Filter, log *slog.Logger) {
	if p.exporter == nil {
		return
	}
	job, err := p.jobs.Snapshot(jobID)
	if err != nil {
		return
	}
	report := export.Report{
		JobID:          jobID,
		IC:             filter.IC,
		EmpGroup:       filter.EmpGroup,
		TotalPositions: job.Total,
		TotalVacancies: job.TotalVacancies,
		Results:        job.Results,
		CompletedAt:    time.Now().UTC(),
	}
	if err := p.exporter.Upload(ctx, report); err != nil {
		log.Warn("report export failed", "error", err)
		return
	}
	telemetry.ReportsExported.Inc()
	log.Info("report exported", "bucket_key", jobID)
}

// fail writes a terminal ERROR unless the job already reached a terminal
// state.
func (p *Pipeline) fail(jobID, message string) {
	_ = p.jobs.Update(jobID, func(j *models.Job) {
		if j.Status != models.StatusRunning {
			return
		}
		j.Status = models.StatusError
		j.Message = message
	})
}
