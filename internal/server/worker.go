package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clusterfit/vikhlinin"
	"github.com/clusterfit/vikhlinin/internal/store"
	"github.com/clusterfit/vikhlinin/units"
)

// runJob executes a fit job in the background and persists the outcome.
// A request whose fingerprint matches a stored result completes
// immediately with that result attached instead of refitting.
func runJob(ctx context.Context, jm *JobManager, st store.Store, metrics *Metrics, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) { j.State = StateRunning }); err != nil {
		return err
	}

	req := job.Request
	slog.Info("Starting fit job", "job_id", jobID, "points", len(req.Radii))

	select {
	case <-ctx.Done():
		markJobFailed(jm, metrics, jobID, ctx.Err())
		return ctx.Err()
	default:
	}

	radiusUnit, err := units.Parse(req.RadiusUnit)
	if err != nil {
		markJobFailed(jm, metrics, jobID, err)
		return err
	}
	densityUnit, err := units.Parse(req.DensityUnit)
	if err != nil {
		markJobFailed(jm, metrics, jobID, err)
		return err
	}

	// Fingerprint on normalized unit symbols so spelling variants of
	// the same unit hash alike.
	fingerprint := store.Fingerprint(req.Radii, req.Density, radiusUnit.String(), densityUnit.String())
	if cached, ferr := st.FindByFingerprint(fingerprint); ferr == nil {
		slog.Info("Reusing stored fit", "job_id", jobID, "result_id", cached.ID)
		metrics.fitsTotal.WithLabelValues("cached").Inc()

		endTime := time.Now()
		return jm.UpdateJob(jobID, func(j *Job) {
			j.State = StateCompleted
			j.ResultID = cached.ID
			j.Cached = true
			j.EndTime = &endTime
		})
	}

	opts, err := fitOptions(req)
	if err != nil {
		markJobFailed(jm, metrics, jobID, err)
		return err
	}

	start := time.Now()
	profile, err := vikhlinin.NewProfile(
		units.NewSeries(req.Radii, radiusUnit),
		units.NewSeries(req.Density, densityUnit),
		opts...,
	)
	if err != nil {
		markJobFailed(jm, metrics, jobID, err)
		return err
	}
	elapsed := time.Since(start)

	result := store.NewResult(jobID, profile)
	if err := st.SaveResult(result); err != nil {
		markJobFailed(jm, metrics, jobID, fmt.Errorf("save result: %w", err))
		return err
	}
	if err := st.SaveTrace(jobID, traceEntries(profile.History)); err != nil {
		slog.Warn("Failed to save trace", "job_id", jobID, "error", err)
	}

	metrics.fitsTotal.WithLabelValues("completed").Inc()
	metrics.fitDuration.Observe(elapsed.Seconds())
	metrics.fitIterations.Observe(float64(profile.NIterations))

	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.ResultID = jobID
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Fit job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"success", profile.Success,
		"residual", profile.Residual,
		"iterations", profile.NIterations,
	)

	return nil
}

// fitOptions translates the request's preset, bounds and start vector
// into estimator options. Explicit bounds take precedence over the
// preset box.
func fitOptions(req FitRequest) ([]vikhlinin.Option, error) {
	var opts []vikhlinin.Option

	switch req.Preset {
	case "", PresetDefault:
	case PresetMACSIS:
		opts = append(opts, vikhlinin.WithBounds(vikhlinin.MACSISBounds()))
	default:
		return nil, fmt.Errorf("unknown preset: %q", req.Preset)
	}

	if len(req.Bounds) > 0 {
		lower := make([]float64, len(req.Bounds))
		upper := make([]float64, len(req.Bounds))
		for i, pair := range req.Bounds {
			lower[i] = pair[0]
			upper[i] = pair[1]
		}
		bounds, err := vikhlinin.BoundsFromVectors(lower, upper)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vikhlinin.WithBounds(bounds))
	}

	if len(req.Start) > 0 {
		startParams, err := vikhlinin.ParamsFromVector(req.Start)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vikhlinin.WithStart(startParams))
	}

	return opts, nil
}

func traceEntries(history []vikhlinin.CostSample) []store.TraceEntry {
	entries := make([]store.TraceEntry, len(history))
	for i, sample := range history {
		entries[i] = store.TraceEntry{Eval: sample.Eval, Cost: sample.Cost}
	}
	return entries
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, metrics *Metrics, jobID string, err error) {
	slog.Error("Fit job failed", "job_id", jobID, "error", err)
	metrics.fitsTotal.WithLabelValues("failed").Inc()

	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
}
