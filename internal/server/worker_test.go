package server

import (
	"context"
	"testing"

	"github.com/clusterfit/vikhlinin"
)

func TestFitOptions(t *testing.T) {
	base := serverFitRequest()

	cases := []struct {
		name    string
		mutate  func(*FitRequest)
		want    int
		wantErr bool
	}{
		{"no options", func(r *FitRequest) {}, 0, false},
		{"default preset", func(r *FitRequest) { r.Preset = PresetDefault }, 0, false},
		{"macsis preset", func(r *FitRequest) { r.Preset = PresetMACSIS }, 1, false},
		{"unknown preset", func(r *FitRequest) { r.Preset = "bogus" }, 0, true},
		{"custom start", func(r *FitRequest) {
			r.Start = []float64{2e-3, 0.1, 0.6, 0.5, 0.4, 1.2}
		}, 1, false},
		{"short start", func(r *FitRequest) { r.Start = []float64{1, 2} }, 0, true},
		{"custom bounds", func(r *FitRequest) {
			r.Bounds = [][2]float64{{0, 1}, {0, 1}, {0, 1}, {0, 2}, {0, 2}, {0, 5}}
		}, 1, false},
		{"inverted bounds", func(r *FitRequest) {
			r.Bounds = [][2]float64{{0, 1}, {1, 0}, {0, 1}, {0, 2}, {0, 2}, {0, 5}}
		}, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)

			opts, err := fitOptions(req)
			if tc.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("fitOptions failed: %v", err)
			}
			if len(opts) != tc.want {
				t.Errorf("Got %d options, want %d", len(opts), tc.want)
			}
		})
	}
}

func TestTraceEntries(t *testing.T) {
	history := []vikhlinin.CostSample{
		{Eval: 1, Cost: 5.0},
		{Eval: 2, Cost: 3.5},
		{Eval: 3, Cost: 0.25},
	}

	entries := traceEntries(history)
	if len(entries) != 3 {
		t.Fatalf("Got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Eval != history[i].Eval || e.Cost != history[i].Cost {
			t.Errorf("entry %d = %+v, want %+v", i, e, history[i])
		}
	}
}

func TestRunJob_MissingJob(t *testing.T) {
	s := newTestServer(t)

	err := runJob(context.Background(), s.jobManager, s.store, s.metrics, "nonexistent")
	if err == nil {
		t.Error("Expected an error for a missing job")
	}
}

func TestRunJob_InvalidProfileFails(t *testing.T) {
	s := newTestServer(t)

	req := serverFitRequest()
	req.Density[2] = -1

	job := s.jobManager.CreateJob(req)
	if err := runJob(context.Background(), s.jobManager, s.store, s.metrics, job.ID); err == nil {
		t.Fatal("Expected runJob to fail")
	}

	updated, _ := s.jobManager.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("State = %s, want failed", updated.State)
	}
	if updated.Error == "" {
		t.Error("Failed job should carry an error message")
	}
	if updated.EndTime == nil {
		t.Error("Failed job should have an end time")
	}
}

func TestRunJob_CancelledContext(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := s.jobManager.CreateJob(serverFitRequest())
	if err := runJob(ctx, s.jobManager, s.store, s.metrics, job.ID); err == nil {
		t.Fatal("Expected runJob to fail on a cancelled context")
	}

	updated, _ := s.jobManager.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("State = %s, want failed", updated.State)
	}
}

func TestRunJob_MACSISPreset(t *testing.T) {
	s := newTestServer(t)

	truth := vikhlinin.Params{N0: 2e-3, RCore: 0.05, RScale: 0.55, Alpha: 1.5, Beta: 0.45, Epsilon: 2.2}
	radii := []float64{0.02, 0.05, 0.12, 0.3, 0.7, 1.5}

	req := FitRequest{
		Radii:       radii,
		Density:     vikhlinin.Density(radii, truth),
		RadiusUnit:  "Mpc",
		DensityUnit: "cm**-3",
		Preset:      PresetMACSIS,
		Start:       []float64{2.5e-3, 0.06, 0.6, 1.5, 0.5, 2.5},
	}

	job := s.jobManager.CreateJob(req)
	if err := runJob(context.Background(), s.jobManager, s.store, s.metrics, job.ID); err != nil {
		t.Fatalf("runJob failed: %v", err)
	}

	updated, _ := s.jobManager.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Fatalf("State = %s, want completed", updated.State)
	}

	result, err := s.store.LoadResult(updated.ResultID)
	if err != nil {
		t.Fatalf("LoadResult failed: %v", err)
	}
	if result.Params.Alpha < 1.49999 || result.Params.Alpha > 1.500001 {
		t.Errorf("alpha = %g, want within the MACSIS box", result.Params.Alpha)
	}
}
