package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/clusterfit/vikhlinin"
	"github.com/clusterfit/vikhlinin/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	return NewServer(":0", st)
}

// serverFitRequest builds a request whose densities follow the model
// exactly, so the fit converges fast with a near-zero residual.
func serverFitRequest() FitRequest {
	truth := vikhlinin.Params{N0: 2e-3, RCore: 0.12, RScale: 0.7, Alpha: 0.6, Beta: 0.45, Epsilon: 1.1}
	radii := []float64{0.05, 0.1, 0.25, 0.6, 1.2, 2.5}

	return FitRequest{
		Radii:       radii,
		Density:     vikhlinin.Density(radii, truth),
		RadiusUnit:  "Mpc",
		DensityUnit: "cm**-3",
	}
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func createFit(t *testing.T, h http.Handler, req FitRequest) Job {
	t.Helper()

	w := doRequest(t, h, http.MethodPost, "/api/v1/fits", req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", w.Code, w.Body.String())
	}

	var job Job
	if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	return job
}

func waitForJob(t *testing.T, h http.Handler, id string) fitStatusResponse {
	t.Helper()

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		w := doRequest(t, h, http.MethodGet, "/api/v1/fits/"+id, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status request returned %d: %s", w.Code, w.Body.String())
		}

		var status fitStatusResponse
		if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
			t.Fatalf("decode status: %v", err)
		}

		switch status.State {
		case StateCompleted:
			return status
		case StateFailed:
			t.Fatalf("job failed: %s", status.Error)
		}

		time.Sleep(20 * time.Millisecond)
	}

	t.Fatal("timed out waiting for job to complete")
	return fitStatusResponse{}
}

func TestServer_CreateFit(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	job := createFit(t, h, serverFitRequest())

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}
	if job.State != StatePending {
		t.Errorf("Expected pending state in create response, got %s", job.State)
	}
	if job.Request.RadiusUnit != "Mpc" {
		t.Errorf("Request not echoed correctly")
	}
}

func TestServer_CreateFitValidation(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	valid := serverFitRequest()

	cases := []struct {
		name   string
		mutate func(*FitRequest)
	}{
		{"missing radii", func(r *FitRequest) { r.Radii = nil }},
		{"length mismatch", func(r *FitRequest) { r.Density = r.Density[:3] }},
		{"unknown radius unit", func(r *FitRequest) { r.RadiusUnit = "furlong" }},
		{"unknown density unit", func(r *FitRequest) { r.DensityUnit = "slugs" }},
		{"unknown preset", func(r *FitRequest) { r.Preset = "bogus" }},
		{"short start", func(r *FitRequest) { r.Start = []float64{1, 2, 3} }},
		{"short bounds", func(r *FitRequest) { r.Bounds = [][2]float64{{0, 1}} }},
		{"inverted bounds", func(r *FitRequest) {
			r.Bounds = [][2]float64{{0, 1}, {1, 0}, {0, 1}, {0, 1}, {0, 1}, {0, 1}}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)

			w := doRequest(t, h, http.MethodPost, "/api/v1/fits", req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}

	t.Run("malformed JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/fits", strings.NewReader("{not json"))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestServer_FitLifecycle(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	req := serverFitRequest()
	job := createFit(t, h, req)
	status := waitForJob(t, h, job.ID)

	if status.Cached {
		t.Error("First fit should not be cached")
	}
	if status.ResultID != job.ID {
		t.Errorf("ResultID = %q, want job ID %q", status.ResultID, job.ID)
	}
	if status.Result == nil {
		t.Fatal("Completed status should include the stored result")
	}
	if !status.Result.Success {
		t.Errorf("Fit did not converge: %s", status.Result.Message)
	}
	if status.Result.Params.N0 <= 0 {
		t.Errorf("n0 = %g, want positive", status.Result.Params.N0)
	}
	if status.Result.RadiusUnit != "Mpc" || status.Result.DensityUnit != "cm**-3" {
		t.Errorf("Units not preserved: %q %q", status.Result.RadiusUnit, status.Result.DensityUnit)
	}
	if status.Elapsed < 0 {
		t.Errorf("elapsed = %v, want nonnegative", status.Elapsed)
	}

	w := doRequest(t, h, http.MethodGet, "/api/v1/fits/"+job.ID+"/curve", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("curve returned %d: %s", w.Code, w.Body.String())
	}
	var curve curveResponse
	if err := json.NewDecoder(w.Body).Decode(&curve); err != nil {
		t.Fatalf("decode curve: %v", err)
	}
	if len(curve.Radii) != len(req.Radii) || len(curve.Density) != len(req.Radii) {
		t.Errorf("curve lengths = %d/%d, want %d", len(curve.Radii), len(curve.Density), len(req.Radii))
	}
	for i, v := range curve.Density {
		if v <= 0 {
			t.Errorf("curve density[%d] = %g, want positive", i, v)
		}
	}

	w = doRequest(t, h, http.MethodGet, "/api/v1/fits/"+job.ID+"/trace", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("trace returned %d: %s", w.Code, w.Body.String())
	}
	var trace []store.TraceEntry
	if err := json.NewDecoder(w.Body).Decode(&trace); err != nil {
		t.Fatalf("decode trace: %v", err)
	}
	if len(trace) == 0 {
		t.Fatal("trace should not be empty")
	}
	if trace[0].Eval != 1 {
		t.Errorf("first trace eval = %d, want 1", trace[0].Eval)
	}

	w = doRequest(t, h, http.MethodGet, "/api/v1/fits", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list returned %d", w.Code)
	}
	var jobs []Job
	if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(jobs) != 1 || jobs[0].State != StateCompleted {
		t.Errorf("list = %+v, want one completed job", jobs)
	}
}

func TestServer_CachedFit(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	req := serverFitRequest()

	first := createFit(t, h, req)
	waitForJob(t, h, first.ID)

	second := createFit(t, h, req)
	status := waitForJob(t, h, second.ID)

	if !status.Cached {
		t.Error("Resubmission of the same profile should hit the cache")
	}
	if status.ResultID != first.ID {
		t.Errorf("Cached ResultID = %q, want original %q", status.ResultID, first.ID)
	}
	if status.Result == nil || !status.Result.Success {
		t.Error("Cached job should carry the original result")
	}
}

func TestServer_DeleteFit(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	job := createFit(t, h, serverFitRequest())
	waitForJob(t, h, job.ID)

	w := doRequest(t, h, http.MethodDelete, "/api/v1/fits/"+job.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, h, http.MethodGet, "/api/v1/fits/"+job.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}

	if _, err := s.store.LoadResult(job.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Stored result should be deleted, got %v", err)
	}

	w = doRequest(t, h, http.MethodDelete, "/api/v1/fits/"+job.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Second delete should 404, got %d", w.Code)
	}
}

func TestServer_NotFound(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	for _, path := range []string{
		"/api/v1/fits/nonexistent",
		"/api/v1/fits/nonexistent/curve",
		"/api/v1/fits/nonexistent/trace",
	} {
		w := doRequest(t, h, http.MethodGet, path, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, w.Code)
		}
	}
}

func TestServer_CurveBeforeCompletion(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	// Register a job without starting its worker so it stays pending.
	job := s.jobManager.CreateJob(serverFitRequest())

	w := doRequest(t, h, http.MethodGet, "/api/v1/fits/"+job.ID+"/curve", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for pending job curve, got %d", w.Code)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	w := doRequest(t, h, http.MethodPut, "/api/v1/fits", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT /api/v1/fits = %d, want 405", w.Code)
	}

	w = doRequest(t, h, http.MethodPatch, "/api/v1/fits/some-id", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH /api/v1/fits/some-id = %d, want 405", w.Code)
	}
}

func TestServer_Healthz(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	w := doRequest(t, h, http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz returned %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode healthz: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	job := createFit(t, h, serverFitRequest())
	waitForJob(t, h, job.ID)

	w := doRequest(t, h, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics returned %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, `vikhfit_fits_total{status="completed"} 1`) {
		t.Errorf("metrics missing completed counter:\n%s", body)
	}
	if !strings.Contains(body, "vikhfit_fit_duration_seconds") {
		t.Error("metrics missing duration histogram")
	}
}

func TestServer_CORS(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	w := doRequest(t, h, http.MethodOptions, "/api/v1/fits", nil)
	if w.Code != http.StatusOK {
		t.Errorf("OPTIONS preflight = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
