package api

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	cerrors "github.com/FocuswithJustin/computor/core/errors"
)

func waitForJob(t *testing.T, s *Server, id string) Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := s.jobs.Get(id)
		if !ok {
			t.Fatalf("job %s disappeared", id)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish", id)
	return Job{}
}

func TestJobLifecycle(t *testing.T) {
	s := newTestServer(t, false)
	h := s.Handler()

	rec, resp := doRequest(t, h, http.MethodPost, "/jobs",
		`{"equations": ["X = 1", "X^ = 1", "X^2 + 1 = 0", "X^3 = 0"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /jobs = %d %s", rec.Code, rec.Body.String())
	}
	var created Job
	decodeData(t, resp, &created)
	if len(created.ID) != 36 || created.Total != 4 {
		t.Fatalf("created = %+v", created)
	}

	job := waitForJob(t, s, created.ID)
	if job.Status != JobStatusCompleted || job.Progress != 100 || job.Done != 4 {
		t.Errorf("job = %+v", job)
	}
	if job.Failed != 2 || len(job.Results) != 4 {
		t.Fatalf("failed=%d results=%d", job.Failed, len(job.Results))
	}
	if job.Results[0].Result == nil || job.Results[0].Input != "X = 1" {
		t.Errorf("result 0 = %+v", job.Results[0])
	}
	if job.Results[1].ErrorCode != "PARSE_ERROR" || job.Results[3].ErrorCode != "UNSUPPORTED_DEGREE" {
		t.Errorf("error codes = %s, %s", job.Results[1].ErrorCode, job.Results[3].ErrorCode)
	}
	if job.CompletedAt == "" {
		t.Error("CompletedAt not set")
	}

	rec, resp = doRequest(t, h, http.MethodGet, "/jobs/"+created.ID, "")
	var fetched Job
	decodeData(t, resp, &fetched)
	if rec.Code != http.StatusOK || fetched.Status != JobStatusCompleted || len(fetched.Results) != 4 {
		t.Errorf("GET /jobs/id = %d %+v", rec.Code, fetched)
	}

	rec, resp = doRequest(t, h, http.MethodGet, "/jobs", "")
	var list []Job
	decodeData(t, resp, &list)
	if rec.Code != http.StatusOK || len(list) != 1 || list[0].Results != nil {
		t.Errorf("GET /jobs = %d %+v", rec.Code, list)
	}

	rec, resp = doRequest(t, h, http.MethodDelete, "/jobs/"+created.ID, "")
	if rec.Code != http.StatusConflict || resp.Error.Code != "CANCEL_FAILED" {
		t.Errorf("cancel finished job = %d %+v", rec.Code, resp.Error)
	}
}

func TestJobValidation(t *testing.T) {
	s := New(Config{MaxJobSize: 2}, nil)
	h := s.Handler()

	tests := []struct {
		body string
		code string
	}{
		{`{"equations": []}`, "MISSING_PARAMS"},
		{`{"equations": ["X = 1", "X = 2", "X = 3"]}`, "INVALID_REQUEST"},
		{`{"equations": ["X = 1", " "]}`, "INVALID_REQUEST"},
		{`not json`, "INVALID_JSON"},
	}
	for _, tt := range tests {
		rec, resp := doRequest(t, h, http.MethodPost, "/jobs", tt.body)
		if rec.Code != http.StatusBadRequest || resp.Error.Code != tt.code {
			t.Errorf("POST /jobs %s = %d %+v, want %s", tt.body, rec.Code, resp.Error, tt.code)
		}
	}

	rec, resp := doRequest(t, h, http.MethodGet, "/jobs/unknown", "")
	if rec.Code != http.StatusNotFound || resp.Error.Code != "NOT_FOUND" {
		t.Errorf("GET unknown job = %d %+v", rec.Code, resp.Error)
	}
	rec, _ = doRequest(t, h, http.MethodDelete, "/jobs/unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("DELETE unknown job = %d", rec.Code)
	}
	rec, _ = doRequest(t, h, http.MethodPut, "/jobs", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT /jobs = %d", rec.Code)
	}
}

func TestJobStoreCancel(t *testing.T) {
	store := NewJobStore()
	var statuses []JobStatus
	store.onChange = func(j Job) { statuses = append(statuses, j.Status) }

	job := store.Create([]string{"X = 1"}, 1)
	if err := store.Cancel(job.ID); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	// A cancelled job never starts.
	store.Start(job.ID)
	store.Wait()

	got, _ := store.Get(job.ID)
	if got.Status != JobStatusCancelled || got.CompletedAt == "" {
		t.Errorf("job = %+v", got)
	}
	if len(statuses) != 1 || statuses[0] != JobStatusCancelled {
		t.Errorf("notifications = %v", statuses)
	}

	err := store.Cancel(job.ID)
	var ve *cerrors.ValidationError
	if !errors.As(err, &ve) || !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("second Cancel() = %v", err)
	}
	if err := store.Cancel("missing"); !errors.Is(err, cerrors.ErrNotFound) {
		t.Errorf("Cancel(missing) = %v", err)
	}
}

func TestJobStoreCancelAll(t *testing.T) {
	store := NewJobStore()
	eqs := make([]string, 2000)
	for i := range eqs {
		eqs[i] = "X^2 - 3 * X + 2 = 0"
	}
	job := store.Create(eqs, 1)
	store.Start(job.ID)
	store.CancelAll()

	got, _ := store.Get(job.ID)
	if !got.Status.Terminal() {
		t.Errorf("status after CancelAll = %s", got.Status)
	}
	if store.Active() != 0 {
		t.Errorf("Active() = %d", store.Active())
	}
}
