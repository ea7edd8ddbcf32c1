package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/attendease/internal/attendance"
	"github.com/kozaktomas/attendease/internal/database"
	"github.com/kozaktomas/attendease/internal/database/mock"
	"github.com/kozaktomas/attendease/internal/embedding"
)

func recognizeSetup(t *testing.T, extractor FaceExtractor) (*RecognizeHandler, *mock.MockSummaryStore, *mock.MockAttendanceStore) {
	t.Helper()
	users := mock.NewMockUserStore()
	users.AddUser(database.User{ID: 1, Username: "jana.novakova", Approved: true})
	users.AddUser(database.User{ID: 2, Username: "petr.svoboda", Approved: false})

	embeddings := mock.NewMockEmbeddingStore(4)
	addEmbedding(t, embeddings, 1, "img-1", []float32{1, 0, 0, 0})
	addEmbedding(t, embeddings, 2, "img-2", []float32{0, 1, 0, 0})

	attendanceStore := mock.NewMockAttendanceStore()
	machine := attendance.NewMachine(attendanceStore, 8)
	summaries := mock.NewMockSummaryStore()
	aggregator := attendance.NewAggregator(attendanceStore, mock.NewMockLeaveStore(), summaries)

	h := NewRecognizeHandler(users, embeddings, extractor, machine, aggregator, nil, nil, 0.45, 16)
	h.now = func() time.Time {
		return time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	}
	return h, summaries, attendanceStore
}

func addEmbedding(t *testing.T, store *mock.MockEmbeddingStore, userID int64, ref string, vec []float32) {
	t.Helper()
	err := store.Add(t.Context(), &database.StoredEmbedding{
		UserID:    userID,
		ImageRef:  ref,
		Embedding: vec,
		Model:     "sface",
		Dim:       len(vec),
	})
	if err != nil {
		t.Fatalf("failed to seed embedding: %v", err)
	}
}

func recognizeBody(t *testing.T, action string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(RecognizeRequest{
		Image:  testDataURL([]byte{1, 2, 3}),
		Action: action,
	})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestRecognize_MatchRecordsCheckIn(t *testing.T) {
	extractor := &fakeExtractor{result: &embedding.Result{
		Embedding: []float32{0.99, 0.01, 0, 0},
		Dim:       4,
		Model:     "sface",
	}}
	h, _, store := recognizeSetup(t, extractor)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", recognizeBody(t, "check_in"))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if !resp.Matched {
		t.Fatal("expected a match")
	}
	if resp.UserID != 1 || resp.Username != "jana.novakova" {
		t.Errorf("matched user %d %q, want 1 jana.novakova", resp.UserID, resp.Username)
	}
	if resp.Scan == nil || resp.Scan.Status != database.StatusCheckedIn {
		t.Errorf("scan = %+v, want Checked In", resp.Scan)
	}

	day, _ := store.GetDay(t.Context(), 1, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC))
	if day == nil || day.CheckIn == nil {
		t.Error("expected a stored check-in")
	}
}

func TestRecognize_ScanRefreshesStoredSummary(t *testing.T) {
	extractor := &fakeExtractor{result: &embedding.Result{
		Embedding: []float32{0.99, 0.01, 0, 0},
		Dim:       4,
		Model:     "sface",
	}}
	h, summaries, _ := recognizeSetup(t, extractor)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", recognizeBody(t, "check_in"))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)
	assertStatusCode(t, rec, http.StatusOK)

	// Mar 1-2 2026 have elapsed: Sunday the 1st plus the scanned Monday
	s, err := summaries.Get(t.Context(), 1, 3, 2026)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil {
		t.Fatal("summary for the scan month was not stored")
	}
	if s.PresentDays != 1 {
		t.Errorf("present days = %d, want 1", s.PresentDays)
	}
	if s.TotalDays != 2 || s.HolidayDays != 1 {
		t.Errorf("summary = %+v, want total 2 with 1 holiday", s)
	}
}

func TestRecognize_RepeatedScanReportsOriginalTime(t *testing.T) {
	extractor := &fakeExtractor{result: &embedding.Result{
		Embedding: []float32{0.99, 0.01, 0, 0},
		Dim:       4,
		Model:     "sface",
	}}
	h, _, _ := recognizeSetup(t, extractor)
	first := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	rec := httptest.NewRecorder()
	h.Recognize(rec, httptest.NewRequest(http.MethodPost, "/api/v1/recognize", recognizeBody(t, "check_in")))
	assertStatusCode(t, rec, http.StatusOK)

	h.now = func() time.Time { return first.Add(time.Hour) }
	rec = httptest.NewRecorder()
	h.Recognize(rec, httptest.NewRequest(http.MethodPost, "/api/v1/recognize", recognizeBody(t, "check_in")))
	assertStatusCode(t, rec, http.StatusOK)

	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Scan == nil || !resp.Scan.AlreadyDone {
		t.Fatalf("scan = %+v, want already done", resp.Scan)
	}
	if resp.Scan.Time == nil || !resp.Scan.Time.Equal(first) {
		t.Errorf("scan time = %v, want the original check-in %s", resp.Scan.Time, first)
	}
}

func TestRecognize_NoMatch(t *testing.T) {
	extractor := &fakeExtractor{result: &embedding.Result{
		Embedding: []float32{0, 0, 0, 1},
		Dim:       4,
		Model:     "sface",
	}}
	h, _, _ := recognizeSetup(t, extractor)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", recognizeBody(t, "check_in"))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp RecognizeResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Matched {
		t.Error("orthogonal vector must not match under threshold 0.45")
	}
	if resp.Scan != nil {
		t.Error("no-match response must not carry a scan")
	}
}

func TestRecognize_NoFaceDetected(t *testing.T) {
	h, _, _ := recognizeSetup(t, &fakeExtractor{err: embedding.ErrNoFaceDetected})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", recognizeBody(t, "check_in"))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusUnprocessableEntity)
	assertJSONError(t, rec, "no face detected in image")
}

func TestRecognize_UnapprovedUser(t *testing.T) {
	extractor := &fakeExtractor{result: &embedding.Result{
		Embedding: []float32{0, 1, 0, 0},
		Dim:       4,
		Model:     "sface",
	}}
	h, _, store := recognizeSetup(t, extractor)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", recognizeBody(t, "check_in"))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusForbidden)

	day, _ := store.GetDay(t.Context(), 2, time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC))
	if day != nil {
		t.Error("unapproved user must not get a scan recorded")
	}
}

func TestRecognize_CheckOutWithoutCheckIn(t *testing.T) {
	extractor := &fakeExtractor{result: &embedding.Result{
		Embedding: []float32{1, 0, 0, 0},
		Dim:       4,
		Model:     "sface",
	}}
	h, _, _ := recognizeSetup(t, extractor)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", recognizeBody(t, "check_out"))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusConflict)
	assertJSONError(t, rec, "must check in before checking out")
}

func TestRecognize_InvalidAction(t *testing.T) {
	h, _, _ := recognizeSetup(t, &fakeExtractor{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", recognizeBody(t, "loiter"))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
}

func TestRecognize_MissingImage(t *testing.T) {
	h, _, _ := recognizeSetup(t, &fakeExtractor{})

	body, _ := json.Marshal(RecognizeRequest{Action: "check_in"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognize", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()
	h.Recognize(rec, req)

	assertStatusCode(t, rec, http.StatusBadRequest)
	assertJSONError(t, rec, "image is required")
}
