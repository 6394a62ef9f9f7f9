package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"promobar/internal/database"
	"promobar/internal/model"
)

type testLogger struct{ t *testing.T }

func (l testLogger) Debug(v ...any)                 { l.t.Log(v...) }
func (l testLogger) Info(v ...any)                  { l.t.Log(v...) }
func (l testLogger) Warn(v ...any)                  { l.t.Log(v...) }
func (l testLogger) Error(v ...any)                 { l.t.Log(v...) }
func (l testLogger) Debugf(format string, v ...any) { l.t.Logf(format, v...) }
func (l testLogger) Infof(format string, v ...any)  { l.t.Logf(format, v...) }
func (l testLogger) Warnf(format string, v ...any)  { l.t.Logf(format, v...) }
func (l testLogger) Errorf(format string, v ...any) { l.t.Logf(format, v...) }

func newTestServer(t *testing.T) Server {
	return Server{DB: database.Database{}, Logger: testLogger{t}}
}

type fakeEmailStore struct {
	bar       model.Bar
	findErr   error
	insertErr error
	inserted  []model.EmailSubmission
}

func (f *fakeEmailStore) BarFindOne(_ context.Context, _, _ string) (model.Bar, error) {
	return f.bar, f.findErr
}

func (f *fakeEmailStore) EmailSubmissionInsert(_ context.Context, sub model.EmailSubmission) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.inserted = append(f.inserted, sub)
	return primitive.NewObjectID().Hex(), nil
}

func activeEmailBar() model.Bar {
	return model.Bar{
		ID:       primitive.NewObjectID(),
		Shop:     "shop.example.com",
		Type:     model.BarTypeEmail,
		IsActive: true,
		Email: &model.EmailConfig{
			SubmitButtonText: "Subscribe",
			SuccessMessage:   "Thanks!",
		},
	}
}

func postEmail(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/public/email", strings.NewReader(body))
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

const emailBody = `{"shop":"shop.example.com","bar_id":"62a000000000000000000001","email":"A@B.com","name":"Ann"}`

func TestCaptureEmail_Success(t *testing.T) {
	s := newTestServer(t)
	bar := activeEmailBar()
	bar.Email.DiscountCode = "WELCOME10"
	store := &fakeEmailStore{bar: bar}

	w := postEmail(t, s.captureEmail(store), emailBody)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "WELCOME10", resp["discount_code"])

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "a@b.com", store.inserted[0].Email)
	assert.Equal(t, bar.ID, store.inserted[0].BarID)
}

func TestCaptureEmail_GeneratedDiscountCode(t *testing.T) {
	s := newTestServer(t)
	bar := activeEmailBar()
	bar.Email.GenerateDiscount = true
	bar.Email.DiscountPrefix = "VIP"
	store := &fakeEmailStore{bar: bar}

	w := postEmail(t, s.captureEmail(store), emailBody)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	code, _ := resp["discount_code"].(string)
	assert.True(t, strings.HasPrefix(code, "VIP-"), "got code %q", code)
	assert.Len(t, code, len("VIP-")+8)
}

func TestCaptureEmail_DuplicateIsConflict(t *testing.T) {
	s := newTestServer(t)
	store := &fakeEmailStore{
		bar:       activeEmailBar(),
		insertErr: mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}},
	}

	w := postEmail(t, s.captureEmail(store), emailBody)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, true, resp["duplicate"])
}

func TestCaptureEmail_RejectsNonEmailBar(t *testing.T) {
	s := newTestServer(t)
	store := &fakeEmailStore{bar: model.Bar{
		ID:       primitive.NewObjectID(),
		Type:     model.BarTypeAnnouncement,
		Message:  "Sale!",
		IsActive: true,
	}}

	w := postEmail(t, s.captureEmail(store), emailBody)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, store.inserted)
}

func TestCaptureEmail_RejectsInactiveEmailBar(t *testing.T) {
	s := newTestServer(t)
	bar := activeEmailBar()
	bar.IsActive = false
	store := &fakeEmailStore{bar: bar}

	w := postEmail(t, s.captureEmail(store), emailBody)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, store.inserted)
}

func TestCaptureEmail_UnknownBarIsNotFound(t *testing.T) {
	s := newTestServer(t)
	store := &fakeEmailStore{findErr: errors.Wrap(mongo.ErrNoDocuments, "no Bar")}

	w := postEmail(t, s.captureEmail(store), emailBody)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaptureEmail_MalformedBarIDIsNotFound(t *testing.T) {
	s := newTestServer(t)
	store := &fakeEmailStore{findErr: errors.Wrap(primitive.ErrInvalidHex, "bad ObjectID")}

	w := postEmail(t, s.captureEmail(store), emailBody)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaptureEmail_MalformedEmailIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	store := &fakeEmailStore{bar: activeEmailBar()}

	w := postEmail(t, s.captureEmail(store),
		`{"shop":"shop.example.com","bar_id":"62a000000000000000000001","email":"not-an-email"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.inserted)
}

func TestTrackView_MalformedBarIDIsNotFound(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/public/view",
		strings.NewReader(`{"shop":"shop.example.com","bar_id":"not-a-hex-id"}`))
	w := httptest.NewRecorder()
	s.trackView()(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrackClick_MalformedBarIDIsNotFound(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodPost, "/api/public/click",
		strings.NewReader(`{"shop":"shop.example.com","bar_id":"not-a-hex-id"}`))
	w := httptest.NewRecorder()
	s.trackClick()(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleStatus_MalformedBarIDIsNotFound(t *testing.T) {
	s := newTestServer(t)
	r := httptest.NewRequest(http.MethodGet,
		"/api/public/schedule-status?shop=shop.example.com&bar_id=not-a-hex-id", nil)
	w := httptest.NewRecorder()
	s.scheduleStatus()(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVisitorCountry(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"no headers means unknown", nil, ""},
		{"cloudflare header", map[string]string{"CF-IPCountry": "US"}, "US"},
		{"fallback header", map[string]string{"X-Visitor-Country": "DE"}, "DE"},
		{"cloudflare wins over fallback", map[string]string{"CF-IPCountry": "US", "X-Visitor-Country": "DE"}, "US"},
		{"lowercase is normalized", map[string]string{"CF-IPCountry": "us"}, "US"},
		{"whitespace is trimmed", map[string]string{"CF-IPCountry": " FR "}, "FR"},
		{"XX sentinel means unknown", map[string]string{"CF-IPCountry": "XX"}, ""},
		{"T1 sentinel means unknown", map[string]string{"CF-IPCountry": "T1"}, ""},
		{"non-two-letter value means unknown", map[string]string{"CF-IPCountry": "USA"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/public/bars", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, visitorCountry(r))
		})
	}
}
