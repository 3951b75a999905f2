package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"palmcosmic/internal/content"
	"palmcosmic/internal/dispatch"
	"palmcosmic/internal/generator"
	"palmcosmic/internal/store"
	"palmcosmic/internal/timekey"
	"palmcosmic/internal/zodiac"
	"palmcosmic/pkg/cache"
	"palmcosmic/pkg/logging"
)

type fakeEngine struct {
	withFallbackCalls int
	batchErr          error
	lastGranularities []timekey.Granularity
	lastOnly          *zodiac.Sign
}

func (f *fakeEngine) GetOrGenerateWithFallback(_ context.Context, sign zodiac.Sign, g timekey.Granularity) content.Record {
	f.withFallbackCalls++
	payload := content.FallbackHoroscope(sign.Display(), g.String())
	raw, _ := json.Marshal(payload)
	return content.Record{
		CacheID: content.ArchetypeCacheID(g, sign.String(), "2026-03-16"),
		Payload: raw,
		Source:  content.SourceUpstream,
	}
}

func (f *fakeEngine) GenerateBatch(_ context.Context, granularities []timekey.Granularity, only *zodiac.Sign) (generator.BatchResult, error) {
	f.lastGranularities = granularities
	f.lastOnly = only
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return generator.BatchResult{timekey.Daily: {"aries": true}}, nil
}

func (f *fakeEngine) GenerateInsights(context.Context, store.UserBirth) error { return nil }

func (f *fakeEngine) InsightsBatch(_ context.Context, users []store.UserBirth) map[string]bool {
	results := make(map[string]bool, len(users))
	for _, u := range users {
		results[u.UserID] = true
	}
	return results
}

type fakeReader struct {
	records    map[string]content.Record
	getErr     error
	user       *store.UserBirth
	candidates []store.UserBirth
}

func (f *fakeReader) Get(_ context.Context, cacheID string) (content.Record, bool, error) {
	if f.getErr != nil {
		return content.Record{}, false, f.getErr
	}
	rec, ok := f.records[cacheID]
	return rec, ok, nil
}

func (f *fakeReader) UserBirthByID(context.Context, string) (store.UserBirth, bool, error) {
	if f.user == nil {
		return store.UserBirth{}, false, nil
	}
	return *f.user, true, nil
}

func (f *fakeReader) InsightCandidates(context.Context) ([]store.UserBirth, error) {
	return f.candidates, nil
}

type fakeDispatcher struct {
	result dispatch.Result
	err    error
	runs   int
}

func (f *fakeDispatcher) Run(context.Context) (dispatch.Result, error) {
	f.runs++
	return f.result, f.err
}

func setup(t *testing.T, eng *fakeEngine, rd *fakeReader, disp *fakeDispatcher) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if rd == nil {
		rd = &fakeReader{records: map[string]content.Record{}}
	}
	if disp == nil {
		disp = &fakeDispatcher{}
	}
	mc := cache.New(cache.Options{TTL: time.Minute, MaxEntries: 64}, cache.MetricsHooks{})
	Init(logging.NewLogger(), eng, rd, disp, mc, "topsecret", nil)

	router := gin.New()
	router.POST("/cron/generate-horoscopes", GenerateHoroscopes)
	router.POST("/cron/generate-insights", GenerateInsights)
	router.GET("/cron/daily-email", DailyEmail)
	router.GET("/horoscope", GetHoroscope)
	router.GET("/insights", GetInsights)
	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGenerateHoroscopesRejectsBadSecret(t *testing.T) {
	router := setup(t, &fakeEngine{}, nil, nil)
	w := postJSON(router, "/cron/generate-horoscopes", map[string]string{"secret": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGenerateHoroscopesRejectsUnknownPeriod(t *testing.T) {
	router := setup(t, &fakeEngine{}, nil, nil)
	w := postJSON(router, "/cron/generate-horoscopes", map[string]interface{}{
		"secret": "topsecret", "periods": []string{"hourly"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGenerateHoroscopesNarrowsToSign(t *testing.T) {
	eng := &fakeEngine{}
	router := setup(t, eng, nil, nil)
	w := postJSON(router, "/cron/generate-horoscopes", map[string]interface{}{
		"secret": "topsecret", "periods": []string{"daily"}, "sign": "Leo",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if eng.lastOnly == nil || *eng.lastOnly != zodiac.Leo {
		t.Fatalf("expected sign narrowing, got %v", eng.lastOnly)
	}
	if len(eng.lastGranularities) != 1 || eng.lastGranularities[0] != timekey.Daily {
		t.Fatalf("unexpected granularities %v", eng.lastGranularities)
	}
}

func TestGenerateHoroscopesUpstreamFailure(t *testing.T) {
	eng := &fakeEngine{batchErr: context.DeadlineExceeded}
	router := setup(t, eng, nil, nil)
	w := postJSON(router, "/cron/generate-horoscopes", map[string]string{"secret": "topsecret"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestGenerateInsightsBatch(t *testing.T) {
	rd := &fakeReader{candidates: []store.UserBirth{
		{UserID: "u-1", BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)},
		{UserID: "u-2", BirthDate: time.Date(1991, 2, 2, 0, 0, 0, 0, time.UTC)},
	}}
	router := setup(t, &fakeEngine{}, rd, nil)
	w := postJSON(router, "/cron/generate-insights", map[string]string{"secret": "topsecret"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Users   int             `json:"users"`
		Results map[string]bool `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Users != 2 || !resp.Results["u-1"] || !resp.Results["u-2"] {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestGenerateInsightsUnknownUser(t *testing.T) {
	router := setup(t, &fakeEngine{}, &fakeReader{}, nil)
	w := postJSON(router, "/cron/generate-insights", map[string]string{
		"secret": "topsecret", "user_id": "missing",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDailyEmailRequiresBearerToken(t *testing.T) {
	disp := &fakeDispatcher{}
	router := setup(t, &fakeEngine{}, nil, disp)

	req := httptest.NewRequest("GET", "/cron/daily-email", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if disp.runs != 0 {
		t.Fatal("dispatcher must not run unauthorized")
	}

	req = httptest.NewRequest("GET", "/cron/daily-email", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if disp.runs != 1 {
		t.Fatalf("expected one dispatch run, got %d", disp.runs)
	}
}

func TestGetHoroscopeValidatesSign(t *testing.T) {
	router := setup(t, &fakeEngine{}, nil, nil)
	req := httptest.NewRequest("GET", "/horoscope?sign=dragon", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetHoroscopeCachesInProcess(t *testing.T) {
	eng := &fakeEngine{}
	router := setup(t, eng, nil, nil)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/horoscope?sign=leo&period=daily", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	}
	if eng.withFallbackCalls != 1 {
		t.Fatalf("expected single engine call behind memory cache, got %d", eng.withFallbackCalls)
	}
}

func TestGetHoroscopeTomorrowPartition(t *testing.T) {
	eng := &fakeEngine{}
	router := setup(t, eng, nil, nil)

	req := httptest.NewRequest("GET", "/horoscope?sign=leo&period=daily&day=TOMORROW", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	req = httptest.NewRequest("GET", "/horoscope?sign=leo&period=daily", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Today and tomorrow are distinct partitions, so both miss the
	// in-process cache.
	if eng.withFallbackCalls != 2 {
		t.Fatalf("expected separate cache entries, got %d engine calls", eng.withFallbackCalls)
	}
}

func TestGetInsightsServesStoredRecord(t *testing.T) {
	tk := timekey.Derive(timekey.Daily, time.Now(), 0)
	cacheID := content.UserCacheID(timekey.Daily, "u-1", tk)
	payload, _ := json.Marshal(content.FallbackInsights("u-1"))
	rd := &fakeReader{records: map[string]content.Record{
		cacheID: {CacheID: cacheID, Payload: payload, Source: content.SourceUpstream},
	}}
	router := setup(t, &fakeEngine{}, rd, nil)

	req := httptest.NewRequest("GET", "/insights?user_id=u-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Source != "upstream" {
		t.Fatalf("expected stored record, got source %q", resp.Source)
	}
}

func TestGetInsightsFallsBackOnMiss(t *testing.T) {
	router := setup(t, &fakeEngine{}, &fakeReader{records: map[string]content.Record{}}, nil)

	req := httptest.NewRequest("GET", "/insights?user_id=u-404", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Source string          `json:"source"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Source != "fallback" {
		t.Fatalf("expected fallback source, got %q", resp.Source)
	}
	var payload content.InsightsPayload
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatal(err)
	}
	if err := payload.Validate(); err != nil {
		t.Fatalf("fallback insights must be schema-valid: %v", err)
	}
}
