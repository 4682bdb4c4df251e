package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cvBuilder/internal/auth"
	"cvBuilder/internal/database"
	"cvBuilder/internal/pdf"
	"cvBuilder/internal/render"
	"cvBuilder/internal/resume"
	"cvBuilder/internal/storage"
	"cvBuilder/internal/store"
	"cvBuilder/internal/tasks"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeVerifier map[string]uint

func (f fakeVerifier) ValidateToken(token string) (*auth.TokenClaims, error) {
	userID, ok := f[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &auth.TokenClaims{UserID: userID, TokenType: auth.TokenTypeAccess}, nil
}

type fakeExporter struct{}

func (fakeExporter) RenderPDF(context.Context, string, pdf.PageOptions) ([]byte, error) {
	return []byte("%PDF-1.4 test"), nil
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(q.tasks)), Type: task.Type()}, nil
}

type fakeStorage struct {
	objects map[string]storage.ObjectMeta
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]storage.ObjectMeta{}}
}

func (s *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStorage) DownloadURL(_ context.Context, key string, _ time.Duration, _ string) (string, error) {
	return "https://example.invalid/" + key, nil
}

func (s *fakeStorage) ListObjects(_ context.Context, prefix string, _ int) ([]storage.ObjectMeta, error) {
	var out []storage.ObjectMeta
	for key, meta := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, meta)
		}
	}
	return out, nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, prefix string) (int, error) {
	n := 0
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			delete(s.objects, key)
			s.deleted = append(s.deleted, key)
			n++
		}
	}
	return n, nil
}

type fakeRateCounter struct {
	counts map[string]int64
}

func (f *fakeRateCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeRateCounter) Expire(ctx context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

type testServer struct {
	router  *gin.Engine
	db      *gorm.DB
	queue   *fakeQueue
	storage *fakeStorage
	mine    database.CV
	other   database.CV
	public  database.CV
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	mine := database.CV{UserID: 1, Title: "Mine", Theme: "modern"}
	other := database.CV{UserID: 2, Title: "Other", Theme: "modern"}
	public := database.CV{UserID: 2, Title: "Shared", Theme: "minimal", IsPublic: true}
	for _, cv := range []*database.CV{&mine, &other, &public} {
		if err := db.Create(cv).Error; err != nil {
			t.Fatalf("seed cv: %v", err)
		}
	}

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(quiet, "")
	queue := &fakeQueue{}
	fs := newFakeStorage()
	RegisterRoutes(router, Dependencies{
		Service:  resume.NewServiceFromDB(db, render.MustNew(), fakeExporter{}),
		Sections: store.NewSections(db),
		Verifier: fakeVerifier{"token-1": 1, "token-2": 2},
		Queue:    queue,
		Storage:  fs,
		Logger:   quiet,
		Export:   ExportOptions{MaxRetry: 3, LinkTTL: time.Minute},
	})
	return &testServer{router: router, db: db, queue: queue, storage: fs, mine: mine, other: other, public: public}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestSectionCRUDScopedToOwner(t *testing.T) {
	s := newTestServer(t)
	base := fmt.Sprintf("/v1/cvs/%d/work", s.mine.ID)

	w := s.do(t, http.MethodPost, base, "token-1", `{"company":"Acme","position":"Engineer","cv_id":999}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created database.Work
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.CVID != s.mine.ID {
		t.Fatalf("forged cv_id accepted: %d", created.CVID)
	}
	item := fmt.Sprintf("%s/%d", base, created.ID)

	if w := s.do(t, http.MethodGet, item, "token-2", ""); w.Code != http.StatusNotFound {
		t.Fatalf("foreign user read: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, fmt.Sprintf("/v1/cvs/%d/work/%d", s.other.ID, created.ID), "token-2", ""); w.Code != http.StatusNotFound {
		t.Fatalf("cross-cv read: %d", w.Code)
	}
	if w := s.do(t, http.MethodHead, item, "token-1", ""); w.Code != http.StatusOK {
		t.Fatalf("head: %d", w.Code)
	}

	w = s.do(t, http.MethodPatch, item, "token-1", `{"position":"Lead"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"position":"Lead"`) || !strings.Contains(w.Body.String(), `"company":"Acme"`) {
		t.Fatalf("partial update: %d %s", w.Code, w.Body.String())
	}

	if w := s.do(t, http.MethodGet, base, "token-1", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Acme") {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodDelete, item, "token-2", ""); w.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, item, "token-1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := s.do(t, http.MethodDelete, item, "token-1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", w.Code)
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{
		fmt.Sprintf("/v1/cvs/%d/skill", s.mine.ID),
		fmt.Sprintf("/v1/cvs/%d/render/html", s.mine.ID),
		fmt.Sprintf("/v1/cvs/%d/sections", s.mine.ID),
	} {
		if w := s.do(t, http.MethodGet, path, "", ""); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: %d", path, w.Code)
		}
	}
	if w := s.do(t, http.MethodGet, "/v1/cvs/abc/skill", "token-1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric cv id: %d", w.Code)
	}
}

func TestSectionConfigEndpoints(t *testing.T) {
	s := newTestServer(t)
	base := fmt.Sprintf("/v1/cvs/%d/sections", s.mine.ID)

	if w := s.do(t, http.MethodPut, base+"/order", "token-1", `{"order":["work","work","contact","project","organization","course","skill","language"]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate order: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodPut, base+"/order", "token-1", `{"order":["work","education"]}`); w.Code != http.StatusBadRequest {
		t.Fatalf("short order: %d", w.Code)
	}
	w := s.do(t, http.MethodPut, base+"/order", "token-1", `{"order":["skill","work","education","contact","project","organization","course","language"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("valid order: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodPut, fmt.Sprintf("/v1/cvs/%d/sections/order", s.other.ID), "token-1", `{"order":["skill","work","education","contact","project","organization","course","language"]}`); w.Code != http.StatusNotFound {
		t.Fatalf("foreign order write: %d", w.Code)
	}

	if w := s.do(t, http.MethodPatch, base+"/titles", "token-1", `{"titles":{"bogus":"x"}}`); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown title key: %d", w.Code)
	}
	if w := s.do(t, http.MethodPatch, base+"/titles", "token-1", `{"titles":{"skill":"Toolbox"}}`); w.Code != http.StatusOK {
		t.Fatalf("titles: %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, base, "token-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("config: %d", w.Code)
	}
	var cfg resume.SectionConfig
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Order[0] != "skill" || cfg.Sections[0].Title != "Toolbox" || !cfg.Sections[0].Custom {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestRenderEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/v1/cvs/%d/render/html?preview=true&header_color=%%23112233", s.mine.ID), "token-1", "")
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("html: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Body.String(), "#112233") || !strings.Contains(w.Body.String(), "data-preview-empty") {
		t.Fatalf("style or preview markers missing")
	}

	if w := s.do(t, http.MethodGet, fmt.Sprintf("/v1/cvs/%d/render/html?header_color=red", s.mine.ID), "token-1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid colour: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, fmt.Sprintf("/v1/cvs/%d/render/html?font_size=big", s.mine.ID), "token-1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("unparsable font size: %d", w.Code)
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/cvs/%d/render/pdf?scale=1.5", s.mine.ID), "token-1", "")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, fmt.Sprintf("/v1/cvs/%d/render/pdf?scale=2.5", s.mine.ID), "token-1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("scale out of range: %d", w.Code)
	}

	w = s.do(t, http.MethodGet, fmt.Sprintf("/v1/cvs/%d/document", s.mine.ID), "token-1", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"sections"`) {
		t.Fatalf("document: %d %s", w.Code, w.Body.String())
	}
}

func TestRenderEndpointsRejectNonFiniteStyle(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/v1/cvs/%d/render/html?font_size=NaN&margin=NaN",
		"/v1/cvs/%d/document?margin=NaN",
		"/v1/cvs/%d/render/pdf?scale=NaN",
		"/v1/cvs/%d/render/html?line_height=Inf",
		"/v1/cvs/%d/render/pdf?margin=-Inf",
	} {
		w := s.do(t, http.MethodGet, fmt.Sprintf(path, s.mine.ID), "token-1", "")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", path, w.Code)
		}
		if strings.Contains(w.Body.String(), "NaN") && strings.Contains(w.Body.String(), "@page") {
			t.Fatalf("%s: non-finite value reached the renderer", path)
		}
	}
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodGet, fmt.Sprintf("/v1/public/cvs/%d/html", s.other.ID), "", ""); w.Code != http.StatusForbidden {
		t.Fatalf("private cv via public route: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/v1/public/cvs/99999/html", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("missing cv via public route: %d", w.Code)
	}
	w := s.do(t, http.MethodGet, fmt.Sprintf("/v1/public/cvs/%d/html", s.public.ID), "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "theme-minimal") {
		t.Fatalf("public html: %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, fmt.Sprintf("/v1/public/cvs/%d/pdf", s.public.ID), "", ""); w.Code != http.StatusOK {
		t.Fatalf("public pdf: %d", w.Code)
	}
}

func TestExportLifecycle(t *testing.T) {
	s := newTestServer(t)
	base := fmt.Sprintf("/v1/cvs/%d/exports", s.mine.ID)

	if w := s.do(t, http.MethodPost, base, "token-1", `{"scale":5}`); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid scale: %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, fmt.Sprintf("/v1/cvs/%d/exports", s.other.ID), "token-1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("foreign export: %d", w.Code)
	}

	w := s.do(t, http.MethodPost, base, "token-1", `{"scale":1.2,"compact":true}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("create export: %d %s", w.Code, w.Body.String())
	}
	var accepted struct {
		TaskID   string `json:"task_id"`
		ExportID string `json:"export_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(s.queue.tasks) != 1 || accepted.TaskID == "" {
		t.Fatalf("task not enqueued: %+v", accepted)
	}
	payload, err := tasks.ParsePDFExportPayload(s.queue.tasks[0])
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.ExportID != accepted.ExportID || payload.UserID != 1 || payload.CVID != s.mine.ID || payload.Scale != 1.2 || !payload.Compact {
		t.Fatalf("unexpected payload: %+v", payload)
	}

	link := fmt.Sprintf("%s/%s/link", base, accepted.ExportID)
	if w := s.do(t, http.MethodGet, link, "token-1", ""); w.Code != http.StatusConflict {
		t.Fatalf("link before upload: %d", w.Code)
	}

	key := storage.ExportKey(1, s.mine.ID, accepted.ExportID)
	s.storage.objects[key] = storage.ObjectMeta{Key: key, Size: 1024, LastModified: time.Now()}

	w = s.do(t, http.MethodGet, link, "token-1", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), key) {
		t.Fatalf("link: %d %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, base+"/not-a-uuid/link", "token-1", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid export id: %d", w.Code)
	}

	w = s.do(t, http.MethodGet, base, "token-1", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), accepted.ExportID) {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodDelete, base, "token-1", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"deleted":1`) {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
}

func TestExportRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	cv := database.CV{UserID: 1, Theme: "modern"}
	if err := db.Create(&cv).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	queue := &fakeQueue{}
	h := NewExportHandler(
		resume.NewServiceFromDB(db, render.MustNew(), fakeExporter{}),
		queue,
		newFakeStorage(),
		&fakeRateCounter{},
		ExportOptions{MaxPerHour: 2, MaxRetry: 1},
	)

	var codes []int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v1/cvs/%d/exports", cv.ID), nil)
		c.Params = gin.Params{{Key: "cvId", Value: fmt.Sprint(cv.ID)}}
		c.Set("userID", uint(1))
		h.CreateExport(c)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v", codes)
	}
	if len(queue.tasks) != 2 {
		t.Fatalf("enqueued %d tasks, want 2", len(queue.tasks))
	}
}

type brokenRateCounter struct{}

func (brokenRateCounter) Incr(ctx context.Context, _ string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	cmd.SetErr(errors.New("redis down"))
	return cmd
}

func (brokenRateCounter) Expire(ctx context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	return redis.NewBoolCmd(ctx)
}

func TestHourlyLimiter(t *testing.T) {
	counter := &fakeRateCounter{}
	limiter := newHourlyLimiter(counter, "export", 1)
	limiter.now = func() time.Time { return time.Date(2024, 5, 6, 7, 30, 0, 0, time.UTC) }

	if got := limiter.key(9); got != "rate:export:9:2024050607" {
		t.Fatalf("unexpected key %q", got)
	}
	if ok, err := limiter.allow(context.Background(), 9); !ok || err != nil {
		t.Fatalf("first call should pass: %v %v", ok, err)
	}
	if ok, _ := limiter.allow(context.Background(), 9); ok {
		t.Fatalf("second call in the same hour should be limited")
	}
	if ok, _ := limiter.allow(context.Background(), 10); !ok {
		t.Fatalf("other users keep their own bucket")
	}

	failing := newHourlyLimiter(brokenRateCounter{}, "export", 1)
	if ok, err := failing.allow(context.Background(), 9); !ok || err == nil {
		t.Fatalf("counter errors should fail open and be reported")
	}
	if newHourlyLimiter(counter, "export", 0) != nil {
		t.Fatalf("zero limit disables limiting")
	}
}
