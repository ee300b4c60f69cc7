package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sofia/artdex/internal/domain"
	"github.com/sofia/artdex/internal/logger"
	"github.com/sofia/artdex/internal/repository"
	"github.com/sofia/artdex/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixedTextEmbedder struct{}

func (fixedTextEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (fixedTextEmbedder) Model() string { return "test-text" }

type fixedImageEmbedder struct{}

func (fixedImageEmbedder) EmbedImage(context.Context, string) ([]float32, error) {
	return []float32{0.3}, nil
}
func (fixedImageEmbedder) Model() string { return "test-image" }

type testEnv struct {
	router    http.Handler
	db        *gorm.DB
	reindexer *service.Reindexer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	log := logger.New(&logger.Config{Level: "error", Format: "text"})
	artistRepo := repository.NewArtistRepository(db)
	artworkRepo := repository.NewArtworkRepository(db)
	embeddingRepo := repository.NewEmbeddingRepository(db)

	canonical := service.NewCanonicalizer(artistRepo, artworkRepo)
	reindexer := service.NewReindexer(artworkRepo, embeddingRepo, canonical, fixedTextEmbedder{}, fixedImageEmbedder{}, log)
	backfill := service.NewBackfill(embeddingRepo, reindexer, log)

	router := SetupRouter(Dependencies{
		Artists:    artistRepo,
		Artworks:   artworkRepo,
		Categories: repository.NewCategoryRepository(db),
		Embeddings: embeddingRepo,
		Reindexer:  reindexer,
		Backfill:   backfill,
		QR:         service.NewQRService(artworkRepo, noopStorage{}, &service.QRServiceConfig{TargetBase: "https://gallery.example.com/qr"}, log),
		Mode:       "test",
	})

	return &testEnv{router: router, db: db, reindexer: reindexer}
}

type noopStorage struct{}

func (noopStorage) Upload(context.Context, string, io.Reader, int64, string) error { return nil }
func (noopStorage) GetURL(key string) string                                       { return "https://cdn.example.com/" + key }
func (noopStorage) Delete(context.Context, string) error                           { return nil }
func (noopStorage) Exists(context.Context, string) (bool, error)                   { return false, nil }
func (noopStorage) EnsureBucket(context.Context) error                             { return nil }

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", w.Code)
	}
}

func TestArtistLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/artists", map[string]string{
		"name": "Jane Doe",
		"bio":  "Painter",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
	}
	var created domain.Artist
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response: %v", err)
	}

	// Creation commits first, then indexing runs off the request path.
	env.reindexer.WaitAsync()
	if _, err := repository.NewEmbeddingRepository(env.db).GetArtistText(context.Background(), created.ID); err != nil {
		t.Errorf("expected embedding after async reindex: %v", err)
	}

	w = env.do(t, http.MethodGet, "/api/v1/artists/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get failed: %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/artists/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete failed: %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/v1/artists/"+created.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestArtistCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/artists", map[string]string{"bio": "no name"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing name, got %d", w.Code)
	}
}

func TestAdminBackfillEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	artists := repository.NewArtistRepository(env.db)
	for _, id := range []string{"a1", "a2"} {
		if err := artists.Create(ctx, &domain.Artist{ID: id, Name: "Artist " + id}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	w := env.do(t, http.MethodPost, "/api/v1/admin/backfill", map[string]interface{}{
		"kinds": []string{"artist"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("backfill failed: %d %s", w.Code, w.Body.String())
	}

	var resp struct {
		PerKind map[string]struct {
			Completed int64 `json:"completed"`
		} `json:"per_kind"`
		Failed int64 `json:"failed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp.PerKind["artist"].Completed != 2 || resp.Failed != 0 {
		t.Errorf("unexpected backfill response: %s", w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/admin/embeddings/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stats failed: %d", w.Code)
	}
	var stats struct {
		Missing map[string]int64 `json:"missing"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("bad stats response: %v", err)
	}
	if stats.Missing["artist"] != 0 {
		t.Errorf("expected empty artist backlog, got %d", stats.Missing["artist"])
	}
}

func TestAdminBackfillRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/admin/backfill", map[string]interface{}{
		"kinds": []string{"sculpture"},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown kind, got %d", w.Code)
	}
}
