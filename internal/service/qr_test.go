package service

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/sofia/artdex/internal/domain"
	"github.com/sofia/artdex/internal/repository"
)

// fakeStorage records uploads in memory.
type fakeStorage struct {
	objects   map[string][]byte
	uploadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) Upload(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeStorage) GetURL(key string) string {
	return "https://cdn.example.com/" + key
}

func (s *fakeStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStorage) EnsureBucket(context.Context) error { return nil }

func TestQRGenerate(t *testing.T) {
	db := newTestDB(t)
	_, artworkID := seedArtwork(t, db)

	store := newFakeStorage()
	artworks := repository.NewArtworkRepository(db)
	q := NewQRService(artworks, store, &QRServiceConfig{
		TargetBase: "https://gallery.example.com/qr",
		Size:       256,
	}, newTestLogger())

	ctx := context.Background()
	publicURL, err := q.Generate(ctx, artworkID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	key := "qr/artworks/" + artworkID + ".png"
	data, ok := store.objects[key]
	if !ok {
		t.Fatalf("QR object not uploaded under %q", key)
	}
	// PNG magic bytes.
	if len(data) < 8 || data[0] != 0x89 || data[1] != 'P' {
		t.Error("uploaded object is not a PNG")
	}

	artwork, err := artworks.GetByID(ctx, artworkID)
	if err != nil {
		t.Fatalf("get artwork failed: %v", err)
	}
	if artwork.QRCodeURL != publicURL {
		t.Errorf("QR URL not persisted: %q vs %q", artwork.QRCodeURL, publicURL)
	}
	if !strings.HasSuffix(publicURL, key) {
		t.Errorf("unexpected public URL %q", publicURL)
	}
}

func TestQRTargetURL(t *testing.T) {
	q := NewQRService(nil, nil, &QRServiceConfig{TargetBase: "https://gallery.example.com/qr?lang=en"}, newTestLogger())

	target, err := q.targetURL("aw-1")
	if err != nil {
		t.Fatalf("targetURL failed: %v", err)
	}
	u, err := url.Parse(target)
	if err != nil {
		t.Fatalf("invalid target url: %v", err)
	}
	if u.Query().Get("aid") != "aw-1" {
		t.Errorf("aid parameter missing in %q", target)
	}
	if u.Query().Get("lang") != "en" {
		t.Errorf("existing query parameters must survive: %q", target)
	}
}

func TestQRBackfill(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	artworks := repository.NewArtworkRepository(db)

	for _, id := range []string{"aw-1", "aw-2", "aw-3"} {
		if err := artworks.Create(ctx, &domain.Artwork{ID: id, Title: "x", ArtistID: "a1"}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	if err := artworks.SetQRCodeURL(ctx, "aw-2", "https://cdn.example.com/qr/artworks/aw-2.png"); err != nil {
		t.Fatalf("set qr url failed: %v", err)
	}

	store := newFakeStorage()
	q := NewQRService(artworks, store, &QRServiceConfig{TargetBase: "https://gallery.example.com/qr"}, newTestLogger())

	stats, err := q.Backfill(ctx, QRModeRegenerate, 0, nil)
	if err != nil {
		t.Fatalf("Backfill failed: %v", err)
	}
	if stats.Scanned != 2 || stats.Updated != 2 || stats.Failed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(store.objects) != 2 {
		t.Errorf("expected 2 uploaded objects, got %d", len(store.objects))
	}

	// Nothing left to repair.
	missing, err := artworks.ListMissingQR(ctx, 0)
	if err != nil {
		t.Fatalf("ListMissingQR failed: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected empty backlog, got %d", len(missing))
	}
}

func TestQRBackfillFailureIsolation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	artworks := repository.NewArtworkRepository(db)

	for _, id := range []string{"aw-1", "aw-2"} {
		if err := artworks.Create(ctx, &domain.Artwork{ID: id, Title: "x", ArtistID: "a1"}); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	store := newFakeStorage()
	store.uploadErr = errors.New("bucket unavailable")
	q := NewQRService(artworks, store, &QRServiceConfig{TargetBase: "https://gallery.example.com/qr"}, newTestLogger())

	stats, err := q.Backfill(ctx, QRModeRegenerate, 0, nil)
	if err != nil {
		t.Fatalf("Backfill must not abort on item failures: %v", err)
	}
	if stats.Failed != 2 || stats.Updated != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestQRBackfillLinkMode(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	artworks := repository.NewArtworkRepository(db)

	if err := artworks.Create(ctx, &domain.Artwork{ID: "aw-1", Title: "x", ArtistID: "a1"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	store := newFakeStorage()
	q := NewQRService(artworks, store, &QRServiceConfig{TargetBase: "https://gallery.example.com/qr"}, newTestLogger())

	stats, err := q.Backfill(ctx, QRModeLink, 0, []string{"aw-1"})
	if err != nil {
		t.Fatalf("Backfill failed: %v", err)
	}
	if stats.Updated != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	// Link mode never uploads.
	if len(store.objects) != 0 {
		t.Errorf("link mode must not upload, got %d objects", len(store.objects))
	}

	artwork, err := artworks.GetByID(ctx, "aw-1")
	if err != nil {
		t.Fatalf("get artwork failed: %v", err)
	}
	if artwork.QRCodeURL == "" {
		t.Error("link mode must persist the URL")
	}
}
