package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sofia/artdex/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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

	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedArtworkWithImages(t *testing.T, db *gorm.DB, artworkID string, imageIDs ...string) {
	t.Helper()
	ctx := context.Background()
	artworks := NewArtworkRepository(db)

	artwork := &domain.Artwork{ID: artworkID, Title: "Sunset", ArtistID: "artist-1"}
	if err := artworks.Create(ctx, artwork); err != nil {
		t.Fatalf("failed to create artwork: %v", err)
	}
	for i, id := range imageIDs {
		img := &domain.ArtworkImage{
			ID:        id,
			ArtworkID: artworkID,
			URL:       fmt.Sprintf("https://cdn.example.com/%s.jpg", id),
			Position:  i,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := artworks.AddImage(ctx, img); err != nil {
			t.Fatalf("failed to add image: %v", err)
		}
	}
}

func TestUpsertOverwritesInPlace(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewEmbeddingRepository(db)

	if err := db.Create(&domain.Artist{ID: "a1", Name: "Jane"}).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if err := repo.UpsertArtistText(ctx, "a1", "model-v1", "Name: Jane", []float32{1, 2}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := repo.UpsertArtistText(ctx, "a1", "model-v2", "Name: Jane Doe", []float32{3, 4}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	var count int64
	db.Model(&domain.ArtistTextEmbedding{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 row after overwrite, got %d", count)
	}

	record, err := repo.GetArtistText(ctx, "a1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if record.Model != "model-v2" || record.Text != "Name: Jane Doe" {
		t.Errorf("row not overwritten: %+v", record)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewEmbeddingRepository(db)

	for _, kind := range domain.AllKinds() {
		if err := repo.Delete(ctx, "never-existed", kind); err != nil {
			t.Errorf("deleting a missing %s record must succeed, got %v", kind, err)
		}
	}

	if err := repo.UpsertArtworkText(ctx, "aw1", "m", "t", []float32{1}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := repo.Delete(ctx, "aw1", domain.KindArtworkText); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := repo.Delete(ctx, "aw1", domain.KindArtworkText); err != nil {
		t.Errorf("repeated delete must succeed, got %v", err)
	}
}

func TestFindMissingPerImage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewEmbeddingRepository(db)

	seedArtworkWithImages(t, db, "aw1", "img-0", "img-1", "img-2")
	for _, id := range []string{"img-0", "img-2"} {
		if err := repo.UpsertArtworkImage(ctx, id, "aw1", "m", []float32{1}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	ids, err := repo.FindMissing(ctx, domain.KindArtworkImage, 0)
	if err != nil {
		t.Fatalf("FindMissing failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "img-1" {
		t.Errorf("expected exactly [img-1], got %v", ids)
	}
}

func TestFindMissingOldestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewEmbeddingRepository(db)

	base := time.Now().Add(-time.Hour)
	// Insert newest first to prove ordering comes from created_at.
	for i := 2; i >= 0; i-- {
		a := &domain.Artist{
			ID:        fmt.Sprintf("a%d", i),
			Name:      "x",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(a).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	ids, err := repo.FindMissing(ctx, domain.KindArtist, 2)
	if err != nil {
		t.Fatalf("FindMissing failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a0" || ids[1] != "a1" {
		t.Errorf("expected oldest-first [a0 a1], got %v", ids)
	}
}

func TestArtworkDeleteCascadesEmbeddings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewEmbeddingRepository(db)
	artworks := NewArtworkRepository(db)

	seedArtworkWithImages(t, db, "aw1", "img-0", "img-1")
	if err := repo.UpsertArtworkText(ctx, "aw1", "m", "t", []float32{1}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	for _, id := range []string{"img-0", "img-1"} {
		if err := repo.UpsertArtworkImage(ctx, id, "aw1", "m", []float32{1}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	if err := artworks.Delete(ctx, "aw1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	var textCount, imageCount int64
	db.Model(&domain.ArtworkTextEmbedding{}).Count(&textCount)
	db.Model(&domain.ArtworkImageEmbedding{}).Count(&imageCount)
	if textCount != 0 || imageCount != 0 {
		t.Errorf("embedding rows survived artwork delete: text=%d image=%d", textCount, imageCount)
	}
}

func TestDeleteImageCascadesEmbedding(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewEmbeddingRepository(db)
	artworks := NewArtworkRepository(db)

	seedArtworkWithImages(t, db, "aw1", "img-0", "img-1")
	for _, id := range []string{"img-0", "img-1"} {
		if err := repo.UpsertArtworkImage(ctx, id, "aw1", "m", []float32{1}); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	if err := artworks.DeleteImage(ctx, "img-0"); err != nil {
		t.Fatalf("delete image failed: %v", err)
	}

	if _, err := repo.GetArtworkImage(ctx, "img-0"); err == nil {
		t.Error("embedding row survived image delete")
	}
	if _, err := repo.GetArtworkImage(ctx, "img-1"); err != nil {
		t.Errorf("sibling embedding must survive: %v", err)
	}
}

func TestArtistDeleteCascadesEmbedding(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewEmbeddingRepository(db)
	artists := NewArtistRepository(db)

	if err := artists.Create(ctx, &domain.Artist{ID: "a1", Name: "Jane"}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := repo.UpsertArtistText(ctx, "a1", "m", "t", []float32{1}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	if err := artists.Delete(ctx, "a1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	var count int64
	db.Model(&domain.ArtistTextEmbedding{}).Count(&count)
	if count != 0 {
		t.Errorf("embedding row survived artist delete: %d", count)
	}
}

func TestListMissingQR(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	artworks := NewArtworkRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		aw := &domain.Artwork{
			ID:        fmt.Sprintf("aw%d", i),
			Title:     "x",
			ArtistID:  "a1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := artworks.Create(ctx, aw); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}
	if err := artworks.SetQRCodeURL(ctx, "aw1", "https://cdn.example.com/qr/aw1.png"); err != nil {
		t.Fatalf("set qr url failed: %v", err)
	}

	missing, err := artworks.ListMissingQR(ctx, 0)
	if err != nil {
		t.Fatalf("ListMissingQR failed: %v", err)
	}
	if len(missing) != 2 || missing[0].ID != "aw0" || missing[1].ID != "aw2" {
		ids := make([]string, 0, len(missing))
		for _, aw := range missing {
			ids = append(ids, aw.ID)
		}
		t.Errorf("expected [aw0 aw2], got %v", ids)
	}
}
