package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sofia/artdex/internal/domain"
	"github.com/sofia/artdex/internal/repository"
	"gorm.io/gorm"
)

func seedArtwork(t *testing.T, db *gorm.DB) (artistID, artworkID string) {
	t.Helper()
	ctx := context.Background()

	artists := repository.NewArtistRepository(db)
	categories := repository.NewCategoryRepository(db)
	artworks := repository.NewArtworkRepository(db)

	artist := &domain.Artist{ID: "artist-1", Name: "Jane Doe"}
	if err := artists.Create(ctx, artist); err != nil {
		t.Fatalf("failed to create artist: %v", err)
	}
	category := &domain.Category{ID: "cat-1", Name: "Painting"}
	if err := categories.Create(ctx, category); err != nil {
		t.Fatalf("failed to create category: %v", err)
	}
	artwork := &domain.Artwork{
		ID:          "artwork-1",
		Title:       "Sunset",
		Description: "Oil on canvas",
		ArtistID:    artist.ID,
		CategoryID:  category.ID,
	}
	if err := artworks.Create(ctx, artwork); err != nil {
		t.Fatalf("failed to create artwork: %v", err)
	}
	return artist.ID, artwork.ID
}

func TestBuildArtworkText(t *testing.T) {
	db := newTestDB(t)
	_, artworkID := seedArtwork(t, db)

	c := NewCanonicalizer(repository.NewArtistRepository(db), repository.NewArtworkRepository(db))

	want := "Title: Sunset\nDescription: Oil on canvas\nArtist: Jane Doe\nCategory: Painting"
	got, err := c.BuildText(context.Background(), artworkID, domain.KindArtworkText)
	if err != nil {
		t.Fatalf("BuildText failed: %v", err)
	}
	if got != want {
		t.Errorf("canonical text mismatch:\ngot:  %q\nwant: %q", got, want)
	}

	// Same persisted state must always yield the same text.
	again, err := c.BuildText(context.Background(), artworkID, domain.KindArtworkText)
	if err != nil {
		t.Fatalf("BuildText failed on second call: %v", err)
	}
	if again != got {
		t.Errorf("canonical text not deterministic: %q vs %q", got, again)
	}
}

func TestBuildArtistText(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	artists := repository.NewArtistRepository(db)

	testCases := []struct {
		name   string
		artist domain.Artist
		want   string
	}{
		{
			name:   "name and bio",
			artist: domain.Artist{ID: "a1", Name: "Jane Doe", Bio: "Painter from Lisbon"},
			want:   "Name: Jane Doe\nBio: Painter from Lisbon",
		},
		{
			name:   "blank bio omitted",
			artist: domain.Artist{ID: "a2", Name: "Jane Doe", Bio: "   "},
			want:   "Name: Jane Doe",
		},
		{
			name:   "whitespace runs collapsed",
			artist: domain.Artist{ID: "a3", Name: "Jane   Doe", Bio: "Painter\n\nfrom\tLisbon"},
			want:   "Name: Jane Doe\nBio: Painter from Lisbon",
		},
		{
			name:   "all fields blank",
			artist: domain.Artist{ID: "a4", Name: " ", Bio: ""},
			want:   "",
		},
	}

	c := NewCanonicalizer(artists, repository.NewArtworkRepository(db))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := artists.Create(ctx, &tc.artist); err != nil {
				t.Fatalf("failed to create artist: %v", err)
			}
			got, err := c.BuildText(ctx, tc.artist.ID, domain.KindArtist)
			if err != nil {
				t.Fatalf("BuildText failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("canonical text mismatch:\ngot:  %q\nwant: %q", got, tc.want)
			}
		})
	}
}

func TestBuildArtworkTextMissingRelations(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	artworks := repository.NewArtworkRepository(db)

	// Artist and category ids that resolve to nothing: their lines are
	// simply omitted.
	artwork := &domain.Artwork{
		ID:       "artwork-orphan",
		Title:    "Untitled",
		ArtistID: "gone",
	}
	if err := artworks.Create(ctx, artwork); err != nil {
		t.Fatalf("failed to create artwork: %v", err)
	}

	c := NewCanonicalizer(repository.NewArtistRepository(db), artworks)
	got, err := c.BuildText(ctx, artwork.ID, domain.KindArtworkText)
	if err != nil {
		t.Fatalf("BuildText failed: %v", err)
	}
	if got != "Title: Untitled" {
		t.Errorf("canonical text mismatch: got %q", got)
	}
}

func TestBuildTextNotFound(t *testing.T) {
	db := newTestDB(t)
	c := NewCanonicalizer(repository.NewArtistRepository(db), repository.NewArtworkRepository(db))

	_, err := c.BuildText(context.Background(), "missing", domain.KindArtist)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
