package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sofia/artdex/internal/domain"
	"github.com/sofia/artdex/internal/repository"
)

// Canonicalizer derives the deterministic embedding input text for an
// entity from its current persisted field values. Pure read + transform;
// an empty result means "nothing to embed" and is not an error.
type Canonicalizer struct {
	artists  *repository.ArtistRepository
	artworks *repository.ArtworkRepository
}

// NewCanonicalizer creates a Canonicalizer over the entity repositories.
func NewCanonicalizer(artists *repository.ArtistRepository, artworks *repository.ArtworkRepository) *Canonicalizer {
	return &Canonicalizer{artists: artists, artworks: artworks}
}

// BuildText returns the canonical text for a text-kind entity, or
// domain.ErrNotFound if the entity no longer exists.
func (c *Canonicalizer) BuildText(ctx context.Context, id string, kind domain.EntityKind) (string, error) {
	switch kind {
	case domain.KindArtist:
		return c.buildArtistText(ctx, id)
	case domain.KindArtworkText:
		return c.buildArtworkText(ctx, id)
	}
	return "", fmt.Errorf("kind %q has no canonical text", kind)
}

func (c *Canonicalizer) buildArtistText(ctx context.Context, artistID string) (string, error) {
	artist, err := c.artists.GetByID(ctx, artistID)
	if err != nil {
		return "", err
	}
	return joinLines(
		line("Name", artist.Name),
		line("Bio", artist.Bio),
	), nil
}

func (c *Canonicalizer) buildArtworkText(ctx context.Context, artworkID string) (string, error) {
	artwork, err := c.artworks.GetWithRelations(ctx, artworkID)
	if err != nil {
		return "", err
	}

	var artistName, artistBio, categoryName string
	if artwork.Artist != nil {
		artistName = artwork.Artist.Name
		artistBio = artwork.Artist.Bio
	}
	if artwork.Category != nil {
		categoryName = artwork.Category.Name
	}

	return joinLines(
		line("Title", artwork.Title),
		line("Description", artwork.Description),
		line("Artist", artistName),
		line("Artist bio", artistBio),
		line("Category", categoryName),
	), nil
}

// line renders one "Label: value" line, or "" when the value is blank so
// the whole line is omitted. Internal whitespace runs collapse to single
// spaces.
func line(label, value string) string {
	v := normalizeWhitespace(value)
	if v == "" {
		return ""
	}
	return label + ": " + v
}

func joinLines(lines ...string) string {
	present := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			present = append(present, l)
		}
	}
	return strings.TrimSpace(strings.Join(present, "\n"))
}

// normalizeWhitespace collapses whitespace runs to single spaces and trims.
func normalizeWhitespace(text string) string {
	if text == "" {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}
