// Package parser holds the pure mapping rules applied to extracted data.
package parser

import (
	"fmt"
	"strings"

	"github.com/rsilveira/bookharvest/models"
)

// NoDescription is stored when an item page has no description section.
const NoDescription = "no description available"

// NoRating is stored when the rating token is absent or unrecognised.
const NoRating = "No rating"

var starMap = map[string]string{
	"One":   "★☆☆☆☆",
	"Two":   "★★☆☆☆",
	"Three": "★★★☆☆",
	"Four":  "★★★★☆",
	"Five":  "★★★★★",
}

// RatingStars converts a textual rating token to its five-glyph star
// rendering. The mapping is total: unknown tokens yield NoRating.
func RatingStars(token string) string {
	if stars, ok := starMap[strings.TrimSpace(token)]; ok {
		return stars
	}
	return NoRating
}

// SanitizeFileName makes a display name safe to use as a file or
// directory name by replacing path separators.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	return name
}

// ValidateRecord ensures extraction captured every required field.
func ValidateRecord(r *models.Record) error {
	if r == nil {
		return fmt.Errorf("record is nil")
	}
	if strings.TrimSpace(r.PageURL) == "" {
		return fmt.Errorf("record missing page URL")
	}
	if strings.TrimSpace(r.UPC) == "" {
		return fmt.Errorf("record missing UPC for %s", r.PageURL)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record missing title for %s", r.PageURL)
	}
	if strings.TrimSpace(r.PriceInclTax) == "" || strings.TrimSpace(r.PriceExclTax) == "" {
		return fmt.Errorf("record missing price for %s", r.PageURL)
	}
	if strings.TrimSpace(r.Availability) == "" {
		return fmt.Errorf("record missing availability for %s", r.PageURL)
	}
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("record missing category for %s", r.PageURL)
	}
	return nil
}
