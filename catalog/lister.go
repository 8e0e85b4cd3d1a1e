package catalog

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rsilveira/bookharvest/fetch"
	"github.com/rsilveira/bookharvest/models"
)

// ListCategories fetches the home document once and returns category
// references in document order. The first navigation entry is the
// all-items pseudo-category and is always excluded; limit truncates the
// result after that exclusion (0 keeps everything).
func ListCategories(ctx context.Context, client *fetch.Client, homeURL string, limit int) ([]models.CategoryRef, error) {
	doc, err := client.Document(ctx, homeURL)
	if err != nil {
		return nil, err
	}

	links := doc.Find(categoryNavSelector)
	if links.Length() == 0 {
		return nil, &ExtractionError{URL: homeURL, Element: categoryNavSelector}
	}

	refs := make([]models.CategoryRef, 0, links.Length())
	var walkErr error
	links.EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i == 0 {
			return true
		}
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		listingURL, err := resolveRelative(homeURL, href)
		if err != nil {
			walkErr = err
			return false
		}
		refs = append(refs, models.CategoryRef{
			Name:       strings.TrimSpace(sel.Text()),
			ListingURL: listingURL,
		})
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}
