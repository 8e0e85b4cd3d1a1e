package catalog

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rsilveira/bookharvest/fetch"
	"github.com/rsilveira/bookharvest/models"
	"github.com/rsilveira/bookharvest/parser"
)

// Labels of the product-information table rows read by the extractor.
const (
	labelUPC          = "UPC"
	labelPriceInclTax = "Price (incl. tax)"
	labelPriceExclTax = "Price (excl. tax)"
	labelAvailability = "Availability"
)

// ExtractItem fetches an item detail page and maps it to a Record.
// Required fields that cannot be located yield an ExtractionError;
// absent description and rating resolve to sentinel values.
func ExtractItem(ctx context.Context, client *fetch.Client, itemURL string) (*models.Record, error) {
	doc, err := client.Document(ctx, itemURL)
	if err != nil {
		return nil, err
	}

	rec := &models.Record{PageURL: itemURL}

	rec.Title = strings.TrimSpace(doc.Find("h1").First().Text())
	if rec.Title == "" {
		return nil, &ExtractionError{URL: itemURL, Element: "h1"}
	}

	// The information table is read by label, not position, so field
	// reordering in the source markup cannot corrupt the mapping.
	for _, field := range []struct {
		label string
		dst   *string
	}{
		{labelUPC, &rec.UPC},
		{labelPriceInclTax, &rec.PriceInclTax},
		{labelPriceExclTax, &rec.PriceExclTax},
		{labelAvailability, &rec.Availability},
	} {
		value, ok := tableValue(doc, field.label)
		if !ok {
			return nil, &ExtractionError{URL: itemURL, Element: field.label}
		}
		*field.dst = value
	}

	rec.Description = parser.NoDescription
	if section := doc.Find("div#product_description").First(); section.Length() > 0 {
		if text := strings.TrimSpace(section.Next().Text()); text != "" {
			rec.Description = text
		}
	}

	// Breadcrumb depth is fixed by the site's navigation convention:
	// home → catalog → category → item.
	rec.Category = strings.TrimSpace(doc.Find("ul.breadcrumb li").Eq(2).Text())
	if rec.Category == "" {
		return nil, &ExtractionError{URL: itemURL, Element: "ul.breadcrumb li:nth-child(3)"}
	}

	rec.Rating = parser.RatingStars(ratingToken(doc))

	if src, ok := doc.Find("div.item.active img").First().Attr("src"); ok {
		root, err := siteRoot(itemURL)
		if err != nil {
			return nil, err
		}
		imageURL, err := resolveRelative(root.String(), src)
		if err != nil {
			return nil, err
		}
		rec.ImageURL = imageURL
	}

	if err := parser.ValidateRecord(rec); err != nil {
		return nil, &ExtractionError{URL: itemURL, Element: err.Error()}
	}
	return rec, nil
}

// tableValue finds the td following the th whose label matches.
func tableValue(doc *goquery.Document, label string) (string, bool) {
	var (
		value string
		found bool
	)
	doc.Find("th").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.TrimSpace(sel.Text()) != label {
			return true
		}
		value = strings.TrimSpace(sel.Next().Text())
		found = true
		return false
	})
	return value, found
}

// ratingToken reads the class-encoded rating word from the star-rating
// element, e.g. class="star-rating Three". Absence returns "".
func ratingToken(doc *goquery.Document) string {
	class, ok := doc.Find("p.star-rating").First().Attr("class")
	if !ok {
		return ""
	}
	parts := strings.Fields(class)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
