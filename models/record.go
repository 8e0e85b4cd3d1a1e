// Package models defines data structures for the harvester.
package models

// CategoryRef points at one category listing discovered on the home page.
// Name carries the anchor text; the listing page's own heading stays the
// authoritative display name.
type CategoryRef struct {
	Name       string
	ListingURL string
}

// Record is the canonical extracted representation of one catalog item.
// Every field is populated after extraction; optional source sections
// resolve to sentinel values, never to empty gaps.
type Record struct {
	PageURL      string `csv:"page_url" json:"page_url"`
	UPC          string `csv:"upc" json:"upc"`
	Title        string `csv:"title" json:"title"`
	PriceInclTax string `csv:"price_incl_tax" json:"price_incl_tax"`
	PriceExclTax string `csv:"price_excl_tax" json:"price_excl_tax"`
	Availability string `csv:"availability" json:"availability"`
	Description  string `csv:"description" json:"description"`
	Category     string `csv:"category" json:"category"`
	Rating       string `csv:"rating" json:"rating"`
	ImageURL     string `csv:"image_url" json:"image_url"`
}

// Summary holds the overall result of a harvest run.
type Summary struct {
	Categories       int
	CategoriesFailed int
	Items            int
	ItemsSkipped     int
	DuplicateRows    int
	ImagesStored     int
	ImagesFailed     int
	SkippedURLs      []string
}
