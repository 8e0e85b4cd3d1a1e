package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rsilveira/bookharvest/parser"
)

type itemFixture struct {
	title       string
	upc         string
	priceIncl   string
	priceExcl   string
	avail       string
	category    string
	description string // empty omits the description section
	ratingToken string // empty omits the star-rating element
	imageSrc    string
	reverseRows bool // emit table rows in reverse order
}

func (f itemFixture) render() string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, `<ul class="breadcrumb"><li><a href="../../index.html">Home</a></li><li><a href="../category/books_1/index.html">Books</a></li><li><a href="index.html">%s</a></li><li class="active">%s</li></ul>`,
		f.category, f.title)
	b.WriteString(`<div class="carousel"><div class="item active">`)
	fmt.Fprintf(&b, `<img src="%s" alt="%s"/>`, f.imageSrc, f.title)
	b.WriteString(`</div></div>`)
	fmt.Fprintf(&b, "<h1>%s</h1>", f.title)
	if f.ratingToken != "" {
		fmt.Fprintf(&b, `<p class="star-rating %s"></p>`, f.ratingToken)
	}
	if f.description != "" {
		fmt.Fprintf(&b, `<div id="product_description" class="sub-header"><h2>Product Description</h2></div><p>%s</p>`, f.description)
	}

	rows := []string{}
	if f.upc != "" {
		rows = append(rows, fmt.Sprintf("<tr><th>UPC</th><td>%s</td></tr>", f.upc))
	}
	rows = append(rows,
		fmt.Sprintf("<tr><th>Price (excl. tax)</th><td>%s</td></tr>", f.priceExcl),
		fmt.Sprintf("<tr><th>Price (incl. tax)</th><td>%s</td></tr>", f.priceIncl),
		fmt.Sprintf("<tr><th>Availability</th><td>%s</td></tr>", f.avail),
	)
	if f.reverseRows {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	b.WriteString(`<table class="table table-striped">`)
	for _, row := range rows {
		b.WriteString(row)
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func defaultFixture() itemFixture {
	return itemFixture{
		title:       "A Light in the Attic",
		upc:         "a897fe39b1053632",
		priceIncl:   "£51.77",
		priceExcl:   "£51.77",
		avail:       "In stock (22 available)",
		category:    "Poetry",
		description: "It's hard to imagine a world without A Light in the Attic.",
		ratingToken: "Three",
		imageSrc:    "../../media/cache/fe/72/cover.jpg",
	}
}

const itemURL = "http://example.test/catalogue/a-light-in-the-attic_1000/index.html"

func TestExtractItem(t *testing.T) {
	client, transport := newTestClient(t)
	transport.RegisterResponder("GET", itemURL, htmlResponder(defaultFixture().render()))

	rec, err := ExtractItem(context.Background(), client, itemURL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if rec.PageURL != itemURL {
		t.Errorf("PageURL = %q, want %q", rec.PageURL, itemURL)
	}
	if rec.UPC != "a897fe39b1053632" {
		t.Errorf("UPC = %q", rec.UPC)
	}
	if rec.Title != "A Light in the Attic" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.PriceInclTax != "£51.77" || rec.PriceExclTax != "£51.77" {
		t.Errorf("prices = %q / %q", rec.PriceInclTax, rec.PriceExclTax)
	}
	if rec.Availability != "In stock (22 available)" {
		t.Errorf("Availability = %q", rec.Availability)
	}
	if rec.Description != "It's hard to imagine a world without A Light in the Attic." {
		t.Errorf("Description = %q", rec.Description)
	}
	if rec.Category != "Poetry" {
		t.Errorf("Category = %q", rec.Category)
	}
	if rec.Rating != "★★★☆☆" {
		t.Errorf("Rating = %q, want ★★★☆☆", rec.Rating)
	}
	if want := "http://example.test/media/cache/fe/72/cover.jpg"; rec.ImageURL != want {
		t.Errorf("ImageURL = %q, want %q (must resolve against the site root)", rec.ImageURL, want)
	}
}

func TestExtractItemTableOrderIndependent(t *testing.T) {
	fixture := defaultFixture()
	fixture.reverseRows = true

	client, transport := newTestClient(t)
	transport.RegisterResponder("GET", itemURL, htmlResponder(fixture.render()))

	rec, err := ExtractItem(context.Background(), client, itemURL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.UPC != "a897fe39b1053632" || rec.Availability != "In stock (22 available)" {
		t.Fatalf("label lookup corrupted by row order: UPC=%q availability=%q", rec.UPC, rec.Availability)
	}
}

func TestExtractItemMissingDescriptionUsesSentinel(t *testing.T) {
	fixture := defaultFixture()
	fixture.description = ""

	client, transport := newTestClient(t)
	transport.RegisterResponder("GET", itemURL, htmlResponder(fixture.render()))

	rec, err := ExtractItem(context.Background(), client, itemURL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if rec.Description != parser.NoDescription {
		t.Fatalf("Description = %q, want sentinel %q", rec.Description, parser.NoDescription)
	}
}

func TestExtractItemRatingNeverFails(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "absent element", token: "", want: parser.NoRating},
		{name: "unknown token", token: "Eleven", want: parser.NoRating},
		{name: "recognized token", token: "Five", want: "★★★★★"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := defaultFixture()
			fixture.ratingToken = tt.token

			client, transport := newTestClient(t)
			transport.RegisterResponder("GET", itemURL, htmlResponder(fixture.render()))

			rec, err := ExtractItem(context.Background(), client, itemURL)
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if rec.Rating != tt.want {
				t.Fatalf("Rating = %q, want %q", rec.Rating, tt.want)
			}
		})
	}
}

func TestExtractItemMissingRequiredField(t *testing.T) {
	fixture := defaultFixture()
	fixture.upc = ""

	client, transport := newTestClient(t)
	transport.RegisterResponder("GET", itemURL, htmlResponder(fixture.render()))

	_, err := ExtractItem(context.Background(), client, itemURL)
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
	if extractionErr.Element != "UPC" {
		t.Fatalf("Element = %q, want UPC", extractionErr.Element)
	}
}
