package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rsilveira/bookharvest/fetch"
)

// EnumerateItems walks a category's pagination chain and returns the
// category display name plus every item detail URL in page order. The
// chain is followed iteratively; the only terminal condition is a page
// without a next link. The source's pagination is trusted to be acyclic.
func EnumerateItems(ctx context.Context, client *fetch.Client, listingURL string) (string, []string, error) {
	root, err := siteRoot(listingURL)
	if err != nil {
		return "", nil, err
	}

	var (
		name     string
		itemURLs []string
	)

	pageURL := listingURL
	for {
		doc, err := client.Document(ctx, pageURL)
		if err != nil {
			return name, nil, err
		}

		pageName := strings.TrimSpace(doc.Find("h1").First().Text())
		switch {
		case name == "":
			name = pageName
		case pageName != name:
			// The source repeats the heading on every page; a change
			// mid-chain is suspect but not fatal.
			slog.Warn("category name changed mid-pagination",
				slog.String("url", pageURL),
				slog.String("first", name),
				slog.String("current", pageName),
			)
		}

		var walkErr error
		doc.Find(itemLinkSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, ok := sel.Attr("href")
			if !ok {
				return true
			}
			itemURL, err := resolveItemHref(root, href)
			if err != nil {
				walkErr = err
				return false
			}
			itemURLs = append(itemURLs, itemURL)
			return true
		})
		if walkErr != nil {
			return name, nil, walkErr
		}

		next, ok := doc.Find(nextLinkSelector).First().Attr("href")
		if !ok {
			return name, itemURLs, nil
		}
		// Unlike item links, the next link is relative to the current
		// page's directory.
		pageURL, err = resolveRelative(pageURL, next)
		if err != nil {
			return name, nil, err
		}
	}
}
