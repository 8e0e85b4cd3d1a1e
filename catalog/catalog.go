// Package catalog walks the category → listing → detail page shape of
// the target site and maps item pages to canonical records.
package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	categoryNavSelector = "div.side_categories ul li a"
	itemLinkSelector    = "h3 a"
	nextLinkSelector    = "li.next a"

	// Detail pages live in a flat directory under this path; listing
	// pages reference them through a uniform ../ prefix convention.
	cataloguePath = "/catalogue/"
)

// ExtractionError reports a required structural element missing from a
// fetched page, which indicates a page-shape mismatch.
type ExtractionError struct {
	URL     string
	Element string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: missing %s", e.URL, e.Element)
}

// siteRoot reduces a page URL to scheme://host/.
func siteRoot(pageURL string) (*url.URL, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", pageURL, err)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, nil
}

// resolveItemHref resolves an item link against the fixed catalogue base
// rather than the current page, since listing pages at any depth use the
// same ../ convention to reach the detail directory.
func resolveItemHref(root *url.URL, href string) (string, error) {
	for strings.HasPrefix(href, "../") {
		href = href[len("../"):]
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse item href %q: %w", href, err)
	}
	base := *root
	base.Path = cataloguePath
	return base.ResolveReference(ref).String(), nil
}

// resolveRelative resolves href against the page it appeared on.
func resolveRelative(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse page url %q: %w", pageURL, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}
