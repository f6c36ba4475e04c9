package scraper

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"

	"stockwatch/internal/models"
)

// ErrNotProductPage is returned when a page lacks the product title markup
var ErrNotProductPage = errors.New("not a recognized product page")

const (
	zidMarker = "zid"

	selectorTitle = "h1.js-product-title.js-make-bold"
	selectorPrice = `div[data-testing-id="current-price"]`
)

// Out-of-stock markers take precedence over add-to-cart markers
var (
	outOfStockSelectors = []string{
		`button.js-btn_out-of-stock[title="Niet op voorraad"]`,
		`button.js-btn_out-of-stock[title="Stock épuisé"]`,
	}
	addToCartSelectors = []string{
		`button[title="Ajouter au panier"]`,
		`button[title="Toevoegen aan winkelmandje"]`,
	}
)

var fold = cases.Fold()

// ExtractExternalID returns everything after the first "zid" in url, or ""
func ExtractExternalID(url string) string {
	i := strings.Index(url, zidMarker)
	if i < 0 {
		return ""
	}
	return url[i+len(zidMarker):]
}

// ProductTypeFor infers the product line from the product name
func ProductTypeFor(name string) string {
	if strings.Contains(fold.String(name), fold.String(models.ProductTypeNinja)) {
		return models.ProductTypeNinja
	}
	return models.ProductTypeShark
}

// ClassifyHTML parses body and classifies it
func ClassifyHTML(body []byte, url string, now time.Time) (*models.Observation, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}
	return Classify(doc, url, now)
}

// Classify extracts an observation from a parsed product page. Pages without
// a product title yield ErrNotProductPage. A page with neither marker counts
// as in stock.
func Classify(doc *goquery.Document, url string, now time.Time) (*models.Observation, error) {
	title := doc.Find(selectorTitle).First()
	if title.Length() == 0 {
		return nil, ErrNotProductPage
	}
	name := strings.TrimSpace(title.Text())

	price := models.PriceUnavailable
	if p := doc.Find(selectorPrice).First(); p.Length() > 0 {
		price = strings.TrimSpace(p.Text())
	}

	status := models.StatusIn
	switch {
	case anyMatch(doc, outOfStockSelectors):
		status = models.StatusOut
	case anyMatch(doc, addToCartSelectors):
		status = models.StatusIn
	}

	return &models.Observation{
		ExternalID:  ExtractExternalID(url),
		ProductName: name,
		ObservedAt:  now,
		URL:         url,
		Status:      status,
		ProductType: ProductTypeFor(name),
		Price:       price,
	}, nil
}

func anyMatch(doc *goquery.Document, selectors []string) bool {
	for _, sel := range selectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}
