package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"stockwatch/internal/database"
	"stockwatch/internal/metrics"
	"stockwatch/internal/models"
)

// ErrInvalidPrice is returned for price strings that do not hold a number
var ErrInvalidPrice = errors.New("invalid price")

// LastKnownOffset is how far before a changed price the previous price is restamped
const LastKnownOffset = time.Hour

// ParsePrice normalizes a scraped price such as "€ 1.299,99" to 1299.99.
// The currency sign and all whitespace are stripped; when both separators are
// present the dots are thousands separators. Values are rounded to cents.
func ParsePrice(raw string) (float64, error) {
	s := strings.Map(func(r rune) rune {
		if r == '€' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	if s == "" || s == models.PriceUnavailable {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	if strings.Contains(s, ",") && strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
	}
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, raw)
	}
	return math.Round(v*100) / 100, nil
}

// PlanPriceRows decides which rows a new price produces given the latest
// stored row of the same (product, country):
//   - no prior row: the price as "First recorded price"
//   - a different price: the old price restamped one hour earlier as
//     "Last known price", then the new price as "Newly scraped price"
//   - the same price: nothing
//
// Prices are compared exactly.
func PlanPriceRows(productID, countryID uint, last *models.PriceObservation, price float64, at time.Time) []models.PriceObservation {
	if last == nil {
		return []models.PriceObservation{{
			ProductID:  productID,
			CountryID:  countryID,
			ObservedAt: at,
			Price:      price,
			Reason:     models.PriceReasonFirstRecorded,
		}}
	}
	if last.Price == price {
		return nil
	}
	return []models.PriceObservation{
		{
			ProductID:  productID,
			CountryID:  countryID,
			ObservedAt: at.Add(-LastKnownOffset),
			Price:      last.Price,
			Reason:     models.PriceReasonLastKnown,
		},
		{
			ProductID:  productID,
			CountryID:  countryID,
			ObservedAt: at,
			Price:      price,
			Reason:     models.PriceReasonNewlyScraped,
		},
	}
}

// PriceLedger appends price rows only when a product's price changes
type PriceLedger struct {
	store   Store
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewPriceLedger(store Store, log zerolog.Logger, m *metrics.Metrics) *PriceLedger {
	return &PriceLedger{store: store, log: log, metrics: m}
}

// RecordPrices persists the price of each observation for country. Each
// observation runs in its own transaction; a failing one is logged and
// counted while the rest of the batch continues. Only a lost connection or a
// cancelled context ends the batch early with an error.
func (l *PriceLedger) RecordPrices(ctx context.Context, observations []models.Observation, country string) (BatchResult, error) {
	var res BatchResult
	defer func() {
		l.metrics.ObserveLedger("price", "written", res.Written)
		l.metrics.ObserveLedger("price", "unchanged", res.Unchanged)
		l.metrics.ObserveLedger("price", "failed", res.Failed)
	}()

	for _, obs := range observations {
		logger := l.log.With().Str("sku", obs.ExternalID).Str("country", country).Logger()

		if obs.ExternalID == "" {
			logger.Warn().Str("url", obs.URL).Msg("observation without external id, price not recorded")
			res.Failed++
			continue
		}

		price, err := ParsePrice(obs.Price)
		if err != nil {
			logger.Warn().Err(err).Msg("price not recorded")
			res.Failed++
			continue
		}

		var written int
		var prev *models.PriceObservation
		err = l.store.InTx(ctx, func(tx database.LedgerTx) error {
			productID, err := tx.ResolveProduct(obs.ExternalID, obs.ProductName)
			if err != nil {
				return err
			}
			countryID, err := tx.ResolveCountry(country)
			if err != nil {
				return err
			}
			last, err := tx.LastPrice(productID, countryID)
			if err != nil {
				return err
			}

			rows := PlanPriceRows(productID, countryID, last, price, obs.ObservedAt)
			if err := tx.InsertPrices(rows); err != nil {
				return err
			}
			written = len(rows)
			prev = last
			return nil
		})
		if err != nil {
			if isFatal(ctx, err) {
				return res, fmt.Errorf("price ledger aborted: %w", err)
			}
			logger.Warn().Err(err).Msg("failed to record price")
			res.Failed++
			continue
		}

		switch {
		case prev == nil:
			logger.Info().Float64("price", price).Msg("first price recorded")
		case written > 0:
			logger.Info().Float64("old", prev.Price).Float64("new", price).Msg("price changed")
		default:
			res.Unchanged++
		}
		res.Written += written
	}

	return res, nil
}
