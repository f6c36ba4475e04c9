package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"stockwatch/internal/database"
	"stockwatch/internal/metrics"
	"stockwatch/internal/models"
)

// StatusLedger appends availability observations to the status history
type StatusLedger struct {
	store   Store
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewStatusLedger(store Store, log zerolog.Logger, m *metrics.Metrics) *StatusLedger {
	return &StatusLedger{store: store, log: log, metrics: m}
}

// RecordObservations writes one status row per observation for the
// (country, brand) storefront and links each product to its URL. An
// unparseable price is stored as NULL. Rows are isolated in their own
// transactions like PriceLedger.RecordPrices.
func (l *StatusLedger) RecordObservations(ctx context.Context, observations []models.Observation, country, brand string) (BatchResult, error) {
	var res BatchResult
	defer func() {
		l.metrics.ObserveLedger("status", "written", res.Written)
		l.metrics.ObserveLedger("status", "failed", res.Failed)
	}()

	for _, obs := range observations {
		logger := l.log.With().
			Str("sku", obs.ExternalID).
			Str("country", country).
			Str("brand", brand).
			Logger()

		if obs.ExternalID == "" {
			logger.Warn().Str("url", obs.URL).Msg("observation without external id, status not recorded")
			res.Failed++
			continue
		}

		var currentPrice *float64
		if p, err := ParsePrice(obs.Price); err == nil {
			currentPrice = &p
		} else {
			logger.Debug().Str("price", obs.Price).Msg("status recorded without price")
		}

		err := l.store.InTx(ctx, func(tx database.LedgerTx) error {
			productID, err := tx.ResolveProduct(obs.ExternalID, obs.ProductName)
			if err != nil {
				return err
			}
			countryID, err := tx.ResolveIdentity(models.IdentityCountry, country)
			if err != nil {
				return err
			}
			brandID, err := tx.ResolveIdentity(models.IdentityBrand, brand)
			if err != nil {
				return err
			}
			if obs.URL != "" {
				if err := tx.LinkProductURL(productID, obs.URL); err != nil {
					return err
				}
			}
			return tx.UpsertStatus(&models.StatusObservation{
				ProductID:    productID,
				CountryID:    countryID,
				BrandID:      brandID,
				ObservedAt:   obs.ObservedAt,
				Status:       obs.Status,
				ProductType:  obs.ProductType,
				CurrentPrice: currentPrice,
			})
		})
		if err != nil {
			if isFatal(ctx, err) {
				return res, fmt.Errorf("status ledger aborted: %w", err)
			}
			logger.Warn().Err(err).Msg("failed to record status")
			res.Failed++
			continue
		}
		res.Written++
	}

	return res, nil
}
