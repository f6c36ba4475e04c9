package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"stockwatch/internal/models"
)

// IncidentLabel marks whether an out-of-stock incident has ended
type IncidentLabel string

const (
	IncidentHistorical IncidentLabel = "Historical"
	IncidentCurrent    IncidentLabel = "Currently out of stock"
)

// TimelineSource provides the status timeline of a storefront ordered by
// product and time, each row carrying the previous row of its product.
// *database.GormDB implements it.
type TimelineSource interface {
	StatusTimeline(ctx context.Context, country, brand string) ([]models.TimelineRow, error)
}

// CurrentOutOfStock is a product whose latest observation is OUT
type CurrentOutOfStock struct {
	SKU          string    `json:"sku"`
	ProductName  string    `json:"product_name"`
	OutSince     time.Time `json:"out_since"`
	DaysOut      int       `json:"days_out"`
	CurrentPrice *float64  `json:"current_price,omitempty"`
}

// ClosedIncident is an OUT observation directly followed by an IN observation
type ClosedIncident struct {
	SKU          string    `json:"sku"`
	ProductName  string    `json:"product_name"`
	OutDate      time.Time `json:"out_date"`
	BackInDate   time.Time `json:"back_in_date"`
	DurationDays int       `json:"duration_days"`
}

// HistoryIncident is one out-of-stock run. End is nil while the run is ongoing.
type HistoryIncident struct {
	SKU          string        `json:"sku"`
	ProductName  string        `json:"product_name"`
	Start        time.Time     `json:"start"`
	End          *time.Time    `json:"end,omitempty"`
	DurationDays int           `json:"duration_days"`
	Label        IncidentLabel `json:"label"`
}

// LatestStatus is the most recent observation of a product
type LatestStatus struct {
	SKU          string        `json:"sku"`
	ProductName  string        `json:"product_name"`
	ObservedAt   time.Time     `json:"observed_at"`
	Status       models.Status `json:"status"`
	CurrentPrice *float64      `json:"current_price,omitempty"`
}

// LastOutOfStock is a product whose latest OUT observation has no later IN
type LastOutOfStock struct {
	SKU         string    `json:"sku"`
	ProductName string    `json:"product_name"`
	LastOut     time.Time `json:"last_out"`
	DaysSince   int       `json:"days_since"`
}

// Service derives out-of-stock reports from the append-only status history.
// Runs and incidents are computed at read time only.
type Service struct {
	src TimelineSource
	now func() time.Time
}

// NewService creates the analytics service; now defines both the evaluation
// instant and the location calendar days are counted in
func NewService(src TimelineSource, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{src: src, now: now}
}

// CurrentOutOfStock lists products whose latest observation is OUT, with the
// start of the uninterrupted OUT run and its age in calendar days
func (s *Service) CurrentOutOfStock(ctx context.Context, country, brand string) ([]CurrentOutOfStock, error) {
	series, err := s.load(ctx, country, brand)
	if err != nil {
		return nil, err
	}
	now := s.now()

	out := make([]CurrentOutOfStock, 0)
	for _, rows := range series {
		last := rows[len(rows)-1]
		if last.Status != models.StatusOut {
			continue
		}
		start := len(rows) - 1
		for start > 0 && rows[start-1].Status == models.StatusOut {
			start--
		}
		out = append(out, CurrentOutOfStock{
			SKU:          last.SKU,
			ProductName:  last.ProductName,
			OutSince:     rows[start].ObservedAt,
			DaysOut:      dayDiff(rows[start].ObservedAt, now, now.Location()),
			CurrentPrice: last.CurrentPrice,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysOut > out[j].DaysOut })
	return out, nil
}

// OutOfStockDurations lists every OUT observation immediately followed by IN,
// most recent first
func (s *Service) OutOfStockDurations(ctx context.Context, country, brand string) ([]ClosedIncident, error) {
	series, err := s.load(ctx, country, brand)
	if err != nil {
		return nil, err
	}
	loc := s.now().Location()

	out := make([]ClosedIncident, 0)
	for _, rows := range series {
		for _, r := range rows {
			if r.Status != models.StatusIn || r.PrevStatus == nil || *r.PrevStatus != models.StatusOut || r.PrevObservedAt == nil {
				continue
			}
			out = append(out, ClosedIncident{
				SKU:          r.SKU,
				ProductName:  r.ProductName,
				OutDate:      *r.PrevObservedAt,
				BackInDate:   r.ObservedAt,
				DurationDays: closedDays(*r.PrevObservedAt, r.ObservedAt, loc),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].BackInDate.After(out[j].BackInDate) })
	return out, nil
}

// OutOfStockHistory reconstructs every OUT run: a run starts at an OUT row
// whose previous row is IN or absent and ends at the first later IN row.
// Results are ordered by SKU, newest run first.
func (s *Service) OutOfStockHistory(ctx context.Context, country, brand string) ([]HistoryIncident, error) {
	series, err := s.load(ctx, country, brand)
	if err != nil {
		return nil, err
	}
	now := s.now()

	out := make([]HistoryIncident, 0)
	for _, rows := range series {
		var incidents []HistoryIncident
		for i, r := range rows {
			if r.Status != models.StatusOut || (r.PrevStatus != nil && *r.PrevStatus != models.StatusIn) {
				continue
			}

			incident := HistoryIncident{
				SKU:         r.SKU,
				ProductName: r.ProductName,
				Start:       r.ObservedAt,
				Label:       IncidentCurrent,
			}
			for _, next := range rows[i+1:] {
				if next.Status == models.StatusIn {
					end := next.ObservedAt
					incident.End = &end
					incident.Label = IncidentHistorical
					incident.DurationDays = max(1, dayDiff(r.ObservedAt, end, now.Location()))
					break
				}
			}
			if incident.End == nil {
				incident.DurationDays = dayDiff(r.ObservedAt, now, now.Location())
			}
			incidents = append(incidents, incident)
		}
		for i := len(incidents) - 1; i >= 0; i-- {
			out = append(out, incidents[i])
		}
	}
	return out, nil
}

// LatestStatus returns the most recent observation of every product
func (s *Service) LatestStatus(ctx context.Context, country, brand string) ([]LatestStatus, error) {
	series, err := s.load(ctx, country, brand)
	if err != nil {
		return nil, err
	}

	out := make([]LatestStatus, 0, len(series))
	for _, rows := range series {
		last := rows[len(rows)-1]
		out = append(out, LatestStatus{
			SKU:          last.SKU,
			ProductName:  last.ProductName,
			ObservedAt:   last.ObservedAt,
			Status:       last.Status,
			CurrentPrice: last.CurrentPrice,
		})
	}
	return out, nil
}

// LastOutOfStockDates lists products whose latest OUT observation has no later
// IN observation, most recent first. DaysSince counts whole 24h periods.
func (s *Service) LastOutOfStockDates(ctx context.Context, country, brand string) ([]LastOutOfStock, error) {
	series, err := s.load(ctx, country, brand)
	if err != nil {
		return nil, err
	}
	now := s.now()

	out := make([]LastOutOfStock, 0)
	for _, rows := range series {
		lastOut := -1
		backIn := false
		for i, r := range rows {
			switch r.Status {
			case models.StatusOut:
				lastOut = i
				backIn = false
			case models.StatusIn:
				if lastOut >= 0 {
					backIn = true
				}
			}
		}
		if lastOut < 0 || backIn {
			continue
		}
		at := rows[lastOut].ObservedAt
		out = append(out, LastOutOfStock{
			SKU:         rows[lastOut].SKU,
			ProductName: rows[lastOut].ProductName,
			LastOut:     at,
			DaysSince:   int(now.Sub(at).Hours() / 24),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].LastOut.After(out[j].LastOut) })
	return out, nil
}

// load groups the timeline per product, keeping source order
func (s *Service) load(ctx context.Context, country, brand string) ([][]models.TimelineRow, error) {
	rows, err := s.src.StatusTimeline(ctx, country, brand)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeline for %s %s: %w", country, brand, err)
	}

	var series [][]models.TimelineRow
	index := make(map[string]int)
	for _, r := range rows {
		i, ok := index[r.SKU]
		if !ok {
			i = len(series)
			index[r.SKU] = i
			series = append(series, nil)
		}
		series[i] = append(series[i], r)
	}
	return series, nil
}
