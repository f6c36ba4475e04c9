package ledger

import (
	"context"
	"fmt"
	"sort"

	"stockwatch/internal/database"
	"stockwatch/internal/models"
)

type statusKey struct {
	product, country, brand uint
	at                      int64
}

// memStore is an in-memory Store with rollback on error
type memStore struct {
	state   memState
	// failSKU makes status and price writes for that product fail
	failSKU string
	txs     int
}

type memState struct {
	nextID    uint
	products  map[string]uint
	names     map[uint]string
	countries map[string]uint
	brands    map[string]uint
	urls      map[string]uint
	links     map[[2]uint]bool
	statuses  map[statusKey]models.StatusObservation
	prices    []models.PriceObservation
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		products:  make(map[string]uint),
		names:     make(map[uint]string),
		countries: make(map[string]uint),
		brands:    make(map[string]uint),
		urls:      make(map[string]uint),
		links:     make(map[[2]uint]bool),
		statuses:  make(map[statusKey]models.StatusObservation),
	}}
}

func (s memState) clone() memState {
	c := s
	c.products = copyMap(s.products)
	c.names = copyMap(s.names)
	c.countries = copyMap(s.countries)
	c.brands = copyMap(s.brands)
	c.urls = copyMap(s.urls)
	c.links = copyMap(s.links)
	c.statuses = copyMap(s.statuses)
	c.prices = append([]models.PriceObservation(nil), s.prices...)
	return c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m *memStore) InTx(ctx context.Context, fn func(database.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.txs++
	snapshot := m.state.clone()
	if err := fn(&memTx{store: m}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memStore) statusRows() []models.StatusObservation {
	rows := make([]models.StatusObservation, 0, len(m.state.statuses))
	for _, r := range m.state.statuses {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ObservedAt.Before(rows[j].ObservedAt) })
	return rows
}

func (m *memStore) pricesFor(sku string) []models.PriceObservation {
	id := m.state.products[sku]
	var rows []models.PriceObservation
	for _, p := range m.state.prices {
		if p.ProductID == id {
			rows = append(rows, p)
		}
	}
	return rows
}

type memTx struct {
	store *memStore
}

func (t *memTx) next() uint {
	t.store.state.nextID++
	return t.store.state.nextID
}

func (t *memTx) ResolveProduct(sku, name string) (uint, error) {
	st := &t.store.state
	if id, ok := st.products[sku]; ok {
		return id, nil
	}
	id := t.next()
	st.products[sku] = id
	st.names[id] = name
	return id, nil
}

func (t *memTx) ResolveCountry(code string) (uint, error) {
	st := &t.store.state
	if id, ok := st.countries[code]; ok {
		return id, nil
	}
	id := t.next()
	st.countries[code] = id
	return id, nil
}

func (t *memTx) ResolveBrand(name string) (uint, error) {
	st := &t.store.state
	if id, ok := st.brands[name]; ok {
		return id, nil
	}
	id := t.next()
	st.brands[name] = id
	return id, nil
}

func (t *memTx) ResolveIdentity(kind models.IdentityKind, key string) (uint, error) {
	switch kind {
	case models.IdentityProduct:
		return t.ResolveProduct(key, "")
	case models.IdentityCountry:
		return t.ResolveCountry(key)
	case models.IdentityBrand:
		return t.ResolveBrand(key)
	}
	return 0, fmt.Errorf("unknown identity kind %d", kind)
}

func (t *memTx) LinkProductURL(productID uint, url string) error {
	st := &t.store.state
	id, ok := st.urls[url]
	if !ok {
		id = t.next()
		st.urls[url] = id
	}
	st.links[[2]uint{productID, id}] = true
	return nil
}

func (t *memTx) UpsertStatus(row *models.StatusObservation) error {
	if t.store.failSKU != "" && t.store.state.products[t.store.failSKU] == row.ProductID {
		return fmt.Errorf("upsert rejected for %s", t.store.failSKU)
	}
	key := statusKey{row.ProductID, row.CountryID, row.BrandID, row.ObservedAt.UnixNano()}
	t.store.state.statuses[key] = *row
	return nil
}

func (t *memTx) LastPrice(productID, countryID uint) (*models.PriceObservation, error) {
	var last *models.PriceObservation
	for i, p := range t.store.state.prices {
		if p.ProductID != productID || p.CountryID != countryID {
			continue
		}
		if last == nil || p.ObservedAt.After(last.ObservedAt) {
			last = &t.store.state.prices[i]
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (t *memTx) InsertPrices(rows []models.PriceObservation) error {
	st := &t.store.state
	for _, r := range rows {
		if t.store.failSKU != "" && st.products[t.store.failSKU] == r.ProductID {
			return fmt.Errorf("insert rejected for %s", t.store.failSKU)
		}
		for _, p := range st.prices {
			if p.ProductID == r.ProductID && p.CountryID == r.CountryID && p.ObservedAt.Equal(r.ObservedAt) {
				return fmt.Errorf("duplicate price key")
			}
		}
		st.prices = append(st.prices, r)
	}
	return nil
}
