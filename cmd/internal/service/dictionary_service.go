package service

import (
	"context"
	"perdecomp/cmd/internal/config"
	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/domain/perdcomp"
	"perdecomp/cmd/internal/utils/apierror"

	"github.com/labstack/gommon/log"
)

// DictionaryStore is the persisted form of the taxonomy tables.
type DictionaryStore interface {
	Natures() perdcomp.DictionarySource[perdcomp.Classification]
	Credits() perdcomp.DictionarySource[perdcomp.CreditProfile]
	DocumentTypes() perdcomp.DictionarySource[string]
	Seed(ctx context.Context, seed *perdcomp.Seed) (int, error)
	Reset(ctx context.Context) error
}

type entriesLister[T any] interface {
	Entries() map[string]T
}

type reloadable interface {
	Reload(ctx context.Context) (int, error)
}

// DictionaryService owns the taxonomy used by every lookup. With the
// "static" source it serves the embedded seed; with "store" it serves the
// dictionary tables over the seed and can be reloaded.
type DictionaryService struct {
	source   string
	seed     *perdcomp.Seed
	store    DictionaryStore
	taxonomy *perdcomp.Taxonomy
	tables   []reloadable
}

func NewDictionaryService(source string, seed *perdcomp.Seed, store DictionaryStore) *DictionaryService {
	d := &DictionaryService{source: source, seed: seed, store: store}
	if source != config.TaxonomyStore || store == nil {
		d.source = config.TaxonomyStatic
		d.taxonomy = perdcomp.StaticTaxonomy(seed)
		return d
	}

	static := perdcomp.StaticTaxonomy(seed)
	natures := perdcomp.NewDictionaryTable(store.Natures(), static.Naturezas.(*perdcomp.StaticTable[perdcomp.Classification]))
	credits := perdcomp.NewDictionaryTable(store.Credits(), static.Creditos.(*perdcomp.StaticTable[perdcomp.CreditProfile]))
	types := perdcomp.NewDictionaryTable(store.DocumentTypes(), static.Tipos.(*perdcomp.StaticTable[string]))

	d.taxonomy = &perdcomp.Taxonomy{Naturezas: natures, Creditos: credits, Tipos: types}
	d.tables = []reloadable{natures, credits, types}
	return d
}

func (d *DictionaryService) Taxonomy() *perdcomp.Taxonomy {
	return d.taxonomy
}

func (d *DictionaryService) Source() string {
	return d.source
}

// Reload refreshes the store-backed tables. It is a no-op for the static
// source. Tables that fail to load keep their previous entries.
func (d *DictionaryService) Reload(ctx context.Context) (int, error) {
	total := 0
	var firstErr error
	for _, t := range d.tables {
		n, err := t.Reload(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		total += n
	}
	return total, firstErr
}

// Seed writes the embedded seed into the dictionary tables and reloads them.
func (d *DictionaryService) Seed(ctx context.Context) (*contract.SeedResponse, apierror.ErrorResponse) {
	if d.store == nil {
		return nil, apierror.NewSimple(409, "Dictionary store is not configured")
	}

	rows, err := d.store.Seed(ctx, d.seed)
	if err != nil {
		log.Errorf("failed to seed dictionary: %v", err)
		return nil, apierror.InternalServerError
	}

	reloaded, err := d.Reload(ctx)
	if err != nil {
		log.Warnf("dictionary seeded but reload failed: %v", err)
	}
	return &contract.SeedResponse{Rows: rows, Reloaded: reloaded}, nil
}

// Reset empties the dictionary tables, so lookups fall back to the seed
// until the tables are seeded or edited again.
func (d *DictionaryService) Reset(ctx context.Context) apierror.ErrorResponse {
	if d.store == nil {
		return apierror.NewSimple(409, "Dictionary store is not configured")
	}
	if err := d.store.Reset(ctx); err != nil {
		log.Errorf("failed to reset dictionary: %v", err)
		return apierror.InternalServerError
	}
	if _, err := d.Reload(ctx); err != nil {
		log.Warnf("dictionary reset but reload failed: %v", err)
	}
	return nil
}

// Dictionary returns the tables currently in effect.
func (d *DictionaryService) Dictionary() *contract.DictionaryResponse {
	return &contract.DictionaryResponse{
		Source:    d.source,
		Naturezas: entries(d.taxonomy.Naturezas),
		Creditos:  entries(d.taxonomy.Creditos),
		Tipos:     entries(d.taxonomy.Tipos),
	}
}

func entries[T any](l perdcomp.Lookup[T]) map[string]T {
	if e, ok := l.(entriesLister[T]); ok {
		return e.Entries()
	}
	return map[string]T{}
}
