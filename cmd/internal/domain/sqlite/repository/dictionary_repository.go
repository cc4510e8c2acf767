package repository

import (
	"context"
	"perdecomp/cmd/internal/domain/perdcomp"
	"slices"
	"strings"
)

var (
	natureDictColumns = []string{"Codigo", "Familia", "Nome", "Grupo"}
	creditDictColumns = []string{"Codigo", "Descricao", "Categoria", "Risco", "Recomendacao"}
	typeDictColumns   = []string{"Codigo", "Descricao"}
)

// DefaultDictionaryRepository stores the editable classification tables.
type DefaultDictionaryRepository struct {
	store *DefaultTableStore
}

func NewDictionaryRepository(store *DefaultTableStore) *DefaultDictionaryRepository {
	return &DefaultDictionaryRepository{store: store}
}

type dictionarySource[T any] struct {
	store  *DefaultTableStore
	sheet  string
	decode func(Row) (T, bool)
}

func (d dictionarySource[T]) LoadEntries(ctx context.Context) (map[string]T, error) {
	t, err := d.store.ReadRows(ctx, d.sheet)
	if err != nil {
		return nil, err
	}

	out := make(map[string]T, len(t.Rows))
	for _, row := range t.Rows {
		code := strings.TrimSpace(row.Get("Codigo"))
		if code == "" {
			continue
		}
		if v, ok := d.decode(row); ok {
			out[code] = v
		}
	}
	return out, nil
}

func (r *DefaultDictionaryRepository) Natures() perdcomp.DictionarySource[perdcomp.Classification] {
	return dictionarySource[perdcomp.Classification]{store: r.store, sheet: NatureDictSheet, decode: func(row Row) (perdcomp.Classification, bool) {
		c := perdcomp.Classification{
			Familia: perdcomp.Familia(strings.ToUpper(strings.TrimSpace(row.Get("Familia")))),
			Nome:    strings.TrimSpace(row.Get("Nome")),
			Grupo:   strings.TrimSpace(row.Get("Grupo")),
		}
		if c.Familia == "" || c.Nome == "" {
			return c, false
		}
		if c.Grupo == "" {
			c.Grupo = strings.TrimSpace(row.Get("Codigo"))
		}
		return c, true
	}}
}

func (r *DefaultDictionaryRepository) Credits() perdcomp.DictionarySource[perdcomp.CreditProfile] {
	return dictionarySource[perdcomp.CreditProfile]{store: r.store, sheet: CreditDictSheet, decode: func(row Row) (perdcomp.CreditProfile, bool) {
		p := perdcomp.CreditProfile{
			Descricao:    strings.TrimSpace(row.Get("Descricao")),
			Categoria:    strings.TrimSpace(row.Get("Categoria")),
			Risco:        perdcomp.RiskLevel(strings.ToUpper(strings.TrimSpace(row.Get("Risco")))),
			Recomendacao: strings.TrimSpace(row.Get("Recomendacao")),
		}
		if p.Descricao == "" {
			return p, false
		}
		if p.Categoria == "" {
			p.Categoria = perdcomp.GenericGroup
		}
		if p.Risco == "" {
			p.Risco = perdcomp.RiskAlto
		}
		return p, true
	}}
}

func (r *DefaultDictionaryRepository) DocumentTypes() perdcomp.DictionarySource[string] {
	return dictionarySource[string]{store: r.store, sheet: DocumentTypeDictSheet, decode: func(row Row) (string, bool) {
		d := strings.TrimSpace(row.Get("Descricao"))
		return d, d != ""
	}}
}

// Seed upserts every seed entry into the dictionary sheets, keyed by code,
// and returns how many rows it wrote.
func (r *DefaultDictionaryRepository) Seed(ctx context.Context, seed *perdcomp.Seed) (int, error) {
	written := 0

	for _, code := range sortedCodes(seed.Naturezas) {
		c := seed.Naturezas[code]
		_, err := upsertRow(ctx, r.store, NatureDictSheet, natureDictColumns, "Codigo", code, map[string]string{
			"Codigo":  code,
			"Familia": string(c.Familia),
			"Nome":    c.Nome,
			"Grupo":   c.Grupo,
		})
		if err != nil {
			return written, err
		}
		written++
	}

	for _, code := range sortedCodes(seed.Creditos) {
		p := seed.Creditos[code]
		_, err := upsertRow(ctx, r.store, CreditDictSheet, creditDictColumns, "Codigo", code, map[string]string{
			"Codigo":       code,
			"Descricao":    p.Descricao,
			"Categoria":    p.Categoria,
			"Risco":        string(p.Risco),
			"Recomendacao": p.Recomendacao,
		})
		if err != nil {
			return written, err
		}
		written++
	}

	for _, code := range sortedCodes(seed.Tipos) {
		_, err := upsertRow(ctx, r.store, DocumentTypeDictSheet, typeDictColumns, "Codigo", code, map[string]string{
			"Codigo":    code,
			"Descricao": seed.Tipos[code],
		})
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// Reset drops the dictionary sheets, operator edits included.
func (r *DefaultDictionaryRepository) Reset(ctx context.Context) error {
	for _, sheet := range []string{NatureDictSheet, CreditDictSheet, DocumentTypeDictSheet} {
		if err := r.store.DeleteSheet(ctx, sheet); err != nil {
			return err
		}
	}
	return nil
}

func sortedCodes[T any](m map[string]T) []string {
	codes := make([]string, 0, len(m))
	for k := range m {
		codes = append(codes, k)
	}
	slices.Sort(codes)
	return codes
}
