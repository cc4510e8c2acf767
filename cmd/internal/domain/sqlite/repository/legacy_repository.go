package repository

import (
	"context"
	"perdecomp/cmd/internal/domain/entity"
	"perdecomp/cmd/internal/utils/cnpj"
	"sync"
)

var legacyColumns = []string{
	"Cliente_ID", "CNPJ", "Quantidade_PERDCOMP", "URL_Comprovante_HTML", "Data_Consulta",
	"Qtd_PERDCOMP_DCOMP", "Qtd_PERDCOMP_REST", "Qtd_PERDCOMP_RESSARC", "Qtd_PERDCOMP_CANCEL",
}

// DefaultLegacyRepository reads and maintains the flat counters sheet older
// clients still depend on.
type DefaultLegacyRepository struct {
	store *DefaultTableStore
	mu    sync.Mutex
}

func NewLegacyRepository(store *DefaultTableStore) *DefaultLegacyRepository {
	return &DefaultLegacyRepository{store: store}
}

// FindByCNPJ returns the last row recorded for the CNPJ, or nil.
func (r *DefaultLegacyRepository) FindByCNPJ(ctx context.Context, doc string) (*entity.LegacyRecord, error) {
	t, err := r.store.ReadRows(ctx, LegacySheet)
	if err != nil {
		return nil, err
	}

	want := cnpj.Normalize(doc)
	var found *entity.LegacyRecord
	for _, row := range t.Rows {
		if cnpj.Normalize(row.Get("CNPJ")) == want {
			found = legacyFromRow(row)
		}
	}
	return found, nil
}

func (r *DefaultLegacyRepository) Save(ctx context.Context, rec *entity.LegacyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := upsertRow(ctx, r.store, LegacySheet, legacyColumns, "Cliente_ID", rec.ClientID, map[string]string{
		"Cliente_ID":           rec.ClientID,
		"CNPJ":                 cnpj.Normalize(rec.CNPJ),
		"Quantidade_PERDCOMP":  itoa(rec.Total),
		"URL_Comprovante_HTML": rec.ReceiptURL,
		"Data_Consulta":        rec.ConsultedAt,
		"Qtd_PERDCOMP_DCOMP":   itoa(rec.DCOMP),
		"Qtd_PERDCOMP_REST":    itoa(rec.REST),
		"Qtd_PERDCOMP_RESSARC": itoa(rec.RESSARC),
		"Qtd_PERDCOMP_CANCEL":  itoa(rec.CANC),
	})
	return err
}

func (r *DefaultLegacyRepository) ReassignClient(ctx context.Context, from, to string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rewriteColumn(ctx, r.store, LegacySheet, "Cliente_ID", from, to)
}

func legacyFromRow(row Row) *entity.LegacyRecord {
	return &entity.LegacyRecord{
		ClientID:    row.Get("Cliente_ID"),
		CNPJ:        row.Get("CNPJ"),
		Total:       atoi(row.Get("Quantidade_PERDCOMP")),
		ReceiptURL:  row.Get("URL_Comprovante_HTML"),
		ConsultedAt: row.Get("Data_Consulta"),
		DCOMP:       atoi(row.Get("Qtd_PERDCOMP_DCOMP")),
		REST:        atoi(row.Get("Qtd_PERDCOMP_REST")),
		RESSARC:     atoi(row.Get("Qtd_PERDCOMP_RESSARC")),
		CANC:        atoi(row.Get("Qtd_PERDCOMP_CANCEL")),
	}
}
