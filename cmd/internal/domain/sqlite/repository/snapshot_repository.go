package repository

import (
	"context"
	"perdecomp/cmd/internal/domain/entity"
	"perdecomp/cmd/internal/utils/cnpj"
	"sync"
)

// CardCellLimit is the most characters a single card cell holds; longer
// cards spill into the second cell.
const CardCellLimit = 45000

var snapshotColumns = []string{
	"Cliente_ID", "Empresa_ID", "Nome da Empresa", "CNPJ",
	"Qtd_Total", "Qtd_DCOMP", "Qtd_REST", "Qtd_RESSARC",
	"Risco_Nivel", "Risco_Tags_JSON", "Por_Natureza_JSON", "Por_Credito_JSON", "Datas_JSON",
	"Primeira_Data_ISO", "Ultima_Data_ISO",
	"Resumo_Ultima_Consulta_JSON_P1", "Resumo_Ultima_Consulta_JSON_P2",
	"Card_Schema_Version", "Rendered_At_ISO", "Fonte", "Data_Consulta", "URL_Comprovante_HTML",
	"Payload_Bytes", "Last_Updated_ISO", "Snapshot_Hash", "Facts_Count", "Consulta_ID", "Erro_Ultima_Consulta",
}

type DefaultSnapshotRepository struct {
	store *DefaultTableStore
	// upserts read then write, so they are serialized
	mu sync.Mutex
}

func NewSnapshotRepository(store *DefaultTableStore) *DefaultSnapshotRepository {
	return &DefaultSnapshotRepository{store: store}
}

func (r *DefaultSnapshotRepository) List(ctx context.Context) ([]*entity.Snapshot, error) {
	t, err := r.store.ReadRows(ctx, SnapshotSheet)
	if err != nil {
		return nil, err
	}

	out := make([]*entity.Snapshot, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, snapshotFromRow(row))
	}
	return out, nil
}

func (r *DefaultSnapshotRepository) FindByClientID(ctx context.Context, id string) (*entity.Snapshot, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	var found *entity.Snapshot
	for _, s := range all {
		if s.ClientID == id {
			found = s
		}
	}
	return found, nil
}

// FindByCNPJ returns the most recently updated snapshot for the CNPJ.
func (r *DefaultSnapshotRepository) FindByCNPJ(ctx context.Context, doc string) (*entity.Snapshot, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	want := cnpj.Normalize(doc)
	var found *entity.Snapshot
	for _, s := range all {
		if cnpj.Normalize(s.CNPJ) != want {
			continue
		}
		if found == nil || s.LastUpdatedISO >= found.LastUpdatedISO {
			found = s
		}
	}
	return found, nil
}

// Save writes the snapshot over the existing row of the same client id.
func (r *DefaultSnapshotRepository) Save(ctx context.Context, s *entity.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := upsertRow(ctx, r.store, SnapshotSheet, snapshotColumns, "Cliente_ID", s.ClientID, snapshotToCells(s))
	return err
}

// UpdateCells patches columns of an existing snapshot row. It reports false,
// without writing, when the client has no snapshot.
func (r *DefaultSnapshotRepository) UpdateCells(ctx context.Context, clientID string, cells map[string]string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.EnsureColumns(ctx, SnapshotSheet, snapshotColumns); err != nil {
		return false, err
	}
	t, err := r.store.ReadRows(ctx, SnapshotSheet)
	if err != nil {
		return false, err
	}

	row := 0
	for _, rw := range t.Rows {
		if rw.Get("Cliente_ID") == clientID {
			row = rw.Number
		}
	}
	if row == 0 {
		return false, nil
	}

	updates := make([]CellUpdate, 0, len(cells))
	for _, col := range snapshotColumns {
		if v, ok := cells[col]; ok {
			updates = append(updates, CellUpdate{Row: row, Column: col, Value: v})
		}
	}
	return true, r.store.BatchUpdateCells(ctx, SnapshotSheet, updates)
}

func (r *DefaultSnapshotRepository) ReassignClient(ctx context.Context, from, to string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rewriteColumn(ctx, r.store, SnapshotSheet, "Cliente_ID", from, to)
}

// SplitCard cuts a card into the two cells it is stored in. Anything past
// twice the cell limit is dropped.
func SplitCard(card string) (string, string) {
	runes := []rune(card)
	if len(runes) <= CardCellLimit {
		return card, ""
	}
	rest := runes[CardCellLimit:]
	if len(rest) > CardCellLimit {
		rest = rest[:CardCellLimit]
	}
	return string(runes[:CardCellLimit]), string(rest)
}

func snapshotToCells(s *entity.Snapshot) map[string]string {
	p1, p2 := SplitCard(s.CardJSON)
	return map[string]string{
		"Cliente_ID":                     s.ClientID,
		"Empresa_ID":                     s.CompanyID,
		"Nome da Empresa":                s.Name,
		"CNPJ":                           cnpj.Normalize(s.CNPJ),
		"Qtd_Total":                      itoa(s.Total),
		"Qtd_DCOMP":                      itoa(s.DCOMP),
		"Qtd_REST":                       itoa(s.REST),
		"Qtd_RESSARC":                    itoa(s.RESSARC),
		"Risco_Nivel":                    s.RiskLevel,
		"Risco_Tags_JSON":                s.RiskTagsJSON,
		"Por_Natureza_JSON":              s.ByNatureJSON,
		"Por_Credito_JSON":               s.ByCreditJSON,
		"Datas_JSON":                     s.DatesJSON,
		"Primeira_Data_ISO":              s.FirstDateISO,
		"Ultima_Data_ISO":                s.LastDateISO,
		"Resumo_Ultima_Consulta_JSON_P1": p1,
		"Resumo_Ultima_Consulta_JSON_P2": p2,
		"Card_Schema_Version":            s.SchemaVersion,
		"Rendered_At_ISO":                s.RenderedAtISO,
		"Fonte":                          s.Source,
		"Data_Consulta":                  s.ConsultedAt,
		"URL_Comprovante_HTML":           s.ReceiptURL,
		"Payload_Bytes":                  itoa(s.PayloadBytes),
		"Last_Updated_ISO":               s.LastUpdatedISO,
		"Snapshot_Hash":                  s.Hash,
		"Facts_Count":                    itoa(s.FactsCount),
		"Consulta_ID":                    s.ConsultationID,
		"Erro_Ultima_Consulta":           s.LastError,
	}
}

func snapshotFromRow(row Row) *entity.Snapshot {
	return &entity.Snapshot{
		ClientID:       row.Get("Cliente_ID"),
		CompanyID:      row.Get("Empresa_ID"),
		Name:           row.Get("Nome da Empresa"),
		CNPJ:           row.Get("CNPJ"),
		Total:          atoi(row.Get("Qtd_Total")),
		DCOMP:          atoi(row.Get("Qtd_DCOMP")),
		REST:           atoi(row.Get("Qtd_REST")),
		RESSARC:        atoi(row.Get("Qtd_RESSARC")),
		RiskLevel:      row.Get("Risco_Nivel"),
		RiskTagsJSON:   row.Get("Risco_Tags_JSON"),
		ByNatureJSON:   row.Get("Por_Natureza_JSON"),
		ByCreditJSON:   row.Get("Por_Credito_JSON"),
		DatesJSON:      row.Get("Datas_JSON"),
		FirstDateISO:   row.Get("Primeira_Data_ISO"),
		LastDateISO:    row.Get("Ultima_Data_ISO"),
		CardJSON:       row.Get("Resumo_Ultima_Consulta_JSON_P1") + row.Get("Resumo_Ultima_Consulta_JSON_P2"),
		SchemaVersion:  row.Get("Card_Schema_Version"),
		RenderedAtISO:  row.Get("Rendered_At_ISO"),
		Source:         row.Get("Fonte"),
		ConsultedAt:    row.Get("Data_Consulta"),
		ReceiptURL:     row.Get("URL_Comprovante_HTML"),
		PayloadBytes:   atoi(row.Get("Payload_Bytes")),
		LastUpdatedISO: row.Get("Last_Updated_ISO"),
		Hash:           row.Get("Snapshot_Hash"),
		FactsCount:     atoi(row.Get("Facts_Count")),
		ConsultationID: row.Get("Consulta_ID"),
		LastError:      row.Get("Erro_Ultima_Consulta"),
	}
}
