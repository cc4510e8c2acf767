package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"perdecomp/cmd/internal/domain/entity"
	"perdecomp/cmd/internal/utils/cnpj"
	"strconv"
	"sync"
)

var factColumns = []string{
	"Fact_ID", "Cliente_ID", "Empresa_ID", "Nome da Empresa", "CNPJ",
	"Perdcomp_Numero", "Perdcomp_Formatado", "Protocolo", "Data_ISO",
	"Tipo_Codigo", "Tipo_Nome", "Natureza", "Familia", "Credito_Codigo", "Credito_Descricao", "Risco_Nivel",
	"Situacao", "Situacao_Detalhamento", "Motivo_Normalizado", "Solicitante", "Data_Transmissao",
	"Fonte", "Data_Consulta", "URL_Comprovante_HTML", "Row_Hash", "Inserted_At", "Consulta_ID", "Version", "Deleted_Flag",
}

type DefaultFactRepository struct {
	store *DefaultTableStore
	mu    sync.Mutex
}

func NewFactRepository(store *DefaultTableStore) *DefaultFactRepository {
	return &DefaultFactRepository{store: store}
}

// Append writes the facts whose content differs from the latest stored
// version of the same filing. Unchanged facts are skipped, so appending the
// same consultation twice is a no-op. It returns how many rows were written.
func (r *DefaultFactRepository) Append(ctx context.Context, facts []*entity.Fact) (int, error) {
	if len(facts) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.EnsureColumns(ctx, FactsSheet, factColumns); err != nil {
		return 0, err
	}

	stored, err := r.readAll(ctx)
	if err != nil {
		return 0, err
	}
	latest := latestByKey(stored)

	written := 0
	for _, f := range facts {
		f.RowHash = HashFact(f)
		prev, ok := latest[f.Key()]
		if ok && prev.RowHash == f.RowHash && !prev.Deleted {
			continue
		}

		f.Version = 1
		if ok {
			f.Version = prev.Version + 1
		}
		if _, err := r.store.AppendRow(ctx, FactsSheet, factToCells(f)); err != nil {
			return written, err
		}
		latest[f.Key()] = f
		written++
	}
	return written, nil
}

// ListByClient returns the latest live version of every filing of a client,
// in the order they were first stored.
func (r *DefaultFactRepository) ListByClient(ctx context.Context, clientID string) ([]*entity.Fact, error) {
	return r.list(ctx, func(f *entity.Fact) bool { return f.ClientID == clientID })
}

func (r *DefaultFactRepository) ListByCNPJ(ctx context.Context, doc string) ([]*entity.Fact, error) {
	want := cnpj.Normalize(doc)
	return r.list(ctx, func(f *entity.Fact) bool { return cnpj.Normalize(f.CNPJ) == want })
}

func (r *DefaultFactRepository) ReassignClient(ctx context.Context, from, to string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return rewriteColumn(ctx, r.store, FactsSheet, "Cliente_ID", from, to)
}

func (r *DefaultFactRepository) list(ctx context.Context, match func(*entity.Fact) bool) ([]*entity.Fact, error) {
	stored, err := r.readAll(ctx)
	if err != nil {
		return nil, err
	}

	var order []string
	picked := map[string]*entity.Fact{}
	for _, f := range stored {
		if !match(f) {
			continue
		}
		prev, ok := picked[f.Key()]
		if !ok {
			order = append(order, f.Key())
		}
		if !ok || f.Version >= prev.Version {
			picked[f.Key()] = f
		}
	}

	out := make([]*entity.Fact, 0, len(order))
	for _, k := range order {
		if f := picked[k]; !f.Deleted {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *DefaultFactRepository) readAll(ctx context.Context) ([]*entity.Fact, error) {
	t, err := r.store.ReadRows(ctx, FactsSheet)
	if err != nil {
		return nil, err
	}

	out := make([]*entity.Fact, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, factFromRow(row))
	}
	return out, nil
}

func latestByKey(facts []*entity.Fact) map[string]*entity.Fact {
	latest := make(map[string]*entity.Fact, len(facts))
	for _, f := range facts {
		if prev, ok := latest[f.Key()]; !ok || f.Version >= prev.Version {
			latest[f.Key()] = f
		}
	}
	return latest
}

// HashFact fingerprints the content of a fact, ignoring provenance (ids,
// consultation, timestamps and version).
func HashFact(f *entity.Fact) string {
	content := []string{
		f.ClientID, cnpj.Normalize(f.CNPJ), f.Number, f.Protocol, f.IssueDate,
		strconv.Itoa(f.TypeCode), f.NatureCode, f.Family, f.CreditCode, f.CreditDesc,
		f.Situation, f.SituationDetail, f.Requester, f.TransmittedAt,
	}
	raw, _ := json.Marshal(content)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func factToCells(f *entity.Fact) map[string]string {
	deleted := ""
	if f.Deleted {
		deleted = "1"
	}
	return map[string]string{
		"Fact_ID":               strconv.FormatInt(f.ID, 10),
		"Cliente_ID":            f.ClientID,
		"Empresa_ID":            f.CompanyID,
		"Nome da Empresa":       f.CompanyName,
		"CNPJ":                  cnpj.Normalize(f.CNPJ),
		"Perdcomp_Numero":       f.Number,
		"Perdcomp_Formatado":    f.FormattedNumber,
		"Protocolo":             f.Protocol,
		"Data_ISO":              f.IssueDate,
		"Tipo_Codigo":           itoa(f.TypeCode),
		"Tipo_Nome":             f.TypeName,
		"Natureza":              f.NatureCode,
		"Familia":               f.Family,
		"Credito_Codigo":        f.CreditCode,
		"Credito_Descricao":     f.CreditDesc,
		"Risco_Nivel":           f.RiskLevel,
		"Situacao":              f.Situation,
		"Situacao_Detalhamento": f.SituationDetail,
		"Motivo_Normalizado":    f.Motive,
		"Solicitante":           f.Requester,
		"Data_Transmissao":      f.TransmittedAt,
		"Fonte":                 f.Source,
		"Data_Consulta":         f.ConsultedAt,
		"URL_Comprovante_HTML":  f.ReceiptURL,
		"Row_Hash":              f.RowHash,
		"Inserted_At":           f.InsertedAt,
		"Consulta_ID":           f.ConsultationID,
		"Version":               itoa(f.Version),
		"Deleted_Flag":          deleted,
	}
}

func factFromRow(row Row) *entity.Fact {
	id, _ := strconv.ParseInt(row.Get("Fact_ID"), 10, 64)
	deleted := row.Get("Deleted_Flag")
	return &entity.Fact{
		ID:              id,
		ClientID:        row.Get("Cliente_ID"),
		CompanyID:       row.Get("Empresa_ID"),
		CompanyName:     row.Get("Nome da Empresa"),
		CNPJ:            row.Get("CNPJ"),
		Number:          row.Get("Perdcomp_Numero"),
		FormattedNumber: row.Get("Perdcomp_Formatado"),
		Protocol:        row.Get("Protocolo"),
		IssueDate:       row.Get("Data_ISO"),
		TypeCode:        atoi(row.Get("Tipo_Codigo")),
		TypeName:        row.Get("Tipo_Nome"),
		NatureCode:      row.Get("Natureza"),
		Family:          row.Get("Familia"),
		CreditCode:      row.Get("Credito_Codigo"),
		CreditDesc:      row.Get("Credito_Descricao"),
		RiskLevel:       row.Get("Risco_Nivel"),
		Situation:       row.Get("Situacao"),
		SituationDetail: row.Get("Situacao_Detalhamento"),
		Motive:          row.Get("Motivo_Normalizado"),
		Requester:       row.Get("Solicitante"),
		TransmittedAt:   row.Get("Data_Transmissao"),
		Source:          row.Get("Fonte"),
		ConsultedAt:     row.Get("Data_Consulta"),
		ReceiptURL:      row.Get("URL_Comprovante_HTML"),
		RowHash:         row.Get("Row_Hash"),
		InsertedAt:      row.Get("Inserted_At"),
		ConsultationID:  row.Get("Consulta_ID"),
		Version:         atoi(row.Get("Version")),
		Deleted:         deleted == "1" || deleted == "true" || deleted == "TRUE",
	}
}
