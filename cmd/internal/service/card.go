package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/domain/entity"
	"perdecomp/cmd/internal/domain/perdcomp"
	"sort"
	"strconv"
)

// CardInput is what a card is rendered from.
type CardInput struct {
	Name        string
	CNPJ        string
	ConsultedAt string
	SiteReceipt string
	RenderedAt  string
	Facts       []*entity.Fact
}

// BuildCard renders a snapshot card from stored facts.
func BuildCard(tax *perdcomp.Taxonomy, in CardInput) *contract.SnapshotCard {
	resumo := tax.Aggregate(factEntries(in.Facts))
	risk := tax.DeriveRisk(riskFacts(in.Facts))

	codes := make([]contract.IdentifiedCode, 0, len(in.Facts))
	credits := make([]string, 0, len(in.Facts))
	byCredit := map[string]int{}
	for _, f := range in.Facts {
		cls := tax.Naturezas.Lookup(f.NatureCode)
		codes = append(codes, contract.IdentifiedCode{
			Codigo:               f.FormattedNumber,
			Risco:                f.RiskLevel,
			CreditoTipo:          f.CreditDesc,
			Grupo:                cls.Grupo,
			Natureza:             cls.Nome,
			Protocolo:            f.Protocol,
			Situacao:             f.Situation,
			SituacaoDetalhamento: f.SituationDetail,
			DataISO:              f.IssueDate,
		})
		credits = append(credits, f.CreditCode)
		byCredit[creditLabel(f)]++
	}

	card := &contract.SnapshotCard{
		Header: contract.CardHeader{
			Nome:              in.Name,
			CNPJ:              in.CNPJ,
			UltimaConsultaISO: in.ConsultedAt,
		},
		QuantidadeTotal:      resumo.TotalSemCancelamento,
		AnaliseRisco:         risk,
		QuantosSao:           familyBlocks(resumo.PorFamilia),
		PorNatureza:          sortedBlocks(resumo.PorNaturezaAgrupada),
		PorCredito:           sortedBlocks(byCredit),
		CodigosIdentificados: codes,
		Recomendacoes:        tax.Recommendations(credits),
		Resumo:               &resumo,
		SchemaVersion:        contract.CardSchemaVersion,
		RenderedAtISO:        in.RenderedAt,
	}
	if in.SiteReceipt != "" {
		card.Links = &contract.CardLinks{HTML: in.SiteReceipt}
	}
	card.Hash = CardHash(card)
	return card
}

// MergeCard combines a stored card with one derived from facts. Derived
// fields always win; the stored card only fills what derivation left empty.
func MergeCard(cached, derived *contract.SnapshotCard) *contract.SnapshotCard {
	if derived == nil {
		return cached
	}

	out := *derived
	if cached == nil {
		return &out
	}

	if out.Header.Nome == "" {
		out.Header.Nome = cached.Header.Nome
	}
	if out.Header.CNPJ == "" {
		out.Header.CNPJ = cached.Header.CNPJ
	}
	if out.Header.UltimaConsultaISO == "" {
		out.Header.UltimaConsultaISO = cached.Header.UltimaConsultaISO
	}
	if out.Links == nil {
		out.Links = cached.Links
	}
	if len(out.Recomendacoes) == 0 {
		out.Recomendacoes = cached.Recomendacoes
	}
	if out.RenderedAtISO == "" {
		out.RenderedAtISO = cached.RenderedAtISO
	}

	out.SchemaVersion = contract.CardSchemaVersion
	out.Hash = CardHash(&out)
	return &out
}

// CardHash identifies a card's content. The render time and the hash itself
// are left out so re-rendering the same facts yields the same hash.
func CardHash(card *contract.SnapshotCard) string {
	c := *card
	c.Hash = ""
	c.RenderedAtISO = ""

	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// needsRebuild reports whether a stored card lacks fields the current
// layout has.
func needsRebuild(card *contract.SnapshotCard) bool {
	return card == nil ||
		card.Resumo == nil ||
		card.SchemaVersion < contract.CardSchemaVersion ||
		len(card.QuantosSao) == 0
}

// decodeCard parses a stored card. Malformed JSON yields nil.
func decodeCard(raw string) *contract.SnapshotCard {
	if raw == "" {
		return nil
	}
	var card contract.SnapshotCard
	if err := json.Unmarshal([]byte(raw), &card); err != nil {
		return nil
	}
	return &card
}

// countersCard renders a card from family counters alone, for stores that
// kept no facts.
func countersCard(header contract.CardHeader, total, canc int, byFamily map[perdcomp.Familia]int, risk perdcomp.Risk) *contract.SnapshotCard {
	resumo := resumoFromCounters(total, canc, byFamily)
	card := &contract.SnapshotCard{
		Header:               header,
		QuantidadeTotal:      resumo.TotalSemCancelamento,
		AnaliseRisco:         risk,
		QuantosSao:           familyBlocks(resumo.PorFamilia),
		PorNatureza:          []contract.CountBlock{},
		PorCredito:           []contract.CountBlock{},
		CodigosIdentificados: []contract.IdentifiedCode{},
		Recomendacoes:        []string{},
		Resumo:               &resumo,
		SchemaVersion:        contract.CardSchemaVersion,
	}
	card.Hash = CardHash(card)
	return card
}

var familyLabels = map[perdcomp.Familia]string{
	perdcomp.FamiliaDCOMP:        "Declaração de Compensação",
	perdcomp.FamiliaREST:         "Pedido de Restituição",
	perdcomp.FamiliaRESSARC:      "Pedido de Ressarcimento",
	perdcomp.FamiliaDesconhecido: perdcomp.UnmappedNature,
}

// resumoFromCounters rebuilds a Resumo that satisfies the usual invariants
// from per-family counters. Filings the counters do not place in a family
// are counted as DESCONHECIDO.
func resumoFromCounters(total, canc int, byFamily map[perdcomp.Familia]int) perdcomp.Resumo {
	r := perdcomp.Resumo{
		PorFamilia:          make(map[perdcomp.Familia]int, len(perdcomp.Familias)),
		Breakdown:           []perdcomp.BreakdownItem{},
		PorNaturezaAgrupada: map[string]int{},
		PorCredito:          map[string]int{},
		TopCreditos:         []perdcomp.CreditCount{},
		PorMotivo:           map[perdcomp.Motivo]int{},
		Cancelamentos:       []string{},
	}

	known := 0
	for _, f := range []perdcomp.Familia{perdcomp.FamiliaDCOMP, perdcomp.FamiliaREST, perdcomp.FamiliaRESSARC} {
		n := max(byFamily[f], 0)
		r.PorFamilia[f] = n
		known += n
	}
	canc = max(canc, 0)
	unknown := max(total-canc-known, 0)
	r.PorFamilia[perdcomp.FamiliaDesconhecido] = unknown
	r.PorFamilia[perdcomp.FamiliaCANC] = canc

	r.Canc = canc
	r.TotalSemCancelamento = known + unknown
	r.Total = r.TotalSemCancelamento + canc

	for _, f := range []perdcomp.Familia{perdcomp.FamiliaDCOMP, perdcomp.FamiliaREST, perdcomp.FamiliaRESSARC, perdcomp.FamiliaDesconhecido} {
		if n := r.PorFamilia[f]; n > 0 {
			r.Breakdown = append(r.Breakdown, perdcomp.BreakdownItem{Nome: familyLabels[f], Familia: f, Quantidade: n})
		}
	}
	return r
}

func familyBlocks(byFamily map[perdcomp.Familia]int) []contract.CountBlock {
	blocks := make([]contract.CountBlock, 0, len(perdcomp.Familias))
	for _, f := range perdcomp.Familias {
		blocks = append(blocks, contract.CountBlock{Label: f.String(), Count: byFamily[f]})
	}
	return blocks
}

// sortedBlocks orders counts by count, then label.
func sortedBlocks(counts map[string]int) []contract.CountBlock {
	blocks := make([]contract.CountBlock, 0, len(counts))
	for label, n := range counts {
		blocks = append(blocks, contract.CountBlock{Label: label, Count: n})
	}
	sort.Slice(blocks, func(i, j int) bool {
		if blocks[i].Count != blocks[j].Count {
			return blocks[i].Count > blocks[j].Count
		}
		return blocks[i].Label < blocks[j].Label
	})
	return blocks
}

func creditLabel(f *entity.Fact) string {
	if f.CreditDesc == "" {
		return f.CreditCode
	}
	return f.CreditCode + " - " + f.CreditDesc
}

func factEntries(facts []*entity.Fact) []perdcomp.Entry {
	entries := make([]perdcomp.Entry, 0, len(facts))
	for _, f := range facts {
		entries = append(entries, perdcomp.Entry{
			Numero:               f.Number,
			Situacao:             f.Situation,
			SituacaoDetalhamento: f.SituationDetail,
			TipoCredito:          f.CreditDesc,
			TipoDocumento:        f.TypeName,
			DataTransmissao:      f.TransmittedAt,
			Solicitante:          f.Requester,
		})
	}
	return entries
}

func riskFacts(facts []*entity.Fact) []perdcomp.RiskFact {
	out := make([]perdcomp.RiskFact, 0, len(facts))
	for _, f := range facts {
		out = append(out, perdcomp.RiskFact{
			NatureCode:           f.NatureCode,
			CreditCode:           f.CreditCode,
			Situacao:             f.Situation,
			SituacaoDetalhamento: f.SituationDetail,
		})
	}
	return out
}

// issueDates returns the distinct filing dates, newest first.
func issueDates(facts []*entity.Fact) []string {
	seen := map[string]bool{}
	var dates []string
	for _, f := range facts {
		if f.IssueDate == "" || seen[f.IssueDate] {
			continue
		}
		seen[f.IssueDate] = true
		dates = append(dates, f.IssueDate)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

func typeName(tax *perdcomp.Taxonomy, code int, providerLabel string) string {
	name := tax.Tipos.Lookup(strconv.Itoa(code))
	if name == perdcomp.UnknownType && providerLabel != "" {
		return providerLabel
	}
	return name
}
