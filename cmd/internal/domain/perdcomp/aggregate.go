package perdcomp

import (
	"sort"
	"strings"
)

// Entry is one filing as returned by the provider.
type Entry struct {
	Numero               string `json:"perdcomp"`
	Situacao             string `json:"situacao"`
	SituacaoDetalhamento string `json:"situacao_detalhamento"`
	TipoCredito          string `json:"tipo_credito"`
	TipoDocumento        string `json:"tipo_documento"`
	DataTransmissao      string `json:"data_transmissao"`
	Solicitante          string `json:"solicitante"`
}

type BreakdownItem struct {
	Nome       string  `json:"nome"`
	Familia    Familia `json:"familia"`
	Quantidade int     `json:"quantidade"`
}

type CreditCount struct {
	Codigo     string `json:"codigo"`
	Descricao  string `json:"descricao"`
	Quantidade int    `json:"quantidade"`
}

// Resumo is the per-company summary of a filing list.
//
// Invariants: Total == TotalSemCancelamento + Canc, TotalSemCancelamento is
// the sum of PorFamilia over every family but CANC, and the Breakdown
// quantities sum to TotalSemCancelamento.
type Resumo struct {
	Total                int             `json:"total"`
	TotalSemCancelamento int             `json:"totalSemCancelamento"`
	Canc                 int             `json:"canc"`
	PorFamilia           map[Familia]int `json:"porFamilia"`
	Breakdown            []BreakdownItem `json:"breakdown"`
	PorNaturezaAgrupada  map[string]int  `json:"porNaturezaAgrupada"`
	PorCredito           map[string]int  `json:"porCredito"`
	TopCreditos          []CreditCount   `json:"topCreditos"`
	PorMotivo            map[Motivo]int  `json:"porMotivo"`
	Cancelamentos        []string        `json:"cancelamentos"`
}

// TopCreditsLimit is how many credits Aggregate reports in TopCreditos.
const TopCreditsLimit = 3

var familyRank = map[Familia]int{
	FamiliaDCOMP:        0,
	FamiliaREST:         1,
	FamiliaRESSARC:      2,
	FamiliaDesconhecido: 3,
	FamiliaCANC:         5,
}

func rankOf(f Familia) int {
	if r, ok := familyRank[f]; ok {
		return r
	}
	return 4
}

// Aggregate builds a fresh Resumo from raw entries. Entries whose number does
// not parse are skipped; an empty or nil list yields zero counts.
func (t *Taxonomy) Aggregate(entries []Entry) Resumo {
	r := Resumo{
		PorFamilia:          make(map[Familia]int, len(Familias)),
		Breakdown:           []BreakdownItem{},
		PorNaturezaAgrupada: map[string]int{},
		PorCredito:          map[string]int{},
		PorMotivo:           map[Motivo]int{},
		Cancelamentos:       []string{},
	}
	for _, f := range Familias {
		r.PorFamilia[f] = 0
	}

	byLabel := map[string]int{}
	for _, e := range entries {
		p := Parse(e.Numero)
		if p == nil {
			continue
		}

		r.Total++
		r.PorCredito[p.CreditCode]++
		r.PorMotivo[NormalizeMotivo(e.Situacao, e.SituacaoDetalhamento)]++

		cls := t.Naturezas.Lookup(p.NatureCode)
		if cls.Familia == FamiliaCANC {
			r.Canc++
			r.Cancelamentos = append(r.Cancelamentos, p.Canonical)
			continue
		}

		r.PorFamilia[cls.Familia]++
		r.PorNaturezaAgrupada[cls.Grupo]++

		if i, ok := byLabel[cls.Nome]; ok {
			r.Breakdown[i].Quantidade++
			continue
		}
		byLabel[cls.Nome] = len(r.Breakdown)
		r.Breakdown = append(r.Breakdown, BreakdownItem{Nome: cls.Nome, Familia: cls.Familia, Quantidade: 1})
	}

	sort.SliceStable(r.Breakdown, func(i, j int) bool {
		return rankOf(r.Breakdown[i].Familia) < rankOf(r.Breakdown[j].Familia)
	})

	r.TotalSemCancelamento = r.Total - r.Canc
	r.PorFamilia[FamiliaCANC] = r.Canc
	r.TopCreditos = t.TopCredits(entries, TopCreditsLimit)
	return r
}

// TopCredits returns the n most frequent credits, ties kept in first-seen order.
func (t *Taxonomy) TopCredits(entries []Entry, n int) []CreditCount {
	if n <= 0 {
		return []CreditCount{}
	}

	var counts []CreditCount
	index := map[string]int{}
	for _, e := range entries {
		p := Parse(e.Numero)
		if p == nil {
			continue
		}
		desc := t.CreditDescription(p.CreditCode, e.TipoCredito)
		key := p.CreditCode + "|" + strings.ToLower(desc)
		if i, ok := index[key]; ok {
			counts[i].Quantidade++
			continue
		}
		index[key] = len(counts)
		counts = append(counts, CreditCount{Codigo: p.CreditCode, Descricao: desc, Quantidade: 1})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Quantidade > counts[j].Quantidade
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	if counts == nil {
		return []CreditCount{}
	}
	return counts
}
