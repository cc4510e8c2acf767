package perdcomp

import (
	"context"
	"errors"
	"testing"
)

func entry(natureza, credito string) Entry {
	return Entry{Numero: number("12345", "67890", "150323", "1", natureza, credito, "0001")}
}

func checkInvariants(t *testing.T, r Resumo) {
	t.Helper()

	if r.Total != r.TotalSemCancelamento+r.Canc {
		t.Fatalf("total %d != sem %d + canc %d", r.Total, r.TotalSemCancelamento, r.Canc)
	}

	sum := 0
	for f, n := range r.PorFamilia {
		if f != FamiliaCANC {
			sum += n
		}
	}
	if sum != r.TotalSemCancelamento {
		t.Fatalf("porFamilia sum %d != totalSemCancelamento %d", sum, r.TotalSemCancelamento)
	}

	sum = 0
	for _, b := range r.Breakdown {
		sum += b.Quantidade
	}
	if sum != r.TotalSemCancelamento {
		t.Fatalf("breakdown sum %d != totalSemCancelamento %d", sum, r.TotalSemCancelamento)
	}
}

func TestAggregateEmpty(t *testing.T) {
	tx := DefaultTaxonomy()
	for _, entries := range [][]Entry{nil, {}} {
		r := tx.Aggregate(entries)
		checkInvariants(t, r)

		if r.Total != 0 || len(r.Breakdown) != 0 || len(r.TopCreditos) != 0 {
			t.Fatalf("expected an empty summary, got %+v", r)
		}
		if len(r.PorFamilia) != len(Familias) {
			t.Fatalf("porFamilia should carry every family, got %v", r.PorFamilia)
		}
	}
}

func TestAggregate(t *testing.T) {
	tx := DefaultTaxonomy()
	entries := []Entry{
		entry("2", "02"),
		entry("3", "01"),
		entry("7", "01"),
		entry("1", "17"),
		entry("8", "16"),
		entry("4", "03"),
		{Numero: "not a number"},
	}

	r := tx.Aggregate(entries)
	checkInvariants(t, r)

	if r.Total != 6 || r.Canc != 1 || r.TotalSemCancelamento != 5 {
		t.Fatalf("totals = %d/%d/%d", r.Total, r.TotalSemCancelamento, r.Canc)
	}
	if r.PorFamilia[FamiliaDCOMP] != 2 || r.PorFamilia[FamiliaREST] != 1 ||
		r.PorFamilia[FamiliaRESSARC] != 1 || r.PorFamilia[FamiliaDesconhecido] != 1 {
		t.Fatalf("porFamilia = %v", r.PorFamilia)
	}

	want := []BreakdownItem{
		{Nome: "Declaração de Compensação", Familia: FamiliaDCOMP, Quantidade: 2},
		{Nome: "Pedido de Restituição", Familia: FamiliaREST, Quantidade: 1},
		{Nome: "Pedido de Ressarcimento", Familia: FamiliaRESSARC, Quantidade: 1},
		{Nome: UnmappedNature, Familia: FamiliaDesconhecido, Quantidade: 1},
	}
	if len(r.Breakdown) != len(want) {
		t.Fatalf("breakdown = %+v", r.Breakdown)
	}
	for i := range want {
		if r.Breakdown[i] != want[i] {
			t.Errorf("breakdown[%d] = %+v, want %+v", i, r.Breakdown[i], want[i])
		}
	}

	if r.PorNaturezaAgrupada["1.3/1.7"] != 2 {
		t.Errorf("porNaturezaAgrupada = %v", r.PorNaturezaAgrupada)
	}
	if r.PorCredito["01"] != 2 || r.PorCredito["16"] != 1 {
		t.Errorf("porCredito = %v", r.PorCredito)
	}
	if len(r.Cancelamentos) != 1 || r.Cancelamentos[0] != "12345.67890.150323.1.8.16-0001" {
		t.Errorf("cancelamentos = %v", r.Cancelamentos)
	}
	if len(r.TopCreditos) != TopCreditsLimit || r.TopCreditos[0].Codigo != "01" {
		t.Errorf("topCreditos = %+v", r.TopCreditos)
	}
}

func TestAggregateUnknownCodes(t *testing.T) {
	tx := DefaultTaxonomy()
	r := tx.Aggregate([]Entry{entry("4", "99")})
	checkInvariants(t, r)

	if r.PorFamilia[FamiliaDesconhecido] != 1 {
		t.Fatalf("unknown nature should be DESCONHECIDO, got %v", r.PorFamilia)
	}
	if r.TopCreditos[0].Descricao != UnknownCredit {
		t.Fatalf("unknown credit description = %q", r.TopCreditos[0].Descricao)
	}
	if got := tx.Tipos.Lookup("7"); got != UnknownType {
		t.Fatalf("unknown tipo = %q", got)
	}
}

func TestTopCredits(t *testing.T) {
	tx := DefaultTaxonomy()
	entries := []Entry{
		entry("3", "19"),
		entry("3", "02"),
		entry("3", "02"),
		entry("3", "15"),
		entry("3", "19"),
		entry("3", "01"),
	}

	top := tx.TopCredits(entries, 2)
	if len(top) != 2 {
		t.Fatalf("top = %+v", top)
	}
	// 19 and 02 tie; 19 was seen first.
	if top[0].Codigo != "19" || top[1].Codigo != "02" {
		t.Fatalf("tie order = %+v", top)
	}
	if len(tx.TopCredits(entries, 0)) != 0 {
		t.Fatal("n=0 should return nothing")
	}
}

func TestTopCreditsUsesProviderLabelForUnmappedCodes(t *testing.T) {
	tx := DefaultTaxonomy()
	e := entry("3", "88")
	e.TipoCredito = "Crédito Previdenciário"

	top := tx.TopCredits([]Entry{e}, 3)
	if top[0].Descricao != "Crédito Previdenciário" {
		t.Fatalf("descricao = %q", top[0].Descricao)
	}
}

func TestNormalizeMotivo(t *testing.T) {
	cases := []struct {
		situacao, detalhe string
		want              Motivo
	}{
		{"RECEPCIONADO em Procedimento de Análise", "", MotivoRecepcionado},
		{"Análise concluída com direito creditório reconhecido", "", MotivoDeferido},
		{"Análise concluída com indeferimento", "", MotivoIndeferido},
		{"Pedido de cancelamento deferido", "", MotivoCancelado},
		{"Pedido de cancelamento indeferido", "", MotivoCancelamentoNegado},
		{"Pedido de cancelamento", "Pedido INDEFERIDO", MotivoCancelamentoNegado},
		{"Crédito utilizado", "", MotivoHomologado},
		{"Em análise", "Compensação homologada", MotivoOutro},
		{"Em análise", "Homologado tacitamente", MotivoHomologado},
		{"Em análise", "Recepcionado em procedimento de análise", MotivoRecepcionado},
		{"Deferido", "Análise concluída com direito creditório reconhecido", MotivoDeferido},
		{"Indeferido", "Análise concluída, pedido indeferido", MotivoIndeferido},
		{"Cancelado", "Pedido de cancelamento deferido", MotivoCancelado},
		{"Em análise", "Indeferido", MotivoOutro},
		{"", "", MotivoOutro},
	}
	for _, c := range cases {
		if got := NormalizeMotivo(c.situacao, c.detalhe); got != c.want {
			t.Errorf("NormalizeMotivo(%q, %q) = %q, want %q", c.situacao, c.detalhe, got, c.want)
		}
	}
}

func facts(n int, credito, situacao string) []RiskFact {
	out := make([]RiskFact, n)
	for i := range out {
		out[i] = RiskFact{NatureCode: "1.3", CreditCode: credito, Situacao: situacao}
	}
	return out
}

func TestDeriveRisk(t *testing.T) {
	tx := DefaultTaxonomy()

	if r := tx.DeriveRisk(nil); r.Nivel != RiskDesconhecido || len(r.Tags) != 0 {
		t.Fatalf("no facts = %+v", r)
	}

	if r := tx.DeriveRisk(facts(10, "01", "Homologado")); r.Nivel != RiskBaixo {
		t.Fatalf("clean history = %+v", r)
	}

	rejected := append(facts(9, "01", ""), RiskFact{NatureCode: "1.3", CreditCode: "01", Situacao: "Análise concluída com indeferimento"})
	r := tx.DeriveRisk(rejected)
	if r.Nivel != RiskAlto {
		t.Fatalf("rejection = %+v", r)
	}
	if len(r.Tags) != 1 || r.Tags[0] != (RiskTag{Label: TagIndeferimento, Count: 1}) {
		t.Fatalf("tags = %+v", r.Tags)
	}

	cancelled := append(facts(9, "01", ""), RiskFact{NatureCode: "1.8", CreditCode: "01"})
	if r := tx.DeriveRisk(cancelled); r.Nivel != RiskMedio {
		t.Fatalf("cancellation = %+v", r)
	}

	generic := append(facts(6, "01", ""), facts(4, "03", "")...)
	if r := tx.DeriveRisk(generic); r.Nivel != RiskAlto {
		t.Fatalf("40%% high-risk credits = %+v", r)
	}

	esocial := append(facts(7, "01", ""), facts(3, "24", "")...)
	if r := tx.DeriveRisk(esocial); r.Nivel != RiskMedio {
		t.Fatalf("30%% medium-risk credits = %+v", r)
	}

	// Exactly 20% stays BAIXO.
	edge := append(facts(8, "01", ""), facts(2, "24", "")...)
	if r := tx.DeriveRisk(edge); r.Nivel != RiskBaixo {
		t.Fatalf("20%% medium-risk credits = %+v", r)
	}
}

func TestRecommendations(t *testing.T) {
	tx := DefaultTaxonomy()
	recs := tx.Recommendations([]string{"03", "18", "01", "99"})
	// 03 and 18 share a text, 99 has none.
	if len(recs) != 2 {
		t.Fatalf("recommendations = %v", recs)
	}
}

type fakeSource struct {
	entries map[string]string
	err     error
}

func (f *fakeSource) LoadEntries(context.Context) (map[string]string, error) {
	return f.entries, f.err
}

func TestDictionaryTable(t *testing.T) {
	seed := NewStaticTable(map[string]string{"1": "Declaração de Compensação"}, UnknownType)
	src := &fakeSource{entries: map[string]string{"2": "Pedido de Restituição"}}
	table := NewDictionaryTable[string](src, seed)

	if got := table.Lookup("2"); got != UnknownType {
		t.Fatalf("before reload = %q", got)
	}

	n, err := table.Reload(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("Reload = %d, %v", n, err)
	}
	if got := table.Lookup(" 2 "); got != "Pedido de Restituição" {
		t.Fatalf("dictionary entry = %q", got)
	}
	if got := table.Lookup("1"); got != "Declaração de Compensação" {
		t.Fatalf("seed fallback = %q", got)
	}

	src.err = errors.New("store down")
	if _, err := table.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if got := table.Lookup("2"); got != "Pedido de Restituição" {
		t.Fatal("failed reload should keep previous entries")
	}
	if len(table.Entries()) != 2 {
		t.Fatalf("entries = %v", table.Entries())
	}
}

func TestDefaultSeed(t *testing.T) {
	s := DefaultSeed()
	if len(s.Naturezas) != 9 {
		t.Fatalf("naturezas = %d", len(s.Naturezas))
	}
	if _, ok := s.Naturezas["1.4"]; ok {
		t.Fatal("1.4 is not a mapped nature")
	}
	if s.Naturezas["1.8"].Familia != FamiliaCANC {
		t.Fatal("1.8 must be CANC")
	}
	if s.Creditos["24"].Risco != RiskMedio {
		t.Fatal("24 must be MEDIO")
	}
}
