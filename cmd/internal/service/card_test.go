package service

import (
	"testing"

	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/domain/perdcomp"
	"perdecomp/cmd/internal/utils/uid"
)

func TestBuildCardFromFacts(t *testing.T) {
	uid.Init(1)
	s := &PerdcompService{Taxonomy: perdcomp.DefaultTaxonomy()}
	ident := Identity{ClientID: "CLT-0001", CNPJ: testCNPJ}
	facts := s.buildFacts(ident, sampleResult(), "c-1", "2024-05-02T10:00:00Z", "2024-05-02T10:00:00Z")

	card := BuildCard(s.Taxonomy, CardInput{Name: "ACME", CNPJ: testCNPJ, SiteReceipt: "https://r", Facts: facts})

	if card.QuantidadeTotal != 3 || card.Resumo.Canc != 1 {
		t.Fatalf("total = %d, canc = %d", card.QuantidadeTotal, card.Resumo.Canc)
	}
	if len(card.QuantosSao) != len(perdcomp.Familias) {
		t.Fatalf("family blocks = %+v", card.QuantosSao)
	}
	if len(card.CodigosIdentificados) != 4 {
		t.Fatalf("codes = %d", len(card.CodigosIdentificados))
	}
	if card.Links == nil || card.Links.HTML != "https://r" {
		t.Fatalf("links = %+v", card.Links)
	}
	for i := 1; i < len(card.PorCredito); i++ {
		if card.PorCredito[i-1].Count < card.PorCredito[i].Count {
			t.Fatalf("per-credit blocks not sorted: %+v", card.PorCredito)
		}
	}
}

func TestCardHashIgnoresRenderTime(t *testing.T) {
	tax := perdcomp.DefaultTaxonomy()
	a := BuildCard(tax, CardInput{CNPJ: testCNPJ, RenderedAt: "2024-01-01T00:00:00Z"})
	b := BuildCard(tax, CardInput{CNPJ: testCNPJ, RenderedAt: "2025-01-01T00:00:00Z"})
	if a.Hash == "" || a.Hash != b.Hash {
		t.Fatalf("hashes differ: %s vs %s", a.Hash, b.Hash)
	}

	c := BuildCard(tax, CardInput{CNPJ: testBranch})
	if c.Hash == a.Hash {
		t.Fatal("different cards share a hash")
	}
}

func TestMergeCardPrefersDerivedFields(t *testing.T) {
	cached := &contract.SnapshotCard{
		Header:          contract.CardHeader{Nome: "Cached Name", CNPJ: testCNPJ, UltimaConsultaISO: "2023-01-01"},
		Recomendacoes:   []string{"from cache"},
		Links:           &contract.CardLinks{HTML: "https://cached"},
		QuantidadeTotal: 99,
		SchemaVersion:   1,
	}
	derived := BuildCard(perdcomp.DefaultTaxonomy(), CardInput{CNPJ: testCNPJ, ConsultedAt: "2024-01-01"})

	out := MergeCard(cached, derived)
	if out.QuantidadeTotal != 0 {
		t.Fatalf("cached total leaked: %d", out.QuantidadeTotal)
	}
	if out.Header.Nome != "Cached Name" || out.Header.UltimaConsultaISO != "2024-01-01" {
		t.Fatalf("header = %+v", out.Header)
	}
	if out.Links == nil || out.Links.HTML != "https://cached" {
		t.Fatalf("links = %+v", out.Links)
	}
	if len(out.Recomendacoes) != 1 {
		t.Fatalf("recommendations = %v", out.Recomendacoes)
	}
	if out.SchemaVersion != contract.CardSchemaVersion || out.Hash != CardHash(out) {
		t.Fatalf("version %d, hash %s", out.SchemaVersion, out.Hash)
	}

	if MergeCard(nil, derived).Hash != derived.Hash {
		t.Fatal("merge without cached card changed the card")
	}
	if MergeCard(cached, nil) != cached {
		t.Fatal("merge without derived card replaced the cached one")
	}
}

func TestResumoFromCountersKeepsInvariants(t *testing.T) {
	tests := []struct {
		name                  string
		total, canc           int
		dcomp, rest, ressarc  int
		wantTotal, wantSemCan int
		wantUnknown           int
	}{
		{"exact", 6, 1, 3, 1, 1, 6, 5, 0},
		{"unplaced filings", 10, 2, 3, 0, 0, 10, 8, 5},
		{"counters above total", 2, 0, 3, 1, 0, 4, 4, 0},
		{"empty", 0, 0, 0, 0, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resumoFromCounters(tt.total, tt.canc, map[perdcomp.Familia]int{
				perdcomp.FamiliaDCOMP:   tt.dcomp,
				perdcomp.FamiliaREST:    tt.rest,
				perdcomp.FamiliaRESSARC: tt.ressarc,
			})
			if r.Total != tt.wantTotal || r.TotalSemCancelamento != tt.wantSemCan {
				t.Fatalf("total = %d, sem canc = %d", r.Total, r.TotalSemCancelamento)
			}
			if r.PorFamilia[perdcomp.FamiliaDesconhecido] != tt.wantUnknown {
				t.Fatalf("unknown = %d", r.PorFamilia[perdcomp.FamiliaDesconhecido])
			}
			if r.Total != r.TotalSemCancelamento+r.Canc {
				t.Fatal("total != sem canc + canc")
			}
			sum := 0
			for _, b := range r.Breakdown {
				sum += b.Quantidade
			}
			if sum != r.TotalSemCancelamento {
				t.Fatalf("breakdown sums to %d", sum)
			}
		})
	}
}
