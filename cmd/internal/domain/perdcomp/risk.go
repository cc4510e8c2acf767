package perdcomp

// RiskFact is the subset of a stored filing that risk derivation reads.
type RiskFact struct {
	NatureCode           string
	CreditCode           string
	Situacao             string
	SituacaoDetalhamento string
}

type RiskTag struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Risk struct {
	Nivel RiskLevel `json:"nivel"`
	Tags  []RiskTag `json:"tags"`
}

const (
	TagIndeferimento      = "Indeferimentos"
	TagCancelamentoNegado = "Cancelamentos negados"
	TagCancelamento       = "Cancelamentos"
	TagCreditoAlto        = "Créditos de risco alto"
	TagCreditoMedio       = "Créditos de risco médio"
)

// DeriveRisk classifies a company from its stored facts. It has no side
// effects: the same facts and taxonomy always produce the same Risk.
//
// ALTO when any filing was rejected or more than 30% of the credits are high
// risk; MEDIO when there are cancellations or more than 20% of the credits
// are medium or high risk; BAIXO otherwise. No facts yields DESCONHECIDO.
func (t *Taxonomy) DeriveRisk(facts []RiskFact) Risk {
	if len(facts) == 0 {
		return Risk{Nivel: RiskDesconhecido, Tags: []RiskTag{}}
	}

	var indeferidos, negados, cancelados, altos, medios int
	for _, f := range facts {
		switch NormalizeMotivo(f.Situacao, f.SituacaoDetalhamento) {
		case MotivoIndeferido:
			indeferidos++
		case MotivoCancelamentoNegado:
			negados++
		case MotivoCancelado:
			cancelados++
		default:
			if t.Naturezas.Lookup(f.NatureCode).Familia == FamiliaCANC {
				cancelados++
			}
		}

		switch t.Creditos.Lookup(f.CreditCode).Risco {
		case RiskAlto:
			altos++
		case RiskMedio:
			medios++
		}
	}

	n := len(facts)
	tags := []RiskTag{}
	for _, tag := range []RiskTag{
		{TagIndeferimento, indeferidos},
		{TagCancelamentoNegado, negados},
		{TagCancelamento, cancelados},
		{TagCreditoAlto, altos},
		{TagCreditoMedio, medios},
	} {
		if tag.Count > 0 {
			tags = append(tags, tag)
		}
	}

	nivel := RiskBaixo
	switch {
	case indeferidos+negados > 0 || altos*10 > n*3:
		nivel = RiskAlto
	case cancelados > 0 || (altos+medios)*10 > n*2:
		nivel = RiskMedio
	}
	return Risk{Nivel: nivel, Tags: tags}
}

// Recommendations lists the distinct recommendation texts for the given
// credit codes, in first-seen order.
func (t *Taxonomy) Recommendations(creditCodes []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, code := range creditCodes {
		rec := t.Creditos.Lookup(code).Recomendacao
		if rec == "" || seen[rec] {
			continue
		}
		seen[rec] = true
		out = append(out, rec)
	}
	return out
}
