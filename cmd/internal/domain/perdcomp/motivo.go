package perdcomp

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Motivo string

const (
	MotivoRecepcionado       Motivo = "Recepcionado"
	MotivoDeferido           Motivo = "Deferido"
	MotivoIndeferido         Motivo = "Indeferido"
	MotivoCancelado          Motivo = "Cancelado"
	MotivoCancelamentoNegado Motivo = "Cancelamento negado"
	MotivoHomologado         Motivo = "Homologado"
	MotivoOutro              Motivo = "Outro/Desconhecido"
)

// NormalizeMotivo folds the provider's free-text situação and detalhamento
// into a fixed set of outcomes. Each phrase may appear in either field.
// Matching ignores case and accents.
func NormalizeMotivo(situacao, detalhamento string) Motivo {
	s := foldText(situacao)
	d := foldText(detalhamento)
	either := func(phrase string) bool {
		return strings.Contains(s, phrase) || strings.Contains(d, phrase)
	}
	rejected := func(text string) bool {
		return strings.Contains(text, "analise concluida") && strings.Contains(text, "indeferi")
	}

	switch {
	case either("recepcionado em procedimento de analise"):
		return MotivoRecepcionado
	case either("analise concluida com direito creditorio reconhecido"):
		return MotivoDeferido
	case rejected(s), rejected(d):
		return MotivoIndeferido
	case either("pedido de cancelamento deferido"):
		return MotivoCancelado
	case either("pedido de cancelamento indeferido"),
		strings.Contains(s, "pedido de cancelamento") && strings.Contains(d, "indeferido"):
		return MotivoCancelamentoNegado
	case either("homologado"), either("credito utilizado"):
		return MotivoHomologado
	default:
		return MotivoOutro
	}
}

func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}
