package contract

import (
	"encoding/json"
	"perdecomp/cmd/internal/domain/perdcomp"
)

// Lookup modes.
const (
	ModeCache  = "cache"
	ModeLive   = "live"
	ModeLegacy = "legacy"
	ModeEmpty  = "empty"
)

// CardSchemaVersion is bumped whenever the card layout changes.
const CardSchemaVersion = 2

type LookupRequest struct {
	ClientID    string `json:"clienteId" validate:"omitempty,nospaces,max=32"`
	CNPJ        string `json:"cnpj" validate:"omitempty,cnpj"`
	CompanyName string `json:"nomeEmpresa" validate:"max=200"`
	StartDate   string `json:"dataInicio" validate:"omitempty,isodate"`
	EndDate     string `json:"dataFim" validate:"omitempty,isodate"`
	Force       bool   `json:"force"`
	Debug       bool   `json:"debug"`
}

type LookupResponse struct {
	OK          bool             `json:"ok"`
	Mode        string           `json:"mode"`
	ClientID    string           `json:"clienteId,omitempty"`
	CNPJ        string           `json:"cnpj"`
	RequestedAt string           `json:"requestedAt,omitempty"`
	Total       int              `json:"totalPerdcomp"`
	MappedCount *int             `json:"mappedCount"`
	SiteReceipt string           `json:"siteReceipt,omitempty"`
	Resumo      *perdcomp.Resumo `json:"perdcompResumo,omitempty"`
	Card        *SnapshotCard    `json:"card,omitempty"`
	Debug       *LookupDebug     `json:"debug,omitempty"`
}

type LookupDebug struct {
	Reason         string          `json:"reason"`
	ConsultationID string          `json:"consultaId,omitempty"`
	CacheErrors    []string        `json:"cacheErrors,omitempty"`
	PersistErrors  []string        `json:"persistErrors,omitempty"`
	FactsWritten   int             `json:"factsWritten"`
	APIResponse    json.RawMessage `json:"apiResponse,omitempty"`
}

// Debug reasons.
const (
	ReasonCacheHit     = "cache_hit"
	ReasonCardRebuilt  = "cache_hit_rebuilt"
	ReasonLegacy       = "legacy_fallback"
	ReasonNoData       = "no_data"
	ReasonLive         = "live"
	ReasonLiveNoResult = "live_empty"
)

// SnapshotCard is the rendered summary stored per client.
type SnapshotCard struct {
	Header               CardHeader       `json:"header"`
	QuantidadeTotal      int              `json:"quantidade_total"`
	AnaliseRisco         perdcomp.Risk    `json:"analise_risco"`
	QuantosSao           []CountBlock     `json:"quantos_sao"`
	PorNatureza          []CountBlock     `json:"por_natureza"`
	PorCredito           []CountBlock     `json:"por_credito"`
	CodigosIdentificados []IdentifiedCode `json:"codigos_identificados"`
	Recomendacoes        []string         `json:"recomendacoes"`
	Links                *CardLinks       `json:"links,omitempty"`
	Resumo               *perdcomp.Resumo `json:"resumo,omitempty"`
	SchemaVersion        int              `json:"schema_version"`
	RenderedAtISO        string           `json:"rendered_at_iso"`
	Hash                 string           `json:"snapshot_hash,omitempty"`
}

type CardHeader struct {
	Nome              string `json:"nome"`
	CNPJ              string `json:"cnpj"`
	UltimaConsultaISO string `json:"ultima_consulta_iso"`
}

type CountBlock struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type IdentifiedCode struct {
	Codigo               string `json:"codigo"`
	Risco                string `json:"risco"`
	CreditoTipo          string `json:"credito_tipo"`
	Grupo                string `json:"grupo"`
	Natureza             string `json:"natureza"`
	Protocolo            string `json:"protocolo,omitempty"`
	Situacao             string `json:"situacao,omitempty"`
	SituacaoDetalhamento string `json:"situacao_detalhamento,omitempty"`
	DataISO              string `json:"data_iso,omitempty"`
}

type CardLinks struct {
	Cancelamentos string `json:"cancelamentos,omitempty"`
	HTML          string `json:"html,omitempty"`
}

type ComparisonRequest struct {
	Primary     LookupRequest   `json:"cliente"`
	Competitors []LookupRequest `json:"concorrentes" validate:"dive"`
	StartDate   string          `json:"dataInicio" validate:"omitempty,isodate"`
	EndDate     string          `json:"dataFim" validate:"omitempty,isodate"`
}

// CNPJs lists the CNPJs given by the primary item and the competitors, in
// order. Items identified only by client id are skipped.
func (r *ComparisonRequest) CNPJs() []string {
	docs := make([]string, 0, len(r.Competitors)+1)
	if r.Primary.CNPJ != "" {
		docs = append(docs, r.Primary.CNPJ)
	}
	for _, c := range r.Competitors {
		if c.CNPJ != "" {
			docs = append(docs, c.CNPJ)
		}
	}
	return docs
}

type ComparisonResponse struct {
	Results []*ComparisonResult `json:"results"`
}

// ComparisonResult is one company of a comparative lookup. Error is set
// instead of Lookup when that company's consultation failed.
type ComparisonResult struct {
	ClientID string          `json:"clienteId,omitempty"`
	CNPJ     string          `json:"cnpj,omitempty"`
	Role     string          `json:"role"`
	Lookup   *LookupResponse `json:"lookup,omitempty"`
	Error    any             `json:"error,omitempty"`
}

const (
	RolePrimary    = "cliente"
	RoleCompetitor = "concorrente"
)

type VerifyResponse struct {
	CNPJ             string  `json:"cnpj"`
	ClientID         string  `json:"clienteId,omitempty"`
	LastConsultation *string `json:"lastConsultation"`
	Source           string  `json:"fonte,omitempty"`
}

type DictionaryResponse struct {
	Source    string                             `json:"source"`
	Naturezas map[string]perdcomp.Classification `json:"naturezas"`
	Creditos  map[string]perdcomp.CreditProfile  `json:"creditos"`
	Tipos     map[string]string                  `json:"tipos"`
}

type SeedResponse struct {
	Rows     int `json:"rows"`
	Reloaded int `json:"reloaded"`
}
