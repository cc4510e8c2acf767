package perdcomp

import (
	"context"
	_ "embed"
	"fmt"
	"maps"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type RiskLevel string

const (
	RiskBaixo        RiskLevel = "BAIXO"
	RiskMedio        RiskLevel = "MEDIO"
	RiskAlto         RiskLevel = "ALTO"
	RiskDesconhecido RiskLevel = "DESCONHECIDO"
)

const (
	UnmappedNature = "Não mapeado"
	UnknownCredit  = "Não identificado"
	UnknownType    = "Desconhecido"
	GenericGroup   = "Genérico"
)

// Classification is the family and label of a nature code.
type Classification struct {
	Familia Familia `yaml:"familia" json:"familia"`
	Nome    string  `yaml:"nome" json:"nome"`
	// Grupo is the bucket used by porNaturezaAgrupada, e.g. "1.3/1.7".
	Grupo string `yaml:"grupo" json:"grupo"`
}

// CreditProfile describes a credit code.
type CreditProfile struct {
	Descricao    string    `yaml:"descricao" json:"descricao"`
	Categoria    string    `yaml:"categoria" json:"categoria"`
	Risco        RiskLevel `yaml:"risco" json:"risco"`
	Recomendacao string    `yaml:"recomendacao" json:"recomendacao,omitempty"`
}

var (
	UnknownClassification = Classification{Familia: FamiliaDesconhecido, Nome: UnmappedNature, Grupo: FamiliaDesconhecido.String()}
	UnknownCreditProfile  = CreditProfile{Descricao: UnknownCredit, Categoria: GenericGroup, Risco: RiskAlto}
)

func (f Familia) String() string {
	return string(f)
}

// Lookup resolves a code to its value. Unknown codes resolve to a fallback
// value instead of failing.
type Lookup[T any] interface {
	Lookup(code string) T
}

type StaticTable[T any] struct {
	entries map[string]T
	unknown T
}

func NewStaticTable[T any](entries map[string]T, unknown T) *StaticTable[T] {
	return &StaticTable[T]{entries: maps.Clone(entries), unknown: unknown}
}

func (s *StaticTable[T]) Lookup(code string) T {
	if v, ok := s.entries[strings.TrimSpace(code)]; ok {
		return v
	}
	return s.unknown
}

// Entries returns a copy of the table contents.
func (s *StaticTable[T]) Entries() map[string]T {
	return maps.Clone(s.entries)
}

// DictionarySource loads dictionary rows from persistent storage.
type DictionarySource[T any] interface {
	LoadEntries(ctx context.Context) (map[string]T, error)
}

// DictionaryTable serves entries loaded from a DictionarySource, falling back
// to a static seed for codes the dictionary does not know.
type DictionaryTable[T any] struct {
	mu      sync.RWMutex
	source  DictionarySource[T]
	seed    *StaticTable[T]
	entries map[string]T
}

func NewDictionaryTable[T any](source DictionarySource[T], seed *StaticTable[T]) *DictionaryTable[T] {
	return &DictionaryTable[T]{source: source, seed: seed, entries: map[string]T{}}
}

func (d *DictionaryTable[T]) Lookup(code string) T {
	code = strings.TrimSpace(code)

	d.mu.RLock()
	v, ok := d.entries[code]
	d.mu.RUnlock()
	if ok {
		return v
	}
	return d.seed.Lookup(code)
}

// Reload replaces the loaded entries. On error the previous entries stay.
func (d *DictionaryTable[T]) Reload(ctx context.Context) (int, error) {
	entries, err := d.source.LoadEntries(ctx)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	d.entries = entries
	d.mu.Unlock()
	return len(entries), nil
}

// Entries returns the seed overlaid with the loaded dictionary rows.
func (d *DictionaryTable[T]) Entries() map[string]T {
	out := d.seed.Entries()
	d.mu.RLock()
	defer d.mu.RUnlock()
	maps.Copy(out, d.entries)
	return out
}

// Taxonomy bundles the three classifiers the aggregator needs.
type Taxonomy struct {
	Naturezas Lookup[Classification]
	Creditos  Lookup[CreditProfile]
	Tipos     Lookup[string]
}

// Seed is the decoded form of the embedded taxonomy document.
type Seed struct {
	Naturezas map[string]Classification `yaml:"naturezas"`
	Tipos     map[string]string         `yaml:"tipos"`
	Creditos  map[string]CreditProfile  `yaml:"creditos"`
}

//go:embed taxonomy.yaml
var seedDocument []byte

var (
	seedOnce sync.Once
	seed     *Seed
)

// DefaultSeed returns the embedded seed tables.
func DefaultSeed() *Seed {
	seedOnce.Do(func() {
		s, err := ParseSeed(seedDocument)
		if err != nil {
			panic(fmt.Sprintf("perdcomp: embedded taxonomy is invalid: %v", err))
		}
		seed = s
	})
	return seed
}

func ParseSeed(doc []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(doc, &s); err != nil {
		return nil, err
	}
	for code, c := range s.Naturezas {
		if c.Grupo == "" {
			c.Grupo = code
			s.Naturezas[code] = c
		}
	}
	return &s, nil
}

// StaticTaxonomy builds a Taxonomy from the seed tables only.
func StaticTaxonomy(s *Seed) *Taxonomy {
	return &Taxonomy{
		Naturezas: NewStaticTable(s.Naturezas, UnknownClassification),
		Creditos:  NewStaticTable(s.Creditos, UnknownCreditProfile),
		Tipos:     NewStaticTable(s.Tipos, UnknownType),
	}
}

// DefaultTaxonomy is the static taxonomy built from the embedded seed.
func DefaultTaxonomy() *Taxonomy {
	return StaticTaxonomy(DefaultSeed())
}

// CreditDescription resolves a credit code, preferring the provider's own
// label when the code is not mapped.
func (t *Taxonomy) CreditDescription(code, providerLabel string) string {
	p := t.Creditos.Lookup(code)
	if p.Descricao == UnknownCredit && strings.TrimSpace(providerLabel) != "" {
		return strings.TrimSpace(providerLabel)
	}
	return p.Descricao
}
