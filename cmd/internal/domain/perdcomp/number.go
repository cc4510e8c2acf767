package perdcomp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NumberDigits is the fixed width of a PER/DCOMP identifier.
const NumberDigits = 24

var canonicalPattern = regexp.MustCompile(`^(\d{5})\.(\d{5})\.(\d{6})\.(\d)\.(\d)\.(\d{2})-(\d{4})$`)

type Familia string

const (
	FamiliaDCOMP        Familia = "DCOMP"
	FamiliaREST         Familia = "REST"
	FamiliaRESSARC      Familia = "RESSARC"
	FamiliaCANC         Familia = "CANC"
	FamiliaDesconhecido Familia = "DESCONHECIDO"
)

// Familias lists every family in display order.
var Familias = []Familia{FamiliaDCOMP, FamiliaREST, FamiliaRESSARC, FamiliaCANC, FamiliaDesconhecido}

// ParsedNumber is a decoded PER/DCOMP identifier. Build it with Parse only.
type ParsedNumber struct {
	Raw       string `json:"raw"`
	Canonical string `json:"formatted"`

	B1     string `json:"b1"`
	B2     string `json:"b2"`
	DDMMAA string `json:"data_ddmmaa"`
	Suffix string `json:"sufixo"`

	// Protocol is the first two groups, B1.B2.
	Protocol string `json:"protocolo"`
	// IssueDate is the ISO date encoded in B3, empty if the digits are not a date.
	IssueDate string `json:"data_iso,omitempty"`

	DocumentTypeCode int     `json:"tipo_codigo"`
	DocumentType     Familia `json:"tipo_nome"`
	NatureCode       string  `json:"natureza"`
	CreditCode       string  `json:"credito"`
}

// Digits returns the canonical identifier without separators.
func (p *ParsedNumber) Digits() string {
	return onlyDigits(p.Canonical)
}

// Format re-renders a raw identifier as B1.B2.B3.B4.B5.B6-SUF. Only the last
// 24 digits are used; inputs with fewer digits come back unchanged.
func Format(raw string) string {
	d := onlyDigits(raw)
	if len(d) < NumberDigits {
		return raw
	}
	d = d[len(d)-NumberDigits:]
	return fmt.Sprintf("%s.%s.%s.%s.%s.%s-%s", d[0:5], d[5:10], d[10:16], d[16:17], d[17:18], d[18:20], d[20:24])
}

// Parse decodes an identifier. It returns nil when the input does not match
// the fixed-width layout; provider data is known to be inconsistently
// formatted, so a miss is not an error.
func Parse(raw string) *ParsedNumber {
	formatted := Format(raw)
	m := canonicalPattern.FindStringSubmatch(formatted)
	if m == nil {
		return nil
	}

	tipo, _ := strconv.Atoi(m[4])
	return &ParsedNumber{
		Raw:              raw,
		Canonical:        formatted,
		B1:               m[1],
		B2:               m[2],
		DDMMAA:           m[3],
		Suffix:           m[7],
		Protocol:         m[1] + "." + m[2],
		IssueDate:        isoFromDDMMAA(m[3]),
		DocumentTypeCode: tipo,
		DocumentType:     DocumentFamily(tipo),
		NatureCode:       "1." + m[5],
		CreditCode:       m[6],
	}
}

// DocumentFamily maps the B4 document-type digit to its family.
func DocumentFamily(code int) Familia {
	switch code {
	case 1:
		return FamiliaDCOMP
	case 2:
		return FamiliaREST
	case 8:
		return FamiliaCANC
	default:
		return FamiliaDesconhecido
	}
}

func isoFromDDMMAA(s string) string {
	if len(s) != 6 {
		return ""
	}
	day, _ := strconv.Atoi(s[0:2])
	month, _ := strconv.Atoi(s[2:4])
	year, _ := strconv.Atoi(s[4:6])
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return ""
	}
	if year >= 70 {
		year += 1900
	} else {
		year += 2000
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
