package perdcomp

import "testing"

// number builds a raw identifier from its groups.
func number(b1, b2, ddmmaa, tipo, natureza, credito, suf string) string {
	return b1 + b2 + ddmmaa + tipo + natureza + credito + suf
}

func TestFormat(t *testing.T) {
	raw := number("12345", "67890", "150323", "1", "3", "04", "1234")
	if got := Format(raw); got != "12345.67890.150323.1.3.04-1234" {
		t.Fatalf("Format = %q", got)
	}

	// Only the last 24 digits are kept.
	if got := Format("99" + raw); got != "12345.67890.150323.1.3.04-1234" {
		t.Fatalf("Format with extra leading digits = %q", got)
	}

	short := "12345.678"
	if got := Format(short); got != short {
		t.Fatalf("short input should come back unchanged, got %q", got)
	}
}

func TestParse(t *testing.T) {
	p := Parse("12345.67890.150323.1.3.04-1234")
	if p == nil {
		t.Fatal("expected a parse")
	}

	if p.Protocol != "12345.67890" {
		t.Errorf("Protocol = %q", p.Protocol)
	}
	if p.IssueDate != "2023-03-15" {
		t.Errorf("IssueDate = %q", p.IssueDate)
	}
	if p.DocumentTypeCode != 1 || p.DocumentType != FamiliaDCOMP {
		t.Errorf("document type = %d/%s", p.DocumentTypeCode, p.DocumentType)
	}
	if p.NatureCode != "1.3" {
		t.Errorf("NatureCode = %q", p.NatureCode)
	}
	if p.CreditCode != "04" {
		t.Errorf("CreditCode = %q", p.CreditCode)
	}
	if p.Suffix != "1234" || p.DDMMAA != "150323" {
		t.Errorf("groups = %q %q", p.DDMMAA, p.Suffix)
	}
}

func TestParseDocumentTypes(t *testing.T) {
	cases := map[string]Familia{
		"1": FamiliaDCOMP,
		"2": FamiliaREST,
		"8": FamiliaCANC,
		"5": FamiliaDesconhecido,
	}
	for tipo, want := range cases {
		p := Parse(number("00001", "00002", "010120", tipo, "1", "01", "0000"))
		if p == nil {
			t.Fatalf("tipo %s: expected a parse", tipo)
		}
		if p.DocumentType != want {
			t.Errorf("tipo %s: got %s, want %s", tipo, p.DocumentType, want)
		}
	}
}

func TestParseIssueDateCentury(t *testing.T) {
	cases := map[string]string{
		"010170": "1970-01-01",
		"311299": "1999-12-31",
		"311269": "2069-12-31",
		"290224": "2024-02-29",
		"000523": "",
		"150023": "",
	}
	for ddmmaa, want := range cases {
		p := Parse(number("11111", "22222", ddmmaa, "1", "3", "01", "9999"))
		if p == nil {
			t.Fatalf("%s: expected a parse even without a usable date", ddmmaa)
		}
		if p.IssueDate != want {
			t.Errorf("%s: IssueDate = %q, want %q", ddmmaa, p.IssueDate, want)
		}
	}
}

func TestParseMiss(t *testing.T) {
	for _, raw := range []string{"", "abc", "12345", "12345.67890.150323.1.3.04"} {
		if p := Parse(raw); p != nil {
			t.Errorf("Parse(%q) = %+v, want nil", raw, p)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	raws := []string{
		number("12345", "67890", "150323", "1", "3", "04", "1234"),
		"00012.34567.010199.2.2.02-0001",
		"x 98765-43210/311224 8 8 16 4321",
		"77" + number("55555", "44444", "000000", "1", "9", "19", "0007"),
	}
	for _, raw := range raws {
		p := Parse(raw)
		if p == nil {
			t.Fatalf("Parse(%q) = nil", raw)
		}
		if got := Format(p.Digits()); got != Format(raw) {
			t.Errorf("round trip of %q: %q != %q", raw, got, Format(raw))
		}
		again := Parse(p.Canonical)
		if again == nil || *again != (ParsedNumber{
			Raw:              p.Canonical,
			Canonical:        p.Canonical,
			B1:               p.B1,
			B2:               p.B2,
			DDMMAA:           p.DDMMAA,
			Suffix:           p.Suffix,
			Protocol:         p.Protocol,
			IssueDate:        p.IssueDate,
			DocumentTypeCode: p.DocumentTypeCode,
			DocumentType:     p.DocumentType,
			NatureCode:       p.NatureCode,
			CreditCode:       p.CreditCode,
		}) {
			t.Errorf("reparse of %q differs: %+v", p.Canonical, again)
		}
	}
}
