package cnpj

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"46.241.741/0004-08": "46241741000408",
		"191":                "00000000000191",
		"":                   "00000000000000",
		"abc":                "00000000000000",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{
		"46241741000408",
		"46.241.741/0001-65",
		"11222333000181",
		"191", // Banco do Brasil, zero-padded
	}
	for _, c := range valid {
		if !IsValid(c) {
			t.Errorf("expected %q to be valid", c)
		}
	}

	invalid := []string{
		"11111111111111",
		"00000000000000",
		"46241741000409",
		"462417410004081",
		"",
	}
	for _, c := range invalid {
		if IsValid(c) {
			t.Errorf("expected %q to be invalid", c)
		}
	}
}

func TestIsValidRejectsEveryRepeatedDigit(t *testing.T) {
	for d := '0'; d <= '9'; d++ {
		s := ""
		for i := 0; i < Length; i++ {
			s += string(d)
		}
		if IsValid(s) {
			t.Fatalf("repeated %q should not be valid", s)
		}
	}
}

func TestToHeadquarters(t *testing.T) {
	if got := ToHeadquarters("46241741000408"); got != "46241741000165" {
		t.Fatalf("ToHeadquarters = %q, want 46241741000165", got)
	}
	if got := ToHeadquarters("46.241.741/0001-65"); got != "46241741000165" {
		t.Fatalf("matriz should map to itself, got %q", got)
	}
}

func TestToHeadquartersIsOrderIndependent(t *testing.T) {
	roots := []string{"46241741", "11222333", "00000000", "12345678"}
	orders := []string{"0002", "0003", "0010", "0408", "9999"}

	for _, root := range roots {
		hq := ToHeadquarters(root + HeadquartersOrder + "00")
		if !IsValid(hq) && root != "00000000" {
			t.Fatalf("derived matriz %q is not valid", hq)
		}
		if again := ToHeadquarters(hq); again != hq {
			t.Fatalf("ToHeadquarters is not idempotent: %q -> %q", hq, again)
		}
		for _, order := range orders {
			base := root + order
			branch := base + CheckDigits(base)
			if got := ToHeadquarters(branch); got != hq {
				t.Fatalf("branch %q -> %q, want %q", branch, got, hq)
			}
		}
	}
}

func TestToHeadquartersDegradesOnShortInput(t *testing.T) {
	if got := ToHeadquarters("12.345"); got != "12345" {
		t.Fatalf("short input should be returned as digits, got %q", got)
	}
}

func TestBranchOrder(t *testing.T) {
	if got := BranchOrder("46241741000408"); got != "0004" {
		t.Fatalf("BranchOrder = %q", got)
	}
	if got := BranchOrder("46241741000"); got != "" {
		t.Fatalf("BranchOrder on short input = %q", got)
	}
	if !IsHeadquarters("46241741000165") {
		t.Fatal("expected matriz")
	}
	if IsHeadquarters("46241741000408") {
		t.Fatal("filial reported as matriz")
	}
	if !IsBranch("46241741000408") {
		t.Fatal("expected filial")
	}
}

func TestFormat(t *testing.T) {
	if got := Format("46241741000165"); got != "46.241.741/0001-65" {
		t.Fatalf("Format = %q", got)
	}
}

func TestCheckDigitsRejectsBadBase(t *testing.T) {
	if CheckDigits("123") != "" {
		t.Fatal("expected empty check digits for short base")
	}
	if CheckDigits("12345678000a") != "" {
		t.Fatal("expected empty check digits for non-digit base")
	}
}

func TestIsEmptyLike(t *testing.T) {
	for _, in := range []string{"", "   ", "000.000.000/0000-00", "--"} {
		if !IsEmptyLike(in) {
			t.Errorf("IsEmptyLike(%q) = false", in)
		}
	}
	for _, in := range []string{"46241741000165", "1"} {
		if IsEmptyLike(in) {
			t.Errorf("IsEmptyLike(%q) = true", in)
		}
	}
}
