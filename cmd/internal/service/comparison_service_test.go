package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/utils/apierror"

	"golang.org/x/time/rate"
)

type recordingLookup struct {
	calls []contract.LookupRequest
	at    []time.Time
	fail  map[string]apierror.ErrorResponse
	// known maps client ids to the CNPJ a lookup by id resolves to
	known map[string]string
}

func (r *recordingLookup) Lookup(ctx context.Context, req *contract.LookupRequest) (*contract.LookupResponse, apierror.ErrorResponse) {
	r.calls = append(r.calls, *req)
	r.at = append(r.at, time.Now())
	if err, ok := r.fail[req.CNPJ]; ok {
		return nil, err
	}
	doc := req.CNPJ
	if doc == "" {
		doc = r.known[req.ClientID]
	}
	return &contract.LookupResponse{OK: true, Mode: contract.ModeCache, ClientID: req.ClientID, CNPJ: doc}, nil
}

func TestCompareRunsSequentiallyWithPacing(t *testing.T) {
	lookup := &recordingLookup{fail: map[string]apierror.ErrorResponse{
		"11222333000181": apierror.ProviderTimeoutError,
	}}
	interval := 40 * time.Millisecond
	svc := NewComparisonService(lookup, rate.NewLimiter(rate.Every(interval), 1), newValidator())

	resp, apierr := svc.Compare(context.Background(), &contract.ComparisonRequest{
		Primary:     contract.LookupRequest{CNPJ: testCNPJ, StartDate: "2021-01-01"},
		Competitors: []contract.LookupRequest{{CNPJ: "11222333000181"}, {CNPJ: testBranch}},
		StartDate:   "2020-01-01",
		EndDate:     "2024-12-31",
	})
	if apierr != nil {
		t.Fatalf("Compare: %v", apierr)
	}

	if len(resp.Results) != 3 {
		t.Fatalf("results = %d", len(resp.Results))
	}
	if resp.Results[0].Role != contract.RolePrimary || resp.Results[0].CNPJ != testCNPJ {
		t.Fatalf("first result = %+v", resp.Results[0])
	}
	if resp.Results[1].Error == nil || resp.Results[1].Lookup != nil {
		t.Fatalf("failed competitor = %+v", resp.Results[1])
	}
	if resp.Results[2].Role != contract.RoleCompetitor || resp.Results[2].Lookup == nil {
		t.Fatalf("last result = %+v", resp.Results[2])
	}

	if lookup.calls[0].StartDate != "2021-01-01" || lookup.calls[1].StartDate != "2020-01-01" {
		t.Fatalf("start dates = %s, %s", lookup.calls[0].StartDate, lookup.calls[1].StartDate)
	}
	if lookup.calls[2].EndDate != "2024-12-31" {
		t.Fatalf("end date = %s", lookup.calls[2].EndDate)
	}
	for i := 1; i < len(lookup.at); i++ {
		// allow some slack for timer granularity
		if gap := lookup.at[i].Sub(lookup.at[i-1]); gap < interval-10*time.Millisecond {
			t.Fatalf("lookups %d and %d only %s apart", i-1, i, gap)
		}
	}
}

func TestCompareRejectsBadRequests(t *testing.T) {
	lookup := &recordingLookup{}
	svc := NewComparisonService(lookup, rate.NewLimiter(rate.Inf, 1), newValidator())

	many := make([]contract.LookupRequest, MaxCompetitors+1)
	for i := range many {
		many[i] = contract.LookupRequest{CNPJ: testBranch}
	}

	tests := []struct {
		name string
		req  contract.ComparisonRequest
	}{
		{"too many", contract.ComparisonRequest{Primary: contract.LookupRequest{CNPJ: testCNPJ}, Competitors: many}},
		{"bad competitor", contract.ComparisonRequest{Primary: contract.LookupRequest{CNPJ: testCNPJ}, Competitors: []contract.LookupRequest{{CNPJ: "123"}}}},
		{"duplicate", contract.ComparisonRequest{Primary: contract.LookupRequest{CNPJ: testCNPJ}, Competitors: []contract.LookupRequest{{CNPJ: testBranch}, {CNPJ: testBranch}}}},
		{"duplicate punctuated", contract.ComparisonRequest{Primary: contract.LookupRequest{CNPJ: "46.241.741/0001-65"}, Competitors: []contract.LookupRequest{{CNPJ: testCNPJ}}}},
		{"bad date", contract.ComparisonRequest{Primary: contract.LookupRequest{CNPJ: testCNPJ}, StartDate: "2024-13-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, apierr := svc.Compare(context.Background(), &tt.req)
			if apierr == nil || apierr.Code() != http.StatusBadRequest {
				t.Fatalf("error = %v", apierr)
			}
		})
	}
	if len(lookup.calls) != 0 {
		t.Fatalf("lookups ran for rejected requests: %d", len(lookup.calls))
	}
}

func TestCompareStopsWaitingWhenContextEnds(t *testing.T) {
	lookup := &recordingLookup{}
	svc := NewComparisonService(lookup, rate.NewLimiter(rate.Every(time.Hour), 1), newValidator())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp, apierr := svc.Compare(ctx, &contract.ComparisonRequest{
		Primary:     contract.LookupRequest{CNPJ: testCNPJ},
		Competitors: []contract.LookupRequest{{CNPJ: testBranch}},
	})
	if apierr != nil {
		t.Fatalf("Compare: %v", apierr)
	}
	if resp.Results[0].Lookup == nil {
		t.Fatal("primary lookup did not run")
	}
	if resp.Results[1].Error == nil {
		t.Fatal("competitor lookup ran past the deadline")
	}
}

func TestCompareReportsResolvedCNPJForClientIDItems(t *testing.T) {
	lookup := &recordingLookup{known: map[string]string{"CLT-0007": testBranch}}
	svc := NewComparisonService(lookup, rate.NewLimiter(rate.Inf, 1), newValidator())

	resp, apierr := svc.Compare(context.Background(), &contract.ComparisonRequest{
		Primary:     contract.LookupRequest{CNPJ: testCNPJ},
		Competitors: []contract.LookupRequest{{ClientID: "CLT-0007"}, {ClientID: "CLT-0008"}},
	})
	if apierr != nil {
		t.Fatalf("Compare: %v", apierr)
	}

	if got := resp.Results[1]; got.CNPJ != testBranch || got.ClientID != "CLT-0007" {
		t.Fatalf("resolved competitor = %+v", got)
	}
	if got := resp.Results[2]; got.CNPJ != "" || got.ClientID != "CLT-0008" {
		t.Fatalf("unresolved competitor = %+v", got)
	}
}
