package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/utils/apierror"

	"github.com/labstack/echo/v4"
)

type fakeCompanies struct{}

func (fakeCompanies) GetCompanyByCNPJ(ctx context.Context, cnpj string) (*contract.CompanyResponse, apierror.ErrorResponse) {
	if cnpj != "46241741000165" {
		return nil, apierror.NotFoundError
	}
	return &contract.CompanyResponse{CNPJ: cnpj, LegalName: "ACME"}, nil
}

func (fakeCompanies) DescribeCNPJ(raw string) *contract.CNPJResponse {
	return &contract.CNPJResponse{Input: raw, Valid: strings.HasPrefix(raw, "4")}
}

func TestCompanyRoutes(t *testing.T) {
	routes := NewUtilRoute(fakeCompanies{})
	e := echo.New()
	e.GET("/api/companies/:cnpj", routes.GetCompany)
	e.GET("/api/cnpj/:cnpj", routes.DescribeCNPJ)

	tests := []struct {
		target string
		status int
		body   string
	}{
		{"/api/companies/46241741000165", http.StatusOK, `"ACME"`},
		{"/api/companies/11222333000181", http.StatusNotFound, ""},
		{"/api/cnpj/46241741000408", http.StatusOK, `"valid":true`},
		{"/api/cnpj/123", http.StatusOK, `"valid":false`},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
		if rec.Code != tt.status || !strings.Contains(rec.Body.String(), tt.body) {
			t.Fatalf("%s: status = %d, body = %s", tt.target, rec.Code, rec.Body)
		}
	}
}
