package handler

import (
	"context"
	"net/http"
	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/utils/apierror"
	"strings"

	"github.com/labstack/echo/v4"
)

type CompanyService interface {
	GetCompanyByCNPJ(ctx context.Context, cnpj string) (*contract.CompanyResponse, apierror.ErrorResponse)
	DescribeCNPJ(raw string) *contract.CNPJResponse
}

type DefaultUtilRoute struct {
	CompanyService CompanyService
}

func NewUtilRoute(companyService CompanyService) *DefaultUtilRoute {
	return &DefaultUtilRoute{CompanyService: companyService}
}

func (u *DefaultUtilRoute) GetCompany(c echo.Context) error {
	cnpj := strings.TrimSpace(c.Param("cnpj"))

	company, apierr := u.CompanyService.GetCompanyByCNPJ(c.Request().Context(), cnpj)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, company)
}

// DescribeCNPJ never fails: an invalid CNPJ is reported through the
// response's valid flag.
func (u *DefaultUtilRoute) DescribeCNPJ(c echo.Context) error {
	raw := strings.TrimSpace(c.Param("cnpj"))
	return c.JSON(http.StatusOK, u.CompanyService.DescribeCNPJ(raw))
}
