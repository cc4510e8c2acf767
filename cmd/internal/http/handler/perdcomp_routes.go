package handler

import (
	"context"
	"net/http"
	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/utils"
	"perdecomp/cmd/internal/utils/apierror"
	"strings"

	"github.com/labstack/echo/v4"
)

type PerdcompService interface {
	Lookup(ctx context.Context, req *contract.LookupRequest) (*contract.LookupResponse, apierror.ErrorResponse)
	LastConsultation(ctx context.Context, cnpj string) (*contract.VerifyResponse, apierror.ErrorResponse)
}

type ComparisonService interface {
	Compare(ctx context.Context, req *contract.ComparisonRequest) (*contract.ComparisonResponse, apierror.ErrorResponse)
}

type DictionaryService interface {
	Dictionary() *contract.DictionaryResponse
	Seed(ctx context.Context) (*contract.SeedResponse, apierror.ErrorResponse)
}

type DefaultPerdcompRoute struct {
	PerdcompService   PerdcompService
	ComparisonService ComparisonService
	DictionaryService DictionaryService
}

func NewPerdcompRoute(perdcomp PerdcompService, comparison ComparisonService, dictionary DictionaryService) *DefaultPerdcompRoute {
	return &DefaultPerdcompRoute{
		PerdcompService:   perdcomp,
		ComparisonService: comparison,
		DictionaryService: dictionary,
	}
}

func (p *DefaultPerdcompRoute) Lookup(c echo.Context) error {
	var req contract.LookupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedJSONError)
	}

	resp, apierr := p.PerdcompService.Lookup(c.Request().Context(), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (p *DefaultPerdcompRoute) Compare(c echo.Context) error {
	var req contract.ComparisonRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, apierror.MalformedJSONError)
	}

	resp, apierr := p.ComparisonService.Compare(c.Request().Context(), &req)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (p *DefaultPerdcompRoute) Verify(c echo.Context) error {
	cnpj := strings.TrimSpace(c.QueryParam("cnpj"))
	if cnpj == "" {
		return c.JSON(http.StatusBadRequest, apierror.InvalidCNPJError)
	}

	resp, apierr := p.PerdcompService.LastConsultation(c.Request().Context(), cnpj)
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}

func (p *DefaultPerdcompRoute) GetDictionary(c echo.Context) error {
	return c.JSON(http.StatusOK, p.DictionaryService.Dictionary())
}

func (p *DefaultPerdcompRoute) SeedDictionary(c echo.Context) error {
	caller, cerr := utils.GetCallerFromContext(c)
	if cerr != nil {
		return c.JSON(cerr.Code(), cerr)
	}
	if !caller.HasScope(utils.ScopeWrite) {
		return c.JSON(http.StatusForbidden, apierror.ForbiddenError)
	}

	resp, apierr := p.DictionaryService.Seed(c.Request().Context())
	if apierr != nil {
		return c.JSON(apierr.Code(), apierr)
	}
	return c.JSON(http.StatusOK, resp)
}
