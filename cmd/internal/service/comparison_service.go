package service

import (
	"context"
	"net/http"
	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/utils/apierror"
	"perdecomp/cmd/internal/utils/cnpj"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/gommon/log"
	"golang.org/x/time/rate"
)

// MaxCompetitors is how many competitors one comparison may include.
const MaxCompetitors = 3

type FilingsLookup interface {
	Lookup(ctx context.Context, req *contract.LookupRequest) (*contract.LookupResponse, apierror.ErrorResponse)
}

// ComparisonService looks up a company and its competitors one after the
// other. Each lookup waits on the limiter, which paces provider calls.
type ComparisonService struct {
	lookup   FilingsLookup
	limiter  *rate.Limiter
	validate *validator.Validate
}

func NewComparisonService(lookup FilingsLookup, limiter *rate.Limiter, validate *validator.Validate) *ComparisonService {
	return &ComparisonService{lookup: lookup, limiter: limiter, validate: validate}
}

// Compare runs the lookups in order: the primary company first, then each
// competitor. A failed lookup is reported in its result and does not stop the
// others.
func (c *ComparisonService) Compare(ctx context.Context, req *contract.ComparisonRequest) (*contract.ComparisonResponse, apierror.ErrorResponse) {
	if len(req.Competitors) > MaxCompetitors {
		return nil, apierror.NewTooManyCompetitorsError(MaxCompetitors)
	}
	if valerr := c.validate.Struct(req); valerr != nil {
		return nil, validationError(valerr)
	}

	if err := c.validate.Var(req.CNPJs(), "nodupes"); err != nil {
		return nil, apierror.NewSimple(http.StatusBadRequest, "The same CNPJ appears more than once")
	}

	items := make([]contract.LookupRequest, 0, len(req.Competitors)+1)
	items = append(items, req.Primary)
	items = append(items, req.Competitors...)

	resp := &contract.ComparisonResponse{Results: make([]*contract.ComparisonResult, 0, len(items))}
	for i := range items {
		item := items[i]
		if item.StartDate == "" {
			item.StartDate = req.StartDate
		}
		if item.EndDate == "" {
			item.EndDate = req.EndDate
		}

		role := contract.RoleCompetitor
		if i == 0 {
			role = contract.RolePrimary
		}
		result := &contract.ComparisonResult{ClientID: item.ClientID, Role: role}
		if !cnpj.IsEmptyLike(item.CNPJ) {
			result.CNPJ = cnpj.Normalize(item.CNPJ)
		}
		resp.Results = append(resp.Results, result)

		if err := c.limiter.Wait(ctx); err != nil {
			log.Warnf("comparison stopped before %s: %v", result.CNPJ, err)
			result.Error = apierror.ProviderTimeoutError
			continue
		}

		lookup, apierr := c.lookup.Lookup(ctx, &item)
		if apierr != nil {
			result.Error = apierr
			continue
		}
		result.Lookup = lookup
		if lookup.CNPJ != "" {
			result.CNPJ = lookup.CNPJ
		}
		if lookup.ClientID != "" {
			result.ClientID = lookup.ClientID
		}
	}
	return resp, nil
}
