package service

import (
	"context"
	"errors"
	"github.com/labstack/gommon/log"
	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/domain/entity"
	"perdecomp/cmd/internal/infrastructure/minhareceita"
	"perdecomp/cmd/internal/utils"
	"perdecomp/cmd/internal/utils/apierror"
	"perdecomp/cmd/internal/utils/cnpj"
)

type CompanyRepository interface {
	Save(ctx context.Context, company *entity.Company) error
	FindByCNPJ(ctx context.Context, cnpj string) (*entity.Company, error)
}

type CompanyFetcher interface {
	GetByCNPJ(ctx context.Context, cnpj string) (*entity.Company, error)
}

type CompanyService struct {
	ReceitaClient CompanyFetcher
	CompanyRepo   CompanyRepository
}

func NewCompanyService(client CompanyFetcher, companyRepo CompanyRepository) *CompanyService {
	return &CompanyService{
		ReceitaClient: client,
		CompanyRepo:   companyRepo,
	}
}

func (u *CompanyService) GetCompanyByCNPJ(ctx context.Context, doc string) (*contract.CompanyResponse, apierror.ErrorResponse) {
	doc = cnpj.Normalize(doc)
	if !cnpj.IsValid(doc) {
		return nil, apierror.InvalidCNPJError
	}

	company, fromCache, err := u.findCompany(ctx, doc)
	if err != nil {
		return nil, err
	}
	return toCompanyResp(company, fromCache), nil
}

// CompanyName returns the registered name of a company, or "" when it
// cannot be resolved.
func (u *CompanyService) CompanyName(ctx context.Context, doc string) string {
	company, _, err := u.findCompany(ctx, cnpj.Normalize(doc))
	if err != nil {
		return ""
	}
	return company.DisplayName()
}

// DescribeCNPJ reports everything derivable from a CNPJ without lookups.
func (u *CompanyService) DescribeCNPJ(raw string) *contract.CNPJResponse {
	doc := cnpj.Normalize(raw)
	return &contract.CNPJResponse{
		Input:          raw,
		Normalized:     doc,
		Formatted:      cnpj.Format(doc),
		Valid:          cnpj.IsValid(doc),
		BranchOrder:    cnpj.BranchOrder(doc),
		IsHeadquarters: cnpj.IsHeadquarters(doc),
		Headquarters:   cnpj.ToHeadquarters(doc),
	}
}

// findCompany is a utility function that will try to resolve the CNPJ into a company.
// It returns the company, a boolean (true = cached, false = API fetch) and a possible error response.
func (u *CompanyService) findCompany(ctx context.Context, doc string) (*entity.Company, bool, apierror.ErrorResponse) {
	cached, err := u.CompanyRepo.FindByCNPJ(ctx, doc)
	if err != nil {
		log.Errorf("failed to find company by cnpj %s: %v", doc, err)
		return nil, false, apierror.InternalServerError
	}

	// If we have some kind of cache
	if cached != nil {
		if cached.Found {
			return cached, true, nil
		} else {
			return nil, false, apierror.NotFoundError
		}
	}

	// Cache miss
	apiCompany, apierr := u.fetchFromAPI(ctx, doc)
	if apierr != nil {
		return nil, false, apierr
	}

	err = u.CompanyRepo.Save(ctx, apiCompany)
	if err != nil {
		// We don't return a 500 here, since we have the data we need
		// and only the cache has failed. We can just log it and proceed.
		log.Errorf("failed to save company cache for CNPJ %s: %v", doc, err)
	}

	return apiCompany, false, nil
}

func (u *CompanyService) fetchFromAPI(ctx context.Context, doc string) (*entity.Company, apierror.ErrorResponse) {
	company, err := u.ReceitaClient.GetByCNPJ(ctx, doc)
	if err != nil {
		if errors.Is(err, minhareceita.ErrNotFound) {
			u.cacheNegativeResult(ctx, doc)
			return nil, apierror.NotFoundError
		}
		log.Errorf("failed to fetch company by cnpj %s: %v", doc, err)
		return nil, apierror.InternalServerError
	}

	company.CNPJ = doc
	company.Found = true
	company.CachedAt = utils.NowUTC()
	return company, nil
}

func (u *CompanyService) cacheNegativeResult(ctx context.Context, doc string) {
	emptyCompany := &entity.Company{
		CNPJ:     doc,
		Found:    false,
		CachedAt: utils.NowUTC(),
	}
	if err := u.CompanyRepo.Save(ctx, emptyCompany); err != nil {
		log.Warnf("failed to cache negative result for CNPJ %s: %v", doc, err)
	}
}

func toCompanyResp(c *entity.Company, cached bool) *contract.CompanyResponse {
	return &contract.CompanyResponse{
		CNPJ:              c.CNPJ,
		LegalName:         c.LegalName,
		TradeName:         c.TradeName,
		LegalNature:       c.LegalNature,
		CompanySize:       c.CompanySize,
		BusinessStartDate: c.BusinessStartDate,
		MainActivity:      c.MainActivity,
		ShareCapital:      c.ShareCapital,
		IsHeadquarters:    c.IsHeadquarters,
		Registration: &contract.CompanyRegistration{
			Status: string(c.RegStatus),
			Reason: c.RegReason,
			Date:   c.RegDate,
		},
		Address: &contract.CompanyAddress{
			Type:         c.AddressType,
			StreetName:   c.AddressStreetName,
			Number:       c.AddressNumber,
			Neighborhood: c.AddressDistrict,
			ZipCode:      c.AddressZipCode,
			City:         c.AddressCity,
			State:        c.AddressState,
		},
		Partners: toPartnersResponse(c.Partners),
		Cached:   cached,
	}
}

func toPartnersResponse(ps []*entity.CompanyPartner) []*contract.PartnerResponse {
	partners := make([]*contract.PartnerResponse, len(ps))
	for i, p := range ps {
		partners[i] = toPartnerResp(p)
	}
	return partners
}

func toPartnerResp(p *entity.CompanyPartner) *contract.PartnerResponse {
	return &contract.PartnerResponse{
		Name:     p.Name,
		Role:     p.Role,
		RoleCode: p.RoleCode,
		AgeRange: p.AgeRange,
	}
}
