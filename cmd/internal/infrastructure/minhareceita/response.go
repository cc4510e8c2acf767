package minhareceita

import (
	"perdecomp/cmd/internal/domain/entity"
	"strings"
)

type companyResponse struct {
	CNPJ                     string  `json:"cnpj"`
	LegalName                string  `json:"razao_social"`
	TradeName                string  `json:"nome_fantasia"`
	LegalNature              string  `json:"natureza_juridica"`
	CompanySize              string  `json:"porte"`
	BusinessStartDate        string  `json:"data_inicio_atividade"`
	MainActivity             string  `json:"cnae_fiscal_descricao"`
	BranchKind               int     `json:"identificador_matriz_filial"`
	RegistrationStatus       string  `json:"descricao_situacao_cadastral"`
	RegistrationStatusReason string  `json:"descricao_motivo_situacao_cadastral"`
	RegistrationStatusDate   string  `json:"data_situacao_cadastral"`
	ShareCapital             float64 `json:"capital_social"`

	AddressType     string `json:"descricao_tipo_de_logradouro"`
	AddressStreet   string `json:"logradouro"`
	AddressNumber   string `json:"numero"`
	AddressDistrict string `json:"bairro"`
	AddressZipCode  string `json:"cep"`
	AddressCity     string `json:"municipio"`
	AddressState    string `json:"uf"`

	Partners []*partnerResponse `json:"qsa"`
}

type partnerResponse struct {
	Name     string `json:"nome_socio"`
	Role     string `json:"qualificacao_socio"`
	RoleCode int    `json:"codigo_qualificacao_socio"`
	AgeRange string `json:"faixa_etaria"`
}

func (c *companyResponse) ToDomain() *entity.Company {
	var partners []*entity.CompanyPartner
	seen := map[string]bool{}
	for _, p := range c.Partners {
		// the registry repeats partners with several roles
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		partners = append(partners, &entity.CompanyPartner{
			CompanyCNPJ: c.CNPJ,
			Name:        p.Name,
			Role:        p.Role,
			RoleCode:    p.RoleCode,
			AgeRange:    p.AgeRange,
		})
	}

	return &entity.Company{
		CNPJ:              c.CNPJ,
		LegalName:         c.LegalName,
		TradeName:         c.TradeName,
		LegalNature:       c.LegalNature,
		CompanySize:       c.CompanySize,
		BusinessStartDate: c.BusinessStartDate,
		MainActivity:      c.MainActivity,
		ShareCapital:      int64(c.ShareCapital),
		RegStatus:         translateStatus(c.RegistrationStatus),
		RegReason:         c.RegistrationStatusReason,
		RegDate:           c.RegistrationStatusDate,
		IsHeadquarters:    c.BranchKind == 1,
		AddressType:       c.AddressType,
		AddressStreetName: c.AddressStreet,
		AddressNumber:     c.AddressNumber,
		AddressDistrict:   c.AddressDistrict,
		AddressZipCode:    c.AddressZipCode,
		AddressCity:       c.AddressCity,
		AddressState:      c.AddressState,
		Partners:          partners,
	}
}

func translateStatus(status string) entity.RegStatus {
	switch strings.ToUpper(status) {
	case "ATIVA":
		return entity.StatusActive
	case "BAIXADA":
		return entity.StatusClosed
	case "SUSPENSA":
		return entity.StatusSuspended
	case "INAPTA":
		return entity.StatusUnfit
	default:
		return entity.StatusUnknown
	}
}
