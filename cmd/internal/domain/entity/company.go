package entity

type RegStatus string

const (
	StatusActive    RegStatus = "ACTIVE"
	StatusClosed    RegStatus = "CLOSED"
	StatusSuspended RegStatus = "SUSPENDED"
	StatusUnfit     RegStatus = "UNFIT"
	StatusUnknown   RegStatus = "UNKNOWN"
)

// Company is the cached registry record of a CNPJ.
type Company struct {
	CNPJ              string `gorm:"primaryKey;column:cnpj"`
	LegalName         string
	TradeName         string
	LegalNature       string
	CompanySize       string
	BusinessStartDate string
	MainActivity      string
	ShareCapital      int64
	RegStatus         RegStatus
	RegReason         string
	RegDate           string
	IsHeadquarters    bool
	AddressType       string
	AddressStreetName string
	AddressNumber     string
	AddressDistrict   string
	AddressZipCode    string
	AddressCity       string
	AddressState      string

	// Found controls negative caching of registry lookups:
	//
	// - true: the CNPJ exists and the record above is cached.
	//
	// - false: the registry answered 404; the row only remembers that.
	Found    bool
	CachedAt int64 `gorm:"index"`

	Partners []*CompanyPartner `gorm:"foreignKey:CompanyCNPJ;references:CNPJ;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// DisplayName prefers the trade name, which is what users recognize.
func (c *Company) DisplayName() string {
	if c.TradeName != "" {
		return c.TradeName
	}
	return c.LegalName
}

type CompanyPartner struct {
	ID          int    `gorm:"primaryKey"`
	CompanyCNPJ string `gorm:"uniqueIndex:idx_company_partner_cnpj_name;index"`
	Name        string `gorm:"uniqueIndex:idx_company_partner_cnpj_name"`
	Role        string
	RoleCode    int
	AgeRange    string
}
