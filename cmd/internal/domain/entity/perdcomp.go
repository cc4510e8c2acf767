package entity

// Client is a registered company and its canonical identifier.
type Client struct {
	ID        string
	CNPJ      string
	Name      string
	CreatedAt string
}

// Snapshot is the cached, rendered state of a company's last consultation.
// One snapshot per client id; CNPJ is a secondary key.
type Snapshot struct {
	ClientID  string
	CompanyID string
	Name      string
	CNPJ      string

	Total   int
	DCOMP   int
	REST    int
	RESSARC int

	RiskLevel     string
	RiskTagsJSON  string
	ByNatureJSON  string
	ByCreditJSON  string
	DatesJSON     string
	FirstDateISO  string
	LastDateISO   string
	CardJSON      string
	SchemaVersion string
	RenderedAtISO string

	Source         string
	ConsultedAt    string
	ReceiptURL     string
	PayloadBytes   int
	LastUpdatedISO string
	Hash           string
	FactsCount     int
	ConsultationID string
	LastError      string
}

// Fact is one normalized filing. Facts are append-only: a changed filing is
// written again with a higher Version and readers keep the latest.
type Fact struct {
	ID          int64
	ClientID    string
	CompanyID   string
	CompanyName string
	CNPJ        string

	Number          string
	FormattedNumber string
	Protocol        string
	IssueDate       string
	TypeCode        int
	TypeName        string
	NatureCode      string
	Family          string
	CreditCode      string
	CreditDesc      string
	RiskLevel       string

	Situation       string
	SituationDetail string
	Motive          string
	Requester       string
	TransmittedAt   string

	Source         string
	ConsultedAt    string
	ReceiptURL     string
	RowHash        string
	InsertedAt     string
	ConsultationID string
	Version        int
	Deleted        bool
}

// Key identifies a filing across versions.
func (f *Fact) Key() string {
	return f.ClientID + "#" + f.Number + "#" + f.Protocol
}

// LegacyRecord is a row of the flat per-company counters sheet that predates
// snapshots.
type LegacyRecord struct {
	ClientID    string
	CNPJ        string
	Total       int
	ReceiptURL  string
	ConsultedAt string
	DCOMP       int
	REST        int
	RESSARC     int
	CANC        int
}
