package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/domain/entity"
	"perdecomp/cmd/internal/domain/perdcomp"
	"perdecomp/cmd/internal/infrastructure/infosimples"
	"perdecomp/cmd/internal/utils"
	"perdecomp/cmd/internal/utils/apierror"
	"perdecomp/cmd/internal/utils/cnpj"
	"perdecomp/cmd/internal/utils/uid"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/singleflight"
)

// SourceInfosimples tags rows written from a provider consultation.
const SourceInfosimples = "infosimples"

type FilingsProvider interface {
	Fetch(ctx context.Context, req infosimples.Request) (*infosimples.Result, error)
}

type SnapshotRepository interface {
	List(ctx context.Context) ([]*entity.Snapshot, error)
	FindByClientID(ctx context.Context, id string) (*entity.Snapshot, error)
	FindByCNPJ(ctx context.Context, doc string) (*entity.Snapshot, error)
	Save(ctx context.Context, s *entity.Snapshot) error
	UpdateCells(ctx context.Context, clientID string, cells map[string]string) (bool, error)
}

type FactRepository interface {
	Append(ctx context.Context, facts []*entity.Fact) (int, error)
	ListByClient(ctx context.Context, clientID string) ([]*entity.Fact, error)
	ListByCNPJ(ctx context.Context, doc string) ([]*entity.Fact, error)
}

type LegacyRepository interface {
	FindByCNPJ(ctx context.Context, doc string) (*entity.LegacyRecord, error)
	Save(ctx context.Context, rec *entity.LegacyRecord) error
}

// CardCache is an optional fast path in front of the snapshot table.
type CardCache interface {
	Get(ctx context.Context, clientID string) ([]byte, error)
	Set(ctx context.Context, clientID string, card []byte) error
	Delete(ctx context.Context, clientID string) error
}

// CardArchiver keeps a copy of every card rendered from a consultation.
type CardArchiver interface {
	Archive(ctx context.Context, clientID, consultationID string, card []byte) (string, error)
}

// CompanyNamer resolves a company name from its CNPJ, or returns "".
type CompanyNamer interface {
	CompanyName(ctx context.Context, doc string) string
}

type PerdcompService struct {
	Provider  FilingsProvider
	Snapshots SnapshotRepository
	Facts     FactRepository
	Legacy    LegacyRepository
	Identity  *IdentityResolver
	Taxonomy  *perdcomp.Taxonomy

	Cache     CardCache
	Archive   CardArchiver
	Companies CompanyNamer
	Validate  *validator.Validate

	refreshes singleflight.Group
}

// NewPerdcompService wires the lookup flow. provider may be nil, in which case
// only cached data is served.
func NewPerdcompService(
	provider FilingsProvider,
	snapshots SnapshotRepository,
	facts FactRepository,
	legacy LegacyRepository,
	identity *IdentityResolver,
	taxonomy *perdcomp.Taxonomy,
	validate *validator.Validate,
) *PerdcompService {
	return &PerdcompService{
		Provider:  provider,
		Snapshots: snapshots,
		Facts:     facts,
		Legacy:    legacy,
		Identity:  identity,
		Taxonomy:  taxonomy,
		Validate:  validate,
	}
}

// Lookup answers a filings lookup.
//
// A forced lookup always calls the provider and persists the result; it never
// reads cached data. Otherwise the stored snapshot is served, then the legacy
// counters, and finally an explicit empty result. Cache read failures only
// push the lookup down that chain.
func (s *PerdcompService) Lookup(ctx context.Context, req *contract.LookupRequest) (*contract.LookupResponse, apierror.ErrorResponse) {
	utils.Sanitize(req)
	if valerr := s.Validate.Struct(req); valerr != nil {
		return nil, validationError(valerr)
	}

	doc := ""
	if req.CNPJ != "" {
		doc = cnpj.Normalize(req.CNPJ)
		if !cnpj.IsValid(doc) {
			return nil, apierror.InvalidCNPJError
		}
	}
	if req.ClientID == "" && doc == "" {
		return nil, apierror.MissingIdentityError
	}

	var (
		resp   *contract.LookupResponse
		apierr apierror.ErrorResponse
	)
	if req.Force {
		resp, apierr = s.refresh(ctx, req, doc)
	} else {
		resp = s.fromCache(ctx, req.ClientID, doc)
	}
	if apierr != nil {
		return nil, apierr
	}

	out := *resp
	if !req.Debug {
		out.Debug = nil
	}
	return &out, nil
}

// LastConsultation reports when a CNPJ was last consulted.
func (s *PerdcompService) LastConsultation(ctx context.Context, rawCNPJ string) (*contract.VerifyResponse, apierror.ErrorResponse) {
	doc := cnpj.Normalize(rawCNPJ)
	if !cnpj.IsValid(doc) {
		return nil, apierror.InvalidCNPJError
	}

	resp := &contract.VerifyResponse{CNPJ: doc}
	snap, err := s.Snapshots.FindByCNPJ(ctx, doc)
	if err != nil {
		log.Errorf("failed to read snapshot of %s: %v", doc, err)
		return nil, apierror.InternalServerError
	}
	if snap != nil && snap.ConsultedAt != "" {
		resp.ClientID = snap.ClientID
		resp.LastConsultation = &snap.ConsultedAt
		resp.Source = snap.Source
		return resp, nil
	}

	legacy, err := s.Legacy.FindByCNPJ(ctx, doc)
	if err != nil {
		log.Errorf("failed to read legacy record of %s: %v", doc, err)
		return nil, apierror.InternalServerError
	}
	if legacy != nil && legacy.ConsultedAt != "" {
		resp.ClientID = legacy.ClientID
		resp.LastConsultation = &legacy.ConsultedAt
	}
	return resp, nil
}

func (s *PerdcompService) refresh(ctx context.Context, req *contract.LookupRequest, doc string) (*contract.LookupResponse, apierror.ErrorResponse) {
	if s.Provider == nil {
		return nil, apierror.ProviderNotConfiguredError
	}

	ident, err := s.Identity.Resolve(ctx, req.ClientID, doc, req.CompanyName)
	if errors.Is(err, ErrUnresolvedIdentity) {
		return nil, apierror.MissingIdentityError
	}
	if err != nil {
		log.Errorf("failed to resolve identity %s/%s: %v", req.ClientID, doc, err)
		return nil, apierror.InternalServerError
	}

	// Concurrent refreshes of the same company and window share one call.
	// The shared call outlives any single caller; the provider client's own
	// timeout bounds it.
	key := ident.ClientID + "|" + req.StartDate + "|" + req.EndDate
	ch := s.refreshes.DoChan(key, func() (any, error) {
		return s.fetchAndPersist(context.WithoutCancel(ctx), ident, req)
	})

	select {
	case <-ctx.Done():
		return nil, s.providerFailure(ctx, ident, ctx.Err())
	case res := <-ch:
		if res.Shared {
			log.Debugf("refresh of %s shared with a concurrent request", ident.ClientID)
		}
		if res.Err != nil {
			return nil, s.providerFailure(ctx, ident, res.Err)
		}
		return res.Val.(*contract.LookupResponse), nil
	}
}

func (s *PerdcompService) fetchAndPersist(ctx context.Context, ident Identity, req *contract.LookupRequest) (*contract.LookupResponse, error) {
	res, err := s.Provider.Fetch(ctx, infosimples.Request{
		CNPJ:      ident.CNPJ,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		return nil, err
	}

	if ident.Name == "" && s.Companies != nil {
		if name := s.Companies.CompanyName(ctx, ident.CNPJ); name != "" {
			ident.Name = name
			if err := s.Identity.Rename(ctx, ident.ClientID, name); err != nil {
				log.Warnf("failed to store name of client %s: %v", ident.ClientID, err)
			}
		}
	}

	dbg := &contract.LookupDebug{Reason: contract.ReasonLive, APIResponse: res.Raw}
	if len(res.Entries) == 0 {
		dbg.Reason = contract.ReasonLiveNoResult
	}
	card := s.persist(ctx, ident, res, dbg)

	mapped := res.MappedCount
	return &contract.LookupResponse{
		OK:          true,
		Mode:        contract.ModeLive,
		ClientID:    ident.ClientID,
		CNPJ:        ident.CNPJ,
		RequestedAt: res.RequestedAt,
		Total:       len(res.Entries),
		MappedCount: &mapped,
		SiteReceipt: res.SiteReceipt,
		Resumo:      card.Resumo,
		Card:        card,
		Debug:       dbg,
	}, nil
}

// persist writes the card, the facts and the run metadata of a consultation.
// Write failures are logged and reported in dbg; the card is returned either way.
func (s *PerdcompService) persist(ctx context.Context, ident Identity, res *infosimples.Result, dbg *contract.LookupDebug) *contract.SnapshotCard {
	consultationID := uuid.NewString()
	dbg.ConsultationID = consultationID

	now := utils.NowISO()
	consultedAt := firstNonEmpty(res.RequestedAt, now)
	facts := s.buildFacts(ident, res, consultationID, consultedAt, now)

	card := BuildCard(s.Taxonomy, CardInput{
		Name:        ident.Name,
		CNPJ:        ident.CNPJ,
		ConsultedAt: consultedAt,
		SiteReceipt: res.SiteReceipt,
		RenderedAt:  now,
		Facts:       facts,
	})
	raw, err := json.Marshal(card)
	if err != nil {
		log.Errorf("failed to encode card of %s: %v", ident.ClientID, err)
		return card
	}

	fail := func(what string, err error) {
		log.Errorf("failed to persist %s of %s (consultation %s): %v", what, ident.ClientID, consultationID, err)
		dbg.PersistErrors = append(dbg.PersistErrors, fmt.Sprintf("%s: %v", what, err))
	}

	snap := snapshotFromCard(ident, card, string(raw), facts, consultationID, now)
	if err := s.Snapshots.Save(ctx, snap); err != nil {
		fail("snapshot", err)
	}

	n, err := s.Facts.Append(ctx, facts)
	if err != nil {
		fail("facts", err)
	}
	dbg.FactsWritten = n

	r := card.Resumo
	err = s.Legacy.Save(ctx, &entity.LegacyRecord{
		ClientID:    ident.ClientID,
		CNPJ:        ident.CNPJ,
		Total:       r.Total,
		ReceiptURL:  res.SiteReceipt,
		ConsultedAt: consultedAt,
		DCOMP:       r.PorFamilia[perdcomp.FamiliaDCOMP],
		REST:        r.PorFamilia[perdcomp.FamiliaREST],
		RESSARC:     r.PorFamilia[perdcomp.FamiliaRESSARC],
		CANC:        r.Canc,
	})
	if err != nil {
		fail("legacy counters", err)
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, ident.ClientID, raw); err != nil {
			fail("card cache", err)
		}
		if ident.Reconciled != "" {
			if err := s.Cache.Delete(ctx, ident.Reconciled); err != nil {
				fail("card cache", err)
			}
		}
	}
	if s.Archive != nil {
		if _, err := s.Archive.Archive(ctx, ident.ClientID, consultationID, raw); err != nil {
			fail("card archive", err)
		}
	}

	log.Infof("consultation %s of %s: %d filings, %d new facts", consultationID, ident.ClientID, len(res.Entries), n)
	return card
}

func (s *PerdcompService) buildFacts(ident Identity, res *infosimples.Result, consultationID, consultedAt, insertedAt string) []*entity.Fact {
	facts := make([]*entity.Fact, 0, len(res.Entries))
	for _, e := range res.Entries {
		p := perdcomp.Parse(e.Numero)
		if p == nil {
			log.Debugf("skipping unparseable filing number %q of %s", e.Numero, ident.CNPJ)
			continue
		}

		cls := s.Taxonomy.Naturezas.Lookup(p.NatureCode)
		profile := s.Taxonomy.Creditos.Lookup(p.CreditCode)
		facts = append(facts, &entity.Fact{
			ID:              uid.Generate(),
			ClientID:        ident.ClientID,
			CompanyID:       cnpj.ToHeadquarters(ident.CNPJ),
			CompanyName:     ident.Name,
			CNPJ:            ident.CNPJ,
			Number:          p.Digits(),
			FormattedNumber: p.Canonical,
			Protocol:        p.Protocol,
			IssueDate:       p.IssueDate,
			TypeCode:        p.DocumentTypeCode,
			TypeName:        typeName(s.Taxonomy, p.DocumentTypeCode, e.TipoDocumento),
			NatureCode:      p.NatureCode,
			Family:          cls.Familia.String(),
			CreditCode:      p.CreditCode,
			CreditDesc:      s.Taxonomy.CreditDescription(p.CreditCode, e.TipoCredito),
			RiskLevel:       string(profile.Risco),
			Situation:       e.Situacao,
			SituationDetail: e.SituacaoDetalhamento,
			Motive:          string(perdcomp.NormalizeMotivo(e.Situacao, e.SituacaoDetalhamento)),
			Requester:       e.Solicitante,
			TransmittedAt:   e.DataTransmissao,
			Source:          SourceInfosimples,
			ConsultedAt:     consultedAt,
			ReceiptURL:      res.SiteReceipt,
			InsertedAt:      insertedAt,
			ConsultationID:  consultationID,
		})
	}
	return facts
}

// providerFailure maps a failed refresh to a response and records the error
// on the client's snapshot, if it has one.
func (s *PerdcompService) providerFailure(ctx context.Context, ident Identity, err error) apierror.ErrorResponse {
	var pe *infosimples.ProviderError
	switch {
	case errors.As(err, &pe):
		log.Warnf("provider failed for %s: %v", ident.CNPJ, pe)
		s.recordError(ctx, ident.ClientID, pe.Error())
		return apierror.NewProviderError(pe.HTTPStatusCode(), pe.StatusText, pe.ProviderCode, pe.ProviderMessage)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		log.Warnf("provider call for %s ended early: %v", ident.CNPJ, err)
		return apierror.ProviderTimeoutError
	default:
		log.Errorf("unexpected refresh failure for %s: %v", ident.CNPJ, err)
		return apierror.InternalServerError
	}
}

func (s *PerdcompService) recordError(ctx context.Context, clientID, msg string) {
	_, err := s.Snapshots.UpdateCells(ctx, clientID, map[string]string{
		"Erro_Ultima_Consulta": msg,
		"Last_Updated_ISO":     utils.NowISO(),
	})
	if err != nil {
		log.Errorf("failed to record provider error on snapshot %s: %v", clientID, err)
	}
}

func snapshotFromCard(ident Identity, card *contract.SnapshotCard, raw string, facts []*entity.Fact, consultationID, now string) *entity.Snapshot {
	r := card.Resumo
	dates := issueDates(facts)

	snap := &entity.Snapshot{
		ClientID:       ident.ClientID,
		CompanyID:      cnpj.ToHeadquarters(ident.CNPJ),
		Name:           ident.Name,
		CNPJ:           ident.CNPJ,
		Total:          card.QuantidadeTotal,
		DCOMP:          r.PorFamilia[perdcomp.FamiliaDCOMP],
		REST:           r.PorFamilia[perdcomp.FamiliaREST],
		RESSARC:        r.PorFamilia[perdcomp.FamiliaRESSARC],
		RiskLevel:      string(card.AnaliseRisco.Nivel),
		RiskTagsJSON:   mustJSON(card.AnaliseRisco.Tags),
		ByNatureJSON:   mustJSON(card.PorNatureza),
		ByCreditJSON:   mustJSON(card.PorCredito),
		DatesJSON:      mustJSON(dates),
		CardJSON:       raw,
		SchemaVersion:  fmt.Sprint(card.SchemaVersion),
		RenderedAtISO:  card.RenderedAtISO,
		Source:         SourceInfosimples,
		ConsultedAt:    card.Header.UltimaConsultaISO,
		PayloadBytes:   len(raw),
		LastUpdatedISO: now,
		Hash:           card.Hash,
		FactsCount:     len(facts),
		ConsultationID: consultationID,
	}
	if card.Links != nil {
		snap.ReceiptURL = card.Links.HTML
	}
	if len(dates) > 0 {
		snap.LastDateISO = dates[0]
		snap.FirstDateISO = dates[len(dates)-1]
	}
	return snap
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

func validationError(err error) apierror.ErrorResponse {
	if se := apierror.FromValidationError(err); se != nil {
		return se
	}
	log.Errorf("unexpected validation failure: %v", err)
	return apierror.InternalServerError
}
