package service

import (
	"context"
	"encoding/json"
	"perdecomp/cmd/internal/contract"
	"perdecomp/cmd/internal/domain/entity"
	"perdecomp/cmd/internal/domain/perdcomp"

	"github.com/labstack/gommon/log"
)

// fromCache serves stored data only: the card cache, then the snapshot
// table, then the legacy counters. It never fails; read errors are treated
// as misses.
func (s *PerdcompService) fromCache(ctx context.Context, clientID, doc string) *contract.LookupResponse {
	dbg := &contract.LookupDebug{}
	miss := func(what string, err error) {
		log.Warnf("cache read of %s failed for %s/%s: %v", what, clientID, doc, err)
		dbg.CacheErrors = append(dbg.CacheErrors, what+": "+err.Error())
	}

	if clientID != "" && s.Cache != nil {
		raw, err := s.Cache.Get(ctx, clientID)
		if err != nil {
			miss("card cache", err)
		}
		if card := decodeCard(string(raw)); card != nil && !needsRebuild(card) {
			dbg.Reason = contract.ReasonCacheHit
			return cardResponse(clientID, card, dbg)
		}
	}

	snap, err := s.findSnapshot(ctx, clientID, doc)
	if err != nil {
		miss("snapshot", err)
	}
	if snap != nil {
		card, rebuilt := s.snapshotCard(ctx, snap, miss)
		dbg.Reason = contract.ReasonCacheHit
		if rebuilt {
			dbg.Reason = contract.ReasonCardRebuilt
		}
		return cardResponse(snap.ClientID, card, dbg)
	}

	if doc != "" {
		legacy, err := s.Legacy.FindByCNPJ(ctx, doc)
		if err != nil {
			miss("legacy counters", err)
		}
		if legacy != nil {
			dbg.Reason = contract.ReasonLegacy
			return legacyResponse(legacy, dbg)
		}
	}

	dbg.Reason = contract.ReasonNoData
	return &contract.LookupResponse{
		OK:       true,
		Mode:     contract.ModeEmpty,
		ClientID: clientID,
		CNPJ:     doc,
		Debug:    dbg,
	}
}

// findSnapshot looks the snapshot up by client id first and by CNPJ when the
// caller gave no id or the id has none.
func (s *PerdcompService) findSnapshot(ctx context.Context, clientID, doc string) (*entity.Snapshot, error) {
	if clientID != "" {
		snap, err := s.Snapshots.FindByClientID(ctx, clientID)
		if err != nil || snap != nil {
			return snap, err
		}
	}
	if doc == "" {
		return nil, nil
	}
	return s.Snapshots.FindByCNPJ(ctx, doc)
}

// snapshotCard returns the stored card, re-deriving it when it is missing or
// predates the current layout. It reports whether the card was rebuilt.
func (s *PerdcompService) snapshotCard(ctx context.Context, snap *entity.Snapshot, miss func(string, error)) (*contract.SnapshotCard, bool) {
	cached := decodeCard(snap.CardJSON)
	if !needsRebuild(cached) {
		return cached, false
	}

	facts, err := s.Facts.ListByClient(ctx, snap.ClientID)
	if err != nil {
		miss("facts", err)
	}
	if len(facts) == 0 && err == nil {
		if facts, err = s.Facts.ListByCNPJ(ctx, snap.CNPJ); err != nil {
			miss("facts", err)
		}
	}

	var derived *contract.SnapshotCard
	if len(facts) > 0 {
		derived = BuildCard(s.Taxonomy, CardInput{
			Name:        snap.Name,
			CNPJ:        snap.CNPJ,
			ConsultedAt: snap.ConsultedAt,
			SiteReceipt: snap.ReceiptURL,
			Facts:       facts,
		})
	} else {
		derived = countersCard(snapshotHeader(snap), snap.Total, 0, map[perdcomp.Familia]int{
			perdcomp.FamiliaDCOMP:   snap.DCOMP,
			perdcomp.FamiliaREST:    snap.REST,
			perdcomp.FamiliaRESSARC: snap.RESSARC,
		}, snapshotRisk(snap))
	}
	return MergeCard(cached, derived), true
}

func snapshotHeader(snap *entity.Snapshot) contract.CardHeader {
	return contract.CardHeader{Nome: snap.Name, CNPJ: snap.CNPJ, UltimaConsultaISO: snap.ConsultedAt}
}

func snapshotRisk(snap *entity.Snapshot) perdcomp.Risk {
	risk := perdcomp.Risk{Nivel: perdcomp.RiskDesconhecido, Tags: []perdcomp.RiskTag{}}
	if snap.RiskLevel != "" {
		risk.Nivel = perdcomp.RiskLevel(snap.RiskLevel)
	}
	if snap.RiskTagsJSON != "" {
		var tags []perdcomp.RiskTag
		if err := json.Unmarshal([]byte(snap.RiskTagsJSON), &tags); err == nil && tags != nil {
			risk.Tags = tags
		}
	}
	return risk
}

func cardResponse(clientID string, card *contract.SnapshotCard, dbg *contract.LookupDebug) *contract.LookupResponse {
	resp := &contract.LookupResponse{
		OK:          true,
		Mode:        contract.ModeCache,
		ClientID:    clientID,
		CNPJ:        card.Header.CNPJ,
		RequestedAt: card.Header.UltimaConsultaISO,
		Resumo:      card.Resumo,
		Card:        card,
		Debug:       dbg,
	}
	if card.Resumo != nil {
		resp.Total = card.Resumo.Total
	}
	if card.Links != nil {
		resp.SiteReceipt = card.Links.HTML
	}
	return resp
}

func legacyResponse(rec *entity.LegacyRecord, dbg *contract.LookupDebug) *contract.LookupResponse {
	header := contract.CardHeader{CNPJ: rec.CNPJ, UltimaConsultaISO: rec.ConsultedAt}
	card := countersCard(header, rec.Total, rec.CANC, map[perdcomp.Familia]int{
		perdcomp.FamiliaDCOMP:   rec.DCOMP,
		perdcomp.FamiliaREST:    rec.REST,
		perdcomp.FamiliaRESSARC: rec.RESSARC,
	}, perdcomp.Risk{Nivel: perdcomp.RiskDesconhecido, Tags: []perdcomp.RiskTag{}})
	if rec.ReceiptURL != "" {
		card.Links = &contract.CardLinks{HTML: rec.ReceiptURL}
		card.Hash = CardHash(card)
	}

	return &contract.LookupResponse{
		OK:          true,
		Mode:        contract.ModeLegacy,
		ClientID:    rec.ClientID,
		CNPJ:        rec.CNPJ,
		RequestedAt: rec.ConsultedAt,
		Total:       card.Resumo.Total,
		SiteReceipt: rec.ReceiptURL,
		Resumo:      card.Resumo,
		Card:        card,
		Debug:       dbg,
	}
}
