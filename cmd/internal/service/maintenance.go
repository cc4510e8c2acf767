package service

import (
	"context"
	"perdecomp/cmd/internal/domain/sqlite/repository"
	"perdecomp/cmd/internal/utils"

	"github.com/labstack/gommon/log"
)

// BackfillRisk recomputes the risk and per-credit columns of snapshots from
// their stored facts. Unless all is set, only rows missing either column are
// touched. It returns how many rows were updated.
func (s *PerdcompService) BackfillRisk(ctx context.Context, all bool) (int, error) {
	snaps, err := s.Snapshots.List(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, snap := range snaps {
		if !all && snap.RiskLevel != "" && snap.ByCreditJSON != "" {
			continue
		}

		facts, err := s.Facts.ListByClient(ctx, snap.ClientID)
		if err != nil {
			return updated, err
		}
		if len(facts) == 0 {
			log.Debugf("backfill: no facts for %s, skipping", snap.ClientID)
			continue
		}

		card := BuildCard(s.Taxonomy, CardInput{Facts: facts})
		ok, err := s.Snapshots.UpdateCells(ctx, snap.ClientID, map[string]string{
			"Risco_Nivel":      string(card.AnaliseRisco.Nivel),
			"Risco_Tags_JSON":  mustJSON(card.AnaliseRisco.Tags),
			"Por_Credito_JSON": mustJSON(card.PorCredito),
			"Last_Updated_ISO": utils.NowISO(),
		})
		if err != nil {
			return updated, err
		}
		if ok {
			updated++
		}
	}
	return updated, nil
}

// ReconcileIDs moves every snapshot stored under a placeholder id to the
// canonical id of its CNPJ. It returns how many placeholders were resolved.
func (s *PerdcompService) ReconcileIDs(ctx context.Context) (int, error) {
	snaps, err := s.Snapshots.List(ctx)
	if err != nil {
		return 0, err
	}

	done := 0
	seen := map[string]bool{}
	for _, snap := range snaps {
		if !repository.IsPlaceholderID(snap.ClientID) || seen[snap.ClientID] {
			continue
		}
		seen[snap.ClientID] = true

		ident, err := s.Identity.ReconcilePlaceholder(ctx, snap.ClientID, snap.CNPJ)
		if err != nil {
			log.Warnf("reconcile: cannot resolve %s (CNPJ %q): %v", snap.ClientID, snap.CNPJ, err)
			continue
		}
		log.Infof("reconcile: %s -> %s", snap.ClientID, ident.ClientID)
		done++
	}
	return done, nil
}
