package repository

import (
	"context"
	"strconv"
	"strings"
)

// Sheet names, kept identical to the spreadsheet tabs they replace.
const (
	ClientSheet           = "CLIENTES"
	SnapshotSheet         = "PERDECOMP_SNAPSHOT"
	FactsSheet            = "PERDECOMP_FACTS"
	LegacySheet           = "PERDECOMP"
	NatureDictSheet       = "DIC_NATUREZAS"
	CreditDictSheet       = "DIC_CREDITOS"
	DocumentTypeDictSheet = "DIC_TIPOS"
)

// upsertRow overwrites the last row whose keyColumn equals key, or appends a
// new row when there is none. It returns the row number written.
func upsertRow(ctx context.Context, store *DefaultTableStore, sheet string, columns []string, keyColumn, key string, cells map[string]string) (int, error) {
	if _, err := store.EnsureColumns(ctx, sheet, columns); err != nil {
		return 0, err
	}

	t, err := store.ReadRows(ctx, sheet)
	if err != nil {
		return 0, err
	}

	row := 0
	for _, r := range t.Rows {
		if r.Get(keyColumn) == key {
			row = r.Number
		}
	}
	if row == 0 {
		return store.AppendRow(ctx, sheet, cells)
	}

	updates := make([]CellUpdate, 0, len(cells))
	for _, col := range columns {
		if v, ok := cells[col]; ok {
			updates = append(updates, CellUpdate{Row: row, Column: col, Value: v})
		}
	}
	return row, store.BatchUpdateCells(ctx, sheet, updates)
}

// rewriteColumn replaces every cell of column equal to from with to.
func rewriteColumn(ctx context.Context, store *DefaultTableStore, sheet, column, from, to string) (int, error) {
	t, err := store.ReadRows(ctx, sheet)
	if err != nil {
		return 0, err
	}

	var updates []CellUpdate
	for _, r := range t.Rows {
		if r.Get(column) == from {
			updates = append(updates, CellUpdate{Row: r.Number, Column: column, Value: to})
		}
	}
	if err := store.BatchUpdateCells(ctx, sheet, updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
