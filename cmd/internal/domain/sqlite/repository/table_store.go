package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"perdecomp/cmd/internal/domain/entity"
)

// FirstDataRow is the row number of the first data row; row 1 is the header.
const FirstDataRow = 2

var ErrRowNotFound = errors.New("row not found")

// Row is one data row with a stable row number.
type Row struct {
	Number int
	Cells  map[string]string
}

// Get returns the cell under column, or "" when absent.
func (r Row) Get(column string) string {
	return r.Cells[column]
}

type Table struct {
	Headers []string
	Rows    []Row
}

type CellUpdate struct {
	Row    int
	Column string
	Value  string
}

// DefaultTableStore keeps spreadsheet-like tables (named sheets with a header
// row and string cells) in two relational tables.
type DefaultTableStore struct {
	db *gorm.DB
}

func NewTableStore(db *gorm.DB) *DefaultTableStore {
	return &DefaultTableStore{db: db}
}

func (s *DefaultTableStore) ReadRows(ctx context.Context, sheet string) (*Table, error) {
	var cols []entity.TableColumn
	err := s.db.WithContext(ctx).
		Where("sheet = ?", sheet).
		Order("position").
		Find(&cols).Error
	if err != nil {
		return nil, fmt.Errorf("read headers of %s: %w", sheet, err)
	}

	var rows []entity.TableRow
	err = s.db.WithContext(ctx).
		Where("sheet = ?", sheet).
		Order("row_number").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("read rows of %s: %w", sheet, err)
	}

	t := &Table{Headers: make([]string, len(cols)), Rows: make([]Row, 0, len(rows))}
	for i, c := range cols {
		t.Headers[i] = c.Name
	}
	for _, r := range rows {
		cells, err := decodeCells(r.Cells)
		if err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", sheet, r.RowNumber, err)
		}
		t.Rows = append(t.Rows, Row{Number: r.RowNumber, Cells: cells})
	}
	return t, nil
}

// EnsureColumns appends every missing column to the header, in the given
// order, and returns the names it added.
func (s *DefaultTableStore) EnsureColumns(ctx context.Context, sheet string, columns []string) ([]string, error) {
	var added []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		added, err = ensureColumns(tx, sheet, columns)
		return err
	})
	return added, err
}

// AppendRow writes cells as a new row after the last one and returns its row
// number. Unknown columns are added to the header.
func (s *DefaultTableStore) AppendRow(ctx context.Context, sheet string, cells map[string]string) (int, error) {
	var number int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureColumns(tx, sheet, sortedCodes(cells)); err != nil {
			return err
		}

		var last sql.NullInt64
		err := tx.Model(&entity.TableRow{}).
			Select("MAX(row_number)").
			Where("sheet = ?", sheet).
			Row().
			Scan(&last)
		if err != nil {
			return err
		}

		number = FirstDataRow
		if last.Valid {
			number = int(last.Int64) + 1
		}

		raw, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		return tx.Create(&entity.TableRow{Sheet: sheet, RowNumber: number, Cells: raw}).Error
	})
	if err != nil {
		return 0, fmt.Errorf("append row to %s: %w", sheet, err)
	}
	return number, nil
}

func (s *DefaultTableStore) UpdateCell(ctx context.Context, sheet string, row int, column, value string) error {
	return s.BatchUpdateCells(ctx, sheet, []CellUpdate{{Row: row, Column: column, Value: value}})
}

// BatchUpdateCells applies every update atomically. Missing columns are
// added; a missing row fails the whole batch with ErrRowNotFound.
func (s *DefaultTableStore) BatchUpdateCells(ctx context.Context, sheet string, updates []CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		columns := make([]string, 0, len(updates))
		for _, u := range updates {
			columns = append(columns, u.Column)
		}
		if _, err := ensureColumns(tx, sheet, columns); err != nil {
			return err
		}

		touched := map[int]*entity.TableRow{}
		cells := map[int]map[string]string{}
		for _, u := range updates {
			if _, ok := touched[u.Row]; !ok {
				var r entity.TableRow
				err := tx.Where("sheet = ? AND row_number = ?", sheet, u.Row).First(&r).Error
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%s row %d: %w", sheet, u.Row, ErrRowNotFound)
				}
				if err != nil {
					return err
				}
				decoded, err := decodeCells(r.Cells)
				if err != nil {
					return err
				}
				touched[u.Row] = &r
				cells[u.Row] = decoded
			}
			cells[u.Row][u.Column] = u.Value
		}

		for number, r := range touched {
			raw, err := json.Marshal(cells[number])
			if err != nil {
				return err
			}
			err = tx.Model(r).Update("cells", datatypes.JSON(raw)).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSheet drops every header and row of a sheet.
func (s *DefaultTableStore) DeleteSheet(ctx context.Context, sheet string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("sheet = ?", sheet).Delete(&entity.TableRow{}).Error; err != nil {
			return err
		}
		return tx.Where("sheet = ?", sheet).Delete(&entity.TableColumn{}).Error
	})
}

func ensureColumns(tx *gorm.DB, sheet string, columns []string) ([]string, error) {
	var existing []entity.TableColumn
	if err := tx.Where("sheet = ?", sheet).Order("position").Find(&existing).Error; err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.Name] = true
	}

	var added []string
	next := len(existing)
	for _, name := range columns {
		if name == "" || known[name] {
			continue
		}
		col := entity.TableColumn{Sheet: sheet, Name: name, Position: next}
		if err := tx.Create(&col).Error; err != nil {
			return nil, err
		}
		known[name] = true
		added = append(added, name)
		next++
	}
	return added, nil
}

func decodeCells(raw []byte) (map[string]string, error) {
	cells := map[string]string{}
	if len(raw) == 0 {
		return cells, nil
	}
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}
