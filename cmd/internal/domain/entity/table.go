package entity

import "gorm.io/datatypes"

// TableColumn is one header cell of a sheet. Position is zero-based.
type TableColumn struct {
	ID       uint   `gorm:"primaryKey"`
	Sheet    string `gorm:"uniqueIndex:idx_table_column_sheet_name;index:idx_table_column_sheet_pos,priority:1"`
	Name     string `gorm:"uniqueIndex:idx_table_column_sheet_name"`
	Position int    `gorm:"index:idx_table_column_sheet_pos,priority:2"`
}

// TableRow is one data row of a sheet. RowNumber follows spreadsheet
// numbering: the header is row 1, so the first data row is 2. Cells holds a
// JSON object keyed by column name.
type TableRow struct {
	ID        uint           `gorm:"primaryKey"`
	Sheet     string         `gorm:"uniqueIndex:idx_table_row_sheet_number"`
	RowNumber int            `gorm:"uniqueIndex:idx_table_row_sheet_number"`
	Cells     datatypes.JSON `gorm:"not null"`
	UpdatedAt int64          `gorm:"autoUpdateTime:milli"`
}
