package rental

import (
	"context"
	"strconv"
	"strings"

	"rentalhub/internal/domain"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
)

const (
	ExportSheetName = "Rentals"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	CSVContentType  = "text/csv; charset=utf-8"
)

var (
	exportHeader  = []string{"ID", "Name", "Address", "Rooms", "Price", "Description", "Image"}
	exportColumns = []string{"A", "B", "C", "D", "E", "F", "G"}
)

type exportRow struct {
	ID          string  `csv:"ID"`
	Name        string  `csv:"Name"`
	Address     string  `csv:"Address"`
	Rooms       int     `csv:"Rooms"`
	Price       float64 `csv:"Price"`
	Description string  `csv:"Description"`
	Image       string  `csv:"Image"`
}

func (r exportRow) values() []interface{} {
	return []interface{}{r.ID, r.Name, r.Address, r.Rooms, r.Price, r.Description, r.Image}
}

// neutralizeFormulas prefixes text cells that a spreadsheet would
// evaluate as a formula. xlsx cells are written as typed strings and need
// no prefix.
func (r *exportRow) neutralizeFormulas() {
	for _, f := range []*string{&r.ID, &r.Name, &r.Address, &r.Description, &r.Image} {
		*f = csvSafe(*f)
	}
}

func csvSafe(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func toExportRows(rentals []domain.Rental) []exportRow {
	rows := make([]exportRow, 0, len(rentals))
	for _, r := range rentals {
		rows = append(rows, exportRow{
			ID:          r.ID,
			Name:        r.Name,
			Address:     r.Address,
			Rooms:       r.RoomCount,
			Price:       r.Price,
			Description: r.Description,
			Image:       r.Image,
		})
	}
	return rows
}

// Export serializes every stored rental as "xlsx" (the default) or "csv".
func (s *Service) Export(ctx context.Context, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "" && format != "xlsx" && format != "csv" {
		return nil, ErrInvalidFormat
	}

	rentals, err := s.rentals.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	rows := toExportRows(rentals)

	if format == "csv" {
		for i := range rows {
			rows[i].neutralizeFormulas()
		}
		data, err := gocsv.MarshalBytes(&rows)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: "rentals.csv", ContentType: CSVContentType, Data: data}, nil
	}

	data, err := buildWorkbook(rows)
	if err != nil {
		return nil, err
	}
	return &ExportFile{Filename: "rentals.xlsx", ContentType: XLSXContentType, Data: data}, nil
}

// buildWorkbook writes a single "Rentals" sheet; the header row is
// present even when there are no rentals.
func buildWorkbook(rows []exportRow) ([]byte, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", ExportSheetName)

	for i, h := range exportHeader {
		f.SetCellValue(ExportSheetName, cellAxis(i, 1), h)
	}
	for r, row := range rows {
		for c, v := range row.values() {
			f.SetCellValue(ExportSheetName, cellAxis(c, r+2), v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellAxis(col, row int) string {
	return exportColumns[col] + strconv.Itoa(row)
}
