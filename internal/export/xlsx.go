package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// WriteGeocodedXLSX writes the geocoded table as a single-sheet workbook for
// people who open results in a spreadsheet. Coordinates are numeric cells.
func WriteGeocodedXLSX(path string, recs []model.GeocodedRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("deliveries")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range GeocodedColumns {
		header.AddCell().SetString(col)
	}

	for _, r := range recs {
		row := sheet.AddRow()
		for _, v := range normalizedRow(r.NormalizedRecord) {
			row.AddCell().SetString(v)
		}
		row.AddCell().SetString(r.GeocodeQuery)
		if r.Coordinate != nil {
			row.AddCell().SetFloat(r.Coordinate.Lat)
			row.AddCell().SetFloat(r.Coordinate.Lon)
		} else {
			row.AddCell().SetString("")
			row.AddCell().SetString("")
		}
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}
