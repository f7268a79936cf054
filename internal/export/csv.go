package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// NormalizedColumns is the header of the normalized table.
var NormalizedColumns = []string{
	"order_id",
	"tracking_number",
	"slug",
	"delivered_time",
	"destination_raw_location",
	"destination_postal_code",
	"destination_city",
	"destination_state",
}

// GeocodedColumns is the header of the geocoded table.
var GeocodedColumns = append(append([]string{}, NormalizedColumns...), "geocode_query", "lat", "lon")

func normalizedRow(r model.NormalizedRecord) []string {
	return []string{
		r.OrderID,
		r.TrackingNumber,
		r.Slug,
		r.DeliveredTime,
		r.DestinationRawLocation,
		r.DestinationPostalCode,
		r.DestinationCity,
		r.DestinationState,
	}
}

func geocodedRow(r model.GeocodedRecord) []string {
	lat, lon := "", ""
	if r.Coordinate != nil {
		lat = strconv.FormatFloat(r.Coordinate.Lat, 'f', -1, 64)
		lon = strconv.FormatFloat(r.Coordinate.Lon, 'f', -1, 64)
	}
	return append(normalizedRow(r.NormalizedRecord), r.GeocodeQuery, lat, lon)
}

// WriteNormalized writes recs as a CSV table with NormalizedColumns.
func WriteNormalized(path string, recs []model.NormalizedRecord) error {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, normalizedRow(r))
	}
	return writeCSV(path, NormalizedColumns, rows)
}

// WriteGeocoded writes recs as a CSV table with GeocodedColumns. Unresolved
// coordinates are written as empty cells.
func WriteGeocoded(path string, recs []model.GeocodedRecord) error {
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, geocodedRow(r))
	}
	return writeCSV(path, GeocodedColumns, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	w.Flush()
	return eris.Wrapf(w.Error(), "export: flush %s", path)
}

// table is a CSV file addressed by column name.
type table struct {
	index map[string]int
	rows  [][]string
}

func (t *table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func readCSV(path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, eris.Errorf("export: %s has no header", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "export: read header %s", path)
	}

	t := &table{index: make(map[string]int, len(header))}
	for i, h := range header {
		t.index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := t.index[col]; !ok {
			return nil, eris.Errorf("export: %s is missing column %q", path, col)
		}
	}

	t.rows, err = r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "export: read rows %s", path)
	}
	return t, nil
}

func (t *table) normalized(row []string) model.NormalizedRecord {
	return model.NormalizedRecord{
		OrderID:                t.get(row, "order_id"),
		TrackingNumber:         t.get(row, "tracking_number"),
		Slug:                   t.get(row, "slug"),
		DeliveredTime:          t.get(row, "delivered_time"),
		DestinationRawLocation: t.get(row, "destination_raw_location"),
		DestinationPostalCode:  t.get(row, "destination_postal_code"),
		DestinationCity:        t.get(row, "destination_city"),
		DestinationState:       t.get(row, "destination_state"),
	}
}

// ReadNormalized loads a normalized table. Columns are matched by name, so
// extra or reordered columns are tolerated.
func ReadNormalized(path string) ([]model.NormalizedRecord, error) {
	t, err := readCSV(path, []string{"destination_postal_code", "destination_city", "destination_state"})
	if err != nil {
		return nil, err
	}
	out := make([]model.NormalizedRecord, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, t.normalized(row))
	}
	return out, nil
}

// ReadGeocoded loads a geocoded table. A row keeps its coordinate only when
// both lat and lon parse.
func ReadGeocoded(path string) ([]model.GeocodedRecord, error) {
	t, err := readCSV(path, []string{"lat", "lon"})
	if err != nil {
		return nil, err
	}
	out := make([]model.GeocodedRecord, 0, len(t.rows))
	for i, row := range t.rows {
		g := model.GeocodedRecord{
			NormalizedRecord: t.normalized(row),
			GeocodeQuery:     t.get(row, "geocode_query"),
		}
		c, err := parseCoordinate(t.get(row, "lat"), t.get(row, "lon"))
		if err != nil {
			return nil, eris.Wrapf(err, "export: %s row %d", path, i+2)
		}
		g.Coordinate = c
		out = append(out, g)
	}
	return out, nil
}

// parseCoordinate returns nil when either value is blank.
func parseCoordinate(lat, lon string) (*model.Coordinate, error) {
	lat, lon = strings.TrimSpace(lat), strings.TrimSpace(lon)
	if lat == "" || lon == "" {
		return nil, nil
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse lat %q", lat)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "parse lon %q", lon)
	}
	return &model.Coordinate{Lat: la, Lon: lo}, nil
}
