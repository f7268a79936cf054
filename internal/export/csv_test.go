package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

var sampleNormalized = []model.NormalizedRecord{
	{
		OrderID:                "1001",
		TrackingNumber:         "3S1",
		Slug:                   "postnl-3s",
		DeliveredTime:          "2024-05-01T10:00:00Z",
		DestinationRawLocation: "Dam 1, 1011AB Amsterdam",
		DestinationPostalCode:  "1011AB",
		DestinationCity:        "Amsterdam",
	},
	{TrackingNumber: "2", DestinationState: "Noord-Holland"},
}

func TestNormalized_WriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "normalized.csv")
	require.NoError(t, WriteNormalized(path, sampleNormalized))

	got, err := ReadNormalized(path)
	require.NoError(t, err)
	assert.Equal(t, sampleNormalized, got)
}

func TestGeocoded_WriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geocoded.csv")
	recs := []model.GeocodedRecord{
		{NormalizedRecord: sampleNormalized[0], GeocodeQuery: "1011AB, Amsterdam, Netherlands",
			Coordinate: &model.Coordinate{Lat: 52.3731, Lon: 4.8925}},
		{NormalizedRecord: sampleNormalized[1], GeocodeQuery: "Noord-Holland, Netherlands"},
	}

	require.NoError(t, WriteGeocoded(path, recs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "geocode_query,lat,lon\n")
	assert.Contains(t, string(data), "Noord-Holland, Netherlands\",,\n")

	got, err := ReadGeocoded(path)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestReadNormalized_ColumnsByName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.csv")
	body := "\ufeffdestination_city,extra,destination_postal_code,destination_state,tracking_number\n" +
		"Delft,x,2611AB,,42\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	got, err := ReadNormalized(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Delft", got[0].DestinationCity)
	assert.Equal(t, "2611AB", got[0].DestinationPostalCode)
	assert.Equal(t, "42", got[0].TrackingNumber)
	assert.Empty(t, got[0].OrderID)
}

func TestReadNormalized_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.csv")
	require.NoError(t, os.WriteFile(path, []byte("order_id,destination_city\n1,Delft\n"), 0o644))

	_, err := ReadNormalized(path)
	assert.ErrorContains(t, err, `missing column "destination_postal_code"`)
}

func TestReadGeocoded_HalfCoordinateIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo.csv")
	require.NoError(t, os.WriteFile(path, []byte("geocode_query,lat,lon\nq,52.1,\n"), 0o644))

	got, err := ReadGeocoded(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].HasCoordinate())
}

func TestReadGeocoded_BadNumber(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo.csv")
	require.NoError(t, os.WriteFile(path, []byte("lat,lon\nnorth,4.1\n"), 0o644))

	_, err := ReadGeocoded(path)
	assert.ErrorContains(t, err, "row 2")
}

func TestReadCSV_NoHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := ReadNormalized(path)
	assert.ErrorContains(t, err, "no header")
}
