package heatmap

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deliveries.shp")
	pts := []Point{
		{Lat: 52.37, Lon: 4.89, TrackingNumber: "3S1", Slug: "postnl-3s"},
		{Lat: 51.92, Lon: 4.48, TrackingNumber: "3S2", Slug: "dhl"},
	}

	require.NoError(t, WriteShapefile(path, pts))

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	var got []Point
	for reader.Next() {
		n, shape := reader.Shape()
		p, ok := shape.(*shp.Point)
		require.True(t, ok)
		got = append(got, Point{
			Lat:            p.Y,
			Lon:            p.X,
			TrackingNumber: strings.TrimSpace(reader.ReadAttribute(n, 0)),
			Slug:           strings.TrimSpace(reader.ReadAttribute(n, 1)),
		})
	}

	require.Len(t, got, 2)
	assert.InDelta(t, 52.37, got[0].Lat, 1e-9)
	assert.InDelta(t, 4.89, got[0].Lon, 1e-9)
	assert.Equal(t, "3S1", got[0].TrackingNumber)
	assert.Equal(t, "dhl", got[1].Slug)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab", truncate("abc", 2))
}
