// Package export reads and writes the pipeline's file artifacts: the raw
// tracking dump, the normalized and geocoded tables, and the run manifest.
package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/delivery-heatmap/internal/model"
)

// rawDump mirrors the tracking API's listing envelope so a dump can be
// inspected with the same tooling as a live response.
type rawDump struct {
	Data struct {
		Trackings []model.TrackingRecord `json:"trackings"`
	} `json:"data"`
}

// WriteRaw writes recs as a pretty-printed {"data":{"trackings":[...]}} document.
func WriteRaw(path string, recs []model.TrackingRecord) error {
	var dump rawDump
	dump.Data.Trackings = recs
	if dump.Data.Trackings == nil {
		dump.Data.Trackings = []model.TrackingRecord{}
	}

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal raw dump")
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "export: write raw dump %s", path)
	}
	return nil
}

// ReadRaw loads a raw dump. Besides the envelope written by WriteRaw it
// accepts {"trackings":[...]} and a bare array.
func ReadRaw(path string) ([]model.TrackingRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read raw dump %s", path)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, eris.Errorf("export: raw dump %s is empty", path)
	}

	if data[0] == '[' {
		var recs []model.TrackingRecord
		if err := json.Unmarshal(data, &recs); err != nil {
			return nil, eris.Wrapf(err, "export: decode raw array %s", path)
		}
		return recs, nil
	}

	var doc struct {
		Data *struct {
			Trackings []model.TrackingRecord `json:"trackings"`
		} `json:"data"`
		Trackings []model.TrackingRecord `json:"trackings"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "export: decode raw dump %s", path)
	}
	if doc.Data != nil {
		return doc.Data.Trackings, nil
	}
	return doc.Trackings, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "export: create directory %s", dir)
	}
	return nil
}
