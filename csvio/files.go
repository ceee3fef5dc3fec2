package csvio

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/onyxdex/points/types"
)

// readAll reads a simple comma separated file (no embedded commas in any
// field) and returns header and rows with whitespace trimmed.
func readAll(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading %s", path)
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		if header == nil {
			header = rec
			continue
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		rows = append(rows, rec)
	}
	return header, rows, nil
}

// ReadVolumeFile loads a per-epoch `address,usd[,extra]` volume file.
func ReadVolumeFile(path string) ([]types.VolumeRow, error) {
	_, rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	out := make([]types.VolumeRow, 0, len(rows))
	for _, rec := range rows {
		if len(rec) < 2 {
			return nil, errors.Errorf("short volume row in %s: %v", path, rec)
		}
		usd, err := ParseFloat(rec[1])
		if err != nil {
			return nil, errors.Wrapf(err, "unparsable usd volume for %s in %s", rec[0], path)
		}
		out = append(out, types.VolumeRow{Address: rec[0], USD: usd})
	}
	return out, nil
}

// WriteVolumeFile writes a per-epoch volume file in contract order.
func WriteVolumeFile(path string, rows []types.VolumeRow) error {
	return writeLines(path, []string{"address", "usd"}, len(rows), func(i int) []string {
		return []string{rows[i].Address, FormatFloat(rows[i].USD)}
	})
}

// ReadDepthFile loads a previously written depth file back into typed
// rows, used by the aggregator and by the idempotence check.
func ReadDepthFile(path string) ([]types.DepthRow, error) {
	header, rows, err := readAll(path)
	if err != nil {
		return nil, err
	}
	if len(header) != len(types.DepthHeader) {
		return nil, errors.Errorf("depth file %s: want %d columns, got %d", path, len(types.DepthHeader), len(header))
	}
	out := make([]types.DepthRow, 0, len(rows))
	for _, rec := range rows {
		if len(rec) != len(types.DepthHeader) {
			return nil, errors.Errorf("short depth row in %s: %v", path, rec)
		}
		vals := make([]float64, len(rec)-1)
		for i, raw := range rec[1:] {
			v, err := ParseFloat(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "unparsable %s for %s in %s", types.DepthHeader[i+1], rec[0], path)
			}
			vals[i] = v
		}
		row, err := types.DepthRowFromValues(rec[0], vals)
		if err != nil {
			return nil, errors.Wrap(err, path)
		}
		out = append(out, row)
	}
	return out, nil
}

// WriteDepthFile writes the depth rows in contract column order.
func WriteDepthFile(path string, rows []types.DepthRow) error {
	return writeLines(path, types.DepthHeader, len(rows), func(i int) []string {
		rec := make([]string, 0, len(types.DepthHeader))
		rec = append(rec, rows[i].Address)
		for _, v := range rows[i].Values() {
			rec = append(rec, FormatFloat(v))
		}
		return rec
	})
}

// WriteGrandTotalsFile writes the ranked distribution in contract order.
func WriteGrandTotalsFile(path string, rows []types.GrandTotalRow) error {
	return writeLines(path, types.GrandTotalHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.Address,
			FormatFloat(r.MakerVolume),
			FormatFloat(r.TakerVolume),
			FormatFloat(r.TakerPoints),
			FormatFloat(r.MakerPoints),
			FormatFloat(r.CombinedVolume),
			FormatFloat(r.BoostFromVolume),
			FormatFloat(r.BoostFromNFT),
			FormatFloat(r.PointsGainedByReferring),
			FormatFloat(r.BoostedTotals),
			FormatFloat(r.GrandTotal),
			FormatFloat(r.Share),
			FormatFloat(float64(r.Rank)),
		}
	})
}

// ReadBoostFile loads an optional `address,boost` NFT boost file. A
// missing file is not an error, every address then stays at boost 1.
func ReadBoostFile(path string) (map[string]float64, error) {
	_, rows, err := readAll(path)
	if os.IsNotExist(err) {
		return map[string]float64{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, rec := range rows {
		if len(rec) < 2 {
			return nil, errors.Errorf("short boost row in %s: %v", path, rec)
		}
		boost, err := ParseFloat(rec[1])
		if err != nil {
			return nil, errors.Wrapf(err, "unparsable boost for %s in %s", rec[0], path)
		}
		out[rec[0]] = boost
	}
	return out, nil
}

func writeLines(path string, header []string, n int, row func(i int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(strings.Join(header, ",") + "\n"); err != nil {
		f.Close()
		return err
	}
	for i := 0; i < n; i++ {
		if _, err := w.WriteString(strings.Join(row(i), ",") + "\n"); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
