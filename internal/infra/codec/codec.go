package codec

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"roastery/internal/domain/entity"

	"github.com/pkg/errors"
)

// SkippedRow records one malformed row dropped during a decode.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// DecodeReport accumulates per-row outcomes of a decode. A decode only
// fails as a whole when the artifact itself is unreadable; malformed rows
// are skipped and reported here, because a single bad operator-edited row
// must not black out the entire catalog.
type DecodeReport struct {
	Decoded int          `json:"decoded"`
	Skipped []SkippedRow `json:"skipped,omitempty"`
}

// Encode serializes products into the persisted tabular artifact: canonical
// header first, one row per product, deterministic column order. An empty
// list produces the header-only tombstone that distinguishes "no products"
// from "not yet initialized".
func Encode(products []entity.Product) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(Columns); err != nil {
		return nil, errors.WithStack(err)
	}

	for _, p := range products {
		if err := writer.Write(encodeRow(p)); err != nil {
			return nil, errors.Wrapf(err, "encode product %s", p.SKU)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, errors.WithStack(err)
	}

	return buf.Bytes(), nil
}

// Decode parses a persisted artifact back into products. Header aliases are
// resolved, so artifacts written by older exporters still decode. A
// header-only or genuinely empty artifact yields an empty list, not an
// error.
func Decode(data []byte) ([]entity.Product, DecodeReport, error) {
	var report DecodeReport

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // operator-authored rows may be ragged

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []entity.Product{}, report, nil
	}
	if err != nil {
		return nil, report, errors.Wrap(err, "read catalog header")
	}

	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = ResolveColumn(name)
	}

	products := []entity.Product{}
	line := 1
	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		line++
		if readErr != nil {
			report.Skipped = append(report.Skipped, SkippedRow{Line: line, Reason: readErr.Error()})

			continue
		}

		raw := make(map[string]string, len(columns))
		for i, value := range record {
			if i >= len(columns) {
				break
			}
			raw[columns[i]] = value
		}

		product, normErr := NormalizeRow(raw)
		if normErr != nil {
			report.Skipped = append(report.Skipped, SkippedRow{Line: line, Reason: normErr.Error()})

			continue
		}

		products = append(products, product)
		report.Decoded++
	}

	return products, report, nil
}

func encodeRow(p entity.Product) []string {
	return []string{
		p.SKU,
		p.Name,
		p.Category,
		string(p.Status),
		formatMoney(p.Price),
		formatMoney(p.OriginalPrice),
		p.Format,
		p.Weight,
		p.RoastLevel,
		JoinList(p.Origin),
		JoinList(p.TastingNotes),
		strconv.FormatBool(p.Featured),
		strconv.FormatBool(p.InStock),
		formatOptionalMoney(p.ShippingFirst),
		formatOptionalMoney(p.ShippingAdditional),
		encodeImages(p.Images),
		encodeTimestamp(p.CreatedAt),
		encodeTimestamp(p.UpdatedAt),
	}
}

func formatMoney(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatOptionalMoney(value float64) string {
	if value == 0 {
		return ""
	}

	return formatMoney(value)
}
