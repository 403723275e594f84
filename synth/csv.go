package synth

import (
	"bytes"
	"encoding/csv"

	"github.com/c360/datalink/errors"
)

// renderDelimited writes CSV or TSV. An empty stream renders no bytes, not
// a lone header row.
func renderDelimited(plan *Plan, rows [][]any) (*Output, error) {
	out := &Output{Extension: "csv", ContentType: "text/csv"}
	if plan.Spec.Format == TargetTSV {
		out.Extension = "tsv"
		out.ContentType = "text/tab-separated-values"
	}
	if len(rows) == 0 {
		return out, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = plan.Spec.Delimiter

	if !plan.Spec.OmitHeaders {
		if err := w.Write(plan.columnNames()); err != nil {
			return nil, errors.Wrap(err, "Synthesizer", "renderDelimited", "write header")
		}
	}
	record := make([]string, len(plan.Columns))
	for _, row := range rows {
		for i, v := range row {
			record[i] = renderCell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, errors.Wrap(err, "Synthesizer", "renderDelimited", "write record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "Synthesizer", "renderDelimited", "flush")
	}

	out.Data = buf.Bytes()
	return out, nil
}
