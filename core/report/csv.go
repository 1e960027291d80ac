package report

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ada/core/reconcile"
)

const dateLayout = "2006-01-02"

var NowFunc = time.Now // mockable

var csvHeader = []string{
	"Student Name", "Roll Number", "Class", "Total Due", "Fee Structure", "Installment", "Amount", "Due Date", "Days Overdue",
}

// CSVFilename is the download name of the defaulters report generated at `t`.
func CSVFilename(t time.Time) string {
	return "defaulters-report-" + t.Format(dateLayout) + ".csv"
}

// WriteDefaultersCSV writes one row per (defaulter, overdue installment), in report order.
// Rows are separated by "\n" with no trailing newline; fields are only quoted when they must be.
func WriteDefaultersCSV(w io.Writer, r reconcile.Report) error {
	var buff bytes.Buffer
	cw := csv.NewWriter(&buff)

	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing CSV header")
	}
	for _, d := range r.Defaulters {
		for _, inst := range d.OverdueInstallments {
			row := []string{
				d.Name,
				d.RollNumber,
				d.ClassName,
				d.TotalDue.String(),
				inst.FeeStructureTitle,
				inst.InstallmentLabel,
				inst.Amount.String(),
				inst.DueDate.UTC().Format(dateLayout),
				strconv.Itoa(inst.DaysOverdue),
			}
			if err := cw.Write(row); err != nil {
				return errors.Wrap(err, "writing CSV row")
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "flushing CSV")
	}

	_, err := w.Write(bytes.TrimSuffix(buff.Bytes(), []byte("\n")))
	return errors.Wrap(err, "writing CSV")
}
