// Package report renders an autofill result as a printable performance sheet summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/CoePress/coesco-web/internal/autofill"
	"github.com/phpdave11/gofpdf"
)

type Input struct {
	Project string            `json:"project"`
	Author  string            `json:"author"`
	Title   string            `json:"title"`
	Notes   string            `json:"notes"`
	Result  autofill.Response `json:"result"`
}

// summary lists the shared leaves printed at the top of every report.
var summary = []struct{ label, path string }{
	{"Material", autofill.PathMaterialType},
	{"Thickness (in)", autofill.PathThickness},
	{"Coil width (in)", autofill.PathWidth},
	{"Max yield (psi)", autofill.PathYield},
	{"Coil weight (lb)", autofill.PathCoilWeight},
	{"Coil OD (in)", autofill.PathCoilOD},
	{"Line type", autofill.PathLineType},
	{"Line speed (fpm)", "feed.average.fpm"},
	{"Reel", autofill.PathReelModel},
	{"Feed table", "feed.table"},
}

// Render writes the PDF.
func Render(w io.Writer, in Input) error {
	if in.Title == "" {
		in.Title = "Performance Sheet"
	}
	doc := in.Result.AutoFillValues
	date := in.Result.Metadata.Timestamp
	if date.IsZero() {
		date = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle(in.Title, true)
	pdf.SetAuthor(in.Author, true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, in.Title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 5, fmt.Sprintf("Project: %s", in.Project))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("Author: %s", in.Author))
	pdf.Ln(5)
	pdf.Cell(0, 5, fmt.Sprintf("Date: %s", date.Format("2006-01-02")))
	pdf.Ln(5)
	if id := in.Result.Metadata.RequestID; id != "" {
		pdf.Cell(0, 5, fmt.Sprintf("Request: %s", id))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	heading(pdf, "Line")
	for _, s := range summary {
		if v, ok := doc.String(s.path); ok && v != "" {
			row(pdf, s.label, v, false)
		}
	}
	pdf.Ln(4)

	for _, section := range in.Result.GeneratedSections {
		ns, ok := autofill.Namespace(section)
		if !ok {
			continue
		}
		status, _ := doc.String(ns + ".status")
		heading(pdf, fmt.Sprintf("%s: %s", section, status))
		if it, ok := doc.Float(ns + ".search.iterations"); ok {
			row(pdf, "Search iterations", fmt.Sprintf("%g (satisfied: %t)", it, doc.Bool(ns+".search.satisfied")), false)
		}
		checks, _ := doc.Get(ns + ".checks")
		if m, ok := checks.(map[string]any); ok {
			names := make([]string, 0, len(m))
			for k := range m {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				v := fmt.Sprint(m[k])
				row(pdf, k, v, v == "FAIL" || v == "NOT OK")
			}
		}
		pdf.Ln(4)
	}

	if len(in.Result.SectionErrors) > 0 {
		heading(pdf, "Errors")
		names := make([]string, 0, len(in.Result.SectionErrors))
		for k := range in.Result.SectionErrors {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			row(pdf, k, in.Result.SectionErrors[k], true)
		}
		pdf.Ln(4)
	}

	if in.Notes != "" {
		heading(pdf, "Notes")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, in.Notes, "", "L", false)
	}

	return pdf.Output(w)
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 7, text, "", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func row(pdf *gofpdf.Fpdf, label, value string, alert bool) {
	pdf.CellFormat(70, 5, label, "B", 0, "L", false, 0, "")
	if alert {
		pdf.SetTextColor(180, 0, 0)
	}
	pdf.CellFormat(0, 5, value, "B", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}
