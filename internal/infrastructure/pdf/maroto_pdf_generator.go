// Package pdf genera el reporte de reconciliación de stock en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título + workspace   │  Fecha + fuente de verdad    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: productos / con diferencia / política / modo       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: SKU | Producto | Contador | Ubicaciones | Estado     │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: leyenda                                             │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/stock"
	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 170, Green: 40, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ inventory.ResyncReportGenerator = (*MarotoPDFGenerator)(nil)

// MarotoPDFGenerator implementa inventory.ResyncReportGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateResyncPDF genera el reporte y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateResyncPDF(_ context.Context, report *inventory.ResyncReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reconciliación de stock", true).
		WithAuthor("stock-ledger", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableRows(report.Results)...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(report))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(report *inventory.ResyncReport) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("RECONCILIACIÓN DE STOCK", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Workspace: "+report.WorkspaceID, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("Fecha: "+report.GeneratedAt.Format("02/01/2006 15:04 MST"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
			text.New("Fuente de verdad: "+string(report.SourceOfTruth), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 8,
			}),
		),
	)
}

func summaryRow(report *inventory.ResyncReport) core.Row {
	var drift int
	for _, r := range report.Results {
		if r.Status != inventory.ResyncStatusOK {
			drift++
		}
	}
	mode := "corrección aplicada"
	if report.DryRun {
		mode = "solo lectura (dry-run)"
	}
	return row.New(10).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Productos: %d   |   Con diferencia: %d   |   Política: %s   |   Modo: %s",
				len(report.Results), drift, report.Policy, mode,
			), props.Text{Size: 8, Top: 3, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("SKU", 2, align.Left),
		h("Producto", 4, align.Left),
		h("Contador", 2, align.Right),
		h("Ubicaciones", 2, align.Right),
		h("Estado", 2, align.Center),
	)
}

// tableRows: una fila por producto; las diferencias se resaltan.
func tableRows(results []inventory.ResyncResult) []core.Row {
	out := make([]core.Row, 0, len(results))
	for _, r := range results {
		color := colorGray
		if r.Status != inventory.ResyncStatusOK {
			color = colorAlert
		}
		out = append(out, row.New(7).Add(
			col.New(2).Add(text.New(nonEmpty(r.SKU, "-"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(4).Add(text.New(nonEmpty(r.Name, r.ProductID), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatQty(r.Counter), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(formatQty(r.LocationsTotal), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(r.Status, props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center, Top: 1, Color: color})),
		))
	}
	return out
}

func footerRow(report *inventory.ResyncReport) core.Row {
	legend := "El contador se reescribe con la suma de las ubicaciones."
	if report.SourceOfTruth == stock.TruthCounter {
		legend = "Las ubicaciones se corrigen hasta sumar el contador, según la política indicada."
	}
	return row.New(8).Add(col.New(12).Add(
		text.New(legend, props.Text{Size: 6.5, Color: colorGray, Top: 2}),
	))
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatQty inserta puntos de miles. Ej: 25000 → "25.000", -1000000 → "-1.000.000".
func formatQty(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	l := len(s)
	if l <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, l+l/3)
	for i, c := range []byte(s) {
		if i > 0 && (l-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
