// Package report renders evaluation results for people: a per-class chart
// saved next to the model and a plain-text summary for the terminal.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"effpred/pkg/model"
	"effpred/pkg/schema"
)

var ErrNoClasses = errors.New("report has no per-class metrics")

var seriesColors = []color.RGBA{
	{R: 66, G: 133, B: 244, A: 255},
	{R: 219, G: 68, B: 55, A: 255},
	{R: 15, G: 157, B: 88, A: 255},
}

// SaveChart draws grouped precision, recall and F1 bars per class with the
// overall accuracy as a dashed line, and writes it to path. The image format
// follows the file extension.
func SaveChart(rep *model.Report, labels schema.LabelMap, path string) error {
	if len(rep.PerClass) == 0 {
		return ErrNoClasses
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Held-out evaluation (accuracy %.3f)", rep.Accuracy)
	p.Y.Label.Text = "Score"
	p.Y.Min, p.Y.Max = 0, 1.05

	names := make([]string, len(rep.PerClass))
	series := map[string]plotter.Values{}
	order := []string{"Precision", "Recall", "F1"}
	for i, m := range rep.PerClass {
		names[i] = labels.Name(m.Class)
		series["Precision"] = append(series["Precision"], m.Precision)
		series["Recall"] = append(series["Recall"], m.Recall)
		series["F1"] = append(series["F1"], m.F1)
	}

	w := vg.Points(14)
	for i, name := range order {
		bars, err := plotter.NewBarChart(series[name], w)
		if err != nil {
			return fmt.Errorf("chart %s: %w", name, err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = seriesColors[i%len(seriesColors)]
		bars.Offset = vg.Length(i-1) * w
		p.Add(bars)
		p.Legend.Add(name, bars)
	}

	acc, err := plotter.NewLine(plotter.XYs{
		{X: -0.5, Y: rep.Accuracy},
		{X: float64(len(names)) - 0.5, Y: rep.Accuracy},
	})
	if err != nil {
		return fmt.Errorf("chart accuracy: %w", err)
	}
	acc.LineStyle = draw.LineStyle{
		Color:  color.RGBA{A: 255},
		Width:  vg.Points(1),
		Dashes: []vg.Length{vg.Points(4), vg.Points(2)},
	}
	p.Add(acc)
	p.Legend.Add("Accuracy", acc)

	p.Legend.Top = true
	p.NominalX(names...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart directory: %w", err)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart: %w", err)
	}
	return nil
}

// WriteSummary prints the headline metrics, the per-class table and the
// confusion matrix.
func WriteSummary(out io.Writer, rep *model.Report, labels schema.LabelMap) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "train rows\t%d\n", rep.TrainRows)
	fmt.Fprintf(tw, "test rows\t%d\n", rep.TestRows)
	fmt.Fprintf(tw, "accuracy\t%.4f\n", rep.Accuracy)
	fmt.Fprintf(tw, "precision (weighted)\t%.4f\n", rep.Precision)
	fmt.Fprintf(tw, "recall (weighted)\t%.4f\n", rep.Recall)
	fmt.Fprintf(tw, "f1 (weighted)\t%.4f\n\n", rep.F1)

	fmt.Fprintln(tw, "class\tprecision\trecall\tf1\tsupport")
	for _, m := range rep.PerClass {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\t%d\n", labels.Name(m.Class), m.Precision, m.Recall, m.F1, m.Support)
	}

	fmt.Fprint(tw, "\ntrue \\ predicted")
	for c := range rep.Confusion {
		fmt.Fprintf(tw, "\t%s", labels.Name(c))
	}
	fmt.Fprintln(tw)
	for c, row := range rep.Confusion {
		fmt.Fprint(tw, labels.Name(c))
		for _, n := range row {
			fmt.Fprintf(tw, "\t%d", n)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
