package train

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Logs holds metric values of one epoch, keyed by metric name. Validation
// metrics are prefixed with `val_`.
type Logs map[string]float64

// Keys returns metric names sorted.
func (l Logs) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// History records epoch logs in training order.
type History struct {
	Epochs []int
	Logs   []Logs
}

// Append adds logs of an epoch (1-based).
func (h *History) Append(epoch int, logs Logs) {
	h.Epochs = append(h.Epochs, epoch)
	h.Logs = append(h.Logs, logs)
}

// Series returns (epoch, value) points of a metric over the epochs that
// have it.
func (h *History) Series(key string) plotter.XYs {
	var pts plotter.XYs
	for i, l := range h.Logs {
		v, ok := l[key]
		if !ok {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(h.Epochs[i]), Y: v})
	}

	return pts
}

// Plot renders given metrics over epochs into a PNG file.
func (h *History) Plot(filename string, keys ...string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = "Training history"
	p.X.Label.Text = "epoch"

	var lines []interface{}
	for _, k := range keys {
		pts := h.Series(k)
		if len(pts) == 0 {
			continue
		}
		lines = append(lines, k, pts)
	}
	if len(lines) == 0 {
		return errors.New("no metric to plot")
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return err
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, filename)
}
