package classifier

import (
	"sort"

	"github.com/theirongolddev/spendcast/internal/model"
)

// Report holds held-out evaluation metrics. It is informational only;
// training never fails on model quality.
type Report struct {
	Classes        []model.ClassMetrics
	Accuracy       float64
	MacroPrecision float64
	MacroRecall    float64
	MacroF1        float64
	WeightedF1     float64
	Support        int
}

// Evaluate compares true and predicted labels. Classes are the union of
// both label sets, sorted. Undefined ratios (no predictions or no support
// for a class) are reported as zero.
func Evaluate(truth, pred []string) Report {
	labels := make(map[string]struct{})
	for _, l := range truth {
		labels[l] = struct{}{}
	}
	for _, l := range pred {
		labels[l] = struct{}{}
	}
	names := make([]string, 0, len(labels))
	for l := range labels {
		names = append(names, l)
	}
	sort.Strings(names)

	tp := make(map[string]int)
	predicted := make(map[string]int)
	support := make(map[string]int)
	correct := 0
	for i := range truth {
		support[truth[i]]++
		predicted[pred[i]]++
		if truth[i] == pred[i] {
			tp[truth[i]]++
			correct++
		}
	}

	r := Report{Support: len(truth)}
	if len(truth) == 0 {
		return r
	}
	r.Accuracy = float64(correct) / float64(len(truth))

	for _, name := range names {
		cm := model.ClassMetrics{Label: name, Support: support[name]}
		if predicted[name] > 0 {
			cm.Precision = float64(tp[name]) / float64(predicted[name])
		}
		if support[name] > 0 {
			cm.Recall = float64(tp[name]) / float64(support[name])
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		r.Classes = append(r.Classes, cm)

		r.MacroPrecision += cm.Precision
		r.MacroRecall += cm.Recall
		r.MacroF1 += cm.F1
		r.WeightedF1 += cm.F1 * float64(cm.Support)
	}

	k := float64(len(names))
	r.MacroPrecision /= k
	r.MacroRecall /= k
	r.MacroF1 /= k
	r.WeightedF1 /= float64(len(truth))
	return r
}
