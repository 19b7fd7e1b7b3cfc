// Package evaluate scores the current (or a candidate) scoring
// configuration against a set of human-labeled address pairs, and
// searches a small grid of threshold/weight variants for the
// highest-F1 configuration.
package evaluate

import (
	"context"
	"fmt"

	"github.com/tanxiaobing-hl/address-audit/internal/model"
	"github.com/tanxiaobing-hl/address-audit/internal/scoring"
)

// Store is the subset of internal/repository.Repository this package
// depends on.
type Store interface {
	ListPairLabels(ctx context.Context) ([]model.PairLabel, error)
	GetRecord(ctx context.Context, rid string) (*model.AddressRecord, error)
	GetParsed(ctx context.Context, rid string) (*model.ParsedAddress, error)
}

// Metrics is a confusion-matrix summary against a labeled pair set.
type Metrics struct {
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	TN        int     `json:"tn"`
	FN        int     `json:"fn"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Current scores every labeled pair with the given weights/thresholds
// and returns the resulting confusion matrix and precision/recall/F1.
func Current(ctx context.Context, store Store, weights, thresholds map[string]float64) (*Metrics, error) {
	labels, err := store.ListPairLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pair labels: %w", err)
	}
	return scoreLabels(ctx, store, labels, weights, thresholds)
}

func computeMetrics(tp, fp, tn, fn int) *Metrics {
	var prec, rec, f1 float64
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return &Metrics{TP: tp, FP: fp, TN: tn, FN: fn, Precision: prec, Recall: rec, F1: f1}
}

// weightScale is a named set of per-feature multipliers tried during
// a grid search.
type weightScale map[string]float64

var sameGrid = []float64{0.70, 0.74, 0.78, 0.82}
var unsureGrid = []float64{0.50, 0.55, 0.60}

var weightScales = []weightScale{
	{"geo": 1.0, "building": 1.0, "aoi": 1.0},
	{"geo": 1.2, "building": 1.0, "aoi": 1.0},
	{"geo": 1.0, "building": 1.2, "aoi": 1.0},
	{"geo": 1.0, "building": 1.0, "aoi": 1.2},
	{"geo": 1.2, "building": 1.1, "aoi": 1.1},
}

// GridResult is the best-scoring configuration found by GridSearch.
type GridResult struct {
	Metrics    *Metrics           `json:"metrics"`
	Thresholds map[string]float64 `json:"thresholds"`
	Weights    map[string]float64 `json:"weights"`
}

// GridSearch tries every combination of same/unsure thresholds (with
// same strictly greater than unsure) and a small set of feature
// weight scalings, and returns whichever combination achieves the
// highest F1 against the labeled pair set.
func GridSearch(ctx context.Context, store Store, baseWeights map[string]float64) (*GridResult, error) {
	labels, err := store.ListPairLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pair labels: %w", err)
	}

	var best *GridResult
	for _, thSame := range sameGrid {
		for _, thUnsure := range unsureGrid {
			if thUnsure >= thSame {
				continue
			}
			for _, scale := range weightScales {
				w := scaledWeights(baseWeights, scale)
				thresholds := map[string]float64{"same": thSame, "unsure": thUnsure}

				metrics, err := scoreLabels(ctx, store, labels, w, thresholds)
				if err != nil {
					return nil, err
				}
				if best == nil || metrics.F1 > best.Metrics.F1 {
					best = &GridResult{Metrics: metrics, Thresholds: thresholds, Weights: w}
				}
			}
		}
	}
	return best, nil
}

func scaledWeights(base map[string]float64, scale weightScale) map[string]float64 {
	out := make(map[string]float64, len(base))
	for k, v := range base {
		out[k] = v
	}
	for k, s := range scale {
		if v, ok := out[k]; ok {
			out[k] = v * s
		}
	}
	return out
}

// scoreLabels is the shared scoring loop behind Current and
// GridSearch, taking a pre-fetched label set so GridSearch doesn't
// re-list pair labels on every grid point.
func scoreLabels(ctx context.Context, store Store, labels []model.PairLabel, weights, thresholds map[string]float64) (*Metrics, error) {
	scorer := scoring.New(weights, thresholds)

	var tp, fp, tn, fn int
	for _, lbl := range labels {
		r1, err := store.GetRecord(ctx, lbl.RID1)
		if err != nil {
			return nil, fmt.Errorf("get record %s: %w", lbl.RID1, err)
		}
		r2, err := store.GetRecord(ctx, lbl.RID2)
		if err != nil {
			return nil, fmt.Errorf("get record %s: %w", lbl.RID2, err)
		}
		if r1 == nil || r2 == nil {
			continue
		}
		p1, err := store.GetParsed(ctx, lbl.RID1)
		if err != nil {
			return nil, fmt.Errorf("get parsed %s: %w", lbl.RID1, err)
		}
		p2, err := store.GetParsed(ctx, lbl.RID2)
		if err != nil {
			return nil, fmt.Errorf("get parsed %s: %w", lbl.RID2, err)
		}
		if p1 == nil || p2 == nil {
			continue
		}

		ms := scorer.ScorePair(r1, p1, r2, p2, 0.0)
		pred := 0
		if ms.Decision == model.DecisionSame {
			pred = 1
		}

		switch {
		case pred == 1 && lbl.Label == 1:
			tp++
		case pred == 1 && lbl.Label == 0:
			fp++
		case pred == 0 && lbl.Label == 0:
			tn++
		case pred == 0 && lbl.Label == 1:
			fn++
		}
	}

	return computeMetrics(tp, fp, tn, fn), nil
}
