package eval

import "sync"

// LevelAll aggregates every example regardless of hardness.
const LevelAll = "all"

// ScoreCard accumulates results across a benchmark run, bucketed by gold
// query hardness. It is safe for concurrent Add calls.
type ScoreCard struct {
	mu     sync.Mutex
	levels map[string]*levelStats
}

type levelStats struct {
	count   int
	exact   int
	partial map[string]*partialStats
}

type partialStats struct {
	accSum, recSum, f1Sum float64
	accN, recN, f1N       int
}

// NewScoreCard creates an empty ScoreCard.
func NewScoreCard() *ScoreCard {
	return &ScoreCard{levels: make(map[string]*levelStats)}
}

// Add records one evaluation result under its hardness level and under the
// aggregate "all" level.
func (sc *ScoreCard) Add(res *Result) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.add(res.Hardness, res)
	sc.add(LevelAll, res)
}

func (sc *ScoreCard) add(level string, res *Result) {
	stats, ok := sc.levels[level]
	if !ok {
		stats = &levelStats{partial: make(map[string]*partialStats)}
		sc.levels[level] = stats
	}

	stats.count++
	if res.Exact {
		stats.exact++
	}
	for cat, score := range res.Partial {
		ps, ok := stats.partial[cat]
		if !ok {
			ps = &partialStats{}
			stats.partial[cat] = ps
		}
		if score.PredTotal > 0 {
			ps.accSum += score.Acc
			ps.accN++
		}
		if score.GoldTotal > 0 {
			ps.recSum += score.Rec
			ps.recN++
		}
		if score.PredTotal > 0 || score.GoldTotal > 0 {
			ps.f1Sum += score.F1
			ps.f1N++
		}
	}
}

// Count returns the number of examples recorded at a level.
func (sc *ScoreCard) Count(level string) int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if stats, ok := sc.levels[level]; ok {
		return stats.count
	}
	return 0
}

// ExactAccuracy returns the exact-match rate at a level.
func (sc *ScoreCard) ExactAccuracy(level string) float64 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	stats, ok := sc.levels[level]
	if !ok || stats.count == 0 {
		return 0
	}
	return float64(stats.exact) / float64(stats.count)
}

// Partial returns the averaged accuracy, recall, and f1 for a category at a
// level. Accuracy averages over examples where the prediction used the
// construct, recall over examples where gold used it, and f1 over examples
// where either did.
func (sc *ScoreCard) Partial(level, category string) (acc, rec, f1 float64) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	stats, ok := sc.levels[level]
	if !ok {
		return 0, 0, 0
	}
	ps, ok := stats.partial[category]
	if !ok {
		return 0, 0, 0
	}
	if ps.accN > 0 {
		acc = ps.accSum / float64(ps.accN)
	}
	if ps.recN > 0 {
		rec = ps.recSum / float64(ps.recN)
	}
	if ps.f1N > 0 {
		f1 = ps.f1Sum / float64(ps.f1N)
	}
	return acc, rec, f1
}
