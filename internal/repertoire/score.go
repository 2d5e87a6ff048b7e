package repertoire

import "math"

// Settings are the user preferences that shape the recommended set.
type Settings struct {
	// RecommendInterval runs from 0 (few, urgent moves) to 3 (broad review).
	RecommendInterval int `json:"recommend_interval" yaml:"recommend_interval"`
}

func (s Settings) interval() int {
	return min(max(s.RecommendInterval, 0), 3)
}

// CandidacyThreshold is the factor at or below which a low-tier move is not
// recommended at all.
func (s Settings) CandidacyThreshold() float64 {
	return 0.2 * float64(4-s.interval())
}

// IsCandidate reports whether a scored move may be recommended.
func (s Settings) IsCandidate(r Recommendation) bool {
	return r.Level != LevelLow || r.Factor > s.CandidacyThreshold()
}

// GlobalStats summarises practice across the whole repertoire.
type GlobalStats struct {
	SuccessRate   float64 `json:"success_rate"`
	MeanFrequency float64 `json:"mean_frequency"`
	HasFrequency  bool    `json:"has_frequency"`
	Adjustment    float64 `json:"adjustment"`
}

// successRate is the share of successful attempts, 0 when never practised.
func successRate(count, failed int) float64 {
	if count <= 0 {
		return 0
	}
	return float64(count-failed) / float64(count)
}

func meanDelta(deltas []int) (float64, bool) {
	if len(deltas) == 0 {
		return 0, false
	}
	sum := 0
	for _, d := range deltas {
		sum += d
	}
	return float64(sum) / float64(len(deltas)), true
}

// computeGlobal pools the counters of every practised move.
func computeGlobal(edges []*MoveEdge) GlobalStats {
	var count, failed int
	var deltas []int
	for _, e := range edges {
		count += e.PracticeCount
		failed += e.PracticeFailed
		deltas = append(deltas, e.RecentIntervalDeltas...)
	}

	g := GlobalStats{SuccessRate: successRate(count, failed), Adjustment: 1}
	g.MeanFrequency, g.HasFrequency = meanDelta(deltas)

	switch {
	case g.SuccessRate > 0.85:
		g.Adjustment *= 0.9
	case g.SuccessRate < 0.6:
		g.Adjustment *= 1.2
	}
	if g.HasFrequency && g.MeanFrequency > 10 {
		g.Adjustment *= 1.2
	}
	return g
}

// ScoreMove rates how urgently one move needs practice.
func ScoreMove(e *MoveEdge, g GlobalStats) Recommendation {
	rate := successRate(e.PracticeCount, e.PracticeFailed)
	score := 0.0
	switch {
	case rate < 0.5:
		score += 0.6
	case rate < 0.8:
		score += 0.3
	}
	if e.PracticeInARow < 3 {
		score += 0.3
	}
	if freq, ok := meanDelta(e.RecentIntervalDeltas); ok && freq > 7 {
		score += 0.4
	}
	score *= g.Adjustment

	r := Recommendation{Score: score, Factor: math.Min(1, score), Level: LevelLow}
	switch {
	case score > 1:
		r.Level = LevelHigh
	case score > 0.4:
		r.Level = LevelMedium
	}
	return r
}

// ScoreForest scores every practised our-move in the forest once. The scores
// are returned keyed by edge id together with the repertoire-wide stats.
func ScoreForest(forest []*TreeNode) (map[int64]Recommendation, GlobalStats) {
	seen := make(map[int64]bool)
	var edges []*MoveEdge
	for _, root := range forest {
		root.Walk(func(n *TreeNode) bool {
			if n.Practised() && !seen[n.ID()] {
				seen[n.ID()] = true
				edges = append(edges, n.Edge)
			}
			return true
		})
	}

	g := computeGlobal(edges)
	scores := make(map[int64]Recommendation, len(edges))
	for _, e := range edges {
		scores[e.ID] = ScoreMove(e, g)
	}
	return scores, g
}

// annotate attaches scores to the nodes of a per-request forest and marks
// candidacy under settings.
func annotate(forest []*TreeNode, scores map[int64]Recommendation, settings Settings) {
	for _, root := range forest {
		root.Walk(func(n *TreeNode) bool {
			if r, ok := scores[n.ID()]; ok && n.Practised() {
				r.Candidate = settings.IsCandidate(r)
				n.Recommendation = &r
			}
			return true
		})
	}
}
