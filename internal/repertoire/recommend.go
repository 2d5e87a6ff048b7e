package repertoire

import (
	"math"
	"sort"

	"github.com/hailam/repertoire/internal/board"
)

// coherenceThreshold bounds how far a descendant's priority may fall below
// the candidate that pulled it into a line.
const coherenceThreshold = 1.0

// RecommendedSet is the assembled practice set.
type RecommendedSet struct {
	Groups       []PositionGroup `json:"groups"`
	Lines        []Line          `json:"-"`
	TargetSize   int             `json:"target_size"`
	OurMoveCount int             `json:"our_move_count"`
	Candidates   int             `json:"candidates"`
	Global       GlobalStats     `json:"global"`
}

// Recommend scores the forest, keeps the candidates and greedily assembles
// whole lines, most urgent first, until the target size is reached.
func Recommend(forest []*TreeNode, settings Settings) RecommendedSet {
	scores, global := ScoreForest(forest)
	annotate(forest, scores, settings)

	var candidates []*TreeNode
	for _, l := range SelectLines(forest, IsRecommended(), true) {
		for _, n := range l.Moves {
			if n.Practised() && n.Recommendation != nil && n.Recommendation.Candidate {
				candidates = append(candidates, n)
			}
		}
	}

	set := RecommendedSet{
		TargetSize: targetSize(candidates, settings, global),
		Candidates: len(candidates),
		Global:     global,
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := candidates[i].Recommendation, candidates[j].Recommendation
		if wi, wj := ri.Level.Weight(), rj.Level.Weight(); wi != wj {
			return wi > wj
		}
		if ri.Factor != rj.Factor {
			return ri.Factor > rj.Factor
		}
		return candidates[i].ID() < candidates[j].ID()
	})

	used := make(map[int64]bool)
	roots := make(map[choiceKey]bool)
	for _, c := range candidates {
		if set.OurMoveCount >= set.TargetSize {
			break
		}
		if used[c.ID()] {
			continue
		}
		// GroupByPosition keeps one move per SAN at a position, so a second
		// line with the same root choice would be dropped after counting.
		ck := choiceKey{groupKey{board.PositionKey(c.FenBefore()), c.Color()}, c.Move()}
		if ck.position != "" && roots[ck] {
			used[c.ID()] = true
			continue
		}
		roots[ck] = true
		root := take(c, nil, c.Recommendation.Priority(), used)
		line := newLine(root)
		set.OurMoveCount += line.OurMoveCount
		set.Lines = append(set.Lines, line)
	}

	set.Groups = GroupByPosition(set.Lines)
	return set
}

// choiceKey identifies one move choice at a position.
type choiceKey struct {
	groupKey
	san string
}

// take copies n and the descendants that stay coherent with base, marking
// every taken edge as used.
func take(n, parent *TreeNode, base float64, used map[int64]bool) *TreeNode {
	cp := n.copyNode(parent)
	used[n.ID()] = true

	for _, child := range n.Children {
		if used[child.ID()] {
			continue
		}
		if child.Practised() {
			r := child.Recommendation
			if r == nil || !r.Candidate || base-r.Priority() > coherenceThreshold {
				continue
			}
		}
		cc := take(child, cp, base, used)
		if !cc.Ours && len(cc.Children) == 0 && len(child.Children) > 0 {
			// Nothing followed the reply; leave it for another line.
			delete(used, child.ID())
			continue
		}
		cp.Children = append(cp.Children, cc)
	}
	return cp
}

// targetSize interpolates between the size bounds by how urgent the
// candidate pool is overall.
func targetSize(candidates []*TreeNode, settings Settings, g GlobalStats) int {
	iv := float64(settings.interval())
	lo := 5 + 5*iv
	hi := 20 + 10*iv
	if g.HasFrequency && g.MeanFrequency > 10 {
		lo *= 1.5
		hi *= 1.5
	}
	if len(candidates) == 0 {
		return int(math.Round(lo))
	}

	weighted := 0.0
	for _, c := range candidates {
		weighted += c.Recommendation.Level.Weight()
	}
	ratio := weighted / (3 * float64(len(candidates)))
	return int(math.Round(lo + (hi-lo)*ratio))
}
