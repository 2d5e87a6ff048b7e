package repertoire

import (
	"context"
	"fmt"
	"strings"

	"github.com/hailam/repertoire/internal/board"
	"github.com/hailam/repertoire/internal/eco"
	"github.com/hailam/repertoire/internal/explorer"
	"github.com/hailam/repertoire/internal/logger"
)

// RoadmapMode decides where roadmap entries start.
type RoadmapMode int

const (
	// ModeClassification starts an entry where the opening name changes.
	ModeClassification RoadmapMode = iota
	// ModeEveryBranch also starts an entry at every branch.
	ModeEveryBranch
)

// ParseRoadmapMode accepts "classification" (or "") and "every-branch".
func ParseRoadmapMode(s string) (RoadmapMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "classification":
		return ModeClassification, nil
	case "every-branch", "every_branch", "branch":
		return ModeEveryBranch, nil
	default:
		return ModeClassification, fmt.Errorf("invalid roadmap mode: %q", s)
	}
}

// DefaultMinResponseShare is the share of games above which an opponent
// reply is expected to be covered.
const DefaultMinResponseShare = 0.10

// RoadmapOptions tunes BuildRoadmap.
type RoadmapOptions struct {
	Mode RoadmapMode
	// MinResponseShare defaults to DefaultMinResponseShare.
	MinResponseShare float64
	// Responses looks up opponent replies; nil skips missing-response checks.
	Responses explorer.Source
	Log       *logger.Logger
}

// WeakestLine points at the deepest worst-performing move below an entry.
type WeakestLine struct {
	ID       int64    `json:"id"`
	Moves    []string `json:"moves"`
	Accuracy float64  `json:"accuracy"`
	Ply      int      `json:"ply"`
}

// RoadmapEntry is one opening-classified stretch of the repertoire.
type RoadmapEntry struct {
	ID                  int64               `json:"id"`
	Color               board.Color         `json:"color"`
	Move                string              `json:"move"`
	FenBefore           string              `json:"fen_before"`
	FenAfter            string              `json:"fen_after"`
	Moves               []string            `json:"moves"`
	Opening             *eco.Opening        `json:"opening,omitempty"`
	PracticeCount       int                 `json:"practice_count"`
	PracticeFailed      int                 `json:"practice_failed"`
	FailPercentage      float64             `json:"fail_percentage"`
	OurMoveCount        int                 `json:"our_move_count"`
	VariationCount      int                 `json:"variation_count"`
	WeakestLine         *WeakestLine        `json:"weakest_line,omitempty"`
	MissingTopResponses []explorer.Response `json:"missing_top_responses,omitempty"`
	Children            []*RoadmapEntry     `json:"children,omitempty"`

	root *TreeNode
}

// classification is the opening in force at a node. finer is false once no
// deeper classification exists, so descendants inherit without a lookup.
type classification struct {
	opening *eco.Opening
	finer   bool
}

func (c classification) same(o classification) bool {
	switch {
	case c.opening == nil && o.opening == nil:
		return true
	case c.opening == nil || o.opening == nil:
		return false
	default:
		return *c.opening == *o.opening
	}
}

type roadmapBuilder struct {
	ctx    context.Context
	lookup eco.Lookup
	opts   RoadmapOptions
	log    *logger.Logger
	err    error
}

// BuildRoadmap classifies the forest into roadmap entries and rolls practice
// statistics up. Practice sums cover the nodes folded into an entry; move and
// variation counts cover the entry's whole subtree.
func BuildRoadmap(ctx context.Context, forest []*TreeNode, lookup eco.Lookup, opts RoadmapOptions) ([]*RoadmapEntry, error) {
	if opts.MinResponseShare <= 0 {
		opts.MinResponseShare = DefaultMinResponseShare
	}
	b := &roadmapBuilder{
		ctx:    ctx,
		lookup: lookup,
		opts:   opts,
		log:    logger.OrNop(opts.Log).With("component", "roadmap"),
	}

	var entries []*RoadmapEntry
	top := classification{finer: true}
	for _, root := range forest {
		entries = append(entries, b.visit(root, nil, top, nil, len(root.MultipleChoices) > 1)...)
		if b.err != nil {
			return nil, b.err
		}
	}

	for _, e := range entries {
		b.finish(e)
		if b.err != nil {
			return nil, b.err
		}
	}
	return entries, nil
}

func (b *roadmapBuilder) classify(moves []string, parent classification) classification {
	if !parent.finer || b.lookup == nil {
		return classification{opening: parent.opening}
	}
	c := classification{opening: parent.opening, finer: b.lookup.HasFinerClassification(moves)}
	if o, ok := b.lookup.BestPrefixMatch(moves); ok {
		c.opening = &o
	}
	return c
}

// visit folds node into entry, or starts a new entry at node. It returns the
// entries started at node so the caller can attach them.
func (b *roadmapBuilder) visit(node *TreeNode, prefix []string, parent classification, entry *RoadmapEntry, branch bool) []*RoadmapEntry {
	if b.err != nil {
		return nil
	}
	if err := b.ctx.Err(); err != nil {
		b.err = err
		return nil
	}

	moves := append(prefix[:len(prefix):len(prefix)], node.Move())
	cls := b.classify(moves, parent)

	cur := entry
	started := entry == nil || !cls.same(parent) || (b.opts.Mode == ModeEveryBranch && branch)
	if started {
		cur = &RoadmapEntry{
			ID:        node.ID(),
			Color:     node.Color(),
			Move:      node.Move(),
			FenBefore: node.FenBefore(),
			FenAfter:  node.FenAfter(),
			Moves:     moves,
			Opening:   cls.opening,
			root:      node,
		}
	}

	if node.Edge != nil {
		cur.PracticeCount += node.Edge.PracticeCount
		cur.PracticeFailed += node.Edge.PracticeFailed
	}

	for _, child := range node.Children {
		cur.Children = append(cur.Children, b.visit(child, moves, cls, cur, len(node.Children) > 1)...)
	}

	if started {
		return []*RoadmapEntry{cur}
	}
	return nil
}

// finish computes the derived fields of e and its child entries.
func (b *roadmapBuilder) finish(e *RoadmapEntry) {
	if e.PracticeCount > 0 {
		e.FailPercentage = float64(e.PracticeFailed) / float64(e.PracticeCount) * 100
	}

	e.root.Walk(func(n *TreeNode) bool {
		if n.Practised() {
			e.OurMoveCount++
		}
		if len(n.Children) > 1 {
			e.VariationCount++
		}
		return true
	})

	if len(e.root.Children) > 0 {
		e.WeakestLine = weakestLine(e.root)
		b.missingResponses(e)
	}

	for _, c := range e.Children {
		if b.err != nil {
			return
		}
		b.finish(c)
	}
}

// weakestLine returns the practised descendant with the lowest success rate,
// preferring the deepest on ties.
func weakestLine(root *TreeNode) *WeakestLine {
	var worst *TreeNode
	var worstRate float64
	for _, c := range root.Children {
		c.Walk(func(n *TreeNode) bool {
			if !n.Practised() || n.Edge.PracticeCount == 0 {
				return true
			}
			rate := successRate(n.Edge.PracticeCount, n.Edge.PracticeFailed)
			if worst == nil || rate < worstRate || (rate == worstRate && n.Ply > worst.Ply) {
				worst, worstRate = n, rate
			}
			return true
		})
	}
	if worst == nil {
		return nil
	}
	return &WeakestLine{
		ID:       worst.ID(),
		Moves:    append(worst.PriorMoves(), worst.Move()),
		Accuracy: worstRate,
		Ply:      worst.Ply,
	}
}

// missingResponses records popular opponent replies to the entry's move that
// the repertoire does not answer.
func (b *roadmapBuilder) missingResponses(e *RoadmapEntry) {
	if b.opts.Responses == nil || !e.root.Ours {
		return
	}
	responses, err := b.opts.Responses.TopResponses(b.ctx, e.FenAfter)
	if err != nil {
		if ctxErr := b.ctx.Err(); ctxErr != nil {
			b.err = ctxErr
			return
		}
		b.log.Warn("top responses lookup failed", "edge_id", e.ID, "error", err)
		return
	}

	known := make(map[string]bool, len(e.root.Children))
	for _, c := range e.root.Children {
		known[trimSAN(c.Move())] = true
	}
	for _, r := range responses {
		if r.Share >= b.opts.MinResponseShare && !known[trimSAN(r.Move)] {
			e.MissingTopResponses = append(e.MissingTopResponses, r)
		}
	}
}

func trimSAN(san string) string {
	return strings.TrimRight(san, "+#!?")
}
