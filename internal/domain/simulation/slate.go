package simulation

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/seasonsim/internal/domain/model"
)

// slate is the read-only input shared by every trial.
type slate struct {
	seed    uint64
	slots   int
	teams   []string // ascending code; index is the team id
	meta    []model.TeamMeta
	home    []int
	away    []int
	prob    []float64
	conf    [][]int // team ids per conference, ascending code
	div     [][]int // team ids per division, ascending code
	maxWins int
	clamped int
}

// trialScratch is per-worker working memory reused across trials.
type trialScratch struct {
	wins      []int
	qualified []bool
	leader    []bool
	order     []int
}

func newScratch(n int) *trialScratch {
	return &trialScratch{
		wins:      make([]int, n),
		qualified: make([]bool, n),
		leader:    make([]bool, n),
		order:     make([]int, 0, n),
	}
}

func clamp(p, floor, ceil float64) (float64, bool) {
	switch {
	case p < floor:
		return floor, true
	case p > ceil:
		return ceil, true
	}
	return p, false
}

// groupBy returns team ids grouped by key, groups ordered by key and ids
// ascending within a group.
func groupBy(n int, key func(int) string) [][]int {
	members := map[string][]int{}
	for i := 0; i < n; i++ {
		k := key(i)
		members[k] = append(members[k], i)
	}
	keys := make([]string, 0, len(members))
	for k := range members {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	groups := make([][]int, len(keys))
	for i, k := range keys {
		groups[i] = members[k]
	}
	return groups
}

// trial plays one season with its own random stream. The stream depends
// only on (seed, trial), so the result does not depend on which worker
// runs it or in what order.
func (s *slate) trial(t int, sc *trialScratch) {
	src := rand.NewPCG(s.seed, uint64(t))
	for i := range sc.wins {
		sc.wins[i] = 0
		sc.qualified[i] = false
		sc.leader[i] = false
	}
	for g := range s.prob {
		draw := distuv.Bernoulli{P: s.prob[g], Src: src}
		if draw.Rand() == 1 {
			sc.wins[s.home[g]]++
		} else {
			sc.wins[s.away[g]]++
		}
	}

	for _, members := range s.conf {
		sc.order = rankByWins(sc.order[:0], members, sc.wins)
		for _, id := range sc.order[:min(s.slots, len(sc.order))] {
			sc.qualified[id] = true
		}
	}
	for _, members := range s.div {
		best := members[0]
		for _, id := range members[1:] {
			if sc.wins[id] > sc.wins[best] {
				best = id
			}
		}
		sc.leader[best] = true
	}
}

// rankByWins orders members by descending wins. Members arrive in
// ascending team code and the sort is stable, so equal win counts keep
// code order. This is not an official tiebreaker.
func rankByWins(dst, members, wins []int) []int {
	dst = append(dst, members...)
	sort.SliceStable(dst, func(i, j int) bool { return wins[dst[i]] > wins[dst[j]] })
	return dst
}

// tally accumulates integer counts; merging is addition, so shard order
// never changes the result.
type tally struct {
	trials    int
	hist      [][]float64 // hist[team][w] = trials with w wins
	playoffs  []int
	divisions []int
}

func newTally(teams, maxWins int) *tally {
	t := &tally{
		hist:      make([][]float64, teams),
		playoffs:  make([]int, teams),
		divisions: make([]int, teams),
	}
	for i := range t.hist {
		t.hist[i] = make([]float64, maxWins+1)
	}
	return t
}

func (t *tally) add(sc *trialScratch) {
	t.trials++
	for i, w := range sc.wins {
		t.hist[i][w]++
		if sc.qualified[i] {
			t.playoffs[i]++
		}
		if sc.leader[i] {
			t.divisions[i]++
		}
	}
}

func (t *tally) merge(o *tally) {
	t.trials += o.trials
	for i := range t.hist {
		for w, c := range o.hist[i] {
			t.hist[i][w] += c
		}
		t.playoffs[i] += o.playoffs[i]
		t.divisions[i] += o.divisions[i]
	}
}

func isProbability(p float64) bool {
	return !math.IsNaN(p) && p >= 0 && p <= 1
}
