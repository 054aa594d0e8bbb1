package detector

import (
	"sort"

	"redundancy-analyzer/src/model"
)

// Consolidate merges findings that share any location into one finding per
// group. The most severe member (then highest score) is the base: its
// primary location stays primary, every other location becomes a
// duplicate, and savings scale with the number of duplicates.
func Consolidate(findings []model.RedundancyFinding) []model.RedundancyFinding {
	if len(findings) == 0 {
		return []model.RedundancyFinding{}
	}

	sets := newUnionFind(len(findings))
	owner := make(map[string]int)
	for i, f := range findings {
		for _, loc := range f.Locations() {
			key := loc.Key()
			if j, ok := owner[key]; ok {
				sets.union(i, j)
			} else {
				owner[key] = i
			}
		}
	}

	groups := make(map[int][]int)
	var roots []int
	for i := range findings {
		root := sets.find(i)
		if _, ok := groups[root]; !ok {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], i)
	}

	out := make([]model.RedundancyFinding, 0, len(roots))
	for _, root := range roots {
		out = append(out, merge(findings, groups[root]))
	}
	return out
}

func merge(findings []model.RedundancyFinding, members []int) model.RedundancyFinding {
	if len(members) == 1 {
		return findings[members[0]]
	}

	base := members[0]
	for _, i := range members[1:] {
		f, b := findings[i], findings[base]
		if f.Severity.Rank() > b.Severity.Rank() ||
			(f.Severity == b.Severity && f.SimilarityScore > b.SimilarityScore) {
			base = i
		}
	}

	merged := findings[base]
	seen := map[string]bool{merged.PrimaryLocation.Key(): true}
	var dups []model.CodeLocation
	impact := model.ImpactScore{Quality: 100}
	for _, i := range members {
		f := findings[i]
		for _, loc := range f.Locations() {
			if !seen[loc.Key()] {
				seen[loc.Key()] = true
				dups = append(dups, loc)
			}
		}
		impact.Scale += f.ImpactScore.Scale
		impact.Risk += f.ImpactScore.Risk
		impact.Quality = min(impact.Quality, f.ImpactScore.Quality)
	}
	sort.SliceStable(dups, func(i, j int) bool {
		if dups[i].FilePath != dups[j].FilePath {
			return dups[i].FilePath < dups[j].FilePath
		}
		return dups[i].StartLine < dups[j].StartLine
	})

	merged.DuplicateLocations = dups
	merged.ImpactScore = impact
	merged.EstimatedSavings = findings[base].EstimatedSavings * len(dups)
	return merged
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	// the lower index stays root so groups keep input order
	if ra < rb {
		u.parent[rb] = ra
	} else {
		u.parent[ra] = rb
	}
}
