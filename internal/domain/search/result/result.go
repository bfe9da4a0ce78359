package result

import "github.com/schemalabz/opencouncil-sub005/internal/domain/search/retriever"

// Candidate is a single hit from one branch. Rank is 1-based within the branch.
type Candidate struct {
	ID    string
	Rank  int
	Score float64
	// InnerHitIDs lists the segment ids that made the subject match (nested branch only).
	InnerHitIDs []string
}

// CandidateList is the ordered output of one branch.
type CandidateList struct {
	Branch     retriever.Kind
	Candidates []Candidate
	// Total is the branch-reported hit count before windowing.
	Total int
}

// NewCandidateList assigns 1-based ranks in slice order.
func NewCandidateList(branch retriever.Kind, total int, candidates ...Candidate) CandidateList {
	for i := range candidates {
		candidates[i].Rank = i + 1
	}
	if total < len(candidates) {
		total = len(candidates)
	}
	return CandidateList{Branch: branch, Candidates: candidates, Total: total}
}

// Len returns the number of candidates.
func (l CandidateList) Len() int { return len(l.Candidates) }

// IDs returns candidate ids in rank order.
func (l CandidateList) IDs() []string {
	ids := make([]string, len(l.Candidates))
	for i, c := range l.Candidates {
		ids[i] = c.ID
	}
	return ids
}

// Fused is a subject after rank fusion.
type Fused struct {
	ID    string
	Score float64
	// InnerHitIDs is the union of segment ids reported by contributing branches.
	InnerHitIDs []string
	// Ranks records the rank in each contributing branch.
	Ranks map[retriever.Kind]int
}

// Page is one page of fused results plus the pre-pagination candidate count.
type Page struct {
	Hits  []Fused
	Total int
}
