package search

// rrfDampingFactor is the k in RRF(d) = Σ weight_i / (k + rank_i(d)).
// k = 60 is the common default.
const rrfDampingFactor = 60

// fuseWithRRF fuses two ranked result lists using weighted Reciprocal Rank
// Fusion. The fused score replaces the per-source scores; input order is the
// per-source ranking.
func fuseWithRRF(vectorResults, keywordResults []*Result, vectorWeight, keywordWeight float64) []*Result {
	scoreMap := make(map[string]float64)
	resultMap := make(map[string]*Result)

	for rank, result := range vectorResults {
		scoreMap[result.EntryUID] += vectorWeight / float64(rrfDampingFactor+rank+1)
		if _, exists := resultMap[result.EntryUID]; !exists {
			resultMap[result.EntryUID] = result
		}
	}
	for rank, result := range keywordResults {
		scoreMap[result.EntryUID] += keywordWeight / float64(rrfDampingFactor+rank+1)
		if _, exists := resultMap[result.EntryUID]; !exists {
			resultMap[result.EntryUID] = result
		}
	}

	fused := make([]*Result, 0, len(resultMap))
	for uid, result := range resultMap {
		fused = append(fused, &Result{
			EntryUID:  result.EntryUID,
			Title:     result.Title,
			Snippet:   result.Snippet,
			Score:     float32(scoreMap[uid]),
			Reason:    result.Reason,
			CreatedTs: result.CreatedTs,
		})
	}

	sortResults(fused)
	return fused
}
