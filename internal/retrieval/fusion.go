package retrieval

import (
	"sort"

	"github.com/curalog/curalog/internal/keyword"
	"github.com/curalog/curalog/internal/store"
)

// FusedHit is one chunk with its combined keyword/semantic score.
type FusedHit struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	Section       string  `json:"section"`
	Text          string  `json:"text,omitempty"`
	Score         float64 `json:"score"`
	KeywordScore  float64 `json:"keyword_score"`
	SemanticScore float64 `json:"semantic_score"`
}

// normalizeKeywordScores maps BM25 scores to [0,1] by dividing by the max.
func normalizeKeywordScores(hits []*keyword.ChunkHit) map[string]float64 {
	normalized := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return normalized
	}
	maxScore := hits[0].Score
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	for _, h := range hits {
		if maxScore > 0 {
			normalized[h.ChunkID] = h.Score / maxScore
		}
	}
	return normalized
}

// fuse merges both result sets with weighted scores, sorted descending.
// Cosine scores are already in [0,1] and used as-is.
func fuse(keywordHits []*keyword.ChunkHit, semanticHits []store.ChunkMatch,
	keywordWeight, semanticWeight float64) []*FusedHit {

	merged := make(map[string]*FusedHit)
	for _, h := range keywordHits {
		merged[h.ChunkID] = &FusedHit{
			ChunkID:    h.ChunkID,
			DocumentID: h.DocumentID,
			Section:    h.Section,
			Text:       h.Text,
		}
	}
	kwScores := normalizeKeywordScores(keywordHits)
	for id, score := range kwScores {
		merged[id].KeywordScore = score
	}

	for _, m := range semanticHits {
		hit, ok := merged[m.ChunkID]
		if !ok {
			hit = &FusedHit{
				ChunkID:    m.ChunkID,
				DocumentID: m.Metadata.DocumentID,
				Section:    m.Metadata.Section,
			}
			merged[m.ChunkID] = hit
		}
		hit.SemanticScore = m.Score
	}

	out := make([]*FusedHit, 0, len(merged))
	for _, hit := range merged {
		hit.Score = keywordWeight*hit.KeywordScore + semanticWeight*hit.SemanticScore
		out = append(out, hit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
