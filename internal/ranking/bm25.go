// Package ranking scores paper abstracts against a free-text query with the
// Okapi BM25 model.
//
// All state is built per call. Index values are never shared between
// requests, so Rank is safe to call from concurrent handlers without locking.
package ranking

import "math"

// Okapi BM25 free parameters.
const (
	K1 = 1.5
	B  = 0.75
)

// BM25 is an Okapi BM25 index over a tokenized corpus.
type BM25 struct {
	corpusSize int
	avgDocLen  float64
	docLens    []int
	termFreqs  []map[string]int
	idf        map[string]float64
}

// NewBM25 builds an index over corpus. Each element is one document's tokens;
// empty documents keep their slot so scores stay aligned with the input.
func NewBM25(corpus [][]string) *BM25 {
	idx := &BM25{
		corpusSize: len(corpus),
		docLens:    make([]int, len(corpus)),
		termFreqs:  make([]map[string]int, len(corpus)),
		idf:        make(map[string]float64),
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, doc := range corpus {
		freqs := make(map[string]int, len(doc))
		for _, term := range doc {
			freqs[term]++
		}
		for term := range freqs {
			docFreq[term]++
		}
		idx.termFreqs[i] = freqs
		idx.docLens[i] = len(doc)
		totalLen += len(doc)
	}

	if idx.corpusSize > 0 {
		idx.avgDocLen = float64(totalLen) / float64(idx.corpusSize)
	}

	n := float64(idx.corpusSize)
	for term, df := range docFreq {
		idx.idf[term] = inverseDocFreq(n, float64(df))
	}

	return idx
}

// inverseDocFreq is the Okapi IDF with +1 smoothing, which keeps weights
// positive for terms that appear in more than half the documents.
func inverseDocFreq(n, df float64) float64 {
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// IDF returns the weight of term, or zero if no document contains it.
func (idx *BM25) IDF(term string) float64 {
	return idx.idf[term]
}

// AvgDocLen returns the mean document length in tokens.
func (idx *BM25) AvgDocLen() float64 {
	return idx.avgDocLen
}

// Scores returns one score per document in corpus order. Repeated query
// terms count once per occurrence.
func (idx *BM25) Scores(query []string) []float64 {
	scores := make([]float64, idx.corpusSize)
	if idx.avgDocLen == 0 {
		return scores
	}

	for i, freqs := range idx.termFreqs {
		norm := K1 * (1 - B + B*float64(idx.docLens[i])/idx.avgDocLen)
		var score float64
		for _, term := range query {
			tf := float64(freqs[term])
			if tf == 0 {
				continue
			}
			score += idx.idf[term] * (tf * (K1 + 1)) / (tf + norm)
		}
		scores[i] = score
	}

	return scores
}
