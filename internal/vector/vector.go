// Package vector implements the preference-vector math used by the
// candidate ranking engine: fixed taxonomies, cosine similarity, and the
// weighted accumulation of a user's listening history.
package vector

import "math"

// StyleDims is the fixed length of the style embedding.
const StyleDims = 8

// Genres is the fixed genre taxonomy. Vector positions are stable across
// all users, so genre vectors compare dimension-by-dimension.
var Genres = []string{
	"pop", "rock", "hip-hop", "r&b", "k-pop", "c-pop", "j-pop", "edm", "indie",
	"acoustic", "lo-fi", "metal", "classical", "jazz", "soundtrack",
	"melodic-rap", "trap-rap", "boom-bap", "drill",
}

// Languages is the fixed language taxonomy.
var Languages = []string{
	"english", "mandarin", "cantonese", "korean", "japanese",
	"spanish", "hindi", "french", "thai", "vietnamese", "others",
}

var (
	genreIndex    = indexOf(Genres)
	languageIndex = indexOf(Languages)
)

func indexOf(list []string) map[string]int {
	m := make(map[string]int, len(list))
	for i, v := range list {
		m[v] = i
	}
	return m
}

// Cosine returns the cosine similarity of a and b. Mismatched lengths or a
// zero-norm side yield exactly 0, never an error.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Weights for the blended similarity score.
const (
	styleWeight    = 0.5
	genreWeight    = 0.3
	languageWeight = 0.2
)

// Score blends the three cosine similarities into an integer 0..100.
func Score(styleA, styleB, genreA, genreB, langA, langB []float64) int {
	s := Cosine(styleA, styleB)
	g := Cosine(genreA, genreB)
	l := Cosine(langA, langB)
	return int(math.Round(100 * (styleWeight*s + genreWeight*g + languageWeight*l)))
}

// Accumulator builds a user's preference vector from weighted feature
// contributions. Zero accumulated weight means "not enough data".
type Accumulator struct {
	style    []float64
	genre    []float64
	language []float64
	weight   float64
}

// NewAccumulator returns an empty accumulator with taxonomy-sized slots.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		style:    make([]float64, StyleDims),
		genre:    make([]float64, len(Genres)),
		language: make([]float64, len(Languages)),
	}
}

// Add folds one feature into the accumulator with the given weight.
// Style vectors of the wrong length contribute nothing on that axis but
// still count their genre/language tags.
func (a *Accumulator) Add(style []float64, genres, languages []string, weight float64) {
	if weight <= 0 {
		return
	}
	if len(style) == StyleDims {
		for i, v := range style {
			a.style[i] += v * weight
		}
	}
	for _, g := range genres {
		if i, ok := genreIndex[g]; ok {
			a.genre[i] += weight
		}
	}
	for _, l := range languages {
		if i, ok := languageIndex[l]; ok {
			a.language[i] += weight
		}
	}
	a.weight += weight
}

// Weight returns the total accumulated weight mass.
func (a *Accumulator) Weight() float64 { return a.weight }

// Normalize returns the weighted-average vectors, or ok=false when nothing
// was accumulated.
func (a *Accumulator) Normalize() (style, genre, language []float64, ok bool) {
	if a.weight == 0 {
		return nil, nil, nil, false
	}
	return scale(a.style, 1/a.weight), scale(a.genre, 1/a.weight), scale(a.language, 1/a.weight), true
}

func scale(v []float64, f float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * f
	}
	return out
}
