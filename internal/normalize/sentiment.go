package normalize

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jonreiter/govader"
	"gopkg.in/yaml.v3"
)

// Scorer rates the polarity of free text on [-1, 1].
type Scorer interface {
	Polarity(text string) float64
}

// Sentiment model names accepted by ScorerByName.
const (
	ModelVader   = "vader"
	ModelLexicon = "lexicon"
)

// VaderScorer scores text with the VADER compound score.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer loads the VADER lexicon.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Polarity implements Scorer.
func (v *VaderScorer) Polarity(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}

var defaultScorer = sync.OnceValue(func() Scorer { return NewVaderScorer() })

var embeddedLexicon = sync.OnceValue(func() *LexiconScorer {
	s, err := NewLexiconScorer(lexiconYAML)
	if err != nil {
		panic(fmt.Sprintf("normalize: %v", err))
	}
	return s
})

// ScorerByName resolves a configured sentiment model. An empty name selects VADER.
func ScorerByName(name string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ModelVader:
		return defaultScorer(), nil
	case ModelLexicon:
		return embeddedLexicon(), nil
	default:
		return nil, fmt.Errorf("unknown sentiment model %q", name)
	}
}

//go:embed lexicon.yaml
var lexiconYAML []byte

var wordPattern = regexp.MustCompile(`[a-z][a-z']*`)

// articles do not break the link between a modifier and the word it modifies.
var articles = map[string]struct{}{"a": {}, "an": {}, "the": {}}

// LexiconScorer is a small embedded alternative to VADER. It averages the polarity of
// known words, letting intensifiers scale and negations invert the next polar word.
type LexiconScorer struct {
	Polarities   map[string]float64 `yaml:"polarity"`
	Intensifiers map[string]float64 `yaml:"intensifiers"`
	Negations    []string           `yaml:"negations"`

	negationSet map[string]struct{}
}

// NewLexiconScorer decodes a YAML lexicon.
func NewLexiconScorer(raw []byte) (*LexiconScorer, error) {
	var s LexiconScorer
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}
	if len(s.Polarities) == 0 {
		return nil, fmt.Errorf("lexicon has no polarity entries")
	}
	for word, p := range s.Polarities {
		if p < -1 || p > 1 {
			return nil, fmt.Errorf("lexicon: polarity of %q out of range: %v", word, p)
		}
	}
	s.negationSet = make(map[string]struct{}, len(s.Negations))
	for _, n := range s.Negations {
		s.negationSet[strings.ToLower(n)] = struct{}{}
	}
	return &s, nil
}

// Polarity implements Scorer. Text without any polar word scores 0.
func (s *LexiconScorer) Polarity(text string) float64 {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)

	var (
		sum     float64
		matched int
		scale   = 1.0
		negated bool
	)
	reset := func() {
		scale = 1.0
		negated = false
	}

	for _, tok := range tokens {
		if m, ok := s.Intensifiers[tok]; ok {
			scale *= m
			continue
		}
		if _, ok := s.negationSet[tok]; ok {
			negated = true
			continue
		}
		p, ok := s.Polarities[tok]
		if !ok {
			if _, skip := articles[tok]; !skip {
				reset()
			}
			continue
		}
		p *= scale
		if negated {
			p *= -0.5
		}
		sum += clamp(p)
		matched++
		reset()
	}

	if matched == 0 {
		return 0
	}
	return clamp(sum / float64(matched))
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
