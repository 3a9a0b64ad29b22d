// Package classify assigns a category and extracts keywords from cleaned
// text. Classification is a pure function of its input: rules are fixed at
// construction time and no randomness is involved.
package classify

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vthnguyen/docstream/internal/core/domain"
)

//go:embed rules.yaml
var defaultRules []byte

type categoryRule struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

type rules struct {
	DefaultCategory  string         `yaml:"default_category"`
	MaxKeywords      int            `yaml:"max_keywords"`
	MinKeywordLength int            `yaml:"min_keyword_length"`
	Categories       []categoryRule `yaml:"categories"`
	Stopwords        []string       `yaml:"stopwords"`
}

type Classifier struct {
	defaultCategory  string
	maxKeywords      int
	minKeywordLength int
	categories       []categoryRule
	terms            map[string]map[string]struct{}
	stopwords        map[string]struct{}
}

// New builds a classifier from the embedded rule set.
func New() (*Classifier, error) {
	return fromYAML(defaultRules)
}

// NewFromFile builds a classifier from an operator-provided rule file,
// falling back to the embedded rules when path is empty.
func NewFromFile(path string) (*Classifier, error) {
	if path == "" {
		return New()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classifier rules: %w", err)
	}
	return fromYAML(raw)
}

func fromYAML(raw []byte) (*Classifier, error) {
	var r rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("parse classifier rules: %w", err)
	}
	if r.DefaultCategory == "" {
		r.DefaultCategory = "general"
	}
	if r.MaxKeywords <= 0 {
		r.MaxKeywords = 10
	}
	if r.MinKeywordLength <= 0 {
		r.MinKeywordLength = 3
	}
	if len(r.Categories) == 0 {
		return nil, fmt.Errorf("classifier rules define no categories")
	}

	c := &Classifier{
		defaultCategory:  r.DefaultCategory,
		maxKeywords:      r.MaxKeywords,
		minKeywordLength: r.MinKeywordLength,
		categories:       r.Categories,
		terms:            make(map[string]map[string]struct{}, len(r.Categories)),
		stopwords:        make(map[string]struct{}, len(r.Stopwords)),
	}
	for _, cat := range r.Categories {
		set := make(map[string]struct{}, len(cat.Terms))
		for _, term := range cat.Terms {
			set[strings.ToLower(term)] = struct{}{}
		}
		c.terms[cat.Name] = set
	}
	for _, w := range r.Stopwords {
		c.stopwords[strings.ToLower(w)] = struct{}{}
	}
	return c, nil
}

func (c *Classifier) Classify(text string) domain.Classification {
	tokens := tokenize(text)

	hits := make(map[string]int, len(c.categories))
	total := 0
	for _, token := range tokens {
		for _, cat := range c.categories {
			if _, ok := c.terms[cat.Name][token]; ok {
				hits[cat.Name]++
				total++
			}
		}
	}

	// Highest hit count wins; ties resolve by rule-file order so the result
	// is stable across runs.
	category := c.defaultCategory
	best := 0
	for _, cat := range c.categories {
		if hits[cat.Name] > best {
			best = hits[cat.Name]
			category = cat.Name
		}
	}

	confidence := 0.0
	if total > 0 {
		confidence = float64(best) / float64(total)
	}

	return domain.Classification{
		Category:   category,
		Keywords:   c.extractKeywords(tokens),
		Confidence: confidence,
	}
}

// extractKeywords ranks candidate tokens by frequency, breaking ties by first
// occurrence so the sequence order is deterministic.
func (c *Classifier) extractKeywords(tokens []string) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	for i, token := range tokens {
		if len([]rune(token)) < c.minKeywordLength {
			continue
		}
		if _, stop := c.stopwords[token]; stop {
			continue
		}
		if !hasLetter(token) {
			continue
		}
		counts[token]++
		if _, seen := firstSeen[token]; !seen {
			firstSeen[token] = i
		}
	}

	candidates := make([]string, 0, len(counts))
	for token := range counts {
		candidates = append(candidates, token)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		return firstSeen[a] < firstSeen[b]
	})

	if len(candidates) > c.maxKeywords {
		candidates = candidates[:c.maxKeywords]
	}
	return candidates
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z':
			return false
		case r >= '0' && r <= '9':
			return false
		case r >= 0x80: // keep non-ASCII letters together
			return false
		default:
			return true
		}
	})
}

func hasLetter(token string) bool {
	for _, r := range token {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}
