package charm

import (
	"strings"
	"unicode"

	"asterplayer/model"
)

const (
	hangulFirst = '\uAC00' // 가
	hangulLast  = '\uD7A3' // 힣
)

// Normalize lowercases s and keeps only ASCII digits, ASCII letters and
// Hangul syllables. Whitespace and punctuation are dropped.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsSpace(r):
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= hangulFirst && r <= hangulLast:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CategoryOf maps a charm name to its category. Names are compared after
// alias resolution and normalization; the first category in declaration
// order holding a name that contains, or is contained in, the query wins.
func (c *Catalog) CategoryOf(charmName string) (Key, bool) {
	cat := c.categoryOf(charmName)
	if cat == nil {
		return "", false
	}
	return cat.Key, true
}

func (c *Catalog) categoryOf(charmName string) *Category {
	target := Normalize(charmName)
	if canonical, ok := c.aliases[target]; ok {
		target = Normalize(canonical)
	}
	if target == "" {
		return nil
	}

	for _, cat := range c.categories {
		for _, name := range cat.normalized {
			if strings.Contains(target, name) || strings.Contains(name, target) {
				return cat
			}
		}
	}
	return nil
}

// Weight is the accumulated stage of one category.
type Weight struct {
	Key    Key `json:"key"`
	Weight int `json:"weight"`
}

// Weights sums trait stages per category. Only categories that matched at
// least one trait are returned, in declaration order.
func (c *Catalog) Weights(traits []model.CharmTrait) []Weight {
	sums := make(map[Key]int, len(c.categories))
	for _, trait := range traits {
		cat := c.categoryOf(trait.CharmName)
		if cat == nil {
			continue
		}
		sums[cat.Key] += int(trait.Stage)
	}

	weights := make([]Weight, 0, len(sums))
	for _, cat := range c.categories {
		if w, ok := sums[cat.Key]; ok {
			weights = append(weights, Weight{Key: cat.Key, Weight: w})
		}
	}
	return weights
}

// Dominant returns the category with the strictly greatest weight. Ties go
// to the category declared first. A matched category beats the default
// even at weight zero; with no match at all (or only negative sums) the
// default is returned.
func (c *Catalog) Dominant(traits []model.CharmTrait) *Category {
	best := c.fallback
	maxWeight := -1
	for _, w := range c.Weights(traits) {
		if w.Weight > maxWeight {
			maxWeight = w.Weight
			best = c.byKey[w.Key]
		}
	}
	return best
}

// CDImage returns the disc artwork of the dominant category.
func (c *Catalog) CDImage(traits []model.CharmTrait) string {
	return c.Dominant(traits).CDImage
}

// ColorOf returns the class set of a single charm, falling back to the
// default category's colors.
func (c *Catalog) ColorOf(charmName string) ClassSet {
	if cat := c.categoryOf(charmName); cat != nil {
		return cat.Color
	}
	return c.fallback.Color
}

// Analysis summarizes how a trait list classifies.
type Analysis struct {
	Dominant Key      `json:"dominant"`
	Name     string   `json:"name"`
	CDImage  string   `json:"cdImage"`
	Weights  []Weight `json:"weights"`
	Matched  int      `json:"matched"`
	Ignored  []string `json:"ignored,omitempty"`
}

// Analyze classifies every trait and reports the dominant category along
// with the per-category weights and the names that matched nothing.
func (c *Catalog) Analyze(traits []model.CharmTrait) Analysis {
	a := Analysis{Weights: c.Weights(traits)}
	for _, trait := range traits {
		if c.categoryOf(trait.CharmName) == nil {
			a.Ignored = append(a.Ignored, trait.CharmName)
			continue
		}
		a.Matched++
	}

	dominant := c.Dominant(traits)
	a.Dominant = dominant.Key
	a.Name = dominant.Name
	a.CDImage = dominant.CDImage
	return a
}
