package classifier

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"resumematch/internal/domain"
)

// Tier awards Points when a family reaches MinMatches.
type Tier struct {
	MinMatches int
	Points     int
}

// Family is one independent signal of the rubric.
type Family struct {
	Name  string
	Label string // used in the rationale, e.g. "resume sections"
	// CountAll counts every occurrence instead of distinct patterns matched.
	CountAll bool
	Patterns []*regexp.Regexp
	Tiers    []Tier
}

func (f Family) count(text string) int {
	n := 0
	for _, re := range f.Patterns {
		if f.CountAll {
			n += len(re.FindAllStringIndex(text, -1))
		} else if re.MatchString(text) {
			n++
		}
	}
	return n
}

// points returns the value of the highest tier reached.
func (f Family) points(matches int) int {
	for _, t := range f.Tiers {
		if matches >= t.MinMatches {
			return t.Points
		}
	}
	return 0
}

// Policy is the tunable rubric table.
type Policy struct {
	MinChars  int
	Threshold int
	Families  []Family
}

// Validate checks that every family is monotone: tiers ordered by descending
// MinMatches never award more points for fewer matches.
func (p Policy) Validate() error {
	if p.MinChars < 0 {
		return fmt.Errorf("%w: min chars must be >= 0", domain.ErrValidation)
	}
	if p.Threshold <= 0 || p.Threshold > 100 {
		return fmt.Errorf("%w: threshold %d out of range (0,100]", domain.ErrValidation, p.Threshold)
	}
	for _, f := range p.Families {
		if len(f.Patterns) == 0 {
			return fmt.Errorf("%w: family %s has no patterns", domain.ErrValidation, f.Name)
		}
		for i, t := range f.Tiers {
			if t.MinMatches <= 0 || t.Points < 0 {
				return fmt.Errorf("%w: family %s tier %d is invalid", domain.ErrValidation, f.Name, i)
			}
			if i == 0 {
				continue
			}
			prev := f.Tiers[i-1]
			if t.MinMatches >= prev.MinMatches || t.Points > prev.Points {
				return fmt.Errorf("%w: family %s tiers are not monotone", domain.ErrValidation, f.Name)
			}
		}
	}
	return nil
}

func words(terms ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		out[i] = regexp.MustCompile(`\b` + t + `\b`)
	}
	return out
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// DefaultPolicy returns the stock resume rubric.
func DefaultPolicy() Policy {
	return Policy{
		MinChars:  200,
		Threshold: 50,
		Families: []Family{
			{
				Name:  "sections",
				Label: "resume sections",
				Patterns: words(
					"experience", "employment", "work history", "professional experience",
					"education", "academic background", "qualification",
					"skills", "technical skills", "competencies", "expertise",
					"projects", "achievements", "accomplishments",
					"certifications", "professional development",
					"summary", "profile", "objective", "career objective",
				),
				Tiers: []Tier{{3, 40}, {1, 20}},
			},
			{
				Name:  "titles",
				Label: "job titles",
				Patterns: words(
					"engineer", "developer", "manager", "analyst", "specialist",
					"director", "administrator", "coordinator", "lead", "architect",
					"consultant", "designer", "technician", "scientist", "officer",
				),
				Tiers: []Tier{{2, 20}, {1, 10}},
			},
			{
				Name:     "dates",
				Label:    "date patterns",
				CountAll: true,
				Patterns: patterns(
					`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]* \d{4}\b`,
					`\b\d{2}/\d{4}\b`,
					`\b\d{4}-\d{2}\b`,
					`\b\d{4}\s*-\s*present\b`,
					`\b\d{4}\s*-\s*\d{4}\b`,
					`\b\d{4}\s*to\s*\d{4}\b`,
					`\b\d{4}\s*to\s*present\b`,
				),
				Tiers: []Tier{{3, 20}, {1, 10}},
			},
			{
				Name:  "technology",
				Label: "technical terms",
				Patterns: append(words(
					"python", "java", "javascript", "html", "css", "sql",
					"react", "node", "azure", "aws", "cloud", "docker", "kubernetes",
					"agile", "scrum", "jira", "git", "linux", "windows", "database",
				), regexp.MustCompile(`\bc\+\+`)),
				Tiers: []Tier{{5, 20}, {2, 10}},
			},
		},
	}
}

// Classifier applies a Policy to raw text. It performs no I/O.
type Classifier struct {
	policy Policy
}

func New(policy Policy) (*Classifier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{policy: policy}, nil
}

// Classify scores text against the rubric.
func (c *Classifier) Classify(text string) domain.Verdict {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < c.policy.MinChars {
		return domain.Verdict{Rationale: "document is too short to be a resume"}
	}

	lower := strings.ToLower(trimmed)
	score := 0
	var findings []string
	for _, f := range c.policy.Families {
		matches := f.count(lower)
		pts := f.points(matches)
		if pts == 0 {
			continue
		}
		score += pts
		findings = append(findings, fmt.Sprintf("found %d %s", matches, f.Label))
	}
	if score > 100 {
		score = 100
	}

	rationale := strings.Join(findings, ", ")
	if rationale == "" {
		rationale = "no resume signals found"
	}

	return domain.Verdict{
		Admissible: score >= c.policy.Threshold,
		Confidence: float64(score) / 100,
		Score:      score,
		Rationale:  rationale,
	}
}
