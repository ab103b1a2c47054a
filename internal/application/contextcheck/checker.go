// Package contextcheck scores a pasted news claim with keyword heuristics.
package contextcheck

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/bryanwahyu/trustlayer/internal/domain/analysis"
)

const MinClaimLength = 10

type Verdict string

const (
	VerdictVerified        Verdict = "VERIFIED"
	VerdictLikelyAuthentic Verdict = "LIKELY_AUTHENTIC"
	VerdictControversial   Verdict = "CONTROVERSIAL"
	VerdictMisleading      Verdict = "MISLEADING"
	VerdictFabricated      Verdict = "FABRICATED"
)

var Steps = []string{
	"Extracting semantic claims...",
	"Querying Global Knowledge Graph...",
	"Cross-referencing major news indices...",
	"Analyzing rhetorical patterns...",
	"Synthesizing consensus...",
}

var (
	alarmistWords = []string{"shocking", "secret", "banned", "miracle", "cover-up", "leaked", "urgent", "destroy", "plot"}
	reliableWords = []string{"report", "study", "official", "statement", "announced", "evidence", "analysis"}
)

type Consensus struct {
	Agree    int `json:"agree"`
	Disagree int `json:"disagree"`
	Neutral  int `json:"neutral"`
}

type Source struct {
	Name        string `json:"name"`
	Credibility string `json:"credibility"`
	Status      string `json:"status"`
}

type Report struct {
	Score     int       `json:"score"`
	Verdict   Verdict   `json:"verdict"`
	Consensus Consensus `json:"consensus"`
	Sources   []Source  `json:"sources"`
	Fallacies []string  `json:"fallacies"`
	Sentiment string    `json:"sentiment"`
}

// Progress is one step of a running check.
type Progress struct {
	Percent int    `json:"percent"`
	Step    string `json:"step"`
}

type Checker struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	stepDelay time.Duration
}

// New returns a checker. A nil rnd gets a time-seeded source.
func New(rnd *rand.Rand, stepDelay time.Duration) *Checker {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Checker{rnd: rnd, stepDelay: stepDelay}
}

// Check scores claim. When progress is non-nil it receives one update per
// step and is closed before Check returns.
func (c *Checker) Check(ctx context.Context, claim string, progress chan<- Progress) (*Report, error) {
	if progress != nil {
		defer close(progress)
	}
	claim = strings.TrimSpace(claim)
	if len(claim) < MinClaimLength {
		return nil, analysis.NewValidationError("Claim must be at least %d characters.", MinClaimLength)
	}

	for i, step := range Steps {
		if c.stepDelay > 0 {
			t := time.NewTimer(c.stepDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
		}
		if progress != nil {
			select {
			case progress <- Progress{Percent: (i + 1) * 100 / len(Steps), Step: step}:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	c.mu.Lock()
	jitter := c.rnd.Float64()*10 - 5
	c.mu.Unlock()
	return score(claim, jitter), nil
}

func score(claim string, jitter float64) *Report {
	lower := strings.ToLower(claim)
	alarmist := countWords(lower, alarmistWords)
	reliable := countWords(lower, reliableWords)

	base := 50.0
	if len(claim) < 50 {
		base -= 10
	}
	base -= float64(alarmist * 15)
	base += float64(reliable * 10)
	final := math.Max(5, math.Min(98, base+jitter))

	r := &Report{
		Score:     int(math.Round(final)),
		Verdict:   verdictFor(final),
		Sources:   sourcesFor(final),
		Fallacies: []string{},
		Sentiment: "Balanced",
	}
	if final > 50 {
		r.Consensus = Consensus{Agree: 65, Disagree: 10, Neutral: 25}
	} else {
		r.Consensus = Consensus{Agree: 12, Disagree: 78, Neutral: 25}
	}
	if alarmist > 0 {
		r.Fallacies = append(r.Fallacies, "Appeal to Emotion")
	}
	if strings.Contains(claim, "they") {
		r.Fallacies = append(r.Fallacies, "Us vs. Them Framing")
	}
	if len(claim) < 100 && final < 50 {
		r.Fallacies = append(r.Fallacies, "Hasty Generalization")
	}
	if alarmist > reliable {
		r.Sentiment = "Alarmist"
	}
	return r
}

func verdictFor(s float64) Verdict {
	switch {
	case s > 80:
		return VerdictVerified
	case s > 60:
		return VerdictLikelyAuthentic
	case s < 30:
		return VerdictFabricated
	case s < 50:
		return VerdictMisleading
	default:
		return VerdictControversial
	}
}

func sourcesFor(s float64) []Source {
	pick := func(cond bool, yes, no string) string {
		if cond {
			return yes
		}
		return no
	}
	return []Source{
		{Name: "Global News Wire", Credibility: "High", Status: pick(s > 50, "Supports", "Contradicts")},
		{Name: "Independent Science Journal", Credibility: "High", Status: pick(s > 60, "Supports", "Neutral")},
		{Name: "Viral Buzz Blog", Credibility: "Low", Status: pick(s < 40, "Supports", "Contradicts")},
		{Name: "State Official Press", Credibility: "Medium", Status: pick(s > 50, "Supports", "Neutral")},
	}
}

func countWords(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}
