// Package pipeline wires feature extraction, classification, risk
// scoring, explanation and attack simulation into per-cookie and batch
// analyses.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/aiscihub/cookieguard-ai/internal/attack"
	"github.com/aiscihub/cookieguard-ai/internal/classifier"
	"github.com/aiscihub/cookieguard-ai/internal/explain"
	"github.com/aiscihub/cookieguard-ai/internal/features"
	"github.com/aiscihub/cookieguard-ai/internal/models"
	"github.com/aiscihub/cookieguard-ai/internal/risk"
)

// DefaultWorkers bounds batch concurrency when the caller does not.
const DefaultWorkers = 4

// Options configure an Analyzer. The zero value is usable: rule-based
// classification, default thresholds, default worker count.
type Options struct {
	// Model is the primary classifier; nil runs rule-based only.
	Model classifier.Classifier
	// GateThreshold is the P(auth) cutoff for severity scoring.
	GateThreshold float64
	// ReviewConfidence is the high-confidence cutoff for interpretations.
	ReviewConfidence float64
	// Workers bounds batch concurrency.
	Workers int
}

// Analyzer runs the full analysis pipeline. Safe for concurrent use;
// all state is read-only after construction.
type Analyzer struct {
	extractor *features.Extractor
	primary   classifier.Classifier
	fallback  classifier.Classifier
	scorer    *risk.Scorer
	explainer *explain.Explainer
	workers   int
}

func NewAnalyzer(opts Options) *Analyzer {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Analyzer{
		extractor: features.NewExtractor(),
		primary:   opts.Model,
		fallback:  classifier.NewRuleClassifier(),
		scorer:    risk.NewScorer(opts.GateThreshold),
		explainer: explain.NewExplainer(opts.GateThreshold, opts.ReviewConfidence),
		workers:   workers,
	}
}

// BatchRequest is one batch of cookies with shared analysis context.
type BatchRequest struct {
	Cookies  []models.CookieRecord
	Context  *models.LoginContext
	SiteHost string
	// Now anchors expiry calculations; zero means time.Now().
	Now time.Time
}

// AnalyzeCookie runs the pipeline for a single cookie. The same record,
// context and reference time always produce the same analysis.
func (a *Analyzer) AnalyzeCookie(cookie models.CookieRecord, lctx *models.LoginContext, siteHost string, now time.Time) (models.CookieAnalysis, error) {
	if err := cookie.Validate(); err != nil {
		return models.CookieAnalysis{}, err
	}
	if now.IsZero() {
		now = time.Now()
	}

	f := a.extractor.Extract(cookie, lctx, siteHost, now)
	cls, err := a.classify(f)
	if err != nil {
		return models.CookieAnalysis{}, fmt.Errorf("pipeline: classify %s: %w", cookie.Name, err)
	}

	outcome := a.scorer.Score(cookie, cls, siteHost, now)
	explanation := a.explainer.Explain(f, cls, outcome)
	simulation := attack.Simulate(cookie, cls, outcome, now)

	return models.CookieAnalysis{
		CookieName:   cookie.Name,
		CookieDomain: cookie.Domain,
		CookieAttributes: models.CookieAttributes{
			Domain:         cookie.Domain,
			Path:           cookie.EffectivePath(),
			Secure:         cookie.Secure,
			HTTPOnly:       cookie.HTTPOnly,
			SameSite:       cookie.SameSite,
			ExpirationDate: cookie.ExpirationDate,
			HostOnly:       cookie.HostOnly,
		},
		Classification:   cls,
		Risk:             outcome.Assessment,
		Explanations:     explanation,
		AttackSimulation: simulation,
		Recommendations:  outcome.Recommendations,
		Summary:          outcome.Summary,
	}, nil
}

// classify prefers the primary model and substitutes the rule fallback
// on any model error, invisibly to the caller.
func (a *Analyzer) classify(f features.Vector) (models.Classification, error) {
	if a.primary != nil {
		cls, err := a.primary.Classify(f)
		if err == nil {
			return cls, nil
		}
		log.Printf("Warning: %s classifier failed, falling back to %s: %v", a.primary.Name(), a.fallback.Name(), err)
	}
	return a.fallback.Classify(f)
}

// AnalyzeBatch analyses a batch concurrently and ranks results by risk
// score, then authentication probability, highest first. Malformed
// records land in Skipped without aborting the batch. Cancelling the
// context stops dispatch and returns whatever already completed.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, req BatchRequest) models.BatchResult {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	skipped := []models.SkippedCookie{}
	valid := make([]models.CookieRecord, 0, len(req.Cookies))
	for _, cookie := range req.Cookies {
		if err := cookie.Validate(); err != nil {
			skipped = append(skipped, models.SkippedCookie{
				Name:   cookie.Name,
				Domain: cookie.Domain,
				Reason: err.Error(),
			})
			continue
		}
		valid = append(valid, cookie)
	}

	analyses := make([]*models.CookieAnalysis, len(valid))
	failures := make([]error, len(valid))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(a.workers, len(valid)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				analysis, err := a.AnalyzeCookie(valid[idx], req.Context, req.SiteHost, now)
				if err != nil {
					failures[idx] = err
					continue
				}
				analyses[idx] = &analysis
			}
		}()
	}

dispatch:
	for idx := range valid {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	results := make([]models.CookieAnalysis, 0, len(valid))
	for idx, analysis := range analyses {
		if analysis != nil {
			results = append(results, *analysis)
			continue
		}
		if failures[idx] != nil {
			skipped = append(skipped, models.SkippedCookie{
				Name:   valid[idx].Name,
				Domain: valid[idx].Domain,
				Reason: failures[idx].Error(),
			})
		}
	}

	rank(results)

	return models.BatchResult{
		Results:      results,
		SummaryStats: Tally(results),
		Skipped:      skipped,
	}
}

// rank sorts stably so cookies with equal score and probability keep
// their input order.
func rank(results []models.CookieAnalysis) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Risk.Score != results[j].Risk.Score {
			return results[i].Risk.Score > results[j].Risk.Score
		}
		return results[i].Classification.Probabilities[models.TypeAuthentication] >
			results[j].Classification.Probabilities[models.TypeAuthentication]
	})
}

// Tally counts results per severity tier. Callers that filter results
// after analysis use it to recompute the summary.
func Tally(results []models.CookieAnalysis) models.SummaryStats {
	stats := models.SummaryStats{TotalCookies: len(results)}
	for _, analysis := range results {
		switch analysis.Risk.Severity {
		case models.SeverityCritical:
			stats.Critical++
		case models.SeverityHigh:
			stats.High++
		case models.SeverityMedium:
			stats.Medium++
		case models.SeverityLow:
			stats.Low++
		default:
			stats.Info++
		}
	}
	return stats
}
