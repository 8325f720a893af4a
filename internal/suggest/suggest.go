// Package suggest trains a TF-IDF naive Bayes classifier on the user's own
// categorized transactions and predicts a category for a new description.
// Unlike the model-backed classifier, it is local, free, and instant, so the
// manual-entry form can query it on every keystroke.
package suggest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jbrukh/bayesian"

	"github.com/dvloznov/budgetwise/internal/finance"
)

// Suggestion is one predicted category for a description.
type Suggestion struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Suggester wraps the classifier with retrain bookkeeping. The classifier
// itself cannot be updated incrementally once converted to TF-IDF, so it is
// rebuilt from scratch whenever the training set grows.
type Suggester struct {
	mu           sync.RWMutex
	classifier   *bayesian.Classifier
	classes      []bayesian.Class
	trainedCount int
}

func New() *Suggester {
	return &Suggester{}
}

// Stale reports whether the training set has drifted from what the
// classifier last saw.
func (s *Suggester) Stale(transactionCount int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classifier == nil || transactionCount != s.trainedCount
}

// Train rebuilds the classifier from categorized transactions. Uncategorized
// rows are skipped; at least two distinct categories are required, since a
// one-class classifier predicts nothing useful.
func (s *Suggester) Train(transactions []finance.Transaction) error {
	seen := map[string]bool{}
	var classes []bayesian.Class
	for _, t := range transactions {
		if skipTraining(t) || seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		classes = append(classes, bayesian.Class(t.Category))
	}
	if len(classes) < 2 {
		return fmt.Errorf("Train: need at least 2 categories, have %d", len(classes))
	}

	cl := bayesian.NewClassifierTfIdf(classes...)
	for _, t := range transactions {
		if skipTraining(t) {
			continue
		}
		cl.Learn(terms(t.Description), bayesian.Class(t.Category))
	}
	cl.ConvertTermsFreqToTfIdf()

	s.mu.Lock()
	s.classifier = cl
	s.classes = classes
	s.trainedCount = len(transactions)
	s.mu.Unlock()

	return nil
}

// Suggest predicts the most likely category for a description.
func (s *Suggester) Suggest(description string) (Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.classifier == nil {
		return Suggestion{}, fmt.Errorf("Suggest: classifier not trained")
	}

	words := terms(description)
	if len(words) == 0 {
		return Suggestion{}, fmt.Errorf("Suggest: empty description")
	}

	scores, best, _ := s.classifier.LogScores(words)
	if best < 0 || best >= len(s.classes) {
		return Suggestion{}, fmt.Errorf("Suggest: no prediction for %q", description)
	}

	return Suggestion{
		Category: string(s.classes[best]),
		Score:    scores[best],
	}, nil
}

func skipTraining(t finance.Transaction) bool {
	return t.Category == "" ||
		strings.EqualFold(t.Category, finance.UncategorizedName) ||
		strings.TrimSpace(t.Description) == ""
}

// terms normalizes a description into classifier tokens.
func terms(desc string) []string {
	desc = strings.ToLower(desc)
	desc = strings.ReplaceAll(desc, "*", " ")
	return strings.Fields(desc)
}
