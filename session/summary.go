package session

import (
	"sort"

	"github.com/lumenlearn/teachsim/schema"
)

// Summary condenses a finished session into the numbers a trainee reviews.
type Summary struct {
	SessionID         string              `json:"session_id"`
	Turns             int                 `json:"turns"`
	AverageScore      float64             `json:"average_score"`
	BestScore         float64             `json:"best_score"`
	BestResponse      string              `json:"best_response"`
	FinalPhase        schema.StudentPhase `json:"final_phase"`
	CommonSuggestions []string            `json:"common_suggestions"`
}

const maxCommonSuggestions = 3

// Summarize folds turn history into a Summary. Suggestions are ranked by
// frequency, ties broken alphabetically so the output is stable.
func Summarize(sessionID string, records []TurnRecord) Summary {
	s := Summary{SessionID: sessionID, Turns: len(records)}
	if len(records) == 0 {
		return s
	}

	var total float64
	counts := make(map[string]int)
	for _, rec := range records {
		total += rec.Overall
		if rec.Overall > s.BestScore || s.BestResponse == "" {
			s.BestScore = rec.Overall
			s.BestResponse = rec.Response
		}
		for _, sug := range rec.Suggestions {
			counts[sug]++
		}
	}
	s.AverageScore = total / float64(len(records))
	s.FinalPhase = records[len(records)-1].PhaseAfter

	type freq struct {
		text string
		n    int
	}
	ranked := make([]freq, 0, len(counts))
	for text, n := range counts {
		ranked = append(ranked, freq{text, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].text < ranked[j].text
	})
	for i := 0; i < len(ranked) && i < maxCommonSuggestions; i++ {
		s.CommonSuggestions = append(s.CommonSuggestions, ranked[i].text)
	}
	return s
}
