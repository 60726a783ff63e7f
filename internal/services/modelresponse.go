package services

import (
	"encoding/json"
	"strings"

	"github.com/voxprep/voxprep/internal/models"
)

// extractJSON pulls the JSON document out of model output that may be wrapped
// in markdown code fences or surrounding prose.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj &&
		(startArr == -1 || startObj < startArr) {
		return text[startObj : endObj+1]
	}
	if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}
	return strings.TrimSpace(text)
}

// parseQuestionList decodes the model's question array. ok is false on any
// parse failure so the caller can substitute the fallback question.
func parseQuestionList(text string) ([]string, bool) {
	var questions []string
	if err := json.Unmarshal([]byte(extractJSON(text)), &questions); err != nil {
		return nil, false
	}
	if len(questions) == 0 {
		return nil, false
	}
	return questions, true
}

// Models flip between camelCase and snake_case between runs; this table is
// the single place that tolerance lives. First present key wins.
var feedbackKeyAliases = map[string][]string{
	"totalScore":          {"totalScore", "total_score"},
	"categoryScores":      {"categoryScores", "category_scores"},
	"strengths":           {"strengths"},
	"areasForImprovement": {"areasForImprovement", "areas_for_improvement"},
	"finalAssessment":     {"finalAssessment", "final_assessment"},
}

type categoryEntry struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// parseFeedbackPayload normalizes the model's feedback object to the
// canonical shape. Absent fields default to empty/zero values; a payload
// that is not a JSON object at all fails.
func parseFeedbackPayload(text string) (*models.Feedback, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return nil, false
	}

	pick := func(canonical string) (json.RawMessage, bool) {
		for _, key := range feedbackKeyAliases[canonical] {
			if v, ok := raw[key]; ok {
				return v, true
			}
		}
		return nil, false
	}

	fb := &models.Feedback{
		CategoryScores:      map[string]int{},
		Strengths:           []string{},
		AreasForImprovement: []string{},
	}
	for _, cat := range models.FeedbackCategories {
		fb.CategoryScores[cat] = 0
	}

	if v, ok := pick("totalScore"); ok {
		var score float64
		if json.Unmarshal(v, &score) == nil {
			fb.TotalScore = clampScore(score)
		}
	}
	if v, ok := pick("categoryScores"); ok {
		mergeCategoryScores(v, fb.CategoryScores)
	}
	if v, ok := pick("strengths"); ok {
		_ = json.Unmarshal(v, &fb.Strengths)
	}
	if v, ok := pick("areasForImprovement"); ok {
		_ = json.Unmarshal(v, &fb.AreasForImprovement)
	}
	if v, ok := pick("finalAssessment"); ok {
		_ = json.Unmarshal(v, &fb.FinalAssessment)
	}

	return fb, true
}

// mergeCategoryScores accepts either an object keyed by category name or an
// array of {name|category, score} entries, and keeps only the fixed rubric
// categories.
func mergeCategoryScores(raw json.RawMessage, out map[string]int) {
	var asMap map[string]float64
	if err := json.Unmarshal(raw, &asMap); err == nil {
		for name, score := range asMap {
			if canonical, ok := matchCategory(name); ok {
				out[canonical] = clampScore(score)
			}
		}
		return
	}

	var asList []categoryEntry
	if err := json.Unmarshal(raw, &asList); err == nil {
		for _, e := range asList {
			name := e.Name
			if name == "" {
				name = e.Category
			}
			if canonical, ok := matchCategory(name); ok {
				out[canonical] = clampScore(e.Score)
			}
		}
	}
}

func matchCategory(name string) (string, bool) {
	for _, cat := range models.FeedbackCategories {
		if strings.EqualFold(strings.TrimSpace(name), cat) {
			return cat, true
		}
	}
	return "", false
}

func clampScore(score float64) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return int(score)
	}
}
