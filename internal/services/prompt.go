package services

import (
	"fmt"
	"strings"

	"github.com/voxprep/voxprep/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildQuestionPrompt creates the prompt for interview question generation.
// The model must answer with a bare JSON array of question strings.
func (pb *PromptBuilder) BuildQuestionPrompt(amount int, role, level string, techStack []string, focus string) string {
	if level == "" {
		level = "Not specified"
	}
	if focus == "" {
		focus = "Mixed"
	}
	return fmt.Sprintf(`Prepare %d interview questions.

Role: %s
Level: %s
Tech stack: %s
Focus: %s

Return ONLY a valid JSON array like:
["Question 1", "Question 2"]`,
		amount, role, level, strings.Join(techStack, ", "), focus)
}

// BuildFeedbackPrompt creates the scoring prompt from a finished transcript.
// The rubric names exactly five categories; the model must not add others.
func (pb *PromptBuilder) BuildFeedbackPrompt(transcript []models.Turn) string {
	var sb strings.Builder
	for _, t := range transcript {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", t.Speaker, t.Text))
	}

	return fmt.Sprintf(`You are an AI interviewer analyzing a mock interview. Your task is to evaluate the candidate based on structured categories. Be thorough and detailed in your analysis. Don't be lenient with the candidate. If there are mistakes or areas for improvement, point them out.
Transcript:
%s
Please score the candidate from 0 to 100 in the following areas. Do not add categories other than the ones provided:
- **Communication Skills**: Clarity, articulation, structured responses.
- **Technical Knowledge**: Understanding of key concepts for the role.
- **Problem-Solving**: Ability to analyze problems and propose solutions.
- **Cultural & Role Fit**: Alignment with company values and job role.
- **Confidence & Clarity**: Confidence in responses, engagement, and clarity.

Respond with a single JSON object with the fields: totalScore, categoryScores (category name to score), strengths, areasForImprovement, finalAssessment.`,
		sb.String())
}
