package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"go-easyapply-automation/internal/models"
)

const chatURL = "https://api.groq.com/openai/v1/chat/completions"

// maximum answer length written into a form field
const maxAnswerLen = 500

// AnswerClient implements AnswerOracle on an OpenAI-compatible chat
// endpoint. FAQ entries from the user's profile take priority over
// generated text and carry their provenance ref.
type AnswerClient struct {
	apiKey              string
	model               string
	confidenceThreshold float64
	httpClient          *http.Client
}

func NewAnswerClient(apiKey string, confidenceThreshold float64) *AnswerClient {
	return &AnswerClient{
		apiKey:              apiKey,
		model:               "llama-3.3-70b-versatile",
		confidenceThreshold: confidenceThreshold,
		httpClient:          &http.Client{},
	}
}

func (c *AnswerClient) Ready() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type generatedAnswer struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// GenerateAnswers returns one Answer per question. Questions the model
// cannot answer (or a failed call entirely) come back with NeedsReview
// set and empty answer text instead of an error per question.
func (c *AnswerClient) GenerateAnswers(ctx context.Context, user *models.User, job *models.JobListing, questions []string) ([]models.Answer, error) {
	var profile models.Profile
	if len(user.ProfileJSON) > 0 {
		if err := json.Unmarshal(user.ProfileJSON, &profile); err != nil {
			return nil, fmt.Errorf("failed to parse user profile: %w", err)
		}
	}

	answers := make([]models.Answer, 0, len(questions))
	var remaining []string

	//FAQ entries win over generation
	for _, q := range questions {
		if entry := matchFAQ(profile.FAQ, q); entry != nil {
			answers = append(answers, models.Answer{
				Question:   q,
				Answer:     truncate(entry.Answer, maxAnswerLen),
				Refs:       []string{entry.Ref},
				Confidence: 1,
			})
			continue
		}
		remaining = append(remaining, q)
	}

	if len(remaining) == 0 {
		return answers, nil
	}

	generated, err := c.generate(ctx, &profile, job, remaining)
	if err != nil {
		//a failed call still yields one reviewable entry per question
		for _, q := range remaining {
			answers = append(answers, models.Answer{Question: q, NeedsReview: true})
		}
		return answers, nil
	}

	byQuestion := make(map[string]generatedAnswer, len(generated))
	for _, g := range generated {
		byQuestion[strings.ToLower(strings.TrimSpace(g.Question))] = g
	}

	for _, q := range remaining {
		g, ok := byQuestion[strings.ToLower(strings.TrimSpace(q))]
		if !ok || strings.TrimSpace(g.Answer) == "" {
			answers = append(answers, models.Answer{Question: q, NeedsReview: true})
			continue
		}
		answers = append(answers, models.Answer{
			Question:    q,
			Answer:      truncate(g.Answer, maxAnswerLen),
			Refs:        []string{"generated"},
			Confidence:  g.Confidence,
			NeedsReview: g.Confidence < c.confidenceThreshold,
		})
	}

	return answers, nil
}

func matchFAQ(faq []models.FAQEntry, question string) *models.FAQEntry {
	q := strings.ToLower(strings.TrimSpace(question))
	for i := range faq {
		f := strings.ToLower(strings.TrimSpace(faq[i].Question))
		if f == "" {
			continue
		}
		if strings.Contains(q, f) || strings.Contains(f, q) {
			return &faq[i]
		}
	}
	return nil
}

func (c *AnswerClient) generate(ctx context.Context, profile *models.Profile, job *models.JobListing, questions []string) ([]generatedAnswer, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: buildSystemPrompt(),
			},
			{
				Role:    "user",
				Content: buildUserPrompt(profile, job, questions),
			},
		},
		Temperature: 0.3, // Low temperature for consistency
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", chatURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from chat API")
	}

	// Clean the response from potential markdown wrappers
	cleanedJSON := cleanMarkdownJSON(chatResp.Choices[0].Message.Content)

	var generated []generatedAnswer
	if err := json.Unmarshal([]byte(cleanedJSON), &generated); err != nil {
		return nil, fmt.Errorf("failed to unmarshal AI response (raw length: %d): %w", len(cleanedJSON), err)
	}

	return generated, nil
}

// buildSystemPrompt creates the system instruction for the AI model
func buildSystemPrompt() string {
	return `You are filling out job application forms on behalf of a candidate.
I will provide the candidate's profile as JSON, a target job posting, and a list of application questions.

Task:
1. Answer each question truthfully based ONLY on the profile. Never invent experience, visa status, or certifications.
2. Keep each answer short and form-friendly. For yes/no questions answer exactly "Yes" or "No". For numeric questions answer with the number only.
3. Rate your confidence for each answer between 0 and 1. Use a LOW confidence when the profile does not clearly support the answer.
4. Return ONLY a raw JSON array of objects with keys "question", "answer", "confidence". Do NOT wrap the JSON in markdown blocks. Output starts with [ and ends with ].`
}

// buildUserPrompt creates the user message combining profile, job and questions
func buildUserPrompt(profile *models.Profile, job *models.JobListing, questions []string) string {
	profileJSON, _ := json.Marshal(profile)
	return fmt.Sprintf("Candidate Profile (JSON):\n%s\n\nJob: %s at %s\n%s\n\nQuestions:\n- %s",
		string(profileJSON), job.Title, job.Company, job.Description, strings.Join(questions, "\n- "))
}

// cleanMarkdownJSON removes backticks and "json" prefix if the AI model tries to be helpful
func cleanMarkdownJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	//back off to a rune boundary so the cut never splits a character
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
