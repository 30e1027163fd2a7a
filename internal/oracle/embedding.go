package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"

	"go-easyapply-automation/internal/models"
)

const embeddingsURL = "https://api.groq.com/openai/v1/embeddings"

// EmbeddingScorer implements ScoringOracle against an OpenAI-compatible
// embeddings endpoint. Resume segment vectors are embedded once per user
// and cached for the process lifetime.
type EmbeddingScorer struct {
	apiKey     string
	model      string
	blacklist  []string
	httpClient *http.Client

	mu       sync.Mutex
	segCache map[string][][]float64
}

func NewEmbeddingScorer(apiKey string, blacklist []string) *EmbeddingScorer {
	return &EmbeddingScorer{
		apiKey:     apiKey,
		model:      "nomic-embed-text-v1.5",
		blacklist:  blacklist,
		httpClient: &http.Client{},
		segCache:   make(map[string][][]float64),
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ScoreJob returns the max cosine similarity between the job description
// embedding and any resume segment embedding. Blacklisted companies score
// with confidence forced to 0.
func (s *EmbeddingScorer) ScoreJob(ctx context.Context, user *models.User, job *models.JobListing) (Score, error) {
	if s.isBlacklisted(job.Company) {
		return Score{Similarity: 0, Blacklisted: true, Confidence: 0}, nil
	}

	segVecs, err := s.segmentVectors(ctx, user)
	if err != nil {
		return Score{}, err
	}

	//no resume segments means no basis for similarity
	if len(segVecs) == 0 {
		return Score{Similarity: 0, Confidence: 0}, nil
	}

	jobVecs, err := s.embed(ctx, []string{job.Description})
	if err != nil {
		return Score{}, err
	}
	if len(jobVecs) == 0 {
		return Score{}, fmt.Errorf("embeddings API returned no vector for job description")
	}

	best := 0.0
	for _, seg := range segVecs {
		if sim := CosineSimilarity(jobVecs[0], seg); sim > best {
			best = sim
		}
	}

	return Score{Similarity: best, Confidence: best}, nil
}

func (s *EmbeddingScorer) isBlacklisted(company string) bool {
	c := strings.ToLower(strings.TrimSpace(company))
	for _, b := range s.blacklist {
		if b == "" {
			continue
		}
		if strings.Contains(c, strings.ToLower(b)) {
			return true
		}
	}
	return false
}

func (s *EmbeddingScorer) segmentVectors(ctx context.Context, user *models.User) ([][]float64, error) {
	s.mu.Lock()
	cached, ok := s.segCache[user.ID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	if len(user.ResumeSegments) == 0 {
		return nil, nil
	}

	vecs, err := s.embed(ctx, user.ResumeSegments)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.segCache[user.ID] = vecs
	s.mu.Unlock()
	return vecs, nil
}

func (s *EmbeddingScorer) embed(ctx context.Context, input []string) ([][]float64, error) {
	reqBody := embeddingRequest{
		Model: s.model,
		Input: input,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", embeddingsURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(bodyBytes, &embResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if embResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", embResp.Error.Message)
	}

	vecs := make([][]float64, 0, len(embResp.Data))
	for _, d := range embResp.Data {
		vecs = append(vecs, d.Embedding)
	}
	return vecs, nil
}

// CosineSimilarity returns 0 for mismatched lengths or zero-norm vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
