// Package episodes holds the content records productions are built from:
// source blogs and the generated episodes with their scripts. The stores
// are process-local, matching the deployment this daemon targets.
package episodes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/castforge-labs/castforge-core/internal/faults"
)

// Blog is a long-form source article.
type Blog struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis is the structured outcome of the blog-analysis stage. It
// crosses the text-generation boundary and is schema-validated before it
// lands here.
type Analysis struct {
	KeyFacts         []string `json:"key_facts"`
	MainArguments    []string `json:"main_arguments"`
	Stakeholders     []string `json:"stakeholders"`
	ControversyPoint []string `json:"controversy_points"`
	RegulatoryHooks  []string `json:"regulatory_hooks"`
}

// Insights carries the research-expansion stage output.
type Insights struct {
	Utilities       []string `json:"utilities,omitempty"`
	Consumers       []string `json:"consumers,omitempty"`
	Startups        []string `json:"startups,omitempty"`
	Regulatory      []string `json:"regulatory,omitempty"`
	ExpertQuestions []string `json:"expert_questions,omitempty"`
}

// GenerationSettings tunes a script-generation run.
type GenerationSettings struct {
	Duration   string   `json:"duration"` // short, medium, long
	HumorLevel int      `json:"humor_level"`
	FocusAreas []string `json:"focus_areas,omitempty"`
}

// DurationMinutes maps the nominal duration to target minutes.
func (g GenerationSettings) DurationMinutes() int {
	switch g.Duration {
	case "short":
		return 10
	case "long":
		return 30
	default:
		return 20
	}
}

// Normalize fills defaults and clamps the humor level into range.
func (g GenerationSettings) Normalize() GenerationSettings {
	if g.Duration == "" {
		g.Duration = "medium"
	}
	if g.HumorLevel < 1 {
		g.HumorLevel = 3
	}
	if g.HumorLevel > 5 {
		g.HumorLevel = 5
	}
	return g
}

// Episode is a generated podcast script plus its metadata.
type Episode struct {
	ID               string    `json:"id"`
	BlogID           string    `json:"blog_id"`
	Title            string    `json:"title"`
	Script           string    `json:"script"`
	DurationEstimate int       `json:"duration_estimate"`
	HumorLevel       int       `json:"humor_level"`
	FocusAreas       []string  `json:"focus_areas,omitempty"`
	Summary          string    `json:"summary,omitempty"`
	Insights         Insights  `json:"insights"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewID mints an opaque record identifier.
func NewID() string { return uuid.NewString() }

// BlogStore keeps source blogs in memory.
type BlogStore struct {
	mu    sync.RWMutex
	blogs map[string]*Blog
}

func NewBlogStore() *BlogStore {
	return &BlogStore{blogs: make(map[string]*Blog)}
}

func (s *BlogStore) Put(_ context.Context, blog *Blog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if blog.ID == "" {
		blog.ID = NewID()
	}
	if blog.CreatedAt.IsZero() {
		blog.CreatedAt = time.Now().UTC()
	}
	copied := *blog
	s.blogs[blog.ID] = &copied
	return nil
}

func (s *BlogStore) Get(_ context.Context, id string) (*Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blog, ok := s.blogs[id]
	if !ok {
		return nil, faults.NotFound("blog %s not found", id)
	}
	copied := *blog
	return &copied, nil
}

func (s *BlogStore) List(_ context.Context) []*Blog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Blog, 0, len(s.blogs))
	for _, blog := range s.blogs {
		copied := *blog
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *BlogStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blogs[id]; !ok {
		return faults.NotFound("blog %s not found", id)
	}
	delete(s.blogs, id)
	return nil
}

// EpisodeStore keeps generated episodes in memory.
type EpisodeStore struct {
	mu       sync.RWMutex
	episodes map[string]*Episode
}

func NewEpisodeStore() *EpisodeStore {
	return &EpisodeStore{episodes: make(map[string]*Episode)}
}

func (s *EpisodeStore) Put(_ context.Context, ep *Episode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if ep.ID == "" {
		ep.ID = NewID()
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = now
	}
	ep.UpdatedAt = now
	copied := *ep
	s.episodes[ep.ID] = &copied
	return nil
}

func (s *EpisodeStore) Get(_ context.Context, id string) (*Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ep, ok := s.episodes[id]
	if !ok {
		return nil, faults.NotFound("episode %s not found", id)
	}
	copied := *ep
	return &copied, nil
}

func (s *EpisodeStore) List(_ context.Context) []*Episode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Episode, 0, len(s.episodes))
	for _, ep := range s.episodes {
		copied := *ep
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *EpisodeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.episodes[id]; !ok {
		return faults.NotFound("episode %s not found", id)
	}
	delete(s.episodes, id)
	return nil
}

// ScriptFor returns the stored script text for an episode, letting the
// store act as a production script source.
func (s *EpisodeStore) ScriptFor(ctx context.Context, id string) (string, error) {
	ep, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return ep.Script, nil
}

// LatestSummary returns the most recent episode's callback summary, or a
// first-episode placeholder when none exists yet.
func (s *EpisodeStore) LatestSummary(_ context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *Episode
	for _, ep := range s.episodes {
		if latest == nil || ep.CreatedAt.After(latest.CreatedAt) {
			latest = ep
		}
	}
	if latest == nil || latest.Summary == "" {
		return "This is the first episode!"
	}
	return latest.Summary
}
