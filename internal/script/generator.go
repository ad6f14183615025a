package script

import (
	"context"
	"log/slog"
	"strings"

	"github.com/castforge-labs/castforge-core/internal/episodes"
	"github.com/castforge-labs/castforge-core/internal/faults"
	"github.com/castforge-labs/castforge-core/internal/llm"
)

// Generator runs the staged script pipeline: analyze the source blog,
// expand the analysis into debate perspectives, outline the episode, write
// the dialogue, then summarize it for the next episode's callback.
type Generator struct {
	gen llm.Generator
	log *slog.Logger
}

func NewGenerator(gen llm.Generator, log *slog.Logger) *Generator {
	return &Generator{
		gen: gen,
		log: log.With(slog.String("component", "script_generator")),
	}
}

// Generate produces a complete episode from a blog. The returned episode
// has no ID; the caller owns persistence.
func (g *Generator) Generate(ctx context.Context, blog *episodes.Blog, settings episodes.GenerationSettings, previousSummary string) (*episodes.Episode, error) {
	if blog == nil || strings.TrimSpace(blog.Content) == "" {
		return nil, faults.Validation("blog content is empty")
	}
	settings = settings.Normalize()
	minutes := settings.DurationMinutes()
	if previousSummary == "" {
		previousSummary = "This is the first episode!"
	}

	analysis, analysisJSON, err := g.analyze(ctx, blog)
	if err != nil {
		return nil, err
	}
	g.log.Debug("blog analyzed",
		slog.String("blog", blog.ID),
		slog.Int("key_facts", len(analysis.KeyFacts)),
		slog.Int("controversies", len(analysis.ControversyPoint)))

	insights, insightsJSON, err := g.expandInsights(ctx, blog.Title, analysisJSON)
	if err != nil {
		return nil, err
	}

	outline, err := g.generate(ctx, llm.Request{
		Prompt:      outlinePrompt(blog.Title, minutes, settings.HumorLevel, settings.FocusAreas, insightsJSON),
		MaxTokens:   1024,
		Temperature: 0.7,
	}, "outline")
	if err != nil {
		return nil, err
	}

	scriptText, err := g.generate(ctx, llm.Request{
		System:      scriptSystem(),
		Prompt:      scriptPrompt(blog.Title, minutes, settings.HumorLevel, outline, previousSummary),
		MaxTokens:   minutes * 300,
		Temperature: 0.8,
	}, "script")
	if err != nil {
		return nil, err
	}
	if len(ParseScript(scriptText)) == 0 {
		return nil, faults.Upstream("script stage produced no speaker dialogue", nil)
	}

	summary, err := g.generate(ctx, llm.Request{
		Prompt:      summaryPrompt(scriptText),
		MaxTokens:   256,
		Temperature: 0.5,
	}, "summary")
	if err != nil {
		return nil, err
	}

	ep := &episodes.Episode{
		BlogID:           blog.ID,
		Title:            blog.Title,
		Script:           scriptText,
		DurationEstimate: minutes,
		HumorLevel:       settings.HumorLevel,
		FocusAreas:       settings.FocusAreas,
		Summary:          strings.TrimSpace(summary),
		Insights:         insights,
	}
	g.log.Info("script generated",
		slog.String("blog", blog.ID),
		slog.Int("minutes", minutes),
		slog.Int("script_chars", len(scriptText)))
	return ep, nil
}

func (g *Generator) analyze(ctx context.Context, blog *episodes.Blog) (episodes.Analysis, string, error) {
	completion, err := g.generate(ctx, llm.Request{
		System:      analyzeSystem,
		Prompt:      analyzePrompt(blog.Title, blog.Content),
		MaxTokens:   1024,
		Temperature: 0.3,
	}, "analysis")
	if err != nil {
		return episodes.Analysis{}, "", err
	}
	var analysis episodes.Analysis
	if err := decodeStageJSON("analysis", compiledAnalysisSchema, completion, &analysis); err != nil {
		return episodes.Analysis{}, "", err
	}
	return analysis, extractJSONObject(completion), nil
}

func (g *Generator) expandInsights(ctx context.Context, title, analysisJSON string) (episodes.Insights, string, error) {
	completion, err := g.generate(ctx, llm.Request{
		System:      analyzeSystem,
		Prompt:      insightsPrompt(title, analysisJSON),
		MaxTokens:   1024,
		Temperature: 0.5,
	}, "insights")
	if err != nil {
		return episodes.Insights{}, "", err
	}
	var insights episodes.Insights
	if err := decodeStageJSON("insights", compiledInsightsSchema, completion, &insights); err != nil {
		return episodes.Insights{}, "", err
	}
	return insights, extractJSONObject(completion), nil
}

func (g *Generator) generate(ctx context.Context, req llm.Request, stage string) (string, error) {
	out, err := g.gen.Generate(ctx, req)
	if err != nil {
		return "", faults.Upstream(stage+" stage generation failed", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", faults.Upstream(stage+" stage returned an empty completion", nil)
	}
	return out, nil
}
