package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"google.golang.org/genai"

	"justbecause/internal/taxonomy"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
)

// DraftRequest describes the project an NGO wants a description for.
type DraftRequest struct {
	Title  string
	Skills []string
	Causes []string
	Notes  string
	Locale string
}

// Provider writes project copy and picks skills out of free text.
type Provider interface {
	Name() string
	Draft(ctx context.Context, req DraftRequest) (string, error)
	// SuggestSkills returns subskill ids; callers filter them against the taxonomy.
	SuggestSkills(ctx context.Context, text string) ([]string, error)
}

// StaticProvider works offline from templates and keyword matching.
type StaticProvider struct {
	taxonomy *taxonomy.Taxonomy
}

func NewStaticProvider(tax *taxonomy.Taxonomy) *StaticProvider {
	return &StaticProvider{taxonomy: tax}
}

func (p *StaticProvider) Name() string { return staticProviderName }

var staticTemplates = map[string]string{
	"en": "%s\n\nWe are looking for a volunteer to help us with %s. The work supports our focus on %s.%s\n\nTell us about similar work you have done and how many hours a week you can give.",
	"hi": "%s\n\nहमें %s में मदद के लिए एक स्वयंसेवक की तलाश है। यह काम %s पर हमारे ध्यान को आगे बढ़ाता है।%s\n\nहमें अपने समान अनुभव और प्रति सप्ताह दिए जा सकने वाले घंटों के बारे में बताएं।",
}

func (p *StaticProvider) Draft(_ context.Context, req DraftRequest) (string, error) {
	tmpl, ok := staticTemplates[req.Locale]
	if !ok {
		tmpl = staticTemplates["en"]
	}
	tag, err := language.Parse(req.Locale)
	if err != nil {
		tag = language.English
	}
	title := cases.Title(tag).String(strings.TrimSpace(req.Title))
	skills := humanList(req.Skills, "this project")
	causes := humanList(req.Causes, "our mission")
	notes := strings.TrimSpace(req.Notes)
	if notes != "" {
		notes = "\n\n" + notes
	}
	return fmt.Sprintf(tmpl, title, skills, causes, notes), nil
}

func (p *StaticProvider) SuggestSkills(_ context.Context, text string) ([]string, error) {
	var out []string
	for _, sk := range p.taxonomy.Match(text) {
		out = append(out, sk.Subskill)
	}
	return out, nil
}

func humanList(items []string, fallback string) string {
	var clean []string
	for _, it := range items {
		if it = strings.TrimSpace(strings.ReplaceAll(it, "-", " ")); it != "" {
			clean = append(clean, it)
		}
	}
	switch len(clean) {
	case 0:
		return fallback
	case 1:
		return clean[0]
	}
	return strings.Join(clean[:len(clean)-1], ", ") + " and " + clean[len(clean)-1]
}

// GeminiProvider calls Gemini and falls back to the static provider whenever
// the call or its output is unusable.
type GeminiProvider struct {
	client   *genai.Client
	model    string
	fallback Provider
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, fallback Provider) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiProvider{client: client, model: model, fallback: fallback}, nil
}

func (g *GeminiProvider) Name() string { return geminiProviderName }

func (g *GeminiProvider) Draft(ctx context.Context, req DraftRequest) (string, error) {
	text, err := g.generate(ctx, buildDraftPrompt(req), "text/plain", 0.7)
	if err != nil || strings.TrimSpace(text) == "" {
		return g.fallback.Draft(ctx, req)
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiProvider) SuggestSkills(ctx context.Context, text string) ([]string, error) {
	raw, err := g.generate(ctx, buildSkillsPrompt(text), "application/json", 0.1)
	if err != nil {
		return g.fallback.SuggestSkills(ctx, text)
	}
	ids, err := parseSkillIDs(raw)
	if err != nil || len(ids) == 0 {
		return g.fallback.SuggestSkills(ctx, text)
	}
	return ids, nil
}

func (g *GeminiProvider) generate(ctx context.Context, prompt, mime string, temperature float32) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(temperature),
		ResponseMIMEType: mime,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

func buildDraftPrompt(req DraftRequest) string {
	sb := &strings.Builder{}
	sb.WriteString("You write volunteer opportunity descriptions for nonprofits. ")
	fmt.Fprintf(sb, "Write in locale %q, plain text, at most 180 words, no markdown headings. ", req.Locale)
	fmt.Fprintf(sb, "Project title: %q. Skills needed: %q. Causes: %q. Extra notes from the organisation: %q. ",
		req.Title, strings.Join(req.Skills, ", "), strings.Join(req.Causes, ", "), req.Notes)
	sb.WriteString("End by inviting volunteers to describe relevant experience and weekly availability.")
	return sb.String()
}

func buildSkillsPrompt(text string) string {
	sb := &strings.Builder{}
	sb.WriteString("Pick the volunteer skills this text asks for. Respond strictly as JSON: ")
	sb.WriteString(`{"skills":[string]}`)
	sb.WriteString(" using lowercase hyphenated skill ids such as web-development, grant-writing or social-media. Text: ")
	fmt.Fprintf(sb, "%q", text)
	return sb.String()
}

func parseSkillIDs(raw string) ([]string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, errors.New("no json object in response")
	}
	var payload struct {
		Skills []string `json:"skills"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return nil, err
	}
	return payload.Skills, nil
}
