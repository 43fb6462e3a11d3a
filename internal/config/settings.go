package config

import (
	"fmt"
	"time"
)

// Settings is the effective configuration of a single answer call.
// It is assembled once per call by Resolve and never mutated afterwards.
type Settings struct {
	// Provider selection
	EmbeddingModel   string
	EmbeddingAPIBase string
	ChatModel        string
	ChatAPIBase      string
	ProviderTimeout  time.Duration

	// Generation parameters
	Temperature      float32
	MaxTokens        int
	TopP             *float32
	PresencePenalty  *float32
	FrequencyPenalty *float32

	// Retrieval
	TopK               int
	MinPoolSize        int
	FallbackScanLimit  int
	LexicalRecallScore float64
	FollowupScore      float64
	ContextCharBudget  int

	// Scoring
	MinScore        float64
	MetaFloorFactor float64
	LexBoost        float64
	MetaLexBoost    float64
	NoisePenalty    float64
	NoiseMarkers    []string
	NumericMinHits  int

	// Reranking
	FirstPositionBonus float64
	DiversityBonus     float64
	DiversityWindow    int
	EntityBonus        float64
	EntityPenalty      float64

	// Confidence gate
	StrictMode            bool
	ConfidenceMin         float64
	ConfidenceMinEvidence int
	ConfidenceWindow      int
	SemanticWeight        float64
	LexicalCap            int

	// Verification
	SentenceCoverageMin float64
	AnswerCoverageMin   float64
	MaxFallbackFacts    int
	StyleRewrite        bool

	// Citations
	LineRefs     bool
	MaxLineRefs  int
	ExcerptChars int

	// Dialog cache
	DialogCacheChunks   int
	DialogCacheKeywords int

	// Fixed replies
	RefusalMessage string
	GreetingReply  string
}

// DefaultSettings returns the built-in defaults. Every threshold can be
// overridden per tenant and per call.
func DefaultSettings() Settings {
	return Settings{
		ProviderTimeout: 30 * time.Second,

		Temperature: 0.2,
		MaxTokens:   700,

		TopK:               5,
		MinPoolSize:        50,
		FallbackScanLimit:  5000,
		LexicalRecallScore: 0.2,
		FollowupScore:      0.3,
		ContextCharBudget:  6000,

		MinScore:        0.25,
		MetaFloorFactor: 0.25,
		LexBoost:        0.15,
		MetaLexBoost:    0.1,
		NoisePenalty:    0.35,
		NoiseMarkers:    DefaultNoiseMarkers(),
		NumericMinHits:  1,

		FirstPositionBonus: 0.03,
		DiversityBonus:     0.02,
		DiversityWindow:    3,
		EntityBonus:        0.2,
		EntityPenalty:      0.3,

		StrictMode:            true,
		ConfidenceMin:         0.35,
		ConfidenceMinEvidence: 1,
		ConfidenceWindow:      6,
		SemanticWeight:        0.6,
		LexicalCap:            3,

		SentenceCoverageMin: 0.5,
		AnswerCoverageMin:   0.5,
		MaxFallbackFacts:    3,

		MaxLineRefs:  3,
		ExcerptChars: 240,

		DialogCacheChunks:   10,
		DialogCacheKeywords: 20,

		RefusalMessage: "I could not find this in the knowledge base.",
		GreetingReply:  "Hello! Ask me anything about the knowledge base.",
	}
}

// DefaultNoiseMarkers lists phrasing typical for ads, jingles and filler in
// transcribed media.
func DefaultNoiseMarkers() []string {
	return []string{
		"jingle",
		"subscribe to",
		"like and subscribe",
		"promo code",
		"sponsored by",
		"advertisement",
		"реклама",
		"промокод",
		"подписывайтесь",
		"ставьте лайк",
	}
}

// PoolSize is the number of nearest neighbours requested from retrieval.
func (s Settings) PoolSize() int {
	if n := 8 * s.TopK; n > s.MinPoolSize {
		return n
	}
	return s.MinPoolSize
}

// Overrides holds optional tenant settings. A nil field leaves the lower
// layer untouched. Provider endpoints and models are only settable here.
type Overrides struct {
	EmbeddingModel   *string  `yaml:"embedding_model" json:"embedding_model,omitempty"`
	EmbeddingAPIBase *string  `yaml:"embedding_api_base" json:"embedding_api_base,omitempty"`
	ChatModel        *string  `yaml:"chat_model" json:"chat_model,omitempty"`
	ChatAPIBase      *string  `yaml:"chat_api_base" json:"chat_api_base,omitempty"`
	TimeoutSeconds   *int     `yaml:"timeout_seconds" json:"timeout_seconds,omitempty"`
	Temperature      *float32 `yaml:"temperature" json:"temperature,omitempty"`
	MaxTokens        *int     `yaml:"max_tokens" json:"max_tokens,omitempty"`
	TopP             *float32 `yaml:"top_p" json:"top_p,omitempty"`
	PresencePenalty  *float32 `yaml:"presence_penalty" json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32 `yaml:"frequency_penalty" json:"frequency_penalty,omitempty"`

	TopK              *int     `yaml:"top_k" json:"top_k,omitempty"`
	ContextCharBudget *int     `yaml:"context_char_budget" json:"context_char_budget,omitempty"`
	MinScore          *float64 `yaml:"min_score" json:"min_score,omitempty"`
	LexBoost          *float64 `yaml:"lex_boost" json:"lex_boost,omitempty"`
	MetaLexBoost      *float64 `yaml:"meta_lex_boost" json:"meta_lex_boost,omitempty"`
	NoisePenalty      *float64 `yaml:"noise_penalty" json:"noise_penalty,omitempty"`
	NoiseMarkers      []string `yaml:"noise_markers" json:"noise_markers,omitempty"`

	StrictMode            *bool    `yaml:"strict_mode" json:"strict_mode,omitempty"`
	ConfidenceMin         *float64 `yaml:"confidence_min" json:"confidence_min,omitempty"`
	ConfidenceMinEvidence *int     `yaml:"confidence_min_evidence" json:"confidence_min_evidence,omitempty"`
	SentenceCoverageMin   *float64 `yaml:"sentence_coverage_min" json:"sentence_coverage_min,omitempty"`
	AnswerCoverageMin     *float64 `yaml:"answer_coverage_min" json:"answer_coverage_min,omitempty"`
	StyleRewrite          *bool    `yaml:"style_rewrite" json:"style_rewrite,omitempty"`
	LineRefs              *bool    `yaml:"line_refs" json:"line_refs,omitempty"`

	RefusalMessage *string `yaml:"refusal_message" json:"refusal_message,omitempty"`
	GreetingReply  *string `yaml:"greeting_reply" json:"greeting_reply,omitempty"`
}

// CallOverrides are the settings a single request may change. Provider
// endpoints, model ids and timeouts are absent: the provider credential is
// only ever sent to hosts chosen by the operator or the tenant file.
type CallOverrides struct {
	Temperature      *float32 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	TopP             *float32 `json:"top_p,omitempty"`
	PresencePenalty  *float32 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float32 `json:"frequency_penalty,omitempty"`

	TopK              *int     `json:"top_k,omitempty"`
	ContextCharBudget *int     `json:"context_char_budget,omitempty"`
	MinScore          *float64 `json:"min_score,omitempty"`
	LexBoost          *float64 `json:"lex_boost,omitempty"`
	MetaLexBoost      *float64 `json:"meta_lex_boost,omitempty"`
	NoisePenalty      *float64 `json:"noise_penalty,omitempty"`
	NoiseMarkers      []string `json:"noise_markers,omitempty"`

	StrictMode            *bool    `json:"strict_mode,omitempty"`
	ConfidenceMin         *float64 `json:"confidence_min,omitempty"`
	ConfidenceMinEvidence *int     `json:"confidence_min_evidence,omitempty"`
	SentenceCoverageMin   *float64 `json:"sentence_coverage_min,omitempty"`
	AnswerCoverageMin     *float64 `json:"answer_coverage_min,omitempty"`
	StyleRewrite          *bool    `json:"style_rewrite,omitempty"`
	LineRefs              *bool    `json:"line_refs,omitempty"`

	RefusalMessage *string `json:"refusal_message,omitempty"`
	GreetingReply  *string `json:"greeting_reply,omitempty"`
}

// Layer returns c as a resolve layer. A nil receiver yields nil.
func (c *CallOverrides) Layer() *Overrides {
	if c == nil {
		return nil
	}
	return &Overrides{
		Temperature:      c.Temperature,
		MaxTokens:        c.MaxTokens,
		TopP:             c.TopP,
		PresencePenalty:  c.PresencePenalty,
		FrequencyPenalty: c.FrequencyPenalty,

		TopK:              c.TopK,
		ContextCharBudget: c.ContextCharBudget,
		MinScore:          c.MinScore,
		LexBoost:          c.LexBoost,
		MetaLexBoost:      c.MetaLexBoost,
		NoisePenalty:      c.NoisePenalty,
		NoiseMarkers:      c.NoiseMarkers,

		StrictMode:            c.StrictMode,
		ConfidenceMin:         c.ConfidenceMin,
		ConfidenceMinEvidence: c.ConfidenceMinEvidence,
		SentenceCoverageMin:   c.SentenceCoverageMin,
		AnswerCoverageMin:     c.AnswerCoverageMin,
		StyleRewrite:          c.StyleRewrite,
		LineRefs:              c.LineRefs,

		RefusalMessage: c.RefusalMessage,
		GreetingReply:  c.GreetingReply,
	}
}

// Resolve layers overrides on top of base in order. Later layers win.
// Base is passed by value, so callers' copies are never modified.
func Resolve(base Settings, layers ...*Overrides) (Settings, error) {
	s := base
	s.NoiseMarkers = append([]string(nil), base.NoiseMarkers...)
	for _, o := range layers {
		if o == nil {
			continue
		}
		o.apply(&s)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (o *Overrides) apply(s *Settings) {
	setString(&s.EmbeddingModel, o.EmbeddingModel)
	setString(&s.EmbeddingAPIBase, o.EmbeddingAPIBase)
	setString(&s.ChatModel, o.ChatModel)
	setString(&s.ChatAPIBase, o.ChatAPIBase)
	if o.TimeoutSeconds != nil {
		s.ProviderTimeout = time.Duration(*o.TimeoutSeconds) * time.Second
	}
	if o.Temperature != nil {
		s.Temperature = *o.Temperature
	}
	setInt(&s.MaxTokens, o.MaxTokens)
	if o.TopP != nil {
		v := *o.TopP
		s.TopP = &v
	}
	if o.PresencePenalty != nil {
		v := *o.PresencePenalty
		s.PresencePenalty = &v
	}
	if o.FrequencyPenalty != nil {
		v := *o.FrequencyPenalty
		s.FrequencyPenalty = &v
	}

	setInt(&s.TopK, o.TopK)
	setInt(&s.ContextCharBudget, o.ContextCharBudget)
	setFloat(&s.MinScore, o.MinScore)
	setFloat(&s.LexBoost, o.LexBoost)
	setFloat(&s.MetaLexBoost, o.MetaLexBoost)
	setFloat(&s.NoisePenalty, o.NoisePenalty)
	if o.NoiseMarkers != nil {
		s.NoiseMarkers = append([]string(nil), o.NoiseMarkers...)
	}

	setBool(&s.StrictMode, o.StrictMode)
	setFloat(&s.ConfidenceMin, o.ConfidenceMin)
	setInt(&s.ConfidenceMinEvidence, o.ConfidenceMinEvidence)
	setFloat(&s.SentenceCoverageMin, o.SentenceCoverageMin)
	setFloat(&s.AnswerCoverageMin, o.AnswerCoverageMin)
	setBool(&s.StyleRewrite, o.StyleRewrite)
	setBool(&s.LineRefs, o.LineRefs)

	setString(&s.RefusalMessage, o.RefusalMessage)
	setString(&s.GreetingReply, o.GreetingReply)
}

// Validate reports settings that would make the pipeline misbehave.
// Missing model names are not an error here; the engine maps them to error codes.
func (s Settings) Validate() error {
	if s.TopK <= 0 {
		return fmt.Errorf("top_k must be greater than 0, got %d", s.TopK)
	}
	if s.MinScore >= 1 {
		return fmt.Errorf("min_score must be below 1, got %v", s.MinScore)
	}
	if s.ProviderTimeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}
	if s.ContextCharBudget <= 0 {
		return fmt.Errorf("context_char_budget must be greater than 0")
	}
	if s.ConfidenceMin < 0 || s.ConfidenceMin > 1 {
		return fmt.Errorf("confidence_min must be within [0, 1], got %v", s.ConfidenceMin)
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
