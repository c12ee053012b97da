package intent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kaptinlin/jsonrepair"

	"cadence/internal/llm"
	"cadence/internal/logging"
	"cadence/internal/schedule"
	"cadence/internal/schedule/taskdraft"
	"cadence/internal/tokenbudget"
)

const (
	defaultDurationMin = 60
	minDurationMin     = 25
	defaultPriority    = 2

	usiSystemPrompt = `You extract scheduling intents. Reply with exactly one JSON object:
{"goal": string, "durationMin": number, "cadence": {"kind": "once"|"daily"|"weekly"|"every_other_day"|"custom", "daysOfWeek": [string], "interval": number}, "window": string, "startDate": "YYYY-MM-DD", "endDate": "YYYY-MM-DD", "count": number, "timezone": string, "priority": 1|2|3}
Omit fields you cannot infer. No prose.`

	tasksSystemPrompt = `You extract actionable tasks. Reply with exactly one JSON array of objects:
[{"title": string, "description": string, "dueAt": string, "hardDeadline": bool, "effortMinutes": number, "priority": string, "tags": [string], "requiresHuman": bool}]
Return [] when there is nothing actionable. No prose.`
)

// InterpreterConfig tunes the interpreter.
type InterpreterConfig struct {
	Temperature       float64
	MaxTokens         int
	PromptTokenBudget int
	CacheSize         int
	CacheTTL          time.Duration
}

type cacheEntry struct {
	usi      schedule.USI
	storedAt time.Time
}

// FallbackRecorder counts structured extractions that degraded to
// defaults. *observability.MetricsCollector satisfies it.
type FallbackRecorder interface {
	RecordFallback(ctx context.Context)
}

// Interpreter extracts structured scheduling intents through a
// text-completion capability. Every failure path resolves to safe
// defaults; Interpret never returns an error.
type Interpreter struct {
	completer llm.Completer
	cfg       InterpreterConfig
	cache     *lru.Cache[string, cacheEntry]
	fallbacks FallbackRecorder
	logger    logging.Logger
}

// NewInterpreter builds an interpreter. completer may be nil, in which
// case every call resolves to pure defaults. fallbacks may be nil.
// Cache construction failure degrades to an uncached interpreter.
func NewInterpreter(completer llm.Completer, cfg InterpreterConfig, fallbacks FallbackRecorder, logger logging.Logger) *Interpreter {
	logger = logging.OrNop(logger)
	var cache *lru.Cache[string, cacheEntry]
	if cfg.CacheSize > 0 {
		built, err := lru.New[string, cacheEntry](cfg.CacheSize)
		if err != nil {
			logger.Warn("intent cache disabled: %v", err)
		} else {
			cache = built
		}
	}
	return &Interpreter{completer: completer, cfg: cfg, cache: cache, fallbacks: fallbacks, logger: logger}
}

func (i *Interpreter) recordFallback(ctx context.Context) {
	if i.fallbacks != nil {
		i.fallbacks.RecordFallback(ctx)
	}
}

// defaults returns the fully-populated fallback record for a message.
func defaults(message, timezone string) schedule.USI {
	return schedule.USI{
		Goal:        strings.TrimSpace(message),
		DurationMin: defaultDurationMin,
		Cadence:     schedule.Cadence{Kind: schedule.CadenceOnce},
		Timezone:    timezone,
		Priority:    defaultPriority,
	}
}

// Interpret extracts a USI from the message. The result is always
// usable: any missing or malformed field keeps its default.
func (i *Interpreter) Interpret(ctx context.Context, message, timezone string) schedule.USI {
	result := defaults(message, timezone)
	if i.completer == nil {
		return result
	}

	cacheKey := timezone + "\x00" + message
	if i.cache != nil {
		if entry, ok := i.cache.Get(cacheKey); ok {
			if i.cfg.CacheTTL <= 0 || time.Since(entry.storedAt) < i.cfg.CacheTTL {
				return entry.usi
			}
			i.cache.Remove(cacheKey)
		}
	}

	payload := tokenbudget.Truncate(message, i.cfg.PromptTokenBudget)
	resp, err := i.completer.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: usiSystemPrompt},
			{Role: "user", Content: payload + "\n\nCaller timezone: " + timezone},
		},
		Temperature: i.cfg.Temperature,
		MaxTokens:   i.cfg.MaxTokens,
	})
	if err != nil {
		i.logger.Warn("intent extraction failed, using defaults: %v", err)
		i.recordFallback(ctx)
		return result
	}

	var parsed struct {
		Goal        string   `json:"goal"`
		DurationMin *float64 `json:"durationMin"`
		Cadence     *struct {
			Kind       string   `json:"kind"`
			DaysOfWeek []string `json:"daysOfWeek"`
			Interval   *float64 `json:"interval"`
		} `json:"cadence"`
		Window    string   `json:"window"`
		StartDate string   `json:"startDate"`
		EndDate   string   `json:"endDate"`
		Count     *float64 `json:"count"`
		Timezone  string   `json:"timezone"`
		Priority  *float64 `json:"priority"`
	}
	if !decodeLenient(resp.Content, &parsed) {
		i.logger.Warn("intent extraction returned unusable JSON, using defaults")
		i.recordFallback(ctx)
		return result
	}

	if goal := strings.TrimSpace(parsed.Goal); goal != "" {
		result.Goal = goal
	}
	if parsed.DurationMin != nil {
		minutes := int(*parsed.DurationMin)
		if minutes < minDurationMin {
			minutes = minDurationMin
		}
		result.DurationMin = minutes
	}
	if parsed.Cadence != nil {
		if kind := parseCadenceKind(parsed.Cadence.Kind); kind != "" {
			result.Cadence.Kind = kind
		}
		result.Cadence.DaysOfWeek = parsed.Cadence.DaysOfWeek
		if parsed.Cadence.Interval != nil && *parsed.Cadence.Interval > 0 {
			result.Cadence.Interval = int(*parsed.Cadence.Interval)
		}
	}
	result.Window = strings.TrimSpace(parsed.Window)
	result.StartDate = strings.TrimSpace(parsed.StartDate)
	result.EndDate = strings.TrimSpace(parsed.EndDate)
	if parsed.Count != nil && *parsed.Count > 0 {
		result.Count = int(*parsed.Count)
	}
	if tz := strings.TrimSpace(parsed.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			result.Timezone = tz
		}
	}
	if parsed.Priority != nil {
		priority := int(*parsed.Priority)
		if priority >= 1 && priority <= 3 {
			result.Priority = priority
		}
	}

	if i.cache != nil {
		i.cache.Add(cacheKey, cacheEntry{usi: result, storedAt: time.Now()})
	}
	return result
}

// ExtractTasks asks the capability for a task-draft array. Failures and
// malformed output yield an empty slice.
func (i *Interpreter) ExtractTasks(ctx context.Context, message string) []taskdraft.Raw {
	if i.completer == nil {
		return nil
	}
	payload := tokenbudget.Truncate(message, i.cfg.PromptTokenBudget)
	resp, err := i.completer.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: tasksSystemPrompt},
			{Role: "user", Content: payload},
		},
		Temperature: i.cfg.Temperature,
		MaxTokens:   i.cfg.MaxTokens,
	})
	if err != nil {
		i.logger.Warn("task extraction failed: %v", err)
		i.recordFallback(ctx)
		return nil
	}

	var drafts []taskdraft.Raw
	if !decodeLenient(resp.Content, &drafts) {
		i.logger.Warn("task extraction returned unusable JSON")
		i.recordFallback(ctx)
		return nil
	}
	return drafts
}

// decodeLenient parses a completion payload that should contain one
// JSON value, tolerating code fences, leading/trailing prose, and minor
// syntax damage (repaired via jsonrepair).
func decodeLenient(content string, out any) bool {
	candidate := extractJSON(content)
	if candidate == "" {
		return false
	}
	if err := json.Unmarshal([]byte(candidate), out); err == nil {
		return true
	}
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(repaired), out) == nil
}

// extractJSON cuts the first balanced-looking JSON object or array out
// of the content.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	objStart := strings.Index(content, "{")
	arrStart := strings.Index(content, "[")
	start := objStart
	closer := "}"
	if start < 0 || (arrStart >= 0 && arrStart < start) {
		start = arrStart
		closer = "]"
	}
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(content, closer)
	if end <= start {
		// Truncated output; hand the fragment to the repairer.
		return content[start:]
	}
	return content[start : end+1]
}

func parseCadenceKind(raw string) schedule.CadenceKind {
	switch schedule.CadenceKind(strings.ToLower(strings.TrimSpace(raw))) {
	case schedule.CadenceOnce:
		return schedule.CadenceOnce
	case schedule.CadenceDaily:
		return schedule.CadenceDaily
	case schedule.CadenceWeekly:
		return schedule.CadenceWeekly
	case schedule.CadenceEveryOtherDay:
		return schedule.CadenceEveryOtherDay
	case schedule.CadenceCustom:
		return schedule.CadenceCustom
	default:
		return ""
	}
}
