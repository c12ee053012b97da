// Package pipeline composes the focus classifier, importance scorer,
// temporal parser, and scheduling fitter into the draft-generation
// pass: gate, extract, filter, deduplicate, space, emit. The pass is a pure function of its
// inputs and the reference instant; malformed individual signals are
// skipped, never fatal.
package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"

	"cadence/internal/logging"
	"cadence/internal/observability"
	"cadence/internal/schedule"
	"cadence/internal/schedule/fitting"
	"cadence/internal/schedule/focus"
	"cadence/internal/schedule/importance"
	"cadence/internal/schedule/temporal"
	"cadence/internal/textutil"
)

// Merge reasons recorded on dedup survivors.
const (
	ReasonMergedDup   = "merged-dup"
	ReasonNamedPerson = "named person"
	ReasonWithin7Days = "within 7 days"
)

// Config holds the pipeline thresholds.
type Config struct {
	FocusThreshold  float64
	MergeWindow     time.Duration
	MinGap          time.Duration
	DefaultDuration time.Duration
	MaxParallel     int
	// NearIdenticalScore is the title similarity above which two
	// candidates count as the same subject.
	NearIdenticalScore float64
	// ImportanceRescue keeps a signal that falls below the focus
	// threshold when its importance score reaches this level.
	ImportanceRescue float64
}

// DefaultConfig mirrors the production thresholds.
func DefaultConfig() Config {
	return Config{
		FocusThreshold:     0.6,
		MergeWindow:        45 * time.Minute,
		MinGap:             10 * time.Minute,
		DefaultDuration:    30 * time.Minute,
		MaxParallel:        4,
		NearIdenticalScore: 0.8,
		ImportanceRescue:   0.75,
	}
}

// Options parameterizes one Generate call.
type Options struct {
	UserTZ string
	// Now is the reference instant; the zero value means the wall clock.
	Now time.Time
}

// Pipeline is the draft-generation orchestrator.
type Pipeline struct {
	cfg        Config
	classifier *focus.Classifier
	scorer     *importance.Scorer
	parser     *temporal.Parser
	sim        textutil.Similarity
	metrics    *observability.MetricsCollector
	logger     logging.Logger
}

// New wires the pipeline. sim may be nil (token-set Jaccard), metrics
// may be nil (no recording), scorer may be nil (no contact allow-list).
func New(cfg Config, classifier *focus.Classifier, scorer *importance.Scorer, parser *temporal.Parser, sim textutil.Similarity, metrics *observability.MetricsCollector, logger logging.Logger) *Pipeline {
	if cfg.MergeWindow <= 0 {
		cfg.MergeWindow = DefaultConfig().MergeWindow
	}
	if cfg.MinGap < 0 {
		cfg.MinGap = DefaultConfig().MinGap
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultConfig().MaxParallel
	}
	if cfg.NearIdenticalScore <= 0 {
		cfg.NearIdenticalScore = DefaultConfig().NearIdenticalScore
	}
	if sim == nil {
		sim = textutil.Jaccard{}
	}
	if cfg.ImportanceRescue <= 0 {
		cfg.ImportanceRescue = DefaultConfig().ImportanceRescue
	}
	if classifier == nil {
		classifier = focus.NewClassifier(cfg.FocusThreshold, nil)
	}
	if scorer == nil {
		scorer = importance.NewScorer(nil)
	}
	if parser == nil {
		parser = temporal.NewParser(cfg.DefaultDuration)
	}
	return &Pipeline{
		cfg:        cfg,
		classifier: classifier,
		scorer:     scorer,
		parser:     parser,
		sim:        sim,
		metrics:    metrics,
		logger:     logging.OrNop(logger),
	}
}

// Event-specific spam lexicon, applied on top of the focus gate.
var (
	discountPattern = regexp.MustCompile(`\b\d{1,3}\s*%`)
	bulkBrands      = []string{"mcafee", "norton", "lifelock", "groupon", "coupon"}
	signupVocab     = []string{"sign up", "signup", "register now", "join the waitlist"}
	concreteTime    = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?\s*(am|pm)\b|\b\d{1,2}:\d{2}\b`)
)

type candidate struct {
	index  int
	signal schedule.Signal
	rng    temporal.Range
	eval   schedule.FocusEval
	merged []string
}

// Generate runs the full pass over a signal batch.
func (p *Pipeline) Generate(ctx context.Context, signals []schedule.Signal, opts Options) schedule.PipelineResult {
	started := time.Now()
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	if p.metrics != nil {
		p.metrics.RecordSignals(ctx, len(signals))
		defer func() {
			p.metrics.RecordBatchLatency(ctx, time.Since(started))
		}()
	}

	gated := p.gate(ctx, signals, now)
	candidates := p.extract(ctx, gated, now, opts.UserTZ)
	candidates = p.filterPast(ctx, candidates, now)
	candidates = p.deduplicate(ctx, candidates, now)
	events := p.space(candidates, opts.UserTZ)

	if p.metrics != nil {
		p.metrics.RecordEmitted(ctx, len(events))
	}
	return emit(events, signals)
}

type gatedSignal struct {
	index  int
	signal schedule.Signal
	eval   schedule.FocusEval
}

// gate drops signals failing the focus classifier or matching the
// event spam lexicon. A signal below the focus threshold survives when
// its importance reaches the rescue level; its retention reason is
// then the importance verdict.
func (p *Pipeline) gate(ctx context.Context, signals []schedule.Signal, now time.Time) []gatedSignal {
	kept := make([]gatedSignal, 0, len(signals))
	dropped := 0
	for i, sig := range signals {
		if isEventSpam(sig) {
			dropped++
			p.logger.Debug("gate: spam lexicon dropped %q", sig.Title)
			continue
		}
		eval := p.classifier.Evaluate(sig)
		if !eval.ForceAllow && eval.Score < p.cfg.FocusThreshold {
			imp := p.scorer.Evaluate(sig, now)
			if imp.Score < p.cfg.ImportanceRescue {
				dropped++
				p.logger.Debug("gate: focus %.2f and importance %.2f below thresholds for %q",
					eval.Score, imp.Score, sig.Title)
				continue
			}
			eval = schedule.FocusEval{Score: eval.Score, Reason: imp.Reason}
		}
		kept = append(kept, gatedSignal{index: i, signal: sig, eval: eval})
	}
	if p.metrics != nil {
		p.metrics.RecordGated(ctx, "gate", dropped)
	}
	return kept
}

func isEventSpam(sig schedule.Signal) bool {
	text := strings.ToLower(sig.Title + " " + sig.Body)
	if discountPattern.MatchString(text) {
		return true
	}
	if textutil.ContainsAny(text, bulkBrands) {
		return true
	}
	// Vague sign-up prompts without a concrete time are promotions,
	// not schedulable events.
	if textutil.ContainsAny(text, signupVocab) && !concreteTime.MatchString(text) {
		return true
	}
	return false
}

// extract runs the temporal parser over surviving signals, in parallel
// up to MaxParallel, preserving input order in the result.
func (p *Pipeline) extract(ctx context.Context, gated []gatedSignal, now time.Time, userTZ string) []candidate {
	results := make([]*candidate, len(gated))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.MaxParallel)
	for i, item := range gated {
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			text := item.signal.Title
			if item.signal.Body != "" {
				text += "\n" + item.signal.Body
			}
			rng, ok := p.parser.Parse(text, now, userTZ)
			if !ok {
				return nil
			}
			results[i] = &candidate{index: item.index, signal: item.signal, rng: rng, eval: item.eval}
			return nil
		})
	}
	_ = group.Wait()

	candidates := make([]candidate, 0, len(gated))
	unparseable := 0
	for _, result := range results {
		if result == nil {
			unparseable++
			continue
		}
		candidates = append(candidates, *result)
	}
	if p.metrics != nil {
		p.metrics.RecordGated(ctx, "extract", unparseable)
	}
	return candidates
}

// filterPast drops candidates starting strictly before now.
func (p *Pipeline) filterPast(ctx context.Context, candidates []candidate, now time.Time) []candidate {
	kept := candidates[:0]
	dropped := 0
	for _, cand := range candidates {
		start, err := time.Parse(time.RFC3339, cand.rng.StartISO)
		if err != nil || start.Before(now) {
			dropped++
			continue
		}
		kept = append(kept, cand)
	}
	if p.metrics != nil {
		p.metrics.RecordGated(ctx, "past", dropped)
	}
	return kept
}

// Schedule words that never identify a person.
var properNounStop = map[string]bool{
	"zoom": true, "meet": true, "teams": true, "monday": true, "tuesday": true,
	"wednesday": true, "thursday": true, "friday": true, "saturday": true,
	"sunday": true, "mon": true, "tue": true, "wed": true, "thu": true,
	"fri": true, "sat": true, "sun": true, "am": true, "pm": true, "pt": true,
	"et": true, "ct": true, "mt": true, "join": true, "call": true,
	"meeting": true, "invite": true,
}

// deduplicate groups candidates whose starts fall within the merge
// window and which share lexical overlap, keeping the earliest start of
// each group as its representative.
func (p *Pipeline) deduplicate(ctx context.Context, candidates []candidate, now time.Time) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		ti, _ := time.Parse(time.RFC3339, candidates[i].rng.StartISO)
		tj, _ := time.Parse(time.RFC3339, candidates[j].rng.StartISO)
		if ti.Equal(tj) {
			return candidates[i].index < candidates[j].index
		}
		return ti.Before(tj)
	})

	var reps []candidate
	mergedCount := 0
	for _, cand := range candidates {
		merged := false
		for r := range reps {
			rep := &reps[r]
			repStart, _ := time.Parse(time.RFC3339, rep.rng.StartISO)
			candStart, _ := time.Parse(time.RFC3339, cand.rng.StartISO)
			gap := candStart.Sub(repStart)
			if gap < 0 {
				gap = -gap
			}
			if gap > p.cfg.MergeWindow {
				continue
			}
			namedPerson := sharedProperNoun(rep.signal.Title, cand.signal.Title)
			nearIdentical := p.sim.Score(rep.signal.Title, cand.signal.Title) >= p.cfg.NearIdenticalScore
			if !namedPerson && !nearIdentical {
				continue
			}

			rep.merged = appendUnique(rep.merged, ReasonMergedDup)
			if namedPerson {
				rep.merged = appendUnique(rep.merged, ReasonNamedPerson)
			}
			if repStart.Sub(now) <= 7*24*time.Hour {
				rep.merged = appendUnique(rep.merged, ReasonWithin7Days)
			}
			mergedCount++
			merged = true
			break
		}
		if !merged {
			reps = append(reps, cand)
		}
	}
	if p.metrics != nil {
		p.metrics.RecordMerged(ctx, mergedCount)
	}
	return reps
}

func sharedProperNoun(a, b string) bool {
	nounsA := textutil.ProperNouns(a, properNounStop)
	if len(nounsA) == 0 {
		return false
	}
	nounsB := textutil.ProperNouns(b, properNounStop)
	setA := make(map[string]bool, len(nounsA))
	for _, noun := range nounsA {
		setA[strings.ToLower(noun)] = true
	}
	for _, noun := range nounsB {
		if setA[strings.ToLower(noun)] {
			return true
		}
	}
	return false
}

func appendUnique(reasons []string, reason string) []string {
	for _, existing := range reasons {
		if existing == reason {
			return reasons
		}
	}
	return append(reasons, reason)
}

// space materializes draft events and enforces the minimum gap.
func (p *Pipeline) space(candidates []candidate, userTZ string) []schedule.DraftEvent {
	events := make([]schedule.DraftEvent, 0, len(candidates))
	for _, cand := range candidates {
		reasons := []string{cand.eval.Reason}
		reasons = append(reasons, cand.merged...)
		event := schedule.DraftEvent{
			ID:        ksuid.New().String(),
			Title:     textutil.NormalizeWhitespace(cand.signal.Title),
			StartISO:  cand.rng.StartISO,
			EndISO:    cand.rng.EndISO,
			Timezone:  userTZ,
			Source:    cand.signal.Source,
			Reasons:   reasons,
			SourceRef: cand.signal.SourceID,
		}
		if cand.rng.Specificity > 0 {
			event.Meta = &schedule.EventMeta{SpecificityScore: cand.rng.Specificity}
		}
		events = append(events, event)
	}
	return fitting.InsertBuffers(events, p.cfg.MinGap)
}

// emit assembles the result; the plan views are order-preserving
// projections of the event list.
func emit(events []schedule.DraftEvent, signals []schedule.Signal) schedule.PipelineResult {
	if events == nil {
		events = []schedule.DraftEvent{}
	}
	daily := make(map[string][]schedule.DraftEvent)
	weekly := make(map[string][]schedule.DraftEvent)
	scheduledRefs := make(map[string]bool, len(events))
	for _, event := range events {
		start := event.Start()
		day := start.Format("2006-01-02")
		year, week := start.ISOWeek()
		weekKey := fmt.Sprintf("%d-W%02d", year, week)
		daily[day] = append(daily[day], event)
		weekly[weekKey] = append(weekly[weekKey], event)
		if event.SourceRef != "" {
			scheduledRefs[event.SourceRef] = true
		}
	}

	var unscheduled []string
	for _, sig := range signals {
		if sig.SourceID != "" && !scheduledRefs[sig.SourceID] {
			unscheduled = append(unscheduled, sig.SourceID)
		}
	}

	return schedule.PipelineResult{
		Events:             events,
		DailyPlan:          daily,
		WeeklyRollup:       weekly,
		UnscheduledTaskIDs: unscheduled,
	}
}
