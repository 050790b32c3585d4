package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"sqfix/internal/edit"
	"sqfix/internal/issue"
	"sqfix/internal/lang"
	"sqfix/internal/llm"
	"sqfix/internal/logging"
	"sqfix/internal/prompt"
	"sqfix/internal/repo"
	"sqfix/internal/search"
	"sqfix/internal/sonar"
	"sqfix/internal/textdiff"
)

type step int

const (
	stepSelect step = iota
	stepAnalyze
	stepApply
	stepValidate
	stepFinalize
)

// node kinds worth a cross-reference lookup; anything else is too local
// for usages elsewhere to matter.
var crossRefKinds = map[string]bool{
	"identifier":           true,
	"function_definition":  true,
	"class_definition":     true,
	"function_declaration": true,
	"method_declaration":   true,
	"class_declaration":    true,
}

const (
	maxCrossRefs      = 5
	ruleLookupTimeout = 10 * time.Second
)

// Workflow processes a batch of issues sequentially. It owns all mutable
// state for a run; every collaborator is called through a function value so
// tests can substitute fakes without a parser or network.
type Workflow struct {
	provider llm.Provider
	store    *repo.Store
	log      *logging.Logger
	cfg      Config

	check        func(ctx context.Context, source string, l lang.Language) (*lang.ValidationResult, error)
	locate       func(ctx context.Context, source string, l lang.Language, line int) (*lang.Context, error)
	findRefs     func(ctx context.Context, root, query string) ([]search.Match, error)
	describeRule func(ctx context.Context, ruleKey string) string
}

// New wires a workflow with the real parser, searcher, and rule lookup.
// The sonar client may be nil, in which case rule descriptions are skipped.
func New(provider llm.Provider, store *repo.Store, logger *logging.Logger, cfg Config, rules *sonar.Client) *Workflow {
	parser := lang.NewParser()

	w := &Workflow{
		provider: provider,
		store:    store,
		log:      logger,
		cfg:      cfg.withDefaults(),
	}
	w.check = func(ctx context.Context, source string, l lang.Language) (*lang.ValidationResult, error) {
		return parser.Validate(ctx, []byte(source), l)
	}
	w.locate = func(ctx context.Context, source string, l lang.Language, line int) (*lang.Context, error) {
		return parser.Locate(ctx, []byte(source), l, line, 0)
	}
	w.findRefs = func(ctx context.Context, root, query string) ([]search.Match, error) {
		return search.Find(ctx, root, query, search.Options{MaxMatches: 20})
	}
	w.describeRule = func(ctx context.Context, ruleKey string) string {
		if rules == nil {
			return ""
		}
		ctx, cancel := context.WithTimeout(ctx, ruleLookupTimeout)
		defer cancel()
		rule, err := rules.GetRule(ctx, ruleKey)
		if err != nil {
			logger.Warn("rule lookup failed", map[string]interface{}{"rule": ruleKey, "error": err.Error()})
			return ""
		}
		return sonar.RuleDetail(rule)
	}
	return w
}

// state is the single mutable unit threaded through every step of a run.
type state struct {
	issues  []issue.Issue
	index   int
	current *issue.Issue

	conversation []llm.Message
	retries      int

	// cache maps path to last-known-good content; accepted fixes update it
	// so later issues in the same file see the shifted line numbers.
	cache map[string]string

	fixes    []FixResult
	failures []FailedFix
}

// attempt holds one Apply's transient candidate, discarded between issues.
type attempt struct {
	changes *edit.ChangeSet
}

// Run batches the issues and drives the state machine to completion.
// Per-issue failures are recorded, never returned; the report always
// accounts for every issue unless the context is cancelled first.
func (w *Workflow) Run(ctx context.Context, issues []issue.Issue) (*Report, error) {
	st := &state{
		issues: issue.Batch(issues),
		cache:  make(map[string]string),
	}
	started := time.Now()

	var att *attempt
	cur := stepSelect
	for cur != stepFinalize {
		switch cur {
		case stepSelect:
			if ctx.Err() != nil {
				w.log.Warn("run interrupted", map[string]interface{}{"remaining": len(st.issues) - st.index})
				cur = stepFinalize
				continue
			}
			cur = w.selectNext(st)
		case stepAnalyze:
			cur = w.analyze(ctx, st)
		case stepApply:
			cur, att = w.apply(ctx, st)
		case stepValidate:
			cur = w.validate(ctx, st, att)
		}
	}

	return w.finalize(st, started), nil
}

func (w *Workflow) selectNext(st *state) step {
	if st.index >= len(st.issues) {
		st.current = nil
		return stepFinalize
	}
	st.current = &st.issues[st.index]
	st.retries = 0
	st.conversation = nil

	w.log.Info("processing issue", map[string]interface{}{
		"key":  st.current.Key,
		"rule": st.current.Rule,
		"file": st.current.FilePath(),
		"line": st.current.Line,
	})
	return stepAnalyze
}

func (w *Workflow) analyze(ctx context.Context, st *state) step {
	is := st.current
	path := is.FilePath()

	content, ok := st.cache[path]
	if !ok {
		read, err := w.store.Read(path)
		if err != nil {
			w.log.Error("cannot read issue file", map[string]interface{}{"file": path, "error": err.Error()})
			st.failures = append(st.failures, FailedFix{
				IssueKey:   is.Key,
				FilePath:   path,
				Status:     StatusFailed,
				Error:      err.Error(),
				Provider:   w.provider.Name(),
				Iterations: 0,
			})
			st.index++
			return stepSelect
		}
		content = read
		st.cache[path] = content
	}

	var located *lang.Context
	if language, ok := lang.Detect(path); ok && is.Line > 0 {
		if c, err := w.locate(ctx, content, language, is.Line); err == nil {
			located = c
		} else {
			w.log.Debug("locate failed", map[string]interface{}{"file": path, "error": err.Error()})
		}
	}

	data := prompt.AnalyzeData{
		IssueKey:   is.Key,
		Rule:       is.Rule,
		Severity:   is.Severity,
		Type:       is.Type,
		FilePath:   path,
		Line:       is.Line,
		Message:    is.Message,
		RuleDetail: w.describeRule(ctx, is.Rule),
	}
	if located != nil {
		data.NodeKind = located.NodeKind
		data.NodeText = truncate(located.NodeText, 100)
		data.ParentKind = located.ParentKind
		data.CrossReferences = w.crossReferences(ctx, located, path)
	}

	analyzeMsg := prompt.Analyze(data)
	reply, err := w.provider.Complete(ctx, []llm.Message{llm.System(prompt.System()), llm.User(analyzeMsg)}, llm.Settings{Model: w.cfg.Model})
	if err != nil {
		// Analysis is advisory; a failed call degrades to a fix attempt
		// without the model's own analysis in the log.
		w.log.Warn("analysis call failed", map[string]interface{}{"key": is.Key, "error": err.Error()})
		return stepApply
	}

	st.conversation = append(st.conversation, llm.User(analyzeMsg), llm.Assistant(reply))
	return stepApply
}

// crossReferences finds usages of the located symbol outside the issue's
// own file. Best-effort: any failure yields no extra context.
func (w *Workflow) crossReferences(ctx context.Context, located *lang.Context, ownPath string) string {
	if !crossRefKinds[located.NodeKind] {
		return ""
	}
	symbol := strings.TrimSpace(strings.SplitN(located.NodeText, "(", 2)[0])
	if len(symbol) <= 3 {
		return ""
	}

	matches, err := w.findRefs(ctx, w.store.Root(), symbol)
	if err != nil {
		w.log.Debug("cross-reference search failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		return ""
	}

	var lines []string
	for _, m := range matches {
		if m.FilePath == ownPath {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s:%d: %s", m.FilePath, m.LineNumber, strings.TrimSpace(m.LineContent)))
		if len(lines) == maxCrossRefs {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func (w *Workflow) apply(ctx context.Context, st *state) (step, *attempt) {
	is := st.current
	path := is.FilePath()
	content := st.cache[path]

	fixMsg := prompt.TargetedFix(prompt.FixData{
		Message:     is.Message,
		FilePath:    path,
		Line:        is.Line,
		FileContent: content,
	})
	messages := append([]llm.Message{llm.System(prompt.System())}, st.conversation...)
	messages = append(messages, llm.User(fixMsg))

	reply, err := w.provider.Complete(ctx, messages, llm.Settings{Model: w.cfg.Model})
	if err != nil {
		return w.failAttempt(st, StatusFailed, "model call failed: "+err.Error(),
			prompt.EditFeedback(err.Error())), nil
	}

	edits, err := edit.ParseReply(reply, path)
	if err != nil {
		return w.failAttempt(st, StatusValidationError, "failed to generate valid edit: "+err.Error(),
			prompt.EditFeedback(err.Error())), nil
	}

	changes := edit.NewChangeSet(func(p string) (string, error) {
		if cached, ok := st.cache[p]; ok {
			return cached, nil
		}
		return w.store.Read(p)
	})
	changes.Preload(path, content)

	for _, e := range edits {
		if err := changes.Apply(e); err != nil {
			return w.failAttempt(st, StatusValidationError, "failed to generate valid edit: "+err.Error(),
				prompt.EditFeedback(err.Error())), nil
		}
	}

	st.conversation = append(st.conversation, llm.User(fixMsg), llm.Assistant(reply))
	w.log.Debug("edits applied in memory", map[string]interface{}{"key": is.Key, "edits": len(edits), "files": len(changes.Files())})
	return stepValidate, &attempt{changes: changes}
}

func (w *Workflow) validate(ctx context.Context, st *state, att *attempt) step {
	is := st.current
	files := att.changes.Files()

	// 1. Syntax: every touched file must parse for its detected language.
	var syntaxErrors []string
	for _, path := range sortedPaths(files) {
		language, ok := lang.Detect(path)
		if !ok {
			continue
		}
		result, err := w.check(ctx, files[path], language)
		if err != nil {
			w.log.Debug("syntax check unavailable", map[string]interface{}{"file": path, "error": err.Error()})
			continue
		}
		if !result.Valid {
			syntaxErrors = append(syntaxErrors, fmt.Sprintf("File %s: %s", path, strings.Join(result.Errors, "; ")))
		}
	}
	if len(syntaxErrors) > 0 {
		detail := strings.Join(syntaxErrors, "; ")
		return w.failAttempt(st, StatusValidationError, detail, prompt.ValidationFeedback(strings.Join(syntaxErrors, "\n")))
	}

	// 2. Size: cumulative absolute change across files, per-file ratio.
	totalChanged := 0
	var ratioOffender string
	var ratioValue float64
	for _, path := range sortedPaths(files) {
		stats := textdiff.Compute(att.changes.Baseline(path), files[path])
		totalChanged += stats.Total()
		if r := stats.Ratio(); r > w.cfg.MaxChangeRatio && ratioOffender == "" {
			ratioOffender = path
			ratioValue = r
		}
	}
	if totalChanged > w.cfg.MaxLinesChanged || ratioOffender != "" {
		detail := "Excessive change detected."
		if totalChanged > w.cfg.MaxLinesChanged {
			detail += fmt.Sprintf(" Total lines changed (%d) > %d.", totalChanged, w.cfg.MaxLinesChanged)
		}
		if ratioOffender != "" {
			detail += fmt.Sprintf(" File %s changed %.1f%% > %.1f%%.", ratioOffender, ratioValue*100, w.cfg.MaxChangeRatio*100)
		}
		return w.failAttempt(st, StatusValidationError, detail, prompt.SizeFeedback(totalChanged, detail, is.Line))
	}

	// Accepted: persist every touched file, then refresh the cache so later
	// issues in the batch diff against this content.
	primary := is.FilePath()
	var diffs []string
	for _, path := range sortedPaths(files) {
		if err := w.store.Write(path, files[path], w.cfg.DryRun); err != nil {
			return w.failAttempt(st, StatusFailed, "write failed: "+err.Error(), prompt.EditFeedback(err.Error()))
		}
		if d, err := textdiff.Unified(att.changes.Baseline(path), files[path], path); err == nil && d != "" {
			diffs = append(diffs, fmt.Sprintf("\n--- %s ---\n%s\n", path, d))
		}
	}
	for path, content := range files {
		st.cache[path] = content
	}

	st.fixes = append(st.fixes, FixResult{
		IssueKey:        is.Key,
		FilePath:        primary,
		OriginalContent: att.changes.Baseline(primary),
		FixedContent:    files[primary],
		Diff:            strings.Join(diffs, ""),
		Status:          StatusSuccess,
		Provider:        w.provider.Name(),
		Iterations:      st.retries + 1,
	})
	w.log.Info("fix accepted", map[string]interface{}{
		"key":        is.Key,
		"files":      len(files),
		"iterations": st.retries + 1,
		"dryRun":     w.cfg.DryRun,
	})
	st.index++
	return stepSelect
}

// failAttempt implements the uniform retry policy: bump the counter, and
// either escalate to a FailedFix or feed the error back into the
// conversation for the next Apply.
func (w *Workflow) failAttempt(st *state, status Status, detail, feedback string) step {
	st.retries++
	is := st.current

	if st.retries >= w.cfg.MaxRetries {
		w.log.Warn("issue failed", map[string]interface{}{"key": is.Key, "error": detail, "iterations": st.retries})
		st.failures = append(st.failures, FailedFix{
			IssueKey:   is.Key,
			FilePath:   is.FilePath(),
			Status:     status,
			Error:      detail,
			Provider:   w.provider.Name(),
			Iterations: st.retries,
		})
		st.index++
		return stepSelect
	}

	w.log.Info("retrying", map[string]interface{}{"key": is.Key, "attempt": st.retries, "max": w.cfg.MaxRetries, "error": detail})
	st.conversation = append(st.conversation, llm.User(feedback))
	return stepApply
}

func (w *Workflow) finalize(st *state, started time.Time) *Report {
	total := len(st.fixes) + len(st.failures)
	rate := 0.0
	if total > 0 {
		rate = float64(len(st.fixes)) / float64(total)
	}
	report := &Report{
		RunID:       uuid.NewString(),
		Provider:    w.provider.Name(),
		DryRun:      w.cfg.DryRun,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Total:       total,
		Succeeded:   len(st.fixes),
		Failed:      len(st.failures),
		SuccessRate: rate,
		Fixes:       st.fixes,
		Failures:    st.failures,
	}
	w.log.Info("run complete", map[string]interface{}{
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	})
	return report
}

func sortedPaths(files map[string]string) []string {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
