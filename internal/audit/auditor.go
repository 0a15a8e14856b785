// Package audit records privileged operations before, and after, they run.
// The ordering contract is the point: RecordStart must complete before the
// audited action is allowed to proceed, so a crashed or killed operation
// still leaves a durable trace that it was attempted. Completion and
// failed-start records close the loop.
//
// The contract is cooperative: callers must wait for RecordStart before
// invoking the operation. WrapExecutor packages the full sequence so most
// callers never order the calls by hand.
package audit

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ashmarin/trailguard/internal/chain"
	"github.com/ashmarin/trailguard/internal/gate"
	"github.com/ashmarin/trailguard/internal/notify"
	"github.com/ashmarin/trailguard/internal/redact"
)

// SensitiveCommandSentinel wholesale replaces command text that trips the
// sensitive-keyword screen. Deliberately coarser than redact's per-match
// tokens: command-line boundaries are unreliable for partial redaction, so
// operators are told sensitive data was present rather than shown a
// best-guess scrubbing of it.
const SensitiveCommandSentinel = "contains sensitive data"

// previewLimit caps command text and output previews in notifications.
const previewLimit = 1000

// sensitiveCommandRe is the coarse keyword screen applied to command text.
var sensitiveCommandRe = regexp.MustCompile(`(?i)(password|passwd|secret|token|api[_-]?key|credential|private[_-]?key|bearer|auth=)`)

// Auditor owns the in-flight set of started-but-unfinished operations.
// Construct one per process at startup; tests construct their own. No
// other component may touch the in-flight set.
type Auditor struct {
	sink   notify.Sink
	ledger *chain.Ledger
	out    *gate.Gate

	mu       sync.Mutex
	inflight map[string]*ExecutionRecord

	detached sync.WaitGroup
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithLedger makes the auditor append a tamper-evident chain entry for
// every start, end, and failed start.
func WithLedger(l *chain.Ledger) Option {
	return func(a *Auditor) { a.ledger = l }
}

// WithOutput routes the auditor's local diagnostics through the given
// gate instead of a fresh console gate.
func WithOutput(g *gate.Gate) Option {
	return func(a *Auditor) { a.out = g }
}

// New creates an Auditor delivering to sink.
func New(sink notify.Sink, opts ...Option) *Auditor {
	a := &Auditor{
		sink:     sink,
		inflight: make(map[string]*ExecutionRecord),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.out == nil {
		a.out = gate.Wrap(gate.NewConsoleSink())
	}
	return a
}

// InFlight returns the number of started-but-unfinished operations.
func (a *Auditor) InFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inflight)
}

// RecordStart registers rec as in-flight and synchronously submits the
// start record to the delivery sink before returning. Callers must not
// begin the audited action until this call returns; that wait is the
// ordering guarantee. Returns the correlation id.
//
// Sink failures are swallowed and logged: the await guarantees timing
// (the record was attempted before execution), not delivery success.
func (a *Auditor) RecordStart(ctx context.Context, rec ExecutionRecord) string {
	if rec.CorrelationID == "" {
		rec.CorrelationID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}

	display := commandDisplay(rec.Command)
	a.appendChain(chainPayload{
		Kind:          "command_start",
		CorrelationID: rec.CorrelationID,
		Command:       display,
		WorkingDir:    rec.WorkingDir,
		Elevated:      rec.Elevated,
	})
	a.submit(ctx, notify.ChannelCommands, startNotification(rec, display))

	// Pending only after the sink attempt: an id in the in-flight set
	// always has a start record behind it.
	a.mu.Lock()
	stored := rec
	a.inflight[rec.CorrelationID] = &stored
	a.mu.Unlock()
	return rec.CorrelationID
}

// RecordEnd marks the operation complete and submits the completion
// record detached: the caller's return path never waits on the sink.
func (a *Auditor) RecordEnd(rec ExecutionRecord) {
	done := a.remove(rec.CorrelationID)
	if done == nil {
		a.out.Warn("audit: completion for unknown correlation id", rec.CorrelationID)
		done = &ExecutionRecord{CorrelationID: rec.CorrelationID, StartedAt: time.Now().UTC()}
	}

	done.CompletedAt = rec.CompletedAt
	if done.CompletedAt.IsZero() {
		done.CompletedAt = time.Now().UTC()
	}
	done.ExitCode = rec.ExitCode
	done.Signal = rec.Signal
	done.OutputPreview = rec.OutputPreview
	done.DurationMs = rec.DurationMs
	if done.DurationMs == 0 && !done.StartedAt.IsZero() {
		done.DurationMs = done.CompletedAt.Sub(done.StartedAt).Milliseconds()
	}

	a.appendChain(chainPayload{
		Kind:          "command_end",
		CorrelationID: done.CorrelationID,
		ExitCode:      done.ExitCode,
		Signal:        done.Signal,
		DurationMs:    done.DurationMs,
	})
	a.submitDetached(notify.ChannelCommands, endNotification(*done))
}

// RecordFailedStart marks an operation that never began: the executor
// itself failed before running the command. Submission is synchronous:
// failures to start are safety-relevant and must be durably attempted
// before the error propagates to the caller.
func (a *Auditor) RecordFailedStart(ctx context.Context, correlationID, errText string) {
	rec := a.remove(correlationID)
	if rec == nil {
		rec = &ExecutionRecord{CorrelationID: correlationID}
	}

	scrubbed := redact.Sanitize(errText)
	a.appendChain(chainPayload{
		Kind:          "command_failed_start",
		CorrelationID: correlationID,
		Error:         scrubbed,
	})
	a.submit(ctx, notify.ChannelCommands, failedStartNotification(*rec, scrubbed))
}

// Wait blocks until all detached submissions have finished. Shutdown and
// test hook; detached tasks have no cancellation.
func (a *Auditor) Wait() {
	a.detached.Wait()
}

func (a *Auditor) remove(correlationID string) *ExecutionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.inflight[correlationID]
	if !ok {
		return nil
	}
	delete(a.inflight, correlationID)
	return rec
}

// submit delivers synchronously. Sink errors never escape.
func (a *Auditor) submit(ctx context.Context, ch notify.Channel, n notify.Notification) {
	if a.sink == nil {
		return
	}
	if err := a.sink.Deliver(ctx, ch, n); err != nil {
		a.out.Warn("audit: sink delivery failed:", err)
	}
}

// submitDetached delivers on its own goroutine: at-most-once, no retry
// beyond the sink's own, no backpressure, outcome never inspected by the
// caller. A burst of completions may reach the sink out of order relative
// to their start records.
func (a *Auditor) submitDetached(ch notify.Channel, n notify.Notification) {
	a.detached.Add(1)
	go func() {
		defer a.detached.Done()
		a.submit(context.Background(), ch, n)
	}()
}

func (a *Auditor) appendChain(p chainPayload) {
	if a.ledger == nil {
		return
	}
	if _, err := a.ledger.Append(p); err != nil {
		a.out.Warn("audit: chain append failed:", err)
	}
}

// commandDisplay applies the sentinel policy and the preview cap.
func commandDisplay(cmd string) string {
	if sensitiveCommandRe.MatchString(cmd) {
		return SensitiveCommandSentinel
	}
	return truncateRunes(cmd, previewLimit)
}

// truncateRunes caps s at limit bytes, backing off to a rune boundary so
// the cut never emits invalid UTF-8.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func startNotification(rec ExecutionRecord, display string) notify.Notification {
	fields := []notify.Field{
		{Name: "Command", Value: codeBlock(display), Inline: false},
		{Name: "Directory", Value: "`" + rec.WorkingDir + "`", Inline: true},
	}
	if rec.PID != 0 {
		fields = append(fields, notify.Field{Name: "PID", Value: strconv.Itoa(rec.PID), Inline: true})
	}
	if rec.Elevated {
		fields = append(fields, notify.Field{Name: "Elevated", Value: "yes", Inline: true})
	}
	return notify.Notification{
		Title:     "Command Started",
		Color:     notify.ColorCommand,
		Fields:    fields,
		Footer:    "trailguard auditor",
		Timestamp: rec.StartedAt,
	}
}

func endNotification(rec ExecutionRecord) notify.Notification {
	status := "Success"
	color := notify.ColorSuccess
	if rec.ExitCode != nil && *rec.ExitCode != 0 {
		status = "Failed (" + strconv.Itoa(*rec.ExitCode) + ")"
		color = notify.ColorAlert
	}
	if rec.Signal != "" {
		status += " signal " + rec.Signal
	}
	fields := []notify.Field{
		{Name: "Status", Value: status, Inline: true},
		{Name: "Duration", Value: strconv.FormatInt(rec.DurationMs, 10) + " ms", Inline: true},
	}
	if rec.OutputPreview != "" {
		preview := redact.Sanitize(rec.OutputPreview)
		if len(preview) > previewLimit {
			preview = truncateRunes(preview, previewLimit) + "\n... (truncated)"
		}
		fields = append(fields, notify.Field{Name: "Output", Value: codeBlock(preview), Inline: false})
	}
	return notify.Notification{
		Title:     "Command Completed",
		Color:     color,
		Fields:    fields,
		Footer:    "trailguard auditor",
		Timestamp: rec.CompletedAt,
	}
}

func failedStartNotification(rec ExecutionRecord, errText string) notify.Notification {
	return notify.Notification{
		Title: "Command Failed to Start",
		Color: notify.ColorAlert,
		Fields: []notify.Field{
			{Name: "Command", Value: codeBlock(commandDisplay(rec.Command)), Inline: false},
			{Name: "Error", Value: errText, Inline: false},
		},
		Footer:    "trailguard auditor",
		Timestamp: time.Now().UTC(),
	}
}

func codeBlock(s string) string {
	return "```\n" + strings.ReplaceAll(s, "```", "` ` `") + "```"
}
