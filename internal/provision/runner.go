package provision

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/sikt-tools/provgen/internal/secpass"
)

type EventKind int

const (
	// EventProgress carries a 0-100 percentage. Zero or more per run,
	// non-decreasing.
	EventProgress EventKind = iota
	// EventCompleted carries the archive token and suggested
	// filename. Terminal.
	EventCompleted
	// EventFailed carries the run error. Terminal.
	EventFailed
)

// Event is one notification on a run's stream. A run emits at most
// one terminal event and nothing after it.
type Event struct {
	Kind     EventKind
	Progress int
	Token    string
	Filename string
	Err      error
}

// Job is a fully resolved generation request.
type Job struct {
	Code     string
	Records  []Record
	Filename string
}

// Runner executes generation jobs. Safe for concurrent use: every run
// works in its own session arena and publishes under its own token.
type Runner struct {
	Logger         *slog.Logger
	Store          ArchiveStore
	WorkDir        string
	PasswordLength int
	Workbook       WorkbookOptions
}

// Progress is reported every this many records, and always on the
// last one.
const progressEvery = 10

// Run starts the job and returns its event stream. The channel closes
// after the terminal event, or without one if ctx is cancelled first;
// either way the session arena is cleaned up.
func (r *Runner) Run(ctx context.Context, job Job) <-chan Event {
	events := make(chan Event, 1)
	go func() {
		defer close(events)
		r.run(ctx, job, events)
	}()
	return events
}

// RunSync executes the job and waits for its outcome.
func (r *Runner) RunSync(ctx context.Context, job Job) (token, filename string, err error) {
	for ev := range r.Run(ctx, job) {
		switch ev.Kind {
		case EventCompleted:
			return ev.Token, ev.Filename, nil
		case EventFailed:
			return "", "", ev.Err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	return "", "", context.Canceled
}

func (r *Runner) run(ctx context.Context, job Job, events chan<- Event) {
	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		if r.Logger != nil {
			r.Logger.Error("generation failed", "code", job.Code, "records", len(job.Records), "error", err)
		}
		emit(Event{Kind: EventFailed, Err: err})
	}

	session, err := NewSession(r.WorkDir)
	if err != nil {
		fail(fmt.Errorf("Kunne ikke opprette arbeidsområde: %w", err))
		return
	}
	defer func() { _ = session.Close() }()

	length := r.PasswordLength
	if length == 0 {
		length = secpass.DefaultLength
	}

	total := len(job.Records)
	rows := make([]WorkbookRow, 0, total)
	for i, rec := range job.Records {
		if ctx.Err() != nil {
			return
		}
		password, err := secpass.Generate(length)
		if err != nil {
			fail(fmt.Errorf("Kunne ikke generere passord: %w", err))
			return
		}
		if err := session.WriteArtifacts(rec, password); err != nil {
			fail(fmt.Errorf("Kunne ikke skrive filer: %w", err))
			return
		}
		rows = append(rows, WorkbookRow{Record: rec, Password: password})

		done := i + 1
		if done%progressEvery == 0 || done == total {
			if !emit(Event{Kind: EventProgress, Progress: percent(done, total)}) {
				return
			}
		}
	}
	if total == 0 {
		if !emit(Event{Kind: EventProgress, Progress: 100}) {
			return
		}
	}

	workbook, err := ComposeWorkbook(r.Workbook, rows)
	if err != nil {
		fail(err)
		return
	}
	workbookName := "output.xlsx"
	if job.Code != "" {
		workbookName = "output_" + job.Code + ".xlsx"
	}
	if err := workbook.SaveAs(filepath.Join(session.Root(), workbookName)); err != nil {
		_ = workbook.Close()
		fail(fmt.Errorf("Kunne ikke lagre regneark: %w", err))
		return
	}
	_ = workbook.Close()

	data, err := BuildArchive(session, workbookName)
	if err != nil {
		fail(fmt.Errorf("Kunne ikke pakke arkiv: %w", err))
		return
	}

	token := NewToken()
	if err := r.Store.Put(ctx, token, data); err != nil {
		fail(fmt.Errorf("Kunne ikke lagre arkiv: %w", err))
		return
	}

	// Tear the arena down before announcing completion: from here on
	// only the stored archive exists.
	if err := session.Close(); err != nil && r.Logger != nil {
		r.Logger.Warn("arena cleanup failed", "error", err)
	}
	if r.Logger != nil {
		r.Logger.Info("generation complete", "code", job.Code, "records", total, "token", token)
	}
	emit(Event{Kind: EventCompleted, Token: token, Filename: job.Filename})
}

func percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}
