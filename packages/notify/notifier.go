// Package notify sends run summaries to chat services.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gertd/go-pluralize"

	"github.com/abdul-hamid-achik/tstit/packages/core/runner"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when plans fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when every plan succeeds
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failures and on the first
	// success after a failure
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a notify-on policy name.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch n := NotifyOn(strings.ToLower(strings.TrimSpace(s))); n {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return n, nil
	case "":
		return NotifyFailure, nil
	default:
		return "", fmt.Errorf("invalid notify-on value %q (expected always, failure, success or recovery)", s)
	}
}

// RunSummary represents the summary of a run for notifications
type RunSummary struct {
	RunID         string        `json:"run_id"`
	TotalPlans    int           `json:"total_plans"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	Duration      time.Duration `json:"duration"`
	BaseURL       string        `json:"base_url,omitempty"`
	FailedResults []FailedPlan  `json:"failed_results,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// FailedPlan represents a failed plan for notifications
type FailedPlan struct {
	Name  string `json:"name"`
	File  string `json:"file"`
	Error string `json:"error,omitempty"`
}

// Summarize builds the notification summary of a run.
func Summarize(run *runner.RunResult, baseURL string) *RunSummary {
	s := &RunSummary{
		RunID:      run.ID.String(),
		TotalPlans: run.Total(),
		Succeeded:  run.Succeeded,
		Failed:     run.Failed,
		Duration:   run.Duration,
		BaseURL:    baseURL,
	}
	for _, r := range run.Results {
		if r.Succeeded() {
			continue
		}
		fp := FailedPlan{}
		if r.Plan != nil {
			fp.Name, fp.File = r.Plan.DisplayName(), r.Plan.Path
		}
		if r.Err != nil {
			fp.Error = r.Err.Error()
		}
		s.FailedResults = append(s.FailedResults, fp)
	}
	return s
}

var plural = pluralize.NewClient()

// title is the headline shared by every notifier.
func (s *RunSummary) title() string {
	switch {
	case s.Failed > 0:
		return fmt.Sprintf("%s failed", plural.Pluralize("testplan", s.Failed, true))
	case s.IsRecovery:
		return "Testplans recovered!"
	default:
		return "All testplans succeeded!"
	}
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a run
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Len returns the number of configured notifiers.
func (m *Manager) Len() int {
	return len(m.notifiers)
}

// Notify sends notifications based on the configured policy. Every
// notifier is tried; their errors are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	shouldNotify := false
	currentSuccess := summary.Failed == 0

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = summary.Failed > 0
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if summary.Failed > 0 {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess

	if !shouldNotify {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
