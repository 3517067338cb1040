package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurelab/reqnotify/internal/config"
	"github.com/procurelab/reqnotify/internal/notification"
	"github.com/procurelab/reqnotify/internal/notifylog"
	"github.com/procurelab/reqnotify/internal/requests"
)

type fakeSource struct {
	snapshots []requests.Snapshot
	err       error
}

func (f *fakeSource) Current(_ context.Context, _ string) ([]requests.Snapshot, error) {
	return f.snapshots, f.err
}

type fakeProvider struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Send(_ context.Context, msg notification.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeProvider) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeLog keeps entries in memory and can be told to fail writes.
type fakeLog struct {
	mu        sync.Mutex
	entries   []notifylog.Entry
	appendErr error
}

func (f *fakeLog) Append(e notifylog.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLog) All() []notifylog.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notifylog.Entry, len(f.entries))
	copy(out, f.entries)
	return out
}

func (f *fakeLog) Prune(int) error { return nil }

func (f *fakeLog) History(string, int) []notifylog.Entry { return f.All() }

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testScenario() *config.Scenario {
	return &config.Scenario{
		Name:       "approval",
		Subject:    "Pending approvals",
		Recipients: []string{"ops@example.com"},
		Query:      "SELECT id, status, changed FROM requests",
	}
}

func newTestRunner(source *fakeSource, provider *fakeProvider, log *fakeLog) *Runner {
	return NewRunner(RunnerConfig{
		Log:      log,
		Source:   source,
		Provider: provider,
		Defaults: Defaults{LookbackDays: 30, DaysToWait: 3, DaysToKeep: 90},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return testNow },
	})
}

func TestRun_SendsAndLogs(t *testing.T) {
	source := &fakeSource{snapshots: []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "v1"},
		{ID: "R2", StatusID: "20", ChangeDateTime: "v2"},
	}}
	provider := &fakeProvider{}
	log := &fakeLog{}
	runner := newTestRunner(source, provider, log)

	res, err := runner.Run(context.Background(), testScenario(), RunOptions{Trigger: "cli"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Current)
	assert.Equal(t, 2, res.Notified)
	assert.Zero(t, res.Excluded)
	require.Equal(t, 1, provider.sentCount())
	assert.Equal(t, "[ReqNotify] Pending approvals", provider.sent[0].Subject)
	assert.Equal(t, []string{"ops@example.com"}, provider.sent[0].To)

	entries := log.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "approval", entries[0].Scenario)
	assert.ElementsMatch(t, []string{"R1", "R2"}, entries[0].RequestIDs)
	assert.Equal(t, "v1", entries[0].ChangeFingerprints["R1"])
	assert.True(t, entries[0].SentDates["R2"].Equal(testNow))
}

func TestRun_SecondRunExcludesUnchanged(t *testing.T) {
	source := &fakeSource{snapshots: []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "v1"},
	}}
	provider := &fakeProvider{}
	log := &fakeLog{}
	runner := newTestRunner(source, provider, log)

	_, err := runner.Run(context.Background(), testScenario(), RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, provider.sentCount())

	res, err := runner.Run(context.Background(), testScenario(), RunOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Notified)
	assert.Equal(t, []string{"R1"}, res.ExcludedIDs)
	assert.Equal(t, 1, provider.sentCount(), "unchanged request must not be re-notified")
	assert.Len(t, log.All(), 1, "no-op runs do not append log entries")
}

func TestRun_ChangedRequestIsRenotified(t *testing.T) {
	source := &fakeSource{snapshots: []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "v1"},
	}}
	provider := &fakeProvider{}
	log := &fakeLog{}
	runner := newTestRunner(source, provider, log)

	_, err := runner.Run(context.Background(), testScenario(), RunOptions{})
	require.NoError(t, err)

	source.snapshots = []requests.Snapshot{
		{ID: "R1", StatusID: "20", ChangeDateTime: "v2"},
	}
	res, err := runner.Run(context.Background(), testScenario(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notified)
	assert.Equal(t, 2, provider.sentCount())
}

func TestRun_ResendAfterWaitingPeriod(t *testing.T) {
	source := &fakeSource{snapshots: []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "v1"},
	}}
	provider := &fakeProvider{}
	log := &fakeLog{entries: []notifylog.Entry{{
		Timestamp:          testNow.AddDate(0, 0, -5),
		Scenario:           "approval",
		RequestIDs:         []string{"R1"},
		ChangeFingerprints: map[string]string{"R1": "v1"},
		SentDates:          map[string]time.Time{"R1": testNow.AddDate(0, 0, -5)},
	}}}
	runner := newTestRunner(source, provider, log)

	sc := testScenario()
	sc.Resend = true
	sc.DaysToWait = 3

	res, err := runner.Run(context.Background(), sc, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"R1"}, res.ResendIDs)
	assert.Equal(t, 1, res.Notified)
	require.Equal(t, 1, provider.sentCount())
	assert.Contains(t, provider.sent[0].Body, "still pending")
}

func TestRun_DryRunSendsNothing(t *testing.T) {
	source := &fakeSource{snapshots: []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "v1"},
	}}
	provider := &fakeProvider{}
	log := &fakeLog{}
	runner := newTestRunner(source, provider, log)

	res, err := runner.Run(context.Background(), testScenario(), RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Notified)
	assert.Zero(t, provider.sentCount())
	assert.Empty(t, log.All())
}

func TestRun_SourceFailureAborts(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	provider := &fakeProvider{}
	runner := newTestRunner(source, provider, &fakeLog{})

	_, err := runner.Run(context.Background(), testScenario(), RunOptions{})
	require.Error(t, err)
	assert.Zero(t, provider.sentCount())
}

func TestRun_SendFailureDoesNotLog(t *testing.T) {
	source := &fakeSource{snapshots: []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "v1"},
	}}
	provider := &fakeProvider{err: errors.New("smtp unavailable")}
	log := &fakeLog{}
	runner := newTestRunner(source, provider, log)

	_, err := runner.Run(context.Background(), testScenario(), RunOptions{})
	require.Error(t, err)
	assert.Empty(t, log.All(), "a failed send must not be recorded as sent")
}

func TestRun_LogWriteFailureIsNonFatal(t *testing.T) {
	source := &fakeSource{snapshots: []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "v1"},
	}}
	provider := &fakeProvider{}
	log := &fakeLog{appendErr: errors.New("disk full")}
	runner := newTestRunner(source, provider, log)

	res, err := runner.Run(context.Background(), testScenario(), RunOptions{})
	require.NoError(t, err, "the email went out; the run did not fail")
	assert.True(t, res.LogWriteFailed)
	assert.Equal(t, 1, provider.sentCount())
}

func TestRun_NoRecipientsFails(t *testing.T) {
	source := &fakeSource{snapshots: []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "v1"},
	}}
	provider := &fakeProvider{}
	runner := newTestRunner(source, provider, &fakeLog{})

	sc := testScenario()
	sc.Recipients = nil

	_, err := runner.Run(context.Background(), sc, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recipients")
}

func TestRun_AttachesReport(t *testing.T) {
	source := &fakeSource{snapshots: []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "v1"},
	}}
	provider := &fakeProvider{}
	runner := newTestRunner(source, provider, &fakeLog{})

	sc := testScenario()
	sc.AttachReport = true

	_, err := runner.Run(context.Background(), sc, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, provider.sentCount())
	require.Len(t, provider.sent[0].Attachments, 1)
	assert.Equal(t, "approval-2024-06-15.xlsx", provider.sent[0].Attachments[0].Name)
}

func TestRun_SerializesSameScenario(t *testing.T) {
	// Two concurrent runs of the same scenario must not interleave; the log
	// store assumes a single writer.
	var inFlight, maxInFlight int
	var mu sync.Mutex

	source := &fakeSource{snapshots: []requests.Snapshot{
		{ID: "R1", StatusID: "10", ChangeDateTime: "v1"},
	}}
	log := &fakeLog{}
	provider := &fakeProvider{}
	slow := &slowSource{inner: source, onCurrent: func() {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
	}}
	runner := NewRunner(RunnerConfig{
		Log:      log,
		Source:   slow,
		Provider: provider,
		Defaults: Defaults{LookbackDays: 30, DaysToWait: 3, DaysToKeep: 90},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return testNow },
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = runner.Run(context.Background(), testScenario(), RunOptions{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight, "runs of the same scenario must be serialized")
}

type slowSource struct {
	inner     requests.Source
	onCurrent func()
}

func (s *slowSource) Current(ctx context.Context, query string) ([]requests.Snapshot, error) {
	s.onCurrent()
	return s.inner.Current(ctx, query)
}
