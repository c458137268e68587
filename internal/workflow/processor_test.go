package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"bosstitler/internal/config"
	"bosstitler/internal/identify"
	"bosstitler/internal/store"
	"bosstitler/internal/testsupport"
	"bosstitler/internal/workflow"
)

type fakeResolver struct {
	mu      sync.Mutex
	results map[string]identify.Result
	err     error
	panicOn string
	calls   int
}

func (f *fakeResolver) Identify(ctx context.Context, videoID, game string) (identify.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panicOn != "" && videoID == f.panicOn {
		panic("resolver blew up")
	}
	if f.err != nil {
		return identify.Result{}, f.err
	}
	return f.results[videoID], nil
}

type fakeChannel struct {
	mu          sync.Mutex
	titles      map[string]string
	playlists   map[string][]string
	renameErr   error
	playlistErr error
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		titles:    make(map[string]string),
		playlists: make(map[string][]string),
	}
}

func (f *fakeChannel) UpdateTitle(ctx context.Context, videoID, newTitle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return f.renameErr
	}
	f.titles[videoID] = newTitle
	return nil
}

func (f *fakeChannel) EnsurePlaylist(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playlistErr != nil {
		return "", f.playlistErr
	}
	return "playlist-" + name, nil
}

func (f *fakeChannel) AddToPlaylist(ctx context.Context, videoID, playlistID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists[playlistID] = append(f.playlists[playlistID], videoID)
	return nil
}

type recordingAuditor struct {
	mu        sync.Mutex
	updates   []string
	errors    []string
	rollbacks []string
}

func (r *recordingAuditor) AppendUpdate(ctx context.Context, videoID, originalTitle, newTitle, game, boss string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, videoID)
}

func (r *recordingAuditor) AppendError(ctx context.Context, videoID, originalTitle, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, videoID)
}

func (r *recordingAuditor) AppendRollback(ctx context.Context, videoID, restoredTitle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rollbacks = append(r.rollbacks, videoID)
}

type processorFixture struct {
	cfg       *config.Config
	store     *store.Store
	resolver  *fakeResolver
	channel   *fakeChannel
	auditor   *recordingAuditor
	processor *workflow.Processor
}

func newFixture(t *testing.T) *processorFixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	resolver := &fakeResolver{results: map[string]identify.Result{}}
	channel := newFakeChannel()
	auditor := &recordingAuditor{}
	return &processorFixture{
		cfg:       cfg,
		store:     st,
		resolver:  resolver,
		channel:   channel,
		auditor:   auditor,
		processor: workflow.NewProcessor(cfg, st, resolver, channel, auditor, nil),
	}
}

func TestProcessItemRenamesVideo(t *testing.T) {
	f := newFixture(t)
	f.resolver.results["vid-1"] = identify.Result{Boss: "Malenia, Blade of Miquella", Source: identify.SourceThumbnail}

	ctx := context.Background()
	outcome, err := f.processor.ProcessItem(ctx, workflow.Item{
		VideoID: "vid-1",
		Title:   "elden ring_20240101120000",
	}, workflow.Options{})
	if err != nil {
		t.Fatalf("ProcessItem failed: %v", err)
	}
	if outcome != workflow.OutcomeCompleted {
		t.Fatalf("outcome = %s, want completed", outcome)
	}

	wantTitle := "Elden Ring: Malenia, Blade of Miquella Melee PS5"
	if got := f.channel.titles["vid-1"]; got != wantTitle {
		t.Fatalf("channel title = %q, want %q", got, wantTitle)
	}

	job, err := f.store.GetJob(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job == nil || job.Status != store.StatusCompleted {
		t.Fatalf("unexpected job: %#v", job)
	}
	if job.NewTitle != wantTitle || job.BossName != "Malenia, Blade of Miquella" {
		t.Fatalf("job fields not persisted: %#v", job)
	}
	if attached := f.channel.playlists["playlist-Elden Ring"]; len(attached) != 1 || attached[0] != "vid-1" {
		t.Fatalf("video not grouped: %#v", f.channel.playlists)
	}
	if len(f.auditor.updates) != 1 || f.auditor.updates[0] != "vid-1" {
		t.Fatalf("audit trail missing: %#v", f.auditor.updates)
	}
}

func TestProcessItemFailsWhenNoBossFound(t *testing.T) {
	f := newFixture(t)

	ctx := context.Background()
	outcome, err := f.processor.ProcessItem(ctx, workflow.Item{
		VideoID: "vid-1",
		Title:   "sekiro_20240101120000",
	}, workflow.Options{})
	if err == nil {
		t.Fatal("expected an error when identification comes back empty")
	}
	if outcome != workflow.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", outcome)
	}
	if len(f.channel.titles) != 0 {
		t.Fatalf("title must not change: %#v", f.channel.titles)
	}

	job, err := f.store.GetJob(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job == nil || job.Status != store.StatusFailed {
		t.Fatalf("unexpected job: %#v", job)
	}
	if job.ErrorMessage == "" {
		t.Fatal("expected error message recorded")
	}
	if len(f.auditor.errors) != 1 {
		t.Fatalf("error audit missing: %#v", f.auditor.errors)
	}
}

func TestProcessItemSkipsCustomizedTitles(t *testing.T) {
	f := newFixture(t)

	ctx := context.Background()
	outcome, err := f.processor.ProcessItem(ctx, workflow.Item{
		VideoID: "vid-1",
		Title:   "Elden Ring: Radahn Melee PS5",
	}, workflow.Options{})
	if err != nil {
		t.Fatalf("ProcessItem failed: %v", err)
	}
	if outcome != workflow.OutcomeSkipped {
		t.Fatalf("outcome = %s, want skipped", outcome)
	}

	// Ineligible videos never reach the store.
	job, err := f.store.GetJob(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job != nil {
		t.Fatalf("unexpected job created: %#v", job)
	}
	if f.resolver.calls != 0 {
		t.Fatal("resolver must not run for ineligible videos")
	}
}

func TestProcessItemSkipsCompletedUnlessForced(t *testing.T) {
	f := newFixture(t)
	f.resolver.results["vid-1"] = identify.Result{Boss: "Owl", Source: identify.SourceFrames}

	ctx := context.Background()
	item := workflow.Item{VideoID: "vid-1", Title: "sekiro_20240101120000"}
	if _, err := f.processor.ProcessItem(ctx, item, workflow.Options{}); err != nil {
		t.Fatalf("first ProcessItem failed: %v", err)
	}

	// A fresh processor clears the per-run seen set.
	second := workflow.NewProcessor(f.cfg, f.store, f.resolver, f.channel, f.auditor, nil)
	outcome, err := second.ProcessItem(ctx, item, workflow.Options{})
	if err != nil {
		t.Fatalf("second ProcessItem failed: %v", err)
	}
	if outcome != workflow.OutcomeSkipped {
		t.Fatalf("outcome = %s, want skipped", outcome)
	}

	third := workflow.NewProcessor(f.cfg, f.store, f.resolver, f.channel, f.auditor, nil)
	outcome, err = third.ProcessItem(ctx, item, workflow.Options{Force: true})
	if err != nil {
		t.Fatalf("forced ProcessItem failed: %v", err)
	}
	if outcome != workflow.OutcomeCompleted {
		t.Fatalf("forced outcome = %s, want completed", outcome)
	}
}

func TestProcessItemSeenOncePerRun(t *testing.T) {
	f := newFixture(t)
	f.resolver.results["vid-1"] = identify.Result{Boss: "Owl", Source: identify.SourceThumbnail}

	ctx := context.Background()
	item := workflow.Item{VideoID: "vid-1", Title: "sekiro_20240101120000"}
	if _, err := f.processor.ProcessItem(ctx, item, workflow.Options{}); err != nil {
		t.Fatalf("first ProcessItem failed: %v", err)
	}
	outcome, err := f.processor.ProcessItem(ctx, item, workflow.Options{Force: true})
	if err != nil {
		t.Fatalf("duplicate ProcessItem failed: %v", err)
	}
	if outcome != workflow.OutcomeSkipped {
		t.Fatalf("duplicate outcome = %s, want skipped", outcome)
	}
	if f.resolver.calls != 1 {
		t.Fatalf("resolver calls = %d, want 1", f.resolver.calls)
	}
}

func TestProcessItemRecordsFailures(t *testing.T) {
	f := newFixture(t)
	f.resolver.err = errors.New("classifier unavailable")

	ctx := context.Background()
	outcome, err := f.processor.ProcessItem(ctx, workflow.Item{
		VideoID: "vid-1",
		Title:   "sekiro_20240101120000",
	}, workflow.Options{})
	if err == nil {
		t.Fatal("expected failure to propagate")
	}
	if outcome != workflow.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", outcome)
	}

	job, err := f.store.GetJob(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job == nil || job.Status != store.StatusFailed {
		t.Fatalf("unexpected job: %#v", job)
	}
	if job.ErrorMessage == "" {
		t.Fatal("expected error message recorded")
	}
	if len(f.auditor.errors) != 1 {
		t.Fatalf("error audit missing: %#v", f.auditor.errors)
	}
}

func TestProcessItemContainsPanics(t *testing.T) {
	f := newFixture(t)
	f.resolver.panicOn = "vid-1"

	ctx := context.Background()
	outcome, err := f.processor.ProcessItem(ctx, workflow.Item{
		VideoID: "vid-1",
		Title:   "sekiro_20240101120000",
	}, workflow.Options{})
	if err == nil {
		t.Fatal("expected the panic to surface as an error")
	}
	if outcome != workflow.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", outcome)
	}

	job, err := f.store.GetJob(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job == nil || job.Status != store.StatusFailed {
		t.Fatalf("unexpected job: %#v", job)
	}
	if !strings.Contains(job.ErrorMessage, "resolver blew up") {
		t.Fatalf("error message = %q, want the panic text", job.ErrorMessage)
	}
	if len(f.auditor.errors) != 1 {
		t.Fatalf("error audit missing: %#v", f.auditor.errors)
	}
}

func TestRunSequentialContinuesPastPanic(t *testing.T) {
	f := newFixture(t)
	f.resolver.panicOn = "bad"
	f.resolver.results["good"] = identify.Result{Boss: "Owl", Source: identify.SourceThumbnail}

	items := []workflow.Item{
		{VideoID: "bad", Title: "sekiro_20240101120001"},
		{VideoID: "good", Title: "sekiro_20240101120002"},
	}
	summary, err := f.processor.RunSequential(context.Background(), items, workflow.Options{}, 0)
	if err != nil {
		t.Fatalf("RunSequential failed: %v", err)
	}
	if summary.Total != 2 || summary.Completed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestProcessItemRenameFailureKeepsOriginal(t *testing.T) {
	f := newFixture(t)
	f.resolver.results["vid-1"] = identify.Result{Boss: "Owl", Source: identify.SourceThumbnail}
	f.channel.renameErr = errors.New("quota exceeded")

	ctx := context.Background()
	outcome, err := f.processor.ProcessItem(ctx, workflow.Item{
		VideoID: "vid-1",
		Title:   "sekiro_20240101120000",
	}, workflow.Options{})
	if err == nil {
		t.Fatal("expected rename failure to propagate")
	}
	if outcome != workflow.OutcomeFailed {
		t.Fatalf("outcome = %s, want failed", outcome)
	}
	if _, ok := f.channel.titles["vid-1"]; ok {
		t.Fatal("title must not change on failure")
	}
}

func TestProcessItemPlaylistFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.resolver.results["vid-1"] = identify.Result{Boss: "Owl", Source: identify.SourceThumbnail}
	f.channel.playlistErr = errors.New("playlists unavailable")

	outcome, err := f.processor.ProcessItem(context.Background(), workflow.Item{
		VideoID: "vid-1",
		Title:   "sekiro_20240101120000",
	}, workflow.Options{})
	if err != nil {
		t.Fatalf("ProcessItem failed: %v", err)
	}
	if outcome != workflow.OutcomeCompleted {
		t.Fatalf("outcome = %s, want completed", outcome)
	}
}

func TestProcessItemDryRunTouchesNothing(t *testing.T) {
	f := newFixture(t)
	f.resolver.results["vid-1"] = identify.Result{Boss: "Owl", Source: identify.SourceThumbnail}

	ctx := context.Background()
	outcome, err := f.processor.ProcessItem(ctx, workflow.Item{
		VideoID: "vid-1",
		Title:   "sekiro_20240101120000",
	}, workflow.Options{DryRun: true})
	if err != nil {
		t.Fatalf("ProcessItem failed: %v", err)
	}
	if outcome != workflow.OutcomeSkipped {
		t.Fatalf("outcome = %s, want skipped", outcome)
	}
	if f.resolver.calls != 0 {
		t.Fatalf("dry run must not identify, calls = %d", f.resolver.calls)
	}
	if len(f.channel.titles) != 0 {
		t.Fatalf("dry run must not rename: %#v", f.channel.titles)
	}
	job, err := f.store.GetJob(ctx, "vid-1")
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job != nil {
		t.Fatalf("dry run must not write jobs: %#v", job)
	}
}

func TestRunSequentialTallies(t *testing.T) {
	f := newFixture(t)
	f.resolver.results["good"] = identify.Result{Boss: "Owl", Source: identify.SourceThumbnail}

	items := []workflow.Item{
		{VideoID: "good", Title: "sekiro_20240101120001"},
		{VideoID: "custom", Title: "already renamed"},
		{VideoID: "good", Title: "sekiro_20240101120001"},
	}
	summary, err := f.processor.RunSequential(context.Background(), items, workflow.Options{}, 0)
	if err != nil {
		t.Fatalf("RunSequential failed: %v", err)
	}
	if summary.Total != 3 || summary.Completed != 1 || summary.Skipped != 2 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestRunParallelProcessesEverything(t *testing.T) {
	f := newFixture(t)

	var items []workflow.Item
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("vid-%02d", i)
		f.resolver.results[id] = identify.Result{Boss: "Owl", Source: identify.SourceThumbnail}
		items = append(items, workflow.Item{
			VideoID: id,
			Title:   fmt.Sprintf("sekiro_202401011200%02d", i),
		})
	}

	summary, err := f.processor.RunParallel(context.Background(), items, workflow.Options{}, 4)
	if err != nil {
		t.Fatalf("RunParallel failed: %v", err)
	}
	if summary.Total != 20 || summary.Completed != 20 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if len(f.channel.titles) != 20 {
		t.Fatalf("expected 20 renames, got %d", len(f.channel.titles))
	}
}

func TestRunParallelTalliesFailures(t *testing.T) {
	f := newFixture(t)
	f.resolver.err = errors.New("classifier down")

	items := []workflow.Item{
		{VideoID: "a", Title: "sekiro_20240101120001"},
		{VideoID: "b", Title: "sekiro_20240101120002"},
	}
	summary, err := f.processor.RunParallel(context.Background(), items, workflow.Options{}, 2)
	if err != nil {
		t.Fatalf("RunParallel failed: %v", err)
	}
	if summary.Total != 2 || summary.Failed != 2 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}
