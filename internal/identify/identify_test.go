package identify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bosstitler/internal/identify"
	"bosstitler/internal/services/vision"
	"bosstitler/internal/testsupport"
)

type fakeClassifier struct {
	responses []classifierResponse
	calls     int
	images    [][]string
}

type classifierResponse struct {
	boss string
	err  error
}

func (f *fakeClassifier) Identify(ctx context.Context, images []string, game string, candidates []string) (string, error) {
	f.images = append(f.images, images)
	if f.calls >= len(f.responses) {
		return "", errors.New("unexpected classifier call")
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp.boss, resp.err
}

type fakeSampler struct {
	frames []string
	calls  int
}

func (f *fakeSampler) Sample(ctx context.Context, videoID string) []string {
	f.calls++
	return f.frames
}

type staticCandidates []string

func (s staticCandidates) Candidates(ctx context.Context, game string) []string {
	return s
}

func newIdentifier(t *testing.T, classifier *fakeClassifier, sampler *fakeSampler) (*identify.Identifier, func(ctx context.Context, videoID, game string) error) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	resolver := identify.New(cfg, st, classifier, sampler, staticCandidates{"Malenia, Blade of Miquella"}, nil)

	verifyCached := func(ctx context.Context, videoID, game string) error {
		entry, err := st.CachedBoss(ctx, videoID, game)
		if err != nil {
			return err
		}
		if entry == nil {
			return errors.New("expected cache entry")
		}
		return nil
	}
	return resolver, verifyCached
}

func TestIdentifyThumbnailTier(t *testing.T) {
	classifier := &fakeClassifier{responses: []classifierResponse{{boss: "Malenia, Blade of Miquella"}}}
	sampler := &fakeSampler{}
	resolver, verifyCached := newIdentifier(t, classifier, sampler)

	ctx := context.Background()
	result, err := resolver.Identify(ctx, "vid-1", "Elden Ring")
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if result.Boss != "Malenia, Blade of Miquella" || result.Source != identify.SourceThumbnail {
		t.Fatalf("unexpected result: %#v", result)
	}
	if sampler.calls != 0 {
		t.Fatal("frame sampler must not run when the thumbnail answers")
	}
	if len(classifier.images) != 1 || len(classifier.images[0]) != 1 {
		t.Fatalf("thumbnail tier should send exactly one image: %#v", classifier.images)
	}
	if err := verifyCached(ctx, "vid-1", "Elden Ring"); err != nil {
		t.Fatalf("thumbnail hit not cached: %v", err)
	}
}

func TestIdentifyFallsBackToFrames(t *testing.T) {
	classifier := &fakeClassifier{responses: []classifierResponse{
		{boss: ""},
		{boss: "Fire Giant"},
	}}
	sampler := &fakeSampler{frames: []string{"data:image/jpeg;base64,a", "data:image/jpeg;base64,b"}}
	resolver, verifyCached := newIdentifier(t, classifier, sampler)

	ctx := context.Background()
	result, err := resolver.Identify(ctx, "vid-1", "Elden Ring")
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if result.Boss != "Fire Giant" || result.Source != identify.SourceFrames {
		t.Fatalf("unexpected result: %#v", result)
	}
	if sampler.calls != 1 {
		t.Fatalf("sampler calls = %d, want 1", sampler.calls)
	}
	if len(classifier.images[1]) != 2 {
		t.Fatalf("frame tier should send the sampled frames: %#v", classifier.images[1])
	}
	if err := verifyCached(ctx, "vid-1", "Elden Ring"); err != nil {
		t.Fatalf("frame hit not cached: %v", err)
	}
}

func TestIdentifyServesFromCache(t *testing.T) {
	classifier := &fakeClassifier{responses: []classifierResponse{{boss: "Radahn"}}}
	sampler := &fakeSampler{}
	resolver, _ := newIdentifier(t, classifier, sampler)

	ctx := context.Background()
	if _, err := resolver.Identify(ctx, "vid-1", "Elden Ring"); err != nil {
		t.Fatalf("first Identify failed: %v", err)
	}

	result, err := resolver.Identify(ctx, "vid-1", "Elden Ring")
	if err != nil {
		t.Fatalf("second Identify failed: %v", err)
	}
	// A cache hit keeps the tier that originally produced the entry.
	if result.Boss != "Radahn" || result.Source != identify.SourceThumbnail {
		t.Fatalf("expected cached result, got %#v", result)
	}
	if classifier.calls != 1 {
		t.Fatalf("classifier calls = %d, want 1", classifier.calls)
	}
}

func TestIdentifyUnknownIsNotAnError(t *testing.T) {
	classifier := &fakeClassifier{responses: []classifierResponse{
		{boss: ""},
		{boss: ""},
	}}
	sampler := &fakeSampler{frames: []string{"data:image/jpeg;base64,a"}}
	resolver, _ := newIdentifier(t, classifier, sampler)

	result, err := resolver.Identify(context.Background(), "vid-1", "Elden Ring")
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if result.Known() {
		t.Fatalf("expected unknown result, got %#v", result)
	}
}

func TestIdentifyRetriesTransientErrors(t *testing.T) {
	transient := &vision.StatusError{StatusCode: 429}
	classifier := &fakeClassifier{responses: []classifierResponse{
		{err: transient},
		{err: transient},
		{boss: "Owl"},
	}}
	sampler := &fakeSampler{}
	resolver, _ := newIdentifier(t, classifier, sampler)

	result, err := resolver.Identify(context.Background(), "vid-1", "Sekiro")
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if result.Boss != "Owl" || result.Source != identify.SourceThumbnail {
		t.Fatalf("unexpected result: %#v", result)
	}
	if classifier.calls != 3 {
		t.Fatalf("classifier calls = %d, want 3", classifier.calls)
	}
}

func TestIdentifyDoesNotRetryPermanentErrors(t *testing.T) {
	classifier := &fakeClassifier{responses: []classifierResponse{
		{err: &vision.StatusError{StatusCode: 400}},
	}}
	sampler := &fakeSampler{}
	resolver, _ := newIdentifier(t, classifier, sampler)

	_, err := resolver.Identify(context.Background(), "vid-1", "Sekiro")
	if err == nil {
		t.Fatal("expected error from permanent failure")
	}
	if classifier.calls != 1 {
		t.Fatalf("classifier calls = %d, want 1", classifier.calls)
	}
}

func TestIdentifyExhaustedRetriesFail(t *testing.T) {
	transient := &vision.StatusError{StatusCode: 503}
	classifier := &fakeClassifier{responses: []classifierResponse{
		{err: transient},
		{err: transient},
		{err: transient},
	}}
	sampler := &fakeSampler{}
	resolver, _ := newIdentifier(t, classifier, sampler)

	_, err := resolver.Identify(context.Background(), "vid-1", "Sekiro")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if classifier.calls != 3 {
		t.Fatalf("classifier calls = %d, want 3", classifier.calls)
	}
}

func TestPolicyDelay(t *testing.T) {
	policy := identify.Policy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
	}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{4, 32 * time.Second},
		{5, 60 * time.Second},
		{10, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := policy.Delay(tc.attempt); got != tc.want {
			t.Errorf("Delay(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}
