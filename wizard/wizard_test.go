package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prowriter/article"
	"prowriter/generator"
)

func newTestWizard(t *testing.T, gen *fakeGen, drafts *recordingDrafts, opts ...Option) (*Wizard, *fakeClock) {
	t.Helper()
	clock := &fakeClock{}
	opts = append([]Option{WithAutosave(clock, 2*time.Second)}, opts...)
	w, err := New(gen, drafts, opts...)
	require.NoError(t, err)
	return w, clock
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, newRecordingDrafts())
	require.Error(t, err)
	_, err = New(&fakeGen{}, nil)
	require.Error(t, err)
}

func TestStartPadsAndTruncates(t *testing.T) {
	cases := []struct {
		name     string
		returned int
	}{
		{"short outline padded", 7},
		{"long outline truncated", 13},
		{"exact", 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drafts := newRecordingDrafts()
			w, _ := newTestWizard(t, &fakeGen{outline: titles(tc.returned)}, drafts)

			res, err := w.Start(context.Background(), "Green hydrogen")
			require.NoError(t, err)
			assert.False(t, res.Cached)
			assert.Equal(t, StepOutline, res.Step)

			secs := w.Sections()
			require.Len(t, secs, 10)
			for i, s := range secs {
				assert.Equal(t, i, s.Order)
				assert.Empty(t, s.Content)
				assert.NotEmpty(t, s.ID)
			}
			if tc.returned < 10 {
				assert.Equal(t, "Section 8", secs[7].Title)
				assert.Equal(t, "Section 10", secs[9].Title)
			} else {
				assert.Equal(t, "TJ", secs[9].Title)
			}

			stored, err := drafts.FindByTopic(context.Background(), "green hydrogen")
			require.NoError(t, err)
			assert.Equal(t, article.StatusDraft, stored.Status)
			assert.Len(t, stored.Sections, 10)
			assert.Empty(t, stored.FullText)
		})
	}
}

func TestStartUsesStoredDraftCaseInsensitively(t *testing.T) {
	gen := &fakeGen{outline: titles(10)}
	drafts := newRecordingDrafts()
	w, _ := newTestWizard(t, gen, drafts)

	_, err := w.Start(context.Background(), "Green Hydrogen")
	require.NoError(t, err)
	first := w.Sections()
	w.Reset()

	res, err := w.Start(context.Background(), "  green hydrogen ")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, StepOutline, res.Step)
	assert.Equal(t, 1, gen.outlineCalls)
	assert.Equal(t, first, w.Sections())
	assert.Equal(t, "Green Hydrogen", w.Topic())
}

func TestStartRestoredWithContentGoesToWriting(t *testing.T) {
	drafts := newRecordingDrafts()
	_, err := drafts.MemoryStore.Upsert(context.Background(), article.Draft{
		Topic: "Ports",
		Sections: []article.Section{
			{ID: "a", Title: "A", Order: 0},
			{ID: "b", Title: "B", Content: "done", IsGenerating: true, Order: 1},
		},
	})
	require.NoError(t, err)

	gen := &fakeGen{}
	w, _ := newTestWizard(t, gen, drafts)
	res, err := w.Start(context.Background(), "PORTS")
	require.NoError(t, err)
	assert.Equal(t, StartResult{Cached: true, Step: StepWriting}, res)
	assert.Zero(t, gen.outlineCalls)
	for _, s := range w.Sections() {
		assert.False(t, s.IsGenerating, "restored sections are idle")
	}
}

func TestStartRestoredCompleteGoesToPreview(t *testing.T) {
	drafts := newRecordingDrafts()
	_, err := drafts.MemoryStore.Upsert(context.Background(), article.Draft{
		Topic: "Ports",
		Sections: []article.Section{
			{ID: "a", Title: "A", Content: "one"},
			{ID: "b", Title: "B", Content: "two"},
		},
	})
	require.NoError(t, err)

	w, _ := newTestWizard(t, &fakeGen{}, drafts)
	res, err := w.Start(context.Background(), "ports")
	require.NoError(t, err)
	assert.Equal(t, StartResult{Cached: true, Step: StepPreview}, res)
	assert.Equal(t, StepPreview, w.Step())
}

func TestStartErrors(t *testing.T) {
	t.Run("empty topic", func(t *testing.T) {
		w, _ := newTestWizard(t, &fakeGen{}, newRecordingDrafts())
		_, err := w.Start(context.Background(), "   ")
		require.ErrorIs(t, err, ErrEmptyTopic)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("missing credentials", func(t *testing.T) {
		drafts := newRecordingDrafts()
		w, _ := newTestWizard(t, &fakeGen{outlineErr: generator.ErrMissingCredentials}, drafts)
		_, err := w.Start(context.Background(), "Ports")
		require.ErrorIs(t, err, ErrConfiguration)
		assert.False(t, errors.Is(err, ErrGenerationFailed))
		assert.Equal(t, StepSetup, w.Step())
		assert.False(t, w.IsGeneratingOutline())
		assert.Empty(t, drafts.saves())
	})

	t.Run("provider failure", func(t *testing.T) {
		w, _ := newTestWizard(t, &fakeGen{outlineErr: errors.New("503 upstream")}, newRecordingDrafts())
		_, err := w.Start(context.Background(), "Ports")
		require.ErrorIs(t, err, ErrGenerationFailed)
		assert.False(t, errors.Is(err, ErrConfiguration))
		assert.Equal(t, StepSetup, w.Step())
	})

	t.Run("not from setup", func(t *testing.T) {
		w, _ := newTestWizard(t, &fakeGen{outline: titles(3)}, newRecordingDrafts())
		_, err := w.Start(context.Background(), "Ports")
		require.NoError(t, err)
		_, err = w.Start(context.Background(), "Other")
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("save failure keeps outline", func(t *testing.T) {
		drafts := newRecordingDrafts()
		drafts.failing = errors.New("disk full")
		w, _ := newTestWizard(t, &fakeGen{outline: titles(3)}, drafts)
		_, err := w.Start(context.Background(), "Ports")
		require.NoError(t, err)
		assert.Len(t, w.Sections(), 10)
	})
}

func TestConcurrentStartRejected(t *testing.T) {
	gen := &fakeGen{outline: titles(10), outlineGate: make(chan struct{})}
	w, _ := newTestWizard(t, gen, newRecordingDrafts())

	done := make(chan error, 1)
	go func() {
		_, err := w.Start(context.Background(), "Ports")
		done <- err
	}()
	require.Eventually(t, w.IsGeneratingOutline, time.Second, time.Millisecond)

	_, err := w.Start(context.Background(), "Ports")
	require.ErrorIs(t, err, ErrOutlineInProgress)

	close(gen.outlineGate)
	require.NoError(t, <-done)
	assert.False(t, w.IsGeneratingOutline())
}

func TestDeleteLastSectionFails(t *testing.T) {
	w, _ := newTestWizard(t, &fakeGen{outline: titles(2)}, newRecordingDrafts(), WithOutlineSize(2))
	_, err := w.Start(context.Background(), "Ports")
	require.NoError(t, err)

	secs := w.Sections()
	require.NoError(t, w.DeleteSection(secs[0].ID))
	require.NoError(t, w.DeleteSection("unknown"), "unknown ids are a no-op")

	err = w.DeleteSection(secs[1].ID)
	require.ErrorIs(t, err, ErrLastSection)
	remaining := w.Sections()
	require.Len(t, remaining, 1)
	assert.Equal(t, secs[1].ID, remaining[0].ID)
	assert.Equal(t, 0, remaining[0].Order)
}

func TestStatusFollowsContent(t *testing.T) {
	w, _ := newTestWizard(t, &fakeGen{outline: titles(3)}, newRecordingDrafts(), WithOutlineSize(3))
	ctx := context.Background()
	_, err := w.Start(ctx, "Ports")
	require.NoError(t, err)
	assert.Equal(t, article.StatusDraft, w.Snapshot().Status)

	secs := w.Sections()
	require.NoError(t, w.GenerateOneSection(ctx, secs[0].ID))
	require.NoError(t, w.GenerateOneSection(ctx, secs[1].ID))
	assert.Equal(t, article.StatusDraft, w.Snapshot().Status)

	require.NoError(t, w.DeleteSection(secs[2].ID))
	snap := w.Snapshot()
	assert.Equal(t, article.StatusReady, snap.Status)
	assert.Equal(t, 2, snap.Completed)
}

func TestGenerateOneSection(t *testing.T) {
	ctx := context.Background()

	t.Run("fills content and schedules a save", func(t *testing.T) {
		drafts := newRecordingDrafts()
		w, clock := newTestWizard(t, &fakeGen{outline: titles(3)}, drafts, WithOutlineSize(3))
		_, err := w.Start(ctx, "Ports")
		require.NoError(t, err)
		id := w.Sections()[1].ID

		require.NoError(t, w.GenerateOneSection(ctx, id))
		assert.Equal(t, "prose for TB", w.Sections()[1].Content)
		assert.True(t, w.Snapshot().SavePending)

		clock.Advance(2 * time.Second)
		saves := drafts.saves()
		require.Len(t, saves, 2)
		assert.Equal(t, "## TB\n\nprose for TB", saves[1].FullText)
	})

	t.Run("failure clears flag and keeps content", func(t *testing.T) {
		gen := &fakeGen{outline: titles(3), sectionErr: errors.New("timeout")}
		w, _ := newTestWizard(t, gen, newRecordingDrafts(), WithOutlineSize(3))
		_, err := w.Start(ctx, "Ports")
		require.NoError(t, err)
		id := w.Sections()[0].ID
		w.UpdateSectionContent(id, "old")

		err = w.GenerateOneSection(ctx, id)
		require.ErrorIs(t, err, ErrGenerationFailed)
		s := w.Sections()[0]
		assert.False(t, s.IsGenerating)
		assert.Equal(t, "old", s.Content)
	})

	t.Run("missing credentials", func(t *testing.T) {
		gen := &fakeGen{outline: titles(3), sectionErr: generator.ErrMissingCredentials}
		w, _ := newTestWizard(t, gen, newRecordingDrafts(), WithOutlineSize(3))
		_, err := w.Start(ctx, "Ports")
		require.NoError(t, err)
		err = w.GenerateOneSection(ctx, w.Sections()[0].ID)
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("empty title rejected", func(t *testing.T) {
		gen := &fakeGen{outline: titles(3)}
		w, _ := newTestWizard(t, gen, newRecordingDrafts(), WithOutlineSize(3))
		_, err := w.Start(ctx, "Ports")
		require.NoError(t, err)
		id := w.Sections()[0].ID
		w.UpdateSectionTitle(id, "  ")
		require.ErrorIs(t, w.GenerateOneSection(ctx, id), ErrEmptyTitle)
		assert.Empty(t, gen.sectionCalls())
	})

	t.Run("unknown section", func(t *testing.T) {
		w, _ := newTestWizard(t, &fakeGen{outline: titles(3)}, newRecordingDrafts())
		_, err := w.Start(ctx, "Ports")
		require.NoError(t, err)
		require.ErrorIs(t, w.GenerateOneSection(ctx, "nope"), ErrSectionNotFound)
	})
}

func TestDeletedSectionResultIsDiscarded(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{outline: titles(3), sectionGate: make(chan struct{}), entered: make(chan string, 1)}
	w, _ := newTestWizard(t, gen, newRecordingDrafts(), WithOutlineSize(3))
	_, err := w.Start(ctx, "Ports")
	require.NoError(t, err)
	id := w.Sections()[1].ID

	done := make(chan error, 1)
	go func() { done <- w.GenerateOneSection(ctx, id) }()
	<-gen.entered
	assert.True(t, w.Sections()[1].IsGenerating)
	require.ErrorIs(t, w.GenerateOneSection(ctx, id), ErrSectionBusy)

	require.NoError(t, w.DeleteSection(id))
	close(gen.sectionGate)
	require.NoError(t, <-done)

	for _, s := range w.Sections() {
		assert.NotEqual(t, id, s.ID)
		assert.Empty(t, s.Content)
	}
	assert.Len(t, w.Sections(), 2)
}

func TestParallelSectionsBothApply(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGen{outline: titles(3), sectionGate: make(chan struct{}), entered: make(chan string, 2)}
	w, _ := newTestWizard(t, gen, newRecordingDrafts(), WithOutlineSize(3))
	_, err := w.Start(ctx, "Ports")
	require.NoError(t, err)
	secs := w.Sections()

	var wg sync.WaitGroup
	for _, s := range secs[:2] {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, w.GenerateOneSection(ctx, id))
		}(s.ID)
	}
	<-gen.entered
	<-gen.entered
	close(gen.sectionGate)
	wg.Wait()

	got := w.Sections()
	assert.Equal(t, "prose for TA", got[0].Content)
	assert.Equal(t, "prose for TB", got[1].Content)
	assert.Empty(t, got[2].Content)
}

func TestGenerateAllRemainingIsSequentialAndSkipsFilled(t *testing.T) {
	drafts := newRecordingDrafts()
	_, err := drafts.MemoryStore.Upsert(context.Background(), article.Draft{
		Topic: "Ports",
		Sections: []article.Section{
			{ID: "a", Title: "A"},
			{ID: "b", Title: "B", Content: "already"},
			{ID: "c", Title: "C"},
		},
	})
	require.NoError(t, err)
	gen := &fakeGen{}
	w, _ := newTestWizard(t, gen, drafts)
	_, err = w.Start(context.Background(), "Ports")
	require.NoError(t, err)

	require.NoError(t, w.GenerateAllRemaining(context.Background()))
	assert.Equal(t, []string{"A", "C"}, gen.sectionCalls())
	assert.Equal(t, 1, gen.maxInFlight)
	got := w.Sections()
	assert.Equal(t, "already", got[1].Content)
	assert.Equal(t, article.StatusReady, w.Snapshot().Status)
}

func TestGenerateAllRemainingCollectsErrors(t *testing.T) {
	gen := &fakeGen{outline: titles(3), sectionErr: errors.New("flaky")}
	w, _ := newTestWizard(t, gen, newRecordingDrafts(), WithOutlineSize(3))
	_, err := w.Start(context.Background(), "Ports")
	require.NoError(t, err)

	err = w.GenerateAllRemaining(context.Background())
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Len(t, gen.sectionCalls(), 3, "a failure does not stop the loop")

	gen.sectionErr = generator.ErrMissingCredentials
	gen.calls = nil
	err = w.GenerateAllRemaining(context.Background())
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Len(t, gen.sectionCalls(), 1, "configuration errors stop the loop")
}

func TestGenerateAllRemainingStopsOnCancel(t *testing.T) {
	gen := &fakeGen{outline: titles(3)}
	w, _ := newTestWizard(t, gen, newRecordingDrafts(), WithOutlineSize(3))
	_, err := w.Start(context.Background(), "Ports")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = w.GenerateAllRemaining(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, gen.sectionCalls())
}

func TestRapidEditsSaveOnce(t *testing.T) {
	drafts := newRecordingDrafts()
	w, clock := newTestWizard(t, &fakeGen{outline: titles(3)}, drafts, WithOutlineSize(3))
	_, err := w.Start(context.Background(), "Ports")
	require.NoError(t, err)
	require.Len(t, drafts.saves(), 1)
	id := w.Sections()[0].ID

	for _, title := range []string{"a", "ab", "abc", "abcd", "abcde"} {
		require.True(t, w.UpdateSectionTitle(id, title))
		clock.Advance(time.Second)
	}
	assert.Len(t, drafts.saves(), 1, "no save inside the quiet window")

	clock.Advance(time.Second)
	saves := drafts.saves()
	require.Len(t, saves, 2)
	assert.Equal(t, "abcde", saves[1].Sections[0].Title)
	assert.False(t, w.Snapshot().SavePending)

	clock.Advance(10 * time.Second)
	assert.Len(t, drafts.saves(), 2)
}

func TestSaveFailureKeepsState(t *testing.T) {
	drafts := newRecordingDrafts()
	w, clock := newTestWizard(t, &fakeGen{outline: titles(3)}, drafts, WithOutlineSize(3))
	_, err := w.Start(context.Background(), "Ports")
	require.NoError(t, err)

	drafts.mu.Lock()
	drafts.failing = errors.New("offline")
	drafts.mu.Unlock()
	id := w.Sections()[0].ID
	w.UpdateSectionInstruction(id, "keep")
	clock.Advance(2 * time.Second)

	assert.Equal(t, "keep", w.Sections()[0].Instruction)
	assert.Len(t, drafts.saves(), 2)
}

func TestNavigation(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestWizard(t, &fakeGen{outline: titles(3)}, newRecordingDrafts(), WithOutlineSize(3))

	_, err := w.Advance()
	require.ErrorIs(t, err, ErrInvalidTransition, "setup leaves only through start")

	_, err = w.Start(ctx, "Ports")
	require.NoError(t, err)

	step, err := w.Advance()
	require.NoError(t, err)
	assert.Equal(t, StepKnowledgeBase, step)
	step, err = w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepOutline, step)
	_, err = w.Back()
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, _ = w.Advance()
	step, err = w.Advance()
	require.NoError(t, err)
	assert.Equal(t, StepWriting, step)

	_, err = w.Advance()
	require.ErrorIs(t, err, ErrNothingToPreview)
	assert.Equal(t, StepWriting, w.Step())

	require.NoError(t, w.GenerateOneSection(ctx, w.Sections()[0].ID))
	step, err = w.Advance()
	require.NoError(t, err)
	assert.Equal(t, StepPreview, step)
	assert.Contains(t, w.Preview(), "# Ports\n\n## TA\n\nprose for TA")

	step, err = w.Advance()
	require.NoError(t, err)
	assert.Equal(t, StepPublishReady, step)
	_, err = w.Advance()
	require.ErrorIs(t, err, ErrInvalidTransition)
	w.Flush()
}

func TestResetFlushesPendingSave(t *testing.T) {
	drafts := newRecordingDrafts()
	w, clock := newTestWizard(t, &fakeGen{outline: titles(3)}, drafts, WithOutlineSize(3))
	_, err := w.Start(context.Background(), "Ports")
	require.NoError(t, err)

	id := w.Sections()[2].ID
	w.UpdateSectionTitle(id, "Renamed")
	w.Reset()

	saves := drafts.saves()
	require.Len(t, saves, 2)
	assert.Equal(t, "Renamed", saves[1].Sections[2].Title)

	snap := w.Snapshot()
	assert.Equal(t, StepSetup, snap.Step)
	assert.Empty(t, snap.Topic)
	assert.Empty(t, snap.Sections)

	clock.Advance(5 * time.Second)
	assert.Len(t, drafts.saves(), 2, "flushed timer does not fire again")
}

func TestResetWaitsForRunningSave(t *testing.T) {
	drafts := newRecordingDrafts()
	w, clock := newTestWizard(t, &fakeGen{outline: titles(3)}, drafts, WithOutlineSize(3))
	_, err := w.Start(context.Background(), "Ports")
	require.NoError(t, err)

	gate, entered := make(chan struct{}), make(chan struct{}, 1)
	drafts.mu.Lock()
	drafts.gate, drafts.entered = gate, entered
	drafts.mu.Unlock()

	w.UpdateSectionTitle(w.Sections()[0].ID, "Renamed")
	fired := make(chan struct{})
	go func() {
		defer close(fired)
		clock.Advance(2 * time.Second)
	}()
	<-entered

	reset := make(chan struct{})
	go func() {
		defer close(reset)
		w.Reset()
	}()
	select {
	case <-reset:
		t.Fatal("Reset returned while the auto-save was still writing")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	<-reset
	<-fired

	d, err := drafts.FindByTopic(context.Background(), "ports")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", d.Sections[0].Title)
	assert.Equal(t, StepSetup, w.Step())
}

func TestFlushWithNothingPendingReturns(t *testing.T) {
	d := NewDebouncer(&fakeClock{}, time.Second)
	d.Flush()
	assert.False(t, d.Pending())
}

func TestApplyMethod(t *testing.T) {
	w, _ := newTestWizard(t, &fakeGen{outline: titles(3)}, newRecordingDrafts(), WithOutlineSize(3))
	_, err := w.Start(context.Background(), "Ports")
	require.NoError(t, err)

	m, ok := article.NewCatalog().Get("swot")
	require.True(t, ok)
	id := w.Sections()[0].ID
	require.True(t, w.ApplyMethod(id, m))
	assert.Equal(t, m.Apply(), w.Sections()[0].Instruction)
	assert.False(t, w.ApplyMethod("nope", m))
	require.NoError(t, w.Close())
}
