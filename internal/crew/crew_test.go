package crew

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thomas-vilte/reqtracker/internal/agents"
	"github.com/thomas-vilte/reqtracker/internal/ai"
	"github.com/thomas-vilte/reqtracker/internal/config"
	domainErrors "github.com/thomas-vilte/reqtracker/internal/errors"
	"github.com/thomas-vilte/reqtracker/internal/models"
)

const analyzerJSON = `{"summary":"Auto Tool","problem":"P","goal":"G","artifacts":"A","criteria":"C","risks":"R"}`

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, profileName string, env map[string]string) ai.BackendHandle {
	args := m.Called(ctx, profileName, env)
	return args.Get(0).(ai.BackendHandle)
}

type stubBackend struct {
	handle ai.BackendHandle
	text   string
	err    error
	block  bool
}

func (b *stubBackend) Generate(ctx context.Context, _ ai.Request) (*ai.Response, error) {
	if b.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if b.err != nil {
		return nil, b.err
	}
	return &ai.Response{Text: b.text}, nil
}

func (b *stubBackend) Handle() ai.BackendHandle { return b.handle }

type stubBuilder struct {
	backend ai.Backend
	err     error
}

func (s stubBuilder) NewBackend(context.Context, ai.BackendHandle) (ai.Backend, error) {
	return s.backend, s.err
}

// recordingAdapters implements both adapter capabilities and records calls.
type recordingAdapters struct {
	mu     sync.Mutex
	calls  []string
	titles []string
}

func (r *recordingAdapters) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingAdapters) CreateFeature(_ context.Context, req models.FeatureRequest) (*models.WorkItemRef, error) {
	r.record("create_feature:" + req.Title)
	return &models.WorkItemRef{ID: "501"}, nil
}

func (r *recordingAdapters) CreatePage(_ context.Context, _, title, _, _ string) (*models.PageRef, error) {
	r.record("create_page:" + title)
	return &models.PageRef{ID: "9001", Title: title}, nil
}

func (r *recordingAdapters) UpdatePageTitle(_ context.Context, pageID, title string) (*models.PageRef, error) {
	r.record("update_page_title:" + pageID)
	r.mu.Lock()
	r.titles = append(r.titles, title)
	r.mu.Unlock()
	return &models.PageRef{ID: pageID, Title: title}, nil
}

func (r *recordingAdapters) ListProjects(context.Context) ([]string, error) { return nil, nil }
func (r *recordingAdapters) ListWorkItems(context.Context, string, string, string) ([]models.WorkItem, error) {
	return nil, nil
}
func (r *recordingAdapters) ListAreaPaths(context.Context, string) ([]models.AreaPath, error) {
	return nil, nil
}
func (r *recordingAdapters) DeleteWorkItem(context.Context, int) error          { return nil }
func (r *recordingAdapters) ListSpaces(context.Context) ([]models.Space, error) { return nil, nil }
func (r *recordingAdapters) ListPages(context.Context, string) ([]models.Page, error) {
	return nil, nil
}
func (r *recordingAdapters) GetPageContent(context.Context, string) (*models.PageContent, error) {
	return nil, nil
}
func (r *recordingAdapters) DeletePage(context.Context, string) error { return nil }

// testStages builds real agents over recording adapters.
type testStages struct {
	adapters   *recordingAdapters
	defs       *ai.Definitions
	publishers int
	mu         sync.Mutex
}

func (s *testStages) NewAnalyzer(_ context.Context, backend ai.Backend) (AnalyzeStage, error) {
	a, err := agents.NewAnalyzer(backend, s.defs)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *testStages) NewPublisher(_ context.Context, backend ai.Backend) (PublishStage, error) {
	s.mu.Lock()
	s.publishers++
	s.mu.Unlock()
	return agents.NewPublisher(backend.Handle(), s.adapters, s.adapters,
		agents.PublishOptions{Space: "BR"}), nil
}

var qwenHandle = ai.BackendHandle{ProfileKey: "qwen", Model: "qwen-max", Provider: config.ProviderOpenAI}

func newTestCrew(t *testing.T, backend *stubBackend, opts ...Option) (*Crew, *recordingAdapters, *testStages, *MockResolver) {
	t.Helper()
	defs, err := ai.LoadDefinitions()
	require.NoError(t, err)

	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(qwenHandle).Maybe()

	adapters := &recordingAdapters{}
	stages := &testStages{adapters: adapters, defs: defs}
	c := New(resolver, stubBuilder{backend: backend}, stages, agents.ParseRequirement, opts...)
	return c, adapters, stages, resolver
}

func TestCrew_Run(t *testing.T) {
	t.Run("Success - end to end", func(t *testing.T) {
		var states []State
		c, adapters, _, resolver := newTestCrew(t,
			&stubBackend{handle: qwenHandle, text: analyzerJSON},
			WithObserver(func(_ string, s State) { states = append(states, s) }))

		out := c.Run(context.Background(), "创建一个自动化需求分析工具", "qwen")

		assert.False(t, strings.HasPrefix(out, ErrorPrefix), out)
		assert.Contains(t, out, "501")
		assert.Contains(t, out, "9001")
		assert.Contains(t, out, "BR 501 Auto Tool")
		assert.Equal(t, []string{"create_feature:Auto Tool", "create_page:Auto Tool", "update_page_title:9001"}, adapters.calls)
		assert.Equal(t, []string{"BR 501 Auto Tool"}, adapters.titles)
		assert.Equal(t, []State{StateResolving, StateAnalyzing, StateValidating, StatePublishing, StateDone}, states)
		resolver.AssertCalled(t, "Resolve", mock.Anything, "qwen", mock.Anything)
	})

	t.Run("Error - analyzer failure is surfaced and no adapter is called", func(t *testing.T) {
		var states []State
		c, adapters, stages, _ := newTestCrew(t,
			&stubBackend{err: errors.New("model exploded")},
			WithObserver(func(_ string, s State) { states = append(states, s) }))

		out := c.Run(context.Background(), "text", "")

		assert.True(t, strings.HasPrefix(out, ErrorPrefix))
		assert.Contains(t, out, "model exploded")
		assert.Empty(t, adapters.calls)
		assert.Zero(t, stages.publishers)
		assert.Equal(t, StateFailed, states[len(states)-1])
	})

	t.Run("Error - malformed analyzer output stops before publishing", func(t *testing.T) {
		var states []State
		c, adapters, stages, _ := newTestCrew(t,
			&stubBackend{text: "Sure! Here is the analysis."},
			WithObserver(func(_ string, s State) { states = append(states, s) }))

		out := c.Run(context.Background(), "text", "")

		assert.True(t, strings.HasPrefix(out, ErrorPrefix))
		assert.Contains(t, out, "analyzer output is not a valid requirement record")
		assert.Empty(t, adapters.calls)
		assert.Zero(t, stages.publishers)
		assert.Equal(t, []State{StateResolving, StateAnalyzing, StateValidating, StateFailed}, states)
	})

	t.Run("Error - empty input makes no calls", func(t *testing.T) {
		c, adapters, _, resolver := newTestCrew(t, &stubBackend{text: analyzerJSON})

		out := c.Run(context.Background(), "   ", "qwen")

		assert.True(t, strings.HasPrefix(out, ErrorPrefix))
		assert.Empty(t, adapters.calls)
		resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error - backend construction failure", func(t *testing.T) {
		defs, err := ai.LoadDefinitions()
		require.NoError(t, err)
		resolver := new(MockResolver)
		resolver.On("Resolve", mock.Anything, "", mock.Anything).Return(qwenHandle)
		c := New(resolver, stubBuilder{err: domainErrors.ErrAPIKeyMissing}, &testStages{adapters: &recordingAdapters{}, defs: defs}, agents.ParseRequirement)

		out := c.Run(context.Background(), "text", "")

		assert.Equal(t, ErrorPrefix+domainErrors.ErrAPIKeyMissing.Error(), out)
	})

	t.Run("Error - stage timeout", func(t *testing.T) {
		c, adapters, _, _ := newTestCrew(t, &stubBackend{block: true}, WithStageTimeout(20*time.Millisecond))

		out := c.Run(context.Background(), "text", "")

		assert.True(t, strings.HasPrefix(out, ErrorPrefix))
		assert.Contains(t, out, context.DeadlineExceeded.Error())
		assert.Empty(t, adapters.calls)
	})

	t.Run("Success - env is passed to the resolver", func(t *testing.T) {
		env := map[string]string{config.SelectedModelKey: "grok"}
		defs, err := ai.LoadDefinitions()
		require.NoError(t, err)
		resolver := new(MockResolver)
		resolver.On("Resolve", mock.Anything, "", env).Return(qwenHandle).Once()
		c := New(resolver, stubBuilder{backend: &stubBackend{text: analyzerJSON}},
			&testStages{adapters: &recordingAdapters{}, defs: defs}, agents.ParseRequirement,
			WithEnv(func(context.Context) map[string]string { return env }))

		out := c.Run(context.Background(), "text", "")

		assert.False(t, strings.HasPrefix(out, ErrorPrefix), out)
		resolver.AssertExpectations(t)
	})
}

type panickingStages struct {
	testStages
}

type panickingAnalyzer struct{}

func (panickingAnalyzer) Run(context.Context, string) (string, error) {
	panic("tokenizer state corrupted")
}

func (s *panickingStages) NewAnalyzer(context.Context, ai.Backend) (AnalyzeStage, error) {
	return panickingAnalyzer{}, nil
}

func TestCrew_Run_StagePanic(t *testing.T) {
	t.Run("Error - panicking analyzer fails the run", func(t *testing.T) {
		var states []State
		adapters := &recordingAdapters{}
		resolver := new(MockResolver)
		resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(qwenHandle)
		c := New(resolver, stubBuilder{backend: &stubBackend{handle: qwenHandle}},
			&panickingStages{testStages{adapters: adapters}}, agents.ParseRequirement,
			WithObserver(func(_ string, s State) { states = append(states, s) }))

		var out string
		require.NotPanics(t, func() {
			out = c.Run(context.Background(), "text", "")
		})

		assert.True(t, strings.HasPrefix(out, ErrorPrefix), out)
		assert.Contains(t, out, domainErrors.ErrStagePanic.Message)
		assert.Contains(t, out, "tokenizer state corrupted")
		assert.Empty(t, adapters.calls)
		assert.Equal(t, []State{StateResolving, StateAnalyzing, StateFailed}, states)
	})

	t.Run("Error - typed result is nil with a pipeline error", func(t *testing.T) {
		resolver := new(MockResolver)
		resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(qwenHandle)
		c := New(resolver, stubBuilder{backend: &stubBackend{handle: qwenHandle}},
			&panickingStages{testStages{adapters: &recordingAdapters{}}}, agents.ParseRequirement)

		result, err := c.Execute(context.Background(), "text", "")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, domainErrors.ErrStagePanic)
	})
}

func TestCrew_ConcurrentRuns(t *testing.T) {
	c, adapters, _, _ := newTestCrew(t, &stubBackend{handle: qwenHandle, text: analyzerJSON})

	const runs = 8
	var wg sync.WaitGroup
	outs := make([]string, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outs[i] = c.Run(context.Background(), fmt.Sprintf("requirement %d", i), "")
		}()
	}
	wg.Wait()

	for _, out := range outs {
		assert.Contains(t, out, "Work Item ID: 501")
	}
	assert.Len(t, adapters.calls, runs*3)
}

func TestStages_NewPublisher(t *testing.T) {
	defs, err := ai.LoadDefinitions()
	require.NoError(t, err)
	backend := &stubBackend{handle: qwenHandle}

	t.Run("Error - tracker not configured", func(t *testing.T) {
		_, err := NewStages(&config.Settings{}, defs).NewPublisher(context.Background(), backend)
		assert.ErrorIs(t, err, domainErrors.ErrTrackerNotConfigured)
	})

	t.Run("Error - wiki not configured", func(t *testing.T) {
		settings := &config.Settings{
			ADO: config.ADOSettings{OrgURL: "https://dev.azure.com/o", PAT: "p", Project: "x"},
		}
		_, err := NewStages(settings, defs).NewPublisher(context.Background(), backend)
		assert.ErrorIs(t, err, domainErrors.ErrWikiNotConfigured)
	})

	t.Run("Success - both adapters configured", func(t *testing.T) {
		settings := &config.Settings{
			ADO:         config.ADOSettings{OrgURL: "https://dev.azure.com/o", PAT: "p", Project: "x"},
			Confluence:  config.ConfluenceSettings{URL: "https://wiki", Token: "t", Space: "BR"},
			HTTPTimeout: time.Second,
		}
		p, err := NewStages(settings, defs).NewPublisher(context.Background(), backend)
		require.NoError(t, err)
		assert.NotNil(t, p)
	})
}

func TestRunPipeline_EmptyInput(t *testing.T) {
	t.Setenv(config.EnvFileVar, t.TempDir()+"/.env")

	out := RunPipeline(context.Background(), "", "")

	assert.True(t, strings.HasPrefix(out, ErrorPrefix))
	assert.Contains(t, out, domainErrors.ErrEmptyInput.Message)
}
