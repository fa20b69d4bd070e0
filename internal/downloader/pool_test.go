package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lerrors "lucidexport/pkg/errors"
	"lucidexport/pkg/logger"
	"lucidexport/pkg/models"
	"lucidexport/pkg/ratelimit"
)

// MockClient records concurrency and fails or panics on chosen URLs
type MockClient struct {
	downloadDelay time.Duration
	failURLs      map[string]error
	panicURLs     map[string]bool

	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *MockClient) DownloadPage(ctx context.Context, pageURL, apiKey, contentType string) ([]byte, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		old := m.peak.Load()
		if n <= old || m.peak.CompareAndSwap(old, n) {
			break
		}
	}

	if m.downloadDelay > 0 {
		time.Sleep(m.downloadDelay)
	}
	if m.panicURLs[pageURL] {
		panic("decoder exploded")
	}
	if err := m.failURLs[pageURL]; err != nil {
		return nil, err
	}
	return []byte("image:" + pageURL), nil
}

// MockStorage keeps saved pages in memory
type MockStorage struct {
	mu        sync.Mutex
	saved     map[string]string
	saveError error
}

func NewMockStorage() *MockStorage {
	return &MockStorage{saved: make(map[string]string)}
}

func (m *MockStorage) SavePage(r io.Reader, dir, fileName string) (string, int64, error) {
	if m.saveError != nil {
		return "", 0, m.saveError
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	path := dir + "/" + fileName
	m.mu.Lock()
	m.saved[path] = string(data)
	m.mu.Unlock()
	return path, int64(len(data)), nil
}

func (m *MockStorage) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// recordingObserver counts observer callbacks
type recordingObserver struct {
	started  atomic.Int32
	finished atomic.Int32
}

func (o *recordingObserver) PageStarted(string, int) { o.started.Add(1) }
func (o *recordingObserver) PageFinished(string, models.PageOutcome) {
	o.finished.Add(1)
}

// panickingObserver blows up on every finished page
type panickingObserver struct {
	started atomic.Int32
}

func (o *panickingObserver) PageStarted(string, int) { o.started.Add(1) }
func (o *panickingObserver) PageFinished(string, models.PageOutcome) {
	panic("observer exploded")
}

// slotObserver records how many limiter slots are taken when a page is reported
type slotObserver struct {
	limiter *ratelimit.Semaphore
	held    atomic.Int32
}

func (o *slotObserver) PageStarted(string, int) {}
func (o *slotObserver) PageFinished(string, models.PageOutcome) {
	o.held.Store(int32(o.limiter.InFlight()))
}

func jobs(n int) []PageJob {
	out := make([]PageJob, n)
	for i := range out {
		out[i] = PageJob{
			Index:     i,
			PageTitle: fmt.Sprintf("P%d", i+1),
			URL:       fmt.Sprintf("https://example.test/documents/D1?page=%d&crop=content", i+1),
			Dir:       "/out/Doc",
			FileName:  fmt.Sprintf("[%02d] - P%d.png", i+1, i+1),
		}
	}
	return out
}

func TestPoolOutcomesAreNumberedInOrder(t *testing.T) {
	client := &MockClient{downloadDelay: time.Millisecond}
	storage := NewMockStorage()
	observer := &recordingObserver{}
	limiter := ratelimit.NewSemaphore(3)

	const n = 25
	pool := NewPool(Config{DocumentID: "D1", APIKey: "k", PageCount: n}, client, storage, limiter, observer, logger.NewNopLogger())
	for _, job := range jobs(n) {
		pool.Submit(context.Background(), job)
	}
	outcomes := pool.Wait()

	require.Len(t, outcomes, n)
	for i, outcome := range outcomes {
		assert.Equal(t, i+1, outcome.PageNumber)
		assert.True(t, outcome.Success, "page %d: %v", i+1, outcome.Err)
		assert.True(t, outcome.Started)
		assert.Equal(t, fmt.Sprintf("/out/Doc/[%02d] - P%d.png", i+1, i+1), outcome.Path)
	}
	assert.Equal(t, n, storage.Count())
	assert.Equal(t, int32(n), observer.started.Load())
	assert.Equal(t, int32(n), observer.finished.Load())
	assert.Equal(t, 0, limiter.InFlight())
}

func TestPoolsShareGlobalCap(t *testing.T) {
	client := &MockClient{downloadDelay: 3 * time.Millisecond}
	storage := NewMockStorage()
	limiter := ratelimit.NewSemaphore(4)

	var wg sync.WaitGroup
	for d := 0; d < 5; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			pool := NewPool(Config{DocumentID: fmt.Sprintf("D%d", d), PageCount: 10}, client, storage, limiter, nil, logger.NewNopLogger())
			for _, job := range jobs(10) {
				pool.Submit(context.Background(), job)
			}
			pool.Wait()
		}(d)
	}
	wg.Wait()

	assert.Equal(t, int32(50), client.calls.Load())
	assert.LessOrEqual(t, client.peak.Load(), int32(4))
	assert.Equal(t, 0, limiter.InFlight())
}

func TestPoolIsolatesFailures(t *testing.T) {
	all := jobs(5)
	client := &MockClient{
		failURLs:  map[string]error{all[2].URL: &lerrors.Error{Type: lerrors.ErrorTypeEmptyResponse, Message: "no data"}},
		panicURLs: map[string]bool{all[4].URL: true},
	}
	storage := NewMockStorage()
	limiter := ratelimit.NewSemaphore(2)
	log := logger.NewTestLogger()

	pool := NewPool(Config{DocumentID: "D1", PageCount: 5}, client, storage, limiter, nil, log)
	for _, job := range all {
		pool.Submit(context.Background(), job)
	}
	outcomes := pool.Wait()

	for _, i := range []int{0, 1, 3} {
		assert.True(t, outcomes[i].Success, "page %d should succeed", i+1)
	}

	assert.False(t, outcomes[2].Success)
	assert.True(t, lerrors.IsType(outcomes[2].Err, lerrors.ErrorTypeEmptyResponse))
	var stageErr *lerrors.StageError
	require.True(t, errors.As(outcomes[2].Err, &stageErr))
	assert.Equal(t, lerrors.StageDownload, stageErr.Stage)
	assert.Equal(t, 3, stageErr.Page)

	assert.False(t, outcomes[4].Success)
	require.True(t, errors.As(outcomes[4].Err, &stageErr))
	assert.Equal(t, lerrors.StageInternal, stageErr.Stage)
	assert.True(t, strings.Contains(outcomes[4].ErrorMessage(), "decoder exploded"))

	assert.Equal(t, 0, limiter.InFlight(), "slots must be released after failures and panics")
	assert.Len(t, log.GetMessagesByLevel("ERROR"), 2)
}

func TestPoolWriteFailure(t *testing.T) {
	storage := NewMockStorage()
	storage.saveError = errors.New("disk full")
	pool := NewPool(Config{DocumentID: "D1", PageCount: 1}, &MockClient{}, storage, ratelimit.NewSemaphore(1), nil, logger.NewNopLogger())

	pool.Submit(context.Background(), jobs(1)[0])
	outcomes := pool.Wait()

	assert.False(t, outcomes[0].Success)
	assert.True(t, lerrors.IsType(outcomes[0].Err, lerrors.ErrorTypeIO))
	assert.Contains(t, outcomes[0].ErrorMessage(), "disk full")
}

func TestPoolCancelledBeforeAcquire(t *testing.T) {
	limiter := ratelimit.NewSemaphore(1)
	require.NoError(t, limiter.Acquire(context.Background()))
	defer limiter.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &MockClient{}
	observer := &recordingObserver{}
	pool := NewPool(Config{DocumentID: "D1", PageCount: 2}, client, NewMockStorage(), limiter, observer, logger.NewNopLogger())
	for _, job := range jobs(2) {
		pool.Submit(ctx, job)
	}
	outcomes := pool.Wait()

	require.Len(t, outcomes, 2)
	for i, outcome := range outcomes {
		assert.Equal(t, i+1, outcome.PageNumber)
		assert.False(t, outcome.Success)
		assert.False(t, outcome.Started)
		assert.ErrorIs(t, outcome.Err, context.Canceled)
	}
	assert.Equal(t, int32(0), client.calls.Load())
	assert.Equal(t, int32(0), observer.started.Load())
	assert.Equal(t, int32(2), observer.finished.Load())
}

func TestPoolSurvivesPanickingObserver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &MockClient{downloadDelay: 20 * time.Millisecond}
	observer := &panickingObserver{}
	limiter := ratelimit.NewSemaphore(2)
	log := logger.NewTestLogger()

	pool := NewPool(Config{DocumentID: "D1", PageCount: 3}, client, NewMockStorage(), limiter, observer, log)
	all := jobs(3)
	pool.Submit(ctx, all[0])
	pool.Submit(ctx, all[1])
	// no slot is free and ctx is done, so page 3 is recorded on this goroutine
	cancel()
	pool.Submit(ctx, all[2])
	outcomes := pool.Wait()

	require.Len(t, outcomes, 3)
	for i, outcome := range outcomes {
		assert.Equal(t, i+1, outcome.PageNumber)
	}
	assert.True(t, outcomes[0].Success)
	assert.True(t, outcomes[1].Success)
	assert.False(t, outcomes[2].Success)
	assert.False(t, outcomes[2].Started)
	assert.ErrorIs(t, outcomes[2].Err, context.Canceled)

	assert.Equal(t, int32(2), observer.started.Load())
	assert.Equal(t, 0, limiter.InFlight())
	panics := 0
	for _, msg := range log.GetMessagesByLevel("ERROR") {
		if msg.Message == "Page observer panicked" {
			panics++
		}
	}
	assert.Equal(t, 3, panics)
}

func TestPoolReleasesSlotBeforeReporting(t *testing.T) {
	limiter := ratelimit.NewSemaphore(1)
	observer := &slotObserver{limiter: limiter}
	observer.held.Store(-1)

	pool := NewPool(Config{DocumentID: "D1", PageCount: 1}, &MockClient{}, NewMockStorage(), limiter, observer, logger.NewNopLogger())
	pool.Submit(context.Background(), jobs(1)[0])
	outcomes := pool.Wait()

	require.True(t, outcomes[0].Success)
	assert.Equal(t, int32(0), observer.held.Load(), "the slot must be free while the observer runs")
}
