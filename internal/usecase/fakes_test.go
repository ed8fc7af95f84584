package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shoplens/backend/internal/domain"
)

// fakeFetcher serves canned images keyed by URL. URLs listed in failures
// return an error.
type fakeFetcher struct {
	mu          sync.Mutex
	images      map[string]*domain.FetchedImage
	failures    map[string]bool
	delay       time.Duration
	calls       int
	inFlight    int
	maxInFlight int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		images:   make(map[string]*domain.FetchedImage),
		failures: make(map[string]bool),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, imageURL string) (*domain.FetchedImage, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	fail := f.failures[imageURL]
	img, ok := f.images[imageURL]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if fail {
		return nil, domain.ErrImageFetchFailed
	}
	if !ok {
		return &domain.FetchedImage{Data: []byte("fake-image"), ContentType: "image/jpeg"}, nil
	}
	return img, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeVision returns the same reply for every image
type fakeVision struct {
	mu         sync.Mutex
	reply      string
	err        error
	calls      int
	mediaTypes []string
	prompts    []string
}

func (v *fakeVision) Describe(ctx context.Context, image []byte, mediaType, prompt string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	v.mediaTypes = append(v.mediaTypes, mediaType)
	v.prompts = append(v.prompts, prompt)
	if v.err != nil {
		return "", v.err
	}
	return v.reply, nil
}

// fakeCatalog implements CatalogLoader and domain.CatalogRepository
type fakeCatalog struct {
	mu       sync.Mutex
	products []domain.CatalogProduct
	err      error
	calls    int
}

func (c *fakeCatalog) LoadCatalog(ctx context.Context) ([]domain.CatalogProduct, error) {
	return c.FetchCatalog(ctx)
}

func (c *fakeCatalog) FetchCatalog(ctx context.Context) ([]domain.CatalogProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.products, nil
}

// fakePublisher records published batch events
type fakePublisher struct {
	mu        sync.Mutex
	summaries []domain.BatchSummary
	results   [][]domain.ImageAnalysisResult
	err       error

	// block makes PublishBatchCompleted wait for its context to end
	block    bool
	ctxErr   error
	deadline bool
}

func (p *fakePublisher) PublishBatchCompleted(ctx context.Context, summary domain.BatchSummary, results []domain.ImageAnalysisResult) error {
	if p.block {
		<-ctx.Done()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
	p.results = append(p.results, results)
	_, p.deadline = ctx.Deadline()
	p.ctxErr = ctx.Err()
	if p.block {
		return ctx.Err()
	}
	return p.err
}

// fakeCache is an in-memory domain.CacheRepository with injectable errors
type fakeCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	getErr   error
	setErr   error
	setCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	_, ok := c.data[key]
	return ok, nil
}

var errBoom = errors.New("boom")
