// Package capture reconciles facts said in conversation with the long-term
// fact store. Each pass extracts facts from a message, finds similar stored
// facts, asks the model whether to add, update, delete or ignore, applies
// the decision and returns the facts relevant to the message.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/agent/longtermmemory/retrieval"
	"github.com/entrhq/recall/pkg/llm"
	"github.com/entrhq/recall/pkg/logging"
	"github.com/entrhq/recall/pkg/metrics"
	"github.com/entrhq/recall/pkg/types"
)

var captureLog *logging.Logger

func init() {
	var err error
	captureLog, err = logging.NewLogger("memory")
	if err != nil {
		captureLog.Warnf("Failed to initialize memory logger, using stderr fallback: %v", err)
	}
}

const (
	DefaultTopK          = 5
	DefaultMinScore      = 0.3
	DefaultCandidateK    = 5
	DefaultCandidateMin  = 0.1
	maxVersionChainDepth = 64
)

// Options tune retrieval for a Controller.
type Options struct {
	// TopK is the number of facts returned for a message.
	TopK int
	// MinScore is the similarity a fact needs to be returned.
	MinScore float64
	// CandidateK is the number of stored facts compared with each new fact.
	CandidateK int
	// CandidateMinScore is the similarity a stored fact needs to be compared.
	CandidateMinScore float64
	// Scope is assigned to newly added facts.
	Scope longtermmemory.Scope
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MinScore == 0 {
		o.MinScore = DefaultMinScore
	}
	if o.CandidateK <= 0 {
		o.CandidateK = DefaultCandidateK
	}
	if o.CandidateMinScore == 0 {
		o.CandidateMinScore = DefaultCandidateMin
	}
	if o.Scope == "" {
		o.Scope = longtermmemory.ScopeUser
	}
	return o
}

// Applied is the outcome of one operation. Fact is the version written, or
// the existing head for NONE when one is known. Previous is the head it replaced.
type Applied struct {
	Fact     *longtermmemory.Fact
	Previous *longtermmemory.Fact
	Event    Event
}

// Result is the outcome of Apply.
type Result struct {
	Memories   []retrieval.Hit
	Operations []Applied
}

// Update summarises the result for a memory update event.
func (r *Result) Update() *types.MemoryUpdate {
	u := &types.MemoryUpdate{Retrieved: len(r.Memories)}
	for _, op := range r.Operations {
		switch op.Event {
		case EventAdd:
			u.Added++
		case EventUpdate:
			u.Updated++
		case EventDelete:
			u.Deleted++
		default:
			u.Unchanged++
		}
	}
	for _, h := range r.Memories {
		u.Facts = append(u.Facts, h.Fact.Content)
	}
	return u
}

// Controller is the single writer to a fact store and its index.
type Controller struct {
	store     longtermmemory.Store
	index     *retrieval.Index
	extractor *Extractor
	decider   *Decider
	opts      Options
	mu        sync.Mutex
}

// NewController creates a controller. Call Load before the first Apply to
// index facts already in store.
func NewController(provider llm.Provider, store longtermmemory.Store, index *retrieval.Index, opts Options) *Controller {
	return &Controller{
		store:     store,
		index:     index,
		extractor: NewExtractor(provider),
		decider:   NewDecider(provider),
		opts:      opts.withDefaults(),
	}
}

// Load rebuilds the index from every live fact in the store.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	all, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("capture: load: %w", err)
	}
	if err := c.index.Rebuild(ctx, all); err != nil {
		return fmt.Errorf("capture: load: %w", err)
	}
	captureLog.Infof("Indexed %d live facts", c.index.Len())
	return nil
}

// Apply runs one reconciliation pass over text and returns the facts
// relevant to it. Extraction and decision failures are returned alongside a
// Result that still holds the retrieved memories.
func (c *Controller) Apply(ctx context.Context, text, sessionID string) (*Result, error) {
	result := &Result{}
	ops, passErr := c.plan(ctx, text)
	if passErr == nil && len(ops) > 0 {
		applied, err := c.ApplyOperations(ctx, ops, sessionID)
		result.Operations = applied
		passErr = err
	}

	hits, err := c.Retrieve(ctx, text, c.opts.TopK)
	if err != nil {
		return result, errors.Join(passErr, err)
	}
	result.Memories = hits
	return result, passErr
}

// plan extracts facts from text and decides what to do with each.
func (c *Controller) plan(ctx context.Context, text string) ([]Operation, error) {
	facts, err := c.extractor.Extract(ctx, text)
	if errors.Is(err, ErrNoFacts) {
		return nil, nil
	}
	if err != nil {
		metrics.LLMErrors.WithLabelValues("extract").Inc()
		captureLog.Warnf("Fact extraction failed: %v", err)
		return nil, err
	}
	captureLog.Debugf("Extracted %d facts", len(facts))

	candidates, err := c.candidates(ctx, facts)
	if err != nil {
		return nil, err
	}

	ops, err := c.decider.Decide(ctx, facts, candidates)
	if err != nil {
		metrics.LLMErrors.WithLabelValues("decide").Inc()
		captureLog.Warnf("Memory decision failed: %v", err)
		return nil, err
	}
	return ops, nil
}

// candidates searches the index for every fact in parallel and returns the
// union of hits, de-duplicated by ID, in fact order.
func (c *Controller) candidates(ctx context.Context, facts []Extracted) ([]*longtermmemory.Fact, error) {
	results := make([][]retrieval.Hit, len(facts))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range facts {
		g.Go(func() error {
			hits, err := c.index.Search(gctx, f.Text, c.opts.CandidateK, c.opts.CandidateMinScore)
			if err != nil {
				return fmt.Errorf("capture: candidates for %q: %w", f.Text, err)
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []*longtermmemory.Fact
	for _, hits := range results {
		for _, h := range hits {
			if seen[h.Fact.ID] {
				continue
			}
			seen[h.Fact.ID] = true
			out = append(out, h.Fact)
		}
	}
	return out, nil
}

// ApplyOperations writes ops to the store and index. Applying the same list
// twice leaves the live facts as they were after the first time.
func (c *Controller) ApplyOperations(ctx context.Context, ops []Operation, sessionID string) ([]Applied, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	all, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: apply: %w", err)
	}

	applied := make([]Applied, 0, len(ops))
	for _, op := range ops {
		res, err := c.applyOne(ctx, op, all, sessionID)
		if err != nil {
			return applied, err
		}
		if res.Event != EventNone {
			all = append(all, res.Fact)
		}
		metrics.MemoryOperations.WithLabelValues(string(res.Event)).Inc()
		applied = append(applied, res)
	}
	return applied, nil
}

func (c *Controller) applyOne(ctx context.Context, op Operation, all []*longtermmemory.Fact, sessionID string) (Applied, error) {
	none := Applied{Event: EventNone}

	switch op.Event {
	case EventAdd:
		key := longtermmemory.Normalize(op.Text)
		for _, f := range longtermmemory.Live(all) {
			if longtermmemory.Normalize(f.Content) == key {
				none.Fact = f
				return none, nil
			}
		}
		category := op.Category
		if category == "" {
			category = longtermmemory.CategoryMisc
		}
		trigger := op.Trigger
		if trigger == "" {
			trigger = longtermmemory.TriggerExtract
		}
		f := longtermmemory.NewFact(op.Text, c.opts.Scope, category, sessionID, trigger)
		if err := c.write(ctx, f); err != nil {
			return none, err
		}
		c.reindex(ctx, f, nil)
		captureLog.Infof("Added fact %s", f.ID)
		return Applied{Event: EventAdd, Fact: f}, nil

	case EventUpdate:
		head := longtermmemory.HeadOf(all, op.TargetID)
		if head == nil || head.Deleted {
			return none, nil
		}
		if longtermmemory.Normalize(head.Content) == longtermmemory.Normalize(op.Text) {
			none.Fact = head
			return none, nil
		}
		f := longtermmemory.NewVersion(head, op.Text, longtermmemory.TriggerUpdate)
		if op.Category != "" {
			f.Category = op.Category
		}
		if err := c.write(ctx, f); err != nil {
			return none, err
		}
		c.reindex(ctx, f, head)
		captureLog.Infof("Updated fact %s -> %s", head.ID, f.ID)
		return Applied{Event: EventUpdate, Fact: f, Previous: head}, nil

	case EventDelete:
		head := longtermmemory.HeadOf(all, op.TargetID)
		if head == nil || head.Deleted {
			return none, nil
		}
		f := longtermmemory.Tombstone(head)
		if err := c.write(ctx, f); err != nil {
			return none, err
		}
		c.index.Remove(head.ID)
		captureLog.Infof("Deleted fact %s", head.ID)
		return Applied{Event: EventDelete, Fact: f, Previous: head}, nil
	}

	if op.TargetID != "" {
		none.Fact = longtermmemory.HeadOf(all, op.TargetID)
	}
	return none, nil
}

func (c *Controller) write(ctx context.Context, f *longtermmemory.Fact) error {
	if err := c.store.Write(ctx, f); err != nil {
		return fmt.Errorf("capture: write %s: %w", f.ID, err)
	}
	return nil
}

// reindex swaps prev for f in the index. An embedding failure leaves the
// fact stored but unindexed until the next Load.
func (c *Controller) reindex(ctx context.Context, f, prev *longtermmemory.Fact) {
	if prev != nil {
		c.index.Remove(prev.ID)
	}
	if err := c.index.Upsert(ctx, f); err != nil {
		captureLog.Warnf("Failed to index fact %s: %v", f.ID, err)
	}
}

// Retrieve returns up to k live facts relevant to query.
func (c *Controller) Retrieve(ctx context.Context, query string, k int) ([]retrieval.Hit, error) {
	if k <= 0 {
		k = c.opts.TopK
	}
	hits, err := c.index.Search(ctx, query, k, c.opts.MinScore)
	if err != nil {
		return nil, fmt.Errorf("capture: retrieve: %w", err)
	}
	return hits, nil
}

// List returns the live facts, oldest first.
func (c *Controller) List(ctx context.Context) ([]*longtermmemory.Fact, error) {
	all, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: list: %w", err)
	}
	return longtermmemory.Live(all), nil
}

// Remember stores text as a user-provided fact. An existing live fact with
// the same text is returned unchanged.
func (c *Controller) Remember(ctx context.Context, text string, category longtermmemory.Category, sessionID string) (*longtermmemory.Fact, error) {
	op := Operation{Event: EventAdd, Text: text, Category: category, Trigger: longtermmemory.TriggerManual}
	applied, err := c.ApplyOperations(ctx, []Operation{op}, sessionID)
	if err != nil {
		return nil, err
	}
	return applied[0].Fact, nil
}

// Forget tombstones the fact chain containing id. It returns
// longtermmemory.ErrNotFound when id is unknown or already deleted.
func (c *Controller) Forget(ctx context.Context, id string) (*longtermmemory.Fact, error) {
	applied, err := c.ApplyOperations(ctx, []Operation{{Event: EventDelete, TargetID: id}}, "")
	if err != nil {
		return nil, err
	}
	if applied[0].Event != EventDelete {
		return nil, fmt.Errorf("capture: forget %s: %w", id, longtermmemory.ErrNotFound)
	}
	return applied[0].Previous, nil
}

// Purge removes every stored version of the chain containing id.
func (c *Controller) Purge(ctx context.Context, id string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	all, err := c.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("capture: purge: %w", err)
	}
	head := longtermmemory.HeadOf(all, id)
	if head == nil {
		return 0, fmt.Errorf("capture: purge %s: %w", id, longtermmemory.ErrNotFound)
	}
	chain, err := longtermmemory.VersionChain(ctx, c.store, head.ID, maxVersionChainDepth)
	if err != nil {
		return 0, fmt.Errorf("capture: purge: %w", err)
	}
	for _, f := range chain {
		if err := c.store.Delete(ctx, f.ID); err != nil && !errors.Is(err, longtermmemory.ErrNotFound) {
			return 0, fmt.Errorf("capture: purge %s: %w", f.ID, err)
		}
		c.index.Remove(f.ID)
	}
	captureLog.Infof("Purged %d versions of %s", len(chain), head.ID)
	return len(chain), nil
}
