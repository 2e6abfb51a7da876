package mutation

import (
	"context"
	"sync"

	"github.com/Rrens/chatdesk/internal/domain"
	"github.com/Rrens/chatdesk/internal/notify"
	"github.com/rs/zerolog/log"
)

// Outcome is how an applied mutation settled
type Outcome string

const (
	// Committed means every requested field was accepted
	Committed Outcome = "committed"
	// Partial means the backend accepted only some requested fields
	Partial Outcome = "partial"
	// RolledBack means the remote call failed and holders were restored
	RolledBack Outcome = "rolled_back"
	// Dropped means the entity was absent from a batch response
	Dropped Outcome = "dropped"
)

// CommitFunc performs the remote call and returns the confirmed record
type CommitFunc func(ctx context.Context) (domain.Fields, error)

// PublishFunc announces confirmed changes to other views
type PublishFunc func(id string, changed domain.Fields)

// Result describes the settled mutation
type Result struct {
	Outcome   Outcome       `json:"outcome"`
	Confirmed domain.Fields `json:"confirmed,omitempty"`
	// Accepted lists requested fields the backend applied (possibly normalized)
	Accepted []string `json:"accepted,omitempty"`
	// Rejected lists requested fields the backend left unchanged or omitted
	Rejected []string `json:"rejected,omitempty"`
	// Superseded lists fields a newer mutation of the same entity already settled
	Superseded []string `json:"superseded,omitempty"`
}

// Coordinator applies field changes to every local holder of an entity,
// confirms them from the backend response, and rolls them back on failure
type Coordinator struct {
	kind     string
	registry *Registry
	publish  PublishFunc
	notifier notify.Notifier

	mu       sync.Mutex
	next     uint64
	inflight map[string]int
	// pending lists the unsettled mutations of each field, oldest first
	pending  map[fieldKey][]*Pending
	resolved map[fieldKey]uint64
}

type fieldKey struct {
	id    string
	field string
}

// NewCoordinator creates a coordinator for one entity kind
func NewCoordinator(kind string, registry *Registry, publish PublishFunc, notifier notify.Notifier) *Coordinator {
	return &Coordinator{
		kind:     kind,
		registry: registry,
		publish:  publish,
		notifier: notifier,
		inflight: make(map[string]int),
		pending:  make(map[fieldKey][]*Pending),
		resolved: make(map[fieldKey]uint64),
	}
}

// Option adjusts a single Apply or Begin
type Option func(*options)

type options struct {
	optimistic     bool
	failureMessage string
}

// WithoutOptimism defers every holder write until the backend confirms
func WithoutOptimism() Option {
	return func(o *options) { o.optimistic = false }
}

// WithFailureMessage sets the notification shown when the commit fails
func WithFailureMessage(msg string) Option {
	return func(o *options) { o.failureMessage = msg }
}

// Pending is a mutation between Begin and its settlement
type Pending struct {
	intent     domain.MutationIntent
	seq        uint64
	optimistic bool
	holders    []heldCopy
	settled    bool
}

type heldCopy struct {
	holder   Holder
	snapshot domain.Fields
}

// ID returns the entity id of the pending mutation
func (p *Pending) ID() string {
	return p.intent.EntityID
}

// Apply runs the full optimistic mutation cycle: snapshot, optimistic write,
// commit, then confirm or roll back. A failed commit is returned as the error
// together with a RolledBack result.
func (c *Coordinator) Apply(ctx context.Context, intent domain.MutationIntent, commit CommitFunc, opts ...Option) (Result, error) {
	o := options{optimistic: true, failureMessage: "Could not save " + c.kind + " changes"}
	for _, opt := range opts {
		opt(&o)
	}

	p := c.begin(ctx, intent, o)

	confirmed, err := commit(ctx)
	if err != nil {
		res := c.Abort(ctx, p)
		c.notifier.Failure(o.failureMessage, err)
		return res, err
	}

	return c.Confirm(ctx, p, confirmed), nil
}

// Begin snapshots every holder of the entity, reserves a sequence number
// and, unless WithoutOptimism is given, applies the changes immediately
func (c *Coordinator) Begin(ctx context.Context, intent domain.MutationIntent, opts ...Option) *Pending {
	o := options{optimistic: true}
	for _, opt := range opts {
		opt(&o)
	}
	return c.begin(ctx, intent, o)
}

func (c *Coordinator) begin(ctx context.Context, intent domain.MutationIntent, o options) *Pending {
	fields := intent.FieldNames()
	p := &Pending{intent: intent, optimistic: o.optimistic}

	for _, h := range c.registry.For(intent.EntityID) {
		snap, ok := h.Snapshot(ctx, intent.EntityID, fields)
		if !ok {
			continue
		}
		// Fields the holder lacks restore to null
		for _, f := range fields {
			if _, present := snap[f]; !present {
				snap[f] = nil
			}
		}
		p.holders = append(p.holders, heldCopy{holder: h, snapshot: snap})
	}

	c.mu.Lock()
	c.next++
	p.seq = c.next
	c.inflight[intent.EntityID]++
	for _, f := range fields {
		k := fieldKey{intent.EntityID, f}
		c.pending[k] = append(c.pending[k], p)
	}
	c.mu.Unlock()

	if p.optimistic {
		c.write(ctx, p.holders, intent.EntityID, intent.Changes)
	}
	return p
}

// Confirm settles p with the backend-confirmed record. Confirmed values
// overwrite every holder; requested fields the record omits revert.
func (c *Coordinator) Confirm(ctx context.Context, p *Pending, confirmed domain.Fields) Result {
	id := p.intent.EntityID
	requested := p.intent.FieldNames()
	res := Result{Confirmed: confirmed}

	c.mu.Lock()
	changes := domain.Fields{}
	var revert []restoreOp
	for _, f := range confirmed.Keys() {
		if f == "id" || f == "_id" {
			continue
		}
		k := fieldKey{id, f}
		if c.resolved[k] > p.seq {
			continue
		}
		changes[f] = confirmed[f]
		c.resolved[k] = p.seq
	}

	for _, f := range requested {
		k := fieldKey{id, f}
		if c.resolved[k] > p.seq {
			res.Superseded = append(res.Superseded, f)
			continue
		}
		value, ok := confirmed[f]
		switch {
		case !ok:
			res.Rejected = append(res.Rejected, f)
			if p.optimistic && c.yieldLocked(p, f) {
				revert = append(revert, p.restoreOps(f)...)
			}
			continue
		case p.intent.Changes.Same(confirmed, f):
			res.Accepted = append(res.Accepted, f)
		case snapshotMatches(p, f, value):
			res.Rejected = append(res.Rejected, f)
		default:
			// Accepted with a normalized value
			res.Accepted = append(res.Accepted, f)
		}
		// A newer mutation that fails later falls back to the confirmed value
		if q := c.successorLocked(p, k); q != nil {
			q.inheritValue(f, value)
		}
	}
	c.finishLocked(p)
	c.mu.Unlock()

	res.Outcome = Committed
	if len(res.Rejected) > 0 {
		res.Outcome = Partial
	}

	// Includes holders that gained the entity while the call was in flight
	if len(changes) > 0 {
		c.write(ctx, c.currentHolders(ctx, id), id, changes)
	}
	c.restore(ctx, id, revert)
	if len(changes) > 0 && c.publish != nil {
		c.publish(id, changes)
	}

	log.Debug().
		Str("kind", c.kind).
		Str("id", id).
		Str("outcome", string(res.Outcome)).
		Strs("rejected", res.Rejected).
		Msg("Mutation confirmed")

	return res
}

// Abort settles p after a failed remote call. Each field p wrote is
// restored to its snapshot unless a newer optimistic mutation of the same
// field is still in flight; that mutation then inherits p's snapshot.
func (c *Coordinator) Abort(ctx context.Context, p *Pending) Result {
	superseded := c.release(ctx, p)
	log.Debug().Str("kind", c.kind).Str("id", p.ID()).Msg("Mutation rolled back")
	return Result{Outcome: RolledBack, Superseded: superseded}
}

// Drop settles p for an entity a batch response silently omitted. Holders
// keep their values unless p wrote optimistically, which Drop undoes like
// Abort.
func (c *Coordinator) Drop(ctx context.Context, p *Pending) Result {
	superseded := c.release(ctx, p)
	return Result{Outcome: Dropped, Superseded: superseded}
}

// release settles p without a confirmed record
func (c *Coordinator) release(ctx context.Context, p *Pending) []string {
	var ops []restoreOp
	var superseded []string

	c.mu.Lock()
	if p.settled {
		c.mu.Unlock()
		return nil
	}
	if p.optimistic {
		for _, f := range p.intent.FieldNames() {
			if !c.yieldLocked(p, f) {
				superseded = append(superseded, f)
				continue
			}
			ops = append(ops, p.restoreOps(f)...)
		}
	}
	c.finishLocked(p)
	c.mu.Unlock()

	c.restore(ctx, p.ID(), ops)
	return superseded
}

// successorLocked returns the oldest optimistic mutation newer than p still
// in flight on k
func (c *Coordinator) successorLocked(p *Pending, k fieldKey) *Pending {
	for _, q := range c.pending[k] {
		if q.seq > p.seq && q.optimistic {
			return q
		}
	}
	return nil
}

// yieldLocked reports whether p must restore field f itself. When a newer
// optimistic mutation owns the field, it takes over p's snapshot instead.
func (c *Coordinator) yieldLocked(p *Pending, f string) bool {
	q := c.successorLocked(p, fieldKey{p.ID(), f})
	if q == nil {
		return true
	}
	q.inheritSnapshot(p, f)
	return false
}

func (c *Coordinator) finishLocked(p *Pending) {
	if p.settled {
		return
	}
	p.settled = true

	id := p.ID()
	for _, f := range p.intent.FieldNames() {
		k := fieldKey{id, f}
		rest := c.pending[k][:0]
		for _, q := range c.pending[k] {
			if q != p {
				rest = append(rest, q)
			}
		}
		if len(rest) == 0 {
			delete(c.pending, k)
		} else {
			c.pending[k] = rest
		}
	}

	c.inflight[id]--
	if c.inflight[id] > 0 {
		return
	}
	delete(c.inflight, id)
	for k := range c.resolved {
		if k.id == id {
			delete(c.resolved, k)
		}
	}
}

func (c *Coordinator) currentHolders(ctx context.Context, id string) []heldCopy {
	var out []heldCopy
	for _, h := range c.registry.For(id) {
		if _, ok := h.Snapshot(ctx, id, nil); ok {
			out = append(out, heldCopy{holder: h})
		}
	}
	return out
}

func (c *Coordinator) write(ctx context.Context, holders []heldCopy, id string, fields domain.Fields) {
	for _, hc := range holders {
		if err := hc.holder.Apply(ctx, id, fields); err != nil {
			log.Error().Err(err).
				Str("kind", c.kind).
				Str("id", id).
				Str("holder", hc.holder.Name()).
				Msg("Failed to apply fields to holder")
		}
	}
}

func (c *Coordinator) restore(ctx context.Context, id string, ops []restoreOp) {
	for _, op := range ops {
		if err := op.holder.Apply(ctx, id, op.fields); err != nil {
			log.Error().Err(err).
				Str("kind", c.kind).
				Str("id", id).
				Str("holder", op.holder.Name()).
				Msg("Failed to restore holder snapshot")
		}
	}
}

type restoreOp struct {
	holder Holder
	fields domain.Fields
}

// restoreOps returns the writes that put field f back to p's snapshot
func (p *Pending) restoreOps(f string) []restoreOp {
	ops := make([]restoreOp, 0, len(p.holders))
	for _, hc := range p.holders {
		ops = append(ops, restoreOp{holder: hc.holder, fields: hc.snapshot.Pick(f)})
	}
	return ops
}

// inheritSnapshot replaces q's snapshot of f with the one p took, matching
// holders by name
func (q *Pending) inheritSnapshot(p *Pending, f string) {
	for _, hc := range q.holders {
		for _, old := range p.holders {
			if old.holder.Name() == hc.holder.Name() {
				hc.snapshot[f] = old.snapshot[f]
				break
			}
		}
	}
}

// inheritValue makes value the snapshot of f on every holder of q
func (q *Pending) inheritValue(f string, value any) {
	for _, hc := range q.holders {
		hc.snapshot[f] = value
	}
}

func snapshotMatches(p *Pending, field string, value any) bool {
	if len(p.holders) == 0 {
		return false
	}
	return p.holders[0].snapshot.Same(domain.Fields{field: value}, field)
}
