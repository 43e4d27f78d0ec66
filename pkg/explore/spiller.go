package explore

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// SpillerConfig configures a Spiller.
type SpillerConfig struct {
	// Max is the resident capacity of the watched stash. When the stash
	// grows past Max before a round, the least-recently-stepped overflow is
	// serialized out to the store.
	Max int

	// Min is the low-water mark: after a round, spilled states are restored
	// while the watched stash holds fewer than Min states. Defaults to
	// Max/2.
	Min int

	// Stash is the watched stash. Defaults to "active".
	Stash string

	// Store is the secondary storage for evicted states.
	Store SpillStore

	// Codec serializes and deserializes host states.
	Codec StateCodec

	// Logger is the structured logger.
	Logger zerolog.Logger
}

// Spiller applies a cache-eviction policy to execution states: when the
// watched stash exceeds its capacity, the least-recently-stepped states are
// serialized into a secondary store, and they are restored lazily when
// headroom is available again. A spilled state is represented in the
// "spilled" stash by a lightweight reference; stepping the reference
// restores the full state on demand.
//
// Register the spiller with a high priority so its bookkeeping hook observes
// every stepped state before other techniques decide the step.
type Spiller struct {
	max   int
	min   int
	stash string
	store SpillStore
	codec StateCodec

	mgr    *Manager
	logger zerolog.Logger

	// lastStep ranks residents for eviction; higher is more recent. The
	// step_state hook runs from worker goroutines when a parallel stepper
	// is registered, so mu guards seq and lastStep.
	mu       sync.Mutex
	seq      uint64
	lastStep map[string]uint64
}

// spillRef stands in for an evicted state: identity and address only, the
// content lives in the store.
type spillRef struct {
	id   string
	addr uint64
}

func (r *spillRef) ID() string   { return r.id }
func (r *spillRef) Addr() uint64 { return r.addr }

// NewSpiller creates a working-set eviction technique.
func NewSpiller(cfg SpillerConfig) (*Spiller, error) {
	if cfg.Store == nil {
		return nil, NewConfigError("spiller requires a store", nil).WithCode(ErrCodeBadTechnique)
	}
	if cfg.Codec == nil {
		return nil, NewConfigError("spiller requires a state codec", nil).WithCode(ErrCodeBadTechnique)
	}
	if cfg.Max <= 0 {
		return nil, NewConfigError("spiller capacity must be positive", nil).WithCode(ErrCodeBadTechnique)
	}
	min := cfg.Min
	if min <= 0 {
		min = cfg.Max / 2
	}
	stash := cfg.Stash
	if stash == "" {
		stash = StashActive
	}
	return &Spiller{
		max:      cfg.Max,
		min:      min,
		stash:    stash,
		store:    cfg.Store,
		codec:    cfg.Codec,
		logger:   cfg.Logger.With().Str("component", "spiller").Logger(),
		lastStep: make(map[string]uint64),
	}, nil
}

// Name implements Technique.
func (sp *Spiller) Name() string { return "spiller" }

// Init implements Initializer.
func (sp *Spiller) Init(mgr *Manager) error {
	sp.mgr = mgr
	return nil
}

// Step evicts overflow before the round and restores spilled states after
// it, once headroom is available. Restoration is synchronous and on demand;
// the round itself is delegated unchanged.
func (sp *Spiller) Step(ctx context.Context, mgr *Manager, stash string, opts *StepOptions, next StepFunc) error {
	if stash == sp.stash {
		sp.evictOverflow(ctx, mgr)
	}
	err := next(ctx, stash, opts)
	if err == nil && stash == sp.stash {
		sp.restoreHeadroom(ctx, mgr)
	}
	return err
}

// StepState records stepping recency and transparently restores spill
// references that come up for stepping. Everything else is left undecided.
func (sp *Spiller) StepState(ctx context.Context, mgr *Manager, s State, opts *StepOptions) (StepStateResult, error) {
	sp.mu.Lock()
	sp.seq++
	sp.lastStep[s.ID()] = sp.seq
	sp.mu.Unlock()

	ref, ok := s.(*spillRef)
	if !ok {
		return StepStateUndecided(), nil
	}
	restored, err := sp.restore(ctx, ref)
	if err != nil {
		return StepStateResult{}, err
	}
	result, err := mgr.DefaultStepState(ctx, restored, opts)
	if err != nil {
		return StepStateResult{}, err
	}
	return Stashes(result), nil
}

// evictOverflow serializes the least-recently-stepped overflow of the
// watched stash into the store, leaving a reference in the spilled stash.
func (sp *Spiller) evictOverflow(ctx context.Context, mgr *Manager) {
	resident := mgr.Stash(sp.stash)
	sp.pruneRecency(resident)
	overflow := len(resident) - sp.max
	if overflow <= 0 {
		return
	}

	// Rank by recency, oldest first; stash order breaks ties so eviction is
	// deterministic.
	ranked := make([]State, len(resident))
	copy(ranked, resident)
	pos := make(map[string]int, len(resident))
	rank := make(map[string]uint64, len(resident))
	sp.mu.Lock()
	for i, s := range resident {
		pos[s.ID()] = i
		rank[s.ID()] = sp.lastStep[s.ID()]
	}
	sp.mu.Unlock()
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := rank[ranked[i].ID()], rank[ranked[j].ID()]
		if ri != rj {
			return ri < rj
		}
		return pos[ranked[i].ID()] < pos[ranked[j].ID()]
	})

	spilled := 0
	for _, victim := range ranked {
		if spilled >= overflow {
			break
		}
		payload, err := sp.codec.EncodeState(victim)
		if err != nil {
			sp.logger.Warn().Str("state", victim.ID()).Err(err).Msg("Skipping unserializable state")
			continue
		}
		if err := sp.store.PutState(ctx, victim.ID(), victim.Addr(), payload); err != nil {
			sp.logger.Warn().Str("state", victim.ID()).Err(err).Msg("Spill write failed")
			continue
		}
		if _, ok := mgr.take(sp.stash, victim.ID()); !ok {
			continue
		}
		_ = mgr.Insert(StashSpilled, &spillRef{id: victim.ID(), addr: victim.Addr()})
		sp.mu.Lock()
		delete(sp.lastStep, victim.ID())
		sp.mu.Unlock()
		spilled++
	}

	if spilled > 0 {
		if mgr.observer != nil {
			mgr.observer.StatesSpilled(spilled)
		}
		sp.logger.Debug().Int("spilled", spilled).Int("resident", mgr.Count(sp.stash)).
			Msg("Evicted overflow states")
	}
}

// pruneRecency drops recency entries for states that are no longer resident
// in the watched stash. Stepped states are consumed by the round, so without
// this the map would grow with every retired parent.
func (sp *Spiller) pruneRecency(resident []State) {
	ids := make(map[string]bool, len(resident))
	for _, s := range resident {
		ids[s.ID()] = true
	}
	sp.mu.Lock()
	for id := range sp.lastStep {
		if !ids[id] {
			delete(sp.lastStep, id)
		}
	}
	sp.mu.Unlock()
}

// restoreHeadroom synchronously brings back spilled states, oldest first,
// while the watched stash is under the low-water mark.
func (sp *Spiller) restoreHeadroom(ctx context.Context, mgr *Manager) {
	restored := 0
	for mgr.Count(sp.stash) < sp.min && mgr.Count(StashSpilled) > 0 {
		refs := mgr.Stash(StashSpilled)
		ref, ok := refs[0].(*spillRef)
		if !ok {
			break
		}
		if _, taken := mgr.take(StashSpilled, ref.id); !taken {
			break
		}
		s, err := sp.restore(ctx, ref)
		if err != nil {
			// Put the reference back rather than losing the state.
			_ = mgr.Insert(StashSpilled, ref)
			sp.logger.Warn().Str("state", ref.id).Err(err).Msg("Restore failed")
			break
		}
		_ = mgr.Insert(sp.stash, s)
		restored++
	}

	if restored > 0 {
		if mgr.observer != nil {
			mgr.observer.StatesRestored(restored)
		}
		sp.logger.Debug().Int("restored", restored).Msg("Restored spilled states")
	}
}

// restore loads one state back from the store and removes it there.
func (sp *Spiller) restore(ctx context.Context, ref *spillRef) (State, error) {
	payload, err := sp.store.GetState(ctx, ref.id)
	if err != nil {
		return nil, NewStorageError("loading spilled state", err).
			WithCode(ErrCodeRestoreFailed).WithState(ref.id)
	}
	s, err := sp.codec.DecodeState(payload)
	if err != nil {
		return nil, NewStorageError("decoding spilled state", err).
			WithCode(ErrCodeRestoreFailed).WithState(ref.id)
	}
	if err := sp.store.DeleteState(ctx, ref.id); err != nil {
		return nil, NewStorageError("removing restored state", err).
			WithCode(ErrCodeRestoreFailed).WithState(ref.id)
	}
	return s, nil
}
