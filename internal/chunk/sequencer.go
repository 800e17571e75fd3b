package chunk

import (
	"log/slog"
	"sort"
	"time"

	"scribe/internal/logging"
)

type slot struct {
	result   *Result
	failed   bool
	expected bool
	start    time.Duration
	end      time.Duration
	seenAt   time.Time
}

// Sequencer reorders chunk results into capture order. Results are pushed to
// emit as soon as a contiguous prefix is available. A missing head slot that
// holds back later results for longer than the timeout is emitted as an
// empty placeholder.
type Sequencer struct {
	next    int64
	timeout time.Duration
	emit    func(Result)
	now     func() time.Time
	logger  *slog.Logger

	slots        map[int64]*slot
	maxExpected  int64
	hasExpected  bool
	stallSince   time.Time
	emitted      int
	placeholders int
	dropped      int
}

// SequencerOption customizes a Sequencer.
type SequencerOption func(*Sequencer)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) SequencerOption {
	return func(s *Sequencer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSequencerLogger attaches a logger for dropped and forced slots.
func WithSequencerLogger(logger *slog.Logger) SequencerOption {
	return func(s *Sequencer) {
		s.logger = logging.NewComponentLogger(logger, "chunk-sequencer")
	}
}

// NewSequencer returns a sequencer whose watermark starts at first.
func NewSequencer(first int64, timeout time.Duration, emit func(Result), opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		next:    first,
		timeout: timeout,
		emit:    emit,
		now:     time.Now,
		logger:  logging.NewComponentLogger(nil, "chunk-sequencer"),
		slots:   make(map[int64]*slot),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.emit == nil {
		s.emit = func(Result) {}
	}
	return s
}

// Expect registers a dispatched chunk. Sequence numbers that are never
// expected but fall below a later expected one are treated as capture gaps.
func (s *Sequencer) Expect(seq int64, start, end time.Duration) {
	if seq < s.next {
		return
	}
	sl := s.slot(seq)
	sl.expected = true
	sl.start = start
	sl.end = end
	if !s.hasExpected || seq > s.maxExpected {
		s.maxExpected = seq
		s.hasExpected = true
	}
	s.drain(false)
}

// Deliver records a completed result. It returns false when the result was
// dropped because its slot was already emitted or already filled.
func (s *Sequencer) Deliver(r Result) bool {
	if r.Seq < s.next {
		s.dropped++
		logging.WarnWithContext(s.logger, "late chunk result dropped", "chunk_late_result",
			logging.Int64(logging.FieldChunkSeq, r.Seq),
			logging.Int64("watermark", s.next),
			logging.String(logging.FieldErrorHint, "raise pipeline.chunk_timeout_ms if provider latency is routinely high"),
			logging.String(logging.FieldImpact, "chunk text missing from transcript"),
		)
		return false
	}
	sl := s.slot(r.Seq)
	if sl.result != nil || sl.failed {
		s.dropped++
		s.logger.Debug("duplicate chunk result dropped", logging.Int64(logging.FieldChunkSeq, r.Seq))
		return false
	}
	res := r
	sl.result = &res
	s.drain(false)
	return true
}

// Fail marks a slot as permanently failed. It is emitted as a placeholder as
// soon as it reaches the head.
func (s *Sequencer) Fail(seq int64) {
	if seq < s.next {
		return
	}
	sl := s.slot(seq)
	if sl.result != nil {
		return
	}
	sl.failed = true
	s.drain(false)
}

// Tick re-evaluates the head slot against the timeout.
func (s *Sequencer) Tick() {
	s.drain(false)
}

// Flush emits every outstanding slot in order, forcing placeholders for
// slots that have no result. Gaps are skipped.
func (s *Sequencer) Flush() {
	s.drain(true)
}

// NextDeadline reports when Tick could next force the head slot out.
func (s *Sequencer) NextDeadline() (time.Time, bool) {
	if s.stallSince.IsZero() {
		return time.Time{}, false
	}
	return s.stallSince.Add(s.timeout), true
}

// Pending returns the number of slots not yet emitted.
func (s *Sequencer) Pending() int {
	return len(s.slots)
}

// Watermark returns the lowest sequence number not yet emitted.
func (s *Sequencer) Watermark() int64 {
	return s.next
}

// Stats returns counts of emitted results, forced placeholders, and dropped
// deliveries.
func (s *Sequencer) Stats() (emitted, placeholders, dropped int) {
	return s.emitted, s.placeholders, s.dropped
}

func (s *Sequencer) slot(seq int64) *slot {
	sl, ok := s.slots[seq]
	if !ok {
		sl = &slot{seenAt: s.now()}
		s.slots[seq] = sl
	}
	return sl
}

func (s *Sequencer) drain(force bool) {
	for len(s.slots) > 0 {
		head, ok := s.slots[s.next]
		if !ok {
			later, found := s.lowestPending()
			if !found {
				break
			}
			// Nothing was ever dispatched for the head: either a capture gap
			// (a later seq is already expected) or a result delivered without
			// expectation that has waited long enough.
			if force || (s.hasExpected && s.next < s.maxExpected) || s.stalled(s.slots[later].seenAt) {
				s.next = later
				s.stallSince = time.Time{}
				continue
			}
			if s.stallSince.IsZero() {
				s.stallSince = s.slots[later].seenAt
			}
			break
		}
		switch {
		case head.result != nil:
			s.emitted++
			s.emit(*head.result)
		case head.failed:
			s.emitPlaceholder(head, "chunk_failed")
		case force || (s.blocking() && s.stalled(s.stallStart())):
			s.emitPlaceholder(head, "chunk_timeout")
		default:
			if s.blocking() {
				s.stallStart()
			} else {
				s.stallSince = time.Time{}
			}
			return
		}
		delete(s.slots, s.next)
		s.next++
		s.stallSince = time.Time{}
	}
	if len(s.slots) == 0 {
		s.stallSince = time.Time{}
	}
}

func (s *Sequencer) emitPlaceholder(head *slot, reason string) {
	s.placeholders++
	if reason == "chunk_timeout" {
		logging.WarnWithContext(s.logger, "chunk slot force-emitted as empty", reason,
			logging.Int64(logging.FieldChunkSeq, s.next),
			logging.Duration("timeout", s.timeout),
			logging.String(logging.FieldImpact, "chunk text missing from transcript"),
		)
	} else {
		s.logger.Info("failed chunk emitted as placeholder",
			logging.String(logging.FieldEventType, reason),
			logging.Int64(logging.FieldChunkSeq, s.next),
		)
	}
	s.emit(Result{Seq: s.next, Start: head.start, End: head.end, Placeholder: true})
}

// blocking reports whether any slot after the head already holds an outcome.
func (s *Sequencer) blocking() bool {
	for seq, sl := range s.slots {
		if seq > s.next && (sl.result != nil || sl.failed) {
			return true
		}
	}
	return false
}

func (s *Sequencer) stallStart() time.Time {
	if s.stallSince.IsZero() {
		s.stallSince = s.now()
	}
	return s.stallSince
}

func (s *Sequencer) stalled(since time.Time) bool {
	return !since.IsZero() && s.now().Sub(since) >= s.timeout
}

func (s *Sequencer) lowestPending() (int64, bool) {
	if len(s.slots) == 0 {
		return 0, false
	}
	keys := make([]int64, 0, len(s.slots))
	for seq := range s.slots {
		keys = append(keys, seq)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys[0], true
}
