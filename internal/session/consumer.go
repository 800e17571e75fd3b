package session

import (
	"time"

	"scribe/internal/chunk"
)

type eventKind int

const (
	eventExpect eventKind = iota
	eventDeliver
	eventFail
)

type event struct {
	kind   eventKind
	seq    int64
	start  time.Duration
	end    time.Duration
	result chunk.Result
}

// consume is the only goroutine that mutates the sequencer and assembler.
// It exits once stop closes, flushing whatever is left.
func (s *Session) consume() {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		var deadline <-chan time.Time
		if s.seq != nil {
			if at, ok := s.seq.NextDeadline(); ok {
				timer.Reset(time.Until(at))
				deadline = timer.C
			}
		}

		select {
		case ev := <-s.events:
			timer.Stop()
			s.apply(ev)
		case <-deadline:
			s.seq.Tick()
		case <-s.stop:
			timer.Stop()
			s.applyBuffered()
			if s.seq != nil {
				s.seq.Flush()
			}
			s.asm.Close()
			s.publish(s.asm.Segments())
			return
		}
	}
}

// applyBuffered takes whatever outcomes were queued before stop.
func (s *Session) applyBuffered() {
	for {
		select {
		case ev := <-s.events:
			s.apply(ev)
		default:
			return
		}
	}
}

func (s *Session) apply(ev event) {
	if s.seq == nil {
		s.seq = chunk.NewSequencer(ev.seq, s.c.opts.ChunkTimeout, s.emit,
			chunk.WithSequencerLogger(s.logger))
	}
	switch ev.kind {
	case eventExpect:
		s.seq.Expect(ev.seq, ev.start, ev.end)
	case eventDeliver:
		s.seq.Deliver(ev.result)
	case eventFail:
		s.seq.Fail(ev.seq)
	}
}

func (s *Session) emit(r chunk.Result) {
	s.asm.Add(r)
	if r.Language != "" {
		s.languages = append(s.languages, r.Language)
	}
	s.publish(s.asm.Segments())
}
