package journal

import (
	"sync"

	"github.com/charmbracelet/log"

	"github.com/kraitsura/ktree_viewer/pkg/focus"
	"github.com/kraitsura/ktree_viewer/pkg/model"
)

// Recorder writes every focus change of a focus.State to a session.
type Recorder struct {
	journal *Journal
	session *model.PresentationSession
	logger  *log.Logger

	mu     sync.Mutex
	last   focus.Snapshot
	cancel func()
}

// Attach subscribes a recorder to state. Re-initializations that leave the
// focus unchanged are not recorded.
func Attach(j *Journal, s *model.PresentationSession, state *focus.State, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	r := &Recorder{journal: j, session: s, logger: logger, last: state.Snapshot()}
	r.cancel = state.Subscribe(r.observe)
	return r
}

func (r *Recorder) observe(snap focus.Snapshot) {
	r.mu.Lock()
	prev := r.last
	r.last = snap
	r.mu.Unlock()

	same := prev.HasFocus == snap.HasFocus && prev.Label == snap.Label && prev.Source == snap.Source
	if same && (prev.Index == snap.Index || snap.Index < 0) {
		return
	}
	if !prev.HasFocus && !snap.HasFocus {
		return
	}
	ev := &model.FocusEvent{
		SessionID: r.session.ID,
		Label:     snap.Label,
		Source:    string(snap.Source),
		Index:     snap.Index,
		Cleared:   !snap.HasFocus,
	}
	if err := r.journal.RecordFocus(ev); err != nil {
		r.logger.Error("journal write failed", "session", r.session.ID, "err", err)
	}
}

// Session returns the session being recorded.
func (r *Recorder) Session() *model.PresentationSession {
	return r.session
}

// Close detaches from the focus state and completes the session.
func (r *Recorder) Close() error {
	r.cancel()
	return r.journal.CompleteSession(r.session)
}
