package research

import (
	"fmt"
	"time"
)

// emit reports a state transition. A panicking callback is logged and
// otherwise ignored so it cannot break the research loop.
func (r *run) emit(state State, query string, latest *Learning, format string, args ...any) {
	if state != StateFailed && state != StateComplete {
		r.s.State = state
	}
	if r.onProgress == nil {
		return
	}

	ev := ProgressEvent{
		SessionID:            r.s.ID,
		ProspectID:           r.s.ProspectID,
		Phase:                state,
		ResearchPhase:        r.phase,
		CurrentDepth:         r.level,
		MaxDepth:             r.s.Config.Depth,
		CurrentQuery:         query,
		QueriesCompleted:     len(r.s.CompletedQueries),
		LearningsFound:       len(r.s.Learnings),
		RelevantResultsFound: r.s.Stats.RelevantResults,
		Message:              fmt.Sprintf(format, args...),
		Timestamp:            time.Now(),
	}
	if latest != nil {
		l := latest.clone()
		ev.LatestLearning = &l
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Progress callback panicked", "session_id", r.s.ID, "panic", rec)
		}
	}()
	r.onProgress(ev)
}
