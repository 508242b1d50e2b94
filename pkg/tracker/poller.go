package tracker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	mmerrors "github.com/otherjamesbrown/minuteman/pkg/errors"
	"github.com/otherjamesbrown/minuteman/pkg/logging"
	"github.com/otherjamesbrown/minuteman/pkg/notetaker"
	"github.com/otherjamesbrown/minuteman/pkg/observability"
	"github.com/otherjamesbrown/minuteman/pkg/recordings"
	"github.com/otherjamesbrown/minuteman/pkg/transcript"
)

// timeoutReason is persisted when the iteration budget runs out without the
// session ever reaching MEDIA_AVAILABLE.
const timeoutReason = "did not complete within expected time"

// run executes the polling loop for one session. It always leaves the record
// in a terminal status unless the process exits first.
func (s *Supervisor) run(sessionID string) {
	ctx := context.Background()
	ctx, span := s.tracer.StartSessionSpan(ctx, sessionID)

	log := s.logger.With(logging.F("session_id", sessionID))
	log.Info("polling started",
		logging.F("max_iterations", s.cfg.MaxIterations),
		logging.F("interval", s.cfg.PollInterval.String()))

	start := time.Now()
	if s.metrics != nil {
		s.metrics.ActivePollers.Inc()
		defer func() {
			s.metrics.ActivePollers.Dec()
			s.metrics.PollDurationSeconds.Observe(time.Since(start).Seconds())
		}()
	}

	lastStatus := s.initialStatus(ctx, sessionID)
	var lastErr error

	for i := 0; i < s.cfg.MaxIterations; i++ {
		if i > 0 {
			timer := time.NewTimer(s.cfg.PollInterval)
			select {
			case <-timer.C:
			case <-s.quit:
				// Shutting down mid-delay. The last persisted status stands.
				timer.Stop()
				log.Info("poller stopped for shutdown", logging.F("iteration", i))
				span.End()
				return
			}
		}

		iterCtx, iterSpan := s.tracer.StartIterationSpan(ctx, sessionID, i+1)
		bot, err := s.remote.FindBot(iterCtx, sessionID)
		if err != nil {
			if mmerrors.IsRemoteNotFound(err) {
				// The remote session may not be visible yet. Not a failure.
				observability.EndSpanOK(iterSpan)
				log.Warn("remote session not found, continuing", logging.F("iteration", i+1))
				continue
			}
			observability.EndSpanError(iterSpan, err)
			lastErr = err
			log.Warn("remote query failed",
				logging.Err(err),
				logging.F("iteration", i+1),
				logging.F("retryable", mmerrors.IsRetryable(err)))
			continue
		}
		observability.SetRemoteState(iterSpan, string(bot.State))
		observability.EndSpanOK(iterSpan)
		lastErr = nil

		if s.metrics != nil {
			s.metrics.RecordPollIteration(string(bot.State))
		}

		switch bot.State {
		case notetaker.StateConnecting:
			lastStatus = s.persistStatus(ctx, sessionID, lastStatus, recordings.StatusJoining, log)
		case notetaker.StateAttending:
			lastStatus = s.persistStatus(ctx, sessionID, lastStatus, recordings.StatusRecording, log)
		case notetaker.StateMediaProcessing:
			lastStatus = s.persistStatus(ctx, sessionID, lastStatus, recordings.StatusProcessing, log)
		case notetaker.StateMediaAvailable:
			outcome := s.retrieveTranscript(ctx, sessionID, lastStatus, log)
			s.recordOutcome(outcome)
			observability.EndSpanOK(span)
			return
		default:
			log.Debug("unrecognized remote state, no status change",
				logging.F("state", string(bot.State)))
		}
	}

	// Budget exhausted without media.
	if lastErr != nil {
		reason := "max retries reached: " + lastErr.Error()
		s.persistTerminal(ctx, sessionID, lastStatus, recordings.StatusFailed, nil, reason, log)
		s.recordOutcome(string(recordings.StatusFailed))
		observability.EndSpanError(span, lastErr)
		return
	}

	s.persistTerminal(ctx, sessionID, lastStatus, recordings.StatusTimeout, nil, timeoutReason, log)
	s.recordOutcome(string(recordings.StatusTimeout))
	log.Warn("polling budget exhausted", logging.F("iterations", s.cfg.MaxIterations))
	observability.EndSpanOK(span)
}

// initialStatus seeds the monotonicity guard from the persisted record. The
// auto-deploy path inserts records at processing, not scheduled.
func (s *Supervisor) initialStatus(ctx context.Context, sessionID string) recordings.Status {
	rec, err := s.store.Find(ctx, sessionID)
	if err != nil {
		return recordings.StatusScheduled
	}
	return rec.Status
}

// persistStatus writes a status if it does not regress along the success path
// and returns the new guard value. Re-persisting the current status is
// allowed; moving backwards is not.
func (s *Supervisor) persistStatus(ctx context.Context, sessionID string, last, next recordings.Status, log logging.Logger) recordings.Status {
	if next.Before(last) {
		log.Debug("ignoring regressing status",
			logging.F("current", string(last)),
			logging.F("observed", string(next)))
		return last
	}

	if err := s.store.UpdateFields(ctx, sessionID, recordings.StatusUpdate(next)); err != nil {
		log.Error("persisting status", logging.Err(err), logging.F("status", string(next)))
		return last
	}

	if next != last {
		if s.metrics != nil {
			s.metrics.RecordTransition(string(last), string(next))
		}
		if s.publisher != nil {
			if err := s.publisher.PublishStatusChanged(ctx, sessionID, last, next, ""); err != nil {
				log.Warn("publishing status event", logging.Err(err))
			}
		}
		log.Info("status changed",
			logging.F("from", string(last)),
			logging.F("to", string(next)))
	}
	return next
}

// persistTerminal writes the single atomic terminal update.
func (s *Supervisor) persistTerminal(ctx context.Context, sessionID string, last, next recordings.Status, segments []transcript.Segment, reason string, log logging.Logger) {
	if err := s.store.UpdateFields(ctx, sessionID, recordings.TerminalUpdate(next, segments, reason)); err != nil {
		log.Error("persisting terminal status", logging.Err(err), logging.F("status", string(next)))
		return
	}

	if s.metrics != nil {
		s.metrics.RecordTransition(string(last), string(next))
	}
	if s.publisher != nil {
		if err := s.publisher.PublishStatusChanged(ctx, sessionID, last, next, reason); err != nil {
			log.Warn("publishing status event", logging.Err(err))
		}
	}

	if next == recordings.StatusReady {
		if s.cache != nil {
			s.cache.Put(sessionID, transcript.Combined(segments))
		}
		if s.publisher != nil {
			if err := s.publisher.PublishTranscriptReady(ctx, sessionID, len(segments), len(transcript.Speakers(segments))); err != nil {
				log.Warn("publishing transcript event", logging.Err(err))
			}
		}
		log.Info("transcript ready", logging.F("segments", len(segments)))
		return
	}
	log.Warn("session ended without transcript",
		logging.F("status", string(next)),
		logging.F("reason", reason))
}

// retrieveTranscript runs the one-shot media retrieval triggered by the first
// MEDIA_AVAILABLE observation and returns the terminal status written.
func (s *Supervisor) retrieveTranscript(ctx context.Context, sessionID string, last recordings.Status, log logging.Logger) string {
	media, err := s.remote.GetMedia(ctx, sessionID)
	if err != nil {
		reason := "retrieving media: " + err.Error()
		s.persistTerminal(ctx, sessionID, last, recordings.StatusFailed, nil, reason, log)
		return string(recordings.StatusFailed)
	}

	if media.TranscriptURL == "" {
		segments := fallbackSegments(sessionID, media)
		s.persistTerminal(ctx, sessionID, last, recordings.StatusReady, segments, "", log)
		return string(recordings.StatusReady)
	}

	fetchCtx, fetchSpan := s.tracer.StartFetchSpan(ctx, sessionID)
	raw, err := s.fetchTranscript(fetchCtx, media.TranscriptURL)
	if err != nil {
		// Single attempt per run. A failed download is terminal.
		observability.EndSpanError(fetchSpan, err)
		reason := "transcript fetch failed: " + err.Error()
		s.persistTerminal(ctx, sessionID, last, recordings.StatusFailed, nil, reason, log)
		return string(recordings.StatusFailed)
	}
	observability.EndSpanOK(fetchSpan)

	segments := transcript.Normalize(raw)
	if len(segments) == 0 {
		// Valid payload with no usable content. An empty meeting is not an
		// error.
		segments = transcript.EmptyPlaceholder(sessionID)
	}
	s.persistTerminal(ctx, sessionID, last, recordings.StatusReady, segments, "", log)
	return string(recordings.StatusReady)
}

// fetchTranscript downloads the transcript payload from its signed URL.
func (s *Supervisor) fetchTranscript(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.fetcher.Do(req)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordFetch("error", time.Since(start).Seconds())
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if s.metrics != nil {
			s.metrics.RecordFetch("error", time.Since(start).Seconds())
		}
		return nil, fmt.Errorf("HTTP %d from transcript URL", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordFetch("error", time.Since(start).Seconds())
		}
		return nil, fmt.Errorf("reading transcript body: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordFetch("ok", time.Since(start).Seconds())
	}
	return raw, nil
}

// fallbackSegments builds the transcript stored when media carries no
// transcript reference: summary first, then title, then a placeholder.
func fallbackSegments(sessionID string, media *notetaker.Media) []transcript.Segment {
	if media.Summary != "" {
		return []transcript.Segment{{
			Speaker: transcript.SystemSpeaker,
			Text:    "Meeting Summary: " + media.Summary,
		}}
	}
	if media.Title != "" {
		return []transcript.Segment{{
			Speaker: transcript.SystemSpeaker,
			Text:    "Meeting Title: " + media.Title,
		}}
	}
	return transcript.UnavailablePlaceholder(sessionID)
}

// recordOutcome records the terminal outcome metric.
func (s *Supervisor) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordOutcome(outcome)
	}
}
