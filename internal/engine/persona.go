package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Amita-5/honeypot-scam-detector/internal/oracle"
)

// defaultPersonaReplies is the canned clarification table, keyed by the
// post-increment turn count (turn 1 gets index 0).
var defaultPersonaReplies = []string{
	"Oh okay, I was not expecting this. Can you explain what exactly I need to do?",
	"I see. Sorry, I am not very good with these things. How does this work again?",
	"Hmm, this sounds serious. What happens if I cannot do it today?",
	"Alright, one moment. Which company did you say you are from again?",
}

const genericPersonaReply = "Sorry, could you repeat that? I want to make sure I understand."

// Selector picks the canned baseline reply for a turn. Total over all turn
// counts: past the end of the table it falls back to the generic question.
// Same input always yields the same output.
type Selector struct {
	Replies []string
	Generic string
}

func NewSelector(replies []string) *Selector {
	if len(replies) == 0 {
		replies = defaultPersonaReplies
	}
	return &Selector{Replies: replies, Generic: genericPersonaReply}
}

func (s *Selector) Baseline(turn int) string {
	if turn >= 1 && turn <= len(s.Replies) {
		return s.Replies[turn-1]
	}
	return s.Generic
}

const refinePromptTemplate = `You are roleplaying an ordinary person replying to a text message.
The last message you received was:
%q

Rewrite the following reply in your own words: %q

Rules:
- Ask exactly one short clarification question.
- Never share personal or financial information of any kind.
- Never mention fraud, scams, detection or security.
- Reply with the rewritten sentence only, no quotes and no preamble.`

// maxRefinedReplyLen rejects oracle output that rambles past a believable
// chat message.
const maxRefinedReplyLen = 280

// Refiner asks the oracle to rework a baseline reply into something less
// canned. Every failure mode returns the unmodified baseline: a missing
// client, a timeout, a transport error or unusable output. The fallback is
// silent toward the caller.
type Refiner struct {
	Oracle  oracle.Client
	Timeout time.Duration
	Logger  *zap.Logger
}

func (r *Refiner) Refine(ctx context.Context, baseline, counterpartText string) string {
	if r == nil || r.Oracle == nil {
		return baseline
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := fmt.Sprintf(refinePromptTemplate, counterpartText, baseline)
	raw, err := r.Oracle.Complete(ctx, prompt)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Debug("reply refinement fell back to baseline", zap.Error(err))
		}
		return baseline
	}

	refined := sanitizeReply(raw)
	if refined == "" {
		return baseline
	}
	return refined
}

// sanitizeReply trims oracle output down to a single plausible chat message,
// returning "" when nothing usable remains.
func sanitizeReply(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.Trim(s, `"`)
	if s == "" || len(s) > maxRefinedReplyLen {
		return ""
	}
	return s
}
