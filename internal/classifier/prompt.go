package classifier

import (
	"fmt"
	"strings"

	"github.com/dealcraft/dealcraft/internal/domain"
)

// systemPrompt builds the classification instructions. The rules here carry
// the semantic contract: intermediate agreement is never a confirmed sale,
// and only an answer to an explicit final closing question counts.
func systemPrompt(mode domain.Mode, difficulty domain.Difficulty) string {
	var b strings.Builder

	b.WriteString(`You judge the current state of a retail sales conversation.
Answer with a single JSON object and nothing else:
{"outcome": "CONFIRMED" | "DENIED" | "UNDECIDED",
 "confidence": 0-100,
 "reason": "<one sentence>",
 "key_phrase": "<the decisive utterance, if any>",
 "headline": "<short result headline for the trainee>",
 "message": "<one-sentence result summary for the trainee>"}

Rules:
- CONFIRMED only when the customer agrees to an explicit, final closing
  question (e.g. confirming the purchase itself) and the seller has no
  further open question on the table. Agreeing to a sub-step, picking an
  option, or answering "yes" to a non-final question is NOT confirmation.
- DENIED when the customer explicitly and unambiguously rejects the
  purchase, or disengages (says farewell, walks out) without buying.
- UNDECIDED for everything else. When in doubt, answer UNDECIDED.
- Write "reason", "headline" and "message" in the language the
  conversation is held in.
`)

	if mode == domain.ModeAICustomer {
		fmt.Fprintf(&b, `
The seller is a trainee practicing against a customer of difficulty %s.
Judge only what actually happened in the transcript; difficulty must not
lower the bar for CONFIRMED.
`, difficulty)
	}

	return b.String()
}
