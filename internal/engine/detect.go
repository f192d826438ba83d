package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Amita-5/honeypot-scam-detector/internal/oracle"
)

// Detection is the structured result of the one-shot classification step.
type Detection struct {
	IsScam   bool   `json:"isScam"`
	Reply    string `json:"reply"`
	ScamType string `json:"scamType"`
}

const detectPromptTemplate = `Classify whether the following message is a scam attempt
(phishing, lottery fraud, bank impersonation, urgency threats, credential harvesting).

Message: %q

Respond with strict JSON only, no markdown:
{"isScam": true or false, "reply": "<a short natural reply an ordinary person would send>", "scamType": "<Phishing|Lottery|Banking|Impersonation|Other|None>"}

The reply must never share personal or financial information and must never
mention fraud, scams or security.`

// Detector runs the classification against the oracle. On any oracle failure
// or malformed result it returns the deterministic default: not a scam, the
// configured polite reply, scam type "None". Detection errors never reach the
// request path.
type Detector struct {
	Oracle      oracle.Client
	Timeout     time.Duration
	PoliteReply string
	Logger      *zap.Logger
}

func (d *Detector) Detect(ctx context.Context, text string) Detection {
	if d == nil || d.Oracle == nil {
		return Detection{ScamType: "None"}
	}
	fallback := Detection{IsScam: false, Reply: d.PoliteReply, ScamType: "None"}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := d.Oracle.Complete(ctx, fmt.Sprintf(detectPromptTemplate, text))
	if err != nil {
		if d.Logger != nil {
			d.Logger.Debug("scam detection fell back to default", zap.Error(err))
		}
		return fallback
	}

	det, ok := parseDetection(raw)
	if !ok {
		if d.Logger != nil {
			d.Logger.Debug("scam detection returned unparseable result", zap.String("raw", raw))
		}
		return fallback
	}
	if det.Reply == "" {
		det.Reply = d.PoliteReply
	}
	if det.ScamType == "" {
		det.ScamType = "None"
	}
	return det
}

// parseDetection tolerates prose or code fences around the JSON object by
// slicing from the first '{' to the last '}'.
func parseDetection(raw string) (Detection, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return Detection{}, false
	}

	var det Detection
	if err := json.Unmarshal([]byte(raw[start:end+1]), &det); err != nil {
		return Detection{}, false
	}
	return det, true
}
