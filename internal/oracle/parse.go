package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// parseResult decodes raw oracle output and checks the structural contract.
// Per-hypothesis index validation is the assembler's job; this layer only
// rejects responses that are not a plausible Result at all.
func parseResult(raw []byte) (*Result, error) {
	cleaned := cleanJSON(raw)
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("empty oracle response")
	}

	var result Result
	if err := json.Unmarshal(cleaned, &result); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	// A result must either carry hypotheses or be an explicit refusal.
	if len(result.Hypotheses) == 0 && result.RefusalReason == "" {
		return nil, errEmptyResult
	}
	return &result, nil
}

// cleanJSON strips markdown code fences and surrounding whitespace from
// oracle responses. Models often wrap JSON in ```json ... ``` blocks. This
// handles: ```json\n{...}\n```, ```\n{...}\n```, and bare JSON.
func cleanJSON(data []byte) []byte {
	s := bytes.TrimSpace(data)
	if len(s) == 0 {
		return s
	}

	if bytes.HasPrefix(s, []byte("```")) {
		if idx := bytes.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
		if bytes.HasSuffix(s, []byte("```")) {
			s = s[:len(s)-3]
		}
		s = bytes.TrimSpace(s)
	}

	return s
}
