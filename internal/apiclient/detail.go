package apiclient

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

type fieldProblem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// detailText renders the detail of an error body. It may be a plain string,
// a list of field problems, or anything else JSON can hold.
func detailText(status int, body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 || string(envelope.Detail) == "null" {
		if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") {
			return text
		}
		return http.StatusText(status)
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var problems []fieldProblem
	if err := json.Unmarshal(envelope.Detail, &problems); err == nil && len(problems) > 0 {
		parts := make([]string, 0, len(problems))
		for _, p := range problems {
			if loc := joinLoc(p.Loc); loc != "" {
				parts = append(parts, loc+": "+p.Msg)
				continue
			}
			parts = append(parts, p.Msg)
		}
		return strings.Join(parts, "; ")
	}

	return string(envelope.Detail)
}

func joinLoc(loc []any) string {
	parts := make([]string, 0, len(loc))
	for _, l := range loc {
		switch v := l.(type) {
		case string:
			parts = append(parts, v)
		case float64:
			parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return strings.Join(parts, ".")
}
