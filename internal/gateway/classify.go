package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// Classify turns a completed exchange into a payload or a *Failure. It has no
// side effects; invalidation on 401 is applied by Gateway.Request.
func Classify(status int, statusText string, body []byte) (json.RawMessage, error) {
	if statusText == "" {
		statusText = http.StatusText(status)
	}

	if status == http.StatusUnauthorized {
		msg := "Unauthorized"
		if gjson.ValidBytes(body) {
			if m := extractMessage(body); m != "" {
				msg = m
			}
		}
		return nil, &Failure{Kind: KindUnauthorized, Status: status, Message: msg}
	}

	if status < 200 || status > 299 {
		if !gjson.ValidBytes(body) {
			return nil, &Failure{
				Kind:    KindProtocol,
				Status:  status,
				Message: "An error occurred but no JSON could be parsed: " + statusText,
			}
		}
		msg := extractMessage(body)
		if msg == "" {
			msg = "An error occurred: " + statusText
		}
		return nil, &Failure{Kind: KindApplication, Status: status, Message: msg}
	}

	if status == http.StatusNoContent {
		return nil, nil
	}
	if !gjson.ValidBytes(body) {
		return nil, &Failure{
			Kind:    KindProtocol,
			Status:  status,
			Message: "The server returned a response that is not valid JSON",
		}
	}
	return json.RawMessage(body), nil
}

// extractMessage reads "error", falling back to "message". Arrays of strings
// are joined with a single space, the way form validation errors arrive.
func extractMessage(body []byte) string {
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return ""
	}
	for _, field := range []string{"error", "message"} {
		if text := flatten(doc.Get(field)); text != "" {
			return text
		}
	}
	return ""
}

func flatten(v gjson.Result) string {
	switch {
	case !v.Exists():
		return ""
	case v.IsArray():
		var parts []string
		for _, item := range v.Array() {
			if s := item.String(); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case v.Type == gjson.Null:
		return ""
	default:
		return v.String()
	}
}
