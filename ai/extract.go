package ai

import (
	"encoding/base64"
	"strings"
)

// Audio is inline binary output of the model.
type Audio struct {
	Data     []byte
	MimeType string
}

// ExtractText returns the first non-empty text part across all candidates.
func ExtractText(resp *Response) string {
	var text string
	walkParts(resp, func(p Part) bool {
		if strings.TrimSpace(p.Text) != "" {
			text = p.Text
			return true
		}
		return false
	})
	return text
}

// ExtractAudio returns the first decodable inline binary part, or nil.
func ExtractAudio(resp *Response) *Audio {
	var audio *Audio
	walkParts(resp, func(p Part) bool {
		if p.InlineData == nil || p.InlineData.Data == "" {
			return false
		}
		data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return false
		}
		audio = &Audio{Data: data, MimeType: p.InlineData.MimeType}
		return true
	})
	return audio
}

// ExtractFunctionCall returns the first function call the model asked for, or nil.
func ExtractFunctionCall(resp *Response) *FunctionCall {
	var call *FunctionCall
	walkParts(resp, func(p Part) bool {
		if p.FunctionCall != nil && p.FunctionCall.Name != "" {
			call = p.FunctionCall
			return true
		}
		return false
	})
	return call
}

// walkParts visits candidates -> content -> parts in order until fn returns true.
func walkParts(resp *Response, fn func(Part) bool) {
	if resp == nil {
		return
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if fn(p) {
				return
			}
		}
	}
}
