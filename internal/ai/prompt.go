package ai

import (
	"errors"
	"fmt"
)

var ErrPromptTooLarge = errors.New("prompt exceeds model context limit")

// BuildPrompt assembles the fixed keyword-extraction instruction plus the
// compressed activity summary. Exceeding the context limit is an error here:
// shrinking the summary is the compressor's job, not this function's.
func BuildPrompt(summary string, minK, maxK, limit int) (string, error) {
	prompt := fmt.Sprintf(`You will be given a compressed summary of local computer activity.
Each line: time spent | application | window title or web domain | event count.
Lines are sorted by time spent, most first. A trailing "+N other activities"
line stands for the remainder that did not fit.

Extract job-related keywords that best summarize the user's professional
skills and interests. Ignore system process names and generic terms such as
"Home" or "Search". Merge variants of the same concept into one keyword.

Return %d-%d keywords. Return JSON only in the form:
{"keywords": [{"name": str, "weight": float}]}
Weights must be between 0 and 1 and reflect relevance and time spent.

DATA:
%s`, minK, maxK, summary)

	if limit > 0 && len(prompt) > limit {
		return "", fmt.Errorf("%w: %d chars, limit %d", ErrPromptTooLarge, len(prompt), limit)
	}

	return prompt, nil
}
