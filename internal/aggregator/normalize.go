package aggregator

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Rule rewrites part of a window title. Rules are applied in order, each
// replacing every match, so volatile substrings (unread badges, app
// suffixes) collapse before events are grouped.
type Rule struct {
	Pattern string
	Replace string
}

type compiledRule struct {
	re      *regexp.Regexp
	replace string
}

const maxTitleLen = 150

var defaultRules = []Rule{
	// Leading unread-count badges such as "(3) " or "(20+) ".
	{Pattern: `^\(\d+\+?\)\s*`, Replace: ""},
	// Contact details and credentials must never reach the prompt.
	{Pattern: `\b[\w.-]+@[\w.-]+\.\w+\b`, Replace: "***@***.***"},
	{Pattern: `\b1[3-9]\d{9}\b`, Replace: "***********"},
	{Pattern: `(?i)\b(Bearer|Token|API[_-]?Key)[:\s]+[\w-]{20,}\b`, Replace: "***"},
	{Pattern: `(?i)\bpassword[:\s]+\S+\b`, Replace: "***"},
	// Common browser, editor, and site suffixes appended to window titles.
	{Pattern: `(?i) - (Google Chrome|Microsoft Edge|Mozilla Firefox)$`, Replace: ""},
	{Pattern: `(?i) - (Visual Studio Code|Visual Studio|PyCharm|IntelliJ IDEA|Notepad\+\+)$`, Replace: ""},
	{Pattern: `(?i) - (Word|Excel|PowerPoint|Outlook|OneNote)$`, Replace: ""},
	{Pattern: `(?i) - (Teams|Slack|Zoom|Discord|Spotify)$`, Replace: ""},
	{Pattern: `(?i) - (GitHub|Stack Overflow|YouTube|Wikipedia)$`, Replace: ""},
	{Pattern: ` - (网易云音乐|QQ音乐|微信|飞书|钉钉|知乎|豆瓣|简书|掘金|CSDN博客|博客园|哔哩哔哩_bilibili|百度百科|记事本)$`, Replace: ""},
}

// Normalizer applies an ordered rule list to titles so that semantically
// identical windows land in the same bucket.
type Normalizer struct {
	rules []compiledRule
}

// NewNormalizer compiles the rule list. An empty list selects the built-in
// defaults.
func NewNormalizer(rules []Rule) (*Normalizer, error) {
	if len(rules) == 0 {
		rules = defaultRules
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile title rule %q: %w", rule.Pattern, err)
		}
		compiled = append(compiled, compiledRule{re: re, replace: rule.Replace})
	}

	return &Normalizer{rules: compiled}, nil
}

func (n *Normalizer) CleanTitle(title string) string {
	for _, rule := range n.rules {
		title = rule.re.ReplaceAllString(title, rule.replace)
	}
	title = strings.TrimSpace(title)

	if runes := []rune(title); len(runes) > maxTitleLen {
		title = string(runes[:maxTitleLen-3]) + "..."
	}

	return title
}

// ExtractDomain returns the lowercased host of a browser event URL, or
// "unknown" when the URL does not parse.
func ExtractDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(parsed.Hostname())
}
