package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	hashtagPattern = regexp.MustCompile(`#([a-zA-Z0-9_]+)`)
	mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9_]+)`)
	hrefPattern    = regexp.MustCompile(`href="([^"]+)"`)
	videoTagChars  = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// StripHTML removes tags and non-breaking space entities
func StripHTML(s string) string {
	s = htmlTagPattern.ReplaceAllString(s, " ")
	return strings.ReplaceAll(s, "&nbsp;", " ")
}

// CountWords counts whitespace separated words of the visible text
func CountWords(content string) int {
	return len(strings.Fields(StripHTML(content)))
}

// ExtractHashtags returns the lowercased unique #tags in order of appearance
func ExtractHashtags(content string) []string {
	return uniqueMatches(hashtagPattern, content, true)
}

// ExtractMentions returns the unique @usernames in order of appearance
func ExtractMentions(content string) []string {
	return uniqueMatches(mentionPattern, content, false)
}

// ExtractLinks returns the unique href targets of anchor tags
func ExtractLinks(content string) []string {
	return uniqueMatches(hrefPattern, content, false)
}

// MergeTags merges explicit tags into extracted ones, lowercased and unique
func MergeTags(extracted, explicit []string) []string {
	seen := make(map[string]struct{}, len(extracted)+len(explicit))
	out := make([]string, 0, len(extracted)+len(explicit))
	for _, list := range [][]string{extracted, explicit} {
		for _, t := range list {
			t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// Truncate shortens s to max runes, appending an ellipsis when cut
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

func uniqueMatches(re *regexp.Regexp, content string, fold bool) []string {
	matches := re.FindAllStringSubmatch(content, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		v := m[1]
		if fold {
			v = strings.ToLower(v)
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
