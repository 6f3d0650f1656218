package agents

import (
	"strings"

	"skillsocket/internal/domain"
)

// skillVocabulary is the known-skill list for keyword extraction when
// the LLM extractor is unavailable. Longer entries come first where one
// contains another ("node.js" before "node") via explicit ordering.
var skillVocabulary = []string{
	"machine learning", "data science", "spring boot",
	"javascript", "typescript", "python", "java", "react", "flutter",
	"dart", "node.js", "nodejs", "angular", "vue", "c++", "c#", "php",
	"ruby", "go", "kotlin", "swift", "html", "css", "sql", "mongodb",
	"mysql", "postgresql", "docker", "kubernetes", "aws", "azure",
	"git", "linux", "ai", "django", "express", "laravel",
}

// Phrases that mark the skills someone wants to acquire vs. can teach.
var (
	learnMarkers = []string{"learn", "need", "want to learn", "studying", "learning"}
	teachMarkers = []string{"teach", "offer", "know", "expert in", "can help with"}
)

// extractSkillsKeyword is the no-LLM skill extractor: it scans the query
// for vocabulary hits and assigns each to required or offered based on
// the nearest preceding marker phrase. Queries that name no vocabulary
// skill yield an empty set.
func extractSkillsKeyword(query string) domain.SkillSet {
	lower := strings.ToLower(query)

	var set domain.SkillSet
	for _, skill := range skillVocabulary {
		idx := indexWord(lower, skill)
		if idx < 0 {
			continue
		}
		if wantsToLearn(lower, idx) {
			set.Required = appendUnique(set.Required, skill)
		} else {
			set.Offered = appendUnique(set.Offered, skill)
		}
	}
	return set
}

// wantsToLearn reports whether the text before the skill mention reads
// like a learning intent. Teach markers closer to the skill win.
func wantsToLearn(lower string, skillIdx int) bool {
	prefix := lower[:skillIdx]

	learnAt := lastMarker(prefix, learnMarkers)
	teachAt := lastMarker(prefix, teachMarkers)
	if learnAt < 0 && teachAt < 0 {
		// No intent stated: assume they want to learn it.
		return true
	}
	return learnAt > teachAt
}

// lastMarker returns the rightmost position of any marker in s, or -1.
func lastMarker(s string, markers []string) int {
	best := -1
	for _, m := range markers {
		if idx := strings.LastIndex(s, m); idx > best {
			best = idx
		}
	}
	return best
}

// indexWord finds skill in text requiring non-letter boundaries, so "go"
// does not match inside "good" but "c++" still matches before a space.
func indexWord(text, skill string) int {
	from := 0
	for {
		idx := strings.Index(text[from:], skill)
		if idx < 0 {
			return -1
		}
		idx += from
		if boundedAt(text, idx, len(skill)) {
			return idx
		}
		from = idx + 1
	}
}

func boundedAt(text string, idx, length int) bool {
	if idx > 0 && isWordChar(text[idx-1]) {
		return false
	}
	end := idx + length
	if end < len(text) && isWordChar(text[end]) && isWordChar(text[end-1]) {
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

func appendUnique(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}
