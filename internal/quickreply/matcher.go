package quickreply

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/AubakirovArman/tomoru-sub000/internal/models"
)

// partialThreshold is the minimum share of the user's tokens that must
// appear in a candidate question for a partial match.
const partialThreshold = 0.70

// minTokenLen filters out short tokens before overlap scoring.
const minTokenLen = 2

// Normalize lowercases, trims and collapses internal whitespace runs to a
// single space. Punctuation is kept, so "зовут?" stays distinct from
// "зовут" in the exact pass.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Match checks an inbound message against a bot's quick replies.
// The exact pass runs over the whole set before any partial scoring:
// an exact hit on the canonical question or any variation wins
// immediately, otherwise the first candidate whose token overlap with
// the input reaches the threshold wins. Iteration follows storage order.
func Match(replies []*models.QuickReply, input string) (string, bool) {
	normalized := Normalize(input)
	if normalized == "" {
		return "", false
	}

	for _, qr := range replies {
		if Normalize(qr.Question) == normalized {
			return qr.Answer, true
		}
		for _, variation := range qr.Variations {
			if Normalize(variation) == normalized {
				return qr.Answer, true
			}
		}
	}

	userTokens := significantTokens(normalized)
	if len(userTokens) == 0 {
		return "", false
	}

	for _, qr := range replies {
		if overlapRatio(userTokens, qr.Question) >= partialThreshold {
			return qr.Answer, true
		}
		for _, variation := range qr.Variations {
			if overlapRatio(userTokens, variation) >= partialThreshold {
				return qr.Answer, true
			}
		}
	}

	return "", false
}

// significantTokens splits on whitespace, strips punctuation from token
// edges and drops tokens of minTokenLen runes or fewer. Unlike the exact
// pass, scoring treats "зовут?" and "зовут" as the same token.
func significantTokens(normalized string) []string {
	var tokens []string
	for _, tok := range strings.Fields(normalized) {
		tok = strings.TrimFunc(tok, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if utf8.RuneCountInString(tok) > minTokenLen {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// overlapRatio computes |user ∩ candidate| / |user| over distinct
// significant tokens. Degenerate candidate sets score zero rather than
// dividing by anything.
func overlapRatio(userTokens []string, candidate string) float64 {
	candidateTokens := significantTokens(Normalize(candidate))
	if len(candidateTokens) == 0 {
		return 0
	}

	candidateSet := make(map[string]struct{}, len(candidateTokens))
	for _, tok := range candidateTokens {
		candidateSet[tok] = struct{}{}
	}

	matched := 0
	seen := make(map[string]struct{}, len(userTokens))
	for _, tok := range userTokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := candidateSet[tok]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(seen))
}
