package intent

import (
	"strings"
	"unicode"
)

var ignoreWords = map[string]bool{
	"show": true, "me": true, "get": true, "list": true, "display": true, "what": true,
	"do": true, "you": true, "have": true, "order": true, "buy": true, "purchase": true,
	"want": true, "need": true, "looking": true, "for": true, "a": true, "an": true,
	"the": true, "some": true, "few": true, "many": true, "please": true, "can": true,
	"could": true, "would": true, "like": true, "to": true, "i": true, "i'd": true,
}

var browseWords = map[string]bool{
	"show": true, "products": true, "list": true, "all": true, "available": true,
}

var purchaseWords = []string{"order", "buy", "purchase", "want"}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}

// ProductTerm extracts the product the user asked for, or "" for plain
// browsing requests.
func ProductTerm(text string) string {
	ws := words(text)
	if len(ws) == 0 {
		return ""
	}
	browsing := true
	for _, w := range ws {
		if !browseWords[w] {
			browsing = false
			break
		}
	}
	if browsing {
		return ""
	}

	var terms []string
	for _, w := range ws {
		if ignoreWords[w] || isNumber(w) {
			continue
		}
		terms = append(terms, w)
	}
	return strings.Join(terms, " ")
}

// IsPurchase reports whether the text is worded as a purchase.
func IsPurchase(text string) bool {
	for _, w := range words(text) {
		for _, p := range purchaseWords {
			if w == p {
				return true
			}
		}
	}
	return false
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
