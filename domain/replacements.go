// SPDX-License-Identifier: GPL-3.0-or-later
package domain

// ReplacementKey names a class of volatile literals that is substituted by a placeholder token
// before tokenization.
type ReplacementKey string

const (
	ReplaceUrl          = ReplacementKey("url")
	ReplaceEmail        = ReplacementKey("email")
	ReplaceNumber       = ReplacementKey("number")
	ReplaceCurrency     = ReplacementKey("currency")
	ReplaceInitialism   = ReplacementKey("initialism")
	ReplaceAbbreviation = ReplacementKey("abbreviation")
)

var ReplacementKeys = []ReplacementKey{
	ReplaceUrl,
	ReplaceEmail,
	ReplaceNumber,
	ReplaceCurrency,
	ReplaceInitialism,
	ReplaceAbbreviation,
}

// ReplacementMap maps every ReplacementKey to its placeholder. It is never modified after it has
// been loaded or generated and may be shared between goroutines.
type ReplacementMap map[ReplacementKey]string

func (rm ReplacementMap) Placeholder(key ReplacementKey) string {
	return rm[key]
}

// IsPlaceholder reports whether token is one of the placeholders.
func (rm ReplacementMap) IsPlaceholder(token string) bool {
	for _, v := range rm {
		if v == token {
			return true
		}
	}
	return false
}
