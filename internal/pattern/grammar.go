package pattern

import (
	"fmt"
	"strings"
)

// Field names, in grammar order.
const (
	FieldUserNo             = "user_no"
	FieldSearchFlag         = "search_flag"
	FieldSearchString       = "search_string"
	FieldFolder             = "folder"
	FieldSubfolder          = "subfolder"
	FieldLegacyViewToken    = "legacy_view_token"
	FieldLegacyComposeToken = "legacy_compose_token"
	FieldNewViewToken       = "new_view_token"
	FieldNewComposeToken    = "new_compose_token"
)

// Mode selects which token grammar follows the common URL prefix.
type Mode string

const (
	// ModeBoth tries the legacy suffix, then the new-format suffix.
	ModeBoth Mode = "both"

	// ModeLegacy matches only hexadecimal legacy tokens.
	ModeLegacy Mode = "legacy"

	// ModeNew matches only new-format tokens.
	ModeNew Mode = "new"
)

// ParseMode parses a mode name. The empty string selects ModeBoth.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBoth:
		return ModeBoth, nil
	case ModeLegacy:
		return ModeLegacy, nil
	case ModeNew:
		return ModeNew, nil
	default:
		return "", fmt.Errorf("invalid mode %q, must be one of: legacy, new, both", s)
	}
}

// MatchesLegacy reports whether the mode matches legacy tokens.
func (m Mode) MatchesLegacy() bool {
	return m == ModeBoth || m == ModeLegacy
}

// MatchesNew reports whether the mode matches new-format tokens.
func (m Mode) MatchesNew() bool {
	return m == ModeBoth || m == ModeNew
}

const (
	// newTokenClass is the reduced token alphabet as a character class.
	newTokenClass = `[BCDFGHJKLMNPQRSTVWXZbcdfghjklmnpqrstvwxz]`

	hexToken = `[0-9a-fA-F]{15,16}`

	commonExpr = `https://mail\.google\.com/mail/u` +
		`(?:/(?P<user_no>[0-9]+))+` +
		`(?:/(?P<search_flag>#search)/(?P<search_string>[^/?\s]{1,100})|/(?P<folder>#[a-z]+))` +
		`(?:/(?P<subfolder>[a-z]{1,10}))?`

	legacyExpr = `(?:/(?P<legacy_view_token>` + hexToken + `))?` +
		`(?:\?compose=(?:new|(?P<legacy_compose_token>` + hexToken + `(?:%2C` + hexToken + `)*)))?`

	newExpr = `(?:/(?P<new_view_token>` + newTokenClass + `{32,}))?` +
		`(?:\?compose=(?:new|(?P<new_compose_token>` + newTokenClass + `{32,})))?`
)

// Expr returns the regular expression for a mode.
func Expr(m Mode) (string, error) {
	switch m {
	case ModeLegacy, ModeNew, ModeBoth:
	case "":
		m = ModeBoth
	default:
		return "", fmt.Errorf("invalid mode %q", m)
	}

	expr := commonExpr
	if m.MatchesLegacy() {
		expr += legacyExpr
	}
	if m.MatchesNew() {
		expr += newExpr
	}
	return expr, nil
}
