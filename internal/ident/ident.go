package ident

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrorSuffix is the reserved token appended to an action identifier to
// form its failure channel.
const ErrorSuffix = "error"

// ActionID is a namespaced action identifier, e.g. "Users.setName".
type ActionID string

// String implements fmt.Stringer so that an ActionID can be passed wherever
// an action reference is accepted.
func (id ActionID) String() string {
	return string(id)
}

// ErrorID returns the failure channel identifier for this action.
func (id ActionID) ErrorID() ActionID {
	return ErrorID(id)
}

// caseBoundary matches a lowercase letter directly followed by an uppercase
// letter ("setName" -> "set" | "Name").
var caseBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

var upper = cases.Upper(language.Und)

// ID joins the group and tokens with '.'. Tokens are used byte-for-byte, so
// an ID always equals the raw string a listener would register for it.
func ID(group string, tokens ...string) ActionID {
	parts := make([]string, 0, len(tokens)+1)
	parts = append(parts, group)
	parts = append(parts, tokens...)
	return ActionID(strings.Join(parts, "."))
}

// ConstName joins tokens with '_', splits camelCase boundaries and
// upper-cases the result.
//
// Example:
//
//	ConstName("setName")          // "SET_NAME"
//	ConstName("users", "get")     // "USERS_GET"
//	ConstName("setName", "error") // "SET_NAME_ERROR"
func ConstName(tokens ...string) string {
	joined := strings.Join(tokens, "_")
	joined = caseBoundary.ReplaceAllString(joined, "${1}_${2}")
	return upper.String(joined)
}

// ErrorID returns id suffixed with the reserved error token.
func ErrorID(id ActionID) ActionID {
	return ActionID(string(id) + "." + ErrorSuffix)
}

// RequestID mints a correlation identifier of the form "<n># <group>.<tokens>".
//
// Every call advances seq, so identifiers are strictly increasing across all
// groups sharing the same sequence.
func RequestID(seq *Sequence, group string, tokens ...string) string {
	n := seq.Next()
	return strconv.FormatInt(n, 10) + "# " + string(ID(group, tokens...))
}
