// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	resultPrefix = "conv_"
	resultSuffix = ".json"
)

// ErrInvalidFilename is returned for a result file whose name does not
// carry a conversation id.
var ErrInvalidFilename = errors.New("invalid result filename")

var resultName = regexp.MustCompile(`^conv_(?P<id>[^_]+)_.*\.json$`)

// ParseConversationID extracts the conversation id from a result file name
// of the form conv_<id>_<anything>.json.
func ParseConversationID(name string) (string, error) {
	m := resultName.FindStringSubmatch(name)
	if m == nil {
		return "", fmt.Errorf("%w: %q does not match conv_<id>_*.json", ErrInvalidFilename, name)
	}
	return m[resultName.SubexpIndex("id")], nil
}

// isResultCandidate reports whether name looks like a result file at all.
// Candidates that then fail ParseConversationID are reported, not ignored.
func isResultCandidate(name string) bool {
	return strings.HasPrefix(name, resultPrefix) && strings.HasSuffix(name, resultSuffix)
}
