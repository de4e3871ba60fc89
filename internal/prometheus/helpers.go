package prometheus

import (
	"regexp"
	"strings"
)

var pathParam = regexp.MustCompile(":(.*)")

// pathLabel replaces route parameters so all requests of a route share one
// label value.
func pathLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = pathParam.ReplaceAllString(segment, "-")
	}
	return strings.Join(segments, "/")
}
