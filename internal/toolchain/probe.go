package toolchain

import (
	"regexp"
	"strings"
)

// banner markers by kind, matched case-insensitively
var bannerMarkers = []struct {
	marker string
	kind   Kind
}{
	{"openfast", KindSolver},
	{"turbsim", KindTurbulence},
}

// ClassifyBanner sorts a version banner into a tool kind and pulls out
// the version token.
func ClassifyBanner(banner string) (Kind, string) {
	lower := strings.ToLower(banner)
	for _, m := range bannerMarkers {
		if strings.Contains(lower, m.marker) {
			return m.kind, versionToken(banner)
		}
	}
	return KindUnknown, ""
}

var versionPattern = regexp.MustCompile(`v?\d+\.\d+[\w.+-]*`)

// versionToken pulls the first dotted numeric token, keeping a v prefix
// ("OpenFAST-v3.5.3" yields "v3.5.3").
func versionToken(banner string) string {
	return versionPattern.FindString(banner)
}
