package version

import (
	"strings"
	"testing"
)

func TestUserAgentCarriesVersion(t *testing.T) {
	prev := Version
	Version = "1.2.3"
	defer func() { Version = prev }()

	if got := UserAgent(); got != "stockchart/1.2.3" {
		t.Fatalf("unexpected user agent %q", got)
	}
	if !strings.HasPrefix(String(), "version: 1.2.3\n") {
		t.Fatalf("unexpected build info %q", String())
	}
}
