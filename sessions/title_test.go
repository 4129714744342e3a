package sessions

import (
	"strings"
	"testing"
)

func TestCleanTitle_StripsForbiddenCharacters(t *testing.T) {
	title := CleanTitle(`"Planning: a 'trip' to ` + "`Paris`" + `"`)
	for _, forbidden := range []string{`"`, "'", ":", "`"} {
		if strings.Contains(title, forbidden) {
			t.Errorf("Title still contains %q: %s", forbidden, title)
		}
	}
	if title != "Planning a trip to Paris" {
		t.Errorf("Unexpected cleaned title: %q", title)
	}
}

func TestCleanTitle_SingleLineAndLength(t *testing.T) {
	long := strings.Repeat("word ", 40) + "\nsecond line"
	title := CleanTitle(long)
	if strings.Contains(title, "\n") {
		t.Error("Title contains a newline")
	}
	if len([]rune(title)) > 80 {
		t.Errorf("Title exceeds 80 characters: %d", len([]rune(title)))
	}
}

func TestCleanTitle_TrimsWhitespace(t *testing.T) {
	if got := CleanTitle("  hello world  "); got != "hello world" {
		t.Errorf("Expected trimmed title, got %q", got)
	}
}
