package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		changed bool
	}{
		{"plain text untouched", "we walked along the beach at sunset", "we walked along the beach at sunset", false},
		{"email", "write to me at ah.ming@example.com ok?", "write to me at [REDACTED_EMAIL] ok?", true},
		{"phone", "call +852 9123 4567 tomorrow", "call [REDACTED_PHONE] tomorrow", true},
		{"card", "paid with 4111 1111 1111 1111 that day", "paid with [REDACTED_CARD] that day", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, changed := RedactPII(tc.in)
			if got != tc.want {
				t.Errorf("RedactPII(%q) = %q, want %q", tc.in, got, tc.want)
			}
			if changed != tc.changed {
				t.Errorf("changed = %v, want %v", changed, tc.changed)
			}
		})
	}
}

func TestRedactPIICardBeforePhone(t *testing.T) {
	got, _ := RedactPII("number 4111111111111111 here")
	if strings.Contains(got, "REDACTED_PHONE") {
		t.Errorf("card number classified as phone: %q", got)
	}
	if !strings.Contains(got, "REDACTED_CARD") {
		t.Errorf("card number not redacted: %q", got)
	}
}
