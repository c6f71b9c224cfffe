package textcodec

import "testing"

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		in   string
	}{
		{"plain alphanum", "ABC123"},
		{"dots and commas pass through", "N172SP,V1.2"},
		{"space", "HELLO WORLD"},
		{"slash", "KSFO/KLAX"},
		{"percent literal", "100%"},
		{"empty", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			esc := Escape(tc.in)
			got, err := Unescape(esc)
			if err != nil {
				t.Fatalf("Unescape(%q) error: %v", esc, err)
			}
			if got != tc.in {
				t.Errorf("round-trip = %q, want %q", got, tc.in)
			}
		})
	}
}

func TestEscapeAllowedAlphabet(t *testing.T) {
	if Escape("a.b,c") != "a.b,c" {
		t.Errorf("alphanum/./, should pass through unescaped")
	}
	if got, want := Escape(" "), "%20"; got != want {
		t.Errorf("Escape(space) = %q, want %q", got, want)
	}
}

func TestUnescapeRejectsNUL(t *testing.T) {
	if _, err := Unescape("%00"); err == nil {
		t.Error("expected error decoding %00, got nil")
	}
}

func TestUnescapeRejectsTruncated(t *testing.T) {
	testCases := []string{"%", "%2", "%2g", "%gg"}
	for _, tc := range testCases {
		if _, err := Unescape(tc); err == nil {
			t.Errorf("Unescape(%q) should have failed", tc)
		}
	}
}
