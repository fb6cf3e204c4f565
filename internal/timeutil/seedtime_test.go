package timeutil

import "testing"

func TestTimeToSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"4:05.50", 245.5},
		{"1:00.00", 60},
		{"14:30.25", 870.25},
	}

	for _, c := range cases {
		got, err := TimeToSeconds(c.in)
		if err != nil {
			t.Fatalf("TimeToSeconds(%q): unexpected error: %v", c.in, err)
		}

		if got != c.want {
			t.Fatalf("TimeToSeconds(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestTimeToSeconds_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1:60.00", "1:5.0"} {
		if _, err := TimeToSeconds(in); err == nil {
			t.Fatalf("TimeToSeconds(%q): expected error", in)
		}
	}
}

func TestSecondsToDisplay(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{245.5, "4:05.50"},
		{60, "1:00.00"},
		{870.25, "14:30.25"},
	}

	for _, c := range cases {
		if got := SecondsToDisplay(c.in); got != c.want {
			t.Fatalf("SecondsToDisplay(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, in := range []string{"4:05.50", "1:00.00", "14:30.25"} {
		secs, err := TimeToSeconds(in)
		if err != nil {
			t.Fatalf("TimeToSeconds(%q): %v", in, err)
		}

		if got := SecondsToDisplay(secs); got != in {
			t.Fatalf("round trip %q -> %v -> %q", in, secs, got)
		}
	}
}
