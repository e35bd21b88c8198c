package reporting

import "testing"

func TestFormatCompact(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{999999, "1000.0K"},
		{1_000_000, "1.00M"},
		{2_340_000, "2.34M"},
		{1_000_000_000, "1.00B"},
		{12_500_000_000, "12.50B"},
		{-1500, "-1.5K"},
		{-2_340_000, "-2.34M"},
		{42.7, "43"},
	}

	for _, tc := range cases {
		if got := FormatCompact(tc.in); got != tc.want {
			t.Errorf("FormatCompact(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
