package vehicle

import "testing"

func TestNormalizePlate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ab-12-cd", "AB-12-CD"},
		{"  AB 12 CD  ", "AB12CD"},
		{"ab\t12\ncd", "AB12CD"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizePlate(c.in); got != c.want {
			t.Fatalf("NormalizePlate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"truck", "TRUCK", " Truck "} {
		vt, ok := ParseType(s)
		if !ok || vt != TypeTruck {
			t.Fatalf("ParseType(%q) = %q, %v", s, vt, ok)
		}
	}
	if _, ok := ParseType("hovercraft"); ok {
		t.Fatalf("expected unknown type to fail")
	}
	if _, ok := ParseType(""); ok {
		t.Fatalf("expected empty type to fail")
	}
}
