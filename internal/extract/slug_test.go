package extract

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Introduction", "introduction"},
		{"Application Layer", "application-layer"},
		{"Transport Layer", "transport-layer"},
		{"TCP/IP  Basics", "tcp/ip--basics"},
		{"Ünits Of Measure", "ünits-of-measure"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
