package shquote

import "testing"

func TestQuote(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "''"},
		{"bare path", "/tmp/a.txt", "/tmp/a.txt"},
		{"bare with colon and at", "user@host:/var/lib-x", "user@host:/var/lib-x"},
		{"space requires quoting", "/tmp/a b.txt", `'/tmp/a b.txt'`},
		{"embedded single quote", "it's", `'it'\''s'`},
		{"dollar sign requires quoting", "$HOME/x", `'$HOME/x'`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Quote(tc.in); got != tc.want {
				t.Errorf("Quote(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
