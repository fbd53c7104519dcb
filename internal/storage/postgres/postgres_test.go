package postgres

import (
	"strings"
	"testing"
)

func TestConnStringFromEnv(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "6543")
	t.Setenv("PGUSER", "scene")
	t.Setenv("PGDATABASE", "scenes")
	t.Setenv("PGPASSWORD", "")

	got := ConnStringFromEnv()
	want := "host=db.internal port=6543 user=scene dbname=scenes sslmode=disable"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	t.Setenv("PGPASSWORD", "s3cret")
	if got := ConnStringFromEnv(); !strings.Contains(got, "password=s3cret") {
		t.Fatalf("expected password in %q", got)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{0: 200, -5: 200, 50: 50, 20000: 10000}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
