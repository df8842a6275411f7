package utils

import "testing"

func TestEnv(t *testing.T) {
	t.Setenv("SAMPSIM_TEST_INT", "42")
	t.Setenv("SAMPSIM_TEST_BAD", "x")
	t.Setenv("SAMPSIM_TEST_FLOAT", "0.25")
	t.Setenv("SAMPSIM_TEST_BOOL", "yes")
	t.Setenv("SAMPSIM_TEST_STR", "  ")

	if got := EnvInt("SAMPSIM_TEST_INT", 1); got != 42 {
		t.Fatalf("EnvInt() = %d, want 42", got)
	}
	if got := EnvInt("SAMPSIM_TEST_BAD", 7); got != 7 {
		t.Fatalf("EnvInt(bad) = %d, want 7", got)
	}
	if got := EnvFloat("SAMPSIM_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("EnvFloat() = %v, want 0.25", got)
	}
	if got := EnvBool("SAMPSIM_TEST_BOOL", false); !got {
		t.Fatalf("EnvBool() = %v, want true", got)
	}
	if got := EnvBool("SAMPSIM_TEST_BAD", true); !got {
		t.Fatalf("EnvBool(bad) = %v, want default true", got)
	}
	if got := EnvString("SAMPSIM_TEST_STR", "def"); got != "def" {
		t.Fatalf("EnvString(blank) = %q, want def", got)
	}
}

func TestBuildPostgresDSN(t *testing.T) {
	t.Setenv("PG_USER", "sim")
	t.Setenv("PG_PASSWORD", "pw")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PORT", "6543")
	t.Setenv("PG_DB", "")
	t.Setenv("PG_SSLMODE", "")
	want := "postgres://sim:pw@db:6543/sampsim?sslmode=disable"
	if got := BuildPostgresDSNFromEnv(); got != want {
		t.Fatalf("BuildPostgresDSNFromEnv() = %q, want %q", got, want)
	}
}
