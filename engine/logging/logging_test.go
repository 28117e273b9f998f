package logging

import "testing"

func TestLoggerWritesPopableLines(t *testing.T) {
	Reset()
	Logger().Info().Msg("hello")
	line, ok := Pop()
	if !ok {
		t.Fatal("expected a buffered line after logging")
	}
	if !contains(line, "hello") {
		t.Fatalf("popped line %q does not contain message", line)
	}
	if _, ok := Pop(); ok {
		t.Fatal("buffer should be empty after draining its one line")
	}
}

func TestRingDropsOldestWhenFull(t *testing.T) {
	r := newRing(3)
	r.Write([]byte("a"))
	r.Write([]byte("b"))
	r.Write([]byte("c"))
	r.Write([]byte("d"))

	var got []string
	for {
		line, ok := r.pop()
		if !ok {
			break
		}
		got = append(got, line)
	}
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSetLevelFiltersBelowThreshold(t *testing.T) {
	Reset()
	SetLevel(LevelError)
	Logger().Info().Msg("should be filtered")
	if _, ok := Pop(); ok {
		t.Fatal("info line should be filtered out at error level")
	}
	Logger().Error().Msg("should appear")
	if _, ok := Pop(); !ok {
		t.Fatal("error line should pass the error-level filter")
	}
	SetLevel(LevelVerbose)
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
