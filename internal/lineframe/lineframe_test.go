package lineframe

import (
	"reflect"
	"testing"
)

func TestExtractorPush(t *testing.T) {
	t.Run("single complete line", func(t *testing.T) {
		var e Extractor
		lines := e.Push([]byte("hello\n"))
		if !reflect.DeepEqual(lines, []string{"hello"}) {
			t.Errorf("got %v", lines)
		}
	})

	t.Run("drops trailing carriage return", func(t *testing.T) {
		var e Extractor
		lines := e.Push([]byte("hello\r\n"))
		if !reflect.DeepEqual(lines, []string{"hello"}) {
			t.Errorf("got %v", lines)
		}
	})

	t.Run("splits multiple lines in one chunk", func(t *testing.T) {
		var e Extractor
		lines := e.Push([]byte("1\n2\n3\n"))
		if !reflect.DeepEqual(lines, []string{"1", "2", "3"}) {
			t.Errorf("got %v", lines)
		}
	})

	t.Run("partial line held across pushes", func(t *testing.T) {
		var e Extractor
		lines := e.Push([]byte("par"))
		if len(lines) != 0 {
			t.Fatalf("expected no lines yet, got %v", lines)
		}
		lines = e.Push([]byte("tial\n"))
		if !reflect.DeepEqual(lines, []string{"partial"}) {
			t.Errorf("got %v", lines)
		}
	})

	t.Run("never emits speculatively", func(t *testing.T) {
		var e Extractor
		lines := e.Push([]byte("no newline yet"))
		if len(lines) != 0 {
			t.Errorf("expected no lines, got %v", lines)
		}
		line, ok := e.DrainFinal()
		if !ok || line != "no newline yet" {
			t.Errorf("expected final drain to surface the line, got %q ok=%v", line, ok)
		}
	})

	t.Run("empty chunk is a no-op", func(t *testing.T) {
		var e Extractor
		if lines := e.Push(nil); lines != nil {
			t.Errorf("expected nil, got %v", lines)
		}
	})

	t.Run("lossily replaces malformed UTF-8", func(t *testing.T) {
		var e Extractor
		chunk := append([]byte("ok-"), 0xff, 0xfe)
		chunk = append(chunk, '\n')
		lines := e.Push(chunk)
		if len(lines) != 1 {
			t.Fatalf("expected 1 line, got %v", lines)
		}
		if lines[0] != "ok-��" {
			t.Errorf("got %q", lines[0])
		}
	})
}

func TestExtractorDrainFinal(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		var e Extractor
		e.Push([]byte("  trailing  "))
		line, ok := e.DrainFinal()
		if !ok || line != "trailing" {
			t.Errorf("got %q ok=%v", line, ok)
		}
	})

	t.Run("empty buffer yields nothing", func(t *testing.T) {
		var e Extractor
		line, ok := e.DrainFinal()
		if ok || line != "" {
			t.Errorf("expected no final line, got %q ok=%v", line, ok)
		}
	})

	t.Run("whitespace-only buffer yields nothing", func(t *testing.T) {
		var e Extractor
		e.Push([]byte("   "))
		line, ok := e.DrainFinal()
		if ok || line != "" {
			t.Errorf("expected no final line, got %q ok=%v", line, ok)
		}
	})

	t.Run("resets after drain", func(t *testing.T) {
		var e Extractor
		e.Push([]byte("first"))
		e.DrainFinal()
		e.Push([]byte("second"))
		line, ok := e.DrainFinal()
		if !ok || line != "second" {
			t.Errorf("got %q ok=%v", line, ok)
		}
	})
}
