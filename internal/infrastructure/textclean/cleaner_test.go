package textclean

import "testing"

func TestCleanCollapsesWhitespace(t *testing.T) {
	c := NewCleaner()

	got, ops := c.Clean("hello   world\r\n\r\nsecond\tline  here")
	want := "hello world\nsecond line here"
	if got != want {
		t.Fatalf("Clean() = %q, want %q", got, want)
	}
	if !ops.WhitespaceCollapsed {
		t.Fatalf("expected WhitespaceCollapsed to be set")
	}
	if ops.LinesDropped != 1 {
		t.Fatalf("expected the blank line counted, got %d", ops.LinesDropped)
	}
	if ops.CleanedLength != len(want) {
		t.Fatalf("CleanedLength = %d, want %d", ops.CleanedLength, len(want))
	}
}

func TestCleanRemovesControlChars(t *testing.T) {
	c := NewCleaner()

	got, ops := c.Clean("abc\x00def\x07ghi")
	if got != "abcdefghi" {
		t.Fatalf("Clean() = %q", got)
	}
	if ops.ControlCharsRemoved != 2 {
		t.Fatalf("ControlCharsRemoved = %d, want 2", ops.ControlCharsRemoved)
	}
}

func TestCleanRemovesNoiseTokens(t *testing.T) {
	c := NewCleaner()

	got, ops := c.Clean("total | amount ### due\n--- ---")
	if got != "total amount due" {
		t.Fatalf("Clean() = %q", got)
	}
	if ops.NoiseTokensRemoved != 4 {
		t.Fatalf("NoiseTokensRemoved = %d, want 4", ops.NoiseTokensRemoved)
	}
	if ops.LinesDropped != 1 {
		t.Fatalf("expected noise-only line dropped, got %d", ops.LinesDropped)
	}
}

func TestCleanExtraNoiseTokens(t *testing.T) {
	c := NewCleaner("CONFIDENTIAL")

	got, _ := c.Clean("CONFIDENTIAL report body")
	if got != "report body" {
		t.Fatalf("Clean() = %q", got)
	}
}

func TestCleanDeterministic(t *testing.T) {
	c := NewCleaner()
	input := "  mixed \r\n content | with ### noise  \n\nand gaps  "

	first, firstOps := c.Clean(input)
	second, secondOps := c.Clean(input)
	if first != second {
		t.Fatalf("outputs differ: %q vs %q", first, second)
	}
	if firstOps != secondOps {
		t.Fatalf("ops differ: %+v vs %+v", firstOps, secondOps)
	}
}

func TestCleanEmptyInput(t *testing.T) {
	c := NewCleaner()

	got, ops := c.Clean("")
	if got != "" {
		t.Fatalf("Clean(\"\") = %q", got)
	}
	if ops.OriginalLength != 0 || ops.CleanedLength != 0 {
		t.Fatalf("unexpected ops %+v", ops)
	}
}
