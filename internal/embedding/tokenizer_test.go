package embedding

import "testing"

func TestSimpleTokenizerShape(t *testing.T) {
	tok := &SimpleTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tok.Tokenize("hello world", 16)

	if len(inputIDs) != 16 || len(attentionMask) != 16 || len(tokenTypeIDs) != 16 {
		t.Fatalf("all outputs must have length 16, got %d %d %d",
			len(inputIDs), len(attentionMask), len(tokenTypeIDs))
	}
	if inputIDs[0] != 101 {
		t.Errorf("first token = %d, want [CLS] 101", inputIDs[0])
	}
	// hello, world, then [SEP].
	if inputIDs[3] != 102 {
		t.Errorf("token after words = %d, want [SEP] 102", inputIDs[3])
	}
	for i := 0; i < 4; i++ {
		if attentionMask[i] != 1 {
			t.Errorf("attention mask at %d = %d, want 1", i, attentionMask[i])
		}
	}
	for i := 4; i < 16; i++ {
		if attentionMask[i] != 0 {
			t.Errorf("padding attention at %d = %d, want 0", i, attentionMask[i])
		}
	}
}

func TestSimpleTokenizerTruncatesLongInput(t *testing.T) {
	tok := &SimpleTokenizer{}
	long := ""
	for i := 0; i < 100; i++ {
		long += "word "
	}
	inputIDs, _, _ := tok.Tokenize(long, 8)
	if len(inputIDs) != 8 {
		t.Fatalf("length = %d, want 8", len(inputIDs))
	}
}

func TestHashStringDeterministicNonNegative(t *testing.T) {
	if HashString("abc") != HashString("abc") {
		t.Error("hash not deterministic")
	}
	for _, s := range []string{"", "a", "some longer string", "ÿüñ"} {
		if HashString(s) < 0 {
			t.Errorf("HashString(%q) is negative", s)
		}
	}
}
