package codepage

import "testing"

func TestLookupKnownIDs(t *testing.T) {
	tests := []struct {
		id   int
		name string
	}{
		{PC437, "CP437"},
		{Katakana, "KATAKANA"},
		{PC852, "CP852"},
		{PC858, "CP858"},
		{WPC1252, "CP1252"},
		{WPC1258, "CP1258"},
	}
	for _, tt := range tests {
		cp, ok := Lookup(tt.id)
		if !ok {
			t.Fatalf("Lookup(%d) not found", tt.id)
		}
		if cp.Name != tt.name {
			t.Errorf("Lookup(%d).Name = %q, want %q", tt.id, cp.Name, tt.name)
		}
	}
	if _, ok := Lookup(99); ok {
		t.Errorf("Lookup(99) should not exist")
	}
}

func TestByNameIgnoresCase(t *testing.T) {
	cp, ok := ByName(" cp852 ")
	if !ok || cp.ID != PC852 {
		t.Fatalf("ByName(cp852) = %v, %v", cp, ok)
	}
}

func TestLowerHalfIsASCII(t *testing.T) {
	for _, cp := range All() {
		for b := 0; b < 0x80; b++ {
			if got := cp.Decode(byte(b)); got != rune(b) {
				t.Fatalf("%s: Decode(0x%02X) = %U, want ASCII", cp.Name, b, got)
			}
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, cp := range All() {
		for i := 0; i < 256; i++ {
			r := cp.Decode(byte(i))
			if r == Undefined {
				if cp.CanEncode(Undefined) {
					t.Fatalf("%s: replacement character must not be encodable", cp.Name)
				}
				continue
			}
			b, ok := cp.Encode(r)
			if !ok {
				t.Fatalf("%s: Encode(%U) failed for byte 0x%02X", cp.Name, r, i)
			}
			if cp.Decode(b) != r {
				t.Fatalf("%s: Decode(Encode(%U)) = %U", cp.Name, r, cp.Decode(b))
			}
		}
	}
}

func TestKnownPositions(t *testing.T) {
	cp437, _ := Lookup(PC437)
	cp852, _ := Lookup(PC852)
	kata, _ := Lookup(Katakana)

	if b, ok := cp437.Encode('é'); !ok || b != 0x82 {
		t.Errorf("CP437 é = 0x%02X, %v; want 0x82", b, ok)
	}
	if cp437.CanEncode('ě') {
		t.Errorf("CP437 must not encode ě")
	}
	if b, ok := cp852.Encode('ě'); !ok || b != 0xD8 {
		t.Errorf("CP852 ě = 0x%02X, %v; want 0xD8", b, ok)
	}
	if b, ok := kata.Encode('ｱ'); !ok || b != 0xB1 {
		t.Errorf("KATAKANA ｱ = 0x%02X, %v; want 0xB1", b, ok)
	}
	if kata.Decode(0xE0) != Undefined {
		t.Errorf("KATAKANA 0xE0 should be undefined")
	}
}

func TestDecodeBytes(t *testing.T) {
	cp437, _ := Lookup(PC437)
	if got := cp437.DecodeBytes([]byte{'c', 'a', 'f', 0x82}); got != "café" {
		t.Errorf("DecodeBytes = %q", got)
	}
}
