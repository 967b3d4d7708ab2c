package led

import (
	"testing"
)

var testColors = []RGBColor{
	Off,
	FromUint32(0xFFFFFF),
	FromUint32(0x00FF00),
	FromUint32(0xFF0000),
	FromUint32(0xFF7F00),
	FromUint32(0x9400D3),
	FromUint32(0x4B0082),
	FromUint32(0x010203),
	FromUint32(0xFEFDFC),
}

func TestPackUnpack(t *testing.T) {
	c := Pack(0x12, 0x34, 0x56)
	if got := c.Uint32(); got != 0x123456 {
		t.Fatalf("Uint32() = %#06x, want 0x123456", got)
	}

	r, g, b := Unpack(FromUint32(0xABCDEF))
	if r != 0xAB || g != 0xCD || b != 0xEF {
		t.Errorf("Unpack(0xABCDEF) = %#x %#x %#x", r, g, b)
	}

	if got := FromUint32(0xFF123456); got != Pack(0x12, 0x34, 0x56) {
		t.Errorf("FromUint32 kept high bits: %v", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    RGBColor
		wantErr bool
	}{
		{in: "#FF7F00", want: Pack(0xFF, 0x7F, 0x00)},
		{in: "0x9400d3", want: Pack(0x94, 0x00, 0xD3)},
		{in: "4b0082", want: Pack(0x4B, 0x00, 0x82)},
		{in: " #000000 ", want: Off},
		{in: "#fff", wantErr: true},
		{in: "#gggggg", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseColor(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColor(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestColorText(t *testing.T) {
	c := Pack(0xFF, 0x7F, 0x00)
	text, err := c.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "#ff7f00" {
		t.Errorf("MarshalText() = %q, want #ff7f00", text)
	}

	var back RGBColor
	if err := back.UnmarshalText(text); err != nil {
		t.Fatal(err)
	}
	if back != c {
		t.Errorf("UnmarshalText(%q) = %v, want %v", text, back, c)
	}
}

func TestLerpBoundaries(t *testing.T) {
	for _, c1 := range testColors {
		for _, c2 := range testColors {
			if got := Lerp(c1, c2, 0); got != c1 {
				t.Errorf("Lerp(%v, %v, 0) = %v, want %v", c1, c2, got, c1)
			}
			if got := Lerp(c1, c2, 1); got != c2 {
				t.Errorf("Lerp(%v, %v, 1) = %v, want %v", c1, c2, got, c2)
			}
		}
	}
}

// Deriving t from an integer step count keeps the last step of a sweep on
// the target color, which accumulating 0.01 in a float32 does not.
func TestLerpIntegerSteps(t *testing.T) {
	c1 := FromUint32(0x00FF00)
	c2 := FromUint32(0xFF0000)

	const steps = 100
	var got RGBColor
	for k := 1; k <= steps; k++ {
		got = Lerp(c1, c2, float64(k)/steps)
	}
	if got != c2 {
		t.Errorf("last step = %v, want %v", got, c2)
	}
}

func TestLerpMidpoint(t *testing.T) {
	got := Lerp(Pack(0, 255, 10), Pack(255, 0, 11), 0.5)
	want := Pack(127, 127, 10)
	if got != want {
		t.Errorf("Lerp midpoint = %v, want %v", got, want)
	}
}

func TestLerpClamps(t *testing.T) {
	c1, c2 := Pack(10, 20, 30), Pack(200, 100, 0)
	if got := Lerp(c1, c2, -0.5); got != c1 {
		t.Errorf("Lerp(t<0) = %v, want %v", got, c1)
	}
	if got := Lerp(c1, c2, 1.5); got != c2 {
		t.Errorf("Lerp(t>1) = %v, want %v", got, c2)
	}
}

func TestLerpMonotonic(t *testing.T) {
	const steps = 1000

	for _, c1 := range testColors {
		for _, c2 := range testColors {
			prev := c1
			for k := 1; k <= steps; k++ {
				cur := Lerp(c1, c2, float64(k)/steps)
				for ch := range cur {
					increasing := c2[ch] >= c1[ch]
					if increasing && cur[ch] < prev[ch] {
						t.Fatalf("%v->%v channel %d decreased at k=%d: %d < %d",
							c1, c2, ch, k, cur[ch], prev[ch])
					}
					if !increasing && cur[ch] > prev[ch] {
						t.Fatalf("%v->%v channel %d increased at k=%d: %d > %d",
							c1, c2, ch, k, cur[ch], prev[ch])
					}
				}
				prev = cur
			}
		}
	}
}
