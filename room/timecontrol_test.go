package room

import "testing"

func TestNormalizeTimeControl(t *testing.T) {
	cases := []struct {
		in, want string
		wantErr  bool
	}{
		{"3+2", "3+2", false},
		{"", "5+0", false},
		{"any", "5+0", false},
		{"none", "none", false},
		{"garbage", "", true},
		{"3+", "", true},
	}
	for _, c := range cases {
		got, err := NormalizeTimeControl(c.in, "5+0")
		if c.wantErr {
			if err == nil {
				t.Errorf("NormalizeTimeControl(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeTimeControl(%q): unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("NormalizeTimeControl(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseClocks(t *testing.T) {
	c := ParseClocks("1+2")
	if !c.Enabled || c.WMs != 60_000 || c.BMs != 60_000 || c.IncrementMs != 2_000 {
		t.Fatalf("unexpected clocks: %+v", c)
	}
	if none := ParseClocks("none"); none.Enabled {
		t.Fatalf("expected untimed clocks to be disabled, got %+v", none)
	}
}
