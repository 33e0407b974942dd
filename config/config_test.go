package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
)

func TestParseIndexWidth(t *testing.T) {
	tests := []struct {
		in   string
		want IndexWidth
		ok   bool
	}{
		{"auto", IndexWidthAuto, true},
		{"never", IndexWidthAlways16, true},
		{"16", IndexWidthAlways16, true},
		{"always", IndexWidthAlways32, true},
		{"32", IndexWidthAlways32, true},
		{"bogus", IndexWidthAuto, false},
	}
	for _, test := range tests {
		got, err := ParseIndexWidth(test.in)
		if (err == nil) != test.ok {
			t.Errorf("ParseIndexWidth(%q) error = %v, want ok=%v", test.in, err, test.ok)
			continue
		}
		if test.ok && got != test.want {
			t.Errorf("ParseIndexWidth(%q) = %v, want %v", test.in, got, test.want)
		}
	}
}

func TestLoadOptions(t *testing.T) {
	const yml = `
indexWidth: always
useKHRLightsPunctual: true
draco:
  enabled: true
  compressionLevel: 4
`
	path := filepath.Join(t.TempDir(), "opts.yaml")
	if err := ioutil.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	opts, err := LoadOptions(path)
	if err != nil {
		t.Fatal(err)
	}
	if opts.IndexWidth != IndexWidthAlways32 {
		t.Errorf("IndexWidth = %v, want always32", opts.IndexWidth)
	}
	if !opts.UseKHRLightsPunctual {
		t.Error("UseKHRLightsPunctual not applied")
	}
	if !opts.Draco.Enabled || opts.Draco.CompressionLevel != 4 {
		t.Errorf("Draco = %+v, want enabled at level 4", opts.Draco)
	}
	// Untouched knobs keep their defaults.
	if !opts.UsePBRMetRough {
		t.Error("UsePBRMetRough default lost")
	}
	if opts.Draco.QuantBitsPosition != -1 {
		t.Errorf("QuantBitsPosition = %d, want backend default -1", opts.Draco.QuantBitsPosition)
	}
}

func TestSetEncoding(t *testing.T) {
	defer SetEncoding("Windows 1252")

	if err := SetEncoding("definitely not an encoding"); err == nil {
		t.Error("expected an error for an unknown encoding")
	}

	names := ListEncodings()
	if len(names) == 0 {
		t.Fatal("no encodings listed")
	}
	if err := SetEncoding(names[0]); err != nil {
		t.Errorf("SetEncoding(%q) failed: %v", names[0], err)
	}
	if GetEncoding().String() != names[0] {
		t.Errorf("GetEncoding = %q, want %q", GetEncoding().String(), names[0])
	}
}
