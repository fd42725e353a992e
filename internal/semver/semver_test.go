package semver

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genVersionString generates valid version strings
func genVersionString() gopter.Gen {
	versions := []interface{}{
		"1", "2", "10", "99", "200",
		"1.0", "1.1", "2.0", "2.1", "10.5", "99.99",
		"1.0.1", "1.2.3", "2.1.0", "10.20.30",
		"1.0-rc1", "1.0-rc2", "2.0-rc1",
		"1.0-beta1", "1.0-beta2", "2.0-beta1",
		"1.0-alpha", "2.0-alpha",
		"1.0-p1", "1.0-p2",
		"120.0", "120.0-rc1",
	}
	return gen.OneConstOf(versions...)
}

// TestCompareAntisymmetry verifies that swapping operands inverts the
// result for every pair of valid versions.
func TestCompareAntisymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Compare(a,b) == -Compare(b,a) for valid versions", prop.ForAll(
		func(a, b string) bool {
			ab := Compare(a, b)
			ba := Compare(b, a)
			switch ab {
			case Less:
				return ba == Greater
			case Greater:
				return ba == Less
			case Equal:
				return ba == Equal
			default:
				return false // generated versions must always parse
			}
		},
		genVersionString(),
		genVersionString(),
	))

	properties.Property("Compare(a,a) == Equal", prop.ForAll(
		func(a string) bool {
			return Compare(a, a) == Equal
		},
		genVersionString(),
	))

	properties.TestingRun(t)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want Result
	}{
		{"shorter form equals padded form", "2.1", "2.1.0", Equal},
		{"padded form equals shorter form", "2.1.0", "2.1", Equal},
		{"patch bump", "1.0.1", "1.0.0", Greater},
		{"major bump", "5.0", "4.2", Greater},
		{"lower minor", "2.0", "2.1", Less},
		{"rc before release", "2.0-rc1", "2.0", Less},
		{"beta before rc", "2.0-beta2", "2.0-rc1", Less},
		{"alpha before beta", "2.0-alpha", "2.0-beta1", Less},
		{"rc ordering", "2.0-rc2", "2.0-rc1", Greater},
		{"v prefix tolerated", "v2.1.0", "2.1", Equal},
		{"malformed left operand", "not-a-version", "2.1", Incomparable},
		{"malformed right operand", "2.1", "garbage", Incomparable},
		{"empty operands", "", "", Incomparable},
		{"date-like left operand", "2024.01", "2.1", Incomparable},
		{"ten part compare", "3.14.2", "3.11.7", Greater},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestParseRejectsDates(t *testing.T) {
	tests := []string{"2024", "2024.01.15", "2025.1", "201"}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			_, err := Parse(s)
			if !errors.Is(err, ErrDateLikeVersion) {
				t.Errorf("Parse(%q) error = %v, want ErrDateLikeVersion", s, err)
			}
		})
	}

	// 200 is the inclusive boundary: still a version
	if _, err := Parse("200.0"); err != nil {
		t.Errorf("Parse(200.0) unexpected error: %v", err)
	}
}

func TestNewest(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		want       string
	}{
		{"picks highest", []string{"3.11.1", "3.14.2", "3.11.7"}, "3.14.2"},
		{"discards dates", []string{"2024.01", "3.1.0"}, "3.1.0"},
		{"discards malformed", []string{"latest", "n/a", "1.2"}, "1.2"},
		{"all malformed", []string{"latest", "soon"}, ""},
		{"empty input", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Newest(tt.candidates); got != tt.want {
				t.Errorf("Newest(%v) = %q, want %q", tt.candidates, got, tt.want)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"v2.1.0-beta", "2.1.0"},
		{"Version 3.0", "3.0"},
		{"1.2.3.4", "1.2.3"},
		{"  v5.0  ", "5.0"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Clean(tt.raw); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNewer(t *testing.T) {
	if !Newer("5.0", "4.2") {
		t.Error("expected 5.0 newer than 4.2")
	}
	if Newer("4.2", "4.2.0") {
		t.Error("4.2 is not newer than 4.2.0")
	}
	// Incomparable must never report newer
	if Newer("unknown", "4.2") {
		t.Error("incomparable operands must not report newer")
	}
}
