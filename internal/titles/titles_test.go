package titles_test

import (
	"testing"

	"bosstitler/internal/titles"
)

func TestIsDefaultTitle(t *testing.T) {
	cases := []struct {
		title string
		want  bool
	}{
		{"elden ring_20240101120000", true},
		{"dark souls iii_20231215093045", true},
		{"Elden Ring: Malenia Melee PS5", false},
		{"elden ring_2024", false},
		{"elden ring_202401011200001", false},
		{"_20240101120000", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := titles.IsDefaultTitle(tc.title); got != tc.want {
			t.Errorf("IsDefaultTitle(%q) = %v, want %v", tc.title, got, tc.want)
		}
	}
}

func TestExtractGame(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"elden ring_20240101120000", "elden ring"},
		{"dark souls iii_20231215093045", "dark souls iii"},
		{"no timestamp here", "no timestamp here"},
	}
	for _, tc := range cases {
		if got := titles.ExtractGame(tc.title); got != tc.want {
			t.Errorf("ExtractGame(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestCanonicalGame(t *testing.T) {
	cases := []struct {
		game string
		want string
	}{
		{"elden ring", "Elden Ring"},
		{"DARK SOULS", "Dark Souls"},
		{"  sekiro  ", "Sekiro"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := titles.CanonicalGame(tc.game); got != tc.want {
			t.Errorf("CanonicalGame(%q) = %q, want %q", tc.game, got, tc.want)
		}
	}
}

func TestFormatterFormat(t *testing.T) {
	formatter := titles.NewFormatter([]string{"Elden Ring", "Sekiro"})

	got := formatter.Format("Elden Ring", "Malenia, Blade of Miquella")
	want := "Elden Ring: Malenia, Blade of Miquella Melee PS5"
	if got != want {
		t.Fatalf("soulslike format = %q, want %q", got, want)
	}

	got = formatter.Format("God of War", "Baldur")
	want = "God of War: Baldur PS5"
	if got != want {
		t.Fatalf("non-soulslike format = %q, want %q", got, want)
	}
}

func TestFormatterIsSoulslike(t *testing.T) {
	formatter := titles.NewFormatter([]string{"Dark Souls", "Elden Ring"})

	if !formatter.IsSoulslike("dark souls iii") {
		t.Fatal("expected fuzzy match against the catalog")
	}
	if formatter.IsSoulslike("Horizon Zero Dawn") {
		t.Fatal("expected non-soulslike to miss")
	}
}
