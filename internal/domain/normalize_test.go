package domain

import (
	"reflect"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  Merhaba   Dünya  ", "merhaba dünya"},
		{"İlanımı SİL", "ilanımı sil"},
		{"IŞIK", "ışık"},
		{"", ""},
		{"   ", ""},
		{"tab\tve\nsatır", "tab ve satır"},
	}
	for _, tt := range tests {
		if got := NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFoldText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Değiştir", "degistir"},
		{"fiyatı güncelle", "fiyati guncelle"},
		{"ÇĞİÖŞÜ", "cgiosu"},
		{"satılık", "satilik"},
	}
	for _, tt := range tests {
		if got := FoldText(tt.in); got != tt.want {
			t.Errorf("FoldText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	got := Tokenize("marka: toyota, model corolla-2020!")
	want := []string{"marka", "toyota", "model", "corolla", "2020"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}
