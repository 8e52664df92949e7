package extract

import (
	"strings"
	"testing"
)

func TestContentText(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "simple Tj",
			stream: "BT /F1 12 Tf 72 712 Td (Opening balance 1,204.10) Tj ET",
			want:   "Opening balance 1,204.10",
		},
		{
			name:   "TJ with kerning and word gaps",
			stream: "BT [(T) 120 (ESCO) -300 (STORES)] TJ ET",
			want:   "TESCO STORES",
		},
		{
			name:   "line moves separate rows",
			stream: "BT (01/02 COFFEE) Tj 0 -14 Td (-3.50) Tj T* (02/02 RENT) Tj ET",
			want:   "01/02 COFFEE\n-3.50\n02/02 RENT",
		},
		{
			name:   "horizontal move keeps the row",
			stream: "BT (01/02) Tj 40 0 Td (SALARY) Tj ET",
			want:   "01/02 SALARY",
		},
		{
			name:   "quote operators start new lines",
			stream: "BT (first) Tj (second) ' 1 2 (third) \" ET",
			want:   "first\nsecond\nthird",
		},
		{
			name:   "escapes and nested parens",
			stream: `BT (Fee \(monthly\) \\ 5\0561) Tj (a (b) c) Tj ET`,
			want:   `Fee (monthly) \ 5.1a (b) c`,
		},
		{
			name:   "hex strings",
			stream: "BT <48656C6C6F> Tj [<576F72> -250 <6C64>] TJ ET",
			want:   "HelloWor ld",
		},
		{
			name:   "odd hex digit count is padded",
			stream: "BT <41424> Tj ET",
			want:   "AB@",
		},
		{
			name:   "dictionaries and comments are ignored",
			stream: "% header\n/P <</MCID 0>> BDC BT (kept) Tj ET EMC",
			want:   "kept",
		},
		{
			name:   "Tm positioned rows",
			stream: "BT /F1 10 Tf 1 0 0 1 50 750 Tm (2024-01-02 Coffee) Tj 1 0 0 1 400 750 Tm (-45.00) Tj 1 0 0 1 50 736 Tm (2024-01-03 Salary) Tj 1 0 0 1 400 736 Tm (2500.00) Tj ET",
			want:   "2024-01-02 Coffee -45.00\n2024-01-03 Salary 2500.00",
		},
		{
			name:   "Td after Tm keeps tracking the baseline",
			stream: "BT 1 0 0 1 50 700 Tm (a) Tj 0 -12 Td (b) Tj 1 0 0 1 200 688 Tm (c) Tj ET",
			want:   "a\nb c",
		},
		{
			name:   "inline image data is skipped",
			stream: "BI /W 1 /H 1 /BPC 8 ID \x00(Tj)\xff EI BT (after) Tj ET",
			want:   "after",
		},
		{
			name:   "latin-1 bytes map to runes",
			stream: "BT (Caf\351 \243) Tj ET",
			want:   "Café £",
		},
		{
			name:   "no text operators",
			stream: "q 1 0 0 1 0 0 cm 0 0 100 100 re f Q",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := contentText(strings.NewReader(tt.stream))
			if err != nil {
				t.Fatalf("contentText() error = %v", err)
			}
			if got = strings.TrimSpace(got); got != tt.want {
				t.Errorf("contentText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContentText_UnterminatedInput(t *testing.T) {
	for _, stream := range []string{"BT (never closed", "BT <4142", "BT [(a) (b)", "BT (x\\"} {
		if _, err := contentText(strings.NewReader(stream)); err != nil {
			t.Errorf("contentText(%q) error = %v", stream, err)
		}
	}
}
