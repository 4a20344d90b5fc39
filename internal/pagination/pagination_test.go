package pagination

import (
	"errors"
	"slices"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		perPage    int
		total      int
		wantPage   int
		wantPages  int
		wantStart  int
		wantEnd    int
		wantHasPrv bool
		wantHasNxt bool
		wantPrev   int
		wantNext   int
	}{
		{"first page", 1, 10, 95, 1, 10, 1, 10, false, true, 1, 2},
		{"last page partial", 10, 10, 95, 10, 10, 91, 95, true, false, 9, 10},
		{"middle", 3, 25, 100, 3, 4, 51, 75, true, true, 2, 4},
		{"page above range clamps", 99, 10, 95, 10, 10, 91, 95, true, false, 9, 10},
		{"page below range clamps", -4, 10, 95, 1, 10, 1, 10, false, true, 1, 2},
		{"empty", 1, 25, 0, 1, 1, 0, 0, false, false, 1, 1},
		{"empty with high page", 7, 25, 0, 1, 1, 0, 0, false, false, 1, 1},
		{"exact multiple", 2, 5, 10, 2, 2, 6, 10, true, false, 1, 2},
		{"negative total treated as empty", 1, 5, -3, 1, 1, 0, 0, false, false, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New([]int{}, tt.page, tt.perPage, tt.total)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if p.Page != tt.wantPage {
				t.Errorf("Page = %d, want %d", p.Page, tt.wantPage)
			}
			if p.TotalPages != tt.wantPages {
				t.Errorf("TotalPages = %d, want %d", p.TotalPages, tt.wantPages)
			}
			if p.StartIndex != tt.wantStart || p.EndIndex != tt.wantEnd {
				t.Errorf("Start/End = %d/%d, want %d/%d", p.StartIndex, p.EndIndex, tt.wantStart, tt.wantEnd)
			}
			if p.HasPrev != tt.wantHasPrv || p.HasNext != tt.wantHasNxt {
				t.Errorf("HasPrev/HasNext = %v/%v, want %v/%v", p.HasPrev, p.HasNext, tt.wantHasPrv, tt.wantHasNxt)
			}
			if p.PrevPage != tt.wantPrev || p.NextPage != tt.wantNext {
				t.Errorf("PrevPage/NextPage = %d/%d, want %d/%d", p.PrevPage, p.NextPage, tt.wantPrev, tt.wantNext)
			}
		})
	}
}

func TestNew_Invariants(t *testing.T) {
	for total := 0; total <= 60; total++ {
		for perPage := 1; perPage <= 12; perPage++ {
			for page := -2; page <= 15; page++ {
				p, err := New[string](nil, page, perPage, total)
				if err != nil {
					t.Fatalf("New(%d, %d, %d) error = %v", page, perPage, total, err)
				}
				if p.Page < 1 || p.Page > p.TotalPages {
					t.Fatalf("New(%d, %d, %d) page %d outside [1, %d]", page, perPage, total, p.Page, p.TotalPages)
				}
				if total == 0 {
					if p.StartIndex != 0 || p.EndIndex != 0 {
						t.Fatalf("empty result has indices %d/%d", p.StartIndex, p.EndIndex)
					}
					continue
				}
				if p.StartIndex < 1 || p.StartIndex > p.EndIndex || p.EndIndex > total {
					t.Fatalf("New(%d, %d, %d) indices %d/%d out of order", page, perPage, total, p.StartIndex, p.EndIndex)
				}
				if p.EndIndex-p.StartIndex+1 > perPage {
					t.Fatalf("New(%d, %d, %d) spans more than one page", page, perPage, total)
				}
			}
		}
	}
}

func TestNew_ItemsNotResliced(t *testing.T) {
	items := []string{"a", "b", "c"}
	p, err := New(items, 2, 3, 9)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !slices.Equal(p.Items, items) {
		t.Errorf("Items = %v, want %v", p.Items, items)
	}

	p, err = New[string](nil, 1, 3, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.Items == nil {
		t.Error("Items = nil, want empty slice")
	}
}

func TestNew_InvalidPerPage(t *testing.T) {
	for _, perPage := range []int{0, -1} {
		if _, err := New([]int{}, 1, perPage, 10); !errors.Is(err, ErrInvalidPerPage) {
			t.Errorf("New(per_page=%d) error = %v, want ErrInvalidPerPage", perPage, err)
		}
	}
}

func TestFromStrings(t *testing.T) {
	p, err := FromStrings([]int{}, "2", " 10 ", 35)
	if err != nil {
		t.Fatalf("FromStrings() error = %v", err)
	}
	if p.Page != 2 || p.PerPage != 10 {
		t.Errorf("FromStrings() = page %d per_page %d, want 2/10", p.Page, p.PerPage)
	}

	if _, err := FromStrings([]int{}, "two", "10", 35); !errors.Is(err, ErrInvalidNumber) {
		t.Errorf("FromStrings(page=two) error = %v, want ErrInvalidNumber", err)
	}
	if _, err := FromStrings([]int{}, "1", "", 35); !errors.Is(err, ErrInvalidNumber) {
		t.Errorf("FromStrings(per_page=\"\") error = %v, want ErrInvalidNumber", err)
	}
	if _, err := FromStrings([]int{}, "1", "0", 35); !errors.Is(err, ErrInvalidPerPage) {
		t.Errorf("FromStrings(per_page=0) error = %v, want ErrInvalidPerPage", err)
	}
}

func TestIterPages(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		total int
		want  []int
	}{
		{"single page", 1, 5, []int{1}},
		{"few pages no gaps", 2, 40, []int{1, 2, 3, 4}},
		{"middle of many", 10, 200, []int{1, 2, Gap, 8, 9, 10, 11, 12, Gap, 19, 20}},
		{"start of many", 1, 200, []int{1, 2, 3, Gap, 19, 20}},
		{"end of many", 20, 200, []int{1, 2, Gap, 18, 19, 20}},
		{"window touches left edge", 4, 200, []int{1, 2, 3, 4, 5, 6, Gap, 19, 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New([]int{}, tt.page, 10, tt.total)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			got := slices.Collect(p.DefaultPages())
			if !slices.Equal(got, tt.want) {
				t.Errorf("DefaultPages() = %v, want %v", got, tt.want)
			}
			if !slices.Equal(p.Pages, tt.want) {
				t.Errorf("Pages = %v, want %v", p.Pages, tt.want)
			}
		})
	}
}

func TestIterPages_Properties(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for page := 1; page <= total; page++ {
			p, err := New([]int{}, page, 1, total)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			got := slices.Collect(p.IterPages(2, 2, 3, 2))

			last, prevGap := 0, false
			seenCurrent := false
			for i, num := range got {
				if num == Gap {
					if i == 0 || prevGap {
						t.Fatalf("page %d/%d: misplaced gap in %v", page, total, got)
					}
					prevGap = true
					continue
				}
				if num <= last {
					t.Fatalf("page %d/%d: not increasing %v", page, total, got)
				}
				if !prevGap && last != 0 && num != last+1 {
					t.Fatalf("page %d/%d: missing gap in %v", page, total, got)
				}
				seenCurrent = seenCurrent || num == page
				last, prevGap = num, false
			}
			if got[0] != 1 || last != total || prevGap {
				t.Fatalf("page %d/%d: bad bounds %v", page, total, got)
			}
			if !seenCurrent {
				t.Fatalf("page %d/%d: current page missing from %v", page, total, got)
			}
		}
	}
}

func TestIterPages_StopsEarly(t *testing.T) {
	p, err := New([]int{}, 10, 10, 200)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var got []int
	for num := range p.DefaultPages() {
		got = append(got, num)
		if len(got) == 3 {
			break
		}
	}
	if want := []int{1, 2, Gap}; !slices.Equal(got, want) {
		t.Errorf("early break = %v, want %v", got, want)
	}
}

func TestArgs(t *testing.T) {
	tests := []struct {
		page, perPage       string
		wantPage, wantPerPg int
	}{
		{"", "", 1, 25},
		{"3", "", 3, 25},
		{"3", "50", 3, 50},
		{"0", "10", 1, 10},
		{"-5", "10", 1, 10},
		{"2", "500", 2, 100},
		{"2", "0", 2, 1},
		{"abc", "10", 1, 25},
		{"4", "ten", 1, 25},
		{" 7 ", "9", 7, 9},
	}

	for _, tt := range tests {
		page, perPage := Args(tt.page, tt.perPage)
		if page != tt.wantPage || perPage != tt.wantPerPg {
			t.Errorf("Args(%q, %q) = %d, %d, want %d, %d", tt.page, tt.perPage, page, perPage, tt.wantPage, tt.wantPerPg)
		}
	}
}
