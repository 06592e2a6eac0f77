package calendar

import "testing"

func TestPaginate(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	p := Paginate(items, 1, 10)
	if len(p.Items) != 10 || !p.HasNext || p.HasPrev || p.Total != 23 {
		t.Fatalf("page 1: unexpected %+v", p)
	}

	p = Paginate(items, 3, 10)
	if len(p.Items) != 3 || p.HasNext || !p.HasPrev || p.Items[0] != 20 {
		t.Fatalf("page 3: unexpected %+v", p)
	}

	p = Paginate(items, 5, 10)
	if len(p.Items) != 0 || p.HasNext {
		t.Fatalf("page past end: unexpected %+v", p)
	}
}

func TestPaginate_Defaults(t *testing.T) {
	items := make([]string, 15)
	p := Paginate(items, 0, 0)
	if p.Page != 1 || p.PageSize != DefaultPageSize || len(p.Items) != DefaultPageSize {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestPaginate_CopiesItems(t *testing.T) {
	items := []int{1, 2, 3}
	p := Paginate(items, 1, 2)
	p.Items[0] = 42
	if items[0] != 1 {
		t.Fatalf("page must not alias source slice")
	}
}
