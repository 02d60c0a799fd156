package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testItem(t *testing.T, id string, offers ...VendorOffer) CatalogItem {
	t.Helper()
	item, err := NewCatalogItem(id, "Item "+id, "SKU-"+id, "PPE", decimal.NewFromInt(10), StockCounts{}, "Maker", offers)
	if err != nil {
		t.Fatalf("NewCatalogItem: %v", err)
	}
	return item
}

func TestOrder_TotalScenario(t *testing.T) {
	o := NewOrder(decimal.NewFromInt(100))

	if _, err := o.AddItem(testItem(t, "gloves", testOffer("cur", "Medline", "10", true))); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if err := o.SetQuantity("gloves", 5); err != nil {
		t.Fatalf("SetQuantity failed: %v", err)
	}
	if !o.Total().Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50, got %s", o.Total())
	}

	o.MergeOffers("gloves", []VendorOffer{testOffer("alt", "Cardinal", "8", false)})
	if _, err := o.ToggleVendor("gloves", "alt"); err != nil {
		t.Fatalf("ToggleVendor failed: %v", err)
	}

	if !o.Total().Equal(decimal.NewFromInt(40)) {
		t.Errorf("expected 40, got %s", o.Total())
	}
	line, _ := o.Item("gloves")
	if s, _ := line.Offers().SavingsFor("alt"); !s.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected savings 2, got %s", s)
	}
	if s, _ := line.Savings(); !s.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected line savings 10, got %s", s)
	}
}

func TestOrder_TotalMatchesLines(t *testing.T) {
	o := NewOrder(decimal.Zero)
	o.AddItem(testItem(t, "a", testOffer("a-cur", "A", "3.33", true)))
	o.AddItem(testItem(t, "b", testOffer("b-cur", "B", "1.10", true), testOffer("b-alt", "C", "0.99", false)))
	o.AddItem(testItem(t, "c"))
	o.SetQuantity("a", 3)
	o.SetQuantity("b", 7)
	o.ToggleVendor("b", "b-alt")
	o.ToggleVendor("c", "c-baseline")

	sum := decimal.Zero
	for _, line := range o.Items() {
		if lt, err := line.LineTotal(); err == nil {
			sum = sum.Add(lt)
		}
	}
	if !o.Total().Equal(sum) {
		t.Errorf("total %s does not match line sum %s", o.Total(), sum)
	}
	if !o.Total().Equal(decimal.RequireFromString("16.92")) {
		t.Errorf("expected 16.92, got %s", o.Total())
	}

	unpriced := o.UnpricedItems()
	if len(unpriced) != 1 || unpriced[0] != "c" {
		t.Errorf("expected c unpriced, got %v", unpriced)
	}
	line, _ := o.Item("c")
	if _, err := line.LineTotal(); !errors.Is(err, ErrNoVendorSelected) {
		t.Errorf("expected ErrNoVendorSelected, got: %v", err)
	}
}

func TestOrder_AddRemoveRoundTrip(t *testing.T) {
	o := NewOrder(decimal.Zero)
	o.AddItem(testItem(t, "a"))
	o.AddItem(testItem(t, "b"))
	before := o.Summary()

	if _, err := o.AddItem(testItem(t, "c")); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if err := o.RemoveItem("c"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	after := o.Summary()

	if len(after.Lines) != len(before.Lines) || !after.Total.Equal(before.Total) {
		t.Errorf("round trip changed order: before %+v after %+v", before, after)
	}
	for i := range before.Lines {
		if before.Lines[i].ItemID != after.Lines[i].ItemID {
			t.Errorf("line %d: expected %s, got %s", i, before.Lines[i].ItemID, after.Lines[i].ItemID)
		}
	}
}

func TestOrder_RemoveMiddleKeepsIndex(t *testing.T) {
	o := NewOrder(decimal.Zero)
	for _, id := range []string{"a", "b", "c"} {
		o.AddItem(testItem(t, id))
	}
	o.RemoveItem("b")

	if err := o.SetQuantity("c", 4); err != nil {
		t.Fatalf("SetQuantity failed: %v", err)
	}
	line, _ := o.Item("c")
	if line.Quantity() != 4 {
		t.Errorf("expected 4, got %d", line.Quantity())
	}
	if ids := []string{o.Items()[0].ID, o.Items()[1].ID}; ids[0] != "a" || ids[1] != "c" {
		t.Errorf("expected [a c], got %v", ids)
	}
}

func TestOrder_Errors(t *testing.T) {
	o := NewOrder(decimal.Zero)
	o.AddItem(testItem(t, "a"))

	if _, err := o.AddItem(testItem(t, "a")); !errors.Is(err, ErrDuplicateItem) {
		t.Errorf("expected ErrDuplicateItem, got: %v", err)
	}
	if err := o.RemoveItem("zzz"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got: %v", err)
	}
	if err := o.SetQuantity("a", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got: %v", err)
	}
	if _, err := o.ToggleVendor("a", "ghost"); !errors.Is(err, ErrUnknownVendor) {
		t.Errorf("expected ErrUnknownVendor, got: %v", err)
	}
	if _, err := o.MergeOffers("zzz", nil); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got: %v", err)
	}
	if o.SelectionLog().Len() != 0 {
		t.Error("failed toggle was logged")
	}
}

func TestOrder_Budget(t *testing.T) {
	o := NewOrder(decimal.NewFromInt(1000))
	o.AddItem(testItem(t, "a", testOffer("cur", "A", "1", true)))

	tests := []struct {
		qty  int
		want BudgetStatus
	}{
		{849, BudgetWithin},
		{850, BudgetNearLimit},
		{1000, BudgetNearLimit},
		{1001, BudgetOver},
	}
	for _, tt := range tests {
		o.SetQuantity("a", tt.qty)
		if got := o.BudgetStatus(); got != tt.want {
			t.Errorf("qty %d: expected %s, got %s", tt.qty, tt.want, got)
		}
	}

	s := o.Summary()
	if !s.RemainingBudget.Equal(decimal.NewFromInt(-1)) {
		t.Errorf("expected remaining -1, got %s", s.RemainingBudget)
	}
}

func TestClassifyBudget(t *testing.T) {
	tests := []struct {
		usage string
		want  BudgetStatus
	}{
		{"0", BudgetWithin},
		{"84.9", BudgetWithin},
		{"85", BudgetNearLimit},
		{"100", BudgetNearLimit},
		{"100.1", BudgetOver},
	}
	for _, tt := range tests {
		if got := ClassifyBudget(decimal.RequireFromString(tt.usage)); got != tt.want {
			t.Errorf("usage %s: expected %s, got %s", tt.usage, tt.want, got)
		}
	}

	if u := BudgetUsagePercent(decimal.NewFromInt(50), decimal.Zero); !u.IsZero() {
		t.Errorf("expected zero usage with no budget, got %s", u)
	}
}

func TestOrder_ToggleRecordsEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := NewOrder(decimal.Zero, WithClock(func() time.Time { return at }), WithIDGenerator(func() string { return "evt-1" }))
	o.AddItem(testItem(t, "a", testOffer("cur", "A", "1", true)))

	evt, err := o.ToggleVendor("a", "cur")
	if err != nil {
		t.Fatalf("ToggleVendor failed: %v", err)
	}
	if evt.ID != "evt-1" || evt.Action != ActionDeselect || !evt.Timestamp.Equal(at) {
		t.Errorf("unexpected event: %+v", evt)
	}
	if o.SelectionLog().Len() != 1 {
		t.Errorf("expected 1 logged event, got %d", o.SelectionLog().Len())
	}
}

func TestOrder_CloneIsDeep(t *testing.T) {
	o := NewOrder(decimal.Zero)
	o.AddItem(testItem(t, "a", testOffer("cur", "A", "1", true)))

	c := o.Clone()
	c.SetQuantity("a", 9)
	c.RemoveItem("a")

	line, ok := o.Item("a")
	if !ok || line.Quantity() != 1 {
		t.Error("clone mutation leaked into original")
	}
}
