package notify

import (
	"testing"
	"time"

	"github.com/justyntemme/kolnovel-t/internal/reader"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCenter() (*Center, *clock) {
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewCenter(2*time.Second, nil)
	c.now = clk.now
	return c, clk
}

func TestNotifyAndExpire(t *testing.T) {
	c, clk := newTestCenter()

	var delivered []Toast
	c.OnNotify(func(t Toast) { delivered = append(delivered, t) })

	c.Notify("Chapter 12", reader.SeveritySuccess)
	clk.t = clk.t.Add(time.Second)
	c.Notify("No more chapters to read", reader.SeverityInfo)

	if len(delivered) != 2 {
		t.Fatalf("delivered %d toasts, want 2", len(delivered))
	}
	if delivered[0].ID == "" || delivered[0].ID == delivered[1].ID {
		t.Fatalf("toast ids should be unique: %q %q", delivered[0].ID, delivered[1].ID)
	}

	latest, ok := c.Latest()
	if !ok || latest.Message != "No more chapters to read" {
		t.Fatalf("latest = %+v", latest)
	}

	clk.t = clk.t.Add(1500 * time.Millisecond)
	active := c.Active()
	if len(active) != 1 || active[0].Severity != reader.SeverityInfo {
		t.Fatalf("active = %+v", active)
	}

	if removed := c.Prune(); removed != 1 {
		t.Fatalf("pruned %d, want 1", removed)
	}
	clk.t = clk.t.Add(time.Hour)
	if _, ok := c.Latest(); ok {
		t.Fatal("all toasts should have expired")
	}
}

func TestDismiss(t *testing.T) {
	c, _ := newTestCenter()
	c.Notify("Error loading chapter 4", reader.SeverityError)

	toast, _ := c.Latest()
	if !c.Dismiss(toast.ID) {
		t.Fatal("Dismiss returned false")
	}
	if c.Dismiss(toast.ID) {
		t.Fatal("second Dismiss should return false")
	}
	if len(c.Active()) != 0 {
		t.Fatal("toast still active after Dismiss")
	}
}

func TestDefaultTTL(t *testing.T) {
	c := NewCenter(0, nil)
	if c.ttl != DefaultTTL {
		t.Fatalf("ttl = %v, want %v", c.ttl, DefaultTTL)
	}
}
