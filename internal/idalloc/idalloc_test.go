package idalloc

import "testing"

func TestAllocatorClaimReleaseOrder(t *testing.T) {
	a := New()

	first := a.Claim()
	if want, got := uint32(0), first; want != got {
		t.Fatalf("unexpected first claim:\n- want: %d\n-  got: %d", want, got)
	}

	second := a.Claim()
	if want, got := uint32(1), second; want != got {
		t.Fatalf("unexpected second claim:\n- want: %d\n-  got: %d", want, got)
	}

	a.Release(first)

	third := a.Claim()
	if want, got := uint32(0), third; want != got {
		t.Fatalf("expected released id to be reclaimed first:\n- want: %d\n-  got: %d", want, got)
	}
}

func TestAllocatorExpandsOnExhaustion(t *testing.T) {
	a := New()

	var claimed []uint32
	for i := 0; i < 5; i++ {
		claimed = append(claimed, a.Claim())
	}

	want := []uint32{0, 1, 2, 3, 4}
	for i, id := range claimed {
		if want[i] != id {
			t.Fatalf("unexpected claim sequence:\n- want: %v\n-  got: %v", want, claimed)
		}
	}
}

func TestAllocatorZeroValue(t *testing.T) {
	var a Allocator

	if want, got := uint32(0), a.Claim(); want != got {
		t.Fatalf("unexpected claim from zero value:\n- want: %d\n-  got: %d", want, got)
	}
}
