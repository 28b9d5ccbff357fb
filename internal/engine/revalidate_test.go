package engine

import (
	"testing"

	"github.com/ovslicer/ovslicer/internal/endpoint"
	"github.com/ovslicer/ovslicer/internal/flowintent"
)

func countInstallFlows(intents []flowintent.Intent) int {
	n := 0
	for _, i := range intents {
		if _, ok := i.(flowintent.InstallFlow); ok {
			n++
		}
	}
	return n
}

func TestRevalidateTwoEndpointSliceInstallsDirectFlows(t *testing.T) {
	ss := NewSwitchState(1, testConfig())
	ss.AttachSwitch([]int{1, 2})

	_, err := ss.CreateSlice([]EndpointRequest{
		{Endpoint: endpoint.New1(1)},
		{Endpoint: endpoint.New1(2)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intents := Revalidate(ss)

	if got := countInstallFlows(intents); got != 2 {
		t.Fatalf("expected 2 direct ingress flows, got %d", got)
	}

	for _, i := range intents {
		f, ok := i.(flowintent.InstallFlow)
		if !ok {
			continue
		}
		if f.Flow.Table != endpoint.TableIngressUntagged {
			t.Fatalf("expected table 0 for a bare-port endpoint, got %d", f.Flow.Table)
		}
		if len(f.Flow.Actions) != 1 {
			t.Fatalf("expected a direct single output action for a two-endpoint slice, got %d actions", len(f.Flow.Actions))
		}
	}
}

func TestRevalidateThreeEndpointSliceInstallsGroups(t *testing.T) {
	ss := NewSwitchState(1, testConfig())
	ss.AttachSwitch([]int{1, 2, 3})

	_, err := ss.CreateSlice([]EndpointRequest{
		{Endpoint: endpoint.New1(1)},
		{Endpoint: endpoint.New1(2)},
		{Endpoint: endpoint.New1(3)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intents := Revalidate(ss)

	var groups, tableTwoFlows int
	for _, i := range intents {
		switch v := i.(type) {
		case flowintent.InstallGroup:
			groups++
			if len(v.Group.Buckets) != 2 {
				t.Fatalf("expected each group to flood to the other 2 endpoints, got %d buckets", len(v.Group.Buckets))
			}
		case flowintent.InstallFlow:
			if v.Flow.Table == endpoint.TableForwarding {
				tableTwoFlows++
			}
		}
	}

	if groups != 3 {
		t.Fatalf("expected one group per endpoint, got %d", groups)
	}
	if tableTwoFlows != 3 {
		t.Fatalf("expected one table-2 lookup rule per endpoint, got %d", tableTwoFlows)
	}
}

func TestRevalidateDisusedEndpointProducesDeletes(t *testing.T) {
	ss := NewSwitchState(1, testConfig())
	ss.AttachSwitch([]int{1, 2})

	_, err := ss.CreateSlice([]EndpointRequest{
		{Endpoint: endpoint.New1(1)},
		{Endpoint: endpoint.New1(2)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Revalidate(ss)

	ss.Disuse([]endpoint.Endpoint{endpoint.New1(1), endpoint.New1(2)})
	intents := Revalidate(ss)

	var deletes int
	for _, i := range intents {
		if _, ok := i.(flowintent.DeleteFlow); ok {
			deletes++
		}
	}
	if deletes == 0 {
		t.Fatal("expected delete intents for the abandoned endpoints")
	}

	if len(ss.Slices()) != 0 {
		t.Fatalf("expected the emptied slice to be garbage collected, found %d remaining", len(ss.Slices()))
	}
}

func TestRevalidateELineGrowingToMultiRewritesEveryEndpoint(t *testing.T) {
	ss := NewSwitchState(1, testConfig())
	ss.AttachSwitch([]int{1, 2, 3})

	if _, err := ss.CreateSlice([]EndpointRequest{
		{Endpoint: endpoint.New1(1)},
		{Endpoint: endpoint.New1(2)},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Revalidate(ss)

	if _, err := ss.CreateSlice([]EndpointRequest{
		{Endpoint: endpoint.New1(1)},
		{Endpoint: endpoint.New1(2)},
		{Endpoint: endpoint.New1(3)},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	intents := Revalidate(ss)

	var deletes, groups, controllerRules int
	for _, i := range intents {
		switch v := i.(type) {
		case flowintent.DeleteFlow:
			deletes++
		case flowintent.InstallGroup:
			groups++
		case flowintent.InstallFlow:
			if v.Flow.Table == endpoint.TableIngressUntagged && v.Flow.Priority == endpoint.PriorityIngress {
				controllerRules++
			}
		}
	}

	if deletes != 2 {
		t.Fatalf("expected the 2 stale E-Line rules to be deleted, got %d", deletes)
	}
	if groups != 3 {
		t.Fatalf("expected a group allocated for each of the 3 endpoints, got %d", groups)
	}
	if controllerRules != 3 {
		t.Fatalf("expected a controller-directed rule for every endpoint, including the pre-existing ones, got %d", controllerRules)
	}
}

func TestRevalidateConflictingTaggedEndpointShrinksMultiToELine(t *testing.T) {
	ss := NewSwitchState(1, testConfig())
	ss.AttachSwitch([]int{1, 2, 3, 4})

	if _, err := ss.CreateSlice([]EndpointRequest{
		{Endpoint: endpoint.New1(1)},
		{Endpoint: endpoint.New1(2)},
		{Endpoint: endpoint.New1(3)},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Revalidate(ss)

	// A tagged endpoint on port 3 conflicts with the bare-port endpoint
	// already there, evicting it and shrinking the first slice to 2.
	if _, err := ss.CreateSlice([]EndpointRequest{
		{Endpoint: endpoint.New2(3, 100)},
		{Endpoint: endpoint.New2(4, 100)},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	intents := Revalidate(ss)

	var deleteGroups int
	var sawFirstTagRule bool
	for _, i := range intents {
		switch v := i.(type) {
		case flowintent.DeleteGroup:
			deleteGroups++
		case flowintent.InstallFlow:
			if v.Flow.Table == endpoint.TableIngressUntagged {
				for _, a := range v.Flow.Actions {
					if text, err := a.MarshalText(); err == nil && string(text) == "pop_vlan" {
						sawFirstTagRule = true
					}
				}
			}
		}
	}

	if deleteGroups != 3 {
		t.Fatalf("expected all 3 of the shrinking slice's groups to be released, got %d", deleteGroups)
	}
	if !sawFirstTagRule {
		t.Fatal("expected a first-tag rule installed in table 0 for the new tagged endpoints")
	}

	orig, ok := ss.SliceFor(endpoint.New1(1))
	if !ok {
		t.Fatal("expected port 1 to still belong to a slice")
	}
	if len(orig.Groups) != 0 {
		t.Fatalf("expected the shrunk slice to hold no groups, found %d", len(orig.Groups))
	}
}

func TestRevalidatePortRemovedShrinksELineToSingleEndpoint(t *testing.T) {
	ss := NewSwitchState(1, testConfig())
	ss.AttachSwitch([]int{2, 3})

	if _, err := ss.CreateSlice([]EndpointRequest{
		{Endpoint: endpoint.New1(2)},
		{Endpoint: endpoint.New1(3)},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Revalidate(ss)

	ss.PortRemoved(2)
	intents := Revalidate(ss)

	var deletes, installs int
	for _, i := range intents {
		switch i.(type) {
		case flowintent.DeleteFlow:
			deletes++
		case flowintent.InstallFlow:
			installs++
		}
	}

	if deletes != 2 {
		t.Fatalf("expected both E-Line rules to be removed, got %d", deletes)
	}
	if installs != 0 {
		t.Fatalf("expected no rule installed for the single remaining endpoint, got %d", installs)
	}
}

func TestRevalidateUnsanitizedEndpointIsHeldBack(t *testing.T) {
	ss := NewSwitchState(1, testConfig())
	ss.AttachSwitch([]int{1})

	_, err := ss.CreateSlice([]EndpointRequest{
		{Endpoint: endpoint.New1(1)},
		{Endpoint: endpoint.New1(99)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	intents := Revalidate(ss)

	if got := countInstallFlows(intents); got != 0 {
		t.Fatalf("expected no flows installed while only one endpoint is sanitized, got %d", got)
	}
}
