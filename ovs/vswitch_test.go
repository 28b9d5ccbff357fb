package ovs

import "testing"

func TestVSwitchServiceAddBridge(t *testing.T) {
	c := testClient(nil, func(cmd string, args ...string) ([]byte, error) {
		if want, got := "ovs-vsctl", cmd; want != got {
			t.Fatalf("unexpected command:\n- want: %q\n-  got: %q", want, got)
		}

		wantArgs := []string{"--may-exist", "add-br", "br0"}
		for i := range wantArgs {
			if want, got := wantArgs[i], args[i]; want != got {
				t.Fatalf("unexpected argument %d:\n- want: %q\n-  got: %q", i, want, got)
			}
		}
		return nil, nil
	})

	if err := c.VSwitch.AddBridge("br0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVSwitchServiceDeleteBridge(t *testing.T) {
	c := testClient(nil, func(cmd string, args ...string) ([]byte, error) {
		wantArgs := []string{"--if-exists", "del-br", "br0"}
		for i := range wantArgs {
			if want, got := wantArgs[i], args[i]; want != got {
				t.Fatalf("unexpected argument %d:\n- want: %q\n-  got: %q", i, want, got)
			}
		}
		return nil, nil
	})

	if err := c.VSwitch.DeleteBridge("br0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVSwitchServiceAddPort(t *testing.T) {
	c := testClient(nil, func(cmd string, args ...string) ([]byte, error) {
		wantArgs := []string{"--may-exist", "add-port", "br0", "veth0"}
		for i := range wantArgs {
			if want, got := wantArgs[i], args[i]; want != got {
				t.Fatalf("unexpected argument %d:\n- want: %q\n-  got: %q", i, want, got)
			}
		}
		return nil, nil
	})

	if err := c.VSwitch.AddPort("br0", "veth0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVSwitchServiceDeletePort(t *testing.T) {
	c := testClient(nil, func(cmd string, args ...string) ([]byte, error) {
		wantArgs := []string{"--if-exists", "del-port", "br0", "veth0"}
		for i := range wantArgs {
			if want, got := wantArgs[i], args[i]; want != got {
				t.Fatalf("unexpected argument %d:\n- want: %q\n-  got: %q", i, want, got)
			}
		}
		return nil, nil
	})

	if err := c.VSwitch.DeletePort("br0", "veth0"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVSwitchServiceListPorts(t *testing.T) {
	c := testClient(nil, func(cmd string, args ...string) ([]byte, error) {
		return []byte("veth0\nveth1\n\n"), nil
	})

	ports, err := c.VSwitch.ListPorts("br0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"veth0", "veth1"}
	if len(ports) != len(want) {
		t.Fatalf("unexpected ports:\n- want: %v\n-  got: %v", want, ports)
	}
	for i := range want {
		if want[i] != ports[i] {
			t.Fatalf("unexpected ports:\n- want: %v\n-  got: %v", want, ports)
		}
	}
}

func TestVSwitchServiceGetFailMode(t *testing.T) {
	c := testClient(nil, func(cmd string, args ...string) ([]byte, error) {
		return []byte("secure\n"), nil
	})

	mode, err := c.VSwitch.GetFailMode("br0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := "secure", mode; want != got {
		t.Fatalf("unexpected mode:\n- want: %q\n-  got: %q", want, got)
	}
}

func TestVSwitchServiceSetFailMode(t *testing.T) {
	c := testClient(nil, func(cmd string, args ...string) ([]byte, error) {
		wantArgs := []string{"set-fail-mode", "br0", string(FailModeSecure)}
		for i := range wantArgs {
			if want, got := wantArgs[i], args[i]; want != got {
				t.Fatalf("unexpected argument %d:\n- want: %q\n-  got: %q", i, want, got)
			}
		}
		return nil, nil
	})

	if err := c.VSwitch.SetFailMode("br0", FailModeSecure); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
