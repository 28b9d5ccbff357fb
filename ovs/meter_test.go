package ovs

import "testing"

func TestMeterMarshalText(t *testing.T) {
	var tests = []struct {
		desc string
		m    *Meter
		out  string
		err  error
	}{
		{
			desc: "no bands",
			m:    &Meter{ID: 1},
			err:  errNoMeterBands,
		},
		{
			desc: "single band, no burst",
			m: &Meter{
				ID:    1,
				Bands: []MeterBand{{Rate: 1000}},
			},
			out: "meter=1,type=drop,rate=1000",
		},
		{
			desc: "single band with burst",
			m: &Meter{
				ID:    2,
				Bands: []MeterBand{{Rate: 1000, BurstSize: 100}},
			},
			out: "meter=2,type=drop,rate=1000,burst_size=100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			out, err := tt.m.MarshalText()
			if tt.err != nil {
				if err != tt.err {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if want, got := tt.out, string(out); want != got {
				t.Fatalf("unexpected text:\n- want: %q\n-  got: %q", want, got)
			}
		})
	}
}

func TestMeterServiceAddMeter(t *testing.T) {
	m := &Meter{
		ID:    1,
		Bands: []MeterBand{{Rate: 500}},
	}

	c := testClient(nil, func(cmd string, args ...string) ([]byte, error) {
		if want, got := "ovs-ofctl", cmd; want != got {
			t.Fatalf("unexpected command:\n- want: %q\n-  got: %q", want, got)
		}

		wantArgs := []string{"add-meter", "br0", "meter=1,type=drop,rate=500"}
		if want, got := len(wantArgs), len(args); want != got {
			t.Fatalf("unexpected argument count:\n- want: %v\n-  got: %v", want, got)
		}
		for i := range wantArgs {
			if want, got := wantArgs[i], args[i]; want != got {
				t.Fatalf("unexpected argument %d:\n- want: %q\n-  got: %q", i, want, got)
			}
		}

		return nil, nil
	})

	if err := c.OpenFlow.Meter.AddMeter("br0", m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMeterServiceDelMeters(t *testing.T) {
	c := testClient(nil, func(cmd string, args ...string) ([]byte, error) {
		wantArgs := []string{"del-meters", "br0", "meter=9"}
		if want, got := len(wantArgs), len(args); want != got {
			t.Fatalf("unexpected argument count:\n- want: %v\n-  got: %v", want, got)
		}
		for i := range wantArgs {
			if want, got := wantArgs[i], args[i]; want != got {
				t.Fatalf("unexpected argument %d:\n- want: %q\n-  got: %q", i, want, got)
			}
		}

		return nil, nil
	})

	if err := c.OpenFlow.Meter.DelMeters("br0", 9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
