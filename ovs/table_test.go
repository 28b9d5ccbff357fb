package ovs

import (
	"reflect"
	"testing"
)

func TestTableUnmarshalText(t *testing.T) {
	var tests = []struct {
		desc string
		in   string
		t    *Table
		err  error
	}{
		{
			desc: "OK",
			in: `0: classifier: wild=0x3fffff, max=1000000, active=2
                 lookup=10, matched=8`,
			t: &Table{
				ID:      0,
				Name:    "classifier",
				Wild:    "0x3fffff",
				Max:     1000000,
				Active:  2,
				Lookup:  10,
				Matched: 8,
			},
		},
		{
			desc: "missing active",
			in:   `1: table1: wild=0x0, max=100, lookup=1, matched=1`,
			err:  ErrInvalidTable,
		},
		{
			desc: "malformed id",
			in:   `abc: table1: wild=0x0, max=100, active=0, lookup=1, matched=1`,
			err:  ErrInvalidTable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			tb := new(Table)
			err := tb.UnmarshalText([]byte(tt.in))

			if tt.err != nil {
				if err == nil {
					t.Fatal("expected an error, but none occurred")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if want, got := tt.t, tb; !reflect.DeepEqual(want, got) {
				t.Fatalf("unexpected Table:\n- want: %#v\n-  got: %#v", want, got)
			}
		})
	}
}
