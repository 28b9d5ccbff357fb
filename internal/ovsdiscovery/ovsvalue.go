package ovsdiscovery

// OVSDB encodes an empty or multi-valued column as a two-element JSON array
// ["set", [values...]], and a singleton scalar column either bare or
// wrapped the same way. ovsString and ovsInt unwrap either shape; neither
// the ovsdb package nor the teacher it's ported from implements a general
// OVSDB value codec, since Select/Cond never needed to decode a result.

func ovsString(v interface{}) (string, bool) {
	v = unwrapSet(v)
	s, ok := v.(string)
	return s, ok
}

func ovsInt(v interface{}) (int, bool) {
	v = unwrapSet(v)
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// unwrapSet reduces an OVSDB ["set", [v]] singleton to v, and an empty set
// to nil. Values that aren't set-wrapped are returned unchanged.
func unwrapSet(v interface{}) interface{} {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 2 {
		return v
	}
	tag, ok := arr[0].(string)
	if !ok || tag != "set" {
		return v
	}

	elems, ok := arr[1].([]interface{})
	if !ok || len(elems) == 0 {
		return nil
	}
	return elems[0]
}
