package storage

import "testing"

func TestObjectKey(t *testing.T) {
	key, err := ObjectKey("CLT-0001", "c0ffee")
	if err != nil {
		t.Fatal(err)
	}
	if key != "perdecomp/cards/CLT-0001/c0ffee.json" {
		t.Errorf("unexpected key %q", key)
	}

	for _, ids := range [][2]string{{"", "x"}, {"CLT-0001", ""}, {"../x", "y"}} {
		if _, err := ObjectKey(ids[0], ids[1]); err == nil {
			t.Errorf("expected error for %v", ids)
		}
	}
}
