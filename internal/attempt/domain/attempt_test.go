package domain

import "testing"

func TestKind_Valid(t *testing.T) {
	for _, k := range []Kind{KindLogin, KindVerification} {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	if Kind("register").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestPhone(t *testing.T) {
	if Phone("") != nil {
		t.Error("empty phone should be nil")
	}
	if p := Phone("09123456789"); p == nil || *p != "09123456789" {
		t.Errorf("Phone = %v", p)
	}
}
