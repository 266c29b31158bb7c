package redisadapter

import "testing"

func TestKeyScopeWithInstanceID(t *testing.T) {
	a := &Adapter{cfg: Config{TraderID: "T-001", InstanceID: "i-1"}}
	if got, want := a.scope(), "trader-T-001:i-1"; got != want {
		t.Errorf("scope() = %q, want %q", got, want)
	}
	if got, want := a.key("orders", "O-1"), "trader-T-001:i-1:orders:O-1"; got != want {
		t.Errorf("key() = %q, want %q", got, want)
	}
}

func TestKeyScopeWithoutInstanceID(t *testing.T) {
	a := &Adapter{cfg: Config{TraderID: "T-001"}}
	if got, want := a.scope(), "trader-T-001"; got != want {
		t.Errorf("scope() = %q, want %q", got, want)
	}
}

func TestIndexKey(t *testing.T) {
	a := &Adapter{cfg: Config{TraderID: "T-001"}}
	if got, want := a.indexKey("orders"), "index:trader-T-001:orders"; got != want {
		t.Errorf("indexKey() = %q, want %q", got, want)
	}
}
