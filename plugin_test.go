package probe

import (
	"errors"
	"testing"
)

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewPluginRegistry()
	if err := r.Register(NewRecordingPlugin("a")); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	err := r.Register(NewRecordingPlugin("a"))
	if !errors.Is(err, ErrPluginExists) {
		t.Errorf("duplicate register got:%v, expected ErrPluginExists", err)
	}
	if r.Len() != 1 {
		t.Errorf("len got:%d, expected:1", r.Len())
	}
}

func TestRegistryUnregisterUnknownIsSilent(t *testing.T) {
	r := NewPluginRegistry()
	r.Unregister("ghost")
	if r.Len() != 0 {
		t.Errorf("len got:%d, expected:0", r.Len())
	}
}

func TestRegistryOrderPreserved(t *testing.T) {
	r := NewPluginRegistry()
	for _, name := range []string{"c", "a", "b"} {
		if err := r.Register(NewRecordingPlugin(name)); err != nil {
			t.Fatalf("register %s failed: %v", name, err)
		}
	}
	names := r.Names()
	want := []string{"c", "a", "b"}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("names[%d] got:%s, expected:%s", i, names[i], n)
		}
	}
	r.Unregister("a")
	names = r.Names()
	if len(names) != 2 || names[0] != "c" || names[1] != "b" {
		t.Errorf("names after unregister got:%v, expected:[c b]", names)
	}

	all := r.All()
	if len(all) != 2 || all[0].Name() != "c" || all[1].Name() != "b" {
		t.Errorf("all order got:%v", all)
	}
}

func TestRegistryGetAndHas(t *testing.T) {
	r := NewPluginRegistry()
	p := NewRecordingPlugin("a")
	r.Register(p)
	if got := r.Get("a"); got != Plugin(p) {
		t.Errorf("get got:%v, expected the registered plugin", got)
	}
	if r.Get("ghost") != nil {
		t.Error("get of unknown name not nil")
	}
	if !r.Has("a") || r.Has("ghost") {
		t.Error("has reports wrong membership")
	}
}

func TestPluginAs(t *testing.T) {
	k := TestKernel(WithLogger(quietLogger()))
	defer k.Destroy()
	p := NewRecordingPlugin("rec")
	if err := k.Register(p); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	typed, err := PluginAs[*RecordingPlugin](k, "rec")
	if err != nil {
		t.Fatalf("pluginAs failed: %v", err)
	}
	if typed != p {
		t.Error("pluginAs returned a different instance")
	}

	if _, err := PluginAs[*RecordingPlugin](k, "ghost"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("unknown name got:%v, expected ErrPluginNotFound", err)
	}
	if _, err := PluginAs[*PanickingPlugin](k, "rec"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("wrong type got:%v, expected ErrTypeMismatch", err)
	}
}
