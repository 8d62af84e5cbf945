package regstore_test

import (
	"errors"
	"testing"

	"winprep/internal/regstore"
)

func TestParseKeyAcceptsLongRootsAndDriveSyntax(t *testing.T) {
	cases := map[string]regstore.Key{
		`HKLM\Software\Policies`:                 {Root: regstore.LocalMachine, Path: `Software\Policies`},
		`HKEY_USERS\S-1-5-21-1-2-3-1001`:         {Root: regstore.Users, Path: `S-1-5-21-1-2-3-1001`},
		`hkcu:\Software\\Example\`:               {Root: regstore.CurrentUser, Path: `Software\Example`},
		`HKEY_CLASSES_ROOT\Directory\Background`: {Root: regstore.ClassesRoot, Path: `Directory\Background`},
		`HKCR\MIME\Database\Content Type\text/html`: {Root: regstore.ClassesRoot, Path: `MIME\Database\Content Type\text/html`},
		`HKU`:                                    {Root: regstore.Users},
	}
	for input, want := range cases {
		got, err := regstore.ParseKey(input)
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseKey(%q) = %+v, want %+v", input, got, want)
		}
	}
	if _, err := regstore.ParseKey(`HKXX\Software`); err == nil {
		t.Fatal("expected unknown root to fail")
	}
}

func TestKeyJoin(t *testing.T) {
	base := regstore.Key{Root: regstore.Users, Path: "WinprepDefaultProfile"}
	got := base.Join(`\Software\Example\`)
	if got.String() != `HKU\WinprepDefaultProfile\Software\Example` {
		t.Fatalf("unexpected join %q", got)
	}
	root := regstore.Key{Root: regstore.Users}
	if root.Join("S-1").String() != `HKU\S-1` {
		t.Fatalf("unexpected root join %q", root.Join("S-1"))
	}
	if base.Join("") != base {
		t.Fatal("joining empty path should return the key unchanged")
	}
}

func TestSplitPathKeepsForwardSlashInKeyNames(t *testing.T) {
	segments := regstore.SplitPath(`Software\Classes\MIME\Database\Content Type\text/html\`)
	if len(segments) != 6 || segments[5] != "text/html" {
		t.Fatalf("unexpected segments %q", segments)
	}
	if got := regstore.CleanPath(` \Software\a/b\\c `); got != `Software\a/b\c` {
		t.Fatalf("unexpected clean path %q", got)
	}
}

func TestParseValueTypeAliases(t *testing.T) {
	cases := map[string]regstore.ValueType{
		"REG_DWORD":     regstore.DWord,
		"DWord":         regstore.DWord,
		"String":        regstore.String,
		"REG_EXPAND_SZ": regstore.ExpandString,
		"ExpandString":  regstore.ExpandString,
		"binary":        regstore.Binary,
		"MultiString":   regstore.MultiString,
		"reg_multi_sz":  regstore.MultiString,
	}
	for input, want := range cases {
		got, err := regstore.ParseValueType(input)
		if err != nil || got != want {
			t.Fatalf("ParseValueType(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := regstore.ParseValueType("qword"); err == nil {
		t.Fatal("expected qword to be rejected")
	}
}

func TestFromAnyConversions(t *testing.T) {
	v, err := regstore.FromAny(regstore.DWord, "0x10")
	if err != nil || v.DWord != 16 {
		t.Fatalf("hex dword: %+v %v", v, err)
	}
	v, err = regstore.FromAny(regstore.DWord, int64(-1))
	if err != nil || v.DWord != 0xffffffff {
		t.Fatalf("negative dword: %+v %v", v, err)
	}
	if _, err := regstore.FromAny(regstore.DWord, int64(1)<<33); err == nil {
		t.Fatal("expected out-of-range dword to fail")
	}
	if _, err := regstore.FromAny(regstore.DWord, 1.5); err == nil {
		t.Fatal("expected fractional dword to fail")
	}
	v, err = regstore.FromAny(regstore.Binary, "de,ad be ef")
	if err != nil || len(v.Bytes) != 4 || v.Bytes[0] != 0xde {
		t.Fatalf("binary from hex: %+v %v", v, err)
	}
	v, err = regstore.FromAny(regstore.Binary, []any{int64(1), int64(255)})
	if err != nil || len(v.Bytes) != 2 || v.Bytes[1] != 0xff {
		t.Fatalf("binary from list: %+v %v", v, err)
	}
	v, err = regstore.FromAny(regstore.MultiString, []any{"a", "b"})
	if err != nil || !v.Equal(regstore.MultiStringValue([]string{"a", "b"})) {
		t.Fatalf("multi string: %+v %v", v, err)
	}
	v, err = regstore.FromAny(regstore.ExpandString, "%SystemRoot%\\System32")
	if err != nil || v.Type != regstore.ExpandString {
		t.Fatalf("expand string: %+v %v", v, err)
	}
}

func TestMemoryStoreIsCaseInsensitive(t *testing.T) {
	store := regstore.NewMemoryStore()
	key := regstore.Key{Root: regstore.LocalMachine, Path: `Software\Example\Nested`}
	if err := store.CreateKey(key); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if err := store.SetValue(key, "Flag", regstore.DWordValue(1)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}

	upper := regstore.Key{Root: regstore.LocalMachine, Path: `SOFTWARE\EXAMPLE\NESTED`}
	got, err := store.GetValue(upper, "FLAG")
	if err != nil {
		t.Fatalf("GetValue: %v", err)
	}
	if !got.Equal(regstore.DWordValue(1)) {
		t.Fatalf("unexpected value %s", got)
	}

	parent, err := store.SubKeys(regstore.Key{Root: regstore.LocalMachine, Path: "software"})
	if err != nil || len(parent) != 1 || parent[0] != "Example" {
		t.Fatalf("expected original casing preserved, got %v %v", parent, err)
	}
}

func TestMemoryStoreMissingKeysAndValues(t *testing.T) {
	store := regstore.NewMemoryStore()
	missing := regstore.Key{Root: regstore.CurrentUser, Path: `Software\Nope`}

	if ok, err := store.KeyExists(missing); err != nil || ok {
		t.Fatalf("KeyExists on missing key = %v, %v", ok, err)
	}
	if _, err := store.GetValue(missing, "x"); !errors.Is(err, regstore.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if err := store.SetValue(missing, "x", regstore.StringValue("y")); !errors.Is(err, regstore.ErrNotExist) {
		t.Fatalf("SetValue without CreateKey should fail with ErrNotExist, got %v", err)
	}
	if err := store.CreateKey(missing); err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if err := store.DeleteValue(missing, "x"); !errors.Is(err, regstore.ErrNotExist) {
		t.Fatalf("DeleteValue on absent name should report ErrNotExist, got %v", err)
	}
	if err := store.SetValue(missing, "x", regstore.Value{}); err == nil {
		t.Fatal("expected untyped value to be rejected")
	}
}

func TestMemoryStoreAttachDetach(t *testing.T) {
	store := regstore.NewMemoryStore()
	users := regstore.Key{Root: regstore.Users}

	hive := regstore.NewHive()
	hive.SetValue(`Control Panel\Desktop`, "WallPaper", regstore.StringValue(`C:\wall.jpg`))

	if err := store.Attach(users, "S-1-5-21-1-2-3-1001", hive); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if err := store.Attach(users, "s-1-5-21-1-2-3-1001", regstore.NewHive()); err == nil {
		t.Fatal("expected duplicate attach to fail")
	}

	mounted := users.Join(`S-1-5-21-1-2-3-1001\Control Panel\Desktop`)
	if err := store.SetValue(mounted, "TileWallpaper", regstore.StringValue("0")); err != nil {
		t.Fatalf("SetValue through mount: %v", err)
	}

	detached, err := store.Detach(users, "S-1-5-21-1-2-3-1001")
	if err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if ok, _ := store.KeyExists(users.Join("S-1-5-21-1-2-3-1001")); ok {
		t.Fatal("expected key to disappear after detach")
	}
	got, err := detached.GetValue(`Control Panel\Desktop`, "TileWallpaper")
	if err != nil || got.Str != "0" {
		t.Fatalf("expected edit to persist in detached hive, got %+v %v", got, err)
	}
	if _, err := store.Detach(users, "S-1-5-21-1-2-3-1001"); !errors.Is(err, regstore.ErrNotExist) {
		t.Fatalf("expected second detach to fail with ErrNotExist, got %v", err)
	}
}

func TestValueCopiesAreIndependent(t *testing.T) {
	store := regstore.NewMemoryStore()
	key := regstore.Key{Root: regstore.LocalMachine, Path: "Software"}
	_ = store.CreateKey(key)
	data := []byte{1, 2, 3}
	_ = store.SetValue(key, "Blob", regstore.BinaryValue(data))
	data[0] = 9
	got, _ := store.GetValue(key, "Blob")
	if got.Bytes[0] != 1 {
		t.Fatal("stored value must not alias caller slice")
	}
}
