//go:build !no_automation

package automation

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"matter-go-home/internal/controller/controllertest"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "scripts")
	m, err := NewManager(dir, controllertest.Logger())
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestManagerListEmpty(t *testing.T) {
	m := newTestManager(t)
	scripts, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(scripts) != 0 {
		t.Errorf("list count = %d, want 0", len(scripts))
	}
}

func TestManagerSaveAndGet(t *testing.T) {
	m := newTestManager(t)

	saved, err := m.Save(&Script{
		Meta: ScriptMeta{
			Name:        "Test Script",
			Description: "A test",
			Enabled:     true,
		},
		LuaCode: `matter.log("hello")`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != "test_script" {
		t.Errorf("id = %q, want test_script", saved.ID)
	}

	got, err := m.Get(saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Meta.Name != "Test Script" {
		t.Errorf("name = %q, want Test Script", got.Meta.Name)
	}
	if got.Meta.Description != "A test" {
		t.Errorf("description = %q, want A test", got.Meta.Description)
	}
	if !got.Meta.Enabled {
		t.Error("enabled = false, want true")
	}
	if got.LuaCode != "matter.log(\"hello\")\n" {
		t.Errorf("lua_code = %q", got.LuaCode)
	}
}

func TestManagerSaveExistingID(t *testing.T) {
	m := newTestManager(t)

	saved, err := m.Save(&Script{
		ID:      "my_script",
		Meta:    ScriptMeta{Name: "My Script", Enabled: true},
		LuaCode: `matter.log("v1")`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID != "my_script" {
		t.Errorf("id = %q, want my_script", saved.ID)
	}

	saved.LuaCode = `matter.log("v2")`
	if _, err := m.Save(saved); err != nil {
		t.Fatal(err)
	}

	got, err := m.Get("my_script")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got.LuaCode, `matter.log("v2")`) {
		t.Errorf("lua_code after update = %q", got.LuaCode)
	}
}

func TestManagerSaveRejectsSyntaxError(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Save(&Script{
		Meta:    ScriptMeta{Name: "Broken"},
		LuaCode: `matter.on(function(ev)`,
	})
	if err == nil || !strings.Contains(err.Error(), "lua syntax") {
		t.Fatalf("err = %v, want lua syntax error", err)
	}
	if _, err := os.Stat(filepath.Join(m.Dir(), "broken.lua")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("broken script was written: %v", err)
	}
}

func TestManagerList(t *testing.T) {
	m := newTestManager(t)

	for _, name := range []string{"Gamma", "Alpha", "Beta"} {
		_, err := m.Save(&Script{
			Meta:    ScriptMeta{Name: name, Enabled: true},
			LuaCode: `matter.log("` + name + `")`,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	// Not a script.
	if err := os.WriteFile(filepath.Join(m.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	scripts, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, s := range scripts {
		ids = append(ids, s.ID)
	}
	if got := strings.Join(ids, ","); got != "alpha,beta,gamma" {
		t.Errorf("ids = %s, want alpha,beta,gamma", got)
	}
}

func TestManagerDelete(t *testing.T) {
	m := newTestManager(t)

	saved, err := m.Save(&Script{
		Meta:    ScriptMeta{Name: "ToDelete", Enabled: true},
		LuaCode: `matter.log("bye")`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Delete(saved.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(saved.ID); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("Get after delete err = %v, want ErrScriptNotFound", err)
	}
	if err := m.Delete(saved.ID); !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("second Delete err = %v, want ErrScriptNotFound", err)
	}
}

func TestManagerInvalidID(t *testing.T) {
	m := newTestManager(t)

	for _, id := range []string{"..", "a/b", `a\b`, "x..y"} {
		if _, err := m.Get(id); !errors.Is(err, ErrInvalidScriptID) {
			t.Errorf("Get(%q) err = %v, want ErrInvalidScriptID", id, err)
		}
		if err := m.Delete(id); !errors.Is(err, ErrInvalidScriptID) {
			t.Errorf("Delete(%q) err = %v, want ErrInvalidScriptID", id, err)
		}
	}
	if _, err := m.Save(&Script{ID: "../escape", LuaCode: "x = 1"}); !errors.Is(err, ErrInvalidScriptID) {
		t.Errorf("Save err = %v, want ErrInvalidScriptID", err)
	}
}

func TestManagerUniqueID(t *testing.T) {
	m := newTestManager(t)

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := m.Save(&Script{
			Meta:    ScriptMeta{Name: "Dup", Enabled: true},
			LuaCode: `matter.log("dup")`,
		})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, s.ID)
	}
	if got := strings.Join(ids, ","); got != "dup,dup_1,dup_2" {
		t.Errorf("ids = %s, want dup,dup_1,dup_2", got)
	}
}

func TestParseScriptFile(t *testing.T) {
	dir := t.TempDir()
	content := `-- {"name":"Hall Light","description":"Light on when the door opens","enabled":true}

matter.on('Cluster == "BooleanState" && Fields.stateValue == false', function(ev)
    matter.write(ev.node, 1, "OnOff", "OnTime", 300)
end)
`
	path := filepath.Join(dir, "hall.lua")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &Manager{dir: dir, logger: controllertest.Logger()}
	s, err := m.parseFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if s.ID != "hall" {
		t.Errorf("id = %q, want hall", s.ID)
	}
	if s.Meta.Name != "Hall Light" {
		t.Errorf("name = %q, want Hall Light", s.Meta.Name)
	}
	if !s.Meta.Enabled {
		t.Error("enabled = false, want true")
	}
	if !strings.HasPrefix(s.LuaCode, "matter.on(") {
		t.Errorf("lua_code = %q, want to start with matter.on(", s.LuaCode)
	}
}

func TestParseScriptFileWithoutHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bare.lua")
	if err := os.WriteFile(path, []byte("matter.log(\"x\")\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := &Manager{dir: dir, logger: controllertest.Logger()}
	s, err := m.parseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Meta.Name != "bare" || s.Meta.Enabled {
		t.Errorf("meta = %+v, want name bare, disabled", s.Meta)
	}
	if s.LuaCode != "matter.log(\"x\")\n" {
		t.Errorf("lua_code = %q", s.LuaCode)
	}
}

func TestSerializeScript(t *testing.T) {
	content := serializeScript(&Script{
		ID:      "test",
		Meta:    ScriptMeta{Name: "Test", Description: "desc", Enabled: true},
		LuaCode: `matter.log("hi")`,
	})

	want := "-- {\"name\":\"Test\",\"description\":\"desc\",\"enabled\":true}\n\nmatter.log(\"hi\")\n"
	if content != want {
		t.Errorf("serializeScript = %q, want %q", content, want)
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Bathroom Light", "bathroom_light"},
		{"hello world!", "hello_world"},
		{"", ""},
		{"  spaces  ", "spaces"},
		{"UPPER", "upper"},
		{strings.Repeat("abc ", 15), strings.Repeat("abc_", 9) + "abc"},
	}
	for _, tt := range tests {
		if got := slugify(tt.input); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
