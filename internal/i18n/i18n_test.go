package i18n

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewTranslations(t *testing.T) {
	t.Run("Should load embedded catalogs without a directory", func(t *testing.T) {
		trans, err := NewTranslations("en", "")
		if err != nil {
			t.Fatalf("NewTranslations() returned error: %v", err)
		}

		if got := trans.GetMessage("cancelled", 0, nil); got != "Cancelled" {
			t.Errorf("GetMessage() = %q, want %q", got, "Cancelled")
		}
	})

	t.Run("Should fail with empty language", func(t *testing.T) {
		trans, err := NewTranslations("", t.TempDir())

		if err == nil {
			t.Error("NewTranslations() should fail with an empty language")
		}
		if trans != nil {
			t.Error("NewTranslations() should return nil when it fails")
		}
	})

	t.Run("Should accept an empty directory", func(t *testing.T) {
		trans, err := NewTranslations("zh", t.TempDir())
		if err != nil {
			t.Fatalf("NewTranslations() returned error: %v", err)
		}

		if got := trans.GetMessage("cancelled", 0, nil); got != "已取消" {
			t.Errorf("GetMessage() = %q, want %q", got, "已取消")
		}
	})

	t.Run("Should let directory files override embedded messages", func(t *testing.T) {
		dir := t.TempDir()
		createTestFile(t, dir, "active.en.toml", `cancelled = "Aborted"`)

		trans, err := NewTranslations("en", dir)
		if err != nil {
			t.Fatalf("NewTranslations() returned error: %v", err)
		}

		if got := trans.GetMessage("cancelled", 0, nil); got != "Aborted" {
			t.Errorf("GetMessage() = %q, want %q", got, "Aborted")
		}
	})

	t.Run("Should fail with invalid TOML", func(t *testing.T) {
		dir := t.TempDir()
		createTestFile(t, dir, "active.es.toml", `
		[InvalidSection
		this is not valid TOML`)

		trans, err := NewTranslations("es", dir)

		if err == nil {
			t.Fatal("NewTranslations() should fail with invalid TOML")
		}
		if trans != nil {
			t.Error("NewTranslations() should return nil when it fails")
		}
		if !strings.HasPrefix(err.Error(), "error loading locale file") {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestEmbeddedCatalogsMatch(t *testing.T) {
	en, err := NewTranslations("en", "")
	if err != nil {
		t.Fatal(err)
	}
	zh, err := NewTranslations("zh", "")
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{
		"app_usage", "run.command_usage", "run.goodbye", "config.init_done",
		"doctor.all_good", "tracker.work_items_count", "wiki.pages_count", "completion.install_usage",
	} {
		data := map[string]interface{}{"Count": 2, "Path": "p", "Type": "Feature", "Space": "BR"}
		if got := en.GetMessage(id, 2, data); strings.HasPrefix(got, "Translation missing") {
			t.Errorf("en is missing %s", id)
		}
		if got := zh.GetMessage(id, 2, data); strings.HasPrefix(got, "Translation missing") {
			t.Errorf("zh is missing %s", id)
		}
	}
}

func TestSetLanguage(t *testing.T) {
	t.Run("Should change to a valid language", func(t *testing.T) {
		trans, err := NewTranslations("en", "")
		if err != nil {
			t.Fatal(err)
		}

		if err := trans.SetLanguage("zh"); err != nil {
			t.Errorf("SetLanguage() returned error: %v", err)
		}
		if got := trans.GetMessage("doctor.summary", 0, nil); got != "总结" {
			t.Errorf("GetMessage() = %q, want %q", got, "总结")
		}
	})

	t.Run("Should fail with unsupported language", func(t *testing.T) {
		trans, err := NewTranslations("en", "")
		if err != nil {
			t.Fatal(err)
		}

		if err := trans.SetLanguage("fr"); err == nil {
			t.Error("SetLanguage() should fail with an unsupported language")
		}
	})
}

func TestGetMessage(t *testing.T) {
	dir := t.TempDir()
	createTestFile(t, dir, "active.es.toml", `
		[Welcome]
		one = "Bienvenido"
		other = "Bienvenidos"

		[HelloName]
		other = "¡Hola {{.Name}}!"`)

	trans, err := NewTranslations("es", dir)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		id    string
		count int
		data  map[string]interface{}
		want  string
	}{
		{name: "singular", id: "Welcome", count: 1, want: "Bienvenido"},
		{name: "plural", id: "Welcome", count: 2, want: "Bienvenidos"},
		{name: "template", id: "HelloName", data: map[string]interface{}{"Name": "Juan"}, want: "¡Hola Juan!"},
		{name: "missing", id: "NonExistent", count: 1, want: "Translation missing: NonExistent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trans.GetMessage(tt.id, tt.count, tt.data); got != tt.want {
				t.Errorf("GetMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func createTestFile(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644); err != nil {
		t.Fatal("could not create test file:", err)
	}
}
