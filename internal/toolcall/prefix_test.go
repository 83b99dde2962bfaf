package toolcall

import "testing"

func TestParsePrefixDefaultsToServer(t *testing.T) {
	rp, err := ParsePrefix("notes/todo.md")
	if err != nil {
		t.Fatalf("ParsePrefix: %v", err)
	}
	if rp.Target != TargetServer || rp.Path != "notes/todo.md" {
		t.Fatalf("ParsePrefix: expected server:notes/todo.md, got %+v", rp)
	}
}

func TestParsePrefixExplicitClient(t *testing.T) {
	rp, err := ParsePrefix("client:src/app.tsx")
	if err != nil {
		t.Fatalf("ParsePrefix: %v", err)
	}
	if rp.Target != TargetClient || rp.Path != "src/app.tsx" {
		t.Fatalf("ParsePrefix: expected client:src/app.tsx, got %+v", rp)
	}
}

func TestParsePrefixEditorWithNestedServerSource(t *testing.T) {
	rp, err := ParsePrefix("editor:server:main.go")
	if err != nil {
		t.Fatalf("ParsePrefix: %v", err)
	}
	if rp.Target != TargetEditor || rp.EditorSource != TargetServer || rp.Path != "main.go" {
		t.Fatalf("ParsePrefix: expected editor/server:main.go, got %+v", rp)
	}
}

func TestParsePrefixEditorWithNestedClientSource(t *testing.T) {
	rp, err := ParsePrefix("editor:client:App.tsx")
	if err != nil {
		t.Fatalf("ParsePrefix: %v", err)
	}
	if rp.Target != TargetEditor || rp.EditorSource != TargetClient || rp.Path != "App.tsx" {
		t.Fatalf("ParsePrefix: expected editor/client:App.tsx, got %+v", rp)
	}
}

func TestParsePrefixEditorWithoutNestedSource(t *testing.T) {
	rp, err := ParsePrefix("editor:scratch.txt")
	if err != nil {
		t.Fatalf("ParsePrefix: %v", err)
	}
	if rp.Target != TargetEditor || rp.EditorSource != "" || rp.Path != "scratch.txt" {
		t.Fatalf("ParsePrefix: expected bare editor:scratch.txt, got %+v", rp)
	}
}

func TestParsePrefixRejectsEmptyTail(t *testing.T) {
	for _, raw := range []string{"server:", "client:", "editor:", "editor:server:", "editor:client:", ""} {
		if _, err := ParsePrefix(raw); err == nil {
			t.Fatalf("ParsePrefix(%q): expected a validation error", raw)
		}
	}
}

func TestSanitizeServerPathStripsTraversal(t *testing.T) {
	got := SanitizeServerPath("../../etc/passwd")
	if got != "etc/passwd" {
		t.Fatalf("SanitizeServerPath: expected %q, got %q", "etc/passwd", got)
	}
}

func TestSanitizeServerPathStripsLeadingSlashAndDot(t *testing.T) {
	got := SanitizeServerPath("/./a/./b")
	if got != "a/b" {
		t.Fatalf("SanitizeServerPath: expected %q, got %q", "a/b", got)
	}
}

func TestSanitizeServerPathLeavesCleanPathUnchanged(t *testing.T) {
	got := SanitizeServerPath("src/main.go")
	if got != "src/main.go" {
		t.Fatalf("SanitizeServerPath: expected unchanged path, got %q", got)
	}
}
