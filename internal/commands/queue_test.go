package commands

import (
	"strings"
	"testing"
)

func TestEnqueue_PluginCommand(t *testing.T) {
	var q Queue
	q.Enqueue("plugin.archive_done", map[string]any{"count": 2}, "ignored")
	q.Enqueue("display_message", "Saved", "confirmation", 0)

	cmds := q.Commands()
	if len(cmds) != 2 {
		t.Fatalf("Commands() returned %d calls, want 2", len(cmds))
	}
	if cmds[0].Method != "triggerEvent" || cmds[0].Args[0] != "plugin.archive_done" || len(cmds[0].Args) != 2 {
		t.Errorf("plugin call = %+v, want triggerEvent with name and first argument", cmds[0])
	}
	if cmds[1].Method != "display_message" || len(cmds[1].Args) != 3 {
		t.Errorf("second call = %+v", cmds[1])
	}
}

func TestSerialize_Order(t *testing.T) {
	var q Queue
	q.Enqueue("set_busy", false)
	q.Enqueue("parent.reload")

	code, framed, err := q.Serialize(Options{
		Env:    map[string]any{"task": "mail"},
		Labels: map[string]string{"loading": "Loading..."},
		Unlock: "abc-123",
	})
	if err != nil {
		t.Fatalf("Serialize() failed: %v", err)
	}
	if framed {
		t.Error("Serialize() reported framed for a top-level page")
	}

	want := []string{
		`rcmail.set_env({"task":"mail"});`,
		`rcmail.add_label({"loading":"Loading..."});`,
		`rcmail.hide_message("abc123");`,
		`rcmail.set_busy(false);`,
		ParentPrefix + `rcmail.reload();`,
	}
	lines := strings.Split(strings.TrimSuffix(code, "\n"), "\n")
	if len(lines) != len(want) {
		t.Fatalf("Serialize() = %q, want %d lines", code, len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSerialize_Framed(t *testing.T) {
	var q Queue
	q.Enqueue("set_unread_count", "INBOX", 3)

	code, framed, err := q.Serialize(Options{
		Framed: true,
		Env:    map[string]any{"task": "mail"},
		Unlock: "42",
	})
	if err != nil {
		t.Fatalf("Serialize() failed: %v", err)
	}
	if !framed {
		t.Fatal("Serialize() should report framed when every call goes to the parent")
	}
	want := "if (window.parent && parent.rcmail) {\n" +
		"\tparent.rcmail.iframe_loaded(\"42\");\n" +
		"\tparent.rcmail.set_unread_count(\"INBOX\",3);\n" +
		"}\n"
	if code != want {
		t.Errorf("Serialize() = %q, want %q", code, want)
	}
	if strings.Contains(code, "set_env") {
		t.Error("framed output must not contain set_env")
	}
}

func TestSerialize_AllParentCalls(t *testing.T) {
	var q Queue
	q.Enqueue("parent.show_contentframe", true)

	code, framed, err := q.Serialize(Options{})
	if err != nil {
		t.Fatalf("Serialize() failed: %v", err)
	}
	if !framed || !strings.HasPrefix(code, "if (window.parent && parent.rcmail) {\n") {
		t.Errorf("Serialize() = %q, %v; want a wrapped framed block", code, framed)
	}
}

func TestSerialize_Empty(t *testing.T) {
	var q Queue
	code, framed, err := q.Serialize(Options{})
	if err != nil || code != "" || framed {
		t.Errorf("Serialize() of empty queue = %q, %v, %v", code, framed, err)
	}
}

func TestJSON_InlineSafe(t *testing.T) {
	got, err := JSON("</script><b>'x'&", false)
	if err != nil {
		t.Fatalf("JSON() failed: %v", err)
	}
	for _, bad := range []string{"</script>", "<b>", "'", "&"} {
		if strings.Contains(got, bad) {
			t.Errorf("JSON() = %s still contains %q", got, bad)
		}
	}
	if _, err := JSON(func() {}, false); err == nil {
		t.Error("JSON() of a func should fail")
	}
}
