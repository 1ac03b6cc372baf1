package doctree

import (
	"encoding/json"
	"testing"
)

func TestKindOf_RoundTrip(t *testing.T) {
	for k, name := range kindNames {
		if got := KindOf(name); got != k {
			t.Errorf("KindOf(%q) = %v, want %v", name, got, k)
		}
		if got := k.String(); got != name {
			t.Errorf("%v.String() = %q, want %q", k, got, name)
		}
	}
	if KindOf("mention") != KindUnknown {
		t.Error("unrecognized names should map to KindUnknown")
	}
}

func TestDecode_EditorDocument(t *testing.T) {
	data := []byte(`{"type":"doc","content":[
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Setup"}]},
		{"type":"codeBlock","attrs":{"language":"go"},"content":[{"type":"text","text":"x := 1"}]},
		{"type":"orderedList","attrs":{"start":3},"content":[{"type":"listItem","content":[]}]},
		{"type":"paragraph","content":[
			{"type":"text","text":"see ","marks":[{"type":"italic"}]},
			{"type":"text","text":"docs","marks":[{"type":"link","attrs":{"href":"/d"}},{"type":"highlight"}]}
		]},
		{"type":"callout","content":[{"type":"text","text":"note"}]}
	]}`)

	root, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if root.Kind != KindDoc || len(root.Children) != 5 {
		t.Fatalf("unexpected root: kind=%v children=%d", root.Kind, len(root.Children))
	}
	if h := root.Children[0]; h.Kind != KindHeading || h.Level != 2 {
		t.Errorf("heading: %+v", h)
	}
	if c := root.Children[1]; c.Kind != KindCodeBlock || c.Language != "go" {
		t.Errorf("code block: %+v", c)
	}
	if l := root.Children[2]; l.Kind != KindOrderedList || l.Start != 3 {
		t.Errorf("ordered list: %+v", l)
	}

	runs := root.Children[3].Children
	if !runs[0].HasMark(MarkItalic) {
		t.Error("expected italic mark")
	}
	if m := runs[1].Marks[0]; m.Kind != MarkLink || m.Href != "/d" {
		t.Errorf("link mark: %+v", m)
	}
	if m := runs[1].Marks[1]; m.Kind != MarkUnknown || m.Type != "highlight" {
		t.Errorf("unknown mark should keep its type: %+v", m)
	}

	if u := root.Children[4]; u.Kind != KindUnknown || u.TypeName() != "callout" {
		t.Errorf("unknown node should keep its type: %+v", u)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte(`{"type":`)); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}

func TestMarshal_KeepsTypeNamesAndAttrs(t *testing.T) {
	n := Doc(
		HeadingNode(3, TextRun("Title")),
		CodeBlock("sh", "ls"),
		Paragraph(TextRun("x", Bold(), Link("/y"))),
		&Node{Type: "callout"},
	)
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Children[0].Level != 3 || back.Children[1].Language != "sh" {
		t.Errorf("attrs lost: %s", data)
	}
	run := back.Children[2].Children[0]
	if !run.HasMark(MarkBold) || run.Marks[1].Href != "/y" {
		t.Errorf("marks lost: %s", data)
	}
	if back.Children[3].TypeName() != "callout" {
		t.Errorf("unknown type lost: %s", data)
	}
}

func TestWalk_SkipsChildren(t *testing.T) {
	root := Doc(
		Blockquote(Paragraph(TextRun("inside"))),
		Paragraph(TextRun("outside")),
	)
	var seen []string
	Walk(root, func(n *Node) bool {
		if n.Kind == KindText {
			seen = append(seen, n.Text)
		}
		return n.Kind != KindBlockquote
	})
	if len(seen) != 1 || seen[0] != "outside" {
		t.Errorf("expected only outside text, got %v", seen)
	}
	Walk(nil, func(*Node) bool { t.Fatal("visited nil"); return true })
}

func TestPlainText(t *testing.T) {
	p := Paragraph(TextRun("a", Bold()), HardBreak(), TextRun("b"))
	if got := PlainText(p); got != "a b" {
		t.Errorf("PlainText = %q, want %q", got, "a b")
	}
}
