package docdisk

import "fmt"

// Draft is the local, uncommitted state of the editor. Edits never touch
// the document cache; only Save sends them to the backend.
//
// The selection is measured in runes. An empty selection is a cursor.
type Draft struct {
	Title   string
	Content string

	selStart int
	selEnd   int
}

// NewDraft returns a draft preloaded from doc, or an empty draft when doc is nil.
// The cursor is placed at the end of the content.
func NewDraft(doc *Document) *Draft {
	d := &Draft{}
	if doc != nil {
		d.Title = doc.Title
		d.Content = doc.Content
	}
	d.selStart = len([]rune(d.Content))
	d.selEnd = d.selStart
	return d
}

// SetContent replaces the content and moves the cursor to its end.
func (d *Draft) SetContent(content string) {
	d.Content = content
	d.selStart = len([]rune(content))
	d.selEnd = d.selStart
}

// Append adds text at the end of the content.
func (d *Draft) Append(text string) {
	d.SetContent(d.Content + text)
}

// Select sets the selection to the rune range [start, end).
func (d *Draft) Select(start, end int) error {
	n := len([]rune(d.Content))
	if start < 0 || end < start || end > n {
		return fmt.Errorf("selection %d-%d outside content of length %d", start, end, n)
	}
	d.selStart, d.selEnd = start, end
	return nil
}

// Selection returns the current selection.
func (d *Draft) Selection() (start, end int) {
	return d.selStart, d.selEnd
}

// Insert wraps the selection in before and after. The selection moves with
// the wrapped text so repeated formatting applies to the same span.
// A selection past the end of Content (after a direct assignment) is
// clamped to it.
func (d *Draft) Insert(before, after string) {
	r := []rune(d.Content)
	end := min(max(d.selEnd, 0), len(r))
	start := min(max(d.selStart, 0), end)

	out := make([]rune, 0, len(r)+len(before)+len(after))
	out = append(out, r[:start]...)
	out = append(out, []rune(before)...)
	out = append(out, r[start:end]...)
	out = append(out, []rune(after)...)
	out = append(out, r[end:]...)
	d.Content = string(out)

	shift := len([]rune(before))
	d.selStart = start + shift
	d.selEnd = end + shift
}

func (d *Draft) Bold()     { d.Insert("**", "**") }
func (d *Draft) Italic()   { d.Insert("*", "*") }
func (d *Draft) Heading1() { d.Insert("# ", "") }
func (d *Draft) Heading2() { d.Insert("## ", "") }
func (d *Draft) Bullet()   { d.Insert("- ", "") }

// Changed reports whether the draft differs from the document it was
// loaded from (or from an empty draft for a new document).
func (d *Draft) Changed(from *Document) bool {
	if from == nil {
		return d.Title != "" || d.Content != ""
	}
	return d.Title != from.Title || d.Content != from.Content
}
