package docdisk

// ViewState is what the client presents. It is one of Unauthenticated,
// ListView or EditorView.
type ViewState interface {
	viewState()
}

// Unauthenticated shows the login form.
type Unauthenticated struct{}

// ListView shows the document list.
type ListView struct{}

// EditorView edits Draft. Target is nil when creating a new document and
// points at the document being edited otherwise.
type EditorView struct {
	Target *Document
	Draft  *Draft
}

// IsNew reports whether saving will create a document.
func (v EditorView) IsNew() bool { return v.Target == nil }

func (Unauthenticated) viewState() {}
func (ListView) viewState()        {}
func (EditorView) viewState()      {}
