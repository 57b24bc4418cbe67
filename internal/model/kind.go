package model

// Kind is a normalized control kind, independent of any one widget toolkit.
type Kind string

const (
	KindButton   Kind = "btn"
	KindText     Kind = "txt"
	KindInput    Kind = "input"
	KindCheckBox Kind = "chk"
	KindRadio    Kind = "radio"
	KindList     Kind = "list"
	KindListItem Kind = "item"
	KindTab      Kind = "tab"
	KindMenu     Kind = "menu"
	KindMenuItem Kind = "menuitem"
	KindGroup    Kind = "group"
	KindWindow   Kind = "window"
	KindImage    Kind = "img"
	KindLink     Kind = "lnk"
	KindOther    Kind = "other"
)

// KindMap maps toolkit class tags to normalized kinds. Drivers use it when
// translating native trees; unknown classes fall back to KindOther.
var KindMap = map[string]Kind{
	"Button":       KindButton,
	"TextBlock":    KindText,
	"Label":        KindText,
	"TextBox":      KindInput,
	"Edit":         KindInput,
	"CheckBox":     KindCheckBox,
	"RadioButton":  KindRadio,
	"ListBox":      KindList,
	"ListView":     KindList,
	"DataGrid":     KindList,
	"ListBoxItem":  KindListItem,
	"ListViewItem": KindListItem,
	"DataItem":     KindListItem,
	"TabItem":      KindTab,
	"TabControl":   KindTab,
	"Menu":         KindMenu,
	"MenuBar":      KindMenu,
	"MenuItem":     KindMenuItem,
	"Group":        KindGroup,
	"Pane":         KindGroup,
	"Window":       KindWindow,
	"Image":        KindImage,
	"Hyperlink":    KindLink,
}

// NormalizeKind converts a toolkit class tag into a Kind.
func NormalizeKind(class string) Kind {
	if k, ok := KindMap[class]; ok {
		return k
	}
	return KindOther
}
